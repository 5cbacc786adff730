package slots

import (
	"fmt"
	"log/slog"
)

const (
	logAttrSlot         = "slot"
	logAttrValue        = "value"
	logAttrMinValue     = "min_value"
	logAttrMaxValue     = "max_value"
	persistKeyType      = "type"
	persistKeyInitial   = "initial_value"
	persistKeyAutoFill  = "auto_fill"
	persistKeyMaxValue  = "max_value"
	persistKeyMinValue  = "min_value"
	persistKeyValues    = "values"
	defaultFloatMin     = 0.0
	defaultFloatMax     = 1.0
	zeroDimensionality  = 0
	unaryDimensionality = 1
)

// Logger interface for featurization warnings.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// Slot is a named, typed value cell with a deterministic feature encoding.
//
// Encode must always return exactly Dimensionality() values.
type Slot interface {
	Name() string
	TypeName() string
	Value() any
	SetValue(value any)
	InitialValue() any
	Reset()
	Encode() []float64
	Dimensionality() int
	HasFeatures() bool
	AutoFill() bool
	ValueResetDelay() *int
	PersistenceInfo() map[string]any
}

// Option defines a functional option for configuring a Slot.
type Option func(*base)

// WithLogger sets the logger which receives featurization warnings.
// Without this option slog.Default() is used.
func WithLogger(logger Logger) Option {
	return func(b *base) {
		if logger != nil {
			b.logger = logger
		}
	}
}

// WithAutoFill controls whether the slot may be filled automatically from extracted entities.
func WithAutoFill(autoFill bool) Option {
	return func(b *base) {
		b.autoFill = autoFill
	}
}

// WithValueResetDelay sets after how many turns the slot should go back to its initial value.
func WithValueResetDelay(turns int) Option {
	return func(b *base) {
		b.valueResetDelay = &turns
	}
}

// base holds what all variants share.
type base struct {
	name            string
	typeName        string
	value           any
	initialValue    any
	autoFill        bool
	valueResetDelay *int
	logger          Logger
}

func newBase(name, typeName string, initialValue any, options ...Option) base {
	b := base{
		name:         name,
		typeName:     typeName,
		value:        initialValue,
		initialValue: initialValue,
		autoFill:     true,
		logger:       slog.Default(),
	}

	for _, option := range options {
		option(&b)
	}

	return b
}

// Name returns the slot name.
func (b *base) Name() string {
	return b.name
}

// TypeName returns the name the slot type is registered under.
func (b *base) TypeName() string {
	return b.typeName
}

// Value returns the current value, nil if the slot is not set.
func (b *base) Value() any {
	return b.value
}

// SetValue overwrites the current value.
func (b *base) SetValue(value any) {
	b.value = value
}

// InitialValue returns the value the slot starts with and is reset to.
func (b *base) InitialValue() any {
	return b.initialValue
}

// Reset restores the initial value.
func (b *base) Reset() {
	b.value = b.initialValue
}

// AutoFill reports whether the slot may be filled from extracted entities.
func (b *base) AutoFill() bool {
	return b.autoFill
}

// ValueResetDelay returns after how many turns the slot is reset, nil means never.
func (b *base) ValueResetDelay() *int {
	return b.valueResetDelay
}

// String implements fmt.Stringer.
func (b *base) String() string {
	return fmt.Sprintf("%s(%s: %v)", b.typeName, b.name, b.value)
}

func (b *base) persistenceInfo() map[string]any {
	return map[string]any{
		persistKeyType:     b.typeName,
		persistKeyInitial:  b.initialValue,
		persistKeyAutoFill: b.autoFill,
	}
}

func (b *base) warn(msg string, args ...any) {
	if b.logger != nil {
		b.logger.Warn(msg, args...)
	}
}

// zeros returns a zero vector with length n.
func zeros(n int) []float64 {
	return make([]float64, n)
}
