package slots

import (
	"errors"
	"fmt"
	"sync"
)

var (
	// ErrUnknownSlotType is returned when a type name is neither built in nor registered.
	ErrUnknownSlotType = errors.New("unknown slot type")

	// ErrSlotTypeAlreadyRegistered is returned when registering a type name which is already taken.
	ErrSlotTypeAlreadyRegistered = errors.New("slot type is already registered")

	// ErrEmptySlotName is returned when a definition has no name.
	ErrEmptySlotName = errors.New("slot name must not be empty")

	// ErrNilSlotFactory is returned when registering a nil factory.
	ErrNilSlotFactory = errors.New("slot factory must not be nil")
)

// Definition describes a slot the way a domain declares it.
type Definition struct {
	Name            string   `yaml:"-"`
	Type            string   `yaml:"type"`
	InitialValue    any      `yaml:"initial_value"`
	MinValue        *float64 `yaml:"min_value"`
	MaxValue        *float64 `yaml:"max_value"`
	Values          []string `yaml:"values"`
	AutoFill        *bool    `yaml:"auto_fill"`
	ValueResetDelay *int     `yaml:"value_reset_delay"`
}

// Factory builds a Slot from a Definition.
type Factory func(def Definition, options ...Option) (Slot, error)

var builtinFactories = map[string]Factory{
	TypeFloat: func(def Definition, options ...Option) (Slot, error) {
		minValue, maxValue := defaultFloatMin, defaultFloatMax
		if def.MinValue != nil {
			minValue = *def.MinValue
		}

		if def.MaxValue != nil {
			maxValue = *def.MaxValue
		}

		s, err := NewFloatSlot(def.Name, def.InitialValue, minValue, maxValue, options...)
		if err != nil {
			return nil, err
		}

		return s, nil
	},
	TypeBoolean: func(def Definition, options ...Option) (Slot, error) {
		return NewBooleanSlot(def.Name, def.InitialValue, options...), nil
	},
	TypeText: func(def Definition, options ...Option) (Slot, error) {
		return NewTextSlot(def.Name, def.InitialValue, options...), nil
	},
	TypeList: func(def Definition, options ...Option) (Slot, error) {
		return NewListSlot(def.Name, def.InitialValue, options...), nil
	},
	TypeCategorical: func(def Definition, options ...Option) (Slot, error) {
		return NewCategoricalSlot(def.Name, def.Values, def.InitialValue, options...), nil
	},
	TypeUnfeaturized: func(def Definition, options ...Option) (Slot, error) {
		return NewUnfeaturizedSlot(def.Name, def.InitialValue, options...), nil
	},
}

// BuiltinTypes returns the type names of the built-in variants.
func BuiltinTypes() []string {
	return []string{TypeFloat, TypeBoolean, TypeText, TypeList, TypeCategorical, TypeUnfeaturized}
}

// Registry resolves slot type names to factories.
// Built-in variants always take precedence over registered types.
type Registry struct {
	mu     sync.RWMutex
	custom map[string]Factory
}

// NewRegistry creates a Registry that knows the built-in variants only.
func NewRegistry() *Registry {
	return &Registry{custom: make(map[string]Factory)}
}

// Register adds a user defined slot type.
func (r *Registry) Register(typeName string, factory Factory) error {
	if factory == nil {
		return ErrNilSlotFactory
	}

	if _, ok := builtinFactories[typeName]; ok {
		return errors.Join(ErrSlotTypeAlreadyRegistered, fmt.Errorf("type %q is built in", typeName))
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.custom[typeName]; ok {
		return errors.Join(ErrSlotTypeAlreadyRegistered, fmt.Errorf("type %q", typeName))
	}

	r.custom[typeName] = factory

	return nil
}

// Resolve looks up the factory for a type name, built-in variants first.
func (r *Registry) Resolve(typeName string) (Factory, error) {
	if factory, ok := builtinFactories[typeName]; ok {
		return factory, nil
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	if factory, ok := r.custom[typeName]; ok {
		return factory, nil
	}

	return nil, errors.Join(
		ErrUnknownSlotType,
		fmt.Errorf("%q is neither a built-in nor a registered slot type", typeName),
	)
}

// Build resolves def.Type and creates the slot.
// AutoFill and ValueResetDelay from the definition are applied before the given options.
func (r *Registry) Build(def Definition, options ...Option) (Slot, error) {
	if def.Name == "" {
		return nil, ErrEmptySlotName
	}

	factory, err := r.Resolve(def.Type)
	if err != nil {
		return nil, errors.Join(fmt.Errorf("slot %q", def.Name), err)
	}

	allOptions := make([]Option, 0, len(options)+2)
	if def.AutoFill != nil {
		allOptions = append(allOptions, WithAutoFill(*def.AutoFill))
	}

	if def.ValueResetDelay != nil {
		allOptions = append(allOptions, WithValueResetDelay(*def.ValueResetDelay))
	}

	allOptions = append(allOptions, options...)

	return factory(def, allOptions...)
}
