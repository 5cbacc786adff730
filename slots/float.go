package slots

import (
	"errors"
	"fmt"
	"math"

	"github.com/spf13/cast"
)

// TypeFloat is the type name of FloatSlot.
const TypeFloat = "float"

const logMsgFloatInitialOutOfRange = "float slot created with an initial value outside of the configured range"

// ErrInvalidRange is returned when a FloatSlot is created with min >= max.
var ErrInvalidRange = errors.New("float slot min value must be smaller than max value")

// FloatSlot stores a continuous value which is featurized relative to [min, max].
type FloatSlot struct {
	base
	minValue float64
	maxValue float64
}

// NewFloatSlot creates a FloatSlot.
//
// Returns ErrInvalidRange if minValue >= maxValue.
// An initial value outside [minValue, maxValue] is accepted but logged as a warning.
func NewFloatSlot(name string, initialValue any, minValue, maxValue float64, options ...Option) (*FloatSlot, error) {
	if minValue >= maxValue {
		return nil, errors.Join(
			ErrInvalidRange,
			fmt.Errorf("slot %q: min %v, max %v", name, minValue, maxValue),
		)
	}

	s := &FloatSlot{
		base:     newBase(name, TypeFloat, initialValue, options...),
		minValue: minValue,
		maxValue: maxValue,
	}

	if initialValue != nil {
		if f, err := cast.ToFloat64E(initialValue); err == nil && (f < minValue || f > maxValue) {
			s.warn(logMsgFloatInitialOutOfRange,
				logAttrSlot, name,
				logAttrValue, initialValue,
				logAttrMinValue, minValue,
				logAttrMaxValue, maxValue)
		}
	}

	return s, nil
}

// MinValue returns the lower bound.
func (s *FloatSlot) MinValue() float64 {
	return s.minValue
}

// MaxValue returns the upper bound.
func (s *FloatSlot) MaxValue() float64 {
	return s.maxValue
}

// Encode clamps the value into [min, max] and normalizes it to [0, 1].
// Values which are not numeric encode as [0].
func (s *FloatSlot) Encode() []float64 {
	if s.value == nil {
		return zeros(unaryDimensionality)
	}

	f, err := cast.ToFloat64E(s.value)
	if err != nil || math.IsNaN(f) {
		return zeros(unaryDimensionality)
	}

	capped := math.Max(s.minValue, math.Min(s.maxValue, f))

	return []float64{(capped - s.minValue) / (s.maxValue - s.minValue)}
}

// Dimensionality is always 1.
func (s *FloatSlot) Dimensionality() int {
	return unaryDimensionality
}

// HasFeatures is always true.
func (s *FloatSlot) HasFeatures() bool {
	return true
}

// PersistenceInfo returns the definition of the slot including its bounds.
func (s *FloatSlot) PersistenceInfo() map[string]any {
	info := s.persistenceInfo()
	info[persistKeyMinValue] = s.minValue
	info[persistKeyMaxValue] = s.maxValue

	return info
}
