package slots

import (
	"github.com/spf13/cast"
)

// TypeBoolean is the type name of BooleanSlot.
const TypeBoolean = "bool"

const booleanDimensionality = 2

// BooleanSlot stores a truth value.
//
// The first feature tells whether the slot is set at all, the second one whether the value is truthy.
type BooleanSlot struct {
	base
}

// NewBooleanSlot creates a BooleanSlot.
func NewBooleanSlot(name string, initialValue any, options ...Option) *BooleanSlot {
	return &BooleanSlot{base: newBase(name, TypeBoolean, initialValue, options...)}
}

// Encode returns [1 1] for truthy, [1 0] for falsy and [0 0] for absent or unconvertible values.
func (s *BooleanSlot) Encode() []float64 {
	if s.value == nil {
		return zeros(booleanDimensionality)
	}

	truthy, err := cast.ToBoolE(s.value)
	if err != nil {
		return zeros(booleanDimensionality)
	}

	if truthy {
		return []float64{1.0, 1.0}
	}

	return []float64{1.0, 0.0}
}

// Dimensionality is always 2.
func (s *BooleanSlot) Dimensionality() int {
	return booleanDimensionality
}

// HasFeatures is always true.
func (s *BooleanSlot) HasFeatures() bool {
	return true
}

// PersistenceInfo returns the definition of the slot.
func (s *BooleanSlot) PersistenceInfo() map[string]any {
	return s.persistenceInfo()
}
