package slots

import (
	"reflect"
)

const (
	// TypeText is the type name of TextSlot.
	TypeText = "text"

	// TypeList is the type name of ListSlot.
	TypeList = "list"

	// TypeUnfeaturized is the type name of UnfeaturizedSlot.
	TypeUnfeaturized = "unfeaturized"
)

// TextSlot stores arbitrary text, only its presence is featurized.
type TextSlot struct {
	base
}

// NewTextSlot creates a TextSlot.
func NewTextSlot(name string, initialValue any, options ...Option) *TextSlot {
	return &TextSlot{base: newBase(name, TypeText, initialValue, options...)}
}

// Encode returns [1] if a value is present, [0] otherwise.
func (s *TextSlot) Encode() []float64 {
	if s.value == nil {
		return zeros(unaryDimensionality)
	}

	return []float64{1.0}
}

// Dimensionality is always 1.
func (s *TextSlot) Dimensionality() int {
	return unaryDimensionality
}

// HasFeatures is always true.
func (s *TextSlot) HasFeatures() bool {
	return true
}

// PersistenceInfo returns the definition of the slot.
func (s *TextSlot) PersistenceInfo() map[string]any {
	return s.persistenceInfo()
}

// ListSlot stores a list of values, the length of the list does not influence the features.
type ListSlot struct {
	base
}

// NewListSlot creates a ListSlot.
func NewListSlot(name string, initialValue any, options ...Option) *ListSlot {
	return &ListSlot{base: newBase(name, TypeList, initialValue, options...)}
}

// Encode returns [1] for a non-empty list, [0] for empty, absent or non-iterable values.
func (s *ListSlot) Encode() []float64 {
	if s.value == nil {
		return zeros(unaryDimensionality)
	}

	v := reflect.ValueOf(s.value)

	switch v.Kind() {
	case reflect.Slice, reflect.Array, reflect.Map, reflect.String:
		if v.Len() > 0 {
			return []float64{1.0}
		}
	}

	return zeros(unaryDimensionality)
}

// Dimensionality is always 1.
func (s *ListSlot) Dimensionality() int {
	return unaryDimensionality
}

// HasFeatures is always true.
func (s *ListSlot) HasFeatures() bool {
	return true
}

// PersistenceInfo returns the definition of the slot.
func (s *ListSlot) PersistenceInfo() map[string]any {
	return s.persistenceInfo()
}

// UnfeaturizedSlot stores data which must not influence predictions.
// It is excluded from every feature aggregation.
type UnfeaturizedSlot struct {
	base
}

// NewUnfeaturizedSlot creates an UnfeaturizedSlot.
func NewUnfeaturizedSlot(name string, initialValue any, options ...Option) *UnfeaturizedSlot {
	return &UnfeaturizedSlot{base: newBase(name, TypeUnfeaturized, initialValue, options...)}
}

// Encode always returns an empty vector.
func (s *UnfeaturizedSlot) Encode() []float64 {
	return []float64{}
}

// Dimensionality is always 0.
func (s *UnfeaturizedSlot) Dimensionality() int {
	return zeroDimensionality
}

// HasFeatures is always false.
func (s *UnfeaturizedSlot) HasFeatures() bool {
	return false
}

// PersistenceInfo returns the definition of the slot.
func (s *UnfeaturizedSlot) PersistenceInfo() map[string]any {
	return s.persistenceInfo()
}
