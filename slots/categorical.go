package slots

import (
	"strings"

	"github.com/spf13/cast"
)

// TypeCategorical is the type name of CategoricalSlot.
const TypeCategorical = "categorical"

const (
	logMsgCategoricalValueUnknown = "categorical slot is set to a value that is not specified in the domain, the slot behaves as if no value is set"
	logAttrAllowedValues          = "allowed_values"
)

// CategoricalSlot stores one value out of an ordered set of allowed values.
// Matching is case-insensitive.
type CategoricalSlot struct {
	base
	values []string
}

// NewCategoricalSlot creates a CategoricalSlot. The allowed values are lower-cased.
func NewCategoricalSlot(name string, values []string, initialValue any, options ...Option) *CategoricalSlot {
	normalized := make([]string, 0, len(values))
	for _, v := range values {
		normalized = append(normalized, strings.ToLower(v))
	}

	return &CategoricalSlot{
		base:   newBase(name, TypeCategorical, initialValue, options...),
		values: normalized,
	}
}

// Values returns a copy of the normalized allowed values.
func (s *CategoricalSlot) Values() []string {
	values := make([]string, len(s.values))
	copy(values, s.values)

	return values
}

// Encode returns a one-hot vector on the first allowed value matching the current value.
//
// A value outside the allowed set is treated as absent (all zeros) and logged as a warning.
func (s *CategoricalSlot) Encode() []float64 {
	features := zeros(len(s.values))

	if s.value == nil {
		return features
	}

	str, err := cast.ToStringE(s.value)
	if err != nil {
		s.warnUnknown()
		return features
	}

	str = strings.ToLower(str)
	for i, v := range s.values {
		if v == str {
			features[i] = 1.0
			return features
		}
	}

	s.warnUnknown()

	return features
}

func (s *CategoricalSlot) warnUnknown() {
	s.warn(logMsgCategoricalValueUnknown,
		logAttrSlot, s.name,
		logAttrValue, s.value,
		logAttrAllowedValues, s.values)
}

// Dimensionality equals the number of allowed values.
func (s *CategoricalSlot) Dimensionality() int {
	return len(s.values)
}

// HasFeatures is true if there is at least one allowed value.
func (s *CategoricalSlot) HasFeatures() bool {
	return len(s.values) > 0
}

// PersistenceInfo returns the definition of the slot including the allowed values.
func (s *CategoricalSlot) PersistenceInfo() map[string]any {
	info := s.persistenceInfo()
	info[persistKeyValues] = s.Values()

	return info
}
