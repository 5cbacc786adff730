// Package slots provides the typed value cells a dialogue tracker keeps its state in.
//
// Every slot holds a current and an initial value and turns its current value into a
// fixed-length feature vector. The length of that vector is the slot's dimensionality;
// it never changes for the lifetime of a slot.
//
// Built-in variants:
//   - FloatSlot: 1 feature, the value clamped into [min, max] and normalized
//   - BooleanSlot: 2 features, "is set" and "is truthy"
//   - TextSlot: 1 feature, "is set"
//   - ListSlot: 1 feature, "is non-empty"
//   - CategoricalSlot: one-hot over the allowed values
//   - UnfeaturizedSlot: no features at all
//
// Values which can not be featurized never cause an error, the variant's zero vector is returned instead.
//
// Slots are usually built from a Definition through a Registry, which resolves the
// built-in variants first and user registered types second:
//
//	registry := slots.NewRegistry()
//	slot, err := registry.Build(slots.Definition{Name: "risk", Type: "categorical", Values: []string{"low", "high"}})
//	if err != nil {
//		// unknown type or invalid parameters
//	}
//
//	slot.SetValue("High")
//	features := slot.Encode() // [0 1]
package slots
