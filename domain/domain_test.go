package domain_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AntonStoeckl/dialogue-trackerstore-go/domain"
	"github.com/AntonStoeckl/dialogue-trackerstore-go/slots"
)

const domainYAML = `
intents:
  - greet
slots:
  temperature:
    type: float
    min_value: -20
    max_value: 40
  risk:
    type: categorical
    values: [low, Medium, high]
  confirmed:
    type: bool
    initial_value: false
  notes:
    type: unfeaturized
    auto_fill: false
  name:
    type: text
`

func Test_Load_KeepsDeclarationOrder(t *testing.T) {
	// act
	d, err := domain.Load([]byte(domainYAML))

	// assert
	require.NoError(t, err)

	names := make([]string, 0)
	for _, slot := range d.NewSlots() {
		names = append(names, slot.Name())
	}

	assert.Equal(t, []string{"temperature", "risk", "confirmed", "notes", "name"}, names)
	assert.Equal(t, 1+3+2+0+1, d.FeatureDimensionality())
}

func Test_Load_AppliesDefinitionParameters(t *testing.T) {
	// act
	d, err := domain.Load([]byte(domainYAML))
	require.NoError(t, err)
	built := d.NewSlots()

	// assert
	temperature, ok := built[0].(*slots.FloatSlot)
	require.True(t, ok)
	assert.Equal(t, -20.0, temperature.MinValue())
	assert.Equal(t, 40.0, temperature.MaxValue())

	risk, ok := built[1].(*slots.CategoricalSlot)
	require.True(t, ok)
	assert.Equal(t, []string{"low", "medium", "high"}, risk.Values())

	assert.Equal(t, false, built[2].InitialValue())
	assert.False(t, built[3].AutoFill())
}

func Test_NewSlots_ReturnsFreshInstances(t *testing.T) {
	// setup
	d, err := domain.Load([]byte(domainYAML))
	require.NoError(t, err)

	// act
	first := d.NewSlots()
	first[4].SetValue("Ada")
	second := d.NewSlots()

	// assert
	assert.Equal(t, "Ada", first[4].Value())
	assert.Nil(t, second[4].Value())
}

func Test_Load_ShouldFail_WithUnknownSlotType(t *testing.T) {
	// act
	_, err := domain.Load([]byte("slots:\n  mood:\n    type: emotion\n"))

	// assert
	assert.ErrorIs(t, err, slots.ErrUnknownSlotType)
	assert.ErrorContains(t, err, "emotion")
}

func Test_Load_ShouldFail_WithInvalidFloatRange(t *testing.T) {
	// act
	_, err := domain.Load([]byte("slots:\n  ratio:\n    type: float\n    min_value: 1\n    max_value: 1\n"))

	// assert
	assert.ErrorIs(t, err, slots.ErrInvalidRange)
}

func Test_Load_ShouldFail_WhenSlotsIsNotAMapping(t *testing.T) {
	// act
	_, err := domain.Load([]byte("slots:\n  - name\n"))

	// assert
	assert.ErrorIs(t, err, domain.ErrInvalidDomain)
}

func Test_Load_ResolvesRegisteredSlotTypes(t *testing.T) {
	// setup
	registry := slots.NewRegistry()
	require.NoError(t, registry.Register("address", func(def slots.Definition, options ...slots.Option) (slots.Slot, error) {
		return slots.NewTextSlot(def.Name, def.InitialValue, options...), nil
	}))

	// act
	d, err := domain.Load([]byte("slots:\n  home:\n    type: address\n"), domain.WithRegistry(registry))

	// assert
	require.NoError(t, err)
	assert.Len(t, d.NewSlots(), 1)
}

func Test_New_ShouldFail_WithDuplicateSlots(t *testing.T) {
	// act
	_, err := domain.New([]slots.Definition{
		{Name: "name", Type: slots.TypeText},
		{Name: "name", Type: slots.TypeText},
	})

	// assert
	assert.ErrorIs(t, err, domain.ErrDuplicateSlot)
}

func Test_LoadFile(t *testing.T) {
	// setup
	path := filepath.Join(t.TempDir(), "domain.yml")
	require.NoError(t, os.WriteFile(path, []byte(domainYAML), 0o600))

	// act
	d, err := domain.LoadFile(path)
	_, missingErr := domain.LoadFile(filepath.Join(t.TempDir(), "missing.yml"))

	// assert
	require.NoError(t, err)
	assert.Len(t, d.SlotDefinitions(), 5)
	assert.ErrorIs(t, missingErr, domain.ErrInvalidDomain)
}

func Test_Load_WithoutSlots(t *testing.T) {
	// act
	d, err := domain.Load([]byte("intents:\n  - greet\n"))

	// assert
	require.NoError(t, err)
	assert.Empty(t, d.NewSlots())
}
