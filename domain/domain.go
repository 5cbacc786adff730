// Package domain supplies the slot definitions trackers are seeded and replayed with.
//
// A Domain is loaded once, validated completely at load time, and then hands out fresh
// slot instances for every tracker:
//
//	d, err := domain.LoadFile("domain.yml")
//	if errors.Is(err, slots.ErrUnknownSlotType) {
//		// configuration error
//	}
//
//	t := tracker.New(senderID, d.NewSlots())
package domain

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/AntonStoeckl/dialogue-trackerstore-go/slots"
)

const (
	logMsgBuildingSlotFailed = "building slot from a validated definition failed, slot skipped"
	logAttrSlot              = "slot"
	logAttrError             = "error"
)

var (
	// ErrInvalidDomain is returned when a domain document can not be parsed.
	ErrInvalidDomain = errors.New("domain is not valid")

	// ErrDuplicateSlot is returned when two slot definitions share a name.
	ErrDuplicateSlot = errors.New("slot is defined more than once")
)

// Logger interface for reporting slots that could not be built.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// Domain holds the ordered slot definitions of a dialogue system.
type Domain struct {
	definitions []slots.Definition
	registry    *slots.Registry
	slotOptions []slots.Option
	logger      Logger
}

// Option defines a functional option for configuring a Domain.
type Option func(*Domain)

// WithRegistry sets the registry slot types are resolved against.
// Without this option only the built-in slot types are known.
func WithRegistry(registry *slots.Registry) Option {
	return func(d *Domain) {
		if registry != nil {
			d.registry = registry
		}
	}
}

// WithSlotOptions sets options applied to every slot the domain builds.
func WithSlotOptions(options ...slots.Option) Option {
	return func(d *Domain) {
		d.slotOptions = append(d.slotOptions, options...)
	}
}

// WithLogger sets the logger for the Domain.
func WithLogger(logger Logger) Option {
	return func(d *Domain) {
		d.logger = logger
	}
}

// New creates a Domain and validates every definition by building it once.
func New(definitions []slots.Definition, options ...Option) (*Domain, error) {
	d := &Domain{
		definitions: make([]slots.Definition, 0, len(definitions)),
		registry:    slots.NewRegistry(),
	}

	for _, option := range options {
		option(d)
	}

	seen := make(map[string]struct{}, len(definitions))
	for _, def := range definitions {
		if _, ok := seen[def.Name]; ok {
			return nil, errors.Join(ErrDuplicateSlot, fmt.Errorf("slot %q", def.Name))
		}

		seen[def.Name] = struct{}{}

		if _, err := d.registry.Build(def, d.slotOptions...); err != nil {
			return nil, err
		}

		d.definitions = append(d.definitions, def)
	}

	return d, nil
}

// Load parses a YAML domain document. Slots keep the order they are declared in.
//
//	slots:
//	  temperature:
//	    type: float
//	    min_value: -20
//	    max_value: 40
//	  risk:
//	    type: categorical
//	    values: [low, medium, high]
func Load(data []byte, options ...Option) (*Domain, error) {
	var doc struct {
		Slots yaml.Node `yaml:"slots"`
	}

	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, errors.Join(ErrInvalidDomain, err)
	}

	definitions := make([]slots.Definition, 0)

	switch doc.Slots.Kind {
	case 0:
		// no slots section

	case yaml.MappingNode:
		for i := 0; i+1 < len(doc.Slots.Content); i += 2 {
			keyNode, valueNode := doc.Slots.Content[i], doc.Slots.Content[i+1]

			var def slots.Definition
			if err := valueNode.Decode(&def); err != nil {
				return nil, errors.Join(ErrInvalidDomain, fmt.Errorf("slot %q", keyNode.Value), err)
			}

			def.Name = keyNode.Value
			definitions = append(definitions, def)
		}

	default:
		return nil, errors.Join(ErrInvalidDomain, errors.New("slots must be a mapping of slot name to definition"))
	}

	return New(definitions, options...)
}

// LoadFile reads and parses a YAML domain file.
func LoadFile(path string, options ...Option) (*Domain, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Join(ErrInvalidDomain, err)
	}

	return Load(data, options...)
}

// NewSlots builds a fresh set of slots, in definition order.
func (d *Domain) NewSlots() []slots.Slot {
	built := make([]slots.Slot, 0, len(d.definitions))

	for _, def := range d.definitions {
		slot, err := d.registry.Build(def, d.slotOptions...)
		if err != nil {
			if d.logger != nil {
				d.logger.Error(logMsgBuildingSlotFailed, logAttrSlot, def.Name, logAttrError, err.Error())
			}

			continue
		}

		built = append(built, slot)
	}

	return built
}

// SlotDefinitions returns a copy of the definitions in order.
func (d *Domain) SlotDefinitions() []slots.Definition {
	definitions := make([]slots.Definition, len(d.definitions))
	copy(definitions, d.definitions)

	return definitions
}

// FeatureDimensionality returns the total number of slot features of the domain.
func (d *Domain) FeatureDimensionality() int {
	dimensionality := 0
	for _, slot := range d.NewSlots() {
		dimensionality += slot.Dimensionality()
	}

	return dimensionality
}
