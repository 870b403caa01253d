package feature

import (
	"errors"
	"fmt"
	"io"
	"maps"
	"slices"

	"gopkg.in/yaml.v3"
)

// Definitions is a set of declarative feature definitions.
type Definitions struct {
	Features map[string]Value
	Rollouts map[string]Rollout
}

type definitionsDoc struct {
	Features map[string]any     `yaml:"features"`
	Rollouts map[string]Rollout `yaml:"rollouts"`
}

// LoadDefinitions parses a YAML document of the form:
//
//	features:
//	  beta: true
//	  theme: dark
//	  limits: {projects: 10}
//	rollouts:
//	  new-ui: {percentage: 25, seed: spring, sticky: true}
func LoadDefinitions(r io.Reader) (Definitions, error) {
	var doc definitionsDoc
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil && !errors.Is(err, io.EOF) {
		return Definitions{}, errors.Join(ErrInvalidDefinition, err)
	}

	defs := Definitions{
		Features: make(map[string]Value, len(doc.Features)),
		Rollouts: make(map[string]Rollout, len(doc.Rollouts)),
	}
	for name, raw := range doc.Features {
		v, err := ValueOf(raw)
		if err != nil {
			return Definitions{}, errors.Join(ErrInvalidDefinition, fmt.Errorf("feature %q", name), err)
		}
		defs.Features[name] = v
	}
	for name, ro := range doc.Rollouts {
		if _, dup := defs.Features[name]; dup {
			return Definitions{}, fmt.Errorf("%w: %q defined as feature and rollout", ErrInvalidDefinition, name)
		}
		if ro.Percentage < 0 || ro.Percentage > 100 {
			return Definitions{}, fmt.Errorf("%w: rollout %q percentage %d out of range", ErrInvalidDefinition, name, ro.Percentage)
		}
		defs.Rollouts[name] = ro
	}
	return defs, nil
}

// Names returns every defined name, sorted.
func (d Definitions) Names() []string {
	names := slices.Collect(maps.Keys(d.Features))
	names = slices.AppendSeq(names, maps.Keys(d.Rollouts))
	slices.Sort(names)
	return names
}

// DefineAll registers defs on store.
func DefineAll(store Store, defs Definitions) error {
	for _, name := range slices.Sorted(maps.Keys(defs.Features)) {
		if err := store.Define(name, Static(defs.Features[name])); err != nil {
			return fmt.Errorf("define %q: %w", name, err)
		}
	}
	for _, name := range slices.Sorted(maps.Keys(defs.Rollouts)) {
		if err := store.Define(name, NewRolloutResolver(name, defs.Rollouts[name])); err != nil {
			return fmt.Errorf("define %q: %w", name, err)
		}
	}
	return nil
}
