package config

import (
	"bytes"
	"cmp"
	"fmt"
	"maps"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/comalice/pumpchart/internal/bus"
)

// Patch changes stimulus signals from tick At onward. Keys are dotted
// signal paths as they appear in the scenario file, e.g.
// "operator.infusionInhibit".
type Patch struct {
	At       uint64         `yaml:"at"`
	Priority int            `yaml:"priority,omitempty"`
	Set      map[string]any `yaml:"set"`
}

// SortPatches orders patches by tick, then higher priority first. The sort
// is stable so equal patches keep their file order.
func SortPatches(patches []Patch) {
	slices.SortStableFunc(patches, func(a, b Patch) int {
		if c := cmp.Compare(a.At, b.At); c != 0 {
			return c
		}
		return cmp.Compare(b.Priority, a.Priority)
	})
}

// ApplyTick applies the patches of one tick, already in order, to s. When
// several patches set the same signal the first one wins. On error s is
// left unchanged.
func ApplyTick(s *bus.Stimulus, patches []Patch) error {
	doc, err := toDoc(s)
	if err != nil {
		return err
	}

	taken := make(map[string]bool)
	for _, p := range patches {
		for _, key := range slices.Sorted(maps.Keys(p.Set)) {
			if taken[key] {
				continue
			}

			if err := setPath(doc, key, p.Set[key]); err != nil {
				return err
			}

			taken[key] = true
		}
	}

	return fromDoc(doc, s)
}

// CheckBounds returns ErrOutOfRange naming the first integer signal of s,
// in path order, that lies outside MinSignal..MaxSignal.
func CheckBounds(s *bus.Stimulus) error {
	doc, err := toDoc(s)
	if err != nil {
		return err
	}

	return walkBounds("", doc)
}

func walkBounds(prefix string, doc map[string]any) error {
	for _, key := range slices.Sorted(maps.Keys(doc)) {
		path := key
		if prefix != "" {
			path = prefix + "." + key
		}

		switch v := doc[key].(type) {
		case map[string]any:
			if err := walkBounds(path, v); err != nil {
				return err
			}
		case int:
			if v < MinSignal || v > MaxSignal {
				return fmt.Errorf("%w: %s = %d", ErrOutOfRange, path, v)
			}
		}
	}

	return nil
}

func setPath(doc map[string]any, key string, value any) error {
	parts := strings.Split(key, ".")
	node := doc

	for _, part := range parts[:len(parts)-1] {
		next, ok := node[part].(map[string]any)
		if !ok {
			return fmt.Errorf("%w: %s", ErrUnknownSignal, key)
		}

		node = next
	}

	leaf := parts[len(parts)-1]
	if _, ok := node[leaf]; !ok {
		return fmt.Errorf("%w: %s", ErrUnknownSignal, key)
	}

	node[leaf] = value

	return nil
}

func toDoc(s *bus.Stimulus) (map[string]any, error) {
	raw, err := yaml.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("marshal stimulus: %w", err)
	}

	var doc map[string]any
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("unmarshal stimulus: %w", err)
	}

	return doc, nil
}

func fromDoc(doc map[string]any, s *bus.Stimulus) error {
	raw, err := yaml.Marshal(doc)
	if err != nil {
		return fmt.Errorf("marshal stimulus: %w", err)
	}

	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)

	var out bus.Stimulus
	if err := dec.Decode(&out); err != nil {
		return fmt.Errorf("decode patched stimulus: %w", err)
	}

	*s = out

	return nil
}
