package traits

import (
	"context"
	"fmt"
)

// StaticSource serves variant names from memory. Variants have no file path
// unless Dir is set, in which case Path is Dir/layer/name.
type StaticSource struct {
	Layers map[string][]string
	Dir    string
}

// Variants returns the configured names for layer in their given order.
func (s StaticSource) Variants(_ context.Context, layer string) ([]Variant, error) {
	names, ok := s.Layers[layer]
	if !ok {
		return nil, fmt.Errorf("unknown layer %q", layer)
	}
	variants := make([]Variant, len(names))
	for i, name := range names {
		v := Variant{Layer: layer, Name: name}
		if s.Dir != "" {
			v.Path = s.Dir + "/" + layer + "/" + name
		}
		variants[i] = v
	}
	return variants, nil
}

var _ Source = StaticSource{}
