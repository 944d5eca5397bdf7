package traits

import (
	"context"
	"path/filepath"
	"strings"

	"github.com/matzehuels/traitforge/pkg/errors"
)

// AbsentName is the identifier of the sentinel variant, kept as the original
// tool's marker so metadata and plans stay recognizable.
const AbsentName = "N/A"

// Variant is one concrete choice within a layer.
type Variant struct {
	Layer string // owning layer name
	Name  string // identifier, the file name on disk
	Path  string // file to load; empty for the absent variant
}

// Absent returns the sentinel variant for layer.
func Absent(layer string) Variant {
	return Variant{Layer: layer, Name: AbsentName}
}

// IsAbsent reports whether v is the sentinel variant.
func (v Variant) IsAbsent() bool {
	return v.Path == "" && v.Name == AbsentName
}

// Label returns the variant name with its file extension removed.
func (v Variant) Label() string {
	if v.IsAbsent() {
		return v.Name
	}
	return strings.TrimSuffix(v.Name, filepath.Ext(v.Name))
}

// Layer is a named axis of variation with its ordered variants.
// The last variant is always the absent sentinel.
type Layer struct {
	Name     string
	Variants []Variant
}

// Len returns the number of variants including the absent sentinel.
func (l Layer) Len() int { return len(l.Variants) }

// Source enumerates the variant identifiers of a layer.
type Source interface {
	Variants(ctx context.Context, layer string) ([]Variant, error)
}

// ListLayers builds layers in exactly the order of names, appending the absent
// sentinel to each. It fails with a CONFIG_ERROR if names is empty, contains a
// blank or duplicate name, or if any layer cannot be enumerated.
func ListLayers(ctx context.Context, src Source, names []string) ([]Layer, error) {
	if len(names) == 0 {
		return nil, errors.New(errors.ErrCodeConfig, "no layers given: the layer priority order must be specified")
	}

	seen := make(map[string]bool, len(names))
	layers := make([]Layer, 0, len(names))
	for _, name := range names {
		if err := errors.ValidateLayerName(name); err != nil {
			return nil, err
		}
		if seen[name] {
			return nil, errors.New(errors.ErrCodeConfig, "layer %q listed more than once", name)
		}
		seen[name] = true

		if err := ctx.Err(); err != nil {
			return nil, err
		}

		found, err := src.Variants(ctx, name)
		if err != nil {
			if errors.GetCode(err) != "" {
				return nil, err
			}
			return nil, errors.Wrap(errors.ErrCodeConfig, err, "list variants of layer %q", name)
		}

		variants := make([]Variant, 0, len(found)+1)
		for _, v := range found {
			v.Layer = name
			variants = append(variants, v)
		}
		variants = append(variants, Absent(name))
		layers = append(layers, Layer{Name: name, Variants: variants})
	}
	return layers, nil
}

// Names returns the layer names in priority order.
func Names(layers []Layer) []string {
	names := make([]string, len(layers))
	for i, l := range layers {
		names[i] = l.Name
	}
	return names
}
