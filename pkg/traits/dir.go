package traits

import (
	"context"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/matzehuels/traitforge/pkg/errors"
)

// DirSource lists variants from a traits root holding one subdirectory per
// layer and one file per variant.
type DirSource struct {
	Root string
}

// Variants returns the files of root/layer sorted by name. Hidden files and
// subdirectories are ignored.
func (s DirSource) Variants(ctx context.Context, layer string) ([]Variant, error) {
	dir := filepath.Join(s.Root, layer)
	names, err := ListFiles(dir)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeConfig, err, "list layer %q in %s", layer, s.Root)
	}

	variants := make([]Variant, len(names))
	for i, name := range names {
		variants[i] = Variant{Layer: layer, Name: name, Path: filepath.Join(dir, name)}
	}
	return variants, nil
}

// DiscoverLayerNames lists the layer directories under root, sorted by name.
// The result is a menu of candidates; it is never used as a priority order
// without the caller choosing one.
func DiscoverLayerNames(root string) ([]string, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeConfig, err, "list traits root %s", root)
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() && !isHidden(e.Name()) {
			names = append(names, e.Name())
		}
	}
	slices.Sort(names)
	return names, nil
}

// ListFiles returns the names of the regular, non-hidden files in dir, sorted.
func ListFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() || isHidden(e.Name()) {
			continue
		}
		names = append(names, e.Name())
	}
	slices.Sort(names)
	return names, nil
}

func isHidden(name string) bool {
	return strings.HasPrefix(name, ".")
}

var _ Source = DirSource{}
