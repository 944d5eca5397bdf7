package artifact

import (
	"fmt"

	"github.com/matzehuels/traitforge/pkg/combo"
)

// DefaultNamePrefix labels artifacts "punk 1", "punk 2", ...
const DefaultNamePrefix = "punk"

// Attribute is one non-absent layer selection.
type Attribute struct {
	TraitType string `json:"trait_type"`
	Value     string `json:"value"`
}

// Metadata is the JSON record written for each artifact.
type Metadata struct {
	Name       string      `json:"name"`
	Attributes []Attribute `json:"attributes"`
}

// MetadataOptions controls how metadata is labelled.
type MetadataOptions struct {
	NamePrefix string // defaults to DefaultNamePrefix
	TrimExt    bool   // report variant names without file extension
	ZeroBased  bool   // label index 0 "punk 0"; file names stay 1-based
}

// Number returns the 1-based artifact number used for names and file keys.
func Number(index uint64) uint64 { return index + 1 }

func (o MetadataOptions) label(index uint64) uint64 {
	if o.ZeroBased {
		return index
	}
	return Number(index)
}

// MetadataFor builds the record for the artifact at index. Attributes follow
// layer priority order and omit absent selections.
func MetadataFor(index uint64, c combo.Combination, opts MetadataOptions) Metadata {
	prefix := opts.NamePrefix
	if prefix == "" {
		prefix = DefaultNamePrefix
	}

	attrs := make([]Attribute, 0, len(c.Variants))
	for _, v := range c.Present() {
		value := v.Name
		if opts.TrimExt {
			value = v.Label()
		}
		attrs = append(attrs, Attribute{TraitType: v.Layer, Value: value})
	}
	return Metadata{
		Name:       fmt.Sprintf("%s %d", prefix, opts.label(index)),
		Attributes: attrs,
	}
}
