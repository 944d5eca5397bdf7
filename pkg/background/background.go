// Package background lists candidate backgrounds and draws one per artifact.
//
// Draws are uniform and independent. A [Selector] built with a non-zero seed
// repeats the same draw sequence on every run; seed zero draws from an
// unseeded source.
package background

import (
	"context"
	crand "crypto/rand"
	"math/rand/v2"
	"path/filepath"

	"github.com/matzehuels/traitforge/pkg/errors"
	"github.com/matzehuels/traitforge/pkg/traits"
)

// Background is a candidate background image.
type Background struct {
	Name string
	Path string
}

// List returns the background files in dir, sorted by name. It fails with
// CONFIG_ERROR if dir cannot be read or holds no files.
func List(ctx context.Context, dir string) ([]Background, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	names, err := traits.ListFiles(dir)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeConfig, err, "list backgrounds in %s", dir)
	}
	if len(names) == 0 {
		return nil, errors.New(errors.ErrCodeConfig, "no backgrounds found in %s", dir)
	}

	out := make([]Background, len(names))
	for i, name := range names {
		out[i] = Background{Name: name, Path: filepath.Join(dir, name)}
	}
	return out, nil
}

// Selector draws backgrounds. It is not safe for concurrent use; the pipeline
// draws from a single goroutine in index order.
type Selector struct {
	rng *rand.Rand
}

// NewSelector returns a selector seeded with seed, or an unseeded one when
// seed is zero.
func NewSelector(seed uint64) *Selector {
	if seed == 0 {
		var s [32]byte
		_, _ = crand.Read(s[:])
		return NewSelectorFrom(rand.New(rand.NewChaCha8(s)))
	}
	return NewSelectorFrom(rand.New(rand.NewPCG(seed, seed^0xdeadbeef)))
}

// NewSelectorFrom wraps an existing random source.
func NewSelectorFrom(rng *rand.Rand) *Selector {
	return &Selector{rng: rng}
}

// Pick returns one of backgrounds chosen uniformly at random.
func (s *Selector) Pick(backgrounds []Background) (Background, error) {
	if len(backgrounds) == 0 {
		return Background{}, errors.New(errors.ErrCodeInvalidInput, "no backgrounds to pick from")
	}
	return backgrounds[s.rng.IntN(len(backgrounds))], nil
}
