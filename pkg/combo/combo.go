package combo

import (
	"fmt"
	"iter"
	"math/bits"

	"github.com/matzehuels/traitforge/pkg/errors"
	"github.com/matzehuels/traitforge/pkg/traits"
)

// Combination selects exactly one variant per layer, in layer priority order.
type Combination struct {
	Index    uint64
	Variants []traits.Variant
}

// Present returns the selected variants that are not absent, in layer order.
func (c Combination) Present() []traits.Variant {
	out := make([]traits.Variant, 0, len(c.Variants))
	for _, v := range c.Variants {
		if !v.IsAbsent() {
			out = append(out, v)
		}
	}
	return out
}

// String renders the combination as "(A,X)".
func (c Combination) String() string {
	s := "("
	for i, v := range c.Variants {
		if i > 0 {
			s += ","
		}
		s += v.Name
	}
	return s + ")"
}

// Enumerator decodes indices into combinations for a fixed set of layers.
// It is immutable after construction and safe for concurrent use.
type Enumerator struct {
	layers   []traits.Layer
	counts   []uint64
	divisors []uint64
	total    uint64
}

// New precomputes the radix table for layers. It fails with INVALID_INPUT if
// there are no layers, a layer has no variants, or the number of combinations
// does not fit in a uint64.
func New(layers []traits.Layer) (*Enumerator, error) {
	if len(layers) == 0 {
		return nil, errors.New(errors.ErrCodeInvalidInput, "at least one layer is required")
	}

	n := len(layers)
	e := &Enumerator{
		layers:   layers,
		counts:   make([]uint64, n),
		divisors: make([]uint64, n),
	}
	for i, l := range layers {
		if l.Len() == 0 {
			return nil, errors.New(errors.ErrCodeInvalidInput, "layer %q has no variants", l.Name)
		}
		e.counts[i] = uint64(l.Len())
	}

	e.divisors[n-1] = 1
	for i := n - 2; i >= 0; i-- {
		hi, lo := bits.Mul64(e.divisors[i+1], e.counts[i+1])
		if hi != 0 {
			return nil, errors.New(errors.ErrCodeInvalidInput, "too many combinations to enumerate")
		}
		e.divisors[i] = lo
	}

	hi, total := bits.Mul64(e.divisors[0], e.counts[0])
	if hi != 0 {
		return nil, errors.New(errors.ErrCodeInvalidInput, "too many combinations to enumerate")
	}
	e.total = total
	return e, nil
}

// Total returns the number of distinct combinations.
func (e *Enumerator) Total() uint64 { return e.total }

// Layers returns the layers in priority order.
func (e *Enumerator) Layers() []traits.Layer { return e.layers }

// Counts returns the variant count of each layer.
func (e *Enumerator) Counts() []uint64 { return append([]uint64(nil), e.counts...) }

// Divisors returns the place value of each layer.
func (e *Enumerator) Divisors() []uint64 { return append([]uint64(nil), e.divisors...) }

// Digits returns the selected variant position of each layer for index.
// Every digit i lies in [0, Counts()[i]).
func (e *Enumerator) Digits(index uint64) []int {
	digits := make([]int, len(e.counts))
	for i := range e.counts {
		digits[i] = int((index / e.divisors[i]) % e.counts[i])
	}
	return digits
}

// At returns the combination for index. Indices at or beyond Total wrap, so
// At(i) selects the same variants as At(i mod Total).
func (e *Enumerator) At(index uint64) Combination {
	variants := make([]traits.Variant, len(e.layers))
	for i, d := range e.Digits(index) {
		variants[i] = e.layers[i].Variants[d]
	}
	return Combination{Index: index, Variants: variants}
}

// IndexOf re-encodes a combination from its chosen variant positions. The
// result is in [0, Total).
func (e *Enumerator) IndexOf(c Combination) (uint64, error) {
	if len(c.Variants) != len(e.layers) {
		return 0, fmt.Errorf("combination has %d variants, want %d", len(c.Variants), len(e.layers))
	}

	var index uint64
	for i, v := range c.Variants {
		pos := -1
		for j, cand := range e.layers[i].Variants {
			if cand.Name == v.Name {
				pos = j
				break
			}
		}
		if pos < 0 {
			return 0, fmt.Errorf("variant %q not found in layer %q", v.Name, e.layers[i].Name)
		}
		index += uint64(pos) * e.divisors[i]
	}
	return index, nil
}

// All yields the combinations for indices 0..n-1 in order.
func (e *Enumerator) All(n uint64) iter.Seq2[uint64, Combination] {
	return func(yield func(uint64, Combination) bool) {
		for i := uint64(0); i < n; i++ {
			if !yield(i, e.At(i)) {
				return
			}
		}
	}
}

// Enumerate returns the combination sequence for layers and a requested count
// resolved under policy. A zero count means every combination.
func Enumerate(layers []traits.Layer, count uint64, policy OverflowPolicy) ([]Combination, error) {
	e, err := New(layers)
	if err != nil {
		return nil, err
	}
	n, _, err := e.Resolve(count, policy)
	if err != nil {
		return nil, err
	}

	out := make([]Combination, 0, n)
	for _, c := range e.All(n) {
		out = append(out, c)
	}
	return out, nil
}
