package combo

import (
	"context"
	"fmt"
	"slices"
	"testing"

	"github.com/matzehuels/traitforge/pkg/errors"
	"github.com/matzehuels/traitforge/pkg/traits"
)

func testLayers(t *testing.T, order []string, variants map[string][]string) []traits.Layer {
	t.Helper()
	layers, err := traits.ListLayers(context.Background(), traits.StaticSource{Layers: variants}, order)
	if err != nil {
		t.Fatalf("ListLayers: %v", err)
	}
	return layers
}

func hatEyes(t *testing.T) []traits.Layer {
	return testLayers(t, []string{"hat", "eyes"}, map[string][]string{
		"hat":  {"A", "B"},
		"eyes": {"X"},
	})
}

func names(c Combination) []string {
	out := make([]string, len(c.Variants))
	for i, v := range c.Variants {
		out[i] = v.Name
	}
	return out
}

func TestEnumerateScenario(t *testing.T) {
	combos, err := Enumerate(hatEyes(t), 6, OverflowError)
	if err != nil {
		t.Fatalf("Enumerate: %v", err)
	}

	want := [][]string{
		{"A", "X"},
		{"A", "N/A"},
		{"B", "X"},
		{"B", "N/A"},
		{"N/A", "X"},
		{"N/A", "N/A"},
	}
	if len(combos) != len(want) {
		t.Fatalf("len = %d, want %d", len(combos), len(want))
	}
	for i, c := range combos {
		if c.Index != uint64(i) {
			t.Errorf("combos[%d].Index = %d", i, c.Index)
		}
		if got := names(c); !slices.Equal(got, want[i]) {
			t.Errorf("combos[%d] = %v, want %v", i, got, want[i])
		}
	}
}

func TestRadixTable(t *testing.T) {
	e, err := New(hatEyes(t))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if e.Total() != 6 {
		t.Errorf("Total = %d, want 6", e.Total())
	}
	if got := e.Counts(); !slices.Equal(got, []uint64{3, 2}) {
		t.Errorf("Counts = %v, want [3 2]", got)
	}
	if got := e.Divisors(); !slices.Equal(got, []uint64{2, 1}) {
		t.Errorf("Divisors = %v, want [2 1]", got)
	}
}

func TestDeterminism(t *testing.T) {
	layers := testLayers(t, []string{"a", "b", "c"}, map[string][]string{
		"a": {"1", "2", "3"},
		"b": {"x"},
		"c": {"p", "q"},
	})

	first, err := Enumerate(layers, 0, OverflowError)
	if err != nil {
		t.Fatal(err)
	}
	second, err := Enumerate(layers, 0, OverflowError)
	if err != nil {
		t.Fatal(err)
	}
	if len(first) != len(second) {
		t.Fatalf("lengths differ: %d vs %d", len(first), len(second))
	}
	for i := range first {
		if !slices.Equal(names(first[i]), names(second[i])) {
			t.Errorf("index %d differs: %v vs %v", i, first[i], second[i])
		}
	}
}

func TestBijectionAndDigitBounds(t *testing.T) {
	layers := testLayers(t, []string{"a", "b", "c", "d"}, map[string][]string{
		"a": {"1", "2", "3"},
		"b": {},
		"c": {"p", "q", "r", "s"},
		"d": {"x", "y"},
	})
	e, err := New(layers)
	if err != nil {
		t.Fatal(err)
	}
	if e.Total() != 4*1*5*3 {
		t.Fatalf("Total = %d, want 60", e.Total())
	}

	counts := e.Counts()
	seen := make(map[string]uint64)
	for i := uint64(0); i < e.Total(); i++ {
		for l, d := range e.Digits(i) {
			if d < 0 || uint64(d) >= counts[l] {
				t.Fatalf("index %d: digit %d = %d out of [0,%d)", i, l, d, counts[l])
			}
		}

		c := e.At(i)
		key := c.String()
		if prev, dup := seen[key]; dup {
			t.Fatalf("indices %d and %d both map to %s", prev, i, key)
		}
		seen[key] = i

		back, err := e.IndexOf(c)
		if err != nil {
			t.Fatalf("IndexOf(%s): %v", key, err)
		}
		if back != i {
			t.Errorf("IndexOf(At(%d)) = %d", i, back)
		}
	}
}

func TestWrapPeriod(t *testing.T) {
	layers := hatEyes(t)
	e, err := New(layers)
	if err != nil {
		t.Fatal(err)
	}

	combos, err := Enumerate(layers, 15, OverflowWrap)
	if err != nil {
		t.Fatalf("Enumerate: %v", err)
	}
	if len(combos) != 15 {
		t.Fatalf("len = %d, want 15", len(combos))
	}
	for i, c := range combos {
		base := e.At(uint64(i) % e.Total())
		if !slices.Equal(names(c), names(base)) {
			t.Errorf("combination(%d) = %v, want combination(%d) = %v", i, c, uint64(i)%e.Total(), base)
		}
	}
}

func TestResolve(t *testing.T) {
	e, err := New(hatEyes(t))
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name       string
		count      uint64
		policy     OverflowPolicy
		wantN      uint64
		wantCapped bool
		wantCode   errors.Code
	}{
		{"zero means total", 0, OverflowError, 6, false, ""},
		{"prefix", 4, OverflowError, 4, false, ""},
		{"exact", 6, OverflowError, 6, false, ""},
		{"overflow error", 7, OverflowError, 0, false, errors.ErrCodeEnumerationOverflow},
		{"overflow default", 7, "", 0, false, errors.ErrCodeEnumerationOverflow},
		{"overflow cap", 100, OverflowCap, 6, true, ""},
		{"overflow wrap", 100, OverflowWrap, 100, false, ""},
		{"bad policy", 100, "shuffle", 0, false, errors.ErrCodeInvalidInput},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n, capped, err := e.Resolve(tt.count, tt.policy)
			if tt.wantCode != "" {
				if !errors.Is(err, tt.wantCode) {
					t.Fatalf("err = %v, want code %s", err, tt.wantCode)
				}
				return
			}
			if err != nil {
				t.Fatalf("Resolve: %v", err)
			}
			if n != tt.wantN || capped != tt.wantCapped {
				t.Errorf("Resolve = (%d, %v), want (%d, %v)", n, capped, tt.wantN, tt.wantCapped)
			}
		})
	}
}

func TestParseOverflowPolicy(t *testing.T) {
	tests := []struct {
		in      string
		want    OverflowPolicy
		wantErr bool
	}{
		{"", OverflowError, false},
		{"error", OverflowError, false},
		{"cap", OverflowCap, false},
		{"wrap", OverflowWrap, false},
		{"Cap", "", true},
		{"random", "", true},
	}
	for _, tt := range tests {
		got, err := ParseOverflowPolicy(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseOverflowPolicy(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
		}
		if got != tt.want {
			t.Errorf("ParseOverflowPolicy(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestNewErrors(t *testing.T) {
	if _, err := New(nil); !errors.Is(err, errors.ErrCodeInvalidInput) {
		t.Errorf("New(nil) err = %v, want INVALID_INPUT", err)
	}

	if _, err := New([]traits.Layer{{Name: "empty"}}); !errors.Is(err, errors.ErrCodeInvalidInput) {
		t.Errorf("New(empty layer) err = %v, want INVALID_INPUT", err)
	}

	// 65 layers of {v, absent} give 2^65 combinations.
	var many []traits.Layer
	for i := range 65 {
		name := fmt.Sprintf("l%d", i)
		many = append(many, traits.Layer{
			Name:     name,
			Variants: []traits.Variant{{Layer: name, Name: "v", Path: "v"}, traits.Absent(name)},
		})
	}
	if _, err := New(many); !errors.Is(err, errors.ErrCodeInvalidInput) {
		t.Errorf("New(2^65) err = %v, want INVALID_INPUT", err)
	}

	// 63 of them still fit.
	e, err := New(many[:63])
	if err != nil {
		t.Fatalf("New(2^63): %v", err)
	}
	if e.Total() != 1<<63 {
		t.Errorf("Total = %d, want 2^63", e.Total())
	}
}

func TestAllStopsEarly(t *testing.T) {
	e, err := New(hatEyes(t))
	if err != nil {
		t.Fatal(err)
	}
	var got []uint64
	for i := range e.All(6) {
		got = append(got, i)
		if i == 2 {
			break
		}
	}
	if !slices.Equal(got, []uint64{0, 1, 2}) {
		t.Errorf("got %v, want [0 1 2]", got)
	}
}

func TestPresentSkipsAbsent(t *testing.T) {
	e, err := New(hatEyes(t))
	if err != nil {
		t.Fatal(err)
	}
	present := e.At(1).Present()
	if len(present) != 1 || present[0].Name != "A" || present[0].Layer != "hat" {
		t.Errorf("Present() = %+v, want [hat/A]", present)
	}
	if len(e.At(5).Present()) != 0 {
		t.Error("all-absent combination should have no present variants")
	}
}
