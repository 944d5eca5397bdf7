package artifact

import (
	"context"
	"encoding/json"
	"image/color"
	"os"
	"path/filepath"
	"slices"
	"testing"
	"time"

	"github.com/disintegration/imaging"

	"github.com/matzehuels/traitforge/pkg/combo"
	"github.com/matzehuels/traitforge/pkg/errors"
	"github.com/matzehuels/traitforge/pkg/traits"
)

func variant(layer, name string) traits.Variant {
	return traits.Variant{Layer: layer, Name: name, Path: filepath.Join(layer, name)}
}

// hatEyes is the two-layer example: hat {A, N/A}, eyes {X, Y, N/A}.
func hatEyes() *combo.Enumerator {
	e, err := combo.New([]traits.Layer{
		{Name: "hat", Variants: []traits.Variant{variant("hat", "A"), traits.Absent("hat")}},
		{Name: "eyes", Variants: []traits.Variant{variant("eyes", "X"), variant("eyes", "Y"), traits.Absent("eyes")}},
	})
	if err != nil {
		panic(err)
	}
	return e
}

func TestMetadataFor(t *testing.T) {
	e := hatEyes()

	tests := []struct {
		name  string
		index uint64
		opts  MetadataOptions
		want  Metadata
	}{
		{
			name:  "absent eyes omitted",
			index: 2,
			want:  Metadata{Name: "punk 3", Attributes: []Attribute{{TraitType: "hat", Value: "A"}}},
		},
		{
			name:  "both present",
			index: 1,
			want: Metadata{Name: "punk 2", Attributes: []Attribute{
				{TraitType: "hat", Value: "A"},
				{TraitType: "eyes", Value: "Y"},
			}},
		},
		{
			name:  "all absent",
			index: 5,
			opts:  MetadataOptions{NamePrefix: "token"},
			want:  Metadata{Name: "token 6", Attributes: []Attribute{}},
		},
		{
			name:  "zero-based label",
			index: 0,
			opts:  MetadataOptions{ZeroBased: true},
			want: Metadata{Name: "punk 0", Attributes: []Attribute{
				{TraitType: "hat", Value: "A"},
				{TraitType: "eyes", Value: "X"},
			}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := MetadataFor(tt.index, e.At(tt.index), tt.opts)
			if got.Name != tt.want.Name {
				t.Errorf("Name = %q, want %q", got.Name, tt.want.Name)
			}
			if !slices.Equal(got.Attributes, tt.want.Attributes) {
				t.Errorf("Attributes = %v, want %v", got.Attributes, tt.want.Attributes)
			}
		})
	}
}

func TestMetadataTrimExt(t *testing.T) {
	c := combo.Combination{Variants: []traits.Variant{variant("hat", "cap.png"), traits.Absent("eyes")}}

	got := MetadataFor(0, c, MetadataOptions{TrimExt: true})
	want := []Attribute{{TraitType: "hat", Value: "cap"}}
	if !slices.Equal(got.Attributes, want) {
		t.Errorf("Attributes = %v, want %v", got.Attributes, want)
	}

	got = MetadataFor(0, c, MetadataOptions{})
	if got.Attributes[0].Value != "cap.png" {
		t.Errorf("Value = %q, want cap.png", got.Attributes[0].Value)
	}
}

func TestMetadataJSONEmptyAttributes(t *testing.T) {
	c := combo.Combination{Variants: []traits.Variant{traits.Absent("hat")}}
	data, err := json.Marshal(MetadataFor(0, c, MetadataOptions{}))
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != `{"name":"punk 1","attributes":[]}` {
		t.Errorf("json = %s", data)
	}
}

func TestPrepareOutput(t *testing.T) {
	root := filepath.Join(t.TempDir(), "out")
	if err := PrepareOutput(root, false); err != nil {
		t.Fatalf("PrepareOutput: %v", err)
	}
	for _, dir := range []string{MetadataDir, ImagesDir} {
		if info, err := os.Stat(filepath.Join(root, dir)); err != nil || !info.IsDir() {
			t.Errorf("%s not created: %v", dir, err)
		}
	}

	stale := filepath.Join(root, ImagesDir, "99.png")
	if err := os.WriteFile(stale, []byte("old"), 0644); err != nil {
		t.Fatal(err)
	}

	if err := PrepareOutput(root, false); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(stale); err != nil {
		t.Errorf("stale file removed without clean: %v", err)
	}

	if err := PrepareOutput(root, true); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(stale); !os.IsNotExist(err) {
		t.Errorf("stale file survived clean: %v", err)
	}
}

func TestPrepareOutputErrors(t *testing.T) {
	if err := PrepareOutput("", false); !errors.Is(err, errors.ErrCodeInvalidInput) {
		t.Errorf("empty root: got %v", err)
	}

	file := filepath.Join(t.TempDir(), "file")
	if err := os.WriteFile(file, nil, 0644); err != nil {
		t.Fatal(err)
	}
	if err := PrepareOutput(file, false); !errors.Is(err, errors.ErrCodeIO) {
		t.Errorf("root is a file: got %v, want IO_ERROR", err)
	}
}

func TestDirWriter(t *testing.T) {
	root := t.TempDir()
	if err := PrepareOutput(root, false); err != nil {
		t.Fatal(err)
	}
	w := NewDirWriter(root, MetadataOptions{})
	img := imaging.New(3, 2, color.NRGBA{R: 200, A: 255})

	e := hatEyes()
	if err := w.Write(context.Background(), 2, e.At(2), img); err != nil {
		t.Fatalf("Write: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(root, "metadata", "3.json"))
	if err != nil {
		t.Fatal(err)
	}
	var md Metadata
	if err := json.Unmarshal(data, &md); err != nil {
		t.Fatal(err)
	}
	if md.Name != "punk 3" || len(md.Attributes) != 1 || md.Attributes[0].Value != "A" {
		t.Errorf("metadata = %+v", md)
	}

	got, err := imaging.Open(filepath.Join(root, "images", "3.png"))
	if err != nil {
		t.Fatal(err)
	}
	if got.Bounds().Dx() != 3 || got.Bounds().Dy() != 2 {
		t.Errorf("image bounds = %v", got.Bounds())
	}
	r, _, _, a := got.At(1, 1).RGBA()
	if r>>8 != 200 || a>>8 != 255 {
		t.Errorf("pixel = %v", got.At(1, 1))
	}
}

func TestDirWriterErrors(t *testing.T) {
	img := imaging.New(1, 1, color.NRGBA{})
	c := hatEyes().At(0)

	// Output tree was never prepared.
	w := NewDirWriter(filepath.Join(t.TempDir(), "missing"), MetadataOptions{})
	if err := w.Write(context.Background(), 0, c, img); !errors.Is(err, errors.ErrCodeIO) {
		t.Errorf("missing dirs: got %v, want IO_ERROR", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	root := t.TempDir()
	if err := PrepareOutput(root, false); err != nil {
		t.Fatal(err)
	}
	w = NewDirWriter(root, MetadataOptions{})
	if err := w.Write(ctx, 0, c, img); err != context.Canceled {
		t.Errorf("cancelled: got %v", err)
	}
	if _, err := os.Stat(w.MetadataPath(0)); !os.IsNotExist(err) {
		t.Error("cancelled write produced a file")
	}
}

func TestManifestRoundTrip(t *testing.T) {
	root := t.TempDir()
	m := Manifest{
		RunID:       "run-1",
		CreatedAt:   time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
		Seed:        42,
		Width:       300,
		Height:      300,
		Layers:      []ManifestLayer{{Name: "hat", Variants: 2}, {Name: "eyes", Variants: 3}},
		Backgrounds: 2,
		Total:       6,
		Requested:   10,
		Produced:    6,
		Overflow:    "cap",
		Capped:      true,
	}
	if err := WriteManifest(root, m); err != nil {
		t.Fatal(err)
	}
	got, err := ReadManifest(root)
	if err != nil {
		t.Fatal(err)
	}
	if got.RunID != m.RunID || !got.CreatedAt.Equal(m.CreatedAt) || got.Produced != 6 || !got.Capped {
		t.Errorf("manifest = %+v", got)
	}
	if !slices.Equal(got.Layers, m.Layers) {
		t.Errorf("layers = %v", got.Layers)
	}

	if _, err := ReadManifest(t.TempDir()); !errors.Is(err, errors.ErrCodeIO) {
		t.Errorf("missing manifest: got %v", err)
	}
}
