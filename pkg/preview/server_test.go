package preview

import (
	"context"
	"encoding/json"
	"image"
	"image/color"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/disintegration/imaging"

	"github.com/matzehuels/traitforge/pkg/background"
	"github.com/matzehuels/traitforge/pkg/cache"
	"github.com/matzehuels/traitforge/pkg/combo"
	"github.com/matzehuels/traitforge/pkg/errors"
	"github.com/matzehuels/traitforge/pkg/pipeline"
	"github.com/matzehuels/traitforge/pkg/traits"
)

var (
	red  = color.NRGBA{R: 255, A: 255}
	blue = color.NRGBA{B: 255, A: 255}
)

type memLoader struct {
	mu     sync.Mutex
	images map[string]image.Image
	loads  int
}

func (m *memLoader) Load(_ context.Context, path string) (image.Image, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.loads++
	img, ok := m.images[path]
	if !ok {
		return nil, errors.New(errors.ErrCodeIO, "no image %s", path)
	}
	return img, nil
}

func testPlan(t *testing.T) *pipeline.Plan {
	t.Helper()
	layers := []traits.Layer{
		{Name: "hat", Variants: []traits.Variant{{Layer: "hat", Name: "A.png", Path: "hat/A.png"}, traits.Absent("hat")}},
		{Name: "eyes", Variants: []traits.Variant{{Layer: "eyes", Name: "X.png", Path: "eyes/X.png"}, traits.Absent("eyes")}},
	}
	enum, err := combo.New(layers)
	if err != nil {
		t.Fatal(err)
	}
	return &pipeline.Plan{
		Layers:      layers,
		Backgrounds: []background.Background{{Name: "blue.png", Path: "bg/blue.png"}},
		Enumerator:  enum,
		Count:       enum.Total(),
	}
}

func newTestServer(t *testing.T, opts Options) (*httptest.Server, *memLoader) {
	t.Helper()
	loader := &memLoader{images: map[string]image.Image{
		"bg/blue.png": imaging.New(2, 2, blue),
		"hat/A.png":   imaging.New(2, 2, red),
		"eyes/X.png":  imaging.New(2, 2, color.NRGBA{}),
	}}
	opts.Width, opts.Height = 2, 2
	s, err := New(testPlan(t), loader, opts)
	if err != nil {
		t.Fatal(err)
	}
	ts := httptest.NewServer(s.Handler())
	t.Cleanup(ts.Close)
	return ts, loader
}

func get(t *testing.T, url string) *http.Response {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func TestList(t *testing.T) {
	ts, _ := newTestServer(t, Options{})

	resp := get(t, ts.URL+"/combinations?offset=1&limit=2")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	var body listResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatal(err)
	}
	if body.Total != 4 || body.Count != 4 || len(body.Layers) != 2 {
		t.Errorf("body = %+v", body)
	}
	if len(body.Items) != 2 || body.Items[0].Number != 2 || body.Items[0].Name != "punk 2" {
		t.Errorf("items = %+v", body.Items)
	}
	if len(body.Items[0].Attributes) != 1 || body.Items[0].Attributes[0].TraitType != "hat" {
		t.Errorf("item 2 attributes = %+v", body.Items[0].Attributes)
	}
}

func TestCombinationJSON(t *testing.T) {
	ts, _ := newTestServer(t, Options{})

	tests := []struct {
		path   string
		status int
	}{
		{"/combinations/1.json", http.StatusOK},
		{"/combinations/4.json", http.StatusOK},
		{"/combinations/5.json", http.StatusNotFound},
		{"/combinations/0.json", http.StatusBadRequest},
		{"/combinations/abc.json", http.StatusBadRequest},
		{"/combinations/1.gif", http.StatusNotFound},
		{"/combinations?limit=x", http.StatusBadRequest},
	}
	for _, tt := range tests {
		if resp := get(t, ts.URL+tt.path); resp.StatusCode != tt.status {
			t.Errorf("GET %s = %d, want %d", tt.path, resp.StatusCode, tt.status)
		}
	}
}

func TestCombinationPNG(t *testing.T) {
	ts, _ := newTestServer(t, Options{})

	resp := get(t, ts.URL+"/combinations/2.png")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "image/png" {
		t.Errorf("Content-Type = %q", ct)
	}
	img, err := imaging.Decode(resp.Body)
	if err != nil {
		t.Fatal(err)
	}
	if got := color.NRGBAModel.Convert(img.At(0, 0)); got != red {
		t.Errorf("pixel = %v, want red hat over blue", got)
	}

	if resp := get(t, ts.URL+"/combinations/4.png"); resp.StatusCode != http.StatusOK {
		t.Errorf("all-absent status = %d", resp.StatusCode)
	}
	if resp := get(t, ts.URL+"/combinations/1.png?background=missing.png"); resp.StatusCode != http.StatusNotFound {
		t.Errorf("unknown background status = %d", resp.StatusCode)
	}
}

func TestCombinationPNGCached(t *testing.T) {
	ts, loader := newTestServer(t, Options{Cache: cache.NewMemoryCache(time.Minute)})

	for range 3 {
		if resp := get(t, ts.URL+"/combinations/1.png"); resp.StatusCode != http.StatusOK {
			t.Fatalf("status = %d", resp.StatusCode)
		}
	}
	// background, hat and eyes are loaded once for the first render only.
	loader.mu.Lock()
	defer loader.mu.Unlock()
	if loader.loads != 3 {
		t.Errorf("loads = %d, want 3", loader.loads)
	}
}

func TestCombinationPNGCacheSeparatesLabels(t *testing.T) {
	green := color.NRGBA{G: 255, A: 255}
	yellow := color.NRGBA{R: 255, G: 255, A: 255}
	v := func(layer, name string) traits.Variant {
		return traits.Variant{Layer: layer, Name: name, Path: layer + "/" + name}
	}
	// (A, "B,X") and ("A,B", X) share the label "(A,B,X)".
	layers := []traits.Layer{
		{Name: "one", Variants: []traits.Variant{v("one", "A"), v("one", "A,B"), traits.Absent("one")}},
		{Name: "two", Variants: []traits.Variant{v("two", "B,X"), v("two", "X"), traits.Absent("two")}},
	}
	enum, err := combo.New(layers)
	if err != nil {
		t.Fatal(err)
	}
	if enum.At(0).String() != enum.At(4).String() {
		t.Fatalf("labels differ: %s vs %s", enum.At(0), enum.At(4))
	}
	plan := &pipeline.Plan{
		Layers:      layers,
		Backgrounds: []background.Background{{Name: "blue.png", Path: "bg/blue.png"}},
		Enumerator:  enum,
		Count:       enum.Total(),
	}
	loader := &memLoader{images: map[string]image.Image{
		"bg/blue.png": imaging.New(2, 2, blue),
		"one/A":       imaging.New(2, 2, red),
		"one/A,B":     imaging.New(2, 2, red),
		"two/B,X":     imaging.New(2, 2, green),
		"two/X":       imaging.New(2, 2, yellow),
	}}
	s, err := New(plan, loader, Options{Width: 2, Height: 2, Cache: cache.NewMemoryCache(time.Minute)})
	if err != nil {
		t.Fatal(err)
	}
	ts := httptest.NewServer(s.Handler())
	t.Cleanup(ts.Close)

	for _, tt := range []struct {
		path string
		want color.NRGBA
	}{
		{"/combinations/1.png", green},
		{"/combinations/5.png", yellow},
	} {
		resp := get(t, ts.URL+tt.path)
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("GET %s = %d", tt.path, resp.StatusCode)
		}
		img, err := imaging.Decode(resp.Body)
		if err != nil {
			t.Fatal(err)
		}
		if got := color.NRGBAModel.Convert(img.At(0, 0)); got != tt.want {
			t.Errorf("GET %s pixel = %v, want %v", tt.path, got, tt.want)
		}
	}
}

func TestNewRequiresPlan(t *testing.T) {
	if _, err := New(nil, nil, Options{}); !errors.Is(err, errors.ErrCodeInvalidInput) {
		t.Errorf("New(nil) = %v", err)
	}
}
