package compose

import (
	"context"
	"image"
	"sync"

	xdraw "golang.org/x/image/draw"

	"github.com/matzehuels/traitforge/pkg/background"
	"github.com/matzehuels/traitforge/pkg/combo"
	"github.com/matzehuels/traitforge/pkg/errors"
)

// Surface is a fixed-size canvas reused across paints.
type Surface struct {
	mu  sync.Mutex
	img *image.NRGBA
}

// NewSurface allocates a width x height surface.
func NewSurface(width, height int) (*Surface, error) {
	if err := errors.ValidateDimensions(width, height); err != nil {
		return nil, err
	}
	return &Surface{img: image.NewNRGBA(image.Rect(0, 0, width, height))}, nil
}

// Bounds returns the surface rectangle.
func (s *Surface) Bounds() image.Rectangle { return s.img.Bounds() }

// Paint draws bg stretched over the whole surface, then each non-absent
// variant of c in layer order, and returns the surface image. The returned
// image is overwritten by the next Paint; encode it before painting again.
func (s *Surface) Paint(ctx context.Context, loader Loader, bg background.Background, c combo.Combination) (image.Image, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	bgImg, err := loader.Load(ctx, bg.Path)
	if err != nil {
		return nil, err
	}
	stretch(s.img, bgImg, xdraw.Src)

	for _, v := range c.Variants {
		if v.IsAbsent() {
			continue
		}
		layerImg, err := loader.Load(ctx, v.Path)
		if err != nil {
			return nil, err
		}
		stretch(s.img, layerImg, xdraw.Over)
	}
	return s.img, nil
}

// Fit returns src stretched to width x height.
func Fit(src image.Image, width, height int) *image.NRGBA {
	dst := image.NewNRGBA(image.Rect(0, 0, width, height))
	stretch(dst, src, xdraw.Src)
	return dst
}

// stretch draws src over the full extent of dst.
func stretch(dst *image.NRGBA, src image.Image, op xdraw.Op) {
	sb := src.Bounds()
	if sb.Size() == dst.Bounds().Size() {
		xdraw.Draw(dst, dst.Bounds(), src, sb.Min, op)
		return
	}
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), src, sb, op, nil)
}

// Pool hands out surfaces of one size to concurrent renderers.
type Pool struct {
	width, height int
	pool          sync.Pool
}

// NewPool creates a pool of width x height surfaces.
func NewPool(width, height int) (*Pool, error) {
	if err := errors.ValidateDimensions(width, height); err != nil {
		return nil, err
	}
	p := &Pool{width: width, height: height}
	p.pool.New = func() any {
		return &Surface{img: image.NewNRGBA(image.Rect(0, 0, width, height))}
	}
	return p, nil
}

// Get returns a surface owned by the caller until Put.
func (p *Pool) Get() *Surface { return p.pool.Get().(*Surface) }

// Put returns a surface to the pool.
func (p *Pool) Put(s *Surface) { p.pool.Put(s) }
