// Package compose paints combinations onto a fixed-size drawing surface.
//
// A [Surface] is a single mutable RGBA canvas owned by one renderer. Each
// [Surface.Paint] stretches the background over the whole canvas, replacing
// all previous pixels, then draws every non-absent variant on top in layer
// priority order. Every image is loaded to completion before it is drawn, and
// a mutex keeps any other paint off the surface in the meantime.
//
// The surface is reused across artifacts in a sequential run. Renderers that
// work concurrently take one surface each from a [Pool].
//
//	s, _ := compose.NewSurface(300, 300)
//	img, err := s.Paint(ctx, compose.FileLoader{}, bg, c)
package compose
