// Package traits models trait layers and their variants and lists them from a
// traits root directory.
//
// A [Layer] is a named axis of visual variation (for example "hat"). Its
// variants are the files found in the layer's subdirectory, followed by the
// reserved [Absent] variant, which means "this layer contributes nothing".
//
// The order of layers is always supplied by the caller. [ListLayers] returns
// layers in exactly the order of the requested names, and that order is the
// draw order and the enumeration significance used by the rest of traitforge.
// Directory listing order never decides it.
//
//	src := traits.DirSource{Root: "traits"}
//	layers, err := traits.ListLayers(ctx, src, []string{"hat", "eyes"})
package traits
