// Package pipeline drives a generation run for traitforge.
//
// A run lists the trait layers and backgrounds, enumerates the requested
// number of combinations, and for each index draws a background, paints the
// combination on a surface and writes its metadata and image. The same logic
// backs the generate, plan and serve commands.
//
// # Architecture
//
// A run moves through two stages:
//
//  1. Prepare: list layers and backgrounds, build the enumerator and resolve
//     the requested count against the overflow policy
//  2. Render: for index 0..n-1, pick a background, paint and write
//
// Prepare touches no output; an overflow or a missing layer directory fails
// before anything is written. Render aborts on the first error and leaves
// already written artifacts in place.
//
// # Usage
//
//	runner := pipeline.NewRunner(nil, logger)
//	result, err := runner.Execute(ctx, pipeline.Options{
//	    BackgroundDir: "backgrounds",
//	    TraitsDir:     "traits",
//	    Layers:        []string{"hat", "eyes"},
//	    Count:         6,
//	})
//
// With Workers > 1 several artifacts render at once, each on its own surface.
// Backgrounds are still drawn in index order, so a seeded run produces the
// same artifacts regardless of the worker count.
package pipeline

import (
	"io"
	"iter"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/traitforge/pkg/artifact"
	"github.com/matzehuels/traitforge/pkg/background"
	"github.com/matzehuels/traitforge/pkg/combo"
	"github.com/matzehuels/traitforge/pkg/errors"
	"github.com/matzehuels/traitforge/pkg/traits"
)

// =============================================================================
// Default Values
// =============================================================================

const (
	// DefaultWidth is the default surface width in pixels.
	DefaultWidth = 300

	// DefaultHeight is the default surface height in pixels.
	DefaultHeight = 300

	// DefaultOutput is the default output root.
	DefaultOutput = "outputs"

	// DefaultWorkers renders strictly sequentially.
	DefaultWorkers = 1
)

// =============================================================================
// Options - Run Configuration
// =============================================================================

// Options contains all configuration for a generation run.
type Options struct {
	// Inputs
	BackgroundDir string   `json:"background"`
	TraitsDir     string   `json:"traits"`
	Layers        []string `json:"layers"` // priority order, first drawn first
	Count         uint64   `json:"count,omitempty"`

	// Rendering
	Width  int    `json:"width,omitempty"`
	Height int    `json:"height,omitempty"`
	Seed   uint64 `json:"seed,omitempty"` // 0 draws backgrounds unseeded

	// Enumeration
	Overflow combo.OverflowPolicy `json:"overflow,omitempty"`

	// Output
	Output     string `json:"output,omitempty"`
	NamePrefix string `json:"name_prefix,omitempty"`
	TrimExt    bool   `json:"trim_ext,omitempty"`
	ZeroBased  bool   `json:"zero_based_names,omitempty"`
	Clean      bool   `json:"clean,omitempty"`

	Workers int `json:"workers,omitempty"`

	// Runtime options (not serialized)
	Logger *log.Logger   `json:"-"`
	Source traits.Source `json:"-"` // defaults to a DirSource over TraitsDir

	// validated tracks whether ValidateAndSetDefaults has been called.
	validated bool `json:"-"`
}

// Plan is the prepared, not yet rendered, form of a run.
type Plan struct {
	Layers      []traits.Layer
	Backgrounds []background.Background
	Enumerator  *combo.Enumerator

	Requested uint64               // count as asked for, 0 meaning all
	Count     uint64               // artifacts the run will produce
	Capped    bool                 // Count was lowered to Total
	Policy    combo.OverflowPolicy // policy used to resolve Count
}

// Total returns the number of distinct combinations.
func (p *Plan) Total() uint64 { return p.Enumerator.Total() }

// Combinations yields the combinations the run produces, in index order.
func (p *Plan) Combinations() iter.Seq2[uint64, combo.Combination] {
	return p.Enumerator.All(p.Count)
}

// Result contains the outcome of a run.
type Result struct {
	RunID    string
	Output   string
	Total    uint64
	Produced uint64
	Capped   bool
	Stats    Stats
}

// Stats contains run timing.
type Stats struct {
	PrepareTime time.Duration
	RenderTime  time.Duration
}

// =============================================================================
// Options Methods
// =============================================================================

// ValidateAndSetDefaults checks required fields and applies defaults.
// This method is idempotent - calling it multiple times has the same effect as calling it once.
func (o *Options) ValidateAndSetDefaults() error {
	if o.validated {
		return nil
	}
	if o.BackgroundDir == "" {
		return errors.New(errors.ErrCodeConfig, "background directory is required")
	}
	if o.TraitsDir == "" && o.Source == nil {
		return errors.New(errors.ErrCodeConfig, "traits directory is required")
	}
	if len(o.Layers) == 0 {
		return errors.New(errors.ErrCodeConfig, "no layers given: the layer priority order must be specified")
	}

	if o.Width == 0 {
		o.Width = DefaultWidth
	}
	if o.Height == 0 {
		o.Height = DefaultHeight
	}
	if err := errors.ValidateDimensions(o.Width, o.Height); err != nil {
		return err
	}

	policy, err := combo.ParseOverflowPolicy(string(o.Overflow))
	if err != nil {
		return err
	}
	o.Overflow = policy

	if o.Output == "" {
		o.Output = DefaultOutput
	}
	if o.NamePrefix == "" {
		o.NamePrefix = artifact.DefaultNamePrefix
	}
	if o.Workers < 0 {
		return errors.New(errors.ErrCodeInvalidInput, "workers must not be negative, got %d", o.Workers)
	}
	if o.Workers == 0 {
		o.Workers = DefaultWorkers
	}
	if o.Source == nil {
		o.Source = traits.DirSource{Root: o.TraitsDir}
	}
	if o.Logger == nil {
		o.Logger = log.NewWithOptions(io.Discard, log.Options{})
	}

	o.validated = true
	return nil
}

// MetadataOptions returns the labelling options for written metadata.
func (o *Options) MetadataOptions() artifact.MetadataOptions {
	return artifact.MetadataOptions{NamePrefix: o.NamePrefix, TrimExt: o.TrimExt, ZeroBased: o.ZeroBased}
}
