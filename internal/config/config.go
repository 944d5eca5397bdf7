// Package config loads generate settings from a TOML run file.
//
//	background = "assets/backgrounds"
//	traits     = "assets/traits"
//	layers     = ["skin", "hat", "eyes"]
//	count      = 100
//	seed       = 7
//	overflow   = "cap"
//
// Relative paths are resolved against the directory holding the file, so a
// run file can be committed next to its assets and used from anywhere.
package config

import (
	"path/filepath"
	"slices"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/matzehuels/traitforge/pkg/errors"
)

// File mirrors the flags of the generate command. Zero values mean "not set".
type File struct {
	Background string   `toml:"background"`
	Traits     string   `toml:"traits"`
	Layers     []string `toml:"layers"`
	Count      uint64   `toml:"count"`
	Width      int      `toml:"width"`
	Height     int      `toml:"height"`
	Seed       uint64   `toml:"seed"`
	Output     string   `toml:"output"`
	Overflow   string   `toml:"overflow"`
	NamePrefix string   `toml:"name_prefix"`
	TrimExt    bool     `toml:"trim_ext"`
	ZeroBased  bool     `toml:"zero_based_names"`
	Clean      bool     `toml:"clean"`
	Workers    int      `toml:"workers"`
	Cache      bool     `toml:"cache"`
	CacheURL   string   `toml:"cache_url"`
}

// Load decodes the run file at path. Unknown keys are rejected so that a
// misspelled setting does not silently fall back to its default.
func Load(path string) (File, error) {
	var f File
	md, err := toml.DecodeFile(path, &f)
	if err != nil {
		return File{}, errors.Wrap(errors.ErrCodeConfig, err, "read config %s", path)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		slices.Sort(keys)
		return File{}, errors.New(errors.ErrCodeConfig, "config %s: unknown keys: %s", path, strings.Join(keys, ", "))
	}

	base := filepath.Dir(path)
	f.Background = resolve(base, f.Background)
	f.Traits = resolve(base, f.Traits)
	f.Output = resolve(base, f.Output)
	return f, nil
}

func resolve(base, p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(base, p)
}
