package artifact

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/matzehuels/traitforge/pkg/errors"
)

// ManifestFile is the run summary written at the output root.
const ManifestFile = "run.json"

// ManifestLayer records one layer of a run.
type ManifestLayer struct {
	Name     string `json:"name"`
	Variants int    `json:"variants"` // including the absent sentinel
}

// Manifest records what a run produced and how to reproduce it.
type Manifest struct {
	RunID       string          `json:"run_id"`
	CreatedAt   time.Time       `json:"created_at"`
	Seed        uint64          `json:"seed,omitempty"`
	Width       int             `json:"width"`
	Height      int             `json:"height"`
	Layers      []ManifestLayer `json:"layers"`
	Backgrounds int             `json:"backgrounds"`
	Total       uint64          `json:"total"`
	Requested   uint64          `json:"requested,omitempty"`
	Produced    uint64          `json:"produced"`
	Overflow    string          `json:"overflow"`
	Capped      bool            `json:"capped,omitempty"`
}

// WriteManifest stores m as root/run.json.
func WriteManifest(root string, m Manifest) error {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return errors.Wrap(errors.ErrCodeInternal, err, "encode manifest")
	}
	path := filepath.Join(root, ManifestFile)
	if err := os.WriteFile(path, append(data, '\n'), 0644); err != nil {
		return errors.Wrap(errors.ErrCodeIO, err, "write %s", path)
	}
	return nil
}

// ReadManifest loads root/run.json.
func ReadManifest(root string) (Manifest, error) {
	var m Manifest
	path := filepath.Join(root, ManifestFile)
	data, err := os.ReadFile(path)
	if err != nil {
		return m, errors.Wrap(errors.ErrCodeIO, err, "read %s", path)
	}
	if err := json.Unmarshal(data, &m); err != nil {
		return m, errors.Wrap(errors.ErrCodeIO, err, "decode %s", path)
	}
	return m, nil
}
