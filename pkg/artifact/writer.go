package artifact

import (
	"context"
	"encoding/json"
	"fmt"
	"image"
	"image/png"
	"io"
	"os"
	"path/filepath"

	"github.com/disintegration/imaging"

	"github.com/matzehuels/traitforge/pkg/combo"
	"github.com/matzehuels/traitforge/pkg/errors"
)

// Output subdirectories.
const (
	MetadataDir = "metadata"
	ImagesDir   = "images"
)

// Writer persists one rendered artifact.
type Writer interface {
	Write(ctx context.Context, index uint64, c combo.Combination, img image.Image) error
}

// DirWriter writes metadata and images under Root. It does not check that
// indices are unique; callers hand it each index once.
type DirWriter struct {
	Root        string
	Metadata    MetadataOptions
	Compression png.CompressionLevel
}

// NewDirWriter creates a writer for root with default PNG compression.
func NewDirWriter(root string, opts MetadataOptions) *DirWriter {
	return &DirWriter{Root: root, Metadata: opts, Compression: png.DefaultCompression}
}

// MetadataPath returns the metadata file for index.
func (w *DirWriter) MetadataPath(index uint64) string {
	return filepath.Join(w.Root, MetadataDir, fmt.Sprintf("%d.json", Number(index)))
}

// ImagePath returns the image file for index.
func (w *DirWriter) ImagePath(index uint64) string {
	return filepath.Join(w.Root, ImagesDir, fmt.Sprintf("%d.png", Number(index)))
}

// Write stores the metadata record and then the PNG image for index.
// Failures are IO_ERROR.
func (w *DirWriter) Write(ctx context.Context, index uint64, c combo.Combination, img image.Image) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	data, err := json.MarshalIndent(MetadataFor(index, c, w.Metadata), "", "  ")
	if err != nil {
		return errors.Wrap(errors.ErrCodeInternal, err, "encode metadata %d", Number(index))
	}
	path := w.MetadataPath(index)
	if err := os.WriteFile(path, append(data, '\n'), 0644); err != nil {
		return errors.Wrap(errors.ErrCodeIO, err, "write %s", path)
	}

	path = w.ImagePath(index)
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrap(errors.ErrCodeIO, err, "write %s", path)
	}
	if err := EncodePNG(f, img, w.Compression); err != nil {
		f.Close()
		return errors.Wrap(errors.ErrCodeIO, err, "write %s", path)
	}
	if err := f.Close(); err != nil {
		return errors.Wrap(errors.ErrCodeIO, err, "write %s", path)
	}
	return nil
}

// EncodePNG encodes img as PNG at the given compression level.
func EncodePNG(w io.Writer, img image.Image, level png.CompressionLevel) error {
	return imaging.Encode(w, img, imaging.PNG, imaging.PNGCompressionLevel(level))
}

// PrepareOutput creates the output tree under root. With clean set, an
// existing tree is removed first, as a fresh run would otherwise mix with
// files from an earlier one.
func PrepareOutput(root string, clean bool) error {
	if root == "" {
		return errors.New(errors.ErrCodeInvalidInput, "output directory cannot be empty")
	}
	if clean {
		if err := os.RemoveAll(root); err != nil {
			return errors.Wrap(errors.ErrCodeIO, err, "remove %s", root)
		}
	}
	for _, dir := range []string{MetadataDir, ImagesDir} {
		if err := os.MkdirAll(filepath.Join(root, dir), 0755); err != nil {
			return errors.Wrap(errors.ErrCodeIO, err, "create %s", filepath.Join(root, dir))
		}
	}
	return nil
}

var _ Writer = (*DirWriter)(nil)
