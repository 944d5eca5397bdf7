package errors

import (
	"strings"
	"unicode"
)

// maxNameLength bounds layer, variant and background names.
const maxNameLength = 255

// ValidateLayerName validates a layer name before it is joined onto the traits root.
// It rejects names that could escape the root directory:
//   - No empty or whitespace-only names
//   - No control characters or null bytes
//   - No path separators or traversal sequences
//   - Maximum length of 255 characters
func ValidateLayerName(name string) error {
	if strings.TrimSpace(name) == "" {
		return New(ErrCodeConfig, "layer name cannot be empty")
	}

	if len(name) > maxNameLength {
		return New(ErrCodeConfig, "layer name too long (max %d characters)", maxNameLength)
	}

	for _, r := range name {
		if unicode.IsControl(r) {
			return New(ErrCodeConfig, "layer name %q contains invalid control characters", name)
		}
	}

	if name == "." || name == ".." || strings.ContainsAny(name, `/\`) {
		return New(ErrCodeConfig, "layer name %q must be a plain directory name", name)
	}

	return nil
}

// ValidateDimensions checks that an output surface size is usable.
func ValidateDimensions(width, height int) error {
	const maxSide = 16384
	if width <= 0 || height <= 0 {
		return New(ErrCodeInvalidInput, "dimensions must be positive, got %dx%d", width, height)
	}
	if width > maxSide || height > maxSide {
		return New(ErrCodeInvalidInput, "dimensions too large (max %d per side), got %dx%d", maxSide, width, height)
	}
	return nil
}
