package combo

import (
	"fmt"

	"github.com/matzehuels/traitforge/pkg/errors"
)

// OverflowPolicy decides what happens when more combinations are requested
// than exist.
type OverflowPolicy string

const (
	// OverflowError rejects the request with ENUMERATION_OVERFLOW.
	OverflowError OverflowPolicy = "error"
	// OverflowCap produces every combination once and reports the cap.
	OverflowCap OverflowPolicy = "cap"
	// OverflowWrap keeps decoding past the end; combinations repeat with period Total.
	OverflowWrap OverflowPolicy = "wrap"
)

// DefaultOverflow is the policy used when none is configured.
const DefaultOverflow = OverflowError

// ParseOverflowPolicy parses a policy name. An empty string yields DefaultOverflow.
func ParseOverflowPolicy(s string) (OverflowPolicy, error) {
	switch p := OverflowPolicy(s); p {
	case "":
		return DefaultOverflow, nil
	case OverflowError, OverflowCap, OverflowWrap:
		return p, nil
	default:
		return "", errors.New(errors.ErrCodeInvalidInput, "invalid overflow policy: %q (must be one of: error, cap, wrap)", s)
	}
}

// Resolve turns a requested count into the length of the sequence to produce.
// A zero count means Total. capped reports that OverflowCap lowered the count.
func (e *Enumerator) Resolve(count uint64, policy OverflowPolicy) (n uint64, capped bool, err error) {
	if count == 0 {
		return e.total, false, nil
	}
	if count <= e.total {
		return count, false, nil
	}

	switch policy {
	case OverflowCap:
		return e.total, true, nil
	case OverflowWrap:
		return count, false, nil
	case OverflowError, "":
		return 0, false, &errors.Error{
			Code:    errors.ErrCodeEnumerationOverflow,
			Message: fmt.Sprintf("requested %d artifacts but only %d distinct combinations exist", count, e.total),
		}
	default:
		return 0, false, errors.New(errors.ErrCodeInvalidInput, "invalid overflow policy: %q", policy)
	}
}
