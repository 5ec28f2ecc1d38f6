package report

import (
	"fmt"
	"io"
)

// Format selects one of the two wire formats the CLI's second argument
// names.
type Format int

const (
	FormatText Format = iota
	FormatBinary
)

// ParseFormat maps the CLI's "text"|"binary" token to a Format.
func ParseFormat(s string) (Format, error) {
	switch s {
	case "text":
		return FormatText, nil
	case "binary":
		return FormatBinary, nil
	default:
		return 0, fmt.Errorf("invalid format %q: must be text or binary", s)
	}
}

// Write renders snap to w in the given format. Any write error is fatal
// to the caller (spec.md section 4.5): the capture loop must not continue
// past a failed report.
func Write(w io.Writer, format Format, snap Snapshot) error {
	switch format {
	case FormatBinary:
		return WriteBinary(w, snap)
	default:
		return WriteText(w, snap)
	}
}
