// SPDX-License-Identifier: MPL-2.0

package directive

import (
	"errors"
	"fmt"
	"strings"
)

const (
	// DefaultOpen opens a directive block.
	DefaultOpen = "# IFDEF CYTHON"
	// DefaultElse separates the primary branch from the alternate branch.
	DefaultElse = "# ELSE"
	// DefaultEnd closes a directive block.
	DefaultEnd = "# ENDIF"
	// DefaultPrefix is the comment prefix removed from primary-branch lines and
	// added to alternate-branch lines.
	DefaultPrefix = "# "
	// DefaultSuffix is appended to the rewritten opening marker.
	DefaultSuffix = " -- DONT EDIT THIS FILE (it is automatically generated)"
)

// ErrInvalidMarkers is returned when a Markers value cannot drive a transformation.
var ErrInvalidMarkers = errors.New("invalid directive markers")

// newlineStripper removes line terminators from the opening marker before the
// suffix is appended.
var newlineStripper = strings.NewReplacer("\n", "", "\r", "")

// Markers holds the fixed strings recognized by the transformer.
// Marker lines are compared after stripping surrounding whitespace.
type Markers struct {
	Open   string
	Else   string
	End    string
	Prefix string
	Suffix string
}

// DefaultMarkers returns the markers used by the pydevd sources.
func DefaultMarkers() Markers {
	return Markers{
		Open:   DefaultOpen,
		Else:   DefaultElse,
		End:    DefaultEnd,
		Prefix: DefaultPrefix,
		Suffix: DefaultSuffix,
	}
}

// Validate reports whether the markers are usable. Open, Else, End and Prefix
// must be non-blank and the three marker lines must be distinct. Suffix may be
// empty.
func (m Markers) Validate() error {
	fields := []struct {
		name  string
		value string
	}{
		{"open", m.Open},
		{"else", m.Else},
		{"end", m.End},
		{"prefix", m.Prefix},
	}
	for _, f := range fields {
		if strings.TrimSpace(f.value) == "" {
			return fmt.Errorf("%w: %s marker must not be blank", ErrInvalidMarkers, f.name)
		}
	}
	if m.Open == m.Else || m.Open == m.End || m.Else == m.End {
		return fmt.Errorf("%w: open, else and end markers must differ", ErrInvalidMarkers)
	}
	return nil
}

// Uncomment removes the first occurrence of the prefix from line. The line
// keeps its indentation and terminator.
func (m Markers) Uncomment(line string) string {
	return strings.Replace(line, m.Prefix, "", 1)
}

// Recomment prepends the prefix to line.
func (m Markers) Recomment(line string) string {
	return m.Prefix + line
}

// rewriteOpen drops the terminator of an opening marker line and tags it as
// generated.
func (m Markers) rewriteOpen(line string) string {
	return newlineStripper.Replace(line) + m.Suffix + "\n"
}
