// SPDX-License-Identifier: MPL-2.0

package directive

import (
	"errors"
	"fmt"
	"io"
	"strings"
)

const (
	// StateRegular copies lines through unchanged.
	StateRegular State = iota
	// StateInDirective is inside the primary branch of a block.
	StateInDirective
	// StateInAlternate is inside the alternate branch of a block.
	StateInAlternate
)

// ErrMalformedDirective is the sentinel wrapped by MalformedDirectiveError.
var ErrMalformedDirective = errors.New("malformed directive")

// errMissingPrefix is returned by step for a primary-branch line that is not
// commented with the prefix.
var errMissingPrefix = errors.New("line inside directive block must start with the comment prefix")

type (
	// State is the position of the transformer relative to directive blocks.
	State int

	// MalformedDirectiveError reports a directive block that cannot be
	// transformed. Line is 1-based.
	MalformedDirectiveError struct {
		File   string
		Line   int
		Reason string
	}

	// Stats counts what a transformation pass rewrote.
	Stats struct {
		// Blocks is the number of directive blocks opened.
		Blocks int
		// PrimaryLines is the number of primary-branch lines uncommented.
		PrimaryLines int
		// AlternateLines is the number of alternate-branch lines commented.
		AlternateLines int
	}

	// Result is the output of one transformation pass.
	Result struct {
		Lines []string
		Stats Stats
	}

	// Transformer rewrites directive blocks using a fixed set of markers.
	// It holds no per-file state and can be reused.
	Transformer struct {
		markers Markers
	}

	// pass is the state of a single transformation.
	pass struct {
		t        *Transformer
		name     string
		state    State
		openedAt int
		out      []string
		stats    Stats
	}
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateRegular:
		return "regular"
	case StateInDirective:
		return "in-directive"
	case StateInAlternate:
		return "in-alternate"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Error implements the error interface.
func (e *MalformedDirectiveError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("%s:%d: %s: %s", e.File, e.Line, ErrMalformedDirective, e.Reason)
	}
	return fmt.Sprintf("%s: %s: %s", e.File, ErrMalformedDirective, e.Reason)
}

// Unwrap returns ErrMalformedDirective for errors.Is compatibility.
func (e *MalformedDirectiveError) Unwrap() error { return ErrMalformedDirective }

// String joins the output lines.
func (r *Result) String() string {
	return strings.Join(r.Lines, "")
}

// New creates a Transformer for the given markers.
func New(markers Markers) (*Transformer, error) {
	if err := markers.Validate(); err != nil {
		return nil, err
	}
	return &Transformer{markers: markers}, nil
}

// NewDefault creates a Transformer for DefaultMarkers.
func NewDefault() *Transformer {
	return &Transformer{markers: DefaultMarkers()}
}

// Markers returns the markers the transformer recognizes.
func (t *Transformer) Markers() Markers {
	return t.markers
}

// Transform reads all of r and transforms it. name identifies the source in
// error messages.
func (t *Transformer) Transform(name string, r io.Reader) (*Result, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", name, err)
	}
	return t.TransformLines(name, SplitLines(string(data)))
}

// TransformString is a convenience wrapper around TransformLines.
func (t *Transformer) TransformString(name, src string) (string, error) {
	res, err := t.TransformLines(name, SplitLines(src))
	if err != nil {
		return "", err
	}
	return res.String(), nil
}

// TransformLines transforms lines, each of which carries its own terminator.
// It fails with a *MalformedDirectiveError when a primary-branch line lacks the
// comment prefix or when the input ends inside a block.
func (t *Transformer) TransformLines(name string, lines []string) (*Result, error) {
	p := &pass{
		t:     t,
		name:  name,
		state: StateRegular,
		out:   make([]string, 0, len(lines)),
	}
	for i, line := range lines {
		if err := p.feed(i+1, line); err != nil {
			return nil, err
		}
	}
	if p.state != StateRegular {
		return nil, &MalformedDirectiveError{
			File:   name,
			Line:   p.openedAt,
			Reason: fmt.Sprintf("%q opened without matching %q before end of file", t.markers.Open, t.markers.End),
		}
	}
	return &Result{Lines: p.out, Stats: p.stats}, nil
}

// step is the transition function of the state machine. It returns the next
// state and the line to emit.
func (t *Transformer) step(state State, line string) (State, string, error) {
	stripped := strings.TrimSpace(line)
	m := t.markers

	switch state {
	case StateRegular:
		if stripped == m.Open {
			return StateInDirective, m.rewriteOpen(line), nil
		}
		return StateRegular, line, nil

	case StateInDirective:
		switch stripped {
		case m.Else:
			return StateInAlternate, line, nil
		case m.End:
			return StateRegular, line, nil
		}
		if !strings.HasPrefix(stripped, m.Prefix) {
			return state, "", errMissingPrefix
		}
		return StateInDirective, m.Uncomment(line), nil

	case StateInAlternate:
		if stripped == m.End {
			return StateRegular, line, nil
		}
		return StateInAlternate, m.Recomment(line), nil
	}

	return state, "", fmt.Errorf("unknown state %s", state)
}

func (p *pass) feed(lineNo int, line string) error {
	next, emitted, err := p.t.step(p.state, line)
	if err != nil {
		return &MalformedDirectiveError{File: p.name, Line: lineNo, Reason: err.Error()}
	}

	switch {
	case p.state == StateRegular && next == StateInDirective:
		p.stats.Blocks++
		p.openedAt = lineNo
	case p.state == StateInDirective && next == StateInDirective:
		p.stats.PrimaryLines++
	case p.state == StateInAlternate && next == StateInAlternate:
		p.stats.AlternateLines++
	}

	p.state = next
	p.out = append(p.out, emitted)
	return nil
}

// SplitLines splits s after every "\n". Each element keeps its terminator; a
// final line without one is kept as is. An empty string yields no lines.
func SplitLines(s string) []string {
	if s == "" {
		return nil
	}
	lines := strings.SplitAfter(s, "\n")
	if lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	return lines
}
