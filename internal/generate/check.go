// SPDX-License-Identifier: MPL-2.0

package generate

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"
)

// Drift describes a generated file whose on-disk content differs from what a
// run would write.
type Drift struct {
	Path string
	// Missing is set when the file does not exist at all.
	Missing bool
	// Diff is a line diff from the on-disk content to the expected content.
	Diff string
}

// Check renders every artifact and compares it with the file on disk. It
// writes nothing. An empty result means everything is up to date.
func (g *Generator) Check(ctx context.Context) ([]Drift, error) {
	arts, err := g.Plan(ctx)
	if err != nil {
		return nil, err
	}

	var drifts []Drift
	for _, art := range arts {
		current, err := os.ReadFile(art.Path)
		switch {
		case errors.Is(err, fs.ErrNotExist):
			drifts = append(drifts, Drift{Path: art.Path, Missing: true, Diff: LineDiff("", string(art.Content))})
			continue
		case err != nil:
			return nil, fmt.Errorf("read %s: %w", art.Path, err)
		}
		if bytes.Equal(current, art.Content) {
			g.logger.Debug("up to date", "path", g.rel(art.Path))
			continue
		}
		drifts = append(drifts, Drift{Path: art.Path, Diff: LineDiff(string(current), string(art.Content))})
	}
	return drifts, nil
}

// LineDiff returns a line-oriented diff of two texts. Removed lines start with
// "-", added lines with "+"; runs of unchanged lines are collapsed into a
// single "@@ n unchanged lines @@" marker.
func LineDiff(oldText, newText string) string {
	dmp := diffmatchpatch.New()
	a, b, lines := dmp.DiffLinesToChars(oldText, newText)
	diffs := dmp.DiffCharsToLines(dmp.DiffMain(a, b, false), lines)

	var sb strings.Builder
	for _, d := range diffs {
		chunk := splitKeepingLast(d.Text)
		switch d.Type {
		case diffmatchpatch.DiffEqual:
			fmt.Fprintf(&sb, "@@ %d unchanged lines @@\n", len(chunk))
		case diffmatchpatch.DiffDelete:
			writePrefixed(&sb, "-", chunk)
		case diffmatchpatch.DiffInsert:
			writePrefixed(&sb, "+", chunk)
		}
	}
	return sb.String()
}

func writePrefixed(sb *strings.Builder, prefix string, lines []string) {
	for _, line := range lines {
		sb.WriteString(prefix)
		sb.WriteString(line)
		sb.WriteByte('\n')
	}
}

// splitKeepingLast splits text into lines without terminators, keeping a final
// unterminated line.
func splitKeepingLast(text string) []string {
	text = strings.TrimSuffix(text, "\n")
	if text == "" {
		return []string{""}
	}
	return strings.Split(text, "\n")
}
