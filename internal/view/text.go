package view

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/SoftwareStartups/sync-prof/internal/event"
)

// Text renders one line per timestamp tick, composed of fixed-width columns,
// one per driver thread, sorted by thread id ascending. Link and Group are
// no-ops for this view: the original sync-prof text printer only ever
// annotated timestamps and marks, leaving cross-thread arrows and lock
// blocks to the Chrome view.
type Text struct {
	w      io.Writer
	closer io.Closer
	indent int
}

const baseIndent = 40

// NewText wraps w as a Text view. If w also implements io.Closer, Close
// closes it.
func NewText(w io.Writer) *Text {
	t := &Text{w: w, indent: baseIndent}
	if c, ok := w.(io.Closer); ok {
		t.closer = c
	}
	return t
}

func (t *Text) Timestamp(threads []ThreadSnapshot) error {
	sorted := make([]ThreadSnapshot, len(threads))
	copy(sorted, threads)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Thread < sorted[j].Thread })

	var line strings.Builder
	for _, th := range sorted {
		n := len(th.Events)
		var col string
		switch {
		case n == 0:
			col = ""
		default:
			top := th.Events[0]
			switch top.Status {
			case event.StatusAborted:
				// A row with an aborted top event is suppressed entirely.
				return nil
			case event.StatusStarted:
				if n == 1 {
					col = top.ShortString()
				} else {
					col = strings.Repeat("│ ", n-2) + "├─" + top.ShortString()
				}
			case event.StatusFinished:
				col = strings.Repeat("│ ", n-1)
			case event.StatusWaiting:
				col = strings.Repeat("│ ", n)
			}
		}
		line.WriteString(t.pad(col))
	}
	line.WriteByte('\n')
	_, err := io.WriteString(t.w, line.String())
	return err
}

// pad right-pads col to the current column width, growing the width
// (monotonically, never shrinking) when col overflows it. Width accounting
// uses rune count rather than byte length: the box-drawing glyphs used here
// are each a single display column but multiple UTF-8 bytes, so byte-length
// padding would misalign columns.
func (t *Text) pad(col string) string {
	width := utf8.RuneCountInString(col)
	slack := t.indent - width
	if slack <= 0 {
		t.indent += -slack + 5
		slack = t.indent - width
	}
	return col + strings.Repeat(" ", slack)
}

func (t *Text) Link(Category, string, int64, int, int64, int, map[string]any) error {
	return nil
}

func (t *Text) Group(Category, string, int64, int, int64, int, map[string]any) error {
	return nil
}

func (t *Text) Mark(name string, category Category, scope Scope, time int64, thread int) error {
	_, err := fmt.Fprintf(t.w, "%s: %s (scope %s, thread %d)\n", category, name, scope, thread)
	return err
}

func (t *Text) Close() error {
	if t.closer != nil {
		return t.closer.Close()
	}
	return nil
}
