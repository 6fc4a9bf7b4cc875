// Package chunk splits document text into overlapping windows, the atomic
// unit of retrieval. Adjacent chunks of a document overlap by a fixed
// number of bytes so a fact shorter than (size - overlap) always appears
// whole in at least one chunk.
package chunk

import (
	"fmt"
	"strings"

	"github.com/hurttlocker/distill/internal/config"
)

// Span is one chunk of a document with its byte offsets into the source.
type Span struct {
	Index int
	Start int
	End   int
	Text  string
}

// Chunker produces overlapping spans of a fixed target size.
type Chunker struct {
	size    int
	overlap int
}

// Boundary separators in preference order. The splitter snaps the cut to
// the last occurrence of the highest-priority separator found inside the
// tolerance window; if none is found the cut lands at the exact offset.
var separators = []string{"\n\n", "\n", ". "}

// New validates the sizing and returns a Chunker.
func New(size, overlap int) (*Chunker, error) {
	if size <= 0 || overlap <= 0 {
		return nil, fmt.Errorf("%w: chunk size and overlap must be positive (size=%d overlap=%d)",
			config.ErrInvalidConfiguration, size, overlap)
	}
	if overlap >= size {
		return nil, fmt.Errorf("%w: chunk overlap %d must be less than chunk size %d",
			config.ErrInvalidConfiguration, overlap, size)
	}
	return &Chunker{size: size, overlap: overlap}, nil
}

// Size returns the configured maximum chunk length in bytes.
func (c *Chunker) Size() int { return c.size }

// Overlap returns the configured overlap length in bytes.
func (c *Chunker) Overlap() int { return c.overlap }

// Split cuts text into ordered spans covering the full input. Every span
// except the last starts exactly overlap bytes before the previous span's
// end, so concatenating the first span with the overlap-stripped tails of
// the rest reconstructs the input byte for byte. Trailing text shorter
// than the target size becomes a final short span, never dropped.
func (c *Chunker) Split(text string) []Span {
	if text == "" {
		return nil
	}

	var spans []Span
	pos := 0
	for {
		end := pos + c.size
		if end >= len(text) {
			end = len(text)
		} else {
			end = c.snap(text, pos, end)
		}

		spans = append(spans, Span{
			Index: len(spans),
			Start: pos,
			End:   end,
			Text:  text[pos:end],
		})

		if end >= len(text) {
			return spans
		}
		pos = end - c.overlap
	}
}

// snap moves the cut back to a natural breakpoint inside the tolerance
// window (the last third of the chunk). The snapped end must still leave
// more than overlap bytes of progress or the walk would stall; in that
// case the exact offset wins.
func (c *Chunker) snap(text string, pos, end int) int {
	window := text[pos:end]
	searchStart := len(window) * 2 / 3

	for _, sep := range separators {
		idx := strings.LastIndex(window[searchStart:], sep)
		if idx == -1 {
			continue
		}
		cut := pos + searchStart + idx + len(sep)
		if cut > pos+c.overlap && cut < end {
			return cut
		}
	}
	return end
}

// Reassemble inverts Split: the first span plus the overlap-stripped tail
// of each following span. Used to verify the round-trip invariant.
func (c *Chunker) Reassemble(spans []Span) string {
	var b strings.Builder
	for i, s := range spans {
		if i == 0 {
			b.WriteString(s.Text)
			continue
		}
		if len(s.Text) > c.overlap {
			b.WriteString(s.Text[c.overlap:])
		}
	}
	return b.String()
}
