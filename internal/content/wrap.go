package content

import (
	"strings"
	"unicode/utf8"
)

// Line is one terminal row of laid-out chapter content. Start/End are
// rune offsets into Document.Text; a blank separator row between
// blocks has Start == End.
type Line struct {
	Segments []Segment
	Start    int
	End      int
	Heading  bool
}

type cell struct {
	r   rune
	seg int
	off int
}

// WrapBlocks lays blocks out as terminal lines of at most width cells,
// breaking at word boundaries where possible and keeping annotation
// attribution per run. Blocks are separated by one blank line.
func WrapBlocks(blocks []Block, width int) []Line {
	if width < 1 {
		width = 1
	}
	var lines []Line
	for bi, b := range blocks {
		cells := blockCells(b)
		start := 0
		for start < len(cells) {
			for start < len(cells) && cells[start].r == ' ' {
				start++
			}
			if start >= len(cells) {
				break
			}
			end := start + width
			if end >= len(cells) {
				end = len(cells)
			} else {
				sp := -1
				for i := end; i > start; i-- {
					if cells[i-1].r == ' ' {
						sp = i - 1
						break
					}
				}
				if sp > start {
					end = sp
				}
			}
			lines = append(lines, makeLine(b, cells[start:end]))
			start = end
		}
		if bi < len(blocks)-1 {
			sep := blockEnd(b)
			lines = append(lines, Line{Start: sep, End: sep})
		}
	}
	return lines
}

func blockCells(b Block) []cell {
	var cells []cell
	for si, seg := range b.Segments {
		off := seg.Start
		for _, r := range seg.Text {
			cells = append(cells, cell{r: r, seg: si, off: off})
			off++
		}
	}
	return cells
}

func blockEnd(b Block) int {
	last := b.Segments[len(b.Segments)-1]
	return last.Start + utf8.RuneCountInString(last.Text)
}

func makeLine(b Block, cells []cell) Line {
	ln := Line{
		Start:   cells[0].off,
		End:     cells[len(cells)-1].off + 1,
		Heading: b.Heading,
	}
	var buf strings.Builder
	curSeg := cells[0].seg
	curStart := cells[0].off
	flush := func() {
		src := b.Segments[curSeg]
		ln.Segments = append(ln.Segments, Segment{
			Text:         buf.String(),
			AnnotationID: src.AnnotationID,
			Kind:         src.Kind,
			Start:        curStart,
		})
		buf.Reset()
	}
	for _, c := range cells {
		if c.seg != curSeg {
			flush()
			curSeg = c.seg
			curStart = c.off
		}
		buf.WriteRune(c.r)
	}
	flush()
	return ln
}

// Width returns the line's cell width.
func (l Line) Width() int {
	return l.End - l.Start
}

// OffsetAt maps a column on this line to a rune offset in the
// document text, clamped to the line's extent.
func (l Line) OffsetAt(col int) int {
	if col < 0 {
		col = 0
	}
	if col > l.End-l.Start {
		col = l.End - l.Start
	}
	return l.Start + col
}

// LineAt returns the index of the line containing the given text
// offset, or the nearest following line.
func LineAt(lines []Line, offset int) int {
	for i, l := range lines {
		if offset < l.End || (offset == l.End && l.Start == l.End) {
			return i
		}
	}
	if len(lines) == 0 {
		return 0
	}
	return len(lines) - 1
}

// LocateMarker returns the first line carrying a segment of the given
// annotation id.
func LocateMarker(lines []Line, id int64) (int, bool) {
	if id == 0 {
		return 0, false
	}
	for i, l := range lines {
		for _, s := range l.Segments {
			if s.AnnotationID == id {
				return i, true
			}
		}
	}
	return 0, false
}

// TextRange extracts the rune range [start, end) of the document text.
func (d Document) TextRange(start, end int) string {
	runes := []rune(d.Text)
	if start < 0 {
		start = 0
	}
	if end > len(runes) {
		end = len(runes)
	}
	if start >= end {
		return ""
	}
	return string(runes[start:end])
}
