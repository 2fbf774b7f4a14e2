package views

import (
	"errors"
	"strings"
	"unicode/utf8"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"

	"github.com/tmarkley/marginalia/internal/content"
	"github.com/tmarkley/marginalia/internal/engine"
	"github.com/tmarkley/marginalia/internal/ui/styles"
	"github.com/tmarkley/marginalia/pkg/models"
)

// savedRange is the reader's SavedRange: the selection extent as rune
// offsets into the chapter's flattened text. Offsets survive scrolling
// and rewrapping, which is exactly why restoration works.
type savedRange struct {
	anchor, head int
}

func (s *savedRange) Clone() engine.SavedRange {
	c := *s
	return &c
}

// Snapshot implements engine.Platform.
func (v *ReaderView) Snapshot() (engine.Snapshot, error) {
	if !v.selActive || v.selAnchor == v.selHead {
		return engine.Snapshot{}, nil
	}
	lo, hi := v.selectionRange()
	return engine.Snapshot{
		Text:   v.doc.TextRange(lo, hi),
		Box:    v.selectionBox(lo, hi),
		InRoot: v.selInRoot,
	}, nil
}

// Save implements engine.Platform.
func (v *ReaderView) Save() (engine.SavedRange, error) {
	if !v.selActive {
		return nil, errors.New("no live selection")
	}
	return &savedRange{anchor: v.selAnchor, head: v.selHead}, nil
}

// Restore implements engine.Platform.
func (v *ReaderView) Restore(r engine.SavedRange) error {
	sr, ok := r.(*savedRange)
	if !ok || sr == nil {
		return errors.New("foreign saved range")
	}
	limit := utf8.RuneCountInString(v.doc.Text)
	v.selActive = true
	v.selInRoot = true
	v.selAnchor = clampTo(sr.anchor, limit)
	v.selHead = clampTo(sr.head, limit)
	return nil
}

// ClearSelection implements engine.Platform.
func (v *ReaderView) ClearSelection() {
	v.selActive = false
	v.dragging = false
}

// Locate implements engine.Locator.
func (v *ReaderView) Locate(id int64) (int, bool) {
	return content.LocateMarker(v.lines, id)
}

// CenterOn implements engine.Locator.
func (v *ReaderView) CenterOn(line int) {
	v.lineOffset = v.clampOffset(line - v.visibleLines()/2)
}

func clampTo(n, limit int) int {
	if n < 0 {
		return 0
	}
	if n > limit {
		return limit
	}
	return n
}

// selectionRange returns the live selection as an ordered [lo, hi)
// document range, or (0, 0) when there is none.
func (v *ReaderView) selectionRange() (int, int) {
	if !v.selActive || v.selAnchor == v.selHead {
		return 0, 0
	}
	if v.selAnchor <= v.selHead {
		return v.selAnchor, v.selHead
	}
	return v.selHead, v.selAnchor
}

// selectionBox computes the selection's bounding box in viewport cell
// coordinates. Multi-line selections span the full content width.
func (v *ReaderView) selectionBox(lo, hi int) engine.Rect {
	if len(v.lines) == 0 {
		return engine.Rect{}
	}
	first := content.LineAt(v.lines, lo)
	last := content.LineAt(v.lines, max(lo, hi-1))

	box := engine.Rect{
		Y:      first - v.lineOffset + contentTop,
		Height: last - first + 1,
	}
	if first == last {
		line := v.lines[first]
		box.X = contentLeft + (lo - line.Start)
		box.Width = hi - lo
	} else {
		box.X = contentLeft
		box.Width = v.textWidth()
	}
	return box
}

// Mouse handling

func (v *ReaderView) handleMouse(msg tea.MouseMsg) (View, tea.Cmd) {
	switch msg.Button {
	case tea.MouseButtonWheelUp:
		v.scroll(-3)
		return v, nil
	case tea.MouseButtonWheelDown:
		v.scroll(3)
		return v, nil
	}
	if v.noteMode || v.explainMode {
		return v, nil
	}

	switch msg.Action {
	case tea.MouseActionPress:
		if msg.Button != tea.MouseButtonLeft {
			return v, nil
		}
		if cmd, ok := v.toolbarClick(msg.X, msg.Y); ok {
			return v, cmd
		}
		v.beginDrag(msg.X, msg.Y)
	case tea.MouseActionMotion:
		if v.dragging {
			v.selHead = v.offsetAtCell(msg.X, msg.Y)
		}
	case tea.MouseActionRelease:
		if v.dragging {
			v.dragging = false
			return v, v.eng.PointerReleased()
		}
	}
	return v, nil
}

func (v *ReaderView) beginDrag(x, y int) {
	off := v.offsetAtCell(x, y)
	v.dragging = true
	v.selActive = true
	v.selInRoot = v.inContentArea(y)
	v.selAnchor = off
	v.selHead = off
}

func (v *ReaderView) inContentArea(y int) bool {
	row := y - contentTop
	return row >= 0 && row < v.visibleLines()
}

// offsetAtCell maps a viewport cell to a document rune offset, clamped
// to the nearest content position.
func (v *ReaderView) offsetAtCell(x, y int) int {
	if len(v.lines) == 0 {
		return 0
	}
	row := v.lineOffset + y - contentTop
	if row < 0 {
		row = 0
	}
	if row >= len(v.lines) {
		row = len(v.lines) - 1
	}
	return v.lines[row].OffsetAt(x - contentLeft)
}

// Floating toolbar

// toolbarActions lay out as " highlight underline note explain ✕ "
// padded to the positioner's fixed width.
var toolbarActions = []string{"highlight", "underline", "note", "explain", "✕"}

// toolbarVisible reports whether the action toolbar should render.
func (v *ReaderView) toolbarVisible() bool {
	return v.eng.Capture.Record() != nil && !v.noteMode && !v.explainMode
}

// toolbarPlace computes where the toolbar goes for the current
// selection. The box is recomputed from the live selection so the
// toolbar follows it across scrolling.
func (v *ReaderView) toolbarPlace() engine.Point {
	box := v.eng.Capture.Record().Box
	if lo, hi := v.selectionRange(); hi > lo {
		box = v.selectionBox(lo, hi)
	}
	return engine.Place(box, engine.Size{Width: v.width, Height: v.height})
}

// renderToolbar builds the toolbar row and the clickable column range
// of each action, relative to the toolbar's left edge.
func renderToolbar() (string, [][2]int) {
	var b strings.Builder
	ranges := make([][2]int, len(toolbarActions))
	col := 0

	write := func(style lipgloss.Style, s string) {
		b.WriteString(style.Render(s))
		col += lipgloss.Width(s)
	}

	write(styles.ToolbarBar, " ")
	for i, label := range toolbarActions {
		start := col
		if i == len(toolbarActions)-1 {
			write(styles.ToolbarCancel, label)
		} else {
			write(styles.ToolbarKey, label[:1])
			write(styles.ToolbarBar, label[1:])
		}
		ranges[i] = [2]int{start, col}
		write(styles.ToolbarBar, " ")
	}
	for col < engine.ToolbarWidth {
		write(styles.ToolbarBar, " ")
	}
	return b.String(), ranges
}

// toolbarClick resolves a press at viewport cell (x, y) into a commit
// command. ok is false when the press is outside the toolbar.
func (v *ReaderView) toolbarClick(x, y int) (tea.Cmd, bool) {
	if !v.toolbarVisible() {
		return nil, false
	}
	at := v.toolbarPlace()
	if y != at.Top || x < at.Left || x >= at.Left+engine.ToolbarWidth {
		return nil, false
	}
	_, ranges := renderToolbar()
	rel := x - at.Left
	for i, r := range ranges {
		if rel >= r[0] && rel < r[1] {
			switch toolbarActions[i] {
			case "highlight":
				return v.commitAnnotate(models.KindHighlight), true
			case "underline":
				return v.commitAnnotate(models.KindUnderline), true
			case "note":
				return v.eng.Dispatch.CommitCreateNote(), true
			case "explain":
				return v.commitExplain(), true
			default:
				v.eng.Dispatch.Cancel()
				return nil, true
			}
		}
	}
	// Inside the bar but between buttons: swallow the press.
	return nil, true
}

// Content rendering

// contentRows renders the visible content lines with annotation,
// pulse and selection styling, then splices the toolbar overlay in.
func (v *ReaderView) contentRows() []string {
	rows := make([]string, v.visibleLines())
	margin := strings.Repeat(" ", contentLeft)
	for i := range rows {
		li := v.lineOffset + i
		if li < len(v.lines) {
			rows[i] = margin + v.renderLine(v.lines[li])
		}
	}

	if v.toolbarVisible() {
		at := v.toolbarPlace()
		row := at.Top
		if row >= 0 && row-contentTop >= 0 && row-contentTop < len(rows) {
			bar, _ := renderToolbar()
			rows[row-contentTop] = overlayAt(rows[row-contentTop], bar, at.Left)
		}
	}
	return rows
}

// renderLine styles one laid-out line. Segment styling (highlight,
// underline, pulse) loses to the live selection where they overlap.
func (v *ReaderView) renderLine(l content.Line) string {
	selLo, selHi := v.selectionRange()
	pulse := v.eng.Jump.Pulsing()

	var b strings.Builder
	for _, seg := range l.Segments {
		runes := []rune(seg.Text)
		start := seg.Start
		end := start + len(runes)
		for pos := start; pos < end; {
			next := end
			inSel := selHi > selLo && pos >= selLo && pos < selHi
			if selHi > selLo {
				if pos < selLo && selLo < next {
					next = selLo
				} else if inSel && selHi < next {
					next = selHi
				}
			}
			part := string(runes[pos-start : next-start])
			b.WriteString(v.segmentStyle(seg, l.Heading, inSel, pulse).Render(part))
			pos = next
		}
	}
	return b.String()
}

func (v *ReaderView) segmentStyle(seg content.Segment, heading, inSel bool, pulse int64) lipgloss.Style {
	switch {
	case inSel:
		return styles.Selection
	case seg.AnnotationID != 0 && seg.AnnotationID == pulse:
		return styles.Pulse
	case seg.Kind == models.KindHighlight && seg.AnnotationID != 0:
		return styles.Highlight
	case seg.Kind == models.KindUnderline && seg.AnnotationID != 0:
		return styles.UnderlineMark
	case heading:
		return styles.Heading
	default:
		return lipgloss.NewStyle()
	}
}

// overlayAt splices overlay into base starting at the given column,
// preserving ANSI styling on both sides of the cut.
func overlayAt(base, overlay string, col int) string {
	if col < 0 {
		col = 0
	}
	baseWidth := ansi.StringWidth(base)
	if baseWidth < col {
		base += strings.Repeat(" ", col-baseWidth)
		baseWidth = col
	}
	left := ansi.Truncate(base, col, "")
	right := ""
	if cut := col + ansi.StringWidth(overlay); baseWidth > cut {
		right = ansi.TruncateLeft(base, cut, "")
	}
	return left + overlay + right
}
