package views

import (
	"testing"

	"github.com/charmbracelet/x/ansi"
	"go.uber.org/zap"

	"github.com/tmarkley/marginalia/internal/content"
	"github.com/tmarkley/marginalia/internal/engine"
)

// testReader builds a reader with laid-out content and no backing
// store; the selection platform never touches the store.
func testReader(t *testing.T, markup string, width int) *ReaderView {
	t.Helper()
	v := NewReaderView(nil, nil, zap.NewNop())
	v.width = width
	v.height = 12
	v.doc = content.Flatten(markup)
	v.lines = content.WrapBlocks(v.doc.Blocks, v.textWidth())
	return v
}

func TestSnapshotOfLiveSelection(t *testing.T) {
	v := testReader(t, "<p>the quick brown fox jumps over the lazy dog</p>", 60)

	// "quick brown" at offsets 4..15
	v.selActive = true
	v.selInRoot = true
	v.selAnchor = 4
	v.selHead = 15

	snap, err := v.Snapshot()
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	if snap.Text != "quick brown" {
		t.Errorf("text = %q", snap.Text)
	}
	if !snap.InRoot {
		t.Error("selection should be in root")
	}
	if snap.Collapsed() {
		t.Error("selection should not read as collapsed")
	}
}

func TestSnapshotBackwardDrag(t *testing.T) {
	v := testReader(t, "<p>the quick brown fox</p>", 60)
	v.selActive = true
	v.selInRoot = true
	v.selAnchor = 15
	v.selHead = 4

	snap, _ := v.Snapshot()
	if snap.Text != "quick brown" {
		t.Errorf("text = %q", snap.Text)
	}
}

func TestSnapshotWithoutSelectionIsCollapsed(t *testing.T) {
	v := testReader(t, "<p>text</p>", 60)
	snap, err := v.Snapshot()
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	if !snap.Collapsed() {
		t.Errorf("expected collapsed snapshot, got %+v", snap)
	}
}

func TestSaveRestoreRoundTrip(t *testing.T) {
	v := testReader(t, "<p>the quick brown fox</p>", 60)
	v.selActive = true
	v.selInRoot = true
	v.selAnchor = 4
	v.selHead = 15

	saved, err := v.Save()
	if err != nil {
		t.Fatalf("Save: %v", err)
	}

	v.ClearSelection()
	if snap, _ := v.Snapshot(); !snap.Collapsed() {
		t.Fatal("selection survived ClearSelection")
	}

	if err := v.Restore(saved.Clone()); err != nil {
		t.Fatalf("Restore: %v", err)
	}
	snap, _ := v.Snapshot()
	if snap.Text != "quick brown" {
		t.Errorf("restored text = %q", snap.Text)
	}
}

func TestRestoreClampsToDocument(t *testing.T) {
	v := testReader(t, "<p>short</p>", 60)
	if err := v.Restore(&savedRange{anchor: 2, head: 400}); err != nil {
		t.Fatalf("Restore: %v", err)
	}
	snap, _ := v.Snapshot()
	if snap.Text != "ort" {
		t.Errorf("clamped text = %q", snap.Text)
	}
}

func TestRestoreRejectsForeignRange(t *testing.T) {
	v := testReader(t, "<p>text</p>", 60)
	if err := v.Restore(nil); err == nil {
		t.Error("expected error for nil range")
	}
}

func TestSelectionBoxSingleLine(t *testing.T) {
	v := testReader(t, "<p>the quick brown fox</p>", 60)
	box := v.selectionBox(4, 15)
	want := engine.Rect{X: contentLeft + 4, Y: contentTop, Width: 11, Height: 1}
	if box != want {
		t.Errorf("box = %+v, want %+v", box, want)
	}
}

func TestSelectionBoxSpansLines(t *testing.T) {
	// Width forces a wrap: "the quick" / "brown fox".
	v := NewReaderView(nil, nil, zap.NewNop())
	v.width = 9 + 2*contentLeft
	v.height = 12
	v.doc = content.Flatten("<p>the quick brown fox</p>")
	v.lines = content.WrapBlocks(v.doc.Blocks, 9)

	box := v.selectionBox(4, 15)
	if box.X != contentLeft || box.Height != 2 {
		t.Errorf("box = %+v", box)
	}
}

func TestOffsetAtCellClamps(t *testing.T) {
	v := testReader(t, "<p>the quick brown fox</p>", 60)

	if got := v.offsetAtCell(contentLeft+4, contentTop); got != 4 {
		t.Errorf("offset = %d, want 4", got)
	}
	// Off the left edge clamps to line start.
	if got := v.offsetAtCell(0, contentTop); got != 0 {
		t.Errorf("offset = %d, want 0", got)
	}
	// Below the content clamps to the last line.
	if got := v.offsetAtCell(contentLeft, 100); got != v.lines[len(v.lines)-1].Start {
		t.Errorf("offset = %d", got)
	}
}

func TestCenterOnClamps(t *testing.T) {
	v := testReader(t, "<p>one</p><p>two</p><p>three</p>", 60)
	v.CenterOn(0)
	if v.lineOffset != 0 {
		t.Errorf("lineOffset = %d, want 0", v.lineOffset)
	}
	v.CenterOn(1000)
	if v.lineOffset != v.clampOffset(1000) {
		t.Errorf("lineOffset = %d not clamped", v.lineOffset)
	}
}

func TestToolbarMatchesPositionerWidth(t *testing.T) {
	bar, ranges := renderToolbar()
	if w := ansi.StringWidth(bar); w != engine.ToolbarWidth {
		t.Errorf("toolbar width = %d, want %d", w, engine.ToolbarWidth)
	}
	if len(ranges) != len(toolbarActions) {
		t.Fatalf("got %d ranges, want %d", len(ranges), len(toolbarActions))
	}
	prev := 0
	for i, r := range ranges {
		if r[0] < prev || r[1] <= r[0] {
			t.Errorf("range %d = %v out of order", i, r)
		}
		prev = r[1]
	}
	if prev > engine.ToolbarWidth {
		t.Errorf("ranges end at %d, beyond toolbar width", prev)
	}
}

func TestOverlayAt(t *testing.T) {
	got := overlayAt("abcdefghij", "XYZ", 3)
	if got != "abcXYZghij" {
		t.Errorf("overlayAt = %q", got)
	}

	// Base shorter than the splice column gets padded.
	got = overlayAt("ab", "XY", 4)
	if got != "ab  XY" {
		t.Errorf("overlayAt = %q", got)
	}

	// Overlay past the end of base leaves no right remainder.
	got = overlayAt("abcdef", "XYZ", 4)
	if got != "abcdXYZ" {
		t.Errorf("overlayAt = %q", got)
	}
}
