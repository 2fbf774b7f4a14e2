package engine

import "testing"

func TestPlace(t *testing.T) {
	viewport := Size{Width: 100, Height: 40}

	tests := []struct {
		name string
		box  Rect
		want Point
	}{
		{
			name: "centered above the selection",
			box:  Rect{X: 40, Y: 20, Width: 10, Height: 1},
			want: Point{Left: 40 + 5 - ToolbarWidth/2, Top: 20 - toolbarGap - ToolbarHeight},
		},
		{
			name: "clamped at the right edge",
			box:  Rect{X: 90, Y: 20, Width: 8, Height: 1},
			want: Point{Left: 100 - toolbarPadding - ToolbarWidth, Top: 18},
		},
		{
			name: "clamped at the left edge",
			box:  Rect{X: 0, Y: 20, Width: 4, Height: 1},
			want: Point{Left: toolbarPadding, Top: 18},
		},
		{
			name: "flipped below a selection at the top",
			box:  Rect{X: 40, Y: 0, Width: 10, Height: 2},
			want: Point{Left: 26, Top: 0 + 2 + toolbarGap},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Place(tt.box, viewport)
			if got != tt.want {
				t.Errorf("Place(%+v) = %+v, want %+v", tt.box, got, tt.want)
			}
		})
	}
}

// A bounding box hugging the right edge must still leave the whole
// toolbar inside the padded viewport.
func TestPlaceKeepsToolbarInsideViewport(t *testing.T) {
	viewport := Size{Width: 120, Height: 30}
	box := Rect{X: viewport.Width - 10, Y: 15, Width: 10, Height: 1}

	got := Place(box, viewport)
	if got.Left < toolbarPadding {
		t.Errorf("left %d crosses the left padding", got.Left)
	}
	if got.Left+ToolbarWidth > viewport.Width-toolbarPadding {
		t.Errorf("toolbar [%d, %d) crosses the right padding at %d",
			got.Left, got.Left+ToolbarWidth, viewport.Width-toolbarPadding)
	}
}

// When the selection sits at the very top of a tiny viewport, flipping
// below would overflow the bottom; the position clamps to padding.
func TestPlaceClampsWhenBothDirectionsOverflow(t *testing.T) {
	viewport := Size{Width: 100, Height: 3}
	box := Rect{X: 40, Y: 0, Width: 10, Height: 2}

	got := Place(box, viewport)
	if got.Top != toolbarPadding {
		t.Errorf("top = %d, want padding clamp %d", got.Top, toolbarPadding)
	}
}
