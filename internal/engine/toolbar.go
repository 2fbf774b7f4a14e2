package engine

// Toolbar geometry assumed by the positioner. The rendered action bar
// is one row high and a fixed width in cells.
const (
	ToolbarWidth  = 38
	ToolbarHeight = 1

	toolbarPadding = 1
	toolbarGap     = 1
)

// Place computes a clamped on-screen position for the floating action
// toolbar from the selection's bounding box and the viewport size.
// Pure function of its inputs; recomputed whenever the box changes.
//
// The toolbar sits horizontally centered on the selection and one row
// above it. When that would leave the viewport at the top it flips
// below the selection; when both directions overflow it clamps to the
// padding edge.
func Place(box Rect, viewport Size) Point {
	left := box.X + box.Width/2 - ToolbarWidth/2
	maxLeft := viewport.Width - toolbarPadding - ToolbarWidth
	if left > maxLeft {
		left = maxLeft
	}
	if left < toolbarPadding {
		left = toolbarPadding
	}

	top := box.Y - toolbarGap - ToolbarHeight
	if top < toolbarPadding {
		top = box.Y + box.Height + toolbarGap
	}
	if top > viewport.Height-toolbarPadding-ToolbarHeight {
		top = toolbarPadding
	}

	return Point{Left: left, Top: top}
}
