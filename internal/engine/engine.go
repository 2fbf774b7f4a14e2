// Package engine keeps a reader's text selection alive across UI
// re-renders and turns committed selections into annotation, note and
// explain actions.
//
// The engine never owns the selection primitive: the hosting view can
// rewrap or regenerate its content at any time, silently collapsing an
// in-flight selection. Everything here is written for that
// interleaving. All timing runs through bubbletea tick commands whose
// messages carry a generation number, so a tick from a chain that was
// cancelled after the command was issued is dropped instead of firing
// once more.
package engine

import (
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"
)

// Rect is a bounding box in content-root cell coordinates.
type Rect struct {
	X, Y, Width, Height int
}

// Size is a viewport extent in cells.
type Size struct {
	Width, Height int
}

// Point is a computed toolbar placement.
type Point struct {
	Left, Top int
}

// SelectionRecord is the single live in-progress selection. At most
// one exists at a time; it is destroyed on commit, cancel, or when the
// platform reports the selection gone for real.
type SelectionRecord struct {
	Text string
	Box  Rect
}

// SavedRange is an opaque snapshot of the selection extent at capture
// time, used only for restoration. Restoring can consume the handle,
// so it is cloned before every restoration attempt.
type SavedRange interface {
	Clone() SavedRange
}

// Snapshot is one reading of the platform's current selection.
type Snapshot struct {
	Text   string
	Box    Rect
	InRoot bool
}

// Collapsed reports whether the snapshot holds no usable selection.
func (s Snapshot) Collapsed() bool {
	return strings.TrimSpace(s.Text) == ""
}

// Platform is the externally mutable selection primitive the engine
// supervises. The hosting view implements it; tests use a fake.
type Platform interface {
	// Snapshot reads the current selection. An error is treated as an
	// empty reading.
	Snapshot() (Snapshot, error)
	// Save captures the current selection extent for later restoration.
	Save() (SavedRange, error)
	// Restore reapplies a previously saved extent. The argument may be
	// consumed; callers pass a clone.
	Restore(SavedRange) error
	// ClearSelection drops the native selection.
	ClearSelection()
}

// Locator resolves annotation markers inside the rendered content for
// the jump controller.
type Locator interface {
	// Locate returns the content line carrying the marker for id.
	Locate(id int64) (line int, ok bool)
	// CenterOn scrolls the given line into the middle of the viewport.
	CenterOn(line int)
}

// Engine wires the capture, supervision, commit and jump components
// over one platform. The hosting view forwards pointer releases and
// every message from its Update loop.
type Engine struct {
	Capture    *Capturer
	Supervisor *Supervisor
	Dispatch   *Dispatcher
	Jump       *Jump
}

// New creates an engine. log may be nil.
func New(platform Platform, locator Locator, cb Callbacks, log *zap.Logger) *Engine {
	if log == nil {
		log = zap.NewNop()
	}
	capture := NewCapturer(platform, log)
	supervisor := NewSupervisor(platform, log)
	return &Engine{
		Capture:    capture,
		Supervisor: supervisor,
		Dispatch:   NewDispatcher(capture, supervisor, platform, cb),
		Jump:       NewJump(locator),
	}
}

// PointerReleased begins a debounced capture of the current selection.
func (e *Engine) PointerReleased() tea.Cmd {
	return e.Capture.PointerReleased()
}

// Update advances the engine's component state machines. A successful
// capture starts the supervisor: within one gesture, capture always
// completes before supervision begins.
func (e *Engine) Update(msg tea.Msg) tea.Cmd {
	switch msg.(type) {
	case CapturedMsg:
		return e.Supervisor.Start(e.Capture.Saved(), time.Now())
	case ClearedMsg:
		// The record is gone for real; keeping the watcher alive would
		// resurrect a selection the user dismissed.
		e.Supervisor.Stop()
		return nil
	}
	return tea.Batch(
		e.Capture.Update(msg),
		e.Supervisor.Update(msg),
		e.Jump.Update(msg),
	)
}
