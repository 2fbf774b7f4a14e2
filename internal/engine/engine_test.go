package engine

import (
	"errors"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
)

// fakeRange is a SavedRange backed by plain offsets. Restoring it
// marks it consumed so tests can verify the engine only ever hands the
// platform clones.
type fakeRange struct {
	start, end int
	consumed   bool
}

func (r *fakeRange) Clone() SavedRange {
	return &fakeRange{start: r.start, end: r.end}
}

// fakePlatform is a scriptable selection primitive.
type fakePlatform struct {
	snap       Snapshot
	snapErr    error
	saveErr    error
	restoreErr error

	saved    *fakeRange
	restored []*fakeRange
	cleared  int
}

func (p *fakePlatform) Snapshot() (Snapshot, error) {
	if p.snapErr != nil {
		return Snapshot{}, p.snapErr
	}
	return p.snap, nil
}

func (p *fakePlatform) Save() (SavedRange, error) {
	if p.saveErr != nil {
		return nil, p.saveErr
	}
	p.saved = &fakeRange{start: 0, end: len(p.snap.Text)}
	return p.saved, nil
}

func (p *fakePlatform) Restore(r SavedRange) error {
	if p.restoreErr != nil {
		return p.restoreErr
	}
	fr := r.(*fakeRange)
	fr.consumed = true
	p.restored = append(p.restored, fr)
	p.snap = Snapshot{Text: "restored", InRoot: true}
	return nil
}

func (p *fakePlatform) ClearSelection() {
	p.cleared++
	p.snap = Snapshot{}
}

var errUnreadable = errors.New("selection unreadable")

// runMsg executes a command and returns the message it produces, or
// nil. Only used for commands that complete immediately.
func runMsg(cmd tea.Cmd) tea.Msg {
	if cmd == nil {
		return nil
	}
	return cmd()
}

func TestCaptureStartsSupervision(t *testing.T) {
	p := &fakePlatform{snap: Snapshot{Text: "a passage", InRoot: true}}
	e := New(p, nil, Callbacks{}, nil)

	e.PointerReleased()
	msg := runMsg(e.Capture.Update(captureReadMsg{gen: e.Capture.gen}))
	if _, ok := msg.(CapturedMsg); !ok {
		t.Fatalf("expected CapturedMsg, got %T", msg)
	}

	e.Update(msg)
	if !e.Supervisor.Watching() {
		t.Error("supervisor should be watching after capture")
	}
}

func TestConfirmedClearStopsSupervision(t *testing.T) {
	p := &fakePlatform{snap: Snapshot{Text: "a passage", InRoot: true}}
	e := New(p, nil, Callbacks{}, nil)

	e.PointerReleased()
	msg := runMsg(e.Capture.Update(captureReadMsg{gen: e.Capture.gen}))
	e.Update(msg)
	if !e.Supervisor.Watching() {
		t.Fatal("supervisor should be watching after capture")
	}

	// Selection disappears and the empty reading is confirmed.
	p.snap = Snapshot{}
	msg = runMsg(e.Capture.Update(clearConfirmMsg{gen: e.Capture.gen}))
	if _, ok := msg.(ClearedMsg); !ok {
		t.Fatalf("expected ClearedMsg, got %T", msg)
	}

	e.Update(msg)
	if e.Supervisor.Watching() {
		t.Error("supervisor kept defending a selection the user dismissed")
	}
	if len(p.restored) != 0 {
		t.Errorf("platform saw %d restorations", len(p.restored))
	}
}
