package engine

import (
	"testing"
	"time"
)

func TestSupervisorRestoresCollapsedSelection(t *testing.T) {
	p := &fakePlatform{snap: Snapshot{}} // collapsed from the start
	s := NewSupervisor(p, nil)
	base := time.Now()

	saved := &fakeRange{start: 3, end: 17}
	if cmd := s.Start(saved, base); cmd == nil {
		t.Fatal("Start returned no tick command")
	}

	// The selection collapsed 500ms in, well inside the window.
	cmd := s.Update(watchTickMsg{gen: s.gen, now: base.Add(500 * time.Millisecond)})
	if cmd == nil {
		t.Fatal("supervisor stopped ticking inside the window")
	}
	if len(p.restored) != 1 {
		t.Fatalf("got %d restorations, want 1", len(p.restored))
	}
	if p.restored[0] == saved {
		t.Error("supervisor handed the platform the original range, not a clone")
	}
	if p.restored[0].start != 3 || p.restored[0].end != 17 {
		t.Errorf("restored wrong extent: %+v", p.restored[0])
	}
	if saved.consumed {
		t.Error("original saved range was consumed; it must stay reusable")
	}
	if !s.Watching() {
		t.Error("supervisor left Watching after a restore")
	}
}

func TestSupervisorLeavesHealthySelectionAlone(t *testing.T) {
	p := &fakePlatform{snap: Snapshot{Text: "still here", InRoot: true}}
	s := NewSupervisor(p, nil)
	base := time.Now()

	s.Start(&fakeRange{end: 10}, base)
	s.Update(watchTickMsg{gen: s.gen, now: base.Add(watchInterval)})
	if len(p.restored) != 0 {
		t.Errorf("restored a non-collapsed selection %d times", len(p.restored))
	}
}

func TestSupervisorWindowExpires(t *testing.T) {
	p := &fakePlatform{}
	s := NewSupervisor(p, nil)
	base := time.Now()

	s.Start(&fakeRange{end: 5}, base)
	cmd := s.Update(watchTickMsg{gen: s.gen, now: base.Add(keepAliveWindow + time.Second)})
	if cmd != nil {
		t.Error("supervisor kept ticking past the keep-alive window")
	}
	if s.Watching() {
		t.Error("supervisor still Watching after the window elapsed")
	}
	if len(p.restored) != 0 {
		t.Error("restored after the window elapsed")
	}
}

func TestSupervisorStaleTickIgnored(t *testing.T) {
	p := &fakePlatform{}
	s := NewSupervisor(p, nil)
	base := time.Now()

	s.Start(&fakeRange{end: 5}, base)
	stale := s.gen
	s.Stop()

	// The tick scheduled before Stop still arrives; it must not fire.
	if cmd := s.Update(watchTickMsg{gen: stale, now: base.Add(watchInterval)}); cmd != nil {
		t.Error("stale tick rescheduled itself")
	}
	if len(p.restored) != 0 {
		t.Error("stale tick performed a restore")
	}
}

func TestSupervisorRestartCancelsPriorChain(t *testing.T) {
	p := &fakePlatform{}
	s := NewSupervisor(p, nil)
	base := time.Now()

	s.Start(&fakeRange{end: 5}, base)
	first := s.gen
	s.Start(&fakeRange{end: 9}, base)

	if cmd := s.Update(watchTickMsg{gen: first, now: base.Add(watchInterval)}); cmd != nil {
		t.Error("tick from the replaced chain fired")
	}
	if len(p.restored) > 1 {
		t.Error("orphaned chain kept restoring")
	}
}

func TestSupervisorRestoreFailureKeepsWatching(t *testing.T) {
	p := &fakePlatform{restoreErr: errUnreadable}
	s := NewSupervisor(p, nil)
	base := time.Now()

	s.Start(&fakeRange{end: 5}, base)
	cmd := s.Update(watchTickMsg{gen: s.gen, now: base.Add(watchInterval)})
	if cmd == nil {
		t.Error("restore failure stopped the watch; it should continue until the window expires")
	}
	if !s.Watching() {
		t.Error("restore failure left Watching")
	}
}

func TestSupervisorUnreadableSelectionTreatedAsCollapsed(t *testing.T) {
	p := &fakePlatform{snapErr: errUnreadable}
	s := NewSupervisor(p, nil)
	base := time.Now()

	s.Start(&fakeRange{start: 2, end: 8}, base)
	cmd := s.Update(watchTickMsg{gen: s.gen, now: base.Add(watchInterval)})
	if cmd == nil {
		t.Error("read failure stopped the watch")
	}
	if len(p.restored) != 1 {
		t.Fatalf("got %d restorations, want 1", len(p.restored))
	}
	if p.restored[0].start != 2 || p.restored[0].end != 8 {
		t.Errorf("restored wrong extent: %+v", p.restored[0])
	}
}

func TestSupervisorNilSavedStaysIdle(t *testing.T) {
	s := NewSupervisor(&fakePlatform{}, nil)
	if cmd := s.Start(nil, time.Now()); cmd != nil {
		t.Error("Start with no saved range scheduled a tick")
	}
	if s.Watching() {
		t.Error("Watching with nothing to restore from")
	}
}
