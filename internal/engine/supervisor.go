package engine

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"
)

// Supervision timing. The keep-alive window bounds how long a captured
// selection is defended; within it the selection is inspected on every
// tick.
const (
	keepAliveWindow = 10 * time.Second
	watchInterval   = 400 * time.Millisecond
)

type watchTickMsg struct {
	gen int
	now time.Time
}

// Supervisor defends a just-captured selection against being silently
// collapsed by unrelated re-renders. It is a two-state machine, Idle
// and Watching: while watching, any collapsed reading triggers a
// best-effort restore from the saved range until the window elapses or
// a commit stops it. Only one tick chain is ever live; starting again
// abandons the previous chain through the generation check.
type Supervisor struct {
	platform Platform
	log      *zap.Logger

	gen      int
	watching bool
	deadline time.Time
	saved    SavedRange
}

// NewSupervisor creates an idle supervisor.
func NewSupervisor(platform Platform, log *zap.Logger) *Supervisor {
	if log == nil {
		log = zap.NewNop()
	}
	return &Supervisor{platform: platform, log: log}
}

// Start enters Watching for the keep-alive window measured from now.
// A nil saved range leaves the supervisor idle: there is nothing to
// restore from.
func (s *Supervisor) Start(saved SavedRange, now time.Time) tea.Cmd {
	s.gen++
	if saved == nil {
		s.watching = false
		s.saved = nil
		return nil
	}
	s.watching = true
	s.saved = saved
	s.deadline = now.Add(keepAliveWindow)
	return s.tick()
}

// Stop returns to Idle immediately. Any in-flight tick becomes stale.
func (s *Supervisor) Stop() {
	s.gen++
	s.watching = false
	s.saved = nil
}

// Watching reports whether the supervisor is defending a selection.
func (s *Supervisor) Watching() bool {
	return s.watching
}

// Update handles supervision ticks.
func (s *Supervisor) Update(msg tea.Msg) tea.Cmd {
	tick, ok := msg.(watchTickMsg)
	if !ok || tick.gen != s.gen || !s.watching {
		return nil
	}
	if tick.now.After(s.deadline) {
		s.watching = false
		s.saved = nil
		return nil
	}

	snap, err := s.platform.Snapshot()
	if err != nil {
		// An unreadable selection counts as empty, same as the
		// capturer's read path.
		s.log.Debug("supervisor selection read failed", zap.Error(err))
		snap = Snapshot{}
	}
	if snap.Collapsed() && s.saved != nil {
		// Restoration consumes the handle it is given, so always hand
		// the platform a clone and keep the original for next time.
		if err := s.platform.Restore(s.saved.Clone()); err != nil {
			// Backing content may have been detached; keep watching
			// until the window expires.
			s.log.Debug("selection restore failed", zap.Error(err))
		}
	}
	return s.tick()
}

func (s *Supervisor) tick() tea.Cmd {
	gen := s.gen
	return tea.Tick(watchInterval, func(now time.Time) tea.Msg {
		return watchTickMsg{gen: gen, now: now}
	})
}
