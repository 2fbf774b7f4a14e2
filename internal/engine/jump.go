package engine

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

// pulseDuration is how long a jumped-to marker stays visually pulsed.
const pulseDuration = 1200 * time.Millisecond

type pulseEndMsg struct {
	gen int
}

// Jump scrolls an annotation's rendered marker into view and plays a
// transient pulse on it. Re-entrant: jumping again before the pulse
// expires restarts it rather than stacking timers.
type Jump struct {
	locator Locator

	gen     int
	pulsing int64 // annotation id, 0 when no pulse is live
}

// NewJump creates a jump controller over the host's marker locator.
func NewJump(locator Locator) *Jump {
	return &Jump{locator: locator}
}

// To centers the marker for id and starts the pulse. Unknown ids are a
// no-op; the content may simply not be annotated yet.
func (j *Jump) To(id int64) tea.Cmd {
	line, ok := j.locator.Locate(id)
	if !ok {
		return nil
	}
	j.locator.CenterOn(line)
	j.gen++
	j.pulsing = id
	gen := j.gen
	return tea.Tick(pulseDuration, func(time.Time) tea.Msg {
		return pulseEndMsg{gen: gen}
	})
}

// Pulsing returns the annotation id currently pulsing, or 0.
func (j *Jump) Pulsing() int64 {
	return j.pulsing
}

// Update expires the pulse when its timer fires. A timer from a
// superseded jump is ignored.
func (j *Jump) Update(msg tea.Msg) tea.Cmd {
	if end, ok := msg.(pulseEndMsg); ok && end.gen == j.gen {
		j.pulsing = 0
	}
	return nil
}
