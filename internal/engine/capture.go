package engine

import (
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"
)

// Capture timing. The read is deferred after pointer release so the
// platform finishes settling its selection state before we look at it;
// a zero-length reading is only believed after the longer confirm
// delay, because mid-drag reads transiently report empty.
const (
	captureDelay      = 30 * time.Millisecond
	clearConfirmDelay = 120 * time.Millisecond
)

// CapturedMsg is emitted when a selection was captured successfully.
type CapturedMsg struct {
	Record SelectionRecord
}

// ClearedMsg is emitted when a previously captured selection is gone
// and the zero-length reading has been confirmed as real.
type ClearedMsg struct{}

type captureReadMsg struct {
	gen int
}

type clearConfirmMsg struct {
	gen int
}

// Capturer reads the platform selection after a pointer release and
// turns it into at most one live SelectionRecord.
type Capturer struct {
	platform Platform
	log      *zap.Logger

	gen    int
	record *SelectionRecord
	saved  SavedRange
}

// NewCapturer creates a capturer over the given platform.
func NewCapturer(platform Platform, log *zap.Logger) *Capturer {
	if log == nil {
		log = zap.NewNop()
	}
	return &Capturer{platform: platform, log: log}
}

// PointerReleased schedules a debounced selection read. A newer
// release supersedes any pending one.
func (c *Capturer) PointerReleased() tea.Cmd {
	c.gen++
	gen := c.gen
	return tea.Tick(captureDelay, func(time.Time) tea.Msg {
		return captureReadMsg{gen: gen}
	})
}

// Update handles the capturer's own tick messages.
func (c *Capturer) Update(msg tea.Msg) tea.Cmd {
	switch msg := msg.(type) {
	case captureReadMsg:
		if msg.gen != c.gen {
			return nil
		}
		return c.read()
	case clearConfirmMsg:
		if msg.gen != c.gen {
			return nil
		}
		return c.confirmClear()
	}
	return nil
}

// Record returns the live selection record, or nil.
func (c *Capturer) Record() *SelectionRecord {
	return c.record
}

// Saved returns the saved range snapshotted at capture time, or nil.
func (c *Capturer) Saved() SavedRange {
	return c.saved
}

// Clear drops the record and saved range. Used by the commit path.
func (c *Capturer) Clear() {
	c.gen++
	c.record = nil
	c.saved = nil
}

func (c *Capturer) read() tea.Cmd {
	snap, err := c.platform.Snapshot()
	if err != nil {
		// A momentarily unreadable selection counts as empty.
		c.log.Debug("selection read failed", zap.Error(err))
		snap = Snapshot{}
	}

	text := strings.TrimSpace(snap.Text)
	if text == "" {
		if c.record == nil {
			return nil
		}
		// Possibly a transient artifact of an in-progress drag; only
		// believe it after the confirm delay.
		gen := c.gen
		return tea.Tick(clearConfirmDelay, func(time.Time) tea.Msg {
			return clearConfirmMsg{gen: gen}
		})
	}

	if !snap.InRoot {
		// Selection leaked outside the content root (toolbar chrome,
		// sibling panels). Deliberate rejection, not an error.
		return nil
	}

	c.record = &SelectionRecord{Text: text, Box: snap.Box}
	saved, err := c.platform.Save()
	if err != nil {
		c.log.Debug("saving selection range failed", zap.Error(err))
		saved = nil
	}
	c.saved = saved

	record := *c.record
	return func() tea.Msg {
		return CapturedMsg{Record: record}
	}
}

func (c *Capturer) confirmClear() tea.Cmd {
	snap, err := c.platform.Snapshot()
	if err == nil && strings.TrimSpace(snap.Text) != "" {
		// The selection came back; the empty reading was transient.
		return nil
	}
	c.record = nil
	c.saved = nil
	return func() tea.Msg {
		return ClearedMsg{}
	}
}
