package engine

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/tmarkley/marginalia/pkg/models"
)

// Callbacks are the external collaborator calls fired on commit. The
// engine itself never persists anything; these are the only mutation
// paths out of it. Any callback may be nil.
type Callbacks struct {
	Annotate   func(text string, kind models.AnnotationKind) tea.Cmd
	CreateNote func(text string) tea.Cmd
	Explain    func(text string) tea.Cmd
}

// Dispatcher turns toolbar actions into collaborator calls and tears
// the selection state down. Every commit path ends in the same
// teardown: supervisor stopped, record and saved range dropped, native
// selection cleared, so no tick can fire after a commit returns.
type Dispatcher struct {
	capture    *Capturer
	supervisor *Supervisor
	platform   Platform
	cb         Callbacks
}

// NewDispatcher wires a dispatcher over the capture and supervision
// components it tears down.
func NewDispatcher(capture *Capturer, supervisor *Supervisor, platform Platform, cb Callbacks) *Dispatcher {
	return &Dispatcher{capture: capture, supervisor: supervisor, platform: platform, cb: cb}
}

// CommitAnnotate commits the live selection as a highlight or
// underline. A missing or empty record is a no-op.
func (d *Dispatcher) CommitAnnotate(kind models.AnnotationKind) tea.Cmd {
	text, ok := d.take()
	if !ok {
		return nil
	}
	if d.cb.Annotate == nil {
		return nil
	}
	return d.cb.Annotate(text, kind)
}

// CommitCreateNote commits the live selection as a note request.
func (d *Dispatcher) CommitCreateNote() tea.Cmd {
	text, ok := d.take()
	if !ok {
		return nil
	}
	if d.cb.CreateNote == nil {
		return nil
	}
	return d.cb.CreateNote(text)
}

// CommitExplain commits the live selection as an explain request.
func (d *Dispatcher) CommitExplain() tea.Cmd {
	text, ok := d.take()
	if !ok {
		return nil
	}
	if d.cb.Explain == nil {
		return nil
	}
	return d.cb.Explain(text)
}

// Cancel discards the live selection without firing any collaborator.
func (d *Dispatcher) Cancel() {
	d.teardown()
}

// take reads the live record's text and tears down. Returns false when
// there is no committable selection, in which case nothing changes.
func (d *Dispatcher) take() (string, bool) {
	rec := d.capture.Record()
	if rec == nil || rec.Text == "" {
		return "", false
	}
	text := rec.Text
	d.teardown()
	return text, true
}

func (d *Dispatcher) teardown() {
	d.supervisor.Stop()
	d.capture.Clear()
	d.platform.ClearSelection()
}
