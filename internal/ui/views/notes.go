package views

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/tmarkley/marginalia/internal/store"
	"github.com/tmarkley/marginalia/internal/ui/styles"
	"github.com/tmarkley/marginalia/pkg/models"
)

// NotesView lists a book's notes and annotations. Selecting an entry
// jumps to its marker in the reader; deleting soft-deletes the row.
type NotesView struct {
	store *store.Store

	book   *models.Book
	notes  []models.Note
	cursor int
	offset int

	loading bool
	err     error

	width  int
	height int
}

// NewNotesView creates a new notes view
func NewNotesView(st *store.Store) *NotesView {
	return &NotesView{
		store:  st,
		width:  80,
		height: 24,
	}
}

// SetBook sets the book whose notes are listed
func (v *NotesView) SetBook(book models.Book) {
	v.book = &book
	v.notes = nil
	v.cursor = 0
	v.offset = 0
	v.err = nil
}

type notesLoadedMsg struct {
	notes []models.Note
	err   error
}

type noteDeletedMsg struct {
	err error
}

// Init implements View
func (v *NotesView) Init() tea.Cmd {
	if v.book == nil {
		return nil
	}
	v.loading = true
	return v.loadNotes()
}

// Update implements View
func (v *NotesView) Update(msg tea.Msg) (View, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "j", "down":
			v.moveCursor(1)
		case "k", "up":
			v.moveCursor(-1)
		case "g", "home":
			v.cursor = 0
			v.offset = 0
		case "G", "end":
			v.cursor = len(v.notes) - 1
			v.updateOffset()
		case "enter":
			if v.book != nil && len(v.notes) > 0 && v.cursor < len(v.notes) {
				n := v.notes[v.cursor]
				book := *v.book
				return v, func() tea.Msg {
					return JumpToAnnotationMsg{
						Book:         book,
						ChapterIndex: n.ChapterIndex,
						AnnotationID: n.ID,
					}
				}
			}
		case "d", "x":
			if len(v.notes) > 0 && v.cursor < len(v.notes) {
				return v, v.deleteNote(v.notes[v.cursor].ID)
			}
		case "r":
			return v, v.loadNotes()
		case "esc", "q":
			return v, SwitchTo(ViewLibrary)
		}

	case notesLoadedMsg:
		v.loading = false
		if msg.err != nil {
			v.err = msg.err
			return v, nil
		}
		v.notes = msg.notes
		v.err = nil
		if v.cursor >= len(v.notes) {
			v.cursor = max(0, len(v.notes)-1)
		}
		return v, nil

	case noteDeletedMsg:
		if msg.err != nil {
			v.err = msg.err
			return v, nil
		}
		return v, v.loadNotes()
	}

	return v, nil
}

// View implements View
func (v *NotesView) View() string {
	var b strings.Builder

	b.WriteString(v.renderHeader() + "\n")

	if v.loading {
		b.WriteString(lipgloss.Place(v.width, v.height-4, lipgloss.Center, lipgloss.Center,
			styles.MutedText.Render("Loading notes...")))
		return b.String()
	}
	if v.err != nil {
		b.WriteString(lipgloss.Place(v.width, v.height-4, lipgloss.Center, lipgloss.Center,
			styles.ErrorStyle.Render("Error: "+v.err.Error())))
		return b.String()
	}
	if len(v.notes) == 0 {
		b.WriteString(lipgloss.Place(v.width, v.height-4, lipgloss.Center, lipgloss.Center,
			styles.MutedText.Render("No notes for this book yet.")))
		return b.String()
	}

	visibleLines := v.visibleLines()
	for i := v.offset; i < min(v.offset+visibleLines, len(v.notes)); i++ {
		b.WriteString(v.renderNoteLine(v.notes[i], i == v.cursor) + "\n")
	}

	b.WriteString("\n")
	b.WriteString(v.renderFooter())

	return b.String()
}

// SetSize implements View
func (v *NotesView) SetSize(width, height int) {
	v.width = width
	v.height = height
}

func (v *NotesView) renderHeader() string {
	titleText := " Notes "
	if v.book != nil {
		titleText = " Notes: " + styles.TruncateText(v.book.Title, v.width/2) + " "
	}
	title := styles.TitleBar.Render(titleText)
	count := styles.Help.Render(fmt.Sprintf(" %d entries ", len(v.notes)))

	gap := v.width - lipgloss.Width(title) - lipgloss.Width(count)
	if gap < 0 {
		gap = 0
	}
	return title + strings.Repeat(" ", gap) + count
}

func (v *NotesView) renderNoteLine(n models.Note, selected bool) string {
	kind := "note"
	switch n.AnnotationType {
	case string(models.KindHighlight):
		kind = "highlight"
	case string(models.KindUnderline):
		kind = "underline"
	}

	snippet := n.HighlightedText
	if snippet == "" {
		snippet = n.Title
	}
	line := fmt.Sprintf("[%s] ch %d  %s", kind, n.ChapterIndex+1, snippet)
	if n.Content != "" {
		line += "  — " + n.Content
	}
	line = styles.TruncateText(line, max(10, v.width-6))

	if selected {
		return styles.ListItemSelected.Width(v.width).Render("▸ " + line)
	}
	return styles.ListItem.Render("  " + line)
}

func (v *NotesView) renderFooter() string {
	help := []string{
		styles.HelpKey.Render("j/k") + styles.Help.Render(" nav"),
		styles.HelpKey.Render("enter") + styles.Help.Render(" jump"),
		styles.HelpKey.Render("d") + styles.Help.Render(" delete"),
		styles.HelpKey.Render("esc") + styles.Help.Render(" back"),
	}
	return strings.Join(help, "  ")
}

func (v *NotesView) loadNotes() tea.Cmd {
	if v.book == nil {
		return nil
	}
	bookID := v.book.ID
	return func() tea.Msg {
		notes, err := v.store.Notes(bookID)
		return notesLoadedMsg{notes: notes, err: err}
	}
}

func (v *NotesView) deleteNote(id int64) tea.Cmd {
	return func() tea.Msg {
		return noteDeletedMsg{err: v.store.DeleteNote(id)}
	}
}

func (v *NotesView) moveCursor(delta int) {
	v.cursor += delta
	if v.cursor >= len(v.notes) {
		v.cursor = len(v.notes) - 1
	}
	if v.cursor < 0 {
		v.cursor = 0
	}
	v.updateOffset()
}

func (v *NotesView) updateOffset() {
	visibleLines := v.visibleLines()
	if v.cursor < v.offset {
		v.offset = v.cursor
	}
	if v.cursor >= v.offset+visibleLines {
		v.offset = v.cursor - visibleLines + 1
	}
}

func (v *NotesView) visibleLines() int {
	lines := v.height - 5
	if lines < 1 {
		lines = 1
	}
	return lines
}
