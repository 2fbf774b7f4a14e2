package views

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/tmarkley/marginalia/internal/config"
	"github.com/tmarkley/marginalia/internal/store"
	"github.com/tmarkley/marginalia/internal/ui/styles"
	"github.com/tmarkley/marginalia/pkg/models"
)

// LibraryView displays the local book library
type LibraryView struct {
	store  *store.Store
	config *config.Config

	// Books
	books  []models.Book
	cursor int
	offset int // For scrolling

	// State
	recentMode bool
	loading    bool
	err        error

	// Dimensions
	width  int
	height int
}

// NewLibraryView creates a new library view
func NewLibraryView(st *store.Store, cfg *config.Config) *LibraryView {
	return &LibraryView{
		store:  st,
		config: cfg,
		width:  80,
		height: 24,
	}
}

// booksLoadedMsg is sent when books are loaded
type booksLoadedMsg struct {
	books []models.Book
	err   error
}

// Init implements View
func (v *LibraryView) Init() tea.Cmd {
	v.loading = true
	return v.loadBooks()
}

// Update implements View
func (v *LibraryView) Update(msg tea.Msg) (View, tea.Cmd) {
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
			v.cursor = len(v.books) - 1
			v.updateOffset()
		case "ctrl+d", "pgdown":
			v.moveCursor(v.visibleLines() / 2)
		case "ctrl+u", "pgup":
			v.moveCursor(-v.visibleLines() / 2)
		case "enter":
			if len(v.books) > 0 && v.cursor < len(v.books) {
				book := v.books[v.cursor]
				return v, func() tea.Msg {
					return OpenBookMsg{Book: book}
				}
			}
		case "m":
			if len(v.books) > 0 && v.cursor < len(v.books) {
				book := v.books[v.cursor]
				return v, func() tea.Msg {
					return OpenNotesMsg{Book: book}
				}
			}
		case "R":
			// Toggle recently read filter
			v.recentMode = !v.recentMode
			v.cursor = 0
			v.offset = 0
			return v, v.loadBooks()
		case "r":
			return v, v.loadBooks()
		}

	case booksLoadedMsg:
		v.loading = false
		if msg.err != nil {
			v.err = msg.err
			return v, nil
		}
		v.books = msg.books
		v.err = nil
		if v.cursor >= len(v.books) {
			v.cursor = max(0, len(v.books)-1)
		}
		return v, nil
	}

	return v, nil
}

// View implements View
func (v *LibraryView) View() string {
	var b strings.Builder

	b.WriteString(v.renderHeader() + "\n")

	if v.loading {
		content := lipgloss.Place(
			v.width,
			v.height-4,
			lipgloss.Center,
			lipgloss.Center,
			styles.MutedText.Render("Loading library..."),
		)
		b.WriteString(content)
		return b.String()
	}

	if v.err != nil {
		content := lipgloss.Place(
			v.width,
			v.height-4,
			lipgloss.Center,
			lipgloss.Center,
			styles.ErrorStyle.Render("Error: "+v.err.Error()),
		)
		b.WriteString(content)
		return b.String()
	}

	if len(v.books) == 0 {
		content := lipgloss.Place(
			v.width,
			v.height-4,
			lipgloss.Center,
			lipgloss.Center,
			styles.MutedText.Render("No books yet. Import one with marginalia -import <file>."),
		)
		b.WriteString(content)
		return b.String()
	}

	visibleLines := v.visibleLines()
	for i := v.offset; i < min(v.offset+visibleLines, len(v.books)); i++ {
		b.WriteString(v.renderBookLine(v.books[i], i == v.cursor) + "\n")
	}

	b.WriteString("\n")
	b.WriteString(v.renderFooter())

	return b.String()
}

// SetSize implements View
func (v *LibraryView) SetSize(width, height int) {
	v.width = width
	v.height = height
}

// renderHeader renders the header bar
func (v *LibraryView) renderHeader() string {
	titleText := " Library "
	if v.recentMode {
		titleText = " Recently Read "
	}
	title := styles.TitleBar.Render(titleText)
	count := styles.Help.Render(fmt.Sprintf(" %d books ", len(v.books)))

	gap := v.width - lipgloss.Width(title) - lipgloss.Width(count)
	if gap < 0 {
		gap = 0
	}
	return title + strings.Repeat(" ", gap) + count
}

// renderBookLine renders a single book line
func (v *LibraryView) renderBookLine(book models.Book, selected bool) string {
	line := book.Title
	if book.Author != "" {
		line += " - " + book.Author
	}
	line = styles.TruncateText(line, max(10, v.width-6))

	if selected {
		return styles.ListItemSelected.Width(v.width).Render("▸ " + line)
	}
	return styles.ListItem.Render("  " + line)
}

// renderFooter renders the footer help
func (v *LibraryView) renderFooter() string {
	help := []string{
		styles.HelpKey.Render("j/k") + styles.Help.Render(" nav"),
		styles.HelpKey.Render("enter") + styles.Help.Render(" read"),
		styles.HelpKey.Render("m") + styles.Help.Render(" notes"),
		styles.HelpKey.Render("R") + styles.Help.Render(" recent"),
		styles.HelpKey.Render("r") + styles.Help.Render(" refresh"),
		styles.HelpKey.Render("q") + styles.Help.Render(" quit"),
	}
	return strings.Join(help, "  ")
}

// loadBooks fetches books from the store
func (v *LibraryView) loadBooks() tea.Cmd {
	recentOnly := v.recentMode
	var recentIDs []int64
	if recentOnly && v.config != nil {
		recentIDs = v.config.GetRecentlyReadIDs()
	}
	return func() tea.Msg {
		books, err := v.store.Books()
		if err != nil {
			return booksLoadedMsg{err: err}
		}
		if recentOnly {
			books = orderByRecency(books, recentIDs)
		}
		return booksLoadedMsg{books: books}
	}
}

// orderByRecency filters books down to the recently-read list, most
// recent first.
func orderByRecency(books []models.Book, ids []int64) []models.Book {
	byID := make(map[int64]models.Book, len(books))
	for _, b := range books {
		byID[b.ID] = b
	}
	out := make([]models.Book, 0, len(ids))
	for _, id := range ids {
		if b, ok := byID[id]; ok {
			out = append(out, b)
		}
	}
	return out
}

// moveCursor moves the cursor by delta
func (v *LibraryView) moveCursor(delta int) {
	v.cursor += delta
	if v.cursor >= len(v.books) {
		v.cursor = len(v.books) - 1
	}
	if v.cursor < 0 {
		v.cursor = 0
	}
	v.updateOffset()
}

// updateOffset ensures the cursor is visible
func (v *LibraryView) updateOffset() {
	visibleLines := v.visibleLines()
	if v.cursor < v.offset {
		v.offset = v.cursor
	}
	if v.cursor >= v.offset+visibleLines {
		v.offset = v.cursor - visibleLines + 1
	}
}

// visibleLines returns the number of visible book lines
func (v *LibraryView) visibleLines() int {
	lines := v.height - 5
	if lines < 1 {
		lines = 1
	}
	return lines
}
