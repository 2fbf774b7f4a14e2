package ui

import (
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"go.uber.org/zap"

	"github.com/tmarkley/marginalia/internal/config"
	"github.com/tmarkley/marginalia/internal/explain"
	"github.com/tmarkley/marginalia/internal/store"
	"github.com/tmarkley/marginalia/internal/ui/styles"
	"github.com/tmarkley/marginalia/internal/ui/views"
)

// App is the main application model
type App struct {
	config *config.Config
	keys   KeyMap

	// Current view state
	currentView views.ViewType

	// Window dimensions
	width  int
	height int

	// View models
	libraryView views.View
	readerView  views.View
	notesView   views.View

	err      error
	showHelp bool
}

// NewApp creates a new application instance
func NewApp(cfg *config.Config, st *store.Store, log *zap.Logger) *App {
	ex := explain.NewClient(cfg.Explain.BaseURL, cfg.Explain.APIKey, cfg.Explain.Model)

	return &App{
		config:      cfg,
		keys:        DefaultKeyMap(),
		currentView: views.ViewLibrary,
		width:       80,
		height:      24,
		libraryView: views.NewLibraryView(st, cfg),
		readerView:  views.NewReaderView(st, ex, log),
		notesView:   views.NewNotesView(st),
	}
}

// Init implements tea.Model
func (a *App) Init() tea.Cmd {
	return tea.Batch(
		a.getCurrentView().Init(),
		tea.SetWindowTitle("marginalia"),
	)
}

// Update implements tea.Model
func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		a.libraryView.SetSize(msg.Width, msg.Height)
		a.readerView.SetSize(msg.Width, msg.Height)
		a.notesView.SetSize(msg.Width, msg.Height)
		return a, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, a.keys.Quit):
			a.saveOnExit()
			return a, tea.Quit

		case key.Matches(msg, a.keys.Help) && a.currentView != views.ViewReader:
			// The reader takes every printable key (note input, commit
			// keys), so the overlay is reachable outside it only.
			a.showHelp = !a.showHelp
			return a, nil
		}
		if a.showHelp {
			a.showHelp = false
			return a, nil
		}
		if msg.String() == "q" && a.currentView == views.ViewLibrary {
			a.saveOnExit()
			return a, tea.Quit
		}

	case views.OpenBookMsg:
		_ = a.config.AddRecentlyRead(msg.Book.ID, msg.Book.Title)
		a.readerView.(*views.ReaderView).SetBook(msg.Book)
		return a.switchView(views.ViewReader)

	case views.OpenNotesMsg:
		a.notesView.(*views.NotesView).SetBook(msg.Book)
		return a.switchView(views.ViewNotes)

	case views.JumpToAnnotationMsg:
		a.readerView.(*views.ReaderView).OpenAt(msg.Book, msg.ChapterIndex, msg.AnnotationID)
		return a.switchView(views.ViewReader)

	case views.ErrorMsg:
		a.err = msg.Err
		return a, nil

	case views.ClearErrorMsg:
		a.err = nil
		return a, nil

	case views.SwitchViewMsg:
		return a.switchView(msg.View)
	}

	// Delegate to current view
	var cmd tea.Cmd
	switch a.currentView {
	case views.ViewLibrary:
		a.libraryView, cmd = a.libraryView.Update(msg)
	case views.ViewReader:
		a.readerView, cmd = a.readerView.Update(msg)
	case views.ViewNotes:
		a.notesView, cmd = a.notesView.Update(msg)
	}
	return a, cmd
}

// View implements tea.Model
func (a *App) View() string {
	var content string
	switch a.currentView {
	case views.ViewLibrary:
		content = a.libraryView.View()
	case views.ViewReader:
		content = a.readerView.View()
	case views.ViewNotes:
		content = a.notesView.View()
	default:
		content = "Unknown view"
	}

	if a.err != nil {
		errorBar := styles.ErrorStyle.Render("Error: " + a.err.Error())
		content = lipgloss.JoinVertical(lipgloss.Left, content, errorBar)
	}

	if a.showHelp {
		content = a.renderHelp()
	}

	return content
}

// switchView changes the current view and initializes it
func (a *App) switchView(view views.ViewType) (*App, tea.Cmd) {
	a.currentView = view
	a.err = nil
	return a, a.getCurrentView().Init()
}

// getCurrentView returns the current view model
func (a *App) getCurrentView() views.View {
	switch a.currentView {
	case views.ViewReader:
		return a.readerView
	case views.ViewNotes:
		return a.notesView
	default:
		return a.libraryView
	}
}

// saveOnExit flushes reading progress before quitting
func (a *App) saveOnExit() {
	if a.currentView == views.ViewReader {
		a.readerView.(*views.ReaderView).SavePositionOnExit()
	}
}

// renderHelp renders the help overlay
func (a *App) renderHelp() string {
	help := styles.Dialog.Width(56).Render(
		styles.DialogTitle.Render("Keyboard & Mouse") + "\n\n" +
			styles.HelpKey.Render("Library") + "\n" +
			"  j/k     Move\n" +
			"  Enter   Read book\n" +
			"  m       Notes for book\n" +
			"  R       Recently read\n" +
			"  q       Quit\n\n" +
			styles.HelpKey.Render("Reader") + "\n" +
			"  drag    Select text (toolbar appears)\n" +
			"  h/u/n/e Highlight / Underline / Note / Explain\n" +
			"  j/k     Scroll    h/l  Chapter (no selection)\n" +
			"  q/Esc   Back to library\n\n" +
			styles.HelpKey.Render("Notes") + "\n" +
			"  Enter   Jump to annotation\n" +
			"  d       Delete\n\n" +
			styles.HelpKey.Render("?") + styles.Help.Render(" toggle this help"),
	)
	return lipgloss.Place(a.width, a.height, lipgloss.Center, lipgloss.Center, help)
}
