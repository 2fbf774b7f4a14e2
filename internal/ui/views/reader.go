package views

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
	"go.uber.org/zap"

	"github.com/tmarkley/marginalia/internal/annotate"
	"github.com/tmarkley/marginalia/internal/content"
	"github.com/tmarkley/marginalia/internal/engine"
	"github.com/tmarkley/marginalia/internal/explain"
	"github.com/tmarkley/marginalia/internal/store"
	"github.com/tmarkley/marginalia/internal/ui/styles"
	"github.com/tmarkley/marginalia/pkg/models"
)

// Content geometry: one header row, content rows, a blank row and the
// footer. contentLeft is the left margin content lines render behind.
const (
	contentTop  = 1
	contentLeft = 2
)

// ReaderView displays one chapter of a book and hosts the selection
// engine: mouse drags select chapter text, the floating toolbar commits
// the selection as a highlight, underline, note or explain request.
type ReaderView struct {
	store   *store.Store
	explain *explain.Client
	log     *zap.Logger

	// Current book
	book     *models.Book
	chapters []models.Chapter
	chapter  int

	// Content
	buffer      string // sanitized chapter markup
	annotations []models.Annotation
	renderer    *annotate.Renderer
	markup      string // buffer with annotation wrappers applied
	doc         content.Document
	lines       []content.Line
	lineOffset  int

	// Selection engine and its platform backing (rune offsets into
	// doc.Text). selAnchor is where the drag started, selHead where it
	// currently ends; they survive scrolling and rewrapping.
	eng       *engine.Engine
	selActive bool
	selInRoot bool
	selAnchor int
	selHead   int
	dragging  bool

	// Position/jump to restore once content is laid out
	pendingOffset    int
	hasPendingOffset bool
	pendingJump      int64

	// Note dialog
	noteMode  bool
	noteText  string // selected text the note attaches to
	noteInput textinput.Model

	// Explain panel
	explainMode bool
	explainBusy bool
	explainText string

	// State
	loading   bool
	err       error
	statusMsg string

	// Dimensions
	width  int
	height int
}

// NewReaderView creates a new reader view. The view itself is the
// engine's platform and locator.
func NewReaderView(st *store.Store, ex *explain.Client, log *zap.Logger) *ReaderView {
	if log == nil {
		log = zap.NewNop()
	}

	noteInput := textinput.New()
	noteInput.Placeholder = "Note..."
	noteInput.CharLimit = 500
	noteInput.Width = 40

	v := &ReaderView{
		store:     st,
		explain:   ex,
		log:       log,
		renderer:  annotate.NewRenderer(log),
		noteInput: noteInput,
		width:     80,
		height:    24,
	}
	v.eng = engine.New(v, v, engine.Callbacks{
		Annotate:   v.annotateCmd,
		CreateNote: v.createNoteCmd,
		Explain:    v.explainCmd,
	}, log)
	return v
}

// SetBook sets the current book to read
func (v *ReaderView) SetBook(book models.Book) {
	v.book = &book
	v.chapter = 0
	v.resetContent()
}

// OpenAt prepares the reader to show a chapter with an annotation
// marker centered and pulsing once content is laid out.
func (v *ReaderView) OpenAt(book models.Book, chapterIndex int, annotationID int64) {
	v.book = &book
	v.chapter = chapterIndex
	v.resetContent()
	v.pendingJump = annotationID
}

func (v *ReaderView) resetContent() {
	v.chapters = nil
	v.buffer = ""
	v.annotations = nil
	v.markup = ""
	v.doc = content.Document{}
	v.lines = nil
	v.lineOffset = 0
	v.pendingOffset = 0
	v.hasPendingOffset = false
	v.pendingJump = 0
	v.noteMode = false
	v.explainMode = false
	v.err = nil
	v.statusMsg = ""
	v.eng.Dispatch.Cancel()
	v.renderer.Invalidate()
}

// SavePositionOnExit persists reading progress (called when leaving)
func (v *ReaderView) SavePositionOnExit() {
	if v.book == nil {
		return
	}
	if err := v.store.SaveProgress(v.book.ID, v.chapter, v.lineOffset); err != nil {
		v.log.Debug("saving reading progress failed", zap.Error(err))
	}
}

// Message types
type chaptersLoadedMsg struct {
	chapters []models.Chapter
	err      error
}

type progressLoadedMsg struct {
	progress *models.ReadingProgress
	err      error
}

type chapterLoadedMsg struct {
	chapter models.Chapter
	err     error
}

type annotationsLoadedMsg struct {
	annotations []models.Annotation
	err         error
}

type annotationCreatedMsg struct {
	annotation models.Annotation
	err        error
}

type noteDialogMsg struct {
	text string
}

type noteSavedMsg struct {
	err error
}

type explainResultMsg struct {
	text string
	err  error
}

// Init implements View
func (v *ReaderView) Init() tea.Cmd {
	if v.book == nil {
		return nil
	}
	v.loading = true
	return tea.Batch(v.loadChapters(), v.loadProgress())
}

// Update implements View
func (v *ReaderView) Update(msg tea.Msg) (View, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		v.statusMsg = ""
		return v.handleKeyMsg(msg)
	case tea.MouseMsg:
		return v.handleMouse(msg)
	case chaptersLoadedMsg:
		if msg.err != nil {
			v.err = msg.err
			v.loading = false
			return v, nil
		}
		v.chapters = msg.chapters
		return v, nil
	case progressLoadedMsg:
		return v.handleProgressLoaded(msg)
	case chapterLoadedMsg:
		return v.handleChapterLoaded(msg)
	case annotationsLoadedMsg:
		return v.handleAnnotationsLoaded(msg)
	case annotationCreatedMsg:
		if msg.err != nil {
			v.err = msg.err
			return v, nil
		}
		v.statusMsg = "Saved " + string(msg.annotation.Kind)
		return v, v.loadAnnotations()
	case noteDialogMsg:
		v.noteMode = true
		v.noteText = msg.text
		v.noteInput.SetValue("")
		v.noteInput.Focus()
		return v, textinput.Blink
	case noteSavedMsg:
		if msg.err != nil {
			v.err = msg.err
			return v, nil
		}
		v.statusMsg = "Note saved"
		return v, nil
	case explainResultMsg:
		v.explainBusy = false
		if msg.err != nil {
			v.explainText = "Error: " + msg.err.Error()
		} else {
			v.explainText = msg.text
		}
		return v, nil
	}

	// Everything else may be an engine tick.
	return v, v.eng.Update(msg)
}

// handleKeyMsg dispatches key presses by mode
func (v *ReaderView) handleKeyMsg(msg tea.KeyMsg) (View, tea.Cmd) {
	if v.noteMode {
		return v.updateNoteDialog(msg)
	}
	if v.explainMode {
		switch msg.String() {
		case "esc", "enter", "q":
			if !v.explainBusy {
				v.explainMode = false
			}
		}
		return v, nil
	}
	// A live selection record puts the toolbar's commit keys first.
	if v.eng.Capture.Record() != nil {
		switch msg.String() {
		case "h":
			return v, v.commitAnnotate(models.KindHighlight)
		case "u":
			return v, v.commitAnnotate(models.KindUnderline)
		case "n":
			return v, v.eng.Dispatch.CommitCreateNote()
		case "e":
			return v, v.commitExplain()
		case "esc", "c":
			v.eng.Dispatch.Cancel()
			return v, nil
		}
	}
	return v.handleReaderKeyMsg(msg)
}

// handleReaderKeyMsg handles key presses in the main reader view
func (v *ReaderView) handleReaderKeyMsg(msg tea.KeyMsg) (View, tea.Cmd) {
	switch msg.String() {
	case "j", "down":
		v.scroll(1)
	case "k", "up":
		v.scroll(-1)
	case "ctrl+d", "pgdown":
		v.scroll(v.visibleLines() / 2)
	case "ctrl+u", "pgup":
		v.scroll(-v.visibleLines() / 2)
	case " ":
		v.scroll(v.visibleLines() - 2)
	case "g", "home":
		v.lineOffset = 0
	case "G", "end":
		v.lineOffset = max(0, len(v.lines)-v.visibleLines())
	case "l":
		if v.chapter < len(v.chapters)-1 {
			return v, v.goToChapter(v.chapter + 1)
		}
	case "h":
		if v.chapter > 0 {
			return v, v.goToChapter(v.chapter - 1)
		}
	case "esc", "q":
		v.SavePositionOnExit()
		v.eng.Dispatch.Cancel()
		return v, SwitchTo(ViewLibrary)
	}
	return v, nil
}

// updateNoteDialog handles the note entry dialog
func (v *ReaderView) updateNoteDialog(msg tea.KeyMsg) (View, tea.Cmd) {
	switch msg.String() {
	case "esc":
		v.noteMode = false
		v.noteInput.Blur()
		return v, nil
	case "enter":
		v.noteMode = false
		v.noteInput.Blur()
		body := strings.TrimSpace(v.noteInput.Value())
		return v, v.saveNote(v.noteText, body)
	}
	var cmd tea.Cmd
	v.noteInput, cmd = v.noteInput.Update(msg)
	return v, cmd
}

func (v *ReaderView) handleProgressLoaded(msg progressLoadedMsg) (View, tea.Cmd) {
	if msg.err != nil {
		v.log.Debug("loading reading progress failed", zap.Error(msg.err))
	}
	// An explicit jump target wins over the saved position.
	if msg.progress != nil && v.pendingJump == 0 {
		v.chapter = msg.progress.ChapterIndex
		v.pendingOffset = msg.progress.ScrollOffset
		v.hasPendingOffset = true
	}
	return v, v.loadChapter(v.chapter)
}

func (v *ReaderView) handleChapterLoaded(msg chapterLoadedMsg) (View, tea.Cmd) {
	if msg.err != nil {
		v.err = msg.err
		v.loading = false
		return v, nil
	}
	v.buffer = msg.chapter.HTML
	v.chapter = msg.chapter.Index
	v.err = nil
	return v, v.loadAnnotations()
}

func (v *ReaderView) handleAnnotationsLoaded(msg annotationsLoadedMsg) (View, tea.Cmd) {
	v.loading = false
	if msg.err != nil {
		v.err = msg.err
		return v, nil
	}
	v.annotations = msg.annotations
	v.applyAnnotations()

	if v.hasPendingOffset {
		v.lineOffset = v.clampOffset(v.pendingOffset)
		v.hasPendingOffset = false
	}
	if v.pendingJump != 0 {
		id := v.pendingJump
		v.pendingJump = 0
		return v, v.eng.Jump.To(id)
	}
	return v, nil
}

// applyAnnotations re-renders the chapter with annotation wrappers.
// The renderer returns the identical string for unchanged inputs, and
// an unchanged string means the flattened layout (and with it any live
// selection's offsets) is left untouched.
func (v *ReaderView) applyAnnotations() {
	markup := v.renderer.Render(v.buffer, v.annotations)
	if markup == v.markup && v.lines != nil {
		return
	}
	v.markup = markup
	v.doc = content.Flatten(markup)
	v.relayout()
}

// relayout rewraps the document to the current width. Selection
// offsets are document offsets, so they survive the rewrap.
func (v *ReaderView) relayout() {
	v.lines = content.WrapBlocks(v.doc.Blocks, v.textWidth())
	v.lineOffset = v.clampOffset(v.lineOffset)
}

func (v *ReaderView) textWidth() int {
	w := v.width - 2*contentLeft
	if w < 20 {
		w = 20
	}
	return w
}

// SetSize implements View
func (v *ReaderView) SetSize(width, height int) {
	v.width = width
	v.height = height
	if len(v.doc.Blocks) > 0 {
		v.relayout()
	}
}

// scroll scrolls the content by delta lines
func (v *ReaderView) scroll(delta int) {
	v.lineOffset = v.clampOffset(v.lineOffset + delta)
}

func (v *ReaderView) clampOffset(offset int) int {
	maxOffset := len(v.lines) - v.visibleLines()
	if maxOffset < 0 {
		maxOffset = 0
	}
	if offset > maxOffset {
		offset = maxOffset
	}
	if offset < 0 {
		offset = 0
	}
	return offset
}

// visibleLines returns the number of visible content lines
func (v *ReaderView) visibleLines() int {
	lines := v.height - 3 // Header, blank, footer
	if lines < 1 {
		lines = 1
	}
	return lines
}

// goToChapter navigates to a specific chapter
func (v *ReaderView) goToChapter(chapter int) tea.Cmd {
	v.SavePositionOnExit()
	v.eng.Dispatch.Cancel()
	v.lineOffset = 0
	v.loading = true
	return v.loadChapter(chapter)
}

// Commit paths

func (v *ReaderView) commitAnnotate(kind models.AnnotationKind) tea.Cmd {
	return v.eng.Dispatch.CommitAnnotate(kind)
}

func (v *ReaderView) commitExplain() tea.Cmd {
	cmd := v.eng.Dispatch.CommitExplain()
	if cmd == nil {
		return nil
	}
	v.explainMode = true
	v.explainBusy = true
	v.explainText = ""
	return cmd
}

// Engine callbacks. Each reads the identifying state before returning
// the command, because the command body runs outside the update loop.

func (v *ReaderView) annotateCmd(text string, kind models.AnnotationKind) tea.Cmd {
	if v.book == nil {
		return nil
	}
	bookID, chapter := v.book.ID, v.chapter
	return func() tea.Msg {
		ann, err := v.store.CreateAnnotation(bookID, chapter, text, kind)
		return annotationCreatedMsg{annotation: ann, err: err}
	}
}

func (v *ReaderView) createNoteCmd(text string) tea.Cmd {
	return func() tea.Msg {
		return noteDialogMsg{text: text}
	}
}

func (v *ReaderView) explainCmd(text string) tea.Cmd {
	return func() tea.Msg {
		out, err := v.explain.Explain(text)
		return explainResultMsg{text: out, err: err}
	}
}

func (v *ReaderView) saveNote(highlighted, body string) tea.Cmd {
	if v.book == nil {
		return nil
	}
	bookID, chapter := v.book.ID, v.chapter
	title := styles.TruncateText(highlighted, 60)
	return func() tea.Msg {
		_, err := v.store.CreateNote(bookID, chapter, title, body, highlighted)
		return noteSavedMsg{err: err}
	}
}

// Store loads

func (v *ReaderView) loadChapters() tea.Cmd {
	bookID := v.book.ID
	return func() tea.Msg {
		chapters, err := v.store.Chapters(bookID)
		return chaptersLoadedMsg{chapters: chapters, err: err}
	}
}

func (v *ReaderView) loadProgress() tea.Cmd {
	bookID := v.book.ID
	return func() tea.Msg {
		p, err := v.store.Progress(bookID)
		return progressLoadedMsg{progress: p, err: err}
	}
}

func (v *ReaderView) loadChapter(chapter int) tea.Cmd {
	bookID := v.book.ID
	return func() tea.Msg {
		ch, err := v.store.Chapter(bookID, chapter)
		return chapterLoadedMsg{chapter: ch, err: err}
	}
}

func (v *ReaderView) loadAnnotations() tea.Cmd {
	bookID, chapter := v.book.ID, v.chapter
	return func() tea.Msg {
		anns, err := v.store.Annotations(bookID, chapter)
		return annotationsLoadedMsg{annotations: anns, err: err}
	}
}

// View implements View
func (v *ReaderView) View() string {
	if v.book == nil {
		return styles.ErrorStyle.Render("No book selected")
	}

	if v.noteMode {
		return v.renderNoteDialog()
	}
	if v.explainMode {
		return v.renderExplainPanel()
	}

	var b strings.Builder
	b.WriteString(v.renderHeader() + "\n")

	if v.loading {
		b.WriteString(lipgloss.Place(v.width, v.height-3, lipgloss.Center, lipgloss.Center,
			styles.MutedText.Render("Loading...")))
		return b.String()
	}
	if v.err != nil {
		b.WriteString(lipgloss.Place(v.width, v.height-3, lipgloss.Center, lipgloss.Center,
			styles.ErrorStyle.Render("Error: "+v.err.Error())))
		return b.String()
	}

	rows := v.contentRows()
	b.WriteString(strings.Join(rows, "\n"))
	b.WriteString("\n\n")
	b.WriteString(v.renderFooter())

	return b.String()
}

// renderHeader renders the reader header
func (v *ReaderView) renderHeader() string {
	maxTitleWidth := v.width / 3
	if maxTitleWidth < 10 {
		maxTitleWidth = 10
	}
	title := styles.TruncateText(v.book.Title, maxTitleWidth)
	titlePart := styles.ReaderHeader.Render(" " + title + " ")

	chapterTitle := ""
	if v.chapter >= 0 && v.chapter < len(v.chapters) {
		chapterTitle = styles.TruncateText(v.chapters[v.chapter].Title, 24)
	}
	chapterPart := styles.Help.Render(fmt.Sprintf(" Ch %d/%d: %s ", v.chapter+1, len(v.chapters), chapterTitle))

	progress := v.calculateProgress()
	bar := renderProgressBar(10, float64(progress)/100.0)
	progressPart := bar + styles.ReaderProgress.Render(fmt.Sprintf(" %d%%", progress))

	left := titlePart + chapterPart
	right := progressPart

	gap := v.width - lipgloss.Width(left) - lipgloss.Width(right)
	if gap < 0 {
		gap = 0
	}
	return left + strings.Repeat(" ", gap) + right
}

// calculateProgress returns chapter reading progress as percentage
func (v *ReaderView) calculateProgress() int {
	if len(v.lines) == 0 {
		return 0
	}
	if v.lineOffset+v.visibleLines() >= len(v.lines) {
		return 100
	}
	return (v.lineOffset * 100) / len(v.lines)
}

// renderProgressBar renders a progress bar using block characters.
// width is the total character width, progress is 0.0-1.0
func renderProgressBar(width int, progress float64) string {
	if width < 3 {
		width = 3
	}
	if progress < 0 {
		progress = 0
	}
	if progress > 1 {
		progress = 1
	}
	filled := int(progress * float64(width))
	return strings.Repeat("█", filled) + strings.Repeat("░", width-filled)
}

// renderFooter renders the reader footer
func (v *ReaderView) renderFooter() string {
	if v.statusMsg != "" {
		return styles.SecondaryText.Render(v.statusMsg)
	}
	if v.eng.Capture.Record() != nil {
		help := []string{
			styles.HelpKey.Render("h") + styles.Help.Render(" highlight"),
			styles.HelpKey.Render("u") + styles.Help.Render(" underline"),
			styles.HelpKey.Render("n") + styles.Help.Render(" note"),
			styles.HelpKey.Render("e") + styles.Help.Render(" explain"),
			styles.HelpKey.Render("esc") + styles.Help.Render(" cancel"),
		}
		return styles.FooterBar.Render(strings.Join(help, "  "))
	}
	help := []string{
		styles.HelpKey.Render("j/k") + styles.Help.Render(" scroll"),
		styles.HelpKey.Render("h/l") + styles.Help.Render(" chapter"),
		styles.HelpKey.Render("drag") + styles.Help.Render(" select"),
		styles.HelpKey.Render("q") + styles.Help.Render(" back"),
	}
	return styles.FooterBar.Render(strings.Join(help, "  "))
}

// renderNoteDialog renders the note entry dialog
func (v *ReaderView) renderNoteDialog() string {
	quoted := styles.TruncateText(v.noteText, 44)
	dialog := styles.Dialog.Width(min(52, v.width-4)).Render(
		styles.DialogTitle.Render("New Note") + "\n" +
			styles.BookAuthor.Render("“"+quoted+"”") + "\n\n" +
			styles.InputFieldFocused.Render(v.noteInput.View()) + "\n\n" +
			styles.Help.Render("enter save • esc cancel"),
	)
	return lipgloss.Place(v.width, v.height, lipgloss.Center, lipgloss.Center, dialog)
}

// renderExplainPanel renders the explain response panel
func (v *ReaderView) renderExplainPanel() string {
	body := v.explainText
	if v.explainBusy {
		body = styles.MutedText.Render("Asking...")
	}
	dialog := styles.Dialog.Width(min(64, v.width-4)).Render(
		styles.DialogTitle.Render("Explain") + "\n" +
			ansi.Wordwrap(body, max(10, min(58, v.width-10)), "") + "\n\n" +
			styles.Help.Render("esc close"),
	)
	return lipgloss.Place(v.width, v.height, lipgloss.Center, lipgloss.Center, dialog)
}
