package styles

import "github.com/charmbracelet/lipgloss"

var (
	// Colors
	Primary    = lipgloss.Color("#7C3AED") // Purple
	Secondary  = lipgloss.Color("#06B6D4") // Cyan
	Success    = lipgloss.Color("#10B981") // Green
	Warning    = lipgloss.Color("#F59E0B") // Amber
	Error      = lipgloss.Color("#EF4444") // Red
	Muted      = lipgloss.Color("#6B7280") // Gray
	Background = lipgloss.Color("#1F2937") // Dark gray
	Foreground = lipgloss.Color("#F9FAFB") // Light gray
	Border     = lipgloss.Color("#374151") // Gray border

	// Title bar
	TitleBar = lipgloss.NewStyle().
			Foreground(Foreground).
			Background(Primary).
			Padding(0, 1).
			Bold(true)

	// Help text
	Help = lipgloss.NewStyle().
		Foreground(Muted)

	HelpKey = lipgloss.NewStyle().
			Foreground(Secondary).
			Bold(true)

	// Muted text style
	MutedText = lipgloss.NewStyle().
			Foreground(Muted)

	// Secondary text style
	SecondaryText = lipgloss.NewStyle().
			Foreground(Secondary)

	// Error message
	ErrorStyle = lipgloss.NewStyle().
			Foreground(Error).
			Bold(true).
			Padding(0, 1)

	// Input field
	InputField = lipgloss.NewStyle().
			Foreground(Foreground).
			Border(lipgloss.RoundedBorder()).
			BorderForeground(Border).
			Padding(0, 1)

	InputFieldFocused = InputField.
				BorderForeground(Primary)

	// List styles
	ListItem = lipgloss.NewStyle().
			Foreground(Foreground).
			Padding(0, 2)

	ListItemSelected = lipgloss.NewStyle().
				Foreground(Foreground).
				Background(Primary).
				Padding(0, 2).
				Bold(true)

	// Reader styles
	ReaderHeader = lipgloss.NewStyle().
			Foreground(Foreground).
			Background(Primary).
			Padding(0, 1).
			Bold(true)

	ReaderProgress = lipgloss.NewStyle().
			Foreground(Secondary).
			Align(lipgloss.Right)

	Heading = lipgloss.NewStyle().
		Foreground(Foreground).
		Bold(true)

	FooterBar = lipgloss.NewStyle().
			Foreground(Muted)

	// Annotation marker styles
	Highlight = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#1F2937")).
			Background(Warning)

	UnderlineMark = lipgloss.NewStyle().
			Foreground(Secondary).
			Underline(true)

	// Pulse is the transient emphasis played on a jumped-to marker.
	Pulse = lipgloss.NewStyle().
		Foreground(lipgloss.Color("#1F2937")).
		Background(Success).
		Bold(true)

	// Selection is the live text selection being dragged or kept alive.
	Selection = lipgloss.NewStyle().
			Foreground(Background).
			Background(Foreground)

	// Floating toolbar styles
	ToolbarBar = lipgloss.NewStyle().
			Foreground(Foreground).
			Background(Border)

	ToolbarKey = lipgloss.NewStyle().
			Foreground(Secondary).
			Background(Border).
			Bold(true)

	ToolbarCancel = lipgloss.NewStyle().
			Foreground(Error).
			Background(Border).
			Bold(true)

	// Dialog/Modal styles
	Dialog = lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(Primary).
		Padding(1, 2)

	DialogTitle = lipgloss.NewStyle().
			Foreground(Primary).
			Bold(true).
			MarginBottom(1)

	// Book info styles
	BookTitle = lipgloss.NewStyle().
			Foreground(Foreground).
			Bold(true)

	BookAuthor = lipgloss.NewStyle().
			Foreground(Secondary)
)

// TruncateText shortens s to at most width cells, appending an
// ellipsis when it was cut. Unicode-safe.
func TruncateText(s string, width int) string {
	runes := []rune(s)
	if len(runes) <= width {
		return s
	}
	if width <= 1 {
		return "…"
	}
	return string(runes[:width-1]) + "…"
}
