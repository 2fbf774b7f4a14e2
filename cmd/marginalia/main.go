package main

import (
	"flag"
	"fmt"
	"os"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"github.com/tmarkley/marginalia/internal/config"
	"github.com/tmarkley/marginalia/internal/content"
	"github.com/tmarkley/marginalia/internal/store"
	"github.com/tmarkley/marginalia/internal/ui"
	"github.com/tmarkley/marginalia/pkg/models"
)

func main() {
	importFile := flag.String("import", "", "Import an HTML or plain-text book into the library")
	flag.StringVar(importFile, "i", "", "Import a book (shorthand)")
	author := flag.String("author", "", "Author to record for an imported book")
	configPath := flag.String("config", "", "Config file path (default: user config dir)")
	dbPath := flag.String("db", "", "Library database path (overrides config)")
	showHelp := flag.Bool("help", false, "Show help message")
	flag.BoolVar(showHelp, "h", false, "Show help (shorthand)")

	flag.Parse()

	if *showHelp {
		printUsage()
		os.Exit(0)
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}
	if *dbPath != "" {
		cfg.DatabasePath = *dbPath
	}

	log, err := openLogger(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening log: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	st, err := store.Open(cfg.Database(), log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening library: %v\n", err)
		os.Exit(1)
	}
	defer st.Close()

	// Handle import mode
	if *importFile != "" {
		if err := handleImport(st, *importFile, *author); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		os.Exit(0)
	}
	if flag.NArg() > 0 {
		for _, path := range flag.Args() {
			if err := handleImport(st, path, *author); err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
				os.Exit(1)
			}
		}
		os.Exit(0)
	}

	// Run TUI mode. Cell motion mouse tracking feeds the selection
	// engine drag events.
	app := ui.NewApp(cfg, st, log)
	p := tea.NewProgram(app, tea.WithAltScreen(), tea.WithMouseCellMotion())
	if _, err := p.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error running program: %v\n", err)
		os.Exit(1)
	}
}

func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.LoadFrom(path)
	}
	return config.Load()
}

// openLogger builds a file logger; the terminal belongs to the TUI.
// Without a configured log path, logging is disabled.
func openLogger(cfg *config.Config) (*zap.Logger, error) {
	if cfg.LogPath == "" {
		return zap.NewNop(), nil
	}
	zc := zap.NewProductionConfig()
	zc.OutputPaths = []string{cfg.LogPath}
	zc.ErrorOutputPaths = []string{cfg.LogPath}
	return zc.Build()
}

func handleImport(st *store.Store, path, author string) error {
	book, err := content.ImportFile(path)
	if err != nil {
		return err
	}
	if author == "" {
		author = book.Author
	}

	chapters := make([]models.Chapter, len(book.Chapters))
	for i, ch := range book.Chapters {
		chapters[i] = models.Chapter{Title: ch.Title, HTML: ch.HTML}
	}

	id, err := st.AddBook(book.Title, author, path, chapters)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE") {
			return fmt.Errorf("%s is already in the library", path)
		}
		return err
	}

	fmt.Printf("Imported %q (%d chapters, id %d)\n", book.Title, len(chapters), id)
	return nil
}

func printUsage() {
	fmt.Println("marginalia - terminal reading app with highlights, notes and AI explain")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  marginalia                    Start the TUI application")
	fmt.Println("  marginalia [files...]         Import books into the library")
	fmt.Println("  marginalia -import <file>     Import a single book")
	fmt.Println()
	fmt.Println("Options:")
	fmt.Println("  -i, --import <file>    Import an HTML or plain-text book")
	fmt.Println("  --author <name>        Author recorded for the import")
	fmt.Println("  --config <path>        Use an explicit config file")
	fmt.Println("  --db <path>            Use an explicit library database")
	fmt.Println("  -h, --help             Show this help message")
	fmt.Println()
	fmt.Println("In the reader, select text with the mouse to highlight, underline,")
	fmt.Println("attach a note, or ask the configured AI provider to explain it.")
	fmt.Println()
	fmt.Println("Config: ~/.config/marginalia/config.json")
}
