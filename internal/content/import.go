package content

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/net/html"
)

// ImportedChapter is one chapter produced by the importer, already
// sanitized.
type ImportedChapter struct {
	Title string
	HTML  string
}

// ImportedBook is the importer's output for one source file.
type ImportedBook struct {
	Title    string
	Author   string
	Chapters []ImportedChapter
}

// ImportFile reads an HTML or plain-text file and splits it into
// sanitized chapters. HTML documents are split on h1/h2 headings;
// content before the first heading becomes a front-matter chapter.
// Plain text becomes a single chapter with blank-line paragraphs.
func ImportFile(path string) (*ImportedBook, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	base := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	switch strings.ToLower(filepath.Ext(path)) {
	case ".html", ".htm", ".xhtml":
		return importHTML(string(data), base)
	case ".txt", "":
		return importText(string(data), base), nil
	default:
		return nil, fmt.Errorf("unsupported format %q", filepath.Ext(path))
	}
}

func importText(text, fallbackTitle string) *ImportedBook {
	var b strings.Builder
	for _, para := range strings.Split(text, "\n\n") {
		para = strings.TrimSpace(para)
		if para == "" {
			continue
		}
		b.WriteString("<p>")
		b.WriteString(html.EscapeString(para))
		b.WriteString("</p>")
	}
	return &ImportedBook{
		Title:    fallbackTitle,
		Chapters: []ImportedChapter{{Title: fallbackTitle, HTML: b.String()}},
	}
}

func importHTML(markup, fallbackTitle string) (*ImportedBook, error) {
	root, err := html.Parse(strings.NewReader(markup))
	if err != nil {
		return nil, fmt.Errorf("parsing html: %w", err)
	}

	book := &ImportedBook{Title: fallbackTitle}
	if t := findElement(root, "title"); t != nil {
		if title := strings.TrimSpace(nodeText(t)); title != "" {
			book.Title = title
		}
	}

	body := findElement(root, "body")
	if body == nil {
		body = root
	}

	var (
		current      strings.Builder
		currentTitle string
		index        int
	)
	flush := func() error {
		markup := strings.TrimSpace(current.String())
		current.Reset()
		if markup == "" {
			return nil
		}
		clean, err := Sanitize(markup)
		if err != nil {
			return err
		}
		title := currentTitle
		if title == "" {
			if index == 0 {
				title = book.Title
			} else {
				title = fmt.Sprintf("Chapter %d", index+1)
			}
		}
		book.Chapters = append(book.Chapters, ImportedChapter{Title: title, HTML: clean})
		index++
		return nil
	}

	for c := body.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode && (c.Data == "h1" || c.Data == "h2") {
			if err := flush(); err != nil {
				return nil, err
			}
			currentTitle = strings.TrimSpace(nodeText(c))
		}
		if err := html.Render(&current, c); err != nil {
			return nil, fmt.Errorf("rendering chapter: %w", err)
		}
	}
	if err := flush(); err != nil {
		return nil, err
	}

	if len(book.Chapters) == 0 {
		return nil, fmt.Errorf("no readable content in document")
	}
	return book, nil
}

func findElement(n *html.Node, name string) *html.Node {
	if n.Type == html.ElementNode && n.Data == name {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findElement(c, name); found != nil {
			return found
		}
	}
	return nil
}

func nodeText(n *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return b.String()
}
