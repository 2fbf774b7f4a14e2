package content

import (
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/net/html"

	"github.com/tmarkley/marginalia/internal/annotate"
	"github.com/tmarkley/marginalia/pkg/models"
)

// Segment is a run of chapter text sharing one annotation context.
// Start is the rune offset of the run inside Document.Text, which is
// what selection ranges are expressed in.
type Segment struct {
	Text         string
	AnnotationID int64
	Kind         models.AnnotationKind
	Start        int
}

// Block is one paragraph-level unit of flattened content.
type Block struct {
	Segments []Segment
	Heading  bool
}

// Document is the flattened form of an annotated chapter buffer: the
// visible text with per-run annotation attribution, plus the plain
// text it concatenates to (blocks joined by single newlines).
type Document struct {
	Blocks []Block
	Text   string
}

var blockElements = map[string]bool{
	"p": true, "div": true, "section": true, "article": true,
	"h1": true, "h2": true, "h3": true, "h4": true, "h5": true, "h6": true,
	"li": true, "blockquote": true, "pre": true, "tr": true, "figcaption": true,
}

var headingElements = map[string]bool{
	"h1": true, "h2": true, "h3": true, "h4": true, "h5": true, "h6": true,
}

type annCtx struct {
	id   int64
	kind models.AnnotationKind
}

// Flatten tokenizes annotated chapter markup into blocks of attributed
// segments. Runs of whitespace collapse to single spaces; annotation
// context follows <mark> wrappers carrying the annotate package's
// attributes, innermost wrapper winning for nested marks.
func Flatten(markup string) Document {
	z := html.NewTokenizer(strings.NewReader(markup))

	var (
		doc     Document
		block   Block
		stack   []annCtx
		text    strings.Builder
		offset  int
		heading bool
	)

	top := func() annCtx {
		if len(stack) == 0 {
			return annCtx{}
		}
		return stack[len(stack)-1]
	}

	flushBlock := func() {
		heading = false
		if len(block.Segments) == 0 {
			block = Block{}
			return
		}
		trimBlockEdges(&block)
		if len(block.Segments) == 0 {
			block = Block{}
			return
		}
		doc.Blocks = append(doc.Blocks, block)
		block = Block{}
		text.WriteByte('\n')
		offset++
	}

	appendText := func(raw string) {
		s := collapseSpace(raw)
		if s == "" {
			return
		}
		if len(block.Segments) == 0 {
			s = strings.TrimLeft(s, " ")
			if s == "" {
				return
			}
			block.Heading = heading
		} else if strings.HasPrefix(s, " ") && endsWithSpace(block) {
			// adjoining text nodes both carried whitespace; keep one
			s = strings.TrimLeft(s, " ")
			if s == "" {
				return
			}
		}
		ctx := top()
		last := len(block.Segments) - 1
		if last >= 0 && block.Segments[last].AnnotationID == ctx.id && block.Segments[last].Kind == ctx.kind {
			block.Segments[last].Text += s
		} else {
			block.Segments = append(block.Segments, Segment{
				Text:         s,
				AnnotationID: ctx.id,
				Kind:         ctx.kind,
				Start:        offset,
			})
		}
		text.WriteString(s)
		offset += utf8.RuneCountInString(s)
	}

	for {
		switch z.Next() {
		case html.ErrorToken:
			flushBlock()
			doc.Text = strings.TrimRight(text.String(), "\n")
			return doc

		case html.TextToken:
			appendText(string(z.Text()))

		case html.StartTagToken:
			t := z.Token()
			switch {
			case t.Data == "mark":
				stack = append(stack, markContext(t, top()))
			case blockElements[t.Data]:
				flushBlock()
				heading = headingElements[t.Data]
			case t.Data == "br":
				flushBlock()
			}

		case html.EndTagToken:
			t := z.Token()
			switch {
			case t.Data == "mark":
				if len(stack) > 0 {
					stack = stack[:len(stack)-1]
				}
			case blockElements[t.Data]:
				flushBlock()
			}

		case html.SelfClosingTagToken:
			if t := z.Token(); t.Data == "br" {
				flushBlock()
			}
		}
	}
}

// markContext reads the annotation attributes off a <mark> wrapper. A
// mark without them inherits the enclosing context so foreign marks in
// source documents do not corrupt attribution.
func markContext(t html.Token, parent annCtx) annCtx {
	ctx := parent
	for _, a := range t.Attr {
		switch a.Key {
		case annotate.AttrID:
			if id, err := strconv.ParseInt(a.Val, 10, 64); err == nil {
				ctx.id = id
			}
		case annotate.AttrKind:
			ctx.kind = models.AnnotationKind(a.Val)
		}
	}
	return ctx
}

func collapseSpace(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	space := false
	for _, r := range s {
		if unicode.IsSpace(r) {
			space = true
			continue
		}
		if space {
			b.WriteByte(' ')
			space = false
		}
		b.WriteRune(r)
	}
	if space {
		b.WriteByte(' ')
	}
	return b.String()
}

func endsWithSpace(b Block) bool {
	last := b.Segments[len(b.Segments)-1].Text
	return strings.HasSuffix(last, " ")
}

// trimBlockEdges drops trailing whitespace from the block's last
// segment so block text never ends mid-space.
func trimBlockEdges(b *Block) {
	for len(b.Segments) > 0 {
		last := &b.Segments[len(b.Segments)-1]
		trimmed := strings.TrimRight(last.Text, " ")
		if trimmed == "" {
			b.Segments = b.Segments[:len(b.Segments)-1]
			continue
		}
		last.Text = trimmed
		return
	}
}
