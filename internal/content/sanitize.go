// Package content turns imported documents into sanitized chapter
// markup and flattens annotated markup into styled segments the reader
// can lay out. Everything downstream of Sanitize treats chapter HTML
// as an opaque buffer; this package is the only place that parses it
// structurally.
package content

import (
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Elements removed wholesale during sanitization, subtree included.
var droppedElements = map[string]bool{
	"script": true,
	"style":  true,
	"iframe": true,
	"object": true,
	"embed":  true,
	"form":   true,
	"input":  true,
	"button": true,
	"link":   true,
	"meta":   true,
}

// Sanitize re-renders fragment markup with script-bearing constructs
// removed: dropped elements, on* event attributes, and javascript:
// URLs. The result is what gets stored as a chapter buffer.
func Sanitize(fragment string) (string, error) {
	nodes, err := html.ParseFragment(strings.NewReader(fragment), bodyContext())
	if err != nil {
		return "", err
	}
	var b strings.Builder
	for _, n := range nodes {
		scrub(n)
		if n.Type == html.ElementNode && droppedElements[n.Data] {
			continue
		}
		if err := html.Render(&b, n); err != nil {
			return "", err
		}
	}
	return b.String(), nil
}

func bodyContext() *html.Node {
	return &html.Node{
		Type:     html.ElementNode,
		Data:     "body",
		DataAtom: atom.Body,
	}
}

// scrub removes disallowed descendants and attributes in place.
func scrub(n *html.Node) {
	for c := n.FirstChild; c != nil; {
		next := c.NextSibling
		if c.Type == html.ElementNode && droppedElements[c.Data] {
			n.RemoveChild(c)
		} else {
			scrub(c)
		}
		c = next
	}
	if n.Type != html.ElementNode {
		return
	}
	kept := n.Attr[:0]
	for _, a := range n.Attr {
		if strings.HasPrefix(strings.ToLower(a.Key), "on") {
			continue
		}
		if (a.Key == "href" || a.Key == "src") &&
			strings.HasPrefix(strings.ToLower(strings.TrimSpace(a.Val)), "javascript:") {
			continue
		}
		kept = append(kept, a)
	}
	n.Attr = kept
}
