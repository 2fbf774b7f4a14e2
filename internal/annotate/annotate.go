// Package annotate re-renders stored annotations as non-destructive
// markup overlays on sanitized chapter content. Matching is by literal
// anchor text, never by stored offsets: chapter buffers are regenerated
// whenever upstream data changes, so the anchor string is the only
// stable join key.
package annotate

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/tmarkley/marginalia/pkg/models"
)

// Marker attribute names carried by every wrapped match so the host can
// route interactions back to the owning annotation.
const (
	AttrID   = "data-annotation-id"
	AttrKind = "data-kind"
)

// Apply wraps every safe occurrence of each annotation's anchor text in
// a <mark> element carrying the annotation's id and kind. The input
// buffer is assumed already sanitized and is treated as an opaque
// character sequence with embedded tags.
//
// Annotations are applied longest anchor first (stable for ties) so
// that when one anchor strictly contains another, the outer span is
// wrapped before the inner one and the later match cannot fragment the
// outer tag. An annotation whose matcher cannot be built is skipped;
// one bad anchor must not blank the chapter.
func Apply(buffer string, annotations []models.Annotation, log *zap.Logger) string {
	if log == nil {
		log = zap.NewNop()
	}
	if len(annotations) == 0 {
		return buffer
	}

	sorted := make([]models.Annotation, len(annotations))
	copy(sorted, annotations)
	sort.SliceStable(sorted, func(i, j int) bool {
		return len(sorted[i].AnchorText) > len(sorted[j].AnchorText)
	})

	out := buffer
	for _, a := range sorted {
		re, err := anchorPattern(a.AnchorText)
		if err != nil {
			log.Debug("skipping unmatchable annotation",
				zap.Int64("id", a.ID), zap.Error(err))
			continue
		}
		out = wrapMatches(out, re, a)
	}
	return out
}

// anchorPattern builds a literal-text matcher for an anchor. All regex
// metacharacters are escaped, and each run of whitespace in the anchor
// matches any run of whitespace in the buffer, because source documents
// frequently renormalize internal whitespace.
func anchorPattern(anchor string) (*regexp.Regexp, error) {
	tokens := strings.Fields(anchor)
	if len(tokens) == 0 {
		return nil, fmt.Errorf("empty anchor text")
	}
	for i, tok := range tokens {
		tokens[i] = regexp.QuoteMeta(tok)
	}
	return regexp.Compile(strings.Join(tokens, `\s+`))
}

// wrapMatches wraps every occurrence of re in buffer that does not fall
// inside an open tag.
func wrapMatches(buffer string, re *regexp.Regexp, a models.Annotation) string {
	locs := re.FindAllStringIndex(buffer, -1)
	if len(locs) == 0 {
		return buffer
	}

	var b strings.Builder
	b.Grow(len(buffer) + len(locs)*64)
	prev := 0
	for _, loc := range locs {
		start, end := loc[0], loc[1]
		if start < prev || insideTag(buffer, start) {
			continue
		}
		b.WriteString(buffer[prev:start])
		b.WriteString(openMarker(a))
		b.WriteString(buffer[start:end])
		b.WriteString("</mark>")
		prev = end
	}
	b.WriteString(buffer[prev:])
	return b.String()
}

func openMarker(a models.Annotation) string {
	return fmt.Sprintf(`<mark %s="%d" %s="%s">`, AttrID, a.ID, AttrKind, a.Kind)
}

// insideTag reports whether pos falls inside a tag: scanning backward
// from pos, a '<' is reached before any '>'.
func insideTag(s string, pos int) bool {
	for i := pos - 1; i >= 0; i-- {
		switch s[i] {
		case '<':
			return true
		case '>':
			return false
		}
	}
	return false
}
