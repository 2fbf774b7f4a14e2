package models

import "time"

// AnnotationKind distinguishes the two inline annotation styles.
type AnnotationKind string

const (
	KindHighlight AnnotationKind = "highlight"
	KindUnderline AnnotationKind = "underline"
)

// Valid reports whether k is a known annotation kind.
func (k AnnotationKind) Valid() bool {
	return k == KindHighlight || k == KindUnderline
}

// Book represents a book in the local library.
type Book struct {
	ID       int64     `json:"id"`
	Title    string    `json:"title"`
	Author   string    `json:"author"`
	FilePath string    `json:"file_path"`
	AddedAt  time.Time `json:"added_at"`
}

// Chapter is one unit of a book's content. HTML holds the sanitized
// markup produced at import time; the reader treats it as an opaque
// buffer.
type Chapter struct {
	ID     int64  `json:"id"`
	BookID int64  `json:"book_id"`
	Index  int    `json:"index"`
	Title  string `json:"title"`
	HTML   string `json:"html"`
}

// Annotation is a committed highlight or underline. It carries no
// offsets: the anchor text is the join key used to re-locate it inside
// regenerated chapter content.
type Annotation struct {
	ID         int64          `json:"id"`
	AnchorText string         `json:"anchor_text"`
	Kind       AnnotationKind `json:"kind"`
}

// Note is a stored note, optionally attached to a span of chapter text.
// Annotations are notes whose AnnotationType is highlight or underline
// and whose HighlightedText is the anchor.
type Note struct {
	ID              int64      `json:"id"`
	Title           string     `json:"title"`
	Content         string     `json:"content"`
	BookID          int64      `json:"book_id"`
	ChapterIndex    int        `json:"chapter_index"`
	HighlightedText string     `json:"highlighted_text"`
	AnnotationType  string     `json:"annotation_type"`
	CreatedAt       time.Time  `json:"created_at"`
	DeletedAt       *time.Time `json:"deleted_at,omitempty"`
}

// AnnotationNote marks a free-form note attached to a span without
// inline markup of its own.
const AnnotationNote = "note"

// Annotation converts a note row into the engine's annotation form.
// Only meaningful for highlight/underline notes.
func (n Note) Annotation() Annotation {
	return Annotation{
		ID:         n.ID,
		AnchorText: n.HighlightedText,
		Kind:       AnnotationKind(n.AnnotationType),
	}
}

// ReadingProgress is the reader's last position within a book.
type ReadingProgress struct {
	BookID       int64     `json:"book_id"`
	ChapterIndex int       `json:"chapter_index"`
	ScrollOffset int       `json:"scroll_offset"`
	UpdatedAt    time.Time `json:"updated_at"`
}
