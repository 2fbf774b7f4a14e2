// Package store persists the local library: books, chapter content,
// notes and annotations, and reading progress. Annotations are note
// rows whose annotation_type is highlight or underline; they carry the
// anchor text only, never positions, because chapter buffers are
// regenerated and re-matched on render.
package store

import (
	"database/sql"
	"fmt"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/tmarkley/marginalia/pkg/models"
)

const driverName = "sqlite"

const schema = `
CREATE TABLE IF NOT EXISTS books (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	title TEXT NOT NULL,
	author TEXT DEFAULT '',
	file_path TEXT NOT NULL UNIQUE,
	added_at TIMESTAMP NOT NULL
);

CREATE TABLE IF NOT EXISTS chapters (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	book_id INTEGER NOT NULL,
	chapter_index INTEGER NOT NULL,
	title TEXT NOT NULL,
	html TEXT NOT NULL,
	FOREIGN KEY (book_id) REFERENCES books(id) ON DELETE CASCADE
);

CREATE TABLE IF NOT EXISTS notes (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	title TEXT NOT NULL DEFAULT '',
	content TEXT NOT NULL DEFAULT '',
	book_id INTEGER NOT NULL,
	chapter_index INTEGER NOT NULL,
	highlighted_text TEXT NOT NULL DEFAULT '',
	annotation_type TEXT NOT NULL DEFAULT 'highlight',
	created_at TIMESTAMP NOT NULL,
	deleted_at TIMESTAMP,
	FOREIGN KEY (book_id) REFERENCES books(id) ON DELETE CASCADE
);

CREATE TABLE IF NOT EXISTS reading_progress (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	book_id INTEGER NOT NULL UNIQUE,
	chapter_index INTEGER NOT NULL,
	scroll_offset INTEGER NOT NULL DEFAULT 0,
	updated_at TIMESTAMP NOT NULL,
	FOREIGN KEY (book_id) REFERENCES books(id) ON DELETE CASCADE
);

CREATE INDEX IF NOT EXISTS idx_chapters_book ON chapters(book_id, chapter_index);
CREATE INDEX IF NOT EXISTS idx_notes_book ON notes(book_id, chapter_index);
CREATE INDEX IF NOT EXISTS idx_notes_deleted ON notes(deleted_at);
`

// Store is the SQLite-backed library.
type Store struct {
	db  *sql.DB
	log *zap.Logger
}

// Open opens (creating if needed) the library database at path.
// log may be nil.
func Open(path string, log *zap.Logger) (*Store, error) {
	if log == nil {
		log = zap.NewNop()
	}
	db, err := sql.Open(driverName, path)
	if err != nil {
		return nil, fmt.Errorf("opening library db: %w", err)
	}
	if _, err := db.Exec(`PRAGMA foreign_keys = ON`); err != nil {
		return nil, multierr.Append(fmt.Errorf("enabling foreign keys: %w", err), db.Close())
	}
	if _, err := db.Exec(schema); err != nil {
		return nil, multierr.Append(fmt.Errorf("migrating schema: %w", err), db.Close())
	}
	return &Store{db: db, log: log}, nil
}

// Close releases the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// AddBook stores a book and its chapters in one transaction and
// returns the book id.
func (s *Store) AddBook(title, author, filePath string, chapters []models.Chapter) (int64, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return 0, err
	}
	res, err := tx.Exec(
		`INSERT INTO books (title, author, file_path, added_at) VALUES (?, ?, ?, ?)`,
		title, author, filePath, time.Now().UTC(),
	)
	if err != nil {
		return 0, multierr.Append(fmt.Errorf("inserting book: %w", err), tx.Rollback())
	}
	bookID, err := res.LastInsertId()
	if err != nil {
		return 0, multierr.Append(err, tx.Rollback())
	}
	for i, ch := range chapters {
		if _, err := tx.Exec(
			`INSERT INTO chapters (book_id, chapter_index, title, html) VALUES (?, ?, ?, ?)`,
			bookID, i, ch.Title, ch.HTML,
		); err != nil {
			return 0, multierr.Append(fmt.Errorf("inserting chapter %d: %w", i, err), tx.Rollback())
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	s.log.Info("book added", zap.Int64("id", bookID), zap.String("title", title), zap.Int("chapters", len(chapters)))
	return bookID, nil
}

// Books lists the library, newest first.
func (s *Store) Books() ([]models.Book, error) {
	rows, err := s.db.Query(`SELECT id, title, author, file_path, added_at FROM books ORDER BY id DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var books []models.Book
	for rows.Next() {
		var b models.Book
		if err := rows.Scan(&b.ID, &b.Title, &b.Author, &b.FilePath, &b.AddedAt); err != nil {
			return nil, err
		}
		books = append(books, b)
	}
	return books, rows.Err()
}

// Chapters lists a book's chapter metadata in order, without content.
func (s *Store) Chapters(bookID int64) ([]models.Chapter, error) {
	rows, err := s.db.Query(
		`SELECT id, book_id, chapter_index, title FROM chapters WHERE book_id = ? ORDER BY chapter_index`,
		bookID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var chapters []models.Chapter
	for rows.Next() {
		var ch models.Chapter
		if err := rows.Scan(&ch.ID, &ch.BookID, &ch.Index, &ch.Title); err != nil {
			return nil, err
		}
		chapters = append(chapters, ch)
	}
	return chapters, rows.Err()
}

// Chapter fetches one chapter with its content.
func (s *Store) Chapter(bookID int64, index int) (models.Chapter, error) {
	var ch models.Chapter
	err := s.db.QueryRow(
		`SELECT id, book_id, chapter_index, title, html FROM chapters WHERE book_id = ? AND chapter_index = ?`,
		bookID, index,
	).Scan(&ch.ID, &ch.BookID, &ch.Index, &ch.Title, &ch.HTML)
	if err != nil {
		return models.Chapter{}, fmt.Errorf("loading chapter %d of book %d: %w", index, bookID, err)
	}
	return ch, nil
}

// CreateAnnotation commits a highlight or underline for a chapter span.
func (s *Store) CreateAnnotation(bookID int64, chapterIndex int, anchor string, kind models.AnnotationKind) (models.Annotation, error) {
	if !kind.Valid() {
		return models.Annotation{}, fmt.Errorf("invalid annotation kind %q", kind)
	}
	res, err := s.db.Exec(
		`INSERT INTO notes (title, book_id, chapter_index, highlighted_text, annotation_type, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		snippet(anchor), bookID, chapterIndex, anchor, string(kind), time.Now().UTC(),
	)
	if err != nil {
		return models.Annotation{}, fmt.Errorf("creating annotation: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return models.Annotation{}, err
	}
	return models.Annotation{ID: id, AnchorText: anchor, Kind: kind}, nil
}

// Annotations lists the live highlights and underlines for a chapter.
func (s *Store) Annotations(bookID int64, chapterIndex int) ([]models.Annotation, error) {
	rows, err := s.db.Query(
		`SELECT id, highlighted_text, annotation_type FROM notes
		 WHERE book_id = ? AND chapter_index = ? AND deleted_at IS NULL
		   AND annotation_type IN (?, ?)
		 ORDER BY id`,
		bookID, chapterIndex, string(models.KindHighlight), string(models.KindUnderline),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var anns []models.Annotation
	for rows.Next() {
		var a models.Annotation
		var kind string
		if err := rows.Scan(&a.ID, &a.AnchorText, &kind); err != nil {
			return nil, err
		}
		a.Kind = models.AnnotationKind(kind)
		anns = append(anns, a)
	}
	return anns, rows.Err()
}

// CreateNote stores a free-form note attached to a chapter span.
func (s *Store) CreateNote(bookID int64, chapterIndex int, title, content, highlighted string) (models.Note, error) {
	now := time.Now().UTC()
	res, err := s.db.Exec(
		`INSERT INTO notes (title, content, book_id, chapter_index, highlighted_text, annotation_type, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		title, content, bookID, chapterIndex, highlighted, models.AnnotationNote, now,
	)
	if err != nil {
		return models.Note{}, fmt.Errorf("creating note: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return models.Note{}, err
	}
	return models.Note{
		ID: id, Title: title, Content: content,
		BookID: bookID, ChapterIndex: chapterIndex,
		HighlightedText: highlighted, AnnotationType: models.AnnotationNote,
		CreatedAt: now,
	}, nil
}

// Notes lists all live notes and annotations for a book, newest first.
func (s *Store) Notes(bookID int64) ([]models.Note, error) {
	rows, err := s.db.Query(
		`SELECT id, title, content, book_id, chapter_index, highlighted_text, annotation_type, created_at
		 FROM notes WHERE book_id = ? AND deleted_at IS NULL ORDER BY id DESC`,
		bookID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var notes []models.Note
	for rows.Next() {
		var n models.Note
		if err := rows.Scan(&n.ID, &n.Title, &n.Content, &n.BookID, &n.ChapterIndex,
			&n.HighlightedText, &n.AnnotationType, &n.CreatedAt); err != nil {
			return nil, err
		}
		notes = append(notes, n)
	}
	return notes, rows.Err()
}

// DeleteNote soft-deletes a note or annotation.
func (s *Store) DeleteNote(id int64) error {
	_, err := s.db.Exec(`UPDATE notes SET deleted_at = ? WHERE id = ? AND deleted_at IS NULL`,
		time.Now().UTC(), id)
	return err
}

// SaveProgress upserts the reading position for a book.
func (s *Store) SaveProgress(bookID int64, chapterIndex, scrollOffset int) error {
	_, err := s.db.Exec(
		`INSERT INTO reading_progress (book_id, chapter_index, scroll_offset, updated_at)
		 VALUES (?, ?, ?, ?)
		 ON CONFLICT(book_id) DO UPDATE SET
		   chapter_index = excluded.chapter_index,
		   scroll_offset = excluded.scroll_offset,
		   updated_at = excluded.updated_at`,
		bookID, chapterIndex, scrollOffset, time.Now().UTC(),
	)
	return err
}

// Progress loads the saved reading position, or nil when none exists.
func (s *Store) Progress(bookID int64) (*models.ReadingProgress, error) {
	var p models.ReadingProgress
	err := s.db.QueryRow(
		`SELECT book_id, chapter_index, scroll_offset, updated_at FROM reading_progress WHERE book_id = ?`,
		bookID,
	).Scan(&p.BookID, &p.ChapterIndex, &p.ScrollOffset, &p.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// snippet shortens anchor text into a note title.
func snippet(s string) string {
	const max = 60
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max-1]) + "…"
}
