package store

import (
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"github.com/tmarkley/marginalia/pkg/models"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "library.db"), nil)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() {
		if err := s.Close(); err != nil {
			t.Errorf("Close: %v", err)
		}
	})
	return s
}

func addTestBook(t *testing.T, s *Store) int64 {
	t.Helper()
	id, err := s.AddBook("Walden", "Thoreau", "/books/walden.html", []models.Chapter{
		{Title: "Economy", HTML: "<p>When I wrote the following pages.</p>"},
		{Title: "Where I Lived", HTML: "<p>At a certain season of our life.</p>"},
	})
	if err != nil {
		t.Fatalf("AddBook: %v", err)
	}
	return id
}

func TestAddBookAndListing(t *testing.T) {
	s := openTestStore(t)
	id := addTestBook(t, s)

	books, err := s.Books()
	if err != nil {
		t.Fatalf("Books: %v", err)
	}
	if len(books) != 1 {
		t.Fatalf("got %d books, want 1", len(books))
	}
	if books[0].ID != id || books[0].Title != "Walden" || books[0].Author != "Thoreau" {
		t.Errorf("unexpected book row: %+v", books[0])
	}
	if books[0].AddedAt.IsZero() {
		t.Error("AddedAt not stored")
	}

	chapters, err := s.Chapters(id)
	if err != nil {
		t.Fatalf("Chapters: %v", err)
	}
	var titles []string
	for _, ch := range chapters {
		titles = append(titles, ch.Title)
	}
	if diff := cmp.Diff([]string{"Economy", "Where I Lived"}, titles); diff != "" {
		t.Errorf("chapter titles mismatch (-want +got):\n%s", diff)
	}

	ch, err := s.Chapter(id, 1)
	if err != nil {
		t.Fatalf("Chapter: %v", err)
	}
	if ch.Index != 1 || !strings.Contains(ch.HTML, "certain season") {
		t.Errorf("unexpected chapter: %+v", ch)
	}
}

func TestChapterNotFound(t *testing.T) {
	s := openTestStore(t)
	id := addTestBook(t, s)

	if _, err := s.Chapter(id, 99); err == nil {
		t.Fatal("expected error for missing chapter")
	}
}

func TestAnnotationRoundTrip(t *testing.T) {
	s := openTestStore(t)
	id := addTestBook(t, s)

	a1, err := s.CreateAnnotation(id, 0, "following pages", models.KindHighlight)
	if err != nil {
		t.Fatalf("CreateAnnotation: %v", err)
	}
	a2, err := s.CreateAnnotation(id, 0, "When I wrote", models.KindUnderline)
	if err != nil {
		t.Fatalf("CreateAnnotation: %v", err)
	}

	got, err := s.Annotations(id, 0)
	if err != nil {
		t.Fatalf("Annotations: %v", err)
	}
	want := []models.Annotation{a1, a2}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("annotations mismatch (-want +got):\n%s", diff)
	}

	// Other chapters see nothing.
	other, err := s.Annotations(id, 1)
	if err != nil {
		t.Fatalf("Annotations: %v", err)
	}
	if len(other) != 0 {
		t.Errorf("chapter 1 has %d annotations, want 0", len(other))
	}
}

func TestCreateAnnotationRejectsUnknownKind(t *testing.T) {
	s := openTestStore(t)
	id := addTestBook(t, s)

	if _, err := s.CreateAnnotation(id, 0, "text", models.AnnotationKind("wavy")); err == nil {
		t.Fatal("expected error for unknown kind")
	}
}

func TestNotesIncludeAnnotations(t *testing.T) {
	s := openTestStore(t)
	id := addTestBook(t, s)

	ann, err := s.CreateAnnotation(id, 0, "following pages", models.KindHighlight)
	if err != nil {
		t.Fatalf("CreateAnnotation: %v", err)
	}
	note, err := s.CreateNote(id, 1, "season", "Compare with the opening.", "certain season")
	if err != nil {
		t.Fatalf("CreateNote: %v", err)
	}

	notes, err := s.Notes(id)
	if err != nil {
		t.Fatalf("Notes: %v", err)
	}
	if len(notes) != 2 {
		t.Fatalf("got %d notes, want 2", len(notes))
	}
	// Newest first.
	if notes[0].ID != note.ID || notes[1].ID != ann.ID {
		t.Errorf("unexpected order: %d, %d", notes[0].ID, notes[1].ID)
	}
	if diff := cmp.Diff(note, notes[0], cmpopts.EquateApproxTime(time.Second)); diff != "" {
		t.Errorf("note mismatch (-want +got):\n%s", diff)
	}
	if notes[1].AnnotationType != string(models.KindHighlight) {
		t.Errorf("annotation type = %q", notes[1].AnnotationType)
	}
}

func TestDeleteNoteIsSoft(t *testing.T) {
	s := openTestStore(t)
	id := addTestBook(t, s)

	ann, err := s.CreateAnnotation(id, 0, "following pages", models.KindHighlight)
	if err != nil {
		t.Fatalf("CreateAnnotation: %v", err)
	}
	if err := s.DeleteNote(ann.ID); err != nil {
		t.Fatalf("DeleteNote: %v", err)
	}

	anns, err := s.Annotations(id, 0)
	if err != nil {
		t.Fatalf("Annotations: %v", err)
	}
	if len(anns) != 0 {
		t.Errorf("deleted annotation still listed: %+v", anns)
	}
	notes, err := s.Notes(id)
	if err != nil {
		t.Fatalf("Notes: %v", err)
	}
	if len(notes) != 0 {
		t.Errorf("deleted note still listed: %+v", notes)
	}

	// The row itself survives.
	var count int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM notes WHERE id = ?`, ann.ID).Scan(&count); err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 1 {
		t.Errorf("note row hard-deleted")
	}
}

func TestProgressUpsert(t *testing.T) {
	s := openTestStore(t)
	id := addTestBook(t, s)

	p, err := s.Progress(id)
	if err != nil {
		t.Fatalf("Progress: %v", err)
	}
	if p != nil {
		t.Fatalf("expected no progress, got %+v", p)
	}

	if err := s.SaveProgress(id, 0, 12); err != nil {
		t.Fatalf("SaveProgress: %v", err)
	}
	if err := s.SaveProgress(id, 1, 40); err != nil {
		t.Fatalf("SaveProgress: %v", err)
	}

	p, err = s.Progress(id)
	if err != nil {
		t.Fatalf("Progress: %v", err)
	}
	if p == nil || p.ChapterIndex != 1 || p.ScrollOffset != 40 {
		t.Errorf("unexpected progress: %+v", p)
	}

	var count int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM reading_progress WHERE book_id = ?`, id).Scan(&count); err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 1 {
		t.Errorf("got %d progress rows, want 1", count)
	}
}

func TestSnippetTruncates(t *testing.T) {
	long := strings.Repeat("a", 100)
	got := snippet(long)
	if len([]rune(got)) != 60 {
		t.Errorf("snippet length = %d, want 60", len([]rune(got)))
	}
	if snippet("short") != "short" {
		t.Errorf("short anchor should pass through")
	}
}
