package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"book-journal/internal/domain"
	"book-journal/internal/repository"
)

func newTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func seedUser(t *testing.T, db *sql.DB, id, username string) {
	t.Helper()

	users := NewUserRepository(db)
	if err := users.Init(context.Background()); err != nil {
		t.Fatalf("init user repository: %v", err)
	}
	err := users.Create(context.Background(), &domain.User{
		ID:           id,
		Username:     username,
		PasswordHash: "x",
	})
	if err != nil && !errors.Is(err, domain.ErrUserAlreadyExists) {
		t.Fatalf("seed user %s: %v", username, err)
	}
}

func newNoteRepo(t *testing.T, db *sql.DB) repository.NoteRepository {
	t.Helper()

	notes := NewNoteRepository(db)
	if err := notes.Init(context.Background()); err != nil {
		t.Fatalf("init note repository: %v", err)
	}
	return notes
}

func createNote(t *testing.T, notes repository.NoteRepository, userID, title string, rating int, readDate string, coverURL *string) *domain.Note {
	t.Helper()

	note := &domain.Note{
		UserID:   userID,
		Title:    title,
		Rating:   rating,
		ReadDate: readDate,
		CoverURL: coverURL,
	}
	if _, err := notes.Create(context.Background(), note); err != nil {
		t.Fatalf("create note %q: %v", title, err)
	}
	return note
}

func TestListByOwnerScoping(t *testing.T) {
	db := newTestDB(t)
	seedUser(t, db, "user-a", "alice")
	seedUser(t, db, "user-b", "bob")
	notes := newNoteRepo(t, db)
	ctx := context.Background()

	createNote(t, notes, "user-a", "Dune", 5, "2024-01-01", nil)
	createNote(t, notes, "user-b", "Neuromancer", 4, "2023-06-01", nil)

	got, err := notes.ListByOwner(ctx, "user-a", domain.NoteSortDefault)
	if err != nil {
		t.Fatalf("ListByOwner error: %v", err)
	}
	if len(got) != 1 || got[0].Title != "Dune" {
		t.Fatalf("expected only alice's note, got %+v", got)
	}
}

func TestListByOwnerSorting(t *testing.T) {
	db := newTestDB(t)
	seedUser(t, db, "user-a", "alice")
	notes := newNoteRepo(t, db)
	ctx := context.Background()

	createNote(t, notes, "user-a", "three", 3, "2021-01-01", nil)
	time.Sleep(5 * time.Millisecond)
	createNote(t, notes, "user-a", "five", 5, "2023-01-01", nil)
	time.Sleep(5 * time.Millisecond)
	createNote(t, notes, "user-a", "one", 1, "2022-01-01", nil)

	byRating, err := notes.ListByOwner(ctx, "user-a", domain.NoteSortRating)
	if err != nil {
		t.Fatalf("ListByOwner rating: %v", err)
	}
	if byRating[0].Rating != 5 || byRating[1].Rating != 3 || byRating[2].Rating != 1 {
		t.Errorf("rating order wrong: %d %d %d", byRating[0].Rating, byRating[1].Rating, byRating[2].Rating)
	}

	byRecency, err := notes.ListByOwner(ctx, "user-a", domain.NoteSortRecency)
	if err != nil {
		t.Fatalf("ListByOwner recency: %v", err)
	}
	if byRecency[0].ReadDate != "2023-01-01" {
		t.Errorf("recency order wrong, first read_date: %s", byRecency[0].ReadDate)
	}

	byCreation, err := notes.ListByOwner(ctx, "user-a", domain.NoteSortDefault)
	if err != nil {
		t.Fatalf("ListByOwner default: %v", err)
	}
	if byCreation[0].Title != "one" {
		t.Errorf("default order wrong, first title: %s", byCreation[0].Title)
	}
}

func TestUpdateOwned(t *testing.T) {
	db := newTestDB(t)
	seedUser(t, db, "user-a", "alice")
	seedUser(t, db, "user-b", "bob")
	notes := newNoteRepo(t, db)
	ctx := context.Background()

	coverURL := "https://covers.example/b/id/42-M.jpg"
	note := createNote(t, notes, "user-a", "Dune", 5, "2024-01-01", &coverURL)
	if err := notes.SetCoverObject(ctx, note.ID, "book-covers/1"); err != nil {
		t.Fatalf("SetCoverObject error: %v", err)
	}

	update := repository.NoteUpdate{Title: "Dune", Review: "rereadable", Rating: 4, ReadDate: "2024-01-01"}

	// not the owner; indistinguishable from a missing row
	if _, err := notes.UpdateOwned(ctx, note.ID, "user-b", update); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for foreign note, got %v", err)
	}

	// nonexistent id
	if _, err := notes.UpdateOwned(ctx, note.ID+100, "user-a", update); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for missing note, got %v", err)
	}

	updated, err := notes.UpdateOwned(ctx, note.ID, "user-a", update)
	if err != nil {
		t.Fatalf("UpdateOwned error: %v", err)
	}
	if updated.Rating != 4 || updated.Review != "rereadable" {
		t.Errorf("update not applied: %+v", updated)
	}
	// the row comes back from the update statement itself; the columns
	// the update does not touch must still be populated
	if updated.CoverURL == nil || *updated.CoverURL != coverURL {
		t.Errorf("cover url lost on update: %v", updated.CoverURL)
	}
	if updated.CoverObject != "book-covers/1" {
		t.Errorf("cover object lost on update: %q", updated.CoverObject)
	}
	if updated.CreatedAt.IsZero() {
		t.Error("created_at lost on update")
	}
}

func TestDeleteOwned(t *testing.T) {
	db := newTestDB(t)
	seedUser(t, db, "user-a", "alice")
	seedUser(t, db, "user-b", "bob")
	notes := newNoteRepo(t, db)
	ctx := context.Background()

	note := createNote(t, notes, "user-a", "Dune", 5, "2024-01-01", nil)

	if err := notes.DeleteOwned(ctx, note.ID, "user-b"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for foreign note, got %v", err)
	}
	if err := notes.DeleteOwned(ctx, note.ID, "user-a"); err != nil {
		t.Fatalf("DeleteOwned error: %v", err)
	}
	if err := notes.DeleteOwned(ctx, note.ID, "user-a"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
}

func TestCoverArchiveBookkeeping(t *testing.T) {
	db := newTestDB(t)
	seedUser(t, db, "user-a", "alice")
	notes := newNoteRepo(t, db)
	ctx := context.Background()

	coverURL := "https://covers.example/b/id/42-M.jpg"
	withCover := createNote(t, notes, "user-a", "Dune", 5, "2024-01-01", &coverURL)
	createNote(t, notes, "user-a", "Plain", 3, "2024-02-01", nil)

	unarchived, err := notes.ListUnarchived(ctx)
	if err != nil {
		t.Fatalf("ListUnarchived error: %v", err)
	}
	if len(unarchived) != 1 || unarchived[0].ID != withCover.ID {
		t.Fatalf("expected only the covered note unarchived, got %+v", unarchived)
	}

	if err := notes.SetCoverObject(ctx, withCover.ID, "book-covers/1"); err != nil {
		t.Fatalf("SetCoverObject error: %v", err)
	}

	unarchived, err = notes.ListUnarchived(ctx)
	if err != nil {
		t.Fatalf("ListUnarchived error: %v", err)
	}
	if len(unarchived) != 0 {
		t.Fatalf("expected no unarchived notes, got %+v", unarchived)
	}

	got, err := notes.Get(ctx, withCover.ID)
	if err != nil {
		t.Fatalf("Get error: %v", err)
	}
	if got.CoverObject != "book-covers/1" {
		t.Errorf("cover object not recorded: %q", got.CoverObject)
	}
}
