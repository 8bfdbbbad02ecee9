package repository

import (
	"context"

	"book-journal/internal/domain"
)

// NoteUpdate carries the mutable fields of a note. Ownership and the
// cover URL are fixed at creation and are not part of an update.
type NoteUpdate struct {
	Title    string
	Review   string
	Rating   int
	ReadDate string
}

// NoteRepository defines owner-scoped persistence operations for Note
// entities. Operations taking a userID never touch rows owned by anyone
// else; a missing row and a row owned by another user both surface as
// domain.ErrNotFound.
type NoteRepository interface {
	Init(ctx context.Context) error
	Create(ctx context.Context, note *domain.Note) (int64, error)
	// Get fetches a note regardless of owner. It exists for the cover
	// archiver only; request handling always goes through GetOwned.
	Get(ctx context.Context, id int64) (*domain.Note, error)
	GetOwned(ctx context.Context, id int64, userID string) (*domain.Note, error)
	ListByOwner(ctx context.Context, userID string, sort domain.NoteSort) ([]domain.Note, error)
	UpdateOwned(ctx context.Context, id int64, userID string, update NoteUpdate) (*domain.Note, error)
	DeleteOwned(ctx context.Context, id int64, userID string) error
	SetCoverObject(ctx context.Context, id int64, object string) error
	ListUnarchived(ctx context.Context) ([]domain.Note, error)
}
