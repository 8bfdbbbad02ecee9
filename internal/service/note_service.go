package service

import (
	"context"
	"strings"

	"book-journal/internal/domain"
	"book-journal/internal/repository"
)

// NoteService coordinates owner-scoped note operations. Every method
// takes the verified owner's user ID; scoping is enforced by the
// repository's queries, not checked after the fact.
type NoteService interface {
	CreateNote(ctx context.Context, userID string, input NoteInput) (*domain.Note, error)
	ListNotes(ctx context.Context, userID string, sort domain.NoteSort) ([]domain.Note, error)
	GetNote(ctx context.Context, id int64, userID string) (*domain.Note, error)
	UpdateNote(ctx context.Context, id int64, userID string, input NoteInput) (*domain.Note, error)
	DeleteNote(ctx context.Context, id int64, userID string) error
}

// NoteInput carries the client-supplied fields of a note. CoverURL is
// only honored at creation; updates ignore it.
type NoteInput struct {
	Title    string
	Review   string
	Rating   int
	ReadDate string
	CoverURL *string
}

type noteService struct {
	notes repository.NoteRepository
}

func NewNoteService(notes repository.NoteRepository) NoteService {
	return &noteService{notes: notes}
}

func validateNoteInput(input NoteInput) error {
	if strings.TrimSpace(input.Title) == "" {
		return domain.Invalid("title is required")
	}
	if input.Rating < 1 || input.Rating > 5 {
		return domain.Invalid("rating must be between 1 and 5")
	}
	return nil
}

func (s *noteService) CreateNote(ctx context.Context, userID string, input NoteInput) (*domain.Note, error) {
	if err := validateNoteInput(input); err != nil {
		return nil, err
	}

	coverURL := input.CoverURL
	if coverURL != nil && strings.TrimSpace(*coverURL) == "" {
		coverURL = nil
	}

	note := &domain.Note{
		UserID:   userID,
		Title:    input.Title,
		Review:   input.Review,
		Rating:   input.Rating,
		ReadDate: input.ReadDate,
		CoverURL: coverURL,
	}

	if _, err := s.notes.Create(ctx, note); err != nil {
		return nil, err
	}
	return note, nil
}

func (s *noteService) ListNotes(ctx context.Context, userID string, sort domain.NoteSort) ([]domain.Note, error) {
	return s.notes.ListByOwner(ctx, userID, sort)
}

func (s *noteService) GetNote(ctx context.Context, id int64, userID string) (*domain.Note, error) {
	return s.notes.GetOwned(ctx, id, userID)
}

func (s *noteService) UpdateNote(ctx context.Context, id int64, userID string, input NoteInput) (*domain.Note, error) {
	if err := validateNoteInput(input); err != nil {
		return nil, err
	}

	return s.notes.UpdateOwned(ctx, id, userID, repository.NoteUpdate{
		Title:    input.Title,
		Review:   input.Review,
		Rating:   input.Rating,
		ReadDate: input.ReadDate,
	})
}

func (s *noteService) DeleteNote(ctx context.Context, id int64, userID string) error {
	return s.notes.DeleteOwned(ctx, id, userID)
}
