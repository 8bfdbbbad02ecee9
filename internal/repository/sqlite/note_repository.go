package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"book-journal/internal/domain"
	"book-journal/internal/repository"
)

const createNotesTable = `
CREATE TABLE IF NOT EXISTS book_notes (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	user_id TEXT NOT NULL REFERENCES users(id),
	title TEXT NOT NULL,
	review TEXT NOT NULL DEFAULT '',
	rating INTEGER NOT NULL,
	read_date TEXT NOT NULL DEFAULT '',
	cover_url TEXT NULL,
	cover_object TEXT NOT NULL DEFAULT '',
	created_at DATETIME NOT NULL
);
`

type NoteRepository struct {
	db *sql.DB
}

func NewNoteRepository(db *sql.DB) repository.NoteRepository {
	return &NoteRepository{db: db}
}

func (r *NoteRepository) Init(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, createNotesTable); err != nil {
		return fmt.Errorf("create book_notes table: %w", err)
	}
	return nil
}

func (r *NoteRepository) Create(ctx context.Context, note *domain.Note) (int64, error) {
	note.CreatedAt = time.Now().UTC()

	res, err := r.db.ExecContext(ctx, `
INSERT INTO book_notes (user_id, title, review, rating, read_date, cover_url, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?)`,
		note.UserID,
		note.Title,
		note.Review,
		note.Rating,
		note.ReadDate,
		note.CoverURL,
		note.CreatedAt,
	)
	if err != nil {
		return 0, fmt.Errorf("insert note: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("note last insert id: %w", err)
	}
	note.ID = id
	return id, nil
}

func (r *NoteRepository) Get(ctx context.Context, id int64) (*domain.Note, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT id, user_id, title, review, rating, read_date, cover_url, cover_object, created_at
FROM book_notes
WHERE id = ?`,
		id,
	)
	return scanNote(row)
}

func (r *NoteRepository) GetOwned(ctx context.Context, id int64, userID string) (*domain.Note, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT id, user_id, title, review, rating, read_date, cover_url, cover_object, created_at
FROM book_notes
WHERE id = ? AND user_id = ?`,
		id, userID,
	)
	return scanNote(row)
}

// orderClause maps the sort enum onto a fixed ORDER BY string. Nothing
// request-derived is ever interpolated into the query text.
func orderClause(sort domain.NoteSort) string {
	switch sort {
	case domain.NoteSortRating:
		return "rating DESC"
	case domain.NoteSortRecency:
		return "read_date DESC"
	default:
		return "created_at DESC"
	}
}

func (r *NoteRepository) ListByOwner(ctx context.Context, userID string, sort domain.NoteSort) ([]domain.Note, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT id, user_id, title, review, rating, read_date, cover_url, cover_object, created_at
FROM book_notes
WHERE user_id = ?
ORDER BY `+orderClause(sort),
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("query notes: %w", err)
	}
	defer rows.Close()

	var notes []domain.Note
	for rows.Next() {
		var note domain.Note
		if err := rows.Scan(
			&note.ID,
			&note.UserID,
			&note.Title,
			&note.Review,
			&note.Rating,
			&note.ReadDate,
			&note.CoverURL,
			&note.CoverObject,
			&note.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan note: %w", err)
		}
		notes = append(notes, note)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate notes: %w", err)
	}
	return notes, nil
}

func (r *NoteRepository) UpdateOwned(ctx context.Context, id int64, userID string, update repository.NoteUpdate) (*domain.Note, error) {
	// Single statement: the updated row comes back atomically, so a
	// concurrent delete cannot slip between the write and the read.
	row := r.db.QueryRowContext(ctx, `
UPDATE book_notes
SET title = ?, review = ?, rating = ?, read_date = ?
WHERE id = ? AND user_id = ?
RETURNING id, user_id, title, review, rating, read_date, cover_url, cover_object, created_at`,
		update.Title,
		update.Review,
		update.Rating,
		update.ReadDate,
		id,
		userID,
	)
	return scanNote(row)
}

func (r *NoteRepository) DeleteOwned(ctx context.Context, id int64, userID string) error {
	res, err := r.db.ExecContext(ctx, `
DELETE FROM book_notes
WHERE id = ? AND user_id = ?`,
		id, userID,
	)
	if err != nil {
		return fmt.Errorf("delete note: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete note rows affected: %w", err)
	}
	if affected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *NoteRepository) SetCoverObject(ctx context.Context, id int64, object string) error {
	if _, err := r.db.ExecContext(ctx, `
UPDATE book_notes
SET cover_object = ?
WHERE id = ?`,
		object, id,
	); err != nil {
		return fmt.Errorf("set cover object: %w", err)
	}
	return nil
}

func (r *NoteRepository) ListUnarchived(ctx context.Context) ([]domain.Note, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT id, user_id, title, review, rating, read_date, cover_url, cover_object, created_at
FROM book_notes
WHERE cover_url IS NOT NULL AND cover_url != '' AND cover_object = ''`)
	if err != nil {
		return nil, fmt.Errorf("query unarchived notes: %w", err)
	}
	defer rows.Close()

	var notes []domain.Note
	for rows.Next() {
		var note domain.Note
		if err := rows.Scan(
			&note.ID,
			&note.UserID,
			&note.Title,
			&note.Review,
			&note.Rating,
			&note.ReadDate,
			&note.CoverURL,
			&note.CoverObject,
			&note.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan note: %w", err)
		}
		notes = append(notes, note)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate notes: %w", err)
	}
	return notes, nil
}

func scanNote(row *sql.Row) (*domain.Note, error) {
	var note domain.Note
	if err := row.Scan(
		&note.ID,
		&note.UserID,
		&note.Title,
		&note.Review,
		&note.Rating,
		&note.ReadDate,
		&note.CoverURL,
		&note.CoverObject,
		&note.CreatedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("scan note: %w", err)
	}
	return &note, nil
}
