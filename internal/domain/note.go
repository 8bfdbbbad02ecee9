package domain

import "time"

// NoteSort selects the ordering of a note listing. Only the enumerated
// values below are ever interpolated into a query.
type NoteSort string

const (
	// NoteSortDefault orders by creation time, newest first.
	NoteSortDefault NoteSort = ""
	// NoteSortRating orders by rating, highest first.
	NoteSortRating NoteSort = "rating"
	// NoteSortRecency orders by read date, most recent first.
	NoteSortRecency NoteSort = "recency"
)

// ParseNoteSort maps a raw sort query value onto the enumerated set.
// Unknown values fall back to the default ordering.
func ParseNoteSort(raw string) NoteSort {
	switch NoteSort(raw) {
	case NoteSortRating:
		return NoteSortRating
	case NoteSortRecency:
		return NoteSortRecency
	default:
		return NoteSortDefault
	}
}

// Note is a single book-journal entry. UserID references the owning
// User and is fixed at creation; every read and mutation is scoped by it.
type Note struct {
	ID          int64
	UserID      string
	Title       string
	Review      string
	Rating      int
	ReadDate    string
	CoverURL    *string
	CoverObject string
	CreatedAt   time.Time
}
