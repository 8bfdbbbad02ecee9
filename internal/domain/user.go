package domain

import "time"

// User represents a registered account holder. The ID is an opaque
// UUID string assigned at registration and never reused.
type User struct {
	ID           string
	Username     string
	PasswordHash string
	CreatedAt    time.Time
}
