package service

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"book-journal/internal/domain"
	"book-journal/internal/repository/sqlite"
)

func newUserService(t *testing.T) UserService {
	t.Helper()

	db, err := sqlite.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	repo := sqlite.NewUserRepository(db)
	if err := repo.Init(context.Background()); err != nil {
		t.Fatalf("init user repository: %v", err)
	}
	return NewUserService(repo)
}

func TestRegister(t *testing.T) {
	users := newUserService(t)
	ctx := context.Background()

	user, err := users.Register(ctx, "alice", "pw123456")
	if err != nil {
		t.Fatalf("Register error: %v", err)
	}
	if user.ID == "" {
		t.Error("expected a generated user id")
	}
	if user.Username != "alice" {
		t.Errorf("username mismatch: got %q", user.Username)
	}
	if user.PasswordHash != "" {
		t.Error("password hash leaked out of the service")
	}

	// same username again
	if _, err := users.Register(ctx, "alice", "otherpassword"); !errors.Is(err, domain.ErrUserAlreadyExists) {
		t.Fatalf("expected ErrUserAlreadyExists, got %v", err)
	}
}

func TestRegisterValidation(t *testing.T) {
	users := newUserService(t)
	ctx := context.Background()

	cases := []struct {
		name     string
		username string
		password string
	}{
		{"missing username", "", "pw123456"},
		{"missing password", "bob", ""},
		{"short password", "bob", "short"},
	}
	for _, tc := range cases {
		if _, err := users.Register(ctx, tc.username, tc.password); !errors.Is(err, domain.ErrInvalidInput) {
			t.Errorf("%s: expected ErrInvalidInput, got %v", tc.name, err)
		}
	}
}

func TestAuthenticate(t *testing.T) {
	users := newUserService(t)
	ctx := context.Background()

	registered, err := users.Register(ctx, "alice", "pw123456")
	if err != nil {
		t.Fatalf("Register error: %v", err)
	}

	user, err := users.Authenticate(ctx, "alice", "pw123456")
	if err != nil {
		t.Fatalf("Authenticate error: %v", err)
	}
	if user.ID != registered.ID {
		t.Errorf("id mismatch: got %q want %q", user.ID, registered.ID)
	}

	// wrong password and unknown username fail identically
	_, wrongPw := users.Authenticate(ctx, "alice", "wrong-password")
	_, unknown := users.Authenticate(ctx, "nobody", "pw123456")
	if !errors.Is(wrongPw, domain.ErrInvalidCredentials) {
		t.Errorf("wrong password: expected ErrInvalidCredentials, got %v", wrongPw)
	}
	if !errors.Is(unknown, domain.ErrInvalidCredentials) {
		t.Errorf("unknown user: expected ErrInvalidCredentials, got %v", unknown)
	}
	if wrongPw.Error() != unknown.Error() {
		t.Errorf("failure modes distinguishable: %q vs %q", wrongPw, unknown)
	}
}

func TestGetByID(t *testing.T) {
	users := newUserService(t)
	ctx := context.Background()

	registered, err := users.Register(ctx, "alice", "pw123456")
	if err != nil {
		t.Fatalf("Register error: %v", err)
	}

	user, err := users.GetByID(ctx, registered.ID)
	if err != nil {
		t.Fatalf("GetByID error: %v", err)
	}
	if user.Username != "alice" {
		t.Errorf("username mismatch: got %q", user.Username)
	}
	if user.PasswordHash != "" {
		t.Error("password hash leaked out of the service")
	}

	if _, err := users.GetByID(ctx, "missing-id"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
