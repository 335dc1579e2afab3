package auth

import (
	"bytes"
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"log/slog"

	"github.com/bibalaye/Mini-projet-gestion-des-livres-EDACY/internal/domain"
	"github.com/bibalaye/Mini-projet-gestion-des-livres-EDACY/internal/repository"
	"github.com/bibalaye/Mini-projet-gestion-des-livres-EDACY/pkg/config"
	jwtpkg "github.com/bibalaye/Mini-projet-gestion-des-livres-EDACY/pkg/jwt"
)

type userRepoStub struct {
	mu    sync.Mutex
	users map[string]domain.User // keyed by id
}

func newUserRepoStub() *userRepoStub {
	return &userRepoStub{users: make(map[string]domain.User)}
}

func (s *userRepoStub) CreateUser(_ context.Context, user *domain.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.users {
		if existing.Email == user.Email {
			return repository.ErrDuplicateEmail
		}
	}
	s.users[user.ID] = *user
	return nil
}

func (s *userRepoStub) GetUserByEmail(_ context.Context, email string) (*domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.Email == email {
			copied := u
			return &copied, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (s *userRepoStub) GetUserByID(_ context.Context, id string) (*domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u, ok := s.users[id]; ok {
		copied := u
		return &copied, nil
	}
	return nil, repository.ErrNotFound
}

func newLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testConfig() config.APIConfig {
	return config.APIConfig{JWTSecret: "test-secret", TokenTTL: 24 * time.Hour}
}

func TestRegisterIssuesTokenAndHashesPassword(t *testing.T) {
	repo := newUserRepoStub()
	svc := New(repo, newLogger(), testConfig())

	user, token, err := svc.Register(context.Background(), "a@x.com", "secret1", "B", "A")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if token == "" {
		t.Fatalf("expected token")
	}
	if bytes.Equal(user.PasswordHash, []byte("secret1")) {
		t.Fatalf("password stored as plaintext")
	}
	claims, err := jwtpkg.Parse(token, "test-secret")
	if err != nil {
		t.Fatalf("issued token does not verify: %v", err)
	}
	if claims.UserID != user.ID {
		t.Fatalf("token subject %q, want %q", claims.UserID, user.ID)
	}
}

func TestRegisterDuplicateEmailLeavesFirstRecordIntact(t *testing.T) {
	repo := newUserRepoStub()
	svc := New(repo, newLogger(), testConfig())

	first, _, err := svc.Register(context.Background(), "a@x.com", "secret1", "B", "A")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, _, err := svc.Register(context.Background(), "a@x.com", "other99", "C", "D"); !errors.Is(err, ErrEmailTaken) {
		t.Fatalf("expected ErrEmailTaken, got %v", err)
	}
	stored, err := repo.GetUserByID(context.Background(), first.ID)
	if err != nil {
		t.Fatalf("first record missing: %v", err)
	}
	if stored.Nom != "B" || stored.Prenom != "A" {
		t.Fatalf("first record mutated: %+v", stored)
	}
}

func TestLoginWrongPassword(t *testing.T) {
	repo := newUserRepoStub()
	svc := New(repo, newLogger(), testConfig())

	if _, _, err := svc.Register(context.Background(), "a@x.com", "secret1", "B", "A"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, _, err := svc.Login(context.Background(), "a@x.com", "wrongpw"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
}

func TestLoginUnknownEmailSameError(t *testing.T) {
	svc := New(newUserRepoStub(), newLogger(), testConfig())
	if _, _, err := svc.Login(context.Background(), "nobody@x.com", "secret1"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
}

func TestAuthorizeRoundTrip(t *testing.T) {
	repo := newUserRepoStub()
	svc := New(repo, newLogger(), testConfig())

	user, token, err := svc.Register(context.Background(), "a@x.com", "secret1", "B", "A")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	resolved, err := svc.Authorize(context.Background(), token)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resolved.ID != user.ID {
		t.Fatalf("resolved %q, want %q", resolved.ID, user.ID)
	}
}

func TestAuthorizeErrorKinds(t *testing.T) {
	repo := newUserRepoStub()
	svc := New(repo, newLogger(), testConfig())

	expired, err := jwtpkg.GenerateToken("user-1", "test-secret", -time.Minute)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := svc.Authorize(context.Background(), expired); !errors.Is(err, ErrTokenExpired) {
		t.Fatalf("expected ErrTokenExpired, got %v", err)
	}

	if _, err := svc.Authorize(context.Background(), "garbage"); !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("expected ErrTokenInvalid, got %v", err)
	}

	orphan, err := jwtpkg.GenerateToken("deleted-user", "test-secret", time.Hour)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := svc.Authorize(context.Background(), orphan); !errors.Is(err, ErrUnknownSubject) {
		t.Fatalf("expected ErrUnknownSubject, got %v", err)
	}
}
