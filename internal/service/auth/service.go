package auth

import (
	"context"
	"errors"
	"time"

	"log/slog"

	"github.com/google/uuid"

	"github.com/bibalaye/Mini-projet-gestion-des-livres-EDACY/internal/domain"
	"github.com/bibalaye/Mini-projet-gestion-des-livres-EDACY/internal/repository"
	"github.com/bibalaye/Mini-projet-gestion-des-livres-EDACY/pkg/config"
	"github.com/bibalaye/Mini-projet-gestion-des-livres-EDACY/pkg/crypto"
	jwtpkg "github.com/bibalaye/Mini-projet-gestion-des-livres-EDACY/pkg/jwt"
)

var (
	// ErrEmailTaken reports a registration against an existing email.
	ErrEmailTaken = errors.New("auth: email already registered")
	// ErrInvalidCredentials covers both unknown email and wrong password,
	// so login responses cannot be used to probe which emails exist.
	ErrInvalidCredentials = errors.New("auth: invalid credentials")
	// ErrTokenExpired reports a bearer token past its expiry.
	ErrTokenExpired = errors.New("auth: token expired")
	// ErrTokenInvalid reports a bearer token that failed verification.
	ErrTokenInvalid = errors.New("auth: token invalid")
	// ErrUnknownSubject reports a valid token whose user no longer exists.
	ErrUnknownSubject = errors.New("auth: user not found")
)

// Service handles credential issuance and bearer token verification.
type Service struct {
	users  repository.UserRepository
	logger *slog.Logger
	cfg    config.APIConfig
}

// New constructs a Service.
func New(users repository.UserRepository, logger *slog.Logger, cfg config.APIConfig) Service {
	return Service{users: users, logger: logger, cfg: cfg}
}

// Register creates an account and returns it with a fresh token.
func (s Service) Register(ctx context.Context, email, password, nom, prenom string) (*domain.User, string, error) {
	hash, err := crypto.HashPassword(password)
	if err != nil {
		return nil, "", err
	}
	user := &domain.User{
		ID:           uuid.NewString(),
		Email:        email,
		PasswordHash: hash,
		Nom:          nom,
		Prenom:       prenom,
		CreatedAt:    time.Now().UTC(),
	}
	if err := s.users.CreateUser(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicateEmail) {
			return nil, "", ErrEmailTaken
		}
		return nil, "", err
	}
	token, err := jwtpkg.GenerateToken(user.ID, s.cfg.JWTSecret, s.cfg.TokenTTL)
	if err != nil {
		return nil, "", err
	}
	s.logger.Info("user registered", "user_id", user.ID)
	return user, token, nil
}

// Login verifies credentials and returns the user with a fresh token.
func (s Service) Login(ctx context.Context, email, password string) (*domain.User, string, error) {
	user, err := s.users.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, "", ErrInvalidCredentials
		}
		return nil, "", err
	}
	if err := crypto.ComparePassword(user.PasswordHash, password); err != nil {
		return nil, "", ErrInvalidCredentials
	}
	token, err := jwtpkg.GenerateToken(user.ID, s.cfg.JWTSecret, s.cfg.TokenTTL)
	if err != nil {
		return nil, "", err
	}
	s.logger.Info("user logged in", "user_id", user.ID)
	return user, token, nil
}

// GetUser fetches an account by identifier. Callers translate
// repository.ErrNotFound themselves.
func (s Service) GetUser(ctx context.Context, id string) (*domain.User, error) {
	return s.users.GetUserByID(ctx, id)
}

// Authorize validates a bearer token and resolves its subject to a live
// user record. Each call performs exactly one parse and one lookup.
func (s Service) Authorize(ctx context.Context, token string) (*domain.User, error) {
	claims, err := jwtpkg.Parse(token, s.cfg.JWTSecret)
	if err != nil {
		if errors.Is(err, jwtpkg.ErrExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrTokenInvalid
	}
	user, err := s.users.GetUserByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrUnknownSubject
		}
		return nil, err
	}
	return user, nil
}
