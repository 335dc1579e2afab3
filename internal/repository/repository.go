package repository

import (
	"context"

	"github.com/bibalaye/Mini-projet-gestion-des-livres-EDACY/internal/domain"
)

// UserRepository persists accounts.
type UserRepository interface {
	CreateUser(ctx context.Context, user *domain.User) error
	GetUserByEmail(ctx context.Context, email string) (*domain.User, error)
	GetUserByID(ctx context.Context, id string) (*domain.User, error)
}

// LivreRepository persists catalog entries.
type LivreRepository interface {
	CreateLivre(ctx context.Context, livre *domain.Livre) error
	GetLivreByID(ctx context.Context, id string) (*domain.Livre, error)
	ListLivres(ctx context.Context) ([]domain.Livre, error)
	ListLivresByUser(ctx context.Context, userID string) ([]domain.Livre, error)
	UpdateLivre(ctx context.Context, livre *domain.Livre) error
	DeleteLivre(ctx context.Context, id string) error
}
