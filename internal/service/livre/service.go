package livre

import (
	"context"
	"errors"
	"time"

	"log/slog"

	"github.com/google/uuid"

	"github.com/bibalaye/Mini-projet-gestion-des-livres-EDACY/internal/domain"
	"github.com/bibalaye/Mini-projet-gestion-des-livres-EDACY/internal/repository"
)

// ErrForbidden reports a mutation attempted by someone other than the owner.
// Ownership is the sole authorization predicate; there is no superuser role.
var ErrForbidden = errors.New("livre: not the owner")

// ImageStore removes stored images when entries are updated or deleted.
type ImageStore interface {
	Remove(publicPath string) error
}

// Service handles catalog operations and enforces ownership.
type Service struct {
	livres repository.LivreRepository
	images ImageStore
	logger *slog.Logger
}

// New constructs a Service.
func New(livres repository.LivreRepository, images ImageStore, logger *slog.Logger) Service {
	return Service{livres: livres, images: images, logger: logger}
}

// Input carries the mutable fields of a catalog entry.
type Input struct {
	Titre            string
	Auteur           string
	AnneePublication int
	Genre            string
	Description      string
	Image            string // public path of a freshly stored upload, or empty
}

// CheckOwnership allows a mutation only when the resource owner matches the
// authenticated identity.
func CheckOwnership(resourceOwnerID, authenticatedID string) error {
	if resourceOwnerID != authenticatedID {
		return ErrForbidden
	}
	return nil
}

// Create stores a new entry owned by userID.
func (s Service) Create(ctx context.Context, userID string, in Input) (*domain.Livre, error) {
	entry := &domain.Livre{
		ID:               uuid.NewString(),
		Titre:            in.Titre,
		Auteur:           in.Auteur,
		AnneePublication: in.AnneePublication,
		Genre:            in.Genre,
		Description:      in.Description,
		Image:            in.Image,
		UserID:           userID,
		CreatedAt:        time.Now().UTC(),
	}
	if err := s.livres.CreateLivre(ctx, entry); err != nil {
		return nil, err
	}
	s.logger.Info("livre created", "livre_id", entry.ID, "user_id", userID)
	return entry, nil
}

// Get fetches a single entry.
func (s Service) Get(ctx context.Context, id string) (*domain.Livre, error) {
	return s.livres.GetLivreByID(ctx, id)
}

// List returns the whole catalog.
func (s Service) List(ctx context.Context) ([]domain.Livre, error) {
	return s.livres.ListLivres(ctx)
}

// ListMine returns the entries owned by userID.
func (s Service) ListMine(ctx context.Context, userID string) ([]domain.Livre, error) {
	return s.livres.ListLivresByUser(ctx, userID)
}

// Update overwrites an entry after checking ownership. When a new image was
// uploaded, the previous one is removed from disk.
func (s Service) Update(ctx context.Context, id, userID string, in Input) (*domain.Livre, error) {
	current, err := s.livres.GetLivreByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := CheckOwnership(current.UserID, userID); err != nil {
		return nil, err
	}

	image := current.Image
	if in.Image != "" {
		if current.Image != "" {
			if err := s.images.Remove(current.Image); err != nil {
				s.logger.Warn("stale image not removed", "livre_id", id, "error", err)
			}
		}
		image = in.Image
	}

	updated := &domain.Livre{
		ID:               current.ID,
		Titre:            in.Titre,
		Auteur:           in.Auteur,
		AnneePublication: in.AnneePublication,
		Genre:            in.Genre,
		Description:      in.Description,
		Image:            image,
		UserID:           current.UserID,
		CreatedAt:        current.CreatedAt,
	}
	if err := s.livres.UpdateLivre(ctx, updated); err != nil {
		return nil, err
	}
	s.logger.Info("livre updated", "livre_id", id, "user_id", userID)
	return updated, nil
}

// Delete removes an entry and its stored image after checking ownership.
func (s Service) Delete(ctx context.Context, id, userID string) error {
	current, err := s.livres.GetLivreByID(ctx, id)
	if err != nil {
		return err
	}
	if err := CheckOwnership(current.UserID, userID); err != nil {
		return err
	}
	if current.Image != "" {
		if err := s.images.Remove(current.Image); err != nil {
			s.logger.Warn("image not removed", "livre_id", id, "error", err)
		}
	}
	if err := s.livres.DeleteLivre(ctx, id); err != nil {
		return err
	}
	s.logger.Info("livre deleted", "livre_id", id, "user_id", userID)
	return nil
}
