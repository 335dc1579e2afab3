package livre

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"log/slog"

	"github.com/bibalaye/Mini-projet-gestion-des-livres-EDACY/internal/domain"
	"github.com/bibalaye/Mini-projet-gestion-des-livres-EDACY/internal/repository"
)

type livreRepoStub struct {
	mu     sync.Mutex
	livres map[string]domain.Livre
}

func newLivreRepoStub() *livreRepoStub {
	return &livreRepoStub{livres: make(map[string]domain.Livre)}
}

func (s *livreRepoStub) CreateLivre(_ context.Context, l *domain.Livre) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.livres[l.ID] = *l
	return nil
}

func (s *livreRepoStub) GetLivreByID(_ context.Context, id string) (*domain.Livre, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if l, ok := s.livres[id]; ok {
		copied := l
		return &copied, nil
	}
	return nil, repository.ErrNotFound
}

func (s *livreRepoStub) ListLivres(_ context.Context) ([]domain.Livre, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.Livre, 0, len(s.livres))
	for _, l := range s.livres {
		out = append(out, l)
	}
	return out, nil
}

func (s *livreRepoStub) ListLivresByUser(_ context.Context, userID string) ([]domain.Livre, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.Livre, 0)
	for _, l := range s.livres {
		if l.UserID == userID {
			out = append(out, l)
		}
	}
	return out, nil
}

func (s *livreRepoStub) UpdateLivre(_ context.Context, l *domain.Livre) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.livres[l.ID]; !ok {
		return repository.ErrNotFound
	}
	s.livres[l.ID] = *l
	return nil
}

func (s *livreRepoStub) DeleteLivre(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.livres[id]; !ok {
		return repository.ErrNotFound
	}
	delete(s.livres, id)
	return nil
}

type imageStoreStub struct {
	mu      sync.Mutex
	removed []string
}

func (s *imageStoreStub) Remove(publicPath string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.removed = append(s.removed, publicPath)
	return nil
}

func newService(repo *livreRepoStub, images *imageStoreStub) Service {
	return New(repo, images, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func sampleInput() Input {
	return Input{
		Titre:            "Une si longue lettre",
		Auteur:           "Mariama Ba",
		AnneePublication: 1979,
		Genre:            "Roman",
		Description:      "Un classique de la litterature senegalaise",
	}
}

func TestCheckOwnership(t *testing.T) {
	if err := CheckOwnership("user-1", "user-1"); err != nil {
		t.Fatalf("expected owner to be allowed, got %v", err)
	}
	if err := CheckOwnership("user-1", "user-2"); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
}

func TestCreateAssignsOwner(t *testing.T) {
	repo := newLivreRepoStub()
	svc := newService(repo, &imageStoreStub{})

	entry, err := svc.Create(context.Background(), "user-1", sampleInput())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if entry.ID == "" {
		t.Fatalf("expected generated id")
	}
	if entry.UserID != "user-1" {
		t.Fatalf("unexpected owner: %q", entry.UserID)
	}
	if time.Until(entry.CreatedAt) > 0 {
		t.Fatalf("created_at in the future")
	}
}

func TestUpdateByNonOwnerRejected(t *testing.T) {
	repo := newLivreRepoStub()
	images := &imageStoreStub{}
	svc := newService(repo, images)

	entry, err := svc.Create(context.Background(), "user-1", sampleInput())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := svc.Update(context.Background(), entry.ID, "user-2", sampleInput()); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
	stored, err := repo.GetLivreByID(context.Background(), entry.ID)
	if err != nil {
		t.Fatalf("entry missing after rejected update: %v", err)
	}
	if stored.Titre != entry.Titre {
		t.Fatalf("entry mutated by rejected update")
	}
}

func TestUpdateReplacesImageAndRemovesOld(t *testing.T) {
	repo := newLivreRepoStub()
	images := &imageStoreStub{}
	svc := newService(repo, images)

	in := sampleInput()
	in.Image = "/uploads/image-1.jpg"
	entry, err := svc.Create(context.Background(), "user-1", in)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	next := sampleInput()
	next.Image = "/uploads/image-2.jpg"
	updated, err := svc.Update(context.Background(), entry.ID, "user-1", next)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if updated.Image != "/uploads/image-2.jpg" {
		t.Fatalf("unexpected image: %q", updated.Image)
	}
	if len(images.removed) != 1 || images.removed[0] != "/uploads/image-1.jpg" {
		t.Fatalf("old image not removed: %v", images.removed)
	}
}

func TestUpdateWithoutImageKeepsExisting(t *testing.T) {
	repo := newLivreRepoStub()
	images := &imageStoreStub{}
	svc := newService(repo, images)

	in := sampleInput()
	in.Image = "/uploads/image-1.jpg"
	entry, err := svc.Create(context.Background(), "user-1", in)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	updated, err := svc.Update(context.Background(), entry.ID, "user-1", sampleInput())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if updated.Image != "/uploads/image-1.jpg" {
		t.Fatalf("image dropped on update: %q", updated.Image)
	}
	if len(images.removed) != 0 {
		t.Fatalf("image removed unexpectedly: %v", images.removed)
	}
}

func TestDeleteByNonOwnerRejected(t *testing.T) {
	repo := newLivreRepoStub()
	svc := newService(repo, &imageStoreStub{})

	entry, err := svc.Create(context.Background(), "user-1", sampleInput())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := svc.Delete(context.Background(), entry.ID, "user-2"); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
	if _, err := repo.GetLivreByID(context.Background(), entry.ID); err != nil {
		t.Fatalf("entry deleted by non-owner: %v", err)
	}
}

func TestDeleteRemovesImage(t *testing.T) {
	repo := newLivreRepoStub()
	images := &imageStoreStub{}
	svc := newService(repo, images)

	in := sampleInput()
	in.Image = "/uploads/image-1.jpg"
	entry, err := svc.Create(context.Background(), "user-1", in)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := svc.Delete(context.Background(), entry.ID, "user-1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(images.removed) != 1 || images.removed[0] != "/uploads/image-1.jpg" {
		t.Fatalf("image not removed: %v", images.removed)
	}
	if _, err := repo.GetLivreByID(context.Background(), entry.ID); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("entry still present after delete")
	}
}

func TestDeleteUnknownEntry(t *testing.T) {
	svc := newService(newLivreRepoStub(), &imageStoreStub{})
	if err := svc.Delete(context.Background(), "missing", "user-1"); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
