package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/bibalaye/Mini-projet-gestion-des-livres-EDACY/internal/domain"
	"github.com/bibalaye/Mini-projet-gestion-des-livres-EDACY/internal/repository"
)

const livreColumns = `id, titre, auteur, annee_publication, genre, description, image, user_id, created_at`

func scanLivre(row pgx.Row) (*domain.Livre, error) {
	var l domain.Livre
	if err := row.Scan(&l.ID, &l.Titre, &l.Auteur, &l.AnneePublication, &l.Genre, &l.Description, &l.Image, &l.UserID, &l.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &l, nil
}

// CreateLivre inserts a catalog entry.
func (r *Repository) CreateLivre(ctx context.Context, livre *domain.Livre) error {
	const query = `INSERT INTO livres (id, titre, auteur, annee_publication, genre, description, image, user_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`
	_, err := r.pool.Exec(ctx, query,
		livre.ID, livre.Titre, livre.Auteur, livre.AnneePublication,
		livre.Genre, livre.Description, livre.Image, livre.UserID, livre.CreatedAt)
	if err != nil {
		return translateError(err)
	}
	return nil
}

// GetLivreByID fetches a single entry.
func (r *Repository) GetLivreByID(ctx context.Context, id string) (*domain.Livre, error) {
	const query = `SELECT ` + livreColumns + ` FROM livres WHERE id = $1`
	return scanLivre(r.pool.QueryRow(ctx, query, id))
}

// ListLivres returns the whole catalog, newest first.
func (r *Repository) ListLivres(ctx context.Context) ([]domain.Livre, error) {
	const query = `SELECT ` + livreColumns + ` FROM livres ORDER BY created_at DESC`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectLivres(rows)
}

// ListLivresByUser returns entries owned by the given user, newest first.
func (r *Repository) ListLivresByUser(ctx context.Context, userID string) ([]domain.Livre, error) {
	const query = `SELECT ` + livreColumns + ` FROM livres WHERE user_id = $1 ORDER BY created_at DESC`
	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectLivres(rows)
}

// UpdateLivre overwrites the mutable columns of an entry.
func (r *Repository) UpdateLivre(ctx context.Context, livre *domain.Livre) error {
	const query = `UPDATE livres
		SET titre = $2, auteur = $3, annee_publication = $4, genre = $5, description = $6, image = $7
		WHERE id = $1`
	tag, err := r.pool.Exec(ctx, query,
		livre.ID, livre.Titre, livre.Auteur, livre.AnneePublication,
		livre.Genre, livre.Description, livre.Image)
	if err != nil {
		return translateError(err)
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// DeleteLivre removes an entry.
func (r *Repository) DeleteLivre(ctx context.Context, id string) error {
	const query = `DELETE FROM livres WHERE id = $1`
	tag, err := r.pool.Exec(ctx, query, id)
	if err != nil {
		return translateError(err)
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func collectLivres(rows pgx.Rows) ([]domain.Livre, error) {
	livres := make([]domain.Livre, 0)
	for rows.Next() {
		var l domain.Livre
		if err := rows.Scan(&l.ID, &l.Titre, &l.Auteur, &l.AnneePublication, &l.Genre, &l.Description, &l.Image, &l.UserID, &l.CreatedAt); err != nil {
			return nil, err
		}
		livres = append(livres, l)
	}
	return livres, rows.Err()
}
