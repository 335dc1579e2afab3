package domain

import "time"

// Livre is a catalog entry. UserID identifies the owner; only the owner may
// mutate or delete the record.
type Livre struct {
	ID               string    `json:"id"`
	Titre            string    `json:"titre"`
	Auteur           string    `json:"auteur"`
	AnneePublication int       `json:"annee_publication"`
	Genre            string    `json:"genre"`
	Description      string    `json:"description"`
	Image            string    `json:"image,omitempty"`
	UserID           string    `json:"user_id"`
	CreatedAt        time.Time `json:"created_at"`
}
