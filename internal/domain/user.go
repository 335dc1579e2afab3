package domain

import "time"

// User represents a registered account. PasswordHash never leaves the
// process; response payloads are built from the other fields only.
type User struct {
	ID           string
	Email        string
	PasswordHash []byte
	Nom          string
	Prenom       string
	CreatedAt    time.Time
}
