package httpx

import (
	"net/mail"
	"strings"
	"time"
)

const minPasswordLength = 6

type registerPayload struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Nom      string `json:"nom"`
	Prenom   string `json:"prenom"`
}

type loginPayload struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func validateRegister(p registerPayload) []fieldError {
	var errs []fieldError
	if _, err := mail.ParseAddress(p.Email); err != nil {
		errs = append(errs, fieldError{Param: "email", Msg: "invalid email"})
	}
	if len(p.Password) < minPasswordLength {
		errs = append(errs, fieldError{Param: "password", Msg: "password must be at least 6 characters"})
	}
	if strings.TrimSpace(p.Nom) == "" {
		errs = append(errs, fieldError{Param: "nom", Msg: "nom is required"})
	}
	if strings.TrimSpace(p.Prenom) == "" {
		errs = append(errs, fieldError{Param: "prenom", Msg: "prenom is required"})
	}
	return errs
}

func validateLogin(p loginPayload) []fieldError {
	var errs []fieldError
	if _, err := mail.ParseAddress(p.Email); err != nil {
		errs = append(errs, fieldError{Param: "email", Msg: "invalid email"})
	}
	if p.Password == "" {
		errs = append(errs, fieldError{Param: "password", Msg: "password is required"})
	}
	return errs
}

type livreForm struct {
	Titre            string
	Auteur           string
	AnneePublication int
	AnneeRaw         string
	Genre            string
	Description      string
}

func validateLivre(f livreForm) []fieldError {
	var errs []fieldError
	if strings.TrimSpace(f.Titre) == "" {
		errs = append(errs, fieldError{Param: "titre", Msg: "titre is required"})
	}
	if strings.TrimSpace(f.Auteur) == "" {
		errs = append(errs, fieldError{Param: "auteur", Msg: "auteur is required"})
	}
	if f.AnneeRaw == "" || f.AnneePublication < 1000 || f.AnneePublication > time.Now().Year() {
		errs = append(errs, fieldError{Param: "annee_publication", Msg: "annee_publication must be a valid year"})
	}
	if strings.TrimSpace(f.Genre) == "" {
		errs = append(errs, fieldError{Param: "genre", Msg: "genre is required"})
	}
	if strings.TrimSpace(f.Description) == "" {
		errs = append(errs, fieldError{Param: "description", Msg: "description is required"})
	}
	return errs
}
