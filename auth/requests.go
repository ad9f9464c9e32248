package auth

import (
	"fmt"
	"net/mail"
	"strings"

	"recipeshare/common"
)

// bcrypt only looks at the first 72 bytes.
const maxPasswordBytes = 72

type RegisterRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (r *RegisterRequest) Validate() error {
	r.Name = strings.TrimSpace(r.Name)
	r.Email = strings.TrimSpace(r.Email)

	switch {
	case r.Name == "":
		return fmt.Errorf("name is required: %w", common.ErrValidation)
	case r.Email == "":
		return fmt.Errorf("email is required: %w", common.ErrValidation)
	case r.Password == "":
		return fmt.Errorf("password is required: %w", common.ErrValidation)
	case len(r.Password) > maxPasswordBytes:
		return fmt.Errorf("password must be at most %d bytes: %w", maxPasswordBytes, common.ErrValidation)
	}
	if _, err := mail.ParseAddress(r.Email); err != nil {
		return fmt.Errorf("email is invalid: %w", common.ErrValidation)
	}
	return nil
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (r *LoginRequest) Validate() error {
	r.Email = strings.TrimSpace(r.Email)
	if r.Email == "" || r.Password == "" {
		return fmt.Errorf("email and password are required: %w", common.ErrValidation)
	}
	return nil
}

type TokenResponse struct {
	Token string `json:"token"`
}
