package dto

import (
	"time"

	"github.com/benleytuano/ts-api-service/internal/domain"
)

// UserSummary is the public view of a requester, assignee or update author.
type UserSummary struct {
	ID    string      `json:"id"`
	Name  string      `json:"name"`
	Email string      `json:"email"`
	Role  domain.Role `json:"role"`
}

// TokenResponse is printed by the admin CLI when it issues an access token.
type TokenResponse struct {
	UserID    string    `json:"user_id"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// NewUserSummary maps a user, returning nil when the relation was not loaded.
func NewUserSummary(user *domain.User) *UserSummary {
	if user == nil {
		return nil
	}
	return &UserSummary{ID: user.ID, Name: user.Name, Email: user.Email, Role: user.Role}
}
