package auth

import (
	"time"

	"github.com/angelmondragon/asarum-backend/pkg/enums"
)

// LoginRequest carries the back-office credential.
type LoginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// LoginResponse is returned after a successful admin login.
type LoginResponse struct {
	AccessToken string     `json:"accessToken"`
	TokenType   string     `json:"tokenType"`
	ExpiresAt   time.Time  `json:"expiresAt"`
	Username    string     `json:"username"`
	Role        enums.Role `json:"role"`
}
