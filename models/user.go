package models

import "time"

// Roles a user account can hold.
const (
	RoleAdmin = "ADMIN"
	RoleUser  = "USER"
)

// User is a stored account.
type User struct {
	ID           int64     `json:"id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"`
	Role         string    `json:"role"`
	CreatedAt    time.Time `json:"created_at"`
}

// IsAdmin reports whether the account may use administrator endpoints.
func (u User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// Credentials is the register request body.
type Credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Token is the login response body.
type Token struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type" example:"bearer"`
	Role        string `json:"role" example:"ADMIN"`
}

// UserQuery is the public lookup request body.
type UserQuery struct {
	DNI          string `json:"dni" example:"12345678"`
	FechaIngreso string `json:"fecha_ingreso" example:"2024-03-15"`
}
