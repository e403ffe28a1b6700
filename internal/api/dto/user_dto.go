package dto

import "github.com/streetcats/report-service/internal/domain"

// RegisterRequest payload for new users.
type RegisterRequest struct {
	FirstName string  `json:"firstName" validate:"required"`
	LastName  string  `json:"lastName" validate:"required"`
	Email     string  `json:"email" validate:"required,email"`
	Password  string  `json:"password" validate:"required"`
	Company   *string `json:"company,omitempty"`
}

// LoginRequest payload for login.
type LoginRequest struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// User is the public user shape. The password hash never appears here.
type User struct {
	ID        string  `json:"id"`
	FirstName string  `json:"firstName"`
	LastName  string  `json:"lastName"`
	Name      string  `json:"name,omitempty"`
	Email     string  `json:"email"`
	Company   *string `json:"company,omitempty"`
}

// AuthResponse is returned by register and login.
type AuthResponse struct {
	User  User   `json:"user"`
	Token string `json:"token"`
}

// UserFromDomain projects a stored user.
func UserFromDomain(u *domain.User) User {
	return User{
		ID:        u.ID,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		Name:      u.Name,
		Email:     u.Email,
		Company:   u.Company,
	}
}
