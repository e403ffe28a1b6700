package domain

import (
	"strings"
	"time"
)

// User is the domain model for registered reporters and volunteers.
type User struct {
	ID           string
	FirstName    string
	LastName     string
	Name         string
	Email        string
	PasswordHash string
	Company      *string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Summary returns the public projection of the user.
func (u *User) Summary() UserSummary {
	return UserSummary{
		ID:        u.ID,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		Name:      u.Name,
	}
}

// DisplayName returns the name shown next to reports.
func (u *User) DisplayName() string {
	s := u.Summary()
	return s.DisplayName()
}

// UserSummary is the populated form of a user reference.
type UserSummary struct {
	ID        string
	FirstName string
	LastName  string
	Name      string
}

// DisplayName prefers Name, then "first last". Empty when neither is known.
func (s UserSummary) DisplayName() string {
	if name := strings.TrimSpace(s.Name); name != "" {
		return name
	}
	parts := make([]string, 0, 2)
	for _, p := range []string{s.FirstName, s.LastName} {
		if p = strings.TrimSpace(p); p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, " ")
}

// UserRef points at a user and is either unresolved (ID only) or resolved.
type UserRef struct {
	ID   string
	User *UserSummary
}

// Unresolved builds a reference carrying only the identifier.
func Unresolved(id string) *UserRef {
	return &UserRef{ID: id}
}

// Resolved builds a populated reference.
func Resolved(summary UserSummary) *UserRef {
	s := summary
	return &UserRef{ID: summary.ID, User: &s}
}

// IsResolved reports whether the user summary is populated.
func (r *UserRef) IsResolved() bool {
	return r != nil && r.User != nil
}

// DisplayName returns the populated user's display name, or empty.
func (r *UserRef) DisplayName() string {
	if !r.IsResolved() {
		return ""
	}
	return r.User.DisplayName()
}
