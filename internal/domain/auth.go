package domain

import "time"

// Identity is what a verified bearer token resolves to.
type Identity struct {
	ID        string
	FirstName string
	LastName  string
	Name      string
	Email     string
}

// DisplayName mirrors UserSummary.DisplayName for the caller.
func (i Identity) DisplayName() string {
	return UserSummary{ID: i.ID, FirstName: i.FirstName, LastName: i.LastName, Name: i.Name}.DisplayName()
}

// IdentityFromUser projects a stored user onto an identity.
func IdentityFromUser(u *User) Identity {
	return Identity{
		ID:        u.ID,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		Name:      u.Name,
		Email:     u.Email,
	}
}

// Session is the result of a successful register or login.
type Session struct {
	User      *User
	Token     string
	ExpiresAt time.Time
}
