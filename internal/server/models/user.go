package models

import "time"

// Role names known to the service. Roles are free-form strings; these are the
// ones the service itself cares about.
const (
	RoleAdmin = "admin"
)

// User is a credential-store record. PasswordHash is a bcrypt hash; the
// plaintext password never leaves the login/register request handlers.
type User struct {
	ID           string
	Username     string
	PasswordHash string
	Roles        []string
	IsActive     bool
	CreatedAt    time.Time
}

// HasRole reports whether the user carries the given role.
func (u *User) HasRole(role string) bool {
	for _, r := range u.Roles {
		if r == role {
			return true
		}
	}
	return false
}
