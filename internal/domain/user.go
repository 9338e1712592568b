package domain

import "time"

// User is an identity known to the ticket engine. Credentials live with the identity provider.
type User struct {
	ID        string
	Name      string
	Email     string
	Role      Role
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Actor is the authenticated caller of an engine operation.
type Actor struct {
	ID   string
	Role Role
}

// Actor returns the actor view of the user.
func (u *User) Actor() Actor {
	return Actor{ID: u.ID, Role: u.Role}
}
