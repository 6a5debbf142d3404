package models

import "time"

// User is a registered principal that can send or receive signature
// requests. Credential holds the bcrypt hash and never leaves the server.
type User struct {
	ID         string    `bson:"_id" json:"id" db:"id"`
	Name       string    `bson:"name" json:"name" db:"name"`
	Email      string    `bson:"email" json:"email" db:"email"`
	Credential string    `bson:"credential" json:"-" db:"credential"`
	CreatedAt  time.Time `bson:"createdAt" json:"createdAt" db:"created_at"`
}

// Public returns a copy safe to hand to clients.
func (u *User) Public() *User {
	if u == nil {
		return nil
	}
	c := *u
	c.Credential = ""
	return &c
}
