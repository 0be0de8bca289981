// Package models holds the records dsqlctl reads from and writes to the store.
package models

import (
	"time"

	"github.com/google/uuid"
)

// User is a row of the users table. ID is generated client-side (UUIDv4);
// CreatedAt is assigned by the server.
type User struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"created_at"`
}

// NewUser builds a User with a fresh random ID.
func NewUser(name, email, role string) *User {
	return &User{ID: uuid.New(), Name: name, Email: email, Role: role}
}
