// Package model defines domain entities for the application.
package model

import "time"

// User represents a user account.
// PasswordHash is never serialized.
type User struct {
	ID           int64     `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Active       bool      `json:"active"`
	Admin        bool      `json:"admin"`
	CreatedAt    time.Time `json:"created_at"`
}
