// Package models defines server-side data models persisted in the database.
package models

import "time"

// User owns challenges. Email is stored trimmed and lower-cased.
type User struct {
	ID           int64
	UserName     string
	Email        string
	PasswordHash []byte
	CreatedAt    time.Time
}
