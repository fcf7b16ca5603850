package models

import "time"

type UserRole string

const (
	// UserRoleUser is the only role minted today; the column exists so
	// policy can grow without a schema change.
	UserRoleUser UserRole = "user"
)

type User struct {
	ID           string
	Email        string
	PasswordHash []byte
	Role         UserRole
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
