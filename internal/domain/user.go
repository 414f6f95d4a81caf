package domain

import "time"

// User represents a registered account.
type User struct {
	ID           int64
	Name         string
	Username     string
	PasswordHash string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// UserUpdate carries the fields to change on an existing user. Nil fields are left untouched.
type UserUpdate struct {
	Name     *string
	Username *string
	Password *string
}
