// Package models defines server-side data models persisted in the database.
package models

import "time"

// User is a registered account. Email and UserName are both unique and
// either may be used to log in.
type User struct {
	ID           string
	Email        string
	UserName     string
	PasswordHash string
	FullName     string
	IsActive     bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// UserUpdate carries the profile fields a user may change. Nil fields are
// left untouched.
type UserUpdate struct {
	Email    *string
	UserName *string
	FullName *string
	Password *string
}
