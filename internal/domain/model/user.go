package model

import (
	"time"
)

type User struct {
	Username       string    `json:"username"`
	HashedPassword string    `json:"-"` // Not exposed
	FirstName      string    `json:"first_name"`
	LastName       string    `json:"last_name"`
	Phone          string    `json:"phone"`
	JoinedAt       time.Time `json:"joined_at"`
	LastLoginAt    time.Time `json:"last_login_at"`
}

// UserSummary is the subset of a user embedded in message responses.
type UserSummary struct {
	Username  string `json:"username"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Phone     string `json:"phone"`
}

// Summary projects u to the fields safe to embed in other resources.
func (u *User) Summary() UserSummary {
	return UserSummary{
		Username:  u.Username,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		Phone:     u.Phone,
	}
}

// Public returns a copy of u with the password hash cleared.
func (u *User) Public() *User {
	cp := *u
	cp.HashedPassword = ""
	return &cp
}
