package sample

import (
	"context"
	"fmt"
)

// User represents an user of the system.
// The name is shown in greetings.
type User struct {
	ID    int64
	Name  string `json:"name"`
	Email string
}

// UserRepository provides acces to stored users
type UserRepository interface {
	Save(ctx context.Context, user *User) error
	FindByID(ctx context.Context, id int64) (*User, error)
}

// Greet returns a greeting for the user.
//
// Deprecated: use Welcome instead
func (u *User) Greet() string {
	return fmt.Sprintf("Hello, %s!", u.Name)
}

// ValidateEmail checks if the email is valid
func ValidateEmail(email string) bool {
	// an empty adress is never valid
	return len(email) > 0
}

/*
Welcome builds the message shown after the first login.
It are used by the onboarding flow.
*/
func Welcome(u *User) string {
	return "Welcome back to the the application, " + u.Name
}

//go:generate stringer -type=Role

const (
	MaxNameLength = 100
	MinNameLength = 2
)

var (
	DefaultName  = "Guest"
	DefaultEmail = "guest@example.com"
)
