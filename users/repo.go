package users

import "time"

// UserRepo stores dev backend accounts. Lookups of unknown users return
// errors.ErrNotFound from internal/errors.
type UserRepo interface {
	Upsert(user *User) error
	GetByEmail(email string) (*User, error)
	GetByID(ID string) (*User, error)
	SetLastLogin(ID string, at time.Time) error
}
