package users

import (
	"errors"
	"time"
)

var ErrUserNotFound = errors.New("user not found")

type UserRepo interface {
	Upsert(user *User) error
	GetByUsername(username string) (*User, error)
	GetByID(ID string) (*User, error)
	List(offset, limit int) ([]*User, error)
	SetLastLogin(username string, at time.Time) error
}
