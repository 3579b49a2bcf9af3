// Package users holds the accounts of the development backend.
package users

import (
	"fmt"
	"strings"
	"time"
	"unicode"

	"github.com/pkg/errors"
	"golang.org/x/crypto/bcrypt"
)

// ErrWeakPassword is wrapped by every password strength failure.
var ErrWeakPassword = errors.New("weak password")

const minPasswordLength = 8

type User struct {
	ID           string    `json:"id,omitempty"`
	Username     string    `json:"username,omitempty"` // unique, case-insensitive
	PasswordHash string    `json:"-"`
	DateJoined   time.Time `json:"date_joined,omitempty"`
	LastLogin    time.Time `json:"last_login,omitempty"`
	Blocked      bool      `json:"blocked,omitempty"`
}

// NewUser builds an account with a hashed password. The strength rules are
// not applied here; callers decide whether a weak password is fatal.
func NewUser(username, password string, joined time.Time) (*User, error) {
	username = NormaliseUsername(username)
	if username == "" {
		return nil, errors.New("NewUser: username is required")
	}
	u := &User{Username: username, DateJoined: joined}
	if err := u.SetPassword(password); err != nil {
		return nil, err
	}
	return u, nil
}

// NormaliseUsername is the form usernames are stored and looked up in.
func NormaliseUsername(username string) string {
	return strings.ToLower(strings.TrimSpace(username))
}

// SetPassword replaces the stored hash.
func (u *User) SetPassword(password string) error {
	if password == "" {
		return errors.New("User.SetPassword: password is required")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return errors.Wrap(err, "User.SetPassword")
	}
	u.PasswordHash = string(hash)
	return nil
}

func (u *User) CheckPassword(password string) bool {
	if u.PasswordHash == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) == nil
}

// ValidatePasswordStrength requires minPasswordLength characters with an
// upper case letter, a lower case letter and a digit. Every missing rule is
// reported.
func ValidatePasswordStrength(password string) error {
	var missing []string
	if len([]rune(password)) < minPasswordLength {
		missing = append(missing, fmt.Sprintf("at least %d characters", minPasswordLength))
	}
	rules := []struct {
		name string
		ok   func(rune) bool
	}{
		{"an uppercase letter", unicode.IsUpper},
		{"a lowercase letter", unicode.IsLower},
		{"a number", unicode.IsDigit},
	}
	for _, r := range rules {
		if !strings.ContainsFunc(password, r.ok) {
			missing = append(missing, r.name)
		}
	}
	if len(missing) > 0 {
		return errors.Wrapf(ErrWeakPassword, "password needs %s", strings.Join(missing, ", "))
	}
	return nil
}
