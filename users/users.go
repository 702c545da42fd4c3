package users

import (
	"time"

	"golang.org/x/crypto/bcrypt"
)

// UserPreferences are the account settings the API exposes.
type UserPreferences struct {
	EnableTwoFactor bool   `json:"enable2FA"`
	EmailNotify     bool   `json:"emailNotification,omitempty"`
	TwoFactorSecret string `json:"-"` // never serialize
}

// User is the account as the authentication API returns it.
type User struct {
	ID              string          `json:"_id,omitempty"`
	Name            string          `json:"name,omitempty"`
	Email           string          `json:"email,omitempty"`
	PasswordHash    string          `json:"-"` // never serialize
	IsEmailVerified bool            `json:"isEmailVerified"`
	CreatedAt       time.Time       `json:"createdAt,omitempty"`
	UpdatedAt       time.Time       `json:"updatedAt,omitempty"`
	Preferences     UserPreferences `json:"userPreferences"`
}

// MFAEnabled reports whether login needs a second factor.
func (u *User) MFAEnabled() bool {
	return u.Preferences.EnableTwoFactor
}

func HashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	return string(bytes), err
}

func CheckPasswordHash(password, hash string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	return err == nil
}

// CheckPassword checks a password against the user's hash
func (u *User) CheckPassword(password string) bool {
	return CheckPasswordHash(password, u.PasswordHash)
}
