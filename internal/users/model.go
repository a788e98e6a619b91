package users

import (
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"
)

const (
	maxIdentifierLength = 190
	minPasswordLength   = 6
)

var (
	// ErrInvalidUserID indicates that a user identifier is empty or exceeds storage bounds.
	ErrInvalidUserID = errors.New("users: invalid user id")
	// ErrInvalidEmail indicates that an email address is empty or malformed.
	ErrInvalidEmail = errors.New("users: invalid email")
	// ErrInvalidPassword indicates that a password does not meet the length requirement.
	ErrInvalidPassword = errors.New("users: invalid password")
)

// UserID represents a validated user identifier.
type UserID string

// NewUserID validates raw input and returns a UserID.
func NewUserID(rawInput string) (UserID, error) {
	trimmed := strings.TrimSpace(rawInput)
	if trimmed == "" {
		return "", fmt.Errorf("%w: empty", ErrInvalidUserID)
	}
	if len(trimmed) > maxIdentifierLength {
		return "", fmt.Errorf("%w: exceeds %d characters", ErrInvalidUserID, maxIdentifierLength)
	}
	return UserID(trimmed), nil
}

// String returns the underlying string identifier.
func (id UserID) String() string {
	return string(id)
}

// Email represents a validated, normalized email address.
type Email string

// NewEmail validates raw input and returns the lowercased, trimmed Email.
func NewEmail(rawInput string) (Email, error) {
	normalized := strings.ToLower(strings.TrimSpace(rawInput))
	if normalized == "" {
		return "", fmt.Errorf("%w: empty", ErrInvalidEmail)
	}
	if _, err := mail.ParseAddress(normalized); err != nil {
		return "", fmt.Errorf("%w: %s", ErrInvalidEmail, normalized)
	}
	return Email(normalized), nil
}

// String returns the underlying string address.
func (e Email) String() string {
	return string(e)
}

// NewPassword validates that a raw password meets the minimum length.
func NewPassword(rawInput string) (string, error) {
	if len(rawInput) < minPasswordLength {
		return "", fmt.Errorf("%w: must be at least %d characters", ErrInvalidPassword, minPasswordLength)
	}
	return rawInput, nil
}

// User models a registered account. The password hash is excluded from JSON
// responses and only ever holds the bcrypt digest.
type User struct {
	ID              string    `gorm:"column:id;primaryKey;size:190;not null" json:"id"`
	Email           string    `gorm:"column:email;uniqueIndex;size:320;not null" json:"email"`
	PasswordHash    string    `gorm:"column:password_hash;size:255;not null" json:"-"`
	FirstName       string    `gorm:"column:first_name;size:190" json:"firstName,omitempty"`
	LastName        string    `gorm:"column:last_name;size:190" json:"lastName,omitempty"`
	ProfileImageURL string    `gorm:"column:profile_image_url;size:512" json:"profileImageUrl,omitempty"`
	CreatedAt       time.Time `gorm:"column:created_at;autoCreateTime" json:"createdAt"`
	UpdatedAt       time.Time `gorm:"column:updated_at;autoUpdateTime" json:"updatedAt"`
}

// TableName provides the explicit table binding for GORM.
func (User) TableName() string {
	return "users"
}
