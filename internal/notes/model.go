package notes

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

const maxIdentifierLength = 190

const (
	// MinPriority is the lowest accepted note priority.
	MinPriority = 1
	// MaxPriority is the highest accepted note priority.
	MaxPriority = 5
)

var (
	// ErrInvalidNoteID indicates that a note identifier is empty or exceeds storage bounds.
	ErrInvalidNoteID = errors.New("notes: invalid note id")
	// ErrInvalidUserID indicates that a user identifier is empty or exceeds storage bounds.
	ErrInvalidUserID = errors.New("notes: invalid user id")
	// ErrInvalidTitle indicates that a note title is empty.
	ErrInvalidTitle = errors.New("notes: invalid title")
	// ErrInvalidDescription indicates that a note description is empty.
	ErrInvalidDescription = errors.New("notes: invalid description")
	// ErrInvalidPriority indicates that a priority value is outside the accepted range.
	ErrInvalidPriority = errors.New("notes: invalid priority")
)

// NoteID represents a validated note identifier.
type NoteID string

// NewNoteID validates raw input and returns a NoteID.
func NewNoteID(rawInput string) (NoteID, error) {
	trimmed := strings.TrimSpace(rawInput)
	if trimmed == "" {
		return "", fmt.Errorf("%w: empty", ErrInvalidNoteID)
	}
	if len(trimmed) > maxIdentifierLength {
		return "", fmt.Errorf("%w: exceeds %d characters", ErrInvalidNoteID, maxIdentifierLength)
	}
	return NoteID(trimmed), nil
}

// String returns the underlying string identifier.
func (id NoteID) String() string {
	return string(id)
}

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

// Title represents a validated note title.
type Title string

// NewTitle validates raw input and returns a Title.
func NewTitle(rawInput string) (Title, error) {
	trimmed := strings.TrimSpace(rawInput)
	if trimmed == "" {
		return "", fmt.Errorf("%w: empty", ErrInvalidTitle)
	}
	return Title(trimmed), nil
}

// String returns the underlying title text.
func (t Title) String() string {
	return string(t)
}

// Description represents a validated note description.
type Description string

// NewDescription validates raw input and returns a Description.
func NewDescription(rawInput string) (Description, error) {
	trimmed := strings.TrimSpace(rawInput)
	if trimmed == "" {
		return "", fmt.Errorf("%w: empty", ErrInvalidDescription)
	}
	return Description(trimmed), nil
}

// String returns the underlying description text.
func (d Description) String() string {
	return string(d)
}

// Priority represents a validated note priority in [MinPriority, MaxPriority].
type Priority int

// NewPriority validates the value and returns a Priority.
func NewPriority(value int) (Priority, error) {
	if value < MinPriority || value > MaxPriority {
		return 0, fmt.Errorf("%w: %d is not between %d and %d", ErrInvalidPriority, value, MinPriority, MaxPriority)
	}
	return Priority(value), nil
}

// Int exposes the raw priority value.
func (p Priority) Int() int {
	return int(p)
}

// Note models a persisted note owned by a single user.
type Note struct {
	ID          string    `gorm:"column:id;primaryKey;size:190;not null" json:"id"`
	UserID      string    `gorm:"column:user_id;size:190;not null;index:idx_notes_user_created,priority:1" json:"userId"`
	Title       string    `gorm:"column:title;size:512;not null" json:"title"`
	Description string    `gorm:"column:description;type:text;not null" json:"description"`
	Priority    int       `gorm:"column:priority;not null" json:"priority"`
	CreatedAt   time.Time `gorm:"column:created_at;autoCreateTime;index:idx_notes_user_created,priority:2" json:"createdAt"`
	UpdatedAt   time.Time `gorm:"column:updated_at;autoUpdateTime" json:"updatedAt"`
}

// TableName provides the explicit table binding for GORM.
func (Note) TableName() string {
	return "notes"
}

// CreateRequest describes the validated input for a note creation.
type CreateRequest struct {
	Title       Title
	Description Description
	Priority    Priority
}

// UpdateRequest describes a partial note update. Nil fields are left untouched.
type UpdateRequest struct {
	Title       *Title
	Description *Description
	Priority    *Priority
}

// Empty reports whether the update carries no field changes.
func (r UpdateRequest) Empty() bool {
	return r.Title == nil && r.Description == nil && r.Priority == nil
}
