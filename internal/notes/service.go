package notes

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

var (
	// ErrNoteNotFound indicates that no note matched the id for the requesting
	// owner. A note owned by someone else reports the same error.
	ErrNoteNotFound = errors.New("notes: note not found")

	errMissingDatabase   = errors.New("database handle is required")
	errMissingIDProvider = errors.New("id provider is required")

	noOpLogger = zap.NewNop()
)

// ServiceError wraps a failure with a stable dotted operation.reason code.
type ServiceError struct {
	code string
	err  error
}

func (e *ServiceError) Error() string {
	if e.err == nil {
		return e.code
	}
	return fmt.Sprintf("%s: %v", e.code, e.err)
}

func (e *ServiceError) Unwrap() error {
	return e.err
}

// Code returns the stable error code for the failure.
func (e *ServiceError) Code() string {
	return e.code
}

const (
	opServiceNew     = "notes.service.new"
	opListNotes      = "notes.list_notes"
	opCreateNote     = "notes.create_note"
	opUpdateNote     = "notes.update_note"
	opDeleteNote     = "notes.delete_note"
	opSearchNotes    = "notes.search_notes"
	opFilterPriority = "notes.filter_priority"
)

func newServiceError(operation, reason string, cause error) error {
	code := fmt.Sprintf("%s.%s", operation, reason)
	return &ServiceError{code: code, err: cause}
}

// IDProvider issues identifiers for newly created notes.
type IDProvider interface {
	NewID() (string, error)
}

// ServiceConfig describes the dependencies required by the notes service.
type ServiceConfig struct {
	Database   *gorm.DB
	Clock      func() time.Time
	IDProvider IDProvider
	Logger     *zap.Logger
}

// Service implements owner-scoped note persistence. Every operation issues a
// single query filtered by the owning user id.
type Service struct {
	db         *gorm.DB
	clock      func() time.Time
	idProvider IDProvider
	logger     *zap.Logger
}

// NewService constructs the notes service.
func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Database == nil {
		return nil, newServiceError(opServiceNew, "missing_database", errMissingDatabase)
	}
	if cfg.IDProvider == nil {
		return nil, newServiceError(opServiceNew, "missing_id_provider", errMissingIDProvider)
	}

	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}

	logger := cfg.Logger
	if logger == nil {
		logger = noOpLogger
	}

	return &Service{
		db:         cfg.Database,
		clock:      clock,
		idProvider: cfg.IDProvider,
		logger:     logger,
	}, nil
}

// ListNotes returns all notes owned by the user, newest-created first.
func (s *Service) ListNotes(ctx context.Context, userID UserID) ([]Note, error) {
	if s.db == nil {
		s.logError(opListNotes, "missing_database", errMissingDatabase)
		return nil, newServiceError(opListNotes, "missing_database", errMissingDatabase)
	}

	var results []Note
	if err := s.db.WithContext(ctx).
		Where("user_id = ?", userID.String()).
		Order("created_at DESC").
		Find(&results).Error; err != nil {
		s.logError(opListNotes, "query_failed", err, zap.String("user_id", userID.String()))
		return nil, newServiceError(opListNotes, "query_failed", err)
	}

	return results, nil
}

// CreateNote persists a new note for the user, assigning its id and timestamps.
func (s *Service) CreateNote(ctx context.Context, userID UserID, request CreateRequest) (Note, error) {
	if s.db == nil {
		s.logError(opCreateNote, "missing_database", errMissingDatabase)
		return Note{}, newServiceError(opCreateNote, "missing_database", errMissingDatabase)
	}
	if s.idProvider == nil {
		s.logError(opCreateNote, "missing_id_provider", errMissingIDProvider)
		return Note{}, newServiceError(opCreateNote, "missing_id_provider", errMissingIDProvider)
	}

	noteID, err := s.idProvider.NewID()
	if err != nil {
		s.logError(opCreateNote, "id_generation_failed", err, zap.String("user_id", userID.String()))
		return Note{}, newServiceError(opCreateNote, "id_generation_failed", err)
	}

	now := s.clock().UTC()
	note := Note{
		ID:          noteID,
		UserID:      userID.String(),
		Title:       request.Title.String(),
		Description: request.Description.String(),
		Priority:    request.Priority.Int(),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.db.WithContext(ctx).Create(&note).Error; err != nil {
		s.logError(opCreateNote, "insert_failed", err,
			zap.String("user_id", userID.String()),
			zap.String("note_id", noteID))
		return Note{}, newServiceError(opCreateNote, "insert_failed", err)
	}

	return note, nil
}

// UpdateNote applies a partial update to the note identified by noteID when it
// is owned by userID, bumping the update timestamp. ErrNoteNotFound covers
// both an unknown id and a note owned by someone else.
func (s *Service) UpdateNote(ctx context.Context, noteID NoteID, userID UserID, request UpdateRequest) (Note, error) {
	if s.db == nil {
		s.logError(opUpdateNote, "missing_database", errMissingDatabase)
		return Note{}, newServiceError(opUpdateNote, "missing_database", errMissingDatabase)
	}

	updates := map[string]interface{}{}
	if request.Title != nil {
		updates["title"] = request.Title.String()
	}
	if request.Description != nil {
		updates["description"] = request.Description.String()
	}
	if request.Priority != nil {
		updates["priority"] = request.Priority.Int()
	}
	updates["updated_at"] = s.clock().UTC()

	result := s.db.WithContext(ctx).Model(&Note{}).
		Where("id = ? AND user_id = ?", noteID.String(), userID.String()).
		Updates(updates)
	if result.Error != nil {
		s.logError(opUpdateNote, "update_failed", result.Error,
			zap.String("user_id", userID.String()),
			zap.String("note_id", noteID.String()))
		return Note{}, newServiceError(opUpdateNote, "update_failed", result.Error)
	}
	if result.RowsAffected == 0 {
		return Note{}, ErrNoteNotFound
	}

	var note Note
	if err := s.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", noteID.String(), userID.String()).
		Take(&note).Error; err != nil {
		s.logError(opUpdateNote, "reload_failed", err,
			zap.String("user_id", userID.String()),
			zap.String("note_id", noteID.String()))
		return Note{}, newServiceError(opUpdateNote, "reload_failed", err)
	}

	return note, nil
}

// DeleteNote removes the note identified by noteID when it is owned by
// userID. It reports true iff a row was removed; an unknown id and a
// non-owned note both report false.
func (s *Service) DeleteNote(ctx context.Context, noteID NoteID, userID UserID) (bool, error) {
	if s.db == nil {
		s.logError(opDeleteNote, "missing_database", errMissingDatabase)
		return false, newServiceError(opDeleteNote, "missing_database", errMissingDatabase)
	}

	result := s.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", noteID.String(), userID.String()).
		Delete(&Note{})
	if result.Error != nil {
		s.logError(opDeleteNote, "delete_failed", result.Error,
			zap.String("user_id", userID.String()),
			zap.String("note_id", noteID.String()))
		return false, newServiceError(opDeleteNote, "delete_failed", result.Error)
	}

	return result.RowsAffected > 0, nil
}

// SearchNotes returns the user's notes whose title or description contains
// the query case-insensitively, newest-created first.
func (s *Service) SearchNotes(ctx context.Context, userID UserID, query string) ([]Note, error) {
	if s.db == nil {
		s.logError(opSearchNotes, "missing_database", errMissingDatabase)
		return nil, newServiceError(opSearchNotes, "missing_database", errMissingDatabase)
	}

	pattern := "%" + escapeLikePattern(strings.ToLower(query)) + "%"
	var results []Note
	if err := s.db.WithContext(ctx).
		Where("user_id = ?", userID.String()).
		Where(`LOWER(title) LIKE ? ESCAPE '\' OR LOWER(description) LIKE ? ESCAPE '\'`, pattern, pattern).
		Order("created_at DESC").
		Find(&results).Error; err != nil {
		s.logError(opSearchNotes, "query_failed", err, zap.String("user_id", userID.String()))
		return nil, newServiceError(opSearchNotes, "query_failed", err)
	}

	return results, nil
}

// FilterNotesByPriority returns the user's notes with exactly the provided
// priority, newest-created first.
func (s *Service) FilterNotesByPriority(ctx context.Context, userID UserID, priority Priority) ([]Note, error) {
	if s.db == nil {
		s.logError(opFilterPriority, "missing_database", errMissingDatabase)
		return nil, newServiceError(opFilterPriority, "missing_database", errMissingDatabase)
	}

	var results []Note
	if err := s.db.WithContext(ctx).
		Where("user_id = ? AND priority = ?", userID.String(), priority.Int()).
		Order("created_at DESC").
		Find(&results).Error; err != nil {
		s.logError(opFilterPriority, "query_failed", err,
			zap.String("user_id", userID.String()),
			zap.Int("priority", priority.Int()))
		return nil, newServiceError(opFilterPriority, "query_failed", err)
	}

	return results, nil
}

// escapeLikePattern neutralizes LIKE metacharacters in user-supplied search text.
func escapeLikePattern(value string) string {
	replacer := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return replacer.Replace(value)
}

func (s *Service) loggerOrDefault() *zap.Logger {
	if s == nil {
		return noOpLogger
	}
	if s.logger == nil {
		return noOpLogger
	}
	return s.logger
}

func (s *Service) logError(operation, reason string, err error, fields ...zap.Field) {
	attrs := []zap.Field{
		zap.String("operation", operation),
		zap.String("reason", reason),
	}
	if err != nil {
		attrs = append(attrs, zap.Error(err))
	}
	attrs = append(attrs, fields...)
	s.loggerOrDefault().Error("notes service error", attrs...)
}
