package users

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

var (
	// ErrDuplicateEmail indicates that a user with the normalized email already exists.
	ErrDuplicateEmail = errors.New("users: email already registered")
	// ErrUserNotFound indicates that no user matched the lookup.
	ErrUserNotFound = errors.New("users: user not found")
	// ErrInvalidCredentials indicates that the password did not match the stored hash.
	ErrInvalidCredentials = errors.New("users: invalid credentials")

	errMissingDatabase   = errors.New("database handle is required")
	errMissingIDProvider = errors.New("id provider is required")

	noOpLogger = zap.NewNop()
)

// dummyHash is compared against when no user matches a login email so the
// bcrypt cost is paid on every attempt regardless of account existence.
const dummyHash = "$2a$10$N9qo8uLOickgx2ZMRZoMyeIjZAgcfl7p92ldGxad68LJZdL17lhWy"

// IDProvider issues identifiers for newly created users.
type IDProvider interface {
	NewID() (string, error)
}

// ServiceConfig describes the dependencies required by the user service.
type ServiceConfig struct {
	Database   *gorm.DB
	Clock      func() time.Time
	IDProvider IDProvider
	Logger     *zap.Logger
}

// Service manages account registration, credential checks and profile upserts.
type Service struct {
	db         *gorm.DB
	clock      func() time.Time
	idProvider IDProvider
	logger     *zap.Logger
}

// NewService constructs the user service.
func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Database == nil {
		return nil, fmt.Errorf("users: %w", errMissingDatabase)
	}
	if cfg.IDProvider == nil {
		return nil, fmt.Errorf("users: %w", errMissingIDProvider)
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

// RegisterRequest carries the validated registration payload.
type RegisterRequest struct {
	Email     Email
	Password  string
	FirstName string
	LastName  string
}

// Register creates a new account with a bcrypt-hashed password.
// It fails with ErrDuplicateEmail when the normalized email is taken.
func (s *Service) Register(ctx context.Context, request RegisterRequest) (User, error) {
	var existing User
	err := s.db.WithContext(ctx).
		Where("email = ?", request.Email.String()).
		Take(&existing).Error
	if err == nil {
		return User{}, ErrDuplicateEmail
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		s.logger.Error("user lookup failed", zap.Error(err))
		return User{}, err
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(request.Password), bcrypt.DefaultCost)
	if err != nil {
		s.logger.Error("password hashing failed", zap.Error(err))
		return User{}, err
	}

	userID, err := s.idProvider.NewID()
	if err != nil {
		s.logger.Error("id generation failed", zap.Error(err))
		return User{}, err
	}

	now := s.clock().UTC()
	user := User{
		ID:           userID,
		Email:        request.Email.String(),
		PasswordHash: string(hashed),
		FirstName:    request.FirstName,
		LastName:     request.LastName,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.db.WithContext(ctx).Create(&user).Error; err != nil {
		// The unique index covers the race between the lookup and the insert.
		s.logger.Error("user insert failed", zap.Error(err))
		return User{}, err
	}

	return user, nil
}

// Login verifies the password for the account registered under email.
// It fails with ErrUserNotFound when no account matches and with
// ErrInvalidCredentials when the password does not match. The bcrypt
// comparison runs in both cases so response timing does not depend on
// whether the account exists.
func (s *Service) Login(ctx context.Context, email Email, password string) (User, error) {
	var user User
	lookupErr := s.db.WithContext(ctx).
		Where("email = ?", email.String()).
		Take(&user).Error
	if lookupErr != nil && !errors.Is(lookupErr, gorm.ErrRecordNotFound) {
		s.logger.Error("user lookup failed", zap.Error(lookupErr))
		return User{}, lookupErr
	}

	passwordHash := dummyHash
	if lookupErr == nil {
		passwordHash = user.PasswordHash
	}
	compareErr := bcrypt.CompareHashAndPassword([]byte(passwordHash), []byte(password))

	if lookupErr != nil {
		return User{}, ErrUserNotFound
	}
	if compareErr != nil {
		return User{}, ErrInvalidCredentials
	}

	return user, nil
}

// GetUser returns the account with the provided identifier.
func (s *Service) GetUser(ctx context.Context, userID UserID) (User, error) {
	var user User
	err := s.db.WithContext(ctx).
		Where("id = ?", userID.String()).
		Take(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return User{}, ErrUserNotFound
	}
	if err != nil {
		s.logger.Error("user lookup failed", zap.Error(err), zap.String("user_id", userID.String()))
		return User{}, err
	}
	return user, nil
}

// UpsertRequest carries the fields merged into an account on upsert.
type UpsertRequest struct {
	ID              string
	Email           Email
	FirstName       string
	LastName        string
	ProfileImageURL string
}

// UpsertUser inserts the account when its id is unseen and otherwise merges
// the non-empty fields into the existing record, bumping the update
// timestamp. The operation is idempotent on id.
func (s *Service) UpsertUser(ctx context.Context, request UpsertRequest) (User, error) {
	if request.ID == "" {
		generated, err := s.idProvider.NewID()
		if err != nil {
			s.logger.Error("id generation failed", zap.Error(err))
			return User{}, err
		}
		request.ID = generated
	}

	var user User
	err := s.db.WithContext(ctx).
		Where("id = ?", request.ID).
		Take(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		now := s.clock().UTC()
		user = User{
			ID:              request.ID,
			Email:           request.Email.String(),
			FirstName:       request.FirstName,
			LastName:        request.LastName,
			ProfileImageURL: request.ProfileImageURL,
			CreatedAt:       now,
			UpdatedAt:       now,
		}
		if err := s.db.WithContext(ctx).Create(&user).Error; err != nil {
			s.logger.Error("user insert failed", zap.Error(err))
			return User{}, err
		}
		return user, nil
	}
	if err != nil {
		s.logger.Error("user lookup failed", zap.Error(err))
		return User{}, err
	}

	updates := map[string]interface{}{}
	if email := request.Email.String(); email != "" && email != user.Email {
		updates["email"] = email
	}
	if request.FirstName != "" && request.FirstName != user.FirstName {
		updates["first_name"] = request.FirstName
	}
	if request.LastName != "" && request.LastName != user.LastName {
		updates["last_name"] = request.LastName
	}
	if request.ProfileImageURL != "" && request.ProfileImageURL != user.ProfileImageURL {
		updates["profile_image_url"] = request.ProfileImageURL
	}
	updates["updated_at"] = s.clock().UTC()

	if err := s.db.WithContext(ctx).Model(&User{}).
		Where("id = ?", request.ID).
		Updates(updates).Error; err != nil {
		s.logger.Error("user update failed", zap.Error(err))
		return User{}, err
	}

	if err := s.db.WithContext(ctx).
		Where("id = ?", request.ID).
		Take(&user).Error; err != nil {
		s.logger.Error("user reload failed", zap.Error(err))
		return User{}, err
	}
	return user, nil
}
