package server

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/noterlabs/noter/backend/internal/auth"
	"github.com/noterlabs/noter/backend/internal/notes"
	"github.com/noterlabs/noter/backend/internal/users"
	"go.uber.org/zap"
)

const userIDContextKey = "noter_user_id"

const priorityFilterAll = "all"

var (
	errMissingAuthenticator = errors.New("authenticator dependency required")
	errMissingTokenIssuer   = errors.New("token issuer dependency required")
	errMissingUsersService  = errors.New("users service dependency required")
	errMissingNotesService  = errors.New("notes service dependency required")
)

// IdentityTokenIssuer issues bearer tokens bound to an authenticated user id.
type IdentityTokenIssuer interface {
	Issue(userID string) (string, int64, error)
}

// Dependencies bundles everything the HTTP surface needs.
type Dependencies struct {
	Authenticator  auth.Authenticator
	TokenIssuer    IdentityTokenIssuer
	UsersService   *users.Service
	NotesService   *notes.Service
	Logger         *zap.Logger
	AllowedOrigins []string
}

// NewHTTPHandler builds the gin router serving the /api surface.
func NewHTTPHandler(deps Dependencies) (http.Handler, error) {
	if deps.Authenticator == nil {
		return nil, errMissingAuthenticator
	}
	if deps.TokenIssuer == nil {
		return nil, errMissingTokenIssuer
	}
	if deps.UsersService == nil {
		return nil, errMissingUsersService
	}
	if deps.NotesService == nil {
		return nil, errMissingNotesService
	}

	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	allowedOrigins := deps.AllowedOrigins
	if len(allowedOrigins) == 0 {
		allowedOrigins = []string{"*"}
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(cors.New(cors.Config{
		AllowOrigins: allowedOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowHeaders: []string{"Authorization", "Content-Type"},
		MaxAge:       12 * time.Hour,
	}))

	handler := &httpHandler{
		authenticator: deps.Authenticator,
		tokens:        deps.TokenIssuer,
		usersService:  deps.UsersService,
		notesService:  deps.NotesService,
		logger:        logger,
	}

	api := router.Group("/api")
	api.POST("/auth/register", handler.handleRegister)
	api.POST("/auth/login", handler.handleLogin)

	protected := api.Group("/")
	protected.Use(handler.authorizeRequest)
	protected.GET("/auth/user", handler.handleCurrentUser)
	protected.GET("/notes", handler.handleListNotes)
	protected.POST("/notes", handler.handleCreateNote)
	protected.PUT("/notes/:id", handler.handleUpdateNote)
	protected.DELETE("/notes/:id", handler.handleDeleteNote)

	return router, nil
}

type httpHandler struct {
	authenticator auth.Authenticator
	tokens        IdentityTokenIssuer
	usersService  *users.Service
	notesService  *notes.Service
	logger        *zap.Logger
}

func (h *httpHandler) authorizeRequest(c *gin.Context) {
	userID, err := h.authenticator.Authenticate(c.Request)
	if err != nil {
		h.logger.Warn("request authentication failed", zap.Error(err))
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	c.Set(userIDContextKey, userID)
	c.Next()
}

type registerRequestPayload struct {
	Email     string `json:"email"`
	Password  string `json:"password"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
}

type loginRequestPayload struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type authResponsePayload struct {
	Message   string     `json:"message"`
	User      users.User `json:"user"`
	Token     string     `json:"token"`
	ExpiresIn int64      `json:"expires_in"`
	TokenType string     `json:"token_type"`
}

func (h *httpHandler) handleRegister(c *gin.Context) {
	var request registerRequestPayload
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}

	fieldErrors := gin.H{}
	email, err := users.NewEmail(request.Email)
	if err != nil {
		fieldErrors["email"] = "invalid email format"
	}
	password, err := users.NewPassword(request.Password)
	if err != nil {
		fieldErrors["password"] = "password must be at least 6 characters"
	}
	if len(fieldErrors) > 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_user_data", "fields": fieldErrors})
		return
	}

	user, err := h.usersService.Register(c.Request.Context(), users.RegisterRequest{
		Email:     email,
		Password:  password,
		FirstName: request.FirstName,
		LastName:  request.LastName,
	})
	if errors.Is(err, users.ErrDuplicateEmail) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "user_already_exists"})
		return
	}
	if err != nil {
		h.logger.Error("user registration failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "register_failed"})
		return
	}

	token, expiresIn, err := h.tokens.Issue(user.ID)
	if err != nil {
		h.logger.Error("failed to issue identity token", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "token_issue_failed"})
		return
	}

	c.JSON(http.StatusCreated, authResponsePayload{
		Message:   "user created successfully",
		User:      user,
		Token:     token,
		ExpiresIn: expiresIn,
		TokenType: "Bearer",
	})
}

func (h *httpHandler) handleLogin(c *gin.Context) {
	var request loginRequestPayload
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}

	fieldErrors := gin.H{}
	email, err := users.NewEmail(request.Email)
	if err != nil {
		fieldErrors["email"] = "invalid email format"
	}
	if request.Password == "" {
		fieldErrors["password"] = "password is required"
	}
	if len(fieldErrors) > 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_login_data", "fields": fieldErrors})
		return
	}

	user, err := h.usersService.Login(c.Request.Context(), email, request.Password)
	if errors.Is(err, users.ErrUserNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "user_not_exists"})
		return
	}
	if errors.Is(err, users.ErrInvalidCredentials) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "wrong_credentials"})
		return
	}
	if err != nil {
		h.logger.Error("user login failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "login_failed"})
		return
	}

	token, expiresIn, err := h.tokens.Issue(user.ID)
	if err != nil {
		h.logger.Error("failed to issue identity token", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "token_issue_failed"})
		return
	}

	c.JSON(http.StatusOK, authResponsePayload{
		Message:   "login successful",
		User:      user,
		Token:     token,
		ExpiresIn: expiresIn,
		TokenType: "Bearer",
	})
}

func (h *httpHandler) handleCurrentUser(c *gin.Context) {
	userID, ok := h.requestUserID(c)
	if !ok {
		return
	}

	user, err := h.usersService.GetUser(c.Request.Context(), userID)
	if errors.Is(err, users.ErrUserNotFound) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	if err != nil {
		h.logger.Error("failed to fetch current user", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "user_fetch_failed"})
		return
	}

	c.JSON(http.StatusOK, user)
}

func (h *httpHandler) handleListNotes(c *gin.Context) {
	userID, ok := h.noteOwnerID(c)
	if !ok {
		return
	}

	searchQuery := c.Query("search")
	priorityQuery := c.Query("priority")

	var (
		results []notes.Note
		err     error
	)
	switch {
	case searchQuery != "":
		results, err = h.notesService.SearchNotes(c.Request.Context(), userID, searchQuery)
	case priorityQuery != "" && priorityQuery != priorityFilterAll:
		parsed, parseErr := strconv.Atoi(priorityQuery)
		if parseErr != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_priority"})
			return
		}
		priority, priorityErr := notes.NewPriority(parsed)
		if priorityErr != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_priority"})
			return
		}
		results, err = h.notesService.FilterNotesByPriority(c.Request.Context(), userID, priority)
	default:
		results, err = h.notesService.ListNotes(c.Request.Context(), userID)
	}
	if err != nil {
		h.logger.Error("failed to fetch notes", zap.Error(err))
		h.respondServiceError(c, err, "notes_fetch_failed")
		return
	}

	if results == nil {
		results = []notes.Note{}
	}
	c.JSON(http.StatusOK, results)
}

type createNotePayload struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Priority    int    `json:"priority"`
}

func (h *httpHandler) handleCreateNote(c *gin.Context) {
	userID, ok := h.noteOwnerID(c)
	if !ok {
		return
	}

	var request createNotePayload
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}

	fieldErrors := gin.H{}
	title, err := notes.NewTitle(request.Title)
	if err != nil {
		fieldErrors["title"] = "title is required"
	}
	description, err := notes.NewDescription(request.Description)
	if err != nil {
		fieldErrors["description"] = "description is required"
	}
	priority, err := notes.NewPriority(request.Priority)
	if err != nil {
		fieldErrors["priority"] = "priority must be between 1 and 5"
	}
	if len(fieldErrors) > 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_note_data", "fields": fieldErrors})
		return
	}

	note, err := h.notesService.CreateNote(c.Request.Context(), userID, notes.CreateRequest{
		Title:       title,
		Description: description,
		Priority:    priority,
	})
	if err != nil {
		h.logger.Error("failed to create note", zap.Error(err))
		h.respondServiceError(c, err, "note_create_failed")
		return
	}

	c.JSON(http.StatusCreated, note)
}

type updateNotePayload struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
	Priority    *int    `json:"priority"`
}

func (h *httpHandler) handleUpdateNote(c *gin.Context) {
	userID, ok := h.noteOwnerID(c)
	if !ok {
		return
	}

	noteID, err := notes.NewNoteID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_note_id"})
		return
	}

	var request updateNotePayload
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}

	fieldErrors := gin.H{}
	update := notes.UpdateRequest{}
	if request.Title != nil {
		title, titleErr := notes.NewTitle(*request.Title)
		if titleErr != nil {
			fieldErrors["title"] = "title must not be empty"
		} else {
			update.Title = &title
		}
	}
	if request.Description != nil {
		description, descriptionErr := notes.NewDescription(*request.Description)
		if descriptionErr != nil {
			fieldErrors["description"] = "description must not be empty"
		} else {
			update.Description = &description
		}
	}
	if request.Priority != nil {
		priority, priorityErr := notes.NewPriority(*request.Priority)
		if priorityErr != nil {
			fieldErrors["priority"] = "priority must be between 1 and 5"
		} else {
			update.Priority = &priority
		}
	}
	if len(fieldErrors) > 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_note_data", "fields": fieldErrors})
		return
	}

	note, err := h.notesService.UpdateNote(c.Request.Context(), noteID, userID, update)
	if errors.Is(err, notes.ErrNoteNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "note_not_found"})
		return
	}
	if err != nil {
		h.logger.Error("failed to update note", zap.Error(err))
		h.respondServiceError(c, err, "note_update_failed")
		return
	}

	c.JSON(http.StatusOK, note)
}

func (h *httpHandler) handleDeleteNote(c *gin.Context) {
	userID, ok := h.noteOwnerID(c)
	if !ok {
		return
	}

	noteID, err := notes.NewNoteID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_note_id"})
		return
	}

	deleted, err := h.notesService.DeleteNote(c.Request.Context(), noteID, userID)
	if err != nil {
		h.logger.Error("failed to delete note", zap.Error(err))
		h.respondServiceError(c, err, "note_delete_failed")
		return
	}
	if !deleted {
		c.JSON(http.StatusNotFound, gin.H{"error": "note_not_found"})
		return
	}

	c.Status(http.StatusNoContent)
}

// requestUserID reads the authenticated user id stored by the middleware.
func (h *httpHandler) requestUserID(c *gin.Context) (users.UserID, bool) {
	raw := c.GetString(userIDContextKey)
	userID, err := users.NewUserID(raw)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return "", false
	}
	return userID, true
}

// noteOwnerID reads the authenticated user id as a notes-package identifier.
func (h *httpHandler) noteOwnerID(c *gin.Context) (notes.UserID, bool) {
	raw := c.GetString(userIDContextKey)
	userID, err := notes.NewUserID(raw)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return "", false
	}
	return userID, true
}

// respondServiceError returns a 500 whose body carries the stable service
// error code without leaking the underlying failure.
func (h *httpHandler) respondServiceError(c *gin.Context, err error, fallback string) {
	var serviceErr *notes.ServiceError
	if errors.As(err, &serviceErr) {
		c.JSON(http.StatusInternalServerError, gin.H{"error": fallback, "code": serviceErr.Code()})
		return
	}
	c.JSON(http.StatusInternalServerError, gin.H{"error": fallback})
}
