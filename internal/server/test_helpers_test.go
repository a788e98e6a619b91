package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	sqlite "github.com/glebarez/sqlite"
	"github.com/noterlabs/noter/backend/internal/auth"
	"github.com/noterlabs/noter/backend/internal/notes"
	"github.com/noterlabs/noter/backend/internal/users"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const testSigningSecret = "router-test-secret"

func newTestRouter(t *testing.T, name string) http.Handler {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", name)), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to open sqlite: %v", err)
	}
	if err := db.AutoMigrate(&users.User{}, &notes.Note{}); err != nil {
		t.Fatalf("failed to migrate schema: %v", err)
	}

	tokenIssuer := auth.NewTokenIssuer(auth.TokenIssuerConfig{
		SigningSecret: []byte(testSigningSecret),
		Issuer:        "noter-auth",
		Audience:      "noter-api",
		TokenTTL:      time.Hour,
	})
	authenticator, err := auth.NewBearerAuthenticator(tokenIssuer)
	if err != nil {
		t.Fatalf("failed to construct authenticator: %v", err)
	}

	idProvider := notes.NewUUIDProvider()
	usersService, err := users.NewService(users.ServiceConfig{
		Database:   db,
		IDProvider: idProvider,
		Logger:     zap.NewNop(),
	})
	if err != nil {
		t.Fatalf("failed to build users service: %v", err)
	}
	notesService, err := notes.NewService(notes.ServiceConfig{
		Database:   db,
		IDProvider: idProvider,
		Logger:     zap.NewNop(),
	})
	if err != nil {
		t.Fatalf("failed to build notes service: %v", err)
	}

	handler, err := NewHTTPHandler(Dependencies{
		Authenticator: authenticator,
		TokenIssuer:   tokenIssuer,
		UsersService:  usersService,
		NotesService:  notesService,
		Logger:        zap.NewNop(),
	})
	if err != nil {
		t.Fatalf("failed to build handler: %v", err)
	}
	return handler
}

func performJSON(t *testing.T, handler http.Handler, method, path, token string, payload any) *httptest.ResponseRecorder {
	t.Helper()
	var body *bytes.Reader
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			t.Fatalf("failed to encode request payload: %v", err)
		}
		body = bytes.NewReader(encoded)
	} else {
		body = bytes.NewReader(nil)
	}

	request := httptest.NewRequest(method, path, body)
	request.Header.Set("Content-Type", "application/json")
	if token != "" {
		request.Header.Set("Authorization", "Bearer "+token)
	}

	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, request)
	return recorder
}

func registerTestUser(t *testing.T, handler http.Handler, email string) string {
	t.Helper()
	recorder := performJSON(t, handler, http.MethodPost, "/api/auth/register", "", map[string]any{
		"email":    email,
		"password": "hunter22",
	})
	if recorder.Code != http.StatusCreated {
		t.Fatalf("registration failed with status %d: %s", recorder.Code, recorder.Body.String())
	}
	var response struct {
		Token string `json:"token"`
	}
	if err := json.Unmarshal(recorder.Body.Bytes(), &response); err != nil {
		t.Fatalf("failed to decode registration response: %v", err)
	}
	if response.Token == "" {
		t.Fatalf("expected identity token in registration response")
	}
	return response.Token
}

func decodeNote(t *testing.T, recorder *httptest.ResponseRecorder) notes.Note {
	t.Helper()
	var note notes.Note
	if err := json.Unmarshal(recorder.Body.Bytes(), &note); err != nil {
		t.Fatalf("failed to decode note response: %v", err)
	}
	return note
}

func decodeNotes(t *testing.T, recorder *httptest.ResponseRecorder) []notes.Note {
	t.Helper()
	var results []notes.Note
	if err := json.Unmarshal(recorder.Body.Bytes(), &results); err != nil {
		t.Fatalf("failed to decode notes response: %v", err)
	}
	return results
}
