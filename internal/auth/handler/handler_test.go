package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"fieldsurvey/internal/auth/repository"
	"fieldsurvey/internal/auth/service"
	"fieldsurvey/internal/events"
	"fieldsurvey/platform/logger"
	"fieldsurvey/platform/validator"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type authConfig struct{}

func (authConfig) GetJWTAccessSecret() string        { return "secret" }
func (authConfig) GetAccessTokenTTL() time.Duration  { return time.Minute }
func (authConfig) GetRefreshTokenTTL() time.Duration { return time.Hour }
func (authConfig) GetResetTokenTTL() time.Duration   { return time.Hour }
func (authConfig) GetAppBaseURL() string             { return "https://survey.example" }

// memStore keeps one user and ignores tokens beyond saving them.
type memStore struct {
	users  map[string]repository.User
	tokens map[string]repository.Token
}

func (m *memStore) CreateUser(_ context.Context, email, hash string) (repository.User, error) {
	if _, ok := m.users[email]; ok {
		return repository.User{}, repository.ErrDuplicateEmail
	}
	u := repository.User{ID: uuid.New(), Email: email, PasswordHash: hash, CreatedAt: time.Now()}
	m.users[email] = u
	return u, nil
}

func (m *memStore) UserByEmail(_ context.Context, email string) (repository.User, error) {
	if u, ok := m.users[email]; ok {
		return u, nil
	}
	return repository.User{}, repository.ErrNotFound
}

func (m *memStore) UserByID(_ context.Context, id uuid.UUID) (repository.User, error) {
	for _, u := range m.users {
		if u.ID == id {
			return u, nil
		}
	}
	return repository.User{}, repository.ErrNotFound
}

func (m *memStore) ResetPassword(context.Context, uuid.UUID, string) error { return nil }

func (m *memStore) SaveToken(_ context.Context, t repository.Token) error {
	m.tokens[t.Digest] = t
	return nil
}

func (m *memStore) ConsumeToken(_ context.Context, digest string, kind repository.TokenKind) (repository.Token, error) {
	t, ok := m.tokens[digest]
	if !ok || t.Kind != kind {
		return repository.Token{}, repository.ErrNotFound
	}
	delete(m.tokens, digest)
	return t, nil
}

func newEngine() *gin.Engine {
	gin.SetMode(gin.TestMode)
	store := &memStore{users: map[string]repository.User{}, tokens: map[string]repository.Token{}}
	svc := service.New(store, authConfig{}, events.NewInMemoryBus(logger.Discard()), logger.Discard())

	engine := gin.New()
	New(svc, validator.New()).RegisterRoutes(engine.Group("/auth"))
	return engine
}

func post(engine *gin.Engine, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)
	return rec
}

func TestSignUpValidatesBody(t *testing.T) {
	engine := newEngine()

	cases := map[string]string{
		"malformed":      `{"email":`,
		"short password": `{"email":"ana@example.org","password":"short"}`,
		"bad email":      `{"email":"ana","password":"longenough"}`,
	}
	for name, body := range cases {
		if rec := post(engine, "/auth/sign-up", body); rec.Code != http.StatusBadRequest {
			t.Errorf("%s: expected 400, got %d", name, rec.Code)
		}
	}
}

func TestSignInReturnsNormalizedEmail(t *testing.T) {
	engine := newEngine()

	if rec := post(engine, "/auth/sign-up", `{"email":"ana@example.org","password":"longenough"}`); rec.Code != http.StatusCreated {
		t.Fatalf("sign up: %d %s", rec.Code, rec.Body.String())
	}
	rec := post(engine, "/auth/sign-in", `{"email":"Ana@Example.org","password":"longenough"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("sign in: %d %s", rec.Code, rec.Body.String())
	}

	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["email"] != "ana@example.org" || body["token_type"] != "Bearer" || body["refresh_token"] == "" {
		t.Fatalf("unexpected body %v", body)
	}
}

func TestSignOutAcceptsEmptyBody(t *testing.T) {
	engine := newEngine()
	req := httptest.NewRequest(http.MethodPost, "/auth/sign-out", nil)
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}
