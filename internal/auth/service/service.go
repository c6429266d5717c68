package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"fieldsurvey/internal/auth/password"
	"fieldsurvey/internal/auth/repository"
	"fieldsurvey/internal/auth/token"
	"fieldsurvey/internal/events"
	"fieldsurvey/platform/apperr"
	"fieldsurvey/platform/config"
	"fieldsurvey/platform/httpkit"
	"fieldsurvey/platform/logger"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var (
	ErrInvalidCredentials = apperr.Unauthorized("invalid credentials")
	ErrTokenExpired       = apperr.Unauthorized("token expired")
	ErrTokenInvalid       = apperr.Unauthorized("token invalid")
	ErrEmailTaken         = apperr.Conflict("email already registered")
)

const (
	refreshTokenSize = 48
	resetTokenSize   = 32
)

// Tokens is the result of a successful sign-in or refresh.
type Tokens struct {
	AccessToken  string
	RefreshToken string
	ExpiresIn    time.Duration
	Email        string // set on sign-in
}

// Profile is the public view of a user.
type Profile struct {
	ID        uuid.UUID
	Email     string
	CreatedAt time.Time
}

// Store is what the service needs from persistence.
type Store interface {
	CreateUser(ctx context.Context, email, passwordHash string) (repository.User, error)
	UserByEmail(ctx context.Context, email string) (repository.User, error)
	UserByID(ctx context.Context, id uuid.UUID) (repository.User, error)
	ResetPassword(ctx context.Context, userID uuid.UUID, passwordHash string) error

	SaveToken(ctx context.Context, t repository.Token) error
	ConsumeToken(ctx context.Context, digest string, kind repository.TokenKind) (repository.Token, error)
}

type Service struct {
	repo     Store
	cfg      config.AuthServiceConfig
	eventBus events.Bus
	log      *logger.Logger
	now      func() time.Time
}

func New(repo Store, cfg config.AuthServiceConfig, eventBus events.Bus, log *logger.Logger) *Service {
	return &Service{repo: repo, cfg: cfg, eventBus: eventBus, log: log, now: time.Now}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (s *Service) SignUp(ctx context.Context, email, plainPassword string) (Profile, error) {
	email = normalizeEmail(email)
	hash, err := password.Hash(plainPassword)
	if err != nil {
		return Profile{}, err
	}

	user, err := s.repo.CreateUser(ctx, email, hash)
	if errors.Is(err, repository.ErrDuplicateEmail) {
		s.log.AuthEvent("sign_up", email, false, "duplicate email")
		return Profile{}, ErrEmailTaken
	}
	if err != nil {
		return Profile{}, err
	}

	s.log.AuthEvent("sign_up", email, true, "")
	s.eventBus.Publish(ctx, events.UserSignedUp{
		BaseEvent: events.NewBaseEvent(),
		UserID:    user.ID,
		Email:     user.Email,
	})
	return Profile{ID: user.ID, Email: user.Email, CreatedAt: user.CreatedAt}, nil
}

func (s *Service) SignIn(ctx context.Context, email, plainPassword string) (Tokens, error) {
	email = normalizeEmail(email)
	user, err := s.repo.UserByEmail(ctx, email)
	if err != nil {
		s.log.AuthEvent("sign_in", email, false, "unknown user")
		return Tokens{}, ErrInvalidCredentials
	}

	if err := password.Compare(user.PasswordHash, plainPassword); err != nil {
		s.log.AuthEvent("sign_in", email, false, "wrong password")
		return Tokens{}, ErrInvalidCredentials
	}

	s.log.AuthEvent("sign_in", email, true, "")
	tokens, err := s.issueTokens(ctx, user.ID)
	tokens.Email = user.Email
	return tokens, err
}

// Refresh rotates a refresh token: the presented token is revoked and a new
// pair is issued.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (Tokens, error) {
	tok, err := s.consume(ctx, refreshToken, repository.TokenRefresh)
	if err != nil {
		return Tokens{}, err
	}
	return s.issueTokens(ctx, tok.UserID)
}

func (s *Service) SignOut(ctx context.Context, refreshToken string) error {
	if refreshToken == "" {
		return nil
	}
	_, err := s.repo.ConsumeToken(ctx, token.Hash(refreshToken), repository.TokenRefresh)
	if errors.Is(err, repository.ErrNotFound) {
		return nil
	}
	return err
}

// ForgotPassword never reveals whether the account exists.
func (s *Service) ForgotPassword(ctx context.Context, email string) error {
	email = normalizeEmail(email)
	user, err := s.repo.UserByEmail(ctx, email)
	if errors.Is(err, repository.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}

	resetToken, err := token.New(resetTokenSize)
	if err != nil {
		return err
	}

	if err := s.repo.SaveToken(ctx, repository.Token{
		Digest:    resetToken.Digest,
		UserID:    user.ID,
		Kind:      repository.TokenPasswordReset,
		ExpiresAt: s.now().Add(s.cfg.GetResetTokenTTL()),
	}); err != nil {
		return err
	}

	s.eventBus.Publish(ctx, events.PasswordResetRequested{
		BaseEvent: events.NewBaseEvent(),
		UserID:    user.ID,
		Email:     user.Email,
		ResetURL:  s.buildURL("/reset-password", resetToken.Value),
	})
	return nil
}

func (s *Service) ResetPassword(ctx context.Context, rawToken, newPassword string) error {
	passwordHash, err := password.Hash(newPassword)
	if err != nil {
		return err
	}
	tok, err := s.consume(ctx, rawToken, repository.TokenPasswordReset)
	if err != nil {
		return err
	}
	return s.repo.ResetPassword(ctx, tok.UserID, passwordHash)
}

func (s *Service) GetMe(ctx context.Context, userID uuid.UUID) (Profile, error) {
	user, err := s.repo.UserByID(ctx, userID)
	if errors.Is(err, repository.ErrNotFound) {
		return Profile{}, apperr.NotFound("user not found")
	}
	if err != nil {
		return Profile{}, err
	}
	return Profile{ID: user.ID, Email: user.Email, CreatedAt: user.CreatedAt}, nil
}

func (s *Service) issueTokens(ctx context.Context, userID uuid.UUID) (Tokens, error) {
	ttl := s.cfg.GetAccessTokenTTL()
	accessToken, err := s.signJWT(userID, ttl)
	if err != nil {
		return Tokens{}, err
	}

	refreshToken, err := token.New(refreshTokenSize)
	if err != nil {
		return Tokens{}, err
	}

	if err := s.repo.SaveToken(ctx, repository.Token{
		Digest:    refreshToken.Digest,
		UserID:    userID,
		Kind:      repository.TokenRefresh,
		ExpiresAt: s.now().Add(s.cfg.GetRefreshTokenTTL()),
	}); err != nil {
		return Tokens{}, err
	}

	return Tokens{AccessToken: accessToken, RefreshToken: refreshToken.Value, ExpiresIn: ttl}, nil
}

// consume spends a presented token. Unknown and spent tokens are invalid;
// expired ones are spent anyway.
func (s *Service) consume(ctx context.Context, raw string, kind repository.TokenKind) (repository.Token, error) {
	tok, err := s.repo.ConsumeToken(ctx, token.Hash(raw), kind)
	if errors.Is(err, repository.ErrNotFound) {
		return repository.Token{}, ErrTokenInvalid
	}
	if err != nil {
		return repository.Token{}, err
	}
	if s.now().After(tok.ExpiresAt) {
		return repository.Token{}, ErrTokenExpired
	}
	return tok, nil
}

func (s *Service) signJWT(userID uuid.UUID, ttl time.Duration) (string, error) {
	now := s.now()
	claims := httpkit.AccessClaims{
		Type: httpkit.TokenTypeAccess,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	tokenObj := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return tokenObj.SignedString([]byte(s.cfg.GetJWTAccessSecret()))
}

func (s *Service) buildURL(path, tokenValue string) string {
	base := strings.TrimRight(s.cfg.GetAppBaseURL(), "/")
	return base + path + "?token=" + tokenValue
}
