// Package auth handles password verification and session issuance. Sessions
// are opaque bearer tokens stored server-side; an expired or unknown token is
// indistinguishable from a missing one.
package auth

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/groblegark/tangle/internal/idgen"
	"github.com/groblegark/tangle/internal/model"
)

// Store is the slice of the persistence interface auth needs. Satisfied by
// store.Store.
type Store interface {
	CreateUser(ctx context.Context, user *model.User) error
	GetUserByUsername(ctx context.Context, username string) (*model.User, error)
	CreateSession(ctx context.Context, session *model.Session) error
	GetSessionUser(ctx context.Context, token string) (*model.Session, *model.User, error)
	DeleteSession(ctx context.Context, token string) error
	DeleteExpiredSessions(ctx context.Context, before time.Time) (int64, error)
}

// DefaultSessionTTL is how long a session lives unless configured otherwise.
const DefaultSessionTTL = 14 * 24 * time.Hour

// MinPasswordLength is enforced at registration.
const MinPasswordLength = 8

// ErrInvalidCredentials is returned for a bad username/password pair. The
// message is deliberately the same whether the user exists or not.
var ErrInvalidCredentials = errors.New("invalid username or password")

// ErrUnauthenticated is returned when a session token is missing, unknown,
// or expired.
var ErrUnauthenticated = errors.New("unauthenticated")

// Service issues and validates sessions against the store.
type Service struct {
	store Store
	ttl   time.Duration
}

// NewService returns an auth service with the given session TTL.
// A non-positive ttl falls back to DefaultSessionTTL.
func NewService(s Store, ttl time.Duration) *Service {
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	return &Service{store: s, ttl: ttl}
}

// Register creates a new user with a bcrypt-hashed password and issues an
// initial session. Duplicate usernames or emails surface as store.ErrConflict.
func (s *Service) Register(ctx context.Context, username, email, password string) (*model.User, *model.Session, error) {
	if len(password) < MinPasswordLength {
		return nil, nil, &model.ValidationError{Errors: []model.FieldError{{
			Field:   "password",
			Message: fmt.Sprintf("must be at least %d characters", MinPasswordLength),
		}}}
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, nil, fmt.Errorf("hash password: %w", err)
	}

	user := &model.User{
		ID:           uuid.NewString(),
		Username:     strings.TrimSpace(username),
		Email:        strings.TrimSpace(email),
		PasswordHash: string(hash),
	}
	if err := model.ValidateUser(user); err != nil {
		return nil, nil, err
	}

	if err := s.store.CreateUser(ctx, user); err != nil {
		return nil, nil, err
	}

	session, err := s.issueSession(ctx, user.ID)
	if err != nil {
		return nil, nil, err
	}
	return user, session, nil
}

// Login verifies the password and issues a new session.
func (s *Service) Login(ctx context.Context, username, password string) (*model.User, *model.Session, error) {
	user, err := s.store.GetUserByUsername(ctx, strings.TrimSpace(username))
	if errors.Is(err, sql.ErrNoRows) {
		// Burn a comparison anyway so missing users cost the same as wrong
		// passwords.
		_ = bcrypt.CompareHashAndPassword(dummyHash, []byte(password))
		return nil, nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, nil, fmt.Errorf("lookup user: %w", err)
	}

	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		return nil, nil, ErrInvalidCredentials
	}

	session, err := s.issueSession(ctx, user.ID)
	if err != nil {
		return nil, nil, err
	}
	return user, session, nil
}

// Logout deletes the session row. Unknown tokens are not an error; the end
// state is the same.
func (s *Service) Logout(ctx context.Context, token string) error {
	err := s.store.DeleteSession(ctx, token)
	if errors.Is(err, sql.ErrNoRows) {
		return nil
	}
	return err
}

// Authenticate resolves a bearer token to its user. Expired and unknown
// tokens both return ErrUnauthenticated.
func (s *Service) Authenticate(ctx context.Context, token string) (*model.User, error) {
	if token == "" {
		return nil, ErrUnauthenticated
	}
	_, user, err := s.store.GetSessionUser(ctx, token)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrUnauthenticated
	}
	if err != nil {
		return nil, fmt.Errorf("lookup session: %w", err)
	}
	return user, nil
}

func (s *Service) issueSession(ctx context.Context, userID string) (*model.Session, error) {
	token, err := idgen.NewSessionToken()
	if err != nil {
		return nil, err
	}
	session := &model.Session{
		Token:     token,
		UserID:    userID,
		ExpiresAt: time.Now().UTC().Add(s.ttl),
	}
	if err := s.store.CreateSession(ctx, session); err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}
	return session, nil
}

// dummyHash is a bcrypt hash of an unguessable value, used to equalize login
// timing when the username does not exist.
var dummyHash = func() []byte {
	h, err := bcrypt.GenerateFromPassword([]byte("tangle-no-such-user"), bcrypt.DefaultCost)
	if err != nil {
		panic(err)
	}
	return h
}()
