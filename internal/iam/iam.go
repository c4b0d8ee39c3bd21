// Package iam implements the CLI/REST façade's login flow: a minimal
// in-memory user store and JWT issuance/verification, grounded on
// perplext-LLMrecon's AuthService (src/api/auth_service.go) — the same
// bcrypt password hashing and golang-jwt claims shape, narrowed to what
// the façade's login endpoint actually needs.
package iam

import (
	"errors"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/rubentxu/hodei-pipelines/internal/domain"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrTokenInvalid       = errors.New("token invalid")
	ErrUsernameTaken      = errors.New("username already exists")
)

// Claims is the JWT payload issued on login.
type Claims struct {
	UserID   string   `json:"user_id"`
	Username string   `json:"username"`
	Roles    []string `json:"roles"`
	jwt.RegisteredClaims
}

// Store authenticates users and issues/verifies session tokens.
type Store struct {
	mu       sync.RWMutex
	users    map[string]*domain.User // keyed by username
	secret   []byte
	tokenTTL time.Duration
}

// New constructs a Store signing JWTs with secret.
func New(secret []byte, tokenTTL time.Duration) *Store {
	return &Store{
		users:    make(map[string]*domain.User),
		secret:   secret,
		tokenTTL: tokenTTL,
	}
}

// CreateUser registers a new user with a bcrypt-hashed password.
func (s *Store) CreateUser(username, password string, roles []string) (*domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.users[username]; exists {
		return nil, ErrUsernameTaken
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	user := &domain.User{
		ID:           uuid.NewString(),
		Username:     username,
		PasswordHash: string(hash),
		Roles:        roles,
		CreatedAt:    time.Now(),
	}
	s.users[username] = user
	return user, nil
}

// Authenticate verifies a username/password pair and issues a signed JWT.
func (s *Store) Authenticate(username, password string) (string, *domain.User, error) {
	s.mu.RLock()
	user, ok := s.users[username]
	s.mu.RUnlock()
	if !ok {
		return "", nil, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return "", nil, ErrInvalidCredentials
	}

	token, err := s.issue(user)
	if err != nil {
		return "", nil, err
	}
	return token, user, nil
}

func (s *Store) issue(user *domain.User) (string, error) {
	now := time.Now()
	claims := Claims{
		UserID:   user.ID,
		Username: user.Username,
		Roles:    user.Roles,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.tokenTTL)),
			Subject:   user.ID,
			Issuer:    "hodei-pipelines",
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.secret)
}

// Verify parses and validates a JWT issued by Authenticate.
func (s *Store) Verify(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrTokenInvalid
		}
		return s.secret, nil
	})
	if err != nil {
		return nil, ErrTokenInvalid
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrTokenInvalid
	}
	return claims, nil
}
