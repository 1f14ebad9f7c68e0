package auth

import (
	"context"
	"log"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"
	"golang.org/x/crypto/bcrypt"

	"parkspot-backend/config"
	"parkspot-backend/internal/apperr"
	"parkspot-backend/internal/model"
	"parkspot-backend/internal/store"
)

// Service implements signup, login, logout and profile updates.
//
// Session state is not held process-wide: a login returns a signed token
// and every request carries its own identity. Logout revokes the token
// by its jti for the remainder of its lifetime.
type Service struct {
	store   store.Store
	secret  []byte
	ttl     time.Duration
	cost    int
	revoked *cache.Cache
}

// NewService creates an auth service from configuration.
func NewService(s store.Store, cfg *config.AuthConfig) *Service {
	return &Service{
		store:  s,
		secret: []byte(cfg.JWTSecret),
		ttl:    cfg.TokenTTL,
		cost:   cfg.BcryptCost,
		// Revoked tokens only need to outlive the token TTL.
		revoked: cache.New(cfg.TokenTTL, 2*cfg.TokenTTL),
	}
}

// Signup registers a new profile. The password is bcrypt-hashed before
// it reaches the store; a duplicate email is an auth error.
func (s *Service) Signup(ctx context.Context, name, email, password string) (*model.Profile, error) {
	name = strings.TrimSpace(name)
	email = strings.TrimSpace(email)
	if name == "" || email == "" || password == "" {
		return nil, apperr.Auth("name, email and password are required")
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, apperr.Auth("invalid email address")
	}

	if _, err := s.store.ProfileByEmail(ctx, email); err == nil {
		return nil, apperr.Duplicate("user with same email already exists")
	} else if !apperr.IsNotFound(err) {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return nil, apperr.Store("failed to hash password", err)
	}

	p := &model.Profile{
		UserID:       uuid.NewString(),
		Name:         name,
		Email:        email,
		PasswordHash: string(hash),
	}
	if err := s.store.CreateProfile(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

// Login verifies credentials and issues a session token. A mismatch
// yields the same error whether the email or the password was wrong.
func (s *Service) Login(ctx context.Context, email, password string) (*model.Profile, string, error) {
	p, err := s.store.ProfileByEmail(ctx, strings.TrimSpace(email))
	if apperr.IsNotFound(err) {
		return nil, "", apperr.Auth("invalid credentials")
	}
	if err != nil {
		return nil, "", err
	}

	if bcrypt.CompareHashAndPassword([]byte(p.PasswordHash), []byte(password)) != nil {
		return nil, "", apperr.Auth("invalid credentials")
	}

	token, err := CreateToken(s.secret, Identity{UserID: p.UserID, Name: p.Name, Email: p.Email}, s.ttl)
	if err != nil {
		return nil, "", apperr.Store("failed to sign session token", err)
	}
	return p, token, nil
}

// Logout revokes the presented token. It always succeeds: an already
// invalid token has nothing left to revoke.
func (s *Service) Logout(tokenStr string) {
	claims, err := ParseToken(s.secret, tokenStr)
	if err != nil {
		return
	}
	remaining := time.Until(claims.ExpiresAt.Time)
	if remaining <= 0 {
		return
	}
	s.revoked.Set(claims.ID, struct{}{}, remaining)
}

// Authenticate validates a bearer token and returns the identity it
// carries. Revoked tokens are rejected.
func (s *Service) Authenticate(tokenStr string) (*Identity, error) {
	claims, err := ParseToken(s.secret, tokenStr)
	if err != nil {
		return nil, apperr.Auth("invalid or expired token")
	}
	if _, found := s.revoked.Get(claims.ID); found {
		return nil, apperr.Auth("token has been revoked")
	}
	return &Identity{UserID: claims.Sub, Name: claims.Name, Email: claims.Email}, nil
}

// UpdateProfile overwrites name and email for the user. Callers issue a
// fresh token from the returned profile so the session identity stays
// consistent with the store.
func (s *Service) UpdateProfile(ctx context.Context, userID, name, email string) (*model.Profile, string, error) {
	name = strings.TrimSpace(name)
	email = strings.TrimSpace(email)
	if name == "" || email == "" {
		return nil, "", apperr.Auth("name and email are required")
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, "", apperr.Auth("invalid email address")
	}

	if existing, err := s.store.ProfileByEmail(ctx, email); err == nil && existing.UserID != userID {
		return nil, "", apperr.Duplicate("user with same email already exists")
	} else if err != nil && !apperr.IsNotFound(err) {
		return nil, "", err
	}

	p, err := s.store.UpdateProfile(ctx, userID, name, email)
	if err != nil {
		return nil, "", err
	}

	token, err := CreateToken(s.secret, Identity{UserID: p.UserID, Name: p.Name, Email: p.Email}, s.ttl)
	if err != nil {
		log.Printf("failed to re-issue token after profile update: %v", err)
		return p, "", nil
	}
	return p, token, nil
}
