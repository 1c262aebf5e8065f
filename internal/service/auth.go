package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/shelfd/shelf/internal/model"
	"github.com/shelfd/shelf/internal/store"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidToken       = errors.New("invalid token")
	ErrInvalidEmail       = errors.New("invalid email address")
	ErrWeakPassword       = errors.New("password must be at least 8 characters")
	ErrDuplicateEmail     = store.ErrDuplicateEmail
)

// Hasher turns plaintext passwords into one-way hashes and verifies them.
// Injected so tests can swap the (deliberately slow) bcrypt implementation.
type Hasher interface {
	Hash(password string) (string, error)
	Verify(hash, password string) bool
}

// BcryptHasher is the production Hasher. Zero Cost means bcrypt.DefaultCost.
type BcryptHasher struct{ Cost int }

func (b BcryptHasher) Hash(password string) (string, error) {
	cost := b.Cost
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	h, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", err
	}
	return string(h), nil
}

func (b BcryptHasher) Verify(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// Signer issues and verifies bearer tokens carrying an admin identity.
type Signer interface {
	Issue(adminID int64, email string, ttl time.Duration) (string, error)
	Verify(token string) (adminID int64, email string, err error)
}

// JWTSigner signs HS256 JWTs with a process-wide secret fixed at startup.
type JWTSigner struct {
	secret []byte
}

func NewJWTSigner(secret string) *JWTSigner {
	return &JWTSigner{secret: []byte(secret)}
}

type jwtClaims struct {
	AdminID int64  `json:"admin_id"`
	Email   string `json:"email"`
	jwt.RegisteredClaims
}

func (s *JWTSigner) Issue(adminID int64, email string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := jwtClaims{
		AdminID: adminID,
		Email:   email,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			Issuer:    "shelf",
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.secret)
}

func (s *JWTSigner) Verify(tokenStr string) (int64, string, error) {
	claims := &jwtClaims{}

	token, err := jwt.ParseWithClaims(tokenStr, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return s.secret, nil
	})
	if err != nil {
		return 0, "", ErrInvalidToken
	}
	if !token.Valid {
		return 0, "", ErrInvalidToken
	}
	return claims.AdminID, claims.Email, nil
}

// AuthService owns the credential flow: registration, login, and resolving
// bearer tokens back to live admin accounts.
type AuthService struct {
	store    *store.Store
	hasher   Hasher
	signer   Signer
	tokenTTL time.Duration
	logger   *slog.Logger
}

func NewAuthService(st *store.Store, hasher Hasher, signer Signer, tokenTTL time.Duration, logger *slog.Logger) *AuthService {
	if tokenTTL <= 0 {
		tokenTTL = 24 * time.Hour
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &AuthService{
		store:    st,
		hasher:   hasher,
		signer:   signer,
		tokenTTL: tokenTTL,
		logger:   logger,
	}
}

// TokenTTL returns the configured token lifetime.
func (s *AuthService) TokenTTL() time.Duration {
	return s.tokenTTL
}

// Register creates a new admin account with a hashed password. Returns
// ErrDuplicateEmail if the email is already registered.
func (s *AuthService) Register(ctx context.Context, email, password, name string) (*model.Admin, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	if !validEmail(email) {
		return nil, ErrInvalidEmail
	}
	if len(password) < 8 {
		return nil, ErrWeakPassword
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	admin := &model.Admin{
		Email:        email,
		PasswordHash: hash,
		Name:         name,
	}
	if err := s.store.CreateAdmin(ctx, admin); err != nil {
		return nil, err
	}
	return admin, nil
}

// Login verifies the email/password pair and returns the admin plus a fresh
// bearer token. The error is ErrInvalidCredentials for both an unknown email
// and a wrong password, so callers cannot probe which emails exist.
func (s *AuthService) Login(ctx context.Context, email, password string) (*model.Admin, string, error) {
	email = strings.TrimSpace(strings.ToLower(email))

	admin, err := s.store.GetAdminByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, "", ErrInvalidCredentials
		}
		return nil, "", fmt.Errorf("look up admin: %w", err)
	}

	if !s.hasher.Verify(admin.PasswordHash, password) {
		return nil, "", ErrInvalidCredentials
	}

	token, err := s.signer.Issue(admin.ID, admin.Email, s.tokenTTL)
	if err != nil {
		return nil, "", fmt.Errorf("issue token: %w", err)
	}

	// Best effort: a stale last-login timestamp must not fail the login.
	if err := s.store.UpdateAdminLastLogin(ctx, admin.ID); err != nil {
		s.logger.Warn("failed to record last login", "admin_id", admin.ID, "error", err)
	}

	return admin, token, nil
}

// Authenticate verifies a bearer token and resolves the admin it names.
// A valid signature over an account that no longer exists (orphaned token)
// fails with ErrInvalidToken just like a bad signature.
func (s *AuthService) Authenticate(ctx context.Context, token string) (*model.Admin, error) {
	adminID, _, err := s.signer.Verify(token)
	if err != nil {
		return nil, ErrInvalidToken
	}

	admin, err := s.store.GetAdminByID(ctx, adminID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrInvalidToken
		}
		return nil, fmt.Errorf("resolve admin: %w", err)
	}
	return admin, nil
}

// validEmail does a structural check, not RFC-grade parsing. The store's
// uniqueness constraint is the real gate; this rejects obvious garbage.
func validEmail(email string) bool {
	at := strings.Index(email, "@")
	if at <= 0 || at == len(email)-1 {
		return false
	}
	domain := email[at+1:]
	return strings.Contains(domain, ".") && !strings.ContainsAny(email, " \t\n")
}
