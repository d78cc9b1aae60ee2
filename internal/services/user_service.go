package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/evoris-app/go-capsule-backend/internal/domain"
	"github.com/evoris-app/go-capsule-backend/internal/repo"
)

// minPasswordLen is the minimum accepted password length.
const minPasswordLen = 8

// UserService implements registration, credential login, and profile
// management. Passwords are stored as bcrypt hashes only; login issues a
// signed HS256 token carrying the user id.
type UserService struct {
	// DB is the GORM handle used for persistence.
	DB *gorm.DB
	// Secret signs and verifies issued tokens.
	Secret []byte
	// TokenTTL bounds token validity; values <= 0 mean 24h.
	TokenTTL time.Duration

	// Now returns the current time; nil means time.Now.
	Now func() time.Time
}

// NewUserService constructs a UserService with the given signing secret.
func NewUserService(db *gorm.DB, secret string, ttl time.Duration) *UserService {
	return &UserService{DB: db, Secret: []byte(secret), TokenTTL: ttl}
}

func (s *UserService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func (s *UserService) ttl() time.Duration {
	if s.TokenTTL <= 0 {
		return 24 * time.Hour
	}
	return s.TokenTTL
}

// Register creates an account from an email, display name, and password.
// The email is lowercased and trimmed before storage so lookups are
// case-insensitive by construction.
func (s *UserService) Register(ctx context.Context, email, displayName, password string) (*domain.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	displayName = strings.TrimSpace(displayName)
	if email == "" || !strings.Contains(email, "@") {
		return nil, ErrInvalidCredentials
	}
	if displayName == "" {
		return nil, ErrDisplayNameRequired
	}
	if len(password) < minPasswordLen {
		return nil, ErrWeakPassword
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	u, err := repo.CreateUser(ctx, s.DB, email, displayName, string(hash))
	if err != nil {
		if errors.Is(err, repo.ErrEmailTaken) {
			return nil, ErrEmailTaken
		}
		return nil, err
	}
	return u, nil
}

// Login verifies the credentials and returns the user plus a signed token.
// Unknown emails and wrong passwords are indistinguishable to the caller.
func (s *UserService) Login(ctx context.Context, email, password string) (*domain.User, string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	u, err := repo.GetUserByEmail(ctx, s.DB, email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, "", ErrInvalidCredentials
		}
		return nil, "", err
	}
	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) != nil {
		return nil, "", ErrInvalidCredentials
	}
	if len(s.Secret) == 0 {
		return nil, "", errors.New("token signing key is not configured")
	}

	now := s.now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   u.ID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl())),
	})
	signed, err := token.SignedString(s.Secret)
	if err != nil {
		return nil, "", err
	}
	return u, signed, nil
}

// VerifyToken parses and validates a token issued by Login, returning the
// user id it carries. Only HS256 is accepted. An empty signing key never
// verifies: it would let anyone mint a valid token.
func (s *UserService) VerifyToken(tokenString string) (string, error) {
	if len(s.Secret) == 0 {
		return "", ErrInvalidCredentials
	}
	claims := &jwt.RegisteredClaims{}
	parsed, err := jwt.ParseWithClaims(tokenString, claims,
		func(t *jwt.Token) (any, error) { return s.Secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil || !parsed.Valid || claims.Subject == "" {
		return "", ErrInvalidCredentials
	}
	return claims.Subject, nil
}

// Profile returns the user record for id.
func (s *UserService) Profile(ctx context.Context, id string) (*domain.User, error) {
	u, err := repo.GetUser(ctx, s.DB, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return u, nil
}

// UpdateDisplayName replaces the user's display name.
func (s *UserService) UpdateDisplayName(ctx context.Context, id, displayName string) (*domain.User, error) {
	displayName = strings.TrimSpace(displayName)
	if displayName == "" {
		return nil, ErrDisplayNameRequired
	}
	if err := repo.UpdateDisplayName(ctx, s.DB, id, displayName); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return s.Profile(ctx, id)
}

// ChangePassword verifies the current password before storing a bcrypt hash
// of the new one.
func (s *UserService) ChangePassword(ctx context.Context, id, current, next string) error {
	if len(next) < minPasswordLen {
		return ErrWeakPassword
	}
	u, err := s.Profile(ctx, id)
	if err != nil {
		return err
	}
	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(current)) != nil {
		return ErrInvalidCredentials
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(next), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	if err := repo.UpdatePasswordHash(ctx, s.DB, id, string(hash)); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrUserNotFound
		}
		return err
	}
	return nil
}
