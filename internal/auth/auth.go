package auth

import (
	"errors"
	"time"

	"golang.org/x/crypto/bcrypt"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrAuthDisabled       = errors.New("authentication is disabled")
)

// Config configures the single-user device authenticator.
type Config struct {
	Enabled  bool
	Username string // default "admin"
	Password string // plaintext or bcrypt hash
	Secret   string // JWT signing secret; empty generates a random one
	Expiry   time.Duration
}

// Authenticator validates the device operator's credentials and issues
// bearer tokens for the local API.
type Authenticator struct {
	enabled      bool
	username     string
	passwordHash []byte
	jwtManager   *JWTManager
}

// NewAuthenticator builds an authenticator from config.
func NewAuthenticator(cfg Config) *Authenticator {
	if cfg.Username == "" {
		cfg.Username = "admin"
	}

	var passwordHash []byte
	if cfg.Enabled && cfg.Password != "" {
		// A 60-byte $-prefixed password is already a bcrypt hash.
		if len(cfg.Password) == 60 && cfg.Password[0] == '$' {
			passwordHash = []byte(cfg.Password)
		} else {
			if hash, err := bcrypt.GenerateFromPassword([]byte(cfg.Password), bcrypt.DefaultCost); err == nil {
				passwordHash = hash
			}
		}
	}

	return &Authenticator{
		enabled:      cfg.Enabled,
		username:     cfg.Username,
		passwordHash: passwordHash,
		jwtManager:   NewJWTManager(cfg.Secret, cfg.Expiry),
	}
}

// IsEnabled reports whether authentication is enforced.
func (a *Authenticator) IsEnabled() bool {
	return a.enabled
}

// Authenticate validates credentials and returns a token with its unix
// expiry.
func (a *Authenticator) Authenticate(username, password string) (string, int64, error) {
	if !a.enabled {
		return "", 0, ErrAuthDisabled
	}
	if username != a.username {
		return "", 0, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword(a.passwordHash, []byte(password)); err != nil {
		return "", 0, ErrInvalidCredentials
	}

	token, expiresAt, err := a.jwtManager.GenerateToken(username)
	if err != nil {
		return "", 0, err
	}
	return token, expiresAt.Unix(), nil
}

// ValidateToken validates a bearer token.
func (a *Authenticator) ValidateToken(token string) (*Claims, error) {
	return a.jwtManager.ValidateToken(token)
}

// HashPassword creates a bcrypt hash for provisioning.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}
