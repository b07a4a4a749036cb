package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jwt"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/researchmate/research-service/internal/domain"
)

// Token defaults.
const (
	DefaultTokenTTL   = 24 * time.Hour
	DefaultBCryptCost = 12

	tokenIssuer   = "research-service"
	usernameClaim = "username"
)

// ErrInvalidCredentials is returned for a wrong username or password. The
// two cases are deliberately indistinguishable to callers.
var ErrInvalidCredentials = errors.New("auth: invalid username or password")

// Config holds authentication settings.
type Config struct {
	// JWTSecret signs access tokens with HS256.
	JWTSecret string
	// TokenTTL is how long issued tokens stay valid.
	TokenTTL time.Duration
	// BCryptCost is the bcrypt work factor for password hashing.
	BCryptCost int
}

func (c *Config) applyDefaults() {
	if c.TokenTTL <= 0 {
		c.TokenTTL = DefaultTokenTTL
	}
	if c.BCryptCost <= 0 {
		c.BCryptCost = DefaultBCryptCost
	}
}

// Identity is the authenticated principal extracted from a valid token.
type Identity struct {
	UserID   string `json:"user_id"`
	Username string `json:"username"`
}

// Credentials is the result of a successful login.
type Credentials struct {
	Token    string `json:"token"`
	UserID   string `json:"user_id"`
	Username string `json:"username"`
}

// Manager registers users, verifies logins, and issues and validates JWTs.
type Manager struct {
	store  *UserStore
	config Config
	secret []byte
	logger zerolog.Logger

	now func() time.Time
}

// NewManager creates a Manager backed by the given store.
func NewManager(store *UserStore, cfg Config, logger zerolog.Logger) (*Manager, error) {
	cfg.applyDefaults()
	if cfg.JWTSecret == "" {
		return nil, errors.New("auth: JWT secret is required")
	}

	return &Manager{
		store:  store,
		config: cfg,
		secret: []byte(cfg.JWTSecret),
		logger: logger.With().Str("component", "auth").Logger(),
		now:    time.Now,
	}, nil
}

// Register creates a new account and returns its user ID.
func (m *Manager) Register(username, email, password string) (string, error) {
	if username == "" || password == "" {
		return "", fmt.Errorf("auth: username and password are required: %w", domain.ErrInvalidInput)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), m.config.BCryptCost)
	if err != nil {
		return "", fmt.Errorf("auth: hash password: %w", err)
	}

	count, err := m.store.Count()
	if err != nil {
		return "", err
	}
	userID := fmt.Sprintf("user_%d", count+1)

	user := User{
		ID:           userID,
		Username:     username,
		Email:        email,
		PasswordHash: string(hash),
		CreatedAt:    nowISO(),
		IsActive:     true,
	}
	if err := m.store.Create(user); err != nil {
		return "", err
	}

	m.logger.Info().Str("username", username).Str("user_id", userID).Msg("registered user")
	return userID, nil
}

// Login verifies the credentials and issues a signed token.
func (m *Manager) Login(username, password string) (*Credentials, error) {
	user, err := m.store.Get(username)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	if !user.IsActive {
		return nil, fmt.Errorf("auth: account is disabled: %w", domain.ErrForbidden)
	}

	token, err := m.issueToken(user)
	if err != nil {
		return nil, err
	}

	m.logger.Info().Str("username", username).Msg("user logged in")
	return &Credentials{
		Token:    token,
		UserID:   user.ID,
		Username: user.Username,
	}, nil
}

// VerifyToken validates a token's signature and expiry and returns the
// identity it carries.
func (m *Manager) VerifyToken(token string) (*Identity, error) {
	parsed, err := jwt.Parse([]byte(token),
		jwt.WithKey(jwa.HS256, m.secret),
		jwt.WithValidate(true),
		jwt.WithIssuer(tokenIssuer),
	)
	if err != nil {
		return nil, fmt.Errorf("auth: invalid token: %w", domain.ErrUnauthorized)
	}

	username, _ := parsed.Get(usernameClaim)
	usernameStr, _ := username.(string)

	return &Identity{
		UserID:   parsed.Subject(),
		Username: usernameStr,
	}, nil
}

func (m *Manager) issueToken(user *User) (string, error) {
	now := m.now()

	token, err := jwt.NewBuilder().
		Issuer(tokenIssuer).
		Subject(user.ID).
		Claim(usernameClaim, user.Username).
		IssuedAt(now).
		Expiration(now.Add(m.config.TokenTTL)).
		Build()
	if err != nil {
		return "", fmt.Errorf("auth: build token: %w", err)
	}

	signed, err := jwt.Sign(token, jwt.WithKey(jwa.HS256, m.secret))
	if err != nil {
		return "", fmt.Errorf("auth: sign token: %w", err)
	}
	return string(signed), nil
}
