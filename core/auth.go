package core

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	nanoid "github.com/matoous/go-nanoid/v2"
	"golang.org/x/crypto/bcrypt"

	"lookupdesk/database"
	"lookupdesk/logger"
	"lookupdesk/models"
)

// Claims carried by an access token.
type Claims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// Authenticator registers accounts and issues/verifies bearer tokens.
type Authenticator struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewAuthenticator signs tokens with secret (HS256) valid for ttl.
func NewAuthenticator(secret string, ttl time.Duration) *Authenticator {
	return &Authenticator{secret: []byte(secret), ttl: ttl, now: time.Now}
}

func hashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hashing password: %w", err)
	}
	return string(hash), nil
}

// Register creates an account with the USER role. Promotion to ADMIN is
// done out of band.
func (a *Authenticator) Register(username, password string) (models.User, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return models.User{}, ErrInvalidUsername
	}
	hash, err := hashPassword(password)
	if err != nil {
		return models.User{}, err
	}
	return database.CreateUser(username, hash, models.RoleUser)
}

// Login checks credentials and returns a signed token.
func (a *Authenticator) Login(username, password string) (models.Token, error) {
	u, err := database.GetUserByUsername(strings.TrimSpace(username))
	if err != nil {
		if errors.Is(err, database.ErrUserNotFound) {
			return models.Token{}, ErrBadCredentials
		}
		return models.Token{}, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		return models.Token{}, ErrBadCredentials
	}
	tok, err := a.IssueToken(u.Username, u.Role)
	if err != nil {
		return models.Token{}, err
	}
	return models.Token{AccessToken: tok, TokenType: "bearer", Role: u.Role}, nil
}

// IssueToken signs a token for username with role.
func (a *Authenticator) IssueToken(username, role string) (string, error) {
	jti, err := nanoid.New()
	if err != nil {
		return "", fmt.Errorf("generating token id: %w", err)
	}
	now := a.now()
	claims := Claims{
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   username,
			ID:        jti,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(a.ttl)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.secret)
	if err != nil {
		return "", fmt.Errorf("signing token: %w", err)
	}
	return signed, nil
}

// ParseToken verifies signature and expiry and returns the claims.
func (a *Authenticator) ParseToken(token string) (*Claims, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		return a.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(a.now),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if claims.Subject == "" || claims.Role == "" {
		return nil, fmt.Errorf("%w: missing subject or role", ErrInvalidToken)
	}
	return claims, nil
}

// Authorize verifies token and replaces its role claim with the account's
// stored role, so role changes apply to tokens already issued.
func (a *Authenticator) Authorize(token string) (*Claims, error) {
	claims, err := a.ParseToken(token)
	if err != nil {
		return nil, err
	}
	u, err := database.GetUserByUsername(claims.Subject)
	if err != nil {
		if errors.Is(err, database.ErrUserNotFound) {
			return nil, fmt.Errorf("%w: account '%s' no longer exists", ErrInvalidToken, claims.Subject)
		}
		return nil, err
	}
	claims.Role = u.Role
	return claims, nil
}

// EnsureBootstrapAdmin creates an ADMIN account when the users table is
// empty and a bootstrap password is configured.
func EnsureBootstrapAdmin(username, password string) error {
	n, err := database.CountUsers()
	if err != nil {
		return err
	}
	if n > 0 {
		return nil
	}
	if username == "" || password == "" {
		logger.Warn("No users exist and auth.bootstrap_password is empty; register a user and promote it with 'lookupdesk user promote'.")
		return nil
	}
	hash, err := hashPassword(password)
	if err != nil {
		return err
	}
	if _, err := database.CreateUser(username, hash, models.RoleAdmin); err != nil {
		return fmt.Errorf("creating bootstrap admin: %w", err)
	}
	logger.Info("Created bootstrap admin account '%s'.", username)
	return nil
}
