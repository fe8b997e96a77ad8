package auth

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Verification failures. Each one maps to its own close code at the transport.
var (
	ErrMissingCredential = errors.New("missing credential")
	ErrExpiredCredential = errors.New("expired credential")
	ErrInvalidCredential = errors.New("invalid credential")
)

// Claims represents JWT claims for chat connections.
type Claims struct {
	UserID   int64  `json:"user_id,omitempty"`
	Username string `json:"username,omitempty"`
	jwt.RegisteredClaims
}

// Identity is the subject extracted from a verified token.
type Identity struct {
	UserID   int64
	Username string
}

// JWTConfig holds JWT configuration.
type JWTConfig struct {
	Secret    []byte
	Algorithm string
	Issuer    string
	Audience  string
	TTL       time.Duration
}

// GenerateToken creates a new signed token for the given user.
func GenerateToken(cfg *JWTConfig, userID int64, username string) (string, error) {
	method, err := signingMethod(cfg.Algorithm)
	if err != nil {
		return "", err
	}

	now := time.Now()
	claims := Claims{
		UserID:   userID,
		Username: username,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(userID, 10),
			Issuer:    cfg.Issuer,
			ExpiresAt: jwt.NewNumericDate(now.Add(cfg.TTL)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
	if cfg.Audience != "" {
		claims.Audience = jwt.ClaimStrings{cfg.Audience}
	}

	token := jwt.NewWithClaims(method, claims)
	return token.SignedString(cfg.Secret)
}

// Verifier validates connection tokens against a shared secret.
type Verifier struct {
	cfg    *JWTConfig
	method jwt.SigningMethod
}

// NewVerifier builds a verifier; it fails on an unsupported algorithm.
func NewVerifier(cfg *JWTConfig) (*Verifier, error) {
	method, err := signingMethod(cfg.Algorithm)
	if err != nil {
		return nil, err
	}
	return &Verifier{cfg: cfg, method: method}, nil
}

// Verify parses tokenString and returns the embedded identity.
// The error wraps ErrMissingCredential, ErrExpiredCredential or ErrInvalidCredential.
func (v *Verifier) Verify(tokenString string) (Identity, error) {
	tokenString = strings.TrimSpace(tokenString)
	if tokenString == "" {
		return Identity{}, ErrMissingCredential
	}

	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{v.method.Alg()})}
	if v.cfg.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(v.cfg.Issuer))
	}
	if v.cfg.Audience != "" {
		opts = append(opts, jwt.WithAudience(v.cfg.Audience))
	}

	claims := &Claims{}
	_, err := jwt.ParseWithClaims(tokenString, claims, func(*jwt.Token) (interface{}, error) {
		return v.cfg.Secret, nil
	}, opts...)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return Identity{}, fmt.Errorf("%w: %v", ErrExpiredCredential, err)
		}
		return Identity{}, fmt.Errorf("%w: %v", ErrInvalidCredential, err)
	}

	userID := claims.UserID
	if userID == 0 && claims.Subject != "" {
		userID, err = strconv.ParseInt(claims.Subject, 10, 64)
		if err != nil {
			return Identity{}, fmt.Errorf("%w: subject %q is not a user id", ErrInvalidCredential, claims.Subject)
		}
	}
	if userID <= 0 {
		return Identity{}, fmt.Errorf("%w: token has no subject", ErrInvalidCredential)
	}

	return Identity{UserID: userID, Username: claims.Username}, nil
}

func signingMethod(alg string) (jwt.SigningMethod, error) {
	switch strings.ToUpper(strings.TrimSpace(alg)) {
	case "", "HS256":
		return jwt.SigningMethodHS256, nil
	case "HS384":
		return jwt.SigningMethodHS384, nil
	case "HS512":
		return jwt.SigningMethodHS512, nil
	default:
		return nil, fmt.Errorf("unsupported jwt algorithm %q (use HS256/HS384/HS512)", alg)
	}
}
