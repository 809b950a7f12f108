package auth

import (
	"crypto/subtle"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrInvalidToken covers every reason a token is rejected: malformed,
// wrong signature, wrong algorithm, expired.
var ErrInvalidToken = errors.New("invalid or expired token")

// Claims is the payload of an access token.
type Claims struct {
	UserID  string `json:"user_id"`
	Email   string `json:"email"`
	Name    string `json:"name"`
	IsAdmin bool   `json:"is_admin"`
	jwt.RegisteredClaims
}

// Issuer signs and verifies access tokens with one HMAC secret.
type Issuer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewIssuer fails when no secret is configured; an empty key would sign
// tokens anyone can forge.
func NewIssuer(secret string, ttl time.Duration) (*Issuer, error) {
	if secret == "" {
		return nil, errors.New("auth: JWT secret is empty")
	}
	if ttl <= 0 {
		ttl = 7 * 24 * time.Hour
	}
	return &Issuer{secret: []byte(secret), ttl: ttl, now: time.Now}, nil
}

// GenerateToken creates a signed token for the given identity.
func (i *Issuer) GenerateToken(userID, email, name string, isAdmin bool) (string, error) {
	// 1. Build the claims, with the expiry derived from the issuer TTL.
	now := i.now()
	claims := Claims{
		UserID:  userID,
		Email:   email,
		Name:    name,
		IsAdmin: isAdmin,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(i.ttl)),
		},
	}

	// 2. Sign with HS256.
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(i.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// ValidateToken parses a token and returns its claims. Any failure is
// reported as ErrInvalidToken.
func (i *Issuer) ValidateToken(tokenString string) (*Claims, error) {
	claims := &Claims{}

	// 1. Parse, pinning the algorithm family to HMAC.
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return i.secret, nil
	}, jwt.WithExpirationRequired(), jwt.WithTimeFunc(i.now))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	// 2. A token without a subject is useless to us.
	if !token.Valid || claims.UserID == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// AdminCredentials are the two fixed secrets admin routes accept.
type AdminCredentials struct {
	ID       string
	Password string
}

// Check compares in constant time. Unset credentials never match.
func (a AdminCredentials) Check(id, password string) bool {
	if a.ID == "" || a.Password == "" {
		return false
	}
	idOK := subtle.ConstantTimeCompare([]byte(id), []byte(a.ID)) == 1
	pwOK := subtle.ConstantTimeCompare([]byte(password), []byte(a.Password)) == 1
	return idOK && pwOK
}
