// Package token issues and verifies the HS256 bearer tokens that identify callers.
package token

import (
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/golang-jwt/jwt/v5"
)

// ErrInvalid is returned for malformed, expired or wrongly signed tokens.
var ErrInvalid = errors.New("invalid token")

const issuer = "19queue"

// Claims identify a caller by email. Name and Picture seed the profile on first use.
type Claims struct {
	Email   string `json:"email"`
	Name    string `json:"name,omitempty"`
	Picture string `json:"picture,omitempty"`
	jwt.RegisteredClaims
}

// Identity is the caller a token names.
type Identity struct {
	Email      string
	Name       string
	Image      string
	ExternalID string
}

// Signer issues and verifies tokens with a shared secret.
type Signer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewSigner creates a signer. A zero ttl issues tokens that never expire.
func NewSigner(secret string, ttl time.Duration) (*Signer, error) {
	if secret == "" {
		return nil, errors.New("jwt secret is required")
	}
	return &Signer{secret: []byte(secret), ttl: ttl, now: time.Now}, nil
}

// Issue mints a token for id.
func (s *Signer) Issue(id Identity) (string, error) {
	email := strings.ToLower(strings.TrimSpace(id.Email))
	if email == "" {
		return "", errors.New("email is required")
	}

	now := s.now()
	claims := &Claims{
		Email:   email,
		Name:    id.Name,
		Picture: id.Image,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:   issuer,
			Subject:  id.ExternalID,
			IssuedAt: jwt.NewNumericDate(now),
		},
	}
	if s.ttl > 0 {
		claims.ExpiresAt = jwt.NewNumericDate(now.Add(s.ttl))
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", errors.Wrap(err, "failed to sign token")
	}
	return signed, nil
}

// Verify parses raw and returns the identity it carries.
func (s *Signer) Verify(raw string) (*Identity, error) {
	claims := &Claims{}
	tok, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return nil, errors.Mark(errors.Wrap(err, "token rejected"), ErrInvalid)
	}
	if !tok.Valid {
		return nil, ErrInvalid
	}
	if claims.Email == "" {
		return nil, errors.Wrap(ErrInvalid, "token has no email")
	}
	return &Identity{
		Email:      claims.Email,
		Name:       claims.Name,
		Image:      claims.Picture,
		ExternalID: claims.Subject,
	}, nil
}

// FromHeader extracts the token from an "Authorization: Bearer <token>" value.
func FromHeader(value string) (string, bool) {
	parts := strings.SplitN(value, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", false
	}
	raw := strings.TrimSpace(parts[1])
	return raw, raw != ""
}
