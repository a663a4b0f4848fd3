package token

import (
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/helpdesk-io/apiserver/types"
)

// DefaultTTL is the token lifetime used when no TTL is configured. Expiry is
// the only invalidation mechanism; there is no server-side revocation.
const DefaultTTL = 24 * time.Hour

var (
	// ErrInvalid is returned for any token that fails verification:
	// bad signature, wrong signing method, expired, or malformed claims.
	ErrInvalid = errors.New("invalid token")
)

// Claims is the verified identity carried by a token.
type Claims struct {
	// Email is the canonical account email (the JWT subject).
	Email string
	// Role is the account role at issuance time.
	Role types.Role
}

type jwtClaims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// Issuer signs and verifies stateless bearer tokens.
type Issuer struct {
	secret []byte
	ttl    time.Duration
}

// NewIssuer constructs an Issuer with the given HMAC secret. A zero ttl
// falls back to DefaultTTL.
func NewIssuer(secret string, ttl time.Duration) *Issuer {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Issuer{secret: []byte(secret), ttl: ttl}
}

// Sign issues a signed token embedding the account email and role.
func (i *Issuer) Sign(email string, role types.Role) (string, error) {
	now := time.Now()
	claims := jwtClaims{
		Role: string(role),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   email,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(i.ttl)),
		},
	}
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return tok.SignedString(i.secret)
}

// Verify validates the signature and expiry of a raw token and extracts its
// claims. Verification is pure; no session store is consulted.
func (i *Issuer) Verify(raw string) (Claims, error) {
	parsed := jwtClaims{}
	tok, err := jwt.ParseWithClaims(raw, &parsed, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("invalid signing method")
		}
		return i.secret, nil
	})
	if err != nil || !tok.Valid {
		return Claims{}, ErrInvalid
	}
	email := strings.TrimSpace(parsed.Subject)
	if email == "" {
		return Claims{}, ErrInvalid
	}
	role := types.Role(parsed.Role)
	if !role.Valid() {
		return Claims{}, ErrInvalid
	}
	return Claims{Email: email, Role: role}, nil
}
