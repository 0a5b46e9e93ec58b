package dispatch

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// CredentialTTL is the lifetime of a session credential. The token is never
// refreshed; a session outliving it has to reconnect.
const CredentialTTL = 3600 * time.Second

var (
	ErrSigning      = errors.New("credential: signing failed")
	ErrInvalidToken = errors.New("credential: invalid token")
	ErrTokenExpired = errors.New("credential: token has expired")
)

// CredentialConfig holds the claim constants and the signing key.
type CredentialConfig struct {
	// Secret is the HS256 key shared with the server. The default is the
	// publicly known key of the go-dispatch chat example.
	Secret   string
	Issuer   string
	Audience string
}

// DefaultCredentialConfig matches what a stock go-dispatch server accepts.
func DefaultCredentialConfig() CredentialConfig {
	return CredentialConfig{
		Secret:   "a-very-secret-key", // WARNING: don't use this in production
		Issuer:   "your-app",
		Audience: "your-client-id",
	}
}

// Claims is the claim set of a session credential.
type Claims struct {
	jwt.RegisteredClaims
}

// Issuer signs and verifies session credentials.
type Issuer struct {
	cfg    CredentialConfig
	now    func() time.Time
	method jwt.SigningMethod
}

// NewIssuer creates an Issuer. now may be nil.
func NewIssuer(cfg CredentialConfig, now func() time.Time) *Issuer {
	if now == nil {
		now = time.Now
	}
	return &Issuer{cfg: cfg, now: now, method: jwt.SigningMethodHS256}
}

// Issue signs a fresh credential for subject, valid from now for CredentialTTL.
func (i *Issuer) Issue(subject string) (string, error) {
	now := i.now().Truncate(time.Second)
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    i.cfg.Issuer,
			Subject:   subject,
			Audience:  jwt.ClaimStrings{i.cfg.Audience},
			ExpiresAt: jwt.NewNumericDate(now.Add(CredentialTTL)),
			NotBefore: jwt.NewNumericDate(now),
			IssuedAt:  jwt.NewNumericDate(now),
			ID:        uuid.NewString(),
		},
	}

	token := jwt.NewWithClaims(i.method, claims)
	signed, err := token.SignedString([]byte(i.cfg.Secret))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrSigning, err)
	}
	return signed, nil
}

// Verify parses a credential the way a go-dispatch server does: HMAC only,
// time claims checked, subject required.
func (i *Issuer) Verify(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return []byte(i.cfg.Secret), nil
	}, jwt.WithTimeFunc(i.now), jwt.WithIssuer(i.cfg.Issuer), jwt.WithAudience(i.cfg.Audience))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}
	if claims.Subject == "" {
		return nil, fmt.Errorf("%w: missing sub", ErrInvalidToken)
	}
	return claims, nil
}
