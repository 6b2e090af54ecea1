package auth

import (
	"errors"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"

	"github.com/hostdesk/hosting-service/internal/domain"
)

const tokenIssuer = "hosting-service"

// ErrInvalidClaims is returned for well-signed tokens that do not name a tenant.
var ErrInvalidClaims = errors.New("invalid token claims")

// Claims is the access token payload. The role is informational; authorization
// always reloads the tenant and uses its stored role.
type Claims struct {
	TenantID string            `json:"tid"`
	Role     domain.TenantRole `json:"role"`
	jwt.RegisteredClaims
}

// TokenManager issues and verifies HS256 access tokens for tenants.
type TokenManager struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewTokenManager builds a manager. A non-positive TTL defaults to one hour.
func NewTokenManager(secret string, ttlMinutes int) *TokenManager {
	ttl := time.Hour
	if ttlMinutes > 0 {
		ttl = time.Duration(ttlMinutes) * time.Minute
	}
	return &TokenManager{secret: []byte(secret), ttl: ttl, now: time.Now}
}

// GenerateToken signs a token for the tenant and returns it with its expiry.
func (tm *TokenManager) GenerateToken(tenantID string, role domain.TenantRole) (string, time.Time, error) {
	issued := tm.now()
	expires := issued.Add(tm.ttl)
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		TenantID: tenantID,
		Role:     role,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    tokenIssuer,
			Subject:   tenantID,
			IssuedAt:  jwt.NewNumericDate(issued),
			ExpiresAt: jwt.NewNumericDate(expires),
		},
	}).SignedString(tm.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expires, nil
}

// ParseToken verifies signature, issuer and expiry and returns the claims.
func (tm *TokenManager) ParseToken(raw string) (*Claims, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(raw, claims,
		func(*jwt.Token) (any, error) { return tm.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(tokenIssuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(tm.now),
	)
	if err != nil {
		return nil, err
	}
	if claims.TenantID == "" {
		return nil, ErrInvalidClaims
	}
	return claims, nil
}
