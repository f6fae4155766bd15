package auth

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/pkg/errors"
)

const issuer = "maintdesk"

// Claims are the JWT claims of a session token.
type Claims struct {
	Role     Role   `json:"role"`
	TenantID string `json:"tenant_id,omitempty"`
	jwt.RegisteredClaims
}

// Session is returned to a client after a successful login.
type Session struct {
	AccessToken string    `json:"access_token"`
	TokenType   string    `json:"token_type"`
	ExpiresAt   time.Time `json:"expires_at"`
	Principal   Principal `json:"principal"`
}

// JWTService issues and validates session tokens.
type JWTService struct {
	secretKey []byte
	ttl       time.Duration
	now       func() time.Time
}

// NewJWTService creates a token service signing with secret.
func NewJWTService(secret string, ttl time.Duration) *JWTService {
	return &JWTService{secretKey: []byte(secret), ttl: ttl, now: time.Now}
}

// Issue signs a session token for the principal.
func (s *JWTService) Issue(p Principal) (*Session, error) {
	now := s.now()
	expiresAt := now.Add(s.ttl)
	claims := &Claims{
		Role: p.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			Issuer:    issuer,
			Subject:   p.Subject,
			ID:        uuid.New().String(),
		},
	}
	if p.TenantID != nil {
		claims.TenantID = p.TenantID.String()
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secretKey)
	if err != nil {
		return nil, errors.Wrap(err, "sign session token")
	}
	return &Session{AccessToken: token, TokenType: "Bearer", ExpiresAt: expiresAt, Principal: p}, nil
}

// Validate parses a session token back into the principal it was issued for.
func (s *JWTService) Validate(tokenString string) (Principal, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.secretKey, nil
	}, jwt.WithIssuer(issuer), jwt.WithTimeFunc(s.now))
	if err != nil {
		return Principal{}, errors.Wrap(err, "invalid token")
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || !claims.Role.Valid() {
		return Principal{}, errors.New("invalid token claims")
	}

	p := Principal{Role: claims.Role, Subject: claims.Subject}
	if claims.Role == RoleTenant {
		id, err := uuid.Parse(claims.TenantID)
		if err != nil {
			return Principal{}, errors.Wrap(err, "invalid tenant in token")
		}
		p.TenantID = &id
	}
	return p, nil
}
