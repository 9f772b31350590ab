package auth

import (
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Claims are the JWT claims carried by access tokens issued by the identity provider.
type Claims struct {
	Role         string  `json:"role"`
	DepartmentID *string `json:"department,omitempty"`
	CollegeID    *string `json:"college,omitempty"`
	jwt.RegisteredClaims
}

// TokenParser verifies HS256 bearer tokens and turns them into principals.
type TokenParser struct {
	secret []byte
	issuer string
}

// NewTokenParser creates a TokenParser. An empty issuer disables issuer validation.
func NewTokenParser(secret, issuer string) *TokenParser {
	return &TokenParser{secret: []byte(secret), issuer: issuer}
}

// ParseAuthorizationHeader extracts and verifies the token in an "Authorization: Bearer ..." header.
func (tp *TokenParser) ParseAuthorizationHeader(header string) (*Principal, error) {
	scheme, token, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "" {
		return nil, fmt.Errorf("authorization header must use the Bearer scheme")
	}
	return tp.Parse(strings.TrimSpace(token))
}

// Parse verifies a raw token string.
func (tp *TokenParser) Parse(raw string) (*Principal, error) {
	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})}
	if tp.issuer != "" {
		opts = append(opts, jwt.WithIssuer(tp.issuer))
	}

	claims := &Claims{}
	_, err := jwt.ParseWithClaims(raw, claims, func(*jwt.Token) (any, error) {
		return tp.secret, nil
	}, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to parse token: %w", err)
	}

	if claims.Subject == "" {
		return nil, fmt.Errorf("token has no subject")
	}
	if claims.Role == "" {
		return nil, fmt.Errorf("token has no role")
	}

	return &Principal{
		ID:           claims.Subject,
		Role:         claims.Role,
		DepartmentID: nonEmpty(claims.DepartmentID),
		CollegeID:    nonEmpty(claims.CollegeID),
	}, nil
}

// Issue signs a token for the principal. Used by the seed command and tests;
// production tokens come from the identity provider.
func (tp *TokenParser) Issue(p Principal, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		Role:         p.Role,
		DepartmentID: p.DepartmentID,
		CollegeID:    p.CollegeID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   p.ID,
			Issuer:    tp.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(tp.secret)
}

func nonEmpty(s *string) *string {
	if s == nil || *s == "" {
		return nil
	}
	return s
}
