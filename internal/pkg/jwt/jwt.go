package jwt

import (
	"time"

	"github.com/go-chi/jwtauth/v5"
	"github.com/jonboulle/clockwork"
	"github.com/lestrrat-go/jwx/v2/jwt"
)

const (
	TokenTypeAccess = "access"
	TokenTypeSSE    = "sse"

	sseTokenTTL    = 5 * time.Minute
	tokenClockSkew = 30 * time.Second
)

// AccessClaims identifies the caller of the payroll API.
type AccessClaims struct {
	UserID    string
	CompanyID string
	IsAdmin   bool
}

type Service interface {
	GenerateAccessToken(claims AccessClaims) (token string, expiresAt int64, err error)
	GenerateSSEToken(userID string) (token string, expiresIn int, err error)
	ValidateSSEToken(tokenString string) (userID string, err error)
	JWTAuth() *jwtauth.JWTAuth
}

type JWTService struct {
	accessTokenTTL time.Duration
	tokenAuth      *jwtauth.JWTAuth
	clock          clockwork.Clock
}

func (j *JWTService) JWTAuth() *jwtauth.JWTAuth {
	return j.tokenAuth
}

// NewJWTService verifies HS256 tokens signed with secretKey. Tokens are
// issued by the identity service; GenerateAccessToken exists for tooling and tests.
func NewJWTService(secretKey string, accessTokenTTL time.Duration, clock clockwork.Clock) Service {
	if accessTokenTTL <= 0 {
		accessTokenTTL = 15 * time.Minute
	}
	return &JWTService{
		accessTokenTTL: accessTokenTTL,
		tokenAuth:      jwtauth.New("HS256", []byte(secretKey), nil, jwt.WithAcceptableSkew(tokenClockSkew)),
		clock:          clock,
	}
}

func (j *JWTService) GenerateAccessToken(claims AccessClaims) (token string, expiresAt int64, err error) {
	expiresAt = j.clock.Now().Add(j.accessTokenTTL).Unix()

	_, tokenString, err := j.tokenAuth.Encode(map[string]interface{}{
		"user_id":    claims.UserID,
		"company_id": claims.CompanyID,
		"is_admin":   claims.IsAdmin,
		"type":       TokenTypeAccess,
		"exp":        expiresAt,
	})
	return tokenString, expiresAt, err
}

// GenerateSSEToken generates a short-lived token for SSE connections
func (j *JWTService) GenerateSSEToken(userID string) (token string, expiresIn int, err error) {
	expiresAt := j.clock.Now().Add(sseTokenTTL).Unix()

	_, tokenString, err := j.tokenAuth.Encode(map[string]interface{}{
		"user_id": userID,
		"type":    TokenTypeSSE,
		"exp":     expiresAt,
	})
	if err != nil {
		return "", 0, err
	}

	return tokenString, int(sseTokenTTL.Seconds()), nil
}

// ValidateSSEToken validates an SSE token and returns the user ID
func (j *JWTService) ValidateSSEToken(tokenString string) (userID string, err error) {
	token, err := j.tokenAuth.Decode(tokenString)
	if err != nil {
		return "", err
	}

	// Decode only verifies the signature; exp is checked here.
	if err := jwt.Validate(token,
		jwt.WithAcceptableSkew(tokenClockSkew),
		jwt.WithClock(jwt.ClockFunc(j.clock.Now)),
	); err != nil {
		return "", err
	}

	tokenType, ok := token.Get("type")
	if !ok || tokenType != TokenTypeSSE {
		return "", jwt.ErrInvalidJWT()
	}

	userIDVal, ok := token.Get("user_id")
	if !ok {
		return "", jwt.ErrInvalidJWT()
	}

	userID, ok = userIDVal.(string)
	if !ok || userID == "" {
		return "", jwt.ErrInvalidJWT()
	}

	return userID, nil
}
