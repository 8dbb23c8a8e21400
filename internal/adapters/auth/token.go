package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"campusfest/internal/domain"
)

var errInvalidToken = errors.New("invalid token")

type jwtClaims struct {
	jwt.RegisteredClaims
	Email            string   `json:"email"`
	Roles            []string `json:"roles"`
	EligibilityClass string   `json:"eligibility_class,omitempty"`
}

// JWT signs and verifies HS256 bearer tokens carrying the caller's principal.
type JWT struct {
	secret []byte
	now    func() time.Time
}

// NewJWT returns a JWT issuer/verifier using the given shared secret.
func NewJWT(secret string) *JWT {
	return &JWT{secret: []byte(secret), now: time.Now}
}

var (
	_ domain.TokenIssuer   = (*JWT)(nil)
	_ domain.TokenVerifier = (*JWT)(nil)
)

func (j *JWT) Issue(p *domain.Principal, expiry time.Duration) (string, error) {
	if p == nil || p.UserID == "" {
		return "", fmt.Errorf("issue token: missing subject")
	}
	now := j.now()
	claims := jwtClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   p.UserID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(expiry)),
		},
		Email:            p.Email,
		Roles:            p.Roles,
		EligibilityClass: p.EligibilityClass,
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(j.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

func (j *JWT) Verify(token string) (*domain.Principal, error) {
	claims := &jwtClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		return j.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(j.now),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return nil, fmt.Errorf("verify token: %w", err)
	}
	if !parsed.Valid || claims.Subject == "" {
		return nil, errInvalidToken
	}
	return &domain.Principal{
		UserID:           claims.Subject,
		Email:            claims.Email,
		EligibilityClass: claims.EligibilityClass,
		Roles:            claims.Roles,
	}, nil
}
