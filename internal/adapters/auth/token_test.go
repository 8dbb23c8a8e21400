package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"campusfest/internal/domain"
)

func testPrincipal() *domain.Principal {
	return &domain.Principal{
		UserID:           "user-123",
		Email:            "u@example.com",
		EligibilityClass: "CSE-2",
		Roles:            []string{domain.RoleOrganizer, domain.RoleParticipant},
	}
}

func TestJWT_Issue_claims(t *testing.T) {
	secret := "test-secret"
	j := NewJWT(secret)

	token, err := j.Issue(testPrincipal(), time.Hour)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	parsed, err := jwt.ParseWithClaims(token, &jwtClaims{}, func(t *jwt.Token) (any, error) {
		return []byte(secret), nil
	})
	require.NoError(t, err)
	require.True(t, parsed.Valid)
	claims, ok := parsed.Claims.(*jwtClaims)
	require.True(t, ok)
	assert.Equal(t, "user-123", claims.Subject)
	assert.Equal(t, "u@example.com", claims.Email)
	assert.Equal(t, "CSE-2", claims.EligibilityClass)
	assert.Equal(t, []string{"organizer", "participant"}, claims.Roles)
}

func TestJWT_Issue_requires_subject(t *testing.T) {
	j := NewJWT("s")
	_, err := j.Issue(&domain.Principal{}, time.Hour)
	assert.Error(t, err)
	_, err = j.Issue(nil, time.Hour)
	assert.Error(t, err)
}

func TestJWT_Verify_roundtrip(t *testing.T) {
	j := NewJWT("test-secret")
	token, err := j.Issue(testPrincipal(), time.Hour)
	require.NoError(t, err)

	p, err := j.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, testPrincipal(), p)
	assert.True(t, p.HasRole(domain.RoleOrganizer))
}

func TestJWT_Verify_rejects(t *testing.T) {
	issued := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	signer := NewJWT("test-secret")
	signer.now = func() time.Time { return issued }
	token, err := signer.Issue(testPrincipal(), time.Hour)
	require.NoError(t, err)

	t.Run("wrong secret", func(t *testing.T) {
		other := NewJWT("other-secret")
		other.now = signer.now
		_, err := other.Verify(token)
		assert.Error(t, err)
	})

	t.Run("expired", func(t *testing.T) {
		late := NewJWT("test-secret")
		late.now = func() time.Time { return issued.Add(2 * time.Hour) }
		_, err := late.Verify(token)
		assert.ErrorIs(t, err, jwt.ErrTokenExpired)
	})

	t.Run("unsigned", func(t *testing.T) {
		unsigned := jwt.NewWithClaims(jwt.SigningMethodNone, jwtClaims{
			RegisteredClaims: jwt.RegisteredClaims{
				Subject:   "user-123",
				ExpiresAt: jwt.NewNumericDate(issued.Add(time.Hour)),
			},
		})
		raw, err := unsigned.SignedString(jwt.UnsafeAllowNoneSignatureType)
		require.NoError(t, err)
		_, err = signer.Verify(raw)
		assert.Error(t, err)
	})

	t.Run("garbage", func(t *testing.T) {
		_, err := signer.Verify("not-a-token")
		assert.Error(t, err)
	})
}
