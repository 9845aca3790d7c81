package auth

import (
	"context"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIssueAndVerify(t *testing.T) {
	v := NewVerifier("secret")

	token, err := v.Issue(Session{UserID: "user-1", Email: "u@example.com"}, time.Hour)
	require.NoError(t, err)

	session, err := v.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, Session{UserID: "user-1", Email: "u@example.com"}, session)
}

func TestVerifyRejects(t *testing.T) {
	v := NewVerifier("secret")
	other := NewVerifier("other-secret")

	wrongKey, err := other.Issue(Session{UserID: "user-1"}, time.Hour)
	require.NoError(t, err)

	expired, err := v.Issue(Session{UserID: "user-1"}, -time.Minute)
	require.NoError(t, err)

	noSubject, err := v.Issue(Session{}, time.Hour)
	require.NoError(t, err)

	none, err := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.RegisteredClaims{Subject: "user-1"}).
		SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	cases := map[string]string{
		"wrong key":  wrongKey,
		"expired":    expired,
		"no subject": noSubject,
		"alg none":   none,
		"garbage":    "not.a.token",
	}
	for name, token := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := v.Verify(token)
			assert.ErrorIs(t, err, ErrInvalidToken)
		})
	}

	_, err = v.Verify("")
	assert.ErrorIs(t, err, ErrMissingToken)
}

func TestBearerToken(t *testing.T) {
	r := httptest.NewRequest("GET", "/", nil)
	assert.Empty(t, BearerToken(r))

	r.Header.Set("Authorization", "Bearer abc.def")
	assert.Equal(t, "abc.def", BearerToken(r))

	r.Header.Set("Authorization", "bearer  xyz ")
	assert.Equal(t, "xyz", BearerToken(r))

	r.Header.Set("Authorization", "Basic Zm9vOmJhcg==")
	assert.Empty(t, BearerToken(r))
}

func TestSessionContext(t *testing.T) {
	_, ok := SessionFrom(context.Background())
	assert.False(t, ok)

	ctx := WithSession(context.Background(), Session{UserID: "u"})
	session, ok := SessionFrom(ctx)
	require.True(t, ok)
	assert.Equal(t, "u", session.UserID)
}
