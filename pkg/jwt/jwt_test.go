package jwt_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	gojwt "github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/restauth/pkg/jwt"
)

var signingKey = []byte("0123456789abcdef0123456789abcdef")

type customClaims struct {
	gojwt.RegisteredClaims
	Name string `json:"name,omitempty"`
}

func TestNew(t *testing.T) {
	t.Parallel()

	t.Run("with valid signing key", func(t *testing.T) {
		t.Parallel()
		service, err := jwt.New(signingKey)
		require.NoError(t, err)
		require.NotNil(t, service)
	})

	t.Run("with empty signing key", func(t *testing.T) {
		t.Parallel()
		service, err := jwt.NewFromString("")
		require.ErrorIs(t, err, jwt.ErrMissingSigningKey)
		require.Nil(t, service)
	})
}

func TestGenerateAndParse(t *testing.T) {
	t.Parallel()

	service, err := jwt.New(signingKey)
	require.NoError(t, err)

	token, err := service.Generate(customClaims{
		RegisteredClaims: gojwt.RegisteredClaims{
			Subject:   "user123",
			ExpiresAt: gojwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
		Name: "Jane",
	})
	require.NoError(t, err)

	var parsed customClaims
	require.NoError(t, service.Parse(token, &parsed))
	assert.Equal(t, "user123", parsed.Subject)
	assert.Equal(t, "Jane", parsed.Name)

	_, err = service.Generate(nil)
	assert.ErrorIs(t, err, jwt.ErrMissingClaims)
}

func TestIssueAndVerify(t *testing.T) {
	t.Parallel()

	now := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	service, err := jwt.New(signingKey,
		jwt.WithIssuer("restauth"),
		jwt.WithAudience("api"),
		jwt.WithClock(func() time.Time { return now }),
	)
	require.NoError(t, err)

	access, exp, err := service.Issue("user-1", jwt.AccessToken, 15*time.Minute)
	require.NoError(t, err)
	assert.Equal(t, now.Add(15*time.Minute), exp)

	claims, err := service.Verify(access, jwt.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.Subject)
	assert.Equal(t, "restauth", claims.Issuer)
	assert.NotEmpty(t, claims.ID)

	_, err = service.Verify(access, jwt.RefreshToken)
	assert.ErrorIs(t, err, jwt.ErrWrongTokenType)

	_, _, err = service.Issue("", jwt.AccessToken, time.Minute)
	assert.ErrorIs(t, err, jwt.ErrInvalidClaims)
}

func TestVerify_Failures(t *testing.T) {
	t.Parallel()

	now := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }
	service, err := jwt.New(signingKey, jwt.WithIssuer("restauth"), jwt.WithClock(clock))
	require.NoError(t, err)

	valid, _, err := service.Issue("user-1", jwt.AccessToken, time.Minute)
	require.NoError(t, err)

	t.Run("expired", func(t *testing.T) {
		t.Parallel()
		later, err := jwt.New(signingKey, jwt.WithIssuer("restauth"),
			jwt.WithClock(func() time.Time { return now.Add(2 * time.Minute) }))
		require.NoError(t, err)

		_, err = later.Verify(valid, jwt.AccessToken)
		assert.ErrorIs(t, err, jwt.ErrExpiredToken)
	})

	t.Run("other key", func(t *testing.T) {
		t.Parallel()
		other, err := jwt.NewFromString("another-signing-key-another-key!", jwt.WithIssuer("restauth"), jwt.WithClock(clock))
		require.NoError(t, err)

		_, err = other.Verify(valid, jwt.AccessToken)
		assert.ErrorIs(t, err, jwt.ErrInvalidSignature)
	})

	t.Run("other issuer", func(t *testing.T) {
		t.Parallel()
		other, err := jwt.New(signingKey, jwt.WithIssuer("someone-else"), jwt.WithClock(clock))
		require.NoError(t, err)

		_, err = other.Verify(valid, jwt.AccessToken)
		assert.ErrorIs(t, err, jwt.ErrInvalidToken)
	})

	t.Run("HS384", func(t *testing.T) {
		t.Parallel()
		token, err := gojwt.NewWithClaims(gojwt.SigningMethodHS384, jwt.Claims{
			RegisteredClaims: gojwt.RegisteredClaims{Subject: "user-1", Issuer: "restauth"},
			TokenType:        jwt.AccessToken,
		}).SignedString(signingKey)
		require.NoError(t, err)

		_, err = service.Verify(token, jwt.AccessToken)
		assert.ErrorIs(t, err, jwt.ErrUnexpectedSigningMethod)
	})

	t.Run("none algorithm", func(t *testing.T) {
		t.Parallel()
		token, err := gojwt.NewWithClaims(gojwt.SigningMethodNone, jwt.Claims{
			RegisteredClaims: gojwt.RegisteredClaims{Subject: "user-1", Issuer: "restauth"},
			TokenType:        jwt.AccessToken,
		}).SignedString(gojwt.UnsafeAllowNoneSignatureType)
		require.NoError(t, err)

		_, err = service.Verify(token, jwt.AccessToken)
		assert.ErrorIs(t, err, jwt.ErrUnexpectedSigningMethod)
	})

	t.Run("garbage", func(t *testing.T) {
		t.Parallel()
		_, err := service.Verify("not.a.jwt", jwt.AccessToken)
		assert.ErrorIs(t, err, jwt.ErrInvalidToken)
	})
}

func TestExtractors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		extractor jwt.TokenExtractorFunc
		setup     func(r *http.Request)
		want      string
		wantErr   bool
	}{
		{
			name:      "bearer",
			extractor: jwt.BearerTokenExtractor,
			setup:     func(r *http.Request) { r.Header.Set("Authorization", "Bearer abc") },
			want:      "abc",
		},
		{
			name:      "bearer lower-case scheme",
			extractor: jwt.BearerTokenExtractor,
			setup:     func(r *http.Request) { r.Header.Set("Authorization", "bearer abc") },
			want:      "abc",
		},
		{
			name:      "wrong scheme",
			extractor: jwt.BearerTokenExtractor,
			setup:     func(r *http.Request) { r.Header.Set("Authorization", "Token abc") },
			wantErr:   true,
		},
		{
			name:      "token scheme",
			extractor: jwt.SchemeTokenExtractor("Token"),
			setup:     func(r *http.Request) { r.Header.Set("Authorization", "Token abc") },
			want:      "abc",
		},
		{
			name:      "missing header",
			extractor: jwt.BearerTokenExtractor,
			setup:     func(*http.Request) {},
			wantErr:   true,
		},
		{
			name:      "empty token",
			extractor: jwt.BearerTokenExtractor,
			setup:     func(r *http.Request) { r.Header.Set("Authorization", "Bearer ") },
			wantErr:   true,
		},
		{
			name:      "cookie",
			extractor: jwt.CookieTokenExtractor("jwt-auth"),
			setup:     func(r *http.Request) { r.AddCookie(&http.Cookie{Name: "jwt-auth", Value: "abc"}) },
			want:      "abc",
		},
		{
			name:      "first of falls through to cookie",
			extractor: jwt.FirstOf(jwt.BearerTokenExtractor, jwt.CookieTokenExtractor("jwt-auth")),
			setup:     func(r *http.Request) { r.AddCookie(&http.Cookie{Name: "jwt-auth", Value: "xyz"}) },
			want:      "xyz",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			r := httptest.NewRequest(http.MethodGet, "/", nil)
			tt.setup(r)

			got, err := tt.extractor(r)
			if tt.wantErr {
				assert.ErrorIs(t, err, jwt.ErrInvalidToken)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
