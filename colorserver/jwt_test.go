package colorserver

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/mobiletoly/go-colorsync/internal/auth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func signClaims(t *testing.T, method jwt.SigningMethod, secret string, claims *JWTClaims) string {
	t.Helper()
	s, err := jwt.NewWithClaims(method, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return s
}

func validClaims(sub, did string) *JWTClaims {
	return &JWTClaims{
		DeviceID: did,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    tokenIssuer,
			Subject:   sub,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
}

func TestJWTAuth_GenerateAndValidate(t *testing.T) {
	a := NewJWTAuth("test-secret")

	token, err := a.GenerateToken("user-123", "device-456", time.Hour)
	require.NoError(t, err)

	claims, err := a.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "user-123", claims.Subject)
	assert.Equal(t, "device-456", claims.DeviceID)
	assert.Equal(t, tokenIssuer, claims.Issuer)
	require.NotNil(t, claims.ExpiresAt)
	assert.WithinDuration(t, time.Now().Add(time.Hour), claims.ExpiresAt.Time, 2*time.Second)
}

func TestJWTAuth_ValidateRejects(t *testing.T) {
	const secret = "test-secret"
	a := NewJWTAuth(secret)

	expired, err := a.GenerateToken("user", "device", -time.Minute)
	require.NoError(t, err)
	otherSecret, err := NewJWTAuth("other-secret").GenerateToken("user", "device", time.Hour)
	require.NoError(t, err)

	noExpiry := validClaims("user", "device")
	noExpiry.ExpiresAt = nil
	foreign := validClaims("user", "device")
	foreign.Issuer = "someone-else"

	tests := []struct {
		name  string
		token string
	}{
		{"empty", ""},
		{"garbage", "not.a.jwt"},
		{"header only", "eyJhbGciOiJIUzI1NiIsInR5cCI6IkpXVCJ9"},
		{"expired", expired},
		{"wrong secret", otherSecret},
		{"missing sub", signClaims(t, jwt.SigningMethodHS256, secret, validClaims("", "device"))},
		{"missing did", signClaims(t, jwt.SigningMethodHS256, secret, validClaims("user", ""))},
		{"no expiry", signClaims(t, jwt.SigningMethodHS256, secret, noExpiry)},
		{"foreign issuer", signClaims(t, jwt.SigningMethodHS256, secret, foreign)},
		{"other algorithm", signClaims(t, jwt.SigningMethodHS512, secret, validClaims("user", "device"))},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := a.ValidateToken(tt.token)
			require.ErrorIs(t, err, ErrInvalidToken)
		})
	}
}

func TestJWTAuth_Middleware(t *testing.T) {
	a := NewJWTAuth("test-secret")
	token, err := a.GenerateToken("user-1", "device-1", time.Hour)
	require.NoError(t, err)

	var got auth.Identity
	handler := a.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, _ = auth.FromContext(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}))

	tests := []struct {
		name   string
		header string
		status int
	}{
		{"no header", "", http.StatusUnauthorized},
		{"basic scheme", "Basic abc", http.StatusUnauthorized},
		{"empty bearer", "Bearer ", http.StatusUnauthorized},
		{"bad token", "Bearer nope", http.StatusUnauthorized},
		{"valid", "Bearer " + token, http.StatusNoContent},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)
			require.Equal(t, tt.status, rec.Code)
			if tt.status == http.StatusUnauthorized {
				assert.Contains(t, rec.Header().Get("WWW-Authenticate"), "Bearer")
				assert.Contains(t, rec.Body.String(), CodeAuthenticationFailed)
			}
		})
	}

	assert.Equal(t, auth.Identity{UserID: "user-1", DeviceID: "device-1"}, got)
}
