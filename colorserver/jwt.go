// Copyright 2025 Toly Pochkin
// SPDX-License-Identifier: Apache-2.0

package colorserver

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/mobiletoly/go-colorsync/internal/auth"
)

const (
	tokenIssuer = "go-colorsync"
	clockLeeway = 5 * time.Second
)

// ErrInvalidToken wraps every token validation failure
var ErrInvalidToken = errors.New("invalid token")

// JWTAuth issues and verifies HS256 bearer tokens
type JWTAuth struct {
	secret []byte
	parser *jwt.Parser
	Logger *slog.Logger
}

// NewJWTAuth creates an authenticator for secret
func NewJWTAuth(secret string) *JWTAuth {
	return &JWTAuth{
		secret: []byte(secret),
		parser: jwt.NewParser(
			jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
			jwt.WithIssuer(tokenIssuer),
			jwt.WithExpirationRequired(),
			jwt.WithLeeway(clockLeeway),
		),
		Logger: slog.Default(),
	}
}

// JWTClaims carries the user in 'sub' and the device in 'did'
type JWTClaims struct {
	DeviceID string `json:"did"`
	jwt.RegisteredClaims
}

// GenerateToken signs a token for userID on deviceID valid for ttl
func (j *JWTAuth) GenerateToken(userID, deviceID string, ttl time.Duration) (string, error) {
	now := time.Now()
	return jwt.NewWithClaims(jwt.SigningMethodHS256, &JWTClaims{
		DeviceID: deviceID,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    tokenIssuer,
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}).SignedString(j.secret)
}

// ValidateToken verifies signature, issuer and expiry and requires both sub and did
func (j *JWTAuth) ValidateToken(tokenString string) (*JWTClaims, error) {
	claims := &JWTClaims{}
	if _, err := j.parser.ParseWithClaims(tokenString, claims, j.key); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}
	switch {
	case claims.Subject == "":
		return nil, fmt.Errorf("%w: missing sub", ErrInvalidToken)
	case claims.DeviceID == "":
		return nil, fmt.Errorf("%w: missing did", ErrInvalidToken)
	}
	return claims, nil
}

func (j *JWTAuth) key(*jwt.Token) (any, error) {
	return j.secret, nil
}

// Middleware rejects requests without a valid bearer token and stores the
// caller identity in the request context
func (j *JWTAuth) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
		if !ok || strings.TrimSpace(raw) == "" {
			w.Header().Set("WWW-Authenticate", `Bearer realm="colorsync"`)
			writeErrorResponse(w, http.StatusUnauthorized, CodeAuthenticationFailed, "bearer token required")
			return
		}

		claims, err := j.ValidateToken(strings.TrimSpace(raw))
		if err != nil {
			j.Logger.Warn("Rejected request token", "path", r.URL.Path, "error", err)
			w.Header().Set("WWW-Authenticate", `Bearer realm="colorsync", error="invalid_token"`)
			writeErrorResponse(w, http.StatusUnauthorized, CodeAuthenticationFailed, "invalid token")
			return
		}

		ctx := auth.WithIdentity(r.Context(), auth.Identity{UserID: claims.Subject, DeviceID: claims.DeviceID})
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
