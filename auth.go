package main

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	adminTokenExpiry = 30 * 24 * time.Hour
	adminIssuer      = "apexfire-server"
	adminRole        = "admin"
)

var ErrUnauthorized = errors.New("unauthorized")

// Auth issues and checks bearer tokens for the ops API
type Auth struct {
	jwtSecret []byte
}

// NewAuth uses the given secret, or loads/creates one in the database
func NewAuth(db *DB, secret string) *Auth {
	if secret != "" {
		return &Auth{jwtSecret: []byte(secret)}
	}
	return &Auth{jwtSecret: loadOrCreateSecret(db)}
}

// loadOrCreateSecret loads the JWT secret from the database, or generates
// and persists a new one if none exists. Without a database the secret only
// lives as long as the process.
func loadOrCreateSecret(db *DB) []byte {
	if db != nil {
		if h := db.GetSetting("jwt_secret"); h != "" {
			if b, err := hex.DecodeString(h); err == nil && len(b) == 32 {
				return b
			}
		}
	}
	secret := make([]byte, 32)
	if _, err := rand.Read(secret); err != nil {
		panic("failed to generate JWT secret: " + err.Error())
	}
	if db != nil {
		if err := db.SetSetting("jwt_secret", hex.EncodeToString(secret)); err != nil {
			slog.Warn("could not persist JWT secret", "err", err)
		}
	}
	return secret
}

// IssueToken signs an admin token for subject
func (a *Auth) IssueToken(subject string) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"sub":  subject,
		"role": adminRole,
		"iss":  adminIssuer,
		"iat":  now.Unix(),
		"exp":  now.Add(adminTokenExpiry).Unix(),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.jwtSecret)
}

// ValidateToken checks an admin token and returns its subject
func (a *Auth) ValidateToken(tokenStr string) (string, error) {
	token, err := jwt.Parse(tokenStr, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return a.jwtSecret, nil
	}, jwt.WithIssuer(adminIssuer), jwt.WithExpirationRequired())
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnauthorized, err)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return "", ErrUnauthorized
	}
	if role, _ := claims["role"].(string); role != adminRole {
		return "", fmt.Errorf("%w: role %q", ErrUnauthorized, role)
	}
	sub, _ := claims["sub"].(string)
	return sub, nil
}

// RequireAdmin wraps a handler so it only runs with a valid bearer token
func (a *Auth) RequireAdmin(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		tokenStr, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || tokenStr == "" {
			http.Error(w, "missing bearer token", http.StatusUnauthorized)
			return
		}
		if _, err := a.ValidateToken(tokenStr); err != nil {
			http.Error(w, "invalid token", http.StatusUnauthorized)
			return
		}
		next(w, r)
	}
}
