// Package auth guards resource routes with bearer JWTs.
package auth

import (
	"context"
	"crypto/ecdsa"
	"crypto/rsa"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"ResteasyAPI/internal/apierr"
	"ResteasyAPI/internal/config"
	"ResteasyAPI/internal/logger"

	"github.com/bytedance/sonic"
	"github.com/golang-jwt/jwt"
	"github.com/pkg/errors"
)

type contextKey string

const claimsContextKey contextKey = "jwt_claims"

type JWTValidator struct {
	cfg       config.JWTConfig
	key       any
	parser    *jwt.Parser
	clockFunc func() time.Time
}

func NewJWTValidator(cfg config.JWTConfig) (*JWTValidator, error) {
	if strings.TrimSpace(cfg.Issuer) == "" {
		return nil, errors.New("jwt issuer is required")
	}
	if strings.TrimSpace(cfg.Audience) == "" {
		return nil, errors.New("jwt audience is required")
	}
	alg := strings.ToUpper(strings.TrimSpace(cfg.ValidationType))
	if alg == "" {
		return nil, errors.New("jwt validation type is required")
	}

	v := &JWTValidator{
		cfg: cfg,
		parser: &jwt.Parser{
			ValidMethods:         []string{alg},
			UseJSONNumber:        true,
			SkipClaimsValidation: true,
		},
		clockFunc: time.Now,
	}

	switch alg {
	case "HS256":
		if cfg.HMACSecret == "" {
			return nil, errors.New("jwt hmac secret is required for HS256")
		}
		v.key = []byte(cfg.HMACSecret)
	case "RS256":
		pem, err := loadPublicKey(cfg)
		if err != nil {
			return nil, err
		}
		key, err := jwt.ParseRSAPublicKeyFromPEM(pem)
		if err != nil {
			return nil, errors.Wrap(err, "jwt public key is not RSA")
		}
		v.key = key
	case "ES256":
		pem, err := loadPublicKey(cfg)
		if err != nil {
			return nil, err
		}
		key, err := jwt.ParseECPublicKeyFromPEM(pem)
		if err != nil {
			return nil, errors.Wrap(err, "jwt public key is not ECDSA")
		}
		v.key = key
	default:
		return nil, fmt.Errorf("unsupported jwt validation type: %s", cfg.ValidationType)
	}

	return v, nil
}

// ValidateToken checks the signature and the iss, aud, exp, nbf and iat
// claims, allowing ClockSkewSec of drift.
func (v *JWTValidator) ValidateToken(token string) (map[string]any, error) {
	claims := jwt.MapClaims{}
	if _, err := v.parser.ParseWithClaims(token, claims, v.keyFunc); err != nil {
		return nil, errors.Wrap(err, "invalid jwt")
	}
	if err := v.validateClaims(claims); err != nil {
		return nil, err
	}
	return map[string]any(claims), nil
}

func (v *JWTValidator) keyFunc(t *jwt.Token) (any, error) {
	switch v.key.(type) {
	case []byte:
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected jwt alg: %v", t.Header["alg"])
		}
	case *rsa.PublicKey:
		if _, ok := t.Method.(*jwt.SigningMethodRSA); !ok {
			return nil, fmt.Errorf("unexpected jwt alg: %v", t.Header["alg"])
		}
	case *ecdsa.PublicKey:
		if _, ok := t.Method.(*jwt.SigningMethodECDSA); !ok {
			return nil, fmt.Errorf("unexpected jwt alg: %v", t.Header["alg"])
		}
	}
	return v.key, nil
}

func (v *JWTValidator) validateClaims(claims jwt.MapClaims) error {
	now := v.clockFunc().Unix()
	skew := v.cfg.ClockSkewSec
	if skew < 0 {
		skew = 0
	}

	if !claims.VerifyIssuer(v.cfg.Issuer, true) {
		return errors.New("invalid jwt issuer")
	}
	if !claims.VerifyAudience(v.cfg.Audience, true) {
		return errors.New("invalid jwt audience")
	}
	if !claims.VerifyExpiresAt(now-skew, true) {
		return errors.New("jwt is expired")
	}
	if !claims.VerifyNotBefore(now+skew, true) {
		return errors.New("jwt is not valid yet")
	}
	if !claims.VerifyIssuedAt(now+skew, true) {
		return errors.New("jwt issued in the future")
	}
	return nil
}

// Middleware rejects requests without a valid bearer token with 401 and
// stores the claims of accepted ones in the request context.
func (v *JWTValidator) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw := r.Header.Get("Authorization")
		token, ok := strings.CutPrefix(raw, "Bearer ")
		if !ok || strings.TrimSpace(token) == "" {
			unauthorized(w, r, "missing bearer token")
			return
		}
		claims, err := v.ValidateToken(strings.TrimSpace(token))
		if err != nil {
			unauthorized(w, r, err.Error())
			return
		}
		next.ServeHTTP(w, r.WithContext(WithClaims(r.Context(), claims)))
	})
}

func unauthorized(w http.ResponseWriter, r *http.Request, detail string) {
	logger.Warn("auth_failed", map[string]any{
		"method": r.Method,
		"path":   r.URL.Path,
		"error":  detail,
	})
	body, _ := sonic.Marshal(apierr.Unauthorized("Unauthorized", "%s", detail).Envelope())
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("WWW-Authenticate", `Bearer realm="api"`)
	w.WriteHeader(http.StatusUnauthorized)
	_, _ = w.Write(body)
}

func WithClaims(ctx context.Context, claims map[string]any) context.Context {
	return context.WithValue(ctx, claimsContextKey, claims)
}

func ClaimsFromContext(ctx context.Context) (map[string]any, bool) {
	claims, ok := ctx.Value(claimsContextKey).(map[string]any)
	return claims, ok
}

func loadPublicKey(cfg config.JWTConfig) ([]byte, error) {
	keyPEM := strings.TrimSpace(cfg.PublicKeyPEM)
	if keyPEM == "" && strings.TrimSpace(cfg.PublicKeyPath) != "" {
		data, err := os.ReadFile(cfg.PublicKeyPath)
		if err != nil {
			return nil, errors.Wrap(err, "read jwt public key")
		}
		keyPEM = string(data)
	}
	if keyPEM == "" {
		return nil, errors.New("jwt public key is required")
	}
	return []byte(keyPEM), nil
}
