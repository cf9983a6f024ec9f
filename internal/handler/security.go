package handler

import (
	"context"
	"crypto/subtle"
	"encoding/hex"
	"net/http"
	"strings"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	"github.com/xenking/storefront-api/internal/domain/auth"
	"github.com/xenking/storefront-api/internal/domain/user"
)

// APIKeyFinder looks up stored API keys by their HMAC hash.
type APIKeyFinder interface {
	FindByHash(ctx context.Context, hash string) (*auth.APIKeyInfo, error)
}

// AuthConfig holds the secrets used to verify credentials. An empty JWTSecret
// disables bearer tokens.
type AuthConfig struct {
	APIKeyPepper []byte
	JWTSecret    []byte
}

// Authenticator resolves request credentials to an auth.Identity. It accepts
// an api_key header or an HS256 bearer token whose subject is the user id.
type Authenticator struct {
	apikeys APIKeyFinder
	users   UserGetter
	cfg     AuthConfig
}

// NewAuthenticator creates an Authenticator.
func NewAuthenticator(apikeys APIKeyFinder, users UserGetter, cfg AuthConfig) *Authenticator {
	return &Authenticator{apikeys: apikeys, users: users, cfg: cfg}
}

// Authenticate returns the identity behind r. Every failure, including an
// unknown user, is auth.ErrUnauthenticated so callers cannot enumerate accounts.
func (a *Authenticator) Authenticate(r *http.Request) (auth.Identity, error) {
	ctx := r.Context()

	var (
		userID string
		err    error
	)
	switch {
	case r.Header.Get("api_key") != "":
		userID, err = a.apiKeyUser(ctx, r.Header.Get("api_key"))
	case bearerToken(r) != "":
		userID, err = a.tokenUser(bearerToken(r))
	default:
		return auth.Identity{}, auth.ErrUnauthenticated
	}
	if err != nil {
		zctx.From(ctx).Debug("Credential rejected", zap.Error(err))
		return auth.Identity{}, auth.ErrUnauthenticated
	}

	u, err := a.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return auth.Identity{}, auth.ErrUnauthenticated
		}
		return auth.Identity{}, errors.Wrap(err, "load user")
	}
	return auth.Identity{UserID: u.ID, Role: u.Role}, nil
}

// apiKeyUser hashes the key with the pepper, looks it up and compares the
// stored hash in constant time.
func (a *Authenticator) apiKeyUser(ctx context.Context, key string) (string, error) {
	hexHash := auth.HashAPIKey(a.cfg.APIKeyPepper, key)

	info, err := a.apikeys.FindByHash(ctx, hexHash)
	if err != nil {
		return "", errors.Wrap(err, "find api key")
	}

	want, err := hex.DecodeString(hexHash)
	if err != nil {
		return "", errors.Wrap(err, "decode computed hash")
	}
	stored, err := hex.DecodeString(info.KeyHash)
	if err != nil {
		return "", errors.Wrap(err, "decode stored hash")
	}
	if subtle.ConstantTimeCompare(want, stored) != 1 {
		return "", errors.New("api key hash mismatch")
	}
	if info.UserID == "" {
		return "", errors.Errorf("api key %s has no owner", info.ID)
	}
	return info.UserID, nil
}

func (a *Authenticator) tokenUser(raw string) (string, error) {
	if len(a.cfg.JWTSecret) == 0 {
		return "", errors.New("bearer tokens disabled")
	}
	var claims jwt.RegisteredClaims
	_, err := jwt.ParseWithClaims(raw, &claims, func(*jwt.Token) (any, error) {
		return a.cfg.JWTSecret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return "", errors.Wrap(err, "parse token")
	}
	if claims.Subject == "" {
		return "", errors.New("token has no subject")
	}
	return claims.Subject, nil
}

func bearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if len(h) <= len(prefix) || !strings.EqualFold(h[:len(prefix)], prefix) {
		return ""
	}
	return strings.TrimSpace(h[len(prefix):])
}

// protect requires an authenticated caller and puts its identity into the
// request context.
func (h *Handler) protect(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		who, err := h.authn.Authenticate(r)
		if err != nil {
			fail(w, r, err)
			return
		}
		ctx := auth.WithIdentity(r.Context(), who)
		ctx = zctx.With(ctx, zap.String("user_id", who.UserID))
		next(w, r.WithContext(ctx))
	}
}
