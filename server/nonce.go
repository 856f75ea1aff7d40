package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	nonceAudience = "wpadmin-nonce"
	nonceTTL      = 24 * time.Hour
)

// ErrInvalidNonce is returned when a confirmation token does not match the
// user and action it is presented for.
var ErrInvalidNonce = errors.New("invalid nonce")

type nonceClaims struct {
	Action string `json:"act"`
	jwt.RegisteredClaims
}

// Nonces issues confirmation tokens bound to a user and an action.
type Nonces struct {
	secret   []byte
	adminURL string
	ttl      time.Duration
	now      func() time.Time
	logger   *slog.Logger
}

func newNonces(secret, adminURL string, logger *slog.Logger) *Nonces {
	if adminURL == "" {
		adminURL = "/wp-admin/"
	}
	return &Nonces{
		secret:   []byte(secret),
		adminURL: strings.TrimSuffix(adminURL, "/") + "/",
		ttl:      nonceTTL,
		now:      time.Now,
		logger:   logger,
	}
}

// Create signs a nonce for user and action.
func (n *Nonces) Create(user, action string) (string, error) {
	now := n.now()
	claims := nonceClaims{
		Action: action,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user,
			Audience:  jwt.ClaimStrings{nonceAudience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(n.ttl)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(n.secret)
	if err != nil {
		return "", fmt.Errorf("sign nonce: %w", err)
	}
	return token, nil
}

// Verify checks that token was issued to user for action and has not expired.
func (n *Nonces) Verify(token, user, action string) error {
	var claims nonceClaims
	_, err := jwt.ParseWithClaims(token, &claims, n.key,
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithAudience(nonceAudience),
		jwt.WithSubject(user),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(n.now),
	)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidNonce, err)
	}
	if claims.Action != action {
		return fmt.Errorf("%w: issued for %q", ErrInvalidNonce, claims.Action)
	}
	return nil
}

func (n *Nonces) key(*jwt.Token) (any, error) { return n.secret, nil }

// Token returns a nonce for the signed-in user, or "" when none is signed in.
func (n *Nonces) Token(ctx context.Context, action string) string {
	user, ok := UserFromContext(ctx)
	if !ok {
		return ""
	}
	token, err := n.Create(user.Name, action)
	if err != nil {
		n.logger.Error("create nonce", slog.String("action", action), slog.Any("err", err))
		return ""
	}
	return token
}

// NonceURL returns the admin URL for path with a _wpnonce for action appended.
func (n *Nonces) NonceURL(ctx context.Context, path, action string) string {
	u := n.adminURL + strings.TrimPrefix(path, "/")
	sep := "?"
	if strings.Contains(u, "?") {
		sep = "&"
	}
	return u + sep + "_wpnonce=" + n.Token(ctx, action)
}
