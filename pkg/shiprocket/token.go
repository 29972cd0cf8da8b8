package shiprocket

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// LoginFunc performs one credential exchange against the carrier.
type LoginFunc func(ctx context.Context) (*LoginResponse, error)

// session is the carrier token grant. Exactly one instance exists per
// TokenManager and only the TokenManager mutates it.
type session struct {
	token     string
	issuedAt  time.Time
	expiresAt time.Time
}

// TokenManager owns the carrier session token. It serves cached tokens
// while they are inside their validity margin, collapses concurrent
// refreshes into a single login call, and enforces a cooldown after a
// failed attempt. The single-flight discipline is a correctness
// requirement: duplicate concurrent logins trip the carrier's anti-abuse
// lockout.
type TokenManager struct {
	login    LoginFunc
	validity time.Duration
	margin   time.Duration
	cooldown time.Duration
	logger   *otelzap.Logger

	group singleflight.Group

	mu            sync.Mutex
	sess          *session
	cooldownUntil time.Time

	now func() time.Time
}

// TokenManagerConfig holds token lifecycle tuning.
type TokenManagerConfig struct {
	Validity time.Duration // how long a granted token stays usable
	Margin   time.Duration // refresh this long before nominal expiry
	Cooldown time.Duration // fail-fast window after a failed login
}

// NewTokenManager creates a token manager around a login function.
func NewTokenManager(login LoginFunc, cfg TokenManagerConfig, logger *otelzap.Logger) *TokenManager {
	validity := cfg.Validity
	if validity == 0 {
		validity = 240 * time.Hour // carrier documents 10-day tokens
	}
	margin := cfg.Margin
	if margin == 0 {
		margin = 30 * time.Minute
	}
	cooldown := cfg.Cooldown
	if cooldown == 0 {
		cooldown = 90 * time.Second
	}

	return &TokenManager{
		login:    login,
		validity: validity,
		margin:   margin,
		cooldown: cooldown,
		logger:   logger,
		now:      time.Now,
	}
}

// Token returns a usable carrier token, performing a login only when the
// cached token is missing or inside its expiry margin. Concurrent callers
// needing a refresh all await the same login call.
func (t *TokenManager) Token(ctx context.Context) (string, error) {
	if token, ok := t.cached(); ok {
		return token, nil
	}

	v, err, _ := t.group.Do("login", func() (any, error) {
		// A waiter queued behind a finished refresh re-checks the cache
		// instead of logging in again.
		if token, ok := t.cached(); ok {
			return token, nil
		}
		return t.refresh(ctx)
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

// Invalidate drops the cached session, but only if the rejected token is
// still the cached one. A stale rejection must not evict a token that a
// concurrent refresh already replaced.
func (t *TokenManager) Invalidate(rejected string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.sess != nil && t.sess.token == rejected {
		t.sess = nil
	}
}

// cached returns the token if it is still inside its validity margin.
func (t *TokenManager) cached() (string, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.sess == nil {
		return "", false
	}
	if t.now().After(t.sess.expiresAt.Add(-t.margin)) {
		return "", false
	}
	return t.sess.token, true
}

// refresh performs one login attempt. Callers must arrive through the
// singleflight group.
func (t *TokenManager) refresh(ctx context.Context) (string, error) {
	t.mu.Lock()
	if remaining := t.cooldownUntil.Sub(t.now()); remaining > 0 {
		t.mu.Unlock()
		return "", &BackoffError{RetryAfter: remaining}
	}
	t.mu.Unlock()

	resp, err := t.login(ctx)
	if err != nil {
		t.mu.Lock()
		t.cooldownUntil = t.now().Add(t.cooldown)
		t.mu.Unlock()

		t.logger.Warn("carrier login failed", zap.Error(err))
		return "", classifyAuthFailure(err)
	}

	now := t.now()
	t.mu.Lock()
	t.sess = &session{
		token:     resp.Token,
		issuedAt:  now,
		expiresAt: now.Add(t.validity),
	}
	t.cooldownUntil = time.Time{}
	t.mu.Unlock()

	t.logger.Info("carrier login succeeded",
		zap.String("token", maskSecret(resp.Token)),
		zap.Time("expires_at", now.Add(t.validity)),
	)
	return resp.Token, nil
}

// classifyAuthFailure rewraps login failures into the auth taxonomy.
// The carrier's anti-abuse lockout message becomes the distinct lockout
// variant; transport failures pass through untouched so callers can tell
// "carrier said no" from "carrier unreachable".
func classifyAuthFailure(err error) error {
	if IsTransport(err) {
		return err
	}
	// Login implementations may classify already; wrapping again would
	// bury the lockout variant behind a generic AuthError.
	var authErr *AuthError
	if errors.As(err, &authErr) {
		return err
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		if isLockoutMessage(apiErr.Message) {
			return newLockoutError(apiErr.Message)
		}
		return &AuthError{Message: apiErr.Message, Cause: apiErr}
	}
	return &AuthError{Message: "login failed", Cause: err}
}

// maskSecret keeps the edges of a secret visible so logs stay diagnosable
// without leaking the full value. Even short values keep their first
// character so two different secrets never mask identically blank.
func maskSecret(s string) string {
	if s == "" {
		return ""
	}
	if len(s) <= 8 {
		return s[:1] + "***"
	}
	return s[:4] + "..." + s[len(s)-4:]
}
