// Package session binds an authenticated identity to a request.
//
// Tokens are signed by the auth package and carried by the client; the
// identity they resolve to travels through the request context. Nothing is
// process-global: a request without a resolved identity is anonymous.
package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/dmitrijs2005/gophbook/internal/common"
	"github.com/dmitrijs2005/gophbook/internal/server/auth"
	"github.com/dmitrijs2005/gophbook/internal/server/models"
)

type ctxKey string

const identityKey ctxKey = "identity"

// Manager issues, resolves and revokes session tokens.
type Manager struct {
	secret   []byte
	validity time.Duration

	mu      sync.Mutex
	revoked map[string]time.Time // token id -> token expiry
	now     func() time.Time
}

func NewManager(secretKey string, validity time.Duration) *Manager {
	return &Manager{
		secret:   []byte(secretKey),
		validity: validity,
		revoked:  make(map[string]time.Time),
		now:      time.Now,
	}
}

// Validity is the lifetime of newly issued tokens.
func (m *Manager) Validity() time.Duration {
	return m.validity
}

// Establish issues a token for user and returns it with the bound identity.
func (m *Manager) Establish(user models.User) (string, models.Identity, error) {
	id := user.Identity()
	token, _, err := auth.GenerateToken(id, m.secret, m.validity)
	if err != nil {
		return "", models.Identity{}, fmt.Errorf("%w: signing session: %v", common.ErrorInternal, err)
	}
	return token, id, nil
}

// Resolve returns the identity carried by token. Missing, invalid, expired
// and revoked tokens all yield common.ErrorUnauthorized.
func (m *Manager) Resolve(token string) (models.Identity, error) {
	if token == "" {
		return models.Identity{}, common.ErrorUnauthorized
	}

	claims, err := auth.ParseToken(token, m.secret)
	if err != nil {
		return models.Identity{}, fmt.Errorf("%w: %v", common.ErrorUnauthorized, err)
	}

	if m.isRevoked(claims.ID) {
		return models.Identity{}, fmt.Errorf("%w: session ended", common.ErrorUnauthorized)
	}

	return claims.Identity(), nil
}

// Destroy revokes token until it would have expired anyway. Empty, invalid
// or already revoked tokens are ignored.
func (m *Manager) Destroy(token string) {
	if token == "" {
		return
	}
	claims, err := auth.ParseToken(token, m.secret)
	if err != nil {
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.pruneLocked()
	m.revoked[claims.ID] = claims.ExpiresAt.Time
}

func (m *Manager) isRevoked(tokenID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pruneLocked()
	_, ok := m.revoked[tokenID]
	return ok
}

// pruneLocked drops revocations of tokens that have expired on their own.
func (m *Manager) pruneLocked() {
	now := m.now()
	for id, exp := range m.revoked {
		if !exp.After(now) {
			delete(m.revoked, id)
		}
	}
}

// WithIdentity returns a copy of ctx carrying id.
func WithIdentity(ctx context.Context, id models.Identity) context.Context {
	return context.WithValue(ctx, identityKey, id)
}

// Current returns the identity bound to ctx, if any.
func Current(ctx context.Context) (models.Identity, bool) {
	id, ok := ctx.Value(identityKey).(models.Identity)
	return id, ok
}

// Require is the guard for protected operations.
func Require(ctx context.Context) (models.Identity, error) {
	id, ok := Current(ctx)
	if !ok {
		return models.Identity{}, common.ErrorUnauthorized
	}
	return id, nil
}
