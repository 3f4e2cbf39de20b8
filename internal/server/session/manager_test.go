package session

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/gophbook/internal/common"
	"github.com/dmitrijs2005/gophbook/internal/server/models"
)

var ana = models.User{DisplayName: "Ana", Email: "ana@x.com", PasswordHash: "$argon2id$..."}

func TestManager_EstablishResolve(t *testing.T) {
	m := NewManager("secret", time.Hour)

	token, id, err := m.Establish(ana)
	require.NoError(t, err)
	require.NotEmpty(t, token)
	assert.Equal(t, models.Identity{DisplayName: "Ana", Email: "ana@x.com"}, id)

	got, err := m.Resolve(token)
	require.NoError(t, err)
	assert.Equal(t, id, got)
}

func TestManager_ResolveRejects(t *testing.T) {
	m := NewManager("secret", time.Hour)
	other := NewManager("other-secret", time.Hour)
	expired := NewManager("secret", -time.Minute)

	foreign, _, err := other.Establish(ana)
	require.NoError(t, err)
	stale, _, err := expired.Establish(ana)
	require.NoError(t, err)

	for name, token := range map[string]string{
		"empty":   "",
		"garbage": "abc.def.ghi",
		"foreign": foreign,
		"expired": stale,
	} {
		t.Run(name, func(t *testing.T) {
			_, err := m.Resolve(token)
			require.ErrorIs(t, err, common.ErrorUnauthorized)
		})
	}
}

func TestManager_DestroyRevokes(t *testing.T) {
	m := NewManager("secret", time.Hour)

	token, _, err := m.Establish(ana)
	require.NoError(t, err)
	second, _, err := m.Establish(ana)
	require.NoError(t, err)

	m.Destroy(token)

	_, err = m.Resolve(token)
	require.ErrorIs(t, err, common.ErrorUnauthorized)

	// other sessions of the same user are unaffected
	_, err = m.Resolve(second)
	require.NoError(t, err)

	// idempotent, and garbage is ignored
	m.Destroy(token)
	m.Destroy("")
	m.Destroy("not-a-token")
}

func TestManager_PrunesExpiredRevocations(t *testing.T) {
	m := NewManager("secret", time.Hour)

	token, _, err := m.Establish(ana)
	require.NoError(t, err)
	m.Destroy(token)
	require.Len(t, m.revoked, 1)

	m.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	assert.False(t, m.isRevoked("unrelated"))
	assert.Empty(t, m.revoked)
}

func TestContextHelpers(t *testing.T) {
	ctx := context.Background()

	_, ok := Current(ctx)
	assert.False(t, ok)

	_, err := Require(ctx)
	require.ErrorIs(t, err, common.ErrorUnauthorized)

	id := ana.Identity()
	ctx = WithIdentity(ctx, id)

	got, ok := Current(ctx)
	assert.True(t, ok)
	assert.Equal(t, id, got)

	got, err = Require(ctx)
	require.NoError(t, err)
	assert.Equal(t, id, got)
}
