package model

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRole(t *testing.T) {
	r, err := ParseRole(" Admin ")
	require.NoError(t, err)
	assert.Equal(t, RoleAdmin, r)

	r, err = ParseRole("user")
	require.NoError(t, err)
	assert.Equal(t, RoleStandard, r)

	_, err = ParseRole("owner")
	assert.Error(t, err)
	assert.False(t, Role(0).Valid())
}

func TestRole_JSON(t *testing.T) {
	b, err := json.Marshal(User{ID: "u1", Role: RoleAdmin, PasswordHash: "hash"})
	require.NoError(t, err)
	assert.Contains(t, string(b), `"role":"admin"`)
	assert.NotContains(t, string(b), "hash")

	_, err = json.Marshal(User{ID: "u1"})
	assert.Error(t, err, "an unset role must not serialize")

	var u User
	require.NoError(t, json.Unmarshal([]byte(`{"role":"user"}`), &u))
	assert.Equal(t, RoleStandard, u.Role)
}

func TestHasPendingReset(t *testing.T) {
	now := time.Now()
	hash := "abc"
	later, earlier := now.Add(time.Minute), now.Add(-time.Minute)

	assert.False(t, User{}.HasPendingReset(now))
	assert.True(t, User{ResetTokenHash: &hash, ResetTokenExpiresAt: &later}.HasPendingReset(now))
	assert.False(t, User{ResetTokenHash: &hash, ResetTokenExpiresAt: &earlier}.HasPendingReset(now))
}

func TestIdentityContext(t *testing.T) {
	_, ok := IdentityFromContext(context.Background())
	assert.False(t, ok)

	id := User{ID: "u1", Role: RoleAdmin}.Identity()
	got, ok := IdentityFromContext(WithIdentity(context.Background(), id))
	require.True(t, ok)
	assert.Equal(t, id, got)
	assert.True(t, got.IsAdmin())
}
