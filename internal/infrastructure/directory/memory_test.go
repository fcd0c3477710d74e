package directory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"MemberSync/internal/domain"
)

func TestMemoryDirectory(t *testing.T) {
	ctx := context.Background()
	dir := NewMemory(
		domain.Member{ID: "1", Username: "ana", Roles: []string{"a"}, Manageable: true},
		domain.Member{ID: "2", Username: "owner"},
	)

	require.NoError(t, dir.SetNickname(ctx, "1", "Moliço Ana", "test"))
	require.NoError(t, dir.AddRole(ctx, "1", "b"))
	require.NoError(t, dir.AddRole(ctx, "1", "b"))
	require.NoError(t, dir.RemoveRole(ctx, "1", "a"))

	m, err := dir.FetchMember(ctx, "1")
	require.NoError(t, err)
	assert.Equal(t, "Moliço Ana", m.Nickname)
	assert.Equal(t, []string{"b"}, m.Roles)
	assert.Equal(t, 4, dir.Mutations())

	// Returned members are copies.
	m.Roles[0] = "changed"
	again, err := dir.FetchMember(ctx, "1")
	require.NoError(t, err)
	assert.Equal(t, []string{"b"}, again.Roles)

	assert.ErrorIs(t, dir.SetNickname(ctx, "2", "x", "test"), domain.ErrForbidden)
	_, err = dir.FetchMember(ctx, "9")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	all, err := dir.ListMembers(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}
