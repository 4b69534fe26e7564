package inmemdb

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/masomo/core/user"
)

func TestUserRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewUserRepository(Open())

	hero := user.User{ID: "u1", Name: "Hero", Username: "hero", Email: "hero@test.cd", Roles: []string{user.RoleStudent}}
	_, err := repo.CreateUser(ctx, hero)
	require.NoError(t, err)

	// stored users don't share memory with callers
	hero.Roles[0] = user.RoleAdmin
	got, err := repo.GetUserByID(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, []string{user.RoleStudent}, got.Roles)

	got.Roles[0] = user.RoleTeacher
	got, err = repo.GetUserByUsernameOrEmail(ctx, "hero@test.cd")
	require.NoError(t, err)
	assert.Equal(t, []string{user.RoleStudent}, got.Roles)

	got.IsActive = true
	_, err = repo.UpdateUser(ctx, got)
	require.NoError(t, err)
	got, err = repo.GetUserByUsernameOrEmail(ctx, "hero")
	require.NoError(t, err)
	assert.True(t, got.IsActive)

	_, err = repo.UpdateUser(ctx, user.User{ID: "ghost"})
	assert.ErrorIs(t, err, user.ErrNotFound)
	_, err = repo.GetUserByID(ctx, "ghost")
	assert.ErrorIs(t, err, user.ErrNotFound)
	_, err = repo.GetUserByUsernameOrEmail(ctx, "")
	assert.ErrorIs(t, err, user.ErrNotFound)

	assert.ErrorIs(t, repo.CheckUsernameUniqueness(ctx, "hero", ""), user.ErrUsernameExists)
	assert.ErrorIs(t, repo.CheckUsernameUniqueness(ctx, "", "hero@test.cd"), user.ErrEmailExists)
	assert.NoError(t, repo.CheckUsernameUniqueness(ctx, "hero", "hero@test.cd", got))
	assert.NoError(t, repo.CheckUsernameUniqueness(ctx, "villain", "villain@test.cd"))
}
