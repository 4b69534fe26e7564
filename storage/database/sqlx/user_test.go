package sqlxrepos

import (
	"testing"
	"time"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"

	"github.com/trezcool/masomo/core/user"
)

func TestUserRow(t *testing.T) {
	now := time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC)
	usr := user.User{
		ID:        "u1",
		Name:      "Hero",
		Username:  "hero",
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}

	row := newUserRow(usr)
	assert.Equal(t, pq.StringArray{}, row.Roles)
	assert.False(t, row.LastLogin.Valid)

	back := row.toUser()
	assert.Empty(t, back.Roles)
	assert.True(t, back.LastLogin.IsZero())

	usr.Roles = []string{user.RoleTeacher}
	usr.LastLogin = now.Add(time.Hour)
	row = newUserRow(usr)
	assert.True(t, row.LastLogin.Valid)
	assert.Equal(t, usr, row.toUser())
}
