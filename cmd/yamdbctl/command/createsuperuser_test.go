package command

import (
	"context"
	"strings"
	"testing"
	"time"

	"yamdb/database"
	"yamdb/internal/http-api/models"
	"yamdb/internal/http-api/repository"
	"yamdb/internal/http-api/service"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newUsers(t *testing.T) repository.UserRepository {
	t.Helper()
	db, err := database.OpenMemory(strings.ReplaceAll(t.Name(), "/", "_"))
	require.NoError(t, err)
	return repository.NewUserRepository(db)
}

func newCodes() *service.CodeGenerator {
	return service.NewCodeGenerator("0123456789abcdef0123456789abcdef", time.Hour)
}

func TestCreateSuperuser_New(t *testing.T) {
	ctx := context.Background()
	users := newUsers(t)
	codes := newCodes()

	user, code, err := createSuperuser(ctx, users, codes, "root", "root@example.com")
	require.NoError(t, err)
	assert.True(t, user.IsSuperuser)
	assert.Equal(t, models.RoleAdmin, user.Role)

	stored, err := users.FindByUsername(ctx, "root")
	require.NoError(t, err)
	assert.Equal(t, code, stored.ConfirmationCode)
	assert.True(t, codes.Check(stored, code))
}

func TestCreateSuperuser_PromotesExisting(t *testing.T) {
	ctx := context.Background()
	users := newUsers(t)
	require.NoError(t, users.Create(ctx, &models.User{Username: "alice", Email: "alice@example.com", Role: models.RoleUser}))

	user, _, err := createSuperuser(ctx, users, newCodes(), "alice", "")
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", user.Email)

	stored, err := users.FindByUsername(ctx, "alice")
	require.NoError(t, err)
	assert.True(t, stored.IsSuperuser)
	assert.Equal(t, models.RoleAdmin, stored.Role)
}

func TestCreateSuperuser_Rejects(t *testing.T) {
	ctx := context.Background()
	users := newUsers(t)
	require.NoError(t, users.Create(ctx, &models.User{Username: "alice", Email: "alice@example.com", Role: models.RoleUser}))

	tests := []struct {
		name, username, email string
	}{
		{"reserved name", "me", "me@example.com"},
		{"bad slug", "no spaces", "x@example.com"},
		{"bad email", "root", "not-an-email"},
		{"email of another account", "root", "alice@example.com"},
		{"new account without email", "root", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := createSuperuser(ctx, users, newCodes(), tt.username, tt.email)
			assert.Error(t, err)
		})
	}
}
