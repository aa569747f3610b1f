package sqlite_test

import (
	"context"
	"testing"
	"time"

	"github.com/SscSPs/oversight/internal/apperrors"
	"github.com/SscSPs/oversight/internal/core/domain"
	"github.com/SscSPs/oversight/internal/repositories/database/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newUser(id, email string, role domain.UserRole) domain.User {
	now := time.Now().UTC()
	return domain.User{
		UserID:       id,
		Name:         "User " + id,
		Email:        email,
		Role:         role,
		Department:   "IT",
		PasswordHash: "hash",
		IsActive:     true,
		AuditFields: domain.AuditFields{
			CreatedAt:     now,
			CreatedBy:     "admin",
			LastUpdatedAt: now,
			LastUpdatedBy: "admin",
		},
	}
}

func TestUserRepository(t *testing.T) {
	ctx := context.Background()
	repo := sqlite.NewUserRepository(setupTestDB(t))

	require.NoError(t, repo.SaveUser(ctx, newUser("u-1", "hod@example.com", domain.RoleHOD)))
	require.NoError(t, repo.SaveUser(ctx, newUser("u-2", "emp@example.com", domain.RoleEmployee)))

	t.Run("duplicate email ignores case", func(t *testing.T) {
		err := repo.SaveUser(ctx, newUser("u-3", "HOD@example.com", domain.RoleEmployee))
		assert.ErrorIs(t, err, apperrors.ErrDuplicate)
	})

	t.Run("find by email", func(t *testing.T) {
		u, err := repo.FindUserByEmail(ctx, "Hod@Example.com")
		require.NoError(t, err)
		assert.Equal(t, "u-1", u.UserID)
		assert.Equal(t, domain.RoleHOD, u.Role)
	})

	t.Run("update", func(t *testing.T) {
		u, err := repo.FindUserByID(ctx, "u-2")
		require.NoError(t, err)
		u.Role = domain.RoleFinance
		u.IsActive = false
		require.NoError(t, repo.UpdateUser(ctx, *u))

		got, err := repo.FindUserByID(ctx, "u-2")
		require.NoError(t, err)
		assert.Equal(t, domain.RoleFinance, got.Role)
		assert.False(t, got.IsActive)
	})

	t.Run("refresh token", func(t *testing.T) {
		expiry := time.Now().Add(time.Hour).UTC().Truncate(time.Second)
		require.NoError(t, repo.UpdateRefreshToken(ctx, "u-1", "rt-hash", expiry))
		u, err := repo.FindUserByID(ctx, "u-1")
		require.NoError(t, err)
		assert.Equal(t, "rt-hash", u.RefreshTokenHash)
		require.NotNil(t, u.RefreshTokenExpiryTime)
		assert.True(t, expiry.Equal(*u.RefreshTokenExpiryTime))

		require.NoError(t, repo.ClearRefreshToken(ctx, "u-1"))
		u, err = repo.FindUserByID(ctx, "u-1")
		require.NoError(t, err)
		assert.Empty(t, u.RefreshTokenHash)
		assert.Nil(t, u.RefreshTokenExpiryTime)
	})

	t.Run("soft delete", func(t *testing.T) {
		require.NoError(t, repo.MarkUserDeleted(ctx, "u-2", time.Now(), "admin"))
		_, err := repo.FindUserByID(ctx, "u-2")
		assert.ErrorIs(t, err, apperrors.ErrNotFound)
		assert.ErrorIs(t, repo.MarkUserDeleted(ctx, "u-2", time.Now(), "admin"), apperrors.ErrNotFound)

		users, err := repo.FindUsers(ctx, 10, 0)
		require.NoError(t, err)
		require.Len(t, users, 1)
		assert.Equal(t, "u-1", users[0].UserID)
	})
}
