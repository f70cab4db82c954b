package user

import (
	"context"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/kofiasare/storefront/internal/config"
	"github.com/kofiasare/storefront/internal/hash"
	"github.com/kofiasare/storefront/internal/models"
)

func newService(t *testing.T) *Service {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, config.Migrate(db))
	return &Service{DB: db}
}

func seedUser(t *testing.T, s *Service, email string, admin bool) models.User {
	t.Helper()
	u := models.User{Username: "u-" + email, Email: email, PasswordHash: "x", IsAdmin: admin}
	require.NoError(t, s.DB.Create(&u).Error)
	return u
}

func TestUpdateProfile(t *testing.T) {
	s := newService(t)
	u := seedUser(t, s, "alice@example.com", false)
	seedUser(t, s, "taken@example.com", false)

	updated, err := s.UpdateProfile(context.Background(), u.ID, ProfileUpdate{
		Username: "alice2",
		Password: "new-password",
	})
	require.NoError(t, err)
	require.Equal(t, "alice2", updated.Username)
	require.Equal(t, "alice@example.com", updated.Email)
	require.True(t, hash.CheckPassword(updated.PasswordHash, "new-password"))

	_, err = s.UpdateProfile(context.Background(), u.ID, ProfileUpdate{Email: "taken@example.com"})
	require.ErrorIs(t, err, ErrConflict)
}

func TestAdminUpdateToggleRole(t *testing.T) {
	s := newService(t)
	u := seedUser(t, s, "bob@example.com", false)

	yes := true
	updated, err := s.AdminUpdate(context.Background(), u.ID, AdminUpdate{IsAdmin: &yes})
	require.NoError(t, err)
	require.True(t, updated.IsAdmin)

	// absent pointer leaves the role untouched
	updated, err = s.AdminUpdate(context.Background(), u.ID, AdminUpdate{Username: "bobby"})
	require.NoError(t, err)
	require.True(t, updated.IsAdmin)
	require.Equal(t, "bobby", updated.Username)
}

func TestDeleteProtectsAdmins(t *testing.T) {
	s := newService(t)
	admin := seedUser(t, s, "root@example.com", true)
	regular := seedUser(t, s, "carol@example.com", false)

	require.ErrorIs(t, s.Delete(context.Background(), admin.ID), ErrAdminDelete)
	require.NoError(t, s.Delete(context.Background(), regular.ID))

	_, err := s.Get(context.Background(), regular.ID)
	require.ErrorIs(t, err, ErrNotFound)

	_, err = s.Get(context.Background(), 9999)
	require.ErrorIs(t, err, ErrNotFound)

	users, err := s.List(context.Background())
	require.NoError(t, err)
	require.Len(t, users, 1)
}
