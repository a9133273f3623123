package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/qs3c/ecogrid_server/internal/model"
	"github.com/qs3c/ecogrid_server/internal/model/dto"
	"github.com/qs3c/ecogrid_server/internal/repository"
	"github.com/qs3c/ecogrid_server/internal/testutil"
)

func setupUserService(t *testing.T) (*UserService, *gorm.DB) {
	t.Helper()

	db := testutil.SetupTestDB(t)
	return NewUserService(repository.NewUserRepository(db)), db
}

func TestUserService_GetDetails(t *testing.T) {
	svc, db := setupUserService(t)

	user := testutil.TestUser(t, db,
		testutil.WithName("Alice"),
		testutil.WithMobile("+15551234567"),
		testutil.WithSubscription("Basic", 499))

	info, err := svc.GetDetails(context.Background(), user.Email)
	require.NoError(t, err)
	assert.Equal(t, "Alice", info.Name)
	assert.Equal(t, "+15551234567", info.Mobile)
	require.NotNil(t, info.Subscription)
	assert.Equal(t, "Basic", info.Subscription.Plan)
	assert.True(t, info.Subscription.Paid)
	assert.Nil(t, info.Location)
}

func TestUserService_GetDetails_NotFound(t *testing.T) {
	svc, _ := setupUserService(t)

	_, err := svc.GetDetails(context.Background(), "ghost@example.com")
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestUserService_Locations(t *testing.T) {
	svc, db := setupUserService(t)

	testutil.TestUser(t, db, testutil.WithName("Alice"), testutil.WithLocation(12.97, 77.59))
	testutil.TestUser(t, db, testutil.WithName("NoLoc"))
	testutil.TestUser(t, db, testutil.WithName("Bob"), testutil.WithLocation(-33.86, 151.2))

	locs, err := svc.Locations(context.Background())
	require.NoError(t, err)
	require.Len(t, locs, 2)
	assert.Equal(t, dto.UserLocation{Name: "Alice", Latitude: 12.97, Longitude: 77.59}, locs[0])
	assert.Equal(t, "Bob", locs[1].Name)
}

func TestUserService_UpdateLocation(t *testing.T) {
	svc, db := setupUserService(t)
	ctx := context.Background()

	user := testutil.TestUser(t, db)
	lat, lng := 1.5, 2.5

	require.NoError(t, svc.UpdateLocation(ctx, user.Email, &dto.UpdateLocationRequest{Latitude: &lat, Longitude: &lng}))

	info, err := svc.GetDetails(ctx, user.Email)
	require.NoError(t, err)
	require.NotNil(t, info.Location)
	assert.Equal(t, 1.5, info.Location.Latitude)

	err = svc.UpdateLocation(ctx, "ghost@example.com", &dto.UpdateLocationRequest{Latitude: &lat, Longitude: &lng})
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestUserService_ListUsers(t *testing.T) {
	svc, db := setupUserService(t)

	testutil.TestUser(t, db, testutil.WithName("A"))
	testutil.TestUser(t, db, testutil.WithName("B"), testutil.WithRole(model.RoleAdmin))

	users, err := svc.ListUsers(context.Background())
	require.NoError(t, err)
	require.Len(t, users, 2)
	assert.Equal(t, model.RoleAdmin, users[1].Role)
}

func TestUserService_DeleteUser(t *testing.T) {
	ctx := context.Background()

	t.Run("admin deletes regular user", func(t *testing.T) {
		svc, db := setupUserService(t)
		admin := testutil.TestUser(t, db, testutil.WithRole(model.RoleAdmin))
		target := testutil.TestUser(t, db)

		require.NoError(t, svc.DeleteUser(ctx, admin.Email, target.Email))

		_, err := svc.GetDetails(ctx, target.Email)
		assert.ErrorIs(t, err, ErrUserNotFound)
	})

	t.Run("record named admin is protected for every requester", func(t *testing.T) {
		svc, db := setupUserService(t)
		admin := testutil.TestUser(t, db, testutil.WithRole(model.RoleAdmin))
		regular := testutil.TestUser(t, db)
		// a legacy record named admin without the admin role
		protected := testutil.TestUser(t, db, testutil.WithName(model.ReservedAdminName))

		for _, requester := range []string{admin.Email, regular.Email, "ghost@example.com"} {
			err := svc.DeleteUser(ctx, requester, protected.Email)
			assert.ErrorIs(t, err, ErrProtectedUser, requester)
		}

		_, err := svc.GetDetails(ctx, protected.Email)
		assert.NoError(t, err)
	})

	t.Run("admin role is protected", func(t *testing.T) {
		svc, db := setupUserService(t)
		admin := testutil.TestUser(t, db, testutil.WithRole(model.RoleAdmin))
		other := testutil.TestUser(t, db, testutil.WithRole(model.RoleAdmin))

		assert.ErrorIs(t, svc.DeleteUser(ctx, admin.Email, other.Email), ErrProtectedUser)
		assert.ErrorIs(t, svc.DeleteUser(ctx, admin.Email, admin.Email), ErrProtectedUser)
	})

	t.Run("non-admin requester is denied", func(t *testing.T) {
		svc, db := setupUserService(t)
		regular := testutil.TestUser(t, db)
		target := testutil.TestUser(t, db)

		assert.ErrorIs(t, svc.DeleteUser(ctx, regular.Email, target.Email), ErrPermissionDenied)
		assert.ErrorIs(t, svc.DeleteUser(ctx, regular.Email, "ghost@example.com"), ErrPermissionDenied)
	})

	t.Run("missing target", func(t *testing.T) {
		svc, db := setupUserService(t)
		admin := testutil.TestUser(t, db, testutil.WithRole(model.RoleAdmin))

		assert.ErrorIs(t, svc.DeleteUser(ctx, admin.Email, "ghost@example.com"), ErrUserNotFound)
	})
}
