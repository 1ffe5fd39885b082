// Package storagetest holds behaviour checks shared by every storage.Store
// implementation.
package storagetest

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hongminglow/flous-cash-be/internal/models"
	"github.com/hongminglow/flous-cash-be/internal/storage"
)

// Run exercises store against the storage contract. newStore must return an
// empty store, or one where generated usernames cannot collide.
func Run(t *testing.T, newStore func(t *testing.T) storage.Store) {
	t.Run("users", func(t *testing.T) { testUsers(t, newStore(t)) })
	t.Run("services", func(t *testing.T) { testServices(t, newStore(t)) })
	t.Run("updates", func(t *testing.T) { testUpdates(t, newStore(t)) })
}

var seq = time.Now().UnixNano()

func uniqueName(prefix string) string {
	seq++
	return fmt.Sprintf("%s_%d", prefix, seq)
}

func createUser(t *testing.T, s storage.Store, prefix string) models.User {
	t.Helper()
	name := uniqueName(prefix)
	user, err := s.CreateUser(context.Background(), models.User{
		Username:     name,
		Email:        name + "@example.com",
		PasswordHash: "hash",
		FullName:     "Test " + prefix,
		NationalID:   "29001011234567",
		Phone:        "01000000000",
		Job:          "Tester",
		Address:      "Cairo",
	})
	require.NoError(t, err)
	return user
}

func testUsers(t *testing.T, s storage.Store) {
	ctx := context.Background()
	user := createUser(t, s, "alice")
	assert.NotZero(t, user.ID)
	assert.False(t, user.CreatedAt.IsZero())
	assert.Equal(t, "hash", user.PasswordHash)

	got, err := s.FindUserByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, user.Username, got.Username)

	got, err = s.FindByUsername(ctx, user.Username)
	require.NoError(t, err)
	assert.Equal(t, user.ID, got.ID)

	got, err = s.FindByUsernameOrEmail(ctx, user.Email)
	require.NoError(t, err)
	assert.Equal(t, user.ID, got.ID)

	_, err = s.CreateUser(ctx, models.User{Username: user.Username, Email: uniqueName("x") + "@example.com"})
	assert.ErrorIs(t, err, storage.ErrAlreadyExists)
	_, err = s.CreateUser(ctx, models.User{Username: uniqueName("x"), Email: user.Email})
	assert.ErrorIs(t, err, storage.ErrAlreadyExists)

	_, err = s.FindUserByID(ctx, -1)
	assert.ErrorIs(t, err, storage.ErrNotFound)
	_, err = s.FindByUsernameOrEmail(ctx, uniqueName("ghost"))
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func testServices(t *testing.T, s storage.Store) {
	ctx := context.Background()
	alice := createUser(t, s, "alice")
	bob := createUser(t, s, "bob")

	purpose := "Shop"
	target := time.Date(2027, 3, 1, 0, 0, 0, 0, time.UTC)
	first, err := s.CreateService(ctx, models.Service{
		UserID: alice.ID, Type: models.ServiceFunding, Amount: "500.00", Status: models.StatusPending,
		Purpose: &purpose, TargetDate: &target, Progress: "0.00", PaymentConfirmed: true,
	})
	require.NoError(t, err)
	assert.Equal(t, "500.00", first.Amount)
	assert.Equal(t, "0.00", first.Progress)
	assert.Equal(t, models.StatusPending, first.Status)
	assert.False(t, first.ContractGenerated)
	assert.Nil(t, first.ContractPath)
	require.NotNil(t, first.TargetDate)
	assert.True(t, target.Equal(*first.TargetDate))

	second, err := s.CreateService(ctx, models.Service{
		UserID: alice.ID, Type: models.ServiceSaving, Amount: "12.50", Status: models.StatusPending,
		Progress: "0.00", PaymentConfirmed: true,
	})
	require.NoError(t, err)
	_, err = s.CreateService(ctx, models.Service{
		UserID: bob.ID, Type: models.ServiceInvestment, Amount: "1.00", Status: models.StatusPending,
		Progress: "0.00", PaymentConfirmed: true,
	})
	require.NoError(t, err)

	_, err = s.CreateService(ctx, models.Service{
		UserID: -1, Type: models.ServiceFunding, Amount: "1.00", Status: models.StatusPending, Progress: "0.00",
	})
	assert.ErrorIs(t, err, storage.ErrNotFound)

	mine, err := s.ListServicesByUser(ctx, alice.ID)
	require.NoError(t, err)
	require.Len(t, mine, 2)
	assert.Equal(t, second.ID, mine[0].ID)
	assert.Equal(t, first.ID, mine[1].ID)

	none, err := s.ListServicesByUser(ctx, -1)
	require.NoError(t, err)
	assert.Empty(t, none)

	all, err := s.ListServicesWithUsers(ctx)
	require.NoError(t, err)
	owners := map[int64]int64{}
	for i, row := range all {
		owners[row.ID] = row.User.ID
		if i > 0 {
			assert.False(t, row.CreatedAt.After(all[i-1].CreatedAt), "list must be newest first")
		}
	}
	assert.Equal(t, alice.ID, owners[first.ID])
	assert.Equal(t, alice.ID, owners[second.ID])

	_, err = s.FindServiceByID(ctx, -1)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func testUpdates(t *testing.T, s storage.Store) {
	ctx := context.Background()
	owner := createUser(t, s, "carol")
	svc, err := s.CreateService(ctx, models.Service{
		UserID: owner.ID, Type: models.ServiceFunding, Amount: "99.99", Status: models.StatusPending,
		Progress: "0.00", PaymentConfirmed: true,
	})
	require.NoError(t, err)

	generated, path := true, "/contracts/contract-1.pdf"
	withContract, err := s.UpdateService(ctx, svc.ID, storage.ServiceUpdate{ContractGenerated: &generated, ContractPath: &path})
	require.NoError(t, err)
	assert.True(t, withContract.ContractGenerated)
	require.NotNil(t, withContract.ContractPath)
	assert.Equal(t, path, *withContract.ContractPath)
	assert.Equal(t, models.StatusPending, withContract.Status)
	assert.True(t, withContract.UpdatedAt.After(svc.UpdatedAt))

	approved := models.StatusApproved
	updated, err := s.UpdateService(ctx, svc.ID, storage.ServiceUpdate{Status: &approved})
	require.NoError(t, err)
	assert.Equal(t, models.StatusApproved, updated.Status)
	assert.True(t, updated.ContractGenerated)
	assert.True(t, updated.UpdatedAt.After(withContract.UpdatedAt))
	assert.True(t, updated.CreatedAt.Equal(svc.CreatedAt))

	again, err := s.UpdateService(ctx, svc.ID, storage.ServiceUpdate{Status: &approved})
	require.NoError(t, err)
	assert.True(t, again.UpdatedAt.After(updated.UpdatedAt))

	_, err = s.UpdateService(ctx, -1, storage.ServiceUpdate{Status: &approved})
	assert.ErrorIs(t, err, storage.ErrNotFound)
}
