package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hongminglow/flous-cash-be/internal/models"
	"github.com/hongminglow/flous-cash-be/internal/storage"
	"github.com/hongminglow/flous-cash-be/internal/storage/storagetest"
)

func TestStoreContract(t *testing.T) {
	storagetest.Run(t, func(*testing.T) storage.Store { return NewStore() })
}

func TestTickIsStrictlyIncreasing(t *testing.T) {
	s := NewStore()
	frozen := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return frozen }

	first := s.tick()
	second := s.tick()
	assert.Equal(t, frozen, first)
	assert.True(t, second.After(first))
}

func TestCreateServiceDefaults(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	user, err := s.CreateUser(ctx, models.User{Username: "u", Email: "u@example.com"})
	require.NoError(t, err)

	svc, err := s.CreateService(ctx, models.Service{UserID: user.ID, Type: models.ServiceSaving, Amount: "5.00"})
	require.NoError(t, err)
	assert.Equal(t, models.StatusPending, svc.Status)
	assert.Equal(t, "0.00", svc.Progress)
	assert.Equal(t, svc.CreatedAt, svc.UpdatedAt)
}

func TestUpdateServiceCopiesContractPath(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	user, err := s.CreateUser(ctx, models.User{Username: "u", Email: "u@example.com"})
	require.NoError(t, err)
	svc, err := s.CreateService(ctx, models.Service{UserID: user.ID, Type: models.ServiceSaving, Amount: "5.00"})
	require.NoError(t, err)

	path := "/tmp/a.pdf"
	_, err = s.UpdateService(ctx, svc.ID, storage.ServiceUpdate{ContractPath: &path})
	require.NoError(t, err)
	path = "/tmp/changed.pdf"

	stored, err := s.FindServiceByID(ctx, svc.ID)
	require.NoError(t, err)
	assert.Equal(t, "/tmp/a.pdf", *stored.ContractPath)
}
