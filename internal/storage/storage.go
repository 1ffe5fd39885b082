package storage

import (
	"context"
	"errors"

	"github.com/hongminglow/flous-cash-be/internal/models"
)

// ErrNotFound indicates a record does not exist.
var ErrNotFound = errors.New("record not found")

// ErrAlreadyExists indicates a uniqueness conflict.
var ErrAlreadyExists = errors.New("record already exists")

// UserStore captures persistence operations on users.
type UserStore interface {
	CreateUser(ctx context.Context, user models.User) (models.User, error)
	FindUserByID(ctx context.Context, id int64) (models.User, error)
	FindByUsername(ctx context.Context, username string) (models.User, error)
	FindByUsernameOrEmail(ctx context.Context, identifier string) (models.User, error)
}

// ServiceUpdate is a partial update; nil fields are left untouched.
// Every applied update refreshes updated_at.
type ServiceUpdate struct {
	Status            *models.ServiceStatus
	ContractGenerated *bool
	ContractPath      *string
}

// ServiceStore captures persistence operations on service requests.
// List operations return newest first by creation time.
type ServiceStore interface {
	CreateService(ctx context.Context, svc models.Service) (models.Service, error)
	FindServiceByID(ctx context.Context, id int64) (models.Service, error)
	ListServicesByUser(ctx context.Context, userID int64) ([]models.Service, error)
	ListServicesWithUsers(ctx context.Context) ([]models.ServiceWithUser, error)
	UpdateService(ctx context.Context, id int64, update ServiceUpdate) (models.Service, error)
}

// Store is the full persistence provider.
type Store interface {
	UserStore
	ServiceStore
	Close()
}
