package cache

import (
	"context"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/hongminglow/flous-cash-be/internal/models"
	"github.com/hongminglow/flous-cash-be/internal/storage"
)

const userKeyPrefix = "user:view:"

// Store reads users by id through Redis and falls back to the wrapped store
// on a miss. Cached users carry no password hash; credential checks go through
// the lookups that bypass the cache.
type Store struct {
	storage.Store
	users *View[models.User]
}

func NewStore(next storage.Store, client *redis.Client, ttl time.Duration, log *zap.Logger) *Store {
	if log == nil {
		log = zap.NewNop()
	}
	return &Store{
		Store: next,
		users: NewView[models.User](client, ttl, log.Named("cache")),
	}
}

func (s *Store) FindUserByID(ctx context.Context, id int64) (models.User, error) {
	key := userKey(id)
	if user, ok := s.users.Get(ctx, key); ok {
		return user, nil
	}
	user, err := s.Store.FindUserByID(ctx, id)
	if err != nil {
		return models.User{}, err
	}
	s.users.Set(ctx, key, user)
	return user, nil
}

// CreateUser clears any stale entry left under the new id.
func (s *Store) CreateUser(ctx context.Context, user models.User) (models.User, error) {
	created, err := s.Store.CreateUser(ctx, user)
	if err != nil {
		return models.User{}, err
	}
	s.users.Delete(ctx, userKey(created.ID))
	return created, nil
}

func userKey(id int64) string {
	return userKeyPrefix + strconv.FormatInt(id, 10)
}
