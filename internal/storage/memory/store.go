// Package memory is an in-process storage.Store used by tests and by
// STORAGE_DRIVER=memory local runs. Data does not survive a restart.
package memory

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/hongminglow/flous-cash-be/internal/models"
	"github.com/hongminglow/flous-cash-be/internal/storage"
)

var _ storage.Store = (*Store)(nil)

type Store struct {
	mu       sync.RWMutex
	users    map[int64]models.User
	services map[int64]models.Service
	nextUser int64
	nextSvc  int64
	now      func() time.Time
	last     time.Time
}

func NewStore() *Store {
	return &Store{
		users:    make(map[int64]models.User),
		services: make(map[int64]models.Service),
		now:      time.Now,
	}
}

func (s *Store) Close() {}

// tick returns a timestamp strictly after every previously issued one.
func (s *Store) tick() time.Time {
	t := s.now().UTC()
	if !t.After(s.last) {
		t = s.last.Add(time.Microsecond)
	}
	s.last = t
	return t
}

func (s *Store) CreateUser(_ context.Context, user models.User) (models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.users {
		if existing.Username == user.Username || existing.Email == user.Email {
			return models.User{}, storage.ErrAlreadyExists
		}
	}
	s.nextUser++
	user.ID = s.nextUser
	user.CreatedAt = s.tick()
	s.users[user.ID] = user
	return user, nil
}

func (s *Store) FindUserByID(_ context.Context, id int64) (models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	user, ok := s.users[id]
	if !ok {
		return models.User{}, storage.ErrNotFound
	}
	return user, nil
}

func (s *Store) FindByUsername(_ context.Context, username string) (models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, user := range s.users {
		if user.Username == username {
			return user, nil
		}
	}
	return models.User{}, storage.ErrNotFound
}

func (s *Store) FindByUsernameOrEmail(_ context.Context, identifier string) (models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var match *models.User
	for _, user := range s.users {
		if user.Username == identifier || user.Email == identifier {
			if match == nil || user.ID < match.ID {
				u := user
				match = &u
			}
		}
	}
	if match == nil {
		return models.User{}, storage.ErrNotFound
	}
	return *match, nil
}

func (s *Store) CreateService(_ context.Context, svc models.Service) (models.Service, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[svc.UserID]; !ok {
		return models.Service{}, storage.ErrNotFound
	}
	s.nextSvc++
	svc.ID = s.nextSvc
	if svc.Status == "" {
		svc.Status = models.StatusPending
	}
	if svc.Progress == "" {
		svc.Progress = "0.00"
	}
	now := s.tick()
	svc.CreatedAt = now
	svc.UpdatedAt = now
	s.services[svc.ID] = svc
	return svc, nil
}

func (s *Store) FindServiceByID(_ context.Context, id int64) (models.Service, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	svc, ok := s.services[id]
	if !ok {
		return models.Service{}, storage.ErrNotFound
	}
	return svc, nil
}

func (s *Store) ListServicesByUser(_ context.Context, userID int64) ([]models.Service, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := []models.Service{}
	for _, svc := range s.services {
		if svc.UserID == userID {
			out = append(out, svc)
		}
	}
	slices.SortFunc(out, newestFirst)
	return out, nil
}

func (s *Store) ListServicesWithUsers(_ context.Context) ([]models.ServiceWithUser, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	services := make([]models.Service, 0, len(s.services))
	for _, svc := range s.services {
		services = append(services, svc)
	}
	slices.SortFunc(services, newestFirst)

	out := make([]models.ServiceWithUser, 0, len(services))
	for _, svc := range services {
		out = append(out, models.ServiceWithUser{Service: svc, User: s.users[svc.UserID]})
	}
	return out, nil
}

func (s *Store) UpdateService(_ context.Context, id int64, update storage.ServiceUpdate) (models.Service, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	svc, ok := s.services[id]
	if !ok {
		return models.Service{}, storage.ErrNotFound
	}
	if update.Status != nil {
		svc.Status = *update.Status
	}
	if update.ContractGenerated != nil {
		svc.ContractGenerated = *update.ContractGenerated
	}
	if update.ContractPath != nil {
		path := *update.ContractPath
		svc.ContractPath = &path
	}
	svc.UpdatedAt = s.tick()
	s.services[id] = svc
	return svc, nil
}

func newestFirst(a, b models.Service) int {
	if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
		return c
	}
	switch {
	case a.ID > b.ID:
		return -1
	case a.ID < b.ID:
		return 1
	}
	return 0
}
