// Package lifecycle owns service requests: it validates and records new
// submissions, drives contract generation and operator notification after
// creation, and enforces the admin review workflow.
package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/hongminglow/flous-cash-be/internal/models"
	"github.com/hongminglow/flous-cash-be/internal/storage"
)

// Store is the subset of the persistence provider the manager needs.
type Store interface {
	FindUserByID(ctx context.Context, id int64) (models.User, error)
	CreateService(ctx context.Context, svc models.Service) (models.Service, error)
	FindServiceByID(ctx context.Context, id int64) (models.Service, error)
	ListServicesByUser(ctx context.Context, userID int64) ([]models.Service, error)
	ListServicesWithUsers(ctx context.Context) ([]models.ServiceWithUser, error)
	UpdateService(ctx context.Context, id int64, update storage.ServiceUpdate) (models.Service, error)
}

// ContractRenderer produces a contract document and returns where it was stored.
type ContractRenderer interface {
	Render(ctx context.Context, svc models.Service, user models.User) (string, error)
}

// ContractStore opens previously rendered documents.
type ContractStore interface {
	Open(ctx context.Context, path string) (io.ReadCloser, error)
}

// Notifier delivers a best-effort summary of a new request to operators.
// It has no error return: delivery failures stay inside the implementation.
type Notifier interface {
	Notify(ctx context.Context, svc models.Service, user models.User)
}

// Options bounds the time spent on external collaborators.
type Options struct {
	RenderTimeout time.Duration
	NotifyTimeout time.Duration
}

// Contract is an open contract document ready to stream.
type Contract struct {
	Name string
	Body io.ReadCloser
}

// Manager is the single authority over service creation and status changes.
type Manager struct {
	store     Store
	renderer  ContractRenderer
	contracts ContractStore
	notifier  Notifier
	opts      Options
	log       *zap.Logger
}

func NewManager(store Store, renderer ContractRenderer, contracts ContractStore, notifier Notifier, opts Options, log *zap.Logger) *Manager {
	if opts.RenderTimeout <= 0 {
		opts.RenderTimeout = 15 * time.Second
	}
	if opts.NotifyTimeout <= 0 {
		opts.NotifyTimeout = 5 * time.Second
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Manager{
		store:     store,
		renderer:  renderer,
		contracts: contracts,
		notifier:  notifier,
		opts:      opts,
		log:       log.Named("lifecycle"),
	}
}

// Submit validates and records a new service request for requesterID, renders
// its contract and notifies operators. A rendering failure leaves the request
// pending without a contract and is returned as a *DependencyError.
func (m *Manager) Submit(ctx context.Context, requesterID int64, in SubmitInput) (models.Service, error) {
	valid, err := validateSubmission(in)
	if err != nil {
		return models.Service{}, err
	}

	user, err := m.store.FindUserByID(ctx, requesterID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return models.Service{}, ErrUnauthenticated
		}
		return models.Service{}, fmt.Errorf("load requester: %w", err)
	}

	svc, err := m.store.CreateService(ctx, models.Service{
		UserID:           user.ID,
		Type:             valid.Type,
		Amount:           valid.Amount,
		Status:           models.StatusPending,
		Purpose:          valid.Purpose,
		TargetDate:       valid.TargetDate,
		Progress:         "0.00",
		PaymentConfirmed: true,
	})
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return models.Service{}, ErrUnauthenticated
		}
		return models.Service{}, fmt.Errorf("create service: %w", err)
	}
	log := m.log.With(zap.Int64("service_id", svc.ID), zap.Int64("user_id", user.ID))
	log.Info("service submitted", zap.String("type", string(svc.Type)), zap.String("amount", svc.Amount))

	path, err := m.render(ctx, svc, user)
	if err != nil {
		log.Error("contract generation failed", zap.Error(err))
		return models.Service{}, &DependencyError{Dependency: "contract", Err: err}
	}

	generated := true
	svc, err = m.store.UpdateService(ctx, svc.ID, storage.ServiceUpdate{
		ContractGenerated: &generated,
		ContractPath:      &path,
	})
	if err != nil {
		return models.Service{}, fmt.Errorf("record contract: %w", err)
	}
	log.Info("contract generated", zap.String("path", path))

	m.notify(ctx, svc, user)
	return svc, nil
}

// ListMine returns the requester's services, newest first.
func (m *Manager) ListMine(ctx context.Context, requesterID int64) ([]models.Service, error) {
	services, err := m.store.ListServicesByUser(ctx, requesterID)
	if err != nil {
		return nil, fmt.Errorf("list services: %w", err)
	}
	return services, nil
}

// ListAllWithOwners returns every service with its owner, newest first.
func (m *Manager) ListAllWithOwners(ctx context.Context, callerIsAdmin bool) ([]models.ServiceWithUser, error) {
	if !callerIsAdmin {
		return nil, ErrForbidden
	}
	services, err := m.store.ListServicesWithUsers(ctx)
	if err != nil {
		return nil, fmt.Errorf("list services with owners: %w", err)
	}
	return services, nil
}

// SetStatus moves a service through the review workflow.
func (m *Manager) SetStatus(ctx context.Context, callerIsAdmin bool, serviceID int64, status models.ServiceStatus) (models.Service, error) {
	if !callerIsAdmin {
		return models.Service{}, ErrForbidden
	}
	if !status.Valid() {
		return models.Service{}, &ValidationError{Field: "status", Message: "حالة غير معروفة"}
	}

	current, err := m.store.FindServiceByID(ctx, serviceID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return models.Service{}, ErrNotFound
		}
		return models.Service{}, fmt.Errorf("load service: %w", err)
	}
	if !CanTransition(current.Status, status) {
		return models.Service{}, &TransitionError{From: current.Status, To: status}
	}

	updated, err := m.store.UpdateService(ctx, serviceID, storage.ServiceUpdate{Status: &status})
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return models.Service{}, ErrNotFound
		}
		return models.Service{}, fmt.Errorf("update status: %w", err)
	}
	m.log.Info("service status changed",
		zap.Int64("service_id", serviceID),
		zap.String("from", string(current.Status)),
		zap.String("to", string(status)),
	)
	return updated, nil
}

// FetchContract opens the contract of one of the requester's services. Absent,
// foreign and contract-less services all report ErrNotFound.
func (m *Manager) FetchContract(ctx context.Context, requesterID, serviceID int64) (Contract, error) {
	svc, err := m.store.FindServiceByID(ctx, serviceID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return Contract{}, ErrNotFound
		}
		return Contract{}, fmt.Errorf("load service: %w", err)
	}
	if svc.UserID != requesterID || !svc.ContractGenerated || svc.ContractPath == nil {
		return Contract{}, ErrNotFound
	}

	body, err := m.contracts.Open(ctx, *svc.ContractPath)
	if err != nil {
		m.log.Warn("contract file unavailable", zap.Int64("service_id", svc.ID), zap.Error(err))
		return Contract{}, ErrNotFound
	}
	return Contract{Name: filepath.Base(*svc.ContractPath), Body: body}, nil
}

// render runs the renderer under RenderTimeout. Expiry counts as failure even
// if the renderer ignores its context.
func (m *Manager) render(ctx context.Context, svc models.Service, user models.User) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, m.opts.RenderTimeout)
	defer cancel()

	type result struct {
		path string
		err  error
	}
	done := make(chan result, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- result{err: fmt.Errorf("renderer panic: %v", r)}
			}
		}()
		path, err := m.renderer.Render(ctx, svc, user)
		done <- result{path: path, err: err}
	}()

	select {
	case res := <-done:
		if res.err == nil && res.path == "" {
			return "", errors.New("renderer returned an empty path")
		}
		return res.path, res.err
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// notify hands the request to the notifier under NotifyTimeout and never
// lets a slow or panicking sink reach the caller.
func (m *Manager) notify(ctx context.Context, svc models.Service, user models.User) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), m.opts.NotifyTimeout)
	defer cancel()

	done := make(chan struct{})
	go func() {
		defer close(done)
		defer func() {
			if r := recover(); r != nil {
				m.log.Error("notifier panic", zap.Int64("service_id", svc.ID), zap.Any("panic", r))
			}
		}()
		m.notifier.Notify(ctx, svc, user)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		m.log.Warn("notification timed out", zap.Int64("service_id", svc.ID))
	}
}
