// Package notify tells operators about new service requests. Every sink is
// best-effort: failures are logged and never reach the request path.
package notify

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/hongminglow/flous-cash-be/internal/models"
)

// RoutingKey identifies service creation events on the stream and the exchange.
const RoutingKey = "service.created"

// Notifier is a single delivery channel.
type Notifier interface {
	Notify(ctx context.Context, svc models.Service, user models.User)
}

// ServiceCreated is the event payload published for downstream consumers.
type ServiceCreated struct {
	ServiceID int64              `json:"serviceId"`
	UserID    int64              `json:"userId"`
	Type      models.ServiceType `json:"type"`
	Amount    string             `json:"amount"`
	Purpose   *string            `json:"purpose,omitempty"`
	Customer  string             `json:"customer"`
	Phone     string             `json:"phone"`
	CreatedAt time.Time          `json:"createdAt"`
}

func newServiceCreated(svc models.Service, user models.User) ServiceCreated {
	return ServiceCreated{
		ServiceID: svc.ID,
		UserID:    user.ID,
		Type:      svc.Type,
		Amount:    svc.Amount,
		Purpose:   svc.Purpose,
		Customer:  user.FullName,
		Phone:     user.Phone,
		CreatedAt: svc.CreatedAt,
	}
}

// Fanout delivers to every sink in order. A panicking sink is logged and the
// remaining sinks still run.
type Fanout struct {
	sinks []Notifier
	log   *zap.Logger
}

func NewFanout(log *zap.Logger, sinks ...Notifier) *Fanout {
	if log == nil {
		log = zap.NewNop()
	}
	return &Fanout{sinks: sinks, log: log.Named("notify")}
}

func (f *Fanout) Notify(ctx context.Context, svc models.Service, user models.User) {
	for _, sink := range f.sinks {
		f.deliver(ctx, sink, svc, user)
	}
}

func (f *Fanout) deliver(ctx context.Context, sink Notifier, svc models.Service, user models.User) {
	defer func() {
		if r := recover(); r != nil {
			f.log.Error("notifier panic", zap.Int64("service_id", svc.ID), zap.Any("panic", r))
		}
	}()
	sink.Notify(ctx, svc, user)
}

// Log writes a structured line per request.
type Log struct {
	log *zap.Logger
}

func NewLog(log *zap.Logger) *Log {
	if log == nil {
		log = zap.NewNop()
	}
	return &Log{log: log.Named("notify")}
}

func (l *Log) Notify(_ context.Context, svc models.Service, user models.User) {
	l.log.Info("new service request",
		zap.Int64("service_id", svc.ID),
		zap.Int64("user_id", user.ID),
		zap.String("type", string(svc.Type)),
		zap.String("amount", svc.Amount),
	)
}
