package models

import (
	"encoding/json"
	"strings"
	"time"
)

// ServiceType is the kind of financial service a customer requests.
type ServiceType string

const (
	ServiceFunding    ServiceType = "funding"
	ServiceSaving     ServiceType = "saving"
	ServiceInvestment ServiceType = "investment"
)

// ParseServiceType normalises s and reports whether it names a known service type.
func ParseServiceType(s string) (ServiceType, bool) {
	t := ServiceType(strings.ToLower(strings.TrimSpace(s)))
	return t, t.Valid()
}

// Valid reports whether t is one of the recognised kinds.
func (t ServiceType) Valid() bool {
	switch t {
	case ServiceFunding, ServiceSaving, ServiceInvestment:
		return true
	}
	return false
}

// Label returns the customer-facing Arabic name used in contracts and operator messages.
func (t ServiceType) Label() string {
	switch t {
	case ServiceFunding:
		return "تمويل سريع"
	case ServiceSaving:
		return "تحويش ذكي"
	case ServiceInvestment:
		return "استثمار مربح"
	}
	return string(t)
}

// ServiceStatus is the review state of a service request.
type ServiceStatus string

const (
	StatusPending   ServiceStatus = "pending"
	StatusApproved  ServiceStatus = "approved"
	StatusRejected  ServiceStatus = "rejected"
	StatusCompleted ServiceStatus = "completed"
)

// Valid reports whether s is one of the four review states.
func (s ServiceStatus) Valid() bool {
	switch s {
	case StatusPending, StatusApproved, StatusRejected, StatusCompleted:
		return true
	}
	return false
}

// Label returns the Arabic display label shown on dashboards.
func (s ServiceStatus) Label() string {
	switch s {
	case StatusPending:
		return "قيد المراجعة"
	case StatusApproved:
		return "موافق عليه"
	case StatusRejected:
		return "مرفوض"
	case StatusCompleted:
		return "مكتمل"
	}
	return string(s)
}

// Service is a customer's funding, saving or investment request.
// Amount and Progress hold fixed two-decimal strings, e.g. "500.00".
type Service struct {
	ID                int64           `json:"id"`
	UserID            int64           `json:"userId"`
	Type              ServiceType     `json:"type"`
	Amount            string          `json:"amount"`
	Status            ServiceStatus   `json:"status"`
	Purpose           *string         `json:"purpose"`
	TargetDate        *time.Time      `json:"targetDate"`
	Progress          string          `json:"progress"`
	PaymentConfirmed  bool            `json:"paymentConfirmed"`
	ContractGenerated bool            `json:"contractGenerated"`
	ContractPath      *string         `json:"-"`
	Details           json.RawMessage `json:"details"`
	CreatedAt         time.Time       `json:"createdAt"`
	UpdatedAt         time.Time       `json:"updatedAt"`
}

// ServiceWithUser pairs a service with its owner for the admin review list.
type ServiceWithUser struct {
	Service
	User User `json:"user"`
}
