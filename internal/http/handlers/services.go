package handlers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"github.com/hongminglow/flous-cash-be/internal/auth"
	"github.com/hongminglow/flous-cash-be/internal/http/respond"
	"github.com/hongminglow/flous-cash-be/internal/lifecycle"
	"github.com/hongminglow/flous-cash-be/internal/models"
	"github.com/hongminglow/flous-cash-be/internal/models/dto"
)

// Lifecycle is the service workflow the handlers drive.
type Lifecycle interface {
	Submit(ctx context.Context, requesterID int64, in lifecycle.SubmitInput) (models.Service, error)
	ListMine(ctx context.Context, requesterID int64) ([]models.Service, error)
	ListAllWithOwners(ctx context.Context, callerIsAdmin bool) ([]models.ServiceWithUser, error)
	SetStatus(ctx context.Context, callerIsAdmin bool, serviceID int64, status models.ServiceStatus) (models.Service, error)
	FetchContract(ctx context.Context, requesterID, serviceID int64) (lifecycle.Contract, error)
}

// ServiceHandler exposes customer and admin service endpoints.
type ServiceHandler struct {
	services Lifecycle
	log      *zap.Logger
}

func NewServiceHandler(services Lifecycle, log *zap.Logger) *ServiceHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &ServiceHandler{services: services, log: log.Named("services")}
}

// Register attaches service routes, all of which require authentication.
func (h *ServiceHandler) Register(mux *http.ServeMux, require func(http.Handler) http.Handler) {
	mux.Handle("POST /api/services", require(http.HandlerFunc(h.handleCreate)))
	mux.Handle("GET /api/services", require(http.HandlerFunc(h.handleListMine)))
	mux.Handle("GET /api/services/{id}/contract", require(http.HandlerFunc(h.handleContract)))
	mux.Handle("GET /api/admin/services", require(http.HandlerFunc(h.handleListAll)))
	mux.Handle("PATCH /api/admin/services/{id}", require(http.HandlerFunc(h.handleSetStatus)))
}

func (h *ServiceHandler) handleCreate(w http.ResponseWriter, r *http.Request) {
	id, ok := auth.FromContext(r.Context())
	if !ok {
		respond.Error(w, http.StatusUnauthorized, msgUnauthorized)
		return
	}
	var req dto.CreateServiceRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respond.Error(w, http.StatusBadRequest, msgInvalidPayload)
		return
	}

	svc, err := h.services.Submit(r.Context(), id.User.ID, lifecycle.SubmitInput{
		Type:             req.Type,
		Amount:           string(req.Amount),
		Purpose:          req.Purpose,
		TargetDate:       req.TargetDate,
		PaymentConfirmed: req.PaymentConfirmed,
	})
	if err != nil {
		h.fail(w, r, err, "خطأ في إنشاء الخدمة")
		return
	}
	respond.JSON(w, http.StatusCreated, "تم إنشاء الخدمة بنجاح", svc)
}

func (h *ServiceHandler) handleListMine(w http.ResponseWriter, r *http.Request) {
	id, ok := auth.FromContext(r.Context())
	if !ok {
		respond.Error(w, http.StatusUnauthorized, msgUnauthorized)
		return
	}
	services, err := h.services.ListMine(r.Context(), id.User.ID)
	if err != nil {
		h.fail(w, r, err, "خطأ في جلب الخدمات")
		return
	}
	if services == nil {
		services = []models.Service{}
	}
	respond.JSON(w, http.StatusOK, "ok", services)
}

func (h *ServiceHandler) handleContract(w http.ResponseWriter, r *http.Request) {
	id, ok := auth.FromContext(r.Context())
	if !ok {
		respond.Error(w, http.StatusUnauthorized, msgUnauthorized)
		return
	}
	serviceID, ok := pathID(r)
	if !ok {
		respond.Error(w, http.StatusNotFound, "العقد غير موجود")
		return
	}

	contract, err := h.services.FetchContract(r.Context(), id.User.ID, serviceID)
	if err != nil {
		if errors.Is(err, lifecycle.ErrNotFound) {
			respond.Error(w, http.StatusNotFound, "العقد غير موجود")
			return
		}
		h.fail(w, r, err, "خطأ في تحميل العقد")
		return
	}
	defer contract.Body.Close()

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", contract.Name))
	w.WriteHeader(http.StatusOK)
	if _, err := io.Copy(w, contract.Body); err != nil {
		h.log.Warn("contract stream interrupted", zap.Int64("service_id", serviceID), zap.Error(err))
	}
}

func (h *ServiceHandler) handleListAll(w http.ResponseWriter, r *http.Request) {
	id, ok := auth.FromContext(r.Context())
	if !ok {
		respond.Error(w, http.StatusUnauthorized, msgUnauthorized)
		return
	}
	if !id.User.IsAdmin {
		h.fail(w, r, lifecycle.ErrForbidden, "")
		return
	}
	services, err := h.services.ListAllWithOwners(r.Context(), id.User.IsAdmin)
	if err != nil {
		h.fail(w, r, err, "خطأ في جلب الخدمات")
		return
	}
	if services == nil {
		services = []models.ServiceWithUser{}
	}
	respond.JSON(w, http.StatusOK, "ok", services)
}

func (h *ServiceHandler) handleSetStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := auth.FromContext(r.Context())
	if !ok {
		respond.Error(w, http.StatusUnauthorized, msgUnauthorized)
		return
	}
	if !id.User.IsAdmin {
		h.fail(w, r, lifecycle.ErrForbidden, "")
		return
	}
	serviceID, ok := pathID(r)
	if !ok {
		respond.Error(w, http.StatusNotFound, "الخدمة غير موجودة")
		return
	}
	var req dto.UpdateServiceStatusRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respond.Error(w, http.StatusBadRequest, msgInvalidPayload)
		return
	}

	svc, err := h.services.SetStatus(r.Context(), id.User.IsAdmin, serviceID, models.ServiceStatus(req.Status))
	if err != nil {
		h.fail(w, r, err, "خطأ في تحديث الخدمة")
		return
	}
	respond.JSON(w, http.StatusOK, "تم تحديث حالة الخدمة", svc)
}

// fail maps lifecycle errors onto status codes. Anything unrecognised is a
// 500 with the generic message; the cause is only logged.
func (h *ServiceHandler) fail(w http.ResponseWriter, r *http.Request, err error, generic string) {
	var validation *lifecycle.ValidationError
	switch {
	case errors.As(err, &validation):
		respond.Error(w, http.StatusBadRequest, validation.Message)
	case errors.Is(err, lifecycle.ErrUnauthenticated):
		respond.Error(w, http.StatusUnauthorized, msgUnauthorized)
	case errors.Is(err, lifecycle.ErrForbidden):
		respond.Error(w, http.StatusForbidden, "غير مسموح")
	case errors.Is(err, lifecycle.ErrNotFound):
		respond.Error(w, http.StatusNotFound, "الخدمة غير موجودة")
	case errors.Is(err, lifecycle.ErrInvalidTransition):
		respond.Error(w, http.StatusConflict, "لا يمكن تغيير حالة الخدمة إلى هذه الحالة")
	default:
		h.log.Error("request failed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Error(err),
		)
		respond.Error(w, http.StatusInternalServerError, generic)
	}
}

func pathID(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}
