package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/hongminglow/flous-cash-be/internal/auth"
	"github.com/hongminglow/flous-cash-be/internal/http/respond"
	"github.com/hongminglow/flous-cash-be/internal/models"
	"github.com/hongminglow/flous-cash-be/internal/models/dto"
	"github.com/hongminglow/flous-cash-be/internal/storage"
)

const (
	msgInvalidPayload     = "بيانات غير صالحة"
	msgInvalidCredentials = "اسم المستخدم أو كلمة المرور غير صحيحة"
	msgUserExists         = "اسم المستخدم أو البريد الإلكتروني مستخدم بالفعل"
	msgUnauthorized       = "غير مصرح"
	msgInternal           = "حدث خطأ في الخادم"
)

// TokenIssuer signs access tokens for users.
type TokenIssuer interface {
	Generate(user models.User) (string, error)
}

// Revoker invalidates a token for the rest of its lifetime.
type Revoker interface {
	Add(ctx context.Context, token string, ttl time.Duration) error
}

// AuthHandler owns register, login, logout and current-user endpoints.
type AuthHandler struct {
	store    storage.UserStore
	tokens   TokenIssuer
	revoker  Revoker
	validate *validator.Validate
	log      *zap.Logger
}

// NewAuthHandler constructs the handler.
func NewAuthHandler(store storage.UserStore, tokens TokenIssuer, revoker Revoker, log *zap.Logger) *AuthHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &AuthHandler{
		store:    store,
		tokens:   tokens,
		revoker:  revoker,
		validate: newValidator(),
		log:      log.Named("auth"),
	}
}

// Register attaches the public auth routes to the mux.
func (h *AuthHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/register", h.handleRegister)
	mux.HandleFunc("POST /api/login", h.handleLogin)
}

// RegisterProtected attaches routes that need an authenticated caller.
func (h *AuthHandler) RegisterProtected(mux *http.ServeMux, require func(http.Handler) http.Handler) {
	mux.Handle("POST /api/logout", require(http.HandlerFunc(h.handleLogout)))
	mux.Handle("GET /api/user", require(http.HandlerFunc(h.handleCurrentUser)))
}

func (h *AuthHandler) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req dto.RegisterRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respond.Error(w, http.StatusBadRequest, msgInvalidPayload)
		return
	}
	normalizeRegistration(&req)
	if err := h.validate.Struct(req); err != nil {
		respond.Error(w, http.StatusBadRequest, validationMessage(err))
		return
	}

	passwordHash, err := auth.HashPassword(req.Password)
	if err != nil {
		h.log.Error("hash password failed", zap.Error(err))
		respond.Error(w, http.StatusInternalServerError, msgInternal)
		return
	}

	created, err := h.store.CreateUser(r.Context(), models.User{
		Username:     req.Username,
		Email:        req.Email,
		PasswordHash: passwordHash,
		FullName:     req.FullName,
		NationalID:   req.NationalID,
		Phone:        req.Phone,
		Job:          req.Job,
		Address:      req.Address,
	})
	if err != nil {
		if errors.Is(err, storage.ErrAlreadyExists) {
			respond.Error(w, http.StatusConflict, msgUserExists)
			return
		}
		h.log.Error("create user failed", zap.String("username", req.Username), zap.Error(err))
		respond.Error(w, http.StatusInternalServerError, msgInternal)
		return
	}

	token, err := h.tokens.Generate(created)
	if err != nil {
		h.log.Error("generate token failed", zap.Int64("user_id", created.ID), zap.Error(err))
		respond.Error(w, http.StatusInternalServerError, msgInternal)
		return
	}
	h.log.Info("user registered", zap.Int64("user_id", created.ID))
	respond.JSON(w, http.StatusCreated, "تم إنشاء الحساب بنجاح", dto.LoginResponse{Token: token, User: created})
}

func (h *AuthHandler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req dto.LoginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respond.Error(w, http.StatusBadRequest, msgInvalidPayload)
		return
	}
	identifier := strings.TrimSpace(req.Identifier)
	if identifier == "" {
		identifier = strings.TrimSpace(req.Username)
	}
	if identifier == "" || req.Password == "" {
		respond.Error(w, http.StatusBadRequest, "اسم المستخدم وكلمة المرور مطلوبان")
		return
	}
	if strings.Contains(identifier, "@") {
		identifier = strings.ToLower(identifier)
	}

	user, err := h.store.FindByUsernameOrEmail(r.Context(), identifier)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			respond.Error(w, http.StatusUnauthorized, msgInvalidCredentials)
			return
		}
		h.log.Error("login lookup failed", zap.Error(err))
		respond.Error(w, http.StatusInternalServerError, msgInternal)
		return
	}
	if !auth.CheckPassword(user.PasswordHash, req.Password) {
		respond.Error(w, http.StatusUnauthorized, msgInvalidCredentials)
		return
	}

	token, err := h.tokens.Generate(user)
	if err != nil {
		h.log.Error("generate token failed", zap.Int64("user_id", user.ID), zap.Error(err))
		respond.Error(w, http.StatusInternalServerError, msgInternal)
		return
	}
	respond.JSON(w, http.StatusOK, "تم تسجيل الدخول بنجاح", dto.LoginResponse{Token: token, User: user})
}

func (h *AuthHandler) handleLogout(w http.ResponseWriter, r *http.Request) {
	id, ok := auth.FromContext(r.Context())
	if !ok {
		respond.Error(w, http.StatusUnauthorized, msgUnauthorized)
		return
	}
	if err := h.revoker.Add(r.Context(), id.Token, time.Until(id.Claims.ExpiresAt)); err != nil {
		h.log.Error("revoke token failed", zap.Int64("user_id", id.User.ID), zap.Error(err))
		respond.Error(w, http.StatusInternalServerError, msgInternal)
		return
	}
	respond.JSON(w, http.StatusOK, "تم تسجيل الخروج", nil)
}

func (h *AuthHandler) handleCurrentUser(w http.ResponseWriter, r *http.Request) {
	id, ok := auth.FromContext(r.Context())
	if !ok {
		respond.Error(w, http.StatusUnauthorized, msgUnauthorized)
		return
	}
	respond.JSON(w, http.StatusOK, "ok", id.User)
}

func normalizeRegistration(req *dto.RegisterRequest) {
	req.Username = strings.TrimSpace(req.Username)
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	req.FullName = strings.TrimSpace(req.FullName)
	req.NationalID = strings.TrimSpace(req.NationalID)
	req.Phone = strings.TrimSpace(req.Phone)
	req.Job = strings.TrimSpace(req.Job)
	req.Address = strings.TrimSpace(req.Address)
}
