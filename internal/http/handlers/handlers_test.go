package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hongminglow/flous-cash-be/internal/auth"
	"github.com/hongminglow/flous-cash-be/internal/contract"
	"github.com/hongminglow/flous-cash-be/internal/lifecycle"
	"github.com/hongminglow/flous-cash-be/internal/middleware"
	"github.com/hongminglow/flous-cash-be/internal/models"
	"github.com/hongminglow/flous-cash-be/internal/models/dto"
	"github.com/hongminglow/flous-cash-be/internal/notify"
	"github.com/hongminglow/flous-cash-be/internal/storage/memory"
)

type envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

type apiFixture struct {
	t      *testing.T
	store  *memory.Store
	tokens *auth.TokenManager
	mux    http.Handler
}

func newAPIFixture(t *testing.T) *apiFixture {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	store := memory.NewStore()
	tokens := auth.NewTokenManager("test-secret", "flous-cash-backend", time.Hour)
	denylist := auth.NewDenylist(client)

	files, err := contract.NewFileStore(t.TempDir())
	require.NoError(t, err)
	manager := lifecycle.NewManager(store, contract.NewPDFRenderer(files, "01026751430", nil), files,
		notify.NewLog(nil), lifecycle.Options{}, nil)

	mux := http.NewServeMux()
	authn := middleware.NewAuthenticator(tokens, denylist, store, nil)
	authHandler := NewAuthHandler(store, tokens, denylist, nil)
	authHandler.Register(mux)
	authHandler.RegisterProtected(mux, authn.Require)
	NewServiceHandler(manager, nil).Register(mux, authn.Require)
	NewHealthHandler(time.Now()).Register(mux)

	return &apiFixture{t: t, store: store, tokens: tokens, mux: mux}
}

func (f *apiFixture) do(method, path, token string, body any) (*httptest.ResponseRecorder, envelope) {
	f.t.Helper()
	var reader *bytes.Reader
	switch b := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case string:
		reader = bytes.NewReader([]byte(b))
	default:
		raw, err := json.Marshal(b)
		require.NoError(f.t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	f.mux.ServeHTTP(rec, req)

	var env envelope
	if strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json") {
		require.NoError(f.t, json.Unmarshal(rec.Body.Bytes(), &env))
	}
	return rec, env
}

func (f *apiFixture) register(username string) (string, models.User) {
	f.t.Helper()
	rec, env := f.do(http.MethodPost, "/api/register", "", map[string]string{
		"username":   username,
		"email":      username + "@example.com",
		"password":   "password123",
		"fullName":   strings.ToUpper(username[:1]) + username[1:],
		"nationalId": "29001011234567",
		"phone":      "01000000000",
		"job":        "Engineer",
		"address":    "Cairo",
	})
	require.Equal(f.t, http.StatusCreated, rec.Code, env.Message)
	var out dto.LoginResponse
	require.NoError(f.t, json.Unmarshal(env.Data, &out))
	return out.Token, out.User
}

func (f *apiFixture) admin() string {
	f.t.Helper()
	hash, err := auth.HashPassword("admin-password")
	require.NoError(f.t, err)
	admin, err := f.store.CreateUser(context.Background(), models.User{
		Username: "admin", Email: "admin@example.com", PasswordHash: hash, IsAdmin: true,
	})
	require.NoError(f.t, err)
	token, err := f.tokens.Generate(admin)
	require.NoError(f.t, err)
	return token
}

func TestHealth(t *testing.T) {
	f := newAPIFixture(t)
	rec, env := f.do(http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, string(env.Data), `"status":"ok"`)
}

func TestRegisterAndLogin(t *testing.T) {
	f := newAPIFixture(t)
	token, user := f.register("alice")
	assert.NotEmpty(t, token)
	assert.Equal(t, "alice@example.com", user.Email)
	assert.False(t, user.IsAdmin)

	rec, env := f.do(http.MethodPost, "/api/register", "", map[string]string{
		"username": "alice", "email": "other@example.com", "password": "password123",
		"fullName": "A", "nationalId": "1", "phone": "1", "job": "j", "address": "a",
	})
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, msgUserExists, env.Message)

	rec, env = f.do(http.MethodPost, "/api/login", "", map[string]string{"identifier": "ALICE@example.com", "password": "password123"})
	assert.Equal(t, http.StatusOK, rec.Code)
	var login dto.LoginResponse
	require.NoError(t, json.Unmarshal(env.Data, &login))
	assert.Equal(t, user.ID, login.User.ID)

	rec, _ = f.do(http.MethodPost, "/api/login", "", map[string]string{"username": "alice", "password": "password123"})
	assert.Equal(t, http.StatusOK, rec.Code)

	rec, env = f.do(http.MethodPost, "/api/login", "", map[string]string{"identifier": "alice", "password": "wrong-password"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, msgInvalidCredentials, env.Message)

	rec, _ = f.do(http.MethodPost, "/api/login", "", map[string]string{"identifier": "nobody", "password": "password123"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec, _ = f.do(http.MethodPost, "/api/login", "", map[string]string{"identifier": "alice"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRegisterValidation(t *testing.T) {
	f := newAPIFixture(t)
	base := func() map[string]string {
		return map[string]string{
			"username": "carol", "email": "carol@example.com", "password": "password123",
			"fullName": "Carol", "nationalId": "1", "phone": "1", "job": "j", "address": "a",
		}
	}

	tests := []struct {
		name    string
		mutate  func(map[string]string)
		message string
	}{
		{name: "missing full name", mutate: func(m map[string]string) { delete(m, "fullName") }, message: "الحقل fullName مطلوب"},
		{name: "blank address", mutate: func(m map[string]string) { m["address"] = "   " }, message: "الحقل address مطلوب"},
		{name: "bad email", mutate: func(m map[string]string) { m["email"] = "not-an-email" }, message: "البريد الإلكتروني غير صالح"},
		{name: "short password", mutate: func(m map[string]string) { m["password"] = "short" }, message: "الحقل password يجب ألا يقل عن 8 أحرف"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			body := base()
			tc.mutate(body)
			rec, env := f.do(http.MethodPost, "/api/register", "", body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Equal(t, tc.message, env.Message)
		})
	}

	rec, env := f.do(http.MethodPost, "/api/register", "", "{broken")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, msgInvalidPayload, env.Message)
}

func TestCurrentUserAndLogout(t *testing.T) {
	f := newAPIFixture(t)
	token, user := f.register("alice")

	rec, env := f.do(http.MethodGet, "/api/user", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var me models.User
	require.NoError(t, json.Unmarshal(env.Data, &me))
	assert.Equal(t, user.ID, me.ID)
	assert.NotContains(t, string(env.Data), "password")

	rec, _ = f.do(http.MethodPost, "/api/logout", token, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec, _ = f.do(http.MethodGet, "/api/user", token, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestServiceEndpointsRequireAuth(t *testing.T) {
	f := newAPIFixture(t)
	for _, route := range []struct{ method, path string }{
		{http.MethodPost, "/api/services"},
		{http.MethodGet, "/api/services"},
		{http.MethodGet, "/api/services/1/contract"},
		{http.MethodGet, "/api/admin/services"},
		{http.MethodPatch, "/api/admin/services/1"},
	} {
		rec, _ := f.do(route.method, route.path, "", nil)
		assert.Equal(t, http.StatusUnauthorized, rec.Code, route.path)
	}
}

func TestCreateAndListServices(t *testing.T) {
	f := newAPIFixture(t)
	token, user := f.register("alice")

	rec, env := f.do(http.MethodPost, "/api/services", token, `{"type":"funding","amount":500,"purpose":"  Shop  ","paymentConfirmed":true}`)
	require.Equal(t, http.StatusCreated, rec.Code, env.Message)
	var svc models.Service
	require.NoError(t, json.Unmarshal(env.Data, &svc))
	assert.Equal(t, user.ID, svc.UserID)
	assert.Equal(t, "500.00", svc.Amount)
	assert.Equal(t, models.StatusPending, svc.Status)
	assert.True(t, svc.ContractGenerated)
	assert.NotContains(t, string(env.Data), "contractPath")
	assert.NotContains(t, string(env.Data), ".pdf")
	require.NotNil(t, svc.Purpose)
	assert.Equal(t, "Shop", *svc.Purpose)

	rec, env = f.do(http.MethodPost, "/api/services", token, `{"type":"saving","amount":"250.5","targetDate":"2027-01-31","paymentConfirmed":true}`)
	require.Equal(t, http.StatusCreated, rec.Code, env.Message)

	rec, env = f.do(http.MethodGet, "/api/services", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var mine []models.Service
	require.NoError(t, json.Unmarshal(env.Data, &mine))
	require.Len(t, mine, 2)
	assert.Equal(t, models.ServiceSaving, mine[0].Type)
	assert.Equal(t, "250.50", mine[0].Amount)

	other, _ := f.register("bob")
	rec, env = f.do(http.MethodGet, "/api/services", other, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, string(env.Data))
}

func TestCreateServiceValidation(t *testing.T) {
	f := newAPIFixture(t)
	token, _ := f.register("alice")

	for _, body := range []string{
		`{"type":"funding","amount":500,"paymentConfirmed":false}`,
		`{"type":"loan","amount":500,"paymentConfirmed":true}`,
		`{"type":"funding","amount":"abc","paymentConfirmed":true}`,
		`{"type":"funding","amount":-5,"paymentConfirmed":true}`,
		`{"type":"funding","amount":500,"targetDate":"tomorrow","paymentConfirmed":true}`,
		`{"type":"funding","amount":true}`,
	} {
		rec, env := f.do(http.MethodPost, "/api/services", token, body)
		assert.Equal(t, http.StatusBadRequest, rec.Code, body)
		assert.NotEmpty(t, env.Message, body)
	}

	rec, env := f.do(http.MethodGet, "/api/services", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, string(env.Data))
}

func TestDownloadContract(t *testing.T) {
	f := newAPIFixture(t)
	token, _ := f.register("alice")
	other, _ := f.register("bob")

	rec, env := f.do(http.MethodPost, "/api/services", token, `{"type":"investment","amount":"1000","paymentConfirmed":true}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	var svc models.Service
	require.NoError(t, json.Unmarshal(env.Data, &svc))

	path := fmt.Sprintf("/api/services/%d/contract", svc.ID)
	rec, _ = f.do(http.MethodGet, path, token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/pdf", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "attachment;")
	assert.True(t, bytes.HasPrefix(rec.Body.Bytes(), []byte("%PDF")))

	rec, _ = f.do(http.MethodGet, path, other, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec, _ = f.do(http.MethodGet, "/api/services/9999/contract", token, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec, _ = f.do(http.MethodGet, "/api/services/abc/contract", token, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAdminEndpoints(t *testing.T) {
	f := newAPIFixture(t)
	customer, user := f.register("alice")
	admin := f.admin()

	rec, env := f.do(http.MethodPost, "/api/services", customer, `{"type":"funding","amount":500,"paymentConfirmed":true}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	var svc models.Service
	require.NoError(t, json.Unmarshal(env.Data, &svc))

	rec, _ = f.do(http.MethodGet, "/api/admin/services", customer, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec, env = f.do(http.MethodGet, "/api/admin/services", admin, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var all []models.ServiceWithUser
	require.NoError(t, json.Unmarshal(env.Data, &all))
	require.Len(t, all, 1)
	assert.Equal(t, user.FullName, all[0].User.FullName)

	path := fmt.Sprintf("/api/admin/services/%d", svc.ID)
	forbidden := []struct {
		name string
		path string
		body any
	}{
		{name: "own service", path: path, body: map[string]string{"status": "approved"}},
		{name: "malformed id", path: "/api/admin/services/abc", body: map[string]string{"status": "approved"}},
		{name: "zero id", path: "/api/admin/services/0", body: map[string]string{"status": "approved"}},
		{name: "missing service", path: "/api/admin/services/9999", body: map[string]string{"status": "approved"}},
		{name: "malformed body", path: path, body: "not json"},
		{name: "unknown status", path: path, body: map[string]string{"status": "archived"}},
	}
	for _, tc := range forbidden {
		t.Run("customer "+tc.name, func(t *testing.T) {
			rec, env := f.do(http.MethodPatch, tc.path, customer, tc.body)
			assert.Equal(t, http.StatusForbidden, rec.Code)
			assert.Equal(t, http.StatusForbidden, env.Code)
		})
	}

	rec, env = f.do(http.MethodPatch, path, admin, map[string]string{"status": "approved"})
	require.Equal(t, http.StatusOK, rec.Code)
	var updated models.Service
	require.NoError(t, json.Unmarshal(env.Data, &updated))
	assert.Equal(t, models.StatusApproved, updated.Status)
	assert.True(t, updated.UpdatedAt.After(svc.UpdatedAt))

	rec, _ = f.do(http.MethodPatch, path, admin, map[string]string{"status": "pending"})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec, _ = f.do(http.MethodPatch, path, admin, map[string]string{"status": "archived"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, _ = f.do(http.MethodPatch, "/api/admin/services/9999", admin, map[string]string{"status": "approved"})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec, _ = f.do(http.MethodPatch, path, admin, map[string]string{"status": "completed"})
	assert.Equal(t, http.StatusOK, rec.Code)
}
