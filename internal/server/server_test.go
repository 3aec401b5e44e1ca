package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/suteetoe/society-service/internal/model"
	"github.com/suteetoe/society-service/internal/notify"
	"github.com/suteetoe/society-service/internal/service"
	"github.com/suteetoe/society-service/pkg/config"
	"github.com/suteetoe/society-service/pkg/database"
	"github.com/suteetoe/society-service/pkg/jwtutil"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type testAPI struct {
	t   *testing.T
	srv *Server
	db  *gorm.DB
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()
	db, err := database.NewTest()
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db, model.All()...))

	cfg := &config.Config{
		JWT:     config.JWTConfig{SigningKey: "test-key", ExpirationHours: 1},
		Billing: config.BillingConfig{DefaultMaintenanceCharge: decimal.NewFromInt(1500)},
	}
	srv := New(Deps{Config: cfg, DB: db, Log: zap.NewNop(), Notifier: notify.NoOpNotifier{}})
	return &testAPI{t: t, srv: srv, db: db}
}

func (a *testAPI) do(method, path, token string, body interface{}) *httptest.ResponseRecorder {
	a.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(a.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	a.srv.ServeHTTP(rec, req)
	return rec
}

// decode unmarshals the response body, failing the test on an unexpected status.
func (a *testAPI) decode(rec *httptest.ResponseRecorder, status int, v interface{}) {
	a.t.Helper()
	require.Equal(a.t, status, rec.Code, rec.Body.String())
	if v != nil {
		require.NoError(a.t, json.Unmarshal(rec.Body.Bytes(), v))
	}
}

func (a *testAPI) adminToken() string {
	a.t.Helper()
	auth := service.NewAuthService(a.db, zap.NewNop(), nil)
	_, err := auth.CreateAdmin(context.Background(), "Ravi", "admin@example.com", "admin-pass")
	require.NoError(a.t, err)

	var session service.Session
	a.decode(a.do(http.MethodPost, "/api/auth/admin/login", "", map[string]string{
		"email": "admin@example.com", "password": "admin-pass",
	}), http.StatusOK, &session)
	require.NotEmpty(a.t, session.Token)
	return session.Token
}

func TestPerSqftDistributionEndToEnd(t *testing.T) {
	api := newTestAPI(t)
	token := api.adminToken()

	var apartment model.Apartment
	api.decode(api.do(http.MethodPost, "/api/admin/apartments", token, map[string]interface{}{
		"name": "A", "address": "1 Main St", "totalFloors": 3,
	}), http.StatusCreated, &apartment)

	flatIDs := map[string]string{}
	for number, area := range map[string]int{"F1": 1000, "F2": 500} {
		var flat model.Flat
		api.decode(api.do(http.MethodPost, "/api/admin/flats", token, map[string]interface{}{
			"apartmentId": apartment.ID, "flatNumber": number, "floor": 1, "areaSqft": area,
		}), http.StatusCreated, &flat)
		flatIDs[number] = flat.ID

		var owner model.Owner
		api.decode(api.do(http.MethodPost, "/api/admin/owners", token, map[string]interface{}{
			"name": "Owner " + number, "email": number + "@example.com", "phone": "900", "password": "secret1",
		}), http.StatusCreated, &owner)

		api.decode(api.do(http.MethodPut, "/api/admin/flats/"+flat.ID+"/assign-owner", token, map[string]string{
			"ownerId": owner.ID,
		}), http.StatusOK, nil)
	}

	var out service.Distribution
	api.decode(api.do(http.MethodPost, "/api/admin/expenses/distribute", token, map[string]interface{}{
		"apartmentId": apartment.ID, "title": "Lift", "amount": 1500,
		"date": "2024-03-05", "distributionType": "per_sqft",
	}), http.StatusCreated, &out)
	assert.Equal(t, "March", out.Expense.Month)

	var bills []model.Bill
	api.decode(api.do(http.MethodGet, "/api/admin/bills?month=March&year=2024", token, nil), http.StatusOK, &bills)
	require.Len(t, bills, 2)
	got := map[string]string{}
	for _, b := range bills {
		got[b.FlatID] = b.Amount.StringFixed(2)
		assert.Equal(t, model.BillUnpaid, b.Status)
	}
	assert.Equal(t, "1000.00", got[flatIDs["F1"]])
	assert.Equal(t, "500.00", got[flatIDs["F2"]])

	// the owner sees the bill on their side
	var session service.Session
	api.decode(api.do(http.MethodPost, "/api/auth/owner/login", "", map[string]string{
		"email": "f1@example.com", "password": "secret1",
	}), http.StatusOK, &session)
	assert.Equal(t, "F1", session.User.FlatNo)

	var dashboard service.Dashboard
	api.decode(api.do(http.MethodGet, "/api/owner/dashboard", session.Token, nil), http.StatusOK, &dashboard)
	assert.Equal(t, "1000.00", dashboard.CurrentDue.StringFixed(2))
}

func TestOwnerWrongPassword(t *testing.T) {
	api := newTestAPI(t)
	token := api.adminToken()

	api.decode(api.do(http.MethodPost, "/api/admin/owners", token, map[string]interface{}{
		"name": "Asha", "email": "asha@example.com", "password": "right-one",
	}), http.StatusCreated, nil)

	rec := api.do(http.MethodPost, "/api/auth/owner/login", "", map[string]string{
		"email": "asha@example.com", "password": "wrong-one",
	})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.JSONEq(t, `{"message":"Invalid credentials"}`, rec.Body.String())
	assert.NotContains(t, rec.Body.String(), "token")
}

func TestRoleGates(t *testing.T) {
	api := newTestAPI(t)

	rec := api.do(http.MethodGet, "/api/admin/apartments", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.JSONEq(t, `{"message":"token missing"}`, rec.Body.String())

	rec = api.do(http.MethodGet, "/api/admin/apartments", "garbage", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.JSONEq(t, `{"message":"invalid token"}`, rec.Body.String())

	j := jwtutil.NewJWTUtil(&jwtutil.JWTConfig{SigningKey: "test-key", ExpirationHours: 1})
	ownerToken, err := j.GenerateToken("owner-1", jwtutil.RoleOwner, "Asha", "101")
	require.NoError(t, err)
	rec = api.do(http.MethodGet, "/api/admin/apartments", ownerToken, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.JSONEq(t, `{"message":"forbidden"}`, rec.Body.String())

	adminToken := api.adminToken()
	rec = api.do(http.MethodGet, "/api/owner/bills", adminToken, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = api.do(http.MethodGet, "/api/auth/me", adminToken, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAdminErrorsAndStubs(t *testing.T) {
	api := newTestAPI(t)
	token := api.adminToken()

	rec := api.do(http.MethodGet, "/api/admin/arrears/export", token, nil)
	assert.Equal(t, http.StatusNotImplemented, rec.Code)
	assert.JSONEq(t, `{"message":"export not implemented"}`, rec.Body.String())

	rec = api.do(http.MethodGet, "/api/admin/flats/missing", token, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.JSONEq(t, `{"message":"flat not found"}`, rec.Body.String())

	rec = api.do(http.MethodPost, "/api/admin/apartments", token, map[string]interface{}{"name": "", "totalFloors": 0})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	var apartment model.Apartment
	api.decode(api.do(http.MethodPost, "/api/admin/apartments", token, map[string]interface{}{
		"name": "A", "totalFloors": 2,
	}), http.StatusCreated, &apartment)
	api.decode(api.do(http.MethodPost, "/api/admin/flats", token, map[string]interface{}{
		"apartmentId": apartment.ID, "flatNumber": "1", "floor": 1,
	}), http.StatusCreated, nil)
	rec = api.do(http.MethodPost, "/api/admin/flats", token, map[string]interface{}{
		"apartmentId": apartment.ID, "flatNumber": "1", "floor": 2,
	})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = api.do(http.MethodDelete, "/api/admin/apartments/"+apartment.ID, token, nil)
	assert.Equal(t, http.StatusConflict, rec.Code)

	var generated service.GenerateResult
	api.decode(api.do(http.MethodPost, "/api/admin/bills/generate", token, map[string]interface{}{
		"month": 3, "year": 2024,
	}), http.StatusOK, &generated)
	assert.Equal(t, "March", generated.Month)
	assert.Equal(t, 0, generated.Created)

	rec = api.do(http.MethodGet, "/api/admin/bills?year=abc", token, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHealth(t *testing.T) {
	api := newTestAPI(t)
	rec := api.do(http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "healthy")

	rec = api.do(http.MethodGet, "/metrics", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "society_http_requests_total")
}
