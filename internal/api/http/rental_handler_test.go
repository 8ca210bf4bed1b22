package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"motorent-backend/internal/domain"
	"motorent-backend/internal/pricing"
	"motorent-backend/internal/repository/memory"
	"motorent-backend/internal/security"
	"motorent-backend/internal/service"
)

const secret = "0123456789abcdef0123456789abcdef"

type fixture struct {
	store  *memory.Store
	router http.Handler
	tokens security.TokenManager
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := memory.NewStore()
	engine := service.NewRentalEngine(service.Dependencies{
		UnitOfWork:  store,
		Pools:       store,
		Pricing:     pricing.NewCalculator(time.UTC, 2),
		Bookings:    store,
		Commissions: store,
	}, service.Config{Location: time.UTC})
	tokens := security.NewTokenManager(secret, "motorent", time.Hour)
	return &fixture{store: store, router: NewRouter(engine, tokens, store), tokens: tokens}
}

func (f *fixture) token(t *testing.T, shopID int32, roles ...string) string {
	t.Helper()
	tok, err := f.tokens.GenerateAccessToken(3, shopID, roles)
	require.NoError(t, err)
	return tok
}

func (f *fixture) do(t *testing.T, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func checkInBody(vehicleID int32, start time.Time) map[string]interface{} {
	return map[string]interface{}{
		"renter_id":         7,
		"vehicle_id":        vehicleID,
		"duration_type":     "DAILY",
		"start_date":        start,
		"expected_end_date": start.AddDate(0, 0, 2),
		"rental_rate":       "300",
		"total_amount":      "600",
		"payment_method":    "CASH",
		"deposit":           map[string]interface{}{"type": "CASH", "amount": "1000"},
	}
}

func TestRentalFlowOverHTTP(t *testing.T) {
	f := newFixture(t)
	v := f.store.AddVehicle(domain.Vehicle{HomeShopID: 1, Status: domain.VehicleStatusAvailable, DailyRate: decimal.NewFromInt(300)})
	tok := f.token(t, 1)
	start := time.Now().UTC().Add(-time.Hour).Truncate(time.Second)

	rec := f.do(t, http.MethodPost, "/api/v1/rentals/checkin", tok, checkInBody(v.ID, start))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var in service.CheckInResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &in))
	assert.True(t, in.Success)
	assert.Equal(t, v.ID, in.VehicleID)

	rt, _ := f.store.Rental(in.RentalID)
	assert.Equal(t, int32(1), rt.RentedFromShopID, "shop comes from the token")
	assert.Equal(t, int32(3), rt.CreatedBy)

	// Same vehicle again: precondition failure.
	rec = f.do(t, http.MethodPost, "/api/v1/rentals/checkin", tok, checkInBody(v.ID, start))
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec = f.do(t, http.MethodPost, fmt.Sprintf("/api/v1/rentals/%d/checkout", in.RentalID), tok, map[string]interface{}{
		"actual_end_date": start.AddDate(0, 0, 2),
		"refund_deposit":  true,
		"payment_method":  "CASH",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var out service.CheckOutResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	assert.True(t, decimal.NewFromInt(1000).Equal(out.RefundAmount))
	assert.False(t, out.IsCrossShopReturn)

	rec = f.do(t, http.MethodGet, fmt.Sprintf("/api/v1/rentals/%d", in.RentalID), tok, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var details service.RentalDetails
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &details))
	assert.Equal(t, domain.RentalStatusCompleted, details.Rental.Status)
	assert.Len(t, details.Payments, 3)
}

func TestFailureKindsMapToStatus(t *testing.T) {
	f := newFixture(t)
	tok := f.token(t, 1)

	rec := f.do(t, http.MethodGet, "/api/v1/rentals/404", tok, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = f.do(t, http.MethodPost, "/api/v1/rentals/checkin", tok, map[string]interface{}{"renter_id": 7})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.do(t, http.MethodPost, "/api/v1/rentals/checkin", tok, map[string]interface{}{"bogus": true})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	tests := []struct {
		kind service.FailureKind
		want int
	}{
		{service.FailureValidation, http.StatusBadRequest},
		{service.FailurePrecondition, http.StatusUnprocessableEntity},
		{service.FailureNotFound, http.StatusNotFound},
		{service.FailureConflict, http.StatusConflict},
		{service.FailureInternal, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, statusFor(service.Outcome{Kind: tt.kind}, http.StatusOK), tt.kind)
	}
	assert.Equal(t, http.StatusCreated, statusFor(service.Outcome{Success: true}, http.StatusCreated))
}

func TestCrossShopReturnDefaultsToStaffShop(t *testing.T) {
	f := newFixture(t)
	pool := f.store.AddPool(domain.VehiclePool{Name: "Old Town", ShopIDs: []int32{1, 2}})
	v := f.store.AddVehicle(domain.Vehicle{HomeShopID: 1, PoolID: &pool.ID, Status: domain.VehicleStatusAvailable, DailyRate: decimal.NewFromInt(300)})
	start := time.Now().UTC().Add(-time.Hour).Truncate(time.Second)

	rec := f.do(t, http.MethodPost, "/api/v1/rentals/checkin", f.token(t, 1), checkInBody(v.ID, start))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var in service.CheckInResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &in))

	rec = f.do(t, http.MethodPost, fmt.Sprintf("/api/v1/rentals/%d/checkout", in.RentalID), f.token(t, 2), map[string]interface{}{
		"actual_end_date": start.AddDate(0, 0, 2),
		"payment_method":  "CASH",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	got, _ := f.store.Vehicle(v.ID)
	assert.Equal(t, int32(2), got.CurrentShopID)
}

func TestStaffActOnlyForTheirOwnShop(t *testing.T) {
	f := newFixture(t)
	v := f.store.AddVehicle(domain.Vehicle{HomeShopID: 2, Status: domain.VehicleStatusAvailable, DailyRate: decimal.NewFromInt(300)})
	start := time.Now().UTC().Add(-time.Hour).Truncate(time.Second)

	body := checkInBody(v.ID, start)
	body["shop_id"] = 2
	rec := f.do(t, http.MethodPost, "/api/v1/rentals/checkin", f.token(t, 1), body)
	assert.Equal(t, http.StatusForbidden, rec.Code, rec.Body.String())
	assert.Empty(t, f.store.Rentals())

	rec = f.do(t, http.MethodPost, "/api/v1/reservations", f.token(t, 1), map[string]interface{}{
		"shop_id":           2,
		"renter_id":         7,
		"vehicle_id":        v.ID,
		"duration_type":     "DAILY",
		"start_date":        start,
		"expected_end_date": start.AddDate(0, 0, 1),
	})
	assert.Equal(t, http.StatusForbidden, rec.Code, rec.Body.String())
	assert.Empty(t, f.store.Rentals())

	rec = f.do(t, http.MethodPost, "/api/v1/rentals/checkin", f.token(t, 1, security.RoleManager), body)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var in service.CheckInResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &in))
	rt, ok := f.store.Rental(in.RentalID)
	require.True(t, ok)
	assert.Equal(t, int32(2), rt.RentedFromShopID)
}

func TestAuthentication(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = f.do(t, http.MethodGet, "/api/v1/rentals/1", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = f.do(t, http.MethodGet, "/api/v1/rentals/1", "garbage", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = f.do(t, http.MethodDelete, "/api/v1/rentals/1", f.token(t, 1), nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = f.do(t, http.MethodDelete, "/api/v1/rentals/1", f.token(t, 1, security.RoleManager), nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

type downStore struct{}

func (downStore) Ping(ctx context.Context) error { return errors.New("connection refused") }

func TestHealthReportsStoreOutage(t *testing.T) {
	rec := httptest.NewRecorder()
	healthHandler(downStore{}).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
