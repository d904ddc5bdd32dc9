package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"tourpack-service/internal/auth"
	"tourpack-service/internal/clock"
	"tourpack-service/internal/models"
	"tourpack-service/internal/payment"
	"tourpack-service/internal/service"
	"tourpack-service/internal/store/memory"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret"

type failingPinger struct{}

func (failingPinger) Ping(context.Context) error { return errors.New("down") }

type testServer struct {
	router *gin.Engine
	t      *testing.T
}

func newTestServer(t *testing.T, db Pinger) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	st := memory.New()
	clk := clock.NewRealClock()
	discounts := service.NewDiscountService(st, st, nil, clk)
	h := NewHandler(
		service.NewSpinService(st, nil, nil, clk, service.SpinConfig{Cooldown: 48 * time.Hour, Validity: 7 * 24 * time.Hour}),
		discounts,
		service.NewPackageService(st, clk),
		service.NewBookingService(st, st, discounts, payment.NewSimulatedGateway(true), nil, nil, clk, service.BookingConfig{Currency: "usd"}),
		auth.NewJWTVerifier(testSecret),
		db,
		Options{AllowOrigins: []string{"http://localhost:5173"}, RequestTimeout: 5 * time.Second},
	)

	router := gin.New()
	h.SetupRoutes(router)
	return &testServer{router: router, t: t}
}

func (s *testServer) do(method, path, email string, body interface{}) *httptest.ResponseRecorder {
	s.t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(s.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if email != "" {
		token, err := auth.Sign(testSecret, email, time.Hour)
		require.NoError(s.t, err)
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder, out interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), out))
}

func TestHealthAndReadiness(t *testing.T) {
	s := newTestServer(t, memory.New())

	assert.Equal(t, http.StatusOK, s.do(http.MethodGet, "/health", "", nil).Code)
	assert.Equal(t, http.StatusOK, s.do(http.MethodGet, "/ready", "", nil).Code)

	down := newTestServer(t, failingPinger{})
	assert.Equal(t, http.StatusServiceUnavailable, down.do(http.MethodGet, "/ready", "", nil).Code)
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	s := newTestServer(t, nil)

	w := s.do(http.MethodPost, "/spin", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	req := httptest.NewRequest(http.MethodPost, "/spin", nil)
	req.Header.Set("Authorization", "Bearer not-a-jwt")
	w = httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestSpinEndpoints(t *testing.T) {
	s := newTestServer(t, nil)
	buyer := "buyer@example.com"

	w := s.do(http.MethodPost, "/spin", buyer, nil)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var spun struct {
		DiscountPercentage int    `json:"discount_percentage"`
		Code               string `json:"code"`
	}
	decode(t, w, &spun)
	assert.Contains(t, []int{5, 10, 15, 20, 25, 50}, spun.DiscountPercentage)
	assert.Regexp(t, `^SPIN[A-Z0-9]{6}$`, spun.Code)

	w = s.do(http.MethodPost, "/spin", buyer, nil)
	require.Equal(t, http.StatusBadRequest, w.Code)
	var cooldown struct {
		Error          string `json:"error"`
		HoursRemaining int    `json:"hours_remaining"`
	}
	decode(t, w, &cooldown)
	assert.Equal(t, 48, cooldown.HoursRemaining)
	assert.NotEmpty(t, cooldown.Error)

	w = s.do(http.MethodGet, "/spin/eligibility", buyer, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var el service.Eligibility
	decode(t, w, &el)
	assert.False(t, el.Eligible)

	w = s.do(http.MethodGet, "/spin/history", buyer, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var history []models.DiscountRecord
	decode(t, w, &history)
	require.Len(t, history, 1)
	assert.Equal(t, spun.Code, history[0].Code)
}

func TestBookingFlowOverHTTP(t *testing.T) {
	s := newTestServer(t, nil)
	guide, buyer := "guide@example.com", "buyer@example.com"

	w := s.do(http.MethodPost, "/packages", guide, gin.H{
		"title":           "Sylhet Tea Trail",
		"destination":     "Sylhet",
		"duration_days":   2,
		"price_cents":     5000,
		"available_seats": 5,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var pkg models.TourPackage
	decode(t, w, &pkg)

	w = s.do(http.MethodGet, "/packages/"+pkg.ID, "", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = s.do(http.MethodPost, "/discounts/validate", buyer, gin.H{"code": "SPINNOPE00", "package_id": pkg.ID})
	require.Equal(t, http.StatusOK, w.Code)
	var verdict service.ValidationResult
	decode(t, w, &verdict)
	assert.False(t, verdict.Valid)
	assert.Equal(t, service.ReasonNotFound, verdict.Reason)

	w = s.do(http.MethodPost, "/create-payment-intent", buyer, gin.H{"package_id": pkg.ID, "seat_count": 3})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var intent service.PaymentIntentResponse
	decode(t, w, &intent)
	assert.Equal(t, int64(15000), intent.AmountCents)

	confirm := gin.H{"payment_intent_id": intent.PaymentIntentID, "package_id": pkg.ID, "seat_count": 3}
	w = s.do(http.MethodPost, "/confirm-payment", buyer, confirm)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var confirmed struct {
		Success bool           `json:"success"`
		Booking models.Booking `json:"booking"`
	}
	decode(t, w, &confirmed)
	assert.True(t, confirmed.Success)
	assert.Equal(t, models.BookingStatusConfirmed, confirmed.Booking.Status)

	w = s.do(http.MethodGet, "/packages/"+pkg.ID, "", nil)
	decode(t, w, &pkg)
	assert.Equal(t, 2, pkg.AvailableSeats)

	w = s.do(http.MethodPost, "/create-payment-intent", buyer, gin.H{"package_id": pkg.ID, "seat_count": 3})
	require.Equal(t, http.StatusBadRequest, w.Code)
	var short struct {
		AvailableSeats int `json:"available_seats"`
	}
	decode(t, w, &short)
	assert.Equal(t, 2, short.AvailableSeats)

	w = s.do(http.MethodPatch, "/bookings/"+confirmed.Booking.ID+"/complete", "intruder@example.com", nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = s.do(http.MethodPatch, "/bookings/"+confirmed.Booking.ID+"/complete", guide, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = s.do(http.MethodGet, "/bookings?email="+buyer, buyer, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var mine []models.Booking
	decode(t, w, &mine)
	require.Len(t, mine, 1)
	assert.Equal(t, models.BookingStatusCompleted, mine[0].Status)

	w = s.do(http.MethodGet, "/bookings?email="+guide, buyer, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = s.do(http.MethodGet, "/bookings/guide?email="+guide, guide, nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = s.do(http.MethodDelete, "/packages/"+pkg.ID, guide, nil)
	assert.Equal(t, http.StatusConflict, w.Code, w.Body.String())

	w = s.do(http.MethodGet, "/packages/"+pkg.ID, "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRequestValidation(t *testing.T) {
	s := newTestServer(t, nil)

	w := s.do(http.MethodPost, "/create-payment-intent", "buyer@example.com", gin.H{"package_id": "p1", "seat_count": 0})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(http.MethodPost, "/confirm-payment", "buyer@example.com", gin.H{"package_id": "p1"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(http.MethodGet, "/packages/missing", "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = s.do(http.MethodPatch, "/discounts/use/SPINNOPE00", "buyer@example.com", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}
