// Package http exposes the rental engine as a JSON API for shop staff.
package http

import (
	"net/http"

	"github.com/gorilla/mux"

	"motorent-backend/internal/logger"
	"motorent-backend/internal/security"
	"motorent-backend/internal/service"
)

// NewRouter registers every route. Route names double as keys into the endpoint
// security table.
func NewRouter(engine service.RentalEngine, tm security.TokenManager, store Pinger) *mux.Router {
	h := NewRentalHandler(engine)
	auth := NewAuthMiddleware(tm)

	router := mux.NewRouter()
	router.Use(requestLogger)
	router.HandleFunc("/healthz", healthHandler(store)).Methods(http.MethodGet).Name("Health")

	api := router.PathPrefix("/api/v1").Subrouter()
	api.Use(auth.Middleware)

	api.HandleFunc("/rentals/checkin", h.CheckIn).Methods(http.MethodPost).Name("CheckIn")
	api.HandleFunc("/rentals/{id:[0-9]+}/checkout", h.CheckOut).Methods(http.MethodPost).Name("CheckOut")
	api.HandleFunc("/rentals/{id:[0-9]+}/cancel", h.Cancel).Methods(http.MethodPost).Name("CancelRental")
	api.HandleFunc("/rentals/{id:[0-9]+}/extend", h.Extend).Methods(http.MethodPost).Name("ExtendRental")
	api.HandleFunc("/rentals/{id:[0-9]+}", h.Get).Methods(http.MethodGet).Name("GetRental")
	api.HandleFunc("/rentals/{id:[0-9]+}", h.Delete).Methods(http.MethodDelete).Name("DeleteRental")
	api.HandleFunc("/reservations", h.CreateReservation).Methods(http.MethodPost).Name("CreateReservation")
	api.HandleFunc("/reservations/{id:[0-9]+}/assign", h.AssignVehicle).Methods(http.MethodPost).Name("AssignVehicle")

	return router
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		logger.DebugContext(r.Context(), "http request", "method", r.Method, "path", r.URL.Path, "status", rec.status)
	})
}
