package http

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"motorent-backend/internal/logger"
	"motorent-backend/internal/security"
	"motorent-backend/internal/service"
)

// Pinger reports whether the backing store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

type RentalHandler struct {
	engine service.RentalEngine
}

func NewRentalHandler(engine service.RentalEngine) *RentalHandler {
	return &RentalHandler{engine: engine}
}

type cancelBody struct {
	Reason string `json:"reason"`
}

type extendBody struct {
	NewEndDate time.Time `json:"new_end_date"`
}

type assignBody struct {
	VehicleID *int32 `json:"vehicle_id,omitempty"`
}

func (h *RentalHandler) CheckIn(w http.ResponseWriter, r *http.Request) {
	var req service.CheckInRequest
	if !decode(w, r, &req) {
		return
	}
	staff := StaffFromContext(r.Context())
	req.StaffID = staff.StaffID
	shopID, ok := actingShop(w, staff, req.ShopID)
	if !ok {
		return
	}
	req.ShopID = shopID

	res := h.engine.CheckIn(r.Context(), req)
	respond(w, res.Outcome, http.StatusCreated, res)
}

// actingShop is the shop a request acts for. Staff act for the shop in their token;
// only managers may name another one.
func actingShop(w http.ResponseWriter, staff *security.StaffClaims, requested int32) (int32, bool) {
	if requested == 0 || requested == staff.ShopID {
		return staff.ShopID, true
	}
	if !staff.HasRole(security.RoleManager) {
		writeError(w, http.StatusForbidden, "forbidden", fmt.Sprintf("staff of shop %d cannot act for shop %d", staff.ShopID, requested))
		return 0, false
	}
	return requested, true
}

func (h *RentalHandler) CheckOut(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req service.CheckOutRequest
	if !decode(w, r, &req) {
		return
	}
	staff := StaffFromContext(r.Context())
	req.RentalID = id
	req.StaffID = staff.StaffID
	// The vehicle comes back to the shop the staff member works at unless stated otherwise.
	if req.ReturnShopID == 0 {
		req.ReturnShopID = staff.ShopID
	}

	res := h.engine.CheckOut(r.Context(), req)
	respond(w, res.Outcome, http.StatusOK, res)
}

func (h *RentalHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var body cancelBody
	if !decode(w, r, &body) {
		return
	}

	res := h.engine.Cancel(r.Context(), id, StaffFromContext(r.Context()).StaffID, body.Reason)
	respond(w, res.Outcome, http.StatusOK, res)
}

func (h *RentalHandler) Extend(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var body extendBody
	if !decode(w, r, &body) {
		return
	}

	res := h.engine.Extend(r.Context(), id, body.NewEndDate)
	respond(w, res.Outcome, http.StatusOK, res)
}

func (h *RentalHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	res := h.engine.GetRental(r.Context(), id)
	respond(w, res.Outcome, http.StatusOK, res)
}

func (h *RentalHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	res := h.engine.DeleteRental(r.Context(), id)
	respond(w, res.Outcome, http.StatusOK, res)
}

func (h *RentalHandler) CreateReservation(w http.ResponseWriter, r *http.Request) {
	var req service.ReservationRequest
	if !decode(w, r, &req) {
		return
	}
	staff := StaffFromContext(r.Context())
	req.StaffID = staff.StaffID
	shopID, ok := actingShop(w, staff, req.ShopID)
	if !ok {
		return
	}
	req.ShopID = shopID

	res := h.engine.CreateReservation(r.Context(), req)
	respond(w, res.Outcome, http.StatusCreated, res)
}

func (h *RentalHandler) AssignVehicle(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var body assignBody
	if !decode(w, r, &body) {
		return
	}

	res := h.engine.AssignVehicleToReservation(r.Context(), id, body.VehicleID)
	respond(w, res.Outcome, http.StatusOK, res)
}

func healthHandler(store Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := store.Ping(r.Context()); err != nil {
			logger.WarnContext(r.Context(), "health check failed", "error", err)
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}

// decode reads a JSON body. An empty body leaves dst untouched.
func decode(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	if r.Body == nil || r.ContentLength == 0 {
		return true
	}
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, string(service.FailureValidation), "malformed request body: "+err.Error())
		return false
	}
	return true
}

func pathID(w http.ResponseWriter, r *http.Request) (int32, bool) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 32)
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, string(service.FailureValidation), "invalid rental id")
		return 0, false
	}
	return int32(id), true
}
