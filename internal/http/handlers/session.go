package handlers

import (
	"errors"
	"net/http"

	"github.com/google/uuid"

	"parcelflow/internal/apperr"
	"parcelflow/internal/domain"
	"parcelflow/internal/logx"
)

// SessionHandler serves the courier-facing endpoints: parcel scans and
// work-session lifecycle.
type SessionHandler struct {
	uc     sessionUsecase
	logger logx.Logger
}

// NewSessionHandler creates a new SessionHandler.
func NewSessionHandler(logger logx.Logger, uc sessionUsecase) *SessionHandler {
	return &SessionHandler{uc: uc, logger: logger}
}

func (h *SessionHandler) pathIDs(w http.ResponseWriter, r *http.Request) (int64, uuid.UUID, bool) {
	courierID, err := courierIDFromURL(r, "courierID")
	if err != nil {
		writeError(h.logger, w, r, http.StatusBadRequest, "invalid courier id")
		return 0, uuid.Nil, false
	}
	parcelID, err := uuidFromURL(r, "parcelID")
	if err != nil {
		writeError(h.logger, w, r, http.StatusBadRequest, "invalid parcel id")
		return 0, uuid.Nil, false
	}
	return courierID, parcelID, true
}

func (h *SessionHandler) writeAssignment(w http.ResponseWriter, r *http.Request, a *domain.DeliveryAssignment, err error, status int, conflictMsg string) {
	switch {
	case err == nil:
		writeJSON(h.logger, w, r, status, assignmentToResponse(a))
	case errors.Is(err, apperr.ErrInvalid):
		writeError(h.logger, w, r, http.StatusBadRequest, "invalid input")
	case errors.Is(err, apperr.ErrNotFound):
		writeError(h.logger, w, r, http.StatusNotFound, "assignment not found")
	case errors.Is(err, apperr.ErrConflict):
		writeError(h.logger, w, r, http.StatusConflict, conflictMsg)
	default:
		writeError(h.logger, w, r, http.StatusInternalServerError, "internal error")
	}
}

// Accept handles POST /couriers/{courierID}/parcels/{parcelID}/accept.
// Scanning a parcel opens a work session if the courier has none and
// creates a pending assignment.
func (h *SessionHandler) Accept(w http.ResponseWriter, r *http.Request) {
	courierID, parcelID, ok := h.pathIDs(w, r)
	if !ok {
		return
	}

	a, err := h.uc.AcceptParcel(r.Context(), courierID, parcelID)
	h.writeAssignment(w, r, a, err, http.StatusCreated, "parcel already accepted")
}

// Complete handles POST /couriers/{courierID}/parcels/{parcelID}/complete.
func (h *SessionHandler) Complete(w http.ResponseWriter, r *http.Request) {
	courierID, parcelID, ok := h.pathIDs(w, r)
	if !ok {
		return
	}
	var req completeTaskRequest
	if ok := decodeJSON(h.logger, w, r, &req); !ok {
		return
	}

	a, err := h.uc.CompleteTask(r.Context(), courierID, parcelID, req.Route)
	h.writeAssignment(w, r, a, err, http.StatusOK, "assignment already settled")
}

// Fail handles POST /couriers/{courierID}/parcels/{parcelID}/fail.
func (h *SessionHandler) Fail(w http.ResponseWriter, r *http.Request) {
	courierID, parcelID, ok := h.pathIDs(w, r)
	if !ok {
		return
	}
	var req failDeliveryRequest
	if ok := decodeJSON(h.logger, w, r, &req); !ok {
		return
	}
	if req.Reason == "" {
		writeError(h.logger, w, r, http.StatusBadRequest, "reason is required")
		return
	}

	a, err := h.uc.FailDelivery(r.Context(), courierID, parcelID, req.Reason, req.Route)
	h.writeAssignment(w, r, a, err, http.StatusOK, "assignment already settled")
}

// Refuse handles POST /couriers/{courierID}/parcels/{parcelID}/refuse.
func (h *SessionHandler) Refuse(w http.ResponseWriter, r *http.Request) {
	courierID, parcelID, ok := h.pathIDs(w, r)
	if !ok {
		return
	}
	var req refuseRequest
	if ok := decodeJSON(h.logger, w, r, &req); !ok {
		return
	}
	if req.Reason == "" {
		writeError(h.logger, w, r, http.StatusBadRequest, "reason is required")
		return
	}

	a, err := h.uc.RefuseByCustomer(r.Context(), courierID, parcelID, req.Reason)
	h.writeAssignment(w, r, a, err, http.StatusOK, "assignment already settled")
}

// CompleteSession handles POST /sessions/{sessionID}/complete.
func (h *SessionHandler) CompleteSession(w http.ResponseWriter, r *http.Request) {
	sessionID, err := uuidFromURL(r, "sessionID")
	if err != nil {
		writeError(h.logger, w, r, http.StatusBadRequest, "invalid session id")
		return
	}

	err = h.uc.CompleteSession(r.Context(), sessionID)
	h.writeSessionResult(w, r, err)
}

// FailSession handles POST /sessions/{sessionID}/fail. Every pending
// assignment in the session is failed with the given reason.
func (h *SessionHandler) FailSession(w http.ResponseWriter, r *http.Request) {
	sessionID, err := uuidFromURL(r, "sessionID")
	if err != nil {
		writeError(h.logger, w, r, http.StatusBadRequest, "invalid session id")
		return
	}
	var req failSessionRequest
	if ok := decodeJSON(h.logger, w, r, &req); !ok {
		return
	}
	if req.Reason == "" {
		writeError(h.logger, w, r, http.StatusBadRequest, "reason is required")
		return
	}

	err = h.uc.FailSession(r.Context(), sessionID, req.Reason)
	h.writeSessionResult(w, r, err)
}

func (h *SessionHandler) writeSessionResult(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case err == nil:
		writeJSON(h.logger, w, r, http.StatusOK, map[string]string{"status": "ok"})
	case errors.Is(err, apperr.ErrNotFound):
		writeError(h.logger, w, r, http.StatusNotFound, "session not found")
	case errors.Is(err, apperr.ErrConflict):
		writeError(h.logger, w, r, http.StatusConflict, "session already closed")
	default:
		writeError(h.logger, w, r, http.StatusInternalServerError, "internal error")
	}
}
