package handlers

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"parcelflow/internal/apperr"
	"parcelflow/internal/logx"
)

const batchLimit = 100

// ParcelHandler serves HTTP endpoints for parcel resources.
type ParcelHandler struct {
	uc     parcelUsecase
	logger logx.Logger
}

// NewParcelHandler creates a new ParcelHandler.
func NewParcelHandler(logger logx.Logger, uc parcelUsecase) *ParcelHandler {
	return &ParcelHandler{uc: uc, logger: logger}
}

// Create handles POST /parcels. Intake registers the parcel as already in
// the warehouse.
func (h *ParcelHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createParcelRequest
	if ok := decodeJSON(h.logger, w, r, &req); !ok {
		return
	}

	p, err := h.uc.Create(r.Context(), req.Code, req.WeightGrams, req.ValueCents, req.WindowStart, req.WindowEnd)
	switch {
	case err == nil:
		writeJSON(h.logger, w, r, http.StatusCreated, parcelToResponse(p))
	case errors.Is(err, apperr.ErrInvalid):
		writeError(h.logger, w, r, http.StatusBadRequest, "invalid input")
	case errors.Is(err, apperr.ErrConflict):
		writeError(h.logger, w, r, http.StatusConflict, "code already registered")
	default:
		writeError(h.logger, w, r, http.StatusInternalServerError, "internal error")
	}
}

// GetByID handles GET /parcel/{id}.
func (h *ParcelHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	id, err := uuidFromURL(r, "id")
	if err != nil {
		writeError(h.logger, w, r, http.StatusBadRequest, "invalid id")
		return
	}

	p, err := h.uc.Get(r.Context(), id)
	switch {
	case err == nil:
		writeJSON(h.logger, w, r, http.StatusOK, parcelToResponse(p))
	case errors.Is(err, apperr.ErrNotFound):
		writeError(h.logger, w, r, http.StatusNotFound, "parcel not found")
	default:
		writeError(h.logger, w, r, http.StatusInternalServerError, "internal error")
	}
}

// GetByCode handles GET /parcel/code/{code}.
func (h *ParcelHandler) GetByCode(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "code")
	if code == "" {
		writeError(h.logger, w, r, http.StatusBadRequest, "invalid code")
		return
	}

	p, err := h.uc.GetByCode(r.Context(), code)
	switch {
	case err == nil:
		writeJSON(h.logger, w, r, http.StatusOK, parcelToResponse(p))
	case errors.Is(err, apperr.ErrInvalid):
		writeError(h.logger, w, r, http.StatusBadRequest, "invalid code")
	case errors.Is(err, apperr.ErrNotFound):
		writeError(h.logger, w, r, http.StatusNotFound, "parcel not found")
	default:
		writeError(h.logger, w, r, http.StatusInternalServerError, "internal error")
	}
}

// Batch handles POST /parcels/batch: bulk lookup by id. Unknown ids are
// skipped, not errors.
func (h *ParcelHandler) Batch(w http.ResponseWriter, r *http.Request) {
	var req batchParcelsRequest
	if ok := decodeJSON(h.logger, w, r, &req); !ok {
		return
	}
	if len(req.IDs) == 0 || len(req.IDs) > batchLimit {
		writeError(h.logger, w, r, http.StatusBadRequest, "ids must hold between 1 and 100 entries")
		return
	}

	ids := make([]uuid.UUID, 0, len(req.IDs))
	for _, s := range req.IDs {
		id, err := uuid.Parse(s)
		if err != nil {
			writeError(h.logger, w, r, http.StatusBadRequest, "invalid id: "+s)
			return
		}
		ids = append(ids, id)
	}

	list, err := h.uc.GetBulk(r.Context(), ids)
	if err != nil {
		writeError(h.logger, w, r, http.StatusInternalServerError, "internal error")
		return
	}

	resp := batchParcelsResponse{Parcels: make([]parcelResponse, 0, len(list))}
	for i := range list {
		resp.Parcels = append(resp.Parcels, parcelToResponse(&list[i]))
	}
	writeJSON(h.logger, w, r, http.StatusOK, resp)
}
