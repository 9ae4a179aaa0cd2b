package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"parcelflow/internal/apperr"
	"parcelflow/internal/domain"
	testlog "parcelflow/internal/testutil"
)

type fakeSessionUC struct {
	acceptFn   func(ctx context.Context, courierID int64, parcelID uuid.UUID) (*domain.DeliveryAssignment, error)
	completeFn func(ctx context.Context, courierID int64, parcelID uuid.UUID, route domain.RouteInfo) (*domain.DeliveryAssignment, error)
	failFn     func(ctx context.Context, courierID int64, parcelID uuid.UUID, reason string, route domain.RouteInfo) (*domain.DeliveryAssignment, error)
	refuseFn   func(ctx context.Context, courierID int64, parcelID uuid.UUID, reason string) (*domain.DeliveryAssignment, error)
	closeFn    func(ctx context.Context, sessionID uuid.UUID) error
	failSessFn func(ctx context.Context, sessionID uuid.UUID, reason string) error
}

func (f *fakeSessionUC) AcceptParcel(ctx context.Context, courierID int64, parcelID uuid.UUID) (*domain.DeliveryAssignment, error) {
	return f.acceptFn(ctx, courierID, parcelID)
}

func (f *fakeSessionUC) CompleteTask(ctx context.Context, courierID int64, parcelID uuid.UUID, route domain.RouteInfo) (*domain.DeliveryAssignment, error) {
	return f.completeFn(ctx, courierID, parcelID, route)
}

func (f *fakeSessionUC) FailDelivery(ctx context.Context, courierID int64, parcelID uuid.UUID, reason string, route domain.RouteInfo) (*domain.DeliveryAssignment, error) {
	return f.failFn(ctx, courierID, parcelID, reason, route)
}

func (f *fakeSessionUC) RefuseByCustomer(ctx context.Context, courierID int64, parcelID uuid.UUID, reason string) (*domain.DeliveryAssignment, error) {
	return f.refuseFn(ctx, courierID, parcelID, reason)
}

func (f *fakeSessionUC) CompleteSession(ctx context.Context, sessionID uuid.UUID) error {
	return f.closeFn(ctx, sessionID)
}

func (f *fakeSessionUC) FailSession(ctx context.Context, sessionID uuid.UUID, reason string) error {
	return f.failSessFn(ctx, sessionID, reason)
}

func sessionRouter(uc sessionUsecase) http.Handler {
	h := NewSessionHandler(testlog.New().Logger(), uc)
	r := chi.NewRouter()
	r.Post("/couriers/{courierID}/parcels/{parcelID}/accept", h.Accept)
	r.Post("/couriers/{courierID}/parcels/{parcelID}/complete", h.Complete)
	r.Post("/couriers/{courierID}/parcels/{parcelID}/fail", h.Fail)
	r.Post("/couriers/{courierID}/parcels/{parcelID}/refuse", h.Refuse)
	r.Post("/sessions/{sessionID}/complete", h.CompleteSession)
	r.Post("/sessions/{sessionID}/fail", h.FailSession)
	return r
}

func sampleAssignment(status domain.AssignmentStatus) *domain.DeliveryAssignment {
	return &domain.DeliveryAssignment{
		ID:        uuid.New(),
		SessionID: uuid.New(),
		TaskID:    uuid.New(),
		ParcelID:  uuid.New(),
		Status:    status,
		ScannedAt: time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC),
	}
}

func TestSessionAccept(t *testing.T) {
	t.Parallel()

	a := sampleAssignment(domain.AssignmentPending)
	uc := &fakeSessionUC{
		acceptFn: func(_ context.Context, courierID int64, parcelID uuid.UUID) (*domain.DeliveryAssignment, error) {
			require.Equal(t, int64(7), courierID)
			require.Equal(t, a.ParcelID, parcelID)
			return a, nil
		},
	}

	rec := doJSON(t, sessionRouter(uc), http.MethodPost, "/couriers/7/parcels/"+a.ParcelID.String()+"/accept", nil)
	require.Equal(t, http.StatusCreated, rec.Code)

	var got assignmentResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.Equal(t, "PENDING", got.Status)
}

func TestSessionAccept_Errors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		want int
	}{
		{"duplicate scan", apperr.ErrConflict, http.StatusConflict},
		{"invalid", apperr.ErrInvalid, http.StatusBadRequest},
		{"internal", context.DeadlineExceeded, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			uc := &fakeSessionUC{
				acceptFn: func(context.Context, int64, uuid.UUID) (*domain.DeliveryAssignment, error) {
					return nil, tt.err
				},
			}
			rec := doJSON(t, sessionRouter(uc), http.MethodPost, "/couriers/7/parcels/"+uuid.NewString()+"/accept", nil)
			require.Equal(t, tt.want, rec.Code)
		})
	}
}

func TestSessionAccept_BadCourierID(t *testing.T) {
	t.Parallel()

	rec := doJSON(t, sessionRouter(&fakeSessionUC{}), http.MethodPost, "/couriers/zero/parcels/"+uuid.NewString()+"/accept", nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSessionComplete(t *testing.T) {
	t.Parallel()

	a := sampleAssignment(domain.AssignmentCompleted)
	uc := &fakeSessionUC{
		completeFn: func(_ context.Context, _ int64, _ uuid.UUID, route domain.RouteInfo) (*domain.DeliveryAssignment, error) {
			require.Equal(t, int64(5200), route.DistanceMeters)
			return a, nil
		},
	}

	rec := doJSON(t, sessionRouter(uc), http.MethodPost, "/couriers/7/parcels/"+a.ParcelID.String()+"/complete", completeTaskRequest{
		Route: domain.RouteInfo{DistanceMeters: 5200, DurationSeconds: 900},
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var got assignmentResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.Equal(t, "COMPLETED", got.Status)
}

func TestSessionComplete_AlreadySettled(t *testing.T) {
	t.Parallel()

	uc := &fakeSessionUC{
		completeFn: func(context.Context, int64, uuid.UUID, domain.RouteInfo) (*domain.DeliveryAssignment, error) {
			return nil, apperr.ErrConflict
		},
	}
	rec := doJSON(t, sessionRouter(uc), http.MethodPost, "/couriers/7/parcels/"+uuid.NewString()+"/complete", completeTaskRequest{})
	require.Equal(t, http.StatusConflict, rec.Code)
}

func TestSessionFail_RequiresReason(t *testing.T) {
	t.Parallel()

	rec := doJSON(t, sessionRouter(&fakeSessionUC{}), http.MethodPost, "/couriers/7/parcels/"+uuid.NewString()+"/fail", failDeliveryRequest{})
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSessionFail(t *testing.T) {
	t.Parallel()

	a := sampleAssignment(domain.AssignmentFailed)
	uc := &fakeSessionUC{
		failFn: func(_ context.Context, _ int64, _ uuid.UUID, reason string, _ domain.RouteInfo) (*domain.DeliveryAssignment, error) {
			require.Equal(t, "door locked", reason)
			return a, nil
		},
	}
	rec := doJSON(t, sessionRouter(uc), http.MethodPost, "/couriers/7/parcels/"+a.ParcelID.String()+"/fail", failDeliveryRequest{Reason: "door locked"})
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestSessionRefuse(t *testing.T) {
	t.Parallel()

	a := sampleAssignment(domain.AssignmentRefused)
	uc := &fakeSessionUC{
		refuseFn: func(_ context.Context, _ int64, _ uuid.UUID, reason string) (*domain.DeliveryAssignment, error) {
			require.Equal(t, "damaged box", reason)
			return a, nil
		},
	}
	rec := doJSON(t, sessionRouter(uc), http.MethodPost, "/couriers/7/parcels/"+a.ParcelID.String()+"/refuse", refuseRequest{Reason: "damaged box"})
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestCompleteSession(t *testing.T) {
	t.Parallel()

	sessionID := uuid.New()
	uc := &fakeSessionUC{
		closeFn: func(_ context.Context, id uuid.UUID) error {
			require.Equal(t, sessionID, id)
			return nil
		},
	}
	rec := doJSON(t, sessionRouter(uc), http.MethodPost, "/sessions/"+sessionID.String()+"/complete", nil)
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestCompleteSession_Errors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		want int
	}{
		{"not found", apperr.ErrNotFound, http.StatusNotFound},
		{"already closed", apperr.ErrConflict, http.StatusConflict},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			uc := &fakeSessionUC{
				closeFn: func(context.Context, uuid.UUID) error { return tt.err },
			}
			rec := doJSON(t, sessionRouter(uc), http.MethodPost, "/sessions/"+uuid.NewString()+"/complete", nil)
			require.Equal(t, tt.want, rec.Code)
		})
	}
}

func TestFailSession(t *testing.T) {
	t.Parallel()

	uc := &fakeSessionUC{
		failSessFn: func(_ context.Context, _ uuid.UUID, reason string) error {
			require.Equal(t, "vehicle breakdown", reason)
			return nil
		},
	}
	rec := doJSON(t, sessionRouter(uc), http.MethodPost, "/sessions/"+uuid.NewString()+"/fail", failSessionRequest{Reason: "vehicle breakdown"})
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestFailSession_RequiresReason(t *testing.T) {
	t.Parallel()

	rec := doJSON(t, sessionRouter(&fakeSessionUC{}), http.MethodPost, "/sessions/"+uuid.NewString()+"/fail", failSessionRequest{})
	require.Equal(t, http.StatusBadRequest, rec.Code)
}
