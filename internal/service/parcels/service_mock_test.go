package parcels_test

import (
	"context"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/require"

	"parcelflow/internal/apperr"
	"parcelflow/internal/domain"
	"parcelflow/internal/logx"
	"parcelflow/internal/service/parcels"
)

func newCtrl(t *testing.T) *gomock.Controller {
	t.Helper()
	ctrl := gomock.NewController(t)
	t.Cleanup(ctrl.Finish)
	return ctrl
}

func TestCreate_DuplicateCode_MapsToConflict(t *testing.T) {
	t.Parallel()
	ctrl := newCtrl(t)

	runner := NewMockTxRunner(ctrl)
	reader := NewMockReader(ctrl)
	writer := NewMockWriter(ctrl)

	writer.EXPECT().
		Insert(gomock.Any(), gomock.Any()).
		Return(&pgconn.PgError{Code: "23505"})

	svc := parcels.NewService(runner, reader, writer, time.Second, logx.Nop())
	_, err := svc.Create(context.Background(), "PKG-9", 100, 100, time.Now(), time.Now().Add(time.Hour))
	require.ErrorIs(t, err, apperr.ErrConflict)
}

func TestCreate_PassesIntakeFields(t *testing.T) {
	t.Parallel()
	ctrl := newCtrl(t)

	runner := NewMockTxRunner(ctrl)
	reader := NewMockReader(ctrl)
	writer := NewMockWriter(ctrl)

	start := time.Now()
	end := start.Add(2 * time.Hour)
	writer.EXPECT().
		Insert(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, p *domain.Parcel) error {
			require.Equal(t, "PKG-9", p.Code)
			require.Equal(t, domain.StatusInWarehouse, p.Status)
			require.Equal(t, int64(250), p.WeightGrams)
			require.Equal(t, int64(999), p.ValueCents)
			return nil
		})

	svc := parcels.NewService(runner, reader, writer, time.Second, logx.Nop())
	p, err := svc.Create(context.Background(), " PKG-9 ", 250, 999, start, end)
	require.NoError(t, err)
	require.Equal(t, "PKG-9", p.Code)
}

func TestGetByCode_TrimsAndRejectsEmpty(t *testing.T) {
	t.Parallel()
	ctrl := newCtrl(t)

	runner := NewMockTxRunner(ctrl)
	reader := NewMockReader(ctrl)
	writer := NewMockWriter(ctrl)

	svc := parcels.NewService(runner, reader, writer, time.Second, logx.Nop())
	_, err := svc.GetByCode(context.Background(), "   ")
	require.ErrorIs(t, err, apperr.ErrInvalid)
}

func TestApplyEvent_RunnerErrorPassesThrough(t *testing.T) {
	t.Parallel()
	ctrl := newCtrl(t)

	runner := NewMockTxRunner(ctrl)
	reader := NewMockReader(ctrl)
	writer := NewMockWriter(ctrl)

	runner.EXPECT().
		WithTx(gomock.Any(), gomock.Any()).
		Return(context.DeadlineExceeded)

	svc := parcels.NewService(runner, reader, writer, time.Second, logx.Nop())
	_, err := svc.ApplyEvent(context.Background(), domain.StateChangeRequest{
		EventID:   uuid.New(),
		ParcelID:  uuid.New(),
		EventType: domain.EventDeliver,
	})
	require.ErrorIs(t, err, context.DeadlineExceeded)
}
