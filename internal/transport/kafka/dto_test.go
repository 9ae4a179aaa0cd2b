package kafka

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"parcelflow/internal/domain"
)

func TestToDomain(t *testing.T) {
	t.Parallel()

	eventID := uuid.New()
	parcelID := uuid.New()
	created := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	req, err := ToDomain(EventDTO{
		EventID:       eventID.String(),
		ParcelID:      " " + parcelID.String() + " ",
		EventType:     "DELIVER",
		SourceService: "courier-service",
		CreatedAt:     created,
	})
	require.NoError(t, err)
	require.Equal(t, eventID, req.EventID)
	require.Equal(t, parcelID, req.ParcelID)
	require.Equal(t, domain.EventDeliver, req.EventType)
	require.Equal(t, "courier-service", req.SourceService)
	require.Equal(t, created, req.CreatedAt)
}

func TestToDomain_Invalid(t *testing.T) {
	t.Parallel()

	valid := EventDTO{
		EventID:   uuid.NewString(),
		ParcelID:  uuid.NewString(),
		EventType: "FAIL",
	}

	tests := []struct {
		name   string
		mutate func(*EventDTO)
	}{
		{"bad parcel id", func(d *EventDTO) { d.ParcelID = "abc" }},
		{"empty parcel id", func(d *EventDTO) { d.ParcelID = "" }},
		{"bad event id", func(d *EventDTO) { d.EventID = "42" }},
		{"unknown event type", func(d *EventDTO) { d.EventType = "TELEPORT" }},
		{"empty event type", func(d *EventDTO) { d.EventType = "" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			dto := valid
			tt.mutate(&dto)
			_, err := ToDomain(dto)
			require.Error(t, err)
		})
	}
}
