package kafka

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"parcelflow/internal/domain"
)

// EventDTO is the wire shape of a state-change request on the channel.
// Fields are additive only; there is no schema versioning.
type EventDTO struct {
	EventID       string    `json:"eventId"`
	ParcelID      string    `json:"parcelId"`
	EventType     string    `json:"eventType"`
	SourceService string    `json:"sourceService"`
	CreatedAt     time.Time `json:"createdAt"`
}

// ToDomain converts EventDTO to domain.StateChangeRequest, validating ids
// and the event type. A failure here is permanent: the payload can never
// become parseable on redelivery.
func ToDomain(dto EventDTO) (domain.StateChangeRequest, error) {
	parcelID, err := uuid.Parse(strings.TrimSpace(dto.ParcelID))
	if err != nil {
		return domain.StateChangeRequest{}, fmt.Errorf("bad parcel id %q: %w", dto.ParcelID, err)
	}

	eventID, err := uuid.Parse(strings.TrimSpace(dto.EventID))
	if err != nil {
		return domain.StateChangeRequest{}, fmt.Errorf("bad event id %q: %w", dto.EventID, err)
	}

	eventType := domain.EventType(strings.TrimSpace(dto.EventType))
	if !eventType.Valid() {
		return domain.StateChangeRequest{}, fmt.Errorf("unknown event type %q", dto.EventType)
	}

	return domain.StateChangeRequest{
		EventID:       eventID,
		ParcelID:      parcelID,
		EventType:     eventType,
		SourceService: strings.TrimSpace(dto.SourceService),
		CreatedAt:     dto.CreatedAt,
	}, nil
}
