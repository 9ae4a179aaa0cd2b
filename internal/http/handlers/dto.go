package handlers

import (
	"time"

	"parcelflow/internal/domain"
)

type parcelResponse struct {
	ID          string     `json:"id"`
	Code        string     `json:"code"`
	Status      string     `json:"status"`
	WeightGrams int64      `json:"weight_grams"`
	ValueCents  int64      `json:"value_cents"`
	WindowStart time.Time  `json:"window_start"`
	WindowEnd   time.Time  `json:"window_end"`
	DeliveredAt *time.Time `json:"delivered_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

type createParcelRequest struct {
	Code        string    `json:"code"`
	WeightGrams int64     `json:"weight_grams"`
	ValueCents  int64     `json:"value_cents"`
	WindowStart time.Time `json:"window_start"`
	WindowEnd   time.Time `json:"window_end"`
}

type batchParcelsRequest struct {
	IDs []string `json:"ids"`
}

type batchParcelsResponse struct {
	Parcels []parcelResponse `json:"parcels"`
}

type assignmentResponse struct {
	ID         string           `json:"id"`
	SessionID  string           `json:"session_id"`
	TaskID     string           `json:"task_id"`
	ParcelID   string           `json:"parcel_id"`
	Status     string           `json:"status"`
	Route      domain.RouteInfo `json:"route"`
	FailReason string           `json:"fail_reason,omitempty"`
	ScannedAt  time.Time        `json:"scanned_at"`
}

type completeTaskRequest struct {
	Route domain.RouteInfo `json:"route"`
}

type failDeliveryRequest struct {
	Reason string           `json:"reason"`
	Route  domain.RouteInfo `json:"route"`
}

type refuseRequest struct {
	Reason string `json:"reason"`
}

type failSessionRequest struct {
	Reason string `json:"reason"`
}
