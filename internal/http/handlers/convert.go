package handlers

import "parcelflow/internal/domain"

func parcelToResponse(p *domain.Parcel) parcelResponse {
	return parcelResponse{
		ID:          p.ID.String(),
		Code:        p.Code,
		Status:      string(p.Status),
		WeightGrams: p.WeightGrams,
		ValueCents:  p.ValueCents,
		WindowStart: p.WindowStart,
		WindowEnd:   p.WindowEnd,
		DeliveredAt: p.DeliveredAt,
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
}

func assignmentToResponse(a *domain.DeliveryAssignment) assignmentResponse {
	return assignmentResponse{
		ID:         a.ID.String(),
		SessionID:  a.SessionID.String(),
		TaskID:     a.TaskID.String(),
		ParcelID:   a.ParcelID.String(),
		Status:     string(a.Status),
		Route:      a.Route,
		FailReason: a.FailReason,
		ScannedAt:  a.ScannedAt,
	}
}
