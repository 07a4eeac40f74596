package model

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// ScheduleRequestStore persists schedule requests.
type ScheduleRequestStore interface {
	Create(ctx context.Context, request ScheduleRequest) (ScheduleRequest, error)
	ListByRequester(ctx context.Context, requesterID uuid.UUID) ([]ScheduleRequest, error)
}

// ScheduleStatus enumerates schedule request states.
type ScheduleStatus string

const (
	ScheduleStatusPending   ScheduleStatus = "PENDING"
	ScheduleStatusScheduled ScheduleStatus = "SCHEDULED"
	ScheduleStatusCompleted ScheduleStatus = "COMPLETED"
	ScheduleStatusCancelled ScheduleStatus = "CANCELLED"
)

// TimeWindow is a requested slot.
type TimeWindow struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// ScheduleRequest is a follow-up request created after onboarding.
// Metadata is written once at creation and stored byte for byte.
type ScheduleRequest struct {
	ID          uuid.UUID
	RequesterID uuid.UUID
	CompanyID   uuid.UUID
	Type        string
	Status      ScheduleStatus
	Windows     []TimeWindow
	Metadata    json.RawMessage
	CreatedAt   time.Time
}

// ScheduleDraft holds caller-supplied fields of a new schedule request.
type ScheduleDraft struct {
	Type     string
	Windows  []TimeWindow
	Metadata json.RawMessage
}

// Validate checks the draft before it reaches a store.
func (d ScheduleDraft) Validate() error {
	if d.Type == "" {
		return NewValidationError("type", "must not be empty")
	}
	if len(d.Windows) == 0 {
		return NewValidationError("windows", "at least one window is required")
	}
	for _, w := range d.Windows {
		if !w.End.After(w.Start) {
			return NewValidationError("windows", "window end must be after start")
		}
	}
	if len(d.Metadata) > 0 && !json.Valid(d.Metadata) {
		return NewValidationError("metadata", "must be valid JSON")
	}
	return nil
}
