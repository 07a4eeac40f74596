package service

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/dtroode/onboarding-server/internal/logger"
	"github.com/dtroode/onboarding-server/internal/model"
)

const formContentType = "application/json"

// FormKey is the object key of an archived onboarding form.
func FormKey(userID, sessionID uuid.UUID) string {
	return fmt.Sprintf("forms/%s/%s.json", userID, sessionID)
}

// PersistForm archives the submitted form in object storage.
type PersistForm struct {
	store  model.ObjectStore
	logger *logger.Logger
}

var _ Action = (*PersistForm)(nil)

func NewPersistForm(store model.ObjectStore, logger *logger.Logger) *PersistForm {
	return &PersistForm{store: store, logger: logger}
}

func (a *PersistForm) Name() string {
	return "persist_form"
}

func (a *PersistForm) Run(ctx context.Context, in ActionInput) error {
	key := FormKey(in.Account.User.ID, in.SessionID)

	exists, err := a.store.Exists(ctx, key)
	if err != nil {
		return fmt.Errorf("failed to check archived form: %w", err)
	}
	if exists {
		return nil
	}

	form := in.Form
	if form == nil {
		form = model.FormData{}
	}
	data, err := json.Marshal(form)
	if err != nil {
		return fmt.Errorf("failed to marshal form: %w", err)
	}

	if err := a.store.Put(ctx, key, data, formContentType); err != nil {
		return fmt.Errorf("failed to archive form: %w", err)
	}

	a.logger.Debug("Persist form: form archived",
		"key", key,
		"size", len(data))
	return nil
}

// RequestSchedule creates a PENDING schedule request for the new account
// and then archives the form. It belongs to one session; a retry after a
// failed archive does not create a second request.
type RequestSchedule struct {
	requests model.ScheduleRequestStore
	archive  *PersistForm
	draft    model.ScheduleDraft
	logger   *logger.Logger

	created *model.ScheduleRequest
}

var _ Action = (*RequestSchedule)(nil)

func NewRequestSchedule(requests model.ScheduleRequestStore, archive *PersistForm, draft model.ScheduleDraft, logger *logger.Logger) *RequestSchedule {
	return &RequestSchedule{
		requests: requests,
		archive:  archive,
		draft:    draft,
		logger:   logger,
	}
}

func (a *RequestSchedule) Name() string {
	return "request_schedule"
}

func (a *RequestSchedule) Run(ctx context.Context, in ActionInput) error {
	if a.created == nil {
		req, err := a.requests.Create(ctx, model.ScheduleRequest{
			ID:          uuid.New(),
			RequesterID: in.Account.User.ID,
			CompanyID:   in.Account.Company.ID,
			Type:        a.draft.Type,
			Status:      model.ScheduleStatusPending,
			Windows:     a.draft.Windows,
			Metadata:    a.draft.Metadata,
		})
		if err != nil {
			return fmt.Errorf("failed to create schedule request: %w", err)
		}
		a.created = &req

		a.logger.Info("Request schedule: schedule request created",
			"request_id", req.ID,
			"requester_id", req.RequesterID,
			"type", req.Type)
	}

	if a.archive == nil {
		return nil
	}
	return a.archive.Run(ctx, in)
}

// Created returns the request once it exists.
func (a *RequestSchedule) Created() (model.ScheduleRequest, bool) {
	if a.created == nil {
		return model.ScheduleRequest{}, false
	}
	return *a.created, true
}
