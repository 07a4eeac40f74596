package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/dtroode/onboarding-server/internal/logger"
	"github.com/dtroode/onboarding-server/internal/model"
)

// ProfileUpdate carries the fields a user may change. Empty values are
// ignored, so stored values are never cleared.
type ProfileUpdate struct {
	Name        string
	JobTitle    string
	CompanyName string
}

// Account serves an onboarded user's profile and schedule requests.
type Account struct {
	users     model.UserStore
	companies model.CompanyStore
	requests  model.ScheduleRequestStore
	logger    *logger.Logger
}

func NewAccount(users model.UserStore, companies model.CompanyStore, requests model.ScheduleRequestStore, logger *logger.Logger) *Account {
	return &Account{
		users:     users,
		companies: companies,
		requests:  requests,
		logger:    logger,
	}
}

func (a *Account) GetProfile(ctx context.Context, userID uuid.UUID) (model.Account, error) {
	user, err := a.users.GetByID(ctx, userID)
	if err != nil {
		return model.Account{}, fmt.Errorf("failed to get user: %w", err)
	}

	acct := model.Account{User: user}
	if user.CompanyID == nil {
		return acct, nil
	}

	acct.Company, err = a.companies.GetByID(ctx, *user.CompanyID)
	if err != nil {
		return model.Account{}, fmt.Errorf("failed to get company: %w", err)
	}
	return acct, nil
}

func (a *Account) UpdateProfile(ctx context.Context, userID uuid.UUID, upd ProfileUpdate) (model.Account, error) {
	acct, err := a.GetProfile(ctx, userID)
	if err != nil {
		return model.Account{}, err
	}

	userUpd := model.UserUpdate{
		ID:       userID,
		Name:     differing(acct.User.Name, strings.TrimSpace(upd.Name)),
		JobTitle: differing(acct.User.JobTitle, strings.TrimSpace(upd.JobTitle)),
	}
	if !userUpd.Empty() {
		acct.User, err = a.users.Update(ctx, userUpd)
		if err != nil {
			return model.Account{}, fmt.Errorf("failed to update user: %w", err)
		}
	}

	companyName := differing(acct.Company.Name, strings.TrimSpace(upd.CompanyName))
	if companyName != nil {
		if acct.User.CompanyID == nil {
			return model.Account{}, model.NewValidationError("company_name", "user has no company")
		}
		acct.Company, err = a.companies.Update(ctx, model.CompanyUpdate{ID: acct.Company.ID, Name: companyName})
		if err != nil {
			return model.Account{}, fmt.Errorf("failed to update company: %w", err)
		}
	}

	a.logger.Debug("Account service: profile updated",
		"user_id", userID)

	return acct, nil
}

func (a *Account) CreateScheduleRequest(ctx context.Context, userID uuid.UUID, draft model.ScheduleDraft) (model.ScheduleRequest, error) {
	if err := draft.Validate(); err != nil {
		return model.ScheduleRequest{}, err
	}

	user, err := a.users.GetByID(ctx, userID)
	if err != nil {
		return model.ScheduleRequest{}, fmt.Errorf("failed to get user: %w", err)
	}
	if user.CompanyID == nil {
		return model.ScheduleRequest{}, model.NewValidationError("company", "user has no company")
	}

	req, err := a.requests.Create(ctx, model.ScheduleRequest{
		ID:          uuid.New(),
		RequesterID: user.ID,
		CompanyID:   *user.CompanyID,
		Type:        draft.Type,
		Status:      model.ScheduleStatusPending,
		Windows:     draft.Windows,
		Metadata:    draft.Metadata,
	})
	if err != nil {
		a.logger.Error("Account service: failed to create schedule request",
			"user_id", userID,
			"error", err.Error())
		return model.ScheduleRequest{}, fmt.Errorf("failed to create schedule request: %w", err)
	}

	return req, nil
}

func (a *Account) ListScheduleRequests(ctx context.Context, userID uuid.UUID) ([]model.ScheduleRequest, error) {
	reqs, err := a.requests.ListByRequester(ctx, userID)
	if err != nil && !errors.Is(err, model.ErrNotFound) {
		return nil, fmt.Errorf("failed to list schedule requests: %w", err)
	}
	return reqs, nil
}
