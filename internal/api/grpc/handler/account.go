package handler

import (
	"context"

	"github.com/google/uuid"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/dtroode/onboarding-server/internal/api/grpc/proto"
	"github.com/dtroode/onboarding-server/internal/logger"
	"github.com/dtroode/onboarding-server/internal/model"
	"github.com/dtroode/onboarding-server/internal/service"
)

// AccountService serves an onboarded user's data.
type AccountService interface {
	GetProfile(ctx context.Context, userID uuid.UUID) (model.Account, error)
	UpdateProfile(ctx context.Context, userID uuid.UUID, upd service.ProfileUpdate) (model.Account, error)
	CreateScheduleRequest(ctx context.Context, userID uuid.UUID, draft model.ScheduleDraft) (model.ScheduleRequest, error)
	ListScheduleRequests(ctx context.Context, userID uuid.UUID) ([]model.ScheduleRequest, error)
}

// TokenService defines token refresh and revoke operations.
type TokenService interface {
	Refresh(ctx context.Context, refreshToken string) (accessToken string, newRefreshToken string, err error)
	RevokeByToken(ctx context.Context, refreshToken string) error
	RevokeAllForUser(ctx context.Context, userID uuid.UUID) error
}

var _ proto.AccountServer = (*Account)(nil)

// Account handles gRPC endpoints of onboarding.v1.Account.
type Account struct {
	service        AccountService
	tokenService   TokenService
	contextManager model.ContextManager
	logger         *logger.Logger
}

func NewAccount(svc AccountService, tokenService TokenService, contextManager model.ContextManager, logger *logger.Logger) *Account {
	return &Account{
		service:        svc,
		tokenService:   tokenService,
		contextManager: contextManager,
		logger:         logger,
	}
}

func (h *Account) GetProfile(ctx context.Context, _ *structpb.Struct) (*structpb.Struct, error) {
	userID, err := h.extractUserIDFromContext(ctx)
	if err != nil {
		return nil, handleError(err)
	}

	acct, err := h.service.GetProfile(ctx, userID)
	if err != nil {
		h.logger.Error("Account handler: get profile failed",
			"user_id", userID,
			"error", err.Error())
		return nil, handleError(err)
	}

	return toStruct(accountMap(acct))
}

// UpdateProfile applies name, job_title and company_name. Empty values are ignored.
func (h *Account) UpdateProfile(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	userID, err := h.extractUserIDFromContext(ctx)
	if err != nil {
		return nil, handleError(err)
	}

	acct, err := h.service.UpdateProfile(ctx, userID, service.ProfileUpdate{
		Name:        stringField(req, fieldName),
		JobTitle:    stringField(req, fieldJobTitle),
		CompanyName: stringField(req, fieldCompanyName),
	})
	if err != nil {
		h.logger.Error("Account handler: update profile failed",
			"user_id", userID,
			"error", err.Error())
		return nil, handleError(err)
	}

	h.logger.Info("Account handler: profile updated",
		"user_id", userID)

	return toStruct(accountMap(acct))
}

func (h *Account) CreateScheduleRequest(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	userID, err := h.extractUserIDFromContext(ctx)
	if err != nil {
		return nil, handleError(err)
	}

	draft, err := parseDraft(req)
	if err != nil {
		return nil, handleError(err)
	}

	created, err := h.service.CreateScheduleRequest(ctx, userID, draft)
	if err != nil {
		h.logger.Error("Account handler: create schedule request failed",
			"user_id", userID,
			"error", err.Error())
		return nil, handleError(err)
	}

	h.logger.Info("Account handler: schedule request created",
		"user_id", userID,
		"request_id", created.ID)

	return toStruct(scheduleRequestMap(created))
}

func (h *Account) ListScheduleRequests(ctx context.Context, _ *structpb.Struct) (*structpb.Struct, error) {
	userID, err := h.extractUserIDFromContext(ctx)
	if err != nil {
		return nil, handleError(err)
	}

	requests, err := h.service.ListScheduleRequests(ctx, userID)
	if err != nil {
		h.logger.Error("Account handler: list schedule requests failed",
			"user_id", userID,
			"error", err.Error())
		return nil, handleError(err)
	}

	items := make([]any, 0, len(requests))
	for _, r := range requests {
		items = append(items, scheduleRequestMap(r))
	}
	return toStruct(map[string]any{"requests": items})
}

// RefreshToken exchanges a refresh token for a new token pair.
func (h *Account) RefreshToken(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	refreshToken := stringField(req, fieldRefreshToken)
	if refreshToken == "" {
		return nil, handleError(model.NewValidationError(fieldRefreshToken, "must not be empty"))
	}

	accessToken, newRefreshToken, err := h.tokenService.Refresh(ctx, refreshToken)
	if err != nil {
		h.logger.Error("Account handler: token refresh failed",
			"error", err.Error())
		return nil, handleError(err)
	}

	h.logger.Info("Account handler: token refresh successful")

	return toStruct(map[string]any{
		fieldAccessToken:  accessToken,
		fieldRefreshToken: newRefreshToken,
	})
}

func (h *Account) RevokeToken(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	refreshToken := stringField(req, fieldRefreshToken)
	if refreshToken == "" {
		return nil, handleError(model.NewValidationError(fieldRefreshToken, "must not be empty"))
	}

	if err := h.tokenService.RevokeByToken(ctx, refreshToken); err != nil {
		h.logger.Error("Account handler: token revoke failed",
			"error", err.Error())
		return nil, handleError(err)
	}

	return &structpb.Struct{}, nil
}

// SignOut revokes every refresh token of the caller. Access tokens stay
// valid until they expire.
func (h *Account) SignOut(ctx context.Context, _ *structpb.Struct) (*structpb.Struct, error) {
	userID, err := h.extractUserIDFromContext(ctx)
	if err != nil {
		return nil, handleError(err)
	}

	if err := h.tokenService.RevokeAllForUser(ctx, userID); err != nil {
		h.logger.Error("Account handler: sign out failed",
			"user_id", userID,
			"error", err.Error())
		return nil, handleError(err)
	}

	h.logger.Info("Account handler: user signed out",
		"user_id", userID)

	return &structpb.Struct{}, nil
}

func (h *Account) extractUserIDFromContext(ctx context.Context) (uuid.UUID, error) {
	userID, ok := h.contextManager.GetUserIDFromContext(ctx)
	if !ok {
		return uuid.Nil, model.ErrMissingToken
	}
	return userID, nil
}
