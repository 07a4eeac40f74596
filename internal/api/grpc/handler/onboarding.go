package handler

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/dtroode/onboarding-server/internal/api/grpc/proto"
	"github.com/dtroode/onboarding-server/internal/logger"
	"github.com/dtroode/onboarding-server/internal/model"
	"github.com/dtroode/onboarding-server/internal/service"
)

// OnboardingService drives onboarding sessions.
type OnboardingService interface {
	Begin(ctx context.Context, req service.BeginRequest) (service.SessionView, error)
	Confirm(ctx context.Context, id uuid.UUID, code string) (service.SessionView, error)
	Complete(ctx context.Context, id uuid.UUID) (service.SessionView, error)
	Cancel(id uuid.UUID) error
	Status(id uuid.UUID) (service.SessionView, error)
}

var _ proto.OnboardingServer = (*Onboarding)(nil)

// Onboarding handles gRPC endpoints of onboarding.v1.Onboarding.
type Onboarding struct {
	service OnboardingService
	logger  *logger.Logger
}

func NewOnboarding(svc OnboardingService, logger *logger.Logger) *Onboarding {
	return &Onboarding{service: svc, logger: logger}
}

// Begin starts a session, or restarts a failed one when session_id is set.
func (h *Onboarding) Begin(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	sessionID, err := parseSessionID(req, false)
	if err != nil {
		return nil, handleError(err)
	}

	begin := service.BeginRequest{
		SessionID: sessionID,
		Email:     stringField(req, fieldEmail),
		Form:      parseForm(req),
	}
	if followUp := req.GetFields()[fieldFollowUp].GetStructValue(); followUp != nil {
		draft, err := parseDraft(followUp)
		if err != nil {
			return nil, handleError(err)
		}
		begin.FollowUp = &draft
	}

	h.logger.Debug("Onboarding handler: processing begin request",
		"session_id", sessionID)

	view, err := h.service.Begin(ctx, begin)
	return h.respond("begin", view, err)
}

func (h *Onboarding) ConfirmChallenge(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	sessionID, err := parseSessionID(req, true)
	if err != nil {
		return nil, handleError(err)
	}
	code := stringField(req, fieldCode)
	if code == "" {
		return nil, handleError(model.NewValidationError(fieldCode, "must not be empty"))
	}

	view, err := h.service.Confirm(ctx, sessionID, code)
	return h.respond("confirm", view, err)
}

// Complete retries reconciliation and the deferred action after a failure.
func (h *Onboarding) Complete(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	sessionID, err := parseSessionID(req, true)
	if err != nil {
		return nil, handleError(err)
	}

	view, err := h.service.Complete(ctx, sessionID)
	return h.respond("complete", view, err)
}

func (h *Onboarding) Cancel(_ context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	sessionID, err := parseSessionID(req, true)
	if err != nil {
		return nil, handleError(err)
	}

	if err := h.service.Cancel(sessionID); err != nil {
		return nil, handleError(err)
	}

	h.logger.Info("Onboarding handler: session cancelled",
		"session_id", sessionID)

	return toStruct(map[string]any{
		fieldSessionID: sessionID.String(),
		"state":        model.StateInit.String(),
		"message":      "Onboarding was cancelled.",
	})
}

func (h *Onboarding) GetSession(_ context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	sessionID, err := parseSessionID(req, true)
	if err != nil {
		return nil, handleError(err)
	}

	view, err := h.service.Status(sessionID)
	if err != nil {
		return nil, handleError(err)
	}
	return toStruct(sessionMap(view))
}

// respond turns a session view into a response. Failures still carry the
// view as a status detail when a session exists.
func (h *Onboarding) respond(op string, view service.SessionView, err error) (*structpb.Struct, error) {
	if err != nil {
		log := h.logger.Warn
		if errors.Is(err, model.ErrAlreadyInProgress) {
			log = h.logger.Error
		}
		log("Onboarding handler: request failed",
			"op", op,
			"session_id", view.ID,
			"state", view.State.String(),
			"error", err.Error())

		if view.ID == uuid.Nil {
			return nil, handleError(err)
		}
		detail, _ := structpb.NewStruct(sessionMap(view))
		return nil, handleErrorWithDetails(err, detail)
	}

	h.logger.Info("Onboarding handler: request completed",
		"op", op,
		"session_id", view.ID,
		"state", view.State.String(),
		"completed", view.Completed)

	return toStruct(sessionMap(view))
}
