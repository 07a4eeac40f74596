package handler

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/dtroode/onboarding-server/internal/model"
	"github.com/dtroode/onboarding-server/internal/service"
)

// Request and response field names.
const (
	fieldSessionID    = "session_id"
	fieldEmail        = "email"
	fieldForm         = "form"
	fieldFollowUp     = "follow_up"
	fieldCode         = "code"
	fieldType         = "type"
	fieldWindows      = "windows"
	fieldStart        = "start"
	fieldEnd          = "end"
	fieldMetadata     = "metadata"
	fieldName         = "name"
	fieldJobTitle     = "job_title"
	fieldCompanyName  = "company_name"
	fieldRefreshToken = "refresh_token"
	fieldAccessToken  = "access_token"
)

func stringField(req *structpb.Struct, key string) string {
	return req.GetFields()[key].GetStringValue()
}

func parseSessionID(req *structpb.Struct, required bool) (uuid.UUID, error) {
	raw := stringField(req, fieldSessionID)
	if raw == "" {
		if required {
			return uuid.Nil, model.NewValidationError(fieldSessionID, "must not be empty")
		}
		return uuid.Nil, nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, model.NewValidationError(fieldSessionID, "must be a UUID")
	}
	return id, nil
}

func parseForm(req *structpb.Struct) model.FormData {
	form := req.GetFields()[fieldForm].GetStructValue()
	if form == nil {
		return model.FormData{}
	}
	return model.FormData(form.AsMap())
}

// parseDraft reads a schedule draft. Metadata may be a JSON string, kept
// byte for byte, or any structured value, which is re-encoded.
func parseDraft(s *structpb.Struct) (model.ScheduleDraft, error) {
	draft := model.ScheduleDraft{Type: stringField(s, fieldType)}

	for _, v := range s.GetFields()[fieldWindows].GetListValue().GetValues() {
		w := v.GetStructValue()
		start, err := time.Parse(time.RFC3339, stringField(w, fieldStart))
		if err != nil {
			return model.ScheduleDraft{}, model.NewValidationError(fieldWindows, "start must be an RFC 3339 timestamp")
		}
		end, err := time.Parse(time.RFC3339, stringField(w, fieldEnd))
		if err != nil {
			return model.ScheduleDraft{}, model.NewValidationError(fieldWindows, "end must be an RFC 3339 timestamp")
		}
		draft.Windows = append(draft.Windows, model.TimeWindow{Start: start, End: end})
	}

	if meta, ok := s.GetFields()[fieldMetadata]; ok {
		switch kind := meta.GetKind().(type) {
		case *structpb.Value_StringValue:
			draft.Metadata = json.RawMessage(kind.StringValue)
		case *structpb.Value_NullValue:
		default:
			raw, err := json.Marshal(meta.AsInterface())
			if err != nil {
				return model.ScheduleDraft{}, model.NewValidationError(fieldMetadata, "must be JSON")
			}
			draft.Metadata = raw
		}
	}

	return draft, nil
}

func userMap(u model.User) map[string]any {
	m := map[string]any{
		"id":          u.ID.String(),
		fieldEmail:    u.Email,
		fieldName:     u.Name,
		fieldJobTitle: u.JobTitle,
		"company_id":  nil,
		"created_at":  u.CreatedAt.UTC().Format(time.RFC3339),
	}
	if u.CompanyID != nil {
		m["company_id"] = u.CompanyID.String()
	}
	return m
}

func companyMap(c model.Company) map[string]any {
	if c.ID == uuid.Nil {
		return nil
	}
	return map[string]any{
		"id":      c.ID.String(),
		"domain":  c.Domain,
		fieldName: c.Name,
	}
}

func accountMap(a model.Account) map[string]any {
	out := map[string]any{"user": userMap(a.User)}
	if c := companyMap(a.Company); c != nil {
		out["company"] = c
	}
	return out
}

func scheduleRequestMap(r model.ScheduleRequest) map[string]any {
	windows := make([]any, 0, len(r.Windows))
	for _, w := range r.Windows {
		windows = append(windows, map[string]any{
			fieldStart: w.Start.UTC().Format(time.RFC3339),
			fieldEnd:   w.End.UTC().Format(time.RFC3339),
		})
	}
	return map[string]any{
		"id":           r.ID.String(),
		"requester_id": r.RequesterID.String(),
		"company_id":   r.CompanyID.String(),
		fieldType:      r.Type,
		"status":       string(r.Status),
		fieldWindows:   windows,
		fieldMetadata:  string(r.Metadata),
		"created_at":   r.CreatedAt.UTC().Format(time.RFC3339),
	}
}

// stateMessages tell the user what to do next.
var stateMessages = map[model.ChallengeState]string{
	model.StateInit:                     "Enter your work email to get started.",
	model.StateProbing:                  "Checking your email.",
	model.StateSigningUp:                "Creating your account.",
	model.StateSigningIn:                "Signing you in.",
	model.StateAwaitingOTPSignUp:        "We sent a verification code to your email.",
	model.StateAwaitingOTPSignIn:        "We sent a sign-in code to your email.",
	model.StateRequireFactorReselection: "Setting up email verification.",
	model.StateConfirming:               "Checking your code.",
	model.StateAuthenticated:            "Your email is verified.",
	model.StateFailed:                   "Something went wrong. Please start over.",
}

func sessionMap(v service.SessionView) map[string]any {
	m := map[string]any{
		fieldSessionID: v.ID.String(),
		"state":        v.State.String(),
		fieldEmail:     v.Email,
		"attempts":     v.Attempts,
		"completed":    v.Completed,
		"message":      stateMessages[v.State],
	}
	if v.Completed {
		m["message"] = "You're all set."
	}
	if v.Account != nil {
		for k, val := range accountMap(*v.Account) {
			m[k] = val
		}
	}
	if v.AccessToken != "" {
		m[fieldAccessToken] = v.AccessToken
		m[fieldRefreshToken] = v.RefreshToken
	}
	return m
}

func toStruct(m map[string]any) (*structpb.Struct, error) {
	s, err := structpb.NewStruct(m)
	if err != nil {
		return nil, handleError(err)
	}
	return s, nil
}
