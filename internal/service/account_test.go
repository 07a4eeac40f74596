package service

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dtroode/onboarding-server/internal/model"
	"github.com/dtroode/onboarding-server/internal/repository/memory"
	"github.com/dtroode/onboarding-server/internal/testutil"
)

type accountFixture struct {
	svc      *Account
	users    *memory.Users
	requests *memory.ScheduleRequests
	account  model.Account
}

func newAccountFixture(t *testing.T) *accountFixture {
	t.Helper()

	ctx := context.Background()
	users, companies, requests := memory.NewUsers(), memory.NewCompanies(), memory.NewScheduleRequests()
	log := testutil.MakeNoopLogger()

	acct, err := NewReconciler(users, companies, nil, log).
		Reconcile(ctx, uuid.New(), "alice@newco.com", model.FormData{"name": "Alice", "jobTitle": "CTO"})
	require.NoError(t, err)

	return &accountFixture{
		svc:      NewAccount(users, companies, requests, log),
		users:    users,
		requests: requests,
		account:  acct,
	}
}

func TestAccount_GetProfile(t *testing.T) {
	f := newAccountFixture(t)

	got, err := f.svc.GetProfile(context.Background(), f.account.User.ID)
	require.NoError(t, err)
	assert.Equal(t, f.account, got)

	_, err = f.svc.GetProfile(context.Background(), uuid.New())
	assert.ErrorIs(t, err, model.ErrNotFound)
}

func TestAccount_UpdateProfile_NeverClears(t *testing.T) {
	ctx := context.Background()
	f := newAccountFixture(t)
	writes := f.users.Writes()

	got, err := f.svc.UpdateProfile(ctx, f.account.User.ID, ProfileUpdate{Name: "  ", JobTitle: "CTO"})
	require.NoError(t, err)
	assert.Equal(t, "Alice", got.User.Name)
	assert.Equal(t, writes, f.users.Writes())

	got, err = f.svc.UpdateProfile(ctx, f.account.User.ID, ProfileUpdate{JobTitle: "CEO", CompanyName: "NewCo Labs"})
	require.NoError(t, err)
	assert.Equal(t, "Alice", got.User.Name)
	assert.Equal(t, "CEO", got.User.JobTitle)
	assert.Equal(t, "NewCo Labs", got.Company.Name)
}

func TestAccount_ScheduleRequests(t *testing.T) {
	ctx := context.Background()
	f := newAccountFixture(t)
	start := time.Now().Add(time.Hour)

	_, err := f.svc.CreateScheduleRequest(ctx, f.account.User.ID, model.ScheduleDraft{
		Type:    "demo",
		Windows: []model.TimeWindow{{Start: start, End: start}},
	})
	var verr *model.ValidationError
	require.ErrorAs(t, err, &verr)

	meta := json.RawMessage(`{"k":"v"}`)
	req, err := f.svc.CreateScheduleRequest(ctx, f.account.User.ID, model.ScheduleDraft{
		Type:     "demo",
		Windows:  []model.TimeWindow{{Start: start, End: start.Add(time.Hour)}},
		Metadata: meta,
	})
	require.NoError(t, err)
	assert.Equal(t, model.ScheduleStatusPending, req.Status)
	assert.Equal(t, f.account.Company.ID, req.CompanyID)

	list, err := f.svc.ListScheduleRequests(ctx, f.account.User.ID)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, req.ID, list[0].ID)
	assert.Equal(t, string(meta), string(list[0].Metadata))
}

func TestAccount_ScheduleRequestRequiresCompany(t *testing.T) {
	ctx := context.Background()
	users := memory.NewUsers()
	id := uuid.New()
	_, err := users.Create(ctx, model.User{ID: id, Email: "solo@newco.com"})
	require.NoError(t, err)

	svc := NewAccount(users, memory.NewCompanies(), memory.NewScheduleRequests(), testutil.MakeNoopLogger())
	start := time.Now()

	_, err = svc.CreateScheduleRequest(ctx, id, model.ScheduleDraft{
		Type:    "demo",
		Windows: []model.TimeWindow{{Start: start, End: start.Add(time.Hour)}},
	})
	var verr *model.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "company", verr.Field)
}
