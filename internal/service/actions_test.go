package service

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	servermocks "github.com/dtroode/onboarding-server/internal/mocks"
	"github.com/dtroode/onboarding-server/internal/model"
	"github.com/dtroode/onboarding-server/internal/repository/memory"
	"github.com/dtroode/onboarding-server/internal/testutil"
)

func testInput() ActionInput {
	return ActionInput{
		SessionID: uuid.New(),
		Account: model.Account{
			User:    model.User{ID: uuid.New(), Email: "alice@newco.com"},
			Company: model.Company{ID: uuid.New(), Domain: "newco.com"},
		},
		Form: model.FormData{"name": "Alice", "answers": []any{"a", "b"}},
	}
}

func TestPersistForm_Run(t *testing.T) {
	ctx := context.Background()
	objects := memory.NewObjects()
	a := NewPersistForm(objects, testutil.MakeNoopLogger())
	in := testInput()

	require.NoError(t, a.Run(ctx, in))
	require.NoError(t, a.Run(ctx, in))

	data, ok := objects.Get(FormKey(in.Account.User.ID, in.SessionID))
	require.True(t, ok)
	assert.JSONEq(t, `{"name":"Alice","answers":["a","b"]}`, string(data))
	assert.Equal(t, 1, objects.Len())
}

func TestPersistForm_SkipsExisting(t *testing.T) {
	ctx := context.Background()
	in := testInput()
	key := FormKey(in.Account.User.ID, in.SessionID)

	store := &servermocks.ObjectStore{}
	store.On("Exists", ctx, key).Return(true, nil).Once()

	require.NoError(t, NewPersistForm(store, testutil.MakeNoopLogger()).Run(ctx, in))
	store.AssertExpectations(t)
	store.AssertNotCalled(t, "Put", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestPersistForm_PutError(t *testing.T) {
	ctx := context.Background()
	in := testInput()

	store := &servermocks.ObjectStore{}
	store.On("Exists", ctx, mock.Anything).Return(false, nil).Once()
	store.On("Put", ctx, mock.Anything, mock.Anything, "application/json").Return(errors.New("bucket gone")).Once()

	err := NewPersistForm(store, testutil.MakeNoopLogger()).Run(ctx, in)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to archive form")
}

func TestRequestSchedule_Run(t *testing.T) {
	ctx := context.Background()
	requests := memory.NewScheduleRequests()
	objects := &servermocks.ObjectStore{}
	objects.On("Exists", ctx, mock.Anything).Return(false, nil)
	objects.On("Put", ctx, mock.Anything, mock.Anything, mock.Anything).Return(errors.New("timeout")).Once()
	objects.On("Put", ctx, mock.Anything, mock.Anything, mock.Anything).Return(nil).Once()

	meta := json.RawMessage(`{"source":"landing",  "score":7}`)
	start := time.Date(2026, 11, 2, 10, 0, 0, 0, time.UTC)
	draft := model.ScheduleDraft{
		Type:     "assessment",
		Windows:  []model.TimeWindow{{Start: start, End: start.Add(time.Hour)}},
		Metadata: meta,
	}
	a := NewRequestSchedule(requests, NewPersistForm(objects, testutil.MakeNoopLogger()), draft, testutil.MakeNoopLogger())
	in := testInput()

	require.Error(t, a.Run(ctx, in))
	require.NoError(t, a.Run(ctx, in))

	list, err := requests.ListByRequester(ctx, in.Account.User.ID)
	require.NoError(t, err)
	require.Len(t, list, 1)

	got := list[0]
	assert.Equal(t, model.ScheduleStatusPending, got.Status)
	assert.Equal(t, in.Account.Company.ID, got.CompanyID)
	assert.Equal(t, "assessment", got.Type)
	assert.Equal(t, string(meta), string(got.Metadata))

	created, ok := a.Created()
	require.True(t, ok)
	assert.Equal(t, got.ID, created.ID)
	objects.AssertExpectations(t)
}

func TestRequestSchedule_CreateError(t *testing.T) {
	ctx := context.Background()
	in := testInput()
	start := time.Date(2026, 11, 2, 10, 0, 0, 0, time.UTC)
	draft := model.ScheduleDraft{
		Type:    "assessment",
		Windows: []model.TimeWindow{{Start: start, End: start.Add(time.Hour)}},
	}

	requests := &servermocks.ScheduleRequestStore{}
	requests.On("Create", ctx, mock.MatchedBy(func(r model.ScheduleRequest) bool {
		return r.RequesterID == in.Account.User.ID && r.Status == model.ScheduleStatusPending
	})).Return(model.ScheduleRequest{}, errors.New("connection reset")).Once()

	a := NewRequestSchedule(requests, nil, draft, testutil.MakeNoopLogger())

	err := a.Run(ctx, in)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to create schedule request")

	_, ok := a.Created()
	assert.False(t, ok)
	requests.AssertExpectations(t)
}
