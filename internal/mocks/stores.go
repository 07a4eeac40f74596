package mocks

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/dtroode/onboarding-server/internal/model"
)

// UserStore is a mock of model.UserStore.
type UserStore struct {
	mock.Mock
}

var _ model.UserStore = (*UserStore)(nil)

func (m *UserStore) GetByID(ctx context.Context, id uuid.UUID) (model.User, error) {
	ret := m.Called(ctx, id)
	return ret.Get(0).(model.User), ret.Error(1)
}

func (m *UserStore) Create(ctx context.Context, user model.User) (model.User, error) {
	ret := m.Called(ctx, user)
	return ret.Get(0).(model.User), ret.Error(1)
}

func (m *UserStore) Update(ctx context.Context, update model.UserUpdate) (model.User, error) {
	ret := m.Called(ctx, update)
	return ret.Get(0).(model.User), ret.Error(1)
}

// CompanyStore is a mock of model.CompanyStore.
type CompanyStore struct {
	mock.Mock
}

var _ model.CompanyStore = (*CompanyStore)(nil)

func (m *CompanyStore) GetByID(ctx context.Context, id uuid.UUID) (model.Company, error) {
	ret := m.Called(ctx, id)
	return ret.Get(0).(model.Company), ret.Error(1)
}

func (m *CompanyStore) FindByDomain(ctx context.Context, domain string) (model.Company, error) {
	ret := m.Called(ctx, domain)
	return ret.Get(0).(model.Company), ret.Error(1)
}

func (m *CompanyStore) Create(ctx context.Context, company model.Company) (model.Company, error) {
	ret := m.Called(ctx, company)
	return ret.Get(0).(model.Company), ret.Error(1)
}

func (m *CompanyStore) Update(ctx context.Context, update model.CompanyUpdate) (model.Company, error) {
	ret := m.Called(ctx, update)
	return ret.Get(0).(model.Company), ret.Error(1)
}

// ScheduleRequestStore is a mock of model.ScheduleRequestStore.
type ScheduleRequestStore struct {
	mock.Mock
}

var _ model.ScheduleRequestStore = (*ScheduleRequestStore)(nil)

func (m *ScheduleRequestStore) Create(ctx context.Context, request model.ScheduleRequest) (model.ScheduleRequest, error) {
	ret := m.Called(ctx, request)
	return ret.Get(0).(model.ScheduleRequest), ret.Error(1)
}

func (m *ScheduleRequestStore) ListByRequester(ctx context.Context, requesterID uuid.UUID) ([]model.ScheduleRequest, error) {
	ret := m.Called(ctx, requesterID)
	var out []model.ScheduleRequest
	if v := ret.Get(0); v != nil {
		out = v.([]model.ScheduleRequest)
	}
	return out, ret.Error(1)
}

// RefreshTokenStore is a mock of model.RefreshTokenStore.
type RefreshTokenStore struct {
	mock.Mock
}

var _ model.RefreshTokenStore = (*RefreshTokenStore)(nil)

func (m *RefreshTokenStore) Create(ctx context.Context, token model.RefreshToken) error {
	return m.Called(ctx, token).Error(0)
}

func (m *RefreshTokenStore) GetByJTI(ctx context.Context, jti string) (model.RefreshToken, error) {
	ret := m.Called(ctx, jti)
	return ret.Get(0).(model.RefreshToken), ret.Error(1)
}

func (m *RefreshTokenStore) RevokeByJTI(ctx context.Context, jti string) error {
	return m.Called(ctx, jti).Error(0)
}

func (m *RefreshTokenStore) RevokeAllByUser(ctx context.Context, userID uuid.UUID) error {
	return m.Called(ctx, userID).Error(0)
}

func (m *RefreshTokenStore) DeleteExpired(ctx context.Context, before time.Time) (int64, error) {
	ret := m.Called(ctx, before)
	return ret.Get(0).(int64), ret.Error(1)
}

// ObjectStore is a mock of model.ObjectStore.
type ObjectStore struct {
	mock.Mock
}

var _ model.ObjectStore = (*ObjectStore)(nil)

func (m *ObjectStore) Put(ctx context.Context, key string, data []byte, contentType string) error {
	return m.Called(ctx, key, data, contentType).Error(0)
}

func (m *ObjectStore) Exists(ctx context.Context, key string) (bool, error) {
	ret := m.Called(ctx, key)
	return ret.Bool(0), ret.Error(1)
}
