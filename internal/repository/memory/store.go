// Package memory holds process-local stores that enforce the same
// uniqueness rules as the Postgres schema. Used when no database is
// configured and in tests.
package memory

import (
	"bytes"
	"context"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dtroode/onboarding-server/internal/model"
)

// Users implements model.UserStore.
type Users struct {
	mu      sync.RWMutex
	byID    map[uuid.UUID]model.User
	byEmail map[string]uuid.UUID
	writes  int
}

var _ model.UserStore = (*Users)(nil)

func NewUsers() *Users {
	return &Users{
		byID:    make(map[uuid.UUID]model.User),
		byEmail: make(map[string]uuid.UUID),
	}
}

func (s *Users) GetByID(_ context.Context, id uuid.UUID) (model.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.byID[id]
	if !ok {
		return model.User{}, model.ErrNotFound
	}
	return u, nil
}

func (s *Users) Create(_ context.Context, user model.User) (model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	user.Email = strings.ToLower(user.Email)
	if _, ok := s.byID[user.ID]; ok {
		return model.User{}, model.ErrDuplicateUser
	}
	if _, ok := s.byEmail[user.Email]; ok {
		return model.User{}, model.ErrDuplicateEmail
	}

	now := time.Now().UTC()
	user.CreatedAt = now
	user.UpdatedAt = now
	s.byID[user.ID] = user
	s.byEmail[user.Email] = user.ID
	s.writes++
	return user, nil
}

func (s *Users) Update(_ context.Context, update model.UserUpdate) (model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.byID[update.ID]
	if !ok {
		return model.User{}, model.ErrNotFound
	}
	if update.Name != nil {
		u.Name = *update.Name
	}
	if update.JobTitle != nil {
		u.JobTitle = *update.JobTitle
	}
	if update.CompanyID != nil && u.CompanyID == nil {
		id := *update.CompanyID
		u.CompanyID = &id
	}
	u.UpdatedAt = time.Now().UTC()
	s.byID[u.ID] = u
	s.writes++
	return u, nil
}

// Writes returns the number of successful mutations.
func (s *Users) Writes() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.writes
}

// Companies implements model.CompanyStore.
type Companies struct {
	mu       sync.RWMutex
	byID     map[uuid.UUID]model.Company
	byDomain map[string]uuid.UUID
	writes   int
}

var _ model.CompanyStore = (*Companies)(nil)

func NewCompanies() *Companies {
	return &Companies{
		byID:     make(map[uuid.UUID]model.Company),
		byDomain: make(map[string]uuid.UUID),
	}
}

func (s *Companies) GetByID(_ context.Context, id uuid.UUID) (model.Company, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.byID[id]
	if !ok {
		return model.Company{}, model.ErrNotFound
	}
	return c, nil
}

func (s *Companies) FindByDomain(_ context.Context, domain string) (model.Company, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.byDomain[strings.ToLower(domain)]
	if !ok {
		return model.Company{}, model.ErrNotFound
	}
	return s.byID[id], nil
}

func (s *Companies) Create(_ context.Context, company model.Company) (model.Company, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	company.Domain = strings.ToLower(company.Domain)
	if _, ok := s.byDomain[company.Domain]; ok {
		return model.Company{}, model.ErrDuplicateDomain
	}
	if company.ID == uuid.Nil {
		company.ID = uuid.New()
	}

	now := time.Now().UTC()
	company.CreatedAt = now
	company.UpdatedAt = now
	s.byID[company.ID] = company
	s.byDomain[company.Domain] = company.ID
	s.writes++
	return company, nil
}

func (s *Companies) Update(_ context.Context, update model.CompanyUpdate) (model.Company, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.byID[update.ID]
	if !ok {
		return model.Company{}, model.ErrNotFound
	}
	if update.Name != nil {
		c.Name = *update.Name
	}
	c.UpdatedAt = time.Now().UTC()
	s.byID[c.ID] = c
	s.writes++
	return c, nil
}

// Count returns the number of stored companies.
func (s *Companies) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.byID)
}

// Writes returns the number of successful mutations.
func (s *Companies) Writes() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.writes
}

// ScheduleRequests implements model.ScheduleRequestStore.
type ScheduleRequests struct {
	mu       sync.RWMutex
	requests []model.ScheduleRequest
}

var _ model.ScheduleRequestStore = (*ScheduleRequests)(nil)

func NewScheduleRequests() *ScheduleRequests {
	return &ScheduleRequests{}
}

func (s *ScheduleRequests) Create(_ context.Context, request model.ScheduleRequest) (model.ScheduleRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if request.ID == uuid.Nil {
		request.ID = uuid.New()
	}
	if request.Status == "" {
		request.Status = model.ScheduleStatusPending
	}
	request.CreatedAt = time.Now().UTC()
	request.Windows = slices.Clone(request.Windows)
	request.Metadata = bytes.Clone(request.Metadata)
	s.requests = append(s.requests, request)
	return request, nil
}

func (s *ScheduleRequests) ListByRequester(_ context.Context, requesterID uuid.UUID) ([]model.ScheduleRequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []model.ScheduleRequest
	for i := len(s.requests) - 1; i >= 0; i-- {
		if s.requests[i].RequesterID == requesterID {
			out = append(out, s.requests[i])
		}
	}
	return out, nil
}

// RefreshTokens implements model.RefreshTokenStore.
type RefreshTokens struct {
	mu    sync.Mutex
	byJTI map[string]model.RefreshToken
}

var _ model.RefreshTokenStore = (*RefreshTokens)(nil)

func NewRefreshTokens() *RefreshTokens {
	return &RefreshTokens{byJTI: make(map[string]model.RefreshToken)}
}

func (s *RefreshTokens) Create(_ context.Context, token model.RefreshToken) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.byJTI[token.JTI] = token
	return nil
}

func (s *RefreshTokens) GetByJTI(_ context.Context, jti string) (model.RefreshToken, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.byJTI[jti]
	if !ok {
		return model.RefreshToken{}, model.ErrNotFound
	}
	return t, nil
}

func (s *RefreshTokens) RevokeByJTI(_ context.Context, jti string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.byJTI[jti]
	if !ok || t.RevokedAt != nil {
		return nil
	}
	now := time.Now().UTC()
	t.RevokedAt = &now
	t.UpdatedAt = now
	s.byJTI[jti] = t
	return nil
}

func (s *RefreshTokens) RevokeAllByUser(_ context.Context, userID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	for jti, t := range s.byJTI {
		if t.UserID == userID && t.RevokedAt == nil {
			t.RevokedAt = &now
			t.UpdatedAt = now
			s.byJTI[jti] = t
		}
	}
	return nil
}

func (s *RefreshTokens) DeleteExpired(_ context.Context, before time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var n int64
	for jti, t := range s.byJTI {
		if t.ExpiresAt.Before(before) {
			delete(s.byJTI, jti)
			n++
		}
	}
	return n, nil
}
