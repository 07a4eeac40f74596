package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/dtroode/onboarding-server/internal/logger"
	"github.com/dtroode/onboarding-server/internal/metrics"
	"github.com/dtroode/onboarding-server/internal/model"
)

// Reconciler creates and links the local User and Company for an
// authenticated identity. Every step is idempotent, so a failed call can be
// repeated with the same inputs.
type Reconciler struct {
	users     model.UserStore
	companies model.CompanyStore
	metrics   metrics.Recorder
	logger    *logger.Logger
}

func NewReconciler(users model.UserStore, companies model.CompanyStore, rec metrics.Recorder, logger *logger.Logger) *Reconciler {
	if rec == nil {
		rec = metrics.Noop{}
	}
	return &Reconciler{
		users:     users,
		companies: companies,
		metrics:   rec,
		logger:    logger,
	}
}

// Reconcile upserts the user keyed by identityID and the company keyed by
// the email domain. Store failures are reported as ErrReconciliationFailed
// and leave already applied steps in place. An email already stored for a
// different identity is reported as ErrEmailClaimed, which a retry cannot
// fix.
func (r *Reconciler) Reconcile(ctx context.Context, identityID uuid.UUID, email string, form model.FormData) (model.Account, error) {
	account, err := r.reconcile(ctx, identityID, email, form)
	if errors.Is(err, model.ErrEmailClaimed) {
		r.metrics.Reconciliation("email_claimed")
		r.logger.Error("Reconciler: email belongs to another identity",
			"identity_id", identityID,
			"email", email)
		return model.Account{}, err
	}
	if err != nil {
		r.metrics.Reconciliation("failed")
		r.logger.Error("Reconciler: reconciliation failed",
			"identity_id", identityID,
			"email", email,
			"error", err.Error())
		return model.Account{}, fmt.Errorf("%w: %w", model.ErrReconciliationFailed, err)
	}

	r.metrics.Reconciliation("ok")
	return account, nil
}

func (r *Reconciler) reconcile(ctx context.Context, identityID uuid.UUID, email string, form model.FormData) (model.Account, error) {
	user, created, err := r.getOrCreateUser(ctx, identityID, email, form)
	if err != nil {
		return model.Account{}, err
	}

	company, err := r.resolveCompany(ctx, email, form)
	if err != nil {
		return model.Account{}, err
	}

	update := model.UserUpdate{ID: user.ID}
	if user.CompanyID == nil {
		update.CompanyID = &company.ID
	} else if *user.CompanyID != company.ID {
		// Linked earlier under another domain; the existing link wins.
		company, err = r.companies.GetByID(ctx, *user.CompanyID)
		if err != nil {
			return model.Account{}, fmt.Errorf("failed to get linked company: %w", err)
		}
	}

	// The same rule runs on every call: a new user already holds the form
	// values, and a user joining an existing company applies its company
	// name on the first call, so a repeat call finds nothing to change.
	update.Name = differing(user.Name, form.String(model.FormKeyName))
	update.JobTitle = differing(user.JobTitle, form.String(model.FormKeyJobTitle))

	if name := differing(company.Name, form.String(model.FormKeyCompanyName)); name != nil {
		company, err = r.companies.Update(ctx, model.CompanyUpdate{ID: company.ID, Name: name})
		if err != nil {
			return model.Account{}, fmt.Errorf("failed to update company: %w", err)
		}
	}

	if !update.Empty() {
		user, err = r.users.Update(ctx, update)
		if err != nil {
			return model.Account{}, fmt.Errorf("failed to update user: %w", err)
		}
	}

	r.logger.Debug("Reconciler: account reconciled",
		"user_id", user.ID,
		"company_id", company.ID,
		"created", created)

	return model.Account{User: user, Company: company}, nil
}

func (r *Reconciler) getOrCreateUser(ctx context.Context, id uuid.UUID, email string, form model.FormData) (model.User, bool, error) {
	user, err := r.users.GetByID(ctx, id)
	if err == nil {
		return user, false, nil
	}
	if !errors.Is(err, model.ErrNotFound) {
		return model.User{}, false, fmt.Errorf("failed to get user: %w", err)
	}

	user, err = r.users.Create(ctx, model.User{
		ID:       id,
		Email:    email,
		Name:     form.String(model.FormKeyName),
		JobTitle: form.String(model.FormKeyJobTitle),
	})
	if err == nil {
		return user, true, nil
	}
	if errors.Is(err, model.ErrDuplicateEmail) {
		return model.User{}, false, fmt.Errorf("%w: %w", model.ErrEmailClaimed, err)
	}
	if !errors.Is(err, model.ErrDuplicateUser) {
		return model.User{}, false, fmt.Errorf("failed to create user: %w", err)
	}

	// Created concurrently for the same identity.
	user, err = r.users.GetByID(ctx, id)
	if err != nil {
		return model.User{}, false, fmt.Errorf("failed to get user after conflict: %w", err)
	}
	return user, false, nil
}

func (r *Reconciler) resolveCompany(ctx context.Context, email string, form model.FormData) (model.Company, error) {
	domain := model.EmailDomain(email)
	if domain == "" {
		return model.Company{}, model.NewValidationError("email", "missing domain")
	}

	company, err := r.companies.FindByDomain(ctx, domain)
	if err == nil {
		return company, nil
	}
	if !errors.Is(err, model.ErrNotFound) {
		return model.Company{}, fmt.Errorf("failed to find company: %w", err)
	}

	name := form.String(model.FormKeyCompanyName)
	if name == "" {
		name = DeriveCompanyName(domain)
	}

	company, err = r.companies.Create(ctx, model.Company{
		ID:     uuid.New(),
		Domain: domain,
		Name:   name,
	})
	if err == nil {
		r.metrics.CompanyCreated()
		r.logger.Info("Reconciler: company created",
			"company_id", company.ID,
			"domain", domain)
		return company, nil
	}
	if !errors.Is(err, model.ErrDuplicateDomain) {
		return model.Company{}, fmt.Errorf("failed to create company: %w", err)
	}

	r.metrics.DomainConflict()
	r.logger.Info("Reconciler: company created concurrently, reusing it",
		"domain", domain)

	company, err = r.companies.FindByDomain(ctx, domain)
	if err != nil {
		return model.Company{}, fmt.Errorf("failed to find company after conflict: %w", err)
	}
	return company, nil
}

// differing returns incoming when it is non-empty and not already stored.
func differing(stored, incoming string) *string {
	if incoming == "" || incoming == stored {
		return nil
	}
	return &incoming
}
