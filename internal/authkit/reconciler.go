package authkit

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// AccountReconciler maps a verified external identity onto exactly one local
// user record, creating the record on first sight. A distinct email moves
// from unseen to reconciled exactly once; repeated logins for a reconciled
// email are read-only.
type AccountReconciler struct {
	users       UserRepository
	tokenIssuer *TokenIssuer
	passwords   *PasswordCredentialStore
	defaultRole string
	logger      *zap.Logger
	metrics     MetricsRecorder
}

// NewAccountReconciler wires the reconciler with its collaborators.
func NewAccountReconciler(users UserRepository, tokenIssuer *TokenIssuer, passwords *PasswordCredentialStore, logger *zap.Logger, metrics MetricsRecorder) *AccountReconciler {
	if logger == nil {
		logger = zap.NewNop()
	}
	if metrics == nil {
		metrics = NopMetrics{}
	}
	return &AccountReconciler{
		users:       users,
		tokenIssuer: tokenIssuer,
		passwords:   passwords,
		defaultRole: RoleUser,
		logger:      logger,
		metrics:     metrics,
	}
}

// Reconcile resolves the assertion's email to a local user and issues a
// session token for it. Existing users are returned unmodified: profile
// fields are first-write-wins and never synced from later logins.
func (reconciler *AccountReconciler) Reconcile(ctx context.Context, identity *ExternalIdentity) (*User, string, time.Time, error) {
	if identity == nil || identity.Email == "" {
		return nil, "", time.Time{}, fmt.Errorf("reconcile: %w", ErrMissingEmail)
	}
	email := NormalizeEmail(identity.Email)

	existing, lookupErr := reconciler.users.FindByEmail(ctx, email)
	if lookupErr != nil {
		return nil, "", time.Time{}, fmt.Errorf("reconcile.lookup: %w", lookupErr)
	}
	if existing != nil {
		reconciler.metrics.Increment("sso.reconcile.existing")
		return reconciler.issueFor(existing)
	}

	created, createErr := reconciler.createUser(ctx, identity, email)
	if createErr == nil {
		reconciler.logger.Info("created user from external identity",
			zap.String("provider", string(identity.Provider)),
			zap.String("email", email))
		reconciler.metrics.Increment("sso.reconcile.created")
		return reconciler.issueFor(created)
	}
	if !errors.Is(createErr, ErrRepositoryConflict) {
		return nil, "", time.Time{}, fmt.Errorf("reconcile.create: %w", createErr)
	}

	// Lost a creation race on the email uniqueness constraint. The winner's
	// record must exist now; fall back to the lookup path once.
	reconciler.metrics.Increment("sso.reconcile.conflict")
	winner, retryErr := reconciler.users.FindByEmail(ctx, email)
	if retryErr != nil {
		return nil, "", time.Time{}, fmt.Errorf("reconcile.conflict_lookup: %w", retryErr)
	}
	if winner == nil {
		return nil, "", time.Time{}, fmt.Errorf("reconcile.conflict_lookup: %w", ErrRepositoryConflict)
	}
	return reconciler.issueFor(winner)
}

func (reconciler *AccountReconciler) createUser(ctx context.Context, identity *ExternalIdentity, email string) (*User, error) {
	// SSO-only accounts get a random, never-disclosed placeholder password;
	// local password login against them must never succeed.
	placeholder, placeholderErr := RandomPlaceholderPassword()
	if placeholderErr != nil {
		return nil, placeholderErr
	}
	placeholderHash, hashErr := reconciler.passwords.Hash(placeholder)
	if hashErr != nil {
		return nil, hashErr
	}
	return reconciler.users.Create(ctx, NewUserFields{
		FirstName:    identity.GivenName,
		LastName:     identity.FamilyName,
		Email:        email,
		PasswordHash: placeholderHash,
		Role:         reconciler.defaultRole,
	})
}

func (reconciler *AccountReconciler) issueFor(user *User) (*User, string, time.Time, error) {
	token, expiresAt, issueErr := reconciler.tokenIssuer.Issue(user)
	if issueErr != nil {
		return nil, "", time.Time{}, issueErr
	}
	return user, token, expiresAt, nil
}
