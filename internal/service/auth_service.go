package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/auth-service/internal/auth"
	"github.com/spec-kit/auth-service/internal/domain"
	"github.com/spec-kit/auth-service/internal/keylock"
	"github.com/spec-kit/auth-service/internal/observability"
	"github.com/spec-kit/auth-service/internal/repository"
)

// TokenIssuer signs identity claims into a bearer token.
type TokenIssuer interface {
	Issue(subject string, roles []string, ttl time.Duration) (domain.Token, error)
}

// AuditRecorder records authentication events without blocking the caller.
type AuditRecorder interface {
	RecordAsync(username string, action domain.AuditAction)
}

// Dependencies encapsulates collaborators for the auth service. A nil Locker
// means registrations are guarded only by the store's unique constraint.
type Dependencies struct {
	Accounts repository.AccountRepository
	Roles    *RoleResolver
	Hasher   *auth.Hasher
	Tokens   TokenIssuer
	Audit    AuditRecorder
	Locker   keylock.Locker
	Logger   *zap.Logger
	Metrics  *observability.Metrics
	TokenTTL time.Duration
}

// RegisterInput carries a registration request.
type RegisterInput struct {
	Username string
	Email    string
	Password string
	Roles    []string
}

// AuthService coordinates registration and login flows.
type AuthService struct {
	accounts repository.AccountRepository
	roles    *RoleResolver
	hasher   *auth.Hasher
	tokens   TokenIssuer
	audit    AuditRecorder
	locker   keylock.Locker
	logger   *zap.Logger
	metrics  *observability.Metrics
	tokenTTL time.Duration
}

// NewAuthService builds the service.
func NewAuthService(deps Dependencies) *AuthService {
	if deps.Locker == nil {
		deps.Locker = keylock.Noop{}
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	return &AuthService{
		accounts: deps.Accounts,
		roles:    deps.Roles,
		hasher:   deps.Hasher,
		tokens:   deps.Tokens,
		audit:    deps.Audit,
		locker:   deps.Locker,
		logger:   deps.Logger,
		metrics:  deps.Metrics,
		tokenTTL: deps.TokenTTL,
	}
}

// Login verifies credentials and issues a token scoped to the account's
// current roles. Unknown usernames and wrong passwords return the same
// ErrInvalidCredentials.
func (s *AuthService) Login(ctx context.Context, username, password string) (token domain.Token, err error) {
	defer func() { s.metrics.RecordLogin(outcome(err)) }()

	account, err := s.accounts.FindByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			s.hasher.CompareDummy(password)
			s.logger.Debug("login rejected", zap.String("reason", "unknown_username"))
			return domain.Token{}, domain.ErrInvalidCredentials
		}
		return domain.Token{}, dependencyError("find account", err)
	}

	if account.Blocked() {
		s.logger.Info("login rejected", zap.String("username", account.Username), zap.String("reason", "account_blocked"))
		return domain.Token{}, domain.ErrAccountDisabled
	}

	if err := s.hasher.ComparePassword(account.PasswordHash, password); err != nil {
		s.logger.Debug("login rejected", zap.String("username", account.Username), zap.String("reason", "password_mismatch"))
		return domain.Token{}, domain.ErrInvalidCredentials
	}

	token, err = s.tokens.Issue(account.Username, account.RoleNames(), s.tokenTTL)
	if err != nil {
		return domain.Token{}, dependencyError("issue token", err)
	}

	s.audit.RecordAsync(account.Username, domain.AuditActionLogin)
	return token, nil
}

// Register creates an ACTIVE account with the resolved role set. It returns
// only after the account is persisted.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (account *domain.Account, err error) {
	defer func() { s.metrics.RecordRegistration(outcome(err)) }()

	unlock, err := s.locker.Lock(ctx, "register:"+in.Username)
	if err != nil {
		return nil, dependencyError("acquire registration lock", err)
	}
	defer unlock()

	exists, err := s.accounts.ExistsByUsername(ctx, in.Username)
	if err != nil {
		return nil, dependencyError("check username", err)
	}
	if exists {
		return nil, domain.ErrUserAlreadyExists
	}

	roles, err := s.roles.ResolveAll(ctx, in.Roles)
	if err != nil {
		return nil, err
	}

	hash, err := s.hasher.HashPassword(in.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	account = &domain.Account{
		Username:     in.Username,
		Email:        in.Email,
		PasswordHash: hash,
		Status:       domain.AccountStatusActive,
		Roles:        roles,
	}
	if err := s.accounts.Create(ctx, account); err != nil {
		switch {
		case errors.Is(err, repository.ErrConflict):
			// Lost the race after the existence check.
			return nil, domain.ErrUserAlreadyExists
		case errors.Is(err, repository.ErrNotFound):
			return nil, fmt.Errorf("%w: role missing at account insert: %w", domain.ErrRoleResolution, err)
		}
		return nil, dependencyError("create account", err)
	}

	s.logger.Info("account registered", zap.String("username", account.Username), zap.Strings("roles", account.RoleNames()))
	s.audit.RecordAsync(account.Username, domain.AuditActionRegister)
	return account, nil
}

func dependencyError(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", domain.ErrDependencyUnavailable, op, err)
}

// outcome labels a result for metrics.
func outcome(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, domain.ErrDependencyUnavailable):
		return "dependency_unavailable"
	case errors.Is(err, domain.ErrInvalidCredentials):
		return "invalid_credentials"
	case errors.Is(err, domain.ErrAccountDisabled):
		return "account_disabled"
	case errors.Is(err, domain.ErrUserAlreadyExists):
		return "user_already_exists"
	case errors.Is(err, domain.ErrUnknownRole):
		return "unknown_role"
	case errors.Is(err, domain.ErrRolesRequired):
		return "roles_required"
	case errors.Is(err, domain.ErrPasswordTooLong):
		return "password_too_long"
	case errors.Is(err, domain.ErrRoleResolution):
		return "role_resolution_failed"
	}
	return "error"
}
