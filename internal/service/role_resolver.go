package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/spec-kit/auth-service/internal/domain"
	"github.com/spec-kit/auth-service/internal/observability"
	"github.com/spec-kit/auth-service/internal/repository"
)

// Role policies, matching the config values.
const (
	UnknownRoleCreate  = "create"
	UnknownRoleReject  = "reject"
	MissingRoleDefault = "default"
	MissingRoleRequire = "require"
)

const maxResolveAttempts = 3

// RolePolicy decides what happens to unknown and missing role names.
type RolePolicy struct {
	UnknownRoles string
	MissingRoles string
	Defaults     []string
}

// RoleResolver implements find-or-create over the role catalog. Uniqueness
// comes from the store: a conflicting insert means another caller created
// the role first, so the lookup is retried.
type RoleResolver struct {
	roles   repository.RoleRepository
	policy  RolePolicy
	logger  *zap.Logger
	metrics *observability.Metrics
}

func NewRoleResolver(roles repository.RoleRepository, policy RolePolicy, logger *zap.Logger, metrics *observability.Metrics) *RoleResolver {
	if policy.UnknownRoles == "" {
		policy.UnknownRoles = UnknownRoleCreate
	}
	if policy.MissingRoles == "" {
		policy.MissingRoles = MissingRoleDefault
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RoleResolver{roles: roles, policy: policy, logger: logger, metrics: metrics}
}

// Resolve returns the role called name, creating it when the unknown-role
// policy allows.
func (r *RoleResolver) Resolve(ctx context.Context, name string) (domain.Role, error) {
	return r.resolve(ctx, name, r.policy.UnknownRoles == UnknownRoleCreate)
}

// ResolveAll resolves the requested names in order, without duplicates. An
// empty request falls back to the missing-roles policy. Configured default
// roles are always created on first use.
func (r *RoleResolver) ResolveAll(ctx context.Context, names []string) ([]domain.Role, error) {
	requested, err := normalizeRoleNames(names)
	if err != nil {
		return nil, err
	}

	allowCreate := r.policy.UnknownRoles == UnknownRoleCreate
	if len(requested) == 0 {
		if r.policy.MissingRoles == MissingRoleRequire {
			return nil, domain.ErrRolesRequired
		}
		if requested, err = normalizeRoleNames(r.policy.Defaults); err != nil || len(requested) == 0 {
			return nil, fmt.Errorf("%w: no default roles configured", domain.ErrRoleResolution)
		}
		allowCreate = true
	}

	roles := make([]domain.Role, 0, len(requested))
	for _, name := range requested {
		role, err := r.resolve(ctx, name, allowCreate)
		if err != nil {
			return nil, err
		}
		roles = append(roles, role)
	}
	return roles, nil
}

func (r *RoleResolver) resolve(ctx context.Context, name string, allowCreate bool) (domain.Role, error) {
	for attempt := 1; attempt <= maxResolveAttempts; attempt++ {
		role, err := r.roles.FindByName(ctx, name)
		if err == nil {
			return *role, nil
		}
		if !errors.Is(err, repository.ErrNotFound) {
			return domain.Role{}, fmt.Errorf("%w: find role %q: %w", domain.ErrRoleResolution, name, err)
		}
		if !allowCreate {
			return domain.Role{}, fmt.Errorf("%w: %s", domain.ErrUnknownRole, name)
		}

		created := &domain.Role{Name: name}
		err = r.roles.Create(ctx, created)
		switch {
		case err == nil:
			r.metrics.RecordRoleCreated()
			r.logger.Info("role created", zap.String("role", name))
			return *created, nil
		case errors.Is(err, repository.ErrConflict):
			r.logger.Debug("role created concurrently; retrying lookup", zap.String("role", name), zap.Int("attempt", attempt))
		default:
			return domain.Role{}, fmt.Errorf("%w: create role %q: %w", domain.ErrRoleResolution, name, err)
		}
	}
	return domain.Role{}, fmt.Errorf("%w: role %q still conflicting after %d attempts", domain.ErrRoleResolution, name, maxResolveAttempts)
}

func normalizeRoleNames(names []string) ([]string, error) {
	seen := make(map[string]struct{}, len(names))
	out := make([]string, 0, len(names))
	for _, name := range names {
		name = strings.TrimSpace(name)
		if name == "" {
			return nil, fmt.Errorf("%w: blank role name", domain.ErrUnknownRole)
		}
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}
		out = append(out, name)
	}
	return out, nil
}
