package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/auth-service/internal/auth"
	"github.com/spec-kit/auth-service/internal/domain"
	"github.com/spec-kit/auth-service/internal/repository"
	"github.com/spec-kit/auth-service/internal/repository/memory"
)

const testSecret = "test-secret"

// recordingAudit captures RecordAsync calls.
type recordingAudit struct {
	mu     sync.Mutex
	events []domain.AuditEvent
}

func (r *recordingAudit) RecordAsync(username string, action domain.AuditAction) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, domain.AuditEvent{Username: username, Action: action})
}

func (r *recordingAudit) all() []domain.AuditEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]domain.AuditEvent(nil), r.events...)
}

// failingAccounts fails every call with err.
type failingAccounts struct{ err error }

func (f failingAccounts) FindByUsername(context.Context, string) (*domain.Account, error) {
	return nil, f.err
}

func (f failingAccounts) ExistsByUsername(context.Context, string) (bool, error) {
	return false, f.err
}

func (f failingAccounts) Create(context.Context, *domain.Account) error {
	return f.err
}

// barrierRoles holds every FindByName miss until n callers have missed, so
// all of them race into Create.
type barrierRoles struct {
	repository.RoleRepository
	n int

	mu      sync.Mutex
	misses  int
	release chan struct{}
	created int
}

func newBarrierRoles(inner repository.RoleRepository, n int) *barrierRoles {
	return &barrierRoles{RoleRepository: inner, n: n, release: make(chan struct{})}
}

func (b *barrierRoles) FindByName(ctx context.Context, name string) (*domain.Role, error) {
	role, err := b.RoleRepository.FindByName(ctx, name)
	if !errors.Is(err, repository.ErrNotFound) {
		return role, err
	}
	b.mu.Lock()
	b.misses++
	if b.misses == b.n {
		close(b.release)
	}
	b.mu.Unlock()
	<-b.release
	return nil, err
}

func (b *barrierRoles) Create(ctx context.Context, role *domain.Role) error {
	err := b.RoleRepository.Create(ctx, role)
	if err == nil {
		b.mu.Lock()
		b.created++
		b.mu.Unlock()
	}
	return err
}

type fixture struct {
	store  *memory.Store
	tokens *auth.TokenManager
	audit  *recordingAudit
	svc    *AuthService
}

func newFixture(t *testing.T, policy RolePolicy, roles repository.RoleRepository) *fixture {
	t.Helper()
	store := memory.NewStore()
	if roles == nil {
		roles = store.Roles()
	}
	hasher, err := auth.NewHasher(4)
	require.NoError(t, err)

	f := &fixture{
		store:  store,
		tokens: auth.NewTokenManager(testSecret, "auth-service", time.Hour),
		audit:  &recordingAudit{},
	}
	if policy.Defaults == nil {
		policy.Defaults = []string{"USER"}
	}
	f.svc = NewAuthService(Dependencies{
		Accounts: store.Accounts(),
		Roles:    NewRoleResolver(roles, policy, zap.NewNop(), nil),
		Hasher:   hasher,
		Tokens:   f.tokens,
		Audit:    f.audit,
		Logger:   zap.NewNop(),
	})
	return f
}

func (f *fixture) register(t *testing.T, username, password string, roles ...string) *domain.Account {
	t.Helper()
	account, err := f.svc.Register(context.Background(), RegisterInput{
		Username: username,
		Email:    username + "@x.com",
		Password: password,
		Roles:    roles,
	})
	require.NoError(t, err)
	return account
}
