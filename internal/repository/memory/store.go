// Package memory provides mutex-guarded in-process stores with the same
// uniqueness semantics as the database-backed ones. It backs local
// development and tests.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/spec-kit/auth-service/internal/domain"
	"github.com/spec-kit/auth-service/internal/repository"
)

// Store holds accounts, roles and audit events in memory.
type Store struct {
	mu       sync.RWMutex
	accounts map[string]*domain.Account
	roles    map[string]*domain.Role
	events   []domain.AuditEvent

	auditErr   error
	auditDelay time.Duration
	now        func() time.Time
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{
		accounts: make(map[string]*domain.Account),
		roles:    make(map[string]*domain.Role),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Accounts returns the credential store view.
func (s *Store) Accounts() repository.AccountRepository { return &accountStore{s: s} }

// Roles returns the role catalog view.
func (s *Store) Roles() repository.RoleRepository { return &roleStore{s: s} }

// Audit returns the audit log view.
func (s *Store) Audit() repository.AuditRepository { return &auditStore{s: s} }

// SetAccountStatus changes an account's status, standing in for administrative flows.
func (s *Store) SetAccountStatus(username string, status domain.AccountStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	account, ok := s.accounts[username]
	if !ok {
		return repository.ErrNotFound
	}
	account.Status = status
	account.UpdatedAt = s.now()
	return nil
}

// FailAudit makes subsequent audit appends fail with err after delay. A nil
// err restores normal behavior.
func (s *Store) FailAudit(err error, delay time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.auditErr = err
	s.auditDelay = delay
}

// AuditEvents returns a copy of the recorded events.
func (s *Store) AuditEvents() []domain.AuditEvent {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]domain.AuditEvent(nil), s.events...)
}

// RoleNames returns every role name in the catalog.
func (s *Store) RoleNames() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	names := make([]string, 0, len(s.roles))
	for name := range s.roles {
		names = append(names, name)
	}
	return names
}

// Ping always succeeds.
func (s *Store) Ping(context.Context) error { return nil }

type accountStore struct{ s *Store }

func (a *accountStore) FindByUsername(ctx context.Context, username string) (*domain.Account, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	a.s.mu.RLock()
	defer a.s.mu.RUnlock()
	account, ok := a.s.accounts[username]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return cloneAccount(account), nil
}

func (a *accountStore) ExistsByUsername(ctx context.Context, username string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	a.s.mu.RLock()
	defer a.s.mu.RUnlock()
	_, ok := a.s.accounts[username]
	return ok, nil
}

func (a *accountStore) Create(ctx context.Context, account *domain.Account) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	a.s.mu.Lock()
	defer a.s.mu.Unlock()
	if _, exists := a.s.accounts[account.Username]; exists {
		return repository.ErrConflict
	}
	for _, role := range account.Roles {
		if _, ok := a.s.roles[role.Name]; !ok {
			return repository.ErrNotFound
		}
	}
	now := a.s.now()
	account.ID = uuid.NewString()
	account.CreatedAt = now
	account.UpdatedAt = now
	a.s.accounts[account.Username] = cloneAccount(account)
	return nil
}

type roleStore struct{ s *Store }

func (r *roleStore) FindByName(ctx context.Context, name string) (*domain.Role, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	role, ok := r.s.roles[name]
	if !ok {
		return nil, repository.ErrNotFound
	}
	clone := *role
	return &clone, nil
}

func (r *roleStore) Create(ctx context.Context, role *domain.Role) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, exists := r.s.roles[role.Name]; exists {
		return repository.ErrConflict
	}
	role.ID = uuid.NewString()
	role.CreatedAt = r.s.now()
	clone := *role
	r.s.roles[role.Name] = &clone
	return nil
}

type auditStore struct{ s *Store }

func (a *auditStore) Append(ctx context.Context, event *domain.AuditEvent) error {
	a.s.mu.RLock()
	failure, delay := a.s.auditErr, a.s.auditDelay
	a.s.mu.RUnlock()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	if failure != nil {
		return failure
	}

	a.s.mu.Lock()
	defer a.s.mu.Unlock()
	a.s.events = append(a.s.events, *event)
	return nil
}

func cloneAccount(a *domain.Account) *domain.Account {
	clone := *a
	clone.Roles = append([]domain.Role(nil), a.Roles...)
	return &clone
}
