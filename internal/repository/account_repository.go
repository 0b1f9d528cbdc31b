package repository

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/auth-service/internal/domain"
)

// AccountRepository defines persistence access for credential records.
type AccountRepository interface {
	FindByUsername(ctx context.Context, username string) (*domain.Account, error)
	ExistsByUsername(ctx context.Context, username string) (bool, error)
	// Create inserts the account and its role links as one unit. A duplicate
	// username yields ErrConflict.
	Create(ctx context.Context, account *domain.Account) error
}

type accountRepository struct {
	db DB
}

// NewAccountRepository returns a Postgres-backed implementation.
func NewAccountRepository(db DB) AccountRepository {
	return &accountRepository{db: db}
}

func (r *accountRepository) FindByUsername(ctx context.Context, username string) (*domain.Account, error) {
	const query = `
        SELECT a.id, a.username, a.email, a.password_hash, a.status, a.created_at, a.updated_at,
               COALESCE(array_agg(r.id::text ORDER BY r.name) FILTER (WHERE r.id IS NOT NULL), '{}'),
               COALESCE(array_agg(r.name ORDER BY r.name) FILTER (WHERE r.id IS NOT NULL), '{}')
        FROM accounts a
        LEFT JOIN account_roles ar ON ar.account_id = a.id
        LEFT JOIN roles r ON r.id = ar.role_id
        WHERE a.username=$1
        GROUP BY a.id`

	var (
		account   domain.Account
		roleIDs   []string
		roleNames []string
	)
	if err := r.db.QueryRow(ctx, query, username).Scan(
		&account.ID,
		&account.Username,
		&account.Email,
		&account.PasswordHash,
		&account.Status,
		&account.CreatedAt,
		&account.UpdatedAt,
		&roleIDs,
		&roleNames,
	); err != nil {
		return nil, translatePgError(err)
	}

	account.Roles = make([]domain.Role, 0, len(roleNames))
	for i, name := range roleNames {
		role := domain.Role{Name: name}
		if i < len(roleIDs) {
			role.ID = roleIDs[i]
		}
		account.Roles = append(account.Roles, role)
	}
	return &account, nil
}

func (r *accountRepository) ExistsByUsername(ctx context.Context, username string) (bool, error) {
	const query = `SELECT EXISTS (SELECT 1 FROM accounts WHERE username=$1)`

	var exists bool
	if err := r.db.QueryRow(ctx, query, username).Scan(&exists); err != nil {
		return false, translatePgError(err)
	}
	return exists, nil
}

func (r *accountRepository) Create(ctx context.Context, account *domain.Account) error {
	const insertAccount = `
        INSERT INTO accounts (username, email, password_hash, status)
        VALUES ($1, $2, $3, $4)
        RETURNING id, created_at, updated_at`
	const linkRole = `
        INSERT INTO account_roles (account_id, role_id)
        VALUES ($1, $2)
        ON CONFLICT DO NOTHING`

	err := pgx.BeginFunc(ctx, r.db, func(tx pgx.Tx) error {
		if err := tx.QueryRow(ctx, insertAccount,
			account.Username,
			account.Email,
			account.PasswordHash,
			account.Status,
		).Scan(&account.ID, &account.CreatedAt, &account.UpdatedAt); err != nil {
			return err
		}
		for _, role := range account.Roles {
			if _, err := tx.Exec(ctx, linkRole, account.ID, role.ID); err != nil {
				return err
			}
		}
		return nil
	})
	return translatePgError(err)
}
