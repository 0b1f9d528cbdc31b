package repository

import (
	"context"

	"github.com/spec-kit/auth-service/internal/domain"
)

// AuditRepository appends authentication events. There is no update or delete path.
type AuditRepository interface {
	Append(ctx context.Context, event *domain.AuditEvent) error
}

type auditRepository struct {
	db DB
}

// NewAuditRepository returns a Postgres-backed implementation.
func NewAuditRepository(db DB) AuditRepository {
	return &auditRepository{db: db}
}

func (r *auditRepository) Append(ctx context.Context, event *domain.AuditEvent) error {
	const query = `
        INSERT INTO auth_audit_logs (id, username, action, occurred_at)
        VALUES ($1, $2, $3, $4)`

	_, err := r.db.Exec(ctx, query, event.ID, event.Username, string(event.Action), event.Timestamp)
	return translatePgError(err)
}
