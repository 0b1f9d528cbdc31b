package mongo

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/spec-kit/auth-service/internal/domain"
	"github.com/spec-kit/auth-service/internal/repository"
)

// AuditRepository appends audit events to the auth_audit_logs collection.
type AuditRepository struct {
	coll *mongo.Collection
}

var _ repository.AuditRepository = (*AuditRepository)(nil)

func NewAuditRepository(db *mongo.Database) *AuditRepository {
	return &AuditRepository{coll: db.Collection(auditCollection)}
}

func (r *AuditRepository) Append(ctx context.Context, event *domain.AuditEvent) error {
	doc := bson.M{
		"_id":       event.ID,
		"username":  event.Username,
		"action":    string(event.Action),
		"timestamp": event.Timestamp.UTC(),
	}
	if _, err := r.coll.InsertOne(ctx, doc); err != nil {
		return fmt.Errorf("insert audit event: %w", err)
	}
	return nil
}
