package mongo

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/spec-kit/auth-service/internal/domain"
	"github.com/spec-kit/auth-service/internal/repository"
)

// RoleRepository is the role catalog; the unique index on name turns
// concurrent inserts of the same role into a duplicate key error.
type RoleRepository struct {
	coll *mongo.Collection
}

var _ repository.RoleRepository = (*RoleRepository)(nil)

func NewRoleRepository(db *mongo.Database) *RoleRepository {
	return &RoleRepository{coll: db.Collection(rolesCollection)}
}

type mongoRole struct {
	ID        primitive.ObjectID `bson:"_id,omitempty"`
	Name      string             `bson:"name"`
	CreatedAt int64              `bson:"created_at"`
}

func (r *RoleRepository) FindByName(ctx context.Context, name string) (*domain.Role, error) {
	var doc mongoRole
	if err := r.coll.FindOne(ctx, bson.M{"name": name}).Decode(&doc); err != nil {
		return nil, translateMongoError(err)
	}
	return &domain.Role{ID: doc.ID.Hex(), Name: doc.Name, CreatedAt: unixToTime(doc.CreatedAt)}, nil
}

func (r *RoleRepository) Create(ctx context.Context, role *domain.Role) error {
	doc := mongoRole{
		ID:        primitive.NewObjectID(),
		Name:      role.Name,
		CreatedAt: time.Now().UTC().Unix(),
	}
	if _, err := r.coll.InsertOne(ctx, doc); err != nil {
		return translateMongoError(err)
	}
	role.ID = doc.ID.Hex()
	role.CreatedAt = unixToTime(doc.CreatedAt)
	return nil
}
