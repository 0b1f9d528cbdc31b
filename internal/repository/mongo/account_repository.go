package mongo

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/spec-kit/auth-service/internal/domain"
	"github.com/spec-kit/auth-service/internal/repository"
)

// AccountRepository stores accounts with embedded role references, so an
// account and its roles are written by a single document insert.
type AccountRepository struct {
	coll *mongo.Collection
}

var _ repository.AccountRepository = (*AccountRepository)(nil)

func NewAccountRepository(db *mongo.Database) *AccountRepository {
	return &AccountRepository{coll: db.Collection(accountsCollection)}
}

type mongoRoleRef struct {
	ID   string `bson:"id"`
	Name string `bson:"name"`
}

type mongoAccount struct {
	ID           primitive.ObjectID `bson:"_id,omitempty"`
	Username     string             `bson:"username"`
	Email        string             `bson:"email"`
	PasswordHash string             `bson:"password_hash"`
	Status       string             `bson:"status"`
	Roles        []mongoRoleRef     `bson:"roles"`
	CreatedAt    int64              `bson:"created_at"`
	UpdatedAt    int64              `bson:"updated_at"`
}

func (r *AccountRepository) FindByUsername(ctx context.Context, username string) (*domain.Account, error) {
	var doc mongoAccount
	if err := r.coll.FindOne(ctx, bson.M{"username": username}).Decode(&doc); err != nil {
		return nil, translateMongoError(err)
	}
	return toDomainAccount(doc), nil
}

func (r *AccountRepository) ExistsByUsername(ctx context.Context, username string) (bool, error) {
	n, err := r.coll.CountDocuments(ctx, bson.M{"username": username})
	if err != nil {
		return false, fmt.Errorf("count accounts: %w", err)
	}
	return n > 0, nil
}

func (r *AccountRepository) Create(ctx context.Context, account *domain.Account) error {
	now := time.Now().UTC()
	doc := mongoAccount{
		ID:           primitive.NewObjectID(),
		Username:     account.Username,
		Email:        account.Email,
		PasswordHash: account.PasswordHash,
		Status:       string(account.Status),
		CreatedAt:    now.Unix(),
		UpdatedAt:    now.Unix(),
	}
	for _, role := range account.Roles {
		doc.Roles = append(doc.Roles, mongoRoleRef{ID: role.ID, Name: role.Name})
	}

	if _, err := r.coll.InsertOne(ctx, doc); err != nil {
		return translateMongoError(err)
	}
	account.ID = doc.ID.Hex()
	account.CreatedAt = unixToTime(doc.CreatedAt)
	account.UpdatedAt = unixToTime(doc.UpdatedAt)
	return nil
}

func toDomainAccount(doc mongoAccount) *domain.Account {
	account := &domain.Account{
		ID:           doc.ID.Hex(),
		Username:     doc.Username,
		Email:        doc.Email,
		PasswordHash: doc.PasswordHash,
		Status:       domain.AccountStatus(doc.Status),
		CreatedAt:    unixToTime(doc.CreatedAt),
		UpdatedAt:    unixToTime(doc.UpdatedAt),
	}
	for _, ref := range doc.Roles {
		account.Roles = append(account.Roles, domain.Role{ID: ref.ID, Name: ref.Name})
	}
	return account
}
