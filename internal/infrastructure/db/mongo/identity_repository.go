package mongo

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/pyramid-aftercare/portal/internal/core/domain"
	"github.com/pyramid-aftercare/portal/internal/core/ports"
)

const identityCollection = "auth_identities"

// IdentityRepository stores credential-store accounts.
type IdentityRepository struct {
	coll *mongo.Collection
}

var _ ports.IdentityRepository = (*IdentityRepository)(nil)

func NewIdentityRepository(db *mongo.Database) *IdentityRepository {
	return &IdentityRepository{coll: db.Collection(identityCollection)}
}

type mongoIdentity struct {
	ID           string `bson:"_id"`
	Email        string `bson:"email"`
	PasswordHash string `bson:"password_hash"`
	CreatedAt    int64  `bson:"created_at"`
}

func (r *IdentityRepository) Create(ctx context.Context, ic *ports.IdentityCredentials) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	doc := mongoIdentity{
		ID:           ic.ID,
		Email:        strings.ToLower(ic.Email),
		PasswordHash: ic.PasswordHash,
		CreatedAt:    ic.CreatedAt.Unix(),
	}

	if _, err := r.coll.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return domain.ErrUserExists
		}
		return fmt.Errorf("insert identity: %w", err)
	}
	return nil
}

func (r *IdentityRepository) FindByEmail(ctx context.Context, email string) (*ports.IdentityCredentials, error) {
	return r.findOne(ctx, bson.M{"email": strings.ToLower(email)})
}

func (r *IdentityRepository) FindByID(ctx context.Context, id string) (*ports.IdentityCredentials, error) {
	return r.findOne(ctx, bson.M{"_id": id})
}

func (r *IdentityRepository) findOne(ctx context.Context, filter bson.M) (*ports.IdentityCredentials, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var mi mongoIdentity
	if err := r.coll.FindOne(ctx, filter).Decode(&mi); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrUserNotFound
		}
		return nil, fmt.Errorf("find identity: %w", err)
	}

	return &ports.IdentityCredentials{
		Identity: domain.Identity{
			ID:        mi.ID,
			Email:     mi.Email,
			CreatedAt: unixToTime(mi.CreatedAt),
		},
		PasswordHash: mi.PasswordHash,
	}, nil
}

// EnsureIndexes creates the unique email index.
func (r *IdentityRepository) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	_, err := r.coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "email", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	return err
}

func unixToTime(ts int64) time.Time {
	if ts == 0 {
		return time.Time{}
	}
	return time.Unix(ts, 0).UTC()
}
