package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"proposal-access-service/internal/models"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

var (
	ErrGrantNotFound = errors.New("grant not found")
	// ErrDuplicateGrantID signals a grant id collision on insert. With
	// random ids this is an integrity failure, not something to retry.
	ErrDuplicateGrantID = errors.New("duplicate grant id")
)

type GrantRepository struct {
	collection *mongo.Collection
}

func NewGrantRepository(db *mongo.Database) *GrantRepository {
	return &GrantRepository{
		collection: db.Collection("grants"),
	}
}

func (r *GrantRepository) Create(ctx context.Context, grant *models.Grant) error {
	if grant.IssuedAt.IsZero() {
		grant.IssuedAt = time.Now()
	}

	_, err := r.collection.InsertOne(ctx, grant)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrDuplicateGrantID
		}
		return fmt.Errorf("failed to insert grant: %w", err)
	}
	return nil
}

func (r *GrantRepository) FindByID(ctx context.Context, grantID string) (*models.Grant, error) {
	var grant models.Grant
	err := r.collection.FindOne(ctx, bson.M{"grantId": grantID}).Decode(&grant)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrGrantNotFound
		}
		return nil, fmt.Errorf("failed to find grant: %w", err)
	}
	return &grant, nil
}

// RecordAccess bumps the usage counters in a single atomic update so
// concurrent presentations of the same token never lose an increment.
func (r *GrantRepository) RecordAccess(ctx context.Context, grantID string) (*models.Grant, error) {
	filter := bson.M{"grantId": grantID}
	update := bson.M{
		"$inc": bson.M{"accessCount": 1},
		"$set": bson.M{"lastAccessedAt": time.Now()},
	}

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var grant models.Grant
	err := r.collection.FindOneAndUpdate(ctx, filter, update, opts).Decode(&grant)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrGrantNotFound
		}
		return nil, fmt.Errorf("failed to record access: %w", err)
	}
	return &grant, nil
}

// Revoke marks the grant revoked. Revoking an already-revoked grant is not
// an error; the flag never reverts.
func (r *GrantRepository) Revoke(ctx context.Context, grantID string) error {
	filter := bson.M{"grantId": grantID}
	update := bson.M{"$set": bson.M{"revoked": true}}

	result, err := r.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("failed to revoke grant: %w", err)
	}
	if result.MatchedCount == 0 {
		return ErrGrantNotFound
	}
	return nil
}

func (r *GrantRepository) RevokeByResource(ctx context.Context, resourceID string) (int64, error) {
	filter := bson.M{"resourceId": resourceID, "revoked": false}
	update := bson.M{"$set": bson.M{"revoked": true}}

	result, err := r.collection.UpdateMany(ctx, filter, update)
	if err != nil {
		return 0, fmt.Errorf("failed to revoke grants for resource: %w", err)
	}
	return result.ModifiedCount, nil
}

func (r *GrantRepository) FindByResource(ctx context.Context, resourceID string, page, limit int) ([]*models.Grant, error) {
	filter := bson.M{"resourceId": resourceID}

	opts := options.Find()
	opts.SetSort(bson.M{"issuedAt": -1})
	opts.SetSkip(int64((page - 1) * limit))
	opts.SetLimit(int64(limit))

	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find grants by resource: %w", err)
	}
	defer cursor.Close(ctx)

	var grants []*models.Grant
	if err = cursor.All(ctx, &grants); err != nil {
		return nil, fmt.Errorf("failed to decode grants: %w", err)
	}

	return grants, nil
}

func (r *GrantRepository) CountByResource(ctx context.Context, resourceID string) (int64, error) {
	count, err := r.collection.CountDocuments(ctx, bson.M{"resourceId": resourceID})
	if err != nil {
		return 0, fmt.Errorf("failed to count grants: %w", err)
	}
	return count, nil
}

func (r *GrantRepository) CreateIndexes(ctx context.Context) error {
	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "grantId", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys: bson.D{{Key: "resourceId", Value: 1}},
		},
		{
			Keys: bson.D{{Key: "recipient.email", Value: 1}},
		},
		{
			Keys: bson.D{{Key: "expiresAt", Value: 1}},
		},
		{
			Keys: bson.D{
				{Key: "resourceId", Value: 1},
				{Key: "revoked", Value: 1},
			},
		},
	}

	_, err := r.collection.Indexes().CreateMany(ctx, indexes)
	if err != nil {
		return fmt.Errorf("failed to create grant indexes: %w", err)
	}

	return nil
}
