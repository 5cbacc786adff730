package mongoengine

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// collection is the part of a MongoDB collection the Store needs.
// Documents are exchanged as bson.Raw, a missing document is (nil, nil).
type collection interface {
	findOne(ctx context.Context, filter bson.M) (bson.Raw, error)
	findOneAndSet(ctx context.Context, filter bson.M, set bson.M) (bson.Raw, error)
	upsert(ctx context.Context, filter bson.M, document any) error
	distinct(ctx context.Context, field string) ([]any, error)
	ensureIndex(ctx context.Context, field string) error
}

// mongoCollection implements collection for *mongo.Collection.
type mongoCollection struct {
	coll *mongo.Collection
}

func (c mongoCollection) findOne(ctx context.Context, filter bson.M) (bson.Raw, error) {
	raw, err := c.coll.FindOne(ctx, filter).Raw()
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}

	if err != nil {
		return nil, err
	}

	return raw, nil
}

// findOneAndSet applies $set to the first matching document and returns it after the update.
func (c mongoCollection) findOneAndSet(ctx context.Context, filter bson.M, set bson.M) (bson.Raw, error) {
	raw, err := c.coll.FindOneAndUpdate(
		ctx,
		filter,
		bson.M{"$set": set},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Raw()

	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}

	if err != nil {
		return nil, err
	}

	return raw, nil
}

func (c mongoCollection) upsert(ctx context.Context, filter bson.M, document any) error {
	_, err := c.coll.ReplaceOne(ctx, filter, document, options.Replace().SetUpsert(true))
	return err
}

func (c mongoCollection) distinct(ctx context.Context, field string) ([]any, error) {
	return c.coll.Distinct(ctx, field, bson.M{})
}

func (c mongoCollection) ensureIndex(ctx context.Context, field string) error {
	_, err := c.coll.Indexes().CreateOne(ctx, mongo.IndexModel{Keys: bson.D{{Key: field, Value: 1}}})
	return err
}
