package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dewmini3/CakeCustomizing/internal/models"
	"github.com/dewmini3/CakeCustomizing/internal/util"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

const countersCollection = "counters"

// MongoStore keeps every entity collection in a single MongoDB database
type MongoStore struct {
	client *mongo.Client
	db     *mongo.Database
	logger *zap.Logger
}

// NewMongoStore connects to MongoDB and ensures the unique indexes exist
func NewMongoStore(ctx context.Context, url, dbName string) (*MongoStore, error) {
	if url == "" {
		url = "mongodb://localhost:27017"
	}
	if dbName == "" {
		dbName = "cakeshop"
	}

	clientOptions := options.Client().ApplyURI(url).
		SetConnectTimeout(10 * time.Second).
		SetServerSelectionTimeout(10 * time.Second)

	client, err := mongo.Connect(ctx, clientOptions)
	if err != nil {
		return nil, fmt.Errorf("cannot connect to MongoDB: %w", err)
	}

	if err := client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("cannot ping MongoDB: %w", err)
	}

	s := &MongoStore{
		client: client,
		db:     client.Database(dbName),
		logger: util.GetLogger(),
	}

	if err := s.ensureIndexes(ctx); err != nil {
		return nil, err
	}

	s.logger.Info("Connected to MongoDB", zap.String("database", dbName))
	return s, nil
}

func (s *MongoStore) ensureIndexes(ctx context.Context) error {
	indexes := []struct {
		collection string
		model      mongo.IndexModel
	}{
		{models.CollectionIngredients, mongo.IndexModel{
			Keys:    bson.D{{Key: "name", Value: 1}},
			Options: options.Index().SetUnique(true),
		}},
		{models.CollectionOptions, mongo.IndexModel{
			Keys: bson.D{
				{Key: "name", Value: 1},
				{Key: "flavor", Value: 1},
				{Key: "size", Value: 1},
				{Key: "shape", Value: 1},
			},
			Options: options.Index().SetUnique(true),
		}},
		{models.CollectionCustomizes, mongo.IndexModel{
			Keys:    bson.D{{Key: "signature", Value: 1}},
			Options: options.Index().SetUnique(true),
		}},
		{models.CollectionFeedback, mongo.IndexModel{
			Keys: bson.D{{Key: "product_id", Value: 1}},
		}},
	}

	for _, idx := range indexes {
		if _, err := s.db.Collection(idx.collection).Indexes().CreateOne(ctx, idx.model); err != nil {
			return fmt.Errorf("cannot create index on %s: %w", idx.collection, err)
		}
	}
	return nil
}

// Insert adds a new document
func (s *MongoStore) Insert(ctx context.Context, collection, id string, doc interface{}) error {
	if _, err := s.db.Collection(collection).InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return fmt.Errorf("%s %s: %w", collection, id, ErrDuplicate)
		}
		return fmt.Errorf("could not insert into %s: %w", collection, err)
	}
	return nil
}

// Upsert inserts or fully replaces a document
func (s *MongoStore) Upsert(ctx context.Context, collection, id string, doc interface{}) error {
	opts := options.Replace().SetUpsert(true)
	if _, err := s.db.Collection(collection).ReplaceOne(ctx, bson.M{"_id": id}, doc, opts); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return fmt.Errorf("%s %s: %w", collection, id, ErrDuplicate)
		}
		return fmt.Errorf("could not upsert into %s: %w", collection, err)
	}
	return nil
}

// FindByID decodes the document with the given id
func (s *MongoStore) FindByID(ctx context.Context, collection, id string, out interface{}) error {
	return s.FindOne(ctx, collection, Filter{"_id": id}, out)
}

// FindOne decodes the first document matching filter
func (s *MongoStore) FindOne(ctx context.Context, collection string, filter Filter, out interface{}) error {
	err := s.db.Collection(collection).FindOne(ctx, bson.M(filter)).Decode(out)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return ErrNotFound
		}
		return fmt.Errorf("could not get from %s: %w", collection, err)
	}
	return nil
}

// Find decodes every document matching filter
func (s *MongoStore) Find(ctx context.Context, collection string, filter Filter, opts FindOptions, out interface{}) error {
	findOpts := options.Find()
	if opts.NewestFirst {
		findOpts.SetSort(bson.D{{Key: "created_at", Value: -1}})
	}

	if filter == nil {
		filter = Filter{}
	}

	cursor, err := s.db.Collection(collection).Find(ctx, bson.M(filter), findOpts)
	if err != nil {
		return fmt.Errorf("could not list %s: %w", collection, err)
	}
	defer cursor.Close(ctx)

	if err := cursor.All(ctx, out); err != nil {
		return fmt.Errorf("could not decode %s: %w", collection, err)
	}
	return nil
}

// Replace overwrites an existing document
func (s *MongoStore) Replace(ctx context.Context, collection, id string, doc interface{}) error {
	result, err := s.db.Collection(collection).ReplaceOne(ctx, bson.M{"_id": id}, doc, options.Replace().SetUpsert(false))
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return fmt.Errorf("%s %s: %w", collection, id, ErrDuplicate)
		}
		return fmt.Errorf("could not save %s: %w", collection, err)
	}
	if result.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// Set applies $set through findOneAndUpdate, leaving every other field untouched
func (s *MongoStore) Set(ctx context.Context, collection, id string, fields Fields, out interface{}) error {
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	err := s.db.Collection(collection).FindOneAndUpdate(ctx,
		bson.M{"_id": id},
		bson.M{"$set": bson.M(fields)},
		opts,
	).Decode(out)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return ErrNotFound
		}
		if mongo.IsDuplicateKeyError(err) {
			return fmt.Errorf("%s %s: %w", collection, id, ErrDuplicate)
		}
		return fmt.Errorf("could not update %s: %w", collection, err)
	}
	return nil
}

// Delete removes a document by id
func (s *MongoStore) Delete(ctx context.Context, collection, id string) error {
	result, err := s.db.Collection(collection).DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("could not delete from %s: %w", collection, err)
	}
	if result.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// Increment applies $inc through findOneAndUpdate so concurrent deltas never lose updates
func (s *MongoStore) Increment(ctx context.Context, collection, id string, delta Delta, out interface{}) error {
	filter := bson.M{"_id": id}
	if delta.Floor != nil {
		filter[delta.Field] = bson.M{"$gte": *delta.Floor - delta.Amount}
	}

	update := bson.M{
		"$inc": bson.M{delta.Field: delta.Amount},
		"$set": bson.M{"updated_at": time.Now().UTC()},
	}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	err := s.db.Collection(collection).FindOneAndUpdate(ctx, filter, update, opts).Decode(out)
	if err == nil {
		return nil
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return fmt.Errorf("could not increment %s.%s: %w", collection, delta.Field, err)
	}
	if delta.Floor == nil {
		return ErrNotFound
	}

	count, err := s.db.Collection(collection).CountDocuments(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("could not check %s: %w", collection, err)
	}
	if count == 0 {
		return ErrNotFound
	}
	return ErrConditionFailed
}

// NextSequence bumps the counter document, creating it on first use
func (s *MongoStore) NextSequence(ctx context.Context, name string) (int64, error) {
	var counter struct {
		Value int64 `bson:"sequence_value"`
	}

	opts := options.FindOneAndUpdate().
		SetUpsert(true).
		SetReturnDocument(options.After)

	err := s.db.Collection(countersCollection).FindOneAndUpdate(ctx,
		bson.M{"_id": name},
		bson.M{"$inc": bson.M{"sequence_value": 1}},
		opts,
	).Decode(&counter)
	if err != nil {
		return 0, fmt.Errorf("could not advance counter %s: %w", name, err)
	}
	return counter.Value, nil
}

// Ping checks the connection
func (s *MongoStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx, nil)
}

// Close disconnects from MongoDB
func (s *MongoStore) Close(ctx context.Context) error {
	if err := s.client.Disconnect(ctx); err != nil {
		return fmt.Errorf("cannot disconnect from MongoDB: %w", err)
	}
	s.logger.Info("Disconnected from MongoDB")
	return nil
}
