package db

import (
	"bitbnb/hosting-api/model"
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type MongoStore struct {
	client *mongo.Client
	coll   *mongo.Collection
}

// NewMongo connects to uri and makes sure the short id index exists
func NewMongo(ctx context.Context, uri, database, collection string) (*MongoStore, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB, %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err := client.Ping(pingCtx, nil); err != nil {
		client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to ping MongoDB, %w", err)
	}

	s := NewMongoWithCollection(client.Database(database).Collection(collection))
	s.client = client

	if err := s.EnsureIndexes(ctx); err != nil {
		client.Disconnect(context.Background())
		return nil, err
	}

	return s, nil
}

// NewMongoWithCollection wraps an already configured collection
func NewMongoWithCollection(coll *mongo.Collection) *MongoStore {
	return &MongoStore{coll: coll}
}

func (s *MongoStore) EnsureIndexes(ctx context.Context) error {
	_, err := s.coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "short_id", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("short_id_unique"),
		},
		{
			Keys: bson.D{{Key: "username", Value: 1}, {Key: "created_at", Value: -1}},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to create indexes, %w", err)
	}

	return nil
}

func (s *MongoStore) Insert(ctx context.Context, r *model.Record) error {
	if err := r.Validate(); err != nil {
		return persistErr(err)
	}

	if r.VisitHistory == nil {
		r.VisitHistory = []model.Visit{}
	}

	now := time.Now().UTC()
	r.CreatedAt = now
	r.UpdatedAt = now

	_, err := s.coll.InsertOne(ctx, r)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return persistErr(fmt.Errorf("%w: %s", ErrDuplicateShortID, r.ShortID))
		}

		return persistErr(err)
	}

	return nil
}

func (s *MongoStore) FindByShortID(ctx context.Context, shortID string) (*model.Record, error) {
	var r model.Record

	err := s.coll.FindOne(ctx, bson.D{{Key: "short_id", Value: shortID}}).Decode(&r)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}

		return nil, fmt.Errorf("failed to find record, %w", err)
	}

	return &r, nil
}

func (s *MongoStore) ListByUsername(ctx context.Context, username string, page, limit int) ([]model.Record, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}}).
		SetSkip(int64(page * limit)).
		SetLimit(int64(limit))

	cur, err := s.coll.Find(ctx, bson.D{{Key: "username", Value: username}}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list records, %w", err)
	}
	defer cur.Close(ctx)

	records := []model.Record{}
	if err := cur.All(ctx, &records); err != nil {
		return nil, fmt.Errorf("failed to decode records, %w", err)
	}

	return records, nil
}

func (s *MongoStore) Close(ctx context.Context) error {
	if s.client == nil {
		return nil
	}

	return s.client.Disconnect(ctx)
}
