package ledgerstorage

import (
	"context"
	"errors"
	"fmt"
	"github.com/burenotti/go_coach_backend/internal/adapter/storage"
	"github.com/burenotti/go_coach_backend/internal/domain/ledger"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"time"
)

const collectionName = "ledger_entries"

type entryDocument struct {
	CoachID string    `bson:"coach_id"`
	ItemID  string    `bson:"item_id"`
	Kind    string    `bson:"kind"`
	At      time.Time `bson:"at"`
}

// MongoStorage is the document-store ledger. A TTL index removes entries
// some time after they expire; reads still apply the cutoff because the TTL
// monitor runs only periodically.
type MongoStorage struct {
	collection *mongo.Collection
}

func NewMongoStorage(db *mongo.Database) *MongoStorage {
	return &MongoStorage{collection: db.Collection(collectionName)}
}

// Connect opens a client and checks that the primary answers.
func Connect(ctx context.Context, uri string) (*mongo.Client, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connect to mongo: %w", err)
	}

	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("ping mongo: %w", err)
	}
	return client, nil
}

// EnsureIndexes creates the entry key index and the TTL index. retention
// is how long an entry stays meaningful.
func (s *MongoStorage) EnsureIndexes(ctx context.Context, retention time.Duration) error {
	indexes := []mongo.IndexModel{
		{
			Keys: bson.D{
				{Key: "coach_id", Value: 1},
				{Key: "item_id", Value: 1},
				{Key: "kind", Value: 1},
			},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys:    bson.D{{Key: "at", Value: 1}},
			Options: options.Index().SetExpireAfterSeconds(int32(retention.Seconds())),
		},
	}

	if _, err := s.collection.Indexes().CreateMany(ctx, indexes); err != nil {
		return storage.InternalError(err)
	}
	return nil
}

func (s *MongoStorage) Put(ctx context.Context, e ledger.Entry) error {
	filter := bson.M{"coach_id": e.CoachID, "item_id": e.ItemID, "kind": string(e.Kind)}
	update := bson.M{"$set": entryDocument{
		CoachID: e.CoachID,
		ItemID:  e.ItemID,
		Kind:    string(e.Kind),
		At:      e.At.UTC(),
	}}

	_, err := s.collection.UpdateOne(ctx, filter, update, options.Update().SetUpsert(true))
	if err != nil {
		return storage.InternalError(err)
	}
	return nil
}

func (s *MongoStorage) Remove(ctx context.Context, coachID, itemID string, kind ledger.Kind) error {
	filter := bson.M{"coach_id": coachID, "item_id": itemID, "kind": string(kind)}
	if _, err := s.collection.DeleteOne(ctx, filter); err != nil {
		return storage.InternalError(err)
	}
	return nil
}

func (s *MongoStorage) ListSince(ctx context.Context, coachID string, since time.Time) ([]ledger.Entry, error) {
	filter := bson.M{"coach_id": coachID, "at": bson.M{"$gt": since.UTC()}}

	cursor, err := s.collection.Find(ctx, filter)
	if err != nil {
		return nil, storage.InternalError(err)
	}
	defer cursor.Close(ctx)

	var docs []entryDocument
	if err := cursor.All(ctx, &docs); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, storage.InternalError(err)
	}

	entries := make([]ledger.Entry, 0, len(docs))
	for _, d := range docs {
		entries = append(entries, ledger.Entry{
			CoachID: d.CoachID,
			ItemID:  d.ItemID,
			Kind:    ledger.Kind(d.Kind),
			At:      d.At,
		})
	}
	return entries, nil
}
