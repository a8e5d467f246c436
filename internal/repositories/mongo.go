package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/desertthunder/likedb/internal/shared"
)

// duplicateKeyCode is the server error code for a unique index violation.
const duplicateKeyCode = 11000

// MongoStore is a [Store] backed by a MongoDB database.
type MongoStore struct {
	client *mongo.Client
	db     *mongo.Database
}

// NewMongoStore connects to uri and verifies the primary is reachable.
//
// Connection and ping failures are reported as [shared.ErrStoreUnavailable].
func NewMongoStore(ctx context.Context, uri, database string) (*MongoStore, error) {
	if uri == "" {
		return nil, fmt.Errorf("%w: mongo uri is required", shared.ErrInvalidConfig)
	}
	if database == "" {
		return nil, fmt.Errorf("%w: mongo database is required", shared.ErrInvalidConfig)
	}

	opts := options.Client().SetServerSelectionTimeout(5 * time.Second).ApplyURI(uri)
	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to connect: %v", shared.ErrStoreUnavailable, err)
	}

	store := &MongoStore{client: client, db: client.Database(database)}
	if err := store.Ping(ctx); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}
	return store, nil
}

// Collection returns the named collection.
func (s *MongoStore) Collection(name string) Collection {
	return &mongoCollection{name: name, coll: s.db.Collection(name)}
}

// Ping checks the connection to the primary.
func (s *MongoStore) Ping(ctx context.Context) error {
	if err := s.client.Ping(ctx, readpref.Primary()); err != nil {
		return fmt.Errorf("%w: %v", shared.ErrStoreUnavailable, err)
	}
	return nil
}

// Close disconnects the client.
func (s *MongoStore) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.client.Disconnect(ctx)
}

type mongoCollection struct {
	name string
	coll *mongo.Collection
}

func (c *mongoCollection) Name() string { return c.name }

// EnsureIndexes creates the indexes; the server treats an identical existing index as a no-op.
func (c *mongoCollection) EnsureIndexes(ctx context.Context, specs []IndexSpec) error {
	if !IsCollection(c.name) {
		return fmt.Errorf("%w: %s", shared.ErrUnknownCollection, c.name)
	}

	idx := indexModels(c.name, specs)
	if len(idx) == 0 {
		return nil
	}
	if _, err := c.coll.Indexes().CreateMany(ctx, idx); err != nil {
		return fmt.Errorf("failed to create indexes on %s: %w", c.name, err)
	}
	return nil
}

// BulkUpsert issues one unordered bulk write.
//
// Write errors become per-item failures. A duplicate key on an insert-if-absent
// item means the document is already present and is counted as matched.
func (c *mongoCollection) BulkUpsert(ctx context.Context, writes []WriteModel) (*BatchResult, error) {
	if !IsCollection(c.name) {
		return nil, fmt.Errorf("%w: %s", shared.ErrUnknownCollection, c.name)
	}

	result := &BatchResult{}
	if len(writes) == 0 {
		return result, nil
	}

	res, err := c.coll.BulkWrite(ctx, writeModels(writes), options.BulkWrite().SetOrdered(false))
	if res != nil {
		result.Upserted = int(res.UpsertedCount)
		result.Matched = int(res.MatchedCount)
	}
	if err != nil {
		if err := collectWriteErrors(c.name, writes, err, result); err != nil {
			return nil, err
		}
	}
	return result, nil
}

// FindOne decodes the document matching key into out.
func (c *mongoCollection) FindOne(ctx context.Context, key Key, out any) error {
	err := c.coll.FindOne(ctx, keyFilter(key)).Decode(out)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return fmt.Errorf("%w: %s %s", shared.ErrDocumentNotFound, c.name, key)
	}
	if err != nil {
		return fmt.Errorf("failed to query %s: %w", c.name, err)
	}
	return nil
}

// Count returns the number of documents in the collection.
func (c *mongoCollection) Count(ctx context.Context) (int64, error) {
	n, err := c.coll.CountDocuments(ctx, bson.D{})
	if err != nil {
		return 0, fmt.Errorf("failed to count %s: %w", c.name, err)
	}
	return n, nil
}

// keyFilter renders key as an equality filter.
func keyFilter(key Key) bson.D {
	filter := make(bson.D, 0, len(key.Fields))
	for _, f := range key.Fields {
		filter = append(filter, bson.E{Key: f.Name, Value: f.Value})
	}
	return filter
}

func writeModels(writes []WriteModel) []mongo.WriteModel {
	out := make([]mongo.WriteModel, 0, len(writes))
	for _, w := range writes {
		filter := keyFilter(w.Key)
		switch w.Mode {
		case ModeInsertIfAbsent:
			out = append(out, mongo.NewUpdateOneModel().
				SetFilter(filter).
				SetUpdate(bson.D{{Key: "$setOnInsert", Value: w.Doc}}).
				SetUpsert(true))
		default:
			out = append(out, mongo.NewReplaceOneModel().
				SetFilter(filter).
				SetReplacement(w.Doc).
				SetUpsert(true))
		}
	}
	return out
}

func indexModels(collection string, specs []IndexSpec) []mongo.IndexModel {
	out := make([]mongo.IndexModel, 0, len(specs))
	for _, spec := range specs {
		keys := make(bson.D, 0, len(spec.Keys))
		for _, k := range spec.Keys {
			dir := 1
			if k.Desc {
				dir = -1
			}
			keys = append(keys, bson.E{Key: k.Field, Value: dir})
		}
		if len(keys) == 1 && keys[0].Key == "_id" {
			continue
		}

		opts := options.Index().SetName(spec.IndexName(collection))
		if spec.Unique {
			opts.SetUnique(true)
		}
		out = append(out, mongo.IndexModel{Keys: keys, Options: opts})
	}
	return out
}

// collectWriteErrors folds a bulk write error into result. Errors that are not
// per-item write errors are returned as [shared.ErrStoreUnavailable].
func collectWriteErrors(collection string, writes []WriteModel, err error, result *BatchResult) error {
	var bwe mongo.BulkWriteException
	if !errors.As(err, &bwe) {
		return fmt.Errorf("%w: bulk write to %s: %v", shared.ErrStoreUnavailable, collection, err)
	}
	if bwe.WriteConcernError != nil {
		return fmt.Errorf("%w: bulk write to %s: %v", shared.ErrStoreUnavailable, collection, bwe.WriteConcernError)
	}

	for _, we := range bwe.WriteErrors {
		if we.Index < 0 || we.Index >= len(writes) {
			continue
		}
		w := writes[we.Index]
		if w.Mode == ModeInsertIfAbsent && we.Code == duplicateKeyCode {
			result.Matched++
			continue
		}
		result.Failures = append(result.Failures, ItemFailure{
			Collection: collection,
			Index:      we.Index,
			Key:        w.Key.String(),
			Err:        errors.New(we.Message),
		})
	}
	return nil
}
