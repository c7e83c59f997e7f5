package clipboard

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	errs "github.com/matzehuels/skilltree/pkg/errors"
)

// MongoConfig holds connection settings for MongoBackend.
type MongoConfig struct {
	URI        string
	Database   string
	Collection string
}

// MongoBackend stores entries as documents keyed by _id. A TTL index on
// expires_at lets the server purge expired entries; reads also check expiry
// since the TTL monitor runs only periodically.
type MongoBackend struct {
	client *mongo.Client
	coll   *mongo.Collection
}

type mongoEntry struct {
	Key       string     `bson:"_id"`
	Data      []byte     `bson:"data"`
	ExpiresAt *time.Time `bson:"expires_at,omitempty"`
	CreatedAt time.Time  `bson:"created_at"`
}

// NewMongoBackend connects to MongoDB and ensures the TTL index exists.
func NewMongoBackend(ctx context.Context, cfg MongoConfig) (*MongoBackend, error) {
	if cfg.Database == "" {
		cfg.Database = "skilltree"
	}
	if cfg.Collection == "" {
		cfg.Collection = "clipboard"
	}

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.URI))
	if err != nil {
		return nil, errs.Wrap(errs.ErrCodeNetwork, err, "connect to mongodb")
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, errs.Wrap(errs.ErrCodeNetwork, err, "ping mongodb")
	}

	coll := client.Database(cfg.Database).Collection(cfg.Collection)
	_, err = coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "expires_at", Value: 1}},
		Options: options.Index().SetExpireAfterSeconds(0),
	})
	if err != nil {
		_ = client.Disconnect(context.Background())
		return nil, errs.Wrap(errs.ErrCodeInternal, err, "create ttl index")
	}
	return &MongoBackend{client: client, coll: coll}, nil
}

func (*MongoBackend) Name() string { return "mongo" }

// Get retrieves a value.
func (m *MongoBackend) Get(ctx context.Context, key string) ([]byte, bool, error) {
	var e mongoEntry
	err := m.coll.FindOne(ctx, bson.M{"_id": key}).Decode(&e)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, Retryable(errs.Wrap(errs.ErrCodeNetwork, err, "mongo find"))
	}
	if e.ExpiresAt != nil && time.Now().After(*e.ExpiresAt) {
		return nil, false, nil
	}
	return e.Data, true, nil
}

// Set upserts a value.
func (m *MongoBackend) Set(ctx context.Context, key string, data []byte, ttl time.Duration) error {
	e := mongoEntry{Key: key, Data: data, CreatedAt: time.Now().UTC()}
	if ttl > 0 {
		exp := e.CreatedAt.Add(ttl)
		e.ExpiresAt = &exp
	}
	_, err := m.coll.ReplaceOne(ctx, bson.M{"_id": key}, e, options.Replace().SetUpsert(true))
	if err != nil {
		return Retryable(errs.Wrap(errs.ErrCodeNetwork, err, "mongo upsert"))
	}
	return nil
}

// Delete removes a value.
func (m *MongoBackend) Delete(ctx context.Context, key string) error {
	if _, err := m.coll.DeleteOne(ctx, bson.M{"_id": key}); err != nil {
		return errs.Wrap(errs.ErrCodeNetwork, err, "mongo delete")
	}
	return nil
}

// Close disconnects the client.
func (m *MongoBackend) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return m.client.Disconnect(ctx)
}

var _ Backend = (*MongoBackend)(nil)
