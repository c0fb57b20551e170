package store

import (
	"context"
	"fmt"
	"time"

	"github.com/AFS-Neto/Steam-Extrator/pkg/logger"
	"github.com/AFS-Neto/Steam-Extrator/pkg/record"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoConfig holds the mongo raw backend settings
type MongoConfig struct {
	URI            string
	Database       string
	ConnectTimeout time.Duration
}

// MongoRawStore implements RawStore on MongoDB: one collection per entity
// kind, documents appended as-is. Snapshots are loosely keyed; the seq field
// comes from a counters collection and gives reads a stable order.
type MongoRawStore struct {
	client *mongo.Client
	db     *mongo.Database
	logger *logger.Logger
}

// NewMongoRawStore connects and verifies the connection
func NewMongoRawStore(ctx context.Context, cfg MongoConfig, l *logger.Logger) (*MongoRawStore, error) {
	if cfg.ConnectTimeout <= 0 {
		cfg.ConnectTimeout = 10 * time.Second
	}

	connectCtx, cancel := context.WithTimeout(ctx, cfg.ConnectTimeout)
	defer cancel()

	client, err := mongo.Connect(connectCtx, options.Client().ApplyURI(cfg.URI))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongodb: %w", err)
	}
	if err := client.Ping(connectCtx, nil); err != nil {
		return nil, fmt.Errorf("failed to ping mongodb: %w", err)
	}

	return &MongoRawStore{
		client: client,
		db:     client.Database(cfg.Database),
		logger: l,
	}, nil
}

// nextSeq allocates a monotonically increasing sequence number per kind
func (s *MongoRawStore) nextSeq(ctx context.Context, kind record.Kind) (int64, error) {
	opts := options.FindOneAndUpdate().
		SetUpsert(true).
		SetReturnDocument(options.After)

	var counter struct {
		Value int64 `bson:"value"`
	}
	err := s.db.Collection("counters").FindOneAndUpdate(ctx,
		bson.M{"_id": kind.String()},
		bson.M{"$inc": bson.M{"value": int64(1)}},
		opts,
	).Decode(&counter)
	if err != nil {
		return 0, fmt.Errorf("failed to allocate sequence for %s: %w", kind, err)
	}
	return counter.Value, nil
}

// AppendProfile appends one profile snapshot
func (s *MongoRawStore) AppendProfile(ctx context.Context, row record.ProfileRow) error {
	seq, err := s.nextSeq(ctx, record.KindProfile)
	if err != nil {
		return err
	}
	row.Seq = seq

	if _, err := s.db.Collection(record.KindProfile.String()).InsertOne(ctx, row); err != nil {
		return fmt.Errorf("failed to append profile snapshot: %w", err)
	}
	return nil
}

// AppendOwnedGames appends a batch of collection snapshots
func (s *MongoRawStore) AppendOwnedGames(ctx context.Context, rows []record.OwnedGameRow) error {
	if len(rows) == 0 {
		return nil
	}

	docs := make([]interface{}, len(rows))
	for i, row := range rows {
		seq, err := s.nextSeq(ctx, record.KindCollection)
		if err != nil {
			return err
		}
		row.Seq = seq
		docs[i] = row
	}

	if _, err := s.db.Collection(record.KindCollection.String()).InsertMany(ctx, docs); err != nil {
		return fmt.Errorf("failed to append collection snapshots: %w", err)
	}
	return nil
}

// AppendMetadata appends a batch of metadata snapshots
func (s *MongoRawStore) AppendMetadata(ctx context.Context, rows []record.GameMetadataRow) error {
	if len(rows) == 0 {
		return nil
	}

	docs := make([]interface{}, len(rows))
	for i, row := range rows {
		seq, err := s.nextSeq(ctx, record.KindMetadata)
		if err != nil {
			return err
		}
		row.Seq = seq
		docs[i] = row
	}

	if _, err := s.db.Collection(record.KindMetadata.String()).InsertMany(ctx, docs); err != nil {
		return fmt.Errorf("failed to append metadata snapshots: %w", err)
	}
	return nil
}

// Profiles returns every profile snapshot, oldest seq first
func (s *MongoRawStore) Profiles(ctx context.Context) ([]record.ProfileRow, error) {
	var out []record.ProfileRow
	if err := s.readAll(ctx, record.KindProfile, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// OwnedGames returns every collection snapshot, oldest seq first
func (s *MongoRawStore) OwnedGames(ctx context.Context) ([]record.OwnedGameRow, error) {
	var out []record.OwnedGameRow
	if err := s.readAll(ctx, record.KindCollection, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Metadata returns every metadata snapshot, oldest seq first
func (s *MongoRawStore) Metadata(ctx context.Context) ([]record.GameMetadataRow, error) {
	var out []record.GameMetadataRow
	if err := s.readAll(ctx, record.KindMetadata, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *MongoRawStore) readAll(ctx context.Context, kind record.Kind, out interface{}) error {
	opts := options.Find().SetSort(bson.D{{Key: "seq", Value: 1}})
	cursor, err := s.db.Collection(kind.String()).Find(ctx, bson.M{}, opts)
	if err != nil {
		return fmt.Errorf("failed to read raw %s: %w", kind, err)
	}
	defer cursor.Close(ctx)

	if err := cursor.All(ctx, out); err != nil {
		return fmt.Errorf("failed to decode raw %s: %w", kind, err)
	}
	return nil
}

// Close disconnects the client
func (s *MongoRawStore) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}
