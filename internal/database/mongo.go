package database

import (
	"context"
	"fmt"

	"github.com/blog-engagement-api/internal/config"
	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.mongodb.org/mongo-driver/v2/mongo/readpref"
)

// Collection names of the mongo store
const (
	CollectionPosts    = "posts"
	CollectionComments = "comments"
	CollectionUsers    = "users"
)

// MongoDB wraps a mongo client bound to one database
type MongoDB struct {
	Client   *mongo.Client
	Database *mongo.Database
	log      zerolog.Logger
}

// NewMongo connects to MongoDB and verifies the connection
func NewMongo(ctx context.Context, cfg *config.MongoConfig, log zerolog.Logger) (*MongoDB, error) {
	client, err := mongo.Connect(options.Client().
		ApplyURI(cfg.URI).
		SetConnectTimeout(cfg.ConnectTimeout))
	if err != nil {
		return nil, fmt.Errorf("failed to create mongo client: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, cfg.ConnectTimeout)
	defer cancel()

	if err := client.Ping(pingCtx, readpref.Primary()); err != nil {
		client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to ping mongo: %w", err)
	}

	wrapper := &MongoDB{
		Client:   client,
		Database: client.Database(cfg.Database),
		log:      log.With().Str("component", "mongo").Logger(),
	}

	wrapper.log.Info().
		Str("database", cfg.Database).
		Msg("Mongo connection established")

	return wrapper, nil
}

// EnsureIndexes creates the indexes the repositories rely on. The
// (post_id, parent_id, created_at) index serves thread materialization.
func (m *MongoDB) EnsureIndexes(ctx context.Context) error {
	_, err := m.Database.Collection(CollectionComments).Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys: bson.D{
				{Key: "post_id", Value: 1},
				{Key: "parent_id", Value: 1},
				{Key: "created_at", Value: -1},
			},
			Options: options.Index().SetName("idx_comments_post_parent_created"),
		},
	})
	if err != nil {
		return fmt.Errorf("failed to create comment indexes: %w", err)
	}

	m.log.Info().Msg("Mongo indexes ensured")
	return nil
}

// HealthCheck verifies the mongo connection is healthy
func (m *MongoDB) HealthCheck(ctx context.Context) error {
	return m.Client.Ping(ctx, readpref.Primary())
}

// Close disconnects the client
func (m *MongoDB) Close(ctx context.Context) error {
	return m.Client.Disconnect(ctx)
}
