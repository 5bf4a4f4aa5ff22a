// Package mongo stores profiles and credential-store identities in MongoDB.
package mongo

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const defaultTimeout = 10 * time.Second

type Config struct {
	URI      string
	Database string
	AppName  string
	Timeout  time.Duration
}

// Store is an open client bound to the portal database.
type Store struct {
	client *mongo.Client
	DB     *mongo.Database
}

// indexer is implemented by repositories that own indexes.
type indexer interface {
	EnsureIndexes(ctx context.Context) error
}

// Open connects and pings. The driver timeout also bounds every later
// operation that has no deadline of its own.
func Open(ctx context.Context, cfg Config) (*Store, error) {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	opts := options.Client().
		ApplyURI(cfg.URI).
		SetTimeout(timeout).
		SetServerSelectionTimeout(timeout).
		SetRetryWrites(true)
	if cfg.AppName != "" {
		opts.SetAppName(cfg.AppName)
	}

	octx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	client, err := mongo.Connect(octx, opts)
	if err != nil {
		return nil, fmt.Errorf("mongo connect: %w", err)
	}
	s := &Store{client: client, DB: client.Database(cfg.Database)}
	if err := s.Ping(octx); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}
	return s, nil
}

// Ping runs the server ping command against the portal database.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.DB.RunCommand(ctx, bson.D{{Key: "ping", Value: 1}}).Err(); err != nil {
		return fmt.Errorf("mongo ping: %w", err)
	}
	return nil
}

// EnsureIndexes creates the indexes of every repository in repos.
func (s *Store) EnsureIndexes(ctx context.Context, repos ...indexer) error {
	for _, r := range repos {
		if err := r.EnsureIndexes(ctx); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}
