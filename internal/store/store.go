// Package store is the MongoDB persistence layer: groups, messages, invites
// and user profiles. Collections are created lazily by the driver; callers
// get domain entities back, never driver documents.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

// ErrNotFound is returned when a lookup matches nothing, including lookups
// by an id that cannot be a valid document id.
var ErrNotFound = errors.New("store: not found")

const connectTimeout = 10 * time.Second

const (
	collGroups   = "groups"
	collMessages = "messages"
	collInvites  = "invites"
	collProfiles = "user_profiles"
)

type Store struct {
	client *mongo.Client
	db     *mongo.Database
}

// Connect dials MongoDB and pings the primary, so a bad URI fails at boot
// instead of on the first request.
func Connect(ctx context.Context, uri, dbName string) (*Store, error) {
	ctx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, err
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}
	log.Info().Str("module", "store").Str("db", dbName).Msg("mongo connected")
	return &Store{client: client, db: client.Database(dbName)}, nil
}

func (s *Store) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}
