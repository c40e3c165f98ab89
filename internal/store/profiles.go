package store

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/circlechat/server/internal/domain"
)

type profileDoc struct {
	UserID      string    `bson:"user_id"`
	DisplayName string    `bson:"display_name"`
	CreatedAt   time.Time `bson:"created_at"`
	UpdatedAt   time.Time `bson:"updated_at"`
}

func (d profileDoc) toDomain() domain.Profile {
	return domain.Profile{
		UserID:      domain.UserID(d.UserID),
		DisplayName: d.DisplayName,
		CreatedAt:   d.CreatedAt,
		UpdatedAt:   d.UpdatedAt,
	}
}

func (s *Store) GetProfile(ctx context.Context, user domain.UserID) (domain.Profile, error) {
	var doc profileDoc
	err := s.db.Collection(collProfiles).FindOne(ctx, bson.M{"user_id": string(user)}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return domain.Profile{}, ErrNotFound
	}
	if err != nil {
		return domain.Profile{}, err
	}
	return doc.toDomain(), nil
}

// UpsertProfile sets the display name, creating the profile on first write.
func (s *Store) UpsertProfile(ctx context.Context, user domain.UserID, displayName string) (domain.Profile, error) {
	now := time.Now().UTC()
	filter := bson.M{"user_id": string(user)}
	update := bson.M{
		"$set":         bson.M{"display_name": displayName, "updated_at": now},
		"$setOnInsert": bson.M{"user_id": string(user), "created_at": now},
	}
	opts := options.Update().SetUpsert(true)
	if _, err := s.db.Collection(collProfiles).UpdateOne(ctx, filter, update, opts); err != nil {
		return domain.Profile{}, err
	}
	return s.GetProfile(ctx, user)
}

// DisplayNameFor resolves the name a user speaks under: their profile if
// they saved one, otherwise the hint from their token, otherwise the
// default. Store trouble degrades to the fallbacks instead of failing the
// message.
func (s *Store) DisplayNameFor(ctx context.Context, user domain.UserID, hint string) string {
	profile, err := s.GetProfile(ctx, user)
	if err == nil && profile.DisplayName != "" {
		return profile.DisplayName
	}
	if err != nil && !errors.Is(err, ErrNotFound) {
		log.Warn().Err(err).Str("module", "store").Str("user", string(user)).Msg("profile lookup failed")
	}
	if hint != "" {
		return hint
	}
	return domain.DefaultDisplayName
}
