package store

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/circlechat/server/internal/domain"
)

// DefaultHistoryLimit is how many messages a history request returns when
// the caller does not ask for a specific window.
const DefaultHistoryLimit = 50

type messageDoc struct {
	ID        primitive.ObjectID `bson:"_id,omitempty"`
	GroupID   string             `bson:"group_id"`
	UserID    string             `bson:"user_id"`
	Username  string             `bson:"username"`
	Content   string             `bson:"content"`
	CreatedAt time.Time          `bson:"created_at"`
}

func (d messageDoc) toDomain() domain.Message {
	return domain.Message{
		ID:        d.ID.Hex(),
		GroupID:   domain.RoomID(d.GroupID),
		UserID:    domain.UserID(d.UserID),
		Username:  d.Username,
		Content:   d.Content,
		CreatedAt: d.CreatedAt,
	}
}

// SaveMessage persists one chat line and returns it with the id and
// timestamp the store assigned.
func (s *Store) SaveMessage(ctx context.Context, msg domain.Message) (domain.Message, error) {
	doc := messageDoc{
		GroupID:   string(msg.GroupID),
		UserID:    string(msg.UserID),
		Username:  msg.Username,
		Content:   msg.Content,
		CreatedAt: time.Now().UTC(),
	}
	res, err := s.db.Collection(collMessages).InsertOne(ctx, doc)
	if err != nil {
		return domain.Message{}, err
	}
	doc.ID = res.InsertedID.(primitive.ObjectID)
	return doc.toDomain(), nil
}

// ListMessages returns the newest limit messages of a group in
// chronological order.
func (s *Store) ListMessages(ctx context.Context, group domain.RoomID, limit int64) ([]domain.Message, error) {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}}).
		SetLimit(limit)
	cur, err := s.db.Collection(collMessages).Find(ctx, bson.M{"group_id": string(group)}, opts)
	if err != nil {
		return nil, err
	}
	var docs []messageDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, err
	}
	out := make([]domain.Message, len(docs))
	for i, d := range docs {
		out[len(docs)-1-i] = d.toDomain()
	}
	return out, nil
}
