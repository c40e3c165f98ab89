package store

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/circlechat/server/internal/domain"
)

type groupDoc struct {
	ID          primitive.ObjectID `bson:"_id,omitempty"`
	Name        string             `bson:"name"`
	Description string             `bson:"description,omitempty"`
	OwnerID     string             `bson:"owner_id"`
	MemberIDs   []string           `bson:"member_ids"`
	CreatedAt   time.Time          `bson:"created_at"`
	UpdatedAt   time.Time          `bson:"updated_at"`
}

func (d groupDoc) toDomain() domain.Group {
	members := make([]domain.UserID, 0, len(d.MemberIDs))
	for _, m := range d.MemberIDs {
		members = append(members, domain.UserID(m))
	}
	return domain.Group{
		ID:          d.ID.Hex(),
		Name:        d.Name,
		Description: d.Description,
		OwnerID:     domain.UserID(d.OwnerID),
		MemberIDs:   members,
		CreatedAt:   d.CreatedAt,
		UpdatedAt:   d.UpdatedAt,
	}
}

// CreateGroup stores a new group with the owner as its first member.
func (s *Store) CreateGroup(ctx context.Context, name, description string, owner domain.UserID) (domain.Group, error) {
	now := time.Now().UTC()
	doc := groupDoc{
		Name:        name,
		Description: description,
		OwnerID:     string(owner),
		MemberIDs:   []string{string(owner)},
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	res, err := s.db.Collection(collGroups).InsertOne(ctx, doc)
	if err != nil {
		return domain.Group{}, err
	}
	doc.ID = res.InsertedID.(primitive.ObjectID)
	return doc.toDomain(), nil
}

func (s *Store) GetGroup(ctx context.Context, id string) (domain.Group, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return domain.Group{}, ErrNotFound
	}
	var doc groupDoc
	err = s.db.Collection(collGroups).FindOne(ctx, bson.M{"_id": oid}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return domain.Group{}, ErrNotFound
	}
	if err != nil {
		return domain.Group{}, err
	}
	return doc.toDomain(), nil
}

// ListGroupsFor returns every group the user is a member of, newest first.
func (s *Store) ListGroupsFor(ctx context.Context, user domain.UserID) ([]domain.Group, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	cur, err := s.db.Collection(collGroups).Find(ctx, bson.M{"member_ids": string(user)}, opts)
	if err != nil {
		return nil, err
	}
	var docs []groupDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, err
	}
	out := make([]domain.Group, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.toDomain())
	}
	return out, nil
}

// UpdateGroup replaces name and description. Ownership is checked by the
// caller before this runs.
func (s *Store) UpdateGroup(ctx context.Context, id, name, description string) (domain.Group, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return domain.Group{}, ErrNotFound
	}
	update := bson.M{"$set": bson.M{
		"name":        name,
		"description": description,
		"updated_at":  time.Now().UTC(),
	}}
	res, err := s.db.Collection(collGroups).UpdateOne(ctx, bson.M{"_id": oid}, update)
	if err != nil {
		return domain.Group{}, err
	}
	if res.MatchedCount == 0 {
		return domain.Group{}, ErrNotFound
	}
	return s.GetGroup(ctx, id)
}

// JoinGroup adds user to the member list; joining twice is harmless.
func (s *Store) JoinGroup(ctx context.Context, id string, user domain.UserID) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return ErrNotFound
	}
	update := bson.M{
		"$addToSet": bson.M{"member_ids": string(user)},
		"$set":      bson.M{"updated_at": time.Now().UTC()},
	}
	res, err := s.db.Collection(collGroups).UpdateOne(ctx, bson.M{"_id": oid}, update)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// LeaveGroup drops user from the member list. The group itself stays, even
// when the last member walks out; only delete removes it.
func (s *Store) LeaveGroup(ctx context.Context, id string, user domain.UserID) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return ErrNotFound
	}
	update := bson.M{
		"$pull": bson.M{"member_ids": string(user)},
		"$set":  bson.M{"updated_at": time.Now().UTC()},
	}
	res, err := s.db.Collection(collGroups).UpdateOne(ctx, bson.M{"_id": oid}, update)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteGroup removes the group together with its messages and invites.
func (s *Store) DeleteGroup(ctx context.Context, id string) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return ErrNotFound
	}
	res, err := s.db.Collection(collGroups).DeleteOne(ctx, bson.M{"_id": oid})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	if _, err := s.db.Collection(collMessages).DeleteMany(ctx, bson.M{"group_id": id}); err != nil {
		return err
	}
	if _, err := s.db.Collection(collInvites).DeleteMany(ctx, bson.M{"group_id": id}); err != nil {
		return err
	}
	return nil
}

// IsMember answers the admission question for one user and group without
// loading the whole document. An id that cannot exist is a definitive no.
func (s *Store) IsMember(ctx context.Context, id string, user domain.UserID) (bool, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return false, nil
	}
	n, err := s.db.Collection(collGroups).CountDocuments(ctx, bson.M{"_id": oid, "member_ids": string(user)})
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
