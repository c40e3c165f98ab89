package store

import (
	"context"
	"crypto/rand"
	"errors"
	"math/big"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/circlechat/server/internal/domain"
)

// codeAttempts bounds the uniqueness retry loop; with 36^8 codes collisions
// are already vanishingly rare.
const codeAttempts = 5

type inviteDoc struct {
	ID        primitive.ObjectID `bson:"_id,omitempty"`
	GroupID   string             `bson:"group_id"`
	Code      string             `bson:"code"`
	CreatedBy string             `bson:"created_by"`
	CreatedAt time.Time          `bson:"created_at"`
}

func (d inviteDoc) toDomain() domain.Invite {
	return domain.Invite{
		ID:        d.ID.Hex(),
		GroupID:   d.GroupID,
		Code:      d.Code,
		CreatedBy: domain.UserID(d.CreatedBy),
		CreatedAt: d.CreatedAt,
	}
}

func generateCode(n int) (string, error) {
	alphabetLen := big.NewInt(int64(len(domain.InviteCodeAlphabet)))
	b := make([]byte, n)
	for i := range b {
		idx, err := rand.Int(rand.Reader, alphabetLen)
		if err != nil {
			return "", err
		}
		b[i] = domain.InviteCodeAlphabet[idx.Int64()]
	}
	return string(b), nil
}

// CreateInvite mints a fresh code for the group, retrying on the off chance
// an existing invite already uses it.
func (s *Store) CreateInvite(ctx context.Context, group string, by domain.UserID) (domain.Invite, error) {
	coll := s.db.Collection(collInvites)
	for i := 0; i < codeAttempts; i++ {
		code, err := generateCode(domain.InviteCodeLen)
		if err != nil {
			return domain.Invite{}, err
		}
		n, err := coll.CountDocuments(ctx, bson.M{"code": code})
		if err != nil {
			return domain.Invite{}, err
		}
		if n > 0 {
			continue
		}
		doc := inviteDoc{
			GroupID:   group,
			Code:      code,
			CreatedBy: string(by),
			CreatedAt: time.Now().UTC(),
		}
		res, err := coll.InsertOne(ctx, doc)
		if err != nil {
			return domain.Invite{}, err
		}
		doc.ID = res.InsertedID.(primitive.ObjectID)
		return doc.toDomain(), nil
	}
	return domain.Invite{}, errors.New("store: could not allocate invite code")
}

// ListInvites returns the open invites of a group, newest first.
func (s *Store) ListInvites(ctx context.Context, group string) ([]domain.Invite, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	cur, err := s.db.Collection(collInvites).Find(ctx, bson.M{"group_id": group}, opts)
	if err != nil {
		return nil, err
	}
	var docs []inviteDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, err
	}
	out := make([]domain.Invite, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.toDomain())
	}
	return out, nil
}

// RedeemInvite joins user to the group behind code and returns that group.
// Codes are case-insensitive on the way in.
func (s *Store) RedeemInvite(ctx context.Context, code string, user domain.UserID) (domain.Group, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	var doc inviteDoc
	err := s.db.Collection(collInvites).FindOne(ctx, bson.M{"code": code}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return domain.Group{}, ErrNotFound
	}
	if err != nil {
		return domain.Group{}, err
	}
	if err := s.JoinGroup(ctx, doc.GroupID, user); err != nil {
		return domain.Group{}, err
	}
	return s.GetGroup(ctx, doc.GroupID)
}
