package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"kairos_go/internal/domain"
)

type MessageRepo struct {
	coll *mongo.Collection
}

func NewMessageRepo(db *mongo.Database) *MessageRepo {
	return &MessageRepo{coll: db.Collection(chatMessagesColl)}
}

var _ domain.MessageRepository = (*MessageRepo)(nil)

func (r *MessageRepo) Create(ctx context.Context, m *domain.ChatMessage) error {
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now().UTC()
	}
	res, err := r.coll.InsertOne(ctx, m)
	if err != nil {
		return fmt.Errorf("insert message: %w", err)
	}
	if oid, ok := res.InsertedID.(primitive.ObjectID); ok {
		m.ID = oid
	}
	return nil
}

func (r *MessageRepo) GetByID(ctx context.Context, id string) (*domain.ChatMessage, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, nil
	}
	m := &domain.ChatMessage{}
	findErr := r.coll.FindOne(ctx, bson.M{"_id": oid}).Decode(m)
	if errors.Is(findErr, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if findErr != nil {
		return nil, fmt.Errorf("find message: %w", findErr)
	}
	return m, nil
}

func (r *MessageRepo) ListForUser(ctx context.Context, userID string, limit int) ([]*domain.ChatMessage, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}}).
		SetLimit(int64(limit))
	return r.find(ctx, bson.M{"user_id": userID}, opts)
}

func (r *MessageRepo) ListForUserAsc(ctx context.Context, userID string, limit int) ([]*domain.ChatMessage, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: 1}}).
		SetLimit(int64(limit))
	return r.find(ctx, bson.M{"user_id": userID}, opts)
}

func (r *MessageRepo) UpdateMetadata(ctx context.Context, id string, md *domain.MessageMetadata) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return domain.ErrNotFound
	}
	res, err := r.coll.UpdateOne(ctx, bson.M{"_id": oid}, bson.M{"$set": bson.M{"metadata": md}})
	if err != nil {
		return fmt.Errorf("update metadata: %w", err)
	}
	if res.MatchedCount == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *MessageRepo) ListFiltered(ctx context.Context, f domain.MessageFilter) ([]*domain.ChatMessage, error) {
	filter := bson.M{}
	if f.Crisis != nil {
		if *f.Crisis {
			filter["metadata.crisis"] = true
		} else {
			filter["metadata.crisis"] = bson.M{"$ne": true}
		}
	}
	if f.Emotion != nil {
		filter["metadata.analysis.label"] = *f.Emotion
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}}).
		SetSkip(int64(f.Skip)).
		SetLimit(int64(f.Limit))
	return r.find(ctx, filter, opts)
}

func (r *MessageRepo) ListFlaggedOrCrisis(ctx context.Context) ([]*domain.ChatMessage, error) {
	filter := bson.M{"$or": bson.A{
		bson.M{"metadata.crisis": true},
		bson.M{"metadata.flagged": bson.M{"$exists": true}},
	}}
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	return r.find(ctx, filter, opts)
}

func (r *MessageRepo) ListWithMetadataSince(ctx context.Context, since time.Time, limit int) ([]*domain.ChatMessage, error) {
	filter := bson.M{
		"metadata":   bson.M{"$ne": nil},
		"created_at": bson.M{"$gte": since},
	}
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	if limit > 0 {
		opts = opts.SetLimit(int64(limit))
	}
	return r.find(ctx, filter, opts)
}

func (r *MessageRepo) CountSince(ctx context.Context, since time.Time) (int64, error) {
	n, err := r.coll.CountDocuments(ctx, bson.M{"created_at": bson.M{"$gte": since}})
	if err != nil {
		return 0, fmt.Errorf("count messages: %w", err)
	}
	return n, nil
}

func (r *MessageRepo) CountWithMetadata(ctx context.Context) (int64, error) {
	n, err := r.coll.CountDocuments(ctx, bson.M{"metadata": bson.M{"$ne": nil}})
	if err != nil {
		return 0, fmt.Errorf("count messages with metadata: %w", err)
	}
	return n, nil
}

func (r *MessageRepo) CountForUser(ctx context.Context, userID string) (int64, error) {
	n, err := r.coll.CountDocuments(ctx, bson.M{"user_id": userID})
	if err != nil {
		return 0, fmt.Errorf("count user messages: %w", err)
	}
	return n, nil
}

func (r *MessageRepo) LastForUser(ctx context.Context, userID string) (*domain.ChatMessage, error) {
	opts := options.FindOne().SetSort(bson.D{{Key: "created_at", Value: -1}})
	m := &domain.ChatMessage{}
	err := r.coll.FindOne(ctx, bson.M{"user_id": userID}, opts).Decode(m)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find last message: %w", err)
	}
	return m, nil
}

func (r *MessageRepo) find(ctx context.Context, filter bson.M, opts *options.FindOptions) ([]*domain.ChatMessage, error) {
	cur, err := r.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("find messages: %w", err)
	}
	defer cur.Close(ctx)

	var msgs []*domain.ChatMessage
	if err := cur.All(ctx, &msgs); err != nil {
		return nil, fmt.Errorf("decode messages: %w", err)
	}
	return msgs, nil
}
