package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"civic-reports/internal/models"
)

type MongoNotificationStore struct {
	collection *mongo.Collection
}

func NewMongoNotificationStore(collection *mongo.Collection) *MongoNotificationStore {
	return &MongoNotificationStore{collection: collection}
}

func (s *MongoNotificationStore) Create(ctx context.Context, notification *models.Notification) error {
	result, err := s.collection.InsertOne(ctx, notification)
	if err != nil {
		return fmt.Errorf("insert notification: %w", err)
	}
	if id, ok := result.InsertedID.(primitive.ObjectID); ok {
		notification.ID = id
	}
	return nil
}

func (s *MongoNotificationStore) ListForRecipient(ctx context.Context, recipient primitive.ObjectID, filter NotificationFilter) ([]models.Notification, int64, error) {
	query := bson.M{"recipient": recipient}
	if filter.UnreadOnly {
		query["is_read"] = false
	}

	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}})
	if filter.Limit > 0 {
		skip := 0
		if filter.Page > 1 {
			skip = (filter.Page - 1) * filter.Limit
		}
		opts.SetLimit(int64(filter.Limit)).SetSkip(int64(skip))
	}

	cursor, err := s.collection.Find(ctx, query, opts)
	if err != nil {
		return nil, 0, fmt.Errorf("find notifications: %w", err)
	}
	defer cursor.Close(ctx)

	notifications := []models.Notification{}
	if err := cursor.All(ctx, &notifications); err != nil {
		return nil, 0, fmt.Errorf("decode notifications: %w", err)
	}

	total, err := s.collection.CountDocuments(ctx, query)
	if err != nil {
		return nil, 0, fmt.Errorf("count notifications: %w", err)
	}

	return notifications, total, nil
}

func (s *MongoNotificationStore) CountUnread(ctx context.Context, recipient primitive.ObjectID) (int64, error) {
	count, err := s.collection.CountDocuments(ctx, bson.M{"recipient": recipient, "is_read": false})
	if err != nil {
		return 0, fmt.Errorf("count unread notifications: %w", err)
	}
	return count, nil
}

// MarkRead не перезаписує read_at у вже прочитаного сповіщення.
func (s *MongoNotificationStore) MarkRead(ctx context.Context, id, recipient primitive.ObjectID, at time.Time) error {
	result, err := s.collection.UpdateOne(ctx,
		bson.M{"_id": id, "recipient": recipient, "is_read": false},
		bson.M{"$set": bson.M{"is_read": true, "read_at": at}},
	)
	if err != nil {
		return fmt.Errorf("mark notification read: %w", err)
	}
	if result.MatchedCount > 0 {
		return nil
	}

	count, err := s.collection.CountDocuments(ctx, bson.M{"_id": id, "recipient": recipient})
	if err != nil {
		return fmt.Errorf("check notification existence: %w", err)
	}
	if count == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *MongoNotificationStore) MarkAllRead(ctx context.Context, recipient primitive.ObjectID, at time.Time) (int64, error) {
	result, err := s.collection.UpdateMany(ctx,
		bson.M{"recipient": recipient, "is_read": false},
		bson.M{"$set": bson.M{"is_read": true, "read_at": at}},
	)
	if err != nil {
		return 0, fmt.Errorf("mark all notifications read: %w", err)
	}
	return result.ModifiedCount, nil
}

func (s *MongoNotificationStore) Delete(ctx context.Context, id, recipient primitive.ObjectID) error {
	result, err := s.collection.DeleteOne(ctx, bson.M{"_id": id, "recipient": recipient})
	if err != nil {
		return fmt.Errorf("delete notification: %w", err)
	}
	if result.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

type MongoUserStore struct {
	collection *mongo.Collection
}

func NewMongoUserStore(collection *mongo.Collection) *MongoUserStore {
	return &MongoUserStore{collection: collection}
}

func (s *MongoUserStore) FindByID(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	var user models.User
	err := s.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&user)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("find user: %w", err)
	}
	return &user, nil
}
