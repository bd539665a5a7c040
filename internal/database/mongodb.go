// internal/database/mongodb.go
package database

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.uber.org/zap"

	"civic-reports/internal/config"
	"civic-reports/pkg/logger"
)

const (
	CollectionReports       = "reports"
	CollectionNotifications = "notifications"
	CollectionUsers         = "users"
)

type MongoDB struct {
	Client   *mongo.Client
	Database *mongo.Database
}

func NewMongoDB(cfg *config.Config) (*MongoDB, error) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.MongoTimeout)*time.Second)
	defer cancel()

	clientOptions := options.Client().
		ApplyURI(cfg.MongoURI).
		SetMaxPoolSize(100).
		SetMinPoolSize(5).
		SetMaxConnIdleTime(30 * time.Second)

	client, err := mongo.Connect(ctx, clientOptions)
	if err != nil {
		return nil, fmt.Errorf("помилка підключення до MongoDB: %w", err)
	}

	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("помилка пінгу MongoDB: %w", err)
	}

	database := client.Database(cfg.DatabaseName)

	logger.WithModule("database").Info("Connected to MongoDB", zap.String("database", cfg.DatabaseName))

	return &MongoDB{
		Client:   client,
		Database: database,
	}, nil
}

func (m *MongoDB) Reports() *mongo.Collection       { return m.Database.Collection(CollectionReports) }
func (m *MongoDB) Notifications() *mongo.Collection { return m.Database.Collection(CollectionNotifications) }
func (m *MongoDB) Users() *mongo.Collection         { return m.Database.Collection(CollectionUsers) }

// Ping використовується health-check ендпоінтом.
func (m *MongoDB) Ping(ctx context.Context) error {
	return m.Client.Ping(ctx, readpref.Primary())
}

func (m *MongoDB) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := m.Client.Disconnect(ctx); err != nil {
		return fmt.Errorf("помилка відключення від MongoDB: %w", err)
	}

	logger.WithModule("database").Info("Disconnected from MongoDB")
	return nil
}

// IndexModels повертає індекси для кожної колекції.
// Використовуємо bson.D замість map, щоб зберегти порядок ключів.
func IndexModels() map[string][]mongo.IndexModel {
	return map[string][]mongo.IndexModel{
		CollectionReports: {
			{
				// Фільтрація списку за статусом і категорією
				Keys: bson.D{
					{Key: "status", Value: 1},
					{Key: "category", Value: 1},
				},
			},
			{
				Keys: bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}},
			},
			{
				Keys: bson.D{{Key: "submitted_by", Value: 1}},
			},
			{
				Keys: bson.D{{Key: "assigned_to", Value: 1}},
			},
			{
				Keys: bson.D{{Key: "location", Value: "2dsphere"}},
			},
		},
		CollectionNotifications: {
			{
				Keys: bson.D{
					{Key: "recipient", Value: 1},
					{Key: "created_at", Value: -1},
				},
			},
			{
				Keys: bson.D{
					{Key: "recipient", Value: 1},
					{Key: "is_read", Value: 1},
				},
			},
		},
		CollectionUsers: {
			{
				Keys:    bson.D{{Key: "email", Value: 1}},
				Options: options.Index().SetUnique(true),
			},
		},
	}
}

// CreateIndexes створює індекси для всіх колекцій
func (m *MongoDB) CreateIndexes(ctx context.Context) error {
	for _, name := range []string{CollectionReports, CollectionNotifications, CollectionUsers} {
		models := IndexModels()[name]
		if _, err := m.Database.Collection(name).Indexes().CreateMany(ctx, models); err != nil {
			return fmt.Errorf("помилка створення індексів для %s: %w", name, err)
		}
	}

	logger.WithModule("database").Info("Indexes created")
	return nil
}
