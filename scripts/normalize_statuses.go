package main

import (
	"context"
	"os"
	"sort"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"civic-reports/internal/database"
	"civic-reports/internal/models"
	"civic-reports/pkg/logger"
)

// Міграція: зводить синоніми статусів (completed, in-progress, ...) у полі status
// і в записах timeline до канонічних значень.
func main() {
	_ = godotenv.Load()
	v := viper.New()
	v.AutomaticEnv()
	v.SetDefault("MONGO_URI", "mongodb://localhost:27017")
	v.SetDefault("DATABASE_NAME", "civic_reports")
	v.SetDefault("DRY_RUN", false)

	_ = logger.Init("info", "development")
	log := logger.WithModule("migration")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(v.GetString("MONGO_URI")))
	if err != nil {
		log.Fatal("Failed to connect to MongoDB", zap.Error(err))
	}
	defer client.Disconnect(context.Background())

	collection := client.Database(v.GetString("DATABASE_NAME")).Collection(database.CollectionReports)

	total, err := normalize(ctx, collection, v.GetBool("DRY_RUN"), log)
	if err != nil {
		log.Error("Migration failed", zap.Error(err))
		os.Exit(1)
	}
	log.Info("Migration finished", zap.Int64("documents", total), zap.Bool("dry_run", v.GetBool("DRY_RUN")))
}

func normalize(ctx context.Context, collection *mongo.Collection, dryRun bool, log *zap.Logger) (int64, error) {
	synonyms := models.StatusSynonyms()
	legacy := make([]string, 0, len(synonyms))
	for s := range synonyms {
		legacy = append(legacy, s)
	}
	sort.Strings(legacy)

	var total int64
	for _, from := range legacy {
		to := synonyms[from]

		if dryRun {
			n, err := collection.CountDocuments(ctx, bson.M{"$or": bson.A{
				bson.M{"status": from},
				bson.M{"timeline.status": from},
			}})
			if err != nil {
				return total, err
			}
			log.Info("Would normalize", zap.String("from", from), zap.String("to", to), zap.Int64("documents", n))
			total += n
			continue
		}

		res, err := collection.UpdateMany(ctx,
			bson.M{"status": from},
			bson.M{"$set": bson.M{"status": to}},
		)
		if err != nil {
			return total, err
		}

		entries, err := collection.UpdateMany(ctx,
			bson.M{"timeline.status": from},
			bson.M{"$set": bson.M{"timeline.$[entry].status": to}},
			options.Update().SetArrayFilters(options.ArrayFilters{
				Filters: []interface{}{bson.M{"entry.status": from}},
			}),
		)
		if err != nil {
			return total, err
		}

		log.Info("Normalized status",
			zap.String("from", from),
			zap.String("to", to),
			zap.Int64("status_updated", res.ModifiedCount),
			zap.Int64("timeline_updated", entries.ModifiedCount),
		)
		total += res.ModifiedCount + entries.ModifiedCount
	}
	return total, nil
}
