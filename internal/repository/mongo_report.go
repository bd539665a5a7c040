package repository

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"civic-reports/internal/models"
)

type MongoReportStore struct {
	collection *mongo.Collection
}

func NewMongoReportStore(collection *mongo.Collection) *MongoReportStore {
	return &MongoReportStore{collection: collection}
}

func (s *MongoReportStore) Create(ctx context.Context, report *models.Report) error {
	result, err := s.collection.InsertOne(ctx, report)
	if err != nil {
		return fmt.Errorf("insert report: %w", err)
	}
	if id, ok := result.InsertedID.(primitive.ObjectID); ok {
		report.ID = id
	}
	return nil
}

func (s *MongoReportStore) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Report, error) {
	var report models.Report
	err := s.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&report)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("find report: %w", err)
	}

	report.Canonicalize()
	return &report, nil
}

func (s *MongoReportStore) List(ctx context.Context, filter ReportFilter) ([]models.Report, int64, error) {
	query := bson.M{}

	if filter.Status != "" {
		query["status"] = filter.Status
	}
	if filter.Category != "" {
		query["category"] = filter.Category
	}
	if filter.Priority != "" {
		query["priority"] = filter.Priority
	}
	if filter.SubmittedBy != nil {
		query["submitted_by"] = *filter.SubmittedBy
	}
	if filter.AssignedTo != nil {
		query["assigned_to"] = *filter.AssignedTo
	}

	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}})
	if filter.Limit > 0 {
		opts.SetLimit(int64(filter.Limit)).SetSkip(filter.skip())
	}

	cursor, err := s.collection.Find(ctx, query, opts)
	if err != nil {
		return nil, 0, fmt.Errorf("find reports: %w", err)
	}
	defer cursor.Close(ctx)

	reports := []models.Report{}
	if err := cursor.All(ctx, &reports); err != nil {
		return nil, 0, fmt.Errorf("decode reports: %w", err)
	}
	for i := range reports {
		reports[i].Canonicalize()
	}

	total, err := s.collection.CountDocuments(ctx, query)
	if err != nil {
		return nil, 0, fmt.Errorf("count reports: %w", err)
	}

	return reports, total, nil
}

func (s *MongoReportStore) AppendTimeline(ctx context.Context, id primitive.ObjectID, entry models.TimelineEntry, setStatus bool) (*models.Report, error) {
	set := bson.M{"updated_at": entry.Timestamp}
	if setStatus {
		set["status"] = entry.Status
	}

	update := bson.M{
		"$push": bson.M{"timeline": entry},
		"$set":  set,
		"$inc":  bson.M{"version": 1},
	}

	var report models.Report
	err := s.collection.FindOneAndUpdate(ctx, bson.M{"_id": id}, update,
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&report)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("append timeline: %w", err)
	}

	report.Canonicalize()
	return &report, nil
}

func (s *MongoReportStore) Update(ctx context.Context, id primitive.ObjectID, expectedVersion int64, patch ReportPatch) (*models.Report, error) {
	update := bson.M{
		"$set": patchToSet(patch),
		"$inc": bson.M{"version": 1},
	}
	if patch.Entry != nil {
		update["$push"] = bson.M{"timeline": *patch.Entry}
	}

	var report models.Report
	err := s.collection.FindOneAndUpdate(ctx,
		bson.M{"_id": id, "version": expectedVersion},
		update,
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&report)
	if err == nil {
		report.Canonicalize()
		return &report, nil
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return nil, fmt.Errorf("update report: %w", err)
	}

	// Документ або відсутній, або вже змінений кимось іншим
	count, countErr := s.collection.CountDocuments(ctx, bson.M{"_id": id})
	if countErr != nil {
		return nil, fmt.Errorf("check report existence: %w", countErr)
	}
	if count == 0 {
		return nil, ErrNotFound
	}
	return nil, ErrVersionConflict
}

func patchToSet(patch ReportPatch) bson.M {
	set := bson.M{}

	if patch.Title != nil {
		set["title"] = *patch.Title
	}
	if patch.Description != nil {
		set["description"] = *patch.Description
	}
	if patch.Category != nil {
		set["category"] = *patch.Category
	}
	if patch.Priority != nil {
		set["priority"] = *patch.Priority
	}
	if patch.Location != nil {
		set["location"] = *patch.Location
	}
	if patch.Address != nil {
		set["address"] = *patch.Address
	}
	if patch.AssignedTo != nil {
		set["assigned_to"] = *patch.AssignedTo
	}
	if patch.AssignedAt != nil {
		set["assigned_at"] = *patch.AssignedAt
	}
	if patch.ResolvedAt != nil {
		set["resolved_at"] = *patch.ResolvedAt
	}
	if patch.Feedback != nil {
		set["feedback"] = *patch.Feedback
	}
	if patch.Entry != nil && patch.SetStatus {
		set["status"] = patch.Entry.Status
	}

	switch {
	case !patch.UpdatedAt.IsZero():
		set["updated_at"] = patch.UpdatedAt
	case patch.Entry != nil:
		set["updated_at"] = patch.Entry.Timestamp
	}

	return set
}
