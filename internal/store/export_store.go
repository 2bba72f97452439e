package store

import (
	"context"
	"errors"
	"time"

	"github.com/Zaad1704/HNV1-sub001/internal/apperrors"
	"github.com/Zaad1704/HNV1-sub001/internal/db"
	"github.com/Zaad1704/HNV1-sub001/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type MongoExportStore struct {
	coll *mongo.Collection
}

func NewMongoExportStore(database *mongo.Database) *MongoExportStore {
	return &MongoExportStore{coll: database.Collection(db.ExportsCollection)}
}

func (s *MongoExportStore) Create(ctx context.Context, req *models.ExportRequest) error {
	req.GenIDIfEmpty()
	return apperrors.Storage("create export request", db.InsertOne(ctx, s.coll, req))
}

func (s *MongoExportStore) Get(ctx context.Context, id primitive.ObjectID) (*models.ExportRequest, error) {
	var req models.ExportRequest
	err := s.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&req)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, apperrors.NotFound("export request", id.Hex())
	}
	if err != nil {
		return nil, apperrors.Storage("find export request", err)
	}
	return &req, nil
}

func (s *MongoExportStore) SetTaskID(ctx context.Context, id primitive.ObjectID, taskID string) error {
	_, err := s.coll.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{"taskId": taskID}})
	return apperrors.Storage("set export task id", err)
}

func (s *MongoExportStore) MarkProcessing(ctx context.Context, id primitive.ObjectID, now time.Time) (*models.ExportRequest, error) {
	filter := bson.M{
		"_id":    id,
		"status": bson.M{"$in": bson.A{models.ExportStatusPending, models.ExportStatusProcessing}},
	}
	update := bson.M{"$set": bson.M{
		"status":    models.ExportStatusProcessing,
		"progress":  10,
		"startedAt": now,
		"updatedAt": now,
	}}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var req models.ExportRequest
	err := s.coll.FindOneAndUpdate(ctx, filter, update, opts).Decode(&req)
	if errors.Is(err, mongo.ErrNoDocuments) {
		// Either missing or already terminal.
		if _, getErr := s.Get(ctx, id); getErr != nil {
			return nil, getErr
		}
		return nil, &apperrors.ConflictError{Resource: "export request", ID: id.Hex()}
	}
	if err != nil {
		return nil, apperrors.Storage("start export request", err)
	}
	return &req, nil
}

func (s *MongoExportStore) UpdateProgress(ctx context.Context, id primitive.ObjectID, progress int, now time.Time) error {
	filter := bson.M{"_id": id, "status": models.ExportStatusProcessing}
	update := bson.M{"$set": bson.M{"progress": progress, "updatedAt": now}}
	_, err := s.coll.UpdateOne(ctx, filter, update)
	return apperrors.Storage("update export progress", err)
}

func (s *MongoExportStore) MarkCompleted(ctx context.Context, id primitive.ObjectID, result models.ExportResult, now time.Time) error {
	filter := bson.M{"_id": id, "status": models.ExportStatusProcessing}
	update := bson.M{
		"$set": bson.M{
			"status":      models.ExportStatusCompleted,
			"progress":    100,
			"result":      result,
			"completedAt": now,
			"updatedAt":   now,
		},
		"$unset": bson.M{"error": ""},
	}
	return s.transition(ctx, id, "complete export request", filter, update)
}

func (s *MongoExportStore) MarkFailed(ctx context.Context, id primitive.ObjectID, exportErr models.ExportError, now time.Time) error {
	filter := bson.M{
		"_id":    id,
		"status": bson.M{"$in": bson.A{models.ExportStatusPending, models.ExportStatusProcessing}},
	}
	update := bson.M{
		"$set": bson.M{
			"status":      models.ExportStatusFailed,
			"error":       exportErr,
			"completedAt": now,
			"updatedAt":   now,
		},
		"$unset": bson.M{"result": ""},
	}
	return s.transition(ctx, id, "fail export request", filter, update)
}

func (s *MongoExportStore) transition(ctx context.Context, id primitive.ObjectID, op string, filter, update bson.M) error {
	res, err := s.coll.UpdateOne(ctx, filter, update)
	if err != nil {
		return apperrors.Storage(op, err)
	}
	if res.MatchedCount == 0 {
		return &apperrors.ConflictError{Resource: "export request", ID: id.Hex()}
	}
	return nil
}

func (s *MongoExportStore) List(ctx context.Context, orgID primitive.ObjectID, limit int) ([]models.ExportRequest, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}}).SetLimit(int64(limit))
	return s.find(ctx, "list export requests", bson.M{"organizationId": orgID}, opts)
}

func (s *MongoExportStore) ListExpired(ctx context.Context, now time.Time) ([]models.ExportRequest, error) {
	filter := bson.M{"result.expiresAt": bson.M{"$lte": now}}
	return s.find(ctx, "list expired export requests", filter, options.Find())
}

func (s *MongoExportStore) Delete(ctx context.Context, id primitive.ObjectID) error {
	res, err := s.coll.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return apperrors.Storage("delete export request", err)
	}
	if res.DeletedCount == 0 {
		return apperrors.NotFound("export request", id.Hex())
	}
	return nil
}

func (s *MongoExportStore) find(ctx context.Context, op string, filter bson.M, opts *options.FindOptions) ([]models.ExportRequest, error) {
	cursor, err := s.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, apperrors.Storage(op, err)
	}
	reqs := []models.ExportRequest{}
	if err := cursor.All(ctx, &reqs); err != nil {
		return nil, apperrors.Storage(op, err)
	}
	return reqs, nil
}
