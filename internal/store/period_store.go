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

type MongoPeriodStore struct {
	coll *mongo.Collection
}

func NewMongoPeriodStore(database *mongo.Database) *MongoPeriodStore {
	return &MongoPeriodStore{coll: database.Collection(db.PeriodsCollection)}
}

func (s *MongoPeriodStore) Insert(ctx context.Context, period *models.RentCollectionPeriod) error {
	period.GenIDIfEmpty()
	err := db.InsertOne(ctx, s.coll, period)
	if db.IsMongoDuplicateKeyError(err) {
		return &apperrors.DuplicatePeriodError{
			OrganizationID: period.OrganizationID.Hex(),
			Year:           period.Period.Year,
			Month:          period.Period.Month,
		}
	}
	return apperrors.Storage("insert collection period", err)
}

func (s *MongoPeriodStore) Find(ctx context.Context, orgID primitive.ObjectID, key models.PeriodKey) (*models.RentCollectionPeriod, error) {
	filter := bson.M{"organizationId": orgID, "period.year": key.Year, "period.month": key.Month}
	var period models.RentCollectionPeriod
	err := s.coll.FindOne(ctx, filter).Decode(&period)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, apperrors.NotFound("collection period", key.String())
	}
	if err != nil {
		return nil, apperrors.Storage("find collection period", err)
	}
	return &period, nil
}

func (s *MongoPeriodStore) ReplaceIfVersion(ctx context.Context, period *models.RentCollectionPeriod, expectedVersion int64) error {
	filter := bson.M{"_id": period.ID, "version": expectedVersion}
	var res *mongo.UpdateResult
	err := db.Try(func() error {
		var err error
		res, err = s.coll.ReplaceOne(ctx, filter, period)
		return err
	})
	if err != nil {
		return apperrors.Storage("replace collection period", err)
	}
	if res.MatchedCount == 0 {
		return &apperrors.ConflictError{Resource: "collection period", ID: period.ID.Hex()}
	}
	return nil
}

func (s *MongoPeriodStore) ListGeneratedBetween(ctx context.Context, orgID primitive.ObjectID, from, to time.Time) ([]models.RentCollectionPeriod, error) {
	filter := bson.M{
		"organizationId": orgID,
		"generatedAt":    bson.M{"$gte": from, "$lte": to},
	}
	opts := options.Find().SetSort(bson.D{{Key: "generatedAt", Value: -1}})
	return s.find(ctx, "list collection periods", filter, opts)
}

func (s *MongoPeriodStore) ListFromPeriod(ctx context.Context, orgID primitive.ObjectID, from models.PeriodKey) ([]models.RentCollectionPeriod, error) {
	filter := bson.M{
		"organizationId": orgID,
		"$or": bson.A{
			bson.M{"period.year": bson.M{"$gt": from.Year}},
			bson.M{"period.year": from.Year, "period.month": bson.M{"$gte": from.Month}},
		},
	}
	opts := options.Find().SetSort(bson.D{{Key: "period.year", Value: 1}, {Key: "period.month", Value: 1}})
	return s.find(ctx, "list collection trends", filter, opts)
}

func (s *MongoPeriodStore) ListRecent(ctx context.Context, orgID primitive.ObjectID, limit int) ([]models.RentCollectionPeriod, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "period.year", Value: -1}, {Key: "period.month", Value: -1}}).
		SetLimit(int64(limit))
	return s.find(ctx, "list recent collection periods", bson.M{"organizationId": orgID}, opts)
}

func (s *MongoPeriodStore) find(ctx context.Context, op string, filter bson.M, opts *options.FindOptions) ([]models.RentCollectionPeriod, error) {
	cursor, err := s.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, apperrors.Storage(op, err)
	}
	periods := []models.RentCollectionPeriod{}
	if err := cursor.All(ctx, &periods); err != nil {
		return nil, apperrors.Storage(op, err)
	}
	return periods, nil
}
