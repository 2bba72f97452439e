package store

import (
	"context"

	"github.com/Zaad1704/HNV1-sub001/internal/apperrors"
	"github.com/Zaad1704/HNV1-sub001/internal/db"
	"github.com/Zaad1704/HNV1-sub001/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type MongoTenantStore struct {
	coll *mongo.Collection
}

func NewMongoTenantStore(database *mongo.Database) *MongoTenantStore {
	return &MongoTenantStore{coll: database.Collection(db.TenantsCollection)}
}

func (s *MongoTenantStore) ListOccupiable(ctx context.Context, orgID primitive.ObjectID) ([]models.Tenant, error) {
	filter := bson.M{
		"organizationId": orgID,
		"status":         bson.M{"$in": models.OccupiableTenantStatuses},
	}
	opts := options.Find().SetSort(bson.D{{Key: "name", Value: 1}})
	cursor, err := s.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, apperrors.Storage("list tenants", err)
	}
	tenants := []models.Tenant{}
	if err := cursor.All(ctx, &tenants); err != nil {
		return nil, apperrors.Storage("decode tenants", err)
	}
	return tenants, nil
}

func (s *MongoTenantStore) OrganizationsWithOccupiable(ctx context.Context) ([]primitive.ObjectID, error) {
	values, err := s.coll.Distinct(ctx, "organizationId", bson.M{"status": bson.M{"$in": models.OccupiableTenantStatuses}})
	if err != nil {
		return nil, apperrors.Storage("list organizations", err)
	}
	orgs := make([]primitive.ObjectID, 0, len(values))
	for _, v := range values {
		if id, ok := v.(primitive.ObjectID); ok {
			orgs = append(orgs, id)
		}
	}
	return orgs, nil
}

type MongoPropertyStore struct {
	coll *mongo.Collection
}

func NewMongoPropertyStore(database *mongo.Database) *MongoPropertyStore {
	return &MongoPropertyStore{coll: database.Collection(db.PropertiesCollection)}
}

func (s *MongoPropertyStore) ListByOrganization(ctx context.Context, orgID primitive.ObjectID) ([]models.Property, error) {
	opts := options.Find().SetSort(bson.D{{Key: "name", Value: 1}})
	cursor, err := s.coll.Find(ctx, bson.M{"organizationId": orgID}, opts)
	if err != nil {
		return nil, apperrors.Storage("list properties", err)
	}
	properties := []models.Property{}
	if err := cursor.All(ctx, &properties); err != nil {
		return nil, apperrors.Storage("decode properties", err)
	}
	return properties, nil
}

type MongoPaymentStore struct {
	coll *mongo.Collection
}

func NewMongoPaymentStore(database *mongo.Database) *MongoPaymentStore {
	return &MongoPaymentStore{coll: database.Collection(db.PaymentsCollection)}
}

// settledFilter selects payments whose rentMonth names a month in the range,
// plus payments dated in the range whose rentMonth names none of them. The
// second branch covers absent and malformed rentMonth values, which
// EffectivePeriod resolves by payment date.
func settledFilter(orgID primitive.ObjectID, from, to models.PeriodKey) bson.M {
	var months bson.A
	for k := from; !to.Before(k); k = k.AddMonths(1) {
		months = append(months, k.String())
	}
	return bson.M{
		"organizationId": orgID,
		"status":         bson.M{"$in": bson.A{models.PaymentStatusCompleted, models.PaymentStatusPaid}},
		"$or": bson.A{
			bson.M{"rentMonth": bson.M{"$in": months}},
			bson.M{
				"rentMonth":   bson.M{"$nin": months},
				"paymentDate": bson.M{"$gte": from.Start(), "$lt": to.AddMonths(1).Start()},
			},
		},
	}
}

// ListSettled fetches candidates with settledFilter and keeps those whose
// effective period falls in [from, to].
func (s *MongoPaymentStore) ListSettled(ctx context.Context, orgID primitive.ObjectID, from, to models.PeriodKey) ([]models.Payment, error) {
	filter := settledFilter(orgID, from, to)
	opts := options.Find().SetSort(bson.D{{Key: "paymentDate", Value: 1}})
	cursor, err := s.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, apperrors.Storage("list payments", err)
	}
	var all []models.Payment
	if err := cursor.All(ctx, &all); err != nil {
		return nil, apperrors.Storage("decode payments", err)
	}
	payments := make([]models.Payment, 0, len(all))
	for _, p := range all {
		k := p.EffectivePeriod()
		if !k.Before(from) && !to.Before(k) {
			payments = append(payments, p)
		}
	}
	return payments, nil
}
