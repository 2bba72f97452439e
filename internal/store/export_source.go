package store

import (
	"context"
	"fmt"

	"github.com/Zaad1704/HNV1-sub001/internal/apperrors"
	"github.com/Zaad1704/HNV1-sub001/internal/db"
	"github.com/Zaad1704/HNV1-sub001/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// sourceSpec describes where records of one export type come from.
type sourceSpec struct {
	collection string
	dateField  string
	// prefix is prepended to filter fields once the pipeline has unwound
	// embedded rows (rent collection periods).
	prefix   string
	populate []populateSpec
}

type populateSpec struct {
	field string
	from  string
}

var exportSources = map[models.ExportType]sourceSpec{
	models.ExportTypeTenants: {
		collection: db.TenantsCollection,
		dateField:  "createdAt",
		populate:   []populateSpec{{"propertyId", db.PropertiesCollection}},
	},
	models.ExportTypeProperties: {
		collection: db.PropertiesCollection,
		dateField:  "createdAt",
	},
	models.ExportTypePayments: {
		collection: db.PaymentsCollection,
		dateField:  "paymentDate",
		populate: []populateSpec{
			{"propertyId", db.PropertiesCollection},
			{"tenantId", db.TenantsCollection},
		},
	},
	models.ExportTypeExpenses: {
		collection: db.ExpensesCollection,
		dateField:  "date",
		populate:   []populateSpec{{"propertyId", db.PropertiesCollection}},
	},
	models.ExportTypeMaintenance: {
		collection: db.MaintenanceCollection,
		dateField:  "createdAt",
		populate: []populateSpec{
			{"propertyId", db.PropertiesCollection},
			{"tenantId", db.TenantsCollection},
		},
	},
	models.ExportTypeRentCollection: {
		collection: db.PeriodsCollection,
		dateField:  "generatedAt",
		prefix:     "tenants.",
	},
}

type MongoExportSource struct {
	database *mongo.Database
}

func NewMongoExportSource(database *mongo.Database) *MongoExportSource {
	return &MongoExportSource{database: database}
}

func (s *MongoExportSource) Fetch(ctx context.Context, exportType models.ExportType, orgID primitive.ObjectID, filters models.ExportFilters) ([]Record, error) {
	spec, ok := exportSources[exportType]
	if !ok {
		return nil, apperrors.Validation("type", "unsupported export type %q", exportType)
	}

	cursor, err := s.database.Collection(spec.collection).Aggregate(ctx, BuildExportPipeline(spec, orgID, filters))
	if err != nil {
		return nil, apperrors.Storage(fmt.Sprintf("fetch %s", exportType), err)
	}
	var docs []bson.M
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, apperrors.Storage(fmt.Sprintf("decode %s", exportType), err)
	}
	records := make([]Record, len(docs))
	for i, d := range docs {
		records[i] = Record(d)
	}
	return records, nil
}

// PipelineFor exposes the aggregation pipeline of an export type.
func PipelineFor(exportType models.ExportType, orgID primitive.ObjectID, filters models.ExportFilters) (mongo.Pipeline, bool) {
	spec, ok := exportSources[exportType]
	if !ok {
		return nil, false
	}
	return BuildExportPipeline(spec, orgID, filters), true
}

// BuildExportPipeline matches on organization and filters, then joins each
// referenced document into its id field.
func BuildExportPipeline(spec sourceSpec, orgID primitive.ObjectID, filters models.ExportFilters) mongo.Pipeline {
	match := bson.M{"organizationId": orgID}
	dates := bson.M{}
	if filters.StartDate != nil {
		dates["$gte"] = *filters.StartDate
	}
	if filters.EndDate != nil {
		dates["$lte"] = *filters.EndDate
	}
	if len(dates) > 0 {
		match[spec.dateField] = dates
	}

	pipeline := mongo.Pipeline{{{Key: "$match", Value: match}}}

	if spec.prefix != "" {
		// Flatten period rows into one record each, keeping the period key.
		pipeline = append(pipeline,
			bson.D{{Key: "$sort", Value: bson.D{{Key: "period.year", Value: 1}, {Key: "period.month", Value: 1}}}},
			bson.D{{Key: "$unwind", Value: "$tenants"}},
		)
	}

	rowMatch := bson.M{}
	if filters.PropertyID != nil {
		rowMatch[spec.prefix+"propertyId"] = *filters.PropertyID
	}
	if filters.Status != "" {
		rowMatch[spec.prefix+"status"] = filters.Status
	}
	if len(rowMatch) > 0 {
		pipeline = append(pipeline, bson.D{{Key: "$match", Value: rowMatch}})
	}

	if spec.prefix != "" {
		pipeline = append(pipeline, bson.D{{Key: "$replaceRoot", Value: bson.M{
			"newRoot": bson.M{"$mergeObjects": bson.A{"$tenants", bson.M{"period": "$period"}}},
		}}})
		return pipeline
	}

	for _, p := range spec.populate {
		pipeline = append(pipeline,
			bson.D{{Key: "$lookup", Value: bson.M{
				"from":         p.from,
				"localField":   p.field,
				"foreignField": "_id",
				"as":           p.field,
			}}},
			bson.D{{Key: "$unwind", Value: bson.M{"path": "$" + p.field, "preserveNullAndEmptyArrays": true}}},
		)
	}
	pipeline = append(pipeline, bson.D{{Key: "$sort", Value: bson.D{{Key: spec.dateField, Value: -1}}}})
	return pipeline
}
