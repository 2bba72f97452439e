package db

import (
	"context"
	"fmt"
	"time"

	"github.com/Zaad1704/HNV1-sub001/internal/logger"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

// Collection names.
const (
	PeriodsCollection     = "rentcollectionperiods"
	TenantsCollection     = "tenants"
	PropertiesCollection  = "properties"
	PaymentsCollection    = "payments"
	ExpensesCollection    = "expenses"
	MaintenanceCollection = "maintenancerequests"
	ExportsCollection     = "exportrequests"
)

// ConnectDB initializes and returns a MongoDB client and database instance.
func ConnectDB(uri, dbName string) (*mongo.Client, *mongo.Database, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	clientOptions := options.Client().ApplyURI(uri)
	client, err := mongo.Connect(ctx, clientOptions)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}

	// Ping the primary node
	ctxPing, cancelPing := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelPing()
	if err := client.Ping(ctxPing, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	db := client.Database(dbName)
	logger.L().WithField("database", dbName).Info("Successfully connected to MongoDB")

	return client, db, nil
}

// DisconnectDB closes the MongoDB client connection.
func DisconnectDB(client *mongo.Client) error {
	if client == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := client.Disconnect(ctx); err != nil {
		return fmt.Errorf("failed to disconnect MongoDB: %w", err)
	}
	logger.L().Info("MongoDB connection closed")
	return nil
}

// EnsureIndexes creates the indexes the stores depend on. The unique period
// index is what turns a concurrent second Generate into a duplicate key error.
func EnsureIndexes(ctx context.Context, database *mongo.Database) error {
	specs := map[string][]mongo.IndexModel{
		PeriodsCollection: {
			{
				Keys:    bson.D{{Key: "organizationId", Value: 1}, {Key: "period.year", Value: 1}, {Key: "period.month", Value: 1}},
				Options: options.Index().SetUnique(true).SetName("org_period_unique"),
			},
			{Keys: bson.D{{Key: "organizationId", Value: 1}, {Key: "generatedAt", Value: -1}}},
		},
		TenantsCollection: {
			{Keys: bson.D{{Key: "organizationId", Value: 1}, {Key: "status", Value: 1}}},
		},
		PaymentsCollection: {
			{Keys: bson.D{{Key: "organizationId", Value: 1}, {Key: "tenantId", Value: 1}, {Key: "paymentDate", Value: -1}}},
			{Keys: bson.D{{Key: "organizationId", Value: 1}, {Key: "rentMonth", Value: 1}}},
		},
		ExportsCollection: {
			{Keys: bson.D{{Key: "organizationId", Value: 1}, {Key: "createdAt", Value: -1}}},
			{
				// Backstop for requests the cleanup task missed.
				Keys:    bson.D{{Key: "result.expiresAt", Value: 1}},
				Options: options.Index().SetExpireAfterSeconds(int32((7 * 24 * time.Hour).Seconds())).SetName("export_result_ttl"),
			},
		},
	}

	for coll, models := range specs {
		if _, err := database.Collection(coll).Indexes().CreateMany(ctx, models); err != nil {
			return fmt.Errorf("failed to create indexes on %s: %w", coll, err)
		}
	}
	return nil
}

// InsertOne inserts doc into coll, retrying transient failures.
func InsertOne(ctx context.Context, coll *mongo.Collection, doc interface{}) error {
	return Try(func() error {
		_, err := coll.InsertOne(ctx, doc)
		return err
	})
}
