package utils

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/Zaad1704/HNV1-sub001/internal/db"
	"github.com/joho/godotenv"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// testMongoURI is read lazily so packages that never touch Mongo can still
// import this one.
func testMongoURI() string {
	// Try to load .env from project root (2 levels up from this file)
	_, filename, _, _ := runtime.Caller(0)
	projectRoot := filepath.Join(filepath.Dir(filename), "..", "..")
	if err := godotenv.Load(filepath.Join(projectRoot, ".env")); err != nil {
		godotenv.Load()
	}
	return os.Getenv("MONGO_URI_TEST")
}

// SetupTestDB connects to MONGO_URI_TEST and returns a fresh database with
// the production indexes. The test is skipped when no test server is configured.
// The database is dropped when the test finishes.
func SetupTestDB(t *testing.T, prefix string) *mongo.Database {
	t.Helper()
	uri := testMongoURI()
	if uri == "" {
		t.Skip("MONGO_URI_TEST not set")
	}

	client, database, err := db.ConnectDB(uri, prefix+"_"+primitive.NewObjectID().Hex())
	require.NoError(t, err, "Failed to connect to MongoDB")
	require.NoError(t, db.EnsureIndexes(context.Background(), database))

	t.Cleanup(func() {
		_ = database.Drop(context.Background())
		_ = db.DisconnectDB(client)
	})
	return database
}
