package store

import (
	"context"
	"testing"
	"time"

	"github.com/Zaad1704/HNV1-sub001/internal/apperrors"
	"github.com/Zaad1704/HNV1-sub001/internal/db"
	"github.com/Zaad1704/HNV1-sub001/internal/models"
	"github.com/Zaad1704/HNV1-sub001/internal/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestMongoPeriodStore_InsertFindReplace(t *testing.T) {
	database := utils.SetupTestDB(t, "store")
	ctx := context.Background()
	s := NewMongoPeriodStore(database)
	org := primitive.NewObjectID()
	now := time.Now().UTC().Truncate(time.Millisecond)

	period := &models.RentCollectionPeriod{
		OrganizationID: org,
		Period:         models.PeriodKey{Year: 2024, Month: 3},
		Tenants:        []models.TenantCollectionRow{},
		Version:        1,
		GeneratedAt:    now,
		LastUpdated:    now,
	}
	require.NoError(t, s.Insert(ctx, period))

	dup := *period
	dup.ID = primitive.NilObjectID
	err := s.Insert(ctx, &dup)
	assert.True(t, apperrors.IsDuplicatePeriod(err), "got %v", err)

	found, err := s.Find(ctx, org, period.Period)
	require.NoError(t, err)
	assert.Equal(t, period.ID, found.ID)

	found.Version = 2
	require.NoError(t, s.ReplaceIfVersion(ctx, found, 1))
	err = s.ReplaceIfVersion(ctx, found, 1)
	assert.True(t, apperrors.IsConflict(err))

	_, err = s.Find(ctx, org, models.PeriodKey{Year: 2024, Month: 4})
	assert.True(t, apperrors.IsNotFound(err))

	list, err := s.ListFromPeriod(ctx, org, models.PeriodKey{Year: 2024, Month: 1})
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestMongoExportStore_StateMachine(t *testing.T) {
	database := utils.SetupTestDB(t, "store")
	ctx := context.Background()
	s := NewMongoExportStore(database)
	now := time.Now().UTC()

	req := &models.ExportRequest{
		OrganizationID: primitive.NewObjectID(),
		Type:           models.ExportTypeTenants,
		Format:         models.ExportFormatCSV,
		Status:         models.ExportStatusPending,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	require.NoError(t, s.Create(ctx, req))

	started, err := s.MarkProcessing(ctx, req.ID, now)
	require.NoError(t, err)
	assert.Equal(t, models.ExportStatusProcessing, started.Status)

	require.NoError(t, s.MarkCompleted(ctx, req.ID, models.ExportResult{FileName: "f.csv", ExpiresAt: now.Add(-time.Minute)}, now))
	assert.True(t, apperrors.IsConflict(s.MarkFailed(ctx, req.ID, models.ExportError{Message: "late"}, now)))
	_, err = s.MarkProcessing(ctx, req.ID, now)
	assert.True(t, apperrors.IsConflict(err))

	expired, err := s.ListExpired(ctx, now)
	require.NoError(t, err)
	require.Len(t, expired, 1)
	require.NoError(t, s.Delete(ctx, req.ID))
	assert.True(t, apperrors.IsNotFound(s.Delete(ctx, req.ID)))
}

func TestMongoPaymentStore_ListSettledMalformedRentMonth(t *testing.T) {
	database := utils.SetupTestDB(t, "store")
	ctx := context.Background()
	org := primitive.NewObjectID()
	march := time.Date(2024, 3, 5, 10, 0, 0, 0, time.UTC)
	february := time.Date(2024, 2, 20, 10, 0, 0, 0, time.UTC)

	payment := func(rentMonth string, at time.Time) interface{} {
		return models.Payment{
			Base: models.NewBase(), OrganizationID: org, Amount: 100,
			PaymentDate: at, RentMonth: rentMonth, Status: models.PaymentStatusCompleted,
		}
	}
	_, err := database.Collection(db.PaymentsCollection).InsertMany(ctx, []interface{}{
		payment("", march),
		payment("2024-3", march),
		payment("garbage", march),
		payment("2024-03", february),
		payment("2024-02", march),
		payment("2024-3", february),
	})
	require.NoError(t, err)

	march24 := models.PeriodKey{Year: 2024, Month: 3}
	got, err := NewMongoPaymentStore(database).ListSettled(ctx, org, march24, march24)
	require.NoError(t, err)

	var rentMonths []string
	for _, p := range got {
		assert.Equal(t, march24, p.EffectivePeriod())
		rentMonths = append(rentMonths, p.RentMonth)
	}
	assert.ElementsMatch(t, []string{"", "2024-3", "garbage", "2024-03"}, rentMonths)
}
