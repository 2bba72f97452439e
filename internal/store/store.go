// Package store holds the persistence boundary of the collection engine.
// Services depend on the interfaces below; the Mongo implementations live
// next to them and are constructed from a *mongo.Database.
package store

import (
	"context"
	"time"

	"github.com/Zaad1704/HNV1-sub001/internal/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// IPeriodStore persists RentCollectionPeriod snapshots.
type IPeriodStore interface {
	// Insert fails with *apperrors.DuplicatePeriodError when the
	// (organization, year, month) snapshot already exists.
	Insert(ctx context.Context, period *models.RentCollectionPeriod) error
	Find(ctx context.Context, orgID primitive.ObjectID, key models.PeriodKey) (*models.RentCollectionPeriod, error)
	// ReplaceIfVersion stores period only when the stored version equals
	// expectedVersion, otherwise it fails with *apperrors.ConflictError.
	ReplaceIfVersion(ctx context.Context, period *models.RentCollectionPeriod, expectedVersion int64) error
	// ListGeneratedBetween returns periods with generatedAt in [from, to], newest first.
	ListGeneratedBetween(ctx context.Context, orgID primitive.ObjectID, from, to time.Time) ([]models.RentCollectionPeriod, error)
	// ListFromPeriod returns periods at or after from, ascending by (year, month).
	ListFromPeriod(ctx context.Context, orgID primitive.ObjectID, from models.PeriodKey) ([]models.RentCollectionPeriod, error)
	// ListRecent returns up to limit periods, latest month first.
	ListRecent(ctx context.Context, orgID primitive.ObjectID, limit int) ([]models.RentCollectionPeriod, error)
}

// ITenantStore reads tenants.
type ITenantStore interface {
	ListOccupiable(ctx context.Context, orgID primitive.ObjectID) ([]models.Tenant, error)
	OrganizationsWithOccupiable(ctx context.Context) ([]primitive.ObjectID, error)
}

// IPropertyStore reads properties.
type IPropertyStore interface {
	ListByOrganization(ctx context.Context, orgID primitive.ObjectID) ([]models.Property, error)
}

// IPaymentStore reads settled payments.
type IPaymentStore interface {
	// ListSettled returns completed/paid payments whose effective period lies in [from, to].
	ListSettled(ctx context.Context, orgID primitive.ObjectID, from, to models.PeriodKey) ([]models.Payment, error)
}

// IExportStore persists export requests and guards their state machine.
type IExportStore interface {
	Create(ctx context.Context, req *models.ExportRequest) error
	Get(ctx context.Context, id primitive.ObjectID) (*models.ExportRequest, error)
	SetTaskID(ctx context.Context, id primitive.ObjectID, taskID string) error
	// MarkProcessing moves a pending (or redelivered processing) request to
	// processing. A terminal request yields *apperrors.ConflictError.
	MarkProcessing(ctx context.Context, id primitive.ObjectID, now time.Time) (*models.ExportRequest, error)
	UpdateProgress(ctx context.Context, id primitive.ObjectID, progress int, now time.Time) error
	MarkCompleted(ctx context.Context, id primitive.ObjectID, result models.ExportResult, now time.Time) error
	MarkFailed(ctx context.Context, id primitive.ObjectID, exportErr models.ExportError, now time.Time) error
	List(ctx context.Context, orgID primitive.ObjectID, limit int) ([]models.ExportRequest, error)
	ListExpired(ctx context.Context, now time.Time) ([]models.ExportRequest, error)
	Delete(ctx context.Context, id primitive.ObjectID) error
}

// Record is one exportable document, with referenced documents populated
// in place so dot paths such as propertyId.name resolve.
type Record = map[string]interface{}

// IExportSource fetches the records an export renders.
type IExportSource interface {
	Fetch(ctx context.Context, exportType models.ExportType, orgID primitive.ObjectID, filters models.ExportFilters) ([]Record, error)
}
