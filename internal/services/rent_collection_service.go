package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Zaad1704/HNV1-sub001/internal/apperrors"
	"github.com/Zaad1704/HNV1-sub001/internal/config"
	"github.com/Zaad1704/HNV1-sub001/internal/logger"
	"github.com/Zaad1704/HNV1-sub001/internal/metrics"
	"github.com/Zaad1704/HNV1-sub001/internal/models"
	"github.com/Zaad1704/HNV1-sub001/internal/store"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"golang.org/x/sync/errgroup"
)

// IRentCollectionService builds and maintains monthly collection snapshots.
type IRentCollectionService interface {
	GenerateCollectionPeriod(ctx context.Context, orgID primitive.ObjectID, year, month int) (*models.RentCollectionPeriod, error)
	UpdateCollectionPeriod(ctx context.Context, period *models.RentCollectionPeriod) (*models.RentCollectionPeriod, error)
	GetOrRefreshPeriod(ctx context.Context, orgID primitive.ObjectID, year, month int) (*models.RentCollectionPeriod, error)
	RefreshPeriod(ctx context.Context, orgID primitive.ObjectID, year, month int) (*models.RentCollectionPeriod, error)
	ListPeriods(ctx context.Context, orgID primitive.ObjectID, limit int) ([]models.RentCollectionPeriod, error)
	SyncCurrentPeriods(ctx context.Context) (int, error)
}

// CacheInvalidator drops cached analytics of an organization.
type CacheInvalidator interface {
	Bump(ctx context.Context, orgID string) error
}

const (
	defaultPeriodListLimit = 12
	maxPeriodListLimit     = 120
)

type rentCollectionService struct {
	periods    store.IPeriodStore
	tenants    store.ITenantStore
	properties store.IPropertyStore
	payments   store.IPaymentStore
	cache      CacheInvalidator
	cfg        *config.Config
	now        func() time.Time
}

// NewRentCollectionService creates a new RentCollectionService. cache may be nil.
func NewRentCollectionService(periods store.IPeriodStore, tenants store.ITenantStore, properties store.IPropertyStore,
	payments store.IPaymentStore, cache CacheInvalidator, cfg *config.Config) IRentCollectionService {
	return &rentCollectionService{
		periods:    periods,
		tenants:    tenants,
		properties: properties,
		payments:   payments,
		cache:      cache,
		cfg:        cfg,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

func validatePeriod(orgID primitive.ObjectID, year, month int) error {
	if orgID.IsZero() {
		return apperrors.Validation("organizationId", "is required")
	}
	if month < 1 || month > 12 {
		return apperrors.Validation("month", "must be between 1 and 12")
	}
	if year < 2000 || year > 2100 {
		return apperrors.Validation("year", "must be between 2000 and 2100")
	}
	return nil
}

// compute loads the sources of a period and derives its rows and summary.
func (s *rentCollectionService) compute(ctx context.Context, orgID primitive.ObjectID, key models.PeriodKey, now time.Time) ([]models.TenantCollectionRow, models.CollectionSummary, error) {
	var (
		tenants    []models.Tenant
		properties []models.Property
		payments   []models.Payment
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		tenants, err = s.tenants.ListOccupiable(gctx, orgID)
		return err
	})
	g.Go(func() error {
		var err error
		properties, err = s.properties.ListByOrganization(gctx, orgID)
		return err
	})
	g.Go(func() error {
		var err error
		payments, err = s.payments.ListSettled(gctx, orgID, key.AddMonths(-(historyMonths - 1)), key)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, models.CollectionSummary{}, apperrors.Storage("load collection sources", err)
	}

	rows := buildRows(periodInputs{
		Key:        key,
		Now:        now,
		GraceDays:  s.cfg.LateFeeGraceDays,
		Tenants:    tenants,
		Properties: properties,
		Payments:   payments,
	})
	sortRows(rows)
	return rows, summarize(rows, properties), nil
}

// GenerateCollectionPeriod builds and inserts the snapshot of (year, month).
func (s *rentCollectionService) GenerateCollectionPeriod(ctx context.Context, orgID primitive.ObjectID, year, month int) (*models.RentCollectionPeriod, error) {
	if err := validatePeriod(orgID, year, month); err != nil {
		return nil, err
	}
	key := models.PeriodKey{Year: year, Month: month}
	now := s.now()

	rows, summary, err := s.compute(ctx, orgID, key, now)
	if err != nil {
		metrics.PeriodBuildsTotal.WithLabelValues("error").Inc()
		return nil, err
	}

	period := &models.RentCollectionPeriod{
		Base:           models.NewBase(),
		OrganizationID: orgID,
		Period:         key,
		Summary:        summary,
		Tenants:        rows,
		Version:        1,
		GeneratedAt:    now,
		LastUpdated:    now,
	}
	if err := s.periods.Insert(ctx, period); err != nil {
		if apperrors.IsDuplicatePeriod(err) {
			metrics.PeriodBuildsTotal.WithLabelValues("duplicate").Inc()
			return nil, err
		}
		metrics.PeriodBuildsTotal.WithLabelValues("error").Inc()
		return nil, apperrors.Storage("insert collection period", err)
	}

	metrics.PeriodBuildsTotal.WithLabelValues("created").Inc()
	logger.WithContext(ctx).WithFields(map[string]interface{}{
		"period":  key.String(),
		"tenants": len(rows),
		"rate":    summary.CollectionRate,
	}).Info("Collection period generated")
	s.invalidate(ctx, orgID)
	return period, nil
}

// UpdateCollectionPeriod recomputes period in place. The write only lands if
// nobody refreshed the document since period was read.
func (s *rentCollectionService) UpdateCollectionPeriod(ctx context.Context, period *models.RentCollectionPeriod) (*models.RentCollectionPeriod, error) {
	if period == nil {
		return nil, apperrors.Validation("period", "is required")
	}
	if err := validatePeriod(period.OrganizationID, period.Period.Year, period.Period.Month); err != nil {
		return nil, err
	}
	now := s.now()

	rows, summary, err := s.compute(ctx, period.OrganizationID, period.Period, now)
	if err != nil {
		metrics.PeriodBuildsTotal.WithLabelValues("error").Inc()
		return nil, err
	}

	updated := *period
	updated.Summary = summary
	updated.Tenants = rows
	updated.LastUpdated = now
	updated.Version = period.Version + 1

	if err := s.periods.ReplaceIfVersion(ctx, &updated, period.Version); err != nil {
		if apperrors.IsConflict(err) {
			metrics.PeriodBuildsTotal.WithLabelValues("conflict").Inc()
			return nil, err
		}
		metrics.PeriodBuildsTotal.WithLabelValues("error").Inc()
		return nil, apperrors.Storage("replace collection period", err)
	}

	metrics.PeriodBuildsTotal.WithLabelValues("refreshed").Inc()
	logger.WithContext(ctx).WithField("period", period.Period.String()).Debug("Collection period refreshed")
	s.invalidate(ctx, period.OrganizationID)
	return &updated, nil
}

// GetOrRefreshPeriod returns the snapshot of (year, month), building it when
// absent and refreshing it when older than the stale window.
func (s *rentCollectionService) GetOrRefreshPeriod(ctx context.Context, orgID primitive.ObjectID, year, month int) (*models.RentCollectionPeriod, error) {
	return s.getOrRefresh(ctx, orgID, year, month, false)
}

// RefreshPeriod is GetOrRefreshPeriod with the stale check skipped.
func (s *rentCollectionService) RefreshPeriod(ctx context.Context, orgID primitive.ObjectID, year, month int) (*models.RentCollectionPeriod, error) {
	return s.getOrRefresh(ctx, orgID, year, month, true)
}

func (s *rentCollectionService) getOrRefresh(ctx context.Context, orgID primitive.ObjectID, year, month int, force bool) (*models.RentCollectionPeriod, error) {
	if err := validatePeriod(orgID, year, month); err != nil {
		return nil, err
	}
	key := models.PeriodKey{Year: year, Month: month}

	existing, err := s.periods.Find(ctx, orgID, key)
	if apperrors.IsNotFound(err) {
		created, genErr := s.GenerateCollectionPeriod(ctx, orgID, year, month)
		if apperrors.IsDuplicatePeriod(genErr) {
			// A concurrent request built it first.
			return s.periods.Find(ctx, orgID, key)
		}
		return created, genErr
	}
	if err != nil {
		return nil, err
	}

	if !force && s.now().Sub(existing.LastUpdated) <= s.cfg.PeriodStaleAfter {
		return existing, nil
	}

	refreshed, err := s.UpdateCollectionPeriod(ctx, existing)
	if apperrors.IsConflict(err) {
		// Someone else refreshed it; theirs is at least as fresh as ours.
		return s.periods.Find(ctx, orgID, key)
	}
	return refreshed, err
}

// ListPeriods returns recent snapshots, latest month first.
func (s *rentCollectionService) ListPeriods(ctx context.Context, orgID primitive.ObjectID, limit int) ([]models.RentCollectionPeriod, error) {
	if orgID.IsZero() {
		return nil, apperrors.Validation("organizationId", "is required")
	}
	if limit <= 0 {
		limit = defaultPeriodListLimit
	}
	if limit > maxPeriodListLimit {
		limit = maxPeriodListLimit
	}
	return s.periods.ListRecent(ctx, orgID, limit)
}

// SyncCurrentPeriods warms the current month's snapshot of every organization
// with occupied units. It returns how many organizations were synced.
func (s *rentCollectionService) SyncCurrentPeriods(ctx context.Context) (int, error) {
	orgs, err := s.tenants.OrganizationsWithOccupiable(ctx)
	if err != nil {
		return 0, err
	}
	key := models.PeriodKeyOf(s.now())

	synced := 0
	var errs []error
	for _, org := range orgs {
		if ctx.Err() != nil {
			errs = append(errs, ctx.Err())
			break
		}
		if _, err := s.GetOrRefreshPeriod(ctx, org, key.Year, key.Month); err != nil {
			logger.WithContext(ctx).WithError(err).WithField("organization_id", org.Hex()).Error("Failed to sync collection period")
			errs = append(errs, fmt.Errorf("organization %s: %w", org.Hex(), err))
			continue
		}
		synced++
	}
	return synced, errors.Join(errs...)
}

func (s *rentCollectionService) invalidate(ctx context.Context, orgID primitive.ObjectID) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Bump(ctx, orgID.Hex()); err != nil {
		logger.WithContext(ctx).WithError(err).Warn("Failed to invalidate analytics cache")
	}
}
