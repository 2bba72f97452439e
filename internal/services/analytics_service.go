package services

import (
	"context"
	"time"

	"github.com/Zaad1704/HNV1-sub001/internal/apperrors"
	"github.com/Zaad1704/HNV1-sub001/internal/cache"
	"github.com/Zaad1704/HNV1-sub001/internal/config"
	"github.com/Zaad1704/HNV1-sub001/internal/logger"
	"github.com/Zaad1704/HNV1-sub001/internal/metrics"
	"github.com/Zaad1704/HNV1-sub001/internal/models"
	"github.com/Zaad1704/HNV1-sub001/internal/store"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"golang.org/x/sync/errgroup"
)

// IAnalyticsService answers the dashboard analytics queries.
type IAnalyticsService interface {
	GenerateCollectionAnalytics(ctx context.Context, orgID primitive.ObjectID, startDate, endDate time.Time) (*models.CollectionAnalytics, error)
	GetCollectionTrends(ctx context.Context, orgID primitive.ObjectID, months int) ([]models.CollectionTrendPoint, error)
	GetPropertyPerformance(ctx context.Context, orgID primitive.ObjectID) ([]models.PropertyPerformance, error)
	GetTenantRiskAnalysis(ctx context.Context, orgID primitive.ObjectID) ([]models.TenantRisk, error)
}

// AnalyticsCache caches analytics per organization generation.
type AnalyticsCache interface {
	Generation(ctx context.Context, orgID string) (int64, error)
	Get(ctx context.Context, key string, dst interface{}) (bool, error)
	Set(ctx context.Context, key string, v interface{}, ttl time.Duration) error
}

const (
	DefaultTrendMonths = 12
	MaxTrendMonths     = 60
)

type analyticsService struct {
	periods    store.IPeriodStore
	properties store.IPropertyStore
	cache      AnalyticsCache
	cfg        *config.Config
	now        func() time.Time
}

// NewAnalyticsService creates a new AnalyticsService. cache may be nil.
func NewAnalyticsService(periods store.IPeriodStore, properties store.IPropertyStore, cache AnalyticsCache, cfg *config.Config) IAnalyticsService {
	return &analyticsService{
		periods:    periods,
		properties: properties,
		cache:      cache,
		cfg:        cfg,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

func (s *analyticsService) policy() models.RatePolicy {
	if s.cfg.AnalyticsRatePolicy == string(models.RatePolicyWeighted) {
		return models.RatePolicyWeighted
	}
	return models.RatePolicyMean
}

// GenerateCollectionAnalytics aggregates the periods generated in
// [startDate, endDate]. It returns nil, nil when there are none.
func (s *analyticsService) GenerateCollectionAnalytics(ctx context.Context, orgID primitive.ObjectID, startDate, endDate time.Time) (*models.CollectionAnalytics, error) {
	if orgID.IsZero() {
		return nil, apperrors.Validation("organizationId", "is required")
	}
	if startDate.IsZero() || endDate.IsZero() {
		return nil, apperrors.Validation("dateRange", "startDate and endDate are required")
	}
	if startDate.After(endDate) {
		return nil, apperrors.Validation("dateRange", "startDate must not be after endDate")
	}
	startDate, endDate = startDate.UTC(), endDate.UTC()
	policy := s.policy()

	key, cached := s.cacheKey(ctx, orgID, policy, startDate, endDate)
	if key != "" {
		var result *models.CollectionAnalytics
		if hit, err := s.cache.Get(ctx, key, &result); err != nil {
			metrics.AnalyticsCacheRequests.WithLabelValues("error").Inc()
			logger.WithContext(ctx).WithError(err).Warn("Analytics cache read failed")
		} else if hit {
			metrics.AnalyticsCacheRequests.WithLabelValues("hit").Inc()
			return result, nil
		} else {
			metrics.AnalyticsCacheRequests.WithLabelValues("miss").Inc()
		}
	}

	var current, previous []models.RentCollectionPeriod
	window := endDate.Sub(startDate)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		current, err = s.periods.ListGeneratedBetween(gctx, orgID, startDate, endDate)
		return err
	})
	g.Go(func() error {
		var err error
		previous, err = s.periods.ListGeneratedBetween(gctx, orgID, startDate.Add(-window), startDate.Add(-time.Nanosecond))
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, apperrors.Storage("load collection periods", err)
	}

	result := aggregate(current, previous, aggregateOptions{
		Policy:              policy,
		ProblemMinAvgLate:   s.cfg.ProblemTenantMinAvgDaysLate,
		ProblemTenantsLimit: s.cfg.ProblemTenantLimit,
	})
	if result != nil {
		result.OrganizationID = orgID
		result.StartDate = startDate
		result.EndDate = endDate
		result.GeneratedAt = s.now()
	}

	if cached {
		if err := s.cache.Set(ctx, key, result, s.cfg.AnalyticsCacheTTL); err != nil {
			logger.WithContext(ctx).WithError(err).Warn("Analytics cache write failed")
		}
	}
	return result, nil
}

// cacheKey returns the key of a query and whether the cache is usable.
func (s *analyticsService) cacheKey(ctx context.Context, orgID primitive.ObjectID, policy models.RatePolicy, start, end time.Time) (string, bool) {
	if s.cache == nil || s.cfg.AnalyticsCacheTTL <= 0 {
		return "", false
	}
	gen, err := s.cache.Generation(ctx, orgID.Hex())
	if err != nil {
		metrics.AnalyticsCacheRequests.WithLabelValues("error").Inc()
		logger.WithContext(ctx).WithError(err).Warn("Analytics cache unavailable")
		return "", false
	}
	return cache.AnalyticsKey(orgID.Hex(), gen,
		start.Format(time.RFC3339), end.Format(time.RFC3339), string(policy)), true
}

// GetCollectionTrends projects the periods of the last months months,
// oldest first.
func (s *analyticsService) GetCollectionTrends(ctx context.Context, orgID primitive.ObjectID, months int) ([]models.CollectionTrendPoint, error) {
	if orgID.IsZero() {
		return nil, apperrors.Validation("organizationId", "is required")
	}
	if months < 1 || months > MaxTrendMonths {
		return nil, apperrors.Validation("months", "must be between 1 and %d", MaxTrendMonths)
	}
	currentKey := models.PeriodKeyOf(s.now())
	periods, err := s.periods.ListFromPeriod(ctx, orgID, currentKey.AddMonths(-(months - 1)))
	if err != nil {
		return nil, err
	}

	points := make([]models.CollectionTrendPoint, 0, len(periods))
	for _, p := range periods {
		if currentKey.Before(p.Period) {
			continue
		}
		points = append(points, models.CollectionTrendPoint{
			Month:          p.Period.Month,
			Year:           p.Period.Year,
			CollectionRate: p.Summary.CollectionRate,
			Collected:      p.Summary.CollectedRent,
			Outstanding:    p.Summary.OutstandingRent,
			TotalUnits:     p.Summary.TotalUnits,
		})
	}
	return points, nil
}

// GetPropertyPerformance reports the current month per property. It never
// builds the period; an empty slice means it does not exist yet.
func (s *analyticsService) GetPropertyPerformance(ctx context.Context, orgID primitive.ObjectID) ([]models.PropertyPerformance, error) {
	if orgID.IsZero() {
		return nil, apperrors.Validation("organizationId", "is required")
	}
	period, err := s.periods.Find(ctx, orgID, models.PeriodKeyOf(s.now()))
	if apperrors.IsNotFound(err) {
		return []models.PropertyPerformance{}, nil
	}
	if err != nil {
		return nil, err
	}
	properties, err := s.properties.ListByOrganization(ctx, orgID)
	if err != nil {
		return nil, err
	}
	return propertyPerformance(properties, period), nil
}

// GetTenantRiskAnalysis grades tenants over periods generated in the
// trailing risk window.
func (s *analyticsService) GetTenantRiskAnalysis(ctx context.Context, orgID primitive.ObjectID) ([]models.TenantRisk, error) {
	if orgID.IsZero() {
		return nil, apperrors.Validation("organizationId", "is required")
	}
	now := s.now()
	months := s.cfg.RiskWindowMonths
	if months <= 0 {
		months = 6
	}
	periods, err := s.periods.ListGeneratedBetween(ctx, orgID, now.AddDate(0, -months, 0), now)
	if err != nil {
		return nil, err
	}
	return tenantRisk(periods), nil
}
