package handlers_test

import (
	"context"
	"time"

	"github.com/Zaad1704/HNV1-sub001/internal/models"
	"github.com/Zaad1704/HNV1-sub001/internal/services"
	"github.com/stretchr/testify/mock"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type MockCollectionService struct {
	mock.Mock
}

func (m *MockCollectionService) GenerateCollectionPeriod(ctx context.Context, orgID primitive.ObjectID, year, month int) (*models.RentCollectionPeriod, error) {
	args := m.Called(ctx, orgID, year, month)
	p, _ := args.Get(0).(*models.RentCollectionPeriod)
	return p, args.Error(1)
}

func (m *MockCollectionService) UpdateCollectionPeriod(ctx context.Context, period *models.RentCollectionPeriod) (*models.RentCollectionPeriod, error) {
	args := m.Called(ctx, period)
	p, _ := args.Get(0).(*models.RentCollectionPeriod)
	return p, args.Error(1)
}

func (m *MockCollectionService) GetOrRefreshPeriod(ctx context.Context, orgID primitive.ObjectID, year, month int) (*models.RentCollectionPeriod, error) {
	args := m.Called(ctx, orgID, year, month)
	p, _ := args.Get(0).(*models.RentCollectionPeriod)
	return p, args.Error(1)
}

func (m *MockCollectionService) RefreshPeriod(ctx context.Context, orgID primitive.ObjectID, year, month int) (*models.RentCollectionPeriod, error) {
	args := m.Called(ctx, orgID, year, month)
	p, _ := args.Get(0).(*models.RentCollectionPeriod)
	return p, args.Error(1)
}

func (m *MockCollectionService) ListPeriods(ctx context.Context, orgID primitive.ObjectID, limit int) ([]models.RentCollectionPeriod, error) {
	args := m.Called(ctx, orgID, limit)
	p, _ := args.Get(0).([]models.RentCollectionPeriod)
	return p, args.Error(1)
}

func (m *MockCollectionService) SyncCurrentPeriods(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}

type MockAnalyticsService struct {
	mock.Mock
}

func (m *MockAnalyticsService) GenerateCollectionAnalytics(ctx context.Context, orgID primitive.ObjectID, startDate, endDate time.Time) (*models.CollectionAnalytics, error) {
	args := m.Called(ctx, orgID, startDate, endDate)
	a, _ := args.Get(0).(*models.CollectionAnalytics)
	return a, args.Error(1)
}

func (m *MockAnalyticsService) GetCollectionTrends(ctx context.Context, orgID primitive.ObjectID, months int) ([]models.CollectionTrendPoint, error) {
	args := m.Called(ctx, orgID, months)
	p, _ := args.Get(0).([]models.CollectionTrendPoint)
	return p, args.Error(1)
}

func (m *MockAnalyticsService) GetPropertyPerformance(ctx context.Context, orgID primitive.ObjectID) ([]models.PropertyPerformance, error) {
	args := m.Called(ctx, orgID)
	p, _ := args.Get(0).([]models.PropertyPerformance)
	return p, args.Error(1)
}

func (m *MockAnalyticsService) GetTenantRiskAnalysis(ctx context.Context, orgID primitive.ObjectID) ([]models.TenantRisk, error) {
	args := m.Called(ctx, orgID)
	r, _ := args.Get(0).([]models.TenantRisk)
	return r, args.Error(1)
}

type MockExportService struct {
	mock.Mock
}

func (m *MockExportService) CreateExportRequest(ctx context.Context, orgID primitive.ObjectID, requestedBy string, input services.ExportInput) (*models.ExportRequest, error) {
	args := m.Called(ctx, orgID, requestedBy, input)
	r, _ := args.Get(0).(*models.ExportRequest)
	return r, args.Error(1)
}

func (m *MockExportService) ProcessExport(ctx context.Context, requestID primitive.ObjectID, finalAttempt bool) error {
	return m.Called(ctx, requestID, finalAttempt).Error(0)
}

func (m *MockExportService) GetExportStatus(ctx context.Context, orgID, requestID primitive.ObjectID) (*models.ExportRequest, error) {
	args := m.Called(ctx, orgID, requestID)
	r, _ := args.Get(0).(*models.ExportRequest)
	return r, args.Error(1)
}

func (m *MockExportService) ListExports(ctx context.Context, orgID primitive.ObjectID, limit int) ([]models.ExportRequest, error) {
	args := m.Called(ctx, orgID, limit)
	r, _ := args.Get(0).([]models.ExportRequest)
	return r, args.Error(1)
}

func (m *MockExportService) OpenExportDownload(ctx context.Context, orgID, requestID primitive.ObjectID) (*services.ExportDownload, error) {
	args := m.Called(ctx, orgID, requestID)
	d, _ := args.Get(0).(*services.ExportDownload)
	return d, args.Error(1)
}

func (m *MockExportService) DeleteExport(ctx context.Context, orgID, requestID primitive.ObjectID) error {
	return m.Called(ctx, orgID, requestID).Error(0)
}

func (m *MockExportService) CleanupExpiredExports(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}
