package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/Zaad1704/HNV1-sub001/internal/apperrors"
	"github.com/Zaad1704/HNV1-sub001/internal/services"
	"github.com/gin-gonic/gin"
)

// AnalyticsHandler handles the dashboard analytics endpoints.
type AnalyticsHandler struct {
	analyticsService services.IAnalyticsService
}

// NewAnalyticsHandler creates a new AnalyticsHandler.
func NewAnalyticsHandler(analyticsService services.IAnalyticsService) *AnalyticsHandler {
	return &AnalyticsHandler{analyticsService: analyticsService}
}

// parseDateParam accepts RFC3339 or YYYY-MM-DD. A bare date used as the end
// of a range covers the whole day.
func parseDateParam(field, value string, endOfDay bool) (time.Time, error) {
	if value == "" {
		return time.Time{}, apperrors.Validation(field, "is required")
	}
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t.UTC(), nil
	}
	t, err := time.Parse("2006-01-02", value)
	if err != nil {
		return time.Time{}, apperrors.Validation(field, "must be RFC3339 or YYYY-MM-DD")
	}
	if endOfDay {
		t = t.Add(24*time.Hour - time.Nanosecond)
	}
	return t, nil
}

// GetCollectionAnalytics handles GET /api/analytics/collection?startDate&endDate.
// data is null when no period was generated in the range.
func (h *AnalyticsHandler) GetCollectionAnalytics(c *gin.Context) {
	orgID, ok := organization(c)
	if !ok {
		return
	}
	start, err := parseDateParam("startDate", c.Query("startDate"), false)
	if err != nil {
		respondError(c, err)
		return
	}
	end, err := parseDateParam("endDate", c.Query("endDate"), true)
	if err != nil {
		respondError(c, err)
		return
	}

	analytics, err := h.analyticsService.GenerateCollectionAnalytics(c.Request.Context(), orgID, start, end)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, analytics)
}

// GetTrends handles GET /api/analytics/trends?months=N
func (h *AnalyticsHandler) GetTrends(c *gin.Context) {
	orgID, ok := organization(c)
	if !ok {
		return
	}
	months, err := strconv.Atoi(c.DefaultQuery("months", strconv.Itoa(services.DefaultTrendMonths)))
	if err != nil {
		respondError(c, apperrors.Validation("months", "must be a number"))
		return
	}

	points, err := h.analyticsService.GetCollectionTrends(c.Request.Context(), orgID, months)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, points)
}

// GetPropertyPerformance handles GET /api/analytics/property-performance
func (h *AnalyticsHandler) GetPropertyPerformance(c *gin.Context) {
	orgID, ok := organization(c)
	if !ok {
		return
	}
	perf, err := h.analyticsService.GetPropertyPerformance(c.Request.Context(), orgID)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, perf)
}

// GetTenantRisk handles GET /api/analytics/tenant-risk
func (h *AnalyticsHandler) GetTenantRisk(c *gin.Context) {
	orgID, ok := organization(c)
	if !ok {
		return
	}
	risk, err := h.analyticsService.GetTenantRiskAnalysis(c.Request.Context(), orgID)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, risk)
}
