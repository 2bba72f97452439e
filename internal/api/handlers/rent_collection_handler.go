package handlers

import (
	"net/http"
	"strconv"

	"github.com/Zaad1704/HNV1-sub001/internal/apperrors"
	"github.com/Zaad1704/HNV1-sub001/internal/services"
	"github.com/gin-gonic/gin"
)

// RentCollectionHandler handles REST requests for collection periods.
type RentCollectionHandler struct {
	collectionService services.IRentCollectionService
}

// NewRentCollectionHandler creates a new RentCollectionHandler.
func NewRentCollectionHandler(collectionService services.IRentCollectionService) *RentCollectionHandler {
	return &RentCollectionHandler{collectionService: collectionService}
}

func yearMonthParams(c *gin.Context) (int, int, bool) {
	year, err := strconv.Atoi(c.Param("year"))
	if err != nil {
		respondError(c, apperrors.Validation("year", "must be a number"))
		return 0, 0, false
	}
	month, err := strconv.Atoi(c.Param("month"))
	if err != nil {
		respondError(c, apperrors.Validation("month", "must be a number"))
		return 0, 0, false
	}
	return year, month, true
}

// GetPeriod handles GET /api/rent-collection/period/:year/:month
func (h *RentCollectionHandler) GetPeriod(c *gin.Context) {
	orgID, ok := organization(c)
	if !ok {
		return
	}
	year, month, ok := yearMonthParams(c)
	if !ok {
		return
	}

	period, err := h.collectionService.GetOrRefreshPeriod(c.Request.Context(), orgID, year, month)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, period)
}

// RefreshPeriod handles POST /api/rent-collection/period/:year/:month/refresh
func (h *RentCollectionHandler) RefreshPeriod(c *gin.Context) {
	orgID, ok := organization(c)
	if !ok {
		return
	}
	year, month, ok := yearMonthParams(c)
	if !ok {
		return
	}

	period, err := h.collectionService.RefreshPeriod(c.Request.Context(), orgID, year, month)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, period)
}

// ListPeriods handles GET /api/rent-collection/periods?limit=
func (h *RentCollectionHandler) ListPeriods(c *gin.Context) {
	orgID, ok := organization(c)
	if !ok {
		return
	}
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "0"))
	if err != nil {
		respondError(c, apperrors.Validation("limit", "must be a number"))
		return
	}

	periods, err := h.collectionService.ListPeriods(c.Request.Context(), orgID, limit)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, periods)
}
