package handlers

import (
	"net/http"

	"github.com/Zaad1704/HNV1-sub001/internal/api/middleware"
	"github.com/Zaad1704/HNV1-sub001/internal/apperrors"
	"github.com/Zaad1704/HNV1-sub001/internal/logger"
	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// respondOK writes the success envelope.
func respondOK(c *gin.Context, status int, data interface{}) {
	c.JSON(status, gin.H{"success": true, "data": data})
}

// respondError maps err to its status code. Server-side failures are logged
// and answered with a generic message.
func respondError(c *gin.Context, err error) {
	status := apperrors.HTTPStatus(err)
	message := err.Error()
	if status >= http.StatusInternalServerError {
		logger.WithContext(c.Request.Context()).WithError(err).WithField("path", c.FullPath()).Error("Request failed")
		message = "Internal server error"
	}
	_ = c.Error(err)
	c.AbortWithStatusJSON(status, gin.H{"success": false, "message": message})
}

// organization returns the caller's organization or answers 401.
func organization(c *gin.Context) (primitive.ObjectID, bool) {
	orgID, ok := middleware.OrganizationID(c)
	if !ok {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"success": false, "message": "Organization context required"})
		return primitive.NilObjectID, false
	}
	return orgID, true
}

// objectIDParam parses a path parameter as an ObjectID or answers 400.
func objectIDParam(c *gin.Context, name string) (primitive.ObjectID, bool) {
	id, err := primitive.ObjectIDFromHex(c.Param(name))
	if err != nil {
		respondError(c, apperrors.Validation(name, "must be a valid id"))
		return primitive.NilObjectID, false
	}
	return id, true
}
