package middleware

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/Zaad1704/HNV1-sub001/internal/auth"
	"github.com/Zaad1704/HNV1-sub001/internal/logger"
	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	// ContextKeyUserID holds the key for user ID in Gin context.
	ContextKeyUserID = "userID"
	// ContextKeyOrganizationID holds the caller's organization as a primitive.ObjectID.
	ContextKeyOrganizationID = "organizationID"
	// ContextKeyRole holds the caller's role claim.
	ContextKeyRole = "role"
)

// AuthMiddleware creates a Gin middleware for JWT authentication.
func AuthMiddleware(jwtSecret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"success": false, "message": "Authorization header required"})
			return
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"success": false, "message": "Authorization header format must be Bearer {token}"})
			return
		}

		claims, err := auth.ValidateJWT(parts[1], jwtSecret)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"success": false, "message": fmt.Sprintf("Invalid or expired token: %v", err)})
			return
		}
		orgID, err := claims.Organization()
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"success": false, "message": err.Error()})
			return
		}

		c.Set(ContextKeyUserID, claims.UserID)
		c.Set(ContextKeyOrganizationID, orgID)
		c.Set(ContextKeyRole, claims.Role)
		c.Request = c.Request.WithContext(logger.ContextWithOrganization(c.Request.Context(), orgID.Hex()))

		c.Next()
	}
}

// OrganizationID returns the organization AuthMiddleware resolved.
func OrganizationID(c *gin.Context) (primitive.ObjectID, bool) {
	v, ok := c.Get(ContextKeyOrganizationID)
	if !ok {
		return primitive.NilObjectID, false
	}
	id, ok := v.(primitive.ObjectID)
	return id, ok && !id.IsZero()
}

// UserID returns the authenticated user id, empty when unauthenticated.
func UserID(c *gin.Context) string {
	return c.GetString(ContextKeyUserID)
}
