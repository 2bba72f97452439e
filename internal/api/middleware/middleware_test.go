package middleware_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/Zaad1704/HNV1-sub001/internal/api/middleware"
	"github.com/Zaad1704/HNV1-sub001/internal/auth"
	"github.com/Zaad1704/HNV1-sub001/internal/logger"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const testSecret = "middleware-secret"

func init() {
	gin.SetMode(gin.TestMode)
}

func bearer(t *testing.T, org primitive.ObjectID) string {
	t.Helper()
	token, err := auth.GenerateJWT("user-1", org, "manager", testSecret, time.Hour)
	require.NoError(t, err)
	return "Bearer " + token
}

func serve(r *gin.Engine, method, path string, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestAuthMiddleware(t *testing.T) {
	org := primitive.NewObjectID()
	r := gin.New()
	r.GET("/me", middleware.AuthMiddleware(testSecret), func(c *gin.Context) {
		id, ok := middleware.OrganizationID(c)
		c.JSON(http.StatusOK, gin.H{"org": id.Hex(), "ok": ok, "user": middleware.UserID(c)})
	})

	w := serve(r, http.MethodGet, "/me", map[string]string{"Authorization": bearer(t, org)})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), org.Hex())
	assert.Contains(t, w.Body.String(), `"user":"user-1"`)

	cases := map[string]string{
		"missing header": "",
		"wrong scheme":   "Basic abc",
		"bad token":      "Bearer nope",
	}
	for name, header := range cases {
		t.Run(name, func(t *testing.T) {
			headers := map[string]string{}
			if header != "" {
				headers["Authorization"] = header
			}
			w := serve(r, http.MethodGet, "/me", headers)
			assert.Equal(t, http.StatusUnauthorized, w.Code)
		})
	}
}

func TestRateLimiter_PerOrganization(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	limiter := middleware.NewRateLimiterMiddleware(ctx, 1, 2)

	r := gin.New()
	r.POST("/export", middleware.AuthMiddleware(testSecret), limiter.Limit(), func(c *gin.Context) {
		c.Status(http.StatusAccepted)
	})

	orgA := map[string]string{"Authorization": bearer(t, primitive.NewObjectID())}
	orgB := map[string]string{"Authorization": bearer(t, primitive.NewObjectID())}

	assert.Equal(t, http.StatusAccepted, serve(r, http.MethodPost, "/export", orgA).Code)
	assert.Equal(t, http.StatusAccepted, serve(r, http.MethodPost, "/export", orgA).Code)
	limited := serve(r, http.MethodPost, "/export", orgA)
	assert.Equal(t, http.StatusTooManyRequests, limited.Code)
	assert.NotEmpty(t, limited.Header().Get("Retry-After"))

	assert.Equal(t, http.StatusAccepted, serve(r, http.MethodPost, "/export", orgB).Code, "buckets are per organization")
}

func TestRequestID(t *testing.T) {
	r := gin.New()
	r.Use(middleware.RequestID())
	r.GET("/id", func(c *gin.Context) {
		c.String(http.StatusOK, logger.RequestID(c.Request.Context()))
	})

	w := serve(r, http.MethodGet, "/id", map[string]string{middleware.RequestIDHeader: "req-42"})
	assert.Equal(t, "req-42", w.Body.String())
	assert.Equal(t, "req-42", w.Header().Get(middleware.RequestIDHeader))

	w = serve(r, http.MethodGet, "/id", nil)
	assert.Len(t, w.Body.String(), 36)
	assert.Equal(t, w.Body.String(), w.Header().Get(middleware.RequestIDHeader))
}

func TestCORSMiddleware_Preflight(t *testing.T) {
	r := gin.New()
	r.Use(middleware.CORSMiddleware())
	r.GET("/x", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := serve(r, http.MethodOptions, "/x", nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}
