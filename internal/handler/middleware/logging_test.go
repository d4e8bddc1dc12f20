//go:build unit

package middleware

import (
	"bytes"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"bookhub-loans/internal/pkg/config"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoggingMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	cfg := config.NewTestConfig().Log

	t.Run("reuses the supplied logger instead of building a new one", func(t *testing.T) {
		var buf bytes.Buffer
		logger := slog.New(slog.NewTextHandler(&buf, nil))
		before := slog.Default()

		engine := gin.New()
		engine.Use(LoggingMiddleware(logger, cfg))
		engine.GET("/ping", func(c *gin.Context) { c.Status(http.StatusOK) })

		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/ping", nil)
		engine.ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, buf.String(), "Request started")
		assert.Contains(t, buf.String(), "Request completed")
		assert.Same(t, before, slog.Default(), "middleware must not replace the process default logger")
	})

	t.Run("records the request id and idempotency key", func(t *testing.T) {
		var buf bytes.Buffer
		logger := slog.New(slog.NewTextHandler(&buf, nil))

		var capturedID string
		engine := gin.New()
		engine.Use(LoggingMiddleware(logger, cfg))
		engine.POST("/loans", func(c *gin.Context) {
			capturedID = GetRequestID(c)
			c.Status(http.StatusCreated)
		})

		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/loans", nil)
		req.Header.Set("Idempotency-Key", "3b4c1d26-9f01-4a3e-8f7b-2d5f0a6c9e11")
		engine.ServeHTTP(rec, req)

		require.Equal(t, http.StatusCreated, rec.Code)
		assert.NotEmpty(t, capturedID)
		assert.Contains(t, buf.String(), capturedID)
		assert.Contains(t, buf.String(), "idempotency_key")
	})
}
