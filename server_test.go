package main

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/boxworkshq/boxtrack_backend/utils"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

func newTestRouter(logger *logrus.Logger) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(customErrorLogger(logger))
	r.Use(correlationMiddleware())
	return r
}

func newCapturedLogger(buf *bytes.Buffer) *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(buf)
	logger.SetFormatter(&logrus.JSONFormatter{})
	return logger
}

func TestErrorLogCarriesCorrelationId(t *testing.T) {
	var buf bytes.Buffer
	r := newTestRouter(newCapturedLogger(&buf))
	r.GET("/boom", func(c *gin.Context) {
		abortWithError(c, utils.NewValidationError("gross_margin_pct", "must not exceed 1"))
	})

	req := httptest.NewRequest(http.MethodGet, "/boom", nil)
	req.Header.Set("x-correlation-id", "cid-123")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", w.Code)
	}
	if !strings.Contains(buf.String(), `"correlation_id":"cid-123"`) {
		t.Fatalf("error log is missing the correlation id: %s", buf.String())
	}
	if !strings.Contains(buf.String(), "gross_margin_pct") {
		t.Fatalf("error log is missing the recorded error: %s", buf.String())
	}
}

func TestCorrelationIdGeneratedWhenHeaderAbsent(t *testing.T) {
	var buf bytes.Buffer
	r := newTestRouter(newCapturedLogger(&buf))

	var seen string
	r.GET("/whoami", func(c *gin.Context) {
		cid, ok := utils.GetCorrelationIdFromContext(c.Request.Context())
		if !ok {
			t.Fatal("no correlation id in request context")
		}
		seen = cid
		c.Status(http.StatusNoContent)
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/whoami", nil))

	if seen == "" {
		t.Fatal("expected a generated correlation id, got empty string")
	}
}

func TestGetWeekHandlerRejectsBadParams(t *testing.T) {
	var buf bytes.Buffer
	r := newTestRouter(newCapturedLogger(&buf))
	r.GET("/weeks/:kind/:date", getWeekHandler())

	tests := []struct {
		name string
		path string
	}{
		{"unknown kind", "/weeks/invoices/2026-08-03"},
		{"malformed date", "/weeks/sales/not-a-date"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, tt.path, nil))
			if w.Code != http.StatusBadRequest {
				t.Fatalf("expected status 400 for %s, got %d", tt.path, w.Code)
			}
		})
	}
}
