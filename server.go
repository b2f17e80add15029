package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/boxworkshq/boxtrack_backend/config"
	"github.com/boxworkshq/boxtrack_backend/middlewares"
	"github.com/boxworkshq/boxtrack_backend/models"
	"github.com/boxworkshq/boxtrack_backend/models/reports"
	"github.com/boxworkshq/boxtrack_backend/utils"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
)

const defaultPort = "8080"

var tracer = otel.Tracer("boxtrack-backend")

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func loginHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req loginRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
			return
		}
		token, err := models.Login(c.Request.Context(), req.Username, req.Password)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid username or password"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"token": token})
	}
}

func getSettingsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		settings, err := models.FetchSettings(c.Request.Context(), config.GetDB())
		if err != nil {
			abortWithError(c, err)
			return
		}
		c.JSON(http.StatusOK, settings)
	}
}

func updateSettingsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var changes map[string]string
		if err := c.ShouldBindJSON(&changes); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
			return
		}
		settings, err := models.UpdateSettings(c.Request.Context(), changes)
		if err != nil {
			abortWithError(c, err)
			return
		}
		c.JSON(http.StatusOK, settings)
	}
}

func dashboardHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, span := tracer.Start(c.Request.Context(), "dashboard")
		defer span.End()

		referenceDate := time.Now().UTC()
		if raw := c.Query("date"); raw != "" {
			parsed, err := time.Parse("2006-01-02", raw)
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "date must be in YYYY-MM-DD format"})
				return
			}
			referenceDate = parsed
		}

		if report, ok := models.GetCachedDashboard(referenceDate); ok {
			c.JSON(http.StatusOK, report)
			return
		}

		db := config.GetDB()
		settings, err := models.GetSettings(ctx, db)
		if err != nil {
			abortWithError(c, err)
			return
		}
		sales, err := models.FetchWeeklySalesRecords(ctx, db)
		if err != nil {
			abortWithError(c, err)
			return
		}
		production, err := models.FetchWeeklyProductionRecords(ctx, db)
		if err != nil {
			abortWithError(c, err)
			return
		}

		report := models.ComputeDashboard(settings, sales, production, referenceDate)
		models.CacheDashboard(referenceDate, report)
		c.JSON(http.StatusOK, report)
	}
}

func listWeeklyHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		kind, err := models.ParseWeeklyRecordKind(c.Param("kind"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "kind must be sales or production"})
			return
		}
		db := config.GetDB()
		switch kind {
		case models.WeeklyRecordKindSales:
			records, err := models.FetchWeeklySalesRecords(c.Request.Context(), db)
			if err != nil {
				abortWithError(c, err)
				return
			}
			c.JSON(http.StatusOK, records)
		case models.WeeklyRecordKindProduction:
			records, err := models.FetchWeeklyProductionRecords(c.Request.Context(), db)
			if err != nil {
				abortWithError(c, err)
				return
			}
			c.JSON(http.StatusOK, records)
		}
	}
}

func upsertWeeklySalesHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var input models.WeeklySalesInput
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
			return
		}
		record, err := models.UpsertWeeklySales(c.Request.Context(), input)
		if err != nil {
			abortWithError(c, err)
			return
		}
		c.JSON(http.StatusOK, record)
	}
}

func upsertWeeklyProductionHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var input models.WeeklyProductionInput
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
			return
		}
		record, err := models.UpsertWeeklyProduction(c.Request.Context(), input)
		if err != nil {
			abortWithError(c, err)
			return
		}
		c.JSON(http.StatusOK, record)
	}
}

func exportWeeklyHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		db := config.GetDB()
		sales, err := models.FetchWeeklySalesRecords(c.Request.Context(), db)
		if err != nil {
			abortWithError(c, err)
			return
		}
		production, err := models.FetchWeeklyProductionRecords(c.Request.Context(), db)
		if err != nil {
			abortWithError(c, err)
			return
		}

		f, err := reports.BuildWeeklyWorkbook(sales, production)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
		c.Header("Content-Disposition", "attachment; filename=weekly.xlsx")
		if err := f.Write(c.Writer); err != nil {
			config.LogError(config.GetLogger(), "server.go", "exportWeeklyHandler", "write workbook", nil, err)
		}
	}
}

func getWeekHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		kind, err := models.ParseWeeklyRecordKind(c.Param("kind"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "kind must be sales or production"})
			return
		}
		weekCommencing, err := time.Parse("2006-01-02", c.Param("date"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "date must be in YYYY-MM-DD format"})
			return
		}
		db := config.GetDB()
		switch kind {
		case models.WeeklyRecordKindSales:
			record, err := models.GetWeeklySalesForWeek(c.Request.Context(), db, weekCommencing)
			if err != nil {
				abortWithError(c, err)
				return
			}
			c.JSON(http.StatusOK, record)
		case models.WeeklyRecordKindProduction:
			record, err := models.GetWeeklyProductionForWeek(c.Request.Context(), db, weekCommencing)
			if err != nil {
				abortWithError(c, err)
				return
			}
			c.JSON(http.StatusOK, record)
		}
	}
}

// abortWithError records the error on the gin context (so customErrorLogger
// sees it) and renders the mapped status to the caller.
func abortWithError(c *gin.Context, err error) {
	_ = c.Error(err)
	c.JSON(errorStatus(err), gin.H{"error": err.Error()})
}

// errorStatus maps the engine's error taxonomy onto HTTP statuses.
func errorStatus(err error) int {
	switch {
	case utils.IsValidationError(err):
		return http.StatusBadRequest
	case errors.Is(err, utils.ErrorSettingsNotInitialized):
		return http.StatusConflict
	case errors.Is(err, utils.ErrorRecordNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

func main() {
	port := os.Getenv("API_PORT")
	if port == "" {
		// Cloud Run standard env var.
		port = os.Getenv("PORT")
	}
	if port == "" {
		port = defaultPort
	}

	logger := config.GetLogger()

	// Shutdown coordination. Cloud Run sends SIGTERM on revision shutdown.
	sigCtx, stopSignals := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stopSignals()

	// Start the HTTP server ASAP so the platform considers the revision
	// healthy. Until DB is ready, app endpoints return 503.
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(customErrorLogger(logger))

	r.Use(correlationMiddleware())
	r.Use(func(c *gin.Context) {
		// Always allow the startup probe.
		if c.Request.URL.Path == "/healthz" {
			c.Status(http.StatusNoContent)
			c.Abort()
			return
		}
		// Gate app endpoints on dependency readiness. Redis is optional.
		if config.GetDB() == nil {
			c.AbortWithStatus(http.StatusServiceUnavailable)
			return
		}
		c.Next()
	})

	r.GET("/healthz", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	corsConfig := cors.DefaultConfig()
	// In production, require an explicit allowlist via CORS_ALLOWED_ORIGINS
	// (comma-separated). In non-production, allow all.
	allowedOrigins := strings.TrimSpace(os.Getenv("CORS_ALLOWED_ORIGINS"))
	if strings.EqualFold(strings.TrimSpace(os.Getenv("GO_ENV")), "production") {
		if allowedOrigins == "" {
			corsConfig.AllowOrigins = []string{}
		} else {
			corsConfig.AllowOrigins = splitAndTrim(allowedOrigins)
		}
	} else {
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AddAllowMethods("GET", "POST", "PUT", "DELETE", "OPTIONS")
	corsConfig.AddAllowHeaders("token", "Origin", "Content-Type", "Authorization")
	corsConfig.AddExposeHeaders("Content-Length")
	corsConfig.AllowCredentials = true
	r.Use(cors.New(corsConfig))

	r.Use(middlewares.AuthMiddleware())

	r.POST("/auth/login", loginHandler())

	api := r.Group("/api", middlewares.RequireSession())
	api.GET("/settings", getSettingsHandler())
	api.PUT("/settings", updateSettingsHandler())
	api.GET("/dashboard", dashboardHandler())
	api.GET("/weeks/:kind", listWeeklyHandler())
	api.GET("/weeks/:kind/:date", getWeekHandler())
	api.PUT("/weeks/sales", upsertWeeklySalesHandler())
	api.PUT("/weeks/production", upsertWeeklyProductionHandler())
	api.GET("/reports/weekly.xlsx", exportWeeklyHandler())

	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	})

	// Start listening immediately (startup probe is TCP based).
	srv := &http.Server{
		Addr:    ":" + port,
		Handler: r,
	}
	serverErrCh := make(chan error, 1)
	go func() {
		// ListenAndServe returns http.ErrServerClosed on graceful shutdown.
		serverErrCh <- srv.ListenAndServe()
	}()

	// Connect dependencies after the port is open.
	config.ConnectDatabaseWithRetry()
	config.ConnectRedisWithRetry()

	db := config.GetDB()
	sqlDB, _ := db.DB()
	defer func() {
		if sqlDB != nil {
			_ = sqlDB.Close()
		}
	}()
	// AutoMigrate can run DDL that blocks tables; allow running migrations
	// as a separate job instead.
	if !strings.EqualFold(strings.TrimSpace(os.Getenv("SKIP_MIGRATIONS")), "true") {
		models.MigrateTable()
	} else {
		logger.WithFields(logrus.Fields{"field": "migrations"}).Warn("SKIP_MIGRATIONS=true; skipping AutoMigrate on startup")
	}

	logger.WithFields(logrus.Fields{
		"info": "Connection Established",
	}).Info("listening on port ", port)

	// Block until shutdown or server error.
	select {
	case <-sigCtx.Done():
		// graceful shutdown below
	case err := <-serverErrCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithFields(logrus.Fields{"field": "http"}).Error("server stopped unexpectedly: " + err.Error())
		}
	}

	// Drain HTTP requests.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.WithFields(logrus.Fields{"field": "http"}).Error("graceful shutdown failed: " + err.Error())
	}

	// Close Redis (best-effort).
	if rdb := config.GetRedisDB(); rdb != nil {
		_ = rdb.Close()
	}
}

// correlationMiddleware attaches a correlation id to the request context:
// the caller's x-correlation-id header when present, a fresh one otherwise.
func correlationMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		cid := c.GetHeader("x-correlation-id")
		if cid == "" {
			cid = uuid.NewString()
		}
		c.Request = c.Request.WithContext(utils.SetCorrelationIdInContext(c.Request.Context(), cid))
		c.Next()
	}
}

// customErrorLogger logs only requests that recorded errors, tagged with the
// request's correlation id so failures can be traced across services.
func customErrorLogger(logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) > 0 {
			fields := logrus.Fields{
				"path": c.Request.URL.Path,
			}
			if cid, ok := utils.GetCorrelationIdFromContext(c.Request.Context()); ok {
				fields["correlation_id"] = cid
			}
			logger.WithFields(fields).Error(c.Errors.String())
		}
	}
}

func splitAndTrim(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if v := strings.TrimSpace(p); v != "" {
			out = append(out, v)
		}
	}
	return out
}
