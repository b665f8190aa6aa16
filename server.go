package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/ledgerline/invoicing_backend/config"
	"github.com/ledgerline/invoicing_backend/mailer"
	"github.com/ledgerline/invoicing_backend/middlewares"
	"github.com/ledgerline/invoicing_backend/models"
	"github.com/ledgerline/invoicing_backend/utils"
	"github.com/sirupsen/logrus"
)

const defaultPort = "8080"

// mailClient is nil when SMTP is not configured; send endpoints report 503.
var mailClient mailer.Sender

func splitAndTrim(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func customNotFoundHandler(c *gin.Context) {
	c.JSON(http.StatusNotFound, gin.H{"error": "route not found"})
}

// customErrorLogger logs only requests that accumulated errors.
func customErrorLogger(logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) > 0 {
			logger.Error(c.Errors.String())
		}
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

	// Cloud Run sends SIGTERM on revision shutdown; handle it for graceful drain.
	sigCtx, stopSignals := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stopSignals()

	// Start the HTTP server ASAP so the platform considers the revision
	// healthy. Until the DB is ready, app endpoints return 503.
	r := gin.New()
	// Correlation IDs: generate once per request and attach to context.
	r.Use(func(c *gin.Context) {
		cid := c.GetHeader("x-correlation-id")
		if cid == "" {
			cid = uuid.NewString()
		}
		c.Request = c.Request.WithContext(utils.SetCorrelationIdInContext(c.Request.Context(), cid))
		c.Next()
	})
	r.Use(func(c *gin.Context) {
		if c.Request.URL.Path == "/healthz" {
			c.Status(http.StatusNoContent)
			c.Abort()
			return
		}
		if config.GetDB() == nil {
			c.AbortWithStatus(http.StatusServiceUnavailable)
			return
		}
		c.Next()
	})

	r.GET("/healthz", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	corsConfig := cors.DefaultConfig()
	// In production, require an explicit allowlist via CORS_ALLOWED_ORIGINS
	// (comma-separated); in non-production, allow all.
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
	corsConfig.AddAllowHeaders("token", "business-id", "Origin", "Content-Type", "Authorization")
	corsConfig.AddExposeHeaders("Content-Length")
	corsConfig.AllowCredentials = true

	r.Use(cors.New(corsConfig))
	r.Use(middlewares.SessionMiddleware())
	r.Use(customErrorLogger(logger))
	r.Use(gin.Recovery())

	v1 := r.Group("/api/v1")

	v1.POST("/customers", createCustomerHandler())
	v1.GET("/customers", listCustomersHandler())
	v1.GET("/customers/:id", getCustomerHandler())
	v1.PUT("/customers/:id", updateCustomerHandler())
	v1.DELETE("/customers/:id", deleteCustomerHandler())

	v1.POST("/vendors", createVendorHandler())
	v1.GET("/vendors", listVendorsHandler())
	v1.PUT("/vendors/:id", updateVendorHandler())
	v1.DELETE("/vendors/:id", deleteVendorHandler())

	v1.POST("/codes", createCodeHandler())
	v1.GET("/codes", listCodesHandler())
	v1.PUT("/codes/:id", updateCodeHandler())
	v1.DELETE("/codes/:id", deleteCodeHandler())

	v1.POST("/invoices", createInvoiceHandler())
	v1.GET("/invoices", listInvoicesHandler())
	v1.GET("/invoices/:id", getInvoiceHandler())
	v1.PUT("/invoices/:id", updateInvoiceHandler())
	v1.DELETE("/invoices/:id", deleteInvoiceHandler())
	v1.GET("/invoices/:id/pdf", invoicePdfHandler())
	v1.POST("/invoices/:id/send", sendInvoiceHandler())
	v1.POST("/invoices/:id/payments", createPaymentHandler())
	v1.GET("/invoices/:id/payments", listPaymentsHandler())
	v1.DELETE("/payments/:id", deletePaymentHandler())

	v1.POST("/bills", createBillHandler())
	v1.GET("/bills", listBillsHandler())
	v1.GET("/bills/:id", getBillHandler())
	v1.PUT("/bills/:id", updateBillHandler())
	v1.DELETE("/bills/:id", deleteBillHandler())
	v1.POST("/bills/:id/payments", createBillPaymentHandler())
	v1.GET("/bills/:id/payments", listBillPaymentsHandler())
	v1.DELETE("/bill-payments/:id", deleteBillPaymentHandler())

	v1.POST("/expenses", createExpenseHandler())
	v1.GET("/expenses", listExpensesHandler())
	v1.GET("/expenses/:id", getExpenseHandler())
	v1.PUT("/expenses/:id", updateExpenseHandler())
	v1.DELETE("/expenses/:id", deleteExpenseHandler())

	v1.POST("/reminders", sendRemindersHandler())
	v1.GET("/reminder-logs", listReminderLogsHandler())

	v1.POST("/uploads", uploadHandler())

	v1.GET("/reports/profit-by-code", profitByCodeHandler())

	r.NoRoute(customNotFoundHandler)

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

	if client, err := mailer.NewClientFromEnv(); err != nil {
		logger.WithFields(logrus.Fields{"field": "mailer"}).Warn("SMTP not configured; email endpoints disabled: " + err.Error())
	} else {
		mailClient = client
	}

	logger.WithFields(logrus.Fields{"info": "Connection Established"}).Info("listening on port ", port)
	log.Println("Server started successfully")

	// Block until shutdown or server error.
	select {
	case <-sigCtx.Done():
		// graceful shutdown below
	case err := <-serverErrCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithFields(logrus.Fields{"field": "http"}).Error("server stopped unexpectedly: " + err.Error())
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.WithFields(logrus.Fields{"field": "http"}).Error("graceful shutdown failed: " + err.Error())
	}

	if rdb := config.GetRedisDB(); rdb != nil {
		_ = rdb.Close()
	}
}
