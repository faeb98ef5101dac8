package router

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/onboardhq/merchant-verify/internal/api/handler"
)

// SetupRouter configures and returns the Gin router with all routes
func SetupRouter(deps *handler.Dependencies, registry *prometheus.Registry) *gin.Engine {
	r := gin.New()

	// Middleware
	r.Use(gin.Recovery())
	r.Use(LoggerMiddleware(deps.Logger))
	r.Use(CORSMiddleware())

	// Health check endpoint
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "healthy",
			"service": "merchant-verify-api",
		})
	})

	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(registry, promhttp.HandlerOpts{})))

	verificationHandler := handler.NewVerificationHandler(deps)

	// Submission and webhook entry points enqueue and return promptly;
	// the verification outcome is delivered via the notification channel.
	r.POST("/merchant/submit", verificationHandler.SubmitMerchant)
	r.POST("/webhook/external-verification", verificationHandler.ExternalVerificationWebhook)

	// API v1 routes
	v1 := r.Group("/api/v1")
	{
		jobs := v1.Group("/verification/jobs")
		{
			// GET /api/v1/verification/jobs - List jobs with filtering and pagination
			jobs.GET("", verificationHandler.ListJobs)

			// GET /api/v1/verification/jobs/:job_id - Get job details
			jobs.GET("/:job_id", verificationHandler.GetJob)
		}
	}

	return r
}
