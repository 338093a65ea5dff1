package router

import (
	"net/http"
	"time"

	sentrygin "github.com/getsentry/sentry-go/gin"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/onegreenvn/bizdoc-services-backend/internal/config"
	"github.com/onegreenvn/bizdoc-services-backend/internal/handlers"
	"github.com/onegreenvn/bizdoc-services-backend/internal/middleware"
)

// Handlers groups every HTTP handler the router mounts
type Handlers struct {
	Auth     *handlers.AuthHandler
	APIKey   *handlers.APIKeyHandler
	Project  *handlers.ProjectHandler
	Export   *handlers.ExportHandler
	Billing  *handlers.BillingHandler
	Admin    *handlers.AdminHandler
	Activity *handlers.ActivityHandler
}

// Middlewares groups the authentication and rate limiting middlewares
type Middlewares struct {
	Bearer          *middleware.BearerTokenMiddleware
	APIKey          *middleware.APIKeyMiddleware
	GenerationLimit *middleware.RateLimiter
	// ServiceName labels server spans
	ServiceName string
}

// SetupRouter configures the Gin engine with every route
func SetupRouter(cfg config.ServerConfig, h Handlers, m Middlewares) *gin.Engine {
	gin.SetMode(cfg.Mode)

	r := gin.New()

	r.Use(sentrygin.New(sentrygin.Options{Repanic: true}))
	r.Use(gin.Recovery())
	if m.ServiceName != "" {
		r.Use(otelgin.Middleware(m.ServiceName))
	}
	r.Use(middleware.Logger())
	r.Use(middleware.Metrics())

	origins := cfg.Origins()
	r.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders:    []string{"Content-Length", "Content-Disposition"},
		AllowCredentials: !(len(origins) == 1 && origins[0] == "*"),
		MaxAge:           12 * time.Hour,
	}))

	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	logrus.Info("Swagger UI endpoint registered at /swagger/index.html")

	api := r.Group("/api/v1")
	{
		api.GET("/health", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{
				"status": "ok",
				"time":   time.Now().Format(time.RFC3339),
			})
		})

		api.GET("/plans", h.Billing.Plans)
		api.GET("/document-types", h.Project.DocumentTypes)

		// Auth routes (public)
		auth := api.Group("/auth")
		{
			auth.POST("/signup", h.Auth.Signup)
			auth.POST("/login", h.Auth.Login)
			auth.POST("/refresh", h.Auth.RefreshToken)
		}

		// Gateway callbacks verify the transaction themselves
		payments := api.Group("/payments")
		{
			payments.GET("/callback", h.Billing.Callback)
			payments.POST("/webhook", h.Billing.Webhook)
		}

		protected := api.Group("")
		protected.Use(m.APIKey.APIKeyAuthMiddleware())
		protected.Use(m.Bearer.BearerTokenAuthMiddleware())
		{
			authProtected := protected.Group("/auth")
			{
				authProtected.POST("/logout", h.Auth.Logout)
				authProtected.GET("/profile", h.Auth.GetProfile)
				authProtected.PUT("/profile", h.Auth.UpdateProfile)
				authProtected.POST("/change-password", h.Auth.ChangePassword)
			}

			apiKeys := protected.Group("/api-keys")
			{
				apiKeys.POST("", h.APIKey.Generate)
				apiKeys.GET("", h.APIKey.List)
				apiKeys.DELETE("/:id", h.APIKey.Delete)
			}

			protected.POST("/generate", m.GenerationLimit.Middleware(), h.Project.Generate)
			protected.POST("/export", h.Export.Export)

			projects := protected.Group("/projects")
			{
				projects.GET("", h.Project.List)
				projects.GET("/:id", h.Project.Get)
				projects.PUT("/:id", h.Project.Update)
				projects.DELETE("/:id", h.Project.Delete)
				projects.GET("/:id/preview", h.Project.Preview)
				projects.GET("/:id/export", h.Project.Export)
				projects.POST("/:id/archive", h.Project.Archive)
			}

			protected.GET("/subscription", h.Billing.Subscription)
			protected.POST("/payments/initiate", h.Billing.Initiate)
			protected.GET("/payments/:tx_ref", h.Billing.GetPayment)
			protected.GET("/activity/stream", h.Activity.Stream)

			admin := protected.Group("/admin")
			admin.Use(middleware.RequireAdmin())
			{
				admin.GET("/dashboard", h.Admin.Dashboard)
				admin.GET("/users", h.Admin.ListUsers)
				admin.PUT("/users/:id/status", h.Admin.SetUserStatus)
				admin.DELETE("/users/:id", h.Admin.DeleteUser)
				admin.POST("/users/:id/reset-password", h.Admin.ResetPassword)
				admin.GET("/projects", h.Admin.ListProjects)
				admin.GET("/payments", h.Admin.ListPayments)
				admin.GET("/reports/payments", h.Admin.PaymentReport)
				admin.GET("/activity", h.Admin.ListActivity)
				admin.GET("/activity/stream", h.Admin.StreamActivity)
			}
		}
	}

	return r
}
