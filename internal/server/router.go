package server

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/meridianerp/quotes-backend/internal/handlers"
	"github.com/meridianerp/quotes-backend/internal/middleware"
	"github.com/meridianerp/quotes-backend/internal/platform/logger"
)

type RouterConfig struct {
	Log          *logger.Logger
	ServiceName  string
	CORSOrigins  []string
	QuoteHandler *handlers.QuoteHandler
	// Auth is optional: when nil the API group is open, which is only
	// meant for local development.
	Auth *middleware.AuthMiddleware
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	router := gin.Default()
	router.Use(otelgin.Middleware(cfg.ServiceName))

	origins := cfg.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"http://localhost:5173"}
	}
	router.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		AllowCredentials: true,
	}))

	router.GET("/healthcheck", handlers.HealthCheck)

	api := router.Group("/api")
	if cfg.Auth != nil {
		api.Use(cfg.Auth.RequireAuth())
	} else if cfg.Log != nil {
		cfg.Log.Warn("auth middleware disabled, api group is open")
	}

	h := cfg.QuoteHandler
	quotes := api.Group("/quotes")
	{
		quotes.POST("", h.Create)
		quotes.GET("/:company/:branch/:number", h.Get)
		quotes.PUT("/:company/:branch/:number", h.Update)
		quotes.DELETE("/:company/:branch/:number", h.Delete)
		quotes.POST("/:company/:branch/:number/close", h.Close)
		quotes.POST("/:company/:branch/:number/reopen", h.Reopen)
		quotes.POST("/:company/:branch/:number/cancel", h.Cancel)
		quotes.POST("/:company/:branch/:number/items", h.AddItem)
		quotes.PUT("/:company/:branch/:number/items/:sequence", h.UpdateItem)
		quotes.DELETE("/:company/:branch/:number/items/:sequence", h.RemoveItem)
		quotes.GET("/:company/:branch/:number/pdf", h.ExportPDF)
	}

	return router
}
