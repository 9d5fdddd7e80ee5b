package app

import (
	"github.com/gin-gonic/gin"

	"github.com/meridianerp/quotes-backend/internal/handlers"
	"github.com/meridianerp/quotes-backend/internal/middleware"
	"github.com/meridianerp/quotes-backend/internal/platform/logger"
	"github.com/meridianerp/quotes-backend/internal/server"
)

type Handlers struct {
	Quote *handlers.QuoteHandler
}

type Middleware struct {
	Auth *middleware.AuthMiddleware
}

func wireHandlers(log *logger.Logger, svcs Services) Handlers {
	log.Info("wiring handlers")
	return Handlers{
		Quote: handlers.NewQuoteHandler(log, svcs.Quote, svcs.PDF),
	}
}

func wireMiddleware(log *logger.Logger, cfg Config) Middleware {
	log.Info("wiring middleware")
	m := Middleware{}
	if cfg.JWTSecretKey != "" {
		m.Auth = middleware.NewAuthMiddleware(log, cfg.JWTSecretKey)
	}
	return m
}

func wireRouter(log *logger.Logger, cfg Config, h Handlers, m Middleware) *gin.Engine {
	return server.NewRouter(server.RouterConfig{
		Log:          log,
		ServiceName:  "quotes-backend",
		CORSOrigins:  cfg.CORSOrigins,
		QuoteHandler: h.Quote,
		Auth:         m.Auth,
	})
}
