package handlers

import (
	"context"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/justsurfingit/hr-requisitions/internal/auth"
	"github.com/justsurfingit/hr-requisitions/internal/metrics"
	"github.com/justsurfingit/hr-requisitions/internal/services"
)

type RouterConfig struct {
	Logger         *zap.Logger
	Tokens         *auth.Tokens
	Profiles       auth.ProfileLoader
	Requisitions   *services.RequisitionService
	Templates      *services.TemplateService
	Scope          *services.ScopeService
	Limiter        Limiter
	AllowedOrigins []string
	RequestTimeout time.Duration
	Ping           func(ctx context.Context) error
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), RequestID(), RequestLogger(cfg.Logger), metrics.Middleware(), cors.New(corsConfig(cfg.AllowedOrigins)))

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	requisitions := NewRequisitionHandler(cfg.Requisitions)
	templates := NewTemplateHandler(cfg.Templates)
	directory := NewDirectoryHandler(cfg.Scope)

	api := r.Group("/api/v1")
	api.Use(ErrorRenderer(cfg.Logger), Timeout(cfg.RequestTimeout))
	{
		api.GET("/health", HealthCheck(cfg.Ping))

		secured := api.Group("", auth.Middleware(cfg.Tokens, cfg.Profiles, cfg.Logger))
		secured.GET("/me", directory.Me)
		secured.GET("/companies", directory.Companies)

		secured.GET("/requisitions", requisitions.List)
		secured.GET("/requisitions/:id", requisitions.Get)
		secured.GET("/requisitions/:id/events", requisitions.Events)
		secured.GET("/templates/:companyId/active", templates.Active)
		secured.GET("/templates/:companyId/history", templates.History)

		writes := secured.Group("", RateLimit(cfg.Limiter))
		writes.POST("/requisitions", requisitions.Create)
		writes.PATCH("/requisitions/:id", requisitions.Update)
		writes.POST("/requisitions/:id/submit", requisitions.Submit)
		writes.POST("/requisitions/:id/transition", requisitions.Transition)
		writes.POST("/requisitions/:id/reopen", requisitions.Reopen)
		writes.POST("/templates/:companyId", templates.Publish)
	}
	return r
}

func corsConfig(origins []string) cors.Config {
	config := cors.DefaultConfig()
	config.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type", "Authorization", requestIDHeader}
	config.AllowMethods = []string{"GET", "POST", "PATCH", "OPTIONS"}
	config.ExposeHeaders = []string{requestIDHeader}
	if len(origins) == 0 {
		config.AllowAllOrigins = true
		return config
	}
	for _, o := range origins {
		if o == "*" {
			config.AllowAllOrigins = true
			return config
		}
	}
	config.AllowOrigins = origins
	return config
}
