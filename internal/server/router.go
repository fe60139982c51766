package server

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tripsmart/server/internal/agent/model"
	"github.com/tripsmart/server/internal/agent/pipeline"
	"github.com/tripsmart/server/internal/core"
)

type Config struct {
	Environment    core.Environment
	CORSOrigins    []string
	TracingEnabled bool
	ServiceName    string
}

// NewRouter wires middleware and the plan routes onto a fresh gin engine.
func NewRouter(cfg Config, runner pipeline.Runner, repo model.PlanRepository) *gin.Engine {
	if cfg.Environment.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()
	engine.Use(Recovery())
	engine.Use(RequestID())
	engine.Use(CORS(cfg.CORSOrigins))
	if cfg.TracingEnabled {
		engine.Use(Trace(cfg.ServiceName))
	}
	engine.Use(AccessLog())
	engine.Use(Metrics())

	engine.GET("/healthz", Health)
	engine.GET("/metrics", gin.WrapH(promhttp.Handler()))

	plans := NewPlanHandler(runner, repo)
	v1 := engine.Group("/api/v1")
	{
		v1.POST("/plans", plans.Create)
		v1.GET("/plans/:id", plans.Get)
		v1.DELETE("/plans/:id", plans.Delete)
	}
	return engine
}
