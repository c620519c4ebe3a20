package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/knowd-io/knowd/internal/metrics"
	"github.com/knowd-io/knowd/internal/pkg/response"
)

type RouterDeps struct {
	Query        *QueryHandler
	Namespaces   *NamespaceHandler
	Documents    *DocumentHandler
	Analytics    *AnalyticsHandler
	Integrations *IntegrationHandler
	Metrics      *metrics.Metrics
}

func RegisterRoutes(engine *gin.Engine, deps RouterDeps) {
	engine.GET("/health", func(c *gin.Context) {
		response.Success(c, gin.H{"status": "ok"})
	})
	if deps.Metrics != nil {
		engine.GET("/metrics", gin.WrapH(deps.Metrics.Handler()))
	}

	api := engine.Group("/api")
	api.POST("/query", deps.Query.Submit)

	api.GET("/namespaces", deps.Namespaces.List)
	api.POST("/namespaces", deps.Namespaces.Create)
	api.GET("/namespaces/:id", deps.Namespaces.Get)
	api.PUT("/namespaces/:id", deps.Namespaces.Update)
	api.DELETE("/namespaces/:id", deps.Namespaces.Delete)

	api.POST("/documents", deps.Documents.Upload)
	api.GET("/documents", deps.Documents.List)
	api.GET("/documents/:id", deps.Documents.Get)
	api.POST("/documents/:id/reparse", deps.Documents.Reparse)
	api.DELETE("/documents/:id", deps.Documents.Delete)

	api.GET("/analytics/queries", deps.Analytics.Queries)
	api.GET("/analytics/stats", deps.Analytics.Stats)
	api.GET("/analytics/kb-usage", deps.Analytics.KBUsage)
	api.GET("/analytics/export", deps.Analytics.Export)

	api.GET("/integrations", deps.Integrations.List)
	api.PUT("/integrations/telegram", deps.Integrations.ConfigureTelegram)
	api.PUT("/integrations/teams", deps.Integrations.ConfigureTeams)
	api.POST("/integrations/telegram/test", deps.Integrations.TestTelegram)
	api.POST("/integrations/teams/test", deps.Integrations.TestTeams)
	api.POST("/integrations/teams/messages", deps.Integrations.TeamsMessages)
}
