package api

import (
	"github.com/gin-gonic/gin"
)

func SetupRoutes(router *gin.Engine, handler *Handler) {
	api := router.Group("/api")
	{
		api.GET("/health", handler.Health)
		api.POST("/mapping/detect", handler.DetectMapping)

		api.POST("/datasets", handler.UploadDataset)
		api.GET("/datasets", handler.ListDatasets)
		api.GET("/datasets/:id", handler.GetDataset)
		api.DELETE("/datasets/:id", handler.DeleteDataset)

		api.GET("/datasets/:id/properties", handler.GetProperties)
		api.GET("/datasets/:id/kpis", handler.GetKPIs)
		api.GET("/datasets/:id/summary", handler.GetSummary)
		api.GET("/datasets/:id/areas", handler.GetAreaStats)
		api.GET("/datasets/:id/areas/boundaries", handler.GetAreaBoundaries)
		api.GET("/datasets/:id/trends", handler.GetTrends)
		api.POST("/datasets/:id/comparables", handler.FindComparables)
		api.GET("/datasets/:id/export", handler.Export)
		api.POST("/datasets/:id/ask", handler.Ask)
	}
}
