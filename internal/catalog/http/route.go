package http

import (
	"github.com/gin-gonic/gin"
)

// RegisterRoutes registers service catalog routes. All require an
// authenticated session; role checks live in the service layer.
func RegisterRoutes(g *gin.RouterGroup, h *ServiceHandler, authMiddleware gin.HandlerFunc) {
	svcGroup := g.Group("/services")
	svcGroup.Use(authMiddleware)
	{
		svcGroup.POST("", h.Create)
		svcGroup.GET("/organization/:id", h.List)
		svcGroup.GET("/keys/:id", h.Keys)
		svcGroup.GET("/:service_id/organization/:id", h.Get)
		svcGroup.PUT("/:service_id/organization/:id", h.Update)
		svcGroup.DELETE("/:service_id/organization/:id", h.Delete)
	}
}
