package http

import (
	"github.com/gin-gonic/gin"
)

// RegisterRoutes registers user and session routes.
func RegisterRoutes(g *gin.RouterGroup, h *UserHandler, authMiddleware gin.HandlerFunc) {
	userGroup := g.Group("/users")

	// === Public Routes ===
	userGroup.POST("/register", h.Register)
	userGroup.POST("/login", h.Login)
	userGroup.POST("/google-auth", h.GoogleAuth)
	userGroup.POST("/forgot-password", h.ForgotPassword)
	userGroup.POST("/reset-password", h.ResetPassword)
	userGroup.GET("/invitation/:code", h.InvitationInfo)

	// === Authenticated Routes ===
	authGroup := userGroup.Group("")
	authGroup.Use(authMiddleware)
	{
		authGroup.GET("/me", h.Me)
		authGroup.POST("/logout", h.Logout)
		authGroup.POST("/accept-invite", h.AcceptInvite)
	}
}
