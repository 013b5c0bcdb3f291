package http

import (
	"github.com/gin-gonic/gin"
)

// RegisterRoutes registers organization routes. All of them require an
// authenticated session; fine-grained role checks live in the service layer.
func RegisterRoutes(g *gin.RouterGroup, h *OrganizationHandler, authMiddleware gin.HandlerFunc) {
	orgGroup := g.Group("/organizations")
	orgGroup.Use(authMiddleware)
	{
		orgGroup.POST("", h.Create)
		orgGroup.GET("/:id", h.Get)
		orgGroup.PUT("/:id", h.Update)
		orgGroup.DELETE("/:id", h.Delete)

		orgGroup.POST("/:id/logo", h.UploadLogo)
		orgGroup.GET("/:id/logo", h.GetLogo)

		orgGroup.POST("/invite", h.Invite)
		orgGroup.GET("/:id/invitations", h.ListInvitations)
		orgGroup.DELETE("/:id/invitations/:invite_id", h.CancelInvite)

		orgGroup.POST("/moderators/add", h.AddModerator)
		orgGroup.DELETE("/moderators/delete", h.RemoveModerator)
		orgGroup.POST("/editors/add", h.AddEditor)
		orgGroup.DELETE("/editors/delete", h.RemoveEditor)
		orgGroup.DELETE("/member/remove", h.RemoveMember)

		orgGroup.PUT("/categories/update", h.UpdateCategories)
		orgGroup.PUT("/members/update", h.UpdateMemberCategory)
	}
}
