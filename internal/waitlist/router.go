package waitlist

import (
	"github.com/gin-gonic/gin"
)

// SetupWaitlistRoutes configures all waitlist-related routes
func SetupWaitlistRoutes(rg *gin.RouterGroup, controller *Controller) {
	group := rg.Group("/waitlist")
	{
		group.POST("", controller.JoinWaitlist)        // POST /api/v1/waitlist
		group.GET("", controller.ListEntries)          // GET /api/v1/waitlist
		group.GET("/:id", controller.GetEntry)         // GET /api/v1/waitlist/:id
		group.DELETE("/:id", controller.LeaveWaitlist) // DELETE /api/v1/waitlist/:id
	}
}
