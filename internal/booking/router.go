package booking

import (
	"github.com/gin-gonic/gin"
)

// SetupBookingRoutes configures all booking-related routes. The claim
// endpoint is public; callers arrive from notification links.
func SetupBookingRoutes(rg *gin.RouterGroup, controller *Controller, rateLimit gin.HandlerFunc) {
	group := rg.Group("/bookings")
	{
		if rateLimit != nil {
			group.POST("/claim", rateLimit, controller.Claim) // POST /api/v1/bookings/claim
		} else {
			group.POST("/claim", controller.Claim)
		}
	}
}
