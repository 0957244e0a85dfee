package slots

import (
	"github.com/gin-gonic/gin"
)

// SetupSlotRoutes configures all slot-related routes
func SetupSlotRoutes(rg *gin.RouterGroup, controller *Controller) {
	group := rg.Group("/slots")
	{
		group.POST("", controller.ImportSlots)           // POST /api/v1/slots
		group.GET("", controller.ListSlots)              // GET /api/v1/slots
		group.GET("/:id", controller.GetSlot)            // GET /api/v1/slots/:id
		group.POST("/:id/cancel", controller.CancelSlot) // POST /api/v1/slots/:id/cancel
	}
}
