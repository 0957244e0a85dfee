package slots

import (
	"context"
	"errors"
	"net/http"

	"github.com/vedants521/CancelFillMD/internal/shared/utils/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// CancellationHandler starts the fill cycle for a cancelled slot. It is
// implemented by the fill orchestrator; declared here so the controller
// does not depend on that package.
type CancellationHandler interface {
	OnSlotCancelled(ctx context.Context, slotID uuid.UUID) error
}

type Controller struct {
	service      Service
	cancellation CancellationHandler
}

func NewController(service Service, cancellation CancellationHandler) *Controller {
	return &Controller{service: service, cancellation: cancellation}
}

// ImportSlots handles POST /api/v1/slots
func (c *Controller) ImportSlots(ctx *gin.Context) {
	var req ImportSlotsRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		response.RespondJSON(ctx, "error", http.StatusBadRequest, "Invalid request body", nil, err.Error())
		return
	}

	resp, err := c.service.ImportSlots(ctx.Request.Context(), req)
	if err != nil {
		response.RespondJSON(ctx, "error", http.StatusBadRequest, "Failed to import slots", nil, err.Error())
		return
	}

	response.RespondJSON(ctx, "success", http.StatusCreated, "Slots imported successfully", resp, nil)
}

// GetSlot handles GET /api/v1/slots/:id
func (c *Controller) GetSlot(ctx *gin.Context) {
	slotID, err := uuid.Parse(ctx.Param("id"))
	if err != nil {
		response.RespondJSON(ctx, "error", http.StatusBadRequest, "Invalid slot ID", nil, nil)
		return
	}

	resp, err := c.service.GetSlot(ctx.Request.Context(), slotID)
	if err != nil {
		if errors.Is(err, ErrSlotNotFound) {
			response.RespondJSON(ctx, "error", http.StatusNotFound, "Slot not found", nil, nil)
			return
		}
		response.RespondJSON(ctx, "error", http.StatusInternalServerError, "Failed to get slot", nil, err.Error())
		return
	}

	response.RespondJSON(ctx, "success", http.StatusOK, "Slot retrieved successfully", resp, nil)
}

// ListSlots handles GET /api/v1/slots
func (c *Controller) ListSlots(ctx *gin.Context) {
	var query SlotListQuery
	if err := ctx.ShouldBindQuery(&query); err != nil {
		response.RespondJSON(ctx, "error", http.StatusBadRequest, "Invalid query parameters", nil, err.Error())
		return
	}

	resp, err := c.service.ListSlots(ctx.Request.Context(), query)
	if err != nil {
		response.RespondJSON(ctx, "error", http.StatusInternalServerError, "Failed to list slots", nil, err.Error())
		return
	}

	response.RespondJSON(ctx, "success", http.StatusOK, "Slots retrieved successfully", resp, nil)
}

// CancelSlot handles POST /api/v1/slots/:id/cancel
func (c *Controller) CancelSlot(ctx *gin.Context) {
	slotID, err := uuid.Parse(ctx.Param("id"))
	if err != nil {
		response.RespondJSON(ctx, "error", http.StatusBadRequest, "Invalid slot ID", nil, nil)
		return
	}

	var req CancelSlotRequest
	if ctx.Request.ContentLength > 0 {
		if err := ctx.ShouldBindJSON(&req); err != nil {
			response.RespondJSON(ctx, "error", http.StatusBadRequest, "Invalid request body", nil, err.Error())
			return
		}
	}

	if err := c.cancellation.OnSlotCancelled(ctx.Request.Context(), slotID); err != nil {
		if errors.Is(err, ErrSlotNotFound) {
			response.RespondJSON(ctx, "error", http.StatusNotFound, "Slot not found", nil, nil)
			return
		}
		response.RespondJSON(ctx, "error", http.StatusConflict, "Failed to cancel slot", nil, err.Error())
		return
	}

	response.RespondJSON(ctx, "success", http.StatusOK, "Slot cancelled, waitlist notification started", nil, nil)
}
