package waitlist

import (
	"errors"
	"net/http"

	"github.com/vedants521/CancelFillMD/internal/shared/utils/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type Controller struct {
	service Service
}

func NewController(service Service) *Controller {
	return &Controller{
		service: service,
	}
}

// JoinWaitlist handles POST /api/v1/waitlist
func (c *Controller) JoinWaitlist(ctx *gin.Context) {
	var request JoinWaitlistRequest
	if err := ctx.ShouldBindJSON(&request); err != nil {
		response.RespondJSON(ctx, "error", http.StatusBadRequest, "Invalid request body", nil, err.Error())
		return
	}

	resp, err := c.service.JoinWaitlist(ctx.Request.Context(), &request)
	if err != nil {
		response.RespondJSON(ctx, "error", http.StatusBadRequest, "Failed to join waitlist", nil, err.Error())
		return
	}

	response.RespondJSON(ctx, "success", http.StatusCreated, "Added to waitlist", resp, nil)
}

// LeaveWaitlist handles DELETE /api/v1/waitlist/:id
func (c *Controller) LeaveWaitlist(ctx *gin.Context) {
	entryID, err := uuid.Parse(ctx.Param("id"))
	if err != nil {
		response.RespondJSON(ctx, "error", http.StatusBadRequest, "Invalid waitlist entry ID", nil, nil)
		return
	}

	if err := c.service.LeaveWaitlist(ctx.Request.Context(), entryID); err != nil {
		if errors.Is(err, ErrEntryNotFound) {
			response.RespondJSON(ctx, "error", http.StatusNotFound, "Waitlist entry not found", nil, nil)
			return
		}
		response.RespondJSON(ctx, "error", http.StatusInternalServerError, "Failed to leave waitlist", nil, err.Error())
		return
	}

	response.RespondJSON(ctx, "success", http.StatusOK, "Removed from waitlist", nil, nil)
}

// GetEntry handles GET /api/v1/waitlist/:id
func (c *Controller) GetEntry(ctx *gin.Context) {
	entryID, err := uuid.Parse(ctx.Param("id"))
	if err != nil {
		response.RespondJSON(ctx, "error", http.StatusBadRequest, "Invalid waitlist entry ID", nil, nil)
		return
	}

	resp, err := c.service.GetEntry(ctx.Request.Context(), entryID)
	if err != nil {
		if errors.Is(err, ErrEntryNotFound) {
			response.RespondJSON(ctx, "error", http.StatusNotFound, "Waitlist entry not found", nil, nil)
			return
		}
		response.RespondJSON(ctx, "error", http.StatusInternalServerError, "Failed to get waitlist entry", nil, err.Error())
		return
	}

	response.RespondJSON(ctx, "success", http.StatusOK, "Waitlist entry retrieved", resp, nil)
}

// ListEntries handles GET /api/v1/waitlist
func (c *Controller) ListEntries(ctx *gin.Context) {
	var query EntryListQuery
	if err := ctx.ShouldBindQuery(&query); err != nil {
		response.RespondJSON(ctx, "error", http.StatusBadRequest, "Invalid query parameters", nil, err.Error())
		return
	}

	resp, err := c.service.ListEntries(ctx.Request.Context(), query)
	if err != nil {
		response.RespondJSON(ctx, "error", http.StatusInternalServerError, "Failed to list waitlist entries", nil, err.Error())
		return
	}

	response.RespondJSON(ctx, "success", http.StatusOK, "Waitlist entries retrieved", resp, nil)
}
