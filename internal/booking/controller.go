package booking

import (
	"errors"
	"net/http"

	"github.com/vedants521/CancelFillMD/internal/shared/utils/response"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
)

type Controller struct {
	resolver Resolver
	validate *validator.Validate
}

func NewController(resolver Resolver) *Controller {
	return &Controller{
		resolver: resolver,
		validate: validator.New(),
	}
}

// Claim handles POST /api/v1/bookings/claim
func (c *Controller) Claim(ctx *gin.Context) {
	var req ClaimRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		response.RespondJSON(ctx, "error", http.StatusBadRequest, "Invalid request body", nil, err.Error())
		return
	}
	if err := c.validate.Struct(req); err != nil {
		response.RespondJSON(ctx, "error", http.StatusBadRequest, "Invalid claim token", nil, err.Error())
		return
	}

	result, err := c.resolver.Claim(ctx.Request.Context(), req.Token)
	if err != nil {
		status, message := claimErrorStatus(err)
		response.RespondJSON(ctx, "error", status, message, nil, nil)
		return
	}

	response.RespondJSON(ctx, "success", http.StatusOK, result.Message, result, nil)
}

// claimErrorStatus maps each rejection reason to an HTTP status. The
// message echoes the sentinel so callers can distinguish reasons.
func claimErrorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, ErrTokenNotFound):
		return http.StatusNotFound, ErrTokenNotFound.Error()
	case errors.Is(err, ErrTokenExpired):
		return http.StatusGone, ErrTokenExpired.Error()
	case errors.Is(err, ErrTokenAlreadyUsed):
		return http.StatusConflict, ErrTokenAlreadyUsed.Error()
	case errors.Is(err, ErrTokenSuperseded):
		return http.StatusConflict, ErrTokenSuperseded.Error()
	case errors.Is(err, ErrSlotUnavailable):
		return http.StatusConflict, ErrSlotUnavailable.Error()
	case errors.Is(err, ErrStoreUnavailable):
		return http.StatusServiceUnavailable, ErrStoreUnavailable.Error()
	default:
		return http.StatusInternalServerError, "failed to process claim"
	}
}
