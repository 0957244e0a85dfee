package booking

import (
	"github.com/vedants521/CancelFillMD/internal/slots"
)

// ClaimResult is returned to the winning claimant
type ClaimResult struct {
	Slot    slots.SlotResponse `json:"slot"`
	Message string             `json:"message"`
}
