package slots

// SlotImportItem is a single slot in a schedule import
type SlotImportItem struct {
	Date            string `json:"date" validate:"required,datetime=2006-01-02"`
	StartTime       string `json:"start_time" validate:"required,datetime=15:04"`
	DurationMinutes int    `json:"duration_minutes" validate:"omitempty,min=5,max=480"`
	Specialty       string `json:"specialty" validate:"required"`
	Provider        string `json:"provider" validate:"required"`
}

// ImportSlotsRequest represents a batch schedule import
type ImportSlotsRequest struct {
	Slots []SlotImportItem `json:"slots" validate:"required,min=1,max=500,dive"`
}

// CancelSlotRequest carries the optional cancellation reason
type CancelSlotRequest struct {
	Reason string `json:"reason" validate:"omitempty,max=500"`
}

// SlotListQuery represents query parameters for listing slots
type SlotListQuery struct {
	Status    string `form:"status"`
	Specialty string `form:"specialty"`
	Date      string `form:"date"`
	Provider  string `form:"provider"`
	Page      int    `form:"page"`
	Limit     int    `form:"limit"`
}
