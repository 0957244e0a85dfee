package waitlist

import (
	"time"

	"github.com/google/uuid"
)

// EntryResponse represents a waitlist entry in API responses
type EntryResponse struct {
	ID              uuid.UUID `json:"id"`
	Name            string    `json:"name"`
	Phone           string    `json:"phone"`
	Email           string    `json:"email"`
	Specialty       string    `json:"specialty"`
	PreferredDates  []string  `json:"preferred_dates"`
	TimePreferences []string  `json:"time_preferences"`
	Active          bool      `json:"active"`
	NotifiedCount   int       `json:"notified_count"`
	CreatedAt       time.Time `json:"created_at"`
}

// EntryListResponse represents a paginated waitlist listing
type EntryListResponse struct {
	Entries    []EntryResponse `json:"entries"`
	TotalCount int64           `json:"total_count"`
	Page       int             `json:"page"`
	Limit      int             `json:"limit"`
}

// ToResponse converts a WaitlistEntry to its API representation
func (we *WaitlistEntry) ToResponse() EntryResponse {
	return EntryResponse{
		ID:              we.ID,
		Name:            we.Name,
		Phone:           we.Phone,
		Email:           we.Email,
		Specialty:       we.Specialty,
		PreferredDates:  we.PreferredDates,
		TimePreferences: we.TimePreferences,
		Active:          we.Active,
		NotifiedCount:   we.NotifiedCount,
		CreatedAt:       we.CreatedAt,
	}
}
