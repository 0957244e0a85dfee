package slots

import (
	"time"

	"github.com/google/uuid"
)

// SlotResponse represents a slot in API responses
type SlotResponse struct {
	ID              uuid.UUID  `json:"id"`
	Date            string     `json:"date"`
	StartTime       string     `json:"start_time"`
	DurationMinutes int        `json:"duration_minutes"`
	Specialty       string     `json:"specialty"`
	Provider        string     `json:"provider"`
	Status          SlotStatus `json:"status"`
	Wave            int        `json:"wave"`
	PatientName     string     `json:"patient_name,omitempty"`
	BookedVia       string     `json:"booked_via,omitempty"`
	CancelledAt     *time.Time `json:"cancelled_at,omitempty"`
	BookedAt        *time.Time `json:"booked_at,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
}

// ImportSlotsResponse summarizes a schedule import
type ImportSlotsResponse struct {
	Imported int            `json:"imported"`
	Slots    []SlotResponse `json:"slots"`
}

// SlotListResponse represents a paginated slot listing
type SlotListResponse struct {
	Slots      []SlotResponse `json:"slots"`
	TotalCount int64          `json:"total_count"`
	Page       int            `json:"page"`
	Limit      int            `json:"limit"`
}

// ToResponse converts a Slot to its API representation
func (s *Slot) ToResponse() SlotResponse {
	return SlotResponse{
		ID:              s.ID,
		Date:            s.Date,
		StartTime:       s.StartTime,
		DurationMinutes: s.DurationMinutes,
		Specialty:       s.Specialty,
		Provider:        s.Provider,
		Status:          s.Status,
		Wave:            s.Wave,
		PatientName:     s.PatientName,
		BookedVia:       s.BookedVia,
		CancelledAt:     s.CancelledAt,
		BookedAt:        s.BookedAt,
		CreatedAt:       s.CreatedAt,
	}
}
