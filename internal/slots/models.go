package slots

import (
	"time"

	"github.com/google/uuid"
)

// SlotStatus represents the lifecycle state of an appointment slot
type SlotStatus string

const (
	SlotStatusScheduled SlotStatus = "SCHEDULED"
	SlotStatusCancelled SlotStatus = "CANCELLED"
	SlotStatusOffering  SlotStatus = "OFFERING"
	SlotStatusFilled    SlotStatus = "FILLED"
	SlotStatusUnfilled  SlotStatus = "UNFILLED"
)

// TimeBand buckets a slot's start time for matching against waitlist
// time preferences.
type TimeBand string

const (
	TimeBandMorning   TimeBand = "morning"
	TimeBandAfternoon TimeBand = "afternoon"
	TimeBandEvening   TimeBand = "evening"
	TimeBandAny       TimeBand = "any"
)

// Slot represents a single appointment slot on a provider's schedule
type Slot struct {
	ID              uuid.UUID  `json:"id" gorm:"type:uuid;primaryKey;default:gen_random_uuid()" db:"id"`
	Date            string     `json:"date" gorm:"type:varchar(10);not null;index" db:"date"`
	StartTime       string     `json:"start_time" gorm:"type:varchar(5);not null" db:"start_time"`
	DurationMinutes int        `json:"duration_minutes" gorm:"not null" db:"duration_minutes"`
	Specialty       string     `json:"specialty" gorm:"type:varchar(100);not null;index" db:"specialty"`
	Provider        string     `json:"provider" gorm:"type:varchar(200);not null" db:"provider"`
	Status          SlotStatus `json:"status" gorm:"type:varchar(20);not null;index" db:"status"`
	Wave            int        `json:"wave" gorm:"not null;default:0" db:"wave"`

	// Patient fields, set when the slot is filled
	PatientName  string `json:"patient_name,omitempty" gorm:"type:varchar(200)" db:"patient_name"`
	PatientPhone string `json:"patient_phone,omitempty" gorm:"type:varchar(30)" db:"patient_phone"`
	PatientEmail string `json:"patient_email,omitempty" gorm:"type:varchar(200)" db:"patient_email"`
	BookedVia    string `json:"booked_via,omitempty" gorm:"type:varchar(30)" db:"booked_via"`

	CancelledAt *time.Time `json:"cancelled_at,omitempty" db:"cancelled_at"`
	BookedAt    *time.Time `json:"booked_at,omitempty" db:"booked_at"`
	CreatedAt   time.Time  `json:"created_at" gorm:"autoCreateTime" db:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at" gorm:"autoUpdateTime" db:"updated_at"`
}

// IsValid checks if the slot status is valid
func (ss SlotStatus) IsValid() bool {
	switch ss {
	case SlotStatusScheduled, SlotStatusCancelled, SlotStatusOffering, SlotStatusFilled, SlotStatusUnfilled:
		return true
	default:
		return false
	}
}

// CanTransitionTo checks if the status can transition to the target status.
// Transitions are monotonic within a fill cycle; a new cycle starts only
// through an explicit re-cancellation of a FILLED slot.
func (ss SlotStatus) CanTransitionTo(target SlotStatus) bool {
	validTransitions := map[SlotStatus][]SlotStatus{
		SlotStatusScheduled: {SlotStatusCancelled},
		SlotStatusCancelled: {SlotStatusOffering, SlotStatusUnfilled},
		SlotStatusOffering:  {SlotStatusFilled, SlotStatusUnfilled},
		SlotStatusFilled:    {SlotStatusCancelled},
		SlotStatusUnfilled:  {},
	}

	allowedTargets := validTransitions[ss]
	for _, allowed := range allowedTargets {
		if allowed == target {
			return true
		}
	}
	return false
}

// IsOffering returns true if the slot is currently offered to a wave
func (s *Slot) IsOffering() bool {
	return s.Status == SlotStatusOffering
}

// IsTerminal returns true if the slot's fill cycle has concluded
func (s *Slot) IsTerminal() bool {
	return s.Status == SlotStatusFilled || s.Status == SlotStatusUnfilled
}

// StartAt combines the slot's date and start time in the given location.
func (s *Slot) StartAt(loc *time.Location) (time.Time, error) {
	return time.ParseInLocation("2006-01-02 15:04", s.Date+" "+s.StartTime, loc)
}

// Band returns the time band the slot's start time falls into.
// Morning runs until noon, afternoon until 17:00, evening after.
func (s *Slot) Band() TimeBand {
	return BandForTime(s.StartTime)
}

// BandForTime buckets an "HH:MM" start time into a time band.
func BandForTime(startTime string) TimeBand {
	t, err := time.Parse("15:04", startTime)
	if err != nil {
		return TimeBandAny
	}
	switch {
	case t.Hour() < 12:
		return TimeBandMorning
	case t.Hour() < 17:
		return TimeBandAfternoon
	default:
		return TimeBandEvening
	}
}
