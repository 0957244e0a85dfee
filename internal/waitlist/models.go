package waitlist

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
)

// StringList represents a JSON string list that can be stored in the database
type StringList []string

// Value implements the driver.Valuer interface for database storage
func (s StringList) Value() (driver.Value, error) {
	if s == nil {
		return nil, nil
	}
	return json.Marshal(s)
}

// Scan implements the sql.Scanner interface for database retrieval
func (s *StringList) Scan(value interface{}) error {
	if value == nil {
		*s = nil
		return nil
	}

	bytes, ok := value.([]byte)
	if !ok {
		return errors.New("type assertion to []byte failed")
	}

	return json.Unmarshal(bytes, s)
}

// GormDataType tells GORM how to handle this type
func (StringList) GormDataType() string {
	return "jsonb"
}

// Contains reports whether the list contains v.
func (s StringList) Contains(v string) bool {
	for _, item := range s {
		if item == v {
			return true
		}
	}
	return false
}

// WaitlistEntry represents a patient waiting for an earlier appointment
type WaitlistEntry struct {
	ID              uuid.UUID  `json:"id" gorm:"type:uuid;primaryKey;default:gen_random_uuid()" db:"id"`
	Name            string     `json:"name" gorm:"type:varchar(200);not null" db:"name"`
	Phone           string     `json:"phone" gorm:"type:varchar(30);not null" db:"phone"`
	Email           string     `json:"email" gorm:"type:varchar(200);not null" db:"email"`
	Specialty       string     `json:"specialty" gorm:"type:varchar(100);not null;index" db:"specialty"`
	PreferredDates  StringList `json:"preferred_dates" gorm:"type:jsonb" db:"preferred_dates"`
	TimePreferences StringList `json:"time_preferences" gorm:"type:jsonb" db:"time_preferences"`
	Active          bool       `json:"active" gorm:"not null;default:true;index" db:"active"`
	NotifiedCount   int        `json:"notified_count" gorm:"not null;default:0" db:"notified_count"`
	CreatedAt       time.Time  `json:"created_at" gorm:"autoCreateTime" db:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at" gorm:"autoUpdateTime" db:"updated_at"`
}

// WantsDate reports whether the entry's preferred dates include date.
func (we *WaitlistEntry) WantsDate(date string) bool {
	return we.PreferredDates.Contains(date)
}

// WantsBand reports whether the entry's time preferences accept the given
// band. An empty preference list or an "any" preference accepts every band.
func (we *WaitlistEntry) WantsBand(band string) bool {
	if len(we.TimePreferences) == 0 {
		return true
	}
	return we.TimePreferences.Contains("any") || we.TimePreferences.Contains(band)
}

// Redis Key Helpers

// GetSlotLockKey returns the Redis key for the per-slot reaper lock
func GetSlotLockKey(slotID uuid.UUID) string {
	return "fill:lock:slot:" + slotID.String()
}
