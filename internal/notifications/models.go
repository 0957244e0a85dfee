package notifications

import (
	"time"

	"github.com/google/uuid"
)

// NotificationChannel represents the delivery channel for a notification
type NotificationChannel string

const (
	NotificationChannelSMS   NotificationChannel = "SMS"
	NotificationChannelEmail NotificationChannel = "EMAIL"
)

// NotificationStatus represents the outcome of a delivery attempt
type NotificationStatus string

const (
	NotificationStatusSent   NotificationStatus = "SENT"
	NotificationStatusFailed NotificationStatus = "FAILED"
)

// NotificationRecord is the append-only audit trail of channel attempts.
// Records are never updated or deleted.
type NotificationRecord struct {
	ID              uuid.UUID           `json:"id" gorm:"type:uuid;primaryKey;default:gen_random_uuid()" db:"id"`
	TokenID         uuid.UUID           `json:"token_id" gorm:"type:uuid;not null;index" db:"token_id"`
	SlotID          uuid.UUID           `json:"slot_id" gorm:"type:uuid;not null;index" db:"slot_id"`
	WaitlistEntryID uuid.UUID           `json:"waitlist_entry_id" gorm:"type:uuid;not null;index" db:"waitlist_entry_id"`
	Channel         NotificationChannel `json:"channel" gorm:"type:varchar(10);not null" db:"channel"`
	Status          NotificationStatus  `json:"status" gorm:"type:varchar(10);not null;index" db:"status"`
	ProviderID      *string             `json:"provider_id,omitempty" db:"provider_id"`
	ErrorMessage    *string             `json:"error_message,omitempty" db:"error_message"`
	LatencyMs       int64               `json:"latency_ms" gorm:"not null;default:0" db:"latency_ms"`
	Attempt         int                 `json:"attempt" gorm:"not null;default:1" db:"attempt"`
	SentAt          time.Time           `json:"sent_at" gorm:"not null" db:"sent_at"`
	CreatedAt       time.Time           `json:"created_at" gorm:"autoCreateTime" db:"created_at"`
}

// DispatchResult summarizes one dispatch (both channels) for one entry
type DispatchResult struct {
	TokenID      uuid.UUID `json:"token_id"`
	SMSSent      bool      `json:"sms_sent"`
	EmailSent    bool      `json:"email_sent"`
	AnyDelivered bool      `json:"any_delivered"`
}

// maxSMSLength is the single-segment SMS limit; longer bodies are truncated
const maxSMSLength = 160

// TruncateSMS trims an SMS body to a single segment, ellipsized.
func TruncateSMS(body string) string {
	if len(body) <= maxSMSLength {
		return body
	}
	return body[:maxSMSLength-3] + "..."
}
