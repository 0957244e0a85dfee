package tokens

import (
	"time"

	"github.com/google/uuid"
)

// TokenState represents the lifecycle state of a booking token
type TokenState string

const (
	TokenStateIssued     TokenState = "ISSUED"
	TokenStateUsed       TokenState = "USED"
	TokenStateExpired    TokenState = "EXPIRED"
	TokenStateSuperseded TokenState = "SUPERSEDED"
)

// BookingToken is a single-use, time-limited claim on one slot for one
// waitlist entry. The secret is the only credential a patient needs to
// claim; it is never reused across tokens.
type BookingToken struct {
	ID              uuid.UUID  `json:"id" gorm:"type:uuid;primaryKey;default:gen_random_uuid()" db:"id"`
	Secret          string     `json:"-" gorm:"type:varchar(64);not null;uniqueIndex" db:"secret"`
	SlotID          uuid.UUID  `json:"slot_id" gorm:"type:uuid;not null;index" db:"slot_id"`
	WaitlistEntryID uuid.UUID  `json:"waitlist_entry_id" gorm:"type:uuid;not null;index" db:"waitlist_entry_id"`
	Wave            int        `json:"wave" gorm:"not null" db:"wave"`
	State           TokenState `json:"state" gorm:"type:varchar(20);not null;index" db:"state"`
	IssuedAt        time.Time  `json:"issued_at" gorm:"not null" db:"issued_at"`
	ExpiresAt       time.Time  `json:"expires_at" gorm:"not null;index" db:"expires_at"`
	UsedAt          *time.Time `json:"used_at,omitempty" db:"used_at"`
	CreatedAt       time.Time  `json:"created_at" gorm:"autoCreateTime" db:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at" gorm:"autoUpdateTime" db:"updated_at"`
}

// IsValid checks if the token state is valid
func (ts TokenState) IsValid() bool {
	switch ts {
	case TokenStateIssued, TokenStateUsed, TokenStateExpired, TokenStateSuperseded:
		return true
	default:
		return false
	}
}

// CanTransitionTo checks if the state can transition to the target state.
// ISSUED is the only non-terminal state.
func (ts TokenState) CanTransitionTo(target TokenState) bool {
	if ts != TokenStateIssued {
		return false
	}
	switch target {
	case TokenStateUsed, TokenStateExpired, TokenStateSuperseded:
		return true
	default:
		return false
	}
}

// IsTerminal returns true once the token can never be claimed again
func (t *BookingToken) IsTerminal() bool {
	return t.State != TokenStateIssued
}

// IsOverdue reports whether an ISSUED token has outlived its claim window.
// The stored state may still say ISSUED; expiry is applied lazily.
func (t *BookingToken) IsOverdue(now time.Time) bool {
	return t.State == TokenStateIssued && now.After(t.ExpiresAt)
}
