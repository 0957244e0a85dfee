package events

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// SlotEventType identifies a slot lifecycle transition on the stream
type SlotEventType string

const (
	SlotEventOffering SlotEventType = "slot.offering"
	SlotEventFilled   SlotEventType = "slot.filled"
	SlotEventUnfilled SlotEventType = "slot.unfilled"
)

// SlotEvent is the message published for each slot lifecycle transition.
// slot.unfilled doubles as the staff escalation signal.
type SlotEvent struct {
	ID        uuid.UUID     `json:"id"`
	Type      SlotEventType `json:"type"`
	SlotID    uuid.UUID     `json:"slot_id"`
	Specialty string        `json:"specialty"`
	Provider  string        `json:"provider"`
	Date      string        `json:"date"`
	StartTime string        `json:"start_time"`
	Wave      int           `json:"wave"`

	// Set on slot.filled
	TokenID         *uuid.UUID `json:"token_id,omitempty"`
	WaitlistEntryID *uuid.UUID `json:"waitlist_entry_id,omitempty"`

	OccurredAt time.Time `json:"occurred_at"`
}

// ToJSON serializes the event for the wire
func (e *SlotEvent) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// PartitionKey routes all events for one slot to the same partition so
// consumers see its transitions in order.
func (e *SlotEvent) PartitionKey() string {
	return e.SlotID.String()
}
