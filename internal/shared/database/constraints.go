package database

import (
	"gorm.io/gorm"
)

// MigrateConstraints adds critical database constraints for concurrency control
func MigrateConstraints(db *gorm.DB) error {
	// A token secret must never collide; claims are looked up by secret
	err := db.Exec(`
		CREATE UNIQUE INDEX IF NOT EXISTS idx_tokens_secret
		ON booking_tokens (secret);
	`).Error
	if err != nil {
		return err
	}

	// One live token per (slot, waitlist entry) pair across waves
	err = db.Exec(`
		CREATE UNIQUE INDEX IF NOT EXISTS idx_tokens_slot_entry
		ON booking_tokens (slot_id, waitlist_entry_id);
	`).Error
	if err != nil {
		return err
	}

	// Reaper scans by slot status + wave
	err = db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_slots_status
		ON slots (status);
	`).Error
	if err != nil {
		return err
	}

	// Token expiry sweep
	err = db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_tokens_state_expires
		ON booking_tokens (state, expires_at);
	`).Error
	if err != nil {
		return err
	}

	return nil
}
