package database

import (
	"github.com/vedants521/CancelFillMD/internal/notifications"
	"github.com/vedants521/CancelFillMD/internal/slots"
	"github.com/vedants521/CancelFillMD/internal/tokens"
	"github.com/vedants521/CancelFillMD/internal/waitlist"

	"gorm.io/gorm"
)

func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&slots.Slot{},
		&waitlist.WaitlistEntry{},
		&tokens.BookingToken{},
		&notifications.NotificationRecord{},
	)
}
