package booking

import (
	"context"
	"time"

	"github.com/vedants521/CancelFillMD/internal/slots"
	"github.com/vedants521/CancelFillMD/internal/tokens"
	"github.com/vedants521/CancelFillMD/internal/waitlist"

	"gorm.io/gorm"
)

type Repository interface {
	// CommitFill atomically fills the slot and consumes the token. The
	// slot update is conditional on OFFERING; zero matched rows aborts
	// the transaction with errFillConflict.
	CommitFill(ctx context.Context, token *tokens.BookingToken, entry *waitlist.WaitlistEntry) error
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) CommitFill(ctx context.Context, token *tokens.BookingToken, entry *waitlist.WaitlistEntry) error {
	now := time.Now()

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		slotUpdate := tx.Model(&slots.Slot{}).
			Where("id = ? AND status = ?", token.SlotID, slots.SlotStatusOffering).
			Updates(map[string]interface{}{
				"status":        slots.SlotStatusFilled,
				"patient_name":  entry.Name,
				"patient_phone": entry.Phone,
				"patient_email": entry.Email,
				"booked_via":    "waitlist",
				"booked_at":     now,
				"updated_at":    now,
			})
		if slotUpdate.Error != nil {
			return slotUpdate.Error
		}
		if slotUpdate.RowsAffected == 0 {
			return errFillConflict
		}

		tokenUpdate := tx.Model(&tokens.BookingToken{}).
			Where("id = ? AND state = ?", token.ID, tokens.TokenStateIssued).
			Updates(map[string]interface{}{
				"state":      tokens.TokenStateUsed,
				"used_at":    now,
				"updated_at": now,
			})
		if tokenUpdate.Error != nil {
			return tokenUpdate.Error
		}
		if tokenUpdate.RowsAffected == 0 {
			return errFillConflict
		}

		return nil
	})
}
