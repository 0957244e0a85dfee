package notifications

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Repository interface {
	// CreateRecord appends one delivery-attempt record. The trail is
	// append-only; there is no update path.
	CreateRecord(ctx context.Context, record *NotificationRecord) error
	ListBySlot(ctx context.Context, slotID uuid.UUID) ([]NotificationRecord, error)
	ListByEntry(ctx context.Context, entryID uuid.UUID) ([]NotificationRecord, error)
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) CreateRecord(ctx context.Context, record *NotificationRecord) error {
	return r.db.WithContext(ctx).Create(record).Error
}

func (r *repository) ListBySlot(ctx context.Context, slotID uuid.UUID) ([]NotificationRecord, error) {
	var records []NotificationRecord
	err := r.db.WithContext(ctx).
		Where("slot_id = ?", slotID).
		Order("sent_at ASC").
		Find(&records).Error
	return records, err
}

func (r *repository) ListByEntry(ctx context.Context, entryID uuid.UUID) ([]NotificationRecord, error) {
	var records []NotificationRecord
	err := r.db.WithContext(ctx).
		Where("waitlist_entry_id = ?", entryID).
		Order("sent_at ASC").
		Find(&records).Error
	return records, err
}
