package slots

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

var ErrSlotNotFound = errors.New("slot not found")

type Repository interface {
	CreateSlot(ctx context.Context, slot *Slot) error
	CreateSlots(ctx context.Context, batch []Slot) error
	GetSlotByID(ctx context.Context, id uuid.UUID) (*Slot, error)
	ListSlots(ctx context.Context, query SlotListQuery) ([]Slot, int64, error)
	ListSlotsByStatus(ctx context.Context, status SlotStatus) ([]Slot, error)

	// CompareAndSetStatus performs a conditional status transition. It
	// reports false without error when the slot was not in the expected
	// state, which is how concurrent transitions lose.
	CompareAndSetStatus(ctx context.Context, id uuid.UUID, from, to SlotStatus, extra map[string]interface{}) (bool, error)

	IncrementWave(ctx context.Context, id uuid.UUID) error
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) CreateSlot(ctx context.Context, slot *Slot) error {
	return r.db.WithContext(ctx).Create(slot).Error
}

func (r *repository) CreateSlots(ctx context.Context, batch []Slot) error {
	if len(batch) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).CreateInBatches(batch, 100).Error
}

func (r *repository) GetSlotByID(ctx context.Context, id uuid.UUID) (*Slot, error) {
	var slot Slot
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&slot).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSlotNotFound
		}
		return nil, err
	}
	return &slot, nil
}

func (r *repository) ListSlots(ctx context.Context, query SlotListQuery) ([]Slot, int64, error) {
	var results []Slot
	var totalCount int64

	if query.Page <= 0 {
		query.Page = 1
	}
	if query.Limit <= 0 {
		query.Limit = 20
	}

	baseQuery := r.db.WithContext(ctx).Model(&Slot{})

	if query.Status != "" {
		baseQuery = baseQuery.Where("status = ?", query.Status)
	}
	if query.Specialty != "" {
		baseQuery = baseQuery.Where("specialty = ?", query.Specialty)
	}
	if query.Date != "" {
		baseQuery = baseQuery.Where("date = ?", query.Date)
	}
	if query.Provider != "" {
		baseQuery = baseQuery.Where("provider = ?", query.Provider)
	}

	if err := baseQuery.Count(&totalCount).Error; err != nil {
		return nil, 0, err
	}

	offset := (query.Page - 1) * query.Limit
	err := baseQuery.
		Order("date ASC, start_time ASC").
		Offset(offset).
		Limit(query.Limit).
		Find(&results).Error

	return results, totalCount, err
}

func (r *repository) ListSlotsByStatus(ctx context.Context, status SlotStatus) ([]Slot, error) {
	var results []Slot
	err := r.db.WithContext(ctx).
		Where("status = ?", status).
		Order("date ASC, start_time ASC").
		Find(&results).Error
	return results, err
}

// CompareAndSetStatus is the single write path for slot transitions. The
// WHERE clause on the current status makes the update a compare-and-set;
// RowsAffected == 0 means someone else transitioned first.
func (r *repository) CompareAndSetStatus(ctx context.Context, id uuid.UUID, from, to SlotStatus, extra map[string]interface{}) (bool, error) {
	if !from.CanTransitionTo(to) {
		return false, errors.New("invalid slot status transition: " + string(from) + " -> " + string(to))
	}

	updates := map[string]interface{}{
		"status":     to,
		"updated_at": time.Now(),
	}
	for k, v := range extra {
		updates[k] = v
	}

	result := r.db.WithContext(ctx).
		Model(&Slot{}).
		Where("id = ? AND status = ?", id, from).
		Updates(updates)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *repository) IncrementWave(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).
		Model(&Slot{}).
		Where("id = ?", id).
		Update("wave", gorm.Expr("wave + 1")).Error
}
