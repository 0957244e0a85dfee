package tokens

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

var ErrTokenNotFound = errors.New("booking token not found")

type Repository interface {
	Create(ctx context.Context, token *BookingToken) error
	GetBySecret(ctx context.Context, secret string) (*BookingToken, error)
	GetByID(ctx context.Context, id uuid.UUID) (*BookingToken, error)
	GetBySlotAndEntry(ctx context.Context, slotID, entryID uuid.UUID) (*BookingToken, error)
	ListBySlot(ctx context.Context, slotID uuid.UUID) ([]BookingToken, error)
	ListBySlotAndWave(ctx context.Context, slotID uuid.UUID, wave int) ([]BookingToken, error)

	// CompareAndSetState transitions a token conditionally on its current
	// state. Reports false when the token was no longer in the expected
	// state.
	CompareAndSetState(ctx context.Context, id uuid.UUID, from, to TokenState, usedAt *time.Time) (bool, error)

	// ExpireOverdue moves every overdue ISSUED token to EXPIRED and
	// returns how many were flipped.
	ExpireOverdue(ctx context.Context, now time.Time) (int64, error)

	// SupersedeSiblings moves every other ISSUED token for the slot to
	// SUPERSEDED after a fill.
	SupersedeSiblings(ctx context.Context, slotID, winnerTokenID uuid.UUID) (int64, error)
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) Create(ctx context.Context, token *BookingToken) error {
	return r.db.WithContext(ctx).Create(token).Error
}

func (r *repository) GetBySecret(ctx context.Context, secret string) (*BookingToken, error) {
	var token BookingToken
	err := r.db.WithContext(ctx).Where("secret = ?", secret).First(&token).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTokenNotFound
		}
		return nil, err
	}
	return &token, nil
}

func (r *repository) GetByID(ctx context.Context, id uuid.UUID) (*BookingToken, error) {
	var token BookingToken
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&token).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTokenNotFound
		}
		return nil, err
	}
	return &token, nil
}

func (r *repository) GetBySlotAndEntry(ctx context.Context, slotID, entryID uuid.UUID) (*BookingToken, error) {
	var token BookingToken
	err := r.db.WithContext(ctx).
		Where("slot_id = ? AND waitlist_entry_id = ?", slotID, entryID).
		First(&token).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTokenNotFound
		}
		return nil, err
	}
	return &token, nil
}

func (r *repository) ListBySlot(ctx context.Context, slotID uuid.UUID) ([]BookingToken, error) {
	var results []BookingToken
	err := r.db.WithContext(ctx).
		Where("slot_id = ?", slotID).
		Order("wave ASC, issued_at ASC").
		Find(&results).Error
	return results, err
}

func (r *repository) ListBySlotAndWave(ctx context.Context, slotID uuid.UUID, wave int) ([]BookingToken, error) {
	var results []BookingToken
	err := r.db.WithContext(ctx).
		Where("slot_id = ? AND wave = ?", slotID, wave).
		Order("issued_at ASC").
		Find(&results).Error
	return results, err
}

func (r *repository) CompareAndSetState(ctx context.Context, id uuid.UUID, from, to TokenState, usedAt *time.Time) (bool, error) {
	if !from.CanTransitionTo(to) {
		return false, errors.New("invalid token state transition: " + string(from) + " -> " + string(to))
	}

	updates := map[string]interface{}{
		"state":      to,
		"updated_at": time.Now(),
	}
	if usedAt != nil {
		updates["used_at"] = *usedAt
	}

	result := r.db.WithContext(ctx).
		Model(&BookingToken{}).
		Where("id = ? AND state = ?", id, from).
		Updates(updates)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *repository) ExpireOverdue(ctx context.Context, now time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&BookingToken{}).
		Where("state = ? AND expires_at < ?", TokenStateIssued, now).
		Updates(map[string]interface{}{
			"state":      TokenStateExpired,
			"updated_at": now,
		})
	return result.RowsAffected, result.Error
}

func (r *repository) SupersedeSiblings(ctx context.Context, slotID, winnerTokenID uuid.UUID) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&BookingToken{}).
		Where("slot_id = ? AND id != ? AND state = ?", slotID, winnerTokenID, TokenStateIssued).
		Updates(map[string]interface{}{
			"state":      TokenStateSuperseded,
			"updated_at": time.Now(),
		})
	return result.RowsAffected, result.Error
}
