package waitlist

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

var ErrEntryNotFound = errors.New("waitlist entry not found")

// Repository interface defines the contract for waitlist data operations
type Repository interface {
	CreateEntry(ctx context.Context, entry *WaitlistEntry) error
	GetEntryByID(ctx context.Context, id uuid.UUID) (*WaitlistEntry, error)
	ListEntries(ctx context.Context, query EntryListQuery) ([]WaitlistEntry, int64, error)
	Deactivate(ctx context.Context, id uuid.UUID) error

	// Candidate selection for the matcher: active entries for a specialty,
	// ordered by signup time then notification fairness.
	FindActiveBySpecialty(ctx context.Context, specialty string) ([]WaitlistEntry, error)

	IncrementNotifiedCount(ctx context.Context, id uuid.UUID) error
}

// repository implements the Repository interface
type repository struct {
	db *gorm.DB
}

// NewRepository creates a new waitlist repository
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) CreateEntry(ctx context.Context, entry *WaitlistEntry) error {
	return r.db.WithContext(ctx).Create(entry).Error
}

func (r *repository) GetEntryByID(ctx context.Context, id uuid.UUID) (*WaitlistEntry, error) {
	var entry WaitlistEntry
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&entry).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrEntryNotFound
		}
		return nil, err
	}
	return &entry, nil
}

func (r *repository) ListEntries(ctx context.Context, query EntryListQuery) ([]WaitlistEntry, int64, error) {
	var entries []WaitlistEntry
	var totalCount int64

	if query.Page <= 0 {
		query.Page = 1
	}
	if query.Limit <= 0 {
		query.Limit = 20
	}

	baseQuery := r.db.WithContext(ctx).Model(&WaitlistEntry{})

	if query.Specialty != "" {
		baseQuery = baseQuery.Where("specialty = ?", query.Specialty)
	}
	if query.ActiveOnly {
		baseQuery = baseQuery.Where("active = ?", true)
	}

	if err := baseQuery.Count(&totalCount).Error; err != nil {
		return nil, 0, err
	}

	offset := (query.Page - 1) * query.Limit
	err := baseQuery.
		Order("created_at ASC").
		Offset(offset).
		Limit(query.Limit).
		Find(&entries).Error

	return entries, totalCount, err
}

// Deactivate flips the active flag. Entries are never deleted so that
// historical notifications and tokens keep a valid reference.
func (r *repository) Deactivate(ctx context.Context, id uuid.UUID) error {
	result := r.db.WithContext(ctx).
		Model(&WaitlistEntry{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"active":     false,
			"updated_at": time.Now(),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrEntryNotFound
	}
	return nil
}

func (r *repository) FindActiveBySpecialty(ctx context.Context, specialty string) ([]WaitlistEntry, error) {
	var entries []WaitlistEntry
	err := r.db.WithContext(ctx).
		Where("active = ? AND specialty = ?", true, specialty).
		Order("created_at ASC, notified_count ASC").
		Find(&entries).Error
	return entries, err
}

func (r *repository) IncrementNotifiedCount(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).
		Model(&WaitlistEntry{}).
		Where("id = ?", id).
		Update("notified_count", gorm.Expr("notified_count + 1")).Error
}
