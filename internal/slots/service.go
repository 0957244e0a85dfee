package slots

import (
	"context"
	"fmt"

	"github.com/vedants521/CancelFillMD/internal/shared/config"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

type Service interface {
	ImportSlots(ctx context.Context, req ImportSlotsRequest) (*ImportSlotsResponse, error)
	GetSlot(ctx context.Context, id uuid.UUID) (*SlotResponse, error)
	ListSlots(ctx context.Context, query SlotListQuery) (*SlotListResponse, error)
}

type service struct {
	repo     Repository
	validate *validator.Validate
}

func NewService(repo Repository) Service {
	return &service{
		repo:     repo,
		validate: validator.New(),
	}
}

func (s *service) ImportSlots(ctx context.Context, req ImportSlotsRequest) (*ImportSlotsResponse, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, fmt.Errorf("invalid import request: %w", err)
	}

	batch := make([]Slot, 0, len(req.Slots))
	for _, item := range req.Slots {
		if !config.IsKnownSpecialty(item.Specialty) {
			return nil, fmt.Errorf("unknown specialty: %s", item.Specialty)
		}
		duration := item.DurationMinutes
		if duration == 0 {
			duration = config.DefaultDuration(item.Specialty, 30)
		}
		batch = append(batch, Slot{
			ID:              uuid.New(),
			Date:            item.Date,
			StartTime:       item.StartTime,
			DurationMinutes: duration,
			Specialty:       item.Specialty,
			Provider:        item.Provider,
			Status:          SlotStatusScheduled,
		})
	}

	if err := s.repo.CreateSlots(ctx, batch); err != nil {
		return nil, fmt.Errorf("failed to import slots: %w", err)
	}

	resp := &ImportSlotsResponse{Imported: len(batch)}
	for i := range batch {
		resp.Slots = append(resp.Slots, batch[i].ToResponse())
	}
	return resp, nil
}

func (s *service) GetSlot(ctx context.Context, id uuid.UUID) (*SlotResponse, error) {
	slot, err := s.repo.GetSlotByID(ctx, id)
	if err != nil {
		return nil, err
	}
	resp := slot.ToResponse()
	return &resp, nil
}

func (s *service) ListSlots(ctx context.Context, query SlotListQuery) (*SlotListResponse, error) {
	results, total, err := s.repo.ListSlots(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list slots: %w", err)
	}

	if query.Page <= 0 {
		query.Page = 1
	}
	if query.Limit <= 0 {
		query.Limit = 20
	}

	resp := &SlotListResponse{
		Slots:      make([]SlotResponse, 0, len(results)),
		TotalCount: total,
		Page:       query.Page,
		Limit:      query.Limit,
	}
	for i := range results {
		resp.Slots = append(resp.Slots, results[i].ToResponse())
	}
	return resp, nil
}
