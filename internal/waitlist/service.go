package waitlist

import (
	"context"
	"fmt"

	"github.com/vedants521/CancelFillMD/internal/shared/config"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

// Service interface defines the contract for waitlist business operations
type Service interface {
	JoinWaitlist(ctx context.Context, request *JoinWaitlistRequest) (*EntryResponse, error)
	LeaveWaitlist(ctx context.Context, entryID uuid.UUID) error
	GetEntry(ctx context.Context, entryID uuid.UUID) (*EntryResponse, error)
	ListEntries(ctx context.Context, query EntryListQuery) (*EntryListResponse, error)
}

type service struct {
	repo     Repository
	validate *validator.Validate
}

// NewService creates a new waitlist service
func NewService(repo Repository) Service {
	return &service{
		repo:     repo,
		validate: validator.New(),
	}
}

func (s *service) JoinWaitlist(ctx context.Context, request *JoinWaitlistRequest) (*EntryResponse, error) {
	if err := s.validate.Struct(request); err != nil {
		return nil, fmt.Errorf("invalid waitlist signup: %w", err)
	}
	if !config.IsKnownSpecialty(request.Specialty) {
		return nil, fmt.Errorf("unknown specialty: %s", request.Specialty)
	}

	entry := &WaitlistEntry{
		ID:              uuid.New(),
		Name:            request.Name,
		Phone:           request.Phone,
		Email:           request.Email,
		Specialty:       request.Specialty,
		PreferredDates:  StringList(request.PreferredDates),
		TimePreferences: StringList(request.TimePreferences),
		Active:          true,
	}

	if err := s.repo.CreateEntry(ctx, entry); err != nil {
		return nil, fmt.Errorf("failed to create waitlist entry: %w", err)
	}

	resp := entry.ToResponse()
	return &resp, nil
}

// LeaveWaitlist deactivates an entry. Already-inactive entries deactivate
// again without error so removal is idempotent.
func (s *service) LeaveWaitlist(ctx context.Context, entryID uuid.UUID) error {
	return s.repo.Deactivate(ctx, entryID)
}

func (s *service) GetEntry(ctx context.Context, entryID uuid.UUID) (*EntryResponse, error) {
	entry, err := s.repo.GetEntryByID(ctx, entryID)
	if err != nil {
		return nil, err
	}
	resp := entry.ToResponse()
	return &resp, nil
}

func (s *service) ListEntries(ctx context.Context, query EntryListQuery) (*EntryListResponse, error) {
	entries, total, err := s.repo.ListEntries(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list waitlist entries: %w", err)
	}

	if query.Page <= 0 {
		query.Page = 1
	}
	if query.Limit <= 0 {
		query.Limit = 20
	}

	resp := &EntryListResponse{
		Entries:    make([]EntryResponse, 0, len(entries)),
		TotalCount: total,
		Page:       query.Page,
		Limit:      query.Limit,
	}
	for i := range entries {
		resp.Entries = append(resp.Entries, entries[i].ToResponse())
	}
	return resp, nil
}
