package booking

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/vedants521/CancelFillMD/internal/events"
	"github.com/vedants521/CancelFillMD/internal/notifications"
	"github.com/vedants521/CancelFillMD/internal/slots"
	"github.com/vedants521/CancelFillMD/internal/tokens"
	"github.com/vedants521/CancelFillMD/internal/waitlist"
	"github.com/vedants521/CancelFillMD/pkg/logger"

	"github.com/google/uuid"
)

// Resolver decides the outcome of claim attempts. Exactly one claim per
// slot cycle can win.
type Resolver interface {
	Claim(ctx context.Context, tokenSecret string) (*ClaimResult, error)
}

type resolver struct {
	repo       Repository
	tokenRepo  tokens.Repository
	slotRepo   slots.Repository
	entryRepo  waitlist.Repository
	dispatcher notifications.Dispatcher
	publisher  events.Publisher
	log        *logger.Logger
}

type ResolverDeps struct {
	Repo       Repository
	TokenRepo  tokens.Repository
	SlotRepo   slots.Repository
	EntryRepo  waitlist.Repository
	Dispatcher notifications.Dispatcher
	Publisher  events.Publisher
	Logger     *logger.Logger
}

func NewResolver(deps ResolverDeps) Resolver {
	return &resolver{
		repo:       deps.Repo,
		tokenRepo:  deps.TokenRepo,
		slotRepo:   deps.SlotRepo,
		entryRepo:  deps.EntryRepo,
		dispatcher: deps.Dispatcher,
		publisher:  deps.Publisher,
		log:        deps.Logger,
	}
}

// Claim validates the token, then commits the fill with a conditional
// update. Rejections are checked cheapest first; the commit itself is the
// only step that decides races.
func (r *resolver) Claim(ctx context.Context, tokenSecret string) (*ClaimResult, error) {
	token, err := r.tokenRepo.GetBySecret(ctx, tokenSecret)
	if err != nil {
		if errors.Is(err, tokens.ErrTokenNotFound) {
			return nil, ErrTokenNotFound
		}
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	switch token.State {
	case tokens.TokenStateUsed:
		return nil, r.reject(ctx, token.SlotID, ErrTokenAlreadyUsed)
	case tokens.TokenStateExpired:
		return nil, r.reject(ctx, token.SlotID, ErrTokenExpired)
	case tokens.TokenStateSuperseded:
		return nil, r.reject(ctx, token.SlotID, ErrTokenSuperseded)
	}

	now := time.Now()
	if token.IsOverdue(now) {
		// Lazy expiry: the reaper may not have seen this token yet.
		if _, err := r.tokenRepo.CompareAndSetState(ctx, token.ID, tokens.TokenStateIssued, tokens.TokenStateExpired, nil); err != nil {
			r.log.ErrorWithContext(ctx, "failed to lazily expire token", err, map[string]interface{}{
				"token_id": token.ID.String(),
			})
		}
		return nil, r.reject(ctx, token.SlotID, ErrTokenExpired)
	}

	slot, err := r.slotRepo.GetSlotByID(ctx, token.SlotID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	if slot.Status != slots.SlotStatusOffering {
		return nil, r.rejectForSlotState(ctx, token, slot)
	}

	entry, err := r.entryRepo.GetEntryByID(ctx, token.WaitlistEntryID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	if err := r.repo.CommitFill(ctx, token, entry); err != nil {
		if errors.Is(err, errFillConflict) {
			// Lost the race. Never retried; re-read to report why.
			fresh, rerr := r.slotRepo.GetSlotByID(ctx, token.SlotID)
			if rerr != nil {
				return nil, r.reject(ctx, token.SlotID, ErrSlotUnavailable)
			}
			return nil, r.rejectForSlotState(ctx, token, fresh)
		}
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	r.log.LogSlotFilled(ctx, slot.ID.String(), token.ID.String(), entry.ID.String())

	// Post-commit work is best effort; the fill already holds.
	go r.afterFill(token, slot, entry)

	filled := *slot
	filled.Status = slots.SlotStatusFilled
	filled.PatientName = entry.Name
	filled.BookedVia = "waitlist"
	bookedAt := time.Now()
	filled.BookedAt = &bookedAt

	return &ClaimResult{
		Slot:    filled.ToResponse(),
		Message: "Appointment booked",
	}, nil
}

// rejectForSlotState maps a non-OFFERING slot to the right rejection. A
// FILLED slot means another claim won, so the loser's token reads as
// superseded even before the sweep reaches it.
func (r *resolver) rejectForSlotState(ctx context.Context, token *tokens.BookingToken, slot *slots.Slot) error {
	if slot.Status == slots.SlotStatusFilled {
		if _, err := r.tokenRepo.CompareAndSetState(ctx, token.ID, tokens.TokenStateIssued, tokens.TokenStateSuperseded, nil); err != nil {
			r.log.ErrorWithContext(ctx, "failed to supersede losing token", err, map[string]interface{}{
				"token_id": token.ID.String(),
			})
		}
		return r.reject(ctx, slot.ID, ErrTokenSuperseded)
	}
	return r.reject(ctx, slot.ID, ErrSlotUnavailable)
}

// reject logs the rejection against its slot and passes the reason through.
func (r *resolver) reject(ctx context.Context, slotID uuid.UUID, reason error) error {
	r.log.LogClaimRejected(ctx, slotID.String(), reason.Error())
	return reason
}

func (r *resolver) afterFill(token *tokens.BookingToken, slot *slots.Slot, entry *waitlist.WaitlistEntry) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if n, err := r.tokenRepo.SupersedeSiblings(ctx, slot.ID, token.ID); err != nil {
		r.log.ErrorWithContext(ctx, "failed to supersede sibling tokens", err, map[string]interface{}{
			"slot_id": slot.ID.String(),
		})
	} else if n > 0 {
		r.log.InfoWithContext(ctx, "superseded sibling tokens", map[string]interface{}{
			"slot_id": slot.ID.String(),
			"count":   n,
		})
	}

	tokenID := token.ID
	entryID := entry.ID
	event := &events.SlotEvent{
		ID:              uuid.New(),
		Type:            events.SlotEventFilled,
		SlotID:          slot.ID,
		Specialty:       slot.Specialty,
		Provider:        slot.Provider,
		Date:            slot.Date,
		StartTime:       slot.StartTime,
		Wave:            slot.Wave,
		TokenID:         &tokenID,
		WaitlistEntryID: &entryID,
		OccurredAt:      time.Now(),
	}
	if err := r.publisher.Publish(ctx, event); err != nil {
		r.log.ErrorWithContext(ctx, "failed to publish slot.filled event", err, map[string]interface{}{
			"slot_id": slot.ID.String(),
		})
	}

	r.dispatcher.SendBookingConfirmation(ctx, entry, slot, token)
}
