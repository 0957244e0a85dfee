package fill

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/vedants521/CancelFillMD/internal/events"
	"github.com/vedants521/CancelFillMD/internal/matching"
	"github.com/vedants521/CancelFillMD/internal/notifications"
	"github.com/vedants521/CancelFillMD/internal/shared/config"
	"github.com/vedants521/CancelFillMD/internal/slots"
	"github.com/vedants521/CancelFillMD/internal/tokens"
	"github.com/vedants521/CancelFillMD/internal/waitlist"
	"github.com/vedants521/CancelFillMD/pkg/logger"

	"github.com/google/uuid"
)

// ErrCycleConcluded reports a cancellation against a slot whose fill
// cycle already ended in UNFILLED. Terminal slots do not reopen.
var ErrCycleConcluded = errors.New("slot fill cycle already concluded")

// Service orchestrates the fill cycle: cancellation intake, wave
// notification, and wave advancement for the reaper.
type Service interface {
	// OnSlotCancelled starts (or idempotently rejoins) the fill cycle
	// for a slot. Re-cancelling a FILLED slot opens a fresh cycle.
	OnSlotCancelled(ctx context.Context, slotID uuid.UUID) error

	// AdvanceWave runs the next notification wave for an OFFERING slot,
	// or concludes it as UNFILLED when the waitlist is exhausted. Only
	// the reaper calls this.
	AdvanceWave(ctx context.Context, slot *slots.Slot) error
}

type service struct {
	slotRepo   slots.Repository
	entryRepo  waitlist.Repository
	matcher    matching.Matcher
	issuer     tokens.Issuer
	dispatcher notifications.Dispatcher
	publisher  events.Publisher
	fillCfg    config.FillConfig
	log        *logger.Logger
}

type ServiceDeps struct {
	SlotRepo   slots.Repository
	EntryRepo  waitlist.Repository
	Matcher    matching.Matcher
	Issuer     tokens.Issuer
	Dispatcher notifications.Dispatcher
	Publisher  events.Publisher
	Fill       config.FillConfig
	Logger     *logger.Logger
}

func NewService(deps ServiceDeps) Service {
	return &service{
		slotRepo:   deps.SlotRepo,
		entryRepo:  deps.EntryRepo,
		matcher:    deps.Matcher,
		issuer:     deps.Issuer,
		dispatcher: deps.Dispatcher,
		publisher:  deps.Publisher,
		fillCfg:    deps.Fill,
		log:        deps.Logger,
	}
}

func (s *service) OnSlotCancelled(ctx context.Context, slotID uuid.UUID) error {
	slot, err := s.slotRepo.GetSlotByID(ctx, slotID)
	if err != nil {
		return err
	}

	now := time.Now()
	switch slot.Status {
	case slots.SlotStatusScheduled:
		ok, err := s.slotRepo.CompareAndSetStatus(ctx, slot.ID, slots.SlotStatusScheduled, slots.SlotStatusCancelled,
			map[string]interface{}{"cancelled_at": now})
		if err != nil {
			return err
		}
		if !ok {
			// Raced with another cancellation; that one owns the cycle.
			return nil
		}
	case slots.SlotStatusFilled:
		// Re-cancellation reopens the slot with a fresh cycle.
		ok, err := s.slotRepo.CompareAndSetStatus(ctx, slot.ID, slots.SlotStatusFilled, slots.SlotStatusCancelled,
			map[string]interface{}{
				"cancelled_at":  now,
				"wave":          0,
				"patient_name":  "",
				"patient_phone": "",
				"patient_email": "",
				"booked_via":    "",
				"booked_at":     nil,
			})
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}
	case slots.SlotStatusCancelled, slots.SlotStatusOffering:
		// Already in a fill cycle; cancellation is idempotent.
		return nil
	case slots.SlotStatusUnfilled:
		return ErrCycleConcluded
	}

	slot, err = s.slotRepo.GetSlotByID(ctx, slotID)
	if err != nil {
		return err
	}
	s.log.LogSlotCancelled(ctx, slot.ID.String(), slot.Provider)

	offers, err := s.issueWave(ctx, slot)
	if err != nil {
		return err
	}

	if len(offers) == 0 {
		return s.concludeUnfilled(ctx, slot, slots.SlotStatusCancelled)
	}

	// The slot must be claimable before any offer goes out; a patient
	// can click the moment a message lands.
	ok, err := s.slotRepo.CompareAndSetStatus(ctx, slot.ID, slots.SlotStatusCancelled, slots.SlotStatusOffering, nil)
	if err != nil {
		return err
	}
	if !ok {
		return nil
	}
	s.publish(ctx, events.SlotEventOffering, slot, nil, nil)
	s.dispatchWave(ctx, slot, offers)
	return nil
}

func (s *service) AdvanceWave(ctx context.Context, slot *slots.Slot) error {
	// The caller's copy may predate a claim; decide on current state.
	slot, err := s.slotRepo.GetSlotByID(ctx, slot.ID)
	if err != nil {
		return err
	}
	if slot.Status != slots.SlotStatusOffering {
		return nil
	}

	if err := s.slotRepo.IncrementWave(ctx, slot.ID); err != nil {
		return fmt.Errorf("failed to advance wave counter: %w", err)
	}
	slot.Wave++

	offers, err := s.issueWave(ctx, slot)
	if err != nil {
		return err
	}

	if len(offers) == 0 {
		return s.concludeUnfilled(ctx, slot, slots.SlotStatusOffering)
	}
	s.dispatchWave(ctx, slot, offers)
	return nil
}

// waveOffer pairs a matched entry with the token minted for it.
type waveOffer struct {
	entry waitlist.WaitlistEntry
	token *tokens.BookingToken
}

// issueWave matches the next wave and mints its tokens. Nothing is sent
// yet; the caller dispatches once the slot is claimable.
func (s *service) issueWave(ctx context.Context, slot *slots.Slot) ([]waveOffer, error) {
	candidates, err := s.matcher.Match(ctx, slot, s.fillCfg.EffectiveWaveSize())
	if err != nil {
		return nil, fmt.Errorf("failed to match wave for slot %s: %w", slot.ID, err)
	}

	ttl := s.fillCfg.EffectiveTokenTTL()
	offers := make([]waveOffer, 0, len(candidates))
	for i := range candidates {
		entry := candidates[i]

		token, err := s.issuer.Issue(ctx, slot, entry.ID, ttl)
		if err != nil {
			if errors.Is(err, tokens.ErrDuplicateBinding) {
				// Already bound in a prior wave; never re-notified.
				continue
			}
			s.log.ErrorWithContext(ctx, "failed to issue token", err, map[string]interface{}{
				"slot_id":           slot.ID.String(),
				"waitlist_entry_id": entry.ID.String(),
			})
			continue
		}
		offers = append(offers, waveOffer{entry: entry, token: token})
	}
	return offers, nil
}

func (s *service) dispatchWave(ctx context.Context, slot *slots.Slot, offers []waveOffer) {
	for i := range offers {
		if _, err := s.dispatcher.Dispatch(ctx, &offers[i].entry, slot, offers[i].token); err != nil {
			s.log.ErrorWithContext(ctx, "failed to dispatch offer", err, map[string]interface{}{
				"slot_id":           slot.ID.String(),
				"waitlist_entry_id": offers[i].entry.ID.String(),
			})
		}
	}
	s.log.LogWaveDispatched(ctx, slot.ID.String(), slot.Wave, len(offers))
}

func (s *service) concludeUnfilled(ctx context.Context, slot *slots.Slot, from slots.SlotStatus) error {
	ok, err := s.slotRepo.CompareAndSetStatus(ctx, slot.ID, from, slots.SlotStatusUnfilled, nil)
	if err != nil {
		return err
	}
	if !ok {
		// A claim landed between the wave check and now; the fill wins.
		return nil
	}

	s.log.LogSlotUnfilled(ctx, slot.ID.String(), slot.Wave+1)
	s.publish(ctx, events.SlotEventUnfilled, slot, nil, nil)
	return nil
}

func (s *service) publish(ctx context.Context, eventType events.SlotEventType, slot *slots.Slot, tokenID, entryID *uuid.UUID) {
	event := &events.SlotEvent{
		ID:              uuid.New(),
		Type:            eventType,
		SlotID:          slot.ID,
		Specialty:       slot.Specialty,
		Provider:        slot.Provider,
		Date:            slot.Date,
		StartTime:       slot.StartTime,
		Wave:            slot.Wave,
		TokenID:         tokenID,
		WaitlistEntryID: entryID,
		OccurredAt:      time.Now(),
	}
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.log.ErrorWithContext(ctx, "failed to publish slot event", err, map[string]interface{}{
			"slot_id":    slot.ID.String(),
			"event_type": string(eventType),
		})
	}
}
