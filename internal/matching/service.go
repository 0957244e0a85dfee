package matching

import (
	"context"
	"fmt"
	"sort"

	"github.com/vedants521/CancelFillMD/internal/slots"
	"github.com/vedants521/CancelFillMD/internal/tokens"
	"github.com/vedants521/CancelFillMD/internal/waitlist"

	"github.com/google/uuid"
)

// ValidationError reports a slot that is not eligible for matching.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return "matching validation failed: " + e.Reason
}

// EntrySource supplies matchable waitlist entries.
type EntrySource interface {
	FindActiveBySpecialty(ctx context.Context, specialty string) ([]waitlist.WaitlistEntry, error)
}

// TokenSource supplies the tokens already issued for a slot, so prior
// waves can be excluded.
type TokenSource interface {
	ListBySlot(ctx context.Context, slotID uuid.UUID) ([]tokens.BookingToken, error)
}

// Matcher selects the next wave of candidates for an open slot
type Matcher interface {
	// Match returns up to waveSize eligible entries, best first. It never
	// mutates the slot; an empty result means the waitlist is exhausted.
	Match(ctx context.Context, slot *slots.Slot, waveSize int) ([]waitlist.WaitlistEntry, error)
}

type matcher struct {
	entries EntrySource
	tokens  TokenSource
}

func NewMatcher(entries EntrySource, tokenSource TokenSource) Matcher {
	return &matcher{entries: entries, tokens: tokenSource}
}

func (m *matcher) Match(ctx context.Context, slot *slots.Slot, waveSize int) ([]waitlist.WaitlistEntry, error) {
	if slot.Status != slots.SlotStatusCancelled && slot.Status != slots.SlotStatusOffering {
		return nil, &ValidationError{Reason: "slot is not open for matching, status " + string(slot.Status)}
	}
	if waveSize <= 0 {
		return nil, &ValidationError{Reason: "wave size must be positive"}
	}

	candidates, err := m.entries.FindActiveBySpecialty(ctx, slot.Specialty)
	if err != nil {
		return nil, fmt.Errorf("failed to load waitlist candidates: %w", err)
	}

	issued, err := m.tokens.ListBySlot(ctx, slot.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load slot tokens: %w", err)
	}
	alreadyBound := make(map[uuid.UUID]bool, len(issued))
	for i := range issued {
		alreadyBound[issued[i].WaitlistEntryID] = true
	}

	band := string(slot.Band())

	matched := make([]waitlist.WaitlistEntry, 0, waveSize)
	for i := range candidates {
		entry := candidates[i]
		if alreadyBound[entry.ID] {
			continue
		}
		if !entry.WantsDate(slot.Date) {
			continue
		}
		if !entry.WantsBand(band) {
			continue
		}
		matched = append(matched, entry)
	}

	// FindActiveBySpecialty already orders by signup time; re-sorting here
	// keeps the ranking contract independent of the store.
	sort.SliceStable(matched, func(a, b int) bool {
		if !matched[a].CreatedAt.Equal(matched[b].CreatedAt) {
			return matched[a].CreatedAt.Before(matched[b].CreatedAt)
		}
		return matched[a].NotifiedCount < matched[b].NotifiedCount
	})

	if len(matched) > waveSize {
		matched = matched[:waveSize]
	}
	return matched, nil
}
