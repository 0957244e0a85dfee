package matching

import (
	"context"
	"testing"
	"time"

	"github.com/vedants521/CancelFillMD/internal/slots"
	"github.com/vedants521/CancelFillMD/internal/tokens"
	"github.com/vedants521/CancelFillMD/internal/waitlist"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubEntrySource struct {
	entries []waitlist.WaitlistEntry
	err     error
}

func (s *stubEntrySource) FindActiveBySpecialty(ctx context.Context, specialty string) ([]waitlist.WaitlistEntry, error) {
	return s.entries, s.err
}

type stubTokenSource struct {
	tokens []tokens.BookingToken
	err    error
}

func (s *stubTokenSource) ListBySlot(ctx context.Context, slotID uuid.UUID) ([]tokens.BookingToken, error) {
	return s.tokens, s.err
}

func openSlot() *slots.Slot {
	return &slots.Slot{
		ID:        uuid.New(),
		Date:      "2026-09-01",
		StartTime: "09:00",
		Specialty: "Dermatology",
		Status:    slots.SlotStatusCancelled,
	}
}

func entryFor(slot *slots.Slot, signedUp time.Time) waitlist.WaitlistEntry {
	return waitlist.WaitlistEntry{
		ID:              uuid.New(),
		Name:            "Test Patient",
		Specialty:       slot.Specialty,
		PreferredDates:  waitlist.StringList{slot.Date},
		TimePreferences: waitlist.StringList{"any"},
		Active:          true,
		CreatedAt:       signedUp,
	}
}

func TestMatchRejectsIneligibleSlots(t *testing.T) {
	m := NewMatcher(&stubEntrySource{}, &stubTokenSource{})

	for _, status := range []slots.SlotStatus{slots.SlotStatusScheduled, slots.SlotStatusFilled, slots.SlotStatusUnfilled} {
		slot := openSlot()
		slot.Status = status

		_, err := m.Match(context.Background(), slot, 10)
		var vErr *ValidationError
		require.ErrorAs(t, err, &vErr, "status %s must not match", status)
	}
}

func TestMatchRejectsNonPositiveWaveSize(t *testing.T) {
	m := NewMatcher(&stubEntrySource{}, &stubTokenSource{})

	_, err := m.Match(context.Background(), openSlot(), 0)
	var vErr *ValidationError
	require.ErrorAs(t, err, &vErr)
}

func TestMatchFiltersByDateAndBand(t *testing.T) {
	slot := openSlot() // 09:00, morning band
	base := time.Now().Add(-time.Hour)

	wantsIt := entryFor(slot, base)
	wrongDate := entryFor(slot, base)
	wrongDate.PreferredDates = waitlist.StringList{"2026-09-02"}
	wrongBand := entryFor(slot, base)
	wrongBand.TimePreferences = waitlist.StringList{"evening"}
	noPrefs := entryFor(slot, base.Add(time.Minute))
	noPrefs.TimePreferences = nil

	m := NewMatcher(
		&stubEntrySource{entries: []waitlist.WaitlistEntry{wantsIt, wrongDate, wrongBand, noPrefs}},
		&stubTokenSource{},
	)

	matched, err := m.Match(context.Background(), slot, 10)
	require.NoError(t, err)
	require.Len(t, matched, 2)
	assert.Equal(t, wantsIt.ID, matched[0].ID)
	assert.Equal(t, noPrefs.ID, matched[1].ID, "empty time preferences accept every band")
}

func TestMatchExcludesPriorWaves(t *testing.T) {
	slot := openSlot()
	base := time.Now().Add(-time.Hour)

	first := entryFor(slot, base)
	second := entryFor(slot, base.Add(time.Minute))

	// The first entry already holds a token from wave 0, even an expired one.
	priorToken := tokens.BookingToken{
		ID:              uuid.New(),
		SlotID:          slot.ID,
		WaitlistEntryID: first.ID,
		Wave:            0,
		State:           tokens.TokenStateExpired,
	}

	m := NewMatcher(
		&stubEntrySource{entries: []waitlist.WaitlistEntry{first, second}},
		&stubTokenSource{tokens: []tokens.BookingToken{priorToken}},
	)

	matched, err := m.Match(context.Background(), slot, 10)
	require.NoError(t, err)
	require.Len(t, matched, 1)
	assert.Equal(t, second.ID, matched[0].ID)
}

func TestMatchRanksBySignupThenNotifiedCount(t *testing.T) {
	slot := openSlot()
	base := time.Now().Add(-2 * time.Hour)

	later := entryFor(slot, base.Add(time.Hour))
	earlier := entryFor(slot, base)
	sameTimeMoreNotified := entryFor(slot, base)
	sameTimeMoreNotified.NotifiedCount = 5

	m := NewMatcher(
		&stubEntrySource{entries: []waitlist.WaitlistEntry{later, sameTimeMoreNotified, earlier}},
		&stubTokenSource{},
	)

	matched, err := m.Match(context.Background(), slot, 10)
	require.NoError(t, err)
	require.Len(t, matched, 3)
	assert.Equal(t, earlier.ID, matched[0].ID)
	assert.Equal(t, sameTimeMoreNotified.ID, matched[1].ID)
	assert.Equal(t, later.ID, matched[2].ID)
}

func TestMatchTruncatesToWaveSize(t *testing.T) {
	slot := openSlot()
	base := time.Now().Add(-time.Hour)

	entries := make([]waitlist.WaitlistEntry, 0, 15)
	for i := 0; i < 15; i++ {
		entries = append(entries, entryFor(slot, base.Add(time.Duration(i)*time.Minute)))
	}

	m := NewMatcher(&stubEntrySource{entries: entries}, &stubTokenSource{})

	matched, err := m.Match(context.Background(), slot, 10)
	require.NoError(t, err)
	require.Len(t, matched, 10)
	// The cut keeps the earliest signups
	assert.Equal(t, entries[0].ID, matched[0].ID)
	assert.Equal(t, entries[9].ID, matched[9].ID)
}

func TestMatchEmptyWaitlist(t *testing.T) {
	m := NewMatcher(&stubEntrySource{}, &stubTokenSource{})

	matched, err := m.Match(context.Background(), openSlot(), 10)
	require.NoError(t, err)
	assert.Empty(t, matched)
}
