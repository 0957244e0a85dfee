package fill

import (
	"context"
	"sync"
	"testing"
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
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSlotRepo struct {
	mu    sync.Mutex
	slots map[uuid.UUID]*slots.Slot
}

func newFakeSlotRepo() *fakeSlotRepo {
	return &fakeSlotRepo{slots: make(map[uuid.UUID]*slots.Slot)}
}

func (f *fakeSlotRepo) CreateSlot(ctx context.Context, slot *slots.Slot) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *slot
	f.slots[slot.ID] = &cp
	return nil
}

func (f *fakeSlotRepo) CreateSlots(ctx context.Context, batch []slots.Slot) error {
	for i := range batch {
		if err := f.CreateSlot(ctx, &batch[i]); err != nil {
			return err
		}
	}
	return nil
}

func (f *fakeSlotRepo) GetSlotByID(ctx context.Context, id uuid.UUID) (*slots.Slot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if s, ok := f.slots[id]; ok {
		cp := *s
		return &cp, nil
	}
	return nil, slots.ErrSlotNotFound
}

func (f *fakeSlotRepo) ListSlots(ctx context.Context, query slots.SlotListQuery) ([]slots.Slot, int64, error) {
	return nil, 0, nil
}

func (f *fakeSlotRepo) ListSlotsByStatus(ctx context.Context, status slots.SlotStatus) ([]slots.Slot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []slots.Slot
	for _, s := range f.slots {
		if s.Status == status {
			out = append(out, *s)
		}
	}
	return out, nil
}

func (f *fakeSlotRepo) CompareAndSetStatus(ctx context.Context, id uuid.UUID, from, to slots.SlotStatus, extra map[string]interface{}) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.slots[id]
	if !ok || s.Status != from {
		return false, nil
	}
	s.Status = to
	for k, v := range extra {
		switch k {
		case "cancelled_at":
			if at, ok := v.(time.Time); ok {
				s.CancelledAt = &at
			}
		case "wave":
			if w, ok := v.(int); ok {
				s.Wave = w
			}
		case "patient_name":
			s.PatientName = v.(string)
		case "patient_phone":
			s.PatientPhone = v.(string)
		case "patient_email":
			s.PatientEmail = v.(string)
		case "booked_via":
			s.BookedVia = v.(string)
		case "booked_at":
			s.BookedAt = nil
		}
	}
	return true, nil
}

func (f *fakeSlotRepo) IncrementWave(ctx context.Context, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if s, ok := f.slots[id]; ok {
		s.Wave++
	}
	return nil
}

type fakeEntryRepo struct {
	mu      sync.Mutex
	entries []waitlist.WaitlistEntry
	bumps   map[uuid.UUID]int
}

func newFakeEntryRepo() *fakeEntryRepo {
	return &fakeEntryRepo{bumps: make(map[uuid.UUID]int)}
}

func (f *fakeEntryRepo) CreateEntry(ctx context.Context, entry *waitlist.WaitlistEntry) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.entries = append(f.entries, *entry)
	return nil
}

func (f *fakeEntryRepo) GetEntryByID(ctx context.Context, id uuid.UUID) (*waitlist.WaitlistEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.entries {
		if f.entries[i].ID == id {
			cp := f.entries[i]
			return &cp, nil
		}
	}
	return nil, waitlist.ErrEntryNotFound
}

func (f *fakeEntryRepo) ListEntries(ctx context.Context, query waitlist.EntryListQuery) ([]waitlist.WaitlistEntry, int64, error) {
	return nil, 0, nil
}

func (f *fakeEntryRepo) Deactivate(ctx context.Context, id uuid.UUID) error { return nil }

func (f *fakeEntryRepo) FindActiveBySpecialty(ctx context.Context, specialty string) ([]waitlist.WaitlistEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []waitlist.WaitlistEntry
	for _, e := range f.entries {
		if e.Active && e.Specialty == specialty {
			out = append(out, e)
		}
	}
	return out, nil
}

func (f *fakeEntryRepo) IncrementNotifiedCount(ctx context.Context, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.bumps[id]++
	return nil
}

type fakeTokenRepo struct {
	mu     sync.Mutex
	tokens map[uuid.UUID]*tokens.BookingToken
}

func newFakeTokenRepo() *fakeTokenRepo {
	return &fakeTokenRepo{tokens: make(map[uuid.UUID]*tokens.BookingToken)}
}

func (f *fakeTokenRepo) Create(ctx context.Context, token *tokens.BookingToken) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *token
	f.tokens[token.ID] = &cp
	return nil
}

func (f *fakeTokenRepo) GetBySecret(ctx context.Context, secret string) (*tokens.BookingToken, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, t := range f.tokens {
		if t.Secret == secret {
			cp := *t
			return &cp, nil
		}
	}
	return nil, tokens.ErrTokenNotFound
}

func (f *fakeTokenRepo) GetByID(ctx context.Context, id uuid.UUID) (*tokens.BookingToken, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if t, ok := f.tokens[id]; ok {
		cp := *t
		return &cp, nil
	}
	return nil, tokens.ErrTokenNotFound
}

func (f *fakeTokenRepo) GetBySlotAndEntry(ctx context.Context, slotID, entryID uuid.UUID) (*tokens.BookingToken, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, t := range f.tokens {
		if t.SlotID == slotID && t.WaitlistEntryID == entryID {
			cp := *t
			return &cp, nil
		}
	}
	return nil, tokens.ErrTokenNotFound
}

func (f *fakeTokenRepo) ListBySlot(ctx context.Context, slotID uuid.UUID) ([]tokens.BookingToken, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []tokens.BookingToken
	for _, t := range f.tokens {
		if t.SlotID == slotID {
			out = append(out, *t)
		}
	}
	return out, nil
}

func (f *fakeTokenRepo) ListBySlotAndWave(ctx context.Context, slotID uuid.UUID, wave int) ([]tokens.BookingToken, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []tokens.BookingToken
	for _, t := range f.tokens {
		if t.SlotID == slotID && t.Wave == wave {
			out = append(out, *t)
		}
	}
	return out, nil
}

func (f *fakeTokenRepo) CompareAndSetState(ctx context.Context, id uuid.UUID, from, to tokens.TokenState, usedAt *time.Time) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.tokens[id]
	if !ok || t.State != from {
		return false, nil
	}
	t.State = to
	return true, nil
}

func (f *fakeTokenRepo) ExpireOverdue(ctx context.Context, now time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for _, t := range f.tokens {
		if t.State == tokens.TokenStateIssued && now.After(t.ExpiresAt) {
			t.State = tokens.TokenStateExpired
			n++
		}
	}
	return n, nil
}

func (f *fakeTokenRepo) SupersedeSiblings(ctx context.Context, slotID, winnerTokenID uuid.UUID) (int64, error) {
	return 0, nil
}

type countingDispatcher struct {
	mu         sync.Mutex
	dispatched []uuid.UUID
}

func (d *countingDispatcher) Dispatch(ctx context.Context, entry *waitlist.WaitlistEntry, slot *slots.Slot, token *tokens.BookingToken) (*notifications.DispatchResult, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.dispatched = append(d.dispatched, entry.ID)
	return &notifications.DispatchResult{TokenID: token.ID, SMSSent: true, AnyDelivered: true}, nil
}

func (d *countingDispatcher) SendBookingConfirmation(ctx context.Context, entry *waitlist.WaitlistEntry, slot *slots.Slot, token *tokens.BookingToken) {
}

// statusRecordingDispatcher records the stored slot status at the moment
// each offer goes out.
type statusRecordingDispatcher struct {
	repo     *fakeSlotRepo
	mu       sync.Mutex
	statuses []slots.SlotStatus
}

func (d *statusRecordingDispatcher) Dispatch(ctx context.Context, entry *waitlist.WaitlistEntry, slot *slots.Slot, token *tokens.BookingToken) (*notifications.DispatchResult, error) {
	stored, err := d.repo.GetSlotByID(ctx, slot.ID)
	if err != nil {
		return nil, err
	}
	d.mu.Lock()
	d.statuses = append(d.statuses, stored.Status)
	d.mu.Unlock()
	return &notifications.DispatchResult{TokenID: token.ID, SMSSent: true, AnyDelivered: true}, nil
}

func (d *statusRecordingDispatcher) SendBookingConfirmation(ctx context.Context, entry *waitlist.WaitlistEntry, slot *slots.Slot, token *tokens.BookingToken) {
}

type capturePublisher struct {
	mu    sync.Mutex
	types []events.SlotEventType
}

func (p *capturePublisher) Publish(ctx context.Context, event *events.SlotEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.types = append(p.types, event.Type)
	return nil
}

func (p *capturePublisher) Close() error { return nil }

func (p *capturePublisher) published() []events.SlotEventType {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]events.SlotEventType(nil), p.types...)
}

type fixture struct {
	service    Service
	slotRepo   *fakeSlotRepo
	entryRepo  *fakeEntryRepo
	tokenRepo  *fakeTokenRepo
	dispatcher *countingDispatcher
	publisher  *capturePublisher
}

func newFixture(waveSize int) *fixture {
	slotRepo := newFakeSlotRepo()
	entryRepo := newFakeEntryRepo()
	tokenRepo := newFakeTokenRepo()
	dispatcher := &countingDispatcher{}
	publisher := &capturePublisher{}

	svc := NewService(ServiceDeps{
		SlotRepo:   slotRepo,
		EntryRepo:  entryRepo,
		Matcher:    matching.NewMatcher(entryRepo, tokenRepo),
		Issuer:     tokens.NewIssuer(tokenRepo),
		Dispatcher: dispatcher,
		Publisher:  publisher,
		Fill: config.FillConfig{
			WaveSize: waveSize,
			TokenTTL: 2 * time.Hour,
		},
		Logger: logger.New(),
	})

	return &fixture{
		service:    svc,
		slotRepo:   slotRepo,
		entryRepo:  entryRepo,
		tokenRepo:  tokenRepo,
		dispatcher: dispatcher,
		publisher:  publisher,
	}
}

func (f *fixture) addSlot(t *testing.T, status slots.SlotStatus) *slots.Slot {
	t.Helper()
	slot := &slots.Slot{
		ID:        uuid.New(),
		Date:      "2026-09-01",
		StartTime: "09:00",
		Specialty: "Dermatology",
		Provider:  "Dr. Reyes",
		Status:    status,
	}
	require.NoError(t, f.slotRepo.CreateSlot(context.Background(), slot))
	return slot
}

func (f *fixture) addEntries(t *testing.T, slot *slots.Slot, n int) []uuid.UUID {
	t.Helper()
	base := time.Now().Add(-time.Hour)
	ids := make([]uuid.UUID, 0, n)
	for i := 0; i < n; i++ {
		entry := &waitlist.WaitlistEntry{
			ID:              uuid.New(),
			Name:            "Patient",
			Phone:           "+15550003333",
			Email:           "patient@example.com",
			Specialty:       slot.Specialty,
			PreferredDates:  waitlist.StringList{slot.Date},
			TimePreferences: waitlist.StringList{"any"},
			Active:          true,
			CreatedAt:       base.Add(time.Duration(i) * time.Minute),
		}
		require.NoError(t, f.entryRepo.CreateEntry(context.Background(), entry))
		ids = append(ids, entry.ID)
	}
	return ids
}

func TestCancelScheduledSlotRunsFirstWave(t *testing.T) {
	f := newFixture(10)
	slot := f.addSlot(t, slots.SlotStatusScheduled)
	f.addEntries(t, slot, 3)

	require.NoError(t, f.service.OnSlotCancelled(context.Background(), slot.ID))

	stored, err := f.slotRepo.GetSlotByID(context.Background(), slot.ID)
	require.NoError(t, err)
	assert.Equal(t, slots.SlotStatusOffering, stored.Status)
	assert.NotNil(t, stored.CancelledAt)
	assert.Equal(t, 0, stored.Wave)

	issued, err := f.tokenRepo.ListBySlotAndWave(context.Background(), slot.ID, 0)
	require.NoError(t, err)
	assert.Len(t, issued, 3)

	assert.Len(t, f.dispatcher.dispatched, 3)
	assert.Equal(t, []events.SlotEventType{events.SlotEventOffering}, f.publisher.published())
}

func TestCancelRespectsWaveSize(t *testing.T) {
	f := newFixture(2)
	slot := f.addSlot(t, slots.SlotStatusScheduled)
	f.addEntries(t, slot, 5)

	require.NoError(t, f.service.OnSlotCancelled(context.Background(), slot.ID))

	issued, err := f.tokenRepo.ListBySlot(context.Background(), slot.ID)
	require.NoError(t, err)
	assert.Len(t, issued, 2)
}

func TestCancelWithEmptyWaitlist(t *testing.T) {
	f := newFixture(10)
	slot := f.addSlot(t, slots.SlotStatusScheduled)

	require.NoError(t, f.service.OnSlotCancelled(context.Background(), slot.ID))

	stored, err := f.slotRepo.GetSlotByID(context.Background(), slot.ID)
	require.NoError(t, err)
	assert.Equal(t, slots.SlotStatusUnfilled, stored.Status)
	assert.Equal(t, []events.SlotEventType{events.SlotEventUnfilled}, f.publisher.published())
}

func TestCancelIdempotentWhileOffering(t *testing.T) {
	f := newFixture(10)
	slot := f.addSlot(t, slots.SlotStatusScheduled)
	f.addEntries(t, slot, 2)

	require.NoError(t, f.service.OnSlotCancelled(context.Background(), slot.ID))
	require.NoError(t, f.service.OnSlotCancelled(context.Background(), slot.ID))

	issued, err := f.tokenRepo.ListBySlot(context.Background(), slot.ID)
	require.NoError(t, err)
	assert.Len(t, issued, 2, "a repeated cancellation must not re-notify")
	assert.Len(t, f.dispatcher.dispatched, 2)
}

func TestCancelConcludedSlot(t *testing.T) {
	f := newFixture(10)
	slot := f.addSlot(t, slots.SlotStatusUnfilled)

	err := f.service.OnSlotCancelled(context.Background(), slot.ID)
	assert.ErrorIs(t, err, ErrCycleConcluded)
}

func TestRecancelFilledSlotOpensFreshCycle(t *testing.T) {
	f := newFixture(10)
	slot := f.addSlot(t, slots.SlotStatusFilled)
	f.slotRepo.mu.Lock()
	stored := f.slotRepo.slots[slot.ID]
	stored.Wave = 3
	stored.PatientName = "Prior Patient"
	stored.PatientPhone = "+15550009999"
	stored.PatientEmail = "prior@example.com"
	stored.BookedVia = "waitlist"
	f.slotRepo.mu.Unlock()

	f.addEntries(t, slot, 1)

	require.NoError(t, f.service.OnSlotCancelled(context.Background(), slot.ID))

	fresh, err := f.slotRepo.GetSlotByID(context.Background(), slot.ID)
	require.NoError(t, err)
	assert.Equal(t, slots.SlotStatusOffering, fresh.Status)
	assert.Equal(t, 0, fresh.Wave)
	assert.Empty(t, fresh.PatientName)
	assert.Empty(t, fresh.BookedVia)
}

func TestOffersGoOutAfterSlotIsClaimable(t *testing.T) {
	slotRepo := newFakeSlotRepo()
	entryRepo := newFakeEntryRepo()
	tokenRepo := newFakeTokenRepo()
	dispatcher := &statusRecordingDispatcher{repo: slotRepo}

	svc := NewService(ServiceDeps{
		SlotRepo:   slotRepo,
		EntryRepo:  entryRepo,
		Matcher:    matching.NewMatcher(entryRepo, tokenRepo),
		Issuer:     tokens.NewIssuer(tokenRepo),
		Dispatcher: dispatcher,
		Publisher:  &capturePublisher{},
		Fill: config.FillConfig{
			WaveSize: 10,
			TokenTTL: 2 * time.Hour,
		},
		Logger: logger.New(),
	})

	slot := &slots.Slot{
		ID:        uuid.New(),
		Date:      "2026-09-01",
		StartTime: "09:00",
		Specialty: "Dermatology",
		Provider:  "Dr. Reyes",
		Status:    slots.SlotStatusScheduled,
	}
	require.NoError(t, slotRepo.CreateSlot(context.Background(), slot))

	base := time.Now().Add(-time.Hour)
	for i := 0; i < 3; i++ {
		entry := &waitlist.WaitlistEntry{
			ID:              uuid.New(),
			Name:            "Patient",
			Phone:           "+15550003333",
			Email:           "patient@example.com",
			Specialty:       slot.Specialty,
			PreferredDates:  waitlist.StringList{slot.Date},
			TimePreferences: waitlist.StringList{"any"},
			Active:          true,
			CreatedAt:       base.Add(time.Duration(i) * time.Minute),
		}
		require.NoError(t, entryRepo.CreateEntry(context.Background(), entry))
	}

	require.NoError(t, svc.OnSlotCancelled(context.Background(), slot.ID))

	require.Len(t, dispatcher.statuses, 3)
	for _, status := range dispatcher.statuses {
		assert.Equal(t, slots.SlotStatusOffering, status,
			"a patient clicking the instant the message lands must find a claimable slot")
	}
}

func TestAdvanceWaveSkipsStaleSnapshotOfFilledSlot(t *testing.T) {
	f := newFixture(10)
	slot := f.addSlot(t, slots.SlotStatusScheduled)
	f.addEntries(t, slot, 2)

	require.NoError(t, f.service.OnSlotCancelled(context.Background(), slot.ID))

	snapshot, err := f.slotRepo.GetSlotByID(context.Background(), slot.ID)
	require.NoError(t, err)
	require.Equal(t, slots.SlotStatusOffering, snapshot.Status)

	// A claim wins between the snapshot and the wave advance.
	ok, err := f.slotRepo.CompareAndSetStatus(context.Background(), slot.ID,
		slots.SlotStatusOffering, slots.SlotStatusFilled, nil)
	require.NoError(t, err)
	require.True(t, ok)

	require.NoError(t, f.service.AdvanceWave(context.Background(), snapshot))

	after, err := f.slotRepo.GetSlotByID(context.Background(), slot.ID)
	require.NoError(t, err)
	assert.Equal(t, slots.SlotStatusFilled, after.Status)
	assert.Equal(t, 0, after.Wave)

	all, err := f.tokenRepo.ListBySlot(context.Background(), slot.ID)
	require.NoError(t, err)
	assert.Len(t, all, 2, "a filled slot must not get a fresh wave of tokens")
	assert.Len(t, f.dispatcher.dispatched, 2)
}

func TestAdvanceWaveNotifiesNextBatch(t *testing.T) {
	f := newFixture(2)
	slot := f.addSlot(t, slots.SlotStatusScheduled)
	f.addEntries(t, slot, 4)

	require.NoError(t, f.service.OnSlotCancelled(context.Background(), slot.ID))

	current, err := f.slotRepo.GetSlotByID(context.Background(), slot.ID)
	require.NoError(t, err)
	require.NoError(t, f.service.AdvanceWave(context.Background(), current))

	after, err := f.slotRepo.GetSlotByID(context.Background(), slot.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, after.Wave)
	assert.Equal(t, slots.SlotStatusOffering, after.Status)

	waveOne, err := f.tokenRepo.ListBySlotAndWave(context.Background(), slot.ID, 1)
	require.NoError(t, err)
	assert.Len(t, waveOne, 2)

	all, err := f.tokenRepo.ListBySlot(context.Background(), slot.ID)
	require.NoError(t, err)
	assert.Len(t, all, 4, "wave two must not re-bind wave-one entries")
}

func TestAdvanceWaveExhaustedWaitlist(t *testing.T) {
	f := newFixture(10)
	slot := f.addSlot(t, slots.SlotStatusScheduled)
	f.addEntries(t, slot, 2)

	require.NoError(t, f.service.OnSlotCancelled(context.Background(), slot.ID))

	current, err := f.slotRepo.GetSlotByID(context.Background(), slot.ID)
	require.NoError(t, err)
	require.NoError(t, f.service.AdvanceWave(context.Background(), current))

	after, err := f.slotRepo.GetSlotByID(context.Background(), slot.ID)
	require.NoError(t, err)
	assert.Equal(t, slots.SlotStatusUnfilled, after.Status)

	published := f.publisher.published()
	require.Len(t, published, 2)
	assert.Equal(t, events.SlotEventOffering, published[0])
	assert.Equal(t, events.SlotEventUnfilled, published[1])
}

func TestAdvanceWaveIgnoresNonOfferingSlots(t *testing.T) {
	f := newFixture(10)
	slot := f.addSlot(t, slots.SlotStatusFilled)

	current, err := f.slotRepo.GetSlotByID(context.Background(), slot.ID)
	require.NoError(t, err)
	require.NoError(t, f.service.AdvanceWave(context.Background(), current))

	after, err := f.slotRepo.GetSlotByID(context.Background(), slot.ID)
	require.NoError(t, err)
	assert.Equal(t, slots.SlotStatusFilled, after.Status)
	assert.Equal(t, 0, after.Wave)
}
