package notifications

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/vedants521/CancelFillMD/internal/shared/config"
	"github.com/vedants521/CancelFillMD/internal/slots"
	"github.com/vedants521/CancelFillMD/internal/tokens"
	"github.com/vedants521/CancelFillMD/internal/waitlist"
	"github.com/vedants521/CancelFillMD/pkg/logger"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingRepo struct {
	mu      sync.Mutex
	records []NotificationRecord
}

func (r *recordingRepo) CreateRecord(ctx context.Context, record *NotificationRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records = append(r.records, *record)
	return nil
}

func (r *recordingRepo) ListBySlot(ctx context.Context, slotID uuid.UUID) ([]NotificationRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]NotificationRecord(nil), r.records...), nil
}

func (r *recordingRepo) ListByEntry(ctx context.Context, entryID uuid.UUID) ([]NotificationRecord, error) {
	return r.ListBySlot(ctx, uuid.Nil)
}

func (r *recordingRepo) byChannel(channel NotificationChannel) []NotificationRecord {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []NotificationRecord
	for _, rec := range r.records {
		if rec.Channel == channel {
			out = append(out, rec)
		}
	}
	return out
}

// scriptedSMS fails the first failures calls, then succeeds.
type scriptedSMS struct {
	mu       sync.Mutex
	failures int
	err      error
	calls    int
}

func (s *scriptedSMS) Send(ctx context.Context, toNumber, body string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.calls <= s.failures {
		return "", s.err
	}
	return "SM" + uuid.NewString(), nil
}

type scriptedEmail struct {
	mu       sync.Mutex
	failures int
	err      error
	calls    int
}

func (s *scriptedEmail) Send(ctx context.Context, to, subject, htmlBody, textBody string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.calls <= s.failures {
		return "", s.err
	}
	return "smtp-" + uuid.NewString(), nil
}

type countingNotified struct {
	mu    sync.Mutex
	calls int
}

func (c *countingNotified) IncrementNotifiedCount(ctx context.Context, id uuid.UUID) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls++
	return nil
}

func testFillConfig() config.FillConfig {
	return config.FillConfig{
		WaveSize:        10,
		TokenTTL:        2 * time.Hour,
		ChannelTimeout:  time.Second,
		DispatchRetries: 3,
		RetryBackoff:    time.Millisecond,
	}
}

func newTestDispatcher(repo Repository, sms SMSSender, email EmailSender, counter NotifiedCounter) Dispatcher {
	return NewDispatcher(DispatcherDeps{
		Repo:       repo,
		SMS:        sms,
		Email:      email,
		Notified:   counter,
		Fill:       testFillConfig(),
		AppURL:     "https://clinic.example.com",
		ClinicName: "Lakeside Clinic",
		Logger:     logger.New(),
	})
}

func dispatchFixtures() (*waitlist.WaitlistEntry, *slots.Slot, *tokens.BookingToken) {
	entry := &waitlist.WaitlistEntry{
		ID:    uuid.New(),
		Name:  "Sam Lee",
		Phone: "+15550002222",
		Email: "sam@example.com",
	}
	slot := &slots.Slot{
		ID:        uuid.New(),
		Date:      "2026-09-01",
		StartTime: "10:00",
		Specialty: "Dentistry",
		Provider:  "Dr. Kim",
		Status:    slots.SlotStatusOffering,
	}
	now := time.Now()
	token := &tokens.BookingToken{
		ID:              uuid.New(),
		Secret:          "test-secret",
		SlotID:          slot.ID,
		WaitlistEntryID: entry.ID,
		State:           tokens.TokenStateIssued,
		IssuedAt:        now,
		ExpiresAt:       now.Add(2 * time.Hour),
	}
	return entry, slot, token
}

func TestDispatchBothChannelsSucceed(t *testing.T) {
	repo := &recordingRepo{}
	counter := &countingNotified{}
	d := newTestDispatcher(repo, &scriptedSMS{}, &scriptedEmail{}, counter)
	entry, slot, token := dispatchFixtures()

	result, err := d.Dispatch(context.Background(), entry, slot, token)
	require.NoError(t, err)
	assert.True(t, result.SMSSent)
	assert.True(t, result.EmailSent)
	assert.True(t, result.AnyDelivered)

	assert.Len(t, repo.records, 2)
	assert.Equal(t, 1, counter.calls, "notified count bumps once per dispatch")

	for _, rec := range repo.records {
		assert.Equal(t, NotificationStatusSent, rec.Status)
		assert.Equal(t, token.ID, rec.TokenID)
		assert.NotNil(t, rec.ProviderID)
	}
}

func TestDispatchOneChannelDown(t *testing.T) {
	repo := &recordingRepo{}
	counter := &countingNotified{}
	sms := &scriptedSMS{failures: 99, err: errors.New("twilio 500")}
	d := newTestDispatcher(repo, sms, &scriptedEmail{}, counter)
	entry, slot, token := dispatchFixtures()

	result, err := d.Dispatch(context.Background(), entry, slot, token)
	require.NoError(t, err)
	assert.False(t, result.SMSSent)
	assert.True(t, result.EmailSent)
	assert.True(t, result.AnyDelivered)
	assert.Equal(t, 1, counter.calls)

	smsRecords := repo.byChannel(NotificationChannelSMS)
	assert.Len(t, smsRecords, 3, "transient failures retry up to the attempt cap")
	for _, rec := range smsRecords {
		assert.Equal(t, NotificationStatusFailed, rec.Status)
		require.NotNil(t, rec.ErrorMessage)
	}
}

func TestDispatchBothChannelsFail(t *testing.T) {
	repo := &recordingRepo{}
	counter := &countingNotified{}
	sms := &scriptedSMS{failures: 99, err: errors.New("twilio 500")}
	email := &scriptedEmail{failures: 99, err: errors.New("smtp timeout")}
	d := newTestDispatcher(repo, sms, email, counter)
	entry, slot, token := dispatchFixtures()

	result, err := d.Dispatch(context.Background(), entry, slot, token)
	require.NoError(t, err, "a failed dispatch is a result, not an error")
	assert.False(t, result.AnyDelivered)
	assert.Equal(t, 0, counter.calls, "no delivery, no fairness bump")
	assert.Len(t, repo.records, 6)
}

func TestDispatchTransientFailureThenSuccess(t *testing.T) {
	repo := &recordingRepo{}
	counter := &countingNotified{}
	sms := &scriptedSMS{failures: 2, err: errors.New("twilio 503")}
	d := newTestDispatcher(repo, sms, &scriptedEmail{}, counter)
	entry, slot, token := dispatchFixtures()

	result, err := d.Dispatch(context.Background(), entry, slot, token)
	require.NoError(t, err)
	assert.True(t, result.SMSSent)

	smsRecords := repo.byChannel(NotificationChannelSMS)
	require.Len(t, smsRecords, 3)
	assert.Equal(t, NotificationStatusFailed, smsRecords[0].Status)
	assert.Equal(t, NotificationStatusFailed, smsRecords[1].Status)
	assert.Equal(t, NotificationStatusSent, smsRecords[2].Status)
	assert.Equal(t, 3, smsRecords[2].Attempt)
}

func TestDispatchPermanentFailureSkipsRetries(t *testing.T) {
	repo := &recordingRepo{}
	counter := &countingNotified{}
	email := &scriptedEmail{failures: 99, err: NewPermanentSendError(errors.New("bad address"))}
	d := newTestDispatcher(repo, &scriptedSMS{}, email, counter)
	entry, slot, token := dispatchFixtures()

	result, err := d.Dispatch(context.Background(), entry, slot, token)
	require.NoError(t, err)
	assert.False(t, result.EmailSent)
	assert.True(t, result.SMSSent)

	assert.Len(t, repo.byChannel(NotificationChannelEmail), 1, "permanent failures are not retried")
	assert.Equal(t, 1, email.calls)
}

func TestDispatchOfferIncludesClaimLink(t *testing.T) {
	repo := &recordingRepo{}
	var captured string
	sms := smsFunc(func(ctx context.Context, to, body string) (string, error) {
		captured = body
		return "SM1", nil
	})
	d := newTestDispatcher(repo, sms, &scriptedEmail{}, &countingNotified{})
	entry, slot, token := dispatchFixtures()

	_, err := d.Dispatch(context.Background(), entry, slot, token)
	require.NoError(t, err)
	assert.Contains(t, captured, "https://clinic.example.com/claim?token=test-secret")
	assert.Contains(t, captured, slot.Specialty)
}

type smsFunc func(ctx context.Context, toNumber, body string) (string, error)

func (f smsFunc) Send(ctx context.Context, toNumber, body string) (string, error) {
	return f(ctx, toNumber, body)
}

func TestTruncateSMS(t *testing.T) {
	short := "short message"
	assert.Equal(t, short, TruncateSMS(short))

	long := strings.Repeat("a", 200)
	truncated := TruncateSMS(long)
	assert.Len(t, truncated, 160)
	assert.True(t, strings.HasSuffix(truncated, "..."))
}

func TestIsPermanentSendError(t *testing.T) {
	plain := errors.New("timeout")
	assert.False(t, IsPermanentSendError(plain))

	perm := NewPermanentSendError(errors.New("address rejected"))
	assert.True(t, IsPermanentSendError(perm))

	wrapped := errors.Join(errors.New("context"), perm)
	assert.True(t, IsPermanentSendError(wrapped))
}
