package notifications

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/vedants521/CancelFillMD/internal/shared/config"
	"github.com/vedants521/CancelFillMD/internal/slots"
	"github.com/vedants521/CancelFillMD/internal/tokens"
	"github.com/vedants521/CancelFillMD/internal/waitlist"
	"github.com/vedants521/CancelFillMD/pkg/logger"

	"github.com/google/uuid"
)

// NotifiedCounter bumps a waitlist entry's notified count. Implemented by
// the waitlist repository; declared here to avoid a package cycle.
type NotifiedCounter interface {
	IncrementNotifiedCount(ctx context.Context, id uuid.UUID) error
}

// Dispatcher delivers slot offers and booking confirmations
type Dispatcher interface {
	// Dispatch offers the slot to one entry over SMS and email
	// concurrently. A failed dispatch is reported in the result, not as
	// an error; errors are reserved for infrastructure problems.
	Dispatch(ctx context.Context, entry *waitlist.WaitlistEntry, slot *slots.Slot, token *tokens.BookingToken) (*DispatchResult, error)

	// SendBookingConfirmation notifies the winner that the slot is theirs
	// and copies the staff mailbox when one is configured.
	SendBookingConfirmation(ctx context.Context, entry *waitlist.WaitlistEntry, slot *slots.Slot, token *tokens.BookingToken)
}

type dispatcher struct {
	repo     Repository
	sms      SMSSender
	email    EmailSender
	notified NotifiedCounter
	fillCfg  config.FillConfig
	appURL   string
	clinic   string
	staff    string
	log      *logger.Logger
}

type DispatcherDeps struct {
	Repo       Repository
	SMS        SMSSender
	Email      EmailSender
	Notified   NotifiedCounter
	Fill       config.FillConfig
	AppURL     string
	ClinicName string
	StaffEmail string
	Logger     *logger.Logger
}

func NewDispatcher(deps DispatcherDeps) Dispatcher {
	return &dispatcher{
		repo:     deps.Repo,
		sms:      deps.SMS,
		email:    deps.Email,
		notified: deps.Notified,
		fillCfg:  deps.Fill,
		appURL:   deps.AppURL,
		clinic:   deps.ClinicName,
		staff:    deps.StaffEmail,
		log:      deps.Logger,
	}
}

func (d *dispatcher) Dispatch(ctx context.Context, entry *waitlist.WaitlistEntry, slot *slots.Slot, token *tokens.BookingToken) (*DispatchResult, error) {
	claimURL := fmt.Sprintf("%s/claim?token=%s", d.appURL, token.Secret)
	smsBody := d.buildOfferSMS(entry, slot, claimURL, token.ExpiresAt)
	subject, htmlBody, textBody := d.buildOfferEmail(entry, slot, claimURL, token.ExpiresAt)

	result := &DispatchResult{TokenID: token.ID}

	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		result.SMSSent = d.sendWithRetries(ctx, NotificationChannelSMS, token, slot.ID, entry.ID,
			func(attemptCtx context.Context) (string, error) {
				return d.sms.Send(attemptCtx, entry.Phone, smsBody)
			})
	}()

	go func() {
		defer wg.Done()
		result.EmailSent = d.sendWithRetries(ctx, NotificationChannelEmail, token, slot.ID, entry.ID,
			func(attemptCtx context.Context) (string, error) {
				return d.email.Send(attemptCtx, entry.Email, subject, htmlBody, textBody)
			})
	}()

	wg.Wait()
	result.AnyDelivered = result.SMSSent || result.EmailSent

	if result.AnyDelivered {
		if err := d.notified.IncrementNotifiedCount(ctx, entry.ID); err != nil {
			d.log.ErrorWithContext(ctx, "failed to bump notified count", err, map[string]interface{}{
				"waitlist_entry_id": entry.ID.String(),
			})
		}
	} else {
		// The token stays ISSUED; the patient can still claim if staff
		// reach them another way.
		d.log.WarnContext(ctx, "All Notification Channels Failed",
			"slot_id", slot.ID.String(),
			"waitlist_entry_id", entry.ID.String(),
			"token_id", token.ID.String(),
		)
	}

	return result, nil
}

// sendWithRetries runs one channel's delivery with a per-attempt timeout
// and bounded retries. Every attempt leaves a record.
func (d *dispatcher) sendWithRetries(ctx context.Context, channel NotificationChannel, token *tokens.BookingToken, slotID, entryID uuid.UUID, send func(context.Context) (string, error)) bool {
	attempts := d.fillCfg.DispatchRetries
	if attempts < 1 {
		attempts = 1
	}
	backoff := d.fillCfg.RetryBackoff

	for attempt := 1; attempt <= attempts; attempt++ {
		attemptCtx, cancel := context.WithTimeout(ctx, d.fillCfg.ChannelTimeout)
		start := time.Now()
		providerID, err := send(attemptCtx)
		latency := time.Since(start)
		cancel()

		d.record(ctx, channel, token, slotID, entryID, providerID, err, latency, attempt)

		if err == nil {
			return true
		}
		if IsPermanentSendError(err) {
			return false
		}
		if attempt < attempts {
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return false
			}
			backoff *= 2
		}
	}
	return false
}

func (d *dispatcher) record(ctx context.Context, channel NotificationChannel, token *tokens.BookingToken, slotID, entryID uuid.UUID, providerID string, sendErr error, latency time.Duration, attempt int) {
	rec := &NotificationRecord{
		ID:              uuid.New(),
		TokenID:         token.ID,
		SlotID:          slotID,
		WaitlistEntryID: entryID,
		Channel:         channel,
		Status:          NotificationStatusSent,
		LatencyMs:       latency.Milliseconds(),
		Attempt:         attempt,
		SentAt:          time.Now(),
	}
	if providerID != "" {
		rec.ProviderID = &providerID
	}
	if sendErr != nil {
		rec.Status = NotificationStatusFailed
		msg := sendErr.Error()
		rec.ErrorMessage = &msg
	}

	if err := d.repo.CreateRecord(ctx, rec); err != nil {
		d.log.ErrorWithContext(ctx, "failed to append notification record", err, map[string]interface{}{
			"token_id": token.ID.String(),
			"channel":  string(channel),
		})
	}
}

func (d *dispatcher) SendBookingConfirmation(ctx context.Context, entry *waitlist.WaitlistEntry, slot *slots.Slot, token *tokens.BookingToken) {
	when := fmt.Sprintf("%s at %s", slot.Date, slot.StartTime)

	smsBody := fmt.Sprintf("%s: you're booked! %s appointment with %s on %s. Reply STOP to opt out.",
		d.clinic, slot.Specialty, slot.Provider, when)
	if _, err := d.sms.Send(ctx, entry.Phone, smsBody); err != nil {
		d.log.ErrorWithContext(ctx, "failed to send booking confirmation SMS", err, map[string]interface{}{
			"waitlist_entry_id": entry.ID.String(),
		})
	}

	subject := fmt.Sprintf("Appointment confirmed: %s on %s", slot.Specialty, when)
	textBody := fmt.Sprintf("Hi %s,\n\nYour %s appointment with %s on %s is confirmed.\n\n%s",
		entry.Name, slot.Specialty, slot.Provider, when, d.clinic)
	htmlBody := fmt.Sprintf(`
		<h2>Appointment Confirmed</h2>
		<p>Hi %s,</p>
		<p>Your <strong>%s</strong> appointment with %s on <strong>%s</strong> is confirmed.</p>
		<p>%s</p>
	`, entry.Name, slot.Specialty, slot.Provider, when, d.clinic)
	if _, err := d.email.Send(ctx, entry.Email, subject, htmlBody, textBody); err != nil {
		d.log.ErrorWithContext(ctx, "failed to send booking confirmation email", err, map[string]interface{}{
			"waitlist_entry_id": entry.ID.String(),
		})
	}

	if d.staff != "" {
		staffSubject := fmt.Sprintf("Slot filled: %s %s (%s)", slot.Date, slot.StartTime, slot.Provider)
		staffBody := fmt.Sprintf("Slot %s was filled from the waitlist by %s (%s, %s).",
			slot.ID, entry.Name, entry.Phone, entry.Email)
		if _, err := d.email.Send(ctx, d.staff, staffSubject, "", staffBody); err != nil {
			d.log.ErrorWithContext(ctx, "failed to notify staff of fill", err, map[string]interface{}{
				"slot_id": slot.ID.String(),
			})
		}
	}
}

func (d *dispatcher) buildOfferSMS(entry *waitlist.WaitlistEntry, slot *slots.Slot, claimURL string, expiresAt time.Time) string {
	return fmt.Sprintf("%s: an earlier %s appointment opened on %s at %s with %s. Book now (expires %s): %s",
		d.clinic, slot.Specialty, slot.Date, slot.StartTime, slot.Provider,
		expiresAt.Format("3:04 PM"), claimURL)
}

func (d *dispatcher) buildOfferEmail(entry *waitlist.WaitlistEntry, slot *slots.Slot, claimURL string, expiresAt time.Time) (subject, htmlBody, textBody string) {
	when := fmt.Sprintf("%s at %s", slot.Date, slot.StartTime)
	subject = fmt.Sprintf("Earlier appointment available: %s on %s", slot.Specialty, when)

	htmlBody = fmt.Sprintf(`
		<h2>An earlier appointment just opened up</h2>
		<p>Hi %s,</p>
		<p>A <strong>%s</strong> appointment with %s is available on <strong>%s</strong>.</p>
		<p><a href="%s">Claim this appointment</a> before %s. First come, first served.</p>
		<p>%s</p>
	`, entry.Name, slot.Specialty, slot.Provider, when, claimURL, expiresAt.Format("Jan 2 3:04 PM"), d.clinic)

	textBody = fmt.Sprintf(
		"Hi %s,\n\nA %s appointment with %s is available on %s.\nClaim it before %s: %s\n\nFirst come, first served.\n%s",
		entry.Name, slot.Specialty, slot.Provider, when,
		expiresAt.Format("Jan 2 3:04 PM"), claimURL, d.clinic)

	return subject, htmlBody, textBody
}
