package tokens

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"github.com/vedants521/CancelFillMD/internal/slots"

	"github.com/google/uuid"
)

// ErrDuplicateBinding reports that an unexpired token already exists for
// the (slot, entry) pair. The existing token is returned alongside it.
var ErrDuplicateBinding = errors.New("token already issued for this slot and entry")

// Issuer mints booking tokens for notification waves
type Issuer interface {
	// Issue creates an ISSUED token binding entry to slot. Issuing twice
	// for the same pair returns the live token with ErrDuplicateBinding
	// instead of minting a second one.
	Issue(ctx context.Context, slot *slots.Slot, entryID uuid.UUID, ttl time.Duration) (*BookingToken, error)
}

type issuer struct {
	repo Repository
}

func NewIssuer(repo Repository) Issuer {
	return &issuer{repo: repo}
}

func (i *issuer) Issue(ctx context.Context, slot *slots.Slot, entryID uuid.UUID, ttl time.Duration) (*BookingToken, error) {
	existing, err := i.repo.GetBySlotAndEntry(ctx, slot.ID, entryID)
	if err != nil && !errors.Is(err, ErrTokenNotFound) {
		return nil, fmt.Errorf("failed to check existing token: %w", err)
	}
	if existing != nil {
		// The pair keeps its original binding whatever state the token
		// is in; the entry is never notified twice for one slot.
		return existing, ErrDuplicateBinding
	}

	secret, err := newSecret()
	if err != nil {
		return nil, fmt.Errorf("failed to generate token secret: %w", err)
	}

	now := time.Now()
	token := &BookingToken{
		ID:              uuid.New(),
		Secret:          secret,
		SlotID:          slot.ID,
		WaitlistEntryID: entryID,
		Wave:            slot.Wave,
		State:           TokenStateIssued,
		IssuedAt:        now,
		ExpiresAt:       now.Add(ttl),
	}

	if err := i.repo.Create(ctx, token); err != nil {
		return nil, fmt.Errorf("failed to persist token: %w", err)
	}
	return token, nil
}

// newSecret returns 32 bytes of crypto/rand entropy, base64url encoded.
func newSecret() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
