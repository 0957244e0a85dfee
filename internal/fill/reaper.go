package fill

import (
	"context"
	"time"

	"github.com/vedants521/CancelFillMD/internal/slots"
	"github.com/vedants521/CancelFillMD/internal/tokens"
	"github.com/vedants521/CancelFillMD/internal/waitlist"
	"github.com/vedants521/CancelFillMD/pkg/logger"

	"github.com/redis/go-redis/v9"
)

// Reaper is the background job that expires overdue tokens and moves
// stalled OFFERING slots forward: next wave, or UNFILLED.
type Reaper struct {
	service   Service
	slotRepo  slots.Repository
	tokenRepo tokens.Repository
	redis     *redis.Client
	interval  time.Duration
	lockTTL   time.Duration
	log       *logger.Logger
	done      chan struct{}
}

type ReaperDeps struct {
	Service   Service
	SlotRepo  slots.Repository
	TokenRepo tokens.Repository
	Redis     *redis.Client
	Interval  time.Duration
	LockTTL   time.Duration
	Logger    *logger.Logger
}

func NewReaper(deps ReaperDeps) *Reaper {
	return &Reaper{
		service:   deps.Service,
		slotRepo:  deps.SlotRepo,
		tokenRepo: deps.TokenRepo,
		redis:     deps.Redis,
		interval:  deps.Interval,
		lockTTL:   deps.LockTTL,
		log:       deps.Logger,
		done:      make(chan struct{}),
	}
}

// Start runs the reaper loop until Stop is called or ctx is cancelled.
func (r *Reaper) Start(ctx context.Context) {
	go r.run(ctx)
	r.log.InfoWithContext(ctx, "expiry reaper started", map[string]interface{}{
		"interval": r.interval.String(),
	})
}

// Stop stops the reaper loop
func (r *Reaper) Stop() {
	close(r.done)
}

func (r *Reaper) run(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			r.pass(ctx)
		case <-r.done:
			return
		case <-ctx.Done():
			return
		}
	}
}

// pass is one reaper sweep: expire overdue tokens, then advance every
// OFFERING slot whose current wave is fully terminal.
func (r *Reaper) pass(ctx context.Context) {
	expired, err := r.tokenRepo.ExpireOverdue(ctx, time.Now())
	if err != nil {
		r.log.ErrorWithContext(ctx, "failed to expire overdue tokens", err, nil)
		return
	}
	if expired > 0 {
		r.log.InfoWithContext(ctx, "expired overdue tokens", map[string]interface{}{
			"count": expired,
		})
	}

	offering, err := r.slotRepo.ListSlotsByStatus(ctx, slots.SlotStatusOffering)
	if err != nil {
		r.log.ErrorWithContext(ctx, "failed to list offering slots", err, nil)
		return
	}

	for i := range offering {
		r.processSlot(ctx, &offering[i])
	}
}

// processSlot advances one slot under a per-slot lock, so each slot is
// logically single-threaded even with several reaper instances.
func (r *Reaper) processSlot(ctx context.Context, slot *slots.Slot) {
	lockKey := waitlist.GetSlotLockKey(slot.ID)
	acquired, err := r.redis.SetNX(ctx, lockKey, "locked", r.lockTTL).Result()
	if err != nil {
		r.log.ErrorWithContext(ctx, "failed to acquire slot lock", err, map[string]interface{}{
			"slot_id": slot.ID.String(),
		})
		return
	}
	if !acquired {
		return
	}
	defer r.redis.Del(ctx, lockKey)

	// The pass snapshot ages while earlier slots are processed; a claim
	// may have filled this one since. Re-read under the lock.
	fresh, err := r.slotRepo.GetSlotByID(ctx, slot.ID)
	if err != nil {
		r.log.ErrorWithContext(ctx, "failed to refresh slot", err, map[string]interface{}{
			"slot_id": slot.ID.String(),
		})
		return
	}
	if fresh.Status != slots.SlotStatusOffering {
		return
	}
	slot = fresh

	stalled, err := r.waveStalled(ctx, slot)
	if err != nil {
		r.log.ErrorWithContext(ctx, "failed to inspect wave tokens", err, map[string]interface{}{
			"slot_id": slot.ID.String(),
		})
		return
	}
	if !stalled {
		return
	}

	if err := r.service.AdvanceWave(ctx, slot); err != nil {
		r.log.ErrorWithContext(ctx, "failed to advance wave", err, map[string]interface{}{
			"slot_id": slot.ID.String(),
			"wave":    slot.Wave,
		})
	}
}

// waveStalled reports whether every token of the slot's current wave is
// terminal. A wave with no tokens counts as stalled.
func (r *Reaper) waveStalled(ctx context.Context, slot *slots.Slot) (bool, error) {
	waveTokens, err := r.tokenRepo.ListBySlotAndWave(ctx, slot.ID, slot.Wave)
	if err != nil {
		return false, err
	}
	for i := range waveTokens {
		if !waveTokens[i].IsTerminal() {
			return false, nil
		}
	}
	return true, nil
}
