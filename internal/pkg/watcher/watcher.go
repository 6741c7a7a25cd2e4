package watcher

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/pagflow/pagflow/app/models"
	"github.com/pagflow/pagflow/internal/pkg/orchestrator"
	"gorm.io/gorm"
)

const (
	// DefaultInterval matches the several-second poll period the checkout
	// UI expects.
	DefaultInterval = 5 * time.Second
	// DefaultMaxPolls caps polling at roughly five minutes.
	DefaultMaxPolls = 60

	lockTTL = 30 * time.Second
)

// StatusFetcher queries the gateway for the current status of a payment.
type StatusFetcher func(ctx context.Context, gatewayPaymentID string) (string, error)

// Locker serializes status requests per payment id so a new poll never
// overlaps a pending one, across instances.
type Locker interface {
	Acquire(key string, ttl time.Duration) (bool, error)
	Release(key string) error
}

// Result describes how a watch ended. Reaching the poll cap is a degraded
// "still pending, check back later" outcome, not an error.
type Result struct {
	GatewayPaymentID string
	FinalStatus      string
	Polls            int
	IsMaxPolls       bool
	Terminal         bool
}

// Watcher polls payment status on a fixed interval until a terminal state or
// the poll cap, applying confirmed transitions through the status service.
type Watcher struct {
	fetch    StatusFetcher
	status   *orchestrator.StatusService
	locker   Locker
	Interval time.Duration
	MaxPolls int
}

func New(fetch StatusFetcher, status *orchestrator.StatusService, locker Locker) *Watcher {
	return &Watcher{
		fetch:    fetch,
		status:   status,
		locker:   locker,
		Interval: DefaultInterval,
		MaxPolls: DefaultMaxPolls,
	}
}

// Watch blocks until a terminal status, the poll cap or context
// cancellation. The ticker is always released on return.
func (w *Watcher) Watch(ctx context.Context, gatewayPaymentID string) (*Result, error) {
	result := &Result{
		GatewayPaymentID: gatewayPaymentID,
		FinalStatus:      models.OrderStatusPending,
	}

	ticker := time.NewTicker(w.Interval)
	defer ticker.Stop()

	for result.Polls < w.MaxPolls {
		select {
		case <-ctx.Done():
			return result, ctx.Err()
		case <-ticker.C:
		}

		status, polled, err := w.pollOnce(ctx, gatewayPaymentID)
		if !polled {
			// Another request for this payment is in flight; skip the tick.
			continue
		}
		result.Polls++
		if err != nil {
			// Transient gateway trouble: keep polling, the cap bounds us.
			log.Printf("watcher: poll %d for %s failed: %v", result.Polls, gatewayPaymentID, err)
			continue
		}

		result.FinalStatus = status
		if models.IsTerminalOrderStatus(status) {
			result.Terminal = true
			w.applyTransition(gatewayPaymentID, status)
			return result, nil
		}
	}

	result.IsMaxPolls = true
	return result, nil
}

// pollOnce performs a single status request under the per-payment lock.
func (w *Watcher) pollOnce(ctx context.Context, gatewayPaymentID string) (string, bool, error) {
	lockKey := "watch:" + gatewayPaymentID
	acquired, err := w.locker.Acquire(lockKey, lockTTL)
	if err != nil {
		log.Printf("watcher: lock for %s unavailable: %v", gatewayPaymentID, err)
		// Degrade to unlocked polling rather than stalling checkout.
		acquired = true
	} else if !acquired {
		return "", false, nil
	}
	defer func() {
		if err := w.locker.Release(lockKey); err != nil {
			log.Printf("watcher: lock release for %s failed: %v", gatewayPaymentID, err)
		}
	}()

	status, err := w.fetch(ctx, gatewayPaymentID)
	return status, true, err
}

func (w *Watcher) applyTransition(gatewayPaymentID, status string) {
	if w.status == nil {
		return
	}
	if _, err := w.status.TransitionByGatewayPaymentID(gatewayPaymentID, status, "watcher"); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) || errors.Is(err, orchestrator.ErrInvalidTransition) {
			log.Printf("watcher: transition for %s to %s skipped: %v", gatewayPaymentID, status, err)
			return
		}
		log.Printf("watcher: transition for %s to %s failed: %v", gatewayPaymentID, status, err)
	}
}
