package watcher

import (
	"context"
	"log"
	"sync"
)

// Manager owns one watch goroutine per gateway payment id and cancels all of
// them on shutdown so no timers leak past teardown.
type Manager struct {
	watcher *Watcher

	mu      sync.Mutex
	cancels map[string]context.CancelFunc
	wg      sync.WaitGroup
}

func NewManager(watcher *Watcher) *Manager {
	return &Manager{
		watcher: watcher,
		cancels: make(map[string]context.CancelFunc),
	}
}

// Start begins watching a payment unless a watch for it is already running.
func (m *Manager) Start(gatewayPaymentID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, running := m.cancels[gatewayPaymentID]; running {
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	m.cancels[gatewayPaymentID] = cancel
	m.wg.Add(1)

	go func() {
		defer m.wg.Done()
		defer m.remove(gatewayPaymentID)

		result, err := m.watcher.Watch(ctx, gatewayPaymentID)
		if err != nil {
			log.Printf("watcher: watch for %s ended: %v", gatewayPaymentID, err)
			return
		}
		if result.IsMaxPolls {
			log.Printf("watcher: %s still %s after %d polls, handing off to webhook",
				gatewayPaymentID, result.FinalStatus, result.Polls)
		}
	}()
}

// Stop cancels a single watch.
func (m *Manager) Stop(gatewayPaymentID string) {
	m.mu.Lock()
	cancel, ok := m.cancels[gatewayPaymentID]
	m.mu.Unlock()
	if ok {
		cancel()
	}
}

// StopAll cancels every running watch and waits for the goroutines to exit.
func (m *Manager) StopAll() {
	m.mu.Lock()
	for _, cancel := range m.cancels {
		cancel()
	}
	m.mu.Unlock()
	m.wg.Wait()
}

func (m *Manager) remove(gatewayPaymentID string) {
	m.mu.Lock()
	delete(m.cancels, gatewayPaymentID)
	m.mu.Unlock()
}
