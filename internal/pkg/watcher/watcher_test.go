package watcher

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pagflow/pagflow/app/models"
)

// memoryLocker is an in-process stand-in for the redis lock manager.
type memoryLocker struct {
	mu     sync.Mutex
	held   map[string]bool
	denied bool
	err    error
}

func newMemoryLocker() *memoryLocker {
	return &memoryLocker{held: make(map[string]bool)}
}

func (l *memoryLocker) Acquire(key string, _ time.Duration) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.err != nil {
		return false, l.err
	}
	if l.denied || l.held[key] {
		return false, nil
	}
	l.held[key] = true
	return true, nil
}

func (l *memoryLocker) Release(key string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.held, key)
	return nil
}

// sequenceFetcher replays a fixed list of answers, then repeats the last one.
type sequenceFetcher struct {
	mu       sync.Mutex
	statuses []string
	errs     []error
	calls    int
}

func (s *sequenceFetcher) fetch(context.Context, string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.calls
	s.calls++
	if i >= len(s.statuses) {
		i = len(s.statuses) - 1
	}
	var err error
	if i < len(s.errs) {
		err = s.errs[i]
	}
	return s.statuses[i], err
}

func newTestWatcher(fetch StatusFetcher, locker Locker, maxPolls int) *Watcher {
	w := New(fetch, nil, locker)
	w.Interval = time.Millisecond
	w.MaxPolls = maxPolls
	return w
}

func TestWatchStopsOnTerminalStatus(t *testing.T) {
	seq := &sequenceFetcher{statuses: []string{
		models.OrderStatusPending,
		models.OrderStatusPending,
		models.OrderStatusConfirmed,
	}}
	w := newTestWatcher(seq.fetch, newMemoryLocker(), 60)

	result, err := w.Watch(context.Background(), "pay_1")
	require.NoError(t, err)
	assert.True(t, result.Terminal)
	assert.False(t, result.IsMaxPolls)
	assert.Equal(t, models.OrderStatusConfirmed, result.FinalStatus)
	assert.Equal(t, 3, result.Polls)
}

func TestWatchMaxPollsIsNotAnError(t *testing.T) {
	seq := &sequenceFetcher{statuses: []string{models.OrderStatusPending}}
	w := newTestWatcher(seq.fetch, newMemoryLocker(), 5)

	result, err := w.Watch(context.Background(), "pay_1")
	require.NoError(t, err)
	assert.True(t, result.IsMaxPolls)
	assert.False(t, result.Terminal)
	assert.Equal(t, models.OrderStatusPending, result.FinalStatus)
	assert.Equal(t, 5, result.Polls)
}

func TestWatchFetchErrorsCountAgainstCap(t *testing.T) {
	seq := &sequenceFetcher{
		statuses: []string{"", "", ""},
		errs:     []error{errors.New("timeout"), errors.New("timeout"), errors.New("timeout")},
	}
	w := newTestWatcher(seq.fetch, newMemoryLocker(), 3)

	result, err := w.Watch(context.Background(), "pay_1")
	require.NoError(t, err)
	assert.True(t, result.IsMaxPolls)
	assert.Equal(t, 3, result.Polls)
	// The last good status is still the initial pending.
	assert.Equal(t, models.OrderStatusPending, result.FinalStatus)
}

func TestWatchSkipsTicksWhileLockHeld(t *testing.T) {
	locker := newMemoryLocker()
	locker.denied = true

	seq := &sequenceFetcher{statuses: []string{models.OrderStatusConfirmed}}
	w := newTestWatcher(seq.fetch, locker, 60)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	result, err := w.Watch(ctx, "pay_1")
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
	// Denied locks never count as polls.
	assert.Equal(t, 0, result.Polls)
	assert.Equal(t, 0, seq.calls)
}

func TestWatchLockErrorDegradesToUnlockedPolling(t *testing.T) {
	locker := newMemoryLocker()
	locker.err = errors.New("redis down")

	seq := &sequenceFetcher{statuses: []string{models.OrderStatusConfirmed}}
	w := newTestWatcher(seq.fetch, locker, 60)

	result, err := w.Watch(context.Background(), "pay_1")
	require.NoError(t, err)
	assert.True(t, result.Terminal)
	assert.Equal(t, 1, result.Polls)
}

func TestWatchContextCancellation(t *testing.T) {
	seq := &sequenceFetcher{statuses: []string{models.OrderStatusPending}}
	w := newTestWatcher(seq.fetch, newMemoryLocker(), 1000)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	_, err := w.Watch(ctx, "pay_1")
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestManagerDeduplicatesAndStops(t *testing.T) {
	seq := &sequenceFetcher{statuses: []string{models.OrderStatusPending}}
	w := newTestWatcher(seq.fetch, newMemoryLocker(), 100000)
	m := NewManager(w)

	m.Start("pay_1")
	m.Start("pay_1") // second start is a no-op

	m.mu.Lock()
	running := len(m.cancels)
	m.mu.Unlock()
	assert.Equal(t, 1, running)

	m.StopAll()

	m.mu.Lock()
	remaining := len(m.cancels)
	m.mu.Unlock()
	assert.Zero(t, remaining)
}
