// Streamrelay - Cross-Channel Live Stream Event Reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/streamrelay

package arbitration

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tomtom215/streamrelay/internal/cache"
	"github.com/tomtom215/streamrelay/internal/dedupe"
)

var epoch = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

type fired struct {
	mu   sync.Mutex
	keys []string
}

func (f *fired) record(key string, _ string) {
	f.mu.Lock()
	f.keys = append(f.keys, key)
	f.mu.Unlock()
}

func (f *fired) list() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.keys...)
}

func TestManualSchedulerOrdering(t *testing.T) {
	s := NewManualScheduler(epoch)
	var order []int

	s.AfterFunc(3*time.Second, func() { order = append(order, 3) })
	s.AfterFunc(time.Second, func() { order = append(order, 1) })
	stopped := s.AfterFunc(2*time.Second, func() { order = append(order, 2) })
	s.AfterFunc(time.Second, func() {
		order = append(order, 11)
		s.AfterFunc(500*time.Millisecond, func() { order = append(order, 15) })
	})

	assert.True(t, stopped.Stop())
	assert.False(t, stopped.Stop())

	s.Advance(2 * time.Second)
	assert.Equal(t, []int{1, 11, 15}, order)
	assert.Equal(t, epoch.Add(2*time.Second), s.Now())
	assert.Equal(t, 1, s.Pending())

	s.Advance(time.Second)
	assert.Equal(t, []int{1, 11, 15, 3}, order)
	assert.Equal(t, 0, s.Pending())
}

func TestSharedKeyFastOnlyFiresAfterDelay(t *testing.T) {
	s := NewManualScheduler(epoch)
	var got fired
	w := NewSharedKeyWindow(5*time.Second, s, got.record)

	assert.Equal(t, Scheduled, w.Offer("m1", "socket"))
	assert.True(t, w.IsPending("m1"))

	s.Advance(5*time.Second - time.Millisecond)
	assert.Empty(t, got.list(), "must not fire before the delay")

	s.Advance(time.Millisecond)
	assert.Equal(t, []string{"m1"}, got.list())
	assert.Equal(t, 0, w.Pending())
}

func TestSharedKeyRichPreemptsPending(t *testing.T) {
	s := NewManualScheduler(epoch)
	var got fired
	w := NewSharedKeyWindow(5*time.Second, s, got.record)

	require.Equal(t, Scheduled, w.Offer("m1", "socket"))
	s.Advance(2 * time.Second)

	assert.True(t, w.Preempt("m1"))
	assert.True(t, w.Seen("m1"))
	assert.Equal(t, 0, w.Pending())

	s.Advance(10 * time.Second)
	assert.Empty(t, got.list(), "a preempted delivery never fires")
}

func TestSharedKeyFastAfterRichDropped(t *testing.T) {
	s := NewManualScheduler(epoch)
	var got fired
	w := NewSharedKeyWindow(5*time.Second, s, got.record)

	assert.False(t, w.Preempt("m1"), "nothing pending to cancel")
	assert.Equal(t, DroppedSeen, w.Offer("m1", "socket"))

	s.Advance(time.Hour)
	assert.Equal(t, DroppedSeen, w.Offer("m1", "socket"), "seen set has no expiry")
	assert.Empty(t, got.list())
}

func TestSharedKeyFirstFastWins(t *testing.T) {
	s := NewManualScheduler(epoch)
	var payloads []string
	w := NewSharedKeyWindow(5*time.Second, s, func(_ string, p string) { payloads = append(payloads, p) })

	assert.Equal(t, Scheduled, w.Offer("m1", "first"))
	assert.Equal(t, DroppedPending, w.Offer("m1", "second"))

	s.Advance(5 * time.Second)
	assert.Equal(t, []string{"first"}, payloads)

	assert.Equal(t, Scheduled, w.Offer("m1", "third"), "the slot is free again after firing")
}

func TestSharedKeyResetAndClose(t *testing.T) {
	s := NewManualScheduler(epoch)
	var got fired
	w := NewSharedKeyWindow(5*time.Second, s, got.record)

	w.Offer("a", "x")
	w.Preempt("b")
	w.Reset()
	assert.Equal(t, 0, w.Pending())
	assert.False(t, w.Seen("b"))

	w.Offer("c", "x")
	w.Close()
	assert.Equal(t, DroppedClosed, w.Offer("d", "x"))

	s.Advance(time.Minute)
	assert.Empty(t, got.list())
	assert.Equal(t, 0, s.Pending())
}

func TestSharedKeyConcurrentRace(t *testing.T) {
	var fires atomic.Int32
	w := NewSharedKeyWindow(100*time.Millisecond, TimerScheduler{}, func(string, int) { fires.Add(1) })

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func(i int) {
			defer wg.Done()
			w.Offer("race", i)
		}(i)
		go func() {
			defer wg.Done()
			w.Preempt("race")
		}()
	}
	wg.Wait()
	time.Sleep(200 * time.Millisecond)

	assert.LessOrEqual(t, fires.Load(), int32(1))
	assert.Equal(t, DroppedSeen, w.Offer("race", 0))
}

func TestSharedKeyRealTimer(t *testing.T) {
	var got fired
	w := NewSharedKeyWindow(10*time.Millisecond, nil, got.record)
	w.Offer("m1", "socket")

	require.Eventually(t, func() bool { return len(got.list()) == 1 }, time.Second, 5*time.Millisecond)
}

type gift struct {
	key string
	at  time.Time
}

func giftFingerprint(g gift) dedupe.Fingerprint {
	return dedupe.Bucketed([]string{g.key}, g.at, 10*time.Second)
}

func newGiftWindow(s *ManualScheduler) (*FingerprintWindow[gift], *dedupe.SemanticGate, *[]string, *[]string) {
	gate := dedupe.NewSemanticGate(30*time.Second, 0, cache.WithClock(s.Now))
	var emitted, rejected []string
	w := NewFingerprintWindow(FingerprintWindowConfig[gift]{
		Delay:       10 * time.Second,
		Scheduler:   s,
		Gate:        gate,
		Fingerprint: giftFingerprint,
		Emit:        func(g gift, _ dedupe.Fingerprint) { emitted = append(emitted, g.key) },
		Reject:      func(g gift, _ dedupe.Fingerprint) { rejected = append(rejected, g.key) },
	})
	return w, gate, &emitted, &rejected
}

func TestFingerprintFastHeldThenEmitted(t *testing.T) {
	s := NewManualScheduler(epoch)
	w, _, emitted, _ := newGiftWindow(s)

	assert.Equal(t, Scheduled, w.Offer(gift{key: "g", at: s.Now()}))
	s.Advance(9 * time.Second)
	assert.Empty(t, *emitted, "fast deliveries are always delayed")
	assert.Equal(t, 1, w.Pending())

	s.Advance(time.Second)
	assert.Equal(t, []string{"g"}, *emitted)
	assert.Equal(t, 0, w.Pending())
}

func TestFingerprintRichWinsWithinDelay(t *testing.T) {
	s := NewManualScheduler(epoch)
	w, _, emitted, rejected := newGiftWindow(s)

	w.Offer(gift{key: "g", at: s.Now()})
	s.Advance(4 * time.Second)

	admitted, _ := w.Admit(gift{key: "g", at: epoch.Add(3 * time.Second)})
	assert.True(t, admitted, "rich channel is checked immediately")

	s.Advance(10 * time.Second)
	assert.Empty(t, *emitted)
	assert.Equal(t, []string{"g"}, *rejected)
}

func TestFingerprintRichLateIsRejected(t *testing.T) {
	s := NewManualScheduler(epoch)
	w, _, emitted, _ := newGiftWindow(s)

	w.Offer(gift{key: "g", at: s.Now()})
	s.Advance(10 * time.Second)
	require.Equal(t, []string{"g"}, *emitted)

	admitted, _ := w.Admit(gift{key: "g", at: epoch.Add(2 * time.Second)})
	assert.False(t, admitted, "a rich delivery after the delay loses to the fast one")
}

func TestFingerprintCloseDropsPending(t *testing.T) {
	s := NewManualScheduler(epoch)
	w, gate, emitted, rejected := newGiftWindow(s)

	w.Offer(gift{key: "g", at: s.Now()})
	w.Close()
	assert.Equal(t, DroppedClosed, w.Offer(gift{key: "h", at: s.Now()}))

	s.Advance(time.Minute)
	assert.Empty(t, *emitted)
	assert.Empty(t, *rejected)
	assert.Equal(t, 0, gate.Len())
}

func TestOutcomeString(t *testing.T) {
	assert.Equal(t, "scheduled", Scheduled.String())
	assert.Equal(t, "dropped_seen", DroppedSeen.String())
	assert.Equal(t, "dropped_pending", DroppedPending.String())
	assert.Equal(t, "dropped_closed", DroppedClosed.String())
}
