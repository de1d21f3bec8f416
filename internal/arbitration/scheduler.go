// Streamrelay - Cross-Channel Live Stream Event Reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/streamrelay

package arbitration

import (
	"sort"
	"sync"
	"time"
)

// Task is a scheduled callback that can be cancelled.
type Task interface {
	// Stop prevents the callback from running. It reports false if the
	// callback already ran or was already stopped.
	Stop() bool
}

// Scheduler runs callbacks after a delay.
type Scheduler interface {
	AfterFunc(d time.Duration, f func()) Task
	Now() time.Time
}

// TimerScheduler schedules callbacks on runtime timers.
type TimerScheduler struct{}

// AfterFunc wraps time.AfterFunc.
func (TimerScheduler) AfterFunc(d time.Duration, f func()) Task {
	return time.AfterFunc(d, f)
}

// Now returns the wall clock time.
func (TimerScheduler) Now() time.Time {
	return time.Now()
}

// ManualScheduler is a deterministic Scheduler whose time only moves when
// Advance is called. Callbacks run synchronously on the caller of Advance.
type ManualScheduler struct {
	mu    sync.Mutex
	now   time.Time
	seq   int
	tasks []*manualTask
}

type manualTask struct {
	s       *ManualScheduler
	due     time.Time
	seq     int
	f       func()
	stopped bool
	fired   bool
}

// NewManualScheduler creates a scheduler whose clock starts at start.
func NewManualScheduler(start time.Time) *ManualScheduler {
	return &ManualScheduler{now: start}
}

// Now returns the scheduler's current time.
func (s *ManualScheduler) Now() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.now
}

// AfterFunc registers f to run once the clock reaches now+d.
func (s *ManualScheduler) AfterFunc(d time.Duration, f func()) Task {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.seq++
	t := &manualTask{s: s, due: s.now.Add(d), seq: s.seq, f: f}
	s.tasks = append(s.tasks, t)
	return t
}

// Advance moves the clock forward by d, running every callback that falls
// due in deadline order. Callbacks may schedule further tasks; those run
// too if they fall inside the window.
func (s *ManualScheduler) Advance(d time.Duration) {
	s.mu.Lock()
	target := s.now.Add(d)
	s.mu.Unlock()

	for {
		s.mu.Lock()
		next := s.nextDueLocked(target)
		if next == nil {
			s.now = target
			s.mu.Unlock()
			return
		}
		if next.due.After(s.now) {
			s.now = next.due
		}
		next.fired = true
		s.mu.Unlock()

		next.f()
	}
}

// Pending returns the number of tasks that have neither fired nor stopped.
func (s *ManualScheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for _, t := range s.tasks {
		if !t.fired && !t.stopped {
			n++
		}
	}
	return n
}

func (s *ManualScheduler) nextDueLocked(target time.Time) *manualTask {
	live := s.tasks[:0]
	for _, t := range s.tasks {
		if !t.fired && !t.stopped {
			live = append(live, t)
		}
	}
	s.tasks = live

	sort.SliceStable(s.tasks, func(i, j int) bool {
		if s.tasks[i].due.Equal(s.tasks[j].due) {
			return s.tasks[i].seq < s.tasks[j].seq
		}
		return s.tasks[i].due.Before(s.tasks[j].due)
	})
	if len(s.tasks) == 0 || s.tasks[0].due.After(target) {
		return nil
	}
	return s.tasks[0]
}

func (t *manualTask) Stop() bool {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()

	if t.fired || t.stopped {
		return false
	}
	t.stopped = true
	return true
}
