// Streamrelay - Cross-Channel Live Stream Event Reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/streamrelay

package dedupe

import (
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/tomtom215/streamrelay/internal/events"
)

// Fingerprint is a content-derived key. Primary is recorded when an event
// is admitted; Neighbors are only probed, so that two deliveries whose
// timestamps straddle a bucket boundary still collide.
type Fingerprint struct {
	Primary   string
	Neighbors []string
}

// Keys returns Primary followed by Neighbors.
func (f Fingerprint) Keys() []string {
	keys := make([]string, 0, 1+len(f.Neighbors))
	keys = append(keys, f.Primary)
	return append(keys, f.Neighbors...)
}

// Fingerprinter derives a Fingerprint from an event. Reconcilers accept
// one per kind so the derivation can be swapped without touching the gate.
type Fingerprinter[T any] func(T) Fingerprint

// TimeBucket returns floor(at / width) in units of width.
func TimeBucket(at time.Time, width time.Duration) int64 {
	if width <= 0 {
		return at.Unix()
	}
	n := at.UnixNano()
	w := width.Nanoseconds()
	b := n / w
	if n%w < 0 {
		b--
	}
	return b
}

// Bucketed builds a fingerprint from parts plus the time bucket of at. The
// adjacent buckets become neighbors.
func Bucketed(parts []string, at time.Time, width time.Duration) Fingerprint {
	base := strings.Join(parts, "|")
	bucket := TimeBucket(at, width)
	key := func(b int64) string {
		return base + "|" + strconv.FormatInt(b, 10)
	}
	return Fingerprint{
		Primary:   key(bucket),
		Neighbors: []string{key(bucket - 1), key(bucket + 1)},
	}
}

// CanonicalRecipients returns the distinct recipient identities, sorted.
func CanonicalRecipients(users []events.User) []string {
	set := make(map[string]struct{}, len(users))
	out := make([]string, 0, len(users))
	for _, u := range users {
		id := u.Identity()
		if _, dup := set[id]; dup {
			continue
		}
		set[id] = struct{}{}
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// GiftFingerprint keys a gifting action by gifter, sorted recipients and
// time bucket.
func GiftFingerprint(width time.Duration) Fingerprinter[*events.GiftedSubscriptions] {
	return func(g *events.GiftedSubscriptions) Fingerprint {
		return Bucketed([]string{
			string(events.KindSubscriptionGifts),
			g.Gifter.Identity(),
			strings.Join(CanonicalRecipients(g.Recipients), ","),
		}, g.OccurredAt(), width)
	}
}

// BanFingerprint keys a ban by banned user, permanence and time bucket.
// The moderator is left out because the socket feed does not always name
// the same account the webhook does.
func BanFingerprint(width time.Duration) Fingerprinter[*events.UserBanned] {
	return func(b *events.UserBanned) Fingerprint {
		mode := "timeout"
		if b.Permanent {
			mode = "permanent"
		}
		return Bucketed([]string{
			string(events.KindUserBanned),
			b.BannedUser.Identity(),
			mode,
		}, b.OccurredAt(), width)
	}
}

// StreamStatusFingerprint keys a stream transition by live state and time
// bucket. Broadcaster identity is omitted since one process serves one channel.
func StreamStatusFingerprint(width time.Duration) Fingerprinter[*events.StreamStatus] {
	return func(s *events.StreamStatus) Fingerprint {
		state := "offline"
		if s.IsLive {
			state = "live"
		}
		return Bucketed([]string{
			string(events.KindStreamStatus),
			state,
		}, s.ReceivedAt, width)
	}
}
