package ratelimit

import "time"

// SlidingWindow counts events over a rolling time period using fixed-size
// buckets. A 1-minute window with 1-second buckets uses 60 buckets.
//
// SlidingWindow takes the current time as an argument and does no locking;
// the owner serializes access.
type SlidingWindow struct {
	window     time.Duration
	bucketSize time.Duration
	buckets    []bucket
}

type bucket struct {
	timestamp time.Time
	value     int64
}

// NewSlidingWindow creates a sliding window counter.
//
// Example:
//
//	// Requests admitted in the last minute, 1-second granularity
//	sw := NewSlidingWindow(time.Minute, time.Second)
func NewSlidingWindow(window, bucketSize time.Duration) *SlidingWindow {
	n := int(window / bucketSize)
	if n == 0 {
		n = 1
	}
	return &SlidingWindow{
		window:     window,
		bucketSize: bucketSize,
		buckets:    make([]bucket, n),
	}
}

// Add adds value to the bucket covering now.
func (sw *SlidingWindow) Add(now time.Time, value int64) {
	sw.prune(now)
	sw.bucketFor(now).value += value
}

// Sum returns the total over the window ending at now.
func (sw *SlidingWindow) Sum(now time.Time) int64 {
	sw.prune(now)

	var sum int64
	for i := range sw.buckets {
		if !sw.buckets[i].timestamp.IsZero() {
			sum += sw.buckets[i].value
		}
	}
	return sum
}

// Reset clears all buckets.
func (sw *SlidingWindow) Reset() {
	for i := range sw.buckets {
		sw.buckets[i] = bucket{}
	}
}

func (sw *SlidingWindow) prune(now time.Time) {
	cutoff := now.Add(-sw.window)
	for i := range sw.buckets {
		if !sw.buckets[i].timestamp.IsZero() && !sw.buckets[i].timestamp.After(cutoff) {
			sw.buckets[i] = bucket{}
		}
	}
}

// bucketFor finds the bucket for now, reusing an empty slot or the oldest one.
func (sw *SlidingWindow) bucketFor(now time.Time) *bucket {
	start := now.Truncate(sw.bucketSize)

	target := -1
	for i := range sw.buckets {
		if sw.buckets[i].timestamp.Equal(start) {
			return &sw.buckets[i]
		}
		if target == -1 && sw.buckets[i].timestamp.IsZero() {
			target = i
		}
	}

	if target == -1 {
		target = 0
		for i := 1; i < len(sw.buckets); i++ {
			if sw.buckets[i].timestamp.Before(sw.buckets[target].timestamp) {
				target = i
			}
		}
	}

	sw.buckets[target] = bucket{timestamp: start}
	return &sw.buckets[target]
}
