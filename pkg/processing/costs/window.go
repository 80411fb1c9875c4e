package costs

import "time"

// rollingWindow tracks cost over a trailing time window using fixed-size
// buckets. Hourly windows use 1-minute buckets and daily windows 1-hour
// buckets. It is not safe for concurrent use; the Accountant guards it.
type rollingWindow struct {
	window     time.Duration
	bucketSize time.Duration
	buckets    []windowBucket
}

type windowBucket struct {
	start  time.Time
	amount float64
}

func newRollingWindow(window, bucketSize time.Duration) *rollingWindow {
	n := int(window / bucketSize)
	if n == 0 {
		n = 1
	}
	return &rollingWindow{
		window:     window,
		bucketSize: bucketSize,
		buckets:    make([]windowBucket, n),
	}
}

func (w *rollingWindow) add(now time.Time, amount float64) {
	w.prune(now)
	w.bucketFor(now).amount += amount
}

func (w *rollingWindow) sum(now time.Time) float64 {
	w.prune(now)

	var total float64
	for _, b := range w.buckets {
		if !b.start.IsZero() {
			total += b.amount
		}
	}
	return total
}

func (w *rollingWindow) reset() {
	for i := range w.buckets {
		w.buckets[i] = windowBucket{}
	}
}

// prune clears buckets that started before now-window.
func (w *rollingWindow) prune(now time.Time) {
	cutoff := now.Add(-w.window)
	for i := range w.buckets {
		if !w.buckets[i].start.IsZero() && w.buckets[i].start.Before(cutoff) {
			w.buckets[i] = windowBucket{}
		}
	}
}

// bucketFor returns the bucket covering now, reusing an empty or the oldest slot.
func (w *rollingWindow) bucketFor(now time.Time) *windowBucket {
	start := now.Truncate(w.bucketSize)

	target := -1
	for i := range w.buckets {
		if w.buckets[i].start.Equal(start) {
			return &w.buckets[i]
		}
		if target == -1 && w.buckets[i].start.IsZero() {
			target = i
		}
	}

	if target == -1 {
		target = 0
		for i := 1; i < len(w.buckets); i++ {
			if w.buckets[i].start.Before(w.buckets[target].start) {
				target = i
			}
		}
	}

	w.buckets[target] = windowBucket{start: start}
	return &w.buckets[target]
}
