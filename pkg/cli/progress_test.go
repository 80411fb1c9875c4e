package cli

import (
	"bytes"
	"strings"
	"sync"
	"testing"
	"time"
)

func TestSimpleProgress(t *testing.T) {
	buf := &bytes.Buffer{}
	p := NewProgressReporter(buf, "Acquired")
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	now := start
	p.now = func() time.Time { return now }

	p.Start(4)
	now = start.Add(time.Second)
	p.Increment()
	p.Increment()

	out := buf.String()
	if !strings.Contains(out, "Acquired: [") {
		t.Errorf("missing label in %q", out)
	}
	if !strings.Contains(out, "50.0% (2/4) 2.0/s") {
		t.Errorf("progress line = %q, want 50%% at 2/s", out)
	}

	p.Finish()
	if !strings.HasSuffix(buf.String(), "100.0% (4/4) 4.0/s\n") {
		t.Errorf("final line = %q", buf.String())
	}
}

func TestSimpleProgress_IncrementClampsAtTotal(t *testing.T) {
	buf := &bytes.Buffer{}
	p := NewProgressReporter(buf, "x")
	p.Start(1)
	p.Increment()
	p.Increment()

	if p.current != 1 {
		t.Errorf("current = %d, want 1", p.current)
	}
}

func TestSimpleProgress_ZeroTotal(t *testing.T) {
	buf := &bytes.Buffer{}
	p := NewProgressReporter(buf, "x")
	p.Start(0)
	p.Increment()

	if buf.Len() != 0 {
		t.Errorf("expected no output for zero total, got %q", buf.String())
	}
}

func TestSimpleProgress_Concurrent(t *testing.T) {
	p := NewProgressReporter(&bytes.Buffer{}, "x")
	p.Start(100)

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			p.Increment()
		}()
	}
	wg.Wait()

	if p.current != 100 {
		t.Errorf("current = %d, want 100", p.current)
	}
}
