package marketstatus

import (
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/dohyunpark/autotrader/internal/events"
)

func TestLiveFeedHandleMessageUpdatesStatus(t *testing.T) {
	f := NewLiveFeed("wss://example.invalid/venue-status", nil, zerolog.Nop())

	if !f.IsStale() {
		t.Fatalf("expected a feed with no pushes yet to be stale")
	}

	if err := f.handleMessage([]byte(`{"halted":true,"reason":"circuit_breaker"}`)); err != nil {
		t.Fatalf("handleMessage: %v", err)
	}
	st := f.Status()
	if !st.Halted || st.Reason != "circuit_breaker" {
		t.Fatalf("expected halted status with reason, got %+v", st)
	}
	if f.IsStale() {
		t.Fatalf("expected a just-updated status to not be stale")
	}

	if err := f.handleMessage([]byte(`{"halted":false}`)); err != nil {
		t.Fatalf("handleMessage: %v", err)
	}
	if f.Status().Halted {
		t.Fatalf("expected halted to clear on the next push")
	}
}

func TestLiveFeedHandleMessageEmitsOnChange(t *testing.T) {
	mgr := events.NewManager(zerolog.Nop(), 10)
	f := NewLiveFeed("wss://example.invalid/venue-status", mgr, zerolog.Nop())

	_ = f.handleMessage([]byte(`{"halted":true,"reason":"outage"}`))
	_ = f.handleMessage([]byte(`{"halted":true,"reason":"outage"}`)) // repeat: no new event

	recent := mgr.Recent()
	var haltEvents int
	for _, ev := range recent {
		if ev.Type == events.MarketHaltChanged {
			haltEvents++
		}
	}
	if haltEvents != 1 {
		t.Fatalf("expected exactly one halt-change event for one genuine transition, got %d", haltEvents)
	}
}

func TestLiveFeedCalculateBackoffCapsAtMax(t *testing.T) {
	f := NewLiveFeed("wss://example.invalid/venue-status", nil, zerolog.Nop())
	if got := f.calculateBackoff(1); got != liveBaseReconnectDelay {
		t.Fatalf("expected the first attempt to use the base delay, got %v", got)
	}
	if got := f.calculateBackoff(20); got != liveMaxReconnectDelay {
		t.Fatalf("expected a large attempt count to cap at the max delay, got %v", got)
	}
}

func TestLiveFeedStopIsIdempotent(t *testing.T) {
	f := NewLiveFeed("wss://example.invalid/venue-status", nil, zerolog.Nop())
	if err := f.Stop(); err != nil {
		t.Fatalf("first Stop: %v", err)
	}
	if err := f.Stop(); err != nil {
		t.Fatalf("second Stop should be a no-op, got: %v", err)
	}
}

var _ = time.Second // keep time imported for future-proofing against touch-ups
