package domain

import "errors"

// Sentinel error kinds recognised by the core. Callers use errors.Is
// against these, or wrap one of them with fmt.Errorf("...: %w", ...).
var (
	// ErrConfig marks a bad DSL or missing credentials. The controller stops
	// the user-tick and returns the error in TickResult.Err; no alert is
	// journaled, and the next tick parses the user's conditions again.
	ErrConfig = errors.New("config error")

	// ErrDataInsufficient marks a series shorter than a scorer's MinDataBars:
	// that ticker is dropped from the snapshot silently, no alert.
	ErrDataInsufficient = errors.New("insufficient data")

	// ErrStaleSnapshot marks a snapshot older than the max-age window: the
	// whole user-tick aborts and is retried next tick.
	ErrStaleSnapshot = errors.New("stale snapshot")

	// ErrBrokerTransient marks a timeout or 5xx from the broker. The
	// controller does not retry: a failed buy or sell is logged and the
	// tick goes on to the next ticker.
	ErrBrokerTransient = errors.New("transient broker error")

	// ErrBrokerPermanent marks a non-rate-limit 4xx from the broker. The
	// controller logs the failed buy or sell and goes on with the tick; it
	// does not abort the tick, and nothing calls the users repository's
	// DisableToday latch.
	ErrBrokerPermanent = errors.New("permanent broker error")

	// ErrOrderRejected marks a broker-side order rejection. The controller
	// logs it and goes on without journaling the order, so the ticker is
	// not added to the daily blacklist.
	ErrOrderRejected = errors.New("order rejected by broker")

	// ErrInternal marks an internal failure inside scoring. No code in this
	// module returns or checks it: the scorers return no error, and no
	// ALERT_INTERNAL is journaled.
	ErrInternal = errors.New("internal error")
)
