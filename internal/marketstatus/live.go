package marketstatus

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"nhooyr.io/websocket"

	"github.com/dohyunpark/autotrader/internal/events"
)

const (
	liveWriteWait          = 10 * time.Second
	liveDialTimeout        = 30 * time.Second
	liveBaseReconnectDelay = 5 * time.Second
	liveMaxReconnectDelay  = 5 * time.Minute
	liveStaleThreshold     = 5 * time.Minute
)

// VenueStatus is the single market's live halt/open-close state as pushed
// by the venue's status feed, supplementing Calendar's static session
// window with same-day halts (circuit breakers, system outages) that a
// fixed 09:00-15:20 window cannot express.
type VenueStatus struct {
	Halted    bool
	Reason    string
	UpdatedAt time.Time
}

// wireVenueStatus is the feed's wire format: a single JSON object per
// push, e.g. {"halted":true,"reason":"circuit_breaker"}.
type wireVenueStatus struct {
	Halted bool   `json:"halted"`
	Reason string `json:"reason"`
}

// LiveFeed is a thin reconnecting WebSocket client that keeps one cached
// VenueStatus fresh for Calendar.IsOpen to consult. Adapted from the
// trader's MarketStatusWebSocket, collapsed from a multi-market cache to
// the single market this engine trades.
type LiveFeed struct {
	url string

	conn       *websocket.Conn
	connCtx    context.Context
	cancelFunc context.CancelFunc
	mu         sync.RWMutex

	eventMgr *events.Manager
	log      zerolog.Logger

	stopChan     chan struct{}
	stopped      bool
	reconnecting bool

	statusMu sync.RWMutex
	status   VenueStatus
}

// NewLiveFeed constructs a feed against the venue's status WebSocket URL.
// eventMgr may be nil; every halt change is logged either way.
func NewLiveFeed(url string, eventMgr *events.Manager, log zerolog.Logger) *LiveFeed {
	return &LiveFeed{
		url:      url,
		eventMgr: eventMgr,
		log:      log.With().Str("component", "market_status_feed").Logger(),
		stopChan: make(chan struct{}),
	}
}

// Start dials the feed and begins the read loop, falling back to the
// background reconnect loop if the initial dial fails.
func (f *LiveFeed) Start() error {
	f.log.Info().Str("url", f.url).Msg("starting market status feed")
	if err := f.Connect(); err != nil {
		f.log.Warn().Err(err).Msg("initial market status feed connection failed, retrying in background")
		go f.reconnectLoop()
		return err
	}
	f.mu.RLock()
	ctx := f.connCtx
	f.mu.RUnlock()
	go f.readMessages(ctx)
	return nil
}

// Stop gracefully closes the feed. Safe to call more than once.
func (f *LiveFeed) Stop() error {
	f.mu.Lock()
	if f.stopped {
		f.mu.Unlock()
		return nil
	}
	f.stopped = true
	f.mu.Unlock()

	close(f.stopChan)
	return f.Disconnect()
}

// Connect dials the WebSocket endpoint.
func (f *LiveFeed) Connect() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	dialCtx, cancel := context.WithTimeout(context.Background(), liveDialTimeout)
	defer cancel()

	conn, _, err := websocket.Dial(dialCtx, f.url, nil)
	if err != nil {
		return fmt.Errorf("dial market status feed: %w", err)
	}

	connCtx, connCancel := context.WithCancel(context.Background())
	f.conn = conn
	f.connCtx = connCtx
	f.cancelFunc = connCancel
	return nil
}

// Disconnect closes the current connection, if any.
func (f *LiveFeed) Disconnect() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.conn == nil {
		return nil
	}
	if f.cancelFunc != nil {
		f.cancelFunc()
		f.cancelFunc = nil
	}
	err := f.conn.Close(websocket.StatusNormalClosure, "")
	f.conn = nil
	f.connCtx = nil
	if err != nil {
		return fmt.Errorf("close market status feed: %w", err)
	}
	return nil
}

func (f *LiveFeed) readMessages(ctx context.Context) {
	defer func() {
		f.mu.RLock()
		stopped := f.stopped
		f.mu.RUnlock()
		if !stopped {
			go f.reconnectLoop()
		}
	}()

	for {
		select {
		case <-f.stopChan:
			return
		case <-ctx.Done():
			return
		default:
		}

		f.mu.RLock()
		conn := f.conn
		f.mu.RUnlock()
		if conn == nil {
			return
		}

		msgType, data, err := conn.Read(ctx)
		if err != nil {
			if ctx.Err() == nil {
				f.log.Warn().Err(err).Msg("market status feed read error")
			}
			return
		}
		if msgType != websocket.MessageText {
			continue
		}
		if err := f.handleMessage(data); err != nil {
			f.log.Warn().Err(err).Msg("failed to parse market status message")
		}
	}
}

func (f *LiveFeed) handleMessage(raw []byte) error {
	var msg wireVenueStatus
	if err := json.Unmarshal(raw, &msg); err != nil {
		return err
	}

	now := time.Now()
	f.statusMu.Lock()
	changed := f.status.Halted != msg.Halted
	f.status = VenueStatus{Halted: msg.Halted, Reason: msg.Reason, UpdatedAt: now}
	f.statusMu.Unlock()

	if changed {
		f.log.Info().Bool("halted", msg.Halted).Str("reason", msg.Reason).Msg("venue halt status changed")
		if f.eventMgr != nil {
			f.eventMgr.Emit(events.MarketHaltChanged, "market_status_feed", map[string]interface{}{
				"halted": msg.Halted, "reason": msg.Reason,
			})
		}
	}
	return nil
}

func (f *LiveFeed) reconnectLoop() {
	f.mu.Lock()
	if f.reconnecting || f.stopped {
		f.mu.Unlock()
		return
	}
	f.reconnecting = true
	f.mu.Unlock()
	defer func() {
		f.mu.Lock()
		f.reconnecting = false
		f.mu.Unlock()
	}()

	attempt := 0
	for {
		select {
		case <-f.stopChan:
			return
		default:
		}

		attempt++
		delay := f.calculateBackoff(attempt)
		select {
		case <-time.After(delay):
		case <-f.stopChan:
			return
		}

		if err := f.Connect(); err != nil {
			f.log.Warn().Err(err).Int("attempt", attempt).Msg("market status feed reconnect failed")
			continue
		}

		f.log.Info().Int("attempt", attempt).Msg("market status feed reconnected")
		f.mu.RLock()
		ctx := f.connCtx
		f.mu.RUnlock()
		go f.readMessages(ctx)
		return
	}
}

func (f *LiveFeed) calculateBackoff(attempt int) time.Duration {
	delay := float64(liveBaseReconnectDelay) * math.Pow(2, float64(attempt-1))
	if delay > float64(liveMaxReconnectDelay) {
		delay = float64(liveMaxReconnectDelay)
	}
	return time.Duration(delay)
}

// Status returns the most recently received venue status.
func (f *LiveFeed) Status() VenueStatus {
	f.statusMu.RLock()
	defer f.statusMu.RUnlock()
	return f.status
}

// IsStale reports whether no status push has been received recently
// enough to trust; a stale feed must not veto the static session window.
func (f *LiveFeed) IsStale() bool {
	f.statusMu.RLock()
	defer f.statusMu.RUnlock()
	if f.status.UpdatedAt.IsZero() {
		return true
	}
	return time.Since(f.status.UpdatedAt) > liveStaleThreshold
}
