package broker

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/dohyunpark/autotrader/internal/domain"
)

// liveRateLimitDelay matches the Tradernet SDK's request pacing: the broker
// API in use here enforces the same single-in-flight-request contract.
const liveRateLimitDelay = 300 * time.Millisecond

// job is one queued broker API call, serviced by the single worker
// goroutine so every request honours liveRateLimitDelay regardless of how
// many goroutines call into Live concurrently.
type job struct {
	do       func() (interface{}, error)
	resultCh chan jobResult
}

type jobResult struct {
	data interface{}
	err  error
}

// Live talks to the broker's HTTP API. Requests are serialised through an
// internal queue/worker so the rate limit is honoured across every caller,
// the same shape the Tradernet SDK client uses for its authorized/plain
// request queue.
type Live struct {
	baseURL    string
	apiKey     string
	apiSecret  string
	httpClient *http.Client
	log        zerolog.Logger

	mu          sync.Mutex
	accessToken string
	tokenExpiry time.Time

	queue    chan job
	stopOnce sync.Once
	stopChan chan struct{}
	done     chan struct{}
}

// NewLive constructs a live broker client and starts its rate-limiting
// worker. Close must be called to stop the worker goroutine cleanly.
func NewLive(baseURL, apiKey, apiSecret string, log zerolog.Logger) *Live {
	l := &Live{
		baseURL:    baseURL,
		apiKey:     apiKey,
		apiSecret:  apiSecret,
		httpClient: &http.Client{Timeout: 15 * time.Second},
		log:        log.With().Str("component", "live-broker").Logger(),
		queue:      make(chan job, 64),
		stopChan:   make(chan struct{}),
		done:       make(chan struct{}),
	}
	go l.worker()
	return l
}

// Close stops the rate-limiting worker, draining any queued requests first.
func (l *Live) Close() {
	l.stopOnce.Do(func() {
		close(l.stopChan)
		<-l.done
	})
}

func (l *Live) worker() {
	defer close(l.done)
	var last time.Time
	first := true
	run := func(j job) {
		if !first {
			if wait := liveRateLimitDelay - time.Since(last); wait > 0 {
				time.Sleep(wait)
			}
		}
		first = false
		data, err := j.do()
		last = time.Now()
		j.resultCh <- jobResult{data: data, err: err}
	}
	for {
		select {
		case <-l.stopChan:
			for {
				select {
				case j := <-l.queue:
					run(j)
				default:
					return
				}
			}
		case j := <-l.queue:
			run(j)
		}
	}
}

func (l *Live) call(do func() (interface{}, error)) (interface{}, error) {
	resultCh := make(chan jobResult, 1)
	select {
	case l.queue <- job{do: do, resultCh: resultCh}:
	case <-l.stopChan:
		return nil, fmt.Errorf("live broker client is closed")
	}
	res := <-resultCh
	return res.data, res.err
}

// ensureToken refreshes the access token if it is missing or within 60
// seconds of expiry. The broker's auth endpoint is assumed to return
// {access_token, expires_in}.
func (l *Live) ensureToken() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.accessToken != "" && time.Now().Before(l.tokenExpiry.Add(-60*time.Second)) {
		return nil
	}
	payload, _ := json.Marshal(map[string]string{"api_key": l.apiKey, "api_secret": l.apiSecret})
	resp, err := l.httpClient.Post(l.baseURL+"/auth/token", "application/json", bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("%w: token refresh: %v", domain.ErrBrokerTransient, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 500 {
		return fmt.Errorf("%w: token refresh status %d", domain.ErrBrokerTransient, resp.StatusCode)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: token refresh status %d", domain.ErrBrokerPermanent, resp.StatusCode)
	}
	var body struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int    `json:"expires_in"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return fmt.Errorf("%w: decode token response: %v", domain.ErrBrokerPermanent, err)
	}
	l.accessToken = body.AccessToken
	l.tokenExpiry = time.Now().Add(time.Duration(body.ExpiresIn) * time.Second)
	return nil
}

func (l *Live) request(method, path string, body interface{}, out interface{}) error {
	if err := l.ensureToken(); err != nil {
		return err
	}
	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("%w: encode request body: %v", domain.ErrBrokerPermanent, err)
		}
		reader = bytes.NewReader(buf)
	}
	req, err := http.NewRequest(method, l.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("%w: build request: %v", domain.ErrBrokerPermanent, err)
	}
	req.Header.Set("Content-Type", "application/json")
	l.mu.Lock()
	req.Header.Set("Authorization", "Bearer "+l.accessToken)
	l.mu.Unlock()

	resp, err := l.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrBrokerTransient, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		bodyStr := readCapped(resp.Body)
		return fmt.Errorf("%w: %s %s returned %d: %s", domain.ErrBrokerTransient, method, path, resp.StatusCode, bodyStr)
	default:
		bodyStr := readCapped(resp.Body)
		return fmt.Errorf("%w: %s %s returned %d: %s", domain.ErrBrokerPermanent, method, path, resp.StatusCode, bodyStr)
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func readCapped(r io.Reader) string {
	buf := make([]byte, 512)
	n, _ := r.Read(buf)
	return string(buf[:n])
}

// GetHoldings fetches the user's live broker positions.
func (l *Live) GetHoldings(user int64) ([]domain.Holding, error) {
	raw, err := l.call(func() (interface{}, error) {
		var balances struct {
			Positions []struct {
				Symbol   string  `json:"symbol"`
				Qty      float64 `json:"qty"`
				AvgPrice float64 `json:"avg_price"`
			} `json:"positions"`
		}
		if err := l.request(http.MethodGet, fmt.Sprintf("/users/%d/balance", user), nil, &balances); err != nil {
			return nil, err
		}
		holdings := make([]domain.Holding, len(balances.Positions))
		for i, p := range balances.Positions {
			holdings[i] = domain.Holding{User: user, Ticker: p.Symbol, Qty: p.Qty, AvgPrice: p.AvgPrice}
		}
		return holdings, nil
	})
	if err != nil {
		return nil, err
	}
	return raw.([]domain.Holding), nil
}

// GetCash fetches the user's live cash balance.
func (l *Live) GetCash(user int64) (float64, error) {
	raw, err := l.call(func() (interface{}, error) {
		var balance struct {
			Cash float64 `json:"cash"`
		}
		if err := l.request(http.MethodGet, fmt.Sprintf("/users/%d/balance", user), nil, &balance); err != nil {
			return nil, err
		}
		return balance.Cash, nil
	})
	if err != nil {
		return 0, err
	}
	return raw.(float64), nil
}

// GetPending fetches the user's pending orders.
func (l *Live) GetPending(user int64) ([]domain.Order, error) {
	raw, err := l.call(func() (interface{}, error) {
		var placed struct {
			Orders []struct {
				ID     string  `json:"id"`
				Symbol string  `json:"symbol"`
				Side   string  `json:"side"`
				Qty    float64 `json:"qty"`
				Price  float64 `json:"price"`
			} `json:"orders"`
		}
		if err := l.request(http.MethodGet, fmt.Sprintf("/users/%d/orders?status=pending", user), nil, &placed); err != nil {
			return nil, err
		}
		orders := make([]domain.Order, len(placed.Orders))
		for i, o := range placed.Orders {
			orders[i] = domain.Order{
				User: user, Ticker: o.Symbol, Side: domain.OrderSide(o.Side), Qty: o.Qty,
				Price: o.Price, BrokerOrderID: o.ID, Status: domain.OrderStatusPending,
			}
		}
		return orders, nil
	})
	if err != nil {
		return nil, err
	}
	return raw.([]domain.Order), nil
}

// GetPrice fetches the last traded price for a ticker.
func (l *Live) GetPrice(ticker string) (float64, error) {
	raw, err := l.call(func() (interface{}, error) {
		var quote struct {
			Price float64 `json:"price"`
		}
		if err := l.request(http.MethodGet, fmt.Sprintf("/quotes/%s", ticker), nil, &quote); err != nil {
			return nil, err
		}
		return quote.Price, nil
	})
	if err != nil {
		return 0, err
	}
	return raw.(float64), nil
}

// Buy places a live buy order. price == 0 means market order.
func (l *Live) Buy(user int64, ticker string, qty float64, price float64) (bool, string, string, error) {
	return l.placeOrder(user, ticker, domain.OrderSideBuy, qty, price)
}

// Sell places a live sell order. price == 0 means market order.
func (l *Live) Sell(user int64, ticker string, qty float64, price float64) (bool, string, string, error) {
	return l.placeOrder(user, ticker, domain.OrderSideSell, qty, price)
}

// placeOrderResult is the broker's order-placement response shape. Named
// (rather than anonymous) so the worker closure and the caller agree on
// exactly one type for the interface{} round-trip through call().
type placeOrderResult struct {
	OrderID  string `json:"order_id"`
	Rejected bool   `json:"rejected"`
	Reason   string `json:"reason"`
}

func (l *Live) placeOrder(user int64, ticker string, side domain.OrderSide, qty, price float64) (bool, string, string, error) {
	raw, err := l.call(func() (interface{}, error) {
		body := map[string]interface{}{"symbol": ticker, "side": string(side), "qty": qty, "price": price}
		var result placeOrderResult
		if err := l.request(http.MethodPost, fmt.Sprintf("/users/%d/orders", user), body, &result); err != nil {
			return nil, err
		}
		return result, nil
	})
	if err != nil {
		return false, "", "", err
	}
	result := raw.(placeOrderResult)
	if result.Rejected {
		return false, result.OrderID, result.Reason, domain.ErrOrderRejected
	}
	return true, result.OrderID, "placed", nil
}

var _ domain.Executor = (*Live)(nil)
