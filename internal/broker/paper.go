// Package broker implements domain.Executor: a live broker HTTP client and
// an in-process paper/virtual simulator used for greenlight and
// backtesting-style accounts (§4.7).
package broker

import (
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/dohyunpark/autotrader/internal/domain"
)

// PriceFeed supplies the paper executor's reprice-on-demand quote, since the
// simulator itself holds no market-data connection.
type PriceFeed interface {
	GetPrice(ticker string) (float64, error)
}

// account is one paper user's mutable ledger.
type account struct {
	cash     float64
	holdings map[string]domain.Holding
	pending  []domain.Order
}

// Paper is an in-process virtual broker: it maintains cash and holdings per
// user, deducts commission and transfer-tax on the simulator's side so
// realised P/L matches live accounting, and reprices positions against a
// PriceFeed (§4.7).
type Paper struct {
	mu       sync.Mutex
	accounts map[int64]*account
	fees     domain.FeeSchedule
	prices   PriceFeed
	log      zerolog.Logger
	nextID   int64
}

// NewPaper constructs a paper executor. fees describes the market's
// commission/tax rates; prices supplies on-demand quotes for holdings
// valuation (the order methods take an explicit price instead).
func NewPaper(fees domain.FeeSchedule, prices PriceFeed, log zerolog.Logger) *Paper {
	return &Paper{
		accounts: make(map[int64]*account),
		fees:     fees,
		prices:   prices,
		log:      log.With().Str("component", "paper-broker").Logger(),
	}
}

// Seed initialises (or resets) a user's starting cash balance. Holdings
// carried over from a prior session can be supplied directly.
func (p *Paper) Seed(user int64, cash float64, holdings []domain.Holding) {
	p.mu.Lock()
	defer p.mu.Unlock()
	a := &account{cash: cash, holdings: make(map[string]domain.Holding, len(holdings))}
	for _, h := range holdings {
		a.holdings[h.Ticker] = h
	}
	p.accounts[user] = a
}

func (p *Paper) account(user int64) *account {
	a, ok := p.accounts[user]
	if !ok {
		a = &account{holdings: make(map[string]domain.Holding)}
		p.accounts[user] = a
	}
	return a
}

// GetHoldings returns the user's current simulated positions.
func (p *Paper) GetHoldings(user int64) ([]domain.Holding, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	a := p.account(user)
	out := make([]domain.Holding, 0, len(a.holdings))
	for _, h := range a.holdings {
		out = append(out, h)
	}
	return out, nil
}

// GetCash returns the user's simulated cash balance.
func (p *Paper) GetCash(user int64) (float64, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.account(user).cash, nil
}

// GetPending returns the user's pending orders. The paper simulator fills
// immediately and never records a pending order, so this is always empty.
func (p *Paper) GetPending(user int64) ([]domain.Order, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]domain.Order, len(p.account(user).pending))
	copy(out, p.account(user).pending)
	return out, nil
}

// GetPrice delegates to the injected PriceFeed.
func (p *Paper) GetPrice(ticker string) (float64, error) {
	if p.prices == nil {
		return 0, fmt.Errorf("paper broker: no price feed configured")
	}
	return p.prices.GetPrice(ticker)
}

// Buy simulates a market or limit buy: deducts notional plus commission
// from cash, and opens or adds to the user's holding. Returns ok=false
// (not an error) if cash is insufficient, matching the synchronous
// ok/detail contract other Executor implementations follow.
func (p *Paper) Buy(user int64, ticker string, qty float64, price float64) (bool, string, string, error) {
	if qty <= 0 {
		return false, "", "invalid quantity", nil
	}
	if price == 0 {
		marketPrice, err := p.GetPrice(ticker)
		if err != nil {
			return false, "", "", fmt.Errorf("resolve market price: %w", err)
		}
		price = marketPrice
	}
	if price <= 0 {
		return false, "", "invalid price", nil
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	a := p.account(user)
	notional := qty * price
	commission := notional * p.fees.CommissionRate
	total := notional + commission
	if a.cash < total {
		return false, "", "insufficient cash", nil
	}

	a.cash -= total
	h := a.holdings[ticker]
	newQty := h.Qty + qty
	h.AvgPrice = (h.AvgPrice*h.Qty + notional) / newQty
	h.Qty = newQty
	h.Ticker = ticker
	a.holdings[ticker] = h

	p.nextID++
	orderID := fmt.Sprintf("PAPER-%d", p.nextID)
	p.log.Debug().Int64("user", user).Str("ticker", ticker).Float64("qty", qty).
		Float64("price", price).Str("order_id", orderID).Msg("paper buy filled")
	return true, orderID, "filled", nil
}

// Sell simulates a market or limit sell: deducts commission and transfer
// tax from proceeds, credits cash, and reduces or closes the holding.
// cash is guaranteed >= 0 afterward (INV-7), since sells only ever add cash.
func (p *Paper) Sell(user int64, ticker string, qty float64, price float64) (bool, string, string, error) {
	if qty <= 0 {
		return false, "", "invalid quantity", nil
	}
	if price == 0 {
		marketPrice, err := p.GetPrice(ticker)
		if err != nil {
			return false, "", "", fmt.Errorf("resolve market price: %w", err)
		}
		price = marketPrice
	}
	if price <= 0 {
		return false, "", "invalid price", nil
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	a := p.account(user)
	h, ok := a.holdings[ticker]
	if !ok || h.Qty < qty {
		return false, "", "insufficient position", nil
	}

	notional := qty * price
	commission := notional * p.fees.CommissionRate
	tax := notional * p.fees.TaxRate
	proceeds := notional - commission - tax
	a.cash += proceeds

	h.Qty -= qty
	if h.Qty <= 0 {
		delete(a.holdings, ticker)
	} else {
		a.holdings[ticker] = h
	}

	p.nextID++
	orderID := fmt.Sprintf("PAPER-%d", p.nextID)
	p.log.Debug().Int64("user", user).Str("ticker", ticker).Float64("qty", qty).
		Float64("price", price).Str("order_id", orderID).Msg("paper sell filled")
	return true, orderID, "filled", nil
}

var _ domain.Executor = (*Paper)(nil)
