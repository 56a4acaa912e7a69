// Package domain provides the core domain models shared across every
// subsystem of the trading engine: price data, scoring results, users,
// policies, and the trade-journal entities. Domain types carry no
// infrastructure dependency — no SQL, no HTTP, no broker wire format.
package domain

import "time"

// Market identifies the venue a ticker trades on.
type Market string

// TradingMode controls how a user's candidate buys are handled.
type TradingMode string

const (
	// ModeManual means the controller never places or queues orders for this user.
	ModeManual TradingMode = "manual"
	// ModeSemi means candidate buys are queued as Suggestion rows instead of placed.
	ModeSemi TradingMode = "semi"
	// ModeAuto means candidate buys are placed directly through the broker.
	ModeAuto TradingMode = "auto"
	// ModeGreenlight names the DecisionPlugin (LLM autonomy) mode. The controller
	// calls no plugin: it places this mode's buys directly, as in ModeAuto.
	ModeGreenlight TradingMode = "greenlight"
)

// OrderSide is buy or sell.
type OrderSide string

const (
	OrderSideBuy  OrderSide = "buy"
	OrderSideSell OrderSide = "sell"
)

// OrderStatus tracks an Order through its lifecycle.
type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusExecuted  OrderStatus = "executed"
	OrderStatusCancelled OrderStatus = "cancelled"
	OrderStatusDryRun    OrderStatus = "dry_run"
	OrderStatusRejected  OrderStatus = "rejected"
)

// SuggestionStatus tracks a Suggestion through its lifecycle.
type SuggestionStatus string

const (
	SuggestionPending  SuggestionStatus = "pending"
	SuggestionApproved SuggestionStatus = "approved"
	SuggestionExecuted SuggestionStatus = "executed"
	SuggestionRejected SuggestionStatus = "rejected"
	SuggestionExpired  SuggestionStatus = "expired"
)

// PriceBar is a single OHLCV observation. Immutable once observed.
//
// Invariant: High >= max(Open,Close) >= min(Open,Close) >= Low, Volume >= 0.
type PriceBar struct {
	Timestamp time.Time
	Open      float64
	High      float64
	Low       float64
	Close     float64
	Volume    float64
}

// Valid reports whether the bar satisfies the PriceBar invariant.
func (b PriceBar) Valid() bool {
	if b.Volume < 0 {
		return false
	}
	hi := b.Open
	if b.Close > hi {
		hi = b.Close
	}
	lo := b.Open
	if b.Close < lo {
		lo = b.Close
	}
	return b.High >= hi && lo >= b.Low
}

// PriceSeries is an ordered, strictly-increasing-timestamp sequence of bars
// for a single ticker. Usable series generally have at least 60 bars.
type PriceSeries struct {
	Ticker string
	Market Market
	Bars   []PriceBar
}

// Closes returns the slice of closing prices across the series, in order.
func (s PriceSeries) Closes() []float64 { return s.column(func(b PriceBar) float64 { return b.Close }) }

// Highs returns the slice of high prices across the series, in order.
func (s PriceSeries) Highs() []float64 { return s.column(func(b PriceBar) float64 { return b.High }) }

// Lows returns the slice of low prices across the series, in order.
func (s PriceSeries) Lows() []float64 { return s.column(func(b PriceBar) float64 { return b.Low }) }

// Volumes returns the slice of volumes across the series, in order.
func (s PriceSeries) Volumes() []float64 {
	return s.column(func(b PriceBar) float64 { return b.Volume })
}

func (s PriceSeries) column(pick func(PriceBar) float64) []float64 {
	out := make([]float64, len(s.Bars))
	for i, b := range s.Bars {
		out[i] = pick(b)
	}
	return out
}

// LastBar returns the most recent bar and true, or the zero value and false
// if the series is empty.
func (s PriceSeries) LastBar() (PriceBar, bool) {
	if len(s.Bars) == 0 {
		return PriceBar{}, false
	}
	return s.Bars[len(s.Bars)-1], true
}

// FeeSchedule holds the commission and transfer-tax rates applied by the
// paper executor when simulating fills, so realised P/L tracks live
// accounting. Always passed explicitly rather than read from a global
// settings singleton, since fee rates vary by market.
type FeeSchedule struct {
	Market         Market
	CommissionRate float64 // fraction of notional, charged on both legs
	TaxRate        float64 // fraction of notional, charged on sells only (market-dependent)
}

// User is a single trading account under management.
type User struct {
	ID              int64
	BrokerAPIKey    string
	BrokerAPISecret string
	IsPaperAccount  bool
	Policy          UserPolicy
}

// UserPolicy configures per-user trading behaviour: mode, DSL conditions,
// thresholds, and risk limits. Read once at tick entry and never mutated
// mid-tick.
type UserPolicy struct {
	Mode             TradingMode
	Enabled          bool
	ScoreVersion     string
	BuyConditions    string // condition DSL, e.g. "V1>=60 AND V5>=50"
	SellConditions   string
	MinBuyScore      int
	SellScore        int
	StopLossRate     float64 // fraction, e.g. 0.07 for -7%
	TakeProfitRate   float64
	MaxHoldings      int
	MaxDailyTrades   int
	MaxHoldDays      int
	PerTickerBudget  float64
	MinVolumeRatio   float64
	GapLimitPct      float64  // default 15.0
	ExpireHours      float64  // suggestion TTL for semi mode
	MarketCapCeiling *float64 // nil = no ceiling
}

// ExitPlan is the target/stop/trailing plan attached to a holding opened by
// a swing-style scorer (v6 and similar). Nil for holdings opened by scorers
// that don't produce one; the risk manager then applies only the user's
// policy-level sell triggers such as the stop-loss rate. TakeProfitRate
// is not evaluated by risk.EvaluateSell.
type ExitPlan struct {
	Entry           float64
	TargetPrice     float64
	StopPrice       float64
	TrailingTrigger float64 // price level above which a trailing stop arms
	MaxHoldDays     int
	ATR             float64 // ATR at entry, used to recompute the trailing stop
}

// Holding is an open position for one user. Closed by setting Qty to 0 and
// removing the row — qty is never negative.
type Holding struct {
	User           int64
	Ticker         string
	Market         Market
	Qty            float64
	AvgPrice       float64
	OpenedAt       time.Time
	EverAboveSMA20 bool // latch armed once close has traded above SMA-20
	ExitPlan       *ExitPlan
}

// Order is a single buy or sell instruction and its outcome.
type Order struct {
	ID            int64
	User          int64
	Ticker        string
	Side          OrderSide
	Qty           float64
	Price         float64 // 0 = market
	PlacedAt      time.Time
	BrokerOrderID string
	Status        OrderStatus
	RealisedPnL   *float64
	RealisedRate  *float64
	Reason        string
}

// Suggestion is a pending buy proposal queued for a semi-auto user.
type Suggestion struct {
	ID               string
	User             int64
	Ticker           string
	Score            int
	RecommendedPrice float64
	BuyBandHigh      float64
	Target           float64
	Stop             float64
	Status           SuggestionStatus
	CreatedAt        time.Time
	ExpiresAt        time.Time
}

// DailyPerf is one row of daily performance accounting per user.
type DailyPerf struct {
	User          int64
	Date          string // YYYY-MM-DD, at the executor's local clock
	TotalAssets   float64
	Cash          float64
	HoldingsValue float64
	Invested      float64
	RealisedPnL   float64
	NHoldings     int
}

// AlertKind enumerates the alert kinds the journal records.
type AlertKind string

const (
	AlertConfig   AlertKind = "ALERT_CONFIG"
	AlertBroker   AlertKind = "ALERT_BROKER"
	AlertInternal AlertKind = "ALERT_INTERNAL"
)

// AlertHistory is an append-only dedupe ledger for per-(user,ticker,kind,day) notifications.
type AlertHistory struct {
	ID     int64
	User   int64
	Ticker string
	Kind   AlertKind
	Day    string // YYYY-MM-DD
	Detail string
	At     time.Time
}
