package broker

import (
	"github.com/rs/zerolog"

	"github.com/dohyunpark/autotrader/internal/domain"
)

// DryRun wraps an Executor so reads pass through unchanged but Buy/Sell are
// logged instead of submitted, for the CLI --dry-run flags (§6).
type DryRun struct {
	Inner domain.Executor
	Log   zerolog.Logger
}

func (d DryRun) GetHoldings(user int64) ([]domain.Holding, error) { return d.Inner.GetHoldings(user) }
func (d DryRun) GetCash(user int64) (float64, error)              { return d.Inner.GetCash(user) }
func (d DryRun) GetPending(user int64) ([]domain.Order, error)    { return d.Inner.GetPending(user) }
func (d DryRun) GetPrice(ticker string) (float64, error)          { return d.Inner.GetPrice(ticker) }

func (d DryRun) Buy(user int64, ticker string, qty, price float64) (bool, string, string, error) {
	d.Log.Info().Int64("user", user).Str("ticker", ticker).Float64("qty", qty).Float64("price", price).
		Msg("dry-run: would place buy order")
	return true, "dry-run", "dry-run: order not submitted", nil
}

func (d DryRun) Sell(user int64, ticker string, qty, price float64) (bool, string, string, error) {
	d.Log.Info().Int64("user", user).Str("ticker", ticker).Float64("qty", qty).Float64("price", price).
		Msg("dry-run: would place sell order")
	return true, "dry-run", "dry-run: order not submitted", nil
}
