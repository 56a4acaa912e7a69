package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSystemClock_Now(t *testing.T) {
	before := time.Now()
	got := SystemClock{}.Now()
	after := time.Now()
	assert.False(t, got.Before(before))
	assert.False(t, got.After(after))
}

type stubExecutor struct{}

func (stubExecutor) GetHoldings(user int64) ([]Holding, error) { return nil, nil }
func (stubExecutor) GetCash(user int64) (float64, error)       { return 0, nil }
func (stubExecutor) GetPending(user int64) ([]Order, error)    { return nil, nil }
func (stubExecutor) GetPrice(ticker string) (float64, error)   { return 0, nil }
func (stubExecutor) Buy(user int64, ticker string, qty, price float64) (bool, string, string, error) {
	return true, "ORD-1", "", nil
}
func (stubExecutor) Sell(user int64, ticker string, qty, price float64) (bool, string, string, error) {
	return true, "ORD-2", "", nil
}

func TestExecutor_SatisfiedByStub(t *testing.T) {
	var e Executor = stubExecutor{}
	ok, id, _, err := e.Buy(1, "005930", 10, 70000)
	assert.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "ORD-1", id)
}
