// Package scoring implements the versioned scoring strategies (v1 through
// v10) that turn one ticker's indicator frame into a 0-100 buy/hold signal.
// Every strategy follows the same template: validate, check disqualifiers,
// score independent groups, clamp, attach the base indicator readout.
package scoring

import (
	"fmt"
	"sort"

	"github.com/dohyunpark/autotrader/internal/domain"
	"github.com/dohyunpark/autotrader/internal/indicators"
)

// Result is one scorer's output for one ticker. Two calls against the same
// Frame and Extras must produce a byte-identical Result.
type Result struct {
	Score             int
	Version           string
	Signals           []string
	Groups            map[string]int
	Disqualified      bool
	DisqualifyReason  string
	Close             float64
	ChangePct         float64
	Volume            float64
	TradingValue      float64
	ExitPlan          *domain.ExitPlan
}

// Extras carries the per-ticker context a scorer needs beyond the indicator
// frame: leader/follower correlation maps, foreign/institutional net-buy
// series, disclosure flags. Every field is optional; scorers that don't use
// a field ignore its zero value.
type Extras struct {
	MarketCapKRW        float64 // 0 = unknown, falls back to trading-value tiers
	ForeignNetBuy5D     []float64
	InstitutionNetBuy5D []float64
	LeaderChangePct     map[string]float64 // ticker -> today's % change, for v10
	LeaderCorrelation   map[string]float64 // ticker -> Pearson r against this follower, for v10
	ShortBalanceRatio   float64            // short interest / float, 0 = unknown
}

// Scorer is implemented by each versioned strategy.
type Scorer interface {
	Version() string
	MinDataBars() int
	Score(frame indicators.Frame, extras Extras) Result
}

// Registry holds one Scorer per version string ("v1".."v10"), keyed the way
// UserPolicy.ScoreVersion and the snapshot column headers reference them.
type Registry struct {
	byVersion map[string]Scorer
}

// NewRegistry builds a Registry over the given scorers, keyed by their
// Version(). Panics on a duplicate version, since that's a wiring bug, not
// a runtime condition callers should need to handle.
func NewRegistry(scorers ...Scorer) *Registry {
	r := &Registry{byVersion: make(map[string]Scorer, len(scorers))}
	for _, s := range scorers {
		if _, exists := r.byVersion[s.Version()]; exists {
			panic(fmt.Sprintf("scoring: duplicate version %q registered", s.Version()))
		}
		r.byVersion[s.Version()] = s
	}
	return r
}

// Get returns the scorer for a version string, or false if unregistered.
func (r *Registry) Get(version string) (Scorer, bool) {
	s, ok := r.byVersion[version]
	return s, ok
}

// Versions returns every registered version string, sorted.
func (r *Registry) Versions() []string {
	out := make([]string, 0, len(r.byVersion))
	for v := range r.byVersion {
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}

// ScoreAll runs every registered scorer against one frame, skipping (not
// erroring) any version whose MinDataBars exceeds the frame's available
// history. The caller is expected to have already gated frame construction
// on domain.ErrDataInsufficient for the 20-bar floor; this second gate is
// per-version, since v10 and the swing scorers want more history than the
// baseline indicator set requires.
func (r *Registry) ScoreAll(frame indicators.Frame, extras Extras) map[string]Result {
	out := make(map[string]Result, len(r.byVersion))
	bars := len(frame.Bars())
	for version, s := range r.byVersion {
		if bars < s.MinDataBars() {
			continue
		}
		out[version] = s.Score(frame, extras)
	}
	return out
}
