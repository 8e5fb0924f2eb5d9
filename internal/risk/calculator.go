package risk

import (
	"math"

	"tradejournal/internal/domain"
)

// EfficiencyDisplayBound clamps efficiency for progress-bar style rendering.
const EfficiencyDisplayBound = 100.0

// Config holds inputs the calculator needs beyond the trade itself.
type Config struct {
	// AccountSize is the account balance used for RiskPercent. Zero disables it.
	AccountSize float64
}

// Calculator derives risk, reward and efficiency figures from a TradeRecord.
// Every method is total: it returns a value or nil, never NaN, Inf or a panic.
type Calculator struct {
	config Config
}

// NewCalculator creates a calculator. A negative account size is treated as unset.
func NewCalculator(config Config) *Calculator {
	if config.AccountSize < 0 || !finite(config.AccountSize) {
		config.AccountSize = 0
	}
	return &Calculator{config: config}
}

// PLDisplay splits a realized P/L into an explicit sign and a magnitude.
// Zero is non-positive and carries the "-" indicator.
type PLDisplay struct {
	Positive  bool
	Magnitude float64
	Indicator string // "+" or "-"
}

// Metrics bundles every derived value for one trade.
type Metrics struct {
	RiskAmount        *float64
	RewardAmount      *float64
	RiskRewardRatio   *float64
	RiskPercent       *float64
	EffectiveTPExit   *float64
	PL                *PLDisplay
	Efficiency        *float64 // unclamped, used for filtering and sorting
	DisplayEfficiency *float64 // clamped to [-100, 100]
}

// Compute derives all metrics for t.
func (c *Calculator) Compute(t *domain.TradeRecord) Metrics {
	eff := Efficiency(t)
	return Metrics{
		RiskAmount:        RiskAmount(t),
		RewardAmount:      RewardAmount(t),
		RiskRewardRatio:   RiskRewardRatio(t),
		RiskPercent:       c.RiskPercent(t),
		EffectiveTPExit:   EffectiveTPExit(t),
		PL:                ProfitLoss(t),
		Efficiency:        eff,
		DisplayEfficiency: ClampEfficiency(eff),
	}
}

// Enrich returns a copy of t with Efficiency recomputed from its current inputs.
func (c *Calculator) Enrich(t domain.TradeRecord) domain.TradeRecord {
	t.Efficiency = Efficiency(&t)
	return t
}

// RiskPercent is the planned risk as a percentage of the configured account size.
func (c *Calculator) RiskPercent(t *domain.TradeRecord) *float64 {
	risk := RiskAmount(t)
	if risk == nil || c.config.AccountSize == 0 {
		return nil
	}
	return guard(*risk / c.config.AccountSize * 100)
}

// RiskAmount is |projectedEntry - projectedSL|, nil without a stop loss.
func RiskAmount(t *domain.TradeRecord) *float64 {
	if t.ProjectedSL == nil {
		return nil
	}
	return guard(math.Abs(t.ProjectedEntry - *t.ProjectedSL))
}

// RewardAmount is |projectedTP - projectedEntry|, nil without a take profit.
func RewardAmount(t *domain.TradeRecord) *float64 {
	if t.ProjectedTP == nil {
		return nil
	}
	return guard(math.Abs(*t.ProjectedTP - t.ProjectedEntry))
}

// RiskRewardRatio is reward / risk when both exist and risk is non-zero.
func RiskRewardRatio(t *domain.TradeRecord) *float64 {
	risk, reward := RiskAmount(t), RewardAmount(t)
	if risk == nil || reward == nil || *risk == 0 {
		return nil
	}
	return guard(*reward / *risk)
}

// EffectiveTPExit is projectedTP when the take profit was hit, otherwise actualExit.
// It never falls back to projectedTP for NotHit or Unknown.
func EffectiveTPExit(t *domain.TradeRecord) *float64 {
	if t.DidHitTP == domain.TPHit {
		return copyOf(t.ProjectedTP)
	}
	return copyOf(t.ActualExit)
}

// ProfitLoss returns the sign/magnitude split of actualPL, nil while the trade is open.
func ProfitLoss(t *domain.TradeRecord) *PLDisplay {
	if t.ActualPL == nil || !finite(*t.ActualPL) {
		return nil
	}
	pl := *t.ActualPL
	d := &PLDisplay{Positive: pl > 0, Magnitude: math.Abs(pl), Indicator: "-"}
	if d.Positive {
		d.Indicator = "+"
	}
	return d
}

// Efficiency is actualPL / maxPossiblePL * 100, nil if either is missing or the maximum is zero.
func Efficiency(t *domain.TradeRecord) *float64 {
	if t.ActualPL == nil || t.MaxPossiblePL == nil || *t.MaxPossiblePL == 0 {
		return nil
	}
	return guard(*t.ActualPL / *t.MaxPossiblePL * 100)
}

// ClampEfficiency bounds eff to [-100, 100] for rendering.
func ClampEfficiency(eff *float64) *float64 {
	if eff == nil {
		return nil
	}
	v := math.Min(math.Max(*eff, -EfficiencyDisplayBound), EfficiencyDisplayBound)
	return &v
}

func guard(v float64) *float64 {
	if !finite(v) {
		return nil
	}
	return &v
}

func copyOf(p *float64) *float64 {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
