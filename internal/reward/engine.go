// Package reward projects staking rewards for a principal locked in a tier.
//
// Every function in this package is pure: no I/O, no shared state, safe to
// call concurrently. Inputs are expected to be validated by the caller
// (positive principal, duration of at least one month, non-negative APY);
// see package validate and package catalog.
package reward

import "github.com/shopspring/decimal"

const (
	// RewardPlaces is the display precision for token amounts.
	RewardPlaces = 4
	// PercentPlaces is the display precision for percentages.
	PercentPlaces = 2

	// precision is the number of fractional digits kept by the few divisions
	// the engine performs. Multiplications are exact.
	precision = 32
)

var (
	one     = decimal.NewFromInt(1)
	hundred = decimal.NewFromInt(100)
	// monthlyDivisor turns an annual percentage into a monthly fraction:
	// 12 months times 100 percent.
	monthlyDivisor = decimal.NewFromInt(1200)
)

// Terms are the parts of a tier the engine needs.
type Terms struct {
	DurationMonths int
	// APY is the nominal annual yield in percent, 12.5 meaning 12.5%.
	APY decimal.Decimal
}

// Projection is the unrounded outcome of locking a principal for the full
// duration of a tier.
type Projection struct {
	// MonthlyReward is the reward per month. Under compounding it is the
	// average over the whole duration, not the amount paid in any given month.
	MonthlyReward decimal.Decimal `json:"monthly_reward"`
	TotalReward   decimal.Decimal `json:"total_reward"`
	// EffectiveAPY is the realized return over the whole duration in percent.
	// It is not re-annualized when the duration differs from 12 months.
	EffectiveAPY decimal.Decimal `json:"effective_apy"`
	FinalValue   decimal.Decimal `json:"final_value"`
	Compound     bool            `json:"compound"`
}

// Rounded returns a copy rounded for display: rewards to RewardPlaces and the
// percentage to PercentPlaces.
func (p Projection) Rounded() Projection {
	return Projection{
		MonthlyReward: p.MonthlyReward.Round(RewardPlaces),
		TotalReward:   p.TotalReward.Round(RewardPlaces),
		EffectiveAPY:  p.EffectiveAPY.Round(PercentPlaces),
		FinalValue:    p.FinalValue.Round(RewardPlaces),
		Compound:      p.Compound,
	}
}

// MonthlyRate converts an annual percentage into the per-month fraction
// apy / 12 / 100.
func MonthlyRate(apy decimal.Decimal) decimal.Decimal {
	return apy.DivRound(monthlyDivisor, precision)
}

// Growth returns (1 + apy/1200)^months. Numerator and denominator are raised
// exactly and divided once, so the only rounding happens at the last digit of
// precision.
func Growth(apy decimal.Decimal, months int) decimal.Decimal {
	num, den := one, one
	step := monthlyDivisor.Add(apy)
	for i := 0; i < months; i++ {
		num = num.Mul(step)
		den = den.Mul(monthlyDivisor)
	}
	return num.DivRound(den, precision)
}

// Project computes the reward projection for principal under terms, either
// as simple interest or compounded monthly over the full duration.
//
// A non-positive duration yields a zero-reward projection.
func Project(principal decimal.Decimal, terms Terms, compound bool) Projection {
	if terms.DurationMonths <= 0 {
		return Projection{
			MonthlyReward: decimal.Zero,
			TotalReward:   decimal.Zero,
			EffectiveAPY:  decimal.Zero,
			FinalValue:    principal,
			Compound:      compound,
		}
	}
	if compound {
		return projectCompound(principal, terms)
	}
	return projectSimple(principal, terms)
}

func projectSimple(principal decimal.Decimal, terms Terms) Projection {
	monthly := principal.Mul(MonthlyRate(terms.APY))
	total := monthly.Mul(decimal.NewFromInt(int64(terms.DurationMonths)))
	return Projection{
		MonthlyReward: monthly,
		TotalReward:   total,
		EffectiveAPY:  terms.APY,
		FinalValue:    principal.Add(total),
	}
}

func projectCompound(principal decimal.Decimal, terms Terms) Projection {
	gain := Growth(terms.APY, terms.DurationMonths).Sub(one)

	// total = principal*growth - principal, kept linear in principal.
	total := principal.Mul(gain)
	return Projection{
		MonthlyReward: total.DivRound(decimal.NewFromInt(int64(terms.DurationMonths)), precision),
		TotalReward:   total,
		EffectiveAPY:  gain.Mul(hundred),
		FinalValue:    principal.Add(total),
		Compound:      true,
	}
}
