package reward

import (
	"fmt"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dec(t *testing.T, s string) decimal.Decimal {
	t.Helper()
	d, err := decimal.NewFromString(s)
	require.NoError(t, err)
	return d
}

func assertDecimal(t *testing.T, want string, got decimal.Decimal, msgAndArgs ...any) {
	t.Helper()
	w, err := decimal.NewFromString(want)
	require.NoError(t, err)
	assert.Truef(t, w.Equal(got), "want %s, got %s %v", want, got.String(), msgAndArgs)
}

var (
	principals = []string{"0.00000001", "0.1", "1", "250", "1000", "123456.789", "1000000000"}
	apys       = []string{"0", "0.5", "5", "7.5", "12", "12.5", "18", "25"}
	durations  = []int{1, 2, 6, 12, 18, 24}
)

func TestProjectSimpleExact(t *testing.T) {
	p := Project(dec(t, "1000"), Terms{DurationMonths: 12, APY: dec(t, "12")}, false)

	assertDecimal(t, "10", p.MonthlyReward)
	assertDecimal(t, "120", p.TotalReward)
	assertDecimal(t, "12", p.EffectiveAPY)
	assertDecimal(t, "1120", p.FinalValue)
	assert.False(t, p.Compound)

	r := p.Rounded()
	assert.Equal(t, "10.0000", r.MonthlyReward.StringFixed(RewardPlaces))
	assert.Equal(t, "120.0000", r.TotalReward.StringFixed(RewardPlaces))
	assert.Equal(t, "12.00", r.EffectiveAPY.StringFixed(PercentPlaces))
}

func TestProjectCompoundExact(t *testing.T) {
	// 500 * 1.015^24 = 714.75140596451255393...
	p := Project(dec(t, "500"), Terms{DurationMonths: 24, APY: dec(t, "18")}, true)
	r := p.Rounded()

	assert.True(t, p.Compound)
	assert.Equal(t, "714.7514", r.FinalValue.StringFixed(RewardPlaces))
	assert.Equal(t, "214.7514", r.TotalReward.StringFixed(RewardPlaces))
	assert.Equal(t, "8.9480", r.MonthlyReward.StringFixed(RewardPlaces))
	assert.Equal(t, "42.95", r.EffectiveAPY.StringFixed(PercentPlaces))

	// Unrounded values stay available well beyond display precision.
	assert.Equal(t, "214.75140596451255", p.TotalReward.Truncate(14).String())
}

func TestProjectCompoundTwelveMonths(t *testing.T) {
	p := Project(dec(t, "1000"), Terms{DurationMonths: 12, APY: dec(t, "12.5")}, true)
	r := p.Rounded()

	assert.Equal(t, "13.24", r.EffectiveAPY.StringFixed(PercentPlaces))
	assert.Equal(t, "132.4160", r.TotalReward.StringFixed(RewardPlaces))
}

func TestProjectNonNegative(t *testing.T) {
	for _, ps := range principals {
		for _, as := range apys {
			for _, n := range durations {
				for _, compound := range []bool{false, true} {
					p := Project(dec(t, ps), Terms{DurationMonths: n, APY: dec(t, as)}, compound)
					name := fmt.Sprintf("p=%s apy=%s n=%d compound=%v", ps, as, n, compound)
					assert.False(t, p.MonthlyReward.IsNegative(), name)
					assert.False(t, p.TotalReward.IsNegative(), name)
					assert.False(t, p.EffectiveAPY.IsNegative(), name)
				}
			}
		}
	}
}

func TestProjectZeroAPY(t *testing.T) {
	for _, n := range durations {
		for _, compound := range []bool{false, true} {
			p := Project(dec(t, "1000"), Terms{DurationMonths: n, APY: decimal.Zero}, compound)
			assert.True(t, p.MonthlyReward.IsZero())
			assert.True(t, p.TotalReward.IsZero())
			assert.True(t, p.EffectiveAPY.IsZero())
			assertDecimal(t, "1000", p.FinalValue)
		}
	}
}

func TestProjectCompoundBeatsSimple(t *testing.T) {
	for _, ps := range principals {
		for _, as := range apys[1:] {
			for _, n := range durations[1:] {
				terms := Terms{DurationMonths: n, APY: dec(t, as)}
				simple := Project(dec(t, ps), terms, false)
				compound := Project(dec(t, ps), terms, true)
				assert.Truef(t, compound.TotalReward.GreaterThan(simple.TotalReward),
					"p=%s apy=%s n=%d: compound %s <= simple %s", ps, as, n, compound.TotalReward, simple.TotalReward)
			}
		}
	}
}

func TestProjectSingleMonthModesAgree(t *testing.T) {
	terms := Terms{DurationMonths: 1, APY: dec(t, "12.5")}
	simple := Project(dec(t, "1000"), terms, false)
	compound := Project(dec(t, "1000"), terms, true)

	assert.Equal(t, simple.TotalReward.Round(20).String(), compound.TotalReward.Round(20).String())
}

func TestProjectLinearInPrincipal(t *testing.T) {
	for _, ps := range principals {
		for _, as := range apys {
			for _, n := range durations {
				terms := Terms{DurationMonths: n, APY: dec(t, as)}
				p := dec(t, ps)
				two := decimal.NewFromInt(2)

				s1 := Project(p, terms, false)
				s2 := Project(p.Mul(two), terms, false)
				assert.True(t, s2.MonthlyReward.Equal(s1.MonthlyReward.Mul(two)))
				assert.True(t, s2.TotalReward.Equal(s1.TotalReward.Mul(two)))

				c1 := Project(p, terms, true)
				c2 := Project(p.Mul(two), terms, true)
				assert.True(t, c2.TotalReward.Equal(c1.TotalReward.Mul(two)))
				assert.True(t, c2.EffectiveAPY.Equal(c1.EffectiveAPY))
			}
		}
	}
}

func TestProjectDurationMonotonic(t *testing.T) {
	for _, as := range apys[1:] {
		for _, compound := range []bool{false, true} {
			prev := decimal.Zero
			for n := 1; n <= 24; n++ {
				p := Project(dec(t, "1000"), Terms{DurationMonths: n, APY: dec(t, as)}, compound)
				assert.Truef(t, p.TotalReward.GreaterThan(prev), "apy=%s n=%d compound=%v", as, n, compound)
				prev = p.TotalReward
			}
		}
	}
}

func TestProjectEffectiveAPYNotAnnualized(t *testing.T) {
	// A 24 month tier reports the return over the whole period.
	p := Project(dec(t, "1"), Terms{DurationMonths: 24, APY: dec(t, "10")}, true)
	assert.True(t, p.EffectiveAPY.GreaterThan(dec(t, "20")))
}

func TestProjectNonPositiveDuration(t *testing.T) {
	p := Project(dec(t, "100"), Terms{DurationMonths: 0, APY: dec(t, "10")}, true)
	assert.True(t, p.TotalReward.IsZero())
	assert.True(t, p.MonthlyReward.IsZero())
	assertDecimal(t, "100", p.FinalValue)
}

func TestGrowth(t *testing.T) {
	assertDecimal(t, "1", Growth(dec(t, "18"), 0))
	assertDecimal(t, "1.015", Growth(dec(t, "18"), 1))
	assertDecimal(t, "1.030225", Growth(dec(t, "18"), 2))
}

func TestMonthlyRate(t *testing.T) {
	assertDecimal(t, "0.01", MonthlyRate(dec(t, "12")))
	assertDecimal(t, "0.015", MonthlyRate(dec(t, "18")))
	assert.Equal(t, "0.0104166667", MonthlyRate(dec(t, "12.5")).Round(10).String())
}

// The float64 rendering used by the browser dashboard agrees with the decimal
// engine at display precision across the supported input ranges.
func TestProjectMatchesFloatAtDisplayPrecision(t *testing.T) {
	for _, ps := range []string{"1", "250", "1000", "99999.5", "1000000000"} {
		for _, as := range apys {
			for _, n := range durations {
				principal, _ := dec(t, ps).Float64()
				apy, _ := dec(t, as).Float64()
				rate := apy / 12 / 100

				final := principal
				for i := 0; i < n; i++ {
					final *= 1 + rate
				}
				want := decimal.NewFromFloat(final - principal).Round(2)

				got := Project(dec(t, ps), Terms{DurationMonths: n, APY: dec(t, as)}, true).TotalReward.Round(2)
				diff := got.Sub(want).Abs()
				assert.Truef(t, diff.LessThanOrEqual(dec(t, "0.01")), "p=%s apy=%s n=%d: %s vs %s", ps, as, n, got, want)
			}
		}
	}
}
