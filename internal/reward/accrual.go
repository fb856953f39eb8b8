package reward

import (
	"time"

	"github.com/shopspring/decimal"
)

// secondsPerYear is the 365-day year the staking contract accrues against.
const secondsPerYear = 365 * 24 * 60 * 60

// Pending returns the reward accrued on amount since lastClaim at the nominal
// apy, accruing linearly per whole second:
//
//	amount * apy * elapsed / secondsPerYear / 100
//
// It is zero when now is not after lastClaim.
func Pending(amount, apy decimal.Decimal, lastClaim, now time.Time) decimal.Decimal {
	if !now.After(lastClaim) {
		return decimal.Zero
	}
	elapsed := decimal.NewFromInt(int64(now.Sub(lastClaim) / time.Second))
	return amount.Mul(apy).Mul(elapsed).DivRound(decimal.NewFromInt(secondsPerYear*100), precision)
}

// Exit describes the outcome of unstaking before maturity.
type Exit struct {
	Penalty decimal.Decimal `json:"penalty"`
	Payout  decimal.Decimal `json:"payout"`
}

// EarlyExit applies an early-unstake penalty, given in percent, to amount.
func EarlyExit(amount, penaltyPct decimal.Decimal) Exit {
	penalty := amount.Mul(penaltyPct).DivRound(hundred, precision)
	return Exit{Penalty: penalty, Payout: amount.Sub(penalty)}
}

// Maturity returns the time a stake opened at start unlocks.
func Maturity(start time.Time, durationMonths int) time.Time {
	return start.AddDate(0, durationMonths, 0)
}

// IsMature reports whether a stake opened at start has reached maturity at now.
func IsMature(start time.Time, durationMonths int, now time.Time) bool {
	return !now.Before(Maturity(start, durationMonths))
}
