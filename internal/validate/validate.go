// Package validate holds the caller-side checks run on user input before it
// reaches the reward engine or the chain client.
package validate

import (
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"

	"github.com/alanyoungcy/stakerise/internal/catalog"
	"github.com/alanyoungcy/stakerise/internal/domain"
)

// Problem is a user-facing validation message tied to an input field.
type Problem struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Err     error  `json:"-"`
}

func (p Problem) Error() string { return p.Message }

func (p Problem) Unwrap() error { return p.Err }

// Bounds on a parsed principal. Decimal operations rescale to the exponent,
// so it must stay small.
const (
	maxPrincipalLen = 64
	maxExponent     = 36
)

// MaxPrincipal is the largest accepted stake amount in whole tokens.
var MaxPrincipal = decimal.New(1, 18)

// ParsePrincipal parses a user-entered stake amount. Empty, non-numeric,
// non-finite, non-positive and out-of-range inputs wrap
// domain.ErrInvalidPrincipal.
func ParsePrincipal(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, fmt.Errorf("%w: amount is required", domain.ErrInvalidPrincipal)
	}
	if len(s) > maxPrincipalLen {
		return decimal.Zero, fmt.Errorf("%w: amount is too long", domain.ErrInvalidPrincipal)
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %q is not a number", domain.ErrInvalidPrincipal, s)
	}
	if exp := d.Exponent(); exp > maxExponent || exp < -maxExponent {
		return decimal.Zero, fmt.Errorf("%w: %q is out of range", domain.ErrInvalidPrincipal, s)
	}
	if !d.IsPositive() {
		return decimal.Zero, fmt.Errorf("%w: amount must be greater than 0", domain.ErrInvalidPrincipal)
	}
	if d.GreaterThan(MaxPrincipal) {
		return decimal.Zero, fmt.Errorf("%w: amount must not exceed %s", domain.ErrInvalidPrincipal, MaxPrincipal)
	}
	return d, nil
}

// CheckStake applies the tier minimum and, when balance is known, the wallet
// balance to a parsed principal. It returns nil when the stake is acceptable.
func CheckStake(principal decimal.Decimal, symbol string, tier catalog.Tier, balance *decimal.Decimal) []Problem {
	var problems []Problem

	if !principal.IsPositive() {
		problems = append(problems, Problem{
			Field:   "amount",
			Message: "Amount must be greater than 0",
			Err:     domain.ErrInvalidPrincipal,
		})
		return problems
	}

	if principal.LessThan(tier.MinAmount) {
		problems = append(problems, Problem{
			Field:   "amount",
			Message: fmt.Sprintf("Minimum stake amount is %s %s", tier.MinAmount.String(), symbol),
			Err:     domain.ErrBelowMinimum,
		})
	}

	if balance != nil && principal.GreaterThan(*balance) {
		problems = append(problems, Problem{
			Field:   "amount",
			Message: fmt.Sprintf("Insufficient balance: %s %s available", balance.String(), symbol),
			Err:     domain.ErrInsufficientBalance,
		})
	}

	return problems
}

// Address checks that s is a 0x-prefixed, 20-byte hex wallet address and
// returns it in checksummed form.
func Address(s string) (common.Address, error) {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "0x") && !strings.HasPrefix(s, "0X") {
		return common.Address{}, fmt.Errorf("%w: %q", domain.ErrInvalidAddress, s)
	}
	if !common.IsHexAddress(s) {
		return common.Address{}, fmt.Errorf("%w: %q", domain.ErrInvalidAddress, s)
	}
	return common.HexToAddress(s), nil
}
