// Package catalog holds the per-asset staking tier configuration. A Catalog
// is validated once when it is built and is read-only afterwards; consumers
// receive it explicitly rather than through package state.
package catalog

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/alanyoungcy/stakerise/internal/domain"
	"github.com/alanyoungcy/stakerise/internal/reward"
)

var hundred = decimal.NewFromInt(100)

// Tier is one lock option for an asset.
type Tier struct {
	DurationMonths int             `json:"duration_months" toml:"duration_months"`
	APY            decimal.Decimal `json:"apy" toml:"apy"`
	MinAmount      decimal.Decimal `json:"min_amount" toml:"min_amount"`
	Penalty        decimal.Decimal `json:"penalty" toml:"penalty"`
}

// UnmarshalTOML decodes a [[catalog.assets.tiers]] table. Decimal fields may
// be quoted strings, integers or floats; floats are converted from their
// shortest representation so literals such as 0.0000001 keep every digit.
func (t *Tier) UnmarshalTOML(v any) error {
	table, ok := v.(map[string]any)
	if !ok {
		return fmt.Errorf("catalog: tier must be a table, got %T", v)
	}
	var out Tier
	for key, raw := range table {
		var err error
		switch key {
		case "duration_months":
			n, ok := raw.(int64)
			if !ok {
				return fmt.Errorf("catalog: tier duration_months must be an integer, got %v", raw)
			}
			out.DurationMonths = int(n)
		case "apy":
			out.APY, err = tomlDecimal(key, raw)
		case "min_amount":
			out.MinAmount, err = tomlDecimal(key, raw)
		case "penalty":
			out.Penalty, err = tomlDecimal(key, raw)
		default:
			return fmt.Errorf("catalog: unknown tier key %q", key)
		}
		if err != nil {
			return err
		}
	}
	*t = out
	return nil
}

func tomlDecimal(key string, raw any) (decimal.Decimal, error) {
	switch v := raw.(type) {
	case string:
		d, err := decimal.NewFromString(strings.TrimSpace(v))
		if err != nil {
			return decimal.Zero, fmt.Errorf("catalog: tier %s %q is not a number", key, v)
		}
		return d, nil
	case int64:
		return decimal.NewFromInt(v), nil
	case float64:
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return decimal.Zero, fmt.Errorf("catalog: tier %s must be finite", key)
		}
		return decimal.NewFromFloat(v), nil
	default:
		return decimal.Zero, fmt.Errorf("catalog: tier %s must be a number, got %T", key, raw)
	}
}

// Terms returns the parts of the tier used by the reward engine.
func (t Tier) Terms() reward.Terms {
	return reward.Terms{DurationMonths: t.DurationMonths, APY: t.APY}
}

// Token is the configuration of one stakeable asset.
type Token struct {
	Asset    domain.Asset `json:"asset" toml:"asset"`
	Symbol   string       `json:"symbol" toml:"symbol"`
	Name     string       `json:"name" toml:"name"`
	Decimals int          `json:"decimals" toml:"decimals"`
	Tiers    []Tier       `json:"tiers" toml:"tiers"`
}

// Catalog maps each supported asset to its ordered tiers.
type Catalog struct {
	tokens map[domain.Asset]Token
	order  []domain.Asset
}

// New validates tokens and builds a Catalog from them. Validation failures
// wrap domain.ErrInvalidAPYConfiguration and list every problem found.
func New(tokens ...Token) (*Catalog, error) {
	if err := Validate(tokens); err != nil {
		return nil, err
	}

	c := &Catalog{tokens: make(map[domain.Asset]Token, len(tokens))}
	for _, tok := range tokens {
		tok.Tiers = append([]Tier(nil), tok.Tiers...)
		c.tokens[tok.Asset] = tok
		c.order = append(c.order, tok.Asset)
	}
	sort.Slice(c.order, func(i, j int) bool { return c.order[i] < c.order[j] })
	return c, nil
}

// Validate checks a token list for configuration defects.
func Validate(tokens []Token) error {
	var errs []string

	if len(tokens) == 0 {
		errs = append(errs, "catalog has no assets")
	}

	seen := make(map[domain.Asset]bool, len(tokens))
	for _, tok := range tokens {
		label := tok.Asset.String()
		if !tok.Asset.Valid() {
			errs = append(errs, fmt.Sprintf("%s: unknown asset", label))
			continue
		}
		if seen[tok.Asset] {
			errs = append(errs, fmt.Sprintf("%s: configured more than once", label))
		}
		seen[tok.Asset] = true

		if strings.TrimSpace(tok.Symbol) == "" {
			errs = append(errs, fmt.Sprintf("%s: symbol must not be empty", label))
		}
		if tok.Decimals < 0 || tok.Decimals > 36 {
			errs = append(errs, fmt.Sprintf("%s: decimals must be 0-36, got %d", label, tok.Decimals))
		}
		if len(tok.Tiers) == 0 {
			errs = append(errs, fmt.Sprintf("%s: at least one tier is required", label))
		}
		for i, tier := range tok.Tiers {
			if tier.DurationMonths <= 0 {
				errs = append(errs, fmt.Sprintf("%s tier %d: duration_months must be > 0, got %d", label, i, tier.DurationMonths))
			}
			if tier.APY.IsNegative() {
				errs = append(errs, fmt.Sprintf("%s tier %d: apy must be >= 0, got %s", label, i, tier.APY))
			}
			if !tier.MinAmount.IsPositive() {
				errs = append(errs, fmt.Sprintf("%s tier %d: min_amount must be > 0, got %s", label, i, tier.MinAmount))
			}
			if tier.Penalty.IsNegative() || tier.Penalty.GreaterThanOrEqual(hundred) {
				errs = append(errs, fmt.Sprintf("%s tier %d: penalty must be in [0, 100), got %s", label, i, tier.Penalty))
			}
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w:\n  - %s", domain.ErrInvalidAPYConfiguration, strings.Join(errs, "\n  - "))
	}
	return nil
}

// Assets returns the configured assets in contract order.
func (c *Catalog) Assets() []domain.Asset {
	return append([]domain.Asset(nil), c.order...)
}

// Tokens returns every configured token in contract order.
func (c *Catalog) Tokens() []Token {
	out := make([]Token, 0, len(c.order))
	for _, a := range c.order {
		tok, _ := c.Token(a)
		out = append(out, tok)
	}
	return out
}

// Token returns the configuration for asset. The returned tier slice is a
// copy.
func (c *Catalog) Token(asset domain.Asset) (Token, error) {
	tok, ok := c.tokens[asset]
	if !ok {
		return Token{}, fmt.Errorf("catalog: %w: %s", domain.ErrUnknownAsset, asset)
	}
	tok.Tiers = append([]Tier(nil), tok.Tiers...)
	return tok, nil
}

// Tier returns tier index of asset, or domain.ErrInvalidTierSelection when
// index is outside the asset's tier list.
func (c *Catalog) Tier(asset domain.Asset, index int) (Tier, error) {
	tok, ok := c.tokens[asset]
	if !ok {
		return Tier{}, fmt.Errorf("catalog: %w: %s", domain.ErrUnknownAsset, asset)
	}
	if index < 0 || index >= len(tok.Tiers) {
		return Tier{}, fmt.Errorf("catalog: %w: %s has %d tiers, got index %d",
			domain.ErrInvalidTierSelection, asset, len(tok.Tiers), index)
	}
	return tok.Tiers[index], nil
}
