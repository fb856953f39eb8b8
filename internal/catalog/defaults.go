package catalog

import (
	"github.com/shopspring/decimal"

	"github.com/alanyoungcy/stakerise/internal/domain"
)

// DefaultTokens returns the built-in tier configuration.
func DefaultTokens() []Token {
	return []Token{
		{
			Asset: domain.AssetSTR, Symbol: "STR", Name: "StakeRise", Decimals: 18,
			Tiers: []Tier{
				tier(12, "12.5", "500", "15"),
				tier(24, "18", "250", "10"),
			},
		},
		{
			Asset: domain.AssetBTC, Symbol: "BTC", Name: "Bitcoin", Decimals: 8,
			Tiers: []Tier{
				tier(6, "5", "0.1", "20"),
				tier(12, "7.5", "0.05", "15"),
			},
		},
		{
			Asset: domain.AssetETH, Symbol: "ETH", Name: "Ethereum", Decimals: 18,
			Tiers: []Tier{
				tier(6, "6", "1", "20"),
				tier(12, "9", "0.5", "15"),
			},
		},
		{
			Asset: domain.AssetLTC, Symbol: "LTC", Name: "Litecoin", Decimals: 8,
			Tiers: []Tier{
				tier(6, "5.5", "5", "20"),
				tier(12, "8", "2.5", "15"),
			},
		},
		{
			Asset: domain.AssetUSDT, Symbol: "USDT", Name: "Tether", Decimals: 6,
			Tiers: []Tier{
				tier(6, "6", "1000", "15"),
				tier(12, "8", "500", "10"),
			},
		},
		{
			Asset: domain.AssetUSDC, Symbol: "USDC", Name: "USD Coin", Decimals: 6,
			Tiers: []Tier{
				tier(6, "6", "1000", "15"),
				tier(12, "8", "500", "10"),
			},
		},
	}
}

// Default returns a Catalog built from DefaultTokens.
func Default() *Catalog {
	c, err := New(DefaultTokens()...)
	if err != nil {
		panic("catalog: built-in tiers are invalid: " + err.Error())
	}
	return c
}

func tier(months int, apy, minAmount, penalty string) Tier {
	return Tier{
		DurationMonths: months,
		APY:            decimal.RequireFromString(apy),
		MinAmount:      decimal.RequireFromString(minAmount),
		Penalty:        decimal.RequireFromString(penalty),
	}
}
