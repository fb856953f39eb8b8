package domain

import (
	"fmt"
	"strings"
)

// Asset identifies a stakeable token. The numeric values match the
// StakeTokenType enum of the staking contract.
type Asset uint8

const (
	AssetSTR Asset = iota
	AssetBTC
	AssetETH
	AssetLTC
	AssetUSDT
	AssetUSDC
)

var assetNames = [...]string{
	AssetSTR:  "STR",
	AssetBTC:  "BTC",
	AssetETH:  "ETH",
	AssetLTC:  "LTC",
	AssetUSDT: "USDT",
	AssetUSDC: "USDC",
}

// Assets returns every known asset in contract order.
func Assets() []Asset {
	return []Asset{AssetSTR, AssetBTC, AssetETH, AssetLTC, AssetUSDT, AssetUSDC}
}

// Valid reports whether a is one of the known assets.
func (a Asset) Valid() bool {
	return int(a) < len(assetNames)
}

func (a Asset) String() string {
	if !a.Valid() {
		return fmt.Sprintf("Asset(%d)", uint8(a))
	}
	return assetNames[a]
}

// ParseAsset resolves a case-insensitive ticker such as "usdt".
func ParseAsset(s string) (Asset, error) {
	s = strings.ToUpper(strings.TrimSpace(s))
	for i, name := range assetNames {
		if name == s {
			return Asset(i), nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownAsset, s)
}

// MarshalText encodes the asset as its ticker.
func (a Asset) MarshalText() ([]byte, error) {
	if !a.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrUnknownAsset, uint8(a))
	}
	return []byte(a.String()), nil
}

// UnmarshalText decodes a ticker, letting TOML and JSON carry assets by name.
func (a *Asset) UnmarshalText(text []byte) error {
	parsed, err := ParseAsset(string(text))
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}
