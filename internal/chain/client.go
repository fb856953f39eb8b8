// Package chain reads staking state from the staking contract. It never
// signs or sends transactions.
package chain

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/shopspring/decimal"

	"github.com/alanyoungcy/stakerise/internal/catalog"
	"github.com/alanyoungcy/stakerise/internal/domain"
)

// maxStakesPerWallet bounds the userStakes walk for a single wallet.
const maxStakesPerWallet = 1024

// poolDecimals is the precision of the contract's pool accounting.
const poolDecimals = 18

// ErrNoContract is returned when the client is used without a staking
// contract address.
var ErrNoContract = errors.New("chain: staking contract address not configured")

// ErrStakeLimit is returned when a wallet holds more stakes than
// maxStakesPerWallet, rather than returning a truncated list.
var ErrStakeLimit = errors.New("chain: stake limit exceeded")

// Caller executes read-only contract calls. *ethclient.Client satisfies it.
type Caller interface {
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
}

// ClientConfig holds the parameters needed to reach the staking contract.
type ClientConfig struct {
	RPCURL          string
	ChainID         int64
	StakingContract string
	// Tokens maps asset tickers to their ERC-20 contract addresses.
	Tokens map[string]string
	// CallTimeout bounds each contract call; zero means no bound beyond ctx.
	CallTimeout time.Duration
}

// TierConfig is the on-chain configuration of one staking tier.
type TierConfig struct {
	MinStake            decimal.Decimal `json:"min_stake"`
	Lockup              time.Duration   `json:"lockup"`
	AnnualRewardRate    *big.Int        `json:"annual_reward_rate"`
	EarlyUnstakePenalty *big.Int        `json:"early_unstake_penalty"`
}

// Client reads the staking contract through a Caller.
type Client struct {
	caller  Caller
	closer  func()
	staking common.Address
	tokens  map[domain.Asset]common.Address
	catalog *catalog.Catalog
	timeout time.Duration
	stakeAB abi.ABI
	erc20AB abi.ABI
}

// Dial connects to the RPC endpoint in cfg and verifies the chain ID when
// one is configured.
func Dial(ctx context.Context, cfg ClientConfig, cat *catalog.Catalog) (*Client, error) {
	ec, err := ethclient.DialContext(ctx, cfg.RPCURL)
	if err != nil {
		return nil, fmt.Errorf("chain: dial %s: %w", cfg.RPCURL, err)
	}

	if cfg.ChainID != 0 {
		id, err := ec.ChainID(ctx)
		if err != nil {
			ec.Close()
			return nil, fmt.Errorf("chain: chain id: %w", err)
		}
		if id.Int64() != cfg.ChainID {
			ec.Close()
			return nil, fmt.Errorf("chain: connected to chain %s, expected %d", id, cfg.ChainID)
		}
	}

	c, err := NewClient(ec, cfg, cat)
	if err != nil {
		ec.Close()
		return nil, err
	}
	c.closer = ec.Close
	return c, nil
}

// NewClient builds a Client on an existing Caller.
func NewClient(caller Caller, cfg ClientConfig, cat *catalog.Catalog) (*Client, error) {
	stakeAB, err := abi.JSON(strings.NewReader(stakingABI))
	if err != nil {
		return nil, fmt.Errorf("chain: parse staking abi: %w", err)
	}
	erc20AB, err := abi.JSON(strings.NewReader(erc20ABI))
	if err != nil {
		return nil, fmt.Errorf("chain: parse erc20 abi: %w", err)
	}

	c := &Client{
		caller:  caller,
		tokens:  make(map[domain.Asset]common.Address, len(cfg.Tokens)),
		catalog: cat,
		timeout: cfg.CallTimeout,
		stakeAB: stakeAB,
		erc20AB: erc20AB,
	}

	if cfg.StakingContract != "" {
		if !common.IsHexAddress(cfg.StakingContract) {
			return nil, fmt.Errorf("chain: %w: staking contract %q", domain.ErrInvalidAddress, cfg.StakingContract)
		}
		c.staking = common.HexToAddress(cfg.StakingContract)
	}

	for sym, addr := range cfg.Tokens {
		asset, err := domain.ParseAsset(sym)
		if err != nil {
			return nil, fmt.Errorf("chain: token %q: %w", sym, err)
		}
		if !common.IsHexAddress(addr) {
			return nil, fmt.Errorf("chain: %w: %s token %q", domain.ErrInvalidAddress, sym, addr)
		}
		c.tokens[asset] = common.HexToAddress(addr)
	}

	return c, nil
}

// Close releases the underlying RPC connection when the client owns one.
func (c *Client) Close() {
	if c.closer != nil {
		c.closer()
	}
}

type userStake struct {
	TokenType     uint8
	Tier          *big.Int
	Amount        *big.Int
	StartTime     *big.Int
	LastClaimTime *big.Int
	IsActive      bool
}

// UserStakes walks userStakes(wallet, i) from index 0 until the contract
// reverts, which marks the end of the wallet's stake list. A wallet with more
// than maxStakesPerWallet stakes yields ErrStakeLimit.
func (c *Client) UserStakes(ctx context.Context, wallet common.Address) ([]domain.Stake, error) {
	if c.staking == (common.Address{}) {
		return nil, ErrNoContract
	}

	var stakes []domain.Stake
	for i := 0; ; i++ {
		var raw userStake
		err := c.call(ctx, c.staking, c.stakeAB, &raw, "userStakes", wallet, big.NewInt(int64(i)))
		if isEndOfList(err) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("chain: userStakes(%s, %d): %w", wallet.Hex(), i, err)
		}
		if i == maxStakesPerWallet {
			return nil, fmt.Errorf("%w: %s has more than %d stakes", ErrStakeLimit, wallet.Hex(), maxStakesPerWallet)
		}

		stake, err := c.toStake(wallet, i, raw)
		if err != nil {
			return nil, err
		}
		stakes = append(stakes, stake)
	}
	return stakes, nil
}

func (c *Client) toStake(wallet common.Address, index int, raw userStake) (domain.Stake, error) {
	asset := domain.Asset(raw.TokenType)
	tok, err := c.catalog.Token(asset)
	if err != nil {
		return domain.Stake{}, fmt.Errorf("chain: stake %d of %s: %w", index, wallet.Hex(), err)
	}

	status := domain.StakeWithdrawn
	if raw.IsActive {
		status = domain.StakeActive
	}

	return domain.Stake{
		Wallet:        wallet.Hex(),
		Index:         index,
		Asset:         asset,
		Tier:          int(raw.Tier.Int64()),
		Amount:        FromBaseUnits(raw.Amount, tok.Decimals),
		StartTime:     unixTime(raw.StartTime),
		LastClaimTime: unixTime(raw.LastClaimTime),
		Status:        status,
	}, nil
}

// StakingConfig reads stakingConfigs(asset, tier).
func (c *Client) StakingConfig(ctx context.Context, asset domain.Asset, tier int) (TierConfig, error) {
	if c.staking == (common.Address{}) {
		return TierConfig{}, ErrNoContract
	}
	tok, err := c.catalog.Token(asset)
	if err != nil {
		return TierConfig{}, fmt.Errorf("chain: staking config: %w", err)
	}

	var raw struct {
		MinStakeAmount      *big.Int
		LockupPeriod        *big.Int
		AnnualRewardRate    *big.Int
		EarlyUnstakePenalty *big.Int
	}
	if err := c.call(ctx, c.staking, c.stakeAB, &raw, "stakingConfigs", uint8(asset), big.NewInt(int64(tier))); err != nil {
		return TierConfig{}, fmt.Errorf("chain: stakingConfigs(%s, %d): %w", asset, tier, err)
	}

	return TierConfig{
		MinStake:            FromBaseUnits(raw.MinStakeAmount, tok.Decimals),
		Lockup:              time.Duration(raw.LockupPeriod.Int64()) * time.Second,
		AnnualRewardRate:    raw.AnnualRewardRate,
		EarlyUnstakePenalty: raw.EarlyUnstakePenalty,
	}, nil
}

// PoolInfo reads the contract's aggregate pool state.
func (c *Client) PoolInfo(ctx context.Context) (domain.PoolInfo, error) {
	if c.staking == (common.Address{}) {
		return domain.PoolInfo{}, ErrNoContract
	}

	var raw struct {
		TotalValueLocked   *big.Int
		AvailableLiquidity *big.Int
		TotalStakers       *big.Int
	}
	if err := c.call(ctx, c.staking, c.stakeAB, &raw, "getPoolInfo"); err != nil {
		return domain.PoolInfo{}, fmt.Errorf("chain: getPoolInfo: %w", err)
	}

	return domain.PoolInfo{
		TotalValueLocked:   FromBaseUnits(raw.TotalValueLocked, poolDecimals),
		AvailableLiquidity: FromBaseUnits(raw.AvailableLiquidity, poolDecimals),
		TotalStakers:       raw.TotalStakers.Int64(),
	}, nil
}

// Balance reads the ERC-20 balance of wallet for asset in whole tokens.
func (c *Client) Balance(ctx context.Context, asset domain.Asset, wallet common.Address) (decimal.Decimal, error) {
	token, ok := c.tokens[asset]
	if !ok {
		return decimal.Zero, fmt.Errorf("chain: no token contract for %s: %w", asset, domain.ErrNotFound)
	}
	tok, err := c.catalog.Token(asset)
	if err != nil {
		return decimal.Zero, fmt.Errorf("chain: balance: %w", err)
	}

	data, err := c.erc20AB.Pack("balanceOf", wallet)
	if err != nil {
		return decimal.Zero, fmt.Errorf("chain: pack balanceOf: %w", err)
	}
	out, err := c.caller.CallContract(ctx, ethereum.CallMsg{To: &token, Data: data}, nil)
	if err != nil {
		return decimal.Zero, fmt.Errorf("chain: balanceOf(%s): %w", wallet.Hex(), err)
	}
	vals, err := c.erc20AB.Unpack("balanceOf", out)
	if err != nil {
		return decimal.Zero, fmt.Errorf("chain: unpack balanceOf: %w", err)
	}
	bal, ok := vals[0].(*big.Int)
	if !ok {
		return decimal.Zero, fmt.Errorf("chain: balanceOf returned %T", vals[0])
	}
	return FromBaseUnits(bal, tok.Decimals), nil
}

func (c *Client) call(ctx context.Context, to common.Address, contract abi.ABI, out any, method string, args ...any) error {
	data, err := contract.Pack(method, args...)
	if err != nil {
		return fmt.Errorf("pack: %w", err)
	}
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}
	res, err := c.caller.CallContract(ctx, ethereum.CallMsg{To: &to, Data: data}, nil)
	if err != nil {
		return err
	}
	if len(res) == 0 {
		return errEmptyResult
	}
	if err := contract.UnpackIntoInterface(out, method, res); err != nil {
		return fmt.Errorf("unpack: %w", err)
	}
	return nil
}

var errEmptyResult = errors.New("empty call result")

// isEndOfList reports whether err is how the contract signals an index past
// the end of a dynamic array: a revert, or no return data at all.
func isEndOfList(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, errEmptyResult) {
		return true
	}
	return strings.Contains(strings.ToLower(err.Error()), "revert")
}

func unixTime(v *big.Int) time.Time {
	if v == nil || v.Sign() == 0 {
		return time.Time{}
	}
	return time.Unix(v.Int64(), 0).UTC()
}
