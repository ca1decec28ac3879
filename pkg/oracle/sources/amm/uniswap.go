// Package amm provides raw AMM pool adapters.
package amm

import (
	"context"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/shopspring/decimal"

	"github.com/aetherpay/rateoracle/pkg/oracle/sources"
)

// Uniswap V3 pool ABI (slot0 only).
const poolABIJSON = `[{
	"inputs": [],
	"name": "slot0",
	"outputs": [
		{"internalType": "uint160", "name": "sqrtPriceX96", "type": "uint160"},
		{"internalType": "int24", "name": "tick", "type": "int24"},
		{"internalType": "uint16", "name": "observationIndex", "type": "uint16"},
		{"internalType": "uint16", "name": "observationCardinality", "type": "uint16"},
		{"internalType": "uint16", "name": "observationCardinalityNext", "type": "uint16"},
		{"internalType": "uint8", "name": "feeProtocol", "type": "uint8"},
		{"internalType": "bool", "name": "unlocked", "type": "bool"}
	],
	"stateMutability": "view",
	"type": "function"
}]`

// UniswapAdapter reads spot prices directly from Uniswap V3 pool state.
// It carries no routing data; the pool price is a single-venue marginal
// price, which is why its default confidence sits below the DEX aggregator.
type UniswapAdapter struct {
	*sources.BaseAdapter
	client  *ethclient.Client
	poolABI abi.ABI
	pools   map[string]PoolConfig
}

// PoolConfig holds configuration for one pool-backed pair.
type PoolConfig struct {
	Symbol       string
	PoolAddress  common.Address
	BaseIsToken0 bool
	Decimals0    int
	Decimals1    int
}

// NewUniswapAdapter creates a new Uniswap V3 pool adapter.
func NewUniswapAdapter(config map[string]interface{}) (sources.Adapter, error) {
	rpcURL := sources.GetStringFromConfig(config, "rpc_url", "")
	if rpcURL == "" {
		return nil, fmt.Errorf("%w", sources.ErrRPCURLRequired)
	}

	pools, err := parsePools(config)
	if err != nil {
		return nil, fmt.Errorf("failed to parse pools: %w", err)
	}

	poolABI, err := abi.JSON(strings.NewReader(poolABIJSON))
	if err != nil {
		return nil, fmt.Errorf("failed to parse pool ABI: %w", err)
	}

	client, err := ethclient.Dial(rpcURL)
	if err != nil {
		return nil, fmt.Errorf("%w: uniswap rpc: %v", sources.ErrSourceUnavailable, err)
	}

	pairMap := make(map[string]string, len(pools))
	byPair := make(map[string]PoolConfig, len(pools))
	for _, p := range pools {
		pairMap[p.Symbol] = p.PoolAddress.Hex()
		byPair[p.Symbol] = p
	}

	return &UniswapAdapter{
		BaseAdapter: sources.NewBaseAdapter("uniswap", sources.SourceTypeAMM, pairMap, config),
		client:      client,
		poolABI:     poolABI,
		pools:       byPair,
	}, nil
}

// Fetch reads slot0 from the pair's pool and converts the sqrt price.
func (a *UniswapAdapter) Fetch(ctx context.Context, pair string, _ decimal.Decimal) (sources.Quote, error) {
	pool, ok := a.pools[pair]
	if !ok {
		return sources.Quote{}, fmt.Errorf("%w: %s on uniswap", sources.ErrUnsupportedPair, pair)
	}

	if err := a.Throttle(ctx); err != nil {
		return sources.Quote{}, err
	}

	ctx, cancel := context.WithTimeout(ctx, a.Timeout())
	defer cancel()

	data, err := a.poolABI.Pack("slot0")
	if err != nil {
		return sources.Quote{}, fmt.Errorf("failed to pack slot0: %w", err)
	}

	result, err := a.client.CallContract(ctx, ethereum.CallMsg{To: &pool.PoolAddress, Data: data}, nil)
	if err != nil {
		return sources.Quote{}, fmt.Errorf("%w: uniswap call: %v", sources.ErrSourceUnavailable, err)
	}

	values, err := a.poolABI.Unpack("slot0", result)
	if err != nil || len(values) == 0 {
		return sources.Quote{}, fmt.Errorf("%w: uniswap slot0: %v", sources.ErrInvalidResponse, err)
	}

	sqrtPriceX96, ok := values[0].(*big.Int)
	if !ok || sqrtPriceX96.Sign() <= 0 {
		return sources.Quote{}, fmt.Errorf("%w: uniswap sqrtPriceX96 for %s", sources.ErrInvalidPrice, pair)
	}

	price := sqrtPriceToPrice(sqrtPriceX96, pool.Decimals0, pool.Decimals1)
	if !pool.BaseIsToken0 {
		if price.Sign() <= 0 {
			return sources.Quote{}, fmt.Errorf("%w: uniswap price for %s", sources.ErrInvalidPrice, pair)
		}
		price = decimal.NewFromInt(1).Div(price)
	}

	meta := &sources.QuoteMetadata{Detail: pool.PoolAddress.Hex()}

	a.Logger().Debug("Uniswap quote", "pair", pair, "price", price.String())

	return a.NewQuote(pair, price, 0, meta), nil
}

// sqrtPriceToPrice converts a Uniswap V3 Q64.96 sqrt price into the
// token1-per-token0 price adjusted for token decimals.
func sqrtPriceToPrice(sqrtPriceX96 *big.Int, decimals0, decimals1 int) decimal.Decimal {
	num := new(big.Int).Mul(sqrtPriceX96, sqrtPriceX96)
	denom := new(big.Int).Lsh(big.NewInt(1), 192) // 2^192

	ratio := decimal.NewFromBigInt(num, 0).Div(decimal.NewFromBigInt(denom, 0))
	return ratio.Shift(int32(decimals0 - decimals1))
}

// parsePools extracts pool configurations from config
// Expected format:
// pools:
//   - symbol: "ETH/USDT"
//     pool_address: "0x4e68ccd3e89f51c3074ca5072bbac773960dfa36"
//     base_is_token0: true
//     decimals0: 18
//     decimals1: 6.
func parsePools(config map[string]interface{}) ([]PoolConfig, error) {
	poolsRaw, ok := config["pools"]
	if !ok {
		return nil, fmt.Errorf("%w: pools configuration not found", sources.ErrInvalidConfig)
	}

	poolsList, ok := poolsRaw.([]interface{})
	if !ok {
		return nil, fmt.Errorf("%w", sources.ErrPairsMustBeArray)
	}

	pools := make([]PoolConfig, 0, len(poolsList))
	for i, poolRaw := range poolsList {
		poolMap, ok := poolRaw.(map[string]interface{})
		if !ok {
			return nil, fmt.Errorf("%w: pool at index %d is not an object", sources.ErrInvalidConfig, i)
		}

		symbol, _ := poolMap["symbol"].(string)
		poolAddr, _ := poolMap["pool_address"].(string)

		if symbol == "" || poolAddr == "" {
			return nil, fmt.Errorf("%w: pool[%d] missing 'symbol' or 'pool_address'", sources.ErrInvalidConfig, i)
		}
		if err := sources.ValidateSymbolFormat(symbol); err != nil {
			return nil, fmt.Errorf("pool[%d] %s: %w", i, symbol, err)
		}

		baseIsToken0 := true
		if v, ok := poolMap["base_is_token0"].(bool); ok {
			baseIsToken0 = v
		}

		pools = append(pools, PoolConfig{
			Symbol:       symbol,
			PoolAddress:  common.HexToAddress(poolAddr),
			BaseIsToken0: baseIsToken0,
			Decimals0:    intFromMap(poolMap, "decimals0", 18),
			Decimals1:    intFromMap(poolMap, "decimals1", 18),
		})
	}

	if len(pools) == 0 {
		return nil, fmt.Errorf("%w: parsed pools", sources.ErrNoPairsConfigured)
	}

	return pools, nil
}

func intFromMap(m map[string]interface{}, key string, defaultVal int) int {
	switch v := m[key].(type) {
	case int:
		return v
	case float64:
		return int(v)
	case int64:
		return int(v)
	default:
		return defaultVal
	}
}

// Register the adapter in init
func init() {
	sources.Register("amm.uniswap", func(config map[string]interface{}) (sources.Adapter, error) {
		return NewUniswapAdapter(config)
	})
}
