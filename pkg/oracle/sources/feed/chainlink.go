// Package feed provides oracle feed adapters.
package feed

import (
	"context"
	"fmt"
	"math/big"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/shopspring/decimal"

	"github.com/aetherpay/rateoracle/pkg/oracle/sources"
)

const (
	// chainlinkFreshBound is the age beyond which feed data lowers confidence.
	chainlinkFreshBound = 1 * time.Hour
	// chainlinkStaleCutoff is the age beyond which feed data is rejected.
	chainlinkStaleCutoff = 24 * time.Hour
)

// Chainlink AggregatorV3Interface ABI (latestRoundData and decimals only).
const aggregatorABIJSON = `[{
	"inputs": [],
	"name": "latestRoundData",
	"outputs": [
		{"internalType": "uint80", "name": "roundId", "type": "uint80"},
		{"internalType": "int256", "name": "answer", "type": "int256"},
		{"internalType": "uint256", "name": "startedAt", "type": "uint256"},
		{"internalType": "uint256", "name": "updatedAt", "type": "uint256"},
		{"internalType": "uint80", "name": "answeredInRound", "type": "uint80"}
	],
	"stateMutability": "view",
	"type": "function"
}, {
	"inputs": [],
	"name": "decimals",
	"outputs": [{"internalType": "uint8", "name": "", "type": "uint8"}],
	"stateMutability": "view",
	"type": "function"
}]`

// ChainlinkAdapter reads prices from Chainlink aggregator feeds via an EVM
// RPC endpoint. Feed data between the freshness bound and the stale cutoff
// is served with decayed confidence; older data is rejected outright.
type ChainlinkAdapter struct {
	*sources.BaseAdapter
	client      *ethclient.Client
	rpcURL      string
	feedABI     abi.ABI
	freshBound  time.Duration
	staleCutoff time.Duration

	mu       sync.Mutex
	decimals map[common.Address]int32 // per-feed decimals, fetched once
}

// NewChainlinkAdapter creates a new Chainlink feed adapter.
func NewChainlinkAdapter(config map[string]interface{}) (sources.Adapter, error) {
	rpcURL := sources.GetStringFromConfig(config, "rpc_url", "")
	if rpcURL == "" {
		return nil, fmt.Errorf("%w", sources.ErrRPCURLRequired)
	}

	// pairs map unified symbols to feed contract addresses
	pairs, err := sources.ParsePairsFromMap(config)
	if err != nil {
		return nil, fmt.Errorf("failed to parse pairs: %w", err)
	}

	feedABI, err := abi.JSON(strings.NewReader(aggregatorABIJSON))
	if err != nil {
		return nil, fmt.Errorf("failed to parse aggregator ABI: %w", err)
	}

	client, err := ethclient.Dial(rpcURL)
	if err != nil {
		return nil, fmt.Errorf("%w: chainlink rpc: %v", sources.ErrSourceUnavailable, err)
	}

	return &ChainlinkAdapter{
		BaseAdapter: sources.NewBaseAdapter("chainlink", sources.SourceTypeFeed, pairs, config),
		client:      client,
		rpcURL:      rpcURL,
		feedABI:     feedABI,
		freshBound:  sources.GetDurationFromConfig(config, "fresh_bound", chainlinkFreshBound),
		staleCutoff: sources.GetDurationFromConfig(config, "stale_cutoff", chainlinkStaleCutoff),
		decimals:    make(map[common.Address]int32),
	}, nil
}

// Fetch reads the latest round from the pair's aggregator feed.
func (a *ChainlinkAdapter) Fetch(ctx context.Context, pair string, _ decimal.Decimal) (sources.Quote, error) {
	feedAddr, err := a.ProviderSymbol(pair)
	if err != nil {
		return sources.Quote{}, err
	}

	if err := a.Throttle(ctx); err != nil {
		return sources.Quote{}, err
	}

	ctx, cancel := context.WithTimeout(ctx, a.Timeout())
	defer cancel()

	addr := common.HexToAddress(feedAddr)

	answer, updatedAt, err := a.latestRoundData(ctx, addr)
	if err != nil {
		return sources.Quote{}, err
	}
	if answer.Sign() <= 0 {
		return sources.Quote{}, fmt.Errorf("%w: chainlink answer for %s", sources.ErrInvalidPrice, pair)
	}

	age := time.Since(time.Unix(updatedAt.Int64(), 0))
	if age > a.staleCutoff {
		return sources.Quote{}, fmt.Errorf("%w: chainlink round for %s is %s old", sources.ErrStaleData, pair, age.Round(time.Minute))
	}

	dec, err := a.feedDecimals(ctx, addr)
	if err != nil {
		return sources.Quote{}, err
	}

	price := decimal.NewFromBigInt(answer, -dec)
	confidence := decayedConfidence(a.Type().DefaultConfidence(), age, a.freshBound, a.staleCutoff)

	meta := &sources.QuoteMetadata{
		AgeSeconds: age.Seconds(),
		Detail:     feedAddr,
	}

	a.Logger().Debug("Chainlink quote",
		"pair", pair,
		"price", price.String(),
		"age", age.Round(time.Second).String(),
		"confidence", confidence)

	return a.NewQuote(pair, price, confidence, meta), nil
}

// latestRoundData calls latestRoundData() on the feed contract.
func (a *ChainlinkAdapter) latestRoundData(ctx context.Context, feed common.Address) (answer, updatedAt *big.Int, err error) {
	data, err := a.feedABI.Pack("latestRoundData")
	if err != nil {
		return nil, nil, fmt.Errorf("failed to pack latestRoundData: %w", err)
	}

	result, err := a.client.CallContract(ctx, ethereum.CallMsg{To: &feed, Data: data}, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: chainlink call: %v", sources.ErrSourceUnavailable, err)
	}

	values, err := a.feedABI.Unpack("latestRoundData", result)
	if err != nil || len(values) != 5 {
		return nil, nil, fmt.Errorf("%w: chainlink latestRoundData: %v", sources.ErrInvalidResponse, err)
	}

	answer, ok1 := values[1].(*big.Int)
	updatedAt, ok2 := values[3].(*big.Int)
	if !ok1 || !ok2 {
		return nil, nil, fmt.Errorf("%w: chainlink latestRoundData types", sources.ErrInvalidResponse)
	}
	return answer, updatedAt, nil
}

// feedDecimals returns the feed's decimals, cached after the first call.
func (a *ChainlinkAdapter) feedDecimals(ctx context.Context, feed common.Address) (int32, error) {
	a.mu.Lock()
	if dec, ok := a.decimals[feed]; ok {
		a.mu.Unlock()
		return dec, nil
	}
	a.mu.Unlock()

	data, err := a.feedABI.Pack("decimals")
	if err != nil {
		return 0, fmt.Errorf("failed to pack decimals: %w", err)
	}

	result, err := a.client.CallContract(ctx, ethereum.CallMsg{To: &feed, Data: data}, nil)
	if err != nil {
		return 0, fmt.Errorf("%w: chainlink decimals: %v", sources.ErrSourceUnavailable, err)
	}

	values, err := a.feedABI.Unpack("decimals", result)
	if err != nil || len(values) != 1 {
		return 0, fmt.Errorf("%w: chainlink decimals: %v", sources.ErrInvalidResponse, err)
	}
	dec, ok := values[0].(uint8)
	if !ok {
		return 0, fmt.Errorf("%w: chainlink decimals type", sources.ErrInvalidResponse)
	}

	a.mu.Lock()
	a.decimals[feed] = int32(dec)
	a.mu.Unlock()

	return int32(dec), nil
}

// decayedConfidence lowers the base confidence linearly once data is older
// than the freshness bound, bottoming out at 60% of base at the cutoff.
func decayedConfidence(base float64, age, fresh, cutoff time.Duration) float64 {
	if age <= fresh {
		return base
	}
	frac := float64(age-fresh) / float64(cutoff-fresh)
	if frac > 1 {
		frac = 1
	}
	return base * (1 - 0.4*frac)
}

// Register the adapter in init
func init() {
	sources.Register("feed.chainlink", func(config map[string]interface{}) (sources.Adapter, error) {
		return NewChainlinkAdapter(config)
	})
}
