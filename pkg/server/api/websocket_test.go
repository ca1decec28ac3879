package api

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aetherpay/rateoracle/pkg/logging"
	"github.com/aetherpay/rateoracle/pkg/oracle/aggregator"
)

func TestWebSocketServer_SendUpdateNeverBlocks(t *testing.T) {
	ws := NewWebSocketServer(":0", logging.NewNoopLogger())
	defer ws.Stop()

	// Fill the broadcast buffer with no consumer running.
	for i := 0; i < cap(ws.updates); i++ {
		ws.updates <- &aggregator.AggregatedPrice{Pair: "USDC/USDT"}
	}

	start := time.Now()
	ws.SendUpdate(&aggregator.AggregatedPrice{Pair: "USDC/USDT"})

	require.Less(t, time.Since(start), 50*time.Millisecond)
	assert.Len(t, ws.updates, cap(ws.updates))
}

func TestWebSocketClient_Subscriptions(t *testing.T) {
	client := &WebSocketClient{
		server:          NewWebSocketServer(":0", logging.NewNoopLogger()),
		subscribedAll:   true,
		subscribedPairs: make(map[string]bool),
	}

	assert.True(t, client.shouldReceive("ETH/USD"))

	client.subscribe([]string{"USDC/USDT"})
	assert.True(t, client.shouldReceive("USDC/USDT"))
	assert.False(t, client.shouldReceive("ETH/USD"))

	client.unsubscribe([]string{"USDC/USDT"})
	assert.False(t, client.shouldReceive("USDC/USDT"))

	client.subscribe([]string{"*"})
	assert.True(t, client.shouldReceive("ETH/USD"))
}
