package metrics

import (
	"context"
	"io"
	"net"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/onflow/evm-fleet/utils/unittest"
)

func TestFleetCollector(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewFleetCollector(reg)

	c.GasEstimationAttempt("mint_usdc", false)
	c.GasEstimationAttempt("mint_usdc", false)
	c.GasEstimationAttempt("mint_usdc", true)
	c.TransactionSubmitted("mint_usdc")
	c.ActionFinished("mint_usdc", "success", 3*time.Second)
	c.WalletStarted()
	c.WalletStarted()
	c.WalletFinished(time.Minute)
	c.WalletSkipped("low_balance")
	c.GameFinished("won", 6, 2*time.Minute)
	c.NodeReachable("http://localhost:8545", 0)

	assert.Equal(t, 2.0, testutil.ToFloat64(c.gasEstimations.WithLabelValues("mint_usdc", ResultFailure)))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.gasEstimations.WithLabelValues("mint_usdc", ResultSuccess)))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.txsSubmitted.WithLabelValues("mint_usdc")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.actions.WithLabelValues("mint_usdc", "success")))
	assert.Equal(t, 2.0, testutil.ToFloat64(c.walletsStarted))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.walletsInFlight))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.walletsSkipped.WithLabelValues("low_balance")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.games.WithLabelValues("won")))
	assert.Equal(t, -1.0, testutil.ToFloat64(c.reachable.WithLabelValues("http://localhost:8545")))
}

func TestServer(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewFleetCollector(reg)
	c.TransactionSubmitted("guess_letter")

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	server := NewServer(unittest.Logger(), 0, reg)
	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	go func() {
		errc <- server.Serve(ctx, listener)
	}()

	resp, err := http.Get("http://" + listener.Addr().String() + "/metrics")
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, resp.Body.Close())
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(body), `evm_fleet_action_transactions_submitted_total{action="guess_letter"} 1`))

	cancel()
	unittest.RequireReturnsBefore(t, func() {
		require.NoError(t, <-errc)
	}, 5*time.Second)
}
