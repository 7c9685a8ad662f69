package cmd

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/sethvargo/go-retry"

	"github.com/onflow/evm-fleet/module"
	"github.com/onflow/evm-fleet/module/evmclient"
)

var errNodeUnreachable = errors.New("node unreachable")

// connect checks that the node answers, making at most attempts checks spaced by
// delay.
func connect(
	ctx context.Context,
	log zerolog.Logger,
	client evmclient.Client,
	metrics module.PingMetrics,
	endpoint string,
	attempts uint64,
	delay time.Duration,
) error {
	if attempts < 1 {
		attempts = 1
	}
	if delay <= 0 {
		delay = connectDelay
	}
	backoff := retry.WithMaxRetries(attempts-1, retry.NewConstant(delay))

	attempt := uint64(0)
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		attempt++
		start := time.Now()
		if !client.IsConnected(ctx) {
			metrics.NodeReachable(endpoint, 0)
			log.Warn().Str("endpoint", endpoint).Uint64("attempt", attempt).Msg("node not reachable")
			return retry.RetryableError(errNodeUnreachable)
		}
		metrics.NodeReachable(endpoint, time.Since(start))
		return nil
	})
	if err != nil {
		return fmt.Errorf("could not connect to %s after %d attempts: %w", endpoint, attempt, err)
	}

	log.Info().Str("endpoint", endpoint).Msg("Connected to testnet")
	return nil
}
