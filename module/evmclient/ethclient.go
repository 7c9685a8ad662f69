package evmclient

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/rpc"
	"github.com/rs/zerolog"
	"github.com/sethvargo/go-retry"
	"golang.org/x/time/rate"

	"github.com/onflow/evm-fleet/model/fleet"
)

const (
	// DefaultReceiptPollInterval is the delay between two receipt lookups.
	DefaultReceiptPollInterval = 2 * time.Second

	// DefaultReceiptTimeout bounds the wait for a receipt.
	DefaultReceiptTimeout = 3 * time.Minute
)

// Params configures an EthClient.
type Params struct {
	// ReceiptPollInterval is the delay between two receipt lookups.
	ReceiptPollInterval time.Duration
	// ReceiptTimeout bounds AwaitReceipt. Zero waits until the context is done.
	ReceiptTimeout time.Duration
	// RateLimit caps the number of requests per second sent to the node across all
	// wallets. Zero disables limiting.
	RateLimit float64
	// RateBurst is the burst allowed by the rate limiter.
	RateBurst int
}

// DefaultParams returns the default client parameters.
func DefaultParams() Params {
	return Params{
		ReceiptPollInterval: DefaultReceiptPollInterval,
		ReceiptTimeout:      DefaultReceiptTimeout,
		RateBurst:           1,
	}
}

// EthClient implements Client on top of the go-ethereum JSON-RPC client.
type EthClient struct {
	log     zerolog.Logger
	rpc     *rpc.Client
	eth     *ethclient.Client
	params  Params
	limiter *rate.Limiter
}

var _ Client = (*EthClient)(nil)

// Dial connects to the node at the given URL (http, ws or ipc).
func Dial(ctx context.Context, log zerolog.Logger, url string, params Params) (*EthClient, error) {
	rpcClient, err := rpc.DialContext(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("could not dial %s: %w", url, err)
	}
	return NewEthClient(log, rpcClient, params), nil
}

// NewEthClient wraps an existing RPC client.
func NewEthClient(log zerolog.Logger, rpcClient *rpc.Client, params Params) *EthClient {
	if params.ReceiptPollInterval <= 0 {
		params.ReceiptPollInterval = DefaultReceiptPollInterval
	}

	var limiter *rate.Limiter
	if params.RateLimit > 0 {
		burst := params.RateBurst
		if burst < 1 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(params.RateLimit), burst)
	}

	return &EthClient{
		log:     log.With().Str("component", "evm_client").Logger(),
		rpc:     rpcClient,
		eth:     ethclient.NewClient(rpcClient),
		params:  params,
		limiter: limiter,
	}
}

// Close closes the underlying connection.
func (c *EthClient) Close() {
	c.rpc.Close()
}

// wait blocks until the rate limiter allows one more request.
func (c *EthClient) wait(ctx context.Context) error {
	if c.limiter == nil {
		return nil
	}
	return c.limiter.Wait(ctx)
}

func (c *EthClient) GasPrice(ctx context.Context) (*big.Int, error) {
	if err := c.wait(ctx); err != nil {
		return nil, err
	}
	return c.eth.SuggestGasPrice(ctx)
}

func (c *EthClient) NonceOf(ctx context.Context, address common.Address) (uint64, error) {
	if err := c.wait(ctx); err != nil {
		return 0, err
	}
	return c.eth.PendingNonceAt(ctx, address)
}

func (c *EthClient) EstimateGas(ctx context.Context, intent *fleet.TransactionIntent) (uint64, error) {
	if err := c.wait(ctx); err != nil {
		return 0, err
	}
	return c.eth.EstimateGas(ctx, intent.CallMsg())
}

func (c *EthClient) SendRaw(ctx context.Context, signed []byte) (common.Hash, error) {
	if err := c.wait(ctx); err != nil {
		return common.Hash{}, err
	}
	var hash common.Hash
	err := c.rpc.CallContext(ctx, &hash, "eth_sendRawTransaction", hexutil.Encode(signed))
	if err != nil {
		return common.Hash{}, err
	}
	return hash, nil
}

// AwaitReceipt polls for the receipt at a constant interval. Lookup failures are
// retried since the node may not have indexed the transaction yet.
func (c *EthClient) AwaitReceipt(ctx context.Context, hash common.Hash) (*types.Receipt, error) {
	if c.params.ReceiptTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.params.ReceiptTimeout)
		defer cancel()
	}

	backoff := retry.NewConstant(c.params.ReceiptPollInterval)

	log := c.log.With().Str("tx_hash", hash.Hex()).Logger()
	var receipt *types.Receipt
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		if err := c.wait(ctx); err != nil {
			return err
		}
		r, err := c.eth.TransactionReceipt(ctx, hash)
		if errors.Is(err, ethereum.NotFound) {
			log.Trace().Msg("receipt not available yet")
			return retry.RetryableError(err)
		}
		if err != nil {
			if ctx.Err() != nil {
				return err
			}
			log.Debug().Err(err).Msg("receipt lookup failed, retrying")
			return retry.RetryableError(err)
		}
		receipt = r
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("could not get receipt for %s: %w", hash.Hex(), err)
	}
	return receipt, nil
}

func (c *EthClient) BalanceOf(ctx context.Context, address common.Address) (*big.Int, error) {
	if err := c.wait(ctx); err != nil {
		return nil, err
	}
	return c.eth.BalanceAt(ctx, address, nil)
}

func (c *EthClient) Call(ctx context.Context, contract common.Address, data []byte) ([]byte, error) {
	if err := c.wait(ctx); err != nil {
		return nil, err
	}
	return c.eth.CallContract(ctx, ethereum.CallMsg{To: &contract, Data: data}, nil)
}

func (c *EthClient) IsConnected(ctx context.Context) bool {
	if err := c.wait(ctx); err != nil {
		return false
	}
	chainID, err := c.eth.ChainID(ctx)
	if err != nil {
		c.log.Debug().Err(err).Msg("connectivity check failed")
		return false
	}
	c.log.Debug().Str("chain_id", chainID.String()).Msg("connectivity check succeeded")
	return true
}

// ChainID returns the chain id reported by the node.
func (c *EthClient) ChainID(ctx context.Context) (*big.Int, error) {
	if err := c.wait(ctx); err != nil {
		return nil, err
	}
	return c.eth.ChainID(ctx)
}
