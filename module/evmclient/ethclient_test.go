package evmclient

import (
	"context"
	"math/big"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/rpc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/onflow/evm-fleet/model/fleet"
	"github.com/onflow/evm-fleet/utils/unittest"
)

// fakeEthAPI serves the subset of the eth namespace used by EthClient.
type fakeEthAPI struct {
	mu sync.Mutex

	chainID        int64
	gasPrice       int64
	nonce          uint64
	balance        int64
	estimate       uint64
	callResult     []byte
	receiptMisses  int // number of lookups answered with null before the receipt
	receiptLookups int
	receiptStatus  uint64
	neverMined     bool
	sent           []*types.Transaction
	lastEstimate   map[string]interface{}
}

func (api *fakeEthAPI) ChainId() *hexutil.Big {
	return (*hexutil.Big)(big.NewInt(api.chainID))
}

func (api *fakeEthAPI) GasPrice() *hexutil.Big {
	return (*hexutil.Big)(big.NewInt(api.gasPrice))
}

func (api *fakeEthAPI) GetTransactionCount(_ common.Address, block string) (hexutil.Uint64, error) {
	if block != "pending" {
		return 0, assert.AnError
	}
	return hexutil.Uint64(api.nonce), nil
}

func (api *fakeEthAPI) GetBalance(_ common.Address, _ string) *hexutil.Big {
	return (*hexutil.Big)(big.NewInt(api.balance))
}

func (api *fakeEthAPI) EstimateGas(args map[string]interface{}, _ *string) hexutil.Uint64 {
	api.mu.Lock()
	defer api.mu.Unlock()
	api.lastEstimate = args
	return hexutil.Uint64(api.estimate)
}

func (api *fakeEthAPI) Call(_ map[string]interface{}, _ *string) hexutil.Bytes {
	return api.callResult
}

func (api *fakeEthAPI) SendRawTransaction(raw hexutil.Bytes) (common.Hash, error) {
	tx := new(types.Transaction)
	if err := tx.UnmarshalBinary(raw); err != nil {
		return common.Hash{}, err
	}
	api.mu.Lock()
	defer api.mu.Unlock()
	api.sent = append(api.sent, tx)
	return tx.Hash(), nil
}

func (api *fakeEthAPI) GetTransactionReceipt(hash common.Hash) *types.Receipt {
	api.mu.Lock()
	defer api.mu.Unlock()
	api.receiptLookups++
	if api.neverMined || api.receiptLookups <= api.receiptMisses {
		return nil
	}
	return &types.Receipt{
		Status:      api.receiptStatus,
		TxHash:      hash,
		Logs:        []*types.Log{},
		BlockNumber: big.NewInt(1),
	}
}

func newTestClient(t *testing.T, api *fakeEthAPI, params Params) *EthClient {
	server := rpc.NewServer()
	require.NoError(t, server.RegisterName("eth", api))
	t.Cleanup(server.Stop)

	client := NewEthClient(unittest.Logger(), rpc.DialInProc(server), params)
	t.Cleanup(client.Close)
	return client
}

func TestEthClient_Queries(t *testing.T) {
	api := &fakeEthAPI{
		chainID:    84532,
		gasPrice:   1_500_000,
		nonce:      12,
		balance:    1_000_000_000_000_000,
		estimate:   150_000,
		callResult: common.LeftPadBytes(common.HexToAddress("0x42").Bytes(), 32),
	}
	client := newTestClient(t, api, DefaultParams())
	ctx := context.Background()

	require.True(t, client.IsConnected(ctx))

	chainID, err := client.ChainID(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(84532), chainID.Int64())

	price, err := client.GasPrice(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1_500_000), price.Int64())

	nonce, err := client.NonceOf(ctx, common.HexToAddress("0x01"))
	require.NoError(t, err)
	assert.Equal(t, uint64(12), nonce)

	balance, err := client.BalanceOf(ctx, common.HexToAddress("0x01"))
	require.NoError(t, err)
	assert.Equal(t, int64(1_000_000_000_000_000), balance.Int64())

	intent := &fleet.TransactionIntent{
		ChainID:  big.NewInt(84532),
		To:       common.HexToAddress("0x02"),
		From:     common.HexToAddress("0x01"),
		Data:     []byte{0x01, 0x02},
		GasLimit: 200_000,
		GasPrice: big.NewInt(1),
	}
	estimate, err := client.EstimateGas(ctx, intent)
	require.NoError(t, err)
	assert.Equal(t, uint64(150_000), estimate)
	input, ok := api.lastEstimate["input"]
	if !ok {
		input = api.lastEstimate["data"]
	}
	assert.Equal(t, "0x0102", input)

	out, err := client.Call(ctx, common.HexToAddress("0x03"), []byte{0xaa})
	require.NoError(t, err)
	assert.Equal(t, api.callResult, out)
}

func TestEthClient_SendAndAwaitReceipt(t *testing.T) {
	api := &fakeEthAPI{chainID: 84532, receiptMisses: 2, receiptStatus: types.ReceiptStatusSuccessful}
	client := newTestClient(t, api, Params{ReceiptPollInterval: time.Millisecond, ReceiptTimeout: 5 * time.Second})
	ctx := context.Background()

	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	intent := &fleet.TransactionIntent{
		ChainID:  big.NewInt(84532),
		To:       common.HexToAddress("0x02"),
		From:     crypto.PubkeyToAddress(key.PublicKey),
		GasLimit: 21_000,
		GasPrice: big.NewInt(1),
		Nonce:    3,
	}
	raw, err := Sign(intent, key)
	require.NoError(t, err)

	hash, err := client.SendRaw(ctx, raw)
	require.NoError(t, err)
	require.Len(t, api.sent, 1)
	assert.Equal(t, api.sent[0].Hash(), hash)

	receipt, err := client.AwaitReceipt(ctx, hash)
	require.NoError(t, err)
	assert.Equal(t, types.ReceiptStatusSuccessful, receipt.Status)
	assert.Equal(t, hash, receipt.TxHash)
	assert.Equal(t, 3, api.receiptLookups)
}

// A zero poll interval falls back to the default instead of reaching the backoff.
func TestEthClient_ZeroPollInterval(t *testing.T) {
	api := &fakeEthAPI{receiptStatus: types.ReceiptStatusSuccessful}
	client := newTestClient(t, api, Params{})
	assert.Equal(t, DefaultReceiptPollInterval, client.params.ReceiptPollInterval)

	unittest.RequireReturnsBefore(t, func() {
		receipt, err := client.AwaitReceipt(context.Background(), common.HexToHash("0x01"))
		require.NoError(t, err)
		assert.Equal(t, types.ReceiptStatusSuccessful, receipt.Status)
	}, 2*time.Second)
}

func TestEthClient_AwaitReceiptTimeout(t *testing.T) {
	api := &fakeEthAPI{neverMined: true}
	client := newTestClient(t, api, Params{ReceiptPollInterval: time.Millisecond, ReceiptTimeout: 50 * time.Millisecond})

	unittest.RequireReturnsBefore(t, func() {
		_, err := client.AwaitReceipt(context.Background(), common.HexToHash("0x01"))
		require.Error(t, err)
	}, 2*time.Second)
}

func TestEthClient_AwaitReceiptCanceled(t *testing.T) {
	api := &fakeEthAPI{neverMined: true}
	client := newTestClient(t, api, Params{ReceiptPollInterval: time.Millisecond})

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	unittest.RequireReturnsBefore(t, func() {
		_, err := client.AwaitReceipt(ctx, common.HexToHash("0x01"))
		require.ErrorIs(t, err, context.Canceled)
	}, 2*time.Second)
}

func TestEthClient_RateLimited(t *testing.T) {
	api := &fakeEthAPI{gasPrice: 1}
	client := newTestClient(t, api, Params{RateLimit: 20, RateBurst: 1})

	start := time.Now()
	for i := 0; i < 5; i++ {
		_, err := client.GasPrice(context.Background())
		require.NoError(t, err)
	}
	// 1 burst token then 4 tokens at 20/s
	assert.GreaterOrEqual(t, time.Since(start), 150*time.Millisecond)
}
