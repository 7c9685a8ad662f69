package action

import (
	"context"
	"crypto/ecdsa"
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/onflow/evm-fleet/config"
	"github.com/onflow/evm-fleet/model/fleet"
	mockclient "github.com/onflow/evm-fleet/module/evmclient/mock"
	"github.com/onflow/evm-fleet/module/metrics"
	"github.com/onflow/evm-fleet/module/trace"
	"github.com/onflow/evm-fleet/module/util"
	"github.com/onflow/evm-fleet/utils/rand"
	"github.com/onflow/evm-fleet/utils/unittest"
)

// recordingSigner keeps every signed intent.
type recordingSigner struct {
	intents []*fleet.TransactionIntent
}

func (r *recordingSigner) sign(intent *fleet.TransactionIntent, _ *ecdsa.PrivateKey) ([]byte, error) {
	r.intents = append(r.intents, intent)
	return []byte{byte(len(r.intents))}, nil
}

func newTestExecutor(client *mockclient.Client, signer *recordingSigner) *Executor {
	return NewExecutor(
		unittest.Logger(),
		client,
		chainID,
		rand.NewSeededSource(11),
		metrics.NewNoopCollector(),
		trace.NewNoopTracer(),
		WithSigner(signer.sign),
		WithEstimateRetryDelay(time.Millisecond),
	)
}

func testActions(t *testing.T, executor *Executor) map[string]Action {
	cfg, err := config.DefaultConfig()
	require.NoError(t, err)
	pacer := util.NewPacer(executor.Rand(), 0, time.Millisecond)
	return TokenActions(executor, pacer, cfg.Contracts, cfg.Actions)
}

func TestShield_SharesAmount(t *testing.T) {
	client := mockclient.NewClient(t)
	signer := &recordingSigner{}
	executor := newTestExecutor(client, signer)
	w := unittest.WalletFixture(t)

	client.On("GasPrice", mock.Anything).Return(big.NewInt(1), nil).Twice()
	client.On("NonceOf", mock.Anything, w.Address()).Return(uint64(0), nil).Once()
	client.On("NonceOf", mock.Anything, w.Address()).Return(uint64(1), nil).Once()
	client.On("EstimateGas", mock.Anything, mock.Anything).Return(uint64(100000), nil).Twice()
	client.On("SendRaw", mock.Anything, mock.Anything).Return(
		func(_ context.Context, signed []byte) (common.Hash, error) {
			return common.BytesToHash(signed), nil
		}).Twice()
	client.On("AwaitReceipt", mock.Anything, mock.Anything).Return(
		func(_ context.Context, hash common.Hash) (*types.Receipt, error) {
			return unittest.ReceiptFixture(hash, types.ReceiptStatusSuccessful), nil
		}).Twice()

	shield := testActions(t, executor)[ShieldUSDC]
	result := shield.Run(context.Background(), w)
	require.True(t, result.Succeeded(), result.Reason)
	assert.Equal(t, ShieldUSDC, result.Action)
	assert.Equal(t, common.BytesToHash([]byte{2}), result.Hash)

	require.Len(t, signer.intents, 2)
	approve, wrap := signer.intents[0], signer.intents[1]

	cfg, err := config.DefaultConfig()
	require.NoError(t, err)
	assert.Equal(t, cfg.Contracts.USDCAddress(), approve.To)
	assert.Equal(t, SelectorApprove[:], approve.Data[:4])
	assert.Equal(t, common.LeftPadBytes(cfg.Contracts.WrapperAddress().Bytes(), 32), approve.Data[4:36])
	assert.Equal(t, uint64(110000), approve.GasLimit)

	assert.Equal(t, cfg.Contracts.WrapperAddress(), wrap.To)
	assert.Equal(t, SelectorWrap[:], wrap.Data[:4])
	assert.Equal(t, uint64(110000), wrap.GasLimit)

	// both calls move the same amount
	assert.Equal(t, approve.Data[36:68], wrap.Data[4:36])
	amount := new(big.Int).SetBytes(wrap.Data[4:36])
	tokens := new(big.Int).Quo(amount, weiPerToken)
	assert.True(t, tokens.Int64() >= 100 && tokens.Int64() <= 3000, tokens.String())
}

func TestShield_ApproveFailureSkipsWrap(t *testing.T) {
	client := mockclient.NewClient(t)
	signer := &recordingSigner{}
	executor := newTestExecutor(client, signer)
	w := unittest.WalletFixture(t)

	hash := unittest.HashFixture()
	client.On("GasPrice", mock.Anything).Return(big.NewInt(1), nil).Once()
	client.On("NonceOf", mock.Anything, w.Address()).Return(uint64(0), nil).Once()
	client.On("EstimateGas", mock.Anything, mock.Anything).Return(uint64(100000), nil).Once()
	client.On("SendRaw", mock.Anything, mock.Anything).Return(hash, nil).Once()
	client.On("AwaitReceipt", mock.Anything, hash).Return(unittest.ReceiptFixture(hash, types.ReceiptStatusFailed), nil).Once()

	result := testActions(t, executor)[ShieldUSDC].Run(context.Background(), w)
	require.False(t, result.Succeeded())
	assert.True(t, IsTransactionRevertedError(result.Err))
	assert.Contains(t, result.Reason, "approve")
	assert.Equal(t, hash, result.Hash)
	require.Len(t, signer.intents, 1)
}

func TestMint_CallData(t *testing.T) {
	client := mockclient.NewClient(t)
	signer := &recordingSigner{}
	executor := newTestExecutor(client, signer)
	w := unittest.WalletFixture(t)

	hash := unittest.HashFixture()
	client.On("GasPrice", mock.Anything).Return(big.NewInt(1), nil).Once()
	client.On("NonceOf", mock.Anything, w.Address()).Return(uint64(9), nil).Once()
	client.On("EstimateGas", mock.Anything, mock.Anything).Return(uint64(100000), nil).Once()
	client.On("SendRaw", mock.Anything, mock.Anything).Return(hash, nil).Once()
	client.On("AwaitReceipt", mock.Anything, hash).Return(unittest.ReceiptFixture(hash, types.ReceiptStatusSuccessful), nil).Once()

	result := testActions(t, executor)[MintCUSDC].Run(context.Background(), w)
	require.True(t, result.Succeeded(), result.Reason)

	require.Len(t, signer.intents, 1)
	intent := signer.intents[0]
	cfg, err := config.DefaultConfig()
	require.NoError(t, err)
	assert.Equal(t, cfg.Contracts.WrapperAddress(), intent.To)
	assert.Equal(t, SelectorMint[:], intent.Data[:4])
	assert.Equal(t, common.LeftPadBytes(w.Address().Bytes(), 32), intent.Data[4:36])
	assert.Equal(t, uint64(120000), intent.GasLimit)
}

func TestPlan_CanceledBetweenSteps(t *testing.T) {
	client := mockclient.NewClient(t)
	signer := &recordingSigner{}
	executor := newTestExecutor(client, signer)
	w := unittest.WalletFixture(t)

	ctx, cancel := context.WithCancel(context.Background())
	hash := unittest.HashFixture()
	client.On("GasPrice", mock.Anything).Return(big.NewInt(1), nil).Once()
	client.On("NonceOf", mock.Anything, w.Address()).Return(uint64(0), nil).Once()
	client.On("EstimateGas", mock.Anything, mock.Anything).Return(uint64(100000), nil).Once()
	client.On("SendRaw", mock.Anything, mock.Anything).Return(hash, nil).Once()
	client.On("AwaitReceipt", mock.Anything, hash).Return(
		func(context.Context, common.Hash) (*types.Receipt, error) {
			cancel()
			return unittest.ReceiptFixture(hash, types.ReceiptStatusSuccessful), nil
		}).Once()

	cfg, err := config.DefaultConfig()
	require.NoError(t, err)
	plan := NewPlan(ShieldUSDC, executor, util.NewPacer(executor.Rand(), time.Hour, time.Hour), &AmountRange{Low: 1, High: 1},
		ApproveCall(cfg.Contracts.USDCAddress(), cfg.Contracts.WrapperAddress(), cfg.Actions.Approve),
		WrapCall(cfg.Contracts.WrapperAddress(), cfg.Actions.Wrap))

	unittest.RequireReturnsBefore(t, func() {
		result := plan.Run(ctx, w)
		require.False(t, result.Succeeded())
		require.ErrorIs(t, result.Err, context.Canceled)
		assert.Equal(t, hash, result.Hash)
	}, 5*time.Second)
	require.Len(t, signer.intents, 1)
}

func TestSelect(t *testing.T) {
	executor := newTestExecutor(mockclient.NewClient(t), &recordingSigner{})
	available := testActions(t, executor)

	actions, err := Select(available, []string{UnshieldCUSDC, MintUSDC})
	require.NoError(t, err)
	require.Len(t, actions, 2)
	assert.Equal(t, UnshieldCUSDC, actions[0].Name())
	assert.Equal(t, MintUSDC, actions[1].Name())

	_, err = Select(available, []string{"burn_usdc"})
	require.Error(t, err)

	_, err = Select(available, []string{MintUSDC, MintUSDC})
	require.Error(t, err)
}
