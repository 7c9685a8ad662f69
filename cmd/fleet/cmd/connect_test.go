package cmd

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	mockclient "github.com/onflow/evm-fleet/module/evmclient/mock"
	"github.com/onflow/evm-fleet/utils/unittest"
)

type pingRecorder struct {
	rtts []time.Duration
}

func (p *pingRecorder) NodeReachable(_ string, rtt time.Duration) {
	p.rtts = append(p.rtts, rtt)
}

func TestConnect(t *testing.T) {
	client := mockclient.NewClient(t)
	client.On("IsConnected", mock.Anything).Return(false).Once()
	client.On("IsConnected", mock.Anything).Return(true).Once()

	pings := &pingRecorder{}
	err := connect(context.Background(), unittest.Logger(), client, pings, "http://node", 3, time.Millisecond)
	require.NoError(t, err)

	require.Len(t, pings.rtts, 2)
	assert.Zero(t, pings.rtts[0])
	assert.True(t, pings.rtts[1] > 0)
}

func TestConnect_Unreachable(t *testing.T) {
	client := mockclient.NewClient(t)
	client.On("IsConnected", mock.Anything).Return(false).Times(3)

	err := connect(context.Background(), unittest.Logger(), client, &pingRecorder{}, "http://node", 3, time.Millisecond)
	require.ErrorIs(t, err, errNodeUnreachable)
	assert.Contains(t, err.Error(), "after 3 attempts")
	client.AssertNumberOfCalls(t, "IsConnected", 3)
}

func TestConnect_SingleAttempt(t *testing.T) {
	client := mockclient.NewClient(t)
	client.On("IsConnected", mock.Anything).Return(false).Once()

	err := connect(context.Background(), unittest.Logger(), client, &pingRecorder{}, "http://node", 0, time.Millisecond)
	require.ErrorIs(t, err, errNodeUnreachable)
}

func TestConnect_ZeroDelay(t *testing.T) {
	client := mockclient.NewClient(t)
	client.On("IsConnected", mock.Anything).Return(true).Once()

	require.NotPanics(t, func() {
		err := connect(context.Background(), unittest.Logger(), client, &pingRecorder{}, "http://node", 3, 0)
		require.NoError(t, err)
	})
}
