package chain

import (
	"context"
	"errors"
	"testing"

	"github.com/ruteri/fhevm-instance-bootstrap/interfaces"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolve_Provider(t *testing.T) {
	tests := []struct {
		name       string
		chainID    string
		mockChains interfaces.MockChains
		expected   Resolution
	}{
		{
			name:     "default mock chain uses registry endpoint",
			chainID:  `"0x7a69"`,
			expected: Resolution{IsMock: true, ChainID: 31337, RPCURL: interfaces.DefaultMockRPCURL},
		},
		{
			name:       "caller override of default entry",
			chainID:    `"0x7a69"`,
			mockChains: interfaces.MockChains{31337: "http://127.0.0.1:9545"},
			expected:   Resolution{IsMock: true, ChainID: 31337, RPCURL: "http://127.0.0.1:9545"},
		},
		{
			name:       "caller registered chain",
			chainID:    `"0x1a4"`,
			mockChains: interfaces.MockChains{420: "http://devnet:8545"},
			expected:   Resolution{IsMock: true, ChainID: 420, RPCURL: "http://devnet:8545"},
		},
		{
			name:     "unregistered chain has no endpoint",
			chainID:  `"0xaa36a7"`,
			expected: Resolution{IsMock: false, ChainID: 11155111},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			provider := &staticProvider{results: map[string]string{"eth_chainId": tt.chainID}}

			res, err := Resolve(context.Background(), interfaces.ConnectionFromProvider(provider), tt.mockChains)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, *res)
		})
	}
}

func TestResolve_URL(t *testing.T) {
	t.Run("mock chain keeps caller endpoint", func(t *testing.T) {
		node, srv := newFakeNode(t, map[string]interface{}{"net_version": "31337"})

		res, err := Resolve(context.Background(), interfaces.ConnectionFromURL(srv.URL), nil)
		require.NoError(t, err)
		assert.Equal(t, Resolution{IsMock: true, ChainID: 31337, RPCURL: srv.URL}, *res)
		assert.Equal(t, []string{"net_version"}, node.Calls())
	})

	t.Run("non-mock chain keeps caller endpoint", func(t *testing.T) {
		_, srv := newFakeNode(t, map[string]interface{}{"net_version": "11155111"})

		res, err := Resolve(context.Background(), interfaces.ConnectionFromURL(srv.URL), interfaces.MockChains{1: "http://x"})
		require.NoError(t, err)
		assert.Equal(t, Resolution{IsMock: false, ChainID: 11155111, RPCURL: srv.URL}, *res)
	})

	t.Run("rpc failure is a connectivity error", func(t *testing.T) {
		_, srv := newFakeNode(t, map[string]interface{}{})

		_, err := Resolve(context.Background(), interfaces.ConnectionFromURL(srv.URL), nil)
		require.Error(t, err)
		assert.ErrorIs(t, err, interfaces.ErrConnectivity)
		assert.Equal(t, interfaces.KindConnectivity, interfaces.KindOf(err))
	})

	t.Run("unreachable endpoint is a connectivity error", func(t *testing.T) {
		_, srv := newFakeNode(t, nil)
		url := srv.URL
		srv.Close()

		_, err := Resolve(context.Background(), interfaces.ConnectionFromURL(url), nil)
		assert.ErrorIs(t, err, interfaces.ErrConnectivity)
	})
}

func TestResolve_Errors(t *testing.T) {
	t.Run("provider failure", func(t *testing.T) {
		provider := &staticProvider{err: errors.New("wallet disconnected")}
		_, err := Resolve(context.Background(), interfaces.ConnectionFromProvider(provider), nil)
		assert.ErrorIs(t, err, interfaces.ErrConnectivity)
	})

	t.Run("empty connection", func(t *testing.T) {
		_, err := Resolve(context.Background(), interfaces.Connection{}, nil)
		assert.ErrorIs(t, err, interfaces.ErrConnectivity)
	})

	t.Run("cancelled context", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		provider := &staticProvider{err: context.Canceled}
		_, err := Resolve(ctx, interfaces.ConnectionFromProvider(provider), nil)
		assert.ErrorIs(t, err, interfaces.ErrCancelled)
	})
}

func TestMockChainsWithDefaults(t *testing.T) {
	custom := interfaces.MockChains{420: "http://devnet:8545"}
	merged := custom.WithDefaults()

	assert.Equal(t, interfaces.DefaultMockRPCURL, merged[interfaces.DefaultMockChainID])
	assert.Equal(t, "http://devnet:8545", merged[420])
	assert.Len(t, custom, 1, "caller registry is not modified")
}
