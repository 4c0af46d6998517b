package chain

import (
	"context"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/rpc"
	"github.com/ruteri/fhevm-instance-bootstrap/interfaces"
)

// Resolution describes the environment a connection points at.
type Resolution struct {
	IsMock  bool
	ChainID uint64
	// RPCURL is empty when no endpoint is known.
	RPCURL string
}

// Resolve queries the chain id of conn and matches it against mockChains merged
// over the built-in default entry.
//
// Endpoint connections are queried with net_version, provider connections with eth_chainId.
// A mock resolution uses the caller's endpoint when the connection was given as one,
// otherwise the registry endpoint for the chain id.
func Resolve(ctx context.Context, conn interfaces.Connection, mockChains interfaces.MockChains) (*Resolution, error) {
	chainID, err := ChainID(ctx, conn)
	if err != nil {
		return nil, err
	}

	registry := mockChains.WithDefaults()
	if registryURL, isMock := registry[chainID]; isMock {
		rpcURL := registryURL
		if conn.IsURL() {
			rpcURL = conn.URL
		}
		return &Resolution{IsMock: true, ChainID: chainID, RPCURL: rpcURL}, nil
	}

	res := &Resolution{ChainID: chainID}
	if conn.IsURL() {
		res.RPCURL = conn.URL
	}
	return res, nil
}

// ChainID returns the chain id reported by conn.
func ChainID(ctx context.Context, conn interfaces.Connection) (uint64, error) {
	if conn.Provider != nil {
		var chainID hexutil.Uint64
		if err := conn.Provider.CallContext(ctx, &chainID, "eth_chainId"); err != nil {
			return 0, rpcError(ctx, "CHAIN_ID_ERROR", "eth_chainId request failed", err)
		}
		return uint64(chainID), nil
	}

	if conn.URL == "" {
		return 0, interfaces.NewError(interfaces.KindConnectivity, "NO_CONNECTION", "connection has neither an endpoint nor a provider", nil)
	}

	client, err := rpc.DialContext(ctx, conn.URL)
	if err != nil {
		return 0, rpcError(ctx, "CHAIN_ID_ERROR", fmt.Sprintf("failed to dial %s", conn.URL), err)
	}
	defer client.Close()

	networkID, err := ethclient.NewClient(client).NetworkID(ctx)
	if err != nil {
		return 0, rpcError(ctx, "CHAIN_ID_ERROR", fmt.Sprintf("net_version request to %s failed", conn.URL), err)
	}
	if !networkID.IsUint64() {
		return 0, interfaces.NewError(interfaces.KindConnectivity, "CHAIN_ID_ERROR", fmt.Sprintf("chain id %s out of range", networkID), nil)
	}
	return networkID.Uint64(), nil
}

// rpcError classifies a failed RPC call. A call aborted by its context is a cancellation.
func rpcError(ctx context.Context, code, message string, err error) error {
	if ctx.Err() != nil || errors.Is(err, context.Canceled) {
		return interfaces.Cancelled(err)
	}
	return interfaces.NewError(interfaces.KindConnectivity, code, message, err)
}
