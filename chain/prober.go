package chain

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/rpc"
	"github.com/ruteri/fhevm-instance-bootstrap/interfaces"
)

// MockNodeMarker is the client version substring identifying a local test node.
const MockNodeMarker = "hardhat"

// ProbeMockNode confirms that rpcURL serves a mock-capable development node and
// returns its contract addresses, or nil if it does not.
//
// Only an unreachable endpoint is an error. A node with a different client version,
// without the metadata extension or with malformed metadata yields nil.
func ProbeMockNode(ctx context.Context, rpcURL string) (*interfaces.NodeMetadata, error) {
	client, err := rpc.DialContext(ctx, rpcURL)
	if err != nil {
		return nil, rpcError(ctx, "WEB3_CLIENTVERSION_ERROR", fmt.Sprintf("the URL %s is not a Web3 node or is not reachable", rpcURL), err)
	}
	defer client.Close()

	return ProbeProvider(ctx, client)
}

// ProbeProvider runs the mock node confirmation over an established provider.
func ProbeProvider(ctx context.Context, p interfaces.Provider) (*interfaces.NodeMetadata, error) {
	var rawVersion json.RawMessage
	if err := p.CallContext(ctx, &rawVersion, "web3_clientVersion"); err != nil {
		return nil, rpcError(ctx, "WEB3_CLIENTVERSION_ERROR", "the endpoint is not a Web3 node or is not reachable", err)
	}

	var version string
	if err := json.Unmarshal(rawVersion, &version); err != nil {
		return nil, nil
	}
	if !strings.Contains(strings.ToLower(version), MockNodeMarker) {
		return nil, nil
	}

	// a reachable node without the metadata extension is a plain local chain
	var rawMetadata json.RawMessage
	if err := p.CallContext(ctx, &rawMetadata, "fhevm_relayer_metadata"); err != nil {
		if ctx.Err() != nil {
			return nil, interfaces.Cancelled(err)
		}
		return nil, nil
	}

	return parseNodeMetadata(rawMetadata), nil
}

func parseNodeMetadata(raw json.RawMessage) *interfaces.NodeMetadata {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil || fields == nil {
		return nil
	}

	var metadata interfaces.NodeMetadata
	for name, dst := range map[string]*string{
		"ACLAddress":           &metadata.ACLAddress,
		"InputVerifierAddress": &metadata.InputVerifierAddress,
		"KMSVerifierAddress":   &metadata.KMSVerifierAddress,
	} {
		value, found := fields[name]
		if !found {
			return nil
		}
		if err := json.Unmarshal(value, dst); err != nil {
			return nil
		}
		if !strings.HasPrefix(*dst, "0x") {
			return nil
		}
	}

	return &metadata
}
