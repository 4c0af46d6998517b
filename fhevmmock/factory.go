package fhevmmock

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"log/slog"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ruteri/fhevm-instance-bootstrap/interfaces"
	"github.com/ruteri/fhevm-instance-bootstrap/kms"
)

const seedDomain = "FHEVM-MOCK-SEED-v1"

// Factory creates mock engine instances. It implements interfaces.MockFactory.
type Factory struct {
	log *slog.Logger
}

// NewFactory creates a mock engine factory.
func NewFactory(log *slog.Logger) *Factory {
	return &Factory{log: log}
}

// CreateMockInstance creates an instance for the node described by params.
func (f *Factory) CreateMockInstance(ctx context.Context, params interfaces.MockParams) (interfaces.Instance, error) {
	if err := ctx.Err(); err != nil {
		return nil, interfaces.Cancelled(err)
	}

	addrs, err := parseMetadata(params.Metadata)
	if err != nil {
		return nil, err
	}

	keys, err := kms.NewSimpleKMS(MockSeed(params.ChainID, params.Metadata))
	if err != nil {
		return nil, err
	}

	instance := &Instance{
		kms:           keys,
		rpcURL:        params.RPCURL,
		chainID:       params.ChainID,
		acl:           addrs[0],
		inputVerifier: addrs[1],
		kmsVerifier:   addrs[2],
		log:           f.log.With(slog.String("rpc", params.RPCURL), slog.Uint64("chainId", params.ChainID)),
	}
	f.log.Info("Created mock instance",
		slog.String("rpc", params.RPCURL),
		slog.Uint64("chainId", params.ChainID),
		slog.String("acl", params.Metadata.ACLAddress))
	return instance, nil
}

// MockSeed derives the master key of the mock node identified by chainID and metadata.
// Addresses are compared case-insensitively.
func MockSeed(chainID uint64, metadata interfaces.NodeMetadata) []byte {
	h := sha256.New()
	h.Write([]byte(seedDomain))
	h.Write(binary.BigEndian.AppendUint64(nil, chainID))
	for _, addr := range []string{metadata.ACLAddress, metadata.InputVerifierAddress, metadata.KMSVerifierAddress} {
		h.Write([]byte(strings.ToLower(addr)))
	}
	return h.Sum(nil)
}

func parseMetadata(metadata interfaces.NodeMetadata) ([3]common.Address, error) {
	var addrs [3]common.Address
	for i, field := range []struct{ name, value string }{
		{"ACLAddress", metadata.ACLAddress},
		{"InputVerifierAddress", metadata.InputVerifierAddress},
		{"KMSVerifierAddress", metadata.KMSVerifierAddress},
	} {
		if !common.IsHexAddress(field.value) {
			return addrs, fmt.Errorf("invalid %s in node metadata: %q", field.name, field.value)
		}
		addrs[i] = common.HexToAddress(field.value)
	}
	return addrs, nil
}
