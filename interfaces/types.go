package interfaces

import (
	"context"
	"maps"

	"github.com/ethereum/go-ethereum/common"
)

// DefaultMockChainID is the chain id of a local hardhat node.
const DefaultMockChainID uint64 = 31337

// DefaultMockRPCURL is the endpoint used for DefaultMockChainID unless overridden.
const DefaultMockRPCURL = "http://localhost:8545"

// DefaultPublicParamsSize selects the public params set exported after instance creation.
const DefaultPublicParamsSize = 2048

// Provider is an established JSON-RPC connection. *rpc.Client implements it.
type Provider interface {
	CallContext(ctx context.Context, result interface{}, method string, args ...interface{}) error
}

// Connection references the chain to bootstrap against.
// Exactly one of URL and Provider is expected to be set.
type Connection struct {
	URL      string
	Provider Provider
}

// ConnectionFromURL creates a connection for a JSON-RPC endpoint.
func ConnectionFromURL(url string) Connection {
	return Connection{URL: url}
}

// ConnectionFromProvider creates a connection for an established provider.
func ConnectionFromProvider(p Provider) Connection {
	return Connection{Provider: p}
}

// IsURL reports whether the connection was given as an endpoint string.
func (c Connection) IsURL() bool {
	return c.Provider == nil && c.URL != ""
}

// MockChains maps chain ids to local endpoints of mock-capable nodes.
type MockChains map[uint64]string

// WithDefaults returns the registry merged over the built-in default entry.
func (m MockChains) WithDefaults() MockChains {
	merged := MockChains{DefaultMockChainID: DefaultMockRPCURL}
	maps.Copy(merged, m)
	return merged
}

// NodeMetadata describes the confidential-compute contracts of a mock node.
// Addresses are kept exactly as reported by the node.
type NodeMetadata struct {
	ACLAddress           string `json:"ACLAddress"`
	InputVerifierAddress string `json:"InputVerifierAddress"`
	KMSVerifierAddress   string `json:"KMSVerifierAddress"`
}

// MockParams is passed to a MockFactory.
type MockParams struct {
	RPCURL   string
	ChainID  uint64
	Metadata NodeMetadata
}

// KeyRecord is cached public key material for one ACL address. Nil fields are absent.
type KeyRecord struct {
	PublicKey    []byte
	PublicParams []byte
}

// Empty reports whether the record carries no material.
func (r KeyRecord) Empty() bool {
	return len(r.PublicKey) == 0 && len(r.PublicParams) == 0
}

// InstanceConfig is the configuration handed to Module.CreateInstance.
type InstanceConfig struct {
	ACLContractAddress                        string `json:"aclContractAddress"`
	KMSContractAddress                        string `json:"kmsContractAddress"`
	InputVerifierContractAddress              string `json:"inputVerifierContractAddress"`
	VerifyingContractAddressDecryption        string `json:"verifyingContractAddressDecryption"`
	VerifyingContractAddressInputVerification string `json:"verifyingContractAddressInputVerification"`
	ChainID                                   uint64 `json:"chainId"`
	GatewayChainID                            uint64 `json:"gatewayChainId"`
	Network                                   string `json:"network"`
	RelayerURL                                string `json:"relayerUrl"`

	PublicKey    []byte `json:"publicKey,omitempty"`
	PublicParams []byte `json:"publicParams,omitempty"`
}

// EncryptedInput is the result of encrypting a value for a contract.
type EncryptedInput struct {
	Handles    []common.Hash `json:"handles"`
	InputProof []byte        `json:"inputProof"`
}
