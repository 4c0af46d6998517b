// Package interfaces defines the contracts and value types shared by the
// confidential-compute instance bootstrap, separating interface definitions
// from their implementations.
//
// # Connection
//
// Connection identifies the chain to bootstrap against: either a JSON-RPC
// endpoint URL or an already established Provider (anything exposing
// CallContext, such as a go-ethereum *rpc.Client).
//
// # Engines
//
//   - Instance: the capability returned to callers (encrypt values, export
//     public key material). Two variants exist: the in-process mock engine and
//     the relayer-backed engine. Callers never branch on the variant.
//   - SDK / Module: the lazily loaded, once-initialised remote SDK.
//   - MockFactory: builds mock engine instances for local FHEVM hardhat nodes.
//
// # Key material persistence
//
//   - KeyStore: fallible get/set of public key material keyed by ACL address.
//   - StorageBackend / StorageBackendFactory: key-addressed byte storage used
//     to implement KeyStore (file, s3, vault, ipfs, redis, leveldb, memory).
//
// # Error Types
//
// Acquisition failures are reported as *Error values carrying a Kind. Use
// errors.Is with ErrConnectivity, ErrConfiguration, ErrBootstrap,
// ErrCancelled or ErrRemoteRejection to classify them.
//
// Storage operations return the standard storage errors:
//
//   - ErrContentNotFound: no value stored under the key
//   - ErrBackendUnavailable: storage backend is not accessible
//   - ErrInvalidLocationURI: storage location URI is malformed
package interfaces
