// Package storage provides a key-addressed storage system with pluggable backends,
// used to persist public key material between instance acquisitions.
//
// The storage package offers a unified interface for storing and retrieving values
// identified by a slash-separated key across multiple storage backends:
//
//   - File system storage for local development and testing
//   - S3-compatible storage for cloud deployments
//   - IPFS storage using the node's mutable file system (MFS)
//   - Vault storage using the KV v2 engine
//   - Redis storage for shared caches
//   - LevelDB storage for a local embedded database
//   - Memory storage (BigCache) for process-local caching
//
// # Storage URI Format
//
// Storage backends are specified using URI format:
//
//	[scheme]://[auth@]host[:port][/path][?params]
//
// Supported URI schemes:
//
//   - file:///var/lib/fhevm/keys/
//   - s3://bucket-name/prefix/?region=us-west-2
//   - ipfs://127.0.0.1:5001/fhevm-keys
//   - vault://vault.example.com:8200/secret/fhevm?token=...
//   - redis://:password@127.0.0.1:6379/0?prefix=fhevm
//   - leveldb:///var/lib/fhevm/keys.db (leveldb://memory for an in-memory database)
//   - memory://?ttl=24h
//
// # Multi-Backend Storage
//
// MultiStorageBackend aggregates backends: Store writes to every available backend
// and succeeds if at least one write succeeded, Fetch returns the first hit.
//
// # Keys
//
// Keys are relative, slash-separated paths ("fhevm/keys/0xabc...") and must not
// contain ".." segments. Backends map them onto their own namespaces.
package storage
