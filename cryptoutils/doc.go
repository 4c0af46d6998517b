// Package cryptoutils provides the cryptographic primitives shared by the
// in-process mock engine, the relayer-backed engine and the key server.
//
// Values are encrypted with ECIES over NIST P-256:
//
//   - ECDH key agreement with a fresh ephemeral key per ciphertext
//   - HKDF-SHA256 key derivation salted with the ephemeral public key
//   - AES-256-GCM with caller supplied associated data
//
// The ciphertext format is:
//
//	[ephemeral key length (2 bytes)][ephemeral key][nonce (12 bytes)][ciphertext]
//
// Encrypted inputs are referenced on chain by 32-byte handles:
//
//	keccak256(...)[0:21] | index (1) | chain id (8) | fhe type (1) | version (1)
//
// and accompanied by an input proof signed by the input verifier keys:
//
//	numHandles (1) | numSigners (1) | handles (32 each) | signatures (65 each) | extraData
package cryptoutils
