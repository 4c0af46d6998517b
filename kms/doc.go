// Package kms derives the key material of FHEVM cryptographic domains.
//
// A domain is identified by its ACL contract address. For every domain the
// KMS deterministically derives, from a single master key:
//
//   - a P-256 encryption key pair; the PEM encoded public half is the domain "public key"
//   - a public parameters blob per supported parameter set size
//   - a secp256k1 input verifier key that signs input proofs
//
// All derivations use HKDF-SHA256 keyed by the master key, salted with the ACL
// address and separated by purpose, so restarting a KMS with the same master
// key reproduces the same material.
//
// # SimpleKMS
//
// Holds the master key in memory. Suitable for development networks and tests.
// SeedFromPassphrase turns an operator passphrase into a master key.
//
// # ShamirKMS
//
// Splits the master key into shares with Shamir's Secret Sharing. A recovering
// ShamirKMS returns interfaces.ErrKMSLocked until a threshold of shares, each
// signed by a registered administrator key, has been submitted:
//
//	k, _ := kms.NewShamirKMSRecovery(kms.ShamirConfig{Threshold: 2, AdminPubKeys: admins})
//	sig, _ := kms.SignShare(0, share, adminKey)
//	err := k.SubmitShare(0, share, sig, adminPubKeyPEM)
package kms
