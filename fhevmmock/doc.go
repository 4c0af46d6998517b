// Package fhevmmock implements the in-process engine used against local
// development nodes. Key material is derived deterministically from the node's
// chain id and contract addresses, so every instance created for the same node
// encrypts under the same key and signs input proofs with the same verifier.
package fhevmmock
