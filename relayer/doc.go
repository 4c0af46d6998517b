// Package relayer implements the remote-backed SDK. Instances encrypt values
// locally under the network public key and obtain input proofs from a relayer.
package relayer
