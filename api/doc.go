/*
Package api defines the relayer HTTP API shared by the relayer-backed SDK
client and the development key server.

# Endpoints

	GET  /v1/keyurl                     key material locations
	GET  /v1/keys/public-key            PEM encoded public encryption key
	GET  /v1/keys/public-params/{size}  public params blob for a parameter set size
	POST /v1/input-proof                handles and verifier signatures for a ciphertext

Key endpoints accept an optional acl query parameter selecting the
cryptographic domain; without it the server's default ACL address is used.

Responses are wrapped in an envelope carrying a status of "succeeded" or
"failed". Byte fields are 0x-prefixed hex strings.
*/
package api
