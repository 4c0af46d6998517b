/*
Fhevm-client acquires a confidential-compute instance for a chain endpoint and
optionally encrypts a value with it.

Local development nodes registered with --mock-chain (chain 31337 is registered
by default) are served by the in-process mock engine when they expose the
fhevm_relayer_metadata extension. Every other chain is served through the
relayer SDK, with public key material cached in the --key-store locations.

	fhevm-client --rpc-addr http://127.0.0.1:8545 --value 42 --contract 0x5FbDB2315678afecb367f032d93F642f64180aa3
*/
package main
