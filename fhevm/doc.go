/*
Package fhevm acquires confidential-compute instances for a chain connection.

An acquisition resolves the chain behind the connection, then takes one of two paths:

  - mock: the chain id is registered as a local development chain and the node
    answers the metadata extension. A mock engine instance is created in-process.
  - remote: every other case. The SDK is loaded and initialised once per process,
    cached key material for the SDK's ACL address is handed to the instance
    configuration, and the key material of the created instance is written back
    to the cache.

Progress is reported through sdk.Status notifications. Failures are
*interfaces.Error values classified by kind; an acquisition aborted through its
context fails with interfaces.ErrCancelled.
*/
package fhevm
