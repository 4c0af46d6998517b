// Package chain determines which kind of network a connection points at.
//
// Resolve queries the chain id and decides, against the registry of mock
// capable chains, whether the connection may be a local development node.
// ProbeMockNode then confirms such a node by its client version and reads the
// addresses of its confidential-compute contracts.
//
// Neither operation retries or applies timeouts; callers bound them with the
// context they pass in.
package chain
