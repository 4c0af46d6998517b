// Package keycache caches public encryption keys and public params per ACL address.
//
// The Manager never fails an acquisition: read errors are treated as a miss and
// write errors are logged and dropped.
package keycache
