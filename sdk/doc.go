// Package sdk loads the remote confidential-compute SDK once per process and
// tracks the lifecycle status reported to callers during an acquisition.
package sdk
