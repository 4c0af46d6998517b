package api

import (
	"log/slog"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// HTTPServerConfig configures the key server.
type HTTPServerConfig struct {
	ListenAddr string
	// MetricsAddr disables the metrics listener when empty.
	MetricsAddr string
	EnablePprof bool
	Log         *slog.Logger

	// PublicURL is the base of download URLs in key location responses.
	// When empty it is derived from the request.
	PublicURL string

	// ACLAddress is the domain served when a request does not select one.
	ACLAddress common.Address

	// DrainDuration is how long /drain waits before reporting the drain as complete.
	DrainDuration            time.Duration
	GracefulShutdownDuration time.Duration
	ReadTimeout              time.Duration
	WriteTimeout             time.Duration
}
