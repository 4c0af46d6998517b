package flags

import (
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/ruteri/fhevm-instance-bootstrap/api"
	"github.com/ruteri/fhevm-instance-bootstrap/common"
	"github.com/ruteri/fhevm-instance-bootstrap/interfaces"
	"github.com/urfave/cli/v2"
)

func SetupLogger(cCtx *cli.Context) (log *slog.Logger) {
	logJSON := cCtx.Bool(LogJsonFlag.Name)
	logDebug := cCtx.Bool(LogDebugFlag.Name)
	logUID := cCtx.Bool(LogUidFlag.Name)
	logService := cCtx.String("log-service")

	logger := common.SetupLogger(&common.LoggingOpts{
		Debug:   logDebug,
		JSON:    logJSON,
		Service: logService,
		Version: common.Version,
	})

	if logUID {
		id := uuid.Must(uuid.NewRandom())
		logger = logger.With("uid", id.String())
	}
	return logger
}

func ConfigureServer(cCtx *cli.Context, logger *slog.Logger, listenAddr string) *api.HTTPServerConfig {
	metricsAddr := cCtx.String(MetricsAddrFlag.Name)
	enablePprof := cCtx.Bool(PprofFlag.Name)
	drainDuration := time.Duration(cCtx.Int64(DrainSecondsFlag.Name)) * time.Second

	return &api.HTTPServerConfig{
		ListenAddr:               listenAddr,
		MetricsAddr:              metricsAddr,
		Log:                      logger,
		EnablePprof:              enablePprof,
		DrainDuration:            drainDuration,
		GracefulShutdownDuration: 30 * time.Second,
		ReadTimeout:              60 * time.Second,
		WriteTimeout:             30 * time.Second,
	}
}

// ParseMockChains parses "chainId=url" entries.
func ParseMockChains(entries []string) (interfaces.MockChains, error) {
	chains := make(interfaces.MockChains, len(entries))
	for _, entry := range entries {
		id, url, found := strings.Cut(entry, "=")
		if !found || url == "" {
			return nil, fmt.Errorf("invalid mock chain %q, expected chainId=url", entry)
		}
		chainID, err := strconv.ParseUint(strings.TrimSpace(id), 0, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid mock chain id %q: %w", id, err)
		}
		chains[chainID] = strings.TrimSpace(url)
	}
	return chains, nil
}

var RpcAddrFlag = &cli.StringFlag{
	Name:    "rpc-addr",
	Value:   "http://127.0.0.1:8545",
	Usage:   "address to connect to RPC",
	EnvVars: []string{"FHEVM_RPC_ADDR"},
}

var RelayerURLFlag = &cli.StringFlag{
	Name:    "relayer-url",
	Usage:   "relayer to load the SDK from, defaults to the public testnet relayer",
	EnvVars: []string{"FHEVM_RELAYER_URL"},
}

var MockChainFlag = &cli.StringSliceFlag{
	Name:  "mock-chain",
	Usage: "register a local mock chain as chainId=url, may be repeated",
}

var KeyStoreFlag = &cli.StringSliceFlag{
	Name:    "key-store",
	Usage:   "public key cache location URI (file://, s3://, vault://, ipfs://, redis://, leveldb://, memory://), may be repeated",
	EnvVars: []string{"FHEVM_KEY_STORE"},
}

var FallbackNetworkFlag = &cli.StringFlag{
	Name:  "fallback-network",
	Usage: "network endpoint handed to remote instances when the connection names none",
}

var LogJsonFlag = &cli.BoolFlag{
	Name:  "log-json",
	Value: false,
	Usage: "log in JSON format",
}
var LogDebugFlag = &cli.BoolFlag{
	Name:  "log-debug",
	Value: false,
	Usage: "log debug messages",
}
var LogUidFlag = &cli.BoolFlag{
	Name:  "log-uid",
	Value: false,
	Usage: "generate a uuid and add to all log messages",
}

var LogServiceFlagFn = func(service string) *cli.StringFlag {
	return &cli.StringFlag{
		Name:  "log-service",
		Value: service,
		Usage: "add 'service' tag to logs",
	}
}

var PprofFlag = &cli.BoolFlag{
	Name:  "pprof",
	Value: false,
	Usage: "enable pprof debug endpoint",
}
var DrainSecondsFlag = &cli.Int64Flag{
	Name:  "drain-seconds",
	Value: 45,
	Usage: "seconds to wait in drain HTTP request",
}
var MetricsAddrFlag = &cli.StringFlag{
	Name:  "metrics-addr",
	Value: "127.0.0.1:8090",
	Usage: "address to listen on for Prometheus metrics",
}

var LogFlags = []cli.Flag{
	LogJsonFlag,
	LogDebugFlag,
	LogUidFlag,
}

var CommonFlags = append([]cli.Flag{
	PprofFlag,
	DrainSecondsFlag,
	MetricsAddrFlag,
}, LogFlags...)
