package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	ethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/holiman/uint256"
	"github.com/ruteri/fhevm-instance-bootstrap/cmd/flags"
	"github.com/ruteri/fhevm-instance-bootstrap/common"
	"github.com/ruteri/fhevm-instance-bootstrap/fhevm"
	"github.com/ruteri/fhevm-instance-bootstrap/interfaces"
	"github.com/ruteri/fhevm-instance-bootstrap/keycache"
	"github.com/ruteri/fhevm-instance-bootstrap/metrics"
	"github.com/ruteri/fhevm-instance-bootstrap/relayer"
	"github.com/ruteri/fhevm-instance-bootstrap/sdk"
	"github.com/ruteri/fhevm-instance-bootstrap/storage"
	"github.com/urfave/cli/v2"
)

var ClientServiceLogFlag = flags.LogServiceFlagFn("fhevm-client")

var ValueFlag = &cli.StringFlag{
	Name:  "value",
	Usage: "decimal or 0x-prefixed value to encrypt",
}

var ContractFlag = &cli.StringFlag{
	Name:  "contract",
	Usage: "contract address the encrypted value is bound to",
}

var TimeoutFlag = &cli.DurationFlag{
	Name:  "timeout",
	Value: 2 * time.Minute,
	Usage: "abort the acquisition after this duration",
}

type encryptOutput struct {
	Handles    []ethcommon.Hash `json:"handles"`
	InputProof hexutil.Bytes    `json:"inputProof"`
}

func main() {
	app := &cli.App{
		Name:  "fhevm-client",
		Usage: "Acquire a confidential-compute instance and encrypt values",
		Flags: append([]cli.Flag{
			flags.RpcAddrFlag,
			flags.RelayerURLFlag,
			flags.MockChainFlag,
			flags.KeyStoreFlag,
			flags.FallbackNetworkFlag,
			ValueFlag,
			ContractFlag,
			TimeoutFlag,
			ClientServiceLogFlag,
		}, flags.LogFlags...),
		Action: func(cCtx *cli.Context) error {
			logger := flags.SetupLogger(cCtx)

			mockChains, err := flags.ParseMockChains(cCtx.StringSlice(flags.MockChainFlag.Name))
			if err != nil {
				return err
			}

			m := metrics.NewMetrics(common.PackageName)

			keyCache, err := setupKeyCache(cCtx.StringSlice(flags.KeyStoreFlag.Name), logger, m)
			if err != nil {
				logger.Error("Failed to set up key store", "err", err)
				return err
			}

			sdk.SetDefault(sdk.NewBootstrapper(relayer.NewSDK(cCtx.String(flags.RelayerURLFlag.Name), nil, logger), logger))
			fhevm.SetDefault(fhevm.NewAcquirer(fhevm.Options{
				KeyCache:        keyCache,
				Metrics:         m,
				Log:             logger,
				FallbackNetwork: cCtx.String(flags.FallbackNetworkFlag.Name),
			}))

			ctx, stop := signal.NotifyContext(cCtx.Context, os.Interrupt, syscall.SIGTERM)
			defer stop()
			ctx, cancel := context.WithTimeout(ctx, cCtx.Duration(TimeoutFlag.Name))
			defer cancel()

			instance, err := fhevm.CreateInstance(ctx, fhevm.Params{
				Connection: interfaces.ConnectionFromURL(cCtx.String(flags.RpcAddrFlag.Name)),
				MockChains: mockChains,
				OnStatusChange: func(s sdk.Status) {
					fmt.Fprintln(os.Stderr, s)
				},
			})
			if errors.Is(err, interfaces.ErrCancelled) {
				logger.Info("Acquisition cancelled")
				return nil
			}
			if err != nil {
				return err
			}

			publicKey, err := instance.PublicKey()
			if err != nil {
				return err
			}
			logger.Info("Instance ready", slog.Int("publicKeyBytes", len(publicKey)))

			if !cCtx.IsSet(ValueFlag.Name) {
				return nil
			}
			return encryptValue(ctx, instance, cCtx.String(ValueFlag.Name), cCtx.String(ContractFlag.Name))
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func setupKeyCache(uris []string, logger *slog.Logger, m *metrics.Metrics) (*keycache.Manager, error) {
	if len(uris) == 0 {
		return nil, nil
	}

	locations := make([]interfaces.StorageBackendLocation, 0, len(uris))
	for _, uri := range uris {
		location, err := interfaces.NewStorageBackendLocation(uri)
		if err != nil {
			return nil, err
		}
		locations = append(locations, location)
	}

	backend, err := storage.NewStorageBackendFactory(logger).CreateMultiBackend(locations)
	if err != nil {
		return nil, err
	}
	return keycache.NewManager(keycache.NewStorageKeyStore(backend, logger), logger, m), nil
}

func encryptValue(ctx context.Context, instance interfaces.Instance, rawValue, rawContract string) error {
	if !fhevm.IsAddress(rawContract) {
		return fmt.Errorf("invalid contract address %q", rawContract)
	}

	var value *uint256.Int
	var err error
	if len(rawValue) > 1 && rawValue[:2] == "0x" {
		value, err = uint256.FromHex(rawValue)
	} else {
		value, err = uint256.FromDecimal(rawValue)
	}
	if err != nil {
		return fmt.Errorf("invalid value %q: %w", rawValue, err)
	}

	encrypted, err := instance.EncryptValue(ctx, value, ethcommon.HexToAddress(rawContract))
	if err != nil {
		return err
	}

	return json.NewEncoder(os.Stdout).Encode(encryptOutput{Handles: encrypted.Handles, InputProof: encrypted.InputProof})
}
