package main

import (
	"context"
	"encoding/hex"
	"errors"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	ethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/ruteri/fhevm-instance-bootstrap/cmd/flags"
	"github.com/ruteri/fhevm-instance-bootstrap/common"
	"github.com/ruteri/fhevm-instance-bootstrap/fhevm"
	"github.com/ruteri/fhevm-instance-bootstrap/interfaces"
	"github.com/ruteri/fhevm-instance-bootstrap/keyserver"
	"github.com/ruteri/fhevm-instance-bootstrap/kms"
	"github.com/ruteri/fhevm-instance-bootstrap/relayer"
	"github.com/urfave/cli/v2"
)

var KeyServerServiceLogFlag = flags.LogServiceFlagFn("keyserver")

var ListenAddrFlag = &cli.StringFlag{
	Name:  "listen-addr",
	Value: "127.0.0.1:3000",
	Usage: "address to listen on for the relayer API",
}

var PublicURLFlag = &cli.StringFlag{
	Name:  "public-url",
	Usage: "base URL advertised in key download links, defaults to the request host",
}

var ACLAddressFlag = &cli.StringFlag{
	Name:  "acl-address",
	Value: relayer.SepoliaConfig().ACLContractAddress,
	Usage: "ACL contract address served when requests do not name one",
}

var MasterKeyFlag = &cli.StringFlag{
	Name:    "master-key",
	Usage:   "hex-encoded master key of at least 32 bytes",
	EnvVars: []string{"KEYSERVER_MASTER_KEY"},
}

var PassphraseFlag = &cli.StringFlag{
	Name:    "passphrase",
	Usage:   "derive the master key from a passphrase",
	EnvVars: []string{"KEYSERVER_PASSPHRASE"},
}

var AdminKeysFlag = &cli.StringFlag{
	Name:  "admin-keys-file",
	Usage: "JSON file with admin public keys; the master key is recovered from admin shares",
}

var ThresholdFlag = &cli.IntFlag{
	Name:  "threshold",
	Value: 2,
	Usage: "number of admin shares required to recover the master key",
}

var UnlockTimeoutFlag = &cli.DurationFlag{
	Name:  "unlock-timeout",
	Value: 24 * time.Hour,
	Usage: "give up if the master key is not recovered within this duration",
}

func main() {
	app := &cli.App{
		Name:  "keyserver",
		Usage: "Serve the relayer API from a local master key",
		Flags: append([]cli.Flag{
			ListenAddrFlag,
			PublicURLFlag,
			ACLAddressFlag,
			MasterKeyFlag,
			PassphraseFlag,
			AdminKeysFlag,
			ThresholdFlag,
			UnlockTimeoutFlag,
			KeyServerServiceLogFlag,
		}, flags.CommonFlags...),
		Action: func(cCtx *cli.Context) error {
			logger := flags.SetupLogger(cCtx)

			aclAddress := cCtx.String(ACLAddressFlag.Name)
			if !fhevm.IsAddress(aclAddress) {
				return errors.New("invalid acl address " + aclAddress)
			}
			acl := ethcommon.HexToAddress(aclAddress)

			keys, admin, err := setupKMS(cCtx, logger)
			if err != nil {
				logger.Error("Failed to initialize KMS", "err", err)
				return err
			}

			cfg := flags.ConfigureServer(cCtx, logger, cCtx.String(ListenAddrFlag.Name))
			cfg.ACLAddress = acl
			cfg.PublicURL = cCtx.String(PublicURLFlag.Name)

			srv, err := keyserver.New(cfg, keyserver.NewHandler(keys, acl, cfg.PublicURL, logger), admin)
			if err != nil {
				logger.Error("Failed to create server", "err", err)
				return err
			}
			srv.RunInBackground()

			exit := make(chan os.Signal, 1)
			signal.Notify(exit, os.Interrupt, syscall.SIGTERM)

			if admin != nil {
				go waitForUnlock(admin, cCtx.Duration(UnlockTimeoutFlag.Name), logger, exit)
			}

			logger.Info("Server is running, press Ctrl+C to stop", slog.String("acl", acl.Hex()))
			<-exit
			logger.Info("Shutdown signal received")

			srv.Shutdown()
			logger.Info("Server shutdown complete")
			return nil
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func setupKMS(cCtx *cli.Context, logger *slog.Logger) (interfaces.KMS, *keyserver.AdminHandler, error) {
	switch {
	case cCtx.IsSet(AdminKeysFlag.Name):
		f, err := os.Open(cCtx.String(AdminKeysFlag.Name))
		if err != nil {
			return nil, nil, err
		}
		defer f.Close()

		adminKeys, err := keyserver.LoadAdminKeys(f)
		if err != nil {
			return nil, nil, err
		}

		config := kms.ShamirConfig{Threshold: cCtx.Int(ThresholdFlag.Name)}
		for _, pubKey := range adminKeys {
			config.AdminPubKeys = append(config.AdminPubKeys, pubKey)
		}

		shamirKMS, err := kms.NewShamirKMSRecovery(config)
		if err != nil {
			return nil, nil, err
		}
		logger.Info("KMS locked, waiting for admin shares",
			slog.Int("admins", len(adminKeys)),
			slog.Int("threshold", config.Threshold))
		return shamirKMS, keyserver.NewAdminHandler(shamirKMS, adminKeys, logger), nil

	case cCtx.IsSet(MasterKeyFlag.Name):
		masterKey, err := hex.DecodeString(cCtx.String(MasterKeyFlag.Name))
		if err != nil {
			return nil, nil, err
		}
		simpleKMS, err := kms.NewSimpleKMS(masterKey)
		return simpleKMS, nil, err

	case cCtx.IsSet(PassphraseFlag.Name):
		simpleKMS, err := kms.NewSimpleKMS(kms.SeedFromPassphrase(cCtx.String(PassphraseFlag.Name), []byte(common.PackageName)))
		return simpleKMS, nil, err

	default:
		return nil, nil, errors.New("one of --master-key, --passphrase and --admin-keys-file is required")
	}
}

func waitForUnlock(admin *keyserver.AdminHandler, timeout time.Duration, logger *slog.Logger, exit chan<- os.Signal) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := admin.WaitForUnlock(ctx); err != nil {
		logger.Error("KMS was not unlocked in time", "err", err)
		exit <- syscall.SIGTERM
		return
	}
	logger.Info("KMS unlocked, serving key material")
}
