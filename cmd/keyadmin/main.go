package main

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"encoding/hex"
	"encoding/json"
	"encoding/pem"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/ruteri/fhevm-instance-bootstrap/keyserver"
	"github.com/ruteri/fhevm-instance-bootstrap/kms"
	"github.com/urfave/cli/v2"
)

var flagKeyServer *cli.StringFlag = &cli.StringFlag{
	Name:  "keyserver-addr",
	Value: "http://127.0.0.1:3000",
	Usage: "Key server address",
}
var flagAdminPrivkey *cli.StringFlag = &cli.StringFlag{
	Name:  "admin-privkey-file",
	Value: "admin-private.pem",
	Usage: "Path to admin private key",
}
var flagAdminPubkey *cli.StringFlag = &cli.StringFlag{
	Name:  "admin-pubkey-file",
	Value: "admin-public.pem",
	Usage: "Path to admin public key",
}
var flagShamirAdmins *cli.StringFlag = &cli.StringFlag{
	Name:  "shamir-admins-file",
	Value: "shamir-admins.json",
	Usage: "Path to the admin public keys file passed to keyserver --admin-keys-file",
}
var flagShamirShare *cli.StringFlag = &cli.StringFlag{
	Name:  "shamir-share-file",
	Value: "shamir-share.json",
	Usage: "Path to an admin's sealed share",
}
var flagSharesDir *cli.StringFlag = &cli.StringFlag{
	Name:  "shares-dir",
	Value: "shares",
	Usage: "Directory to write sealed shares to, one file per admin",
}
var flagMasterKey *cli.StringFlag = &cli.StringFlag{
	Name:  "master-key",
	Usage: "hex-encoded master key to split; a random key is generated when empty",
}
var flagShamirThreshold *cli.IntFlag = &cli.IntFlag{
	Name:  "shamir-threshold",
	Value: 2,
}

func main() {
	app := &cli.App{
		Name:           "keyadmin",
		Usage:          "Manage keyserver admin shares",
		DefaultCommand: "status",
		Commands: []*cli.Command{
			{
				Name:  "status",
				Usage: "Print the keyserver unlock state",
				Flags: []cli.Flag{flagKeyServer},
				Action: func(cCtx *cli.Context) error {
					status, err := keyserver.NewAdminClient(cCtx.String(flagKeyServer.Name), "", nil).Status(cCtx.Context)
					if err != nil {
						return err
					}
					fmt.Printf("%s (%d shares received)\n", status.State, status.SharesReceived)
					return nil
				},
			},
			{
				Name:  "generate-admin",
				Usage: "Generate an admin key pair",
				Flags: []cli.Flag{flagAdminPrivkey, flagAdminPubkey},
				Action: func(cCtx *cli.Context) error {
					privateKey, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
					if err != nil {
						return fmt.Errorf("failed to generate ECDSA key: %w", err)
					}

					privateKeyBytes, err := x509.MarshalECPrivateKey(privateKey)
					if err != nil {
						return fmt.Errorf("failed to marshal private key: %w", err)
					}
					privateKeyPEM := pem.EncodeToMemory(&pem.Block{Type: "EC PRIVATE KEY", Bytes: privateKeyBytes})

					publicKeyBytes, err := x509.MarshalPKIXPublicKey(&privateKey.PublicKey)
					if err != nil {
						return fmt.Errorf("failed to marshal public key: %w", err)
					}
					publicKeyPEM := pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: publicKeyBytes})

					if err := os.WriteFile(cCtx.String(flagAdminPrivkey.Name), privateKeyPEM, 0600); err != nil {
						return err
					}
					if err := os.WriteFile(cCtx.String(flagAdminPubkey.Name), publicKeyPEM, 0600); err != nil {
						return err
					}

					fmt.Println(keyserver.AdminID(publicKeyPEM))
					return nil
				},
			},
			{
				Name:  "generate-admins-config",
				Usage: "Collect admin public keys into an admins file",
				Flags: []cli.Flag{
					flagShamirAdmins,
					&cli.StringSliceFlag{Name: "admin-pubkey-files", Required: true},
				},
				Action: func(cCtx *cli.Context) error {
					config := keyserver.AdminsConfig{}
					for _, path := range cCtx.StringSlice("admin-pubkey-files") {
						publicKeyPEM, err := os.ReadFile(path)
						if err != nil {
							return err
						}
						config.Admins = append(config.Admins, keyserver.AdminMetadata{
							ID:     keyserver.AdminID(publicKeyPEM),
							PubKey: string(publicKeyPEM),
						})
					}

					configBytes, err := json.MarshalIndent(config, "", "  ")
					if err != nil {
						return err
					}
					return os.WriteFile(cCtx.String(flagShamirAdmins.Name), configBytes, 0600)
				},
			},
			{
				Name:  "split-master-key",
				Usage: "Split a master key into shares sealed to each admin",
				Flags: []cli.Flag{flagShamirAdmins, flagSharesDir, flagMasterKey, flagShamirThreshold},
				Action: func(cCtx *cli.Context) error {
					f, err := os.Open(cCtx.String(flagShamirAdmins.Name))
					if err != nil {
						return err
					}
					defer f.Close()

					adminKeys, err := keyserver.LoadAdminKeys(f)
					if err != nil {
						return err
					}

					masterKey := make([]byte, 32)
					if cCtx.IsSet(flagMasterKey.Name) {
						if masterKey, err = hex.DecodeString(cCtx.String(flagMasterKey.Name)); err != nil {
							return err
						}
					} else if _, err := rand.Read(masterKey); err != nil {
						return err
					}

					shares, err := kms.SplitMasterKey(masterKey, len(adminKeys), cCtx.Int(flagShamirThreshold.Name))
					if err != nil {
						return err
					}
					sealed, err := keyserver.SealShares(adminKeys, shares)
					if err != nil {
						return err
					}

					dir := cCtx.String(flagSharesDir.Name)
					if err := os.MkdirAll(dir, 0700); err != nil {
						return err
					}
					for _, share := range sealed {
						shareJSON, err := json.Marshal(share)
						if err != nil {
							return err
						}
						if err := os.WriteFile(filepath.Join(dir, share.AdminID+".json"), shareJSON, 0600); err != nil {
							return err
						}
					}

					fmt.Printf("wrote %d shares to %s\n", len(sealed), dir)
					return nil
				},
			},
			{
				Name:  "submit-share",
				Usage: "Decrypt an admin's share and submit it to the keyserver",
				Flags: []cli.Flag{flagKeyServer, flagAdminPrivkey, flagShamirShare},
				Action: func(cCtx *cli.Context) error {
					privateKeyPEM, err := os.ReadFile(cCtx.String(flagAdminPrivkey.Name))
					if err != nil {
						return err
					}

					pkBlock, _ := pem.Decode(privateKeyPEM)
					if pkBlock == nil {
						return errors.New("failed to decode admin private key PEM")
					}
					privateKey, err := x509.ParseECPrivateKey(pkBlock.Bytes)
					if err != nil {
						return err
					}

					shareJSON, err := os.ReadFile(cCtx.String(flagShamirShare.Name))
					if err != nil {
						return err
					}
					var sealed keyserver.EncryptedShare
					if err := json.Unmarshal(shareJSON, &sealed); err != nil {
						return err
					}

					share, err := keyserver.OpenShare(sealed, privateKeyPEM)
					if err != nil {
						return err
					}

					adminClient := keyserver.NewAdminClient(cCtx.String(flagKeyServer.Name), sealed.AdminID, privateKey)
					unlocked, err := adminClient.SubmitShare(cCtx.Context, sealed.ShareIndex, share)
					if err != nil {
						return err
					}

					if unlocked {
						fmt.Println("keyserver unlocked")
					} else {
						fmt.Println("share accepted, waiting for more shares")
					}
					return nil
				},
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}
