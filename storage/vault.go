package storage

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/hashicorp/vault/api"
	"github.com/ruteri/fhevm-instance-bootstrap/interfaces"
)

const vaultContentField = "content"

// VaultBackend stores key records as secrets in a Vault KV v2 mount.
type VaultBackend struct {
	client  *api.Client
	kv      *api.KVv2
	mount   string
	baseDir string
	log     *slog.Logger
}

// NewVaultBackend creates a backend writing under mount/baseDir on the Vault server at address.
// An empty token leaves the client to VAULT_TOKEN.
func NewVaultBackend(address, mount, baseDir, token string, log *slog.Logger) (*VaultBackend, error) {
	config := api.DefaultConfig()
	config.Address = address
	config.HttpClient = &http.Client{Timeout: 30 * time.Second}

	client, err := api.NewClient(config)
	if err != nil {
		return nil, fmt.Errorf("creating vault client: %w", err)
	}
	if token != "" {
		client.SetToken(token)
	}

	mount = strings.Trim(mount, "/")
	return &VaultBackend{
		client:  client,
		kv:      client.KVv2(mount),
		mount:   mount,
		baseDir: strings.Trim(baseDir, "/"),
		log:     log,
	}, nil
}

// Fetch reads the secret stored under key.
func (b *VaultBackend) Fetch(ctx context.Context, key string) ([]byte, error) {
	if err := validateKey(key); err != nil {
		return nil, err
	}

	secret, err := b.kv.Get(ctx, b.secretPath(key))
	if errors.Is(err, api.ErrSecretNotFound) {
		return nil, interfaces.ErrContentNotFound
	}
	if err != nil {
		b.log.Error("Vault read failed", "key", key, "err", err)
		return nil, fmt.Errorf("%w: %v", interfaces.ErrBackendUnavailable, err)
	}

	encoded, ok := secret.Data[vaultContentField].(string)
	if !ok {
		return nil, fmt.Errorf("vault secret %s has no %s field", key, vaultContentField)
	}
	return base64.StdEncoding.DecodeString(encoded)
}

// Store writes data as a new version of the secret under key.
func (b *VaultBackend) Store(ctx context.Context, key string, data []byte) error {
	if err := validateKey(key); err != nil {
		return err
	}

	_, err := b.kv.Put(ctx, b.secretPath(key), map[string]interface{}{
		vaultContentField: base64.StdEncoding.EncodeToString(data),
	})
	if err != nil {
		b.log.Error("Vault write failed", "key", key, "err", err)
		return fmt.Errorf("%w: %v", interfaces.ErrBackendUnavailable, err)
	}
	return nil
}

// Available reports whether Vault is initialized and unsealed.
func (b *VaultBackend) Available(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	health, err := b.client.Sys().HealthWithContext(ctx)
	if err != nil {
		b.log.Debug("Vault health check failed", "err", err)
		return false
	}
	return health.Initialized && !health.Sealed
}

func (b *VaultBackend) Name() string {
	return "vault-" + b.mount
}

func (b *VaultBackend) LocationURI() string {
	host := strings.TrimPrefix(strings.TrimPrefix(b.client.Address(), "https://"), "http://")
	return "vault://" + host + "/" + path.Join(b.mount, b.baseDir)
}

func (b *VaultBackend) secretPath(key string) string {
	return path.Join(b.baseDir, key)
}
