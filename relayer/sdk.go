package relayer

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/ruteri/fhevm-instance-bootstrap/api"
	"github.com/ruteri/fhevm-instance-bootstrap/interfaces"
)

// SDK loads relayer-backed modules. It implements interfaces.SDK.
type SDK struct {
	relayerURL string
	httpClient *http.Client
	log        *slog.Logger
}

// NewSDK creates an SDK for relayerURL, or DefaultRelayerURL when empty.
func NewSDK(relayerURL string, httpClient *http.Client, log *slog.Logger) *SDK {
	if relayerURL == "" {
		relayerURL = DefaultRelayerURL
	}
	if log == nil {
		log = slog.Default()
	}
	return &SDK{relayerURL: relayerURL, httpClient: httpClient, log: log}
}

// Load validates the relayer URL and returns a module using it.
func (s *SDK) Load(ctx context.Context) (interfaces.Module, error) {
	if err := validateRelayerURL(s.relayerURL); err != nil {
		return nil, err
	}

	defaults := SepoliaConfig()
	defaults.RelayerURL = s.relayerURL

	s.log.Debug("Loaded relayer SDK", slog.String("relayer", s.relayerURL))
	return &Module{
		defaults:   defaults,
		client:     NewClient(s.relayerURL, s.httpClient),
		httpClient: s.httpClient,
		log:        s.log,
	}, nil
}

// Module is a loaded relayer SDK.
type Module struct {
	defaults   interfaces.InstanceConfig
	client     api.RelayerProvider
	httpClient *http.Client
	log        *slog.Logger
}

// NewModule creates a module over an existing relayer provider.
func NewModule(defaults interfaces.InstanceConfig, client api.RelayerProvider, log *slog.Logger) *Module {
	if log == nil {
		log = slog.Default()
	}
	return &Module{defaults: defaults, client: client, log: log}
}

// Initialize checks that the relayer serves key material.
func (m *Module) Initialize(ctx context.Context) (bool, error) {
	resp, err := m.client.KeyURL(ctx)
	if err != nil {
		return false, err
	}
	if resp.Status != api.StatusSucceeded {
		m.log.Warn("Relayer key url not available", slog.String("status", resp.Status))
		return false, nil
	}
	return true, nil
}

// DefaultConfig returns the module's network defaults.
func (m *Module) DefaultConfig() interfaces.InstanceConfig {
	return m.defaults
}

// CreateInstance builds an instance for config, downloading key material not present in it.
func (m *Module) CreateInstance(ctx context.Context, config interfaces.InstanceConfig) (interfaces.Instance, error) {
	client := m.client
	if config.RelayerURL != "" && config.RelayerURL != m.defaults.RelayerURL {
		if err := validateRelayerURL(config.RelayerURL); err != nil {
			return nil, err
		}
		client = NewClient(config.RelayerURL, m.httpClient)
	}

	return newInstance(ctx, client, config, m.log)
}

func validateRelayerURL(relayerURL string) error {
	u, err := url.Parse(relayerURL)
	if err != nil {
		return fmt.Errorf("invalid relayer url %q: %w", relayerURL, err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("invalid relayer url %q: expected http(s)://host", relayerURL)
	}
	return nil
}
