package fhevm

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ruteri/fhevm-instance-bootstrap/chain"
	"github.com/ruteri/fhevm-instance-bootstrap/fhevmmock"
	"github.com/ruteri/fhevm-instance-bootstrap/interfaces"
	"github.com/ruteri/fhevm-instance-bootstrap/keycache"
	"github.com/ruteri/fhevm-instance-bootstrap/metrics"
	"github.com/ruteri/fhevm-instance-bootstrap/sdk"
)

// DefaultFallbackNetwork is the network endpoint of a remote instance when the
// connection did not name one.
const DefaultFallbackNetwork = "https://ethereum-sepolia-rpc.publicnode.com"

// Acquisition paths, as reported in metrics.
const (
	PathMock   = "mock"
	PathRemote = "remote"
)

// Options configures an Acquirer. Zero values select the defaults.
type Options struct {
	// Bootstrapper defaults to sdk.Default(), looked up on every acquisition.
	Bootstrapper *sdk.Bootstrapper

	// MockFactory defaults to an in-process fhevmmock.Factory.
	MockFactory interfaces.MockFactory

	// KeyCache is optional; without it nothing is cached.
	KeyCache *keycache.Manager

	Metrics *metrics.Metrics
	Log     *slog.Logger

	// FallbackNetwork defaults to DefaultFallbackNetwork.
	FallbackNetwork string
}

// Params describes one acquisition.
type Params struct {
	Connection interfaces.Connection

	// MockChains is merged over the built-in local chain entry.
	MockChains interfaces.MockChains

	// OnStatusChange is optional.
	OnStatusChange func(sdk.Status)
}

// Acquirer creates instances for chain connections.
type Acquirer struct {
	bootstrapper    *sdk.Bootstrapper
	mockFactory     interfaces.MockFactory
	keyCache        *keycache.Manager
	metrics         *metrics.Metrics
	log             *slog.Logger
	fallbackNetwork string
}

func NewAcquirer(opts Options) *Acquirer {
	log := opts.Log
	if log == nil {
		log = slog.Default()
	}

	mockFactory := opts.MockFactory
	if mockFactory == nil {
		mockFactory = fhevmmock.NewFactory(log)
	}

	fallbackNetwork := opts.FallbackNetwork
	if fallbackNetwork == "" {
		fallbackNetwork = DefaultFallbackNetwork
	}

	return &Acquirer{
		bootstrapper:    opts.Bootstrapper,
		mockFactory:     mockFactory,
		keyCache:        opts.KeyCache,
		metrics:         opts.Metrics,
		log:             log,
		fallbackNetwork: fallbackNetwork,
	}
}

var (
	defaultMu       sync.Mutex
	defaultAcquirer *Acquirer
)

// Default returns the process-wide acquirer used by CreateInstance.
func Default() *Acquirer {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	if defaultAcquirer == nil {
		defaultAcquirer = NewAcquirer(Options{})
	}
	return defaultAcquirer
}

// SetDefault replaces the process-wide acquirer.
func SetDefault(a *Acquirer) {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	defaultAcquirer = a
}

// CreateInstance acquires an instance with the process-wide acquirer.
func CreateInstance(ctx context.Context, p Params) (interfaces.Instance, error) {
	return Default().Acquire(ctx, p)
}

// Acquire resolves the environment behind p.Connection and returns a mock or
// remote-backed instance for it.
func (a *Acquirer) Acquire(ctx context.Context, p Params) (interfaces.Instance, error) {
	start := time.Now()

	tracker := sdk.NewTracker(func(s sdk.Status) {
		a.log.Debug("Acquisition status", slog.String("status", s.String()))
		a.metrics.StatusTransition(s.String())
		if p.OnStatusChange != nil {
			p.OnStatusChange(s)
		}
	})

	instance, path, err := a.acquire(ctx, p, tracker)
	a.metrics.ObserveAcquisition(path, outcome(err), time.Since(start))
	if err != nil {
		if errors.Is(err, interfaces.ErrCancelled) {
			a.log.Info("Acquisition cancelled", slog.String("path", path))
		} else {
			a.log.Error("Acquisition failed", slog.String("path", path), "err", err)
		}
		return nil, err
	}
	return instance, nil
}

func (a *Acquirer) acquire(ctx context.Context, p Params, tracker *sdk.Tracker) (interfaces.Instance, string, error) {
	res, err := chain.Resolve(ctx, p.Connection, p.MockChains)
	if err != nil {
		return nil, PathRemote, err
	}
	a.log.Debug("Resolved connection",
		slog.Bool("mock", res.IsMock),
		slog.Uint64("chainId", res.ChainID),
		slog.String("rpc", res.RPCURL))

	if err := checkpoint(ctx); err != nil {
		return nil, PathRemote, err
	}

	if res.IsMock {
		metadata, err := chain.ProbeMockNode(ctx, res.RPCURL)
		if err != nil {
			return nil, PathMock, err
		}
		if metadata != nil {
			instance, err := a.buildMock(ctx, res, *metadata, tracker)
			return instance, PathMock, err
		}
		a.log.Info("Registered mock chain without metadata extension, using remote SDK",
			slog.Uint64("chainId", res.ChainID), slog.String("rpc", res.RPCURL))
	}

	instance, err := a.buildRemote(ctx, res, tracker)
	return instance, PathRemote, err
}

func (a *Acquirer) buildMock(ctx context.Context, res *chain.Resolution, metadata interfaces.NodeMetadata, tracker *sdk.Tracker) (interfaces.Instance, error) {
	tracker.Emit(sdk.StatusCreating)

	instance, err := a.mockFactory.CreateMockInstance(ctx, interfaces.MockParams{
		RPCURL:   res.RPCURL,
		ChainID:  res.ChainID,
		Metadata: metadata,
	})
	if err != nil {
		if ctx.Err() != nil {
			return nil, interfaces.Cancelled(err)
		}
		return nil, interfaces.NewError(interfaces.KindConfiguration, "MOCK_INSTANCE_ERROR", "failed to create mock instance", err)
	}

	if err := checkpoint(ctx); err != nil {
		return nil, err
	}
	return instance, nil
}

func (a *Acquirer) buildRemote(ctx context.Context, res *chain.Resolution, tracker *sdk.Tracker) (interfaces.Instance, error) {
	bootstrapper := a.bootstrapper
	if bootstrapper == nil {
		bootstrapper = sdk.Default()
	}

	module, err := bootstrapper.Ensure(ctx, tracker)
	if err != nil {
		return nil, err
	}

	defaults := module.DefaultConfig()
	aclAddress := defaults.ACLContractAddress
	if !IsAddress(aclAddress) {
		return nil, interfaces.NewError(interfaces.KindConfiguration, "INVALID_ACL_ADDRESS", "invalid ACL address: "+aclAddress, nil)
	}

	cached := a.keyCache.Get(ctx, aclAddress)
	if err := checkpoint(ctx); err != nil {
		return nil, err
	}

	config := defaults
	config.Network = res.RPCURL
	if config.Network == "" {
		config.Network = a.fallbackNetwork
	}
	if cached.PublicKey != nil {
		config.PublicKey = cached.PublicKey
	}
	if cached.PublicParams != nil {
		config.PublicParams = cached.PublicParams
	}

	a.log.Debug("Creating remote instance",
		slog.String("network", config.Network),
		slog.String("acl", config.ACLContractAddress),
		slog.String("kms", config.KMSContractAddress),
		slog.Bool("cachedPublicKey", cached.PublicKey != nil),
		slog.Bool("cachedPublicParams", cached.PublicParams != nil))

	tracker.Emit(sdk.StatusCreating)
	instance, err := module.CreateInstance(ctx, config)
	if err != nil {
		if ctx.Err() != nil {
			return nil, interfaces.Cancelled(err)
		}
		return nil, interfaces.NewError(interfaces.KindRemoteRejection, "CREATE_INSTANCE_ERROR", "failed to create instance", err)
	}

	// the key material is saved even when the acquisition was cancelled meanwhile
	a.saveKeyMaterial(context.WithoutCancel(ctx), aclAddress, instance)

	if err := checkpoint(ctx); err != nil {
		return nil, err
	}
	return instance, nil
}

func (a *Acquirer) saveKeyMaterial(ctx context.Context, aclAddress string, instance interfaces.Instance) {
	publicKey, err := instance.PublicKey()
	if err != nil {
		a.log.Warn("Failed to export public key", slog.String("acl", aclAddress), "err", err)
		return
	}
	publicParams, err := instance.PublicParams(interfaces.DefaultPublicParamsSize)
	if err != nil {
		a.log.Warn("Failed to export public params", slog.String("acl", aclAddress), "err", err)
		return
	}
	a.keyCache.Set(ctx, aclAddress, publicKey, publicParams)
}

func checkpoint(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return interfaces.Cancelled(err)
	}
	return nil
}

func outcome(err error) string {
	switch {
	case err == nil:
		return metrics.OutcomeSuccess
	case errors.Is(err, interfaces.ErrCancelled):
		return metrics.OutcomeCancelled
	default:
		return metrics.OutcomeError
	}
}

// IsAddress reports whether s is a 0x-prefixed hex address. Mixed-case
// addresses must carry a valid EIP-55 checksum.
func IsAddress(s string) bool {
	if !strings.HasPrefix(s, "0x") || !common.IsHexAddress(s) {
		return false
	}
	body := s[2:]
	if body == strings.ToLower(body) || body == strings.ToUpper(body) {
		return true
	}
	return common.HexToAddress(s).Hex() == s
}
