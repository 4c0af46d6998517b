package sdk

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/ruteri/fhevm-instance-bootstrap/interfaces"
	"golang.org/x/sync/singleflight"
)

// ErrSDKNotConfigured is returned by a bootstrapper without an SDK.
var ErrSDKNotConfigured = errors.New("no sdk configured")

// Bootstrapper holds the loaded SDK module and its initialization flag.
// A process normally uses one instance, see Default.
type Bootstrapper struct {
	sdk interfaces.SDK
	log *slog.Logger

	mu           sync.Mutex
	module       interfaces.Module
	initialized  bool
	initializing chan struct{} // closed when the running Initialize returns

	loads singleflight.Group
}

// NewBootstrapper creates a bootstrapper loading modules from sdk.
func NewBootstrapper(sdk interfaces.SDK, log *slog.Logger) *Bootstrapper {
	if log == nil {
		log = slog.Default()
	}
	return &Bootstrapper{sdk: sdk, log: log}
}

var (
	defaultMu           sync.Mutex
	defaultBootstrapper *Bootstrapper
)

// Default returns the process-wide bootstrapper. Until SetDefault is called
// it has no SDK and every load fails.
func Default() *Bootstrapper {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	if defaultBootstrapper == nil {
		defaultBootstrapper = NewBootstrapper(nil, nil)
	}
	return defaultBootstrapper
}

// SetDefault replaces the process-wide bootstrapper.
func SetDefault(b *Bootstrapper) {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	defaultBootstrapper = b
}

// Load returns the SDK module, loading it on first use.
// Concurrent callers share one load. A failed load is retried by the next call.
func (b *Bootstrapper) Load(ctx context.Context) (interfaces.Module, error) {
	b.mu.Lock()
	module := b.module
	b.mu.Unlock()
	if module != nil {
		return module, nil
	}

	if b.sdk == nil {
		return nil, interfaces.NewError(interfaces.KindBootstrap, "SDK_LOAD_ERROR", "failed to load sdk", ErrSDKNotConfigured)
	}

	ch := b.loads.DoChan("load", func() (interface{}, error) {
		// the shared load outlives any single caller
		loaded, err := b.sdk.Load(context.WithoutCancel(ctx))
		if err != nil {
			return nil, err
		}
		if loaded == nil {
			return nil, errors.New("sdk returned no module")
		}

		b.mu.Lock()
		b.module = loaded
		b.mu.Unlock()
		b.log.Debug("SDK module loaded")
		return loaded, nil
	})

	select {
	case <-ctx.Done():
		return nil, interfaces.Cancelled(ctx.Err())
	case res := <-ch:
		if res.Err != nil {
			b.log.Error("Failed to load SDK module", "err", res.Err)
			return nil, interfaces.NewError(interfaces.KindBootstrap, "SDK_LOAD_ERROR", "failed to load sdk", res.Err)
		}
		return res.Val.(interfaces.Module), nil
	}
}

// Ensure loads and initializes the SDK module, emitting the bootstrap statuses to tracker.
// Initialization happens once per bootstrapper; later calls skip its statuses.
func (b *Bootstrapper) Ensure(ctx context.Context, tracker *Tracker) (interfaces.Module, error) {
	tracker.Emit(StatusLoading)
	module, err := b.Load(ctx)
	if err != nil {
		return nil, err
	}
	tracker.Emit(StatusLoaded)

	if err := ctx.Err(); err != nil {
		return nil, interfaces.Cancelled(err)
	}

	if err := b.initialize(ctx, module, tracker); err != nil {
		return nil, err
	}

	if err := ctx.Err(); err != nil {
		return nil, interfaces.Cancelled(err)
	}
	return module, nil
}

// initialize runs Module.Initialize once. Concurrent callers wait for the one in
// flight and retry if it fails. Neither the call nor the notifications hold b.mu.
func (b *Bootstrapper) initialize(ctx context.Context, module interfaces.Module, tracker *Tracker) error {
	emitted := false
	for {
		b.mu.Lock()
		if b.initialized {
			b.mu.Unlock()
			if emitted {
				tracker.Emit(StatusInitialized)
			}
			return nil
		}
		inflight := b.initializing
		if inflight == nil {
			b.initializing = make(chan struct{})
			inflight = b.initializing
			b.mu.Unlock()
			if !emitted {
				tracker.Emit(StatusInitializing)
			}
			return b.runInitialize(ctx, module, tracker, inflight)
		}
		b.mu.Unlock()

		if !emitted {
			tracker.Emit(StatusInitializing)
			emitted = true
		}
		select {
		case <-ctx.Done():
			return interfaces.Cancelled(ctx.Err())
		case <-inflight:
		}
	}
}

func (b *Bootstrapper) runInitialize(ctx context.Context, module interfaces.Module, tracker *Tracker, done chan struct{}) error {
	ok, err := module.Initialize(ctx)

	b.mu.Lock()
	if err == nil && ok {
		b.initialized = true
	}
	if b.initializing == done {
		b.initializing = nil
	}
	b.mu.Unlock()
	close(done)

	if err != nil && ctx.Err() != nil {
		return interfaces.Cancelled(err)
	}
	if err != nil {
		b.log.Error("SDK initialization failed", "err", err)
		return interfaces.NewError(interfaces.KindBootstrap, "SDK_INIT_ERROR", "sdk initialization failed", err)
	}
	if !ok {
		b.log.Error("SDK initialization returned false")
		return interfaces.NewError(interfaces.KindBootstrap, "SDK_INIT_ERROR", "sdk initialization returned false", nil)
	}

	tracker.Emit(StatusInitialized)
	return nil
}

// Initialized reports whether the module has been initialized.
func (b *Bootstrapper) Initialized() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.initialized
}

// Reset forgets the loaded module and the initialization flag. Intended for tests.
func (b *Bootstrapper) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.module = nil
	b.initialized = false
	b.initializing = nil
	b.loads.Forget("load")
}
