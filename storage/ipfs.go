package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net"
	"path"
	"strings"
	"time"

	shell "github.com/ipfs/go-ipfs-api"
	"github.com/ruteri/fhevm-instance-bootstrap/interfaces"
)

// IPFSBackend keeps key records in the mutable file system (MFS) of an IPFS node,
// so a record keeps its path across updates.
type IPFSBackend struct {
	shell   *shell.Shell
	apiAddr string
	root    string
	timeout time.Duration
	log     *slog.Logger
}

// NewIPFSBackend connects to the node API at host:port and stores records below root.
func NewIPFSBackend(host, port, root string, timeout time.Duration, log *slog.Logger) (*IPFSBackend, error) {
	apiAddr := net.JoinHostPort(host, port)

	sh := shell.NewShell(apiAddr)
	sh.SetTimeout(timeout)

	return &IPFSBackend{
		shell:   sh,
		apiAddr: apiAddr,
		root:    "/" + strings.Trim(root, "/"),
		timeout: timeout,
		log:     log,
	}, nil
}

// Fetch reads the MFS file holding key.
func (b *IPFSBackend) Fetch(ctx context.Context, key string) ([]byte, error) {
	if err := validateKey(key); err != nil {
		return nil, err
	}
	if !b.shell.IsUp() {
		return nil, interfaces.ErrBackendUnavailable
	}

	reader, err := b.shell.FilesRead(ctx, b.mfsPath(key))
	if err != nil {
		if strings.Contains(err.Error(), "does not exist") {
			return nil, interfaces.ErrContentNotFound
		}
		b.log.Error("IPFS read failed", "node", b.apiAddr, "key", key, "err", err)
		return nil, fmt.Errorf("ipfs read %s: %w", key, err)
	}
	defer reader.Close()

	return io.ReadAll(reader)
}

// Store replaces the MFS file holding key, creating parent directories.
func (b *IPFSBackend) Store(ctx context.Context, key string, data []byte) error {
	if err := validateKey(key); err != nil {
		return err
	}
	if !b.shell.IsUp() {
		return interfaces.ErrBackendUnavailable
	}

	err := b.shell.FilesWrite(ctx, b.mfsPath(key), bytes.NewReader(data),
		shell.FilesWrite.Create(true),
		shell.FilesWrite.Parents(true),
		shell.FilesWrite.Truncate(true))
	if err != nil {
		return fmt.Errorf("ipfs write %s: %w", key, err)
	}
	return nil
}

func (b *IPFSBackend) Available(ctx context.Context) bool {
	return b.shell.IsUp()
}

func (b *IPFSBackend) Name() string {
	return "ipfs-" + b.apiAddr
}

func (b *IPFSBackend) LocationURI() string {
	return fmt.Sprintf("ipfs://%s%s?timeout=%s", b.apiAddr, b.root, b.timeout)
}

func (b *IPFSBackend) mfsPath(key string) string {
	return path.Join(b.root, key)
}
