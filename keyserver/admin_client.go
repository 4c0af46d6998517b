package keyserver

import (
	"bytes"
	"context"
	"crypto/ecdsa"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/ruteri/fhevm-instance-bootstrap/kms"
)

// AdminClient submits key shares to a locked key server.
type AdminClient struct {
	baseURL    string
	adminID    string
	privateKey *ecdsa.PrivateKey
	httpClient *http.Client
}

// NewAdminClient creates a client for the admin API under baseURL.
// privateKey signs submitted shares and may be nil for status queries.
func NewAdminClient(baseURL, adminID string, privateKey *ecdsa.PrivateKey) *AdminClient {
	return &AdminClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		adminID:    adminID,
		privateKey: privateKey,
		httpClient: http.DefaultClient,
	}
}

// Status returns the unlock state of the key server.
func (c *AdminClient) Status(ctx context.Context) (*AdminStatus, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/admin/status", nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("status request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("status request returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var status AdminStatus
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		return nil, fmt.Errorf("could not parse status: %w", err)
	}
	return &status, nil
}

// SubmitShare signs and submits a share. It reports whether the key server unlocked.
func (c *AdminClient) SubmitShare(ctx context.Context, shareIndex int, share []byte) (bool, error) {
	if c.privateKey == nil {
		return false, fmt.Errorf("admin private key required to submit shares")
	}

	signature, err := kms.SignShare(shareIndex, share, c.privateKey)
	if err != nil {
		return false, fmt.Errorf("failed to sign share: %w", err)
	}

	body, err := json.Marshal(ShareSubmission{
		ShareIndex: shareIndex,
		Share:      base64.StdEncoding.EncodeToString(share),
		Signature:  base64.StdEncoding.EncodeToString(signature),
	})
	if err != nil {
		return false, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/admin/share", bytes.NewReader(body))
	if err != nil {
		return false, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(AdminIDHeader, c.adminID)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return false, fmt.Errorf("share submission failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return false, fmt.Errorf("share submission returned %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	var result struct {
		Unlocked bool `json:"unlocked"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return false, fmt.Errorf("could not parse share submission response: %w", err)
	}
	return result.Unlocked, nil
}
