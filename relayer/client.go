package relayer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/ruteri/fhevm-instance-bootstrap/api"
)

// maxDownloadSize bounds key blobs fetched from the relayer.
const maxDownloadSize = 64 * 1024 * 1024

// Client talks to a relayer over HTTP. It implements api.RelayerProvider.
type Client struct {
	// BaseURL is the relayer URL without a trailing slash.
	BaseURL string

	HTTPClient *http.Client
}

// NewClient creates a client for baseURL. A nil httpClient uses http.DefaultClient.
func NewClient(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{BaseURL: strings.TrimRight(baseURL, "/"), HTTPClient: httpClient}
}

// KeyURL fetches the key material locations.
func (c *Client) KeyURL(ctx context.Context) (*api.KeyURLResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+api.KeyURLPath, nil)
	if err != nil {
		return nil, err
	}

	var parsed api.KeyURLResponse
	if err := c.doJSON(req, "keyurl", &parsed); err != nil {
		return nil, err
	}
	return &parsed, nil
}

// Download fetches a key blob.
func (c *Client) Download(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("could not request %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, responseError("download", resp)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxDownloadSize+1))
	if err != nil {
		return nil, fmt.Errorf("could not read %s: %w", url, err)
	}
	if len(data) > maxDownloadSize {
		return nil, fmt.Errorf("%s exceeds %d bytes", url, maxDownloadSize)
	}
	return data, nil
}

// InputProof submits a ciphertext for verification.
func (c *Client) InputProof(ctx context.Context, proofReq *api.InputProofRequest) (*api.InputProofResponse, error) {
	body, err := json.Marshal(proofReq)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+api.InputProofPath, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	var parsed api.InputProofResponse
	if err := c.doJSON(req, "input-proof", &parsed); err != nil {
		return nil, err
	}
	if parsed.Status != api.StatusSucceeded {
		return nil, fmt.Errorf("input-proof endpoint returned status %q", parsed.Status)
	}
	return &parsed, nil
}

func (c *Client) doJSON(req *http.Request, endpoint string, out interface{}) error {
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("could not request %s endpoint: %w", endpoint, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return responseError(endpoint, resp)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("could not parse %s response: %w", endpoint, err)
	}
	return nil
}

func responseError(endpoint string, resp *http.Response) error {
	bodyBytes, err := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if err != nil || len(bodyBytes) == 0 {
		return fmt.Errorf("%s endpoint returned non-200 response: %d", endpoint, resp.StatusCode)
	}

	var parsed api.ErrorResponse
	if json.Unmarshal(bodyBytes, &parsed) == nil && parsed.Message != "" {
		return fmt.Errorf("%s endpoint returned error %d: %s", endpoint, resp.StatusCode, parsed.Message)
	}
	return fmt.Errorf("%s endpoint returned error %d: %s", endpoint, resp.StatusCode, strings.TrimSpace(string(bodyBytes)))
}
