package fhevm

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/ruteri/fhevm-instance-bootstrap/interfaces"
	"github.com/ruteri/fhevm-instance-bootstrap/metrics"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// rpcNode answers JSON-RPC calls from a method table and records them.
type rpcNode struct {
	mu      sync.Mutex
	results map[string]interface{}
	calls   []string
}

func newRPCNode(t *testing.T, results map[string]interface{}) (*rpcNode, *httptest.Server) {
	t.Helper()
	node := &rpcNode{results: results}
	srv := httptest.NewServer(node)
	t.Cleanup(srv.Close)
	return node, srv
}

func (n *rpcNode) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ID     json.RawMessage `json:"id"`
		Method string          `json:"method"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	n.mu.Lock()
	n.calls = append(n.calls, req.Method)
	result, found := n.results[req.Method]
	n.mu.Unlock()

	resp := map[string]interface{}{"jsonrpc": "2.0", "id": req.ID}
	if found {
		resp["result"] = result
	} else {
		resp["error"] = map[string]interface{}{"code": -32601, "message": "method not found"}
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

func (n *rpcNode) Calls() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.calls...)
}

// chainIDProvider is a provider connection reporting a fixed chain id.
type chainIDProvider uint64

func (p chainIDProvider) CallContext(ctx context.Context, result interface{}, method string, args ...interface{}) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if method != "eth_chainId" {
		return fmt.Errorf("method %s not supported", method)
	}
	return json.Unmarshal([]byte(fmt.Sprintf(`"0x%x"`, uint64(p))), result)
}

var _ interfaces.Provider = chainIDProvider(0)

func hardhatNode() map[string]interface{} {
	return map[string]interface{}{
		"net_version":        "31337",
		"web3_clientVersion": "HardhatNetwork/2.22.19/@nomicfoundation/edr/0.8.0",
		"fhevm_relayer_metadata": map[string]interface{}{
			"ACLAddress":           "0x50157CFfD6bBFA2DECe204a89ec419c23ef5755D",
			"InputVerifierAddress": "0x901F8942346f7AB3a01F6D7613119Bca447Bb030",
			"KMSVerifierAddress":   "0x1364cBBf2cDF5032C47d8226a6f6FBD2AFCDacAC",
		},
	}
}

// counterValue reads a counter from the registry of m. labels alternate names and values.
func counterValue(t *testing.T, m *metrics.Metrics, name string, labels ...string) float64 {
	t.Helper()
	families, err := m.Registry().Gather()
	require.NoError(t, err)

	want := map[string]string{}
	for i := 0; i+1 < len(labels); i += 2 {
		want[labels[i]] = labels[i+1]
	}

	for _, family := range families {
		if family.GetName() != name {
			continue
		}
		for _, metric := range family.GetMetric() {
			matched := 0
			for _, pair := range metric.GetLabel() {
				if want[pair.GetName()] == pair.GetValue() {
					matched++
				}
			}
			if matched == len(want) {
				return metric.GetCounter().GetValue()
			}
		}
	}
	return 0
}
