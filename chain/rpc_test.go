package chain

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
)

// fakeNode is a minimal JSON-RPC server answering from a method table.
type fakeNode struct {
	mu      sync.Mutex
	results map[string]interface{}
	errors  map[string]string
	calls   []string
}

func newFakeNode(t *testing.T, results map[string]interface{}) (*fakeNode, *httptest.Server) {
	t.Helper()
	node := &fakeNode{results: results, errors: map[string]string{}}
	srv := httptest.NewServer(node)
	t.Cleanup(srv.Close)
	return node, srv
}

func (n *fakeNode) ServeHTTP(w http.ResponseWriter, r *http.Request) {
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
	result, hasResult := n.results[req.Method]
	rpcErr, hasErr := n.errors[req.Method]
	n.mu.Unlock()

	resp := map[string]interface{}{"jsonrpc": "2.0", "id": req.ID}
	switch {
	case hasErr:
		resp["error"] = map[string]interface{}{"code": -32000, "message": rpcErr}
	case hasResult:
		resp["result"] = result
	default:
		resp["error"] = map[string]interface{}{"code": -32601, "message": "the method " + req.Method + " does not exist/is not available"}
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)
}

func (n *fakeNode) Calls() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.calls...)
}

// staticProvider answers CallContext from a method table without a transport.
type staticProvider struct {
	results map[string]string
	err     error
}

func (p *staticProvider) CallContext(ctx context.Context, result interface{}, method string, args ...interface{}) error {
	if p.err != nil {
		return p.err
	}
	raw, found := p.results[method]
	if !found {
		return &methodNotFound{method}
	}
	return json.Unmarshal([]byte(raw), result)
}

type methodNotFound struct{ method string }

func (e *methodNotFound) Error() string { return "method not found: " + e.method }

func hardhatMetadata() map[string]interface{} {
	return map[string]interface{}{
		"ACLAddress":           "0x50157CFfD6bBFA2DECe204a89ec419c23ef5755D",
		"InputVerifierAddress": "0x901F8942346f7AB3a01F6D7613119Bca447Bb030",
		"KMSVerifierAddress":   "0x1364cBBf2cDF5032C47d8226a6f6FBD2AFCDacAC",
	}
}
