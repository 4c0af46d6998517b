package keyserver

import (
	"bytes"
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"encoding/base64"
	"encoding/json"
	"encoding/pem"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/ruteri/fhevm-instance-bootstrap/api"
	"github.com/ruteri/fhevm-instance-bootstrap/cryptoutils"
	"github.com/ruteri/fhevm-instance-bootstrap/interfaces"
	"github.com/ruteri/fhevm-instance-bootstrap/kms"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	testACL      = common.HexToAddress("0x687820221192C5B662b25367F70076A37bc79b6c")
	testContract = common.HexToAddress("0x5FbDB2315678afecb367f032d93F642f64180aa3")
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testKMS(t *testing.T) *kms.SimpleKMS {
	t.Helper()
	k, err := kms.NewSimpleKMS(bytes.Repeat([]byte{0x42}, 32))
	require.NoError(t, err)
	return k
}

func newTestServer(t *testing.T, k interfaces.KMS, admin *AdminHandler) (*Server, *httptest.Server) {
	t.Helper()
	cfg := &api.HTTPServerConfig{
		Log:                      testLogger(),
		ACLAddress:               testACL,
		DrainDuration:            time.Millisecond,
		GracefulShutdownDuration: time.Second,
	}
	srv, err := New(cfg, NewHandler(k, testACL, "", testLogger()), admin)
	require.NoError(t, err)

	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return srv, ts
}

func get(t *testing.T, url string) (int, []byte) {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, body
}

func TestKeyURL(t *testing.T) {
	k := testKMS(t)
	_, ts := newTestServer(t, k, nil)

	code, body := get(t, ts.URL+api.KeyURLPath)
	require.Equal(t, http.StatusOK, code)

	var resp api.KeyURLResponse
	require.NoError(t, json.Unmarshal(body, &resp))
	assert.Equal(t, api.StatusSucceeded, resp.Status)

	pkRef, found := resp.Response.PublicKeyRef()
	require.True(t, found)
	assert.True(t, strings.HasPrefix(pkRef.URLs[0], ts.URL+api.PublicKeyPath))

	code, pk := get(t, pkRef.URLs[0])
	require.Equal(t, http.StatusOK, code)
	expected, err := k.PublicKey(testACL)
	require.NoError(t, err)
	assert.Equal(t, expected, pk)

	crsRef, found := resp.Response.PublicParamsRef(interfaces.DefaultPublicParamsSize)
	require.True(t, found)
	code, params := get(t, crsRef.URLs[0])
	require.Equal(t, http.StatusOK, code)
	size, err := kms.PublicParamsSize(params)
	require.NoError(t, err)
	assert.Equal(t, interfaces.DefaultPublicParamsSize, size)
}

func TestKeyEndpoints_Errors(t *testing.T) {
	_, ts := newTestServer(t, testKMS(t), nil)

	tests := []struct {
		name string
		path string
		code int
	}{
		{"invalid acl", api.PublicKeyPath + "?acl=0x1234", http.StatusBadRequest},
		{"unsupported size", api.PublicParamsPath + "/4096", http.StatusNotFound},
		{"non numeric size", api.PublicParamsPath + "/big", http.StatusBadRequest},
		{"other domain", api.PublicKeyPath + "?acl=" + testContract.Hex(), http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, _ := get(t, ts.URL+tt.path)
			assert.Equal(t, tt.code, code)
		})
	}
}

func postInputProof(t *testing.T, url string, req api.InputProofRequest) (int, []byte) {
	t.Helper()
	body, err := json.Marshal(req)
	require.NoError(t, err)
	resp, err := http.Post(url+api.InputProofPath, "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	out, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, out
}

func TestInputProof(t *testing.T) {
	k := testKMS(t)
	_, ts := newTestServer(t, k, nil)

	pk, err := k.PublicKey(testACL)
	require.NoError(t, err)
	ct, err := cryptoutils.EncryptInput(pk, uint256.NewInt(500), testContract, testACL, 11155111)
	require.NoError(t, err)

	code, body := postInputProof(t, ts.URL, api.InputProofRequest{
		ContractAddress:                 testContract,
		ContractChainID:                 11155111,
		CiphertextWithInputVerification: ct.Data,
	})
	require.Equal(t, http.StatusOK, code, string(body))

	var resp api.InputProofResponse
	require.NoError(t, json.Unmarshal(body, &resp))
	require.Equal(t, []common.Hash{ct.Handle}, resp.Response.Handles)
	require.Len(t, resp.Response.Signatures, 1)

	verifier, err := k.VerifierAddress(testACL)
	require.NoError(t, err)
	proof := &cryptoutils.InputProof{
		Handles:    resp.Response.Handles,
		Signatures: [][]byte{resp.Response.Signatures[0]},
		ExtraData:  ct.Data,
	}
	assert.NoError(t, cryptoutils.VerifyInputProof(proof, testContract, testACL, 11155111, []common.Address{verifier}))
}

func TestInputProof_Rejected(t *testing.T) {
	k := testKMS(t)
	_, ts := newTestServer(t, k, nil)

	pk, err := k.PublicKey(testACL)
	require.NoError(t, err)
	ct, err := cryptoutils.EncryptInput(pk, uint256.NewInt(1), testContract, testACL, 11155111)
	require.NoError(t, err)

	tests := []struct {
		name string
		req  api.InputProofRequest
	}{
		{"missing ciphertext", api.InputProofRequest{ContractAddress: testContract, ContractChainID: 11155111}},
		{"missing chain id", api.InputProofRequest{ContractAddress: testContract, CiphertextWithInputVerification: ct.Data}},
		{"wrong contract", api.InputProofRequest{ContractAddress: testACL, ContractChainID: 11155111, CiphertextWithInputVerification: ct.Data}},
		{"wrong chain", api.InputProofRequest{ContractAddress: testContract, ContractChainID: 1, CiphertextWithInputVerification: ct.Data}},
		{"garbage", api.InputProofRequest{ContractAddress: testContract, ContractChainID: 11155111, CiphertextWithInputVerification: []byte{1, 2, 3}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, body := postInputProof(t, ts.URL, tt.req)
			assert.Equal(t, http.StatusBadRequest, code)

			var errResp api.ErrorResponse
			require.NoError(t, json.Unmarshal(body, &errResp))
			assert.Equal(t, api.StatusFailed, errResp.Status)
			assert.NotEmpty(t, errResp.Message)
		})
	}
}

func TestHealthAndDrain(t *testing.T) {
	_, ts := newTestServer(t, testKMS(t), nil)

	steps := []struct {
		path string
		code int
		body string
	}{
		{"/livez", http.StatusOK, `{"status":"alive"}`},
		{"/readyz", http.StatusOK, `{"status":"ready"}`},
		{"/drain", http.StatusOK, `{"status":"draining"}`},
		{"/drain", http.StatusOK, `{"status":"already draining"}`},
		{"/readyz", http.StatusServiceUnavailable, `{"status":"not ready"}`},
		{"/undrain", http.StatusOK, `{"status":"ready"}`},
		{"/undrain", http.StatusOK, `{"status":"already ready"}`},
		{"/readyz", http.StatusOK, `{"status":"ready"}`},
	}

	for _, step := range steps {
		code, body := get(t, ts.URL+step.path)
		assert.Equal(t, step.code, code, step.path)
		assert.JSONEq(t, step.body, string(body), step.path)
	}
}

func generateAdminKeyPairs(t *testing.T, n int) (map[string]*ecdsa.PrivateKey, map[string][]byte) {
	t.Helper()
	privKeys := make(map[string]*ecdsa.PrivateKey, n)
	pubKeys := make(map[string][]byte, n)

	for i := 0; i < n; i++ {
		adminID := fmt.Sprintf("admin%d", i+1)
		privateKey, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
		require.NoError(t, err)
		privKeys[adminID] = privateKey

		pubKeyBytes, err := x509.MarshalPKIXPublicKey(&privateKey.PublicKey)
		require.NoError(t, err)
		pubKeys[adminID] = pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: pubKeyBytes})
	}
	return privKeys, pubKeys
}

func submitShare(t *testing.T, url, adminID string, key *ecdsa.PrivateKey, index int, share []byte) int {
	t.Helper()
	sig, err := kms.SignShare(index, share, key)
	require.NoError(t, err)

	body, err := json.Marshal(ShareSubmission{
		ShareIndex: index,
		Share:      base64.StdEncoding.EncodeToString(share),
		Signature:  base64.StdEncoding.EncodeToString(sig),
	})
	require.NoError(t, err)

	req, err := http.NewRequest(http.MethodPost, url+"/api/admin/share", bytes.NewReader(body))
	require.NoError(t, err)
	req.Header.Set(AdminIDHeader, adminID)

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	return resp.StatusCode
}

func TestAdminUnlock(t *testing.T) {
	privKeys, pubKeys := generateAdminKeyPairs(t, 3)
	ids := []string{"admin1", "admin2", "admin3"}
	config := kms.ShamirConfig{Threshold: 2, AdminPubKeys: [][]byte{pubKeys["admin1"], pubKeys["admin2"], pubKeys["admin3"]}}

	masterKey := bytes.Repeat([]byte{0x07}, 32)
	_, shares, err := kms.NewShamirKMS(masterKey, config)
	require.NoError(t, err)

	locked, err := kms.NewShamirKMSRecovery(config)
	require.NoError(t, err)
	admin := NewAdminHandler(locked, pubKeys, testLogger())
	_, ts := newTestServer(t, locked, admin)

	code, _ := get(t, ts.URL+"/readyz")
	assert.Equal(t, http.StatusServiceUnavailable, code)
	code, _ = get(t, ts.URL+api.PublicKeyPath)
	assert.Equal(t, http.StatusServiceUnavailable, code)

	assert.Equal(t, http.StatusUnauthorized, submitShare(t, ts.URL, "mallory", privKeys[ids[0]], 0, shares[0]))
	// share signed by a different admin than the one claimed
	assert.Equal(t, http.StatusBadRequest, submitShare(t, ts.URL, ids[1], privKeys[ids[0]], 0, shares[0]))

	assert.Equal(t, http.StatusOK, submitShare(t, ts.URL, ids[0], privKeys[ids[0]], 0, shares[0]))
	assert.False(t, admin.IsUnlocked())
	assert.Equal(t, http.StatusOK, submitShare(t, ts.URL, ids[2], privKeys[ids[2]], 2, shares[2]))
	require.True(t, admin.IsUnlocked())

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, admin.WaitForUnlock(ctx))

	code, _ = get(t, ts.URL+"/readyz")
	assert.Equal(t, http.StatusOK, code)

	code, pk := get(t, ts.URL+api.PublicKeyPath)
	require.Equal(t, http.StatusOK, code)
	reference, err := kms.NewSimpleKMS(masterKey)
	require.NoError(t, err)
	expected, err := reference.PublicKey(testACL)
	require.NoError(t, err)
	assert.Equal(t, expected, pk)

	code, body := get(t, ts.URL+"/api/admin/status")
	require.Equal(t, http.StatusOK, code)
	assert.Contains(t, string(body), `"unlocked"`)
}

func TestLoadAdminKeys(t *testing.T) {
	_, pubKeys := generateAdminKeyPairs(t, 2)

	doc, err := json.Marshal(map[string]interface{}{
		"admins": []map[string]string{
			{"id": "admin1", "pubkey": string(pubKeys["admin1"])},
			{"id": "admin2", "pubkey": string(pubKeys["admin2"])},
		},
	})
	require.NoError(t, err)

	loaded, err := LoadAdminKeys(bytes.NewReader(doc))
	require.NoError(t, err)
	assert.Equal(t, pubKeys, loaded)

	for name, bad := range map[string]string{
		"not json":   `{`,
		"bad pem":    `{"admins":[{"id":"a","pubkey":"nope"}]}`,
		"missing id": `{"admins":[{"id":"","pubkey":"nope"}]}`,
	} {
		_, err := LoadAdminKeys(strings.NewReader(bad))
		assert.Error(t, err, name)
	}
}

func TestAdminClient_SealedShares(t *testing.T) {
	privKeys, pubKeys := generateAdminKeyPairs(t, 3)

	byID := make(map[string][]byte, len(pubKeys))
	privByID := make(map[string]*ecdsa.PrivateKey, len(pubKeys))
	var config kms.ShamirConfig
	config.Threshold = 2
	for name, pub := range pubKeys {
		id := AdminID(pub)
		byID[id] = pub
		privByID[id] = privKeys[name]
		config.AdminPubKeys = append(config.AdminPubKeys, pub)
	}

	shares, err := kms.SplitMasterKey(bytes.Repeat([]byte{0x09}, 32), 3, 2)
	require.NoError(t, err)
	sealed, err := SealShares(byID, shares)
	require.NoError(t, err)
	require.Len(t, sealed, 3)

	locked, err := kms.NewShamirKMSRecovery(config)
	require.NoError(t, err)
	admin := NewAdminHandler(locked, byID, testLogger())
	_, ts := newTestServer(t, locked, admin)

	status, err := NewAdminClient(ts.URL, "", nil).Status(context.Background())
	require.NoError(t, err)
	assert.Equal(t, AdminStatus{State: "locked"}, *status)

	for i, s := range sealed[:2] {
		privPEM, err := x509.MarshalECPrivateKey(privByID[s.AdminID])
		require.NoError(t, err)
		share, err := OpenShare(s, pem.EncodeToMemory(&pem.Block{Type: "EC PRIVATE KEY", Bytes: privPEM}))
		require.NoError(t, err)

		// a share cannot be opened for a different admin id
		swapped := s
		swapped.AdminID = sealed[2].AdminID
		_, err = OpenShare(swapped, pem.EncodeToMemory(&pem.Block{Type: "EC PRIVATE KEY", Bytes: privPEM}))
		assert.Error(t, err)

		unlocked, err := NewAdminClient(ts.URL, s.AdminID, privByID[s.AdminID]).SubmitShare(context.Background(), s.ShareIndex, share)
		require.NoError(t, err)
		assert.Equal(t, i == 1, unlocked)
	}

	status, err = NewAdminClient(ts.URL, "", nil).Status(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "unlocked", status.State)

	_, err = NewAdminClient(ts.URL, sealed[2].AdminID, nil).SubmitShare(context.Background(), 2, []byte("late"))
	assert.Error(t, err)
}
