package keyserver

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/go-chi/chi/v5"
	"github.com/ruteri/fhevm-instance-bootstrap/api"
	"github.com/ruteri/fhevm-instance-bootstrap/cryptoutils"
	"github.com/ruteri/fhevm-instance-bootstrap/interfaces"
	"github.com/ruteri/fhevm-instance-bootstrap/kms"
)

// maxBodySize is the maximum accepted request body (1MB).
const maxBodySize = 1024 * 1024

// RequestError carries the status code a failed request is answered with.
type RequestError struct {
	StatusCode int
	Err        error
}

func (e *RequestError) Error() string {
	return e.Err.Error()
}

func badRequest(format string, args ...interface{}) *RequestError {
	return &RequestError{StatusCode: http.StatusBadRequest, Err: fmt.Errorf(format, args...)}
}

// kmsError maps KMS failures to status codes.
func kmsError(err error) *RequestError {
	switch {
	case errors.Is(err, interfaces.ErrKMSLocked):
		return &RequestError{StatusCode: http.StatusServiceUnavailable, Err: err}
	case errors.Is(err, interfaces.ErrUnsupportedParamsSize):
		return &RequestError{StatusCode: http.StatusNotFound, Err: err}
	default:
		return &RequestError{StatusCode: http.StatusInternalServerError, Err: err}
	}
}

// Handler serves the relayer API from a KMS.
type Handler struct {
	kms        interfaces.KMS
	defaultACL common.Address
	publicURL  string
	log        *slog.Logger
}

// NewHandler creates a relayer API handler. publicURL may be empty.
func NewHandler(kms interfaces.KMS, defaultACL common.Address, publicURL string, log *slog.Logger) *Handler {
	return &Handler{
		kms:        kms,
		defaultACL: defaultACL,
		publicURL:  strings.TrimRight(publicURL, "/"),
		log:        log,
	}
}

// HandleKeyURL lists the download locations of the domain's key material.
//
// GET /v1/keyurl[?acl=0x...]
func (h *Handler) HandleKeyURL(w http.ResponseWriter, r *http.Request) {
	acl, reqErr := h.aclFromRequest(r)
	if reqErr != nil {
		h.writeError(w, reqErr)
		return
	}

	keyID, err := h.kms.KeyID(acl)
	if err != nil {
		h.writeError(w, kmsError(err))
		return
	}

	query := url.Values{api.ACLQueryParam: []string{acl.Hex()}}.Encode()
	base := h.baseURL(r)

	crs := make(map[string]api.KeyRef, len(kms.SupportedPublicParamsSizes))
	for _, size := range kms.SupportedPublicParamsSizes {
		crs[strconv.Itoa(size)] = api.KeyRef{
			DataID: fmt.Sprintf("%s-crs-%d", keyID, size),
			URLs:   []string{fmt.Sprintf("%s%s/%d?%s", base, api.PublicParamsPath, size, query)},
		}
	}

	h.writeJSON(w, http.StatusOK, api.KeyURLResponse{
		Status: api.StatusSucceeded,
		Response: api.KeyURLData{
			FheKeyInfo: []api.FheKeyInfo{{
				FhePublicKey: api.KeyRef{
					DataID: keyID + "-pk",
					URLs:   []string{fmt.Sprintf("%s%s?%s", base, api.PublicKeyPath, query)},
				},
			}},
			CRS: crs,
		},
	})
}

// HandlePublicKey returns the PEM encoded public key.
//
// GET /v1/keys/public-key[?acl=0x...]
func (h *Handler) HandlePublicKey(w http.ResponseWriter, r *http.Request) {
	acl, reqErr := h.aclFromRequest(r)
	if reqErr != nil {
		h.writeError(w, reqErr)
		return
	}

	publicKey, err := h.kms.PublicKey(acl)
	if err != nil {
		h.writeError(w, kmsError(err))
		return
	}

	w.Header().Set("Content-Type", "application/x-pem-file")
	w.WriteHeader(http.StatusOK)
	w.Write(publicKey)
}

// HandlePublicParams returns the public params blob of the requested size.
//
// GET /v1/keys/public-params/{size}[?acl=0x...]
func (h *Handler) HandlePublicParams(w http.ResponseWriter, r *http.Request) {
	acl, reqErr := h.aclFromRequest(r)
	if reqErr != nil {
		h.writeError(w, reqErr)
		return
	}

	size, err := strconv.Atoi(chi.URLParam(r, "size"))
	if err != nil || size <= 0 {
		h.writeError(w, badRequest("invalid public params size %q", chi.URLParam(r, "size")))
		return
	}

	params, err := h.kms.PublicParams(acl, size)
	if err != nil {
		h.writeError(w, kmsError(err))
		return
	}

	w.Header().Set("Content-Type", "application/octet-stream")
	w.WriteHeader(http.StatusOK)
	w.Write(params)
}

// HandleInputProof checks that a ciphertext decrypts for the given contract
// and signs its handle with the domain's input verifier key.
//
// POST /v1/input-proof
func (h *Handler) HandleInputProof(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodySize)

	var req api.InputProofRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, badRequest("invalid request body: %v", err))
		return
	}

	resp, reqErr := h.inputProof(&req)
	if reqErr != nil {
		h.writeError(w, reqErr)
		return
	}

	h.log.Debug("Signed input proof",
		slog.String("contract", req.ContractAddress.Hex()),
		slog.String("handle", resp.Handles[0].Hex()))
	h.writeJSON(w, http.StatusOK, api.InputProofResponse{Status: api.StatusSucceeded, Response: *resp})
}

func (h *Handler) inputProof(req *api.InputProofRequest) (*api.InputProofData, *RequestError) {
	if len(req.CiphertextWithInputVerification) == 0 {
		return nil, badRequest("missing ciphertext")
	}
	if req.ContractChainID == 0 {
		return nil, badRequest("missing contract chain id")
	}

	acl := req.ACLAddress
	if acl == (common.Address{}) {
		acl = h.defaultACL
	}
	chainID := uint64(req.ContractChainID)
	ciphertext := []byte(req.CiphertextWithInputVerification)

	key, err := h.kms.DecryptionKey(acl)
	if err != nil {
		return nil, kmsError(err)
	}

	fheType, _, err := cryptoutils.DecryptInput(key, ciphertext, req.ContractAddress, acl, chainID)
	if err != nil {
		return nil, badRequest("ciphertext rejected: %v", err)
	}

	signer, err := h.kms.VerifierKey(acl)
	if err != nil {
		return nil, kmsError(err)
	}

	handles := []common.Hash{cryptoutils.ComputeHandle(ciphertext, 0, fheType, acl, chainID)}
	digest := cryptoutils.InputProofDigest(handles, req.ContractAddress, acl, chainID, ciphertext)
	sig, err := cryptoutils.SignInputProof(signer, digest)
	if err != nil {
		return nil, &RequestError{StatusCode: http.StatusInternalServerError, Err: err}
	}

	return &api.InputProofData{Handles: handles, Signatures: []hexutil.Bytes{sig}}, nil
}

func (h *Handler) aclFromRequest(r *http.Request) (common.Address, *RequestError) {
	raw := r.URL.Query().Get(api.ACLQueryParam)
	if raw == "" {
		return h.defaultACL, nil
	}
	if !common.IsHexAddress(raw) {
		return common.Address{}, badRequest("invalid acl address %q", raw)
	}
	return common.HexToAddress(raw), nil
}

func (h *Handler) baseURL(r *http.Request) string {
	if h.publicURL != "" {
		return h.publicURL
	}
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	return scheme + "://" + r.Host
}

func (h *Handler) writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.log.Error("Failed to encode response", "err", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, reqErr *RequestError) {
	if reqErr.StatusCode >= http.StatusInternalServerError {
		h.log.Error("Request failed", "err", reqErr.Err, slog.Int("status", reqErr.StatusCode))
	}
	h.writeJSON(w, reqErr.StatusCode, api.ErrorResponse{Status: api.StatusFailed, Message: reqErr.Error()})
}
