package api

import (
	"context"
	"strconv"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

const (
	StatusSucceeded = "succeeded"
	StatusFailed    = "failed"
)

// Route paths.
const (
	KeyURLPath       = "/v1/keyurl"
	PublicKeyPath    = "/v1/keys/public-key"
	PublicParamsPath = "/v1/keys/public-params"
	InputProofPath   = "/v1/input-proof"
)

// ACLQueryParam selects the cryptographic domain on key endpoints.
const ACLQueryParam = "acl"

// KeyURLResponse lists where the key material of a domain can be downloaded.
type KeyURLResponse struct {
	Status   string     `json:"status"`
	Response KeyURLData `json:"response"`
}

type KeyURLData struct {
	FheKeyInfo []FheKeyInfo `json:"fhe_key_info"`
	// CRS maps a public params size to its location.
	CRS map[string]KeyRef `json:"crs"`
}

type FheKeyInfo struct {
	FhePublicKey KeyRef `json:"fhe_public_key"`
}

// KeyRef identifies a downloadable key blob.
type KeyRef struct {
	DataID string   `json:"data_id"`
	URLs   []string `json:"urls"`
}

// PublicParamsRef returns the reference of the params of the given size.
func (d KeyURLData) PublicParamsRef(size int) (KeyRef, bool) {
	ref, found := d.CRS[strconv.Itoa(size)]
	return ref, found && len(ref.URLs) > 0
}

// PublicKeyRef returns the reference of the first public key.
func (d KeyURLData) PublicKeyRef() (KeyRef, bool) {
	if len(d.FheKeyInfo) == 0 || len(d.FheKeyInfo[0].FhePublicKey.URLs) == 0 {
		return KeyRef{}, false
	}
	return d.FheKeyInfo[0].FhePublicKey, true
}

// InputProofRequest asks the relayer to verify a ciphertext and sign its handles.
type InputProofRequest struct {
	ContractAddress                 common.Address `json:"contractAddress"`
	ContractChainID                 hexutil.Uint64 `json:"contractChainId"`
	ACLAddress                      common.Address `json:"aclContractAddress"`
	CiphertextWithInputVerification hexutil.Bytes  `json:"ciphertextWithInputVerification"`
	ExtraData                       hexutil.Bytes  `json:"extraData"`
}

type InputProofResponse struct {
	Status   string         `json:"status"`
	Response InputProofData `json:"response"`
}

type InputProofData struct {
	Handles    []common.Hash   `json:"handles"`
	Signatures []hexutil.Bytes `json:"signatures"`
}

// ErrorResponse is returned with non-2xx status codes.
type ErrorResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

// RelayerProvider is the client side of the relayer API.
type RelayerProvider interface {
	KeyURL(ctx context.Context) (*KeyURLResponse, error)
	Download(ctx context.Context, url string) ([]byte, error)
	InputProof(ctx context.Context, req *InputProofRequest) (*InputProofResponse, error)
}
