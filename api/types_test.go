package api

import (
	"encoding/json"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKeyURLData_Refs(t *testing.T) {
	raw := `{
		"status": "succeeded",
		"response": {
			"fhe_key_info": [{"fhe_public_key": {"data_id": "pk-1", "urls": ["http://relayer/v1/keys/public-key"]}}],
			"crs": {"2048": {"data_id": "crs-1", "urls": ["http://relayer/v1/keys/public-params/2048"]}}
		}
	}`

	var resp KeyURLResponse
	require.NoError(t, json.Unmarshal([]byte(raw), &resp))
	assert.Equal(t, StatusSucceeded, resp.Status)

	pk, found := resp.Response.PublicKeyRef()
	require.True(t, found)
	assert.Equal(t, "pk-1", pk.DataID)

	crs, found := resp.Response.PublicParamsRef(2048)
	require.True(t, found)
	assert.Equal(t, []string{"http://relayer/v1/keys/public-params/2048"}, crs.URLs)

	_, found = resp.Response.PublicParamsRef(4096)
	assert.False(t, found)

	_, found = KeyURLData{FheKeyInfo: []FheKeyInfo{{}}}.PublicKeyRef()
	assert.False(t, found)
}

func TestInputProofRequest_JSON(t *testing.T) {
	req := InputProofRequest{
		ContractAddress:                 common.HexToAddress("0x5FbDB2315678afecb367f032d93F642f64180aa3"),
		ContractChainID:                 11155111,
		ACLAddress:                      common.HexToAddress("0x687820221192C5B662b25367F70076A37bc79b6c"),
		CiphertextWithInputVerification: []byte{0xca, 0xfe},
		ExtraData:                       []byte{0x00},
	}

	data, err := json.Marshal(req)
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"contractAddress": "0x5fbdb2315678afecb367f032d93f642f64180aa3",
		"contractChainId": "0xaa36a7",
		"aclContractAddress": "0x687820221192c5b662b25367f70076a37bc79b6c",
		"ciphertextWithInputVerification": "0xcafe",
		"extraData": "0x00"
	}`, string(data))

	var decoded InputProofRequest
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, req, decoded)

	var bad InputProofRequest
	assert.Error(t, json.Unmarshal([]byte(`{"contractAddress":"0x1234"}`), &bad))
}
