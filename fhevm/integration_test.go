package fhevm

import (
	"bytes"
	"context"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/ruteri/fhevm-instance-bootstrap/api"
	"github.com/ruteri/fhevm-instance-bootstrap/cryptoutils"
	"github.com/ruteri/fhevm-instance-bootstrap/interfaces"
	"github.com/ruteri/fhevm-instance-bootstrap/keycache"
	"github.com/ruteri/fhevm-instance-bootstrap/keyserver"
	"github.com/ruteri/fhevm-instance-bootstrap/kms"
	"github.com/ruteri/fhevm-instance-bootstrap/relayer"
	"github.com/ruteri/fhevm-instance-bootstrap/sdk"
	"github.com/ruteri/fhevm-instance-bootstrap/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAcquire_RelayerEndToEnd(t *testing.T) {
	masterKey := bytes.Repeat([]byte{0x5a}, 32)
	keys, err := kms.NewSimpleKMS(masterKey)
	require.NoError(t, err)

	acl := common.HexToAddress(relayer.SepoliaConfig().ACLContractAddress)
	server, err := keyserver.New(&api.HTTPServerConfig{
		Log:                      testLogger(),
		ACLAddress:               acl,
		DrainDuration:            time.Millisecond,
		GracefulShutdownDuration: time.Second,
	}, keyserver.NewHandler(keys, acl, "", testLogger()), nil)
	require.NoError(t, err)
	ts := httptest.NewServer(server.Handler())
	defer ts.Close()

	backend, err := storage.NewLevelDBBackend("", testLogger())
	require.NoError(t, err)
	store := keycache.NewStorageKeyStore(backend, testLogger())

	acquirer := NewAcquirer(Options{
		Bootstrapper: sdk.NewBootstrapper(relayer.NewSDK(ts.URL, nil, testLogger()), testLogger()),
		KeyCache:     keycache.NewManager(store, testLogger(), nil),
		Log:          testLogger(),
	})

	instance, err := acquirer.Acquire(context.Background(), Params{
		Connection: interfaces.ConnectionFromProvider(chainIDProvider(sepoliaChainID)),
	})
	require.NoError(t, err)

	remote, ok := instance.(*relayer.Instance)
	require.True(t, ok)
	assert.Equal(t, DefaultFallbackNetwork, remote.Config().Network)

	cached, err := store.Get(context.Background(), acl.Hex())
	require.NoError(t, err)
	expectedPK, err := keys.PublicKey(acl)
	require.NoError(t, err)
	assert.Equal(t, expectedPK, cached.PublicKey)
	assert.NotEmpty(t, cached.PublicParams)

	contract := common.HexToAddress("0x5FbDB2315678afecb367f032d93F642f64180aa3")
	encrypted, err := instance.EncryptValue(context.Background(), uint256.NewInt(42), contract)
	require.NoError(t, err)

	proof, err := cryptoutils.DecodeInputProof(encrypted.InputProof)
	require.NoError(t, err)
	verifier, err := keys.VerifierAddress(acl)
	require.NoError(t, err)
	assert.NoError(t, cryptoutils.VerifyInputProof(proof, contract, acl, sepoliaChainID, []common.Address{verifier}))

	// a warm cache serves the second acquisition without downloads
	second, err := acquirer.Acquire(context.Background(), Params{
		Connection: interfaces.ConnectionFromProvider(chainIDProvider(sepoliaChainID)),
	})
	require.NoError(t, err)
	assert.Equal(t, cached.PublicKey, second.(*relayer.Instance).Config().PublicKey)
	assert.Equal(t, cached.PublicParams, second.(*relayer.Instance).Config().PublicParams)
}
