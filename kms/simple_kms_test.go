package kms

import (
	"bytes"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ruteri/fhevm-instance-bootstrap/cryptoutils"
	"github.com/ruteri/fhevm-instance-bootstrap/interfaces"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	aclA = common.HexToAddress("0x687820221192C5B662b25367F70076A37bc79b6c")
	aclB = common.HexToAddress("0x50157CFfD6bBFA2DECe204a89ec419c23ef5755D")
)

func newTestKMS(t *testing.T, seed byte) *SimpleKMS {
	t.Helper()
	k, err := NewSimpleKMS(bytes.Repeat([]byte{seed}, 32))
	require.NoError(t, err)
	return k
}

func TestNewSimpleKMS_ShortKey(t *testing.T) {
	_, err := NewSimpleKMS(make([]byte, 16))
	assert.Error(t, err)
}

func TestSimpleKMS_Deterministic(t *testing.T) {
	k1 := newTestKMS(t, 1)
	k2 := newTestKMS(t, 1)
	other := newTestKMS(t, 2)

	pk1, err := k1.PublicKey(aclA)
	require.NoError(t, err)
	pk2, err := k2.PublicKey(aclA)
	require.NoError(t, err)
	assert.Equal(t, pk1, pk2)

	pkOther, err := other.PublicKey(aclA)
	require.NoError(t, err)
	assert.NotEqual(t, pk1, pkOther)

	pkB, err := k1.PublicKey(aclB)
	require.NoError(t, err)
	assert.NotEqual(t, pk1, pkB)

	v1, err := k1.VerifierAddress(aclA)
	require.NoError(t, err)
	v2, err := k2.VerifierAddress(aclA)
	require.NoError(t, err)
	assert.Equal(t, v1, v2)

	id1, err := k1.KeyID(aclA)
	require.NoError(t, err)
	id2, err := k2.KeyID(aclA)
	require.NoError(t, err)
	assert.Equal(t, id1, id2)
	assert.Len(t, id1, 32)
}

func TestSimpleKMS_EncryptionKeyPair(t *testing.T) {
	k := newTestKMS(t, 3)

	publicKeyPEM, err := k.PublicKey(aclA)
	require.NoError(t, err)
	privateKey, err := k.DecryptionKey(aclA)
	require.NoError(t, err)

	ciphertext, err := cryptoutils.EncryptWithPublicKey(publicKeyPEM, []byte("42"), nil)
	require.NoError(t, err)

	plaintext, err := cryptoutils.Decrypt(privateKey, ciphertext, nil)
	require.NoError(t, err)
	assert.Equal(t, []byte("42"), plaintext)
}

func TestSimpleKMS_PublicParams(t *testing.T) {
	k := newTestKMS(t, 4)

	params, err := k.PublicParams(aclA, interfaces.DefaultPublicParamsSize)
	require.NoError(t, err)

	size, err := PublicParamsSize(params)
	require.NoError(t, err)
	assert.Equal(t, interfaces.DefaultPublicParamsSize, size)

	again, err := k.PublicParams(aclA, interfaces.DefaultPublicParamsSize)
	require.NoError(t, err)
	assert.Equal(t, params, again)

	_, err = k.PublicParams(aclA, 1024)
	assert.ErrorIs(t, err, interfaces.ErrUnsupportedParamsSize)

	_, err = PublicParamsSize([]byte("garbage"))
	assert.Error(t, err)
}

func TestSimpleKMS_VerifierSignsInputProofs(t *testing.T) {
	k := newTestKMS(t, 5)

	key, err := k.VerifierKey(aclA)
	require.NoError(t, err)

	digest := cryptoutils.InputProofDigest(nil, common.Address{}, aclA, 31337, nil)
	sig, err := cryptoutils.SignInputProof(key, digest)
	require.NoError(t, err)

	signer, err := cryptoutils.RecoverInputSigner(digest, sig)
	require.NoError(t, err)
	assert.Equal(t, crypto.PubkeyToAddress(key.PublicKey), signer)
}

func TestSeedFromPassphrase(t *testing.T) {
	seed := SeedFromPassphrase("correct horse", []byte("salt"))
	assert.Len(t, seed, 32)
	assert.Equal(t, seed, SeedFromPassphrase("correct horse", []byte("salt")))
	assert.NotEqual(t, seed, SeedFromPassphrase("correct horse", []byte("other")))

	_, err := NewSimpleKMS(seed)
	assert.NoError(t, err)
}
