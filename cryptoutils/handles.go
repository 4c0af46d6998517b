package cryptoutils

import (
	"encoding/binary"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/holiman/uint256"
)

// FheType identifies the encrypted integer width carried by a handle.
type FheType uint8

const (
	FheBool    FheType = 0
	FheUint4   FheType = 1
	FheUint8   FheType = 2
	FheUint16  FheType = 3
	FheUint32  FheType = 4
	FheUint64  FheType = 5
	FheUint128 FheType = 6
	FheUint160 FheType = 7
	FheUint256 FheType = 8
)

// HandleVersion is written into the last byte of every handle.
const HandleVersion uint8 = 0

var (
	blobHashDomain   = []byte("ZK-w_rct")
	handleHashDomain = []byte("ZK-w_hdl")
)

// Bits returns the plaintext width of t.
func (t FheType) Bits() int {
	switch t {
	case FheBool:
		return 1
	case FheUint4:
		return 4
	case FheUint8:
		return 8
	case FheUint16:
		return 16
	case FheUint32:
		return 32
	case FheUint64:
		return 64
	case FheUint128:
		return 128
	case FheUint160:
		return 160
	case FheUint256:
		return 256
	default:
		return 0
	}
}

func (t FheType) String() string {
	switch t {
	case FheBool:
		return "ebool"
	case FheUint160:
		return "eaddress"
	default:
		if bits := t.Bits(); bits > 0 {
			return fmt.Sprintf("euint%d", bits)
		}
		return fmt.Sprintf("FheType(%d)", uint8(t))
	}
}

// FheTypeFor picks the narrowest integer type, starting at euint8, that holds v.
func FheTypeFor(v *uint256.Int) FheType {
	bits := v.BitLen()
	for _, t := range []FheType{FheUint8, FheUint16, FheUint32, FheUint64, FheUint128} {
		if bits <= t.Bits() {
			return t
		}
	}
	return FheUint256
}

// EncodePlaintext serializes v as [type (1 byte)][value (32 bytes big endian)].
func EncodePlaintext(t FheType, v *uint256.Int) []byte {
	buf := make([]byte, 0, 33)
	buf = append(buf, byte(t))
	word := v.Bytes32()
	return append(buf, word[:]...)
}

// DecodePlaintext reverses EncodePlaintext.
func DecodePlaintext(b []byte) (FheType, *uint256.Int, error) {
	if len(b) != 33 {
		return 0, nil, fmt.Errorf("%w: plaintext length %d", ErrInvalidCiphertext, len(b))
	}
	t := FheType(b[0])
	if t.Bits() == 0 {
		return 0, nil, fmt.Errorf("%w: unknown type %d", ErrInvalidCiphertext, b[0])
	}
	v := new(uint256.Int).SetBytes(b[1:])
	if v.BitLen() > t.Bits() {
		return 0, nil, fmt.Errorf("%w: value overflows %s", ErrInvalidCiphertext, t)
	}
	return t, v, nil
}

// CiphertextAssociatedData binds a ciphertext to the contract, ACL domain and chain it was produced for.
func CiphertextAssociatedData(contract, acl common.Address, chainID uint64) []byte {
	ad := make([]byte, 0, 2*common.AddressLength+8)
	ad = append(ad, contract.Bytes()...)
	ad = append(ad, acl.Bytes()...)
	return binary.BigEndian.AppendUint64(ad, chainID)
}

// ComputeHandle derives the handle of the index-th value packed in ciphertext.
//
// Layout: keccak256(...)[0:21] | index | chainID (8 bytes) | type | version
func ComputeHandle(ciphertext []byte, index uint8, t FheType, acl common.Address, chainID uint64) common.Hash {
	blobHash := crypto.Keccak256(blobHashDomain, ciphertext)

	var chainWord [32]byte
	binary.BigEndian.PutUint64(chainWord[24:], chainID)

	var handle common.Hash
	copy(handle[:], crypto.Keccak256(handleHashDomain, blobHash, []byte{index}, acl.Bytes(), chainWord[:]))

	handle[21] = index
	binary.BigEndian.PutUint64(handle[22:30], chainID)
	handle[30] = byte(t)
	handle[31] = HandleVersion
	return handle
}

// HandleMetadata extracts the fields embedded in a handle.
func HandleMetadata(handle common.Hash) (index uint8, chainID uint64, t FheType, version uint8) {
	return handle[21], binary.BigEndian.Uint64(handle[22:30]), FheType(handle[30]), handle[31]
}
