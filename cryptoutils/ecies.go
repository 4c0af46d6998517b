package cryptoutils

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/ecdh"
	"crypto/ecdsa"
	"crypto/rand"
	"crypto/sha256"
	"crypto/x509"
	"encoding/binary"
	"encoding/pem"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/hkdf"
)

const (
	gcmNonceSize = 12
	eciesInfo    = "fhevm-ecies-v1"
)

var (
	ErrInvalidPublicKey  = errors.New("invalid public key")
	ErrInvalidPrivateKey = errors.New("invalid private key")
	ErrInvalidCiphertext = errors.New("invalid ciphertext")
)

// EncryptWithPublicKey encrypts data for the holder of the P-256 key in publicKeyPEM.
// A fresh ephemeral key is generated for every call. associatedData is authenticated
// but not encrypted and must be supplied again on decryption.
//
// Output format: [ephemeral key length (2 bytes)][ephemeral key][nonce (12 bytes)][ciphertext]
func EncryptWithPublicKey(publicKeyPEM []byte, data []byte, associatedData []byte) ([]byte, error) {
	publicKey, err := ParsePublicKeyPEM(publicKeyPEM)
	if err != nil {
		return nil, err
	}

	ephemeralKey, err := publicKey.Curve().GenerateKey(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("failed to generate ephemeral key: %w", err)
	}

	sharedSecret, err := ephemeralKey.ECDH(publicKey)
	if err != nil {
		return nil, fmt.Errorf("failed to derive shared secret: %w", err)
	}

	ephemeralPublicKeyBytes := ephemeralKey.PublicKey().Bytes()
	aesGCM, err := newGCM(sharedSecret, ephemeralPublicKeyBytes)
	if err != nil {
		return nil, err
	}

	nonce := make([]byte, gcmNonceSize)
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, fmt.Errorf("failed to generate nonce: %w", err)
	}

	ciphertext := aesGCM.Seal(nil, nonce, data, associatedData)

	result := make([]byte, 0, 2+len(ephemeralPublicKeyBytes)+gcmNonceSize+len(ciphertext))
	result = binary.BigEndian.AppendUint16(result, uint16(len(ephemeralPublicKeyBytes)))
	result = append(result, ephemeralPublicKeyBytes...)
	result = append(result, nonce...)
	result = append(result, ciphertext...)

	return result, nil
}

// DecryptWithPrivateKey reverses EncryptWithPublicKey.
func DecryptWithPrivateKey(privateKeyPEM []byte, encryptedData []byte, associatedData []byte) ([]byte, error) {
	privateKey, err := ParsePrivateKeyPEM(privateKeyPEM)
	if err != nil {
		return nil, err
	}
	return Decrypt(privateKey, encryptedData, associatedData)
}

// Decrypt reverses EncryptWithPublicKey for an already parsed key.
func Decrypt(privateKey *ecdh.PrivateKey, encryptedData []byte, associatedData []byte) ([]byte, error) {
	if len(encryptedData) < 2 {
		return nil, fmt.Errorf("%w: too short", ErrInvalidCiphertext)
	}

	ephemeralKeyLen := int(binary.BigEndian.Uint16(encryptedData[0:2]))
	if len(encryptedData) < 2+ephemeralKeyLen+gcmNonceSize {
		return nil, fmt.Errorf("%w: truncated header", ErrInvalidCiphertext)
	}

	ephemeralKeyBytes := encryptedData[2 : 2+ephemeralKeyLen]
	ephemeralKey, err := privateKey.Curve().NewPublicKey(ephemeralKeyBytes)
	if err != nil {
		return nil, fmt.Errorf("%w: ephemeral key: %v", ErrInvalidCiphertext, err)
	}

	sharedSecret, err := privateKey.ECDH(ephemeralKey)
	if err != nil {
		return nil, fmt.Errorf("failed to derive shared secret: %w", err)
	}

	aesGCM, err := newGCM(sharedSecret, ephemeralKeyBytes)
	if err != nil {
		return nil, err
	}

	nonceStart := 2 + ephemeralKeyLen
	nonce := encryptedData[nonceStart : nonceStart+gcmNonceSize]
	ciphertext := encryptedData[nonceStart+gcmNonceSize:]

	plaintext, err := aesGCM.Open(nil, nonce, ciphertext, associatedData)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCiphertext, err)
	}

	return plaintext, nil
}

// newGCM derives the AES-256 key from the ECDH secret with HKDF-SHA256,
// salted with the ephemeral public key.
func newGCM(sharedSecret, salt []byte) (cipher.AEAD, error) {
	key := make([]byte, 32)
	if _, err := io.ReadFull(hkdf.New(sha256.New, sharedSecret, salt, []byte(eciesInfo)), key); err != nil {
		return nil, fmt.Errorf("failed to derive key: %w", err)
	}

	aesBlock, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}

	aesGCM, err := cipher.NewGCM(aesBlock)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}
	return aesGCM, nil
}

// ParsePublicKeyPEM parses a PKIX "PUBLIC KEY" block holding a NIST curve key.
func ParsePublicKeyPEM(publicKeyPEM []byte) (*ecdh.PublicKey, error) {
	block, _ := pem.Decode(publicKeyPEM)
	if block == nil {
		return nil, fmt.Errorf("%w: failed to decode PEM", ErrInvalidPublicKey)
	}

	parsed, err := x509.ParsePKIXPublicKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPublicKey, err)
	}

	switch key := parsed.(type) {
	case *ecdsa.PublicKey:
		ecdhKey, err := key.ECDH()
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidPublicKey, err)
		}
		return ecdhKey, nil
	case *ecdh.PublicKey:
		return key, nil
	default:
		return nil, fmt.Errorf("%w: not an elliptic curve key", ErrInvalidPublicKey)
	}
}

// ParsePrivateKeyPEM parses a PKCS#8 "PRIVATE KEY" or SEC 1 "EC PRIVATE KEY" block.
func ParsePrivateKeyPEM(privateKeyPEM []byte) (*ecdh.PrivateKey, error) {
	block, _ := pem.Decode(privateKeyPEM)
	if block == nil {
		return nil, fmt.Errorf("%w: failed to decode PEM", ErrInvalidPrivateKey)
	}

	var parsed any
	var err error
	switch block.Type {
	case "EC PRIVATE KEY":
		parsed, err = x509.ParseECPrivateKey(block.Bytes)
	default:
		parsed, err = x509.ParsePKCS8PrivateKey(block.Bytes)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPrivateKey, err)
	}

	switch key := parsed.(type) {
	case *ecdsa.PrivateKey:
		ecdhKey, err := key.ECDH()
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidPrivateKey, err)
		}
		return ecdhKey, nil
	case *ecdh.PrivateKey:
		return key, nil
	default:
		return nil, fmt.Errorf("%w: not an elliptic curve key", ErrInvalidPrivateKey)
	}
}

// MarshalPublicKeyPEM encodes key as a PKIX "PUBLIC KEY" block.
func MarshalPublicKeyPEM(key *ecdh.PublicKey) ([]byte, error) {
	der, err := x509.MarshalPKIXPublicKey(key)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal public key: %w", err)
	}
	return pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: der}), nil
}

// MarshalPrivateKeyPEM encodes key as a PKCS#8 "PRIVATE KEY" block.
func MarshalPrivateKeyPEM(key *ecdh.PrivateKey) ([]byte, error) {
	der, err := x509.MarshalPKCS8PrivateKey(key)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal private key: %w", err)
	}
	return pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: der}), nil
}
