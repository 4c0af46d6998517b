package relayer

import (
	"context"
	"fmt"
	"log/slog"
	"slices"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/holiman/uint256"
	"github.com/ruteri/fhevm-instance-bootstrap/api"
	"github.com/ruteri/fhevm-instance-bootstrap/cryptoutils"
	"github.com/ruteri/fhevm-instance-bootstrap/interfaces"
)

// Instance encrypts values locally and obtains input proofs from the relayer.
type Instance struct {
	client api.RelayerProvider
	config interfaces.InstanceConfig
	acl    common.Address

	publicKey    []byte
	publicParams map[int][]byte

	log *slog.Logger
}

func newInstance(ctx context.Context, client api.RelayerProvider, config interfaces.InstanceConfig, log *slog.Logger) (*Instance, error) {
	if !common.IsHexAddress(config.ACLContractAddress) {
		return nil, fmt.Errorf("invalid acl contract address %q", config.ACLContractAddress)
	}
	if config.ChainID == 0 {
		return nil, fmt.Errorf("missing chain id")
	}

	publicKey, publicParams := config.PublicKey, config.PublicParams
	if publicKey == nil || publicParams == nil {
		var err error
		publicKey, publicParams, err = fetchKeyMaterial(ctx, client, publicKey, publicParams)
		if err != nil {
			return nil, err
		}
	}

	if _, err := cryptoutils.ParsePublicKeyPEM(publicKey); err != nil {
		return nil, fmt.Errorf("relayer public key: %w", err)
	}

	config.PublicKey = publicKey
	config.PublicParams = publicParams

	log.Info("Created relayer instance",
		slog.String("relayer", config.RelayerURL),
		slog.String("network", config.Network),
		slog.String("acl", config.ACLContractAddress))

	return &Instance{
		client:       client,
		config:       config,
		acl:          common.HexToAddress(config.ACLContractAddress),
		publicKey:    publicKey,
		publicParams: map[int][]byte{interfaces.DefaultPublicParamsSize: publicParams},
		log:          log,
	}, nil
}

// fetchKeyMaterial downloads whichever of publicKey and publicParams is missing.
func fetchKeyMaterial(ctx context.Context, client api.RelayerProvider, publicKey, publicParams []byte) ([]byte, []byte, error) {
	keyURL, err := client.KeyURL(ctx)
	if err != nil {
		return nil, nil, err
	}
	if keyURL.Status != api.StatusSucceeded {
		return nil, nil, fmt.Errorf("keyurl endpoint returned status %q", keyURL.Status)
	}

	if publicKey == nil {
		ref, found := keyURL.Response.PublicKeyRef()
		if !found {
			return nil, nil, fmt.Errorf("relayer lists no public key")
		}
		if publicKey, err = client.Download(ctx, ref.URLs[0]); err != nil {
			return nil, nil, err
		}
	}

	if publicParams == nil {
		ref, found := keyURL.Response.PublicParamsRef(interfaces.DefaultPublicParamsSize)
		if !found {
			return nil, nil, fmt.Errorf("relayer lists no public params of size %d", interfaces.DefaultPublicParamsSize)
		}
		if publicParams, err = client.Download(ctx, ref.URLs[0]); err != nil {
			return nil, nil, err
		}
	}

	return publicKey, publicParams, nil
}

// EncryptValue encrypts value for recipient and requests the input proof from the relayer.
func (i *Instance) EncryptValue(ctx context.Context, value *uint256.Int, recipient common.Address) (*interfaces.EncryptedInput, error) {
	ct, err := cryptoutils.EncryptInput(i.publicKey, value, recipient, i.acl, i.config.ChainID)
	if err != nil {
		return nil, fmt.Errorf("failed to encrypt input: %w", err)
	}

	resp, err := i.client.InputProof(ctx, &api.InputProofRequest{
		ContractAddress:                 recipient,
		ContractChainID:                 hexutil.Uint64(i.config.ChainID),
		ACLAddress:                      i.acl,
		CiphertextWithInputVerification: ct.Data,
		ExtraData:                       []byte{0x00},
	})
	if err != nil {
		return nil, err
	}

	if len(resp.Response.Handles) != 1 || resp.Response.Handles[0] != ct.Handle {
		return nil, fmt.Errorf("%w: relayer returned unexpected handles", cryptoutils.ErrInvalidInputProof)
	}

	proof := cryptoutils.InputProof{Handles: resp.Response.Handles, ExtraData: ct.Data}
	for _, sig := range resp.Response.Signatures {
		proof.Signatures = append(proof.Signatures, sig)
	}
	encoded, err := proof.Encode()
	if err != nil {
		return nil, err
	}

	i.log.Debug("Received input proof", slog.String("handle", ct.Handle.Hex()), slog.Int("signatures", len(proof.Signatures)))
	return &interfaces.EncryptedInput{Handles: proof.Handles, InputProof: encoded}, nil
}

// PublicKey returns the network public key.
func (i *Instance) PublicKey() ([]byte, error) {
	return slices.Clone(i.publicKey), nil
}

// PublicParams returns the public params of size.
func (i *Instance) PublicParams(size int) ([]byte, error) {
	params, found := i.publicParams[size]
	if !found {
		return nil, fmt.Errorf("%w: %d", interfaces.ErrUnsupportedParamsSize, size)
	}
	return slices.Clone(params), nil
}

// Config returns the configuration the instance was created with, including key material.
func (i *Instance) Config() interfaces.InstanceConfig {
	return i.config
}
