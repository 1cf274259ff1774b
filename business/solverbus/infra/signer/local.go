// Package signer produces the signed payloads required to publish intents.
package signer

import (
	"context"
	"crypto/ecdsa"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/google/uuid"

	"github.com/fd1az/intents-agent/business/solverbus/domain"
	"github.com/fd1az/intents-agent/internal/apperror"
)

const signStandard = "erc191"

// Local signs intent payloads with an in-process ECDSA key.
type Local struct {
	key       *ecdsa.PrivateKey
	publicKey string
}

// NewLocal builds a signer from a hex-encoded secp256k1 private key.
func NewLocal(hexKey string) (*Local, error) {
	key, err := crypto.HexToECDSA(hexKey)
	if err != nil {
		return nil, apperror.New(apperror.CodeConfigurationError,
			apperror.WithCause(err),
			apperror.WithContext("invalid signing key"))
	}

	return &Local{
		key:       key,
		publicKey: hexutil.Encode(crypto.CompressPubkey(&key.PublicKey)),
	}, nil
}

// PublicKey returns the compressed public key in hex.
func (s *Local) PublicKey() string {
	return s.publicKey
}

// Sign hashes the payload with Keccak-256 and signs the digest. A fresh
// nonce is attached so identical payloads never collide on the bus.
func (s *Local) Sign(_ context.Context, payload []byte) (domain.SignedData, error) {
	digest := crypto.Keccak256(payload)

	sig, err := crypto.Sign(digest, s.key)
	if err != nil {
		return domain.SignedData{}, apperror.New(apperror.CodeIntentSignFailed, apperror.WithCause(err))
	}

	return domain.SignedData{
		Standard:  signStandard,
		Payload:   string(payload),
		Signature: hexutil.Encode(sig),
		PublicKey: s.publicKey,
		Nonce:     uuid.NewString(),
	}, nil
}
