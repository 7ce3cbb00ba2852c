package signing

import (
	"crypto/ecdsa"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
)

// Signer signs action payloads with the owner's key using the personal_sign scheme.
type Signer struct {
	privateKey *ecdsa.PrivateKey
	address    common.Address
}

// NewSigner parses a hex private key (with or without 0x prefix).
func NewSigner(privateKeyHex string) (*Signer, error) {
	privateKey, err := crypto.HexToECDSA(strings.TrimPrefix(privateKeyHex, "0x"))
	if err != nil {
		return nil, fmt.Errorf("parse private key: %w", err)
	}

	return &Signer{
		privateKey: privateKey,
		address:    crypto.PubkeyToAddress(privateKey.PublicKey),
	}, nil
}

// Address returns the checksummed signer address.
func (s *Signer) Address() string {
	return s.address.Hex()
}

// Sign returns the 0x-prefixed 65-byte signature of payload.
// The recovery id is shifted to 27/28 as wallets do.
func (s *Signer) Sign(payload string) (string, error) {
	sig, err := crypto.Sign(accounts.TextHash([]byte(payload)), s.privateKey)
	if err != nil {
		return "", fmt.Errorf("sign payload: %w", err)
	}
	sig[crypto.RecoveryIDOffset] += 27

	return hexutil.Encode(sig), nil
}

// Recover returns the address that produced signature over payload.
func Recover(payload, signature string) (string, error) {
	sig, err := hexutil.Decode(signature)
	if err != nil {
		return "", fmt.Errorf("decode signature: %w", err)
	}
	if len(sig) != crypto.SignatureLength {
		return "", fmt.Errorf("invalid signature length %d", len(sig))
	}
	if sig[crypto.RecoveryIDOffset] >= 27 {
		sig[crypto.RecoveryIDOffset] -= 27
	}

	pub, err := crypto.SigToPub(accounts.TextHash([]byte(payload)), sig)
	if err != nil {
		return "", fmt.Errorf("recover public key: %w", err)
	}

	return crypto.PubkeyToAddress(*pub).Hex(), nil
}
