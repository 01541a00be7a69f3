// Package identity manages keypairs for liquidity providers and traders.
// Each identity is a secp256k1 keypair; its account ID is the
// RIPEMD160(SHA256(...)) hash of the compressed public key, and its
// address is the base58check encoding of that ID.
package identity

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/sha512"
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/ecdsa"
	"github.com/decred/dcrd/crypto/ripemd160"
	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	decdsa "github.com/decred/dcrd/dcrec/secp256k1/v4/ecdsa"
)

var (
	// ErrInvalidPrivateKey is returned when the private key is invalid
	ErrInvalidPrivateKey = errors.New("invalid private key")
	// ErrInvalidPublicKey is returned when the public key is invalid
	ErrInvalidPublicKey = errors.New("invalid public key")
	// ErrInvalidSignature is returned when a signature does not verify
	ErrInvalidSignature = errors.New("invalid signature")
	// ErrSignatureFailed is returned when signing fails
	ErrSignatureFailed = errors.New("failed to sign message")
)

// AccountIDSize is the size of an account ID in bytes.
const AccountIDSize = 20

// AccountID uniquely identifies an account, derived from its public key.
type AccountID [AccountIDSize]byte

// Identity represents an account's cryptographic identity.
type Identity struct {
	privateKey *btcec.PrivateKey
	publicKey  *btcec.PublicKey
}

// NewIdentity creates a new random identity.
func NewIdentity() (*Identity, error) {
	privateKey, err := btcec.NewPrivateKey()
	if err != nil {
		return nil, fmt.Errorf("failed to generate private key: %w", err)
	}

	return &Identity{
		privateKey: privateKey,
		publicKey:  privateKey.PubKey(),
	}, nil
}

// NewIdentityFromSeed creates an identity from a seed of at least 16 bytes.
func NewIdentityFromSeed(seed []byte) (*Identity, error) {
	if len(seed) < 16 {
		return nil, errors.New("seed must be at least 16 bytes")
	}

	// Derive private key from seed using SHA-512
	h := sha512.New()
	h.Write(seed)
	hash := h.Sum(nil)

	privateKey, _ := btcec.PrivKeyFromBytes(hash[:32])

	return &Identity{
		privateKey: privateKey,
		publicKey:  privateKey.PubKey(),
	}, nil
}

// NewIdentityFromPrivateKey creates an identity from a hex-encoded private key.
func NewIdentityFromPrivateKey(privKeyHex string) (*Identity, error) {
	// Must have content
	if len(privKeyHex) == 0 {
		return nil, ErrInvalidPrivateKey
	}

	// Remove 00 prefix if present
	if len(privKeyHex) == 66 && privKeyHex[:2] == "00" {
		privKeyHex = privKeyHex[2:]
	}

	// Must be exactly 64 hex chars (32 bytes) after removing prefix
	if len(privKeyHex) != 64 {
		return nil, ErrInvalidPrivateKey
	}

	privKeyBytes, err := hex.DecodeString(privKeyHex)
	if err != nil {
		return nil, ErrInvalidPrivateKey
	}

	privateKey, _ := btcec.PrivKeyFromBytes(privKeyBytes)
	if privateKey == nil {
		return nil, ErrInvalidPrivateKey
	}

	return &Identity{
		privateKey: privateKey,
		publicKey:  privateKey.PubKey(),
	}, nil
}

// GenerateSeed generates a random 16-byte seed for identity creation.
func GenerateSeed() ([]byte, error) {
	seed := make([]byte, 16)
	_, err := rand.Read(seed)
	if err != nil {
		return nil, fmt.Errorf("failed to generate random seed: %w", err)
	}
	return seed, nil
}

// Sign signs a message with the identity's private key.
// The message is hashed with SHA-512 and the first 32 bytes are signed;
// the signature is returned in DER format.
func (i *Identity) Sign(message []byte) ([]byte, error) {
	if i.privateKey == nil {
		return nil, ErrInvalidPrivateKey
	}

	sig := ecdsa.Sign(i.privateKey, messageDigest(message))
	if sig == nil {
		return nil, ErrSignatureFailed
	}

	return sig.Serialize(), nil
}

// Verify checks a DER signature over message against a compressed public key.
func Verify(pubKey, message, signature []byte) error {
	pub, err := secp256k1.ParsePubKey(pubKey)
	if err != nil {
		return ErrInvalidPublicKey
	}

	sig, err := decdsa.ParseDERSignature(signature)
	if err != nil {
		return ErrInvalidSignature
	}

	if !sig.Verify(messageDigest(message), pub) {
		return ErrInvalidSignature
	}
	return nil
}

// PublicKey returns the raw compressed public key bytes.
func (i *Identity) PublicKey() []byte {
	return i.publicKey.SerializeCompressed()
}

// PublicKeyHex returns the public key as a hex string.
func (i *Identity) PublicKeyHex() string {
	return hex.EncodeToString(i.publicKey.SerializeCompressed())
}

// PrivateKeyHex returns the private key as a hex string (with 00 prefix).
func (i *Identity) PrivateKeyHex() string {
	return "00" + hex.EncodeToString(i.privateKey.Serialize())
}

// AccountID returns the account ID derived from the identity's public key.
func (i *Identity) AccountID() AccountID {
	return CalcAccountID(i.publicKey.SerializeCompressed())
}

// Address returns the identity's base58check-encoded address.
func (i *Identity) Address() string {
	return EncodeAddress(i.AccountID())
}

// CalcAccountID computes the account ID for a compressed public key:
// RIPEMD160(SHA256(publicKey)).
func CalcAccountID(publicKey []byte) AccountID {
	sha := sha256.Sum256(publicKey)

	r := ripemd160.New()
	r.Write(sha[:])

	var id AccountID
	copy(id[:], r.Sum(nil))
	return id
}

// messageDigest hashes a message with SHA-512 and returns the first 32 bytes.
func messageDigest(message []byte) []byte {
	h := sha512.Sum512(message)
	return h[:32]
}

// doubleSHA256 computes SHA256(SHA256(data)).
func doubleSHA256(data []byte) []byte {
	h := sha256.New()
	h.Write(data)
	first := h.Sum(nil)

	h.Reset()
	h.Write(first)
	return h.Sum(nil)
}
