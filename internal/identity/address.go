package identity

import (
	"bytes"
	"errors"
	"fmt"
	"math/big"
)

// ErrInvalidAddress is returned when an address fails to decode
var ErrInvalidAddress = errors.New("invalid address")

// addressVersion is the one-byte version prefix for encoded account IDs.
// 0x17 makes every address start with 'A'.
const addressVersion = 0x17

// checksumSize is the number of double-SHA256 bytes appended to the payload.
const checksumSize = 4

// alphabet is the base58 character set, excluding 0, O, I and l.
const alphabet = "123456789ABCDEFGHJKLMNPQRSTUVWXYZabcdefghijkmnopqrstuvwxyz"

var alphabetIndex ['z' + 1]int8

func init() {
	for i := range alphabetIndex {
		alphabetIndex[i] = -1
	}
	for i := 0; i < len(alphabet); i++ {
		alphabetIndex[alphabet[i]] = int8(i)
	}
}

// EncodeAddress encodes an account ID as a base58check address:
// version byte, account ID, then the first 4 bytes of a double SHA-256.
func EncodeAddress(id AccountID) string {
	payload := make([]byte, 1+AccountIDSize)
	payload[0] = addressVersion
	copy(payload[1:], id[:])

	checksum := doubleSHA256(payload)[:checksumSize]
	full := append(payload, checksum...)

	return EncodeBase58(full)
}

// DecodeAddress decodes a base58check address back into an account ID,
// validating the version byte and checksum.
func DecodeAddress(address string) (AccountID, error) {
	var id AccountID

	decoded, err := DecodeBase58(address)
	if err != nil {
		return id, fmt.Errorf("%w: %v", ErrInvalidAddress, err)
	}
	if len(decoded) != 1+AccountIDSize+checksumSize {
		return id, fmt.Errorf("%w: decoded length %d", ErrInvalidAddress, len(decoded))
	}
	if decoded[0] != addressVersion {
		return id, fmt.Errorf("%w: unknown version byte 0x%02x", ErrInvalidAddress, decoded[0])
	}

	payload := decoded[:1+AccountIDSize]
	checksum := decoded[1+AccountIDSize:]
	if !bytes.Equal(checksum, doubleSHA256(payload)[:checksumSize]) {
		return id, fmt.Errorf("%w: checksum mismatch", ErrInvalidAddress)
	}

	copy(id[:], payload[1:])
	return id, nil
}

// String returns the account ID's base58check address.
func (id AccountID) String() string {
	return EncodeAddress(id)
}

// EncodeBase58 encodes bytes using the package alphabet. Leading zero
// bytes are preserved as leading '1' characters.
func EncodeBase58(input []byte) string {
	x := new(big.Int).SetBytes(input)
	base := big.NewInt(58)
	mod := new(big.Int)

	var out []byte
	for x.Sign() > 0 {
		x.DivMod(x, base, mod)
		out = append(out, alphabet[mod.Int64()])
	}

	for _, b := range input {
		if b != 0 {
			break
		}
		out = append(out, alphabet[0])
	}

	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return string(out)
}

// DecodeBase58 decodes a string using the package alphabet.
func DecodeBase58(input string) ([]byte, error) {
	x := new(big.Int)
	base := big.NewInt(58)
	digit := new(big.Int)

	for _, c := range input {
		if c > 'z' || alphabetIndex[c] < 0 {
			return nil, fmt.Errorf("invalid base58 character %q", c)
		}
		digit.SetInt64(int64(alphabetIndex[c]))
		x.Mul(x, base)
		x.Add(x, digit)
	}

	decoded := x.Bytes()

	// Leading '1' characters map back to leading zero bytes
	zeros := 0
	for zeros < len(input) && input[zeros] == alphabet[0] {
		zeros++
	}

	out := make([]byte, zeros+len(decoded))
	copy(out[zeros:], decoded)
	return out, nil
}
