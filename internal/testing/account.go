package testing

import (
	"crypto/sha512"

	"github.com/LeJamon/goAMMd/internal/identity"
)

// Account represents a test participant with a deterministic ledger
// address.
type Account struct {
	// Name is a human-readable identifier, used in assertion messages.
	Name string

	// Address is the base58check ledger address derived from Name.
	Address string

	// ID is the 20-byte account ID behind the address.
	ID identity.AccountID

	id *identity.Identity
}

// NewAccount creates a test account with an address derived
// deterministically from the name. The same name always produces the
// same account, making tests reproducible.
func NewAccount(name string) *Account {
	hash := sha512.Sum512([]byte(name))
	id, err := identity.NewIdentityFromSeed(hash[:16])
	if err != nil {
		panic("failed to derive identity for account " + name + ": " + err.Error())
	}

	return &Account{
		Name:    name,
		Address: id.Address(),
		ID:      id.AccountID(),
		id:      id,
	}
}

// Sign signs the message with the account's private key.
func (a *Account) Sign(message []byte) ([]byte, error) {
	return a.id.Sign(message)
}

// PublicKey returns the compressed public key bytes.
func (a *Account) PublicKey() []byte {
	return a.id.PublicKey()
}

// String implements the Stringer interface for debugging.
func (a *Account) String() string {
	return a.Name + " (" + a.Address + ")"
}
