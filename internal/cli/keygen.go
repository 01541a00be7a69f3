package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/LeJamon/goAMMd/internal/identity"
)

var keygenSeed string

// keygenCmd generates node key material.
var keygenCmd = &cobra.Command{
	Use:   "keygen",
	Short: "Generate a node identity",
	Long: `Generate a secp256k1 node identity and print its address, public key
and private key. With --seed the identity is derived deterministically, so
the same seed always yields the same keys. The private key or seed can be
placed in the [node] section of the configuration.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		var (
			id  *identity.Identity
			err error
		)
		if keygenSeed != "" {
			id, err = identity.NewIdentityFromSeed([]byte(keygenSeed))
		} else {
			id, err = identity.NewIdentity()
		}
		if err != nil {
			return err
		}

		fmt.Printf("Address:     %s\n", id.Address())
		fmt.Printf("Public key:  %s\n", id.PublicKeyHex())
		fmt.Printf("Private key: %s\n", id.PrivateKeyHex())
		return nil
	},
}

func init() {
	rootCmd.AddCommand(keygenCmd)

	keygenCmd.Flags().StringVar(&keygenSeed, "seed", "", "derive the identity from this seed instead of random bytes")
}
