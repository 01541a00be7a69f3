package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/LeJamon/goAMMd/internal/core/amount"
	"github.com/LeJamon/goAMMd/internal/core/pool"
)

// quoteCmd prices a swap offline against explicit reserves.
var quoteCmd = &cobra.Command{
	Use:   "quote <amount_in> <reserve_in> <reserve_out>",
	Short: "Price a swap against explicit reserves",
	Long: `Compute the output a swap would produce against the given reserves,
using the same fee-adjusted constant product formula as the server:

  floor(amount_in*997*reserve_out / (reserve_in*1000 + amount_in*997))

All values are unsigned decimal integers. No node is contacted and no
state is read or written.`,
	Args: cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		amountIn, err := amount.Parse(args[0])
		if err != nil {
			return fmt.Errorf("invalid amount_in: %w", err)
		}
		reserveIn, err := amount.Parse(args[1])
		if err != nil {
			return fmt.Errorf("invalid reserve_in: %w", err)
		}
		reserveOut, err := amount.Parse(args[2])
		if err != nil {
			return fmt.Errorf("invalid reserve_out: %w", err)
		}

		out, err := pool.Quote(amountIn, reserveIn, reserveOut)
		if err != nil {
			return err
		}

		fmt.Println(out.String())
		return nil
	},
}

func init() {
	rootCmd.AddCommand(quoteCmd)
}
