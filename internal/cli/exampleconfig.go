package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/LeJamon/goAMMd/internal/config"
)

var exampleGenesisPath string

// exampleConfigCmd writes a starter configuration file.
var exampleConfigCmd = &cobra.Command{
	Use:   "example-config [path]",
	Short: "Write an example configuration file",
	Long: `Write an example ammd.toml to the given path (default ` + config.DefaultConfigFile + `).
With --genesis, also write an example genesis JSON file with two funded
accounts and one pre-created pool. Existing files are never overwritten.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := config.DefaultConfigFile
		if len(args) > 0 {
			path = args[0]
		}

		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("%s already exists, refusing to overwrite", path)
		}
		if err := config.SaveExampleConfig(path); err != nil {
			return err
		}
		fmt.Printf("Wrote example configuration to %s\n", path)

		if exampleGenesisPath != "" {
			if _, err := os.Stat(exampleGenesisPath); err == nil {
				return fmt.Errorf("%s already exists, refusing to overwrite", exampleGenesisPath)
			}
			if err := config.SaveExampleGenesis(exampleGenesisPath); err != nil {
				return err
			}
			fmt.Printf("Wrote example genesis to %s\n", exampleGenesisPath)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(exampleConfigCmd)

	exampleConfigCmd.Flags().StringVar(&exampleGenesisPath, "genesis", "", "also write an example genesis file to this path")
}
