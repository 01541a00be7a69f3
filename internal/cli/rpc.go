package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/LeJamon/goAMMd/internal/config"
	"github.com/LeJamon/goAMMd/internal/di"
	"github.com/LeJamon/goAMMd/internal/rpc"
)

// rpcCmd represents the rpc command group
var rpcCmd = &cobra.Command{
	Use:   "rpc",
	Short: "RPC client commands",
	Long: `Execute RPC commands locally by calling the same handlers used by the
server. The pool store is opened directly, so state commands persist exactly
as they would through the HTTP API. A running server holds the store lock;
stop it before issuing state commands against the same data directory.`,
}

func init() {
	rootCmd.AddCommand(rpcCmd)
}

// executeMethod builds the service stack, calls an RPC method handler
// directly and pretty prints the result.
func executeMethod(method string, params interface{}) error {
	provider := di.NewProvider(di.New(), cfg)
	if err := provider.RegisterAll(); err != nil {
		return err
	}

	server, err := provider.GetRPCServer()
	if err != nil {
		return err
	}
	defer func() {
		if svc, err := provider.GetPoolService(); err == nil {
			svc.Close(context.Background())
		}
	}()

	// Seed the ledger the same way the server does; account balances
	// only exist through genesis
	if cfg.GenesisFile != "" {
		gen, err := config.LoadGenesis(cfg.GenesisFile)
		if err != nil {
			return err
		}
		if err := provider.ApplyGenesis(context.Background(), gen); err != nil {
			return err
		}
	}

	handler, exists := server.Registry().Get(method)
	if !exists {
		return fmt.Errorf("unknown method: %s", method)
	}

	// Create RPC context (CLI runs as admin role)
	rpcCtx := &rpc.RpcContext{
		Context:  context.Background(),
		Role:     rpc.RoleAdmin,
		ClientIP: "127.0.0.1", // Local CLI
	}

	// Marshal params to JSON if provided
	var paramBytes json.RawMessage
	if params != nil {
		bytes, err := json.Marshal(params)
		if err != nil {
			return fmt.Errorf("failed to marshal parameters: %w", err)
		}
		paramBytes = json.RawMessage(bytes)
	}

	// Call the method handler directly
	result, rpcErr := handler.Handle(rpcCtx, paramBytes)
	if rpcErr != nil {
		return fmt.Errorf("RPC error [%d]: %s", rpcErr.Code, rpcErr.Message)
	}

	// Pretty print the result
	if result != nil {
		prettyJSON, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			fmt.Printf("%+v\n", result)
			return nil
		}
		fmt.Println(string(prettyJSON))
	}

	return nil
}

// pairArgs builds pair parameters from either a single BASE/QUOTE key or
// two asset codes.
func pairArgs(args []string) map[string]interface{} {
	if len(args) == 1 {
		return map[string]interface{}{"pair": args[0]}
	}
	return map[string]interface{}{
		"asset_a": args[0],
		"asset_b": args[1],
	}
}

// =============================================================================
// SERVER COMMANDS
// =============================================================================

var pingCmd = &cobra.Command{
	Use:   "ping",
	Short: "Ping the server",
	RunE: func(cmd *cobra.Command, args []string) error {
		return executeMethod("ping", nil)
	},
}

var serverInfoCmd = &cobra.Command{
	Use:   "server_info",
	Short: "Get server information",
	RunE: func(cmd *cobra.Command, args []string) error {
		return executeMethod("server_info", nil)
	},
}

var eventsRecentCmd = &cobra.Command{
	Use:   "events_recent [pair] [limit]",
	Short: "Get recently committed pool events",
	RunE: func(cmd *cobra.Command, args []string) error {
		var params map[string]interface{}
		if len(args) > 0 {
			params = map[string]interface{}{"pair": args[0]}
			if len(args) > 1 {
				if limit, err := strconv.Atoi(args[1]); err == nil {
					params["limit"] = limit
				}
			}
		}
		return executeMethod("events_recent", params)
	},
}

// =============================================================================
// POOL COMMANDS
// =============================================================================

var poolCreateCmd = &cobra.Command{
	Use:   "pool_create <asset_a> <asset_b>",
	Short: "Create an empty pool for an asset pair",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		params := map[string]interface{}{
			"asset_a": args[0],
			"asset_b": args[1],
		}
		return executeMethod("pool_create", params)
	},
}

var poolAddLiquidityCmd = &cobra.Command{
	Use:   "pool_add_liquidity <provider> <asset_a> <amount_a> <asset_b> <amount_b>",
	Short: "Deposit liquidity and mint shares",
	Args:  cobra.ExactArgs(5),
	RunE: func(cmd *cobra.Command, args []string) error {
		params := map[string]interface{}{
			"provider": args[0],
			"asset_a":  args[1],
			"amount_a": args[2],
			"asset_b":  args[3],
			"amount_b": args[4],
		}
		return executeMethod("pool_add_liquidity", params)
	},
}

var poolRemoveLiquidityCmd = &cobra.Command{
	Use:   "pool_remove_liquidity <provider> <asset_a> <asset_b> <shares>",
	Short: "Burn shares and withdraw liquidity",
	Args:  cobra.ExactArgs(4),
	RunE: func(cmd *cobra.Command, args []string) error {
		params := map[string]interface{}{
			"provider": args[0],
			"asset_a":  args[1],
			"asset_b":  args[2],
			"shares":   args[3],
		}
		return executeMethod("pool_remove_liquidity", params)
	},
}

var poolSwapCmd = &cobra.Command{
	Use:   "pool_swap <trader> <asset_in> <amount_in> <asset_out>",
	Short: "Swap one asset for the other",
	Args:  cobra.ExactArgs(4),
	RunE: func(cmd *cobra.Command, args []string) error {
		params := map[string]interface{}{
			"trader":    args[0],
			"asset_in":  args[1],
			"amount_in": args[2],
			"asset_out": args[3],
		}
		return executeMethod("pool_swap", params)
	},
}

var poolQuoteCmd = &cobra.Command{
	Use:   "pool_quote <asset_in> <amount_in> <asset_out>",
	Short: "Price a swap without executing it",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		params := map[string]interface{}{
			"asset_in":  args[0],
			"amount_in": args[1],
			"asset_out": args[2],
		}
		return executeMethod("pool_quote", params)
	},
}

var poolPriceCmd = &cobra.Command{
	Use:   "pool_price <pair | asset_a asset_b>",
	Short: "Get the marginal price of a pool",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return executeMethod("pool_price", pairArgs(args))
	},
}

var poolReservesCmd = &cobra.Command{
	Use:   "pool_reserves <pair | asset_a asset_b>",
	Short: "Get the reserves of a pool",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return executeMethod("pool_reserves", pairArgs(args))
	},
}

var poolInfoCmd = &cobra.Command{
	Use:   "pool_info <pair | asset_a asset_b>",
	Short: "Get the full state of a pool",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return executeMethod("pool_info", pairArgs(args))
	},
}

var poolListCmd = &cobra.Command{
	Use:   "pool_list",
	Short: "List all pools",
	RunE: func(cmd *cobra.Command, args []string) error {
		return executeMethod("pool_list", nil)
	},
}

// =============================================================================
// ACCOUNT COMMANDS
// =============================================================================

var accountBalancesCmd = &cobra.Command{
	Use:   "account_balances <account>",
	Short: "Get the asset balances of an account",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		params := map[string]interface{}{
			"account": args[0],
		}
		return executeMethod("account_balances", params)
	},
}

var accountSharesCmd = &cobra.Command{
	Use:   "account_shares <account>",
	Short: "Get the pool shares held by an account",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		params := map[string]interface{}{
			"account": args[0],
		}
		return executeMethod("account_shares", params)
	},
}

// =============================================================================
// HISTORY COMMANDS
// =============================================================================

var historyTradesCmd = &cobra.Command{
	Use:   "history_trades <pair> [trader] [limit]",
	Short: "Get executed trades for a pair",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		params := map[string]interface{}{
			"pair": args[0],
		}
		if len(args) > 1 && args[1] != "" {
			params["trader"] = args[1]
		}
		if len(args) > 2 {
			if limit, err := strconv.Atoi(args[2]); err == nil {
				params["limit"] = limit
			}
		}
		return executeMethod("history_trades", params)
	},
}

var historyLiquidityCmd = &cobra.Command{
	Use:   "history_liquidity <provider> [pair] [limit]",
	Short: "Get liquidity changes made by a provider",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		params := map[string]interface{}{
			"provider": args[0],
		}
		if len(args) > 1 && args[1] != "" {
			params["pair"] = args[1]
		}
		if len(args) > 2 {
			if limit, err := strconv.Atoi(args[2]); err == nil {
				params["limit"] = limit
			}
		}
		return executeMethod("history_liquidity", params)
	},
}

// =============================================================================
// GENERIC JSON COMMAND
// =============================================================================

var jsonCmd = &cobra.Command{
	Use:   "json <method> <json_params>",
	Short: "Execute any RPC method with JSON parameters",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		method := args[0]
		jsonParams := args[1]

		var params interface{}
		if err := json.Unmarshal([]byte(jsonParams), &params); err != nil {
			return fmt.Errorf("invalid JSON parameters: %w", err)
		}

		return executeMethod(method, params)
	},
}

// =============================================================================
// ADD ALL COMMANDS
// =============================================================================

func init() {
	// Add all RPC commands organized by category
	rpcCmd.AddCommand(
		// Server commands
		pingCmd,
		serverInfoCmd,
		eventsRecentCmd,

		// Pool commands
		poolCreateCmd,
		poolAddLiquidityCmd,
		poolRemoveLiquidityCmd,
		poolSwapCmd,
		poolQuoteCmd,
		poolPriceCmd,
		poolReservesCmd,
		poolInfoCmd,
		poolListCmd,

		// Account commands
		accountBalancesCmd,
		accountSharesCmd,

		// History commands
		historyTradesCmd,
		historyLiquidityCmd,

		// Generic JSON command
		jsonCmd,
	)
}
