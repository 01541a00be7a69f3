package cli

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/LeJamon/goAMMd/internal/config"
	"github.com/LeJamon/goAMMd/internal/di"
)

// shutdownTimeout bounds how long in-flight HTTP requests may run once a
// stop signal arrives.
const shutdownTimeout = 10 * time.Second

// serverCmd represents the server command (default action)
var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Start the AMM daemon",
	Long: `Start the ammd server which provides:
- HTTP JSON-RPC API endpoints
- WebSocket server for real-time pool event subscriptions
- gRPC query service
- Health check endpoint

This is the default command when no subcommand is specified.`,
	RunE: runServer,
}

func init() {
	rootCmd.AddCommand(serverCmd)

	// Set server as the default command
	rootCmd.RunE = func(cmd *cobra.Command, args []string) error {
		return runServer(cmd, args)
	}
}

func runServer(cmd *cobra.Command, args []string) error {
	if err := setupLogging(cfg); err != nil {
		return err
	}

	if !quiet {
		printBanner(cfg)
	}

	provider := di.NewProvider(di.New(), cfg)
	if err := provider.RegisterAll(); err != nil {
		return err
	}

	svc, err := provider.GetPoolService()
	if err != nil {
		return fmt.Errorf("failed to start pool service: %w", err)
	}

	id, err := provider.GetIdentity()
	if err != nil {
		return err
	}
	log.Printf("Node %s identity %s", cfg.Node.Name, id.Address())

	// The ledger is volatile, so the genesis file is re-applied on
	// every start. Pools restored from the store are left untouched.
	if cfg.GenesisFile != "" {
		gen, err := config.LoadGenesis(cfg.GenesisFile)
		if err != nil {
			return err
		}
		if err := provider.ApplyGenesis(cmd.Context(), gen); err != nil {
			return err
		}
		log.Printf("Applied genesis from %s: %d accounts, %d pools",
			cfg.GenesisFile, len(gen.Accounts), len(gen.Pools))
	}

	info, err := svc.Info(cmd.Context())
	if err != nil {
		return err
	}
	log.Printf("Serving %d pools from sequence %d", info.Pools, info.LastSeq)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)

	var httpSrv *http.Server
	if name, port, ok := cfg.GetRPCPort(); ok {
		handler, err := provider.GetRPCServer()
		if err != nil {
			return err
		}
		httpSrv = &http.Server{
			Addr:    port.GetBindAddress(),
			Handler: handler,
		}
		g.Go(func() error {
			log.Printf("JSON-RPC server (%s) listening on %s", name, httpSrv.Addr)
			if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("rpc server: %w", err)
			}
			return nil
		})
	}

	var wsSrv *http.Server
	wsHandler, err := provider.GetWebSocketServer()
	if err != nil {
		return err
	}
	if name, port, ok := cfg.GetWebSocketPort(); ok {
		wsSrv = &http.Server{
			Addr:    port.GetBindAddress(),
			Handler: wsHandler,
		}
		g.Go(func() error {
			log.Printf("WebSocket server (%s) listening on %s", name, wsSrv.Addr)
			if err := wsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("websocket server: %w", err)
			}
			return nil
		})
	}

	grpcSrv, err := provider.GetGRPCServer()
	if err != nil {
		return err
	}
	if grpcSrv != nil {
		g.Go(func() error {
			if err := grpcSrv.StartAsync(); err != nil {
				return fmt.Errorf("grpc server: %w", err)
			}
			log.Printf("gRPC server listening on %s", grpcSrv.Address())
			<-ctx.Done()
			return nil
		})
	}

	// Periodically evict expired snapshot cache entries
	g.Go(func() error {
		interval := cfg.Events.SweepInterval
		if interval <= 0 {
			interval = 30 * time.Second
		}
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return nil
			case <-ticker.C:
				if err := svc.Sweep(); err != nil {
					log.Printf("Store sweep failed: %v", err)
				}
			}
		}
	})

	// Shutdown sequencing: stop accepting work, drain connections,
	// then close the stores below
	g.Go(func() error {
		<-ctx.Done()
		log.Printf("Shutting down")

		drainCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if httpSrv != nil {
			if err := httpSrv.Shutdown(drainCtx); err != nil {
				log.Printf("RPC server shutdown: %v", err)
			}
		}
		if wsSrv != nil {
			if err := wsSrv.Shutdown(drainCtx); err != nil {
				log.Printf("WebSocket server shutdown: %v", err)
			}
		}
		wsHandler.Close()
		if grpcSrv != nil {
			grpcSrv.Stop()
		}
		return nil
	})

	err = g.Wait()

	if cerr := svc.Close(context.Background()); cerr != nil {
		log.Printf("Service close: %v", cerr)
		if err == nil {
			err = cerr
		}
	}

	if !quiet {
		fmt.Println("Server stopped")
	}
	return err
}

// setupLogging points the standard logger at the configured destination.
func setupLogging(cfg *config.Config) error {
	flags := log.LstdFlags
	if cfg.Log.Debug {
		flags |= log.Lmicroseconds | log.Lshortfile
	}
	log.SetFlags(flags)

	if cfg.Log.File != "" {
		f, err := os.OpenFile(cfg.Log.File, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
		if err != nil {
			return fmt.Errorf("failed to open log file: %w", err)
		}
		log.SetOutput(f)
	}
	return nil
}

func printBanner(cfg *config.Config) {
	fmt.Println("Starting ammd - Automated Market Maker Daemon")
	fmt.Println("=============================================")
	fmt.Println("Server Configuration:")
	if _, port, ok := cfg.GetRPCPort(); ok {
		fmt.Printf("  - HTTP JSON-RPC: http://%s/\n", port.GetBindAddress())
		fmt.Printf("  - Health Check:  http://%s/health\n", port.GetBindAddress())
	}
	if _, port, ok := cfg.GetWebSocketPort(); ok {
		fmt.Printf("  - WebSocket:     ws://%s/\n", port.GetBindAddress())
	}
	if _, port, ok := cfg.GetGRPCPort(); ok {
		fmt.Printf("  - gRPC:          %s\n", port.GetBindAddress())
	}
	fmt.Println()

	if verbose {
		fmt.Println("Storage:")
		fmt.Printf("  - Pool store: %s (%s)\n", cfg.PoolStore.Backend, cfg.PoolStore.Path)
		if cfg.History.Enabled {
			fmt.Printf("  - History:    %s\n", cfg.History.Driver)
		} else {
			fmt.Println("  - History:    disabled")
		}
		if cfg.GenesisFile != "" {
			fmt.Printf("  - Genesis:    %s\n", cfg.GenesisFile)
		}
		fmt.Println()
	}
}
