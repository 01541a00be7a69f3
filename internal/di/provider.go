package di

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/LeJamon/goAMMd/internal/config"
	"github.com/LeJamon/goAMMd/internal/core/amount"
	"github.com/LeJamon/goAMMd/internal/core/asset"
	"github.com/LeJamon/goAMMd/internal/core/ledger"
	"github.com/LeJamon/goAMMd/internal/events"
	"github.com/LeJamon/goAMMd/internal/grpc"
	"github.com/LeJamon/goAMMd/internal/identity"
	"github.com/LeJamon/goAMMd/internal/rpc"
	"github.com/LeJamon/goAMMd/internal/service"
	"github.com/LeJamon/goAMMd/internal/storage/history"
	"github.com/LeJamon/goAMMd/internal/storage/poolstore"
)

// Provider configures and registers services in the container.
type Provider struct {
	container *Container
	config    *config.Config
}

// NewProvider creates a new service provider.
func NewProvider(container *Container, cfg *config.Config) *Provider {
	return &Provider{
		container: container,
		config:    cfg,
	}
}

// RegisterAll registers all services.
func (p *Provider) RegisterAll() error {
	// Register config
	p.container.Register(ServiceConfig, p.config)

	// Register builders for lazy instantiation
	p.registerStorageBuilders()
	p.registerCoreBuilders()
	p.registerServerBuilders()

	return nil
}

// registerStorageBuilders registers storage service builders.
func (p *Provider) registerStorageBuilders() {
	// Pool store builder
	p.container.RegisterBuilder(ServicePoolStore, func(c *Container) (interface{}, error) {
		return poolstore.Open(p.config.PoolStore.ToStoreConfig())
	})

	// History store builder
	p.container.RegisterBuilder(ServiceHistory, func(c *Container) (interface{}, error) {
		cfg := p.config.History.ToStoreConfig()
		if cfg == nil {
			return nil, nil // History disabled
		}
		return history.Open(context.Background(), cfg)
	})
}

// registerCoreBuilders registers the ledger, event bus and pool service
// builders.
func (p *Provider) registerCoreBuilders() {
	// Node identity builder
	p.container.RegisterBuilder(ServiceIdentity, func(c *Container) (interface{}, error) {
		return p.config.Node.Identity()
	})

	// Ledger builder
	p.container.RegisterBuilder(ServiceLedger, func(c *Container) (interface{}, error) {
		return ledger.NewMemory(), nil
	})

	// Event bus builder
	p.container.RegisterBuilder(ServiceBus, func(c *Container) (interface{}, error) {
		return events.NewBus(p.config.Events.Buffer)
	})

	// Pool service builder
	p.container.RegisterBuilder(ServicePoolService, func(c *Container) (interface{}, error) {
		led, err := c.Get(ServiceLedger)
		if err != nil {
			return nil, err
		}

		bus, err := c.Get(ServiceBus)
		if err != nil {
			return nil, err
		}

		store, err := c.Get(ServicePoolStore)
		if err != nil {
			return nil, err
		}

		hist, err := c.Get(ServiceHistory)
		if err != nil {
			return nil, err
		}

		opts := service.Options{
			Ledger: led.(service.Ledger),
			Bus:    bus.(*events.Bus),
			Store:  store.(poolstore.Store),
		}
		if hist != nil {
			opts.History = hist.(history.Store)
		}

		svc, err := service.New(opts)
		if err != nil {
			return nil, err
		}

		// Rebuild pools from the last committed snapshots before
		// anyone sees the service
		if err := svc.Restore(context.Background()); err != nil {
			return nil, err
		}

		return svc, nil
	})
}

// registerServerBuilders registers the RPC, WebSocket and gRPC server
// builders.
func (p *Provider) registerServerBuilders() {
	// HTTP JSON-RPC server builder
	p.container.RegisterBuilder(ServiceRPCServer, func(c *Container) (interface{}, error) {
		svc, err := c.Get(ServicePoolService)
		if err != nil {
			return nil, err
		}
		return rpc.NewServer(svc.(*service.Service), 0), nil
	})

	// WebSocket server builder, dispatching into the RPC registry
	p.container.RegisterBuilder(ServiceWSServer, func(c *Container) (interface{}, error) {
		svc, err := c.Get(ServicePoolService)
		if err != nil {
			return nil, err
		}

		rpcSrv, err := c.Get(ServiceRPCServer)
		if err != nil {
			return nil, err
		}

		limit := 0
		if _, port, ok := p.config.GetWebSocketPort(); ok {
			limit = port.SendQueueLimit
		}

		return rpc.NewWebSocketServer(svc.(*service.Service), rpcSrv.(*rpc.Server).Registry(), limit), nil
	})

	// gRPC query server builder
	p.container.RegisterBuilder(ServiceGRPCServer, func(c *Container) (interface{}, error) {
		_, port, ok := p.config.GetGRPCPort()
		if !ok {
			return nil, nil // No gRPC port configured
		}

		svc, err := c.Get(ServicePoolService)
		if err != nil {
			return nil, err
		}

		cfg := grpc.DefaultServerConfig()
		cfg.Address = port.GetBindAddress()
		return grpc.NewServer(cfg, svc.(*service.Service))
	})
}

// ApplyGenesis funds the genesis accounts and creates the genesis pools.
// The ledger is not persisted, so account funding runs on every start;
// pools already restored from the pool store are left untouched.
func (p *Provider) ApplyGenesis(ctx context.Context, gen *config.Genesis) error {
	if gen == nil {
		return nil
	}

	svc, err := p.GetPoolService()
	if err != nil {
		return err
	}

	led, err := p.container.Get(ServiceLedger)
	if err != nil {
		return err
	}
	bank := led.(service.Ledger)

	for _, acc := range gen.Accounts {
		for code, balance := range acc.Balances {
			amt, err := amount.Parse(balance)
			if err != nil {
				return fmt.Errorf("genesis account %s: %w", acc.Account, err)
			}
			if err := bank.Mint(asset.Asset(code), acc.Account, amt); err != nil {
				return fmt.Errorf("genesis account %s: %w", acc.Account, err)
			}
		}
	}

	for _, gp := range gen.Pools {
		a, b := asset.Asset(gp.AssetA), asset.Asset(gp.AssetB)

		if _, err := svc.CreatePool(ctx, a, b); err != nil {
			if errors.Is(err, service.ErrPoolExists) {
				log.Printf("Genesis pool %s/%s already exists, skipping", gp.AssetA, gp.AssetB)
				continue
			}
			return fmt.Errorf("genesis pool %s/%s: %w", gp.AssetA, gp.AssetB, err)
		}

		amtA, err := amount.Parse(gp.AmountA)
		if err != nil {
			return fmt.Errorf("genesis pool %s/%s: %w", gp.AssetA, gp.AssetB, err)
		}
		amtB, err := amount.Parse(gp.AmountB)
		if err != nil {
			return fmt.Errorf("genesis pool %s/%s: %w", gp.AssetA, gp.AssetB, err)
		}

		if _, err := svc.AddLiquidity(ctx, gp.Provider, a, amtA, b, amtB); err != nil {
			return fmt.Errorf("genesis pool %s/%s: %w", gp.AssetA, gp.AssetB, err)
		}
	}

	return nil
}

// GetPoolService returns the pool service from the container.
func (p *Provider) GetPoolService() (*service.Service, error) {
	svc, err := p.container.Get(ServicePoolService)
	if err != nil {
		return nil, err
	}
	return svc.(*service.Service), nil
}

// GetIdentity returns the node identity from the container.
func (p *Provider) GetIdentity() (*identity.Identity, error) {
	id, err := p.container.Get(ServiceIdentity)
	if err != nil {
		return nil, err
	}
	return id.(*identity.Identity), nil
}

// GetRPCServer returns the HTTP JSON-RPC server from the container.
func (p *Provider) GetRPCServer() (*rpc.Server, error) {
	srv, err := p.container.Get(ServiceRPCServer)
	if err != nil {
		return nil, err
	}
	return srv.(*rpc.Server), nil
}

// GetWebSocketServer returns the WebSocket server from the container.
func (p *Provider) GetWebSocketServer() (*rpc.WebSocketServer, error) {
	srv, err := p.container.Get(ServiceWSServer)
	if err != nil {
		return nil, err
	}
	return srv.(*rpc.WebSocketServer), nil
}

// GetGRPCServer returns the gRPC server from the container, or nil when
// no gRPC port is configured.
func (p *Provider) GetGRPCServer() (*grpc.Server, error) {
	srv, err := p.container.Get(ServiceGRPCServer)
	if err != nil || srv == nil {
		return nil, err
	}
	return srv.(*grpc.Server), nil
}

// GetConfig returns the configuration from the container.
func (p *Provider) GetConfig() *config.Config {
	return p.config
}
