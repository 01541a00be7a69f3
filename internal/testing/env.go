package testing

import (
	"context"
	"math/big"
	"path/filepath"
	"testing"
	"time"

	"github.com/LeJamon/goAMMd/internal/core/amount"
	"github.com/LeJamon/goAMMd/internal/core/asset"
	"github.com/LeJamon/goAMMd/internal/core/ledger"
	"github.com/LeJamon/goAMMd/internal/events"
	"github.com/LeJamon/goAMMd/internal/service"
	"github.com/LeJamon/goAMMd/internal/storage/history"
	"github.com/LeJamon/goAMMd/internal/storage/poolstore"
)

// feedBuffer sizes the environment's event subscription. Scenario tests
// drain it between steps, so it only has to absorb one step's records.
const feedBuffer = 512

// TestEnv manages a fully wired pool deployment for tests: a memory
// ledger, an event bus, a pool store, an in-memory trade history and
// the service in front of them.
type TestEnv struct {
	t        *testing.T
	ctx      context.Context
	accounts map[string]*Account

	book *ledger.Memory
	bus  *events.Bus
	svc  *service.Service
	feed *events.Subscription

	// storeCfg is set for backed environments and reused by Restart.
	storeCfg *poolstore.Config
}

// NewTestEnv creates a test environment with every store in memory.
func NewTestEnv(t *testing.T) *TestEnv {
	t.Helper()
	return newTestEnv(t, nil)
}

// NewTestEnvBacked creates a test environment whose pool store lives on
// disk under t.TempDir(). Use it for scenarios that call Restart.
func NewTestEnvBacked(t *testing.T) *TestEnv {
	t.Helper()

	cfg := poolstore.DefaultConfig()
	cfg.Path = filepath.Join(t.TempDir(), "poolstore")
	cfg.SyncWrites = false
	return newTestEnv(t, cfg)
}

func newTestEnv(t *testing.T, storeCfg *poolstore.Config) *TestEnv {
	t.Helper()

	env := &TestEnv{
		t:        t,
		ctx:      context.Background(),
		accounts: make(map[string]*Account),
		storeCfg: storeCfg,
	}
	env.start()
	t.Cleanup(env.shutdown)
	return env
}

// start wires a fresh ledger, bus and service, reopening the pool store
// for backed environments and restoring whatever it holds.
func (e *TestEnv) start() {
	e.t.Helper()

	bus, err := events.NewBus(feedBuffer)
	if err != nil {
		e.t.Fatalf("Failed to create event bus: %v", err)
	}

	var store poolstore.Store
	if e.storeCfg != nil {
		st, err := poolstore.Open(e.storeCfg)
		if err != nil {
			e.t.Fatalf("Failed to open pool store: %v", err)
		}
		store = st
	} else {
		backend := poolstore.NewMemoryBackend()
		if err := backend.Open(true); err != nil {
			e.t.Fatalf("Failed to open memory backend: %v", err)
		}
		store = poolstore.NewStore(backend, 128, time.Hour)
	}

	hist, err := history.Open(e.ctx, history.MemoryConfig())
	if err != nil {
		e.t.Fatalf("Failed to open history store: %v", err)
	}

	book := ledger.NewMemory()
	svc, err := service.New(service.Options{
		Ledger:  book,
		Bus:     bus,
		Store:   store,
		History: hist,
	})
	if err != nil {
		e.t.Fatalf("Failed to create service: %v", err)
	}
	if err := svc.Restore(e.ctx); err != nil {
		e.t.Fatalf("Failed to restore pools: %v", err)
	}

	e.book = book
	e.bus = bus
	e.svc = svc
	e.feed = bus.Subscribe("", feedBuffer)
}

func (e *TestEnv) shutdown() {
	if e.feed != nil {
		e.feed.Close()
	}
	if e.svc != nil {
		e.svc.Close(e.ctx)
	}
}

// Restart tears the service down and rebuilds it from the pool store,
// the way a process restart would. Only pool state is persisted: account
// balances reset, pool accounts are re-funded to match their restored
// reserves, and share positions survive inside the snapshots.
func (e *TestEnv) Restart() {
	e.t.Helper()

	if e.storeCfg == nil {
		e.t.Fatal("Restart requires a backed environment, use NewTestEnvBacked")
	}
	e.shutdown()
	e.start()
}

// Service returns the service under test, for error-path calls the
// helpers do not cover.
func (e *TestEnv) Service() *service.Service {
	return e.svc
}

// Ledger returns the memory ledger backing the environment.
func (e *TestEnv) Ledger() *ledger.Memory {
	return e.book
}

// Bus returns the event bus.
func (e *TestEnv) Bus() *events.Bus {
	return e.bus
}

// Context returns the context the environment runs operations under.
func (e *TestEnv) Context() context.Context {
	return e.ctx
}

// register remembers an account so invariant checks can enumerate every
// potential share holder.
func (e *TestEnv) register(accounts ...*Account) {
	for _, acc := range accounts {
		e.accounts[acc.Name] = acc
	}
}

// Fund mints amt of the asset into each account and registers the
// accounts with the environment.
func (e *TestEnv) Fund(a asset.Asset, amt amount.Amount, accounts ...*Account) {
	e.t.Helper()

	e.register(accounts...)
	for _, acc := range accounts {
		if err := e.book.Mint(a, acc.Address, amt); err != nil {
			e.t.Fatalf("Failed to fund %s with %s %s: %v", acc.Name, amt, a, err)
		}
	}
}

// CreatePool registers an empty pool for the two assets and returns the
// canonical pair.
func (e *TestEnv) CreatePool(a, b asset.Asset) (asset.Pair, error) {
	e.t.Helper()

	info, err := e.svc.CreatePool(e.ctx, a, b)
	if err != nil {
		return asset.Pair{}, err
	}
	return asset.ParsePair(info.Pair)
}

// AddLiquidity deposits both assets for the account. Asset order does
// not matter; each amount follows its asset.
func (e *TestEnv) AddLiquidity(acc *Account, x asset.Asset, amountX amount.Amount, y asset.Asset, amountY amount.Amount) (service.LiquidityResult, error) {
	e.t.Helper()

	e.register(acc)
	return e.svc.AddLiquidity(e.ctx, acc.Address, x, amountX, y, amountY)
}

// RemoveLiquidity burns the account's shares in the pair's pool.
func (e *TestEnv) RemoveLiquidity(acc *Account, x, y asset.Asset, shares amount.Amount) (service.LiquidityResult, error) {
	e.t.Helper()

	e.register(acc)
	return e.svc.RemoveLiquidity(e.ctx, acc.Address, x, y, shares)
}

// Swap sells amountIn of assetIn for assetOut on the pair's pool.
func (e *TestEnv) Swap(acc *Account, assetIn asset.Asset, amountIn amount.Amount, assetOut asset.Asset) (service.SwapResult, error) {
	e.t.Helper()

	e.register(acc)
	return e.svc.Swap(e.ctx, acc.Address, assetIn, amountIn, assetOut)
}

// Quote prices a swap without executing it.
func (e *TestEnv) Quote(assetIn asset.Asset, amountIn amount.Amount, assetOut asset.Asset) (service.QuoteResult, error) {
	e.t.Helper()
	return e.svc.Quote(e.ctx, assetIn, amountIn, assetOut)
}

// Balance returns the account's ledger balance in the asset.
func (e *TestEnv) Balance(acc *Account, a asset.Asset) amount.Amount {
	e.t.Helper()
	return e.book.Balance(a, acc.Address)
}

// Shares returns the account's share balance in the pair's pool.
func (e *TestEnv) Shares(acc *Account, a, b asset.Asset) amount.Amount {
	e.t.Helper()

	held, err := e.svc.SharesOf(e.ctx, a, b, acc.Address)
	if err != nil {
		e.t.Fatalf("Failed to read %s shares in %s/%s: %v", acc.Name, a, b, err)
	}
	return held
}

// TotalShares returns the outstanding shares of the pair's pool.
func (e *TestEnv) TotalShares(a, b asset.Asset) amount.Amount {
	e.t.Helper()

	info, err := e.svc.PoolInfo(e.ctx, a, b)
	if err != nil {
		e.t.Fatalf("Failed to describe pool %s/%s: %v", a, b, err)
	}
	return info.TotalShares
}

// Reserves returns the pool's reserves in the order the assets are
// named, regardless of the pair's canonical order.
func (e *TestEnv) Reserves(a, b asset.Asset) (amount.Amount, amount.Amount) {
	e.t.Helper()

	res, err := e.svc.Reserves(e.ctx, a, b)
	if err != nil {
		e.t.Fatalf("Failed to read reserves of %s/%s: %v", a, b, err)
	}
	if res.AssetA == a {
		return res.ReserveA, res.ReserveB
	}
	return res.ReserveB, res.ReserveA
}

// Price returns the pair's marginal price, quote per base scaled by
// 1e18.
func (e *TestEnv) Price(a, b asset.Asset) (amount.Amount, error) {
	e.t.Helper()

	res, err := e.svc.Price(e.ctx, a, b)
	if err != nil {
		return amount.Zero(), err
	}
	return res.Price, nil
}

// Product returns reserveA*reserveB as a big integer. The product of two
// 256-bit reserves can exceed 256 bits, so it is not an Amount.
func (e *TestEnv) Product(a, b asset.Asset) *big.Int {
	e.t.Helper()

	reserveA, reserveB := e.Reserves(a, b)
	return new(big.Int).Mul(reserveA.BigInt(), reserveB.BigInt())
}

// PoolAccount returns the ledger account holding the pair's reserves.
func (e *TestEnv) PoolAccount(a, b asset.Asset) string {
	e.t.Helper()

	pair, err := asset.NewPair(a, b)
	if err != nil {
		e.t.Fatalf("Invalid pair %s/%s: %v", a, b, err)
	}
	return service.PoolAccount(pair)
}

// Events drains and returns every record buffered on the environment's
// feed since the last drain.
func (e *TestEnv) Events() []events.Record {
	e.t.Helper()

	var records []events.Record
	for {
		select {
		case rec := <-e.feed.C:
			records = append(records, rec)
		default:
			return records
		}
	}
}
