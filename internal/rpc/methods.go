package rpc

// registerAllMethods registers every RPC method
// This function is called by NewServer to set up the complete method registry
func (s *Server) registerAllMethods() {
	// Pool methods
	s.registry.Register("pool_create", &PoolCreateMethod{svc: s.svc})
	s.registry.Register("pool_add_liquidity", &PoolAddLiquidityMethod{svc: s.svc})
	s.registry.Register("pool_remove_liquidity", &PoolRemoveLiquidityMethod{svc: s.svc})
	s.registry.Register("pool_swap", &PoolSwapMethod{svc: s.svc})
	s.registry.Register("pool_quote", &PoolQuoteMethod{svc: s.svc})
	s.registry.Register("pool_price", &PoolPriceMethod{svc: s.svc})
	s.registry.Register("pool_reserves", &PoolReservesMethod{svc: s.svc})
	s.registry.Register("pool_info", &PoolInfoMethod{svc: s.svc})
	s.registry.Register("pool_list", &PoolListMethod{svc: s.svc})

	// Account methods
	s.registry.Register("account_balances", &AccountBalancesMethod{svc: s.svc})
	s.registry.Register("account_shares", &AccountSharesMethod{svc: s.svc})

	// History methods
	s.registry.Register("history_trades", &HistoryTradesMethod{svc: s.svc})
	s.registry.Register("history_liquidity", &HistoryLiquidityMethod{svc: s.svc})

	// Server methods
	s.registry.Register("server_info", &ServerInfoMethod{svc: s.svc})
	s.registry.Register("events_recent", &EventsRecentMethod{svc: s.svc})
	s.registry.Register("ping", &PingMethod{})
}
