package rpc

import (
	"encoding/json"
	"time"

	"github.com/LeJamon/goAMMd/internal/core/asset"
	"github.com/LeJamon/goAMMd/internal/events"
	"github.com/LeJamon/goAMMd/internal/service"
)

// serverStartTime tracks when the server started for uptime reporting
var serverStartTime = time.Now()

// ServerInfoMethod handles the server_info RPC method
type ServerInfoMethod struct {
	svc *service.Service
}

func (m *ServerInfoMethod) Handle(ctx *RpcContext, params json.RawMessage) (interface{}, *RpcError) {
	info, err := m.svc.Info(ctx.Context)
	if err != nil {
		return nil, RpcErrorFromError(err)
	}

	response := map[string]interface{}{
		"pools":          info.Pools,
		"last_seq":       info.LastSeq,
		"dropped_events": info.DroppedEvents,
		"uptime_seconds": int64(time.Since(serverStartTime).Seconds()),
	}

	if info.StoreStats != nil {
		response["pool_store"] = map[string]interface{}{
			"backend":      info.StoreStats.BackendName,
			"reads":        info.StoreStats.Reads,
			"writes":       info.StoreStats.Writes,
			"cache_hits":   info.StoreStats.CacheHits,
			"cache_misses": info.StoreStats.CacheMisses,
			"cache_size":   info.StoreStats.CacheSize,
		}
	}

	if info.HistoryCounts != nil {
		response["history"] = map[string]interface{}{
			"trades":            info.HistoryCounts.Trades,
			"liquidity_changes": info.HistoryCounts.LiquidityChanges,
		}
	}

	return response, nil
}

func (m *ServerInfoMethod) RequiredRole() Role {
	return RoleGuest
}

// PingMethod handles the ping RPC method
type PingMethod struct{}

func (m *PingMethod) Handle(ctx *RpcContext, params json.RawMessage) (interface{}, *RpcError) {
	// Ping tests connectivity and measures round-trip time; an empty
	// success response is the whole contract.
	return map[string]interface{}{}, nil
}

func (m *PingMethod) RequiredRole() Role {
	return RoleGuest
}

// EventsRecentMethod handles the events_recent RPC method
type EventsRecentMethod struct {
	svc *service.Service
}

func (m *EventsRecentMethod) Handle(ctx *RpcContext, params json.RawMessage) (interface{}, *RpcError) {
	var request struct {
		Pair  string `json:"pair,omitempty"`
		Limit int    `json:"limit,omitempty"`
	}
	if rpcErr := unmarshalParams(params, &request); rpcErr != nil {
		return nil, rpcErr
	}

	key := ""
	if request.Pair != "" {
		pair, err := asset.ParsePair(request.Pair)
		if err != nil {
			return nil, RpcErrorFromError(err)
		}
		key = pair.Key()
	}

	recs := m.svc.Bus().Recent(request.Limit)
	if key != "" {
		filtered := make([]events.Record, 0, len(recs))
		for _, rec := range recs {
			if rec.Pair == key {
				filtered = append(filtered, rec)
			}
		}
		recs = filtered
	}

	return map[string]interface{}{
		"events":   recs,
		"count":    len(recs),
		"last_seq": m.svc.Bus().Seq(),
	}, nil
}

func (m *EventsRecentMethod) RequiredRole() Role {
	return RoleGuest
}
