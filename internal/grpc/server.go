package grpc

import (
	"context"
	"errors"
	"log"
	"net"
	"sync"
	"time"

	"github.com/LeJamon/goAMMd/internal/core/amount"
	"github.com/LeJamon/goAMMd/internal/core/asset"
	"github.com/LeJamon/goAMMd/internal/service"
	"github.com/LeJamon/goAMMd/internal/storage/history"
	"google.golang.org/grpc"
)

// PoolServiceInterface defines the interface for pool operations needed
// by the gRPC handlers. This interface is implemented by
// *service.Service.
type PoolServiceInterface interface {
	// PoolInfo returns the state summary of one pool
	PoolInfo(ctx context.Context, a, b asset.Asset) (service.PoolInfo, error)

	// ListPools returns summaries of all pools sorted by pair key
	ListPools(ctx context.Context) ([]service.PoolInfo, error)

	// Quote computes a swap output without executing it
	Quote(ctx context.Context, assetIn asset.Asset, amountIn amount.Amount, assetOut asset.Asset) (service.QuoteResult, error)

	// Price returns the marginal price of a pool
	Price(ctx context.Context, a, b asset.Asset) (service.PriceResult, error)

	// History returns the trade history store, nil when disabled
	History() history.Store
}

// ServiceName is the fully qualified name the pool query service is
// registered under.
const ServiceName = "ammd.v1.PoolQuery"

// poolQueryServer is the method set poolQueryServiceDesc dispatches to.
type poolQueryServer interface {
	GetPool(context.Context, *GetPoolRequest) (*GetPoolResponse, error)
	ListPools(context.Context, *ListPoolsRequest) (*ListPoolsResponse, error)
	GetQuote(context.Context, *GetQuoteRequest) (*GetQuoteResponse, error)
	GetPrice(context.Context, *GetPriceRequest) (*GetPriceResponse, error)
	GetHistory(context.Context, *GetHistoryRequest) (*GetHistoryResponse, error)
}

func _PoolQuery_GetPool_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(GetPoolRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(poolQueryServer).GetPool(ctx, in)
	}
	info := &grpc.UnaryServerInfo{
		Server:     srv,
		FullMethod: "/" + ServiceName + "/GetPool",
	}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(poolQueryServer).GetPool(ctx, req.(*GetPoolRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func _PoolQuery_ListPools_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(ListPoolsRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(poolQueryServer).ListPools(ctx, in)
	}
	info := &grpc.UnaryServerInfo{
		Server:     srv,
		FullMethod: "/" + ServiceName + "/ListPools",
	}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(poolQueryServer).ListPools(ctx, req.(*ListPoolsRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func _PoolQuery_GetQuote_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(GetQuoteRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(poolQueryServer).GetQuote(ctx, in)
	}
	info := &grpc.UnaryServerInfo{
		Server:     srv,
		FullMethod: "/" + ServiceName + "/GetQuote",
	}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(poolQueryServer).GetQuote(ctx, req.(*GetQuoteRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func _PoolQuery_GetPrice_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(GetPriceRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(poolQueryServer).GetPrice(ctx, in)
	}
	info := &grpc.UnaryServerInfo{
		Server:     srv,
		FullMethod: "/" + ServiceName + "/GetPrice",
	}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(poolQueryServer).GetPrice(ctx, req.(*GetPriceRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func _PoolQuery_GetHistory_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(GetHistoryRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(poolQueryServer).GetHistory(ctx, in)
	}
	info := &grpc.UnaryServerInfo{
		Server:     srv,
		FullMethod: "/" + ServiceName + "/GetHistory",
	}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(poolQueryServer).GetHistory(ctx, req.(*GetHistoryRequest))
	}
	return interceptor(ctx, in, info, handler)
}

// poolQueryServiceDesc is the hand-written service descriptor. The
// wire format is CBOR rather than protobuf, so there is no .proto file
// to generate this from.
var poolQueryServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*poolQueryServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "GetPool", Handler: _PoolQuery_GetPool_Handler},
		{MethodName: "ListPools", Handler: _PoolQuery_ListPools_Handler},
		{MethodName: "GetQuote", Handler: _PoolQuery_GetQuote_Handler},
		{MethodName: "GetPrice", Handler: _PoolQuery_GetPrice_Handler},
		{MethodName: "GetHistory", Handler: _PoolQuery_GetHistory_Handler},
	},
	Streams: []grpc.StreamDesc{},
}

// Server represents the gRPC server for pool queries.
type Server struct {
	mu sync.RWMutex

	// grpcServer is the underlying gRPC server
	grpcServer *grpc.Server

	// pools provides access to pool operations
	pools PoolServiceInterface

	// config holds the server configuration
	config *ServerConfig

	// listener is the network listener
	listener net.Listener

	// running indicates if the server is currently running
	running bool
}

// NewServer creates a new gRPC server with the given configuration and
// registers the pool query service on it.
func NewServer(cfg *ServerConfig, pools PoolServiceInterface) (*Server, error) {
	if cfg == nil {
		cfg = DefaultServerConfig()
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	opts := []grpc.ServerOption{
		grpc.MaxRecvMsgSize(cfg.MaxRecvMsgSize),
		grpc.MaxSendMsgSize(cfg.MaxSendMsgSize),
		grpc.UnaryInterceptor(UnaryServerInterceptor()),
	}
	if cfg.ConnectionTimeout > 0 {
		opts = append(opts, grpc.ConnectionTimeout(cfg.ConnectionTimeout))
	}

	server := &Server{
		grpcServer: grpc.NewServer(opts...),
		pools:      pools,
		config:     cfg,
	}
	server.grpcServer.RegisterService(&poolQueryServiceDesc, server)

	return server, nil
}

// Start starts the gRPC server and begins accepting connections.
// This method blocks until the server is stopped or an error occurs.
func (s *Server) Start() error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return errors.New("server is already running")
	}

	listener, err := net.Listen("tcp", s.config.Address)
	if err != nil {
		s.mu.Unlock()
		return err
	}
	s.listener = listener
	s.running = true
	s.mu.Unlock()

	return s.grpcServer.Serve(listener)
}

// StartAsync starts the gRPC server in a goroutine and returns
// immediately. Returns an error if the server is already running or
// fails to listen.
func (s *Server) StartAsync() error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return errors.New("server is already running")
	}

	listener, err := net.Listen("tcp", s.config.Address)
	if err != nil {
		s.mu.Unlock()
		return err
	}
	s.listener = listener
	s.running = true
	s.mu.Unlock()

	go func() {
		if err := s.grpcServer.Serve(listener); err != nil {
			log.Printf("gRPC server stopped serving: %v", err)
		}
	}()

	return nil
}

// Stop gracefully stops the gRPC server. It stops accepting new
// connections and waits for in-flight calls to complete.
func (s *Server) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return
	}

	s.grpcServer.GracefulStop()
	s.running = false
}

// StopNow immediately stops the gRPC server without waiting for
// in-flight calls.
func (s *Server) StopNow() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return
	}

	s.grpcServer.Stop()
	s.running = false
}

// IsRunning returns true if the server is currently running.
func (s *Server) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.running
}

// Address returns the address the server is listening on.
// Returns empty string if the server is not running.
func (s *Server) Address() string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// GetGRPCServer returns the underlying grpc.Server.
// This can be used to register additional services.
func (s *Server) GetGRPCServer() *grpc.Server {
	return s.grpcServer
}

// SetPoolService updates the pool service.
// This should only be called before starting the server.
func (s *Server) SetPoolService(pools PoolServiceInterface) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pools = pools
}

func (s *Server) poolService() PoolServiceInterface {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.pools
}

// UnaryServerInterceptor logs each unary call with its duration and
// outcome.
func UnaryServerInterceptor() grpc.UnaryServerInterceptor {
	return func(
		ctx context.Context,
		req interface{},
		info *grpc.UnaryServerInfo,
		handler grpc.UnaryHandler,
	) (interface{}, error) {
		start := time.Now()

		resp, err := handler(ctx, req)

		if err != nil {
			log.Printf("gRPC %s failed in %s: %v", info.FullMethod, time.Since(start), err)
		} else {
			log.Printf("gRPC %s completed in %s", info.FullMethod, time.Since(start))
		}

		return resp, err
	}
}
