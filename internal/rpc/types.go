package rpc

import (
	"context"
	"encoding/json"
)

// Role-based access control for RPC methods. Every method published
// today is readable by guests; the role survives on the interface so
// admin-only methods slot in without changing the dispatch path.
type Role int

const (
	RoleGuest Role = iota
	RoleAdmin
)

// RpcContext contains request-specific information
type RpcContext struct {
	Context  context.Context
	Role     Role
	ClientIP string
}

// Method handler interface - all RPC methods implement this
type MethodHandler interface {
	Handle(ctx *RpcContext, params json.RawMessage) (interface{}, *RpcError)
	RequiredRole() Role
}

// Method registry for dynamic method registration
type MethodRegistry struct {
	methods map[string]MethodHandler
}

func NewMethodRegistry() *MethodRegistry {
	return &MethodRegistry{
		methods: make(map[string]MethodHandler),
	}
}

func (r *MethodRegistry) Register(name string, handler MethodHandler) {
	r.methods[name] = handler
}

func (r *MethodRegistry) Get(name string) (MethodHandler, bool) {
	handler, exists := r.methods[name]
	return handler, exists
}

func (r *MethodRegistry) List() []string {
	methods := make([]string, 0, len(r.methods))
	for name := range r.methods {
		methods = append(methods, name)
	}
	return methods
}

// Request represents a JSON-RPC request
// Format: {"method": "method_name", "params": [{...}]}
type Request struct {
	Method string            `json:"method"`
	Params []json.RawMessage `json:"params,omitempty"`
}

// WebSocket command structure - command and params share the top level
type WebSocketCommand struct {
	Command string          `json:"command"`
	ID      interface{}     `json:"id,omitempty"`
	Params  json.RawMessage `json:"-"`
}

// WebSocketResponse represents a WebSocket API response
type WebSocketResponse struct {
	Status string      `json:"status"`
	Type   string      `json:"type"`
	Result interface{} `json:"result,omitempty"`
	ID     interface{} `json:"id,omitempty"`
}

// SubscriptionRequest carries the parameters of subscribe and
// unsubscribe commands. An empty pair means the whole event stream.
type SubscriptionRequest struct {
	Pair string `json:"pair,omitempty"`
}
