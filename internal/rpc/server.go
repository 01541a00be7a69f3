// Package rpc serves the pool API over HTTP JSON-RPC and WebSocket.
// Both surfaces dispatch through one method registry; the WebSocket
// server additionally streams committed pool events to subscribers.
package rpc

import (
	"context"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/LeJamon/goAMMd/internal/service"
)

// DefaultTimeout bounds a single method execution.
const DefaultTimeout = 30 * time.Second

// Server handles HTTP JSON-RPC requests
type Server struct {
	svc      *service.Service
	registry *MethodRegistry
	timeout  time.Duration
}

// NewServer creates a new RPC server around the service
func NewServer(svc *service.Service, timeout time.Duration) *Server {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	server := &Server{
		svc:      svc,
		registry: NewMethodRegistry(),
		timeout:  timeout,
	}

	// Register all RPC methods
	server.registerAllMethods()

	return server
}

// Registry exposes the method registry so the WebSocket server can
// dispatch the same methods.
func (s *Server) Registry() *MethodRegistry {
	return s.registry
}

// ServeHTTP implements http.Handler interface
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	// CORS headers
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "POST, GET, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
	w.Header().Set("Content-Type", "application/json")

	// Handle preflight requests
	if r.Method == "OPTIONS" {
		w.WriteHeader(http.StatusOK)
		return
	}

	// Only accept POST and GET methods
	if r.Method != "POST" && r.Method != "GET" {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if r.URL.Path == "/health" {
		s.handleHealth(w, r)
		return
	}

	if r.Method == "GET" {
		s.handleGetRequest(w, r)
		return
	}

	s.handlePostRequest(w, r)
}

// handleHealth reports liveness without going through the registry, so
// probes keep working even if a method misbehaves.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	info, err := s.svc.Info(r.Context())
	if err != nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"status": "unavailable",
			"error":  err.Error(),
		})
		return
	}

	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"status":   "ok",
		"pools":    info.Pools,
		"last_seq": info.LastSeq,
	})
}

// handleGetRequest processes GET requests with query parameters
func (s *Server) handleGetRequest(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	method := query.Get("command")

	if method == "" {
		// Default to server_info for GET requests without command
		method = "server_info"
	}

	ctx := &RpcContext{
		Context:  r.Context(),
		Role:     RoleGuest,
		ClientIP: getClientIP(r),
	}

	result, rpcErr := s.executeMethod(method, nil, ctx)
	s.writeResponse(w, nil, result, rpcErr)
}

// handlePostRequest processes POST requests with a JSON-RPC payload
func (s *Server) handlePostRequest(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		s.writeErrorResponse(w, nil, "internal", "Failed to read request body")
		return
	}
	defer r.Body.Close()

	var request Request
	if err := json.Unmarshal(body, &request); err != nil {
		s.writeErrorResponse(w, nil, "jsonInvalid", "Invalid JSON: "+err.Error())
		return
	}

	if request.Method == "" {
		s.writeErrorResponse(w, nil, "missingCommand", "Missing method field")
		return
	}

	// Params is an array with one object
	var params json.RawMessage
	if len(request.Params) > 0 {
		params = request.Params[0]
	}

	ctx := &RpcContext{
		Context:  r.Context(),
		Role:     RoleGuest,
		ClientIP: getClientIP(r),
	}

	result, rpcErr := s.executeMethod(request.Method, params, ctx)

	// Echo the request back in error responses
	var requestObj interface{}
	if rpcErr != nil {
		if params != nil {
			var reqMap map[string]interface{}
			if err := json.Unmarshal(params, &reqMap); err == nil {
				reqMap["command"] = request.Method
				requestObj = reqMap
			}
		} else {
			requestObj = map[string]interface{}{"command": request.Method}
		}
	}

	s.writeResponse(w, requestObj, result, rpcErr)
}

// executeMethod executes an RPC method with the given parameters
func (s *Server) executeMethod(method string, params json.RawMessage, ctx *RpcContext) (interface{}, *RpcError) {
	handler, exists := s.registry.Get(method)
	if !exists {
		return nil, RpcErrorMethodNotFound(method)
	}

	if ctx.Role < handler.RequiredRole() {
		return nil, NewRpcError(RpcCOMMAND_UNTRUSTED, "commandUntrusted", "commandUntrusted",
			"Method '"+method+"' requires higher privileges")
	}

	execCtx, cancel := context.WithTimeout(ctx.Context, s.timeout)
	defer cancel()

	bounded := *ctx
	bounded.Context = execCtx
	return handler.Handle(&bounded, params)
}

// writeResponse writes a JSON-RPC response.
// result.status is "success" or "error"; error responses carry error,
// error_code and error_message inside the result object.
func (s *Server) writeResponse(w http.ResponseWriter, request interface{}, result interface{}, rpcErr *RpcError) {
	response := make(map[string]interface{})

	if rpcErr != nil {
		resultObj := map[string]interface{}{
			"status":        "error",
			"error":         rpcErr.ErrorString,
			"error_code":    rpcErr.Code,
			"error_message": rpcErr.Message,
		}
		if request != nil {
			resultObj["request"] = request
		}
		response["result"] = resultObj
	} else {
		if resultMap, ok := result.(map[string]interface{}); ok {
			resultMap["status"] = "success"
			response["result"] = resultMap
		} else {
			// Wrap non-map results
			response["result"] = map[string]interface{}{
				"status": "success",
				"data":   result,
			}
		}
	}

	responseData, err := json.Marshal(response)
	if err != nil {
		log.Printf("Failed to marshal response: %v", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusOK)
	w.Write(responseData)
}

// writeErrorResponse writes an error for requests that never reached a
// method handler.
func (s *Server) writeErrorResponse(w http.ResponseWriter, request interface{}, errorCode string, message string) {
	resultObj := map[string]interface{}{
		"status":        "error",
		"error":         errorCode,
		"error_message": message,
	}
	if request != nil {
		resultObj["request"] = request
	}

	response := map[string]interface{}{
		"result": resultObj,
	}

	responseData, err := json.Marshal(response)
	if err != nil {
		log.Printf("Failed to marshal error response: %v", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusOK)
	w.Write(responseData)
}

// getClientIP extracts the client IP from the request
func getClientIP(r *http.Request) string {
	// Check X-Forwarded-For header
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		ips := strings.Split(xff, ",")
		return strings.TrimSpace(ips[0])
	}

	// Check X-Real-IP header
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}

	// Fall back to RemoteAddr
	ip := r.RemoteAddr
	if idx := strings.LastIndex(ip, ":"); idx != -1 {
		ip = ip[:idx]
	}

	return ip
}
