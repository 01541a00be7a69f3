package rpc

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/LeJamon/goAMMd/internal/core/asset"
	"github.com/LeJamon/goAMMd/internal/events"
	"github.com/LeJamon/goAMMd/internal/service"
)

const (
	// maxMessageSize bounds a single inbound frame
	maxMessageSize = 512 * 1024

	// pongTimeout is how long a connection may stay silent
	pongTimeout = 60 * time.Second

	// pingInterval must be shorter than pongTimeout
	pingInterval = 54 * time.Second

	// writeTimeout bounds a single outbound write
	writeTimeout = 10 * time.Second

	// DefaultSendQueueLimit is the per-connection send queue depth
	DefaultSendQueueLimit = 256
)

// WebSocketServer handles WebSocket connections for method calls and
// real-time event subscriptions
type WebSocketServer struct {
	svc              *service.Service
	upgrader         websocket.Upgrader
	registry         *MethodRegistry
	connections      map[string]*WebSocketConnection
	connectionsMutex sync.RWMutex
	sendQueueLimit   int
	connSeq          atomic.Uint64
}

// WebSocketConnection represents a single WebSocket connection
type WebSocketConnection struct {
	ID            string
	conn          *websocket.Conn
	subscriptions map[string]*events.Subscription
	sendChannel   chan []byte
	mutex         sync.Mutex
	ctx           context.Context
	cancel        context.CancelFunc
	closeOnce     sync.Once
}

// NewWebSocketServer creates a WebSocket server dispatching into the
// given method registry. sendQueueLimit bounds each connection's
// outbound queue; a slow consumer loses events rather than stalling
// the bus.
func NewWebSocketServer(svc *service.Service, registry *MethodRegistry, sendQueueLimit int) *WebSocketServer {
	if sendQueueLimit <= 0 {
		sendQueueLimit = DefaultSendQueueLimit
	}
	return &WebSocketServer{
		svc: svc,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
		registry:       registry,
		connections:    make(map[string]*WebSocketConnection),
		sendQueueLimit: sendQueueLimit,
	}
}

// ServeHTTP handles WebSocket upgrade requests
func (ws *WebSocketServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := ws.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("WebSocket upgrade failed: %v", err)
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	wsConn := &WebSocketConnection{
		ID:            fmt.Sprintf("conn_%d", ws.connSeq.Add(1)),
		conn:          conn,
		subscriptions: make(map[string]*events.Subscription),
		sendChannel:   make(chan []byte, ws.sendQueueLimit),
		ctx:           ctx,
		cancel:        cancel,
	}

	ws.connectionsMutex.Lock()
	ws.connections[wsConn.ID] = wsConn
	ws.connectionsMutex.Unlock()

	go ws.handleConnection(wsConn)
	go ws.handleSend(wsConn)
}

// ConnectionCount returns the number of open connections.
func (ws *WebSocketServer) ConnectionCount() int {
	ws.connectionsMutex.RLock()
	defer ws.connectionsMutex.RUnlock()
	return len(ws.connections)
}

// Close terminates every open connection. The HTTP listener keeps
// accepting upgrades while it runs; stop the listener first.
func (ws *WebSocketServer) Close() {
	ws.connectionsMutex.RLock()
	conns := make([]*WebSocketConnection, 0, len(ws.connections))
	for _, c := range ws.connections {
		conns = append(conns, c)
	}
	ws.connectionsMutex.RUnlock()

	for _, c := range conns {
		ws.closeConnection(c)
	}
}

// handleConnection processes messages from a WebSocket connection
func (ws *WebSocketServer) handleConnection(wsConn *WebSocketConnection) {
	defer ws.closeConnection(wsConn)

	wsConn.conn.SetReadLimit(maxMessageSize)
	wsConn.conn.SetReadDeadline(time.Now().Add(pongTimeout))
	wsConn.conn.SetPongHandler(func(string) error {
		wsConn.conn.SetReadDeadline(time.Now().Add(pongTimeout))
		return nil
	})

	for {
		_, message, err := wsConn.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				log.Printf("WebSocket error: %v", err)
			}
			return
		}
		ws.handleMessage(wsConn, message)
	}
}

// handleSend writes queued messages and keepalive pings. Reads block in
// handleConnection, so the ping ticker lives here.
func (ws *WebSocketServer) handleSend(wsConn *WebSocketConnection) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-wsConn.ctx.Done():
			return
		case <-ticker.C:
			wsConn.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := wsConn.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				ws.closeConnection(wsConn)
				return
			}
		case message := <-wsConn.sendChannel:
			wsConn.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := wsConn.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				log.Printf("WebSocket send failed: %v", err)
				ws.closeConnection(wsConn)
				return
			}
		}
	}
}

// handleMessage processes a single message - command and params share
// the top level of the frame
func (ws *WebSocketServer) handleMessage(wsConn *WebSocketConnection, message []byte) {
	var cmdMap map[string]interface{}
	if err := json.Unmarshal(message, &cmdMap); err != nil {
		ws.sendError(wsConn, RpcErrorInvalidParams("Invalid JSON: "+err.Error()), nil)
		return
	}

	command, ok := cmdMap["command"].(string)
	if !ok || command == "" {
		ws.sendError(wsConn, NewRpcError(RpcMISSING_COMMAND, "missingCommand", "missingCommand", "Missing command field"), nil)
		return
	}

	var id interface{}
	if idVal, exists := cmdMap["id"]; exists {
		id = idVal
	}

	cmd := WebSocketCommand{
		Command: command,
		ID:      id,
	}

	// Everything besides command and id is the parameter object
	delete(cmdMap, "command")
	delete(cmdMap, "id")
	if len(cmdMap) > 0 {
		paramsBytes, _ := json.Marshal(cmdMap)
		cmd.Params = paramsBytes
	}

	rpcCtx := &RpcContext{
		Context:  wsConn.ctx,
		Role:     RoleGuest,
		ClientIP: remoteIP(wsConn.conn),
	}

	switch cmd.Command {
	case "subscribe":
		ws.handleSubscribe(wsConn, cmd)
		return
	case "unsubscribe":
		ws.handleUnsubscribe(wsConn, cmd)
		return
	}

	ws.handleRPCMethod(wsConn, rpcCtx, cmd)
}

// handleSubscribe attaches the connection to the event stream of one
// pair, or of every pool when no pair is given
func (ws *WebSocketServer) handleSubscribe(wsConn *WebSocketConnection, cmd WebSocketCommand) {
	var request SubscriptionRequest
	if len(cmd.Params) > 0 {
		if err := json.Unmarshal(cmd.Params, &request); err != nil {
			ws.sendError(wsConn, RpcErrorInvalidParams("Invalid subscription parameters: "+err.Error()), cmd.ID)
			return
		}
	}

	key := ""
	if request.Pair != "" {
		pair, err := asset.ParsePair(request.Pair)
		if err != nil {
			ws.sendError(wsConn, RpcErrorFromError(err), cmd.ID)
			return
		}
		key = pair.Key()
	}

	wsConn.mutex.Lock()
	_, exists := wsConn.subscriptions[key]
	if !exists {
		sub := ws.svc.Bus().Subscribe(key, ws.sendQueueLimit)
		wsConn.subscriptions[key] = sub
		go ws.pumpEvents(wsConn, sub)
	}
	wsConn.mutex.Unlock()

	result := map[string]interface{}{
		"subscribed": true,
		"last_seq":   ws.svc.Bus().Seq(),
	}
	if key != "" {
		result["pair"] = key
	}

	ws.sendResponse(wsConn, WebSocketResponse{
		Type:   "response",
		ID:     cmd.ID,
		Status: "success",
		Result: result,
	})
}

// handleUnsubscribe detaches the connection from one pair's stream, or
// from the all-pools stream when no pair is given. Unsubscribing a
// stream that was never subscribed succeeds.
func (ws *WebSocketServer) handleUnsubscribe(wsConn *WebSocketConnection, cmd WebSocketCommand) {
	var request SubscriptionRequest
	if len(cmd.Params) > 0 {
		if err := json.Unmarshal(cmd.Params, &request); err != nil {
			ws.sendError(wsConn, RpcErrorInvalidParams("Invalid subscription parameters: "+err.Error()), cmd.ID)
			return
		}
	}

	key := ""
	if request.Pair != "" {
		pair, err := asset.ParsePair(request.Pair)
		if err != nil {
			ws.sendError(wsConn, RpcErrorFromError(err), cmd.ID)
			return
		}
		key = pair.Key()
	}

	wsConn.mutex.Lock()
	if sub, ok := wsConn.subscriptions[key]; ok {
		delete(wsConn.subscriptions, key)
		sub.Close()
	}
	wsConn.mutex.Unlock()

	result := map[string]interface{}{
		"unsubscribed": true,
	}
	if key != "" {
		result["pair"] = key
	}

	ws.sendResponse(wsConn, WebSocketResponse{
		Type:   "response",
		ID:     cmd.ID,
		Status: "success",
		Result: result,
	})
}

// handleRPCMethod dispatches regular method calls through the shared
// registry
func (ws *WebSocketServer) handleRPCMethod(wsConn *WebSocketConnection, ctx *RpcContext, cmd WebSocketCommand) {
	handler, exists := ws.registry.Get(cmd.Command)
	if !exists {
		ws.sendError(wsConn, RpcErrorMethodNotFound(cmd.Command), cmd.ID)
		return
	}

	if ctx.Role < handler.RequiredRole() {
		ws.sendError(wsConn, NewRpcError(RpcCOMMAND_UNTRUSTED, "commandUntrusted", "commandUntrusted",
			"Command '"+cmd.Command+"' requires higher privileges"), cmd.ID)
		return
	}

	result, rpcErr := handler.Handle(ctx, cmd.Params)
	if rpcErr != nil {
		ws.sendError(wsConn, rpcErr, cmd.ID)
		return
	}

	ws.sendResponse(wsConn, WebSocketResponse{
		Type:   "response",
		ID:     cmd.ID,
		Status: "success",
		Result: result,
	})
}

// EventMessage is the frame pushed to subscribers for each committed
// pool event.
type EventMessage struct {
	Type string `json:"type"`
	events.Record
}

// pumpEvents forwards bus records into the connection's send queue.
// The queue is bounded; when it is full the record is dropped so the
// pump never stalls behind a slow consumer.
func (ws *WebSocketServer) pumpEvents(wsConn *WebSocketConnection, sub *events.Subscription) {
	for {
		select {
		case <-wsConn.ctx.Done():
			return
		case rec, ok := <-sub.C:
			if !ok {
				return
			}
			data, err := json.Marshal(EventMessage{Type: "event", Record: rec})
			if err != nil {
				log.Printf("Failed to marshal event %d: %v", rec.Seq, err)
				continue
			}
			select {
			case wsConn.sendChannel <- data:
			default:
				log.Printf("Skipping slow WebSocket connection %s", wsConn.ID)
			}
		}
	}
}

// sendResponse queues a response frame
func (ws *WebSocketServer) sendResponse(wsConn *WebSocketConnection, response WebSocketResponse) {
	data, err := json.Marshal(response)
	if err != nil {
		log.Printf("Failed to marshal WebSocket response: %v", err)
		return
	}
	ws.send(wsConn, data)
}

// sendError queues an error frame with flat error fields
func (ws *WebSocketServer) sendError(wsConn *WebSocketConnection, rpcErr *RpcError, id interface{}) {
	response := map[string]interface{}{
		"type":          "response",
		"status":        "error",
		"error":         rpcErr.ErrorString,
		"error_code":    rpcErr.Code,
		"error_message": rpcErr.Message,
	}
	if id != nil {
		response["id"] = id
	}

	data, err := json.Marshal(response)
	if err != nil {
		log.Printf("Failed to marshal WebSocket error response: %v", err)
		return
	}
	ws.send(wsConn, data)
}

// send queues one frame, closing the connection when its queue is full
func (ws *WebSocketServer) send(wsConn *WebSocketConnection, data []byte) {
	select {
	case wsConn.sendChannel <- data:
	case <-wsConn.ctx.Done():
	default:
		log.Printf("WebSocket send channel full, closing connection %s", wsConn.ID)
		ws.closeConnection(wsConn)
	}
}

// closeConnection tears the connection down exactly once: cancels its
// context, closes its bus subscriptions and the socket, and drops it
// from the connection table.
func (ws *WebSocketServer) closeConnection(wsConn *WebSocketConnection) {
	wsConn.closeOnce.Do(func() {
		wsConn.cancel()

		ws.connectionsMutex.Lock()
		delete(ws.connections, wsConn.ID)
		ws.connectionsMutex.Unlock()

		wsConn.mutex.Lock()
		for key, sub := range wsConn.subscriptions {
			delete(wsConn.subscriptions, key)
			sub.Close()
		}
		wsConn.mutex.Unlock()

		wsConn.conn.Close()
		log.Printf("WebSocket connection %s closed", wsConn.ID)
	})
}

// remoteIP strips the port from the connection's remote address
func remoteIP(conn *websocket.Conn) string {
	addr := conn.RemoteAddr().String()
	if idx := strings.LastIndex(addr, ":"); idx != -1 {
		return addr[:idx]
	}
	return addr
}
