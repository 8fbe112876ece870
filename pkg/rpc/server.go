package rpc

// The dispatch server: a mutable method table keyed by namespaced method
// name. It validates envelopes, routes to handlers, and converts every
// failure mode into a structured JSON-RPC error. It keeps no request-scoped
// state; the method table and the collaborator handles are the only state.

import (
	"context"
	"sort"
	"sync"

	"github.com/charmbracelet/log"

	"github.com/personakit/persona-go/pkg/errors"
	"github.com/personakit/persona-go/pkg/jsonrpc"
)

// HandlerFunc processes one call and returns a result or a *RpcError.
// Returning (nil, nil) is treated as null-result (i.e. {"result":null}).
type HandlerFunc func(ctx context.Context, call *Call) (any, *errors.RpcError)

// Server multiplexes method names to handler functions. Built-in handlers
// are pre-registered at construction; Register may overwrite any of them at
// runtime (last registration wins, with no snapshotting for in-flight
// batches).
type Server struct {
	mu       sync.RWMutex
	handlers map[string]HandlerFunc
	deps     *Deps
}

func NewServer(deps *Deps) *Server {
	s := &Server{
		handlers: make(map[string]HandlerFunc),
		deps:     deps,
	}

	s.registerSystem()
	s.registerHooks()
	s.registerChat()
	s.registerScene()
	s.registerMedia()
	s.registerConfig()
	s.registerScenario()
	s.registerEvents()

	return s
}

// Register adds or overwrites the handler for method.
func (s *Server) Register(method string, h HandlerFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.handlers[method] = h
}

// Methods returns the registered method names, sorted.
func (s *Server) Methods() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	methods := make([]string, 0, len(s.handlers))
	for method := range s.handlers {
		methods = append(methods, method)
	}

	sort.Strings(methods)
	return methods
}

// HandleRequest validates and routes a single request and always produces a
// response, even when the request lacks an id. Callers wanting true
// fire-and-forget must use HandleNotification.
func (s *Server) HandleRequest(ctx context.Context, req *jsonrpc.Request, origin EventSink) jsonrpc.Response {
	if req.JSONRPC != jsonrpc.Version {
		return jsonrpc.NewErrorResponse(req.ID, errors.ErrInvalidRequest)
	}

	method, ok := req.MethodName()
	if !ok {
		return jsonrpc.NewErrorResponse(req.ID,
			errors.ErrInvalidRequest.WithMessagef("Method must be a string"))
	}

	s.mu.RLock()
	h, found := s.handlers[method]
	s.mu.RUnlock()

	if !found {
		return jsonrpc.NewErrorResponse(req.ID,
			errors.ErrMethodNotFound.WithData(map[string]any{"method": method}))
	}

	call := &Call{Params: req.Params, Origin: origin, Deps: s.deps}

	result, rpcErr := s.invoke(ctx, method, h, call)
	if rpcErr != nil {
		return jsonrpc.NewErrorResponse(req.ID, rpcErr)
	}

	return jsonrpc.NewResponse(req.ID, result)
}

// HandleNotification validates and routes a fire-and-forget request. The
// outcome is discarded: notifications cannot report failure to the sender,
// so problems are only logged.
func (s *Server) HandleNotification(ctx context.Context, req *jsonrpc.Request, origin EventSink) {
	if req.JSONRPC != jsonrpc.Version {
		log.Warn("notification with bad protocol version", "version", req.JSONRPC)
		return
	}

	method, ok := req.MethodName()
	if !ok {
		log.Warn("notification without a string method")
		return
	}

	s.mu.RLock()
	h, found := s.handlers[method]
	s.mu.RUnlock()

	if !found {
		log.Warn("notification for unknown method", "method", method)
		return
	}

	call := &Call{Params: req.Params, Origin: origin, Deps: s.deps}

	if _, rpcErr := s.invoke(ctx, method, h, call); rpcErr != nil {
		log.Warn("notification handler failed", "method", method, "error", rpcErr)
	}
}

// HandleBatch runs every request concurrently and re-assembles the
// responses in input order. Notifications embedded in the batch are routed
// but contribute no slot to the result.
func (s *Server) HandleBatch(ctx context.Context, reqs []jsonrpc.Request, origin EventSink) []jsonrpc.Response {
	responses := make([]jsonrpc.Response, len(reqs))
	answered := make([]bool, len(reqs))

	var wg sync.WaitGroup

	for i := range reqs {
		wg.Add(1)

		go func(i int) {
			defer wg.Done()

			req := &reqs[i]

			if req.IsNotification() {
				s.HandleNotification(ctx, req, origin)
				return
			}

			responses[i] = s.HandleRequest(ctx, req, origin)
			answered[i] = true
		}(i)
	}

	wg.Wait()

	out := make([]jsonrpc.Response, 0, len(reqs))
	for i, resp := range responses {
		if answered[i] {
			out = append(out, resp)
		}
	}

	return out
}

// invoke runs one handler, converting a panic into an InternalError carrying
// the panic message so a faulty handler can never crash the transport.
func (s *Server) invoke(ctx context.Context, method string, h HandlerFunc, call *Call) (result any, rpcErr *errors.RpcError) {
	defer func() {
		if rec := recover(); rec != nil {
			log.Error("handler panicked", "method", method, "panic", rec)
			rpcErr = errors.ErrInternal.WithMessagef("%v", rec)
		}
	}()

	return h(ctx, call)
}
