package consumer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"sort"
	"sync"

	"focusdesk/internal/telemetry"
	"focusdesk/internal/transport"
	"focusdesk/internal/wire"
	logx "focusdesk/pkg/logx"
)

// ErrNotImplemented is the reply error for unknown methods.
var ErrNotImplemented = errors.New("notImplemented")

const MethodOpenSettings = "openSettings"

// MethodFunc runs one method. The bool is the reply result; an error is
// logged and reported as result false.
type MethodFunc func(ctx context.Context) (bool, error)

// MethodServer answers {"method"} requests, one reply per request, on each
// accepted connection.
type MethodServer struct {
	log     logx.Logger
	ep      transport.Endpoint
	codec   wire.Codec
	metrics *telemetry.Metrics

	mu      sync.RWMutex
	methods map[string]MethodFunc
}

func NewMethodServer(log logx.Logger, ep transport.Endpoint, codec wire.Codec, metrics *telemetry.Metrics) *MethodServer {
	if log.IsZero() {
		log = logx.Nop()
	}
	if codec == nil {
		codec, _ = wire.Lookup(wire.CodecJSON)
	}
	return &MethodServer{
		log:     log,
		ep:      ep.Normalize(),
		codec:   codec,
		metrics: metrics,
		methods: map[string]MethodFunc{},
	}
}

// Handle registers fn under name, replacing any previous registration.
func (s *MethodServer) Handle(name string, fn MethodFunc) {
	s.mu.Lock()
	s.methods[name] = fn
	s.mu.Unlock()
}

// Methods lists registered method names.
func (s *MethodServer) Methods() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, 0, len(s.methods))
	for n := range s.methods {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

// Call runs method and builds its reply.
func (s *MethodServer) Call(ctx context.Context, method string) wire.Reply {
	s.mu.RLock()
	fn, ok := s.methods[method]
	s.mu.RUnlock()

	reply := wire.Reply{Method: method}
	if !ok {
		msg := ErrNotImplemented.Error()
		reply.Error = &msg
		s.log.Debug("method not implemented", logx.String("method", method))
		return reply
	}

	result, err := fn(ctx)
	if err != nil {
		s.log.Warn("method failed", logx.String("method", method), logx.Err(err))
		result = false
	}
	reply.Result = &result
	return reply
}

func (s *MethodServer) Run(ctx context.Context) error {
	ln, cleanup, err := transport.Listen(s.ep)
	if err != nil {
		return fmt.Errorf("methods: %w", err)
	}
	defer cleanup()

	s.log.Info("methods channel listening", logx.String("addr", s.ep.String()), logx.Strings("methods", s.Methods()))
	return transport.Serve(ctx, ln, s.log, s.handleConn)
}

func (s *MethodServer) handleConn(ctx context.Context, conn net.Conn) {
	defer s.metrics.Conn("methods")()

	dec := s.codec.NewDecoder(conn)
	enc := s.codec.NewEncoder(conn)
	for {
		var req wire.Request
		if err := dec.Decode(&req); err != nil {
			if !errors.Is(err, io.EOF) && !errors.Is(err, net.ErrClosed) && ctx.Err() == nil {
				s.log.Debug("method request decode failed", logx.Err(err))
			}
			return
		}
		if err := enc.Encode(s.Call(ctx, req.Method)); err != nil {
			s.log.Debug("method reply write failed", logx.Err(err))
			return
		}
	}
}
