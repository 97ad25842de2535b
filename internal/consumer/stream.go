// Package consumer serves the downstream side: the events channel that
// carries forwarder output to the single subscriber, and the methods channel
// for companion commands.
package consumer

import (
	"context"
	"fmt"
	"io"
	"net"
	"time"

	"focusdesk/internal/forwarder"
	"focusdesk/internal/notification"
	"focusdesk/internal/telemetry"
	"focusdesk/internal/transport"
	"focusdesk/internal/wire"
	logx "focusdesk/pkg/logx"
)

const defaultWriteTimeout = 5 * time.Second

// StreamServer subscribes each accepted connection to the forwarder. The
// newest connection wins; the one it replaces is closed.
type StreamServer struct {
	log     logx.Logger
	fwd     *forwarder.Forwarder
	ep      transport.Endpoint
	codec   wire.Codec
	metrics *telemetry.Metrics

	writeTimeout time.Duration
}

func NewStreamServer(log logx.Logger, fwd *forwarder.Forwarder, ep transport.Endpoint, codec wire.Codec, metrics *telemetry.Metrics) *StreamServer {
	if log.IsZero() {
		log = logx.Nop()
	}
	if codec == nil {
		codec, _ = wire.Lookup(wire.CodecJSON)
	}
	return &StreamServer{
		log:          log,
		fwd:          fwd,
		ep:           ep.Normalize(),
		codec:        codec,
		metrics:      metrics,
		writeTimeout: defaultWriteTimeout,
	}
}

// SetWriteTimeout bounds each frame write. Zero disables the bound.
// Call before Run.
func (s *StreamServer) SetWriteTimeout(d time.Duration) {
	if d < 0 {
		d = 0
	}
	s.writeTimeout = d
}

func (s *StreamServer) Run(ctx context.Context) error {
	ln, cleanup, err := transport.Listen(s.ep)
	if err != nil {
		return fmt.Errorf("events: %w", err)
	}
	defer cleanup()

	s.log.Info("events channel listening", logx.String("addr", s.ep.String()), logx.String("codec", s.codec.Name()))
	return transport.Serve(ctx, ln, s.log, s.handleConn)
}

func (s *StreamServer) handleConn(ctx context.Context, conn net.Conn) {
	defer s.metrics.Conn("events")()

	enc := s.codec.NewEncoder(conn)
	sub := s.fwd.Subscribe(forwarder.SinkFunc(func(ev notification.Event) error {
		if s.writeTimeout > 0 {
			_ = conn.SetWriteDeadline(time.Now().Add(s.writeTimeout))
		}
		return enc.Encode(wire.FromEvent(ev))
	}))
	defer sub.Unsubscribe()

	log := s.log.With(logx.Uint64("sub", sub.ID()))
	log.Info("consumer subscribed")

	// The consumer never writes; reading only detects hangup.
	hangup := make(chan struct{})
	go func() {
		_, _ = io.Copy(io.Discard, conn)
		close(hangup)
	}()

	select {
	case <-hangup:
		log.Info("consumer disconnected")
	case <-sub.Done():
		log.Info("consumer released")
	case <-ctx.Done():
	}
}
