package ingress

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"

	"focusdesk/internal/telemetry"
	"focusdesk/internal/transport"
	"focusdesk/internal/wire"
	logx "focusdesk/pkg/logx"
)

// Server reads records from the platform shim.
type Server struct {
	log     logx.Logger
	disp    *Dispatcher
	ep      transport.Endpoint
	codec   wire.Codec
	metrics *telemetry.Metrics

	// stdin is read when the endpoint network is stdio.
	stdin io.Reader
}

func NewServer(log logx.Logger, disp *Dispatcher, ep transport.Endpoint, codec wire.Codec, metrics *telemetry.Metrics) *Server {
	if log.IsZero() {
		log = logx.Nop()
	}
	if codec == nil {
		codec, _ = wire.Lookup(wire.CodecJSON)
	}
	return &Server{
		log:     log,
		disp:    disp,
		ep:      ep.Normalize(),
		codec:   codec,
		metrics: metrics,
		stdin:   os.Stdin,
	}
}

// Run serves until ctx is canceled. With the stdio network it reads stdin
// once and then idles until ctx is done.
func (s *Server) Run(ctx context.Context) error {
	if s.ep.Network == transport.NetworkStdio {
		return s.runStdio(ctx)
	}

	ln, cleanup, err := transport.Listen(s.ep)
	if err != nil {
		return fmt.Errorf("ingress: %w", err)
	}
	defer cleanup()

	s.log.Info("ingress listening", logx.String("addr", s.ep.String()), logx.String("codec", s.codec.Name()))
	return transport.Serve(ctx, ln, s.log, s.handleConn)
}

func (s *Server) runStdio(ctx context.Context) error {
	done := make(chan error, 1)
	go func() { done <- s.ServeConn(ctx, s.stdin) }()

	select {
	case err := <-done:
		if err != nil {
			s.log.Warn("stdin ingress ended", logx.Err(err))
		} else {
			s.log.Info("stdin closed")
		}
	case <-ctx.Done():
		return nil
	}
	<-ctx.Done()
	return nil
}

func (s *Server) handleConn(ctx context.Context, conn net.Conn) {
	defer s.metrics.Conn("ingress")()
	log := s.log.With(logx.String("remote", remoteName(conn)))
	log.Debug("producer connected")
	if err := s.ServeConn(ctx, conn); err != nil && ctx.Err() == nil {
		log.Warn("producer connection closed", logx.Err(err))
		return
	}
	log.Debug("producer disconnected")
}

// ServeConn decodes records from r until EOF. A record that does not fit the
// record shape is skipped; a broken stream ends it.
func (s *Server) ServeConn(ctx context.Context, r io.Reader) error {
	frames := s.codec.NewFrameReader(r)
	for {
		if err := ctx.Err(); err != nil {
			return nil
		}
		raw, err := frames.Next()
		if err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, net.ErrClosed) {
				return nil
			}
			return fmt.Errorf("decode record: %w", err)
		}
		var rec Record
		if err := s.codec.Unmarshal(raw, &rec); err != nil {
			s.metrics.Record("malformed")
			s.log.Debug("malformed record skipped", logx.Err(err))
			continue
		}
		s.disp.Handle(ctx, rec)
	}
}

func remoteName(conn net.Conn) string {
	if a := conn.RemoteAddr(); a != nil && a.String() != "" {
		return a.String()
	}
	return "local"
}
