// Package transport owns the stream listeners shared by the ingress and
// consumer endpoints: unix sockets and TCP, one handler goroutine per
// accepted connection.
package transport

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"strings"
	"sync"

	logx "focusdesk/pkg/logx"
)

const (
	NetworkUnix  = "unix"
	NetworkTCP   = "tcp"
	NetworkStdio = "stdio"
)

// Endpoint is where a listener binds.
type Endpoint struct {
	Network string
	Addr    string
}

func (e Endpoint) String() string { return e.Network + "://" + e.Addr }

// Normalize lowercases the network and defaults it to unix.
func (e Endpoint) Normalize() Endpoint {
	e.Network = strings.ToLower(strings.TrimSpace(e.Network))
	if e.Network == "" {
		e.Network = NetworkUnix
	}
	e.Addr = strings.TrimSpace(e.Addr)
	return e
}

// Listen binds ep. A stale unix socket file is removed first; any other file
// at the path is an error. The returned
// cleanup closes the listener and removes the socket file; it is safe to
// call more than once.
func Listen(ep Endpoint) (net.Listener, func(), error) {
	ep = ep.Normalize()
	if ep.Addr == "" {
		return nil, nil, fmt.Errorf("listen %s: empty address", ep.Network)
	}
	switch ep.Network {
	case NetworkUnix:
		if err := removeStaleSocket(ep.Addr); err != nil {
			return nil, nil, err
		}
	case NetworkTCP:
	default:
		return nil, nil, fmt.Errorf("listen: unsupported network %q", ep.Network)
	}

	ln, err := net.Listen(ep.Network, ep.Addr)
	if err != nil {
		return nil, nil, fmt.Errorf("listen %s: %w", ep, err)
	}

	var once sync.Once
	cleanup := func() {
		once.Do(func() {
			_ = ln.Close()
			if ep.Network == NetworkUnix {
				_ = os.Remove(ep.Addr)
			}
		})
	}
	return ln, cleanup, nil
}

func removeStaleSocket(path string) error {
	fi, err := os.Lstat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("checking socket path %s: %w", path, err)
	}
	if fi.Mode()&os.ModeSocket == 0 {
		return fmt.Errorf("socket path %s exists and is not a socket (%s)", path, fi.Mode().Type())
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("removing stale socket %s: %w", path, err)
	}
	return nil
}

// Handler serves one accepted connection. The connection is closed after
// the handler returns.
type Handler func(ctx context.Context, conn net.Conn)

// Serve accepts on ln until ctx is canceled or the listener is closed, then
// waits for active handlers. Cancel closes ln and every open connection.
func Serve(ctx context.Context, ln net.Listener, log logx.Logger, h Handler) error {
	stop := context.AfterFunc(ctx, func() { _ = ln.Close() })
	defer stop()

	var wg sync.WaitGroup
	defer wg.Wait()

	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return nil
			}
			var ne net.Error
			if errors.As(err, &ne) && ne.Timeout() {
				log.Warn("accept timeout", logx.Err(err))
				continue
			}
			return fmt.Errorf("accept: %w", err)
		}

		wg.Add(1)
		go func() {
			defer wg.Done()
			// Unblock handlers stuck in Read on shutdown.
			release := context.AfterFunc(ctx, func() { _ = conn.Close() })
			defer release()
			defer conn.Close()
			h(ctx, conn)
		}()
	}
}
