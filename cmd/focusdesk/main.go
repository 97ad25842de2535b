package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/urfave/cli/v3"

	"focusdesk/internal/app"
	"focusdesk/internal/config"
	"focusdesk/internal/observability/server"
	"focusdesk/internal/wire"
)

// Populated at build time via -ldflags.
var version = "dev"

type flags struct {
	configPath string
	logLevel   string
}

func newCommand() *cli.Command {
	f := &flags{}

	root := &cli.Command{
		Name:      "focusdesk",
		Usage:     "Filter and deduplicate phone notifications for a desktop companion",
		UsageText: "focusdesk [global options] [command]",
		Version:   version,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "config",
				Aliases:     []string{"c"},
				Usage:       "path to config file (json or yaml)",
				Sources:     cli.EnvVars("FOCUSDESK_CONFIG"),
				Destination: &f.configPath,
			},
			&cli.StringFlag{
				Name:        "log-level",
				Usage:       "log level (trace, debug, info, warn, error)",
				Sources:     cli.EnvVars("FOCUSDESK_LOG_LEVEL"),
				Destination: &f.logLevel,
			},
		},
		Commands: []*cli.Command{
			{
				Name:   "run",
				Usage:  "Run the daemon until SIGINT or SIGTERM",
				Action: f.run,
			},
			{
				Name:   "validate",
				Usage:  "Parse and validate the config, then print its summary",
				Action: f.validate,
			},
		},
	}
	root.Action = func(ctx context.Context, c *cli.Command) error {
		if c.Args().Len() > 0 {
			return fmt.Errorf("unknown command %q. Run 'focusdesk --help' for usage", c.Args().First())
		}
		return f.run(ctx, c)
	}
	return root
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	exitCode := 0
	if err := newCommand().Run(ctx, os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "fatal:", err)
		exitCode = 1
	}
	cancel()
	os.Exit(exitCode)
}

// manager builds the config manager. An explicit --log-level wins over the
// file and the environment.
func (f *flags) manager() *config.Manager {
	m := config.NewManager(f.configPath)
	if lvl := strings.TrimSpace(f.logLevel); lvl != "" {
		environ := env.ToMap(os.Environ())
		environ["FOCUSDESK_LOG_LEVEL"] = lvl
		m.SetEnviron(environ)
	}
	return m
}

func (f *flags) run(ctx context.Context, _ *cli.Command) error {
	a, err := app.New(f.manager())
	if err != nil {
		return err
	}
	if err := a.Start(ctx); err != nil {
		return err
	}

	reason := app.StopSignal
	select {
	case <-ctx.Done():
	case <-a.Done():
		if a.Err() != nil {
			reason = app.StopFatalError
		}
	}

	stopCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = a.Stop(stopCtx, reason)
	return a.Err()
}

func (f *flags) validate(_ context.Context, c *cli.Command) error {
	m := f.manager()
	cfg, err := m.Load()
	if err != nil {
		return err
	}
	rt, err := cfg.Resolve()
	if err != nil {
		return err
	}

	w := c.Root().Writer
	if w == nil {
		w = os.Stdout
	}
	path := m.Path()
	if path == "" {
		path = "(defaults)"
	}
	allow, deny := rt.Lists.Sizes()
	fmt.Fprintf(w, "config:        %s (hash %s)\n", path, config.HashString(cfg))
	fmt.Fprintf(w, "log level:     %s\n", orDefault(rt.Logging.Level, "info"))
	fmt.Fprintf(w, "policy:        %d allowed, %d denied\n", allow, deny)
	if overlap := rt.Lists.Overlap(); len(overlap) > 0 {
		fmt.Fprintf(w, "               in both lists (denied): %s\n", strings.Join(overlap, ", "))
	}
	fmt.Fprintf(w, "ingress:       %s (%s)\n", rt.Ingress, rt.IngressCodec.Name())
	fmt.Fprintf(w, "events:        %s (%s)\n", rt.Events, rt.ConsumerCodec.Name())
	fmt.Fprintf(w, "methods:       %s\n", rt.Methods)
	fmt.Fprintf(w, "observability: %s\n", observabilitySummary(rt.Observability.Enabled, rt.Observability.Addr))
	fmt.Fprintf(w, "codecs:        %s\n", strings.Join(wire.Names(), ", "))
	return nil
}

func observabilitySummary(enabled bool, addr string) string {
	if !enabled {
		return "disabled"
	}
	return orDefault(addr, server.DefaultAddr)
}

func orDefault(s, def string) string {
	if strings.TrimSpace(s) == "" {
		return def
	}
	return s
}
