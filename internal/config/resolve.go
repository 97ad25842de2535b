package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"focusdesk/internal/observability/server"
	"focusdesk/internal/policy"
	"focusdesk/internal/transport"
	"focusdesk/internal/wire"
	logx "focusdesk/pkg/logx"
)

// ErrInvalid wraps every validation failure.
var ErrInvalid = errors.New("invalid config")

const (
	DefaultIngressAddr = "./focusdesk-ingress.sock"
	DefaultEventsAddr  = "./focusdesk-events.sock"
	DefaultMethodsAddr = "./focusdesk-methods.sock"
)

// Runtime is a Config with defaults filled in and strings parsed.
type Runtime struct {
	Logging logx.Config
	Lists   policy.Lists

	Ingress          transport.Endpoint
	IngressCodec     wire.Codec
	DropWarnInterval time.Duration

	Events          transport.Endpoint
	Methods         transport.Endpoint
	ConsumerCodec   wire.Codec
	WriteTimeout    time.Duration
	SettingsCommand []string
	CommandTimeout  time.Duration

	Observability server.Config
}

// Resolve validates c and returns its runtime form. Every problem is
// reported, joined, and wrapped in ErrInvalid.
func (c *Config) Resolve() (Runtime, error) {
	if c == nil {
		c = &Config{}
	}
	var (
		rt   Runtime
		errs []error
		err  error
	)
	fail := func(e error) {
		if e != nil {
			errs = append(errs, e)
		}
	}

	rt.Logging = logx.Config{
		Level:   c.Logging.Level,
		Console: c.Logging.Console,
		File:    logx.FileConfig{Enabled: c.Logging.File.Enabled, Path: c.Logging.File.Path},
	}
	if lv := strings.TrimSpace(c.Logging.Level); lv != "" && !logx.ValidLevel(lv) {
		fail(fmt.Errorf("logging.level: unknown level %q", lv))
	}

	rt.Lists = c.Policy.Lists()

	rt.Ingress = transport.Endpoint{Network: c.Ingress.Network, Addr: c.Ingress.Addr}.Normalize()
	if rt.Ingress.Addr == "" && rt.Ingress.Network != transport.NetworkStdio {
		rt.Ingress.Addr = DefaultIngressAddr
	}
	fail(checkNetwork("ingress.network", rt.Ingress.Network, true))
	rt.IngressCodec, err = wire.Lookup(c.Ingress.Codec)
	fail(prefixErr("ingress.codec", err))
	rt.DropWarnInterval, err = ParseDurationOrDefault("ingress.drop_warn_interval", c.Ingress.DropWarnInterval, 30*time.Second)
	fail(err)

	rt.Events = transport.Endpoint{Network: c.Consumer.Network, Addr: orDefault(c.Consumer.EventsAddr, DefaultEventsAddr)}.Normalize()
	rt.Methods = transport.Endpoint{Network: c.Consumer.Network, Addr: orDefault(c.Consumer.MethodsAddr, DefaultMethodsAddr)}.Normalize()
	fail(checkNetwork("consumer.network", rt.Events.Network, false))
	if rt.Events.Addr == rt.Methods.Addr {
		fail(fmt.Errorf("consumer: events_addr and methods_addr must differ (both %q)", rt.Events.Addr))
	}
	rt.ConsumerCodec, err = wire.Lookup(c.Consumer.Codec)
	fail(prefixErr("consumer.codec", err))
	rt.WriteTimeout, err = ParseDurationOrDefault("consumer.write_timeout", c.Consumer.WriteTimeout, 5*time.Second)
	fail(err)
	rt.CommandTimeout, err = ParseDurationOrDefault("consumer.command_timeout", c.Consumer.CommandTimeout, 30*time.Second)
	fail(err)
	if cmd := c.Consumer.SettingsCommand; len(cmd) > 0 {
		if strings.TrimSpace(cmd[0]) == "" {
			fail(errors.New("consumer.settings_command: empty program"))
		}
		rt.SettingsCommand = append([]string(nil), cmd...)
	}

	o := c.Observability
	rt.Observability = server.Config{
		Enabled:              o.Enabled,
		Addr:                 strings.TrimSpace(o.Addr),
		Prefix:               o.Prefix,
		Token:                strings.TrimSpace(o.Token),
		AllowInsecure:        o.AllowInsecure,
		MutexProfileFraction: o.MutexProfileFraction,
		BlockProfileRate:     o.BlockProfileRate,
	}
	rt.Observability.ReadTimeout, err = ParseDurationField("observability.read_timeout", o.ReadTimeout)
	fail(err)
	rt.Observability.WriteTimeout, err = ParseDurationField("observability.write_timeout", o.WriteTimeout)
	fail(err)
	rt.Observability.IdleTimeout, err = ParseDurationField("observability.idle_timeout", o.IdleTimeout)
	fail(err)

	if len(errs) > 0 {
		return Runtime{}, fmt.Errorf("%w: %w", ErrInvalid, errors.Join(errs...))
	}
	return rt, nil
}

// Validate reports whether c resolves.
func (c *Config) Validate() error {
	_, err := c.Resolve()
	return err
}

// Lists builds the policy lists, falling back to the defaults for a list
// that was not given.
func (p PolicyConfig) Lists() policy.Lists {
	allow, deny := p.Allow, p.Deny
	if allow == nil {
		allow = policy.DefaultAllow
	}
	if deny == nil {
		deny = policy.DefaultDeny
	}
	return policy.NewLists(allow, deny)
}

func checkNetwork(field, network string, stdioOK bool) error {
	switch network {
	case transport.NetworkUnix, transport.NetworkTCP:
		return nil
	case transport.NetworkStdio:
		if stdioOK {
			return nil
		}
	}
	return fmt.Errorf("%s: unsupported network %q", field, network)
}

func prefixErr(field string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", field, err)
}

func orDefault(s, def string) string {
	if strings.TrimSpace(s) == "" {
		return def
	}
	return s
}
