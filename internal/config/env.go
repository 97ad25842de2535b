package config

import (
	"os"

	"github.com/caarlos0/env/v11"
)

// Overrides are environment variables that take precedence over the file.
type Overrides struct {
	LogLevel           string `env:"FOCUSDESK_LOG_LEVEL"`
	IngressAddr        string `env:"FOCUSDESK_INGRESS_ADDR"`
	EventsAddr         string `env:"FOCUSDESK_EVENTS_ADDR"`
	MethodsAddr        string `env:"FOCUSDESK_METHODS_ADDR"`
	ObservabilityToken string `env:"FOCUSDESK_OBSERVABILITY_TOKEN"`
}

// ReadOverrides parses overrides from environ. A nil map reads the process
// environment.
func ReadOverrides(environ map[string]string) (Overrides, error) {
	if environ == nil {
		environ = env.ToMap(os.Environ())
	}
	var o Overrides
	if err := env.ParseWithOptions(&o, env.Options{Environment: environ}); err != nil {
		return Overrides{}, err
	}
	return o, nil
}

// Apply copies every set override into cfg.
func (o Overrides) Apply(cfg *Config) {
	if cfg == nil {
		return
	}
	set := func(dst *string, v string) {
		if v != "" {
			*dst = v
		}
	}
	set(&cfg.Logging.Level, o.LogLevel)
	set(&cfg.Ingress.Addr, o.IngressAddr)
	set(&cfg.Consumer.EventsAddr, o.EventsAddr)
	set(&cfg.Consumer.MethodsAddr, o.MethodsAddr)
	set(&cfg.Observability.Token, o.ObservabilityToken)
}
