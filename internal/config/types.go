// Package config loads the daemon configuration from a JSON or YAML file,
// applies environment overrides, and hot-reloads it on change.
package config

// Config is the on-disk configuration.
//
// All durations are Go duration strings (e.g. "500ms", "10s").
type Config struct {
	Logging       LoggingConfig       `json:"logging"`
	Policy        PolicyConfig        `json:"policy"`
	Ingress       IngressConfig       `json:"ingress"`
	Consumer      ConsumerConfig      `json:"consumer"`
	Observability ObservabilityConfig `json:"observability,omitempty"`
}

type LoggingConfig struct {
	Level   string      `json:"level"`
	Console bool        `json:"console"`
	File    LoggingFile `json:"file"`
}

type LoggingFile struct {
	Enabled bool   `json:"enabled"`
	Path    string `json:"path"`
}

// PolicyConfig overrides the built-in source-app lists.
//
// A missing list keeps the default; an explicit empty list clears it.
type PolicyConfig struct {
	Allow []string `json:"allow"`
	Deny  []string `json:"deny"`
}

// IngressConfig is where the platform shim connects.
//
// Example:
//
//	"ingress": { "network": "unix", "addr": "/run/focusdesk/ingress.sock", "codec": "json" }
type IngressConfig struct {
	Network string `json:"network,omitempty"` // unix (default), tcp, stdio
	Addr    string `json:"addr,omitempty"`
	Codec   string `json:"codec,omitempty"` // json (default), cbor, msgpack

	// DropWarnInterval limits "no consumer" warnings. Default "30s".
	DropWarnInterval string `json:"drop_warn_interval,omitempty"`
}

// ConsumerConfig is where the downstream consumer connects.
type ConsumerConfig struct {
	Network     string `json:"network,omitempty"` // unix (default), tcp
	EventsAddr  string `json:"events_addr,omitempty"`
	MethodsAddr string `json:"methods_addr,omitempty"`
	Codec       string `json:"codec,omitempty"`

	// WriteTimeout bounds one event frame write. Default "5s".
	WriteTimeout string `json:"write_timeout,omitempty"`

	// SettingsCommand is the argv run by the openSettings method.
	// Empty means openSettings always answers false.
	SettingsCommand []string `json:"settings_command,omitempty"`
	CommandTimeout  string   `json:"command_timeout,omitempty"` // default "30s"
}

// ObservabilityConfig controls the optional HTTP endpoint (/healthz,
// /status, /metrics, pprof).
//
// Security note:
//   - Prefer binding to localhost (e.g. "127.0.0.1:6060").
//   - A non-loopback address needs a token or allow_insecure.
type ObservabilityConfig struct {
	Enabled       bool   `json:"enabled"`
	Addr          string `json:"addr,omitempty"`
	Prefix        string `json:"prefix,omitempty"`
	Token         string `json:"token,omitempty"` // do not log
	AllowInsecure bool   `json:"allow_insecure,omitempty"`

	ReadTimeout  string `json:"read_timeout,omitempty"`
	WriteTimeout string `json:"write_timeout,omitempty"`
	IdleTimeout  string `json:"idle_timeout,omitempty"`

	MutexProfileFraction int `json:"mutex_profile_fraction,omitempty"`
	BlockProfileRate     int `json:"block_profile_rate,omitempty"`
}
