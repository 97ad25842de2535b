package config

import (
	"reflect"
	"slices"
	"strings"

	logx "focusdesk/pkg/logx"
)

// Section names reported by Summarize.
const (
	SectionLogging       = "logging"
	SectionPolicy        = "policy"
	SectionIngress       = "ingress"
	SectionConsumer      = "consumer"
	SectionObservability = "observability"
)

// Summarize returns the changed sections (sorted) and log fields describing
// their new values. Tokens are never logged, only whether one is set.
func Summarize(oldCfg, newCfg *Config) ([]string, []logx.Field) {
	if oldCfg == nil {
		oldCfg = &Config{}
	}
	if newCfg == nil {
		newCfg = &Config{}
	}
	var (
		changed []string
		attrs   []logx.Field
	)

	if !reflect.DeepEqual(oldCfg.Logging, newCfg.Logging) {
		changed = append(changed, SectionLogging)
		attrs = append(attrs,
			logx.String("logging.level", newCfg.Logging.Level),
			logx.Bool("logging.console", newCfg.Logging.Console),
			logx.Bool("logging.file_enabled", newCfg.Logging.File.Enabled),
		)
	}

	if listChanged(oldCfg.Policy.Allow, newCfg.Policy.Allow) || listChanged(oldCfg.Policy.Deny, newCfg.Policy.Deny) {
		changed = append(changed, SectionPolicy)
		allow, deny := newCfg.Policy.Lists().Sizes()
		attrs = append(attrs,
			logx.Int("policy.allow", allow),
			logx.Int("policy.deny", deny),
			logx.Bool("policy.allow_default", newCfg.Policy.Allow == nil),
			logx.Bool("policy.deny_default", newCfg.Policy.Deny == nil),
		)
	}

	if !reflect.DeepEqual(oldCfg.Ingress, newCfg.Ingress) {
		changed = append(changed, SectionIngress)
		attrs = append(attrs,
			logx.String("ingress.network", newCfg.Ingress.Network),
			logx.String("ingress.addr", newCfg.Ingress.Addr),
			logx.String("ingress.codec", newCfg.Ingress.Codec),
		)
	}

	if !reflect.DeepEqual(oldCfg.Consumer, newCfg.Consumer) {
		changed = append(changed, SectionConsumer)
		attrs = append(attrs,
			logx.String("consumer.network", newCfg.Consumer.Network),
			logx.String("consumer.events_addr", newCfg.Consumer.EventsAddr),
			logx.String("consumer.methods_addr", newCfg.Consumer.MethodsAddr),
			logx.Bool("consumer.settings_command_set", len(newCfg.Consumer.SettingsCommand) > 0),
		)
	}

	o, n := oldCfg.Observability, newCfg.Observability
	tokenSetOld, tokenSetNew := strings.TrimSpace(o.Token) != "", strings.TrimSpace(n.Token) != ""
	o.Token, n.Token = "", ""
	if o != n || tokenSetOld != tokenSetNew {
		changed = append(changed, SectionObservability)
		attrs = append(attrs,
			logx.Bool("observability.enabled", n.Enabled),
			logx.String("observability.addr", strings.TrimSpace(n.Addr)),
			logx.Bool("observability.token_set", tokenSetNew),
			logx.Bool("observability.allow_insecure", n.AllowInsecure),
		)
	}

	slices.Sort(changed)
	return changed, attrs
}

// RestartRequired reports sections whose changes only take effect after a
// restart.
func RestartRequired(sections []string) []string {
	var out []string
	for _, s := range sections {
		if s == SectionIngress || s == SectionConsumer {
			out = append(out, s)
		}
	}
	return out
}

// listChanged treats nil (default) and empty (cleared) as different.
func listChanged(a, b []string) bool {
	if (a == nil) != (b == nil) {
		return true
	}
	return !slices.Equal(a, b)
}
