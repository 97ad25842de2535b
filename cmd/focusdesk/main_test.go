package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Setenv("FOCUSDESK_CONFIG", "")
	t.Setenv("FOCUSDESK_LOG_LEVEL", "")
	var out bytes.Buffer
	cmd := newCommand()
	cmd.Writer = &out
	cmd.ErrWriter = &out
	err := cmd.Run(context.Background(), append([]string{"focusdesk"}, args...))
	return out.String(), err
}

func TestValidateSummary(t *testing.T) {
	path := filepath.Join(t.TempDir(), "focusdesk.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
policy:
  allow: [com.whatsapp, com.facebook.katana]
ingress:
  network: tcp
  addr: 127.0.0.1:7000
  codec: msgpack
`), 0o600))

	out, err := runCLI(t, "-c", path, "--log-level", "debug", "validate")
	require.NoError(t, err)
	assert.Contains(t, out, "log level:     debug")
	assert.Contains(t, out, "tcp://127.0.0.1:7000 (msgpack)")
	assert.Contains(t, out, "in both lists (denied): com.facebook.katana")
	assert.Contains(t, out, "observability: disabled")
}

func TestValidateRejectsBadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "focusdesk.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"ingress":{"codec":"xml"}}`), 0o600))

	_, err := runCLI(t, "--config", path, "validate")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ingress.codec")
}

func TestUnknownCommand(t *testing.T) {
	_, err := runCLI(t, "frobnicate")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown command")
}
