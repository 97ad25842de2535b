package app

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"focusdesk/internal/config"
	"focusdesk/internal/eventbus"
	"focusdesk/internal/forwarder"
	"focusdesk/internal/notification"
	"focusdesk/internal/wire"
)

type paths struct{ cfg, ingress, events, methods string }

func newApp(t *testing.T) (*App, paths) {
	t.Helper()
	t.Setenv("NOTIFY_SOCKET", "")
	dir := t.TempDir()
	p := paths{
		cfg:     filepath.Join(dir, "focusdesk.json"),
		ingress: filepath.Join(dir, "in.sock"),
		events:  filepath.Join(dir, "ev.sock"),
		methods: filepath.Join(dir, "me.sock"),
	}
	body := fmt.Sprintf(`{
		"logging": {"level": "error"},
		"ingress": {"addr": %q},
		"consumer": {"events_addr": %q, "methods_addr": %q}
	}`, p.ingress, p.events, p.methods)
	require.NoError(t, os.WriteFile(p.cfg, []byte(body), 0o600))

	m := config.NewManager(p.cfg)
	m.SetEnviron(map[string]string{})
	a, err := New(m)
	require.NoError(t, err)
	return a, p
}

func dialUnix(t *testing.T, path string) net.Conn {
	t.Helper()
	var conn net.Conn
	require.Eventually(t, func() bool {
		c, err := net.Dial("unix", path)
		if err != nil {
			return false
		}
		conn = c
		return true
	}, 3*time.Second, 20*time.Millisecond)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func TestEndToEnd(t *testing.T) {
	a, p := newApp(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, a.Start(ctx))
	defer func() {
		stopCtx, stop := context.WithTimeout(context.Background(), 5*time.Second)
		defer stop()
		require.NoError(t, a.Stop(stopCtx, StopSignal))
		assert.NoError(t, a.Err())
	}()

	events := dialUnix(t, p.events)
	require.Eventually(t, a.Forwarder().Active, 3*time.Second, 10*time.Millisecond)

	in := dialUnix(t, p.ingress)
	_, err := in.Write([]byte(`{"kind":"session","active":true}
{"kind":"posted","package":"com.whatsapp","title":"Nirmiti","text":"hi","category":"msg","importance":"default"}
{"kind":"posted","package":"com.facebook.katana","title":"x","text":"y","importance":"max"}
{"kind":"removed","package":"com.whatsapp","title":"Nirmiti"}
`))
	require.NoError(t, err)

	require.NoError(t, events.SetReadDeadline(time.Now().Add(3*time.Second)))
	dec := json.NewDecoder(events)

	var post wire.Message
	require.NoError(t, dec.Decode(&post))
	assert.Equal(t, "POST", post.Action)
	assert.Equal(t, "com.whatsapp|Nirmiti", post.ID)
	require.NotNil(t, post.Text)
	assert.Equal(t, "hi", *post.Text)

	// The denied app never reaches the consumer.
	var rm wire.Message
	require.NoError(t, dec.Decode(&rm))
	assert.Equal(t, "REMOVE", rm.Action)
	assert.Equal(t, "com.whatsapp|Nirmiti", rm.ID)
	assert.Nil(t, rm.Title)

	methods := dialUnix(t, p.methods)
	require.NoError(t, json.NewEncoder(methods).Encode(wire.Request{Method: "openSettings"}))
	require.NoError(t, methods.SetReadDeadline(time.Now().Add(3*time.Second)))
	var reply wire.Reply
	require.NoError(t, json.NewDecoder(methods).Decode(&reply))
	require.NotNil(t, reply.Error)
	assert.Equal(t, "notImplemented", *reply.Error)

	st, ok := a.status().(Status)
	require.True(t, ok)
	assert.True(t, st.Subscribed)
	assert.True(t, st.Session)
	assert.NotEmpty(t, st.Tasks)
}

func TestListenerFailureStopsApp(t *testing.T) {
	a, p := newApp(t)
	// A directory at the events socket path is not a socket.
	require.NoError(t, os.Mkdir(p.events, 0o700))

	require.NoError(t, a.Start(context.Background()))
	select {
	case <-a.Done():
	case <-time.After(3 * time.Second):
		t.Fatal("app did not stop")
	}
	assert.Error(t, a.Err())
	require.NoError(t, a.Stop(context.Background(), StopFatalError))
}

func TestApplyHotReloadsPolicy(t *testing.T) {
	a, _ := newApp(t)
	ch, unsub := a.bus.Subscribe(4)
	defer unsub()

	oldCfg := a.cfgm.Get()
	newCfg := *oldCfg
	newCfg.Policy = config.PolicyConfig{Allow: []string{"org.example.chat"}, Deny: []string{}}
	newCfg.Ingress.Addr = "/tmp/elsewhere.sock"

	require.True(t, a.apply(context.Background(), oldCfg, &newCfg))
	assert.True(t, a.filter.Lists().Allowed("org.example.chat"))
	assert.False(t, a.filter.Lists().Denied("com.facebook.katana"))

	select {
	case e := <-ch:
		assert.Equal(t, eventbus.ConfigApplied, e.Type)
		ce, ok := e.Data.(eventbus.ConfigEvent)
		require.True(t, ok)
		assert.Equal(t, []string{config.SectionIngress, config.SectionPolicy}, ce.Sections)
	case <-time.After(time.Second):
		t.Fatal("no config.applied signal")
	}
}

func TestApplyRejectsInvalid(t *testing.T) {
	a, _ := newApp(t)
	bad := &config.Config{Ingress: config.IngressConfig{Codec: "xml"}}
	assert.False(t, a.apply(context.Background(), a.cfgm.Get(), bad))
	assert.True(t, a.filter.Lists().Denied("com.facebook.katana"))
}

// notifySocket points NOTIFY_SOCKET at a datagram socket and collects the
// states sent to it.
func notifySocket(t *testing.T) func() []string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "notify.sock")
	conn, err := net.ListenUnixgram("unixgram", &net.UnixAddr{Name: path, Net: "unixgram"})
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	t.Setenv("NOTIFY_SOCKET", path)

	var (
		mu  sync.Mutex
		got []string
	)
	go func() {
		buf := make([]byte, 4096)
		for {
			n, err := conn.Read(buf)
			if err != nil {
				return
			}
			mu.Lock()
			got = append(got, string(buf[:n]))
			mu.Unlock()
		}
	}()
	return func() []string {
		mu.Lock()
		defer mu.Unlock()
		return append([]string(nil), got...)
	}
}

func hasState(states []string, want string) bool {
	for _, s := range states {
		if strings.Contains(s, want) {
			return true
		}
	}
	return false
}

func TestStatusReportedToServiceManager(t *testing.T) {
	a, _ := newApp(t)
	states := notifySocket(t)

	require.NoError(t, a.Start(context.Background()))
	defer func() {
		stopCtx, stop := context.WithTimeout(context.Background(), 5*time.Second)
		defer stop()
		require.NoError(t, a.Stop(stopCtx, StopSignal))
	}()

	hash := config.HashString(a.cfgm.Get())
	require.Eventually(t, func() bool {
		return hasState(states(), "STATUS=config "+hash+", consumer none, session inactive")
	}, 3*time.Second, 10*time.Millisecond)
	assert.True(t, hasState(states(), "READY=1"))

	sub := a.Forwarder().Subscribe(forwarder.SinkFunc(func(notification.Event) error { return nil }))
	defer sub.Unsubscribe()
	require.Eventually(t, func() bool {
		return hasState(states(), "consumer subscribed, session inactive")
	}, 3*time.Second, 10*time.Millisecond)
}

func TestReloadRejectsExposedObservability(t *testing.T) {
	a, p := newApp(t)
	before := config.HashString(a.cfgm.Get())

	body := fmt.Sprintf(`{
		"logging": {"level": "error"},
		"ingress": {"addr": %q},
		"consumer": {"events_addr": %q, "methods_addr": %q},
		"observability": {"enabled": true, "addr": "0.0.0.0:6060"}
	}`, p.ingress, p.events, p.methods)
	require.NoError(t, os.WriteFile(p.cfg, []byte(body), 0o600))

	published, err := a.cfgm.Reload(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "requires token")
	assert.False(t, published)
	assert.Equal(t, before, config.HashString(a.cfgm.Get()))

	body = fmt.Sprintf(`{
		"logging": {"level": "error"},
		"ingress": {"addr": %q},
		"consumer": {"events_addr": %q, "methods_addr": %q},
		"observability": {"enabled": true, "addr": "0.0.0.0:6060", "token": "s3cret"}
	}`, p.ingress, p.events, p.methods)
	require.NoError(t, os.WriteFile(p.cfg, []byte(body), 0o600))

	published, err = a.cfgm.Reload(context.Background())
	require.NoError(t, err)
	assert.True(t, published)
}
