package ingress

import (
	"bytes"
	"context"
	"net"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"focusdesk/internal/eventbus"
	"focusdesk/internal/forwarder"
	"focusdesk/internal/notification"
	"focusdesk/internal/transport"
	"focusdesk/internal/wire"
	logx "focusdesk/pkg/logx"
)

type recorder struct {
	mu     sync.Mutex
	events []notification.Event
}

func (r *recorder) Send(ev notification.Event) error {
	r.mu.Lock()
	r.events = append(r.events, ev)
	r.mu.Unlock()
	return nil
}

func (r *recorder) got() []notification.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]notification.Event(nil), r.events...)
}

func ptr[T any](v T) *T { return &v }

func setup(t *testing.T) (*Dispatcher, *recorder, eventbus.Bus) {
	t.Helper()
	bus := eventbus.New()
	fwd := forwarder.New(logx.Nop(), bus)
	rec := &recorder{}
	fwd.Subscribe(rec)
	return NewDispatcher(Options{Forwarder: fwd, Bus: bus}), rec, bus
}

func whatsapp(title, text string) notification.RawNotification {
	return Record{
		Kind:     KindPosted,
		Package:  "com.whatsapp",
		Title:    ptr(title),
		Text:     ptr(text),
		Category: "msg",
	}.Notification()
}

func TestRecordMapping(t *testing.T) {
	raw := Record{
		Package:      "com.example",
		Title:        ptr("t"),
		Ongoing:      true,
		GroupSummary: true,
		Category:     "call",
		Importance:   ptr("high"),
	}.Notification()

	assert.Equal(t, "", raw.Body)
	assert.True(t, raw.Ongoing)
	assert.True(t, raw.GroupSummary)
	assert.Equal(t, notification.CategoryCall, raw.Category)
	assert.Equal(t, notification.Known(notification.ImportanceHigh), raw.Importance)

	assert.False(t, Record{}.Notification().Importance.IsKnown())
	assert.Nil(t, Record{Package: "x"}.Removal().Title)
}

func TestPostedRespectsSession(t *testing.T) {
	d, rec, _ := setup(t)
	ctx := context.Background()

	assert.False(t, d.Posted(ctx, whatsapp("Nirmiti", "hi")))
	assert.Empty(t, rec.got())

	d.SetSession(true)
	assert.True(t, d.Posted(ctx, whatsapp("Nirmiti", "hi")))

	got := rec.got()
	require.Len(t, got, 1)
	assert.Equal(t, notification.Event{
		Action:    notification.ActionPost,
		ID:        "com.whatsapp|Nirmiti",
		SourceApp: "com.whatsapp",
		Title:     "Nirmiti",
		Body:      "hi",
	}, got[0])
}

func TestRemovedBypassesSessionAndFilter(t *testing.T) {
	d, rec, _ := setup(t)

	assert.True(t, d.Removed(context.Background(), notification.RawRemoval{SourceApp: "com.facebook.katana", Title: ptr("x")}))
	assert.False(t, d.Removed(context.Background(), notification.RawRemoval{SourceApp: "com.whatsapp"}))

	got := rec.got()
	require.Len(t, got, 1)
	assert.Equal(t, notification.ActionRemove, got[0].Action)
	assert.Equal(t, notification.Key("com.facebook.katana|x"), got[0].ID)
}

func TestSetSessionPublishesOnlyOnChange(t *testing.T) {
	d, _, bus := setup(t)
	signals, unsub := bus.Subscribe(8)
	defer unsub()

	d.SetSession(true)
	d.SetSession(true)
	d.SetSession(false)

	var seen []bool
	for len(signals) > 0 {
		e := <-signals
		require.Equal(t, eventbus.SessionChanged, e.Type)
		seen = append(seen, e.Data.(eventbus.SessionEvent).Active)
	}
	assert.Equal(t, []bool{true, false}, seen)
}

func TestNoSubscriberDropsWithoutPanic(t *testing.T) {
	d := NewDispatcher(Options{})
	d.SetSession(true)
	assert.False(t, d.Posted(context.Background(), whatsapp("a", "b")))
	assert.False(t, d.Posted(context.Background(), whatsapp("a", "b")))
}

func TestServeConnJSONLines(t *testing.T) {
	d, rec, _ := setup(t)
	s := NewServer(logx.Nop(), d, transport.Endpoint{Network: "stdio"}, nil, nil)

	in := strings.Join([]string{
		`{"kind":"posted","package":"com.whatsapp","title":"Nirmiti","text":"early","category":"msg"}`,
		`{"kind":"session","active":true}`,
		`{"kind":"bogus"}`,
		`{"kind":"session"}`,
		`{"kind":"posted","package":"com.whatsapp","title":"Nirmiti","text":"hi","category":"msg"}`,
		`{"kind":"removed","package":"com.whatsapp","title":"Nirmiti"}`,
		`{"kind":"posted","package":"com.whatsapp","title":"Nirmiti","text":"again","category":"msg","importance":"high"}`,
	}, "\n")
	require.NoError(t, s.ServeConn(context.Background(), strings.NewReader(in)))

	got := rec.got()
	require.Len(t, got, 3)
	assert.Equal(t, []notification.Action{notification.ActionPost, notification.ActionRemove, notification.ActionPost},
		[]notification.Action{got[0].Action, got[1].Action, got[2].Action})
	for _, ev := range got {
		assert.Equal(t, notification.Key("com.whatsapp|Nirmiti"), ev.ID)
	}
	assert.Equal(t, "", got[1].Body)
}

func TestServeConnDecodeError(t *testing.T) {
	d, _, _ := setup(t)
	s := NewServer(logx.Nop(), d, transport.Endpoint{}, nil, nil)
	err := s.ServeConn(context.Background(), strings.NewReader(`{"kind":`))
	assert.Error(t, err)
}

func TestServeConnSkipsMismatchedRecord(t *testing.T) {
	d, rec, _ := setup(t)
	s := NewServer(logx.Nop(), d, transport.Endpoint{}, nil, nil)
	in := strings.Join([]string{
		`{"kind":"session","active":true}`,
		`{"kind":"posted","package":"com.whatsapp","title":5,"text":"hi"}`,
		`[1,2,3]`,
		`{"kind":"posted","package":"com.whatsapp","title":"Nirmiti","text":"hi"}`,
	}, "\n")
	require.NoError(t, s.ServeConn(context.Background(), strings.NewReader(in)))

	got := rec.got()
	require.Len(t, got, 1)
	assert.Equal(t, notification.Key("com.whatsapp|Nirmiti"), got[0].ID)
}

func TestServeConnCBOR(t *testing.T) {
	d, rec, _ := setup(t)
	c, err := wire.Lookup(wire.CodecCBOR)
	require.NoError(t, err)

	var buf bytes.Buffer
	enc := c.NewEncoder(&buf)
	require.NoError(t, enc.Encode(Record{Kind: KindSession, Active: ptr(true)}))
	require.NoError(t, enc.Encode(Record{Kind: KindPosted, Package: "com.google.android.apps.messaging", Title: ptr("Mom"), Text: ptr("call me")}))

	s := NewServer(logx.Nop(), d, transport.Endpoint{}, c, nil)
	require.NoError(t, s.ServeConn(context.Background(), &buf))

	got := rec.got()
	require.Len(t, got, 1)
	assert.Equal(t, notification.Key("com.google.android.apps.messaging|Mom"), got[0].ID)
}

func TestRunOverTCP(t *testing.T) {
	d, rec, _ := setup(t)

	// Reserve a free port, then hand it to the server.
	free, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := free.Addr().String()
	require.NoError(t, free.Close())

	s := NewServer(logx.Nop(), d, transport.Endpoint{Network: "tcp", Addr: addr}, nil, nil)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	var conn net.Conn
	require.Eventually(t, func() bool {
		conn, err = net.Dial("tcp", addr)
		return err == nil
	}, 2*time.Second, 10*time.Millisecond)

	_, err = conn.Write([]byte(`{"kind":"session","active":true}` + "\n" +
		`{"kind":"posted","package":"com.whatsapp","title":"A","text":"b","category":"msg"}` + "\n"))
	require.NoError(t, err)
	require.Eventually(t, func() bool { return len(rec.got()) == 1 }, 2*time.Second, 10*time.Millisecond)

	conn.Close()
	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not stop")
	}
}
