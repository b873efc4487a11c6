package control

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matzehuels/panelmap/pkg/errors"
	"github.com/matzehuels/panelmap/pkg/observability"
)

// fakeController answers commands with canned handlers and records what it saw.
type fakeController struct {
	mu       sync.Mutex
	requests []Request
	handlers map[string]func(Request) Response
}

func newFakeController() *fakeController {
	return &fakeController{handlers: map[string]func(Request) Response{
		CmdPing: func(r Request) Response { return Response{ID: r.ID, Success: true} },
	}}
}

func (f *fakeController) handle(cmd string, fn func(Request) Response) {
	f.handlers[cmd] = fn
}

func (f *fakeController) seen() []Request {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Request(nil), f.requests...)
}

func (f *fakeController) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	upgrader := websocket.Upgrader{}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()
	for {
		var req Request
		if err := conn.ReadJSON(&req); err != nil {
			return
		}
		f.mu.Lock()
		f.requests = append(f.requests, req)
		fn, ok := f.handlers[req.Cmd]
		f.mu.Unlock()

		resp := Response{ID: req.ID, Error: json.RawMessage(`"unknown command"`)}
		if ok {
			resp = fn(req)
		}
		if err := conn.WriteJSON(resp); err != nil {
			return
		}
	}
}

func startController(t *testing.T, f *fakeController) string {
	t.Helper()
	srv := httptest.NewServer(f)
	t.Cleanup(srv.Close)
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func testOptions() Options {
	return Options{Timeout: 2 * time.Second, Logger: log.New(io.Discard)}
}

func dialTest(t *testing.T, url string) *Client {
	t.Helper()
	c, err := Dial(context.Background(), url, testOptions())
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestSendAssignsSequentialIDs(t *testing.T) {
	f := newFakeController()
	c := dialTest(t, startController(t, f))

	require.NoError(t, c.Ping(context.Background()))
	require.NoError(t, c.Ping(context.Background()))

	reqs := f.seen()
	require.Len(t, reqs, 2)
	assert.Equal(t, "1", reqs[0].ID)
	assert.Equal(t, "2", reqs[1].ID)
	assert.Equal(t, CmdPing, reqs[0].Cmd)
	assert.Nil(t, reqs[0].Params)
}

func TestSendFailureIsControllerError(t *testing.T) {
	f := newFakeController()
	f.handle(CmdRefreshTargets, func(r Request) Response {
		return Response{ID: r.ID, Success: false, Error: json.RawMessage(`"not connected"`)}
	})
	c := dialTest(t, startController(t, f))

	err := c.RefreshTargets(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrCodeController))
	assert.Contains(t, err.Error(), "not connected")

	_, err = c.Send(context.Background(), "bogus", nil)
	assert.True(t, errors.Is(err, errors.ErrCodeController))
	assert.Contains(t, err.Error(), "unknown command")
}

func TestSendSkipsUnrelatedMessages(t *testing.T) {
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		var req Request
		if conn.ReadJSON(&req) != nil {
			return
		}
		_ = conn.WriteJSON(Response{ID: "event", Success: true, Data: json.RawMessage(`{"state":"x"}`)})
		_ = conn.WriteJSON(Response{ID: req.ID, Success: true, Data: json.RawMessage(`{"ok":1}`)})
	}))
	t.Cleanup(srv.Close)

	c := dialTest(t, "ws"+strings.TrimPrefix(srv.URL, "http"))
	data, err := c.State(context.Background())
	require.NoError(t, err)
	assert.JSONEq(t, `{"ok":1}`, string(data))
}

func TestPanelsAndSelect(t *testing.T) {
	f := newFakeController()
	f.handle(CmdListPanels, func(r Request) Response {
		return Response{ID: r.ID, Success: true, Data: json.RawMessage(`{"panels":[
			{"id":"s1","title":"1.1.1","cgWindowId":4711},
			{"id":"s8","title":"1.1.8","cgWindowId":4712}
		]}`)}
	})
	f.handle(CmdSetCaptureTarget, func(r Request) Response { return Response{ID: r.ID, Success: true} })
	c := dialTest(t, startController(t, f))

	panels, err := c.Panels(context.Background())
	require.NoError(t, err)
	require.Len(t, panels, 2)
	assert.Equal(t, int64(4712), panels[1].CGWindowID)

	p, err := c.Select(context.Background(), "1.1.8")
	require.NoError(t, err)
	assert.Equal(t, "s8", p.ID)

	reqs := f.seen()
	last := reqs[len(reqs)-1]
	assert.Equal(t, CmdSetCaptureTarget, last.Cmd)
	params, err := json.Marshal(last.Params)
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"iterm2","iterm2SessionId":"s8","cgWindowId":4712}`, string(params))
}

func TestSelectFallsBackToFirst(t *testing.T) {
	panels := []Panel{{ID: "a", Title: "1.1.1"}, {ID: "b", Title: "1.1.2"}}

	p, ok := SelectPanel(panels, "9.9.9")
	assert.True(t, ok)
	assert.Equal(t, "a", p.ID)

	_, ok = SelectPanel(nil, "1.1.1")
	assert.False(t, ok)
}

func TestSelectMissingWindowID(t *testing.T) {
	f := newFakeController()
	f.handle(CmdListPanels, func(r Request) Response {
		return Response{ID: r.ID, Success: true, Data: json.RawMessage(`{"panels":[{"id":"s1","title":"1.1.1"}]}`)}
	})
	c := dialTest(t, startController(t, f))

	_, err := c.Select(context.Background(), "1.1.1")
	assert.True(t, errors.Is(err, errors.ErrCodeController), "got %v", err)
}

func TestDialRejectsHTTPURL(t *testing.T) {
	_, err := Dial(context.Background(), "http://127.0.0.1:1", testOptions())
	assert.True(t, errors.Is(err, errors.ErrCodeInvalidInput))
}

func TestWaitReady(t *testing.T) {
	f := newFakeController()
	url := startController(t, f)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	c, err := WaitReady(ctx, url, 10*time.Millisecond, testOptions())
	require.NoError(t, err)
	defer c.Close()
	assert.Equal(t, url, c.URL())
}

func TestWaitReadyTimesOut(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	_, err := WaitReady(ctx, url, 10*time.Millisecond, testOptions())
	assert.True(t, errors.Is(err, errors.ErrCodeTimeout), "got %v", err)
}

func TestSendCancelledContext(t *testing.T) {
	f := newFakeController()
	block := make(chan struct{})
	t.Cleanup(func() { close(block) })
	f.handle(CmdGetState, func(r Request) Response {
		<-block
		return Response{ID: r.ID, Success: true}
	})
	c := dialTest(t, startController(t, f))

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err := c.State(ctx)
	assert.True(t, errors.Is(err, errors.ErrCodeTimeout), "got %v", err)
}

type recordingHooks struct {
	observability.NoopControlHooks
	mu        sync.Mutex
	commands  []string
	responses []bool
}

func (h *recordingHooks) OnCommand(_ context.Context, cmd string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.commands = append(h.commands, cmd)
}

func (h *recordingHooks) OnResponse(_ context.Context, _ string, success bool, _ time.Duration) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.responses = append(h.responses, success)
}

func TestControlHooks(t *testing.T) {
	h := &recordingHooks{}
	observability.SetControlHooks(h)
	t.Cleanup(observability.Reset)

	c := dialTest(t, startController(t, newFakeController()))
	require.NoError(t, c.Ping(context.Background()))
	_, _ = c.Send(context.Background(), "nope", nil)

	assert.Equal(t, []string{CmdPing, "nope"}, h.commands)
	assert.Equal(t, []bool{true, false}, h.responses)
}
