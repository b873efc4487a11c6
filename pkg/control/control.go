// Package control talks to the capture controller over its websocket API.
//
// The controller accepts one JSON command per message and answers each with a
// response carrying the same id:
//
//	-> {"cmd": "list_iterm2_panels", "id": "3"}
//	<- {"id": "3", "success": true, "data": {"panels": [...]}}
//
// A response with success=false is returned as a CONTROLLER_ERROR. Commands
// on one [Client] are serialized; ids are assigned sequentially.
package control

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gorilla/websocket"

	"github.com/matzehuels/panelmap/pkg/buildinfo"
	"github.com/matzehuels/panelmap/pkg/errors"
	"github.com/matzehuels/panelmap/pkg/observability"
)

// Controller defaults.
const (
	DefaultURL          = "ws://127.0.0.1:19002"
	DefaultTimeout      = 10 * time.Second
	DefaultPollInterval = 200 * time.Millisecond
)

// Command names understood by the controller.
const (
	CmdPing             = "ping"
	CmdConnect          = "connect"
	CmdRefreshTargets   = "refresh_targets"
	CmdListPanels       = "list_iterm2_panels"
	CmdSetCaptureTarget = "set_capture_target"
	CmdGetState         = "get_state"
)

// Request is one command sent to the controller.
type Request struct {
	Cmd    string `json:"cmd"`
	ID     string `json:"id,omitempty"`
	Params any    `json:"params,omitempty"`
}

// Response is the controller's answer to a Request. Error is whatever the
// controller put there, usually a string.
type Response struct {
	ID      string          `json:"id"`
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data,omitempty"`
	Error   json.RawMessage `json:"error,omitempty"`
}

// Options configures a Client.
type Options struct {
	// Timeout bounds the handshake and each command when the context has no
	// earlier deadline. Zero means DefaultTimeout.
	Timeout time.Duration

	Logger *log.Logger
}

func (o *Options) setDefaults() {
	if o.Timeout <= 0 {
		o.Timeout = DefaultTimeout
	}
	if o.Logger == nil {
		o.Logger = log.Default()
	}
}

// Client is a connection to the controller.
type Client struct {
	url    string
	conn   *websocket.Conn
	opts   Options
	mu     sync.Mutex
	nextID uint64
}

// Dial connects to the controller at url.
func Dial(ctx context.Context, url string, opts Options) (*Client, error) {
	if err := errors.ValidateControlURL(url); err != nil {
		return nil, err
	}
	opts.setDefaults()

	dialer := websocket.Dialer{HandshakeTimeout: opts.Timeout}
	header := http.Header{"User-Agent": []string{buildinfo.UserAgent()}}
	conn, _, err := dialer.DialContext(ctx, url, header)
	if err != nil {
		if ctx.Err() != nil {
			return nil, errors.Wrap(errors.ErrCodeTimeout, err, "dial %s", url)
		}
		return nil, errors.Wrap(errors.ErrCodeNetwork, err, "dial %s", url)
	}
	opts.Logger.Debug("controller connected", "url", url)
	return &Client{url: url, conn: conn, opts: opts}, nil
}

// WaitReady dials url and pings until the controller answers or ctx is done.
// The returned client is connected and ready for commands.
func WaitReady(ctx context.Context, url string, interval time.Duration, opts Options) (*Client, error) {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	opts.setDefaults()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	var last error
	for attempt := 1; ; attempt++ {
		c, err := Dial(ctx, url, opts)
		if err == nil {
			if err = c.Ping(ctx); err == nil {
				return c, nil
			}
			_ = c.Close()
		}
		if errors.Is(err, errors.ErrCodeInvalidInput) {
			return nil, err
		}
		last = err
		opts.Logger.Debug("controller not ready", "attempt", attempt, "err", err)

		select {
		case <-ctx.Done():
			return nil, errors.Wrap(errors.ErrCodeTimeout, last, "controller at %s not ready", url)
		case <-ticker.C:
		}
	}
}

// URL returns the controller address.
func (c *Client) URL() string { return c.url }

// Close sends a close frame and closes the connection.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
	_ = c.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
	return c.conn.Close()
}

// Send issues cmd with params and returns the response data. Responses with
// a different id are skipped.
func (c *Client) Send(ctx context.Context, cmd string, params any) (json.RawMessage, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	hooks := observability.Control()
	hooks.OnCommand(ctx, cmd)
	start := time.Now()

	c.nextID++
	req := Request{Cmd: cmd, ID: strconv.FormatUint(c.nextID, 10), Params: params}
	resp, err := c.roundTrip(ctx, req)
	if err != nil {
		hooks.OnError(ctx, cmd, err)
		return nil, err
	}
	hooks.OnResponse(ctx, cmd, resp.Success, time.Since(start))

	if !resp.Success {
		return nil, errors.New(errors.ErrCodeController, "%s failed: %s", cmd, responseError(resp.Error))
	}
	c.opts.Logger.Debug("controller response", "cmd", cmd, "id", req.ID, "duration", time.Since(start))
	return resp.Data, nil
}

func (c *Client) roundTrip(ctx context.Context, req Request) (*Response, error) {
	deadline := time.Now().Add(c.opts.Timeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	_ = c.conn.SetWriteDeadline(deadline)
	_ = c.conn.SetReadDeadline(deadline)
	defer func() {
		_ = c.conn.SetWriteDeadline(time.Time{})
		_ = c.conn.SetReadDeadline(time.Time{})
	}()

	// unblock reads when ctx is cancelled
	stop := context.AfterFunc(ctx, func() { _ = c.conn.SetReadDeadline(time.Now()) })
	defer stop()

	if err := c.conn.WriteJSON(req); err != nil {
		return nil, c.wrapIOError(ctx, err, "send %s", req.Cmd)
	}
	for {
		var resp Response
		if err := c.conn.ReadJSON(&resp); err != nil {
			var syntax *json.SyntaxError
			if stderrors.As(err, &syntax) {
				return nil, errors.Wrap(errors.ErrCodeController, err, "malformed response to %s", req.Cmd)
			}
			return nil, c.wrapIOError(ctx, err, "read %s response", req.Cmd)
		}
		if resp.ID == req.ID || resp.ID == "" {
			return &resp, nil
		}
		c.opts.Logger.Debug("skipping unrelated controller message", "id", resp.ID, "want", req.ID)
	}
}

func (c *Client) wrapIOError(ctx context.Context, err error, format string, args ...any) error {
	if ctx.Err() != nil {
		return errors.Wrap(errors.ErrCodeTimeout, ctx.Err(), format, args...)
	}
	var ne interface{ Timeout() bool }
	if stderrors.As(err, &ne) && ne.Timeout() {
		return errors.Wrap(errors.ErrCodeTimeout, err, format, args...)
	}
	return errors.Wrap(errors.ErrCodeNetwork, err, format, args...)
}

func responseError(raw json.RawMessage) string {
	if len(raw) == 0 || string(raw) == "null" {
		return "unknown error"
	}
	var s string
	if json.Unmarshal(raw, &s) == nil {
		return s
	}
	return strings.TrimSpace(string(raw))
}
