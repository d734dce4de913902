// Package client talks to the glanced daemon over its Unix socket. A
// Client implements palette.Backend, so a host can drive a palette
// controller against a running daemon.
package client

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	glance "github.com/Paranoid-AF/glance"
)

const dialTimeout = 2 * time.Second

// Client sends one request per connection, as the daemon expects.
type Client struct {
	sockPath  string
	sessionID string
	nextID    atomic.Int64
}

// New creates a client for the daemon socket at sockPath. An empty path
// resolves the default socket.
func New(sockPath string) *Client {
	if sockPath == "" {
		sockPath = glance.SocketPath()
	}
	return &Client{sockPath: sockPath, sessionID: uuid.NewString()}
}

// SessionID identifies this client to the daemon.
func (c *Client) SessionID() string { return c.sessionID }

// Do sends req and waits for the response. Daemon-side failures are
// returned as *glance.Error. Cancelling ctx closes the connection.
func (c *Client) Do(ctx context.Context, req *glance.Request) (*glance.Response, error) {
	req.RequestID = int(c.nextID.Add(1))
	req.SessionID = c.sessionID

	var d net.Dialer
	dctx, cancel := context.WithTimeout(ctx, dialTimeout)
	conn, err := d.DialContext(dctx, "unix", c.sockPath)
	cancel()
	if err != nil {
		return nil, fmt.Errorf("connect to glanced: %w", err)
	}
	defer conn.Close()

	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()

	data, err := json.Marshal(req)
	if err != nil {
		return nil, err
	}
	if _, err := conn.Write(append(data, '\n')); err != nil {
		return nil, fmt.Errorf("send %s request: %w", req.Type, err)
	}

	scanner := bufio.NewScanner(conn)
	scanner.Buffer(make([]byte, 64*1024), 4*1024*1024)
	if !scanner.Scan() {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if err := scanner.Err(); err != nil {
			return nil, fmt.Errorf("read %s response: %w", req.Type, err)
		}
		return nil, fmt.Errorf("read %s response: connection closed", req.Type)
	}

	var resp glance.Response
	if err := json.Unmarshal(scanner.Bytes(), &resp); err != nil {
		return nil, fmt.Errorf("decode %s response: %w", req.Type, err)
	}
	if resp.RequestID != req.RequestID {
		slog.Warn("response id mismatch", "want", req.RequestID, "got", resp.RequestID)
	}
	if resp.Error != nil {
		return nil, resp.Error
	}
	return &resp, nil
}

// CaptureText reads ambient text through the daemon.
func (c *Client) CaptureText(ctx context.Context, mode glance.CaptureMode) (glance.Capture, error) {
	resp, err := c.Do(ctx, &glance.Request{Type: glance.RequestCapture, Mode: mode})
	if err != nil {
		return glance.Capture{}, err
	}
	if resp.Capture == nil {
		return glance.Capture{Source: mode}, nil
	}
	return *resp.Capture, nil
}

// LoadCommandCatalog returns the catalog ordered for hint.
func (c *Client) LoadCommandCatalog(ctx context.Context, hint string) ([]glance.Command, error) {
	resp, err := c.Do(ctx, &glance.Request{Type: glance.RequestCatalog, Hint: hint})
	if err != nil {
		return nil, err
	}
	return resp.Commands, nil
}

// ExecuteAction runs an action. A newer call from the same client
// supersedes this one on the daemon, which then closes the connection.
func (c *Client) ExecuteAction(ctx context.Context, action glance.ActionType, text string) (glance.ActionResult, error) {
	resp, err := c.Do(ctx, &glance.Request{Type: glance.RequestExecute, Action: action, Text: text})
	if err != nil {
		return glance.ActionResult{}, err
	}
	if resp.Result == nil {
		return glance.ActionResult{}, &glance.Error{Code: "api_error", Message: "empty result"}
	}
	return *resp.Result, nil
}

// RecordUsage records that a command was run.
func (c *Client) RecordUsage(ctx context.Context, commandID string) error {
	_, err := c.Do(ctx, &glance.Request{Type: glance.RequestUsage, CommandID: commandID})
	return err
}

// OpenWidget asks the daemon to open a widget window.
func (c *Client) OpenWidget(ctx context.Context, widget glance.WidgetType) error {
	_, err := c.Do(ctx, &glance.Request{Type: glance.RequestOpenWidget, Widget: widget})
	return err
}

// Paste hands text to the daemon for pasting.
func (c *Client) Paste(ctx context.Context, text string) error {
	_, err := c.Do(ctx, &glance.Request{Type: glance.RequestPaste, Text: text})
	return err
}

// Clipboard returns the recent clipboard entries, most recent first.
func (c *Client) Clipboard(ctx context.Context) ([]glance.ClipboardEntry, error) {
	resp, err := c.Do(ctx, &glance.Request{Type: glance.RequestClipboard})
	if err != nil {
		return nil, err
	}
	return resp.Clipboard, nil
}

// WatchClipboard polls the clipboard feed every interval and calls fn
// whenever the entries change, until ctx is cancelled.
func (c *Client) WatchClipboard(ctx context.Context, interval time.Duration, fn func([]glance.ClipboardEntry)) {
	if interval <= 0 {
		interval = time.Second
	}
	var last []glance.ClipboardEntry
	check := func() {
		entries, err := c.Clipboard(ctx)
		if err != nil {
			if ctx.Err() == nil {
				slog.Debug("clipboard poll failed", "error", err)
			}
			return
		}
		if !sameEntries(last, entries) {
			last = entries
			fn(entries)
		}
	}

	check()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			check()
		}
	}
}

func sameEntries(a, b []glance.ClipboardEntry) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].ID != b[i].ID || !a[i].Timestamp.Equal(b[i].Timestamp) {
			return false
		}
	}
	return true
}
