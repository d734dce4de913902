package client

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"os"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"go.uber.org/goleak"

	glance "github.com/Paranoid-AF/glance"
	"github.com/Paranoid-AF/glance/palette"
)

var _ palette.Backend = (*Client)(nil)

var testSocketCounter atomic.Int64

// fakeDaemon answers each request with handle's response.
type fakeDaemon struct {
	ln     net.Listener
	handle func(req glance.Request) *glance.Response

	mu   sync.Mutex
	reqs []glance.Request
}

func newFakeDaemon(t *testing.T, handle func(req glance.Request) *glance.Response) (*fakeDaemon, string) {
	t.Helper()
	// Use /tmp directly to avoid macOS 104-char Unix socket path limit
	path := fmt.Sprintf("/tmp/glance-c%d-%d.sock", os.Getpid(), testSocketCounter.Add(1))
	os.Remove(path)
	ln, err := net.Listen("unix", path)
	if err != nil {
		t.Fatal(err)
	}
	d := &fakeDaemon{ln: ln, handle: handle}
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			d.serve(conn)
		}
	}()
	t.Cleanup(func() {
		ln.Close()
		<-done
		os.Remove(path)
	})
	return d, path
}

func (d *fakeDaemon) serve(conn net.Conn) {
	defer conn.Close()
	scanner := bufio.NewScanner(conn)
	if !scanner.Scan() {
		return
	}
	var req glance.Request
	if err := json.Unmarshal(scanner.Bytes(), &req); err != nil {
		return
	}
	d.mu.Lock()
	d.reqs = append(d.reqs, req)
	d.mu.Unlock()

	resp := d.handle(req)
	if resp == nil {
		return
	}
	resp.RequestID = req.RequestID
	data, _ := json.Marshal(resp)
	conn.Write(append(data, '\n'))
}

func (d *fakeDaemon) requests() []glance.Request {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]glance.Request(nil), d.reqs...)
}

func TestRequestIDsAndSession(t *testing.T) {
	d, path := newFakeDaemon(t, func(glance.Request) *glance.Response {
		return &glance.Response{OK: true}
	})
	c := New(path)
	ctx := context.Background()

	if err := c.RecordUsage(ctx, "translate"); err != nil {
		t.Fatal(err)
	}
	if err := c.OpenWidget(ctx, "translator"); err != nil {
		t.Fatal(err)
	}
	if err := c.Paste(ctx, "text"); err != nil {
		t.Fatal(err)
	}

	reqs := d.requests()
	if len(reqs) != 3 {
		t.Fatalf("expected 3 requests, got %d", len(reqs))
	}
	for i, r := range reqs {
		if r.RequestID != i+1 {
			t.Errorf("request %d has id %d", i, r.RequestID)
		}
		if r.SessionID != c.SessionID() || r.SessionID == "" {
			t.Errorf("request %d has session %q", i, r.SessionID)
		}
	}
	want := []glance.RequestType{glance.RequestUsage, glance.RequestOpenWidget, glance.RequestPaste}
	for i, r := range reqs {
		if r.Type != want[i] {
			t.Errorf("request %d type = %s, want %s", i, r.Type, want[i])
		}
	}
	if reqs[0].CommandID != "translate" || reqs[1].Widget != "translator" || reqs[2].Text != "text" {
		t.Errorf("unexpected payloads: %+v", reqs)
	}
}

func TestCaptureCatalogExecute(t *testing.T) {
	cmds := []glance.Command{
		{ID: "translate", Label: "Translate", Variant: glance.Action{Type: glance.ActionTranslate}},
		{ID: "settings", Label: "Settings", Variant: glance.Widget{Type: "settings"}},
	}
	_, path := newFakeDaemon(t, func(req glance.Request) *glance.Response {
		switch req.Type {
		case glance.RequestCapture:
			return &glance.Response{Capture: &glance.Capture{Text: "hola", Source: req.Mode}}
		case glance.RequestCatalog:
			return &glance.Response{Commands: cmds}
		case glance.RequestExecute:
			return &glance.Response{Result: &glance.ActionResult{Result: "hello"}}
		}
		return &glance.Response{Error: &glance.Error{Code: "unknown_type"}}
	})
	c := New(path)
	ctx := context.Background()

	got, err := c.CaptureText(ctx, glance.CaptureSelection)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(glance.Capture{Text: "hola", Source: glance.CaptureSelection}, got); diff != "" {
		t.Errorf("capture (-want +got):\n%s", diff)
	}

	catalog, err := c.LoadCommandCatalog(ctx, "hola")
	if err != nil {
		t.Fatal(err)
	}
	if len(catalog) != 2 || catalog[0].Kind() != glance.KindAction || catalog[1].Kind() != glance.KindWidget {
		t.Errorf("unexpected catalog: %+v", catalog)
	}

	res, err := c.ExecuteAction(ctx, glance.ActionTranslate, "hola")
	if err != nil {
		t.Fatal(err)
	}
	if res.Result != "hello" {
		t.Errorf("result = %q", res.Result)
	}
}

func TestDaemonErrorIsReturned(t *testing.T) {
	_, path := newFakeDaemon(t, func(glance.Request) *glance.Response {
		return &glance.Response{Error: &glance.Error{Code: "not_configured", Message: "no API key"}}
	})
	c := New(path)

	_, err := c.ExecuteAction(context.Background(), glance.ActionDefine, "word")
	var gerr *glance.Error
	if !errors.As(err, &gerr) {
		t.Fatalf("expected *glance.Error, got %T %v", err, err)
	}
	if gerr.Code != "not_configured" || gerr.Message != "no API key" {
		t.Errorf("unexpected error: %+v", gerr)
	}
}

func TestSupersededExecuteFails(t *testing.T) {
	// the daemon closes a superseded connection without responding
	_, path := newFakeDaemon(t, func(glance.Request) *glance.Response { return nil })
	c := New(path)

	if _, err := c.ExecuteAction(context.Background(), glance.ActionDefine, "word"); err == nil {
		t.Fatal("expected error when the connection closes without a response")
	}
}

func TestNoDaemon(t *testing.T) {
	c := New(fmt.Sprintf("/tmp/glance-missing-%d.sock", os.Getpid()))
	if _, err := c.CaptureText(context.Background(), glance.CaptureClipboard); err == nil {
		t.Fatal("expected dial error")
	}
}

func TestWatchClipboard(t *testing.T) {
	// registered first so it runs after the fake daemon has stopped
	t.Cleanup(func() { goleak.VerifyNone(t) })

	var calls atomic.Int32
	ts := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	_, path := newFakeDaemon(t, func(glance.Request) *glance.Response {
		n := calls.Add(1)
		entries := []glance.ClipboardEntry{{ID: "a", Content: "first", Timestamp: ts}}
		if n >= 3 {
			entries = append([]glance.ClipboardEntry{{ID: "b", Content: "second", Timestamp: ts}}, entries...)
		}
		return &glance.Response{Clipboard: entries}
	})
	c := New(path)

	ctx, cancel := context.WithCancel(context.Background())
	updates := make(chan []glance.ClipboardEntry, 10)
	done := make(chan struct{})
	go func() {
		c.WatchClipboard(ctx, 5*time.Millisecond, func(e []glance.ClipboardEntry) { updates <- e })
		close(done)
	}()

	first := <-updates
	if len(first) != 1 || first[0].ID != "a" {
		t.Errorf("first update = %+v", first)
	}
	select {
	case second := <-updates:
		if len(second) != 2 || second[0].ID != "b" {
			t.Errorf("second update = %+v", second)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for clipboard change")
	}
	cancel()
	<-done

	// unchanged polls between the two updates must not notify
	select {
	case extra := <-updates:
		t.Errorf("unexpected extra update: %+v", extra)
	default:
	}
}
