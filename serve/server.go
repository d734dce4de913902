package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net"
	"os"
	"strings"
	"sync"

	glance "github.com/Paranoid-AF/glance"
	"github.com/Paranoid-AF/glance/capture"
)

// Capturer reads ambient text.
type Capturer interface {
	CaptureText(ctx context.Context, mode glance.CaptureMode) (glance.Capture, error)
}

// Catalog serves the ordered command catalog.
type Catalog interface {
	LoadCommandCatalog(ctx context.Context, hint string) ([]glance.Command, error)
	Invalidate()
}

// Executor runs inline actions.
type Executor interface {
	ExecuteAction(ctx context.Context, action glance.ActionType, text string) (glance.ActionResult, error)
	Close()
}

// UsageStore records command usage.
type UsageStore interface {
	Record(ctx context.Context, commandID string) error
}

// Paster puts text on the clipboard.
type Paster interface {
	Paste(ctx context.Context, text string) error
}

// ClipboardFeed lists recent clipboard entries.
type ClipboardFeed interface {
	Entries(n int) []glance.ClipboardEntry
}

// Services are the backends a Server dispatches to. Usage and Clipboard
// are optional; NewExecutor is used on config reload and may be nil.
type Services struct {
	Capture     Capturer
	Catalog     Catalog
	Actions     Executor
	Usage       UsageStore
	Paste       Paster
	Clipboard   ClipboardFeed
	NewExecutor func(cfg *glance.Config) Executor
}

// sessionEntry tracks a cancellable in-flight execute for a session.
type sessionEntry struct {
	requestID int
	cancel    context.CancelFunc
}

// Server listens on a Unix domain socket for palette requests.
type Server struct {
	listener net.Listener
	sockPath string
	svc      Services

	mu       sync.Mutex
	actions  Executor
	sessions map[string]sessionEntry
}

// NewServer creates a new IPC server bound to the given socket path.
func NewServer(sockPath string, svc Services) (*Server, error) {
	// Remove stale socket file if it exists
	if err := os.Remove(sockPath); err != nil && !os.IsNotExist(err) {
		return nil, err
	}

	listener, err := net.Listen("unix", sockPath)
	if err != nil {
		return nil, err
	}

	return &Server{
		listener: listener,
		sockPath: sockPath,
		svc:      svc,
		actions:  svc.Actions,
		sessions: make(map[string]sessionEntry),
	}, nil
}

// Serve accepts connections and handles requests.
func (s *Server) Serve() error {
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			return err
		}
		go s.handleConn(conn)
	}
}

// Close shuts down the server, the action engine, and removes the socket file.
func (s *Server) Close() {
	s.mu.Lock()
	if s.actions != nil {
		s.actions.Close()
		s.actions = nil
	}
	for _, e := range s.sessions {
		e.cancel()
	}
	s.mu.Unlock()
	s.listener.Close()
	os.Remove(s.sockPath)
}

func (s *Server) handleConn(conn net.Conn) {
	defer conn.Close()

	scanner := bufio.NewScanner(conn)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	if !scanner.Scan() {
		return
	}

	raw := scanner.Bytes()
	slog.Debug("request", "data", string(raw))

	var req glance.Request
	if err := json.Unmarshal(raw, &req); err != nil {
		slog.Warn("invalid request", "error", err)
		writeResponse(conn, &glance.Response{
			Error: &glance.Error{Code: "invalid_request", Message: "malformed request: " + err.Error()},
		})
		return
	}

	var resp *glance.Response
	if req.Type == glance.RequestExecute {
		var ok bool
		if resp, ok = s.handleExecute(&req); !ok {
			// superseded; the client has already moved on
			return
		}
	} else {
		resp = s.dispatch(context.Background(), &req)
	}
	resp.RequestID = req.RequestID
	writeResponse(conn, resp)
}

func writeResponse(conn net.Conn, resp *glance.Response) {
	data, err := json.Marshal(resp)
	if err != nil {
		slog.Error("failed to marshal response", "error", err)
		return
	}

	slog.Debug("response", "data", string(data))

	conn.Write(append(data, '\n'))
}

// handleExecute runs an action, cancelling any execute still in flight for
// the same session. It reports false when the request was superseded.
func (s *Server) handleExecute(req *glance.Request) (*glance.Response, bool) {
	ctx, cancel := context.WithCancel(context.Background())
	sid := req.SessionID
	reqID := req.RequestID
	s.mu.Lock()
	if sid != "" {
		if prev, ok := s.sessions[sid]; ok {
			prev.cancel()
		}
		s.sessions[sid] = sessionEntry{requestID: reqID, cancel: cancel}
	}
	actions := s.actions
	s.mu.Unlock()
	defer func() {
		cancel()
		if sid != "" {
			s.mu.Lock()
			if cur, ok := s.sessions[sid]; ok && cur.requestID == reqID {
				delete(s.sessions, sid)
			}
			s.mu.Unlock()
		}
	}()

	if actions == nil {
		return errResponse("not_configured", "action engine is not running"), true
	}
	res, err := actions.ExecuteAction(ctx, req.Action, req.Text)
	if ctx.Err() != nil {
		return nil, false
	}
	if err != nil {
		return errorResponse("api_error", err), true
	}
	return &glance.Response{Result: &res}, true
}

func (s *Server) dispatch(ctx context.Context, req *glance.Request) *glance.Response {
	switch req.Type {
	case glance.RequestCapture:
		return s.handleCapture(ctx, req)
	case glance.RequestCatalog:
		return s.handleCatalog(ctx, req)
	case glance.RequestUsage:
		return s.handleUsage(ctx, req)
	case glance.RequestOpenWidget:
		return s.handleOpenWidget(req)
	case glance.RequestPaste:
		return s.handlePaste(ctx, req)
	case glance.RequestClipboard:
		return s.handleClipboard()
	case glance.RequestConfig:
		return s.handleConfig(req)
	default:
		return errResponse("unknown_type", "unknown request type: "+string(req.Type))
	}
}

func (s *Server) handleCapture(ctx context.Context, req *glance.Request) *glance.Response {
	mode := req.Mode
	if mode == "" {
		mode = glance.CaptureClipboard
	}
	c, err := s.svc.Capture.CaptureText(ctx, mode)
	if err != nil {
		slog.Debug("capture failed", "mode", mode, "error", err)
		return errorResponse("capture_error", err)
	}
	return &glance.Response{Capture: &c}
}

func (s *Server) handleCatalog(ctx context.Context, req *glance.Request) *glance.Response {
	cmds, err := s.svc.Catalog.LoadCommandCatalog(ctx, req.Hint)
	if err != nil {
		return errorResponse("catalog_error", err)
	}
	if cmds == nil {
		cmds = []glance.Command{}
	}
	return &glance.Response{Commands: cmds}
}

func (s *Server) handleUsage(ctx context.Context, req *glance.Request) *glance.Response {
	if strings.TrimSpace(req.CommandID) == "" {
		return errResponse("invalid_request", "command_id is required")
	}
	if s.svc.Usage == nil {
		return &glance.Response{OK: true}
	}
	if err := s.svc.Usage.Record(ctx, req.CommandID); err != nil {
		slog.Warn("failed to record usage", "command", req.CommandID, "error", err)
		return errorResponse("usage_error", err)
	}
	// counts feed the catalog order
	s.svc.Catalog.Invalidate()
	return &glance.Response{OK: true}
}

func (s *Server) handleOpenWidget(req *glance.Request) *glance.Response {
	if req.Widget == "" {
		return errResponse("invalid_request", "widget_type is required")
	}
	slog.Info("open widget", "widget", req.Widget, "session", req.SessionID)
	return &glance.Response{OK: true}
}

func (s *Server) handlePaste(ctx context.Context, req *glance.Request) *glance.Response {
	if req.Text == "" {
		return errResponse("invalid_request", "text is required")
	}
	if err := s.svc.Paste.Paste(ctx, req.Text); err != nil {
		return errorResponse("capture_error", err)
	}
	return &glance.Response{OK: true}
}

func (s *Server) handleClipboard() *glance.Response {
	if s.svc.Clipboard == nil {
		return &glance.Response{Clipboard: []glance.ClipboardEntry{}}
	}
	return &glance.Response{Clipboard: s.svc.Clipboard.Entries(capture.DisplayLimit)}
}

func (s *Server) handleConfig(req *glance.Request) *glance.Response {
	var resp glance.Response

	switch req.ConfigAction {
	case "get":
		cfg, err := glance.LoadConfig()
		if err != nil {
			resp.Error = &glance.Error{Code: "config_error", Message: err.Error()}
		} else {
			resp.Config = cfg
		}

	case "reload":
		cfg, err := glance.LoadConfig()
		if err != nil {
			resp.Error = &glance.Error{Code: "config_error", Message: err.Error()}
			break
		}
		s.reload(cfg)
		resp.Config = cfg

	case "defaults":
		resp.Config = glance.DefaultConfig()

	case "validate":
		cfg, err := glance.LoadConfig()
		if err != nil {
			resp.Error = &glance.Error{Code: "config_error", Message: err.Error()}
		} else {
			resp.Warnings = glance.ValidateConfig(cfg)
		}

	default:
		resp.Error = &glance.Error{
			Code:    "unknown_action",
			Message: "unknown config action: " + req.ConfigAction,
		}
	}
	return &resp
}

// reload swaps in an action engine built from cfg and drops cached
// catalog orderings.
func (s *Server) reload(cfg *glance.Config) {
	if s.svc.NewExecutor != nil {
		next := s.svc.NewExecutor(cfg)
		s.mu.Lock()
		prev := s.actions
		s.actions = next
		s.mu.Unlock()
		if prev != nil {
			prev.Close()
		}
	}
	s.svc.Catalog.Invalidate()
	slog.Info("config reloaded")
}

func errResponse(code, message string) *glance.Response {
	return &glance.Response{Error: &glance.Error{Code: code, Message: message}}
}

// errorResponse keeps the code of a *glance.Error and uses fallback for
// anything else.
func errorResponse(fallback string, err error) *glance.Response {
	var gerr *glance.Error
	if errors.As(err, &gerr) {
		return &glance.Response{Error: gerr}
	}
	return errResponse(fallback, err.Error())
}
