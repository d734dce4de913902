// Package glance defines the shared types for the glance command palette and
// the messages exchanged with the glanced daemon.
// Messages are JSON-encoded and sent over a Unix domain socket, one per line.
package glance

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Category groups commands for context boosting.
type Category string

const (
	CategoryGeneral     Category = ""
	CategoryCurrency    Category = "currency"
	CategoryUnit        Category = "unit"
	CategoryTime        Category = "time"
	CategoryDefinition  Category = "definition"
	CategoryTranslation Category = "translation"
	CategoryAnalysis    Category = "analysis"
)

// ActionType names an inline action the backend can run on captured text.
type ActionType string

const (
	ActionTranslate       ActionType = "translate"
	ActionAnalyze         ActionType = "analyze"
	ActionDefine          ActionType = "define"
	ActionConvertCurrency ActionType = "convert_currency"
	ActionConvertUnit     ActionType = "convert_unit"
	ActionConvertTime     ActionType = "convert_time"
)

// KnownActions lists every action type the daemon can execute.
var KnownActions = []ActionType{
	ActionTranslate,
	ActionAnalyze,
	ActionDefine,
	ActionConvertCurrency,
	ActionConvertUnit,
	ActionConvertTime,
}

// IsProcessing reports whether the action's backend cost scales with input
// length. Processing actions are subject to the inline character cap.
func (a ActionType) IsProcessing() bool {
	switch a {
	case ActionTranslate, ActionAnalyze, ActionDefine:
		return true
	}
	return false
}

// Known reports whether a is one of KnownActions.
func (a ActionType) Known() bool {
	for _, k := range KnownActions {
		if a == k {
			return true
		}
	}
	return false
}

// WidgetType names a widget window the host can open.
type WidgetType string

// Variant is the payload of a Command: either a Widget or an Action.
// The interface is sealed so a command always carries exactly one of them.
type Variant interface {
	variant()
	// Tag returns the widget or action type as a plain string.
	Tag() string
}

// Widget opens a widget window.
type Widget struct {
	Type WidgetType
}

// Action runs inline on captured text and shows the result in the popover.
type Action struct {
	Type ActionType
}

func (Widget) variant() {}
func (Action) variant() {}

func (w Widget) Tag() string { return string(w.Type) }
func (a Action) Tag() string { return string(a.Type) }

// Kind distinguishes widget commands from action commands.
type Kind string

const (
	KindWidget Kind = "widget"
	KindAction Kind = "action"
)

// Command is a single palette entry. Commands decoded through
// CommandSpec.Build always carry a Variant; one built by hand without it is
// never shown by the ranker.
type Command struct {
	ID          string
	Label       string
	Description string
	Keywords    []string
	Category    Category
	Variant     Variant
}

// Kind returns the command's variant kind. A command without a variant
// reports KindWidget.
func (c Command) Kind() Kind {
	if _, ok := c.Variant.(Action); ok {
		return KindAction
	}
	return KindWidget
}

// Widget returns the widget payload if the command opens a widget.
func (c Command) Widget() (Widget, bool) {
	w, ok := c.Variant.(Widget)
	return w, ok
}

// Action returns the action payload if the command runs an action.
func (c Command) Action() (Action, bool) {
	a, ok := c.Variant.(Action)
	return a, ok
}

// CommandSpec is the flat wire and file form of a Command.
// Exactly one of WidgetType and ActionType must be set.
type CommandSpec struct {
	ID          string     `json:"id" toml:"id"`
	Label       string     `json:"label" toml:"label"`
	Description string     `json:"description,omitempty" toml:"description"`
	Keywords    []string   `json:"keywords,omitempty" toml:"keywords"`
	Category    Category   `json:"category,omitempty" toml:"category"`
	WidgetType  WidgetType `json:"widget_type,omitempty" toml:"widget_type"`
	ActionType  ActionType `json:"action_type,omitempty" toml:"action_type"`
}

// Build validates the spec and converts it into a Command.
func (s CommandSpec) Build() (Command, error) {
	if strings.TrimSpace(s.ID) == "" {
		return Command{}, fmt.Errorf("command has no id")
	}
	if strings.TrimSpace(s.Label) == "" {
		return Command{}, fmt.Errorf("command %q has no label", s.ID)
	}
	cmd := Command{
		ID:          s.ID,
		Label:       s.Label,
		Description: s.Description,
		Keywords:    s.Keywords,
		Category:    s.Category,
	}
	switch {
	case s.WidgetType != "" && s.ActionType != "":
		return Command{}, fmt.Errorf("command %q sets both widget_type and action_type", s.ID)
	case s.WidgetType != "":
		cmd.Variant = Widget{Type: s.WidgetType}
	case s.ActionType != "":
		cmd.Variant = Action{Type: s.ActionType}
	default:
		return Command{}, fmt.Errorf("command %q sets neither widget_type nor action_type", s.ID)
	}
	return cmd, nil
}

// Spec returns the flat form of c.
func (c Command) Spec() CommandSpec {
	s := CommandSpec{
		ID:          c.ID,
		Label:       c.Label,
		Description: c.Description,
		Keywords:    c.Keywords,
		Category:    c.Category,
	}
	switch v := c.Variant.(type) {
	case Widget:
		s.WidgetType = v.Type
	case Action:
		s.ActionType = v.Type
	}
	return s
}

// MarshalJSON encodes the command in its flat form.
func (c Command) MarshalJSON() ([]byte, error) {
	if c.Variant == nil {
		return nil, fmt.Errorf("command %q has no variant", c.ID)
	}
	return json.Marshal(c.Spec())
}

// UnmarshalJSON decodes the flat form and enforces the one-variant rule.
func (c *Command) UnmarshalJSON(data []byte) error {
	var s CommandSpec
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	cmd, err := s.Build()
	if err != nil {
		return err
	}
	*c = cmd
	return nil
}

// CaptureMode selects where ambient text is read from.
type CaptureMode string

const (
	CaptureClipboard CaptureMode = "clipboard"
	CaptureSelection CaptureMode = "selection"
)

// Capture is the result of reading ambient text.
type Capture struct {
	Text   string      `json:"text"`
	Source CaptureMode `json:"source"`
}

// ActionResult is returned by a successful action execution.
type ActionResult struct {
	Result   string            `json:"result"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// ClipboardEntry is one item of the clipboard history feed.
type ClipboardEntry struct {
	ID        string    `json:"id"`
	Content   string    `json:"content"`
	Preview   string    `json:"preview"`
	Timestamp time.Time `json:"timestamp"`
}

// RequestType selects the daemon operation.
type RequestType string

const (
	RequestCapture    RequestType = "capture"
	RequestCatalog    RequestType = "catalog"
	RequestExecute    RequestType = "execute"
	RequestUsage      RequestType = "usage"
	RequestOpenWidget RequestType = "open_widget"
	RequestPaste      RequestType = "paste"
	RequestClipboard  RequestType = "clipboard"
	RequestConfig     RequestType = "config"
)

// Request is sent from a palette host to the daemon.
type Request struct {
	// RequestID is a per-client incrementing identifier.
	// The daemon echoes it back in the response.
	RequestID int `json:"request_id"`
	// Type selects the operation.
	Type RequestType `json:"type"`
	// SessionID identifies the palette host. A newer execute request from the
	// same session supersedes an older one still in flight.
	SessionID string `json:"session_id,omitempty"`
	// Mode is the capture source for capture requests.
	Mode CaptureMode `json:"mode,omitempty"`
	// Hint is the captured text used to order the catalog.
	Hint string `json:"hint,omitempty"`
	// Action is the action to execute.
	Action ActionType `json:"action_type,omitempty"`
	// Text is the input for execute and paste requests.
	Text string `json:"text,omitempty"`
	// CommandID is the command whose usage is recorded.
	CommandID string `json:"command_id,omitempty"`
	// Widget is the widget to open.
	Widget WidgetType `json:"widget_type,omitempty"`
	// ConfigAction is "get", "reload", "defaults" or "validate".
	ConfigAction string `json:"config_action,omitempty"`
}

// Response is sent from the daemon back to the host.
type Response struct {
	// RequestID is echoed from the request.
	RequestID int `json:"request_id"`
	// OK is set for requests without a payload (usage, open_widget, paste).
	OK bool `json:"ok,omitempty"`
	// Capture is set for capture requests.
	Capture *Capture `json:"capture,omitempty"`
	// Commands is set for catalog requests.
	Commands []Command `json:"commands,omitempty"`
	// Result is set for execute requests.
	Result *ActionResult `json:"result,omitempty"`
	// Clipboard is set for clipboard requests, most recent first.
	Clipboard []ClipboardEntry `json:"clipboard,omitempty"`
	// Config is set for config requests.
	Config *Config `json:"config,omitempty"`
	// Warnings contains configuration warnings (for "validate").
	Warnings []string `json:"warnings,omitempty"`
	// Error is set when the daemon cannot fulfill the request.
	Error *Error `json:"error,omitempty"`
}

// Error describes a daemon-side error. It also implements error so clients
// can return it directly.
type Error struct {
	// Code is a machine-readable error identifier (e.g. "not_configured", "api_error").
	Code string `json:"code"`
	// Message is a human-readable error description.
	Message string `json:"message"`
}

func (e *Error) Error() string {
	if e.Message == "" {
		return e.Code
	}
	return e.Message
}
