package actions

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	glance "github.com/Paranoid-AF/glance"
)

type fakeGenerator struct {
	mu     sync.Mutex
	reply  string
	err    error
	calls  int
	prompt string
}

func (g *fakeGenerator) Generate(ctx context.Context, system, user string) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls++
	g.prompt = user
	return g.reply, g.err
}

func (g *fakeGenerator) Model() string { return "test-model" }

func testEngine(t *testing.T, gen TextGenerator) *Engine {
	t.Helper()
	cfg := glance.DefaultConfig()
	cfg.Actions.Language = "German"
	cfg.Actions.Currency = "EUR"
	cfg.Actions.TimeZone = "UTC"
	e := NewEngineWithGenerator(cfg, gen, t.TempDir())
	e.now = func() time.Time { return time.Date(2026, 3, 1, 14, 30, 0, 0, time.UTC) }
	t.Cleanup(e.Close)
	return e
}

func errorCode(err error) string {
	var gerr *glance.Error
	if errors.As(err, &gerr) {
		return gerr.Code
	}
	return ""
}

func TestExecuteActionRendersPrompt(t *testing.T) {
	gen := &fakeGenerator{reply: "  Hallo  \n"}
	e := testEngine(t, gen)

	res, err := e.ExecuteAction(context.Background(), glance.ActionTranslate, " hello ")
	if err != nil {
		t.Fatalf("ExecuteAction: %v", err)
	}
	if res.Result != "Hallo" {
		t.Errorf("result = %q, want %q", res.Result, "Hallo")
	}
	if res.Metadata["model"] != "test-model" || res.Metadata["action"] != "translate" {
		t.Errorf("unexpected metadata: %v", res.Metadata)
	}
	if !strings.Contains(gen.prompt, "German") {
		t.Errorf("prompt missing language: %q", gen.prompt)
	}
	if !strings.HasSuffix(gen.prompt, "hello") {
		t.Errorf("prompt should end with trimmed text: %q", gen.prompt)
	}
}

func TestExecuteActionTimePrompt(t *testing.T) {
	gen := &fakeGenerator{reply: "9:30 EST"}
	e := testEngine(t, gen)

	if _, err := e.ExecuteAction(context.Background(), glance.ActionConvertTime, "3pm UTC"); err != nil {
		t.Fatalf("ExecuteAction: %v", err)
	}
	if !strings.Contains(gen.prompt, "2026-03-01 14:30") {
		t.Errorf("prompt missing current time: %q", gen.prompt)
	}
}

func TestExecuteActionCaches(t *testing.T) {
	gen := &fakeGenerator{reply: "Hallo"}
	e := testEngine(t, gen)
	ctx := context.Background()

	if _, err := e.ExecuteAction(ctx, glance.ActionTranslate, "hello"); err != nil {
		t.Fatal(err)
	}
	res, err := e.ExecuteAction(ctx, glance.ActionTranslate, "hello")
	if err != nil {
		t.Fatal(err)
	}
	if gen.calls != 1 {
		t.Errorf("expected 1 generator call, got %d", gen.calls)
	}
	if res.Metadata["cached"] != "true" {
		t.Errorf("expected cached metadata, got %v", res.Metadata)
	}

	// different action, same text
	if _, err := e.ExecuteAction(ctx, glance.ActionDefine, "hello"); err != nil {
		t.Fatal(err)
	}
	if gen.calls != 2 {
		t.Errorf("expected 2 generator calls, got %d", gen.calls)
	}
}

func TestExecuteActionErrors(t *testing.T) {
	tests := []struct {
		name   string
		gen    TextGenerator
		action glance.ActionType
		text   string
		code   string
	}{
		{"unknown action", &fakeGenerator{reply: "x"}, "summon", "hi", "invalid_request"},
		{"empty text", &fakeGenerator{reply: "x"}, glance.ActionDefine, "  \n", "invalid_request"},
		{"no generator", nil, glance.ActionDefine, "word", "not_configured"},
		{"api failure", &fakeGenerator{err: errors.New("status 500")}, glance.ActionDefine, "word", "api_error"},
		{"empty reply", &fakeGenerator{reply: "   "}, glance.ActionDefine, "word", "api_error"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := testEngine(t, tt.gen)
			_, err := e.ExecuteAction(context.Background(), tt.action, tt.text)
			if err == nil {
				t.Fatal("expected error")
			}
			if got := errorCode(err); got != tt.code {
				t.Errorf("code = %q, want %q (err %v)", got, tt.code, err)
			}
		})
	}
}

func TestFailuresAreNotCached(t *testing.T) {
	gen := &fakeGenerator{err: errors.New("boom")}
	e := testEngine(t, gen)
	ctx := context.Background()

	if _, err := e.ExecuteAction(ctx, glance.ActionAnalyze, "text"); err == nil {
		t.Fatal("expected error")
	}
	gen.err = nil
	gen.reply = "fine"
	res, err := e.ExecuteAction(ctx, glance.ActionAnalyze, "text")
	if err != nil {
		t.Fatalf("ExecuteAction: %v", err)
	}
	if res.Result != "fine" {
		t.Errorf("result = %q", res.Result)
	}
}

func TestCustomPromptOverride(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "define.md"), []byte("DEFINE>> {{.Text}}"), 0644); err != nil {
		t.Fatal(err)
	}
	// a broken override falls back to the built-in prompt
	if err := os.WriteFile(filepath.Join(dir, "analyze.md"), []byte("{{.Text"), 0644); err != nil {
		t.Fatal(err)
	}
	gen := &fakeGenerator{reply: "ok"}
	e := NewEngineWithGenerator(glance.DefaultConfig(), gen, dir)
	t.Cleanup(e.Close)
	ctx := context.Background()

	if _, err := e.ExecuteAction(ctx, glance.ActionDefine, "glance"); err != nil {
		t.Fatal(err)
	}
	if gen.prompt != "DEFINE>> glance" {
		t.Errorf("prompt = %q", gen.prompt)
	}

	if _, err := e.ExecuteAction(ctx, glance.ActionAnalyze, "glance"); err != nil {
		t.Fatal(err)
	}
	if strings.HasPrefix(gen.prompt, "{{") {
		t.Errorf("broken override should not be used: %q", gen.prompt)
	}
}

func TestEveryActionHasPrompt(t *testing.T) {
	e := testEngine(t, &fakeGenerator{reply: "ok"})
	for _, action := range glance.KnownActions {
		p, err := e.render(action, "sample")
		if err != nil {
			t.Errorf("%s: %v", action, err)
			continue
		}
		if !strings.Contains(p, "sample") {
			t.Errorf("%s prompt does not include the text: %q", action, p)
		}
	}
}

func TestCleanOutput(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"  plain  ", "plain"},
		{"```\nfenced\n```", "fenced"},
		{"```text\nfenced\n```", "fenced"},
		{"```", "```"},
		{"a ``` b", "a ``` b"},
	}
	for _, tt := range tests {
		if got := cleanOutput(tt.in); got != tt.want {
			t.Errorf("cleanOutput(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
