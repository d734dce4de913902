// Package actions runs inline palette actions (translate, define, convert
// and so on) by rendering a prompt per action type and asking an
// OpenAI-compatible model.
package actions

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"text/template"
	"time"

	"github.com/jellydator/ttlcache/v3"

	glance "github.com/Paranoid-AF/glance"
	defaults "github.com/Paranoid-AF/glance/default"
)

const systemPrompt = "You are glance, a quick inline assistant inside a command palette. " +
	"Answer in plain text without preamble, markdown headings or code fences."

// TextGenerator produces a model reply for a system prompt and user message.
type TextGenerator interface {
	Generate(ctx context.Context, systemPrompt, userMessage string) (string, error)
	Model() string
}

// PromptData holds the data passed to an action's prompt template.
type PromptData struct {
	Text     string
	Language string
	Currency string
	Now      string
	Zone     string
}

// Engine executes actions with caching.
type Engine struct {
	generator TextGenerator
	prompts   map[glance.ActionType]*template.Template
	language  string
	currency  string
	location  *time.Location
	now       func() time.Time
	cache     *ttlcache.Cache[string, glance.ActionResult]
}

// NewEngine creates an engine from cfg. Without a generation API key every
// execution fails with a not_configured error.
func NewEngine(cfg *glance.Config) *Engine {
	var gen TextGenerator
	if key := glance.ResolveGenerationAPIKey(cfg); key != "" {
		gen = NewGenerator(GeneratorConfig{
			BaseURL:     glance.ResolveGenerationBaseURL(cfg),
			APIKey:      key,
			Model:       glance.ResolveGenerationModel(cfg),
			APIType:     cfg.Generation.APIType,
			MaxTokens:   cfg.Generation.MaxTokens,
			Temperature: cfg.Generation.Temperature,
			Stop:        cfg.Generation.Stop,
			Telemetry:   glance.OpenRouterTelemetryEnabled(cfg),
		})
	} else {
		slog.Warn("generation API key not configured")
	}
	return NewEngineWithGenerator(cfg, gen, glance.PromptDir())
}

// NewEngineWithGenerator creates an engine around gen. Prompt files in
// promptDir named <action>.md override the built-in templates.
func NewEngineWithGenerator(cfg *glance.Config, gen TextGenerator, promptDir string) *Engine {
	if cfg == nil {
		cfg = glance.DefaultConfig()
	}
	ttl := time.Duration(cfg.Generation.CacheTTLMinutes) * time.Minute
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	cache := ttlcache.New[string, glance.ActionResult](
		ttlcache.WithTTL[string, glance.ActionResult](ttl),
		ttlcache.WithCapacity[string, glance.ActionResult](256),
	)
	go cache.Start()

	loc := time.Local
	if name := cfg.Actions.TimeZone; name != "" {
		if l, err := time.LoadLocation(name); err == nil {
			loc = l
		} else {
			slog.Warn("unknown time zone, using local", "time_zone", name, "error", err)
		}
	}

	return &Engine{
		generator: gen,
		prompts:   loadPrompts(promptDir),
		language:  cfg.Actions.Language,
		currency:  cfg.Actions.Currency,
		location:  loc,
		now:       time.Now,
		cache:     cache,
	}
}

// Close stops the result cache.
func (e *Engine) Close() {
	e.cache.Stop()
}

// ExecuteAction runs action on text. Identical requests within the cache
// TTL are answered from the cache.
func (e *Engine) ExecuteAction(ctx context.Context, action glance.ActionType, text string) (glance.ActionResult, error) {
	if !action.Known() {
		return glance.ActionResult{}, &glance.Error{Code: "invalid_request", Message: fmt.Sprintf("unknown action %q", action)}
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return glance.ActionResult{}, &glance.Error{Code: "invalid_request", Message: "text is required"}
	}
	if e.generator == nil {
		return glance.ActionResult{}, &glance.Error{
			Code:    "not_configured",
			Message: "generation API key not configured; set GLANCE_GENERATION_API_KEY or edit " + glance.ConfigPath(),
		}
	}

	key := string(action) + "\x00" + text
	if item := e.cache.Get(key); item != nil {
		slog.Debug("action cache hit", "action", action)
		res := item.Value()
		meta := make(map[string]string, len(res.Metadata)+1)
		for k, v := range res.Metadata {
			meta[k] = v
		}
		meta["cached"] = "true"
		res.Metadata = meta
		return res, nil
	}

	prompt, err := e.render(action, text)
	if err != nil {
		return glance.ActionResult{}, &glance.Error{Code: "config_error", Message: err.Error()}
	}
	slog.Debug("prompt", "action", action, "chars", len(prompt))

	output, err := e.generator.Generate(ctx, systemPrompt, prompt)
	if err != nil {
		slog.Error("generation error", "action", action, "error", err)
		return glance.ActionResult{}, &glance.Error{Code: "api_error", Message: err.Error()}
	}
	output = cleanOutput(output)
	if output == "" {
		return glance.ActionResult{}, &glance.Error{Code: "api_error", Message: "model returned an empty reply"}
	}

	res := glance.ActionResult{
		Result: output,
		Metadata: map[string]string{
			"action": string(action),
			"model":  e.generator.Model(),
		},
	}
	e.cache.Set(key, res, ttlcache.DefaultTTL)
	return res, nil
}

func (e *Engine) render(action glance.ActionType, text string) (string, error) {
	t, ok := e.prompts[action]
	if !ok {
		return "", fmt.Errorf("no prompt for action %q", action)
	}
	now := e.now().In(e.location)
	data := PromptData{
		Text:     text,
		Language: e.language,
		Currency: e.currency,
		Now:      now.Format("2006-01-02 15:04"),
		Zone:     now.Format("MST"),
	}
	var buf strings.Builder
	if err := t.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("render %s prompt: %w", action, err)
	}
	return strings.TrimRight(buf.String(), " \t\n"), nil
}

// loadPrompts parses the built-in template for every action, replacing it
// with promptDir/<action>.md when that file exists and parses.
func loadPrompts(promptDir string) map[glance.ActionType]*template.Template {
	prompts := make(map[glance.ActionType]*template.Template, len(glance.KnownActions))
	for _, action := range glance.KnownActions {
		name := string(action) + ".md"
		src, err := defaults.Prompts.ReadFile("prompts/" + name)
		if err != nil {
			panic("actions: missing embedded prompt " + name)
		}
		t := template.Must(template.New(name).Parse(string(src)))

		if promptDir != "" {
			path := filepath.Join(promptDir, name)
			if custom, err := os.ReadFile(path); err == nil {
				if ct, err := template.New(name).Parse(string(custom)); err == nil {
					slog.Info("loaded custom prompt", "path", path)
					t = ct
				} else {
					slog.Warn("failed to parse custom prompt, using built-in", "path", path, "error", err)
				}
			}
		}
		prompts[action] = t
	}
	return prompts
}

// cleanOutput trims whitespace and a surrounding code fence from a reply.
func cleanOutput(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```") && strings.HasSuffix(s, "```") && len(s) >= 6 {
		s = strings.TrimSuffix(strings.TrimPrefix(s, "```"), "```")
		if i := strings.IndexByte(s, '\n'); i >= 0 && !strings.ContainsAny(s[:i], " \t") {
			s = s[i+1:]
		}
		s = strings.TrimSpace(s)
	}
	return s
}
