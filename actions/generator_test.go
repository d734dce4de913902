package actions

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestGenerateResponses(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/responses" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer key" {
			t.Errorf("Authorization = %q", got)
		}
		if got := r.Header.Get("X-Title"); got == "" {
			t.Error("expected telemetry header")
		}
		var req responsesRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode: %v", err)
			return
		}
		if len(req.Input) != 2 || req.Input[1].Content != "hello" {
			t.Errorf("unexpected input: %+v", req.Input)
		}
		w.Write([]byte(`{"output":[{"type":"reasoning"},{"type":"message","content":[{"type":"output_text","text":"hi there"}]}]}`))
	}))
	defer srv.Close()

	g := NewGenerator(GeneratorConfig{BaseURL: srv.URL, APIKey: "key", Model: "m", APIType: "responses", Telemetry: true})
	out, err := g.Generate(context.Background(), "sys", "hello")
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if out != "hi there" {
		t.Errorf("out = %q", out)
	}
}

func TestGenerateChatCompletions(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if r.Header.Get("X-Title") != "" {
			t.Error("telemetry header sent while disabled")
		}
		w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"bonjour"}}]}`))
	}))
	defer srv.Close()

	g := NewGenerator(GeneratorConfig{BaseURL: srv.URL, Model: "m", APIType: "chat_completions"})
	out, err := g.Generate(context.Background(), "sys", "hello")
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if out != "bonjour" {
		t.Errorf("out = %q", out)
	}
}

func TestGenerateErrors(t *testing.T) {
	tests := []struct {
		name    string
		apiType string
		status  int
		body    string
		want    string
	}{
		{"http status", "responses", http.StatusTooManyRequests, `rate limited`, "status 429"},
		{"api error body", "chat_completions", http.StatusOK, `{"error":{"message":"bad model"}}`, "bad model"},
		{"no choices", "chat_completions", http.StatusOK, `{"choices":[]}`, "no choices"},
		{"no text", "responses", http.StatusOK, `{"output":[]}`, "no text content"},
		{"malformed", "responses", http.StatusOK, `{`, "failed to parse"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			g := NewGenerator(GeneratorConfig{BaseURL: srv.URL, Model: "m", APIType: tt.apiType})
			_, err := g.Generate(context.Background(), "sys", "hello")
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error %q does not contain %q", err, tt.want)
			}
		})
	}
}

func TestGenerateCancelled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	g := NewGenerator(GeneratorConfig{BaseURL: srv.URL, Model: "m"})
	if _, err := g.Generate(ctx, "sys", "hello"); err == nil {
		t.Fatal("expected error for cancelled context")
	}
}
