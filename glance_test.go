package glance

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestCommandJSONWidgetShape(t *testing.T) {
	cmd := Command{ID: "widget.translator", Label: "Translator", Variant: Widget{Type: "translator"}}
	data, err := json.Marshal(cmd)
	if err != nil {
		t.Fatal(err)
	}
	s := string(data)
	if !strings.Contains(s, `"widget_type":"translator"`) {
		t.Errorf("expected widget_type in JSON, got %s", s)
	}
	if strings.Contains(s, `"action_type"`) {
		t.Errorf("expected no action_type key, got %s", s)
	}
}

func TestCommandJSONActionRoundTrip(t *testing.T) {
	cmd := Command{
		ID:       "action.translate",
		Label:    "Translate",
		Keywords: []string{"language"},
		Category: CategoryTranslation,
		Variant:  Action{Type: ActionTranslate},
	}
	data, err := json.Marshal(cmd)
	if err != nil {
		t.Fatal(err)
	}

	var decoded Command
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatal(err)
	}
	a, ok := decoded.Action()
	if !ok {
		t.Fatalf("expected action variant, got %T", decoded.Variant)
	}
	if a.Type != ActionTranslate {
		t.Errorf("expected action type translate, got %s", a.Type)
	}
	if decoded.Kind() != KindAction {
		t.Errorf("expected kind action, got %s", decoded.Kind())
	}
	if decoded.Category != CategoryTranslation {
		t.Errorf("expected category translation, got %q", decoded.Category)
	}
}

func TestCommandJSONRejectsBothVariants(t *testing.T) {
	raw := `{"id":"x","label":"X","widget_type":"w","action_type":"translate"}`
	var cmd Command
	if err := json.Unmarshal([]byte(raw), &cmd); err == nil {
		t.Fatal("expected error for command with both variants")
	}
}

func TestCommandJSONRejectsNeitherVariant(t *testing.T) {
	raw := `{"id":"x","label":"X"}`
	var cmd Command
	if err := json.Unmarshal([]byte(raw), &cmd); err == nil {
		t.Fatal("expected error for command without a variant")
	}
}

func TestCommandMarshalWithoutVariantFails(t *testing.T) {
	if _, err := json.Marshal(Command{ID: "x", Label: "X"}); err == nil {
		t.Fatal("expected marshal error for command without a variant")
	}
}

func TestCommandSpecBuildRequiresLabel(t *testing.T) {
	_, err := CommandSpec{ID: "x", ActionType: ActionDefine}.Build()
	if err == nil {
		t.Fatal("expected error for missing label")
	}
}

func TestActionTypeIsProcessing(t *testing.T) {
	tests := []struct {
		action ActionType
		want   bool
	}{
		{ActionTranslate, true},
		{ActionAnalyze, true},
		{ActionDefine, true},
		{ActionConvertCurrency, false},
		{ActionConvertUnit, false},
		{ActionConvertTime, false},
	}
	for _, tt := range tests {
		if got := tt.action.IsProcessing(); got != tt.want {
			t.Errorf("%s.IsProcessing() = %v, want %v", tt.action, got, tt.want)
		}
	}
}

func TestResponseErrorOmittedWhenNil(t *testing.T) {
	resp := Response{RequestID: 1, OK: true}
	data, err := json.Marshal(resp)
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(string(data), `"error"`) {
		t.Errorf("expected no error key, got %s", data)
	}
}

func TestResponseCommandsRoundTrip(t *testing.T) {
	resp := Response{
		RequestID: 3,
		Commands: []Command{
			{ID: "a", Label: "A", Variant: Action{Type: ActionDefine}},
			{ID: "w", Label: "W", Variant: Widget{Type: "settings"}},
		},
	}
	data, err := json.Marshal(resp)
	if err != nil {
		t.Fatal(err)
	}
	var decoded Response
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatal(err)
	}
	if len(decoded.Commands) != 2 {
		t.Fatalf("expected 2 commands, got %d", len(decoded.Commands))
	}
	if decoded.Commands[1].Kind() != KindWidget {
		t.Errorf("expected second command to be a widget")
	}
}

func TestErrorMessageFallsBackToCode(t *testing.T) {
	e := &Error{Code: "api_error"}
	if e.Error() != "api_error" {
		t.Errorf("expected code as message, got %q", e.Error())
	}
	e.Message = "rate limited"
	if e.Error() != "rate limited" {
		t.Errorf("expected message, got %q", e.Error())
	}
}
