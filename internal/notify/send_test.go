package notify

import (
	"testing"
)

func TestResolveTargets_Basic(t *testing.T) {
	services := map[string]ServiceDef{
		"telegram": {URL: "telegram://token@telegram", Params: map[string]string{"chats": "123"}},
	}
	refs := []NotifyRef{
		{ServiceName: "telegram"},
	}

	targets, err := ResolveTargets(refs, services, `{{run.status | upper}} {{globals.hostname}}`, sampleData())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(targets) != 1 {
		t.Fatalf("targets = %d, want 1", len(targets))
	}
	if targets[0].Message != "WARNING rpi-01" {
		t.Errorf("message = %q, want %q", targets[0].Message, "WARNING rpi-01")
	}
	if targets[0].Params["chats"] != "123" {
		t.Errorf("chats param = %q, want %q", targets[0].Params["chats"], "123")
	}
}

func TestResolveTargets_TemplateOverride(t *testing.T) {
	services := map[string]ServiceDef{
		"telegram": {URL: "telegram://token@telegram"},
	}
	refs := []NotifyRef{
		{ServiceName: "telegram", Template: `CUSTOM: {{run.status}}`},
	}

	targets, err := ResolveTargets(refs, services, `DEFAULT: {{run.status}}`, sampleData())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if targets[0].Message != "CUSTOM: warning" {
		t.Errorf("message = %q, want %q", targets[0].Message, "CUSTOM: warning")
	}
}

func TestResolveTargets_ParamMerge(t *testing.T) {
	services := map[string]ServiceDef{
		"telegram": {
			URL:    "telegram://token@telegram",
			Params: map[string]string{"chats": "123", "parsemode": "HTML"},
		},
	}
	refs := []NotifyRef{
		{
			ServiceName: "telegram",
			Params:      map[string]string{"parsemode": "MarkdownV2"},
		},
	}

	targets, err := ResolveTargets(refs, services, `test`, sampleData())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if targets[0].Params["chats"] != "123" {
		t.Errorf("chats = %q, want %q", targets[0].Params["chats"], "123")
	}
	if targets[0].Params["parsemode"] != "MarkdownV2" {
		t.Errorf("parsemode = %q, want %q", targets[0].Params["parsemode"], "MarkdownV2")
	}
}

func TestResolveTargets_TemplateInParams(t *testing.T) {
	services := map[string]ServiceDef{
		"ntfy": {URL: "ntfy://ntfy.sh/linkguard"},
	}
	refs := []NotifyRef{
		{
			ServiceName: "ntfy",
			Params:      map[string]string{"title": `[{{run.status | upper}}] {{globals.hostname}}`},
		},
	}

	targets, err := ResolveTargets(refs, services, `body`, sampleData())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if targets[0].Params["title"] != "[WARNING] rpi-01" {
		t.Errorf("title = %q, want %q", targets[0].Params["title"], "[WARNING] rpi-01")
	}
}

func TestResolveTargets_UnknownService(t *testing.T) {
	refs := []NotifyRef{{ServiceName: "nonexistent"}}
	if _, err := ResolveTargets(refs, map[string]ServiceDef{}, `test`, sampleData()); err == nil {
		t.Fatal("expected error for unknown service")
	}
}

func TestResolveTargets_MultipleTargets(t *testing.T) {
	services := map[string]ServiceDef{
		"telegram": {URL: "telegram://token@telegram"},
		"slack":    {URL: "slack://token-a/token-b/token-c"},
	}
	refs := []NotifyRef{
		{ServiceName: "telegram"},
		{ServiceName: "slack"},
	}

	targets, err := ResolveTargets(refs, services, `msg`, sampleData())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(targets) != 2 {
		t.Fatalf("targets = %d, want 2", len(targets))
	}
}

func TestSend_Logger(t *testing.T) {
	err := Send(Target{ServiceName: "log", URL: "logger://", Message: "hello"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidate_UnknownScheme(t *testing.T) {
	if err := Validate(Target{ServiceName: "bogus", URL: "nosuchservice://x"}); err == nil {
		t.Fatal("expected error for unknown scheme")
	}
}

func TestApplyParams(t *testing.T) {
	got, err := applyParams("telegram://token@telegram", map[string]string{
		"chats": "-100123",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "telegram://token@telegram?chats=-100123" {
		t.Errorf("url = %q, want params appended", got)
	}
}

func TestApplyParams_MergesExisting(t *testing.T) {
	got, err := applyParams("telegram://token@telegram?existing=yes", map[string]string{
		"chats": "123",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "telegram://token@telegram?chats=123&existing=yes" {
		t.Errorf("url = %q, want both params", got)
	}
}

func TestApplyParams_Empty(t *testing.T) {
	got, err := applyParams("telegram://token@telegram", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "telegram://token@telegram" {
		t.Errorf("url = %q, want unchanged", got)
	}
}
