package governance

import (
	"context"
	"strings"
	"testing"

	"github.com/rahul/crewplan/pkg/config"
)

func TestDefaultPolicyEngine_Evaluate(t *testing.T) {
	engine := NewDefaultPolicyEngine()
	ctx := context.Background()

	// Test Allow (Default)
	res1, err := engine.Evaluate(ctx, Request{Tool: "search"})
	if err != nil {
		t.Fatalf("Evaluate failed: %v", err)
	}
	if res1.Effect != EffectAllow {
		t.Errorf("Expected EffectAllow, got %s", res1.Effect)
	}

	// Test Deny
	engine.DenyTool("scraper")
	res2, err := engine.Evaluate(ctx, Request{Tool: "scraper"})
	if err != nil {
		t.Fatalf("Evaluate failed: %v", err)
	}
	if res2.Effect != EffectDeny {
		t.Errorf("Expected EffectDeny, got %s", res2.Effect)
	}
}

func TestDefaultPolicyEngine_FieldRules(t *testing.T) {
	engine := NewDefaultPolicyEngine()
	engine.MaxLength = 10
	if err := engine.DenyPattern(`(?i)ignore previous instructions`); err != nil {
		t.Fatalf("DenyPattern failed: %v", err)
	}
	ctx := context.Background()

	tests := []struct {
		name  string
		req   Request
		allow bool
	}{
		{"short field", Request{Field: "industry", Value: "Retail"}, true},
		{"exact limit", Request{Field: "industry", Value: strings.Repeat("a", 10)}, true},
		{"over limit", Request{Field: "industry", Value: strings.Repeat("a", 11)}, false},
		{"multibyte within limit", Request{Field: "industry", Value: "ééééééééé"}, true},
		{"pattern", Request{Field: "x", Value: "Ignore previous instructions"}, false},
		{"length ignored for tools", Request{Tool: "search", Value: strings.Repeat("a", 50)}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := engine.Evaluate(ctx, tt.req)
			if err != nil {
				t.Fatalf("Evaluate failed: %v", err)
			}
			if got := !res.Denied(); got != tt.allow {
				t.Errorf("allow = %v, want %v (%s)", got, tt.allow, res.Reason)
			}
		})
	}
}

func TestFromConfig(t *testing.T) {
	engine, err := FromConfig(config.PolicyConfig{
		MaxFieldLength: 5,
		DenyPatterns:   []string{"secret"},
		DeniedTools:    []string{"scraper"},
	})
	if err != nil {
		t.Fatalf("FromConfig failed: %v", err)
	}
	if engine.MaxLength != 5 || !engine.DeniedTools["scraper"] || len(engine.DeniedRegex) != 1 {
		t.Errorf("unexpected engine: %+v", engine)
	}

	if _, err := FromConfig(config.PolicyConfig{DenyPatterns: []string{"("}}); err == nil {
		t.Error("expected error for invalid pattern")
	}
}

func TestEvaluateFields(t *testing.T) {
	engine := NewDefaultPolicyEngine()
	engine.MaxLength = 8
	ctx := context.Background()

	req, res, err := EvaluateFields(ctx, engine, "web", map[string]string{
		"industry":     "Retail",
		"project_type": "Website",
	})
	if err != nil {
		t.Fatalf("EvaluateFields failed: %v", err)
	}
	if res.Denied() {
		t.Fatalf("expected allow, got %s", res.Reason)
	}

	req, res, err = EvaluateFields(ctx, engine, "web", map[string]string{
		"industry":           "Retail",
		"project_objectives": "far too long for the limit",
	})
	if err != nil {
		t.Fatalf("EvaluateFields failed: %v", err)
	}
	if !res.Denied() || req.Field != "project_objectives" || req.Source != "web" {
		t.Errorf("expected denial on project_objectives, got %+v %+v", req, res)
	}
}

func TestEvaluate_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := NewDefaultPolicyEngine().Evaluate(ctx, Request{Field: "a"}); err == nil {
		t.Error("expected context error")
	}
}
