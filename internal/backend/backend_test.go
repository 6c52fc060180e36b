package backend

import (
	"context"
	"errors"
	"testing"

	"github.com/rahul/crewplan/pkg/config"
	"github.com/tmc/langchaingo/llms"
)

func TestNewModel(t *testing.T) {
	p := config.ProviderConfig{Model: "gpt-4o-mini", BaseURL: "http://127.0.0.1:1/v1"}

	if _, err := NewModel("openai", p, config.NewCredentials("")); !errors.Is(err, ErrNoCredentials) {
		t.Errorf("expected ErrNoCredentials, got %v", err)
	}

	creds := config.NewCredentials("sk-test")
	if _, err := NewModel("anthropic-direct", p, creds); err == nil {
		t.Error("expected error for unsupported provider")
	}

	m, err := NewModel("openai", p, creds)
	if err != nil {
		t.Fatalf("NewModel failed: %v", err)
	}
	if m == nil {
		t.Fatal("NewModel returned nil model")
	}

	// Clearing the session revokes the model it already built.
	creds.Clear()
	msgs := []llms.MessageContent{llms.TextParts(llms.ChatMessageTypeHuman, "hi")}
	if _, err := m.GenerateContent(context.Background(), msgs); !errors.Is(err, ErrNoCredentials) {
		t.Errorf("expected ErrNoCredentials from a cleared session, got %v", err)
	}
	creds.Set("sk-test")

	// A cleared session cannot build new clients.
	creds.Clear()
	if _, err := NewModel("openrouter", p, creds); !errors.Is(err, ErrNoCredentials) {
		t.Errorf("expected ErrNoCredentials after Clear, got %v", err)
	}
}

type tokenModel struct {
	token string
}

func (m *tokenModel) GenerateContent(ctx context.Context, messages []llms.MessageContent, options ...llms.CallOption) (*llms.ContentResponse, error) {
	return &llms.ContentResponse{Choices: []*llms.ContentChoice{{Content: m.token}}}, nil
}

func (m *tokenModel) Call(ctx context.Context, prompt string, options ...llms.CallOption) (string, error) {
	return llms.GenerateFromSinglePrompt(ctx, m, prompt, options...)
}

func TestSessionModel_FollowsCredentials(t *testing.T) {
	creds := config.NewCredentials("first")
	builds := 0
	m := &sessionModel{creds: creds, build: func(token string) (llms.Model, error) {
		builds++
		return &tokenModel{token: token}, nil
	}}
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		out, err := m.Call(ctx, "hi")
		if err != nil || out != "first" {
			t.Fatalf("Call = %q, %v", out, err)
		}
	}
	if builds != 1 {
		t.Errorf("client built %d times for one token", builds)
	}

	creds.Set("second")
	if out, err := m.Call(ctx, "hi"); err != nil || out != "second" {
		t.Errorf("rotated token not used: %q, %v", out, err)
	}

	creds.Clear()
	if _, err := m.Call(ctx, "hi"); !errors.Is(err, ErrNoCredentials) {
		t.Errorf("expected ErrNoCredentials, got %v", err)
	}
	if m.llm != nil {
		t.Error("client kept after the session was cleared")
	}
}
