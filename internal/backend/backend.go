// Package backend builds the language-model client the planning pipeline
// talks to.
package backend

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/rahul/crewplan/pkg/config"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
)

// ErrNoCredentials is returned when a session has no API key set.
var ErrNoCredentials = errors.New("no API credentials set for this session")

// NewModel returns a model for the named provider bound to the session's
// credentials. The key is looked up on every call, so clearing the session
// stops further requests.
func NewModel(provider string, p config.ProviderConfig, creds *config.Credentials) (llms.Model, error) {
	token, ok := creds.Token()
	if !ok {
		return nil, ErrNoCredentials
	}

	var build func(token string) (llms.Model, error)
	switch provider {
	case "openai", "openrouter":
		build = func(token string) (llms.Model, error) {
			opts := []openai.Option{
				openai.WithToken(token),
			}
			if p.Model != "" {
				opts = append(opts, openai.WithModel(p.Model))
			}
			if p.BaseURL != "" {
				opts = append(opts, openai.WithBaseURL(p.BaseURL))
			} else if provider == "openrouter" {
				opts = append(opts, openai.WithBaseURL("https://openrouter.ai/api/v1"))
			}
			llm, err := openai.New(opts...)
			if err != nil {
				return nil, fmt.Errorf("failed to create %s client: %w", provider, err)
			}
			return llm, nil
		}
	default:
		return nil, fmt.Errorf("provider %s not supported", provider)
	}

	m := &sessionModel{creds: creds, build: build}
	if _, err := m.client(token); err != nil {
		return nil, err
	}
	return m, nil
}

// sessionModel rebuilds its client whenever the session token changes.
type sessionModel struct {
	creds *config.Credentials
	build func(token string) (llms.Model, error)

	mu    sync.Mutex
	token string
	llm   llms.Model
}

func (m *sessionModel) client(token string) (llms.Model, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.llm != nil && m.token == token {
		return m.llm, nil
	}
	llm, err := m.build(token)
	if err != nil {
		return nil, err
	}
	m.token, m.llm = token, llm
	return llm, nil
}

func (m *sessionModel) current() (llms.Model, error) {
	token, ok := m.creds.Token()
	if !ok {
		m.mu.Lock()
		m.token, m.llm = "", nil
		m.mu.Unlock()
		return nil, ErrNoCredentials
	}
	return m.client(token)
}

func (m *sessionModel) GenerateContent(ctx context.Context, messages []llms.MessageContent, options ...llms.CallOption) (*llms.ContentResponse, error) {
	llm, err := m.current()
	if err != nil {
		return nil, err
	}
	return llm.GenerateContent(ctx, messages, options...)
}

func (m *sessionModel) Call(ctx context.Context, prompt string, options ...llms.CallOption) (string, error) {
	return llms.GenerateFromSinglePrompt(ctx, m, prompt, options...)
}
