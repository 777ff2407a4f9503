// Package provider holds the reasoning backends the analysis engine talks to.
// A provider turns a prompt into free text; nothing about the shape of that
// text is guaranteed, so callers pattern-match it themselves.
package provider

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrProviderFailure marks any failed or unusable provider call.
var ErrProviderFailure = errors.New("reasoning provider failure")

// Provider completes a prompt into free text.
type Provider interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// Func adapts a function to Provider.
type Func func(ctx context.Context, prompt string) (string, error)

func (f Func) Complete(ctx context.Context, prompt string) (string, error) {
	return f(ctx, prompt)
}

// Config selects and parameterizes a provider.
type Config struct {
	Name    string        `yaml:"name" mapstructure:"name"`
	Model   string        `yaml:"model,omitempty" mapstructure:"model"`
	APIKey  string        `yaml:"apiKey,omitempty" mapstructure:"apiKey"`
	Host    string        `yaml:"host,omitempty" mapstructure:"host"`
	Timeout time.Duration `yaml:"timeout" mapstructure:"timeout"`
}

// New builds the provider named in cfg.
func New(ctx context.Context, cfg Config) (Provider, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Name)) {
	case "gemini", "genai":
		return NewGemini(ctx, cfg)
	case "ollama", "":
		return NewOllama(cfg), nil
	case "none", "offline":
		return Unavailable{}, nil
	default:
		return nil, fmt.Errorf("unknown provider %q", cfg.Name)
	}
}

// Unavailable always fails, forcing the deterministic fallback.
type Unavailable struct{}

func (Unavailable) Complete(context.Context, string) (string, error) {
	return "", fmt.Errorf("%w: no provider configured", ErrProviderFailure)
}
