// Package outreach turns lead context and configured prompts into pitch and follow-up copy.
package outreach

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"prospector_backend/platform/ai/gemini"
	"prospector_backend/platform/ai/moonshot"
	"prospector_backend/platform/apperr"
	"prospector_backend/platform/config"
)

// Generator produces text from a system and a user prompt.
type Generator interface {
	Generate(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

// GenerationError reports that the upstream model was unreachable, rejected the request or
// returned nothing usable. It is never retried inside this package.
type GenerationError struct {
	Provider string
	Reason   string
	Err      error
}

func (e *GenerationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s generation failed: %s: %v", e.Provider, e.Reason, e.Err)
	}
	return fmt.Sprintf("%s generation failed: %s", e.Provider, e.Reason)
}

func (e *GenerationError) Unwrap() error { return e.Err }

// IsGenerationError reports whether err is a GenerationError.
func IsGenerationError(err error) bool {
	var ge *GenerationError
	return errors.As(err, &ge)
}

// NewGenerator builds the configured provider. A missing API key is a configuration error.
func NewGenerator(ctx context.Context, cfg config.AIConfig) (Generator, error) {
	provider := strings.ToLower(strings.TrimSpace(cfg.GetAIProvider()))
	switch provider {
	case "", "gemini":
		if cfg.GetGeminiAPIKey() == "" {
			return nil, apperr.Configuration("GEMINI_API_KEY is required for the gemini provider")
		}
		client, err := gemini.NewClient(ctx, gemini.Config{
			APIKey:      cfg.GetGeminiAPIKey(),
			Model:       cfg.GetGeminiModel(),
			Temperature: 0.7,
			Timeout:     cfg.GetAITimeout(),
		})
		if err != nil {
			return nil, err
		}
		return checked{provider: "gemini", next: client}, nil
	case "moonshot":
		if cfg.GetMoonshotAPIKey() == "" {
			return nil, apperr.Configuration("MOONSHOT_API_KEY is required for the moonshot provider")
		}
		writer, err := moonshot.NewWriter(moonshot.Config{
			APIKey:      cfg.GetMoonshotAPIKey(),
			Model:       cfg.GetMoonshotModel(),
			Temperature: 0.7,
			Timeout:     cfg.GetAITimeout(),
		})
		if err != nil {
			return nil, err
		}
		return checked{provider: "moonshot", next: writer}, nil
	default:
		return nil, apperr.Configuration(fmt.Sprintf("unknown AI provider %q", provider))
	}
}

// checked converts provider failures and blank output into GenerationError.
type checked struct {
	provider string
	next     Generator
}

func (c checked) Generate(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	text, err := c.next.Generate(ctx, systemPrompt, userPrompt)
	if err != nil {
		reason := "upstream error"
		if errors.Is(err, context.DeadlineExceeded) {
			reason = "timeout"
		}
		return "", &GenerationError{Provider: c.provider, Reason: reason, Err: err}
	}
	if strings.TrimSpace(text) == "" {
		return "", &GenerationError{Provider: c.provider, Reason: "empty content"}
	}
	return text, nil
}
