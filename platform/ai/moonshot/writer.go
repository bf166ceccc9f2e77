package moonshot

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"google.golang.org/adk/agent"
	"google.golang.org/adk/agent/llmagent"
	"google.golang.org/adk/runner"
	"google.golang.org/adk/session"
	"google.golang.org/genai"
)

const writerAppName = "outreach-writer"

const writerInstruction = "You write short, personal outreach messages on behalf of a small web studio. " +
	"Follow the task instructions in each message exactly and output only the requested text."

// Writer runs a tool-less ADK agent on top of KimiModel and returns plain text.
type Writer struct {
	runner         *runner.Runner
	sessionService session.Service
}

// NewWriter builds the agent and runner once; each Generate call gets its own session.
func NewWriter(cfg Config) (*Writer, error) {
	adkAgent, err := llmagent.New(llmagent.Config{
		Name:        "OutreachWriter",
		Model:       NewModel(cfg),
		Description: "Writes personalised cold outreach and follow-up messages.",
		Instruction: writerInstruction,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create outreach agent: %w", err)
	}

	sessionService := session.InMemoryService()
	r, err := runner.New(runner.Config{
		AppName:        writerAppName,
		Agent:          adkAgent,
		SessionService: sessionService,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create outreach runner: %w", err)
	}

	return &Writer{runner: r, sessionService: sessionService}, nil
}

// Generate sends the system and user prompt as one turn and collects the reply text.
func (w *Writer) Generate(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	sessionID := uuid.New().String()
	userID := "outreach"

	if _, err := w.sessionService.Create(ctx, &session.CreateRequest{
		AppName:   writerAppName,
		UserID:    userID,
		SessionID: sessionID,
	}); err != nil {
		return "", fmt.Errorf("outreach writer: create session: %w", err)
	}
	defer func() {
		_ = w.sessionService.Delete(context.WithoutCancel(ctx), &session.DeleteRequest{
			AppName:   writerAppName,
			UserID:    userID,
			SessionID: sessionID,
		})
	}()

	parts := make([]*genai.Part, 0, 2)
	if s := strings.TrimSpace(systemPrompt); s != "" {
		parts = append(parts, &genai.Part{Text: "Instructions:\n" + s})
	}
	parts = append(parts, &genai.Part{Text: userPrompt})
	userMessage := &genai.Content{Role: genai.RoleUser, Parts: parts}

	var out strings.Builder
	for event, err := range w.runner.Run(ctx, userID, sessionID, userMessage, agent.RunConfig{StreamingMode: agent.StreamingModeNone}) {
		if err != nil {
			return "", fmt.Errorf("outreach writer: run failed: %w", err)
		}
		if event.Content == nil {
			continue
		}
		for _, part := range event.Content.Parts {
			out.WriteString(part.Text)
		}
	}

	return strings.TrimSpace(out.String()), nil
}
