// Package agent implements the default controller.Agent: an LLM-backed
// planner that turns a State's condensed View into one or more Actions by
// calling the Anthropic Messages API with tool definitions for every
// runnable Action kind.
package agent

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/agentcore/agentcore/internal/controller"
	"github.com/agentcore/agentcore/internal/events"
	"github.com/agentcore/agentcore/internal/state"
)

// Config configures a default Agent instance.
type Config struct {
	APIKey       string
	Model        string
	MaxTokens    int64
	SystemPrompt string
	Retry        RetryConfig
}

// Agent is the default controller.Agent implementation, wrapping
// anthropic-sdk-go. Grounded on the teacher's internal/executor/agent.go
// checkAILoopDetection, the only place in the teacher tree that builds an
// anthropic.NewClient and calls Messages.New directly.
type Agent struct {
	client anthropic.Client
	cfg    Config
}

// New constructs an Agent from cfg. cfg.Model and cfg.MaxTokens fall back
// to sane defaults if unset.
func New(cfg Config) *Agent {
	if cfg.Model == "" {
		cfg.Model = "claude-sonnet-4-5-20250929"
	}
	if cfg.MaxTokens == 0 {
		cfg.MaxTokens = 8192
	}
	if cfg.Retry == (RetryConfig{}) {
		cfg.Retry = DefaultRetryConfig()
	}
	return &Agent{
		client: anthropic.NewClient(option.WithAPIKey(cfg.APIKey)),
		cfg:    cfg,
	}
}

// NewFromEnv reads ANTHROPIC_API_KEY from the environment, following the
// same convention as the teacher's loop-detection check.
func NewFromEnv() (*Agent, error) {
	key := os.Getenv("ANTHROPIC_API_KEY")
	if key == "" {
		return nil, fmt.Errorf("agent: ANTHROPIC_API_KEY not set")
	}
	return New(Config{APIKey: key}), nil
}

// GetSystemMessage returns the configured system prompt, if any.
func (a *Agent) GetSystemMessage() (string, bool) {
	return a.cfg.SystemPrompt, a.cfg.SystemPrompt != ""
}

// Reset is a no-op: this Agent keeps no conversation state of its own
// between calls, since Step always rebuilds messages fresh from the
// State's View.
func (a *Agent) Reset() {}

// Step sends the State's current View to the model and decodes its
// response into one or more Actions. A text-only response with no tool
// calls becomes a single MessageAction carrying that text; text alongside
// tool calls becomes an AgentThinkAction instead.
func (a *Agent) Step(s *state.State) ([]controller.Produced, error) {
	msgs, err := buildMessages(s.View())
	if err != nil {
		return nil, fmt.Errorf("agent: build messages: %w", err)
	}

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(a.cfg.Model),
		MaxTokens: a.cfg.MaxTokens,
		Messages:  msgs,
		Tools:     buildToolParams(),
	}
	if a.cfg.SystemPrompt != "" {
		params.System = []anthropic.TextBlockParam{{Text: a.cfg.SystemPrompt}}
	}

	var resp *anthropic.Message
	start := time.Now()
	err = withRetry(context.Background(), a.cfg.Retry, func(ctx context.Context) error {
		m, callErr := a.client.Messages.New(ctx, params)
		if callErr != nil {
			return callErr
		}
		resp = m
		return nil
	})
	latency := time.Since(start)
	if err != nil {
		return nil, fmt.Errorf("agent: messages.new: %w", err)
	}

	s.Metrics.AddTokenUsage(
		int(resp.Usage.InputTokens),
		int(resp.Usage.OutputTokens),
		int(resp.Usage.CacheReadInputTokens),
		int(resp.Usage.CacheCreationInputTokens),
		0,
	)
	s.Metrics.AddResponseLatency(latency, resp.ID)

	return decodeResponse(resp)
}

// decodeResponse walks a Message's content blocks in order, producing one
// Action per text or tool_use block. A lone text block with no tool_use
// siblings becomes a MessageAction; text alongside tool calls becomes an
// AgentThinkAction so the reasoning is preserved without being mistaken
// for a chat reply.
func decodeResponse(resp *anthropic.Message) ([]controller.Produced, error) {
	var toolBlocks int
	for _, block := range resp.Content {
		if block.Type == "tool_use" {
			toolBlocks++
		}
	}

	// ReasoningContent stays nil throughout: this agent does not request
	// extended thinking, so there is no reasoning payload to carry on the
	// first produced Action. The field exists on controller.Produced for
	// agents that do.
	var out []controller.Produced

	for _, block := range resp.Content {
		switch block.Type {
		case "text":
			if block.Text == "" {
				continue
			}
			var action events.Action
			if toolBlocks == 0 {
				action = &events.MessageAction{Content: block.Text}
			} else {
				action = &events.AgentThinkAction{Thought: block.Text}
			}
			out = append(out, controller.Produced{Action: action})

		case "tool_use":
			action, err := decodeToolUse(block.Name, block.Input)
			if err != nil {
				return nil, err
			}
			out = append(out, controller.Produced{Action: action})
		}
	}

	if len(out) == 0 {
		return nil, fmt.Errorf("agent: model response carried no text or tool calls")
	}
	return out, nil
}
