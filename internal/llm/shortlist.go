// Package llm asks a chat model to shortlist catalog events matching the
// user's preferences. The model is an untrusted suggestion source: its output
// is parsed defensively here and verified against catalog identities by the
// composer before anything reaches the user.
package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"

	"github.com/nightowl-app/nightowl/internal/models"
)

// Config holds the shortlist collaborator configuration.
type Config struct {
	APIKey     string
	BaseURL    string
	Model      string
	Timeout    time.Duration
	MaxRetries int
}

// Shortlister selects candidate events via a chat model.
type Shortlister struct {
	client *openai.Client
	config Config
}

// NewShortlister creates a shortlister. Defaults are applied for unset
// optional fields.
func NewShortlister(cfg Config) *Shortlister {
	if cfg.Model == "" {
		cfg.Model = "gpt-4o-mini"
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 20 * time.Second
	}
	if cfg.MaxRetries == 0 {
		cfg.MaxRetries = 2
	}

	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = cfg.BaseURL
	}

	return &Shortlister{
		client: openai.NewClientWithConfig(clientConfig),
		config: cfg,
	}
}

// maxCatalogLines bounds the catalog summary included in the prompt.
const maxCatalogLines = 50

// Shortlist asks the model to pick up to limit event titles from the given
// candidates. Returned titles are raw model output: callers must intersect
// them with catalog identities before use.
func (s *Shortlister) Shortlist(ctx context.Context, prefs models.Preferences, events []models.Event, limit int) ([]string, error) {
	if len(events) == 0 {
		return nil, nil
	}

	ctx, cancel := context.WithTimeout(ctx, s.config.Timeout)
	defer cancel()

	prompt := buildPrompt(prefs, events, limit)

	var content string
	var lastErr error
	for attempt := 0; attempt < s.config.MaxRetries; attempt++ {
		resp, err := s.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
			Model: s.config.Model,
			Messages: []openai.ChatCompletionMessage{
				{
					Role:    openai.ChatMessageRoleSystem,
					Content: "You are a night-out planner. Reply with a JSON array of event titles chosen verbatim from the provided list. No commentary.",
				},
				{
					Role:    openai.ChatMessageRoleUser,
					Content: prompt,
				},
			},
			Temperature: 0.2,
		})
		if err != nil {
			lastErr = err
			if ctx.Err() != nil {
				break
			}
			continue
		}
		if len(resp.Choices) == 0 {
			lastErr = fmt.Errorf("empty completion response")
			continue
		}
		content = resp.Choices[0].Message.Content
		break
	}
	if content == "" {
		return nil, fmt.Errorf("shortlist completion failed: %w", lastErr)
	}

	titles, err := parseTitleArray(content)
	if err != nil {
		return nil, fmt.Errorf("shortlist response unusable: %w", err)
	}
	return titles, nil
}

func buildPrompt(prefs models.Preferences, events []models.Event, limit int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "User preferences: mood=%s, group size=%d, budget=%s.\n", prefs.Mood, prefs.GroupSize, prefs.Budget)
	fmt.Fprintf(&b, "Pick the %d best matches from these events:\n", limit)

	for i, e := range events {
		if i >= maxCatalogLines {
			break
		}
		line := e.Title
		if e.Venue != "" {
			line += " @ " + e.Venue
		}
		if len(e.Tags) > 0 {
			line += " [" + strings.Join(e.Tags, ", ") + "]"
		}
		fmt.Fprintf(&b, "%d. %s\n", i+1, line)
	}

	b.WriteString("\nReply with a JSON array of the chosen titles, exactly as written above.")
	return b.String()
}

// parseTitleArray extracts a JSON string array from model output, tolerating
// markdown code fences and surrounding prose.
func parseTitleArray(raw string) ([]string, error) {
	raw = stripCodeFences(raw)

	start := strings.Index(raw, "[")
	end := strings.LastIndex(raw, "]")
	if start < 0 || end <= start {
		return nil, fmt.Errorf("no JSON array found")
	}

	var titles []string
	if err := json.Unmarshal([]byte(raw[start:end+1]), &titles); err != nil {
		return nil, err
	}

	out := titles[:0]
	for _, t := range titles {
		t = strings.TrimSpace(t)
		if t != "" {
			out = append(out, t)
		}
	}
	return out, nil
}

func stripCodeFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	if idx := strings.LastIndex(s, "```"); idx >= 0 {
		s = s[:idx]
	}
	return strings.TrimSpace(s)
}
