// Package summary generates relationship summaries for strong matches
// through OpenRouter's OpenAI-compatible chat API.
package summary

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"knkt-backend/application/ports"
	"knkt-backend/domain/profile"
)

const requestTimeout = 30 * time.Second

// OpenRouterGenerator implements ports.SummaryGenerator against
// OpenRouter. All failures degrade to empty summaries; a connection is
// never blocked on copywriting.
type OpenRouterGenerator struct {
	client *openai.Client
	model  string
	logger *zap.Logger
}

func NewOpenRouterGenerator(apiKey, baseURL, model string, logger *zap.Logger) ports.SummaryGenerator {
	cfg := openai.DefaultConfig(apiKey)
	cfg.BaseURL = baseURL
	return &OpenRouterGenerator{
		client: openai.NewClientWithConfig(cfg),
		model:  model,
		logger: logger,
	}
}

// summaryPayload is the JSON shape the model is asked to produce.
type summaryPayload struct {
	FirstSummary        string `json:"first_summary"`
	SecondSummary       string `json:"second_summary"`
	NotificationMessage string `json:"notification_message"`
}

// Summarize asks the model for two perspective summaries and a short
// notification line. First describes participant one (shown to
// participant two) and vice versa.
func (g *OpenRouterGenerator) Summarize(ctx context.Context, first, second *profile.Profile, matchPercentage float64) ports.ConnectionSummaries {
	ctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	resp, err := g.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: g.model,
		Messages: []openai.ChatCompletionMessage{
			{
				Role: openai.ChatMessageRoleSystem,
				Content: "You write short, friendly introductions between two people " +
					"who just matched in a professional networking app. Respond with " +
					"JSON only: {\"first_summary\", \"second_summary\", " +
					"\"notification_message\"}. Each summary is 1-2 sentences about " +
					"one person, addressed to the other. The notification message is " +
					"under 15 words.",
			},
			{
				Role:    openai.ChatMessageRoleUser,
				Content: buildPrompt(first, second, matchPercentage),
			},
		},
		MaxTokens:   500,
		Temperature: 0.7,
	})
	if err != nil {
		g.logger.Warn("Summary generation failed", zap.Error(err))
		return ports.ConnectionSummaries{}
	}
	if len(resp.Choices) == 0 {
		g.logger.Warn("Summary generation returned no choices")
		return ports.ConnectionSummaries{}
	}

	var payload summaryPayload
	content := stripFences(resp.Choices[0].Message.Content)
	if err := json.Unmarshal([]byte(content), &payload); err != nil {
		g.logger.Warn("Summary generation returned unparseable JSON", zap.Error(err))
		return ports.ConnectionSummaries{}
	}

	return ports.ConnectionSummaries{
		UID1Summary:         nonEmpty(payload.FirstSummary),
		UID2Summary:         nonEmpty(payload.SecondSummary),
		NotificationMessage: nonEmpty(payload.NotificationMessage),
	}
}

func buildPrompt(first, second *profile.Profile, matchPercentage float64) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Match strength: %.0f%%.\n\n", matchPercentage)
	writeProfile(&b, "Person one", first)
	writeProfile(&b, "Person two", second)
	return b.String()
}

func writeProfile(b *strings.Builder, label string, p *profile.Profile) {
	fmt.Fprintf(b, "%s: %s, %s", label, p.Identity.FullName, p.Identity.University)
	if len(p.Identity.Major) > 0 {
		fmt.Fprintf(b, ", studying %s", strings.Join(p.Identity.Major, ", "))
	}
	b.WriteString(".\n")
	if p.Project != nil && p.Project.OneLiner != "" {
		fmt.Fprintf(b, "Building: %s\n", p.Project.OneLiner)
	}
	if names := p.PossessedNames(); len(names) > 0 {
		fmt.Fprintf(b, "Offers: %s\n", strings.Join(names, ", "))
	}
	if names := p.NeededNames(); len(names) > 0 {
		fmt.Fprintf(b, "Looking for: %s\n", strings.Join(names, ", "))
	}
	b.WriteString("\n")
}

// stripFences removes a surrounding markdown code fence, which chat
// models add despite instructions.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

func nonEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
