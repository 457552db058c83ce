// Package genai provides GenAI-enhanced operations using OpenAI API.
package genai

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/NestNote/CradleLog/internal/models"
)

// ErrNoChoicesReturned indicates the model returned an empty choice list.
var ErrNoChoicesReturned = errors.New("no choices returned")

// chatService defines minimal interface for chat completions.
type chatService interface {
	New(ctx context.Context, params openai.ChatCompletionNewParams, opts ...option.RequestOption) (*openai.ChatCompletion, error)
}

// Client wraps the OpenAI ChatCompletion service for generating summaries.
type Client struct {
	chat chatService
}

// Opts holds configuration options for the GenAI client.
type Opts struct {
	APIKey string
}

// Option defines a configuration option for the GenAI client.
type Option func(*Opts)

// WithAPIKey sets the OpenAI API key.
func WithAPIKey(key string) Option {
	return func(o *Opts) { o.APIKey = key }
}

// NewClient initializes a new GenAI client. The key falls back to the
// OPENAI_API_KEY environment variable.
func NewClient(opts ...Option) (*Client, error) {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.APIKey == "" {
		cfg.APIKey = os.Getenv("OPENAI_API_KEY")
	}
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("OPENAI_API_KEY not set")
	}
	cli := openai.NewClient(option.WithAPIKey(cfg.APIKey))
	return &Client{chat: &cli.Chat.Completions}, nil
}

const summarySystemPrompt = "You are a pediatric sleep consultant's assistant. " +
	"Summarize the infant's week of sleep and feeding logs for the consultant in plain language. " +
	"Highlight trends in nap length, night wakings, sleep latency, and feeding volume. Keep it under 200 words."

// SummarizeWeek generates a natural-language summary of the last seven days
// of records for a child.
func (c *Client) SummarizeWeek(ctx context.Context, childName string, feedings []models.FeedingRecord, naps []models.NapRecord, sleeps []models.SleepRecord) (string, error) {
	userPrompt := buildWeekDigest(childName, feedings, naps, sleeps)
	resp, err := c.chat.New(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModelGPT4oMini,
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(summarySystemPrompt),
			openai.UserMessage(userPrompt),
		},
	})
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", ErrNoChoicesReturned
	}
	return resp.Choices[0].Message.Content, nil
}

// buildWeekDigest flattens records into a compact text digest for the model.
func buildWeekDigest(childName string, feedings []models.FeedingRecord, naps []models.NapRecord, sleeps []models.SleepRecord) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Child: %s\n\nFeedings (%d):\n", childName, len(feedings))
	for _, f := range feedings {
		switch f.Kind {
		case models.WizardBreastfeeding:
			fmt.Fprintf(&b, "- %s breastfeeding, %d min total, sides %s\n",
				f.StartTime.Format("Mon 15:04"), f.TotalDuration, strings.Join(f.FeedingOrder, " then "))
		default:
			fmt.Fprintf(&b, "- %s %s, %.0f mL (%.1f oz)\n",
				f.StartTime.Format("Mon 15:04"), f.Kind, f.AmountML, f.AmountOz)
		}
	}
	fmt.Fprintf(&b, "\nNaps (%d):\n", len(naps))
	for _, n := range naps {
		fmt.Fprintf(&b, "- %s, %s, fell asleep in %d min, %s\n",
			n.StartTime.Format("Mon 15:04"), n.EndTime.Sub(n.StartTime).Round(time.Minute), n.SleepLatency, n.Restfulness)
	}
	fmt.Fprintf(&b, "\nNight sleep (%d):\n", len(sleeps))
	for _, s := range sleeps {
		fmt.Fprintf(&b, "- %s to %s, %d wakings, fell asleep in %d min, %s\n",
			s.StartTime.Format("Mon 15:04"), s.EndTime.Format("Mon 15:04"), s.NightWakings, s.SleepLatency, s.Restfulness)
	}
	return b.String()
}
