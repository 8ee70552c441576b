package classify

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/quell-mod/quell-go/internal/submission"
)

const defaultClaudeModel = "claude-sonnet-4-5"

const claudeSystemPrompt = `You are a comment spam classifier for a content management system. Analyze the submitted comment and respond with a JSON object:
{"is_spam": true|false, "confidence": 0.0-1.0, "risk_level": "low"|"medium"|"high", "reasons": ["brief explanation per indicator"]}

Consider promotional language, link stuffing, disposable identities, and bot submission signals. Only respond with the JSON object, no other text.`

// ClaudeClassifier asks Claude for a precomputed spam verdict.
type ClaudeClassifier struct {
	client anthropic.Client
	model  string
}

// NewClaudeClassifier builds a Claude-backed remote classifier. An empty
// model selects the default.
func NewClaudeClassifier(apiKey, model string) *ClaudeClassifier {
	if model == "" {
		model = defaultClaudeModel
	}
	return &ClaudeClassifier{
		client: anthropic.NewClient(option.WithAPIKey(apiKey)),
		model:  model,
	}
}

// Name identifies this classifier in logs and audit records.
func (c *ClaudeClassifier) Name() string { return "claude" }

// Classify sends the submission and parses the strict-JSON verdict. Any API
// or parse failure is an error so the orchestrator falls back locally.
func (c *ClaudeClassifier) Classify(ctx context.Context, sub submission.Submission) (*RemotePayload, error) {
	message, err := c.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(c.model),
		MaxTokens: 300,
		System: []anthropic.TextBlockParam{
			{Text: claudeSystemPrompt},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(formatSubmission(sub))),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("classify: claude request: %w", err)
	}
	if len(message.Content) == 0 {
		return nil, fmt.Errorf("classify: empty claude response")
	}
	return parseClaudeVerdict(message.Content[0].Text)
}

// formatSubmission renders the submission fields as the analysis input.
func formatSubmission(sub submission.Submission) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Author: %s <%s>\n", sub.AuthorName, sub.AuthorEmail)
	if sub.AuthorURL != "" {
		fmt.Fprintf(&b, "Author URL: %s\n", sub.AuthorURL)
	}
	fmt.Fprintf(&b, "Origin IP: %s\n", sub.OriginIP)
	if sub.Honeypot != "" {
		b.WriteString("Honeypot field: filled\n")
	}
	if sub.ElapsedSeconds != nil {
		fmt.Fprintf(&b, "Elapsed seconds: %d\n", *sub.ElapsedSeconds)
	}
	fmt.Fprintf(&b, "\nContent:\n%s", sub.Content)
	return b.String()
}

// parseClaudeVerdict extracts the JSON object from the model text and maps it
// to a precomputed-decision payload.
func parseClaudeVerdict(text string) (*RemotePayload, error) {
	start := strings.IndexByte(text, '{')
	end := strings.LastIndexByte(text, '}')
	if start < 0 || end <= start {
		return nil, fmt.Errorf("classify: no JSON object in claude response")
	}

	var verdict struct {
		IsSpam     bool     `json:"is_spam"`
		Confidence float64  `json:"confidence"`
		RiskLevel  string   `json:"risk_level"`
		Reasons    []string `json:"reasons"`
	}
	if err := json.Unmarshal([]byte(text[start:end+1]), &verdict); err != nil {
		return nil, fmt.Errorf("classify: decode claude verdict: %w", err)
	}

	return &RemotePayload{
		IsSpam:     &verdict.IsSpam,
		Confidence: &verdict.Confidence,
		RiskLevel:  verdict.RiskLevel,
		Reasons:    verdict.Reasons,
	}, nil
}
