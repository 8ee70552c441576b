package classify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/quell-mod/quell-go/internal/submission"
)

const maxRemoteResponseLen = 1 << 20 // 1 MiB

// Remote is a classification service the orchestrator may consult before
// falling back to the local scorer. Implementations must honor ctx deadlines;
// any error is treated as "remote unavailable", never surfaced to the caller.
type Remote interface {
	Classify(ctx context.Context, sub submission.Submission) (*RemotePayload, error)
	Name() string
}

// HTTPClassifier talks to a remote spam classification API over JSON.
type HTTPClassifier struct {
	endpoint string
	apiKey   string
	http     *http.Client
}

// remoteRequest is the submission projection sent to the remote service.
type remoteRequest struct {
	Content        string `json:"content"`
	AuthorName     string `json:"author_name"`
	AuthorEmail    string `json:"author_email"`
	AuthorURL      string `json:"author_url,omitempty"`
	OriginIP       string `json:"origin_ip"`
	SubmittedAt    int64  `json:"submitted_at"`
	Honeypot       string `json:"honeypot,omitempty"`
	ElapsedSeconds *int   `json:"elapsed_seconds,omitempty"`
}

// NewHTTPClassifier creates a classifier for the given endpoint. The HTTP
// client timeout is a backstop; per-call deadlines come from the caller ctx.
func NewHTTPClassifier(endpoint, apiKey string, timeout time.Duration) *HTTPClassifier {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &HTTPClassifier{
		endpoint: endpoint,
		apiKey:   apiKey,
		http:     &http.Client{Timeout: timeout},
	}
}

// Name identifies this classifier in logs and audit records.
func (c *HTTPClassifier) Name() string { return "http" }

// Classify posts the submission fields and parses the response payload.
// Non-2xx statuses and undecodable bodies are errors; the orchestrator turns
// any of them into a local fallback.
func (c *HTTPClassifier) Classify(ctx context.Context, sub submission.Submission) (*RemotePayload, error) {
	body, err := json.Marshal(remoteRequest{
		Content:        sub.Content,
		AuthorName:     sub.AuthorName,
		AuthorEmail:    sub.AuthorEmail,
		AuthorURL:      sub.AuthorURL,
		OriginIP:       sub.OriginIP,
		SubmittedAt:    sub.SubmittedAt.Unix(),
		Honeypot:       sub.Honeypot,
		ElapsedSeconds: sub.ElapsedSeconds,
	})
	if err != nil {
		return nil, fmt.Errorf("classify: marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("classify: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("classify: request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxRemoteResponseLen))
	if err != nil {
		return nil, fmt.Errorf("classify: read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("classify: remote returned status %d", resp.StatusCode)
	}

	var payload RemotePayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, fmt.Errorf("classify: decode response: %w", err)
	}
	if !payload.Usable() {
		return nil, fmt.Errorf("classify: remote payload carries neither a full decision nor a score")
	}
	return &payload, nil
}
