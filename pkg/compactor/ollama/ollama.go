// Package ollama implements pkg/compactor's Summarizer against Ollama's
// generate API.
package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/papercomputeco/ambient/pkg/compactor"
	"github.com/papercomputeco/ambient/pkg/ledger"
)

const (
	// DefaultModel is the default generation model.
	DefaultModel = "llama3.2"

	// DefaultBaseURL is the default Ollama API URL.
	DefaultBaseURL = "http://localhost:11434"

	// DefaultTimeout bounds a single summarization call. Compaction runs
	// off the hot path, so this can be generous.
	DefaultTimeout = 5 * time.Minute
)

const summaryPrompt = `Summarize the following conversation span in a short paragraph.
Preserve decisions, commitments, preferences, and open questions. Write in
past tense, third person.

%s`

// Summarizer wraps Ollama's generate API.
type Summarizer struct {
	baseURL    string
	model      string
	httpClient *http.Client
}

// SummarizerConfig holds configuration for the Ollama summarizer.
type SummarizerConfig struct {
	// BaseURL is the Ollama API URL. Defaults to DefaultBaseURL if empty.
	BaseURL string

	// Model is the generation model to use. Defaults to DefaultModel if empty.
	Model string

	// Timeout overrides DefaultTimeout when non-zero.
	Timeout time.Duration
}

type generateRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
	Stream bool   `json:"stream"`
}

type generateResponse struct {
	Response string `json:"response"`
}

// NewSummarizer creates a summarizer using Ollama's generate API.
func NewSummarizer(cfg SummarizerConfig) *Summarizer {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	model := cfg.Model
	if model == "" {
		model = DefaultModel
	}

	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = DefaultTimeout
	}

	return &Summarizer{
		baseURL: baseURL,
		model:   model,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// Summarize condenses the turn span via a single non-streaming generation.
func (s *Summarizer) Summarize(ctx context.Context, turns []*ledger.Turn) (string, error) {
	reqBody := generateRequest{
		Model:  s.model,
		Prompt: fmt.Sprintf(summaryPrompt, transcript(turns)),
		Stream: false,
	}

	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", s.baseURL+"/api/generate", bytes.NewReader(jsonBody))
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("sending request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("ollama returned status %d: %s", resp.StatusCode, string(body))
	}

	var genResp generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&genResp); err != nil {
		return "", fmt.Errorf("decoding response: %w", err)
	}

	text := strings.TrimSpace(genResp.Response)
	if text == "" {
		return "", fmt.Errorf("ollama returned an empty summary")
	}

	return text, nil
}

func transcript(turns []*ledger.Turn) string {
	var b strings.Builder
	for _, t := range turns {
		fmt.Fprintf(&b, "[%s] %s: %s\n", t.CreatedAt.Format(time.RFC3339), t.Author, t.Content)
	}
	return b.String()
}

// Ensure Summarizer implements compactor.Summarizer.
var _ compactor.Summarizer = (*Summarizer)(nil)
