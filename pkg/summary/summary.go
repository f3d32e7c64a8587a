// Package summary turns a post's comment history into a short HTML summary
// via a locally hosted inference endpoint (Ollama generate API).
package summary

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/newdaksh/FB-explorer/pkg/models"
)

// NoTextSummary is the fixed degenerate result returned when a post has no
// analyzable comment text. Not an error: it is a defined success.
const NoTextSummary = "No text comments available to analyze."

const fallbackSummary = "Unable to generate summary."

// Local models can be slow to answer a long prompt; this bounds one
// generate call end to end.
const defaultTimeout = 120 * time.Second

type Config struct {
	URL   string
	Model string
}

func (c *Config) IsValid() bool {
	return c.URL != "" && c.Model != ""
}

type generateRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
	Stream bool   `json:"stream"`
}

type generateResponse struct {
	Response string `json:"response"`
}

// Result is the outcome of analyzing one post's comments. CommentCount is
// the number of comments that carried analyzable text; zero means the fixed
// degenerate result was returned without calling the endpoint.
type Result struct {
	Summary      string
	CommentCount int
}

// Summarizer performs a single inference call per request: no retry, no
// batching, no streaming. An endpoint failure yields an error and no
// partial summary.
type Summarizer struct {
	conf   Config
	client *http.Client
}

func New(conf Config) *Summarizer {
	return &Summarizer{
		conf:   conf,
		client: &http.Client{Timeout: defaultTimeout},
	}
}

// Summarize builds one prompt over the non-empty comment texts and asks the
// model for a short summary, post-processed into HTML.
func (s *Summarizer) Summarize(ctx context.Context, comments []models.Comment) (Result, error) {
	texts := make([]string, 0, len(comments))
	for _, c := range comments {
		if strings.TrimSpace(c.Message) != "" {
			texts = append(texts, c.Message)
		}
	}
	if len(texts) == 0 {
		return Result{Summary: NoTextSummary}, nil
	}

	body, err := json.Marshal(generateRequest{
		Model:  s.conf.Model,
		Prompt: buildPrompt(texts),
	})
	if err != nil {
		return Result{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.conf.URL, bytes.NewReader(body))
	if err != nil {
		return Result{}, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return Result{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Result{}, fmt.Errorf("inference endpoint returned status %d", resp.StatusCode)
	}

	var gr generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&gr); err != nil {
		return Result{}, err
	}

	text := gr.Response
	if text == "" {
		text = fallbackSummary
	}

	return Result{
		Summary:      ConvertMarkdown(text),
		CommentCount: len(texts),
	}, nil
}

func buildPrompt(texts []string) string {
	return fmt.Sprintf(
		"Analyze the following %d comments from a social media post and provide a concise 5-6 line summary "+
			"highlighting the main themes, sentiments, and key points:\n\n%s\n\n"+
			"Provide a brief, insightful summary in 5-6 lines.",
		len(texts), strings.Join(texts, "\n\n"))
}
