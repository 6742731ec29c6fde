package recommend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"
)

var ErrNotConfigured = errors.New("GEMINI_API_KEY not set in environment")

// maxPromptTitles caps how many tracked titles feed the prompt.
const maxPromptTitles = 20

// Client calls the Gemini generateContent REST endpoint. The response is
// opaque display text; no structured schema.
type Client struct {
	BaseURL string
	Model   string
	APIKey  string
	HTTP    *http.Client
}

func NewClientFromEnv() *Client {
	baseURL := strings.TrimSpace(os.Getenv("GEMINI_BASE_URL"))
	if baseURL == "" {
		baseURL = "https://generativelanguage.googleapis.com/v1beta"
	}
	model := strings.TrimSpace(os.Getenv("GEMINI_MODEL"))
	if model == "" {
		model = "gemini-2.0-flash"
	}
	return &Client{
		BaseURL: baseURL,
		Model:   model,
		APIKey:  strings.TrimSpace(os.Getenv("GEMINI_API_KEY")),
		HTTP:    &http.Client{Timeout: 20 * time.Second},
	}
}

type generateRequest struct {
	Contents []content `json:"contents"`
}

type content struct {
	Parts []part `json:"parts"`
}

type part struct {
	Text string `json:"text"`
}

type generateResponse struct {
	Candidates []struct {
		Content struct {
			Parts []struct {
				Text string `json:"text"`
			} `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
}

// Recommendations builds a prompt from the user's tracked titles and
// returns the model output as-is.
func (c *Client) Recommendations(ctx context.Context, titles []string) (string, error) {
	if c.APIKey == "" {
		return "", ErrNotConfigured
	}

	var prompt string
	if len(titles) == 0 {
		prompt = "Recommend 5 distinct, highly-rated anime series for a beginner. " +
			"Provide the output as a simple list with a 1-sentence description for each. " +
			"Do not use markdown formatting like bolding."
	} else {
		if len(titles) > maxPromptTitles {
			titles = titles[:maxPromptTitles]
		}
		prompt = fmt.Sprintf("I have watched the following anime: %s. "+
			"Based on this taste, recommend 5 NEW anime series I haven't watched yet. "+
			"Provide the output as a simple list with a 1-sentence description for each. "+
			"Do not use markdown formatting like bolding.", strings.Join(titles, ", "))
	}

	body, err := json.Marshal(generateRequest{
		Contents: []content{{Parts: []part{{Text: prompt}}}},
	})
	if err != nil {
		return "", err
	}

	endpoint := fmt.Sprintf("%s/models/%s:generateContent", c.BaseURL, c.Model)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", c.APIKey)

	res, err := c.HTTP.Do(req)
	if err != nil {
		return "", fmt.Errorf("recommendation request failed: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		return "", fmt.Errorf("recommendation API returned %s", res.Status)
	}

	var r generateResponse
	if err := json.NewDecoder(res.Body).Decode(&r); err != nil {
		return "", fmt.Errorf("failed to decode recommendation response: %w", err)
	}

	var sb strings.Builder
	for _, cand := range r.Candidates {
		for _, p := range cand.Content.Parts {
			sb.WriteString(p.Text)
		}
	}
	text := strings.TrimSpace(sb.String())
	if text == "" {
		return "No recommendations generated.", nil
	}
	return text, nil
}
