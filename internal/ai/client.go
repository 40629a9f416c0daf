// internal/ai/client.go
//
// Client for the Azure OpenAI deployments backing narration and word lookup.
// Responsibilities:
//   - Speech: synthesize a pronunciation clip (audio/mpeg bytes) for a word.
//   - Define: fetch part-of-speech + a single definition as structured JSON.
//
// Both calls are thin passthroughs; callers are expected to degrade
// gracefully (skip narration, substitute a placeholder definition) when a
// call fails.
//
// Environment variables:
//   AZURE_API_KEY           API key sent as `api-key` header (required).
//   AZURE_ENDPOINT          Base endpoint URL, with trailing slash.
//   AZURE_TTS_DEPLOYMENT    Speech deployment name (default gpt-4o-mini-tts).
//   AZURE_CHAT_DEPLOYMENT   Chat deployment name (default gpt-4o).

package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"
)

const (
	speechAPIVersion = "2025-03-01-preview"
	chatAPIVersion   = "2024-02-01"

	definePrompt = "You are a concise dictionary API. For the user-provided word, return its part of speech and a single, clear definition. You MUST respond ONLY with a valid JSON object containing two keys: 'type' (e.g., Noun, Verb, Adjective) and 'definition'. Do not add any extra text or explanation."
)

// Voices is the named set of synthesized narrator voices.
var Voices = []string{"alloy", "ash", "echo", "onyx", "shimmer"}

// WordInfo is the structured result of a definition lookup.
type WordInfo struct {
	Type       string `json:"type"`
	Definition string `json:"definition"`
}

// Client calls the Azure OpenAI deployments. The zero value is not usable;
// construct with New or NewFromEnv.
type Client struct {
	http           *http.Client
	endpoint       string
	apiKey         string
	ttsDeployment  string
	chatDeployment string
}

// New constructs a Client against a specific endpoint.
func New(endpoint, apiKey, ttsDeployment, chatDeployment string) *Client {
	return &Client{
		http:           &http.Client{Timeout: 20 * time.Second},
		endpoint:       endpoint,
		apiKey:         apiKey,
		ttsDeployment:  ttsDeployment,
		chatDeployment: chatDeployment,
	}
}

// NewFromEnv constructs a Client from AZURE_* environment variables.
// Returns an error if no API key is configured.
func NewFromEnv() (*Client, error) {
	key := os.Getenv("AZURE_API_KEY")
	if key == "" {
		return nil, errors.New("ai: AZURE_API_KEY not configured")
	}
	endpoint := getEnv("AZURE_ENDPOINT", "https://spayp-mczbn2cn-eastus2.cognitiveservices.azure.com/")
	return New(endpoint,
		key,
		getEnv("AZURE_TTS_DEPLOYMENT", "gpt-4o-mini-tts"),
		getEnv("AZURE_CHAT_DEPLOYMENT", "gpt-4o"),
	), nil
}

// speechReq is the TTS request body.
type speechReq struct {
	Model string `json:"model"`
	Input string `json:"input"`
	Voice string `json:"voice"`
}

// Speech synthesizes `text` in the given voice and returns the raw
// audio/mpeg payload. An empty voice defaults to "alloy".
func (c *Client) Speech(ctx context.Context, text, voice string) ([]byte, error) {
	if text == "" {
		return nil, errors.New("ai: no text provided")
	}
	if voice == "" {
		voice = "alloy"
	}
	url := fmt.Sprintf("%sopenai/deployments/%s/audio/speech?api-version=%s", c.endpoint, c.ttsDeployment, speechAPIVersion)
	body, _ := json.Marshal(speechReq{Model: "gpt-4o-mini", Input: text, Voice: voice})

	res, err := c.post(ctx, url, body)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()
	if res.StatusCode != http.StatusOK {
		detail, _ := io.ReadAll(io.LimitReader(res.Body, 4096))
		return nil, fmt.Errorf("ai: speech status %d: %s", res.StatusCode, detail)
	}
	return io.ReadAll(res.Body)
}

// chat request/response shapes, minimal.
type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}
type chatReq struct {
	Messages       []chatMessage  `json:"messages"`
	MaxTokens      int            `json:"max_tokens"`
	Temperature    float64        `json:"temperature"`
	ResponseFormat map[string]any `json:"response_format"`
}
type chatRes struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

// Define looks up part-of-speech and a single definition for a word.
func (c *Client) Define(ctx context.Context, word string) (WordInfo, error) {
	if word == "" {
		return WordInfo{}, errors.New("ai: no word provided")
	}
	url := fmt.Sprintf("%sopenai/deployments/%s/chat/completions?api-version=%s", c.endpoint, c.chatDeployment, chatAPIVersion)
	body, _ := json.Marshal(chatReq{
		Messages: []chatMessage{
			{Role: "system", Content: definePrompt},
			{Role: "user", Content: word},
		},
		MaxTokens:      100,
		Temperature:    0.5,
		ResponseFormat: map[string]any{"type": "json_object"},
	})

	res, err := c.post(ctx, url, body)
	if err != nil {
		return WordInfo{}, err
	}
	defer res.Body.Close()
	if res.StatusCode != http.StatusOK {
		detail, _ := io.ReadAll(io.LimitReader(res.Body, 4096))
		return WordInfo{}, fmt.Errorf("ai: define status %d: %s", res.StatusCode, detail)
	}

	var cr chatRes
	if err := json.NewDecoder(res.Body).Decode(&cr); err != nil {
		return WordInfo{}, fmt.Errorf("ai: decode completion: %w", err)
	}
	if len(cr.Choices) == 0 {
		return WordInfo{}, errors.New("ai: empty completion")
	}
	var info WordInfo
	if err := json.Unmarshal([]byte(cr.Choices[0].Message.Content), &info); err != nil {
		return WordInfo{}, fmt.Errorf("ai: parse definition: %w", err)
	}
	return info, nil
}

func (c *Client) post(ctx context.Context, url string, body []byte) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("api-key", c.apiKey)
	return c.http.Do(req)
}

// getEnv returns the value of k or def if unset/empty.
func getEnv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
