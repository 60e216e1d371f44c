package llm

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// DescriptionPrompt asks the model for a tagged description followed by a summary of intent.
const DescriptionPrompt = "Always begin your response with 'IMAGE DESCRIPTION' then provide a detailed description of the image. " +
	"After describing it in detail, summarize the intent of the image. No follow-up questions. " +
	"Be accurate and only describe the things you see that you are absolutely certain about."

// DescriptionSeed keeps generated descriptions reproducible across runs.
const DescriptionSeed = 42

// Client is a client for an OpenAI-compatible chat completions endpoint used to describe pictures.
type Client struct {
	URL                 string
	BearerToken         string
	Model               string
	MaxCompletionTokens int
	Timeout             time.Duration
	client              *http.Client
}

// NewClient creates a new picture description client.
// url is the full chat completions URL, not a base URL.
func NewClient(url, bearerToken, model string, maxCompletionTokens int, timeout time.Duration) *Client {
	return &Client{
		URL:                 url,
		BearerToken:         bearerToken,
		Model:               model,
		MaxCompletionTokens: maxCompletionTokens,
		Timeout:             timeout,
		client:              &http.Client{Timeout: timeout},
	}
}

// ContentPart is one part of a multimodal message (text or image).
type ContentPart struct {
	Type     string    `json:"type"`
	Text     string    `json:"text,omitempty"`
	ImageURL *ImageURL `json:"image_url,omitempty"`
}

// ImageURL carries an image as a URL or data URL.
type ImageURL struct {
	URL string `json:"url"`
}

// ChatMessage represents a single message in a chat conversation.
type ChatMessage struct {
	Role    string        `json:"role"`
	Content []ContentPart `json:"content"`
}

// ChatRequest represents the request payload for chat completions.
type ChatRequest struct {
	Model               string        `json:"model"`
	Messages            []ChatMessage `json:"messages"`
	Seed                int           `json:"seed"`
	MaxCompletionTokens int           `json:"max_completion_tokens,omitempty"`
}

// ChatChoiceMessage represents the message in a chat choice.
type ChatChoiceMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatChoice represents a single choice in the chat response.
type ChatChoice struct {
	Index        int               `json:"index"`
	Message      ChatChoiceMessage `json:"message"`
	FinishReason string            `json:"finish_reason"`
}

// ChatResponse represents the response from the chat completions API.
type ChatResponse struct {
	ID      string       `json:"id"`
	Object  string       `json:"object"`
	Choices []ChatChoice `json:"choices"`
}

// Describe sends one image to the model and returns its description.
func (c *Client) Describe(ctx context.Context, image []byte, mimeType string) (string, error) {
	if len(image) == 0 {
		return "", fmt.Errorf("empty image")
	}

	dataURL := fmt.Sprintf("data:%s;base64,%s", mimeType, base64.StdEncoding.EncodeToString(image))
	payload := ChatRequest{
		Model: c.Model,
		Messages: []ChatMessage{
			{
				Role: "user",
				Content: []ContentPart{
					{Type: "text", Text: DescriptionPrompt},
					{Type: "image_url", ImageURL: &ImageURL{URL: dataURL}},
				},
			},
		},
		Seed:                DescriptionSeed,
		MaxCompletionTokens: c.MaxCompletionTokens,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.URL, bytes.NewBuffer(body))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}

	for k, v := range c.Headers() {
		req.Header.Set(k, v)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to send request: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("bad status %d: %s", resp.StatusCode, string(raw))
	}

	var chatResp ChatResponse
	if err := json.NewDecoder(resp.Body).Decode(&chatResp); err != nil {
		return "", fmt.Errorf("failed to decode response: %w", err)
	}

	if len(chatResp.Choices) == 0 {
		return "", fmt.Errorf("no choices returned")
	}

	return chatResp.Choices[0].Message.Content, nil
}

// Headers returns the headers sent with every description request.
func (c *Client) Headers() map[string]string {
	return map[string]string{
		"Authorization": fmt.Sprintf("Bearer %s", c.BearerToken),
		"Content-Type":  "application/json",
	}
}

// APIOptions describes the client in the shape conversion engines accept
// for delegating picture description to a remote endpoint.
type APIOptions struct {
	URL     string            `json:"url"`
	Headers map[string]string `json:"headers"`
	Params  map[string]any    `json:"params"`
	Prompt  string            `json:"prompt"`
	Timeout float64           `json:"timeout"`
}

// APIOptions returns the remote-description settings for this client.
func (c *Client) APIOptions() APIOptions {
	return APIOptions{
		URL:     c.URL,
		Headers: c.Headers(),
		Params: map[string]any{
			"model":                 c.Model,
			"seed":                  DescriptionSeed,
			"max_completion_tokens": c.MaxCompletionTokens,
		},
		Prompt:  DescriptionPrompt,
		Timeout: c.Timeout.Seconds(),
	}
}
