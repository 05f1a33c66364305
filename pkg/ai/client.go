package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// Client calls any OpenAI-compatible /v1/chat/completions endpoint for the
// listing assistance features. Works with vLLM, LiteLLM, LocalAI, Ollama's
// compat mode, OpenRouter, self-hosted models, etc.
type Client struct {
	baseURL    string
	apiKey     string
	model      string
	httpClient *http.Client
}

// New builds a client. baseURL should include the /v1 prefix, e.g.
// "http://localhost:11434/v1". apiKey can be empty for local models.
func New(baseURL, apiKey, model string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &Client{
		baseURL:    strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		apiKey:     strings.TrimSpace(apiKey),
		model:      strings.TrimSpace(model),
		httpClient: &http.Client{Timeout: timeout},
	}
}

// PhotoAnalysis is the model's read of a food photo.
type PhotoAnalysis struct {
	Name        string   `json:"name"`
	Category    string   `json:"category"`
	Condition   string   `json:"condition"`
	Ingredients []string `json:"ingredients,omitempty"`
}

// PriceSuggestion carries a suggested price with the model's reasoning.
type PriceSuggestion struct {
	Price     float64 `json:"price"`
	Rationale string  `json:"rationale"`
}

const analyzeSystemPrompt = `You identify surplus food from photos for a campus marketplace.
Respond with a single JSON object: {"name": ..., "category": ..., "condition": ..., "ingredients": [...]}.
Category must be one of: produce, dairy, bakery, pantry, frozen, prepared, beverages, other.`

// AnalyzePhoto asks a vision model to identify the food in the image.
// imageURL may be an https URL or a data: URI.
func (c *Client) AnalyzePhoto(ctx context.Context, imageURL string) (PhotoAnalysis, error) {
	if strings.TrimSpace(imageURL) == "" {
		return PhotoAnalysis{}, fmt.Errorf("image url required")
	}
	content := []oaiContent{
		{Type: "text", Text: "Identify this food item."},
		{Type: "image_url", ImageURL: &oaiImageURL{URL: imageURL}},
	}
	raw, err := c.complete(ctx, analyzeSystemPrompt, content)
	if err != nil {
		return PhotoAnalysis{}, err
	}
	var analysis PhotoAnalysis
	if err := json.Unmarshal([]byte(extractJSON(raw)), &analysis); err != nil {
		return PhotoAnalysis{}, fmt.Errorf("parse analysis: %w", err)
	}
	return analysis, nil
}

const describeSystemPrompt = `You write short, friendly listing descriptions for a campus food-sharing marketplace.
Two or three sentences, no emoji, no price.`

// GenerateDescription writes listing copy from the item facts.
func (c *Client) GenerateDescription(ctx context.Context, name, category, notes string) (string, error) {
	if strings.TrimSpace(name) == "" {
		return "", fmt.Errorf("item name required")
	}
	prompt := fmt.Sprintf("Item: %s\nCategory: %s", name, category)
	if strings.TrimSpace(notes) != "" {
		prompt += "\nSeller notes: " + notes
	}
	return c.complete(ctx, describeSystemPrompt, []oaiContent{{Type: "text", Text: prompt}})
}

const priceSystemPrompt = `You suggest fair prices for surplus food sold between students. Prices are low; free is acceptable.
Respond with a single JSON object: {"price": <number in dollars>, "rationale": <one sentence>}.`

// SuggestPrice proposes a fair price for the listing.
func (c *Client) SuggestPrice(ctx context.Context, name, category, description string) (PriceSuggestion, error) {
	if strings.TrimSpace(name) == "" {
		return PriceSuggestion{}, fmt.Errorf("item name required")
	}
	prompt := fmt.Sprintf("Item: %s\nCategory: %s\nDescription: %s", name, category, description)
	raw, err := c.complete(ctx, priceSystemPrompt, []oaiContent{{Type: "text", Text: prompt}})
	if err != nil {
		return PriceSuggestion{}, err
	}
	var suggestion PriceSuggestion
	if err := json.Unmarshal([]byte(extractJSON(raw)), &suggestion); err != nil {
		return PriceSuggestion{}, fmt.Errorf("parse suggestion: %w", err)
	}
	if suggestion.Price < 0 {
		suggestion.Price = 0
	}
	return suggestion, nil
}

func (c *Client) complete(ctx context.Context, systemPrompt string, content []oaiContent) (string, error) {
	if c.model == "" {
		return "", fmt.Errorf("model required")
	}
	messages := []oaiMessage{
		{Role: "system", Content: []oaiContent{{Type: "text", Text: systemPrompt}}},
		{Role: "user", Content: content},
	}
	body, err := json.Marshal(oaiChatRequest{Model: c.model, Messages: messages})
	if err != nil {
		return "", err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("chat completions request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var errResp oaiErrorResponse
		_ = json.NewDecoder(resp.Body).Decode(&errResp)
		if errResp.Error.Message != "" {
			return "", fmt.Errorf("api error: %s", errResp.Error.Message)
		}
		return "", fmt.Errorf("api error: %s", resp.Status)
	}
	var chatResp oaiChatResponse
	if err := json.NewDecoder(resp.Body).Decode(&chatResp); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	if len(chatResp.Choices) == 0 {
		return "", fmt.Errorf("empty response")
	}
	text := strings.TrimSpace(chatResp.Choices[0].Message.Content)
	if text == "" {
		return "", fmt.Errorf("empty response")
	}
	return text, nil
}

// extractJSON strips markdown fences and surrounding prose around a JSON object.
func extractJSON(s string) string {
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start >= 0 && end > start {
		return s[start : end+1]
	}
	return s
}

// OpenAI-compatible request/response types.

type oaiImageURL struct {
	URL string `json:"url"`
}

type oaiContent struct {
	Type     string       `json:"type"`
	Text     string       `json:"text,omitempty"`
	ImageURL *oaiImageURL `json:"image_url,omitempty"`
}

type oaiMessage struct {
	Role    string       `json:"role"`
	Content []oaiContent `json:"content"`
}

type oaiChatRequest struct {
	Model    string       `json:"model"`
	Messages []oaiMessage `json:"messages"`
}

type oaiChatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

type oaiErrorResponse struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}
