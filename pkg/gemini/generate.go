package gemini

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
)

// Turn is a single conversation turn. Role is "user" or "model".
type Turn struct {
	Role string
	Text string
}

// TextRequest describes a text generation call.
type TextRequest struct {
	Model             string
	SystemInstruction string
	Turns             []Turn

	// ThinkingBudget limits the model's reasoning tokens. Zero disables
	// thinking entirely; nil leaves the model default.
	ThinkingBudget *int
}

// geminiRequest is the generateContent request body.
// Note: the Gemini API uses camelCase for JSON field names.
type geminiRequest struct {
	Contents          []geminiContent  `json:"contents"`
	SystemInstruction *geminiContent   `json:"systemInstruction,omitempty"`
	GenerationConfig  *geminiGenConfig `json:"generationConfig,omitempty"`
}

// geminiContent represents a content object in Gemini format.
type geminiContent struct {
	Role  string       `json:"role,omitempty"` // "user" or "model"
	Parts []geminiPart `json:"parts"`
}

// geminiPart represents a single part within content.
type geminiPart struct {
	Text       string      `json:"text,omitempty"`
	InlineData *geminiBlob `json:"inlineData,omitempty"`
}

// geminiBlob represents inline binary data.
type geminiBlob struct {
	MIMEType string `json:"mimeType"`
	Data     string `json:"data"` // base64 encoded
}

// geminiGenConfig contains generation configuration.
type geminiGenConfig struct {
	ThinkingConfig *geminiThinkingConfig `json:"thinkingConfig,omitempty"`
}

// geminiThinkingConfig controls thinking/reasoning behavior.
type geminiThinkingConfig struct {
	ThinkingBudget *int `json:"thinkingBudget,omitempty"`
}

// geminiResponse is the generateContent response body.
type geminiResponse struct {
	Candidates   []geminiCandidate `json:"candidates"`
	ModelVersion string            `json:"modelVersion,omitempty"`
}

// geminiCandidate represents a single candidate response.
type geminiCandidate struct {
	Content      geminiContent `json:"content"`
	FinishReason string        `json:"finishReason"`
	Index        int           `json:"index"`
}

// GenerateText sends a non-streaming generateContent request and returns the
// concatenated text of the first candidate. An empty candidate yields an
// empty string, not an error; the caller decides how to surface that.
func (c *Client) GenerateText(ctx context.Context, req TextRequest) (string, error) {
	model := strings.TrimSpace(req.Model)
	if model == "" {
		return "", fmt.Errorf("model must not be empty")
	}

	geminiReq := buildTextRequest(req)

	c.logger.Debug("gemini generate", "model", model, "turns", len(req.Turns))

	respBody, err := c.doRequest(ctx, "/models/"+model+":generateContent", geminiReq)
	if err != nil {
		return "", err
	}

	var geminiResp geminiResponse
	if err := json.Unmarshal(respBody, &geminiResp); err != nil {
		return "", fmt.Errorf("unmarshal response: %w", err)
	}
	if len(geminiResp.Candidates) == 0 {
		return "", nil
	}

	var text strings.Builder
	for _, part := range geminiResp.Candidates[0].Content.Parts {
		text.WriteString(part.Text)
	}
	return text.String(), nil
}

// buildTextRequest converts a TextRequest to the Gemini wire format.
func buildTextRequest(req TextRequest) *geminiRequest {
	geminiReq := &geminiRequest{
		Contents: make([]geminiContent, 0, len(req.Turns)),
	}

	if req.SystemInstruction != "" {
		geminiReq.SystemInstruction = &geminiContent{
			Parts: []geminiPart{{Text: req.SystemInstruction}},
		}
	}

	for _, turn := range req.Turns {
		geminiReq.Contents = append(geminiReq.Contents, geminiContent{
			Role:  turn.Role,
			Parts: []geminiPart{{Text: turn.Text}},
		})
	}

	if req.ThinkingBudget != nil {
		geminiReq.GenerationConfig = &geminiGenConfig{
			ThinkingConfig: &geminiThinkingConfig{ThinkingBudget: req.ThinkingBudget},
		}
	}

	return geminiReq
}
