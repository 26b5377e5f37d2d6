package gemini

import (
	"context"
	"fmt"

	"google.golang.org/genai"
)

// ScanMarket asks the model to originate a setup using search grounding.
// Tools and response schemas cannot be combined, so the free-text answer is
// run through ExtractJSON.
func (c *Client) ScanMarket(ctx context.Context) (map[string]any, error) {
	config := &genai.GenerateContentConfig{
		SystemInstruction: persona(),
		Tools:             []*genai.Tool{{GoogleSearch: &genai.GoogleSearch{}}},
	}

	result, err := c.generate(ctx, c.analysisModel, genai.Text(scanPrompt), config)
	if err != nil {
		return nil, fmt.Errorf("market scan request: %w", err)
	}

	text, err := extractTextFromResponse(result)
	if err != nil {
		return nil, fmt.Errorf("market scan response: %w", err)
	}

	return ExtractJSON(text)
}
