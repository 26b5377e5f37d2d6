package gemini

import (
	"context"
	"fmt"

	"google.golang.org/genai"
)

// EnrichContext asks a search-grounded question about market and returns the
// cited source URLs in citation order. Missing grounding metadata yields an
// empty list.
func (c *Client) EnrichContext(ctx context.Context, market string) ([]string, error) {
	config := &genai.GenerateContentConfig{
		Tools: []*genai.Tool{{GoogleSearch: &genai.GoogleSearch{}}},
	}

	result, err := c.generate(ctx, c.analysisModel, genai.Text(enrichmentPrompt(market)), config)
	if err != nil {
		return nil, fmt.Errorf("enrichment request: %w", err)
	}

	return groundingLinks(result), nil
}

// groundingLinks collects web URIs from the first candidate's grounding chunks.
func groundingLinks(result *genai.GenerateContentResponse) []string {
	links := []string{}
	if len(result.Candidates) == 0 || result.Candidates[0] == nil {
		return links
	}
	meta := result.Candidates[0].GroundingMetadata
	if meta == nil {
		return links
	}
	for _, chunk := range meta.GroundingChunks {
		if chunk == nil || chunk.Web == nil || chunk.Web.URI == "" {
			continue
		}
		links = append(links, chunk.Web.URI)
	}
	return links
}
