package gemini

import (
	"context"
	"fmt"

	"google.golang.org/genai"

	"github.com/bobmcallan/chartsage/internal/models"
)

// ProjectContinuation asks the image model to draw the expected continuation
// on the chart. It returns the first generated image as a data URI, or "" when
// the response carries no image.
func (c *Client) ProjectContinuation(ctx context.Context, image string, signal models.Signal, market string) (string, error) {
	data, mime, err := DecodeImage(image)
	if err != nil {
		return "", err
	}

	result, err := c.generate(ctx, c.imageModel, chartContents(data, mime, projectionPrompt(signal, market)), nil)
	if err != nil {
		return "", fmt.Errorf("projection request: %w", err)
	}

	return firstInlineImage(result), nil
}

func firstInlineImage(result *genai.GenerateContentResponse) string {
	if len(result.Candidates) == 0 || result.Candidates[0] == nil || result.Candidates[0].Content == nil {
		return ""
	}
	for _, part := range result.Candidates[0].Content.Parts {
		if part != nil && part.InlineData != nil && len(part.InlineData.Data) > 0 {
			return EncodeDataURI(part.InlineData.MIMEType, part.InlineData.Data)
		}
	}
	return ""
}
