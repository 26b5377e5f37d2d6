package gemini

import (
	"context"
	"fmt"

	"google.golang.org/genai"

	"github.com/bobmcallan/chartsage/internal/models"
)

// signalSchema constrains the structured analysis answer.
var signalSchema = &genai.Schema{
	Type: genai.TypeObject,
	Properties: map[string]*genai.Schema{
		"signal":  {Type: genai.TypeString, Enum: []string{string(models.SignalBuy), string(models.SignalSell)}},
		"entry":   {Type: genai.TypeString},
		"market":  {Type: genai.TypeString},
		"warning": {Type: genai.TypeString},
	},
	Required: []string{"signal", "entry", "market"},
}

func persona() *genai.Content {
	return &genai.Content{Parts: []*genai.Part{genai.NewPartFromText(systemInstruction)}}
}

// chartContents builds a single user turn carrying the image and an instruction.
func chartContents(image []byte, mime, instruction string) []*genai.Content {
	return []*genai.Content{
		genai.NewContentFromParts([]*genai.Part{
			genai.NewPartFromBytes(image, mime),
			genai.NewPartFromText(instruction),
		}, genai.RoleUser),
	}
}

// AnalyzeChart sends the chart with an enforced response schema and returns
// the parsed, still unvalidated, answer.
func (c *Client) AnalyzeChart(ctx context.Context, image string, mode models.TradeMode) (map[string]any, error) {
	data, mime, err := DecodeImage(image)
	if err != nil {
		return nil, err
	}

	c.logger.Debug().Str("mode", string(mode)).Str("mime", mime).Int("bytes", len(data)).Msg("Analyzing chart")

	config := &genai.GenerateContentConfig{
		SystemInstruction: persona(),
		ResponseMIMEType:  "application/json",
		ResponseSchema:    signalSchema,
	}

	result, err := c.generate(ctx, c.analysisModel, chartContents(data, mime, analysisPrompt(mode)), config)
	if err != nil {
		return nil, fmt.Errorf("chart analysis request: %w", err)
	}

	text, err := extractTextFromResponse(result)
	if err != nil {
		return nil, fmt.Errorf("chart analysis response: %w", err)
	}

	// The schema should yield clean JSON; the extractor tolerates transports that wrap it anyway
	return ExtractJSON(text)
}
