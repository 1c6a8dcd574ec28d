package commandgen

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
)

// BedrockGenerator implements Generator using AWS Bedrock.
type BedrockGenerator struct {
	client    *bedrockruntime.Client
	modelID   string
	maxTokens int
	limits    Limits
}

// NewBedrockGenerator creates a new Bedrock-based command generator.
func NewBedrockGenerator(region, modelID string, maxTokens int) (*BedrockGenerator, error) {
	cfg, err := config.LoadDefaultConfig(context.Background(),
		config.WithRegion(region),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := bedrockruntime.NewFromConfig(cfg)

	return &BedrockGenerator{
		client:    client,
		modelID:   modelID,
		maxTokens: maxTokens,
		limits:    DefaultLimits(),
	}, nil
}

// ModelID returns the configured Bedrock model identifier.
func (g *BedrockGenerator) ModelID() string {
	return g.modelID
}

// SetLimits sets the draft limits for the generator.
func (g *BedrockGenerator) SetLimits(limits Limits) {
	g.limits = limits
}

// GenerateCommands drafts a command list using AWS Bedrock.
func (g *BedrockGenerator) GenerateCommands(ctx context.Context, goal, targetURL string) ([]string, error) {
	prompt, err := BuildPrompt(goal, targetURL, g.limits)
	if err != nil {
		return nil, fmt.Errorf("failed to build prompt: %w", err)
	}

	// Request payload format for Claude models on Bedrock.
	requestBody := map[string]interface{}{
		"anthropic_version": "bedrock-2023-05-31",
		"max_tokens":        g.maxTokens,
		"messages": []map[string]interface{}{
			{
				"role": "user",
				"content": []map[string]interface{}{
					{
						"type": "text",
						"text": prompt,
					},
				},
			},
		},
	}

	payloadBytes, err := json.Marshal(requestBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	output, err := g.client.InvokeModel(ctx, &bedrockruntime.InvokeModelInput{
		ModelId:     aws.String(g.modelID),
		ContentType: aws.String("application/json"),
		Accept:      aws.String("application/json"),
		Body:        payloadBytes,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to invoke Bedrock model: %w", err)
	}

	text, err := extractResponseText(output.Body)
	if err != nil {
		return nil, err
	}

	return ParseCommands(text, g.limits.MaxCommands)
}

// extractResponseText pulls the generated text out of a Bedrock messages
// response body.
func extractResponseText(body []byte) (string, error) {
	var response struct {
		Content []struct {
			Type string `json:"type"`
			Text string `json:"text"`
		} `json:"content"`
		StopReason string `json:"stop_reason"`
	}

	if err := json.Unmarshal(body, &response); err != nil {
		return "", fmt.Errorf("failed to unmarshal response: %w", err)
	}

	if len(response.Content) == 0 {
		return "", fmt.Errorf("no content in response")
	}

	text := strings.TrimSpace(response.Content[0].Text)
	if text == "" {
		return "", fmt.Errorf("empty response text")
	}

	return text, nil
}
