package commandgen

import (
	"context"
)

// Generator defines the interface for drafting automation commands.
// Implementations can use different backends (AWS Bedrock, local templates, etc.)
type Generator interface {
	// GenerateCommands drafts an ordered list of natural-language browser
	// commands that accomplish the goal, optionally anchored to a target URL.
	GenerateCommands(ctx context.Context, goal, targetURL string) ([]string, error)
}
