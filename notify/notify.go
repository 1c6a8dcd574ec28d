// Package notify reports failed runs to an external channel so operators
// find out about broken automations without polling the API.
//
// Two providers are supported. The github provider files an issue in a
// repository and returns its URL, which the dispatcher records on the run.
// The webhook provider posts a signed JSON summary to an HTTP endpoint.
// Notification is best effort: a delivery failure is logged by the caller
// and never changes the outcome of the run itself.
package notify

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/hairizuan-noorazman/automation-bridge/run"
)

var (
	// ErrInvalidProvider is returned when the notifier provider is unknown.
	ErrInvalidProvider = errors.New("invalid notifier provider")
)

// ProviderType identifies a supported notification channel.
type ProviderType string

const (
	ProviderGitHub  ProviderType = "github"
	ProviderWebhook ProviderType = "webhook"
	// ProviderNone disables failure notification.
	ProviderNone ProviderType = "none"
)

// IsValid checks if the provider type is supported.
func (p ProviderType) IsValid() bool {
	switch p {
	case ProviderGitHub, ProviderWebhook, ProviderNone:
		return true
	}
	return false
}

// Notifier delivers a failure report for a finished run. Implementations
// return the URL of the created report when the channel produces one, or
// an empty string otherwise.
type Notifier interface {
	NotifyRunFailure(ctx context.Context, r *run.Run, failed []*run.Item) (string, error)
}

// maxFailureMessageLength caps per-item messages in reports so a single
// noisy traceback does not drown the summary.
const maxFailureMessageLength = 300

// shortRunID returns the first segment of the run UUID, enough to tell
// runs apart in an issue title without the full 36 characters.
func shortRunID(r *run.Run) string {
	id := r.ID.String()
	if idx := strings.IndexByte(id, '-'); idx > 0 {
		return id[:idx]
	}
	return id
}

// buildTitle produces the one-line headline used for issues and webhook
// payloads.
func buildTitle(r *run.Run, failed []*run.Item) string {
	return fmt.Sprintf("Automation run %s failed (%d of %d items)", shortRunID(r), len(failed), r.TotalItems)
}

// buildBody renders a markdown report listing each failed item with its
// failure kind and a truncated message.
func buildBody(r *run.Run, failed []*run.Item) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Run `%s` finished with %d failed item(s) out of %d.\n\n", r.ID.String(), len(failed), r.TotalItems)
	fmt.Fprintf(&b, "Policy: `%s`\n\n", r.Policy)

	if len(failed) == 0 {
		return b.String()
	}

	b.WriteString("## Failed items\n\n")
	for _, item := range failed {
		fmt.Fprintf(&b, "### Item %d\n\n", item.ItemIndex)
		if item.TargetURL != "" {
			fmt.Fprintf(&b, "URL: %s\n\n", item.TargetURL)
		}
		if item.FailureKind != "" {
			fmt.Fprintf(&b, "Kind: `%s`\n\n", item.FailureKind)
		}
		if msg := truncateMessage(item.FailureMessage); msg != "" {
			fmt.Fprintf(&b, "```\n%s\n```\n\n", msg)
		}
	}

	return strings.TrimRight(b.String(), "\n") + "\n"
}

func truncateMessage(msg string) string {
	msg = strings.TrimSpace(msg)
	if len(msg) <= maxFailureMessageLength {
		return msg
	}
	return msg[:maxFailureMessageLength] + "... (truncated)"
}
