package notify

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProviderTypeIsValid(t *testing.T) {
	t.Parallel()

	assert.True(t, ProviderGitHub.IsValid())
	assert.True(t, ProviderWebhook.IsValid())
	assert.True(t, ProviderNone.IsValid())
	assert.False(t, ProviderType("slack").IsValid())
	assert.False(t, ProviderType("").IsValid())
}

func TestBuildTitle(t *testing.T) {
	t.Parallel()

	r, failed := testFailedRun()
	title := buildTitle(r, failed)
	assert.Contains(t, title, "failed (2 of 3 items)")
	assert.Contains(t, title, shortRunID(r))
	assert.NotContains(t, title, r.ID.String())
}

func TestBuildBody(t *testing.T) {
	t.Parallel()

	r, failed := testFailedRun()
	body := buildBody(r, failed)

	assert.Contains(t, body, r.ID.String())
	assert.Contains(t, body, "Policy: `continue`")
	assert.Contains(t, body, "## Failed items")
	assert.Contains(t, body, "### Item 0")
	assert.Contains(t, body, "### Item 2")
	assert.Contains(t, body, "`timeout`")
	assert.Contains(t, body, "engine exceeded 300s budget")
	assert.Contains(t, body, "https://portal.example.com/login")
}

func TestBuildBodyTruncatesLongMessages(t *testing.T) {
	t.Parallel()

	r, failed := testFailedRun()
	failed[0].FailureMessage = strings.Repeat("x", 2*maxFailureMessageLength)

	body := buildBody(r, failed)
	assert.Contains(t, body, "... (truncated)")
	assert.NotContains(t, body, strings.Repeat("x", 2*maxFailureMessageLength))
}

func TestNewNotifier(t *testing.T) {
	t.Parallel()

	notifier, err := NewNotifier(ProviderGitHub, map[string]string{
		"token":      "ghp_test",
		"repository": "acme/portal",
	})
	require.NoError(t, err)
	assert.IsType(t, &GitHubNotifier{}, notifier)

	notifier, err = NewNotifier(ProviderWebhook, map[string]string{
		"url": "https://hooks.example.com/bridge",
	})
	require.NoError(t, err)
	assert.IsType(t, &WebhookNotifier{}, notifier)

	notifier, err = NewNotifier(ProviderNone, nil)
	require.NoError(t, err)
	assert.Nil(t, notifier)

	notifier, err = NewNotifier(ProviderType(""), nil)
	require.NoError(t, err)
	assert.Nil(t, notifier)

	_, err = NewNotifier(ProviderType("pagerduty"), nil)
	assert.ErrorIs(t, err, ErrInvalidProvider)
}
