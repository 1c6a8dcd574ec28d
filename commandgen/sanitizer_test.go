package commandgen

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSanitizeGoal(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "valid goal unchanged",
			input:    "Log into the staging portal and download the weekly report",
			expected: "Log into the staging portal and download the weekly report",
		},
		{
			name:     "goal with newlines preserved",
			input:    "Open the dashboard\nFilter by last week",
			expected: "Open the dashboard\nFilter by last week",
		},
		{
			name:     "excessive newlines normalized",
			input:    "Open the dashboard\n\n\n\nFilter by last week",
			expected: "Open the dashboard\n\nFilter by last week",
		},
		{
			name:     "tabs and repeated spaces normalized",
			input:    "Open\t\tthe    dashboard",
			expected: "Open the dashboard",
		},
		{
			name:     "control characters removed",
			input:    "Open\x00 the\x01 dashboard",
			expected: "Open the dashboard",
		},
		{
			name:     "leading and trailing whitespace trimmed",
			input:    "  Open the dashboard  ",
			expected: "Open the dashboard",
		},
		{
			name:     "only whitespace becomes empty",
			input:    "   \n\t  ",
			expected: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := SanitizeGoal(tt.input)
			assert.Equal(t, tt.expected, result)
		})
	}
}

func TestSanitizeTargetURL(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "https URL unchanged",
			input:    "https://portal.example.com/login",
			expected: "https://portal.example.com/login",
		},
		{
			name:     "http URL unchanged",
			input:    "http://localhost:8080",
			expected: "http://localhost:8080",
		},
		{
			name:     "bare host gets https prefix",
			input:    "portal.example.com",
			expected: "https://portal.example.com",
		},
		{
			name:     "whitespace trimmed",
			input:    "  https://example.com  ",
			expected: "https://example.com",
		},
		{
			name:     "control characters removed",
			input:    "https://example.com/\x00path",
			expected: "https://example.com/path",
		},
		{
			name:     "empty stays empty",
			input:    "",
			expected: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := SanitizeTargetURL(tt.input)
			assert.Equal(t, tt.expected, result)
		})
	}
}

func TestParseCommands(t *testing.T) {
	tests := []struct {
		name     string
		raw      string
		max      int
		expected []string
	}{
		{
			name: "plain lines",
			raw:  "Navigate to https://example.com\nClick the 'Sign in' button",
			max:  20,
			expected: []string{
				"Navigate to https://example.com",
				"Click the 'Sign in' button",
			},
		},
		{
			name: "numbered list markers stripped",
			raw:  "1. Navigate to the login page\n2. Type the username\n3) Click submit",
			max:  20,
			expected: []string{
				"Navigate to the login page",
				"Type the username",
				"Click submit",
			},
		},
		{
			name: "bullet markers stripped",
			raw:  "- Open the dashboard\n* Click the export button",
			max:  20,
			expected: []string{
				"Open the dashboard",
				"Click the export button",
			},
		},
		{
			name: "blank lines dropped",
			raw:  "Open the dashboard\n\n\nClick export\n\n",
			max:  20,
			expected: []string{
				"Open the dashboard",
				"Click export",
			},
		},
		{
			name: "code fence stripped",
			raw:  "```\nOpen the dashboard\nClick export\n```",
			max:  20,
			expected: []string{
				"Open the dashboard",
				"Click export",
			},
		},
		{
			name: "code fence with language tag stripped",
			raw:  "```text\nOpen the dashboard\n```",
			max:  20,
			expected: []string{
				"Open the dashboard",
			},
		},
		{
			name: "count capped at max",
			raw:  "one\ntwo\nthree\nfour",
			max:  2,
			expected: []string{
				"one",
				"two",
			},
		},
		{
			name: "zero max means no cap",
			raw:  "one\ntwo\nthree",
			max:  0,
			expected: []string{
				"one",
				"two",
				"three",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			commands, err := ParseCommands(tt.raw, tt.max)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, commands)
		})
	}
}

func TestParseCommandsEmpty(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{
			name: "empty string",
			raw:  "",
		},
		{
			name: "only whitespace",
			raw:  "  \n\n  \t ",
		},
		{
			name: "only a code fence",
			raw:  "```\n```",
		},
		{
			name: "only numbering",
			raw:  "1.\n2.\n3.",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseCommands(tt.raw, 20)
			assert.ErrorIs(t, err, ErrNoCommands)
		})
	}
}
