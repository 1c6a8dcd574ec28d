package commandgen

import (
	"fmt"
	"strings"
	"unicode"
)

// suspiciousPatterns are phrases associated with prompt injection
// attempts, including the tag names used to delimit user data below.
var suspiciousPatterns = []string{
	"ignore previous instructions",
	"ignore all previous",
	"disregard previous",
	"forget all previous",
	"new instructions:",
	"system:",
	"<goal>",
	"</goal>",
	"<target_url>",
	"</target_url>",
	"<requirements>",
	"</requirements>",
}

// ValidateDraftInput checks a raw goal and target URL against the limits
// and injection patterns. Validation runs on the raw input so injection
// patterns are caught before sanitization rewrites them. BuildPrompt runs
// the same checks; calling this first lets the HTTP layer reject bad input
// without persisting a draft.
func ValidateDraftInput(goal, targetURL string, limits Limits) error {
	if len(goal) > limits.MaxGoalLength {
		return fmt.Errorf("%w: %d characters (max %d)", ErrGoalTooLong, len(goal), limits.MaxGoalLength)
	}
	if err := checkSuspiciousContent(goal); err != nil {
		return err
	}
	if SanitizeGoal(goal) == "" {
		return ErrEmptyGoal
	}

	if len(targetURL) > limits.MaxURLLength {
		return fmt.Errorf("%w: %d characters (max %d)", ErrURLTooLong, len(targetURL), limits.MaxURLLength)
	}
	return checkSuspiciousContent(targetURL)
}

// BuildPrompt constructs the drafting prompt. It validates and sanitizes
// the user-provided goal and URL before embedding them, to prevent prompt
// injection.
func BuildPrompt(goal, targetURL string, limits Limits) (string, error) {
	if err := ValidateDraftInput(goal, targetURL, limits); err != nil {
		return "", err
	}
	goal = SanitizeGoal(goal)
	targetURL = SanitizeTargetURL(targetURL)

	urlSection := ""
	if targetURL != "" {
		urlSection = fmt.Sprintf("\n<target_url>%s</target_url>\n", targetURL)
	}

	// XML-style tags create clear boundaries between instructions and
	// user data, making it harder to break out of the data section.
	prompt := fmt.Sprintf(`Draft browser automation commands in plain English for the following goal.

<goal>
%s
</goal>
%s
<requirements>
- Write one imperative command per line
- Each command describes a single browser action such as navigating, clicking, typing, waiting, or verifying
- Phrase commands the way a person would instruct a browser operator, for example "Click the 'Sign in' button"
- Quote visible labels and field names exactly
- Start with a navigation command when a target URL is given
- Use at most %d commands
- Return ONLY the command lines without numbering, markdown formatting, or commentary
</requirements>`,
		goal,
		urlSection,
		limits.MaxCommands,
	)

	return prompt, nil
}

// checkSuspiciousContent checks a string against the injection pattern
// list and for an unusual density of control characters.
func checkSuspiciousContent(value string) error {
	valueLower := strings.ToLower(value)
	for _, pattern := range suspiciousPatterns {
		if strings.Contains(valueLower, pattern) {
			return fmt.Errorf("%w: contains '%s'", ErrSuspiciousGoal, pattern)
		}
	}
	if hasExcessiveControlCharacters(value) {
		return fmt.Errorf("%w: excessive control characters", ErrSuspiciousGoal)
	}
	return nil
}

// hasExcessiveControlCharacters checks if a string has an unusual number
// of control characters, a sign of encoding attacks.
func hasExcessiveControlCharacters(s string) bool {
	if len(s) == 0 {
		return false
	}

	controlCount := 0
	for _, r := range s {
		if unicode.IsControl(r) && r != '\n' && r != '\t' && r != '\r' {
			controlCount++
		}
	}

	threshold := len(s) / 20
	if threshold < 5 {
		threshold = 5
	}

	return controlCount > threshold
}
