package commandgen

import (
	"regexp"
	"strings"
	"unicode"
)

// Limits holds the configuration for draft input and output bounds.
type Limits struct {
	MaxGoalLength int
	MaxURLLength  int
	MaxCommands   int
}

// DefaultLimits returns the default draft limits.
func DefaultLimits() Limits {
	return Limits{
		MaxGoalLength: 2000,
		MaxURLLength:  2048,
		MaxCommands:   20,
	}
}

var (
	multiNewline = regexp.MustCompile(`\n{3,}`)
	lineSpaces   = regexp.MustCompile(`[ \t]+`)

	// listMarker matches leading numbering or bullets the model may add
	// despite prompt instructions ("1. ", "2) ", "- ", "* ").
	listMarker = regexp.MustCompile(`^(\d+[.)]\s*|[-*]\s+)`)
)

// SanitizeGoal sanitizes a user-provided drafting goal before it is
// embedded in a prompt. Removes control characters and normalizes
// whitespace while preserving paragraph breaks.
func SanitizeGoal(goal string) string {
	goal = strings.TrimSpace(goal)
	goal = removeControlCharacters(goal, true)
	goal = removeNonPrintable(goal)

	goal = multiNewline.ReplaceAllString(goal, "\n\n")

	lines := strings.Split(goal, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSpace(lineSpaces.ReplaceAllString(line, " "))
	}
	goal = strings.Join(lines, "\n")

	return strings.TrimSpace(goal)
}

// SanitizeTargetURL sanitizes an optional target URL. A bare host gets
// an https:// prefix so drafted navigation commands reference a real URL.
func SanitizeTargetURL(url string) string {
	url = strings.TrimSpace(url)
	url = removeControlCharacters(url, false)
	if url == "" {
		return ""
	}
	if !strings.HasPrefix(url, "http://") && !strings.HasPrefix(url, "https://") {
		url = "https://" + url
	}
	return url
}

// ParseCommands turns raw model output into a clean command list: strips
// markdown code fences, drops blank lines and list markers, and caps the
// count at max. Returns ErrNoCommands when nothing usable remains.
func ParseCommands(raw string, max int) ([]string, error) {
	raw = strings.TrimSpace(raw)

	// Strip markdown code fences. LLMs often include these despite prompt
	// instructions.
	if strings.HasPrefix(raw, "```") {
		if idx := strings.Index(raw, "\n"); idx != -1 {
			raw = raw[idx+1:]
		}
		raw = strings.TrimSuffix(strings.TrimSpace(raw), "```")
		raw = strings.TrimSpace(raw)
	}

	var commands []string
	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimSpace(line)
		line = listMarker.ReplaceAllString(line, "")
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		line = removeControlCharacters(line, false)
		commands = append(commands, line)
	}

	if len(commands) == 0 {
		return nil, ErrNoCommands
	}

	if max > 0 && len(commands) > max {
		commands = commands[:max]
	}

	return commands, nil
}

// removeControlCharacters removes control characters from a string.
// If preserveFormatting is true, newlines (\n), tabs (\t), and carriage returns (\r) are preserved.
func removeControlCharacters(s string, preserveFormatting bool) string {
	var result strings.Builder
	for _, r := range s {
		if unicode.IsControl(r) {
			if preserveFormatting && (r == '\n' || r == '\t' || r == '\r') {
				result.WriteRune(r)
			}
			// Skip other control characters
		} else {
			result.WriteRune(r)
		}
	}
	return result.String()
}

// removeNonPrintable removes non-printable characters while preserving
// common formatting characters.
func removeNonPrintable(s string) string {
	var result strings.Builder
	for _, r := range s {
		if unicode.IsPrint(r) || r == '\n' || r == '\t' || r == '\r' {
			result.WriteRune(r)
		}
	}
	return result.String()
}
