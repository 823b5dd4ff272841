package planner

import (
	"encoding/json"
	"fmt"
	"strings"
	"unicode"

	"github.com/planweaver/planweaver/core"
)

// maxRepairRounds bounds the repair loop; each round applies one
// transformation and re-parses
const maxRepairRounds = 4

// RepairJSON parses model output into a JSON object, tolerating the common
// ways models mangle JSON: markdown code fences, prose around the object,
// single-quoted strings and trailing commas. Strict parsing is tried first;
// repair rounds run only on failure. Text without a {...} pair fails
// immediately
func RepairJSON(text string) (map[string]interface{}, error) {
	open := strings.Index(text, "{")
	if open < 0 || strings.LastIndex(text, "}") < open {
		return nil, fmt.Errorf("response contains no JSON object: %w", core.ErrUnrepairableFormat)
	}

	if parsed, err := parseObject(text); err == nil {
		return parsed, nil
	}

	// Extraction runs before quote normalization: an apostrophe in
	// surrounding prose ("Here's your plan:") would otherwise be misread
	// as an opening single quote, escaping every double quote after it.
	// normalizeQuotes only ever sees the brace region
	transforms := []func(string) string{
		stripCodeFences,
		extractObject,
		normalizeQuotes,
		stripTrailingCommas,
	}

	candidate := text
	for round := 0; round < maxRepairRounds; round++ {
		candidate = transforms[round](candidate)
		if parsed, err := parseObject(candidate); err == nil {
			return parsed, nil
		}
	}

	return nil, fmt.Errorf("response is not valid JSON after %d repair rounds: %w",
		maxRepairRounds, core.ErrUnrepairableFormat)
}

func parseObject(text string) (map[string]interface{}, error) {
	var parsed map[string]interface{}
	if err := json.Unmarshal([]byte(strings.TrimSpace(text)), &parsed); err != nil {
		return nil, err
	}
	return parsed, nil
}

// stripCodeFences removes markdown fences (```json ... ```) and leading
// blank lines
func stripCodeFences(text string) string {
	lines := strings.Split(strings.TrimSpace(text), "\n")

	var kept []string
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "```") {
			continue
		}
		if len(kept) == 0 && trimmed == "" {
			continue
		}
		kept = append(kept, line)
	}
	return strings.Join(kept, "\n")
}

// normalizeQuotes converts single-quoted strings to double-quoted and
// escapes embedded double quotes inside string values. A double quote
// inside a double-quoted string is treated as embedded when the next
// non-space character could not follow a closing quote
func normalizeQuotes(text string) string {
	var out strings.Builder
	out.Grow(len(text))

	const (
		outside = iota
		inDouble
		inSingle
	)
	state := outside

	runes := []rune(text)
	for i := 0; i < len(runes); i++ {
		r := runes[i]

		switch state {
		case outside:
			switch r {
			case '\'':
				state = inSingle
				out.WriteRune('"')
			case '"':
				state = inDouble
				out.WriteRune(r)
			default:
				out.WriteRune(r)
			}

		case inSingle:
			switch {
			case r == '\\' && i+1 < len(runes):
				next := runes[i+1]
				if next == '\'' {
					out.WriteRune('\'')
				} else {
					out.WriteRune(r)
					out.WriteRune(next)
				}
				i++
			case r == '\'':
				state = outside
				out.WriteRune('"')
			case r == '"':
				out.WriteString(`\"`)
			default:
				out.WriteRune(r)
			}

		case inDouble:
			switch {
			case r == '\\' && i+1 < len(runes):
				out.WriteRune(r)
				out.WriteRune(runes[i+1])
				i++
			case r == '"':
				if closesString(runes, i+1) {
					state = outside
					out.WriteRune(r)
				} else {
					out.WriteString(`\"`)
				}
			default:
				out.WriteRune(r)
			}
		}
	}

	return out.String()
}

// closesString reports whether a double quote at this position plausibly
// terminates a JSON string, judged by the next non-space character
func closesString(runes []rune, from int) bool {
	for i := from; i < len(runes); i++ {
		r := runes[i]
		if unicode.IsSpace(r) {
			continue
		}
		switch r {
		case ',', ':', '}', ']':
			return true
		default:
			return false
		}
	}
	return true
}

// stripTrailingCommas removes commas that directly precede a closing
// bracket, outside of strings
func stripTrailingCommas(text string) string {
	var out strings.Builder
	out.Grow(len(text))

	inString := false
	runes := []rune(text)
	for i := 0; i < len(runes); i++ {
		r := runes[i]

		if inString {
			out.WriteRune(r)
			if r == '\\' && i+1 < len(runes) {
				out.WriteRune(runes[i+1])
				i++
			} else if r == '"' {
				inString = false
			}
			continue
		}

		switch r {
		case '"':
			inString = true
			out.WriteRune(r)
		case ',':
			if nextStructural(runes, i+1) {
				continue
			}
			out.WriteRune(r)
		default:
			out.WriteRune(r)
		}
	}

	return out.String()
}

// nextStructural reports whether the next non-space rune closes an object
// or array
func nextStructural(runes []rune, from int) bool {
	for i := from; i < len(runes); i++ {
		if unicode.IsSpace(runes[i]) {
			continue
		}
		return runes[i] == '}' || runes[i] == ']'
	}
	return false
}

// extractObject slices from the first '{' to the last '}', discarding any
// surrounding prose
func extractObject(text string) string {
	open := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if open < 0 || end <= open {
		return text
	}
	return text[open : end+1]
}
