// internal/oracle/parser.go
package oracle

import (
	"fmt"
	"regexp"
	"strings"

	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Regex uses \x60 for backticks because Go raw strings cannot contain them.
// jsonArrayRegex extracts a JSON array wrapped in a markdown code fence.
var jsonArrayRegex = regexp.MustCompile("(?s)\x60\x60\x60(?:json)?\\s*(\\[.*\\])\\s*\x60\x60\x60")

// parseAnswers extracts the answer array from a model response, tolerating
// the usual formatting drift: markdown fences, conversational preamble, and
// a length that disagrees with the question count. The returned slice always
// has exactly want entries; extras are dropped, gaps are empty strings.
func parseAnswers(response string, want int) ([]string, error) {
	response = strings.TrimSpace(response)
	candidate := response

	if strings.HasPrefix(response, "```") {
		if matches := jsonArrayRegex.FindStringSubmatch(response); len(matches) > 1 {
			candidate = matches[1]
		}
	} else if !strings.HasPrefix(response, "[") {
		// The array may be buried in conversational text.
		first := strings.Index(response, "[")
		last := strings.LastIndex(response, "]")
		if first != -1 && last > first {
			candidate = response[first : last+1]
		}
	}

	var answers []string
	if err := json.UnmarshalFromString(candidate, &answers); err != nil {
		return nil, fmt.Errorf("failed to unmarshal answer array: %w (extracted: %s)", err, clipPrompt(candidate, 200))
	}

	aligned := make([]string, want)
	for i := range aligned {
		if i < len(answers) {
			aligned[i] = strings.TrimSpace(answers[i])
		}
	}
	return aligned, nil
}
