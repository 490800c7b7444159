package agent

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

// codeBlockRe matches a fenced code block, optionally tagged json, whose
// body is a braced object. Non-greedy so the first block wins.
var codeBlockRe = regexp.MustCompile("```(?:json)?\\s*(\\{[\\s\\S]*?\\})\\s*```")

// A strategy locates a JSON candidate in the reply text. Returning found
// commits the extractor to that candidate: if it does not parse, extraction
// fails rather than falling through to a weaker strategy. Only the absence
// of a match advances to the next strategy.
type strategy struct {
	name string
	find func(text string) (candidate string, found bool)
}

var strategies = []strategy{
	{"code block", findCodeBlock},
	{"brace scan", findBraceSpan},
	{"whole text", func(text string) (string, bool) { return text, true }},
}

// Extract recovers a single JSON object from an agent reply. The input is
// either a *Envelope (whose first payload text is used) or a raw string.
func Extract(response interface{}) (map[string]interface{}, error) {
	var text string
	switch v := response.(type) {
	case *Envelope:
		text = v.Text()
	case string:
		text = v
	default:
		return nil, NewError(KindMalformedResponse,
			fmt.Sprintf("unsupported response type %T", response), nil)
	}

	if strings.TrimSpace(text) == "" {
		return nil, NewError(KindMalformedResponse, "empty response content", nil)
	}

	for _, s := range strategies {
		candidate, found := s.find(text)
		if !found {
			continue
		}
		var payload map[string]interface{}
		if err := json.Unmarshal([]byte(candidate), &payload); err != nil {
			return nil, NewError(KindMalformedResponse,
				fmt.Sprintf("failed to parse JSON from %s", s.name), err)
		}
		return payload, nil
	}

	return nil, NewError(KindMalformedResponse, "no JSON object found in response", nil)
}

func findCodeBlock(text string) (string, bool) {
	m := codeBlockRe.FindStringSubmatch(text)
	if m == nil {
		return "", false
	}
	return m[1], true
}

// findBraceSpan returns the span from the first opening brace to the last
// closing brace. Greedy on purpose: nested objects stay intact.
func findBraceSpan(text string) (string, bool) {
	open := strings.Index(text, "{")
	if open < 0 {
		return "", false
	}
	end := strings.LastIndex(text, "}")
	if end <= open {
		return "", false
	}
	return text[open : end+1], true
}
