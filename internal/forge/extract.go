package forge

import (
	"encoding/json"
	"strings"
)

// ExtractJSON locates the first JSON object or array inside arbitrary
// model output and returns it as a raw message. Markdown code fences and
// surrounding prose are tolerated. On any failure it returns "{}" —
// malformed model output must never crash the pipeline; callers apply
// per-field defaults instead.
func ExtractJSON(text string) json.RawMessage {
	cleaned := StripCodeFences(text)

	start := strings.IndexAny(cleaned, "{[")
	if start < 0 {
		return json.RawMessage("{}")
	}

	var end int
	if cleaned[start] == '{' {
		end = strings.LastIndexByte(cleaned, '}')
	} else {
		end = strings.LastIndexByte(cleaned, ']')
	}
	if end <= start {
		return json.RawMessage("{}")
	}

	candidate := cleaned[start : end+1]
	if !json.Valid([]byte(candidate)) {
		return json.RawMessage("{}")
	}
	return json.RawMessage(candidate)
}

// StripCodeFences removes leading/trailing markdown code fence markers
// (```json, ```html, bare ```) from model output.
func StripCodeFences(text string) string {
	cleaned := strings.TrimSpace(text)
	if strings.HasPrefix(cleaned, "```") {
		// Drop the opening fence line, including any language tag.
		if nl := strings.IndexByte(cleaned, '\n'); nl >= 0 {
			cleaned = cleaned[nl+1:]
		} else {
			cleaned = strings.TrimPrefix(cleaned, "```")
		}
	}
	cleaned = strings.TrimSpace(cleaned)
	cleaned = strings.TrimSuffix(cleaned, "```")
	return strings.TrimSpace(cleaned)
}
