package forge

import (
	"encoding/json"
	"testing"
)

func TestExtractJSON(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{
			name:  "bare object",
			input: `{"goal": "ship it"}`,
			want:  `{"goal": "ship it"}`,
		},
		{
			name:  "object inside prose",
			input: `Sure! Here is the JSON you asked for: {"goal": "ship it"} Hope that helps.`,
			want:  `{"goal": "ship it"}`,
		},
		{
			name:  "fenced json block",
			input: "```json\n{\"goal\": \"ship it\"}\n```",
			want:  `{"goal": "ship it"}`,
		},
		{
			name:  "fence without language tag",
			input: "```\n[1, 2, 3]\n```",
			want:  `[1, 2, 3]`,
		},
		{
			name:  "bare array",
			input: `[{"id": "q1"}, {"id": "q2"}]`,
			want:  `[{"id": "q1"}, {"id": "q2"}]`,
		},
		{
			name:  "no json at all",
			input: "I could not produce a structured answer.",
			want:  "{}",
		},
		{
			name:  "empty input",
			input: "",
			want:  "{}",
		},
		{
			name:  "unbalanced braces fall back",
			input: `{"goal": "ship it"`,
			want:  "{}",
		},
		{
			name:  "invalid candidate falls back",
			input: `{not valid json}`,
			want:  "{}",
		},
		{
			name:  "empty object",
			input: "{}",
			want:  "{}",
		},
		{
			name:  "nested object picks outermost braces",
			input: `prefix {"a": {"b": [1, 2]}} suffix`,
			want:  `{"a": {"b": [1, 2]}}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ExtractJSON(tt.input)
			if string(got) != tt.want {
				t.Fatalf("ExtractJSON(%q) = %q, want %q", tt.input, got, tt.want)
			}
			if !json.Valid(got) {
				t.Fatalf("ExtractJSON(%q) returned invalid JSON %q", tt.input, got)
			}
		})
	}
}

// A successful extraction is already valid JSON, so running the extractor
// over its own output must be the identity.
func TestExtractJSONIdempotent(t *testing.T) {
	inputs := []string{
		`{"goal": "ship it"}`,
		"```json\n{\"modules\": []}\n```",
		`noise before [1, 2, 3] noise after`,
		"no structure here",
		"",
		`{broken`,
	}
	for _, input := range inputs {
		once := ExtractJSON(input)
		twice := ExtractJSON(string(once))
		if string(once) != string(twice) {
			t.Errorf("not idempotent for %q: first %q, second %q", input, once, twice)
		}
	}
}

func TestStripCodeFences(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"```html\n<div>hi</div>\n```", "<div>hi</div>"},
		{"```\nplain\n```", "plain"},
		{"no fences", "no fences"},
		{"  \n```json\n{}\n```\n  ", "{}"},
		{"```", ""},
	}
	for _, tt := range tests {
		if got := StripCodeFences(tt.input); got != tt.want {
			t.Errorf("StripCodeFences(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}
