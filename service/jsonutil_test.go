package service

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
			input: `{"executive_summary": "ok"}`,
			want:  `{"executive_summary": "ok"}`,
		},
		{
			name:  "json code fence",
			input: "```json\n{\"executive_summary\": \"ok\"}\n```",
			want:  `{"executive_summary": "ok"}`,
		},
		{
			name:  "plain code fence",
			input: "```\n{\"executive_summary\": \"ok\"}\n```",
			want:  `{"executive_summary": "ok"}`,
		},
		{
			name:  "prose around object",
			input: "Voici le résumé demandé : {\"executive_summary\": \"ok\"} Bonne lecture.",
			want:  `{"executive_summary": "ok"}`,
		},
		{
			name:  "trailing comma",
			input: `{"risks": ["a", "b",],}`,
			want:  `{"risks": ["a", "b"]}`,
		},
		{
			name:  "no json at all",
			input: "Je ne peux pas analyser ce document.",
			want:  "",
		},
		{
			name:  "empty input",
			input: "",
			want:  "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ExtractJSON(tt.input); got != tt.want {
				t.Errorf("ExtractJSON() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestExtractJSONProducesParseable(t *testing.T) {
	input := "```json\n{\n  \"parties\": [\n    {\"name\": \"Acme\", \"role\": \"CLIENT\"},\n  ]\n}\n```"

	raw := ExtractJSON(input)
	if raw == "" {
		t.Fatal("Expected extracted JSON")
	}

	var parsed map[string]any
	if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
		t.Errorf("Extracted JSON should parse: %v\n%s", err, raw)
	}
}
