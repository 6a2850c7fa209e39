package ai

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/thywilljoshua/urdu-link/internal/domain"
)

func TestParseTranslation(t *testing.T) {
	tests := []struct {
		name          string
		raw           string
		wantOriginal  string
		wantTranslate string
		wantMalformed bool
	}{
		{
			name:          "plain json",
			raw:           `{"original":"Hello","translated":"# سلام"}`,
			wantOriginal:  "Hello",
			wantTranslate: "# سلام",
		},
		{
			name:          "fenced json",
			raw:           "```json\n{\"original\":\"A\",\"translated\":\"ب\"}\n```",
			wantOriginal:  "A",
			wantTranslate: "ب",
		},
		{
			name:          "json with chatter around it",
			raw:           `Here you go: {"original":"x {y}","translated":"ترجمہ"} hope it helps`,
			wantOriginal:  "x {y}",
			wantTranslate: "ترجمہ",
		},
		{
			name:          "empty response",
			raw:           "",
			wantTranslate: domain.PlaceholderTranslation,
			wantMalformed: true,
		},
		{
			name:          "not json",
			raw:           "I cannot read this page",
			wantTranslate: domain.PlaceholderTranslation,
			wantMalformed: true,
		},
		{
			name:          "missing translated",
			raw:           `{"original":"only source"}`,
			wantOriginal:  "only source",
			wantTranslate: domain.PlaceholderTranslation,
			wantMalformed: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParseTranslation(tt.raw)
			assert.Equal(t, tt.wantOriginal, got.Original)
			assert.Equal(t, tt.wantTranslate, got.Translated)
			assert.Equal(t, tt.wantMalformed, got.Malformed)
		})
	}
}

func TestFindFirstJSON(t *testing.T) {
	assert.Equal(t, `{"a":{"b":1}}`, findFirstJSON(`noise {"a":{"b":1}} {"c":2}`))
	assert.Equal(t, `{"s":"}"}`, findFirstJSON(`{"s":"}"}`))
	assert.Equal(t, "", findFirstJSON("no object"))
	assert.Equal(t, "", findFirstJSON(`{"unterminated":`))
}

func TestStripCodeFences(t *testing.T) {
	assert.Equal(t, `{"a":1}`, stripCodeFences("```json\n{\"a\":1}\n```"))
	assert.Equal(t, `{"a":1}`, stripCodeFences("  {\"a\":1}  "))
}
