package resolver

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractURLs(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		expected []string
	}{
		{
			name:     "plain url",
			text:     "https://example.com/v/abc123",
			expected: []string{"https://example.com/v/abc123"},
		},
		{
			name:     "url embedded in chatter",
			text:     "check this out https://video.example.com/v/abc123 thanks",
			expected: []string{"https://video.example.com/v/abc123"},
		},
		{
			name:     "trailing sentence punctuation stripped",
			text:     "look: https://example.com/v/abc123.",
			expected: []string{"https://example.com/v/abc123"},
		},
		{
			name:     "trailing bracket stripped",
			text:     "(see https://example.com/v/abc123)",
			expected: []string{"https://example.com/v/abc123"},
		},
		{
			name: "multiple urls keep order",
			text: "first https://a.example.com/1 then http://b.example.com/2",
			expected: []string{
				"https://a.example.com/1",
				"http://b.example.com/2",
			},
		},
		{
			name:     "duplicates collapse",
			text:     "https://example.com/x and again https://example.com/x",
			expected: []string{"https://example.com/x"},
		},
		{
			name:     "query strings survive",
			text:     "https://music.example.com/song?id=12345&from=share",
			expected: []string{"https://music.example.com/song?id=12345&from=share"},
		},
		{
			name:     "no urls",
			text:     "nothing to see here",
			expected: nil,
		},
		{
			name:     "bare scheme-less host ignored",
			text:     "visit example.com today",
			expected: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, ExtractURLs(tt.text))
		})
	}
}
