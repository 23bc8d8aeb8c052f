package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHashURL_Stable(t *testing.T) {
	a := HashURL("https://www.bbc.com/news/world-1")
	b := HashURL("https://www.bbc.com/news/world-1")
	assert.Equal(t, a, b)
	assert.Len(t, a, 64)
	assert.NotEqual(t, a, HashURL("https://www.bbc.com/news/world-2"))
}

func TestResolveLink(t *testing.T) {
	tests := []struct {
		name string
		base string
		href string
		want string
	}{
		{"absolute", "https://www.cnn.com/", "https://edition.cnn.com/a", "https://edition.cnn.com/a"},
		{"root relative", "https://www.cnn.com/world", "/2024/01/01/story", "https://www.cnn.com/2024/01/01/story"},
		{"path relative", "https://www.bbc.com/news/", "world-123", "https://www.bbc.com/news/world-123"},
		{"fragment", "https://www.bbc.com/news", "#main", ""},
		{"javascript", "https://www.bbc.com/news", "javascript:void(0)", ""},
		{"empty", "https://www.bbc.com/news", "  ", ""},
		{"no base", "", "/story", "/story"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ResolveLink(tt.base, tt.href))
		})
	}
}
