package keywords

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtract(t *testing.T) {
	tests := []struct {
		name string
		text string
		want []string
	}{
		{"stop words and short words dropped", "The data of all users", []string{"data", "users"}},
		{"lower-cased", "GDPR Privacy", []string{"gdpr", "privacy"}},
		{"duplicates kept", "audit Audit", []string{"audit", "audit"}},
		{"digits break runs", "iso27001 section", []string{"section"}},
		{"punctuation separates", "data-retention, logging.", []string{"data", "retention", "logging"}},
		{"accented words are not keywords", "résumé Übermittlung privacy", []string{"privacy"}},
		{"underscore joins words", "data_subject rights", []string{"rights"}},
		{"non-latin scripts skipped", "защита данных audit", []string{"audit"}},
		{"empty", "", []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Extract(tt.text))
		})
	}
}

func TestUnique(t *testing.T) {
	assert.Equal(t, []string{"audit", "trail"}, Unique("audit trail AUDIT"))
}

func TestSimilarity(t *testing.T) {
	text := "personal data protection requirements"
	assert.Equal(t, 1.0, Similarity(text, text))
	assert.Equal(t, 0.0, Similarity("personal data", "aircraft maintenance"))
	assert.Equal(t, 0.0, Similarity("", ""))
	assert.InDelta(t, 1.0/3.0, Similarity("privacy data", "data retention"), 1e-9)
}

func TestJaccard_Generic(t *testing.T) {
	a := map[int]struct{}{1: {}, 2: {}}
	b := map[int]struct{}{2: {}, 3: {}}
	assert.InDelta(t, 1.0/3.0, Jaccard(a, b), 1e-9)
}

func TestNormalize(t *testing.T) {
	assert.Equal(t, "european_commission", Normalize("  European Commission "))
	assert.Equal(t, "comisión_europea", Normalize("Comisión Europea"))
}

func TestSet(t *testing.T) {
	s := NewSet("privacy by design")
	assert.True(t, s.Contains("privacy"))
	assert.True(t, s.Contains("design"))
	assert.False(t, s.Contains("by"))
	assert.True(t, IsStopWord("the"))
}
