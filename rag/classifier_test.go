package rag

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassifier_Defaults(t *testing.T) {
	classifier := NewClassifier(ClassifierConfig{})

	tests := []struct {
		name          string
		question      string
		specifics     bool
		chronological bool
	}{
		{"plain question", "Tell me about the acme partnership", false, false},
		{"amount question", "How much revenue did we book in March?", true, false},
		{"count question", "How many clients signed this quarter?", true, false},
		{"list question", "List every open invoice", true, false},
		{"chronological list", "List all transactions in chronological order", true, true},
		{"order without specifics", "Put the milestones in order", false, true},
		{"case insensitive", "WHAT AMOUNT was invoiced?", true, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			class := classifier.Classify(tt.question)
			assert.Equal(t, tt.specifics, class.NeedsSpecifics, "needs_specifics")
			assert.Equal(t, tt.chronological, class.NeedsChronological, "needs_chronological")
		})
	}
}

func TestClassifier_CustomTerms(t *testing.T) {
	classifier := NewClassifier(ClassifierConfig{
		SpecificsTerms:     []string{"facture"},
		ChronologicalTerms: []string{"timeline"},
	})

	class := classifier.Classify("Show the Facture timeline")
	assert.True(t, class.NeedsSpecifics)
	assert.True(t, class.NeedsChronological)

	// 自定义词表覆盖默认词表, 默认关键词不再生效
	class = classifier.Classify("How much was the total?")
	assert.False(t, class.NeedsSpecifics)
}
