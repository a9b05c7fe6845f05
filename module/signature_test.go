package module

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sigrag/types"
)

func TestParseSpec(t *testing.T) {
	name, sig, err := ParseSpec("ChainOfThought(question -> answer)")
	require.NoError(t, err)
	assert.Equal(t, "ChainOfThought", name)
	assert.Equal(t, []string{"question"}, sig.Inputs)
	assert.Equal(t, []string{"answer"}, sig.Outputs)
}

func TestParseSpec_MultipleFields(t *testing.T) {
	name, sig, err := ParseSpec("Predict(context, question -> reasoning, answer)")
	require.NoError(t, err)
	assert.Equal(t, "Predict", name)
	assert.Equal(t, []string{"context", "question"}, sig.Inputs)
	assert.Equal(t, []string{"reasoning", "answer"}, sig.Outputs)
}

func TestParseSpec_Whitespace(t *testing.T) {
	name, sig, err := ParseSpec("  Predict (  question  ->  answer  ) ")
	require.NoError(t, err)
	assert.Equal(t, "Predict", name)
	assert.Equal(t, []string{"question"}, sig.Inputs)
	assert.Equal(t, []string{"answer"}, sig.Outputs)
}

func TestParseSpec_Invalid(t *testing.T) {
	specs := []string{
		"",
		"Predict",
		"Predict()",
		"Predict(question)",
		"Predict(question -> )",
		"Predict( -> answer)",
		"Predict(question -> answer -> extra)",
		"Predict(bad name -> answer)",
		"Predict(question -> answer",
		"(question -> answer)",
	}
	for _, spec := range specs {
		_, _, err := ParseSpec(spec)
		require.Error(t, err, "spec=%q", spec)
		assert.Equal(t, types.ErrInvalidSignature, types.CodeOf(err), "spec=%q", spec)
	}
}

func TestParseSignature_DuplicateField(t *testing.T) {
	_, err := ParseSignature("question, question -> answer")
	require.Error(t, err)
	assert.Equal(t, types.ErrInvalidSignature, types.CodeOf(err))
	assert.Contains(t, err.Error(), "question")

	_, err = ParseSignature("question -> question")
	require.Error(t, err)
	assert.Equal(t, types.ErrInvalidSignature, types.CodeOf(err))
}
