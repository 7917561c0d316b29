package report

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitWellFormed(t *testing.T) {
	raw := "## Report\nT4-1\n__JSON_START__\n{\"weight_score\": 10, \"arch_score\": 4, \"tokenizer_score\": 3.5, \"data_score\": 8, \"infra_score\": 2}\n__JSON_END__\n"

	result := Split(raw)

	assert.Equal(t, "## Report\nT4-1", result.MarkdownReport)
	assert.True(t, result.ScoreParseOK)
	assert.Empty(t, result.Warnings)
	assert.Equal(t, Scores{
		WeightScore:    10,
		ArchScore:      4,
		TokenizerScore: 3.5,
		DataScore:      8,
		InfraScore:     2,
	}, result.Scores)
	assert.True(t, result.HasScores())
}

func TestSplitRecoversMarkdownAndScores(t *testing.T) {
	markdown := "# Verdict\n\n| a | b |\n| --- | --- |\n| 1 | 2 |"
	raw := markdown + "\n__JSON_START__{\"weight_score\":7,\"arch_score\":3,\"tokenizer_score\":0,\"data_score\":10,\"infra_score\":5}__JSON_END__"

	result := Split(raw)
	assert.Equal(t, markdown, result.MarkdownReport)
	assert.Equal(t, 7.0, result.Scores.Get(WeightScore))
	assert.Equal(t, 5.0, result.Scores.Get(InfraScore))
}

func TestSplitNoMarker(t *testing.T) {
	result := Split("  just a report without scores \n")

	assert.Equal(t, "just a report without scores", result.MarkdownReport)
	assert.False(t, result.ScoreParseOK)
	assert.True(t, result.Scores.IsEmpty())
	assert.Empty(t, result.Warnings)
	assert.False(t, result.HasScores())
}

func TestSplitInvalidJSON(t *testing.T) {
	result := Split("report\n__JSON_START__ {not json} __JSON_END__")

	assert.Equal(t, "report", result.MarkdownReport)
	assert.False(t, result.ScoreParseOK)
	assert.True(t, result.Scores.IsEmpty())
	assert.Equal(t, []string{ScoreParseWarning}, result.Warnings)
}

func TestSplitMissingEndMarker(t *testing.T) {
	result := Split("report\n__JSON_START__\n{\"weight_score\": 1, \"arch_score\": 2, \"tokenizer_score\": 3, \"data_score\": 4, \"infra_score\": 5}\n")

	assert.Equal(t, "report", result.MarkdownReport)
	assert.True(t, result.ScoreParseOK)
	assert.Equal(t, 3.0, result.Scores.Get(TokenizerScore))
}

func TestSplitFencedJSON(t *testing.T) {
	raw := "report\n__JSON_START__\n```json\n{\"weight_score\": 9, \"arch_score\": 2, \"tokenizer_score\": 3, \"data_score\": 4, \"infra_score\": 5}\n```\n__JSON_END__"

	result := Split(raw)
	assert.True(t, result.ScoreParseOK)
	assert.Equal(t, 9.0, result.Scores.Get(WeightScore))
}

func TestSplitMissingAndExtraKeys(t *testing.T) {
	result := Split("r\n__JSON_START__{\"weight_score\": 6, \"arch_score\": \"high\", \"extra\": 99}__JSON_END__")

	require.True(t, result.ScoreParseOK)
	assert.Len(t, result.Scores, len(Metrics))
	assert.Equal(t, 6.0, result.Scores.Get(WeightScore))
	assert.Equal(t, 0.0, result.Scores.Get(ArchScore))
	assert.Equal(t, 0.0, result.Scores.Get(InfraScore))
	_, hasExtra := result.Scores["extra"]
	assert.False(t, hasExtra)

	joined := strings.Join(result.Warnings, "\n")
	assert.Contains(t, joined, "arch_score")
	assert.Contains(t, joined, "infra_score")
}

func TestSplitOutOfRangePassesThrough(t *testing.T) {
	result := Split("r\n__JSON_START__{\"weight_score\": 12, \"arch_score\": -1, \"tokenizer_score\": 3, \"data_score\": 4, \"infra_score\": 5}__JSON_END__")

	require.True(t, result.ScoreParseOK)
	assert.Equal(t, 12.0, result.Scores.Get(WeightScore))
	assert.Equal(t, -1.0, result.Scores.Get(ArchScore))
	assert.Len(t, result.Warnings, 2)
}

func TestSplitNonObject(t *testing.T) {
	for _, region := range []string{"[1, 2, 3]", "null", "7", "\"text\"", "", "{\"weight_score\": 1} trailing"} {
		result := Split("r\n__JSON_START__" + region + "__JSON_END__")
		assert.False(t, result.ScoreParseOK, "region %q", region)
		assert.True(t, result.Scores.IsEmpty(), "region %q", region)
		assert.Equal(t, []string{ScoreParseWarning}, result.Warnings, "region %q", region)
	}
}

func TestSplitNeverPanics(t *testing.T) {
	inputs := []string{
		"",
		StartMarker,
		EndMarker + StartMarker,
		StartMarker + EndMarker,
		"```",
		StartMarker + "```",
		StartMarker + "```json",
		strings.Repeat(StartMarker, 3),
	}
	for _, in := range inputs {
		assert.NotPanics(t, func() { Split(in) }, "input %q", in)
	}
}

func TestStripCodeFence(t *testing.T) {
	assert.Equal(t, "{}", stripCodeFence("```json\n{}\n```"))
	assert.Equal(t, "{}", stripCodeFence("```\n{}\n```"))
	assert.Equal(t, "{}", stripCodeFence("```{}```"))
	assert.Equal(t, "{}", stripCodeFence("{}"))
}

func TestValidateScores(t *testing.T) {
	assert.Empty(t, ValidateScores(`{"weight_score": 1, "arch_score": 2, "tokenizer_score": 3, "data_score": 4, "infra_score": 10}`))

	warnings := ValidateScores(`{"weight_score": 11, "arch_score": 2, "tokenizer_score": 3, "data_score": 4}`)
	require.Len(t, warnings, 2)
	joined := strings.Join(warnings, "\n")
	assert.Contains(t, joined, "weight_score")
	assert.Contains(t, joined, "infra_score")
}
