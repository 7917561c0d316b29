package report

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleReport = `## 🏆 Sovereign AI T-Class Evaluation Report

### 1. 등급 판정 (Decision)
# T4-1. Adopter
> **"Llama architecture, weights trained from scratch"**

### 2. Technical Analysis
| Item | Extracted | Verdict |
| :--- | :--- | :--- |
| **Base Model** | None - Random Init | Pass |

- **Weight Sovereignty**: trained from random initialization
- **Tech Independence**: standard architecture

---
Final note with <b>inline html</b>.`

func TestRenderHTML(t *testing.T) {
	html := RenderHTML(sampleReport)

	assert.Contains(t, html, "<h2")
	assert.Contains(t, html, "<table>")
	assert.Contains(t, html, "<blockquote>")
	assert.Contains(t, html, "<strong>Base Model</strong>")
	assert.NotContains(t, html, "<b>")
}

func TestRenderHTMLLinks(t *testing.T) {
	html := RenderHTML("See [details](javascript:alert(document.domain)) or [the card](https://huggingface.co/org/model).")

	assert.NotContains(t, html, "javascript:")
	assert.Contains(t, html, "<tt>details</tt>")
	assert.Contains(t, html, `href="https://huggingface.co/org/model"`)
	assert.Contains(t, html, `rel="nofollow"`)
}

func TestMarkdownBlocks(t *testing.T) {
	blocks := markdownBlocks(sampleReport)
	require.NotEmpty(t, blocks)

	assert.Equal(t, blockHeading, blocks[0].kind)
	assert.Equal(t, 2, blocks[0].level)
	assert.Equal(t, "🏆 Sovereign AI T-Class Evaluation Report", blocks[0].text)

	var rows, items, quotes, rules int
	for _, b := range blocks {
		switch b.kind {
		case blockTableRow:
			rows++
		case blockListItem:
			items++
		case blockQuote:
			quotes++
			assert.Equal(t, "\"Llama architecture, weights trained from scratch\"", b.text)
		case blockRule:
			rules++
		}
	}
	assert.Equal(t, 2, rows)
	assert.Equal(t, 2, items)
	assert.Equal(t, 1, quotes)
	assert.Equal(t, 1, rules)
}

func TestExportPDF(t *testing.T) {
	result := Split(sampleReport + "\n__JSON_START__{\"weight_score\": 10, \"arch_score\": 4, \"tokenizer_score\": 3, \"data_score\": 8, \"infra_score\": 2}__JSON_END__")
	chart, ok := NewRadarChart(result.Scores)
	require.True(t, ok)

	var buf bytes.Buffer
	err := ExportPDF(&buf, result, chart, ExportMeta{
		Source:      "PDF: card.pdf",
		Model:       "gemini-3-pro-preview",
		GeneratedAt: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
	})
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(buf.Bytes(), []byte("%PDF-")))
}

func TestExportPDFWithoutChart(t *testing.T) {
	result := Split("plain report without scores")

	var buf bytes.Buffer
	err := ExportPDF(&buf, result, nil, ExportMeta{FontPath: "/nonexistent/font.ttf"})
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(buf.Bytes(), []byte("%PDF-")))
}

func TestLatin1Only(t *testing.T) {
	assert.Equal(t, "café ??", latin1Only("café 한글"))
}

func TestFormatScore(t *testing.T) {
	assert.Equal(t, "7", formatScore(7))
	assert.Equal(t, "3.5", formatScore(3.5))
}
