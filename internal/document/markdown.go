package document

import (
	"bytes"
	"io"
	"os"
	"path/filepath"

	"github.com/gomarkdown/markdown"
	"github.com/gomarkdown/markdown/html"
	"github.com/gomarkdown/markdown/parser"
)

// MarkdownParser Markdown文档解析器
// 先渲染为HTML，再复用网页的可见文本提取逻辑
type MarkdownParser struct{}

// NewMarkdownParser 创建新的Markdown解析器
func NewMarkdownParser() Parser {
	return &MarkdownParser{}
}

// Parse 解析Markdown文件并提取文本内容
func (p *MarkdownParser) Parse(filePath string) (string, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return "", NewExtractionError(filepath.Base(filePath), "failed to open markdown file", err)
	}
	defer file.Close()

	return p.ParseReader(file, filePath)
}

// ParseReader 从Reader解析Markdown内容
func (p *MarkdownParser) ParseReader(r io.Reader, filename string) (string, error) {
	content, err := io.ReadAll(r)
	if err != nil {
		return "", NewExtractionError(filepath.Base(filename), "failed to read markdown content", err)
	}

	mdParser := parser.NewWithExtensions(parser.CommonExtensions | parser.AutoHeadingIDs)
	renderer := html.NewRenderer(html.RendererOptions{Flags: html.CommonFlags})
	htmlContent := markdown.Render(mdParser.Parse(content), renderer)

	text, err := ExtractVisibleText(bytes.NewReader(htmlContent))
	if err != nil {
		return "", NewExtractionError(filepath.Base(filename), "failed to extract text from markdown", err)
	}
	return text, nil
}
