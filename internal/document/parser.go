package document

import (
	"io"
	"path/filepath"
	"strings"
	"unicode/utf8"
)

// Parser 文档解析器接口
// 负责将不同格式的文档解析为纯文本
type Parser interface {
	// Parse 解析文档，返回文本内容
	Parse(filePath string) (string, error)

	// ParseReader 从Reader解析文档，返回文本内容
	// filename用于确定文档类型和生成来源标签
	ParseReader(r io.Reader, filename string) (string, error)
}

// ContentType 表示文档的内容类型
type ContentType string

const (
	// PDF 文档类型
	PDF ContentType = "pdf"
	// Markdown 文档类型
	Markdown ContentType = "markdown"
	// PlainText 纯文本类型
	PlainText ContentType = "plaintext"
	// HTML 通过URL抓取的网页
	HTML ContentType = "html"
	// Unknown 未知类型
	Unknown ContentType = "unknown"
)

// 来源标签前缀，与评估报告中的 "Source" 字段保持一致
const (
	labelPDF      = "PDF: "
	labelURL      = "URL: "
	labelMarkdown = "Markdown: "
	labelText     = "Text: "
)

// PreviewLength 内容预览的默认字符数
const PreviewLength = 1000

// ParserFactory 解析器工厂函数，根据文件类型创建对应的解析器
func ParserFactory(filename string) (Parser, error) {
	switch DetectContentType(filename) {
	case PDF:
		return NewPDFParser(), nil
	case Markdown:
		return NewMarkdownParser(), nil
	case PlainText:
		return NewPlainTextParser(), nil
	default:
		return nil, NewExtractionError(filename,
			"unsupported document type, only .pdf, .md, .markdown and .txt are accepted", nil)
	}
}

// DetectContentType 根据文件扩展名检测内容类型
func DetectContentType(filename string) ContentType {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".pdf":
		return PDF
	case ".md", ".markdown":
		return Markdown
	case ".txt":
		return PlainText
	default:
		return Unknown
	}
}

// SourceLabel 为上传文件生成来源标签，例如 "PDF: report.pdf"
func SourceLabel(filename string) string {
	name := filepath.Base(filename)
	switch DetectContentType(filename) {
	case PDF:
		return labelPDF + name
	case Markdown:
		return labelMarkdown + name
	default:
		return labelText + name
	}
}

// URLSourceLabel 为网页生成来源标签
func URLSourceLabel(rawURL string) string {
	return labelURL + rawURL
}

// Document 提取后的文档
// 创建后不再修改，由提示词组装阶段消费
type Document struct {
	Source  string      `json:"source"`  // 来源标签
	Content string      `json:"content"` // 提取出的纯文本
	Type    ContentType `json:"type"`    // 内容类型
}

// NewDocument 创建文档
func NewDocument(source, content string, contentType ContentType) Document {
	return Document{
		Source:  source,
		Content: content,
		Type:    contentType,
	}
}

// Length 返回文本的字符数（按Unicode码点计）
func (d Document) Length() int {
	return utf8.RuneCountInString(d.Content)
}

// IsEmpty 文档是否没有可用文本
func (d Document) IsEmpty() bool {
	return strings.TrimSpace(d.Content) == ""
}

// Preview 返回前n个字符，超出部分以 "..." 结尾
func Preview(text string, n int) string {
	if n <= 0 {
		return ""
	}
	if utf8.RuneCountInString(text) <= n {
		return text
	}
	runes := []rune(text)
	return string(runes[:n]) + "..."
}
