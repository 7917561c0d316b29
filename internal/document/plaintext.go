package document

import (
	"io"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"
)

// PlainTextParser 纯文本解析器
type PlainTextParser struct{}

// NewPlainTextParser 创建一个新的纯文本解析器
func NewPlainTextParser() Parser {
	return &PlainTextParser{}
}

// Parse 解析纯文本文件
func (p *PlainTextParser) Parse(filePath string) (string, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return "", NewExtractionError(filepath.Base(filePath), "failed to open text file", err)
	}
	defer file.Close()

	return p.ParseReader(file, filePath)
}

// ParseReader 读取纯文本，非UTF-8字节替换为U+FFFD
func (p *PlainTextParser) ParseReader(r io.Reader, filename string) (string, error) {
	content, err := io.ReadAll(r)
	if err != nil {
		return "", NewExtractionError(filepath.Base(filename), "failed to read text file", err)
	}
	if !utf8.Valid(content) {
		return strings.ToValidUTF8(string(content), "�"), nil
	}
	return string(content), nil
}
