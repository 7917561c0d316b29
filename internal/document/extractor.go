package document

import (
	"context"
	"io"
	"path/filepath"
)

// Extractor 文本提取器
// 上传的文件按扩展名选择解析器，URL交给URLFetcher处理
type Extractor struct {
	fetcher *URLFetcher
}

// NewExtractor 创建文本提取器
func NewExtractor(fetcher *URLFetcher) *Extractor {
	if fetcher == nil {
		fetcher = NewURLFetcher()
	}
	return &Extractor{fetcher: fetcher}
}

// FromReader 从上传的文件流中提取文档
func (e *Extractor) FromReader(r io.Reader, filename string) (Document, error) {
	parser, err := ParserFactory(filename)
	if err != nil {
		return Document{}, err
	}

	text, err := parser.ParseReader(r, filename)
	if err != nil {
		if IsExtractionError(err) {
			return Document{}, err
		}
		return Document{}, NewExtractionError(filepath.Base(filename), "failed to parse document", err)
	}

	return NewDocument(SourceLabel(filename), text, DetectContentType(filename)), nil
}

// FromURL 抓取网页并提取文档
func (e *Extractor) FromURL(ctx context.Context, rawURL string) (Document, error) {
	return e.fetcher.Fetch(ctx, rawURL)
}
