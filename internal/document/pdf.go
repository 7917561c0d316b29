package document

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"
)

// PDFParser PDF文档解析器
type PDFParser struct {
	conf *model.Configuration
}

// NewPDFParser 创建一个新的PDF解析器
func NewPDFParser() Parser {
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	conf.Cmd = model.EXTRACTCONTENT
	return &PDFParser{conf: conf}
}

// Parse 解析PDF文件并提取其文本内容
func (p *PDFParser) Parse(filePath string) (string, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return "", NewExtractionError(filepath.Base(filePath), "failed to open PDF file", err)
	}
	defer file.Close()

	return p.ParseReader(file, filePath)
}

// ParseReader 从Reader解析PDF
// 按页码顺序拼接所有页面的文本，没有文本层的PDF返回空字符串
func (p *PDFParser) ParseReader(r io.Reader, filename string) (string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return "", NewExtractionError(filepath.Base(filename), "failed to read PDF content", err)
	}

	pages, err := p.ExtractPages(bytes.NewReader(data))
	if err != nil {
		return "", NewExtractionError(filepath.Base(filename), "malformed or unreadable PDF", err)
	}

	var allText strings.Builder
	for _, page := range pages {
		if page == "" {
			continue
		}
		if allText.Len() > 0 {
			allText.WriteString("\n\n")
		}
		allText.WriteString(page)
	}

	return strings.TrimSpace(allText.String()), nil
}

// ExtractPages 提取每一页的文本，按页码升序返回
// 每页的字符串按该页资源中字体的ToUnicode与Encoding解码
func (p *PDFParser) ExtractPages(rs io.ReadSeeker) ([]string, error) {
	ctx, err := api.ReadAndValidate(rs, p.conf)
	if err != nil {
		return nil, fmt.Errorf("failed to read PDF: %w", err)
	}

	pages := make([]string, 0, ctx.PageCount)
	for pageNr := 1; pageNr <= ctx.PageCount; pageNr++ {
		pageDict, _, inherited, err := ctx.PageDict(pageNr, false)
		if err != nil {
			return nil, fmt.Errorf("failed to read page %d: %w", pageNr, err)
		}

		content, err := ctx.PageContent(pageDict)
		if err != nil {
			if errors.Is(err, model.ErrNoContent) {
				pages = append(pages, "")
				continue
			}
			return nil, fmt.Errorf("failed to read content of page %d: %w", pageNr, err)
		}

		var resources types.Dict
		if inherited != nil {
			resources = inherited.Resources
		}
		fonts := loadPageFonts(ctx.XRefTable, resources)
		pages = append(pages, decodeContentStream(content, fonts))
	}

	return pages, nil
}
