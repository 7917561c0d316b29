package services

import (
	"context"
	"io"
	"path/filepath"
	"time"

	"github.com/fyerfyer/tclass-evaluator/internal/document"
	"github.com/sirupsen/logrus"
)

// DefaultMaxUploadSize 上传文件的默认大小上限
const DefaultMaxUploadSize int64 = 32 << 20

// PreviewChars 页面预览显示的字符数
const PreviewChars = 1000

// DocumentService 文档服务
// 负责把上传的文件或URL转换为可分析的文档
type DocumentService struct {
	extractor     *document.Extractor
	maxUploadSize int64
	logger        *logrus.Logger
}

// DocumentOption 文档服务配置选项
type DocumentOption func(*DocumentService)

// NewDocumentService 创建文档服务
func NewDocumentService(extractor *document.Extractor, opts ...DocumentOption) *DocumentService {
	if extractor == nil {
		extractor = document.NewExtractor(nil)
	}

	s := &DocumentService{
		extractor:     extractor,
		maxUploadSize: DefaultMaxUploadSize,
		logger:        logrus.New(),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// WithMaxUploadSize 设置上传大小上限
func WithMaxUploadSize(size int64) DocumentOption {
	return func(s *DocumentService) {
		if size > 0 {
			s.maxUploadSize = size
		}
	}
}

// WithLogger 设置日志记录器
func WithLogger(logger *logrus.Logger) DocumentOption {
	return func(s *DocumentService) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// MaxUploadSize 返回上传大小上限
func (s *DocumentService) MaxUploadSize() int64 {
	return s.maxUploadSize
}

// ExtractUpload 从上传的文件中提取文档
func (s *DocumentService) ExtractUpload(ctx context.Context, r io.Reader, filename string) (document.Document, error) {
	start := time.Now()
	name := filepath.Base(filename)

	// 多读一个字节用于判断是否超限
	limited := io.LimitReader(r, s.maxUploadSize+1)
	counter := &countingReader{r: limited}

	doc, err := s.extractor.FromReader(counter, name)
	if counter.n > s.maxUploadSize {
		return document.Document{}, document.NewExtractionError(name, "file exceeds the upload size limit", nil)
	}
	if err != nil {
		s.logger.WithFields(logrus.Fields{
			"file": name,
		}).WithError(err).Warn("Failed to extract uploaded document")
		return document.Document{}, err
	}

	s.logger.WithFields(logrus.Fields{
		"source":   doc.Source,
		"chars":    doc.Length(),
		"duration": time.Since(start).String(),
	}).Info("Document extracted")

	return doc, nil
}

// ExtractURL 抓取网页并提取文档
func (s *DocumentService) ExtractURL(ctx context.Context, rawURL string) (document.Document, error) {
	start := time.Now()

	doc, err := s.extractor.FromURL(ctx, rawURL)
	if err != nil {
		s.logger.WithFields(logrus.Fields{
			"url": rawURL,
		}).WithError(err).Warn("Failed to extract web page")
		return document.Document{}, err
	}

	s.logger.WithFields(logrus.Fields{
		"source":   doc.Source,
		"chars":    doc.Length(),
		"duration": time.Since(start).String(),
	}).Info("Web page extracted")

	return doc, nil
}

type countingReader struct {
	r io.Reader
	n int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)
	return n, err
}
