package services

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/fyerfyer/tclass-evaluator/internal/document"
	"github.com/fyerfyer/tclass-evaluator/internal/llm"
	"github.com/fyerfyer/tclass-evaluator/internal/report"
	"github.com/fyerfyer/tclass-evaluator/internal/session"
	"github.com/sirupsen/logrus"
)

var (
	// ErrNoDocument 会话中还没有提取过文档
	ErrNoDocument = errors.New("no document has been extracted in this session")
	// ErrNoAnalysis 会话中还没有分析结果
	ErrNoAnalysis = errors.New("no analysis result in this session")
)

// Evaluation 一次完整评估的结果
type Evaluation struct {
	Model      string
	Source     string
	Result     report.ParsedResult
	ReportHTML string
	Chart      *report.RadarChart
	Cached     bool
	Truncated  bool
	AnalyzedAt time.Time
}

// EvaluationService 评估服务
// 串联 文本提取 -> 提示词 -> 模型调用 -> 响应拆分 -> 雷达图
type EvaluationService struct {
	documents *DocumentService
	analysis  *AnalysisService
	fontPath  string
	logger    *logrus.Logger
}

// EvaluationOption 评估服务配置选项
type EvaluationOption func(*EvaluationService)

// NewEvaluationService 创建评估服务
func NewEvaluationService(documents *DocumentService, analysis *AnalysisService, opts ...EvaluationOption) *EvaluationService {
	s := &EvaluationService{
		documents: documents,
		analysis:  analysis,
		logger:    logrus.New(),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// WithFontPath 设置PDF导出使用的UTF-8字体
func WithFontPath(path string) EvaluationOption {
	return func(s *EvaluationService) {
		s.fontPath = path
	}
}

// WithEvaluationLogger 设置日志记录器
func WithEvaluationLogger(logger *logrus.Logger) EvaluationOption {
	return func(s *EvaluationService) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// Model 当前使用的模型
func (s *EvaluationService) Model() string {
	return s.analysis.Model()
}

// IngestUpload 提取上传文件并替换会话中的文档
// 提取失败时会话保持不变
func (s *EvaluationService) IngestUpload(ctx context.Context, sess *session.Session, r io.Reader, filename string) (document.Document, error) {
	doc, err := s.documents.ExtractUpload(ctx, r, filename)
	if err != nil {
		return document.Document{}, err
	}
	sess.SetDocument(doc)
	return doc, nil
}

// IngestURL 抓取网页并替换会话中的文档
// 抓取失败时会话保持不变
func (s *EvaluationService) IngestURL(ctx context.Context, sess *session.Session, rawURL string) (document.Document, error) {
	doc, err := s.documents.ExtractURL(ctx, rawURL)
	if err != nil {
		return document.Document{}, err
	}
	sess.SetDocument(doc)
	return doc, nil
}

// Evaluate 对文档执行分析并解析结果
func (s *EvaluationService) Evaluate(ctx context.Context, doc document.Document) (*Evaluation, error) {
	res, err := s.analysis.Analyze(ctx, doc)
	if err != nil {
		return nil, err
	}

	parsed := report.Split(res.Text)
	if !parsed.ScoreParseOK || len(parsed.Warnings) > 0 {
		s.logger.WithFields(logrus.Fields{
			"source":   doc.Source,
			"parsed":   parsed.ScoreParseOK,
			"warnings": parsed.Warnings,
		}).Warn("Sovereignty scores need attention")
	}

	eval := s.build(session.Analysis{
		Model:      res.Model,
		Source:     doc.Source,
		Result:     parsed,
		Cached:     res.Cached,
		AnalyzedAt: time.Now(),
	})
	eval.Truncated = res.Truncated
	return eval, nil
}

// EvaluateSession 分析会话中的文档，并记录结果
func (s *EvaluationService) EvaluateSession(ctx context.Context, sess *session.Session) (*Evaluation, error) {
	if !sess.HasDocument() {
		return nil, ErrNoDocument
	}

	eval, err := s.Evaluate(ctx, *sess.Document)
	if err != nil {
		return nil, err
	}

	sess.SetAnalysis(session.Analysis{
		Model:      eval.Model,
		Source:     eval.Source,
		Result:     eval.Result,
		Cached:     eval.Cached,
		AnalyzedAt: eval.AnalyzedAt,
	})
	return eval, nil
}

// LastEvaluation 从会话中恢复最近一次评估结果
func (s *EvaluationService) LastEvaluation(sess *session.Session) (*Evaluation, error) {
	if sess.Analysis == nil {
		return nil, ErrNoAnalysis
	}
	return s.build(*sess.Analysis), nil
}

// Export 把会话中最近一次评估导出为PDF
func (s *EvaluationService) Export(w io.Writer, sess *session.Session) error {
	if sess.Analysis == nil {
		return ErrNoAnalysis
	}

	a := sess.Analysis
	chart, _ := report.NewRadarChart(a.Result.Scores)
	return report.ExportPDF(w, a.Result, chart, report.ExportMeta{
		Source:      a.Source,
		Model:       a.Model,
		GeneratedAt: a.AnalyzedAt,
		FontPath:    s.fontPath,
	})
}

// ListModels 列出当前凭证可用的模型
func (s *EvaluationService) ListModels(ctx context.Context) ([]llm.ModelInfo, error) {
	lister, ok := s.analysis.Client().(llm.ModelLister)
	if !ok {
		return nil, llm.NewConfigurationError("provider " + s.analysis.Model() + " does not support model listing")
	}
	return lister.ListModels(ctx)
}

func (s *EvaluationService) build(a session.Analysis) *Evaluation {
	chart, _ := report.NewRadarChart(a.Result.Scores)
	return &Evaluation{
		Model:      a.Model,
		Source:     a.Source,
		Result:     a.Result,
		ReportHTML: report.RenderHTML(a.Result.MarkdownReport),
		Chart:      chart,
		Cached:     a.Cached,
		AnalyzedAt: a.AnalyzedAt,
	}
}
