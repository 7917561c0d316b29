package session

import (
	"time"

	"github.com/fyerfyer/tclass-evaluator/internal/document"
	"github.com/fyerfyer/tclass-evaluator/internal/report"
	"github.com/google/uuid"
)

// Analysis 会话中保存的最近一次分析结果
type Analysis struct {
	Model      string              `json:"model"`
	Source     string              `json:"source"`
	Result     report.ParsedResult `json:"result"`
	Cached     bool                `json:"cached"`
	AnalyzedAt time.Time           `json:"analyzed_at"`
}

// Session 浏览器会话上下文
// 保存最近一次提取的文档和最近一次分析结果，新的提取会同时替换两者
type Session struct {
	ID        string             `json:"id"`
	Document  *document.Document `json:"document,omitempty"`
	Analysis  *Analysis          `json:"analysis,omitempty"`
	CreatedAt time.Time          `json:"created_at"`
	UpdatedAt time.Time          `json:"updated_at"`
}

// New 创建一个新的空会话
func New() *Session {
	now := time.Now()
	return &Session{
		ID:        uuid.New().String(),
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// HasDocument 会话中是否已有提取好的文档
func (s *Session) HasDocument() bool {
	return s.Document != nil
}

// SetDocument 替换当前文档，并清除基于旧文档的分析结果
func (s *Session) SetDocument(doc document.Document) {
	s.Document = &doc
	s.Analysis = nil
	s.UpdatedAt = time.Now()
}

// SetAnalysis 记录最近一次分析结果
func (s *Session) SetAnalysis(a Analysis) {
	s.Analysis = &a
	s.UpdatedAt = time.Now()
}

// Reset 清除文档和分析结果
func (s *Session) Reset() {
	s.Document = nil
	s.Analysis = nil
	s.UpdatedAt = time.Now()
}

// Clone 返回深拷贝，处理失败时丢弃拷贝即可保持原会话不变
func (s *Session) Clone() *Session {
	clone := *s
	if s.Document != nil {
		doc := *s.Document
		clone.Document = &doc
	}
	if s.Analysis != nil {
		a := *s.Analysis
		a.Result.Scores = make(report.Scores, len(s.Analysis.Result.Scores))
		for k, v := range s.Analysis.Result.Scores {
			a.Result.Scores[k] = v
		}
		a.Result.Warnings = append([]string(nil), s.Analysis.Result.Warnings...)
		clone.Analysis = &a
	}
	return &clone
}

// ValidID 检查会话ID是否为合法的UUID
func ValidID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}
