package model

import (
	"time"

	"github.com/fyerfyer/tclass-evaluator/internal/llm"
	"github.com/fyerfyer/tclass-evaluator/internal/report"
)

// Response 通用响应结构
type Response struct {
	Code    int         `json:"code"`               // 响应状态码，0表示成功
	Message string      `json:"message"`            // 响应消息
	Data    interface{} `json:"data,omitempty"`     // 响应数据，可能为空
	TraceID string      `json:"trace_id,omitempty"` // 调用链追踪ID
}

// NewSuccessResponse 创建成功响应
func NewSuccessResponse(data interface{}) *Response {
	return &Response{
		Code:    0,
		Message: "success",
		Data:    data,
	}
}

// NewErrorResponse 创建错误响应
func NewErrorResponse(code int, message string) *Response {
	return &Response{
		Code:    code,
		Message: message,
	}
}

// DocumentResponse 文档提取结果
type DocumentResponse struct {
	Source  string `json:"source"`  // 来源标签
	Type    string `json:"type"`    // 内容类型
	Length  int    `json:"length"`  // 字符数
	Preview string `json:"preview"` // 前1000个字符的预览
}

// AnalysisResponse 分析结果
type AnalysisResponse struct {
	Model          string             `json:"model"`
	Source         string             `json:"source"`
	ReportMarkdown string             `json:"report_markdown"`
	ReportHTML     string             `json:"report_html"`
	Scores         report.Scores      `json:"scores"`
	ScoreParseOK   bool               `json:"score_parse_ok"`
	Warnings       []string           `json:"warnings"`
	Chart          *report.RadarChart `json:"chart,omitempty"`
	Cached         bool               `json:"cached"`
	Truncated      bool               `json:"truncated"`
	AnalyzedAt     time.Time          `json:"analyzed_at"`
}

// SessionResponse 当前会话状态
type SessionResponse struct {
	ID       string            `json:"id"`
	Document *DocumentResponse `json:"document,omitempty"`
	Analysis *AnalysisResponse `json:"analysis,omitempty"`
}

// ModelListResponse 可用模型列表
type ModelListResponse struct {
	Current string          `json:"current"`
	Models  []llm.ModelInfo `json:"models"`
}

// HealthResponse 健康检查响应
type HealthResponse struct {
	Status        string `json:"status"`
	Model         string `json:"model"`
	RubricVersion string `json:"rubric_version"`
}
