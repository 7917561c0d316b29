package report

import (
	"encoding/json"
	"errors"
	"io"
	"strings"
)

var errNotObject = errors.New("score block is not a JSON object")

// Split 按分隔标记把模型回复拆分为Markdown报告和评分
//
// 没有开始标记时整段文本都是报告；有开始标记时，标记之前是报告，
// 标记之后到结束标记（缺失时到文本末尾）是评分JSON。
// 解析失败不会返回错误，报告照常保留，评分为空并附带警告。
func Split(raw string) ParsedResult {
	start := strings.Index(raw, StartMarker)
	if start < 0 {
		return ParsedResult{
			MarkdownReport: strings.TrimSpace(raw),
			Scores:         Scores{},
		}
	}

	result := ParsedResult{
		MarkdownReport: strings.TrimSpace(raw[:start]),
		Scores:         Scores{},
	}

	region := raw[start+len(StartMarker):]
	if end := strings.Index(region, EndMarker); end >= 0 {
		region = region[:end]
	}
	region = stripCodeFence(strings.TrimSpace(region))

	scores, err := parseScores(region)
	if err != nil {
		result.Warnings = append(result.Warnings, ScoreParseWarning)
		return result
	}

	result.Scores = scores
	result.ScoreParseOK = true
	result.Warnings = append(result.Warnings, ValidateScores(region)...)
	return result
}

// parseScores 解析评分对象，只保留五个已知指标
// 缺失或非数值的指标记为0，多余的键被丢弃
func parseScores(region string) (Scores, error) {
	dec := json.NewDecoder(strings.NewReader(region))
	dec.UseNumber()

	var obj map[string]interface{}
	if err := dec.Decode(&obj); err != nil {
		return nil, err
	}
	if obj == nil {
		return nil, errNotObject
	}
	// 对象之后只允许空白
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, errors.New("unexpected content after score object")
	}

	scores := make(Scores, len(Metrics))
	for _, m := range Metrics {
		scores[m.Key] = 0
		num, ok := obj[m.Key].(json.Number)
		if !ok {
			continue
		}
		if v, err := num.Float64(); err == nil {
			scores[m.Key] = v
		}
	}
	return scores, nil
}

// stripCodeFence 去掉包裹JSON的```json代码块标记
func stripCodeFence(s string) string {
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	// 去掉语言标识，例如 ```json
	if nl := strings.IndexByte(s, '\n'); nl >= 0 && !strings.ContainsAny(s[:nl], "{[") {
		s = s[nl+1:]
	} else {
		s = strings.TrimPrefix(s, "json")
	}
	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}
