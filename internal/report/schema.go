package report

import (
	"fmt"
	"sort"

	"github.com/xeipuuv/gojsonschema"
)

// ScoreSchema 评分对象的JSON Schema
// 五个指标都必须是[0,10]之间的数字，额外的键允许存在但会被忽略
const ScoreSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "title": "Sovereignty Score",
  "type": "object",
  "required": ["weight_score", "arch_score", "tokenizer_score", "data_score", "infra_score"],
  "properties": {
    "weight_score":    {"type": "number", "minimum": 0, "maximum": 10},
    "arch_score":      {"type": "number", "minimum": 0, "maximum": 10},
    "tokenizer_score": {"type": "number", "minimum": 0, "maximum": 10},
    "data_score":      {"type": "number", "minimum": 0, "maximum": 10},
    "infra_score":     {"type": "number", "minimum": 0, "maximum": 10}
  }
}`

var scoreSchema = mustLoadSchema(ScoreSchema)

func mustLoadSchema(content string) *gojsonschema.Schema {
	schema, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(content))
	if err != nil {
		panic(fmt.Sprintf("invalid score schema: %v", err))
	}
	return schema
}

// ValidateScores 按Schema校验评分JSON，返回排序后的警告列表
// 校验结果只作为提示，评分数值原样保留
func ValidateScores(jsonContent string) []string {
	result, err := scoreSchema.Validate(gojsonschema.NewStringLoader(jsonContent))
	if err != nil {
		return []string{fmt.Sprintf("score validation skipped: %v", err)}
	}
	if result.Valid() {
		return nil
	}

	warnings := make([]string, 0, len(result.Errors()))
	for _, desc := range result.Errors() {
		field := desc.Field()
		if field == "" {
			field = "(root)"
		}
		warnings = append(warnings, fmt.Sprintf("%s: %s", field, desc.Description()))
	}
	sort.Strings(warnings)
	return warnings
}
