package report

// 报告与评分JSON之间的分隔标记
const (
	StartMarker = "__JSON_START__"
	EndMarker   = "__JSON_END__"
)

// ScoreParseWarning 评分解析失败时的提示
const ScoreParseWarning = "Failed to parse Sovereignty Scores."

// 评分指标键
const (
	WeightScore    = "weight_score"
	ArchScore      = "arch_score"
	TokenizerScore = "tokenizer_score"
	DataScore      = "data_score"
	InfraScore     = "infra_score"
)

// 评分取值范围
const (
	MinScore = 0.0
	MaxScore = 10.0
)

// Metric 评分指标与雷达图坐标轴的对应关系
type Metric struct {
	Key  string
	Axis string
}

// Metrics 按雷达图坐标轴顺序排列的五个指标
var Metrics = []Metric{
	{Key: WeightScore, Axis: "Weight Origin"},
	{Key: ArchScore, Axis: "Architecture"},
	{Key: TokenizerScore, Axis: "Tokenizer"},
	{Key: DataScore, Axis: "Training Data"},
	{Key: InfraScore, Axis: "Infrastructure"},
}

// Scores 主权评分
// 要么为空，要么恰好包含五个指标键；数值不做截断
type Scores map[string]float64

// Get 返回指标值，缺失时为0
func (s Scores) Get(key string) float64 {
	return s[key]
}

// IsEmpty 是否没有评分
func (s Scores) IsEmpty() bool {
	return len(s) == 0
}

// ParsedResult 模型回复拆分后的结果
type ParsedResult struct {
	MarkdownReport string   `json:"markdown_report"`
	Scores         Scores   `json:"scores"`
	ScoreParseOK   bool     `json:"score_parse_ok"`
	Warnings       []string `json:"warnings,omitempty"`
}

// HasScores 是否有可用于绘图的评分
func (r ParsedResult) HasScores() bool {
	return r.ScoreParseOK && !r.Scores.IsEmpty()
}
