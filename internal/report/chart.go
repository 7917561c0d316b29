package report

import "math"

// 雷达图样式
const (
	ChartTitle     = "🛡️ AI Sovereignty Radar Chart"
	TraceName      = "Sovereignty Score"
	LineColor      = "#1E3A8A"
	FillColor      = "rgba(30, 58, 138, 0.2)"
	traceType      = "scatterpolar"
	traceFillStyle = "toself"
)

// RadarTrace plotly的scatterpolar数据序列
type RadarTrace struct {
	Type      string    `json:"type"`
	R         []float64 `json:"r"`
	Theta     []string  `json:"theta"`
	Fill      string    `json:"fill"`
	Name      string    `json:"name"`
	Line      LineStyle `json:"line"`
	FillColor string    `json:"fillcolor"`
}

// LineStyle 线条样式
type LineStyle struct {
	Color string `json:"color"`
}

// RadialAxis 径向坐标轴
type RadialAxis struct {
	Visible bool       `json:"visible"`
	Range   [2]float64 `json:"range"`
}

// PolarLayout 极坐标布局
type PolarLayout struct {
	RadialAxis RadialAxis `json:"radialaxis"`
}

// ChartTitleLayout 图表标题
type ChartTitleLayout struct {
	Text string `json:"text"`
}

// ChartLayout plotly图表布局
type ChartLayout struct {
	Title      ChartTitleLayout `json:"title"`
	Polar      PolarLayout      `json:"polar"`
	ShowLegend bool             `json:"showlegend"`
}

// RadarChart 可直接交给plotly.js渲染的雷达图
type RadarChart struct {
	Data   []RadarTrace `json:"data"`
	Layout ChartLayout  `json:"layout"`
}

// NewRadarChart 根据评分生成闭合的五轴雷达图
// 评分为空时返回false，调用方跳过绘图。缺失的指标按0处理，
// 绘图值截断到[0,10]，首尾相同使多边形闭合。
func NewRadarChart(scores Scores) (*RadarChart, bool) {
	if scores.IsEmpty() {
		return nil, false
	}

	theta := make([]string, 0, len(Metrics)+1)
	r := make([]float64, 0, len(Metrics)+1)
	for _, m := range Metrics {
		theta = append(theta, m.Axis)
		r = append(r, clampScore(scores.Get(m.Key)))
	}
	theta = append(theta, theta[0])
	r = append(r, r[0])

	return &RadarChart{
		Data: []RadarTrace{
			{
				Type:      traceType,
				R:         r,
				Theta:     theta,
				Fill:      traceFillStyle,
				Name:      TraceName,
				Line:      LineStyle{Color: LineColor},
				FillColor: FillColor,
			},
		},
		Layout: ChartLayout{
			Title: ChartTitleLayout{Text: ChartTitle},
			Polar: PolarLayout{
				RadialAxis: RadialAxis{Visible: true, Range: [2]float64{MinScore, MaxScore}},
			},
			ShowLegend: false,
		},
	}, true
}

// Values 返回闭合后的数值序列
func (c *RadarChart) Values() []float64 {
	if c == nil || len(c.Data) == 0 {
		return nil
	}
	return c.Data[0].R
}

// Axes 返回闭合后的坐标轴序列
func (c *RadarChart) Axes() []string {
	if c == nil || len(c.Data) == 0 {
		return nil
	}
	return c.Data[0].Theta
}

func clampScore(v float64) float64 {
	if math.IsNaN(v) {
		return MinScore
	}
	return math.Max(MinScore, math.Min(MaxScore, v))
}
