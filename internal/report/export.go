package report

import (
	"fmt"
	"io"
	"math"
	"os"
	"strings"
	"time"

	"github.com/jung-kurt/gofpdf"
)

const (
	pdfFontFamily = "ReportFont"
	pdfCoreFont   = "Arial"
	pdfMargin     = 15.0
	pdfLineHeight = 6.0
	chartRadius   = 40.0
	chartGridStep = 2.0
)

// ExportMeta PDF导出的元信息
type ExportMeta struct {
	Title       string
	Source      string
	Model       string
	GeneratedAt time.Time
	// FontPath UTF-8 TrueType字体路径，为空或不可读时使用内置字体（非拉丁字符会被替换）
	FontPath string
}

// pdfWriter 封装字体选择与文本转换
type pdfWriter struct {
	pdf       *gofpdf.Fpdf
	family    string
	translate func(string) string
}

// ExportPDF 将报告和雷达图写入PDF
// chart为nil时只输出报告正文
func ExportPDF(w io.Writer, result ParsedResult, chart *RadarChart, meta ExportMeta) error {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(pdfMargin, pdfMargin, pdfMargin)
	pdf.SetAutoPageBreak(true, pdfMargin)

	pw := newPDFWriter(pdf, meta.FontPath)

	title := meta.Title
	if title == "" {
		title = "Sovereign AI T-Class Evaluation Report"
	}
	pdf.SetTitle(title, true)
	pdf.SetCreator("tclass-evaluator", true)
	pdf.AddPage()

	pw.setFont("B", 16)
	pdf.MultiCell(0, 9, pw.translate(title), "", "C", false)
	pdf.Ln(2)

	pw.setFont("", 9)
	pdf.SetTextColor(75, 85, 99)
	generatedAt := meta.GeneratedAt
	if generatedAt.IsZero() {
		generatedAt = time.Now()
	}
	for _, line := range []string{
		"Source: " + meta.Source,
		"Model: " + meta.Model,
		"Generated: " + generatedAt.Format(time.RFC3339),
	} {
		pdf.MultiCell(0, 5, pw.translate(line), "", "L", false)
	}
	pdf.SetTextColor(0, 0, 0)
	pdf.Ln(4)

	if chart != nil && len(chart.Values()) > 0 {
		pw.drawRadar(chart)
		pw.writeScores(result.Scores)
	}

	if len(result.Warnings) > 0 {
		pw.setFont("B", 10)
		pdf.SetTextColor(180, 83, 9)
		for _, warning := range result.Warnings {
			pdf.MultiCell(0, 5, pw.translate("! "+warning), "", "L", false)
		}
		pdf.SetTextColor(0, 0, 0)
		pdf.Ln(3)
	}

	pw.writeReport(result.MarkdownReport)

	if err := pdf.Error(); err != nil {
		return fmt.Errorf("failed to render PDF: %w", err)
	}
	return pdf.Output(w)
}

func newPDFWriter(pdf *gofpdf.Fpdf, fontPath string) *pdfWriter {
	if fontPath != "" {
		if _, err := os.Stat(fontPath); err == nil {
			pdf.AddUTF8Font(pdfFontFamily, "", fontPath)
			pdf.AddUTF8Font(pdfFontFamily, "B", fontPath)
			if pdf.Ok() {
				return &pdfWriter{pdf: pdf, family: pdfFontFamily, translate: func(s string) string { return s }}
			}
			pdf.ClearError()
		}
	}

	tr := pdf.UnicodeTranslatorFromDescriptor("")
	return &pdfWriter{
		pdf:    pdf,
		family: pdfCoreFont,
		translate: func(s string) string {
			return tr(latin1Only(s))
		},
	}
}

func (pw *pdfWriter) setFont(style string, size float64) {
	pw.pdf.SetFont(pw.family, style, size)
}

// drawRadar 绘制网格、坐标轴和评分多边形
func (pw *pdfWriter) drawRadar(chart *RadarChart) {
	pdf := pw.pdf
	pageW, _ := pdf.GetPageSize()
	cx := pageW / 2
	cy := pdf.GetY() + chartRadius + 8

	axes := chart.Axes()
	values := chart.Values()
	n := len(axes) - 1 // 最后一个点与第一个点重合
	if n < 3 {
		return
	}

	point := func(i int, v float64) gofpdf.PointType {
		angle := -math.Pi/2 + 2*math.Pi*float64(i)/float64(n)
		r := chartRadius * v / MaxScore
		return gofpdf.PointType{X: cx + r*math.Cos(angle), Y: cy + r*math.Sin(angle)}
	}

	pw.setFont("B", 11)
	pdf.CellFormat(0, 6, pw.translate(strings.TrimSpace(strings.TrimPrefix(chart.Layout.Title.Text, "🛡️"))), "", 1, "C", false, 0, "")

	// 网格
	pdf.SetLineWidth(0.2)
	pdf.SetDrawColor(209, 213, 219)
	for level := chartGridStep; level <= MaxScore; level += chartGridStep {
		grid := make([]gofpdf.PointType, n)
		for i := 0; i < n; i++ {
			grid[i] = point(i, level)
		}
		pdf.Polygon(grid, "D")
	}

	// 坐标轴与标签
	pw.setFont("", 8)
	for i := 0; i < n; i++ {
		end := point(i, MaxScore)
		pdf.Line(cx, cy, end.X, end.Y)

		label := pw.translate(axes[i])
		labelW := pdf.GetStringWidth(label)
		lp := point(i, MaxScore*1.12)
		x := lp.X - labelW/2
		if lp.X > cx+1 {
			x = lp.X
		} else if lp.X < cx-1 {
			x = lp.X - labelW
		}
		pdf.Text(x, lp.Y+1.5, label)
	}

	// 评分多边形
	shape := make([]gofpdf.PointType, n)
	for i := 0; i < n; i++ {
		shape[i] = point(i, values[i])
	}
	pdf.SetFillColor(30, 58, 138)
	pdf.SetAlpha(0.2, "Normal")
	pdf.Polygon(shape, "F")
	pdf.SetAlpha(1, "Normal")
	pdf.SetDrawColor(30, 58, 138)
	pdf.SetLineWidth(0.6)
	pdf.Polygon(shape, "D")

	pdf.SetDrawColor(0, 0, 0)
	pdf.SetLineWidth(0.2)
	pdf.SetY(cy + chartRadius + 10)
}

// writeScores 输出评分表
func (pw *pdfWriter) writeScores(scores Scores) {
	pdf := pw.pdf
	pageW, _ := pdf.GetPageSize()
	colW := (pageW - 2*pdfMargin) / 2

	pw.setFont("B", 9)
	pdf.SetFillColor(243, 244, 246)
	pdf.CellFormat(colW, 6, "Metric", "1", 0, "L", true, 0, "")
	pdf.CellFormat(colW, 6, "Score", "1", 1, "R", true, 0, "")

	pw.setFont("", 9)
	for _, m := range Metrics {
		pdf.CellFormat(colW, 6, pw.translate(m.Axis), "1", 0, "L", false, 0, "")
		pdf.CellFormat(colW, 6, formatScore(scores.Get(m.Key)), "1", 1, "R", false, 0, "")
	}
	pdf.Ln(5)
}

// writeReport 按块输出Markdown报告
func (pw *pdfWriter) writeReport(md string) {
	pdf := pw.pdf
	pageW, _ := pdf.GetPageSize()

	for _, b := range markdownBlocks(md) {
		text := pw.translate(b.text)
		switch b.kind {
		case blockHeading:
			size := 15.0 - float64(b.level)
			if size < 10 {
				size = 10
			}
			pdf.Ln(2)
			pw.setFont("B", size)
			pdf.MultiCell(0, pdfLineHeight+1, text, "", "L", false)
		case blockQuote:
			pw.setFont("", 10)
			pdf.SetTextColor(55, 65, 81)
			pdf.SetX(pdfMargin + 4)
			pdf.MultiCell(0, pdfLineHeight, text, "L", "L", false)
			pdf.SetTextColor(0, 0, 0)
		case blockListItem:
			pw.setFont("", 10)
			pdf.SetX(pdfMargin + 3)
			pdf.MultiCell(0, pdfLineHeight, "- "+text, "", "L", false)
		case blockTableRow:
			pw.setFont("", 9)
			pdf.MultiCell(0, pdfLineHeight-1, text, "B", "L", false)
		case blockCode:
			pw.setFont("", 9)
			pdf.SetFillColor(243, 244, 246)
			pdf.MultiCell(0, pdfLineHeight-1, text, "", "L", true)
		case blockRule:
			y := pdf.GetY() + 2
			pdf.Line(pdfMargin, y, pageW-pdfMargin, y)
			pdf.SetY(y + 2)
		default:
			pw.setFont("", 10)
			pdf.MultiCell(0, pdfLineHeight, text, "", "L", false)
		}
		pdf.Ln(1)
	}
}

func formatScore(v float64) string {
	if v == math.Trunc(v) {
		return fmt.Sprintf("%.0f", v)
	}
	return fmt.Sprintf("%.1f", v)
}

// latin1Only 把内置字体无法显示的字符替换为问号
func latin1Only(s string) string {
	return strings.Map(func(r rune) rune {
		if r < 0x100 {
			return r
		}
		return '?'
	}, s)
}
