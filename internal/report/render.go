package report

import (
	"strings"

	"github.com/gomarkdown/markdown"
	"github.com/gomarkdown/markdown/ast"
	"github.com/gomarkdown/markdown/html"
	"github.com/gomarkdown/markdown/parser"
)

// RenderHTML 将Markdown报告渲染为HTML
// 模型输出中的原始HTML会被丢弃
func RenderHTML(md string) string {
	renderer := html.NewRenderer(html.RendererOptions{
		Flags: html.CommonFlags | html.HrefTargetBlank | html.SkipHTML | html.Safelink | html.NofollowLinks,
	})
	return string(markdown.Render(parseMarkdown(md), renderer))
}

func parseMarkdown(md string) ast.Node {
	p := parser.NewWithExtensions(parser.CommonExtensions | parser.AutoHeadingIDs | parser.NoEmptyLineBeforeBlock)
	return p.Parse([]byte(md))
}

// blockKind 纯文本块类型
type blockKind int

const (
	blockParagraph blockKind = iota
	blockHeading
	blockQuote
	blockListItem
	blockTableRow
	blockCode
	blockRule
)

// textBlock 从Markdown中提取的纯文本块，用于PDF排版
type textBlock struct {
	kind  blockKind
	level int
	text  string
}

// markdownBlocks 把Markdown报告转换为按顺序排列的纯文本块
func markdownBlocks(md string) []textBlock {
	var blocks []textBlock
	for _, child := range parseMarkdown(md).GetChildren() {
		blocks = appendBlocks(blocks, child)
	}
	return blocks
}

func appendBlocks(blocks []textBlock, node ast.Node) []textBlock {
	switch n := node.(type) {
	case *ast.Heading:
		return appendText(blocks, textBlock{kind: blockHeading, level: n.Level, text: inlineText(n)})
	case *ast.Paragraph:
		return appendText(blocks, textBlock{kind: blockParagraph, text: inlineText(n)})
	case *ast.BlockQuote:
		return appendText(blocks, textBlock{kind: blockQuote, text: inlineText(n)})
	case *ast.List:
		for _, item := range n.GetChildren() {
			blocks = appendText(blocks, textBlock{kind: blockListItem, text: inlineText(item)})
		}
		return blocks
	case *ast.Table:
		ast.WalkFunc(n, func(child ast.Node, entering bool) ast.WalkStatus {
			row, ok := child.(*ast.TableRow)
			if !ok || !entering {
				return ast.GoToNext
			}
			cells := make([]string, 0, len(row.GetChildren()))
			for _, cell := range row.GetChildren() {
				cells = append(cells, inlineText(cell))
			}
			blocks = appendText(blocks, textBlock{kind: blockTableRow, text: strings.Join(cells, " | ")})
			return ast.SkipChildren
		})
		return blocks
	case *ast.CodeBlock:
		return appendText(blocks, textBlock{kind: blockCode, text: strings.TrimRight(string(n.Literal), "\n")})
	case *ast.HorizontalRule:
		return append(blocks, textBlock{kind: blockRule})
	default:
		for _, child := range node.GetChildren() {
			blocks = appendBlocks(blocks, child)
		}
		return blocks
	}
}

func appendText(blocks []textBlock, b textBlock) []textBlock {
	if strings.TrimSpace(b.text) == "" {
		return blocks
	}
	return append(blocks, b)
}

// inlineText 收集节点内的所有文本，空白折叠为单个空格
func inlineText(node ast.Node) string {
	var sb strings.Builder
	ast.WalkFunc(node, func(n ast.Node, entering bool) ast.WalkStatus {
		if !entering {
			return ast.GoToNext
		}
		switch leaf := n.(type) {
		case *ast.Text:
			sb.Write(leaf.Literal)
		case *ast.Code:
			sb.Write(leaf.Literal)
		case *ast.Softbreak, *ast.Hardbreak:
			sb.WriteByte(' ')
		case *ast.Paragraph:
			if sb.Len() > 0 {
				sb.WriteByte(' ')
			}
		}
		return ast.GoToNext
	})
	return strings.Join(strings.Fields(sb.String()), " ")
}
