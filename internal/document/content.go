package document

import (
	"bytes"
	"strconv"
	"strings"
	"unicode/utf16"
)

// tokenKind 内容流词法单元类型
type tokenKind int

const (
	tokOperator tokenKind = iota
	tokString
	tokNumber
	tokArrayStart
	tokArrayEnd
	tokArray
	tokOther
)

// TJ数组中小于该值的字距调整视为词间空格（单位为千分之一文字空间）
const tjSpaceThreshold = -250

type csToken struct {
	kind  tokenKind
	text  string
	items []csToken
}

// DecodeContentStream 从已解码的PDF页面内容流中提取可见文本
// 没有字体信息，字符串按默认规则解码
func DecodeContentStream(stream []byte) string {
	return decodeContentStream(stream, nil)
}

// textExtractor 内容流文本提取状态
type textExtractor struct {
	out     strings.Builder
	fonts   map[string]*fontDecoder
	current *fontDecoder
}

// decodeContentStream 按页面字体提取文本
// 只处理文本绘制相关的操作符（Tj、TJ、'、"）、字体选择（Tf）以及换行相关的定位操作符
func decodeContentStream(stream []byte, fonts map[string]*fontDecoder) string {
	lx := &contentLexer{data: stream}
	te := &textExtractor{fonts: fonts}

	var operands []csToken
	var array []csToken
	inArray := false

	for {
		tok, ok := lx.next()
		if !ok {
			break
		}

		switch tok.kind {
		case tokArrayStart:
			inArray = true
			array = nil
		case tokArrayEnd:
			if inArray {
				operands = append(operands, csToken{kind: tokArray, items: array})
			}
			inArray = false
			array = nil
		case tokOperator:
			if inArray {
				continue
			}
			te.apply(tok.text, operands, lx)
			operands = operands[:0]
		default:
			if inArray {
				array = append(array, tok)
			} else {
				operands = append(operands, tok)
			}
		}
	}

	return normalizeExtractedText(te.out.String())
}

// decode 使用当前字体解码字符串
func (te *textExtractor) decode(raw string) string {
	if te.current == nil {
		return decodePDFString([]byte(raw))
	}
	return te.current.decode([]byte(raw))
}

// apply 根据操作符将文本写入输出
func (te *textExtractor) apply(op string, operands []csToken, lx *contentLexer) {
	out := &te.out
	switch op {
	case "Tf":
		te.current = nil
		for _, operand := range operands {
			if operand.kind == tokOther && operand.text != "" {
				te.current = te.fonts[operand.text]
				break
			}
		}
	case "Tj":
		if s, ok := lastOperand(operands, tokString); ok {
			out.WriteString(te.decode(s.text))
		}
	case "'", "\"":
		writeBreak(out)
		if s, ok := lastOperand(operands, tokString); ok {
			out.WriteString(te.decode(s.text))
		}
	case "TJ":
		arr, ok := lastOperand(operands, tokArray)
		if !ok {
			return
		}
		for _, item := range arr.items {
			switch item.kind {
			case tokString:
				out.WriteString(te.decode(item.text))
			case tokNumber:
				if v, err := strconv.ParseFloat(item.text, 64); err == nil && v < tjSpaceThreshold {
					out.WriteString(" ")
				}
			}
		}
	case "T*", "ET":
		writeBreak(out)
	case "Td", "TD":
		if len(operands) >= 2 {
			if ty, err := strconv.ParseFloat(operands[len(operands)-1].text, 64); err == nil && ty != 0 {
				writeBreak(out)
				return
			}
		}
		out.WriteString(" ")
	case "Tm":
		writeBreak(out)
	case "ID":
		lx.skipInlineImage()
	}
}

func lastOperand(operands []csToken, kind tokenKind) (csToken, bool) {
	for i := len(operands) - 1; i >= 0; i-- {
		if operands[i].kind == kind {
			return operands[i], true
		}
	}
	return csToken{}, false
}

func writeBreak(out *strings.Builder) {
	s := out.String()
	if len(s) > 0 && !strings.HasSuffix(s, "\n") {
		out.WriteString("\n")
	}
}

// normalizeExtractedText 规范化每一行的空白并去掉空行
func normalizeExtractedText(text string) string {
	lines := strings.Split(text, "\n")
	cleaned := make([]string, 0, len(lines))
	for _, line := range lines {
		line = strings.Join(strings.Fields(line), " ")
		if line != "" {
			cleaned = append(cleaned, line)
		}
	}
	return strings.Join(cleaned, "\n")
}

// contentLexer PDF内容流词法分析器
type contentLexer struct {
	data []byte
	pos  int
}

func (l *contentLexer) next() (csToken, bool) {
	l.skipSpaceAndComments()
	if l.pos >= len(l.data) {
		return csToken{}, false
	}

	c := l.data[l.pos]
	switch {
	case c == '(':
		return csToken{kind: tokString, text: string(l.readLiteral())}, true
	case c == '<':
		if l.pos+1 < len(l.data) && l.data[l.pos+1] == '<' {
			l.skipDict()
			return csToken{kind: tokOther}, true
		}
		return csToken{kind: tokString, text: string(l.readHex())}, true
	case c == '[':
		l.pos++
		return csToken{kind: tokArrayStart}, true
	case c == ']':
		l.pos++
		return csToken{kind: tokArrayEnd}, true
	case c == '>' || c == '{' || c == '}' || c == ')':
		l.pos++
		return csToken{kind: tokOther}, true
	case c == '/':
		l.pos++
		return csToken{kind: tokOther, text: l.readRegular()}, true
	case c == '+' || c == '-' || c == '.' || (c >= '0' && c <= '9'):
		return csToken{kind: tokNumber, text: l.readRegular()}, true
	default:
		word := l.readRegular()
		if word == "" {
			l.pos++
			return csToken{kind: tokOther}, true
		}
		return csToken{kind: tokOperator, text: word}, true
	}
}

func (l *contentLexer) skipSpaceAndComments() {
	for l.pos < len(l.data) {
		c := l.data[l.pos]
		if isPDFSpace(c) {
			l.pos++
			continue
		}
		if c == '%' {
			for l.pos < len(l.data) && l.data[l.pos] != '\n' && l.data[l.pos] != '\r' {
				l.pos++
			}
			continue
		}
		return
	}
}

func (l *contentLexer) readRegular() string {
	start := l.pos
	for l.pos < len(l.data) && !isPDFSpace(l.data[l.pos]) && !isPDFDelimiter(l.data[l.pos]) {
		l.pos++
	}
	return string(l.data[start:l.pos])
}

// readLiteral 读取括号字符串，处理嵌套括号与转义序列
func (l *contentLexer) readLiteral() []byte {
	l.pos++ // 跳过 '('
	depth := 1
	var buf []byte
	for l.pos < len(l.data) {
		c := l.data[l.pos]
		l.pos++
		switch c {
		case '\\':
			if l.pos >= len(l.data) {
				return buf
			}
			e := l.data[l.pos]
			l.pos++
			switch e {
			case 'n':
				buf = append(buf, '\n')
			case 'r':
				buf = append(buf, '\r')
			case 't':
				buf = append(buf, '\t')
			case 'b':
				buf = append(buf, '\b')
			case 'f':
				buf = append(buf, '\f')
			case '\r':
				if l.pos < len(l.data) && l.data[l.pos] == '\n' {
					l.pos++
				}
			case '\n':
			default:
				if e >= '0' && e <= '7' {
					v := int(e - '0')
					for i := 0; i < 2 && l.pos < len(l.data) && l.data[l.pos] >= '0' && l.data[l.pos] <= '7'; i++ {
						v = v*8 + int(l.data[l.pos]-'0')
						l.pos++
					}
					buf = append(buf, byte(v))
				} else {
					buf = append(buf, e)
				}
			}
		case '(':
			depth++
			buf = append(buf, c)
		case ')':
			depth--
			if depth == 0 {
				return buf
			}
			buf = append(buf, c)
		default:
			buf = append(buf, c)
		}
	}
	return buf
}

// readHex 读取十六进制字符串
func (l *contentLexer) readHex() []byte {
	l.pos++ // 跳过 '<'
	var digits []byte
	for l.pos < len(l.data) && l.data[l.pos] != '>' {
		if c := l.data[l.pos]; isHexDigit(c) {
			digits = append(digits, c)
		}
		l.pos++
	}
	l.pos++ // 跳过 '>'
	if len(digits)%2 == 1 {
		digits = append(digits, '0')
	}
	out := make([]byte, 0, len(digits)/2)
	for i := 0; i < len(digits); i += 2 {
		out = append(out, hexValue(digits[i])<<4|hexValue(digits[i+1]))
	}
	return out
}

// skipDict 跳过 << ... >> 字典（例如BDC的属性字典）
func (l *contentLexer) skipDict() {
	depth := 0
	for l.pos < len(l.data) {
		switch {
		case bytes.HasPrefix(l.data[l.pos:], []byte("<<")):
			depth++
			l.pos += 2
		case bytes.HasPrefix(l.data[l.pos:], []byte(">>")):
			depth--
			l.pos += 2
			if depth == 0 {
				return
			}
		case l.data[l.pos] == '(':
			l.readLiteral()
		default:
			l.pos++
		}
	}
}

// skipInlineImage 跳过内联图片的二进制数据，直到 EI 操作符
func (l *contentLexer) skipInlineImage() {
	for l.pos < len(l.data) {
		idx := bytes.Index(l.data[l.pos:], []byte("EI"))
		if idx < 0 {
			l.pos = len(l.data)
			return
		}
		at := l.pos + idx
		before := at == 0 || isPDFSpace(l.data[at-1])
		after := at+2 >= len(l.data) || isPDFSpace(l.data[at+2])
		l.pos = at + 2
		if before && after {
			return
		}
	}
}

// decodePDFString 在没有字体信息时将字符串字节转换为文本
// 带BOM的UTF-16BE按Unicode解码，其余按WinAnsi逐字节映射，控制字符被丢弃
func decodePDFString(b []byte) string {
	if len(b) >= 2 && b[0] == 0xFE && b[1] == 0xFF {
		return string(utf16.Decode(utf16Units(b[2:])))
	}
	return defaultFont.decode(b)
}

var defaultFont = newSimpleFont("WinAnsiEncoding")

func isPDFSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r' || c == '\f' || c == 0
}

func isPDFDelimiter(c byte) bool {
	switch c {
	case '(', ')', '<', '>', '[', ']', '{', '}', '/', '%':
		return true
	}
	return false
}

func isHexDigit(c byte) bool {
	return (c >= '0' && c <= '9') || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')
}

func hexValue(c byte) byte {
	switch {
	case c >= '0' && c <= '9':
		return c - '0'
	case c >= 'a' && c <= 'f':
		return c - 'a' + 10
	default:
		return c - 'A' + 10
	}
}
