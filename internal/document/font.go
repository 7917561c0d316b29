package document

import (
	"strconv"
	"strings"
	"unicode/utf16"
	"unicode/utf8"

	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"
)

// fontDecoder 将某个字体下的字符编码还原为Unicode文本
// 优先使用ToUnicode映射，简单字体再回退到Encoding与Differences
type fontDecoder struct {
	toUnicode *toUnicodeMap
	composite bool      // Type0复合字体，默认二字节编码
	codes     [256]rune // 简单字体的单字节编码表，0表示无法映射
}

// newSimpleFont 使用给定基础编码创建简单字体解码器
func newSimpleFont(baseEncoding string) *fontDecoder {
	return &fontDecoder{codes: baseEncodingTable(baseEncoding)}
}

// loadPageFonts 解析页面资源中的字体，返回资源名到解码器的映射
// 单个字体解析失败时跳过该字体，文本按默认规则解码
func loadPageFonts(xref *model.XRefTable, resources types.Dict) map[string]*fontDecoder {
	fonts := make(map[string]*fontDecoder)
	if resources == nil {
		return fonts
	}

	o, found := resources.Find("Font")
	if !found {
		return fonts
	}
	fontDict, err := xref.DereferenceDict(o)
	if err != nil || fontDict == nil {
		return fonts
	}

	for name, ref := range fontDict {
		fd, err := xref.DereferenceDict(ref)
		if err != nil || fd == nil {
			continue
		}
		fonts[name] = newFontDecoder(xref, fd)
	}
	return fonts
}

func newFontDecoder(xref *model.XRefTable, fd types.Dict) *fontDecoder {
	base := ""
	var differences types.Array

	if o, found := fd.Find("Encoding"); found {
		if enc, err := xref.Dereference(o); err == nil {
			switch v := enc.(type) {
			case types.Name:
				base = v.Value()
			case types.Dict:
				if n := v.NameEntry("BaseEncoding"); n != nil {
					base = *n
				}
				if o, found := v.Find("Differences"); found {
					if diffs, err := xref.DereferenceArray(o); err == nil {
						differences = diffs
					}
				}
			}
		}
	}

	f := newSimpleFont(base)
	if subtype := fd.Subtype(); subtype != nil && *subtype == "Type0" {
		f.composite = true
	}
	f.applyDifferences(differences)

	if o, found := fd.Find("ToUnicode"); found {
		if sd, _, err := xref.DereferenceStreamDict(o); err == nil && sd != nil {
			if err := sd.Decode(); err == nil {
				f.toUnicode = parseToUnicode(sd.Content)
			}
		}
	}
	return f
}

// applyDifferences 按 [code /name /name code /name ...] 覆盖编码表
func (f *fontDecoder) applyDifferences(diffs types.Array) {
	code := -1
	for _, o := range diffs {
		switch v := o.(type) {
		case types.Integer:
			code = v.Value()
		case types.Name:
			if code >= 0 && code < len(f.codes) {
				if r, ok := glyphRune(v.Value()); ok {
					f.codes[code] = r
				}
			}
			code++
		}
	}
}

// decode 解码文本绘制操作符中的原始字符串
func (f *fontDecoder) decode(raw []byte) string {
	width := 1
	if f.composite {
		width = 2
	}

	var sb strings.Builder
	for len(raw) > 0 {
		n := width
		if f.toUnicode != nil {
			n = f.toUnicode.codeLength(raw, width)
		}
		if n > len(raw) {
			n = len(raw)
		}
		code := raw[:n]
		raw = raw[n:]

		if f.toUnicode != nil {
			if s, ok := f.toUnicode.lookup(code); ok {
				for _, r := range s {
					writeTextRune(&sb, r)
				}
				continue
			}
		}
		if !f.composite && n == 1 {
			writeTextRune(&sb, f.codes[code[0]])
		}
	}
	return sb.String()
}

func writeTextRune(sb *strings.Builder, r rune) {
	switch {
	case r == '\t' || r == '\n' || r == '\r':
		sb.WriteByte(' ')
	case r < 0x20 || r == 0x7F || r == utf8.RuneError:
	default:
		sb.WriteRune(r)
	}
}

// codeRange 编码空间中的一段范围，lo与hi字节数相同
type codeRange struct {
	lo, hi []byte
}

// bfRange beginbfrange中的一条映射
type bfRange struct {
	lo, hi uint32
	size   int
	dst    []uint16 // 起始目标值，按偏移递增
	dsts   []string // 数组形式的目标值
}

// toUnicodeMap 解析后的ToUnicode CMap
type toUnicodeMap struct {
	codespace []codeRange
	chars     map[string]string
	ranges    []bfRange
}

// parseToUnicode 解析ToUnicode CMap流中的codespacerange、bfchar和bfrange
func parseToUnicode(data []byte) *toUnicodeMap {
	m := &toUnicodeMap{chars: make(map[string]string)}
	lx := &contentLexer{data: data}

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
			switch tok.text {
			case "endcodespacerange":
				m.addCodespace(operands)
			case "endbfchar":
				m.addChars(operands)
			case "endbfrange":
				m.addRanges(operands)
			}
			operands = operands[:0]
		default:
			if inArray {
				array = append(array, tok)
			} else {
				operands = append(operands, tok)
			}
		}
	}
	return m
}

func (m *toUnicodeMap) addCodespace(operands []csToken) {
	strs := filterTokens(operands, tokString)
	for i := 0; i+1 < len(strs); i += 2 {
		lo, hi := []byte(strs[i].text), []byte(strs[i+1].text)
		if len(lo) == 0 || len(lo) != len(hi) {
			continue
		}
		m.codespace = append(m.codespace, codeRange{lo: lo, hi: hi})
	}
}

func (m *toUnicodeMap) addChars(operands []csToken) {
	strs := filterTokens(operands, tokString)
	for i := 0; i+1 < len(strs); i += 2 {
		m.chars[strs[i].text] = utf16Text([]byte(strs[i+1].text))
	}
}

func (m *toUnicodeMap) addRanges(operands []csToken) {
	var items []csToken
	for _, tok := range operands {
		if tok.kind == tokString || tok.kind == tokArray {
			items = append(items, tok)
		}
	}

	for i := 0; i+2 < len(items); i += 3 {
		lo, hi, dst := items[i], items[i+1], items[i+2]
		if lo.kind != tokString || hi.kind != tokString || len(lo.text) == 0 || len(lo.text) != len(hi.text) {
			continue
		}

		r := bfRange{
			lo:   codeValue([]byte(lo.text)),
			hi:   codeValue([]byte(hi.text)),
			size: len(lo.text),
		}
		switch dst.kind {
		case tokString:
			r.dst = utf16Units([]byte(dst.text))
			if len(r.dst) == 0 {
				continue
			}
		case tokArray:
			for _, item := range dst.items {
				if item.kind == tokString {
					r.dsts = append(r.dsts, utf16Text([]byte(item.text)))
				}
			}
			if len(r.dsts) == 0 {
				continue
			}
		}
		m.ranges = append(m.ranges, r)
	}
}

// codeLength 按编码空间确定下一个字符编码的字节数
func (m *toUnicodeMap) codeLength(raw []byte, fallback int) int {
	for n := 1; n <= 4 && n <= len(raw); n++ {
		for _, r := range m.codespace {
			if len(r.lo) == n && inCodeRange(raw[:n], r) {
				return n
			}
		}
	}
	if len(m.codespace) > 0 {
		return len(m.codespace[0].lo)
	}
	return fallback
}

// lookup 查找单个字符编码对应的Unicode文本
// bfrange的目标值按整个编码的偏移量递增，不局限于最后一个字节
func (m *toUnicodeMap) lookup(code []byte) (string, bool) {
	if s, ok := m.chars[string(code)]; ok {
		return s, true
	}

	v := codeValue(code)
	for _, r := range m.ranges {
		if r.size != len(code) || v < r.lo || v > r.hi {
			continue
		}
		offset := v - r.lo
		if r.dsts != nil {
			if int(offset) < len(r.dsts) {
				return r.dsts[offset], true
			}
			return "", false
		}

		units := append([]uint16(nil), r.dst...)
		last := uint32(units[len(units)-1]) + offset
		if last > 0xFFFF && len(units) == 1 {
			return string(rune(last)), true
		}
		units[len(units)-1] = uint16(last)
		return string(utf16.Decode(units)), true
	}
	return "", false
}

func inCodeRange(code []byte, r codeRange) bool {
	for i := range code {
		if code[i] < r.lo[i] || code[i] > r.hi[i] {
			return false
		}
	}
	return true
}

func codeValue(b []byte) uint32 {
	var v uint32
	for _, c := range b {
		v = v<<8 | uint32(c)
	}
	return v
}

func filterTokens(tokens []csToken, kind tokenKind) []csToken {
	var out []csToken
	for _, tok := range tokens {
		if tok.kind == kind {
			out = append(out, tok)
		}
	}
	return out
}

func utf16Units(b []byte) []uint16 {
	units := make([]uint16, 0, len(b)/2)
	for i := 0; i+1 < len(b); i += 2 {
		units = append(units, uint16(b[i])<<8|uint16(b[i+1]))
	}
	return units
}

// utf16Text 将UTF-16BE字节解码为文本，奇数长度按单字节处理
func utf16Text(b []byte) string {
	if len(b)%2 == 1 {
		var sb strings.Builder
		for _, c := range b {
			sb.WriteRune(rune(c))
		}
		return sb.String()
	}
	return string(utf16.Decode(utf16Units(b)))
}

// WinAnsiEncoding 中 0x80-0x9F 与Latin-1不同的部分
var winAnsiHigh = [32]rune{
	'€', 0, '‚', 'ƒ', '„', '…', '†', '‡', 'ˆ', '‰', 'Š', '‹', 'Œ', 0, 'Ž', 0,
	0, '‘', '’', '“', '”', '•', '–', '—', '˜', '™', 'š', '›', 'œ', 0, 'ž', 'Ÿ',
}

// MacRomanEncoding 的 0x80-0xFF
var macRomanHigh = [128]rune{
	'Ä', 'Å', 'Ç', 'É', 'Ñ', 'Ö', 'Ü', 'á', 'à', 'â', 'ä', 'ã', 'å', 'ç', 'é', 'è',
	'ê', 'ë', 'í', 'ì', 'î', 'ï', 'ñ', 'ó', 'ò', 'ô', 'ö', 'õ', 'ú', 'ù', 'û', 'ü',
	'†', '°', '¢', '£', '§', '•', '¶', 'ß', '®', '©', '™', '´', '¨', '≠', 'Æ', 'Ø',
	'∞', '±', '≤', '≥', '¥', 'µ', '∂', '∑', '∏', 'π', '∫', 'ª', 'º', 'Ω', 'æ', 'ø',
	'¿', '¡', '¬', '√', 'ƒ', '≈', '∆', '«', '»', '…', ' ', 'À', 'Ã', 'Õ', 'Œ', 'œ',
	'–', '—', '“', '”', '‘', '’', '÷', '◊', 'ÿ', 'Ÿ', '⁄', '¤', '‹', '›', 'ﬁ', 'ﬂ',
	'‡', '·', '‚', '„', '‰', 'Â', 'Ê', 'Á', 'Ë', 'È', 'Í', 'Î', 'Ï', 'Ì', 'Ó', 'Ô',
	0, 'Ò', 'Ú', 'Û', 'Ù', 'ı', 'ˆ', '˜', '¯', '˘', '˙', '˚', '¸', '˝', '˛', 'ˇ',
}

// baseEncodingTable 返回基础编码的单字节编码表
// 未声明编码的简单字体按WinAnsi处理
func baseEncodingTable(name string) [256]rune {
	var table [256]rune
	for c := 0x20; c < 0x7F; c++ {
		table[c] = rune(c)
	}
	table['\t'], table['\n'], table['\r'] = '\t', '\n', '\r'

	switch name {
	case "MacRomanEncoding":
		for i, r := range macRomanHigh {
			table[0x80+i] = r
		}
	default:
		for i, r := range winAnsiHigh {
			table[0x80+i] = r
		}
		for c := 0xA0; c <= 0xFF; c++ {
			table[c] = rune(c)
		}
		if name == "StandardEncoding" {
			table['\''] = '’'
			table['`'] = '‘'
		}
	}
	return table
}

// 常见字形名称
var glyphNames = map[string]rune{
	"space": ' ', "exclam": '!', "quotedbl": '"', "numbersign": '#', "dollar": '$',
	"percent": '%', "ampersand": '&', "quotesingle": '\'', "parenleft": '(', "parenright": ')',
	"asterisk": '*', "plus": '+', "comma": ',', "hyphen": '-', "period": '.', "slash": '/',
	"zero": '0', "one": '1', "two": '2', "three": '3', "four": '4',
	"five": '5', "six": '6', "seven": '7', "eight": '8', "nine": '9',
	"colon": ':', "semicolon": ';', "less": '<', "equal": '=', "greater": '>', "question": '?',
	"at": '@', "bracketleft": '[', "backslash": '\\', "bracketright": ']', "asciicircum": '^',
	"underscore": '_', "grave": '`', "braceleft": '{', "bar": '|', "braceright": '}', "asciitilde": '~',
	"quoteleft": '‘', "quoteright": '’', "quotedblleft": '“', "quotedblright": '”',
	"quotesinglbase": '‚', "quotedblbase": '„', "endash": '–', "emdash": '—', "bullet": '•',
	"ellipsis": '…', "dagger": '†', "daggerdbl": '‡', "trademark": '™', "copyright": '©',
	"registered": '®', "degree": '°', "Euro": '€', "minus": '−', "periodcentered": '·',
	"section": '§', "paragraph": '¶', "multiply": '×', "divide": '÷', "plusminus": '±',
	"fi": 'ﬁ', "fl": 'ﬂ', "ff": 'ﬀ', "ffi": 'ﬃ', "ffl": 'ﬄ', "nbspace": ' ',
	"eacute": 'é', "egrave": 'è', "agrave": 'à', "udieresis": 'ü', "odieresis": 'ö', "adieresis": 'ä',
}

// glyphRune 将字形名称映射为Unicode字符，支持uniXXXX与uXXXX[XX]形式
func glyphRune(name string) (rune, bool) {
	if r, ok := glyphNames[name]; ok {
		return r, true
	}
	if len(name) == 1 {
		return rune(name[0]), true
	}
	if strings.HasPrefix(name, "uni") && len(name) == 7 {
		if v, err := strconv.ParseUint(name[3:], 16, 32); err == nil {
			return rune(v), true
		}
	}
	if strings.HasPrefix(name, "u") && len(name) >= 5 && len(name) <= 7 {
		if v, err := strconv.ParseUint(name[1:], 16, 32); err == nil {
			return rune(v), true
		}
	}
	return 0, false
}
