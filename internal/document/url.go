package document

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

const (
	// DefaultFetchTimeout URL抓取的超时时间
	DefaultFetchTimeout = 10 * time.Second
	// DefaultUserAgent 抓取网页时使用的User-Agent
	DefaultUserAgent = "Mozilla/5.0 (compatible; TClassEvaluator/2.0)"
	// maxPageBytes 网页正文的最大读取字节数
	maxPageBytes = 20 << 20
)

// URLFetcher 网页文本抓取器
type URLFetcher struct {
	client    *http.Client
	userAgent string
}

// FetchOption 抓取器配置选项
type FetchOption func(*URLFetcher)

// WithFetchTimeout 设置请求超时时间
func WithFetchTimeout(timeout time.Duration) FetchOption {
	return func(f *URLFetcher) {
		f.client.Timeout = timeout
	}
}

// WithUserAgent 设置User-Agent，空字符串保留默认值
func WithUserAgent(userAgent string) FetchOption {
	return func(f *URLFetcher) {
		if userAgent != "" {
			f.userAgent = userAgent
		}
	}
}

// WithTransport 替换底层的HTTP传输层
func WithTransport(rt http.RoundTripper) FetchOption {
	return func(f *URLFetcher) {
		f.client.Transport = rt
	}
}

// NewURLFetcher 创建网页抓取器
func NewURLFetcher(opts ...FetchOption) *URLFetcher {
	f := &URLFetcher{
		client:    &http.Client{Timeout: DefaultFetchTimeout},
		userAgent: DefaultUserAgent,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Fetch 抓取网页并返回其可见文本
// 无效URL、网络错误、超时以及非2xx状态码都会返回ExtractionError，不做重试
func (f *URLFetcher) Fetch(ctx context.Context, rawURL string) (Document, error) {
	rawURL = strings.TrimSpace(rawURL)
	parsed, err := url.Parse(rawURL)
	if err != nil || parsed.Host == "" || (parsed.Scheme != "http" && parsed.Scheme != "https") {
		return Document{}, NewExtractionError(rawURL, "invalid URL, expected an http(s) address", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return Document{}, NewExtractionError(rawURL, "failed to create request", err)
	}
	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml;q=0.9,*/*;q=0.8")

	resp, err := f.client.Do(req)
	if err != nil {
		if isTimeout(err) {
			return Document{}, NewExtractionError(rawURL,
				fmt.Sprintf("request timed out after %s", f.client.Timeout), err)
		}
		return Document{}, NewExtractionError(rawURL, "URL is unreachable", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return Document{}, NewExtractionError(rawURL, fmt.Sprintf("HTTP status %d", resp.StatusCode), nil)
	}

	text, err := ExtractVisibleText(io.LimitReader(resp.Body, maxPageBytes))
	if err != nil {
		if isTimeout(err) {
			return Document{}, NewExtractionError(rawURL, "request timed out while reading body", err)
		}
		return Document{}, NewExtractionError(rawURL, "failed to parse HTML", err)
	}

	return NewDocument(URLSourceLabel(rawURL), text, HTML), nil
}

// ExtractVisibleText 解析HTML，去掉script/style后返回可见文本
// 每个文本节点去除首尾空白后以单个空格连接
func ExtractVisibleText(r io.Reader) (string, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return "", err
	}

	doc.Find("script, style, noscript, template").Remove()

	var tokens []string
	for _, node := range doc.Nodes {
		collectText(node, &tokens)
	}
	return strings.Join(tokens, " "), nil
}

// collectText 深度优先遍历节点树收集文本
func collectText(n *html.Node, tokens *[]string) {
	if n.Type == html.TextNode {
		*tokens = append(*tokens, strings.Fields(n.Data)...)
		return
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		collectText(c, tokens)
	}
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr interface{ Timeout() bool }
	return errors.As(err, &netErr) && netErr.Timeout()
}
