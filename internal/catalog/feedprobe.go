package catalog

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"
	"golang.org/x/net/html"

	"github.com/hitoshi/mediashelf/internal/model"
)

// SSRFValidator はSSRF検証のインターフェース。
// security.SSRFGuardServiceを抽象化してテスタビリティを向上させる。
type SSRFValidator interface {
	ValidateURL(rawURL string) error
	NewSafeClient(timeout time.Duration, maxResponseSize int64) *http.Client
}

// FeedInfo は検証済みポッドキャストフィードの概要を表す。
type FeedInfo struct {
	FeedURL      string
	Title        string
	Description  string
	CoverURL     string
	EpisodeCount int
}

// FeedCandidate はHTMLから検出されたフィード候補を表す。
type FeedCandidate struct {
	URL   string
	Type  string // "rss" または "atom"
	Title string
}

// PodcastFeedProbe はポッドキャストのフィードURL検証と、
// 配信サイトURLからのフィードリンク自動検出を提供する。
// iTunes検索が返すfeedUrlは配信者都合で無効になっていることがあるため、
// ログ作成前にフィードが実在することを確認する用途で使用する。
type PodcastFeedProbe struct {
	ssrfGuard SSRFValidator
}

// NewPodcastFeedProbe はPodcastFeedProbeの新しいインスタンスを生成する。
func NewPodcastFeedProbe(ssrfGuard SSRFValidator) *PodcastFeedProbe {
	return &PodcastFeedProbe{ssrfGuard: ssrfGuard}
}

// feedContentTypes はフィードとして認識するContent-Typeのリスト。
var feedContentTypes = []string{
	"application/rss+xml",
	"application/atom+xml",
}

// xmlContentTypes はXMLとして認識するContent-Type（ボディ解析が必要）。
var xmlContentTypes = []string{
	"text/xml",
	"application/xml",
}

// ProbeFeed はフィードURLを取得・パースし、有効なフィードであることを確認する。
// SSRF検証に失敗した場合はValidationError、取得・パースに失敗した場合はLookupErrorを返す。
func (p *PodcastFeedProbe) ProbeFeed(ctx context.Context, feedURL string) (*FeedInfo, error) {
	if feedURL == "" {
		return nil, model.NewValidationError("フィードURLが入力されていません")
	}

	if p.ssrfGuard != nil {
		if err := p.ssrfGuard.ValidateURL(feedURL); err != nil {
			return nil, model.NewValidationError(fmt.Sprintf("フィードURLが許可されていません: %v", err))
		}
	}

	body, _, err := p.fetch(ctx, feedURL)
	if err != nil {
		return nil, err
	}

	parsed, err := gofeed.NewParser().ParseString(string(body))
	if err != nil {
		return nil, model.NewLookupError("podcast", fmt.Sprintf("フィードの解析に失敗: %v", err))
	}

	info := &FeedInfo{
		FeedURL:      feedURL,
		Title:        parsed.Title,
		Description:  parsed.Description,
		EpisodeCount: len(parsed.Items),
	}
	if parsed.Image != nil {
		info.CoverURL = parsed.Image.URL
	}
	return info, nil
}

// DetectFeedURL はURLがフィードかHTMLかを判定し、フィードURLを返す。
// 1. SSRF検証を実行
// 2. URLにHTTPリクエストを送信
// 3. Content-Typeとボディからフィードかどうかを判定
// 4. HTMLの場合はheadタグからフィードリンクを検出し、優先順位で選択
// 5. フィード未検出の場合はエラーを返す
func (p *PodcastFeedProbe) DetectFeedURL(ctx context.Context, inputURL string) (string, error) {
	if inputURL == "" {
		return "", model.NewValidationError("URLが入力されていません")
	}

	if p.ssrfGuard != nil {
		if err := p.ssrfGuard.ValidateURL(inputURL); err != nil {
			return "", model.NewValidationError(fmt.Sprintf("URLが許可されていません: %v", err))
		}
	}

	body, contentType, err := p.fetch(ctx, inputURL)
	if err != nil {
		return "", err
	}

	// フィード直接判定
	if IsDirectFeed(contentType, body) {
		return inputURL, nil
	}

	// HTMLの場合: headタグからフィードリンクを検出
	mediaType, _, _ := mime.ParseMediaType(contentType)
	if !strings.Contains(strings.ToLower(mediaType), "html") {
		return "", model.NewLookupError("podcast", fmt.Sprintf("フィードが見つかりません: %s", inputURL))
	}

	candidates := ParseFeedLinksFromHTML(body, inputURL)
	best := SelectBestFeed(candidates, inputURL)
	if best == nil {
		return "", model.NewLookupError("podcast", fmt.Sprintf("フィードが見つかりません: %s", inputURL))
	}

	return best.URL, nil
}

// fetch はURLにGETリクエストを送信し、ボディとContent-Typeを返す。
func (p *PodcastFeedProbe) fetch(ctx context.Context, rawURL string) ([]byte, string, error) {
	client := p.getHTTPClient()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, "", model.NewValidationError(err.Error())
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/rss+xml, application/atom+xml, application/xml, text/xml, text/html, */*")

	resp, err := client.Do(req)
	if err != nil {
		return nil, "", model.NewLookupError("podcast", err.Error())
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, "", statusError("podcast", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, "", model.NewLookupError("podcast", fmt.Sprintf("応答の読み取りに失敗: %v", err))
	}
	return body, resp.Header.Get("Content-Type"), nil
}

// getHTTPClient はHTTPクライアントを取得する。
// SSRFGuardが設定されている場合はSSRF防止付きクライアントを返す。
func (p *PodcastFeedProbe) getHTTPClient() *http.Client {
	if p.ssrfGuard != nil {
		return p.ssrfGuard.NewSafeClient(10*time.Second, maxResponseSize)
	}
	return &http.Client{Timeout: 10 * time.Second}
}

// IsDirectFeed はContent-Typeとボディを解析して、
// レスポンスがRSS/Atomフィードかどうかを判定する。
func IsDirectFeed(contentType string, body []byte) bool {
	// Content-Typeからメディアタイプを抽出（charsetなどのパラメータを除去）
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		mediaType = strings.TrimSpace(strings.Split(contentType, ";")[0])
	}
	mediaType = strings.ToLower(mediaType)

	// RSS/Atom固有のContent-Typeの場合は直接判定
	for _, feedCT := range feedContentTypes {
		if mediaType == feedCT {
			return true
		}
	}

	// 汎用XML Content-Typeの場合はボディ解析が必要
	isXML := false
	for _, xmlCT := range xmlContentTypes {
		if mediaType == xmlCT {
			isXML = true
			break
		}
	}

	if !isXML || len(body) == 0 {
		return false
	}

	return isRSSOrAtomXML(body)
}

// isRSSOrAtomXML はXMLボディの先頭部分を解析してRSS/Atomフィードかを判定する。
func isRSSOrAtomXML(body []byte) bool {
	// 先頭4KBを検査（XMLプロローグ + ルート要素が含まれるのに十分）
	checkSize := 4096
	if len(body) < checkSize {
		checkSize = len(body)
	}
	prefix := strings.ToLower(string(body[:checkSize]))

	if strings.Contains(prefix, "<rss") {
		return true
	}
	if strings.Contains(prefix, "<rdf:rdf") {
		return true
	}
	if strings.Contains(prefix, "<feed") && strings.Contains(prefix, "http://www.w3.org/2005/atom") {
		return true
	}

	return false
}

// ParseFeedLinksFromHTML はHTMLのheadタグからRSS/Atomフィードリンクを解析・検出する。
// 相対URLはbaseURLを基準に絶対URLに解決される。
func ParseFeedLinksFromHTML(htmlBody []byte, baseURL string) []FeedCandidate {
	var candidates []FeedCandidate

	baseU, err := url.Parse(baseURL)
	if err != nil {
		return candidates
	}

	tokenizer := html.NewTokenizer(bytes.NewReader(htmlBody))
	inHead := false

	for {
		tt := tokenizer.Next()
		switch tt {
		case html.ErrorToken:
			return candidates

		case html.StartTagToken, html.SelfClosingTagToken:
			tn, hasAttr := tokenizer.TagName()
			tagName := string(tn)

			if tagName == "head" {
				inHead = true
				continue
			}

			if tagName == "body" {
				// bodyに入ったらheadの解析を終了
				return candidates
			}

			if !inHead || tagName != "link" || !hasAttr {
				continue
			}

			// link要素の属性を解析
			var rel, linkType, href, title string
			for {
				key, val, more := tokenizer.TagAttr()
				k := strings.ToLower(string(key))
				v := string(val)
				switch k {
				case "rel":
					rel = strings.ToLower(v)
				case "type":
					linkType = strings.ToLower(v)
				case "href":
					href = v
				case "title":
					title = v
				}
				if !more {
					break
				}
			}

			// rel="alternate" かつ RSS/Atom Content-Type のリンクのみ対象
			if rel != "alternate" || href == "" {
				continue
			}

			var feedType string
			switch linkType {
			case "application/rss+xml":
				feedType = "rss"
			case "application/atom+xml":
				feedType = "atom"
			default:
				continue
			}

			// 相対URLを絶対URLに解決
			resolvedURL := resolveURL(baseU, href)
			if resolvedURL == "" {
				continue
			}

			candidates = append(candidates, FeedCandidate{
				URL:   resolvedURL,
				Type:  feedType,
				Title: title,
			})

		case html.EndTagToken:
			tn, _ := tokenizer.TagName()
			if string(tn) == "head" {
				return candidates
			}
		}
	}
}

// resolveURL は相対URLをベースURLを基準に絶対URLに解決する。
func resolveURL(base *url.URL, rawRef string) string {
	ref, err := url.Parse(rawRef)
	if err != nil {
		return ""
	}
	return base.ResolveReference(ref).String()
}

// SelectBestFeed は複数のフィード候補から優先順位に従って最適なフィードを選択する。
// 優先順位: 同一ホスト > RSS > 先頭
// ポッドキャストは実質RSSで配信されるため、Atomより優先する。
func SelectBestFeed(candidates []FeedCandidate, inputURL string) *FeedCandidate {
	if len(candidates) == 0 {
		return nil
	}

	inputHost := extractHost(inputURL)

	bestIdx := 0
	bestScore := -1

	for i, c := range candidates {
		score := 0

		if extractHost(c.URL) == inputHost {
			score += 100
		}
		if c.Type == "rss" {
			score += 10
		}

		// 同スコアの場合はインデックスが小さい方を優先
		if score > bestScore {
			bestScore = score
			bestIdx = i
		}
	}

	return &candidates[bestIdx]
}

// extractHost はURLからホスト名を抽出する。
func extractHost(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return strings.ToLower(u.Hostname())
}
