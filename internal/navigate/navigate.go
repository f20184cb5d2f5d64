// 包 navigate 负责在结果页中发现"更早月份"的导航链接：
// - 按固定优先级依次尝试多种页面写法，首个有命中的写法生效
// - rel 等属性可能是单值或多值，统一先经 AttrString 归一再做字符串判断
// - 相对链接按页面地址绝对化；本包不发起任何网络请求
package navigate

import (
	"bytes"
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"lotto-crawler/internal/model"
)

// Convention 为一种链接写法：CSS 选择器 + 可选的二次过滤。
type Convention struct {
	Name     string
	Selector string
	Match    func(s *goquery.Selection) bool
}

// Conventions 为默认优先级列表。
var Conventions = []Convention{
	{Name: "past-month-class", Selector: "a.pastMonthYearWinners[rel]"},
	{Name: "past-month-class", Selector: "a.pastMonthYearWinners"},
	{Name: "back-marker", Selector: "a[rel], a[href]", Match: hasBackMarker},
	{Name: "month-container", Selector: ".pastWinNumMonths a, .month-nav a, .month-table a"},
	{Name: "month-query", Selector: "a[href]", Match: hasMonthQuery},
}

// backMarkers 为"向前翻页"标记。
var backMarkers = []string{"back=", "prevmonth", "previous-month"}

// Discover 从原始 HTML 发现月份链接。
func Discover(body []byte, baseURL string) ([]model.MonthLink, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}
	return DiscoverDocument(doc, baseURL), nil
}

// DiscoverDocument 按优先级尝试各写法；按绝对 URL 去重并保持文档顺序。
// 多种写法同时命中时只取优先级最高的一种。
func DiscoverDocument(doc *goquery.Document, baseURL string) []model.MonthLink {
	for _, c := range Conventions {
		if links := collect(doc, c, baseURL); len(links) > 0 {
			return links
		}
	}
	return nil
}

func collect(doc *goquery.Document, c Convention, baseURL string) []model.MonthLink {
	var out []model.MonthLink
	seen := map[string]bool{}
	doc.Find(c.Selector).Each(func(_ int, s *goquery.Selection) {
		if c.Match != nil && !c.Match(s) {
			return
		}
		rel, _ := s.Attr("rel")
		href, _ := s.Attr("href")
		target := Target(strings.Fields(rel), href)
		if target == "" {
			return
		}
		abs := resolve(baseURL, target)
		if abs == "" || seen[abs] {
			return
		}
		seen[abs] = true
		out = append(out, model.MonthLink{URL: abs, Label: strings.Join(strings.Fields(s.Text()), " ")})
	})
	return out
}

// AttrString 将"单值或多值"的属性归一为单个字符串：
// 集合取第一个元素，标量取自身，空集合/空值/缺失返回 ("", false)。
func AttrString(v any) (string, bool) {
	var s string
	switch t := v.(type) {
	case nil:
		return "", false
	case string:
		s = t
	case *string:
		if t == nil {
			return "", false
		}
		s = *t
	case []string:
		if len(t) == 0 {
			return "", false
		}
		s = t[0]
	case []any:
		if len(t) == 0 {
			return "", false
		}
		return AttrString(t[0])
	default:
		return "", false
	}
	s = strings.TrimSpace(s)
	return s, s != ""
}

// Target 返回链接目标：rel 中携带 URL 片段时优先使用，否则回退到 href。
// 普通关系词（nofollow/prev 等）不视为 URL。
func Target(rel any, href string) string {
	if r, ok := AttrString(rel); ok && looksLikeURL(r) {
		return r
	}
	h, _ := AttrString(href)
	if strings.HasPrefix(h, "#") || strings.HasPrefix(strings.ToLower(h), "javascript:") {
		return ""
	}
	return h
}

func looksLikeURL(s string) bool {
	return strings.HasPrefix(s, "/") || strings.HasPrefix(s, "?") ||
		strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://") ||
		strings.Contains(s, "=") || strings.Contains(s, ".htm")
}

func hasBackMarker(s *goquery.Selection) bool {
	rel, _ := s.Attr("rel")
	href, _ := s.Attr("href")
	for _, v := range []string{rel, href} {
		lv := strings.ToLower(v)
		for _, m := range backMarkers {
			if strings.Contains(lv, m) {
				return true
			}
		}
	}
	return false
}

// hasMonthQuery 判断 href 查询串是否同时带有月份与年份参数。
func hasMonthQuery(s *goquery.Selection) bool {
	href, _ := s.Attr("href")
	u, err := url.Parse(strings.TrimSpace(href))
	if err != nil {
		return false
	}
	var month, year bool
	for k := range u.Query() {
		switch strings.ToLower(k) {
		case "month", "m", "mon":
			month = true
		case "year", "y", "yr":
			year = true
		}
	}
	return month && year
}

// resolve 将相对链接转换为绝对 URL；无法解析时返回空串。
func resolve(base, ref string) string {
	ru, err := url.Parse(ref)
	if err != nil {
		return ""
	}
	if ru.IsAbs() {
		return ru.String()
	}
	bu, err := url.Parse(base)
	if err != nil || base == "" {
		return ru.String()
	}
	return bu.ResolveReference(ru).String()
}
