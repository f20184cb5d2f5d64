package normalize

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"
)

// ErrBadDate 表示日期文本存在但无法解析。
var ErrBadDate = errors.New("unparseable draw date")

var dateLayouts = []string{
	"2006-01-02",
	"2006/01/02",
	"Jan 2, 2006",
	"Jan 2 2006",
	"January 2, 2006",
	"January 2 2006",
	"Mon, Jan 2, 2006",
	"Mon Jan 2, 2006",
	"Monday, January 2, 2006",
	"Monday January 2, 2006",
	"Monday, Jan 2, 2006",
	"2 Jan 2006",
	"2 January 2006",
	"01/02/2006",
	"1/2/2006",
	"01-02-2006",
	"1-2-2006",
}

// 从较长文本（如 "Saturday, March 2, 2024 - Draw #1234"）中截取日期片段
var datePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)(Jan|Feb|Mar|Apr|May|Jun|Jul|Aug|Sep|Oct|Nov|Dec)[a-z]*\.?\s+\d{1,2},?\s+\d{4}`),
	regexp.MustCompile(`\d{4}-\d{2}-\d{2}`),
	regexp.MustCompile(`\d{1,2}[-/]\d{1,2}[-/]\d{4}`),
}

var ordinalRe = regexp.MustCompile(`(\d{1,2})(st|nd|rd|th)\b`)

// FindDate 返回文本中第一个形如日期的片段，找不到返回空串。
func FindDate(text string) string {
	for _, re := range datePatterns {
		if m := re.FindString(text); m != "" {
			return m
		}
	}
	return ""
}

// Date 解析开奖日期。空文本返回 (nil, nil)：缺失日期不是错误，也绝不伪造。
func Date(text string) (*time.Time, error) {
	s := cleanDate(text)
	if s == "" {
		return nil, nil
	}
	if t, ok := tryLayouts(s); ok {
		return &t, nil
	}
	if frag := cleanDate(FindDate(s)); frag != "" {
		if t, ok := tryLayouts(frag); ok {
			return &t, nil
		}
	}
	return nil, fmt.Errorf("%w: %q", ErrBadDate, text)
}

func tryLayouts(s string) (time.Time, bool) {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func cleanDate(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	s = ordinalRe.ReplaceAllString(s, "$1")
	s = strings.ReplaceAll(s, ". ", " ")
	s = strings.ReplaceAll(s, "Sept ", "Sep ")
	return strings.TrimSpace(s)
}
