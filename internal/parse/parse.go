// 包 parse 负责开奖结果页解析：
// - 按玩法的布局规则（rules）依次尝试，首个命中 block 的布局生效
// - 选择器支持 "选择器@属性" 与 "||" 多方案回退
// - 只产出原始文本 token，类型转换交给 normalize
package parse

import (
	"bytes"
	"fmt"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"lotto-crawler/internal/game"
	"lotto-crawler/internal/model"
	"lotto-crawler/internal/normalize"
	"lotto-crawler/internal/rules"
)

// Parser 持有布局规则，无其他状态，可重复使用。
type Parser struct {
	rules *rules.Rules
}

// New 创建解析器；r 为 nil 时使用内置规则。
func New(r *rules.Rules) *Parser {
	if r == nil {
		r = rules.Default()
	}
	return &Parser{rules: r}
}

// Load 将原始 HTML 解析为文档。
func Load(body []byte) (*goquery.Document, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}
	return doc, nil
}

// Parse 解析原始 HTML。页面没有开奖块时返回空切片而不是错误。
func (p *Parser) Parse(body []byte, v game.Variant, sourceURL string) ([]model.Candidate, error) {
	doc, err := Load(body)
	if err != nil {
		return nil, err
	}
	return p.ParseDocument(doc, v, sourceURL), nil
}

// ParseDocument 从已解析的文档中抽取候选记录。
func (p *Parser) ParseDocument(doc *goquery.Document, v game.Variant, sourceURL string) []model.Candidate {
	var (
		layout rules.Layout
		blocks *goquery.Selection
	)
	for _, l := range p.rules.For(v) {
		if l.Block == "" {
			continue
		}
		if sel := doc.Find(l.Block); sel.Length() > 0 {
			layout, blocks = l, sel
			break
		}
	}
	out := []model.Candidate{}
	if blocks == nil {
		return out
	}
	spec := v.Spec()
	blocks.Each(func(i int, b *goquery.Selection) {
		out = append(out, extract(b, i, layout, v, spec, sourceURL))
	})
	return out
}

var (
	digitRun = regexp.MustCompile(`\d+`)
	goldRe   = regexp.MustCompile(`\d[\d-]*`)
	labelRe  = regexp.MustCompile(`(?i)grand\s+number|bonus|grand`)
)

// extract 处理单个开奖块。
func extract(b *goquery.Selection, idx int, l rules.Layout, v game.Variant, spec game.Spec, sourceURL string) model.Candidate {
	c := model.Candidate{Game: v, SourceURL: sourceURL, BlockIndex: idx, Numbers: []any{}}
	c.DateText = findDate(b, l.Date)

	cells := findAll(b, l.Numbers)
	var bonusCell *goquery.Selection
	if cells.Length() == 0 {
		// 无 class 的 <li>：最后一项为附加号
		lis := b.Find("ul li")
		if n := lis.Length(); n >= spec.Count+1 {
			cells = lis.Slice(0, n-1)
			bonusCell = lis.Last()
		}
	}
	cells.Each(func(_ int, cell *goquery.Selection) {
		c.Numbers = append(c.Numbers, cellTokens(cell, l.Group)...)
	})

	if spec.HasBonus {
		bonus := getVal(b, l.Bonus)
		if bonus == "" && bonusCell != nil {
			bonus = strings.TrimSpace(bonusCell.Text())
		}
		c.BonusText = bonusToken(bonus)
	}
	if spec.HasGoldBall && l.GoldBall != "" {
		c.GoldBall = goldRe.FindString(getVal(b, l.GoldBall))
	}
	return c
}

// findDate 依次尝试：日期选择器 → 块内日期样式文本 → 前置标题。
func findDate(b *goquery.Selection, expr string) string {
	if s := getVal(b, expr); s != "" {
		return strings.Join(strings.Fields(s), " ")
	}
	if s := normalize.FindDate(b.Text()); s != "" {
		return s
	}
	var found string
	b.PrevAllFiltered("h2, h3, h4").EachWithBreak(func(_ int, h *goquery.Selection) bool {
		found = normalize.FindDate(h.Text())
		return found == ""
	})
	return found
}

// cellTokens 将一个号码单元转为 token：
// - 含分组子项：返回一个嵌套分组
// - 单元内含多个数字（"1 2 3" 或 "1-2-3"）：拆成多个 token
// - 否则取第一个数字串，无数字时保留原文本（由 normalize 丢弃）
func cellTokens(cell *goquery.Selection, group string) []any {
	if group != "" {
		if items := cell.Find(group); items.Length() > 0 {
			g := make([]any, 0, items.Length())
			items.Each(func(_ int, it *goquery.Selection) {
				g = append(g, strings.TrimSpace(it.Text()))
			})
			return []any{g}
		}
	}
	text := strings.TrimSpace(cell.Text())
	runs := digitRun.FindAllString(text, -1)
	if len(runs) == 0 {
		return []any{text}
	}
	out := make([]any, 0, len(runs))
	for _, r := range runs {
		out = append(out, r)
	}
	return out
}

// bonusToken 去掉 "Bonus"/"Grand Number" 等标签后取数字。
func bonusToken(text string) string {
	text = strings.TrimSpace(labelRe.ReplaceAllString(text, ""))
	if m := digitRun.FindString(text); m != "" {
		return m
	}
	return text
}

// findAll 返回首个非空的选择结果，支持 "||" 回退。
func findAll(scope *goquery.Selection, expr string) *goquery.Selection {
	for _, p := range strings.Split(expr, "||") {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		if sel := scope.Find(p); sel.Length() > 0 {
			return sel
		}
	}
	return scope.Slice(0, 0)
}

// getVal 解析表达式，"||" 分隔多个候选，按先后取第一个非空值。
func getVal(scope *goquery.Selection, expr string) string {
	for _, p := range strings.Split(expr, "||") {
		if v := getValSingle(scope, strings.TrimSpace(p)); v != "" {
			return v
		}
	}
	return ""
}

// getValSingle 解析单个表达式：文本或属性读取，"." 表示当前块文本。
func getValSingle(scope *goquery.Selection, expr string) string {
	if expr == "" {
		return ""
	}
	if expr == "." {
		return strings.TrimSpace(scope.Text())
	}
	if at := strings.Index(expr, "@"); at != -1 {
		sel := strings.TrimSpace(expr[:at])
		attr := strings.TrimSpace(expr[at+1:])
		el := scope
		if sel != "" {
			el = scope.Find(sel).First()
		}
		val, _ := el.Attr(attr)
		return strings.TrimSpace(val)
	}
	return strings.TrimSpace(scope.Find(expr).First().Text())
}
