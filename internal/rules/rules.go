// 包 rules 提供各玩法的页面布局规则（CSS 选择器），
// 内置默认规则对应结果页的已知结构，rules.yaml 可按玩法追加优先规则。
package rules

import (
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"lotto-crawler/internal/game"
)

// Layout 描述一种开奖结果块的结构：
// - block：每期开奖的容器
// - date/numbers/bonus/gold_ball：块内选择器，支持 "a@attr" 与 "||" 回退
// - group：号码单元内的分组子项（如一个单元格内含多个号码球）
type Layout struct {
	Block    string `yaml:"block"`
	Date     string `yaml:"date"`
	Numbers  string `yaml:"numbers"`
	Bonus    string `yaml:"bonus"`
	GoldBall string `yaml:"gold_ball"`
	Group    string `yaml:"group"`
}

// GameRules 为单个玩法的布局列表，按顺序尝试，首个命中的生效。
type GameRules struct {
	Layouts []Layout `yaml:"layouts"`
}

// Rules 为全部玩法的规则集合。
type Rules struct {
	Games map[game.Variant]GameRules
}

const goldBallAny = "div.pastWinNumGPDNumber||li.pastWinNumberGold||.gold-ball||.gold-number"

// 结果页通用结构（各玩法共享同一套站点模板）
func siteLayouts(goldBall string) []Layout {
	return []Layout{
		{Block: "div.pastWinNumGroup", Date: "div.pastWinNumDate", Numbers: "li.pastWinNumber:not(.pastWinNumberBonus)", Bonus: "li.pastWinNumberBonus", GoldBall: goldBall},
		{Block: "div.pastWinNum", Date: "div.pastWinNumDate", Numbers: "li.pastWinNumber:not(.pastWinNumberBonus)", Bonus: "li.pastWinNumberBonus", GoldBall: goldBall},
	}
}

// Default 返回内置规则。6/49 与 Western 6/49 目前结构一致，但各自独立配置。
func Default() *Rules {
	return &Rules{Games: map[game.Variant]GameRules{
		game.Lotto649: {Layouts: append(siteLayouts(goldBallAny),
			Layout{Block: "div.draw-result", Date: ".draw-date", Numbers: ".winning-number", Bonus: ".bonus-number", GoldBall: ".gold-ball-number"},
			Layout{Block: "div.winning-numbers", Date: ".date", Numbers: ".number", Bonus: ".bonus", GoldBall: ".gold-ball"},
			Layout{Block: "tr.draw-row", Date: "td.date", Numbers: "td.number", Bonus: "td.bonus", GoldBall: "td.gold-ball", Group: "span"},
		)},
		game.LottoMax: {Layouts: append(siteLayouts(""),
			Layout{Block: "div.lottomax-draw", Date: ".draw-date", Numbers: ".winning-number", Bonus: ".bonus-number"},
			Layout{Block: "div.max-result", Date: ".date", Numbers: ".number", Bonus: ".bonus"},
		)},
		game.Western649: {Layouts: append(siteLayouts(""),
			Layout{Block: "div.western649-draw", Date: ".draw-date", Numbers: ".winning-number", Bonus: ".bonus-number"},
			Layout{Block: "div.western-result", Date: ".date", Numbers: ".number", Bonus: ".bonus"},
		)},
		game.WesternMax: {Layouts: append(siteLayouts(""),
			Layout{Block: "div.westernmax-draw", Date: ".draw-date", Numbers: ".winning-number", Bonus: ".bonus-number"},
			Layout{Block: "div.western-max-result", Date: ".date", Numbers: ".number", Bonus: ".bonus"},
		)},
		game.DailyGrand: {Layouts: append(siteLayouts(""),
			Layout{Block: "div.dailygrand-draw", Date: ".draw-date", Numbers: ".winning-number", Bonus: ".bonus-number"},
			Layout{Block: "div.daily-grand-result", Date: ".date", Numbers: ".number", Bonus: ".bonus"},
		)},
	}}
}

// Load 读取 rules.yaml 并与内置规则合并：文件中的布局排在内置布局之前。
// 文件格式：以玩法名为键，值为 {layouts: [...]}。
func Load(path string) (*Rules, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open rules %s: %w", path, err)
	}
	defer f.Close()
	b, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("read rules %s: %w", path, err)
	}
	var raw map[string]GameRules
	if err := yaml.Unmarshal(b, &raw); err != nil {
		return nil, fmt.Errorf("unmarshal rules %s: %w", path, err)
	}
	r := Default()
	for name, gr := range raw {
		v, err := game.Parse(name)
		if err != nil {
			return nil, fmt.Errorf("rules %s: %w", path, err)
		}
		base := r.Games[v]
		base.Layouts = append(append([]Layout{}, gr.Layouts...), base.Layouts...)
		r.Games[v] = base
	}
	return r, nil
}

// For 返回玩法的布局列表；规则为空时回退到内置规则。
func (r *Rules) For(v game.Variant) []Layout {
	if r != nil {
		if gr, ok := r.Games[v]; ok && len(gr.Layouts) > 0 {
			return gr.Layouts
		}
	}
	return Default().Games[v].Layouts
}
