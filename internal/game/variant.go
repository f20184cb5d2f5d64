// 包 game 定义受支持的彩票玩法（封闭集合），
// 每个玩法自带号码个数、号码范围、附加号规则与默认结果页地址。
package game

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ErrUnknown 表示未知玩法，属于配置级错误，会终止整个批次。
var ErrUnknown = errors.New("unknown game variant")

// Variant 为玩法代码，仅允许下列常量取值。
type Variant string

const (
	Lotto649   Variant = "649"
	LottoMax   Variant = "max"
	Western649 Variant = "western649"
	WesternMax Variant = "westernmax"
	DailyGrand Variant = "dailygrand"
)

// Spec 描述一个玩法的记录形状。
type Spec struct {
	Name          string
	URL           string
	Count         int // 主号码个数（精确匹配）
	Max           int // 主号码范围 [1, Max]
	HasBonus      bool
	BonusMax      int
	BonusDistinct bool // 附加号是否必须与主号码不同
	HasGoldBall   bool
}

var specs = map[Variant]Spec{
	Lotto649: {
		Name: "Lotto 6/49", URL: "https://www.wclc.com/winning-numbers/lotto-649-extra.htm",
		Count: 6, Max: 49, HasBonus: true, BonusMax: 49, BonusDistinct: true, HasGoldBall: true,
	},
	LottoMax: {
		Name: "Lotto Max", URL: "https://www.wclc.com/winning-numbers/lotto-max-extra.htm",
		Count: 7, Max: 50, HasBonus: true, BonusMax: 50, BonusDistinct: true,
	},
	Western649: {
		Name: "Western 649", URL: "https://www.wclc.com/winning-numbers/western-649-extra.htm",
		Count: 6, Max: 49, HasBonus: true, BonusMax: 49, BonusDistinct: true,
	},
	WesternMax: {
		Name: "Western Max", URL: "https://www.wclc.com/winning-numbers/western-max-extra.htm",
		Count: 7, Max: 50, HasBonus: true, BonusMax: 50, BonusDistinct: true,
	},
	// Grand Number 来自独立号码池（1-7），可与主号码重复
	DailyGrand: {
		Name: "Daily Grand", URL: "https://www.wclc.com/winning-numbers/daily-grand-extra.htm",
		Count: 5, Max: 49, HasBonus: true, BonusMax: 7, BonusDistinct: false,
	},
}

// Spec 返回玩法规格；未知玩法返回零值。
func (v Variant) Spec() Spec { return specs[v] }

// Valid 判断是否为受支持的玩法。
func (v Variant) Valid() bool {
	_, ok := specs[v]
	return ok
}

func (v Variant) String() string { return string(v) }

// All 返回全部玩法（按代码排序，保证输出稳定）。
func All() []Variant {
	out := make([]Variant, 0, len(specs))
	for v := range specs {
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// aliases 收录常见写法：显示名、去空格/斜杠后的名字。
var aliases = map[string]Variant{
	"lotto649":    Lotto649,
	"lotto6/49":   Lotto649,
	"6/49":        Lotto649,
	"lottomax":    LottoMax,
	"western6/49": Western649,
	"w649":        Western649,
	"wmax":        WesternMax,
	"daily":       DailyGrand,
}

// Parse 解析玩法名称，支持代码、显示名与宽松写法（忽略大小写/空格/连字符）。
func Parse(name string) (Variant, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	if v := Variant(key); v.Valid() {
		return v, nil
	}
	compact := strings.NewReplacer(" ", "", "-", "", "_", "").Replace(key)
	if v := Variant(compact); v.Valid() {
		return v, nil
	}
	if v, ok := aliases[compact]; ok {
		return v, nil
	}
	for v, s := range specs {
		if strings.EqualFold(s.Name, strings.TrimSpace(name)) {
			return v, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknown, name)
}
