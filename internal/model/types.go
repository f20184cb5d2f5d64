// 包 model 定义抓取流水线的数据模型（候选记录/开奖记录/月份链接/批次汇总/导出结构）。
package model

import (
	"time"

	"lotto-crawler/internal/game"
)

// DrawRecord 为一次开奖，经过校验与归一化后的最终形态。
type DrawRecord struct {
	Game        game.Variant `json:"game_variant"`
	DrawDate    *time.Time   `json:"draw_date"`
	Numbers     []int        `json:"numbers"`
	Bonus       *int         `json:"bonus_number,omitempty"`
	GoldBall    string       `json:"gold_ball,omitempty"`
	SourceURL   string       `json:"source_url"`
	Fingerprint string       `json:"fingerprint"`
	ScrapedAt   time.Time    `json:"scraped_at"`
}

// DateString 返回 YYYY-MM-DD，无日期时为空串。
func (r DrawRecord) DateString() string {
	if r.DrawDate == nil {
		return ""
	}
	return r.DrawDate.Format(DateLayout)
}

// DateLayout 为落盘与指纹使用的日期格式。
const DateLayout = "2006-01-02"

// Candidate 为解析器输出、尚未校验的原始记录。
// Numbers 中的元素为 string 或嵌套的 []any（分组号码），类型转换交给 normalize。
type Candidate struct {
	Game       game.Variant
	DateText   string
	Numbers    []any
	BonusText  string
	GoldBall   string
	SourceURL  string
	BlockIndex int
}

// MonthLink 为发现的历史月份导航目标，仅在一次批次内使用。
type MonthLink struct {
	URL   string
	Label string
}

// FetchFailure 记录单个月份页面的抓取失败。
type FetchFailure struct {
	URL    string `json:"url"`
	Kind   string `json:"kind"`
	Reason string `json:"reason"`
}

// Summary 为批次汇总，调用方据此判断数据集是否可信。
type Summary struct {
	RunID         string         `json:"run_id"`
	Game          game.Variant   `json:"game_variant"`
	Accepted      int            `json:"accepted"`
	Rejected      map[string]int `json:"rejected"`
	Duplicates    int            `json:"duplicates"`
	FetchFailures []FetchFailure `json:"fetch_failures"`
	EmptyPages    int            `json:"empty_pages"`
	Months        int            `json:"months"`
	Links         int            `json:"links"`
	Cancelled     bool           `json:"cancelled"`
	StartedAt     time.Time      `json:"started_at"`
	FinishedAt    time.Time      `json:"finished_at"`
}

// RejectedTotal 返回被拒记录总数。
func (s Summary) RejectedTotal() int {
	n := 0
	for _, c := range s.Rejected {
		n += c
	}
	return n
}

// GameSummary 为下游（界面/分析）使用的单玩法统计。
type GameSummary struct {
	Game          game.Variant `json:"game_variant"`
	TotalDraws    int          `json:"total_draws"`
	FirstDate     string       `json:"first_date"`
	LastDate      string       `json:"last_date"`
	RecentDraws   int          `json:"recent_draws"` // 最近 30 天
	MostFrequent  []int        `json:"most_frequent_numbers"`
	LeastFrequent []int        `json:"least_frequent_numbers"`
	UpdatedAt     time.Time    `json:"updated_at"`
}

// Stats 为导出文件中的汇总信息。
type Stats struct {
	DrawsTotal int            `json:"draws_total"`
	PerGame    map[string]int `json:"per_game"`
	UpdatedAt  time.Time      `json:"updated_at"`
}

// Export 为 JSON 导出的顶层结构。
type Export struct {
	Stats Stats        `json:"stats"`
	Draws []DrawRecord `json:"draws"`
}
