// 包 dataset 为下游提供只读数据访问：按玩法缓存记录与统计摘要。
// 缓存是显式对象，批次完成后由调用方 Invalidate。
package dataset

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/patrickmn/go-cache"

	"lotto-crawler/internal/game"
	"lotto-crawler/internal/model"
	"lotto-crawler/internal/normalize"
)

// DefaultTTL 为缓存过期时间。
const DefaultTTL = time.Hour

const topN = 10

// Loader 为数据来源（SQLite 存储）。
type Loader interface {
	ListDraws(ctx context.Context, v game.Variant) ([]model.DrawRecord, error)
}

// Accessor 为带缓存的只读访问器。
type Accessor struct {
	loader Loader
	cache  *cache.Cache
	now    func() time.Time
}

// New 创建访问器；ttl<=0 时使用 DefaultTTL。
func New(l Loader, ttl time.Duration) *Accessor {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Accessor{loader: l, cache: cache.New(ttl, 2*ttl), now: time.Now}
}

func recordsKey(v game.Variant) string { return "records:" + string(v) }
func summaryKey(v game.Variant) string { return "summary:" + string(v) }

// Records 返回某玩法的全部记录（号码已归一化）。
func (a *Accessor) Records(ctx context.Context, v game.Variant) ([]model.DrawRecord, error) {
	if !v.Valid() {
		return nil, fmt.Errorf("%w: %q", game.ErrUnknown, v)
	}
	if x, ok := a.cache.Get(recordsKey(v)); ok {
		return clone(x.([]model.DrawRecord)), nil
	}
	recs, err := a.loader.ListDraws(ctx, v)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", v, err)
	}
	for i := range recs {
		recs[i].Numbers = normalize.Numbers(recs[i].Numbers)
	}
	a.cache.SetDefault(recordsKey(v), recs)
	return clone(recs), nil
}

// clone 复制记录及其号码切片，调用方修改返回值不影响缓存。
func clone(recs []model.DrawRecord) []model.DrawRecord {
	out := make([]model.DrawRecord, len(recs))
	for i, r := range recs {
		r.Numbers = append([]int(nil), r.Numbers...)
		if r.Bonus != nil {
			b := *r.Bonus
			r.Bonus = &b
		}
		if r.DrawDate != nil {
			d := *r.DrawDate
			r.DrawDate = &d
		}
		out[i] = r
	}
	return out
}

// Summary 返回某玩法的统计摘要（总期数、日期范围、最近 30 天期数、冷热号）。
func (a *Accessor) Summary(ctx context.Context, v game.Variant) (model.GameSummary, error) {
	if x, ok := a.cache.Get(summaryKey(v)); ok {
		return cloneSummary(x.(model.GameSummary)), nil
	}
	recs, err := a.Records(ctx, v)
	if err != nil {
		return model.GameSummary{}, err
	}
	s := Summarize(v, recs, a.now())
	a.cache.SetDefault(summaryKey(v), s)
	return cloneSummary(s), nil
}

func cloneSummary(s model.GameSummary) model.GameSummary {
	s.MostFrequent = append([]int{}, s.MostFrequent...)
	s.LeastFrequent = append([]int{}, s.LeastFrequent...)
	return s
}

// Invalidate 丢弃某玩法的缓存。
func (a *Accessor) Invalidate(v game.Variant) {
	a.cache.Delete(recordsKey(v))
	a.cache.Delete(summaryKey(v))
}

// Summarize 计算摘要。频次按出现次数降序、号码升序排列，
// 取前 10 为热号、后 10 为冷号。
func Summarize(v game.Variant, recs []model.DrawRecord, now time.Time) model.GameSummary {
	s := model.GameSummary{Game: v, TotalDraws: len(recs), UpdatedAt: now,
		MostFrequent: []int{}, LeastFrequent: []int{}}
	cutoff := now.AddDate(0, 0, -30)
	var first, last time.Time
	counts := map[int]int{}
	for _, r := range recs {
		if r.DrawDate != nil {
			d := *r.DrawDate
			if first.IsZero() || d.Before(first) {
				first = d
			}
			if last.IsZero() || d.After(last) {
				last = d
			}
			if !d.Before(cutoff) {
				s.RecentDraws++
			}
		}
		for _, n := range r.Numbers {
			counts[n]++
		}
	}
	if !first.IsZero() {
		s.FirstDate = first.Format(model.DateLayout)
		s.LastDate = last.Format(model.DateLayout)
	}
	nums := make([]int, 0, len(counts))
	for n := range counts {
		nums = append(nums, n)
	}
	sort.Slice(nums, func(i, j int) bool {
		if counts[nums[i]] != counts[nums[j]] {
			return counts[nums[i]] > counts[nums[j]]
		}
		return nums[i] < nums[j]
	})
	if len(nums) > topN {
		s.MostFrequent = append(s.MostFrequent, nums[:topN]...)
		s.LeastFrequent = append(s.LeastFrequent, nums[len(nums)-topN:]...)
	} else {
		s.MostFrequent = append(s.MostFrequent, nums...)
		s.LeastFrequent = append(s.LeastFrequent, nums...)
	}
	return s
}
