package batch

import (
	"time"

	"lotto-crawler/internal/dedup"
	"lotto-crawler/internal/fetch"
	"lotto-crawler/internal/game"
	"lotto-crawler/internal/model"
	"lotto-crawler/internal/validate"
)

// accumulator 收集一个批次的记录与计数，仅在批次所在 goroutine 中使用。
type accumulator struct {
	records []model.DrawRecord
	seen    *dedup.Set
	sum     model.Summary
}

func newAccumulator(runID string, v game.Variant, started time.Time) *accumulator {
	return &accumulator{
		seen: dedup.NewSet(),
		sum: model.Summary{
			RunID:     runID,
			Game:      v,
			Rejected:  map[string]int{},
			StartedAt: started,
		},
	}
}

// add 校验并去重后追加；返回是否被接受。
func (a *accumulator) add(c model.Candidate, v game.Variant, scraped time.Time) bool {
	rec, rej := validate.Validate(c, v)
	if rej != nil {
		a.sum.Rejected[string(rej.Reason)]++
		return false
	}
	rec.Fingerprint = dedup.Fingerprint(rec)
	if a.seen.IsDuplicate(rec) {
		a.sum.Duplicates = a.seen.Dropped()
		return false
	}
	rec.ScrapedAt = scraped
	a.records = append(a.records, rec)
	a.sum.Accepted++
	return true
}

func (a *accumulator) fail(out fetch.Outcome) {
	a.sum.FetchFailures = append(a.sum.FetchFailures, model.FetchFailure{
		URL:    out.URL,
		Kind:   out.Kind().String(),
		Reason: out.Err.Error(),
	})
}

// snapshot 返回记录副本与汇总。
func (a *accumulator) snapshot() ([]model.DrawRecord, model.Summary) {
	recs := make([]model.DrawRecord, len(a.records))
	copy(recs, a.records)
	sum := a.sum
	sum.Rejected = make(map[string]int, len(a.sum.Rejected))
	for k, n := range a.sum.Rejected {
		sum.Rejected[k] = n
	}
	sum.FetchFailures = append([]model.FetchFailure(nil), a.sum.FetchFailures...)
	return recs, sum
}
