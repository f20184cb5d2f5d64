// 包 batch 负责一次抓取批次的编排：
// 当月页面 → 解析 → 发现历史月份链接 → 逐月抓取/解析，直到深度用尽或没有新链接。
// 单个月份的失败只记入汇总，不中断批次。
package batch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"lotto-crawler/internal/fetch"
	"lotto-crawler/internal/game"
	"lotto-crawler/internal/logx"
	"lotto-crawler/internal/model"
	"lotto-crawler/internal/navigate"
	"lotto-crawler/internal/parse"
)

// ErrConfig 为批次级配置错误（如已保存页面不可读），会终止批次。
var ErrConfig = errors.New("batch configuration error")

// State 为编排状态。
type State string

const (
	StateStart         State = "start"
	StateFetchCurrent  State = "fetch_current"
	StateParseCurrent  State = "parse_current"
	StateDiscoverLinks State = "discover_links"
	StateFetchNext     State = "fetch_next"
	StateParseNext     State = "parse_next"
	StateDone          State = "done"
	StateError         State = "error"
)

// Event 为进度回调参数。
type Event struct {
	RunID    string
	Game     game.Variant
	State    State
	URL      string
	Month    int // 已处理的历史月份数
	Accepted int
}

// Seeder 提供已持久化记录的指纹，用于跨批次去重。
type Seeder interface {
	Fingerprints(ctx context.Context, v game.Variant) ([]string, error)
}

type Options struct {
	Game      game.Variant
	StartURL  string // 为空时使用玩法默认地址
	StartFile string // 已保存的当月页面；设置后当月页面不走网络
	MaxMonths int    // 当月之外最多处理的历史页面数，0 表示不限
	Progress  func(Event)
	Seeder    Seeder
}

// Result 为批次结果；取消时为部分结果。
type Result struct {
	Records []model.DrawRecord
	Summary model.Summary
	States  []State
}

// Runner 执行单个批次，不可并发复用。
type Runner struct {
	src    fetch.Source
	parser *parse.Parser
	opts   Options
	now    func() time.Time

	runID  string
	acc    *accumulator
	states []State
	log    *slog.Logger
}

// New 创建 Runner；parser 为 nil 时使用内置规则。
func New(src fetch.Source, parser *parse.Parser, opts Options) *Runner {
	if parser == nil {
		parser = parse.New(nil)
	}
	return &Runner{src: src, parser: parser, opts: opts, now: time.Now}
}

// Run 执行批次。致命错误（未知玩法、已保存页面不可读）返回 error；
// 其余失败均体现在 Summary 中。
func (r *Runner) Run(ctx context.Context) (*Result, error) {
	r.runID = uuid.NewString()
	r.states = nil
	r.log = logx.With("run", r.runID[:8], "game", string(r.opts.Game))
	r.enter(StateStart, "")

	v := r.opts.Game
	if !v.Valid() {
		r.enter(StateError, "")
		return nil, fmt.Errorf("%w: %q", game.ErrUnknown, v)
	}
	if r.opts.MaxMonths < 0 {
		r.enter(StateError, "")
		return nil, fmt.Errorf("%w: max months must be >= 0", ErrConfig)
	}
	if r.src == nil && r.opts.StartFile == "" {
		r.enter(StateError, "")
		return nil, fmt.Errorf("%w: no page source", ErrConfig)
	}
	startURL := r.opts.StartURL
	if startURL == "" {
		startURL = v.Spec().URL
	}
	r.acc = newAccumulator(r.runID, v, r.now())
	r.seed(ctx, v)

	r.enter(StateFetchCurrent, startURL)
	var body []byte
	if r.opts.StartFile != "" {
		b, err := fetch.ReadFile(r.opts.StartFile)
		if err != nil {
			r.enter(StateError, startURL)
			return nil, fmt.Errorf("%w: %w", ErrConfig, err)
		}
		body = b
	} else {
		out := fetch.Do(ctx, r.src, startURL)
		if !out.OK() {
			if ctx.Err() != nil {
				return r.finish(true), nil
			}
			r.failed(out)
		}
		body = out.Body
	}

	visited := map[string]bool{startURL: true}
	var queue []model.MonthLink
	if body != nil {
		r.enter(StateParseCurrent, startURL)
		links := r.page(body, startURL)
		r.enter(StateDiscoverLinks, startURL)
		queue = r.enqueue(queue, visited, links)
	}

	for len(queue) > 0 {
		if r.opts.MaxMonths > 0 && r.acc.sum.Months >= r.opts.MaxMonths {
			r.log.Info("已达到月份上限", "max_months", r.opts.MaxMonths, "pending", len(queue))
			break
		}
		if ctx.Err() != nil {
			return r.finish(true), nil
		}
		if r.src == nil {
			r.log.Info("未配置页面来源，跳过历史月份", "pending", len(queue))
			break
		}
		link := queue[0]
		queue = queue[1:]
		r.acc.sum.Months++

		r.enter(StateFetchNext, link.URL)
		out := fetch.Do(ctx, r.src, link.URL)
		if !out.OK() {
			if ctx.Err() != nil {
				return r.finish(true), nil
			}
			r.failed(out)
			continue
		}
		r.enter(StateParseNext, link.URL)
		queue = r.enqueue(queue, visited, r.page(out.Body, link.URL))
	}
	return r.finish(false), nil
}

// page 解析一个页面并累加记录，返回页面上发现的月份链接。
func (r *Runner) page(body []byte, url string) []model.MonthLink {
	doc, err := parse.Load(body)
	if err != nil {
		r.log.Warn("页面无法解析", "url", url, "err", err)
		r.acc.sum.EmptyPages++
		return nil
	}
	cands := r.parser.ParseDocument(doc, r.opts.Game, url)
	if len(cands) == 0 {
		r.log.Warn("页面没有开奖记录", "url", url)
		r.acc.sum.EmptyPages++
	}
	scraped := r.now()
	accepted := 0
	for _, c := range cands {
		if r.acc.add(c, r.opts.Game, scraped) {
			accepted++
		}
	}
	r.log.Info("页面处理完成", "url", url, "candidates", len(cands), "accepted", accepted)
	return navigate.DiscoverDocument(doc, url)
}

// enqueue 追加未访问过的链接（广度优先）。
func (r *Runner) enqueue(queue []model.MonthLink, visited map[string]bool, links []model.MonthLink) []model.MonthLink {
	for _, l := range links {
		if visited[l.URL] {
			continue
		}
		visited[l.URL] = true
		r.acc.sum.Links++
		queue = append(queue, l)
	}
	return queue
}

func (r *Runner) seed(ctx context.Context, v game.Variant) {
	if r.opts.Seeder == nil {
		return
	}
	fps, err := r.opts.Seeder.Fingerprints(ctx, v)
	if err != nil {
		r.log.Warn("读取已有指纹失败，跳过跨批次去重", "err", err)
		return
	}
	r.acc.seen.Seed(fps...)
	r.log.Debug("已预置指纹", "count", r.acc.seen.Len())
}

func (r *Runner) failed(out fetch.Outcome) {
	r.acc.fail(out)
	r.log.Warn("月份页面抓取失败", "url", out.URL, "kind", out.Kind().String(), "err", out.Err)
}

func (r *Runner) enter(s State, url string) {
	r.states = append(r.states, s)
	if r.log != nil {
		r.log.Debug("状态切换", "state", string(s), "url", url)
	}
	if r.opts.Progress != nil {
		ev := Event{RunID: r.runID, Game: r.opts.Game, State: s, URL: url}
		if r.acc != nil {
			ev.Month = r.acc.sum.Months
			ev.Accepted = r.acc.sum.Accepted
		}
		r.opts.Progress(ev)
	}
}

func (r *Runner) finish(cancelled bool) *Result {
	r.acc.sum.Cancelled = cancelled
	r.acc.sum.FinishedAt = r.now()
	if cancelled {
		r.log.Warn("批次已取消，返回部分结果", "accepted", r.acc.sum.Accepted)
	} else {
		r.enter(StateDone, "")
	}
	recs, sum := r.acc.snapshot()
	r.log.Info("批次完成",
		"accepted", sum.Accepted,
		"rejected", sum.RejectedTotal(),
		"duplicates", sum.Duplicates,
		"fetch_failures", len(sum.FetchFailures),
		"months", sum.Months,
	)
	states := append([]State(nil), r.states...)
	return &Result{Records: recs, Summary: sum, States: states}
}
