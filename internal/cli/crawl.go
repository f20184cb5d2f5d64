package cli

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"lotto-crawler/internal/batch"
	"lotto-crawler/internal/config"
	"lotto-crawler/internal/dataset"
	"lotto-crawler/internal/export"
	"lotto-crawler/internal/fetch"
	"lotto-crawler/internal/game"
	"lotto-crawler/internal/logx"
	"lotto-crawler/internal/model"
	"lotto-crawler/internal/parse"
	"lotto-crawler/internal/store"
)

type crawlFlags struct {
	games     []string
	url       string
	file      string
	archive   string
	maxMonths int
	format    string
	output    string
	saveHTML  string
	reset     bool
}

func (a *app) crawlCmd() *cobra.Command {
	var f crawlFlags
	cmd := &cobra.Command{
		Use:   "crawl",
		Short: "Fetches the current month and walks back through past months.",
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("max-months") {
				a.cfg.MaxMonths = f.maxMonths
			}
			if f.format != "" {
				a.cfg.Output.Format = f.format
			}
			if f.output != "" {
				a.cfg.Output.Path = f.output
			}
			if f.saveHTML != "" {
				a.cfg.Fetch.DebugDir = f.saveHTML
			}
			if err := a.cfg.Validate(); err != nil {
				return err
			}
			return a.crawl(cmd.Context(), f)
		},
	}
	fl := cmd.Flags()
	fl.StringSliceVarP(&f.games, "game", "g", nil, "game to crawl (repeatable): 649, max, western649, westernmax, dailygrand")
	fl.StringVar(&f.url, "url", "", "start page url (single game only)")
	fl.StringVar(&f.file, "file", "", "saved current-month page to parse instead of fetching (single game only)")
	fl.StringVar(&f.archive, "archive", "", "directory of saved pages used instead of the network")
	fl.IntVar(&f.maxMonths, "max-months", 0, "past months to walk beyond the current one (0 = all)")
	fl.StringVar(&f.format, "format", "", "output format: csv, json, sqlite or all")
	fl.StringVarP(&f.output, "output", "o", "", "output path prefix")
	fl.StringVar(&f.saveHTML, "save-html", "", "directory to save fetched pages into")
	fl.BoolVar(&f.reset, "reset", false, "clear the sqlite tables before crawling")
	return cmd
}

func (a *app) crawl(ctx context.Context, f crawlFlags) error {
	variants, err := a.variants(f.games)
	if err != nil {
		return err
	}
	if (f.url != "" || f.file != "") && len(variants) != 1 {
		return fmt.Errorf("--url and --file need exactly one --game, got %d", len(variants))
	}

	src, err := a.source(f.archive)
	if err != nil {
		return err
	}

	var db *store.SQLite
	if a.wants("sqlite") {
		db, err = store.OpenSQLite(a.cfg.Database.DSN)
		if err != nil {
			return err
		}
		defer db.Close()
		if f.reset {
			if err := db.Reset(ctx); err != nil {
				return fmt.Errorf("reset database: %w", err)
			}
			logx.Infof("已清空数据库表（draws/runs）")
		}
	}
	var ds *dataset.Accessor
	if db != nil {
		ds = dataset.New(db, a.cfg.CacheTTL)
	}

	parser := parse.New(a.rules)
	var summaries []model.Summary
	for _, v := range variants {
		if ctx.Err() != nil {
			break
		}
		sinks, seeders := a.sinks(v, db)
		start := f.url
		if start == "" {
			start = a.cfg.URLFor(v)
		}
		logx.Infof("开始抓取 %s：%s", v.Spec().Name, start)
		res, err := batch.New(src, parser, batch.Options{
			Game:      v,
			StartURL:  start,
			StartFile: f.file,
			MaxMonths: a.cfg.MaxMonths,
			Seeder:    seeders,
			Progress: func(e batch.Event) {
				if e.State == batch.StateFetchNext {
					logx.Infof("[%s] 第 %d 个历史月份：%s", e.Game, e.Month, e.URL)
				}
			},
		}).Run(ctx)
		if err != nil {
			return err
		}
		// 取消时仍写出部分结果
		if err := sinks.Write(context.WithoutCancel(ctx), res.Records); err != nil {
			return fmt.Errorf("write %s: %w", v, err)
		}
		if db != nil {
			if err := db.RecordRun(context.WithoutCancel(ctx), res.Summary); err != nil {
				logx.Warnf("保存批次汇总失败：%v", err)
			}
			ds.Invalidate(v)
		}
		summaries = append(summaries, res.Summary)
	}
	a.printSummaries(summaries)
	if ds != nil && len(summaries) > 0 {
		if err := a.printGameSummaries(context.WithoutCancel(ctx), ds, db, variants[:len(summaries)]); err != nil {
			logx.Warnf("统计摘要失败：%v", err)
		}
	}
	for _, s := range summaries {
		for _, ff := range s.FetchFailures {
			logx.Warnf("[%s] 抓取失败 %s（%s）：%s", s.Game, ff.URL, ff.Kind, ff.Reason)
		}
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}
	return nil
}

// variants 解析命令行指定的玩法，未指定时使用配置中的 GAMES。
func (a *app) variants(names []string) ([]game.Variant, error) {
	if len(names) == 0 {
		return a.cfg.Variants()
	}
	return config.ParseGames(names)
}

// source 返回页面来源：指定存档目录时离线读取，否则在线抓取。
func (a *app) source(archive string) (fetch.Source, error) {
	if archive != "" {
		return fetch.NewArchive(archive), nil
	}
	var debug *fetch.DebugStore
	if dir := a.cfg.Fetch.DebugDir; dir != "" {
		d, err := fetch.NewDebugStore(dir)
		if err != nil {
			return nil, err
		}
		debug = d
	}
	cl, err := fetch.New(fetch.Options{
		ProxyHTTP:   a.cfg.Proxy.HTTP,
		ProxyHTTPS:  a.cfg.Proxy.HTTPS,
		Timeout:     a.cfg.Fetch.Timeout,
		Attempts:    a.cfg.Fetch.Attempts,
		BaseDelay:   a.cfg.Fetch.BaseDelay,
		MinInterval: a.cfg.Fetch.MinInterval,
		UserAgent:   a.cfg.Fetch.UserAgent,
		Debug:       debug,
	})
	if err != nil {
		return nil, fmt.Errorf("http client: %w", err)
	}
	return cl, nil
}

func (a *app) wants(format string) bool {
	return a.cfg.Output.Format == format || a.cfg.Output.Format == "all"
}

// sinks 按输出格式组装写出目标；每个目标同时用作跨批次去重的指纹来源。
func (a *app) sinks(v game.Variant, db *store.SQLite) (export.Multi, seederSet) {
	var (
		out   export.Multi
		seeds seederSet
	)
	if a.wants("csv") {
		c := export.NewCSV(a.cfg.OutputPath(v, ".csv"))
		out, seeds = append(out, c), append(seeds, c)
	}
	if a.wants("json") {
		j := export.NewJSON(a.cfg.OutputPath(v, ".json"))
		out, seeds = append(out, j), append(seeds, j)
	}
	if db != nil {
		out, seeds = append(out, db), append(seeds, db)
	}
	return out, seeds
}

// seederSet 合并多个来源的指纹。
type seederSet []batch.Seeder

func (s seederSet) Fingerprints(ctx context.Context, v game.Variant) ([]string, error) {
	var all []string
	for _, sd := range s {
		fps, err := sd.Fingerprints(ctx, v)
		if err != nil {
			return nil, err
		}
		all = append(all, fps...)
	}
	return all, nil
}

func (a *app) printSummaries(sums []model.Summary) {
	if len(sums) == 0 {
		return
	}
	t := a.table()
	t.AppendHeader(table.Row{"Game", "Accepted", "Rejected", "Duplicates", "Months", "Links", "Fetch failures", "Empty pages", "Cancelled"})
	for _, s := range sums {
		t.AppendRow(table.Row{s.Game.Spec().Name, s.Accepted, rejectedText(s.Rejected), s.Duplicates,
			s.Months, s.Links, len(s.FetchFailures), s.EmptyPages, s.Cancelled})
	}
	t.Render()
}

// rejectedText 渲染为 "3 (wrong_count=2, out_of_range=1)"。
func rejectedText(m map[string]int) string {
	total := 0
	keys := make([]string, 0, len(m))
	for k, n := range m {
		total += n
		keys = append(keys, k)
	}
	if total == 0 {
		return "0"
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = fmt.Sprintf("%s=%d", k, m[k])
	}
	return fmt.Sprintf("%d (%s)", total, strings.Join(parts, ", "))
}
