// 包 cli 定义命令行：crawl（抓取）、links（调试月份链接发现）、summary（统计摘要）。
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"lotto-crawler/internal/config"
	"lotto-crawler/internal/logx"
	"lotto-crawler/internal/rules"
)

type app struct {
	configPath string
	rulesPath  string
	out        io.Writer

	cfg   *config.Config
	rules *rules.Rules
}

// NewRoot 构造根命令；out 为表格输出位置。
func NewRoot(out io.Writer) *cobra.Command {
	if out == nil {
		out = os.Stdout
	}
	a := &app{out: out}
	root := &cobra.Command{
		Use:           "lotto-crawler",
		Short:         "Scrapes WCLC past winning numbers into CSV, JSON or SQLite.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.load()
		},
	}
	root.PersistentFlags().StringVar(&a.configPath, "config", "settings.yaml", "path to settings.yaml")
	root.PersistentFlags().StringVar(&a.rulesPath, "rules", "rules.yaml", "path to rules.yaml (optional)")
	root.AddCommand(a.crawlCmd(), a.linksCmd(), a.summaryCmd())
	return root
}

// Execute 运行命令并在出错时以非零码退出。
func Execute(ctx context.Context) {
	if err := NewRoot(os.Stdout).ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// load 读取配置与规则并初始化日志。规则文件缺失时使用内置规则。
func (a *app) load() error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	a.cfg = cfg
	logx.Init(cfg.LogLevel, cfg.LogFormat, cfg.LogLocale, cfg.LogColor)

	a.rules = rules.Default()
	if a.rulesPath != "" {
		r, err := rules.Load(a.rulesPath)
		switch {
		case err == nil:
			a.rules = r
		case errors.Is(err, fs.ErrNotExist):
			logx.Debugf("未找到规则文件 %s，使用内置规则", a.rulesPath)
		default:
			logx.Warnf("加载规则失败，使用内置规则：%v", err)
		}
	}
	return nil
}

func (a *app) table() table.Writer {
	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	t.SetOutputMirror(a.out)
	return t
}
