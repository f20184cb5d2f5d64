// 包 config 负责加载与校验应用配置：
// settings.yaml → settings.local.yaml（合并覆盖）→ .env → LOTTO_* 环境变量。
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"dario.cat/mergo"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"lotto-crawler/internal/game"
)

type Config struct {
	Games     []string          `yaml:"GAMES"`
	GameURLs  map[string]string `yaml:"GAME_URLS"`
	MaxMonths int               `yaml:"MAX_MONTHS"` // 当月之外最多抓取的历史月份，0 表示不限
	DataDir   string            `yaml:"DATA_DIR"`
	Output    Output            `yaml:"OUTPUT"`
	Database  Database          `yaml:"DATABASE"`
	Fetch     Fetch             `yaml:"FETCH"`
	Proxy     Proxy             `yaml:"PROXY"`
	CacheTTL  time.Duration     `yaml:"CACHE_TTL"`
	LogLevel  string            `yaml:"LOG_LEVEL"`
	LogFormat string            `yaml:"LOG_FORMAT"` // text|json|pretty
	LogLocale string            `yaml:"LOG_LOCALE"` // zh-CN|en
	LogColor  string            `yaml:"LOG_COLOR"`  // auto|always|never
}

type Output struct {
	Format string `yaml:"format"` // csv|json|sqlite|all
	Path   string `yaml:"path"`   // 输出文件前缀，不含扩展名
}

type Database struct {
	Type string `yaml:"type"` // sqlite
	DSN  string `yaml:"dsn"`
}

type Fetch struct {
	Attempts    int           `yaml:"attempts"`
	Timeout     time.Duration `yaml:"timeout"`
	BaseDelay   time.Duration `yaml:"base_delay"`
	MinInterval time.Duration `yaml:"min_interval"`
	UserAgent   string        `yaml:"user_agent"`
	DebugDir    string        `yaml:"debug_dir"`
}

type Proxy struct {
	HTTP  string `yaml:"http"`
	HTTPS string `yaml:"https"`
}

// DefaultMinInterval 为在线请求之间的默认最小间隔；显式配置为 0 时不限速。
const DefaultMinInterval = time.Second

var formats = map[string]bool{"csv": true, "json": true, "sqlite": true, "all": true}

// Load 读取 path；同目录的 settings.local.yaml 与 .env 存在时一并加载。
// path 不存在时使用默认值。
func Load(path string) (*Config, error) {
	// 先填入请求间隔默认值，文件中未出现该键时保持不变
	c := Config{Fetch: Fetch{MinInterval: DefaultMinInterval}}
	if err := readYAML(path, &c); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, err
	}
	dir := filepath.Dir(path)
	var local Config
	switch err := readYAML(filepath.Join(dir, localName(path)), &local); {
	case err == nil:
		if err := mergo.Merge(&c, local, mergo.WithOverride); err != nil {
			return nil, fmt.Errorf("merge local config: %w", err)
		}
	case !errors.Is(err, fs.ErrNotExist):
		return nil, err
	}
	if err := godotenv.Load(filepath.Join(dir, ".env")); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}
	if err := c.applyEnv(); err != nil {
		return nil, err
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return &c, nil
}

// localName 由 settings.yaml 得到 settings.local.yaml。
func localName(path string) string {
	base := filepath.Base(path)
	ext := filepath.Ext(base)
	return strings.TrimSuffix(base, ext) + ".local" + ext
}

func readYAML(path string, out *Config) error {
	b, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return err
		}
		return fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(b, out); err != nil {
		return fmt.Errorf("unmarshal config %s: %w", path, err)
	}
	return nil
}

// applyEnv 应用环境变量覆盖（沿用 LOTTO_SCRAPER_* 命名）。
func (c *Config) applyEnv() error {
	if v := os.Getenv("LOTTO_SCRAPER_TIMEOUT"); v != "" {
		d, err := envDuration(v)
		if err != nil {
			return fmt.Errorf("LOTTO_SCRAPER_TIMEOUT: %w", err)
		}
		c.Fetch.Timeout = d
	}
	if v := os.Getenv("LOTTO_SCRAPER_RETRIES"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("LOTTO_SCRAPER_RETRIES: %w", err)
		}
		c.Fetch.Attempts = n
	}
	if v := os.Getenv("LOTTO_BATCH_DELAY"); v != "" {
		d, err := envDuration(v)
		if err != nil {
			return fmt.Errorf("LOTTO_BATCH_DELAY: %w", err)
		}
		c.Fetch.MinInterval = d
	}
	if v := os.Getenv("LOTTO_DATA_DIR"); v != "" {
		c.DataDir = v
	}
	if v := os.Getenv("LOTTO_LOG_LEVEL"); v != "" {
		c.LogLevel = v
	}
	return nil
}

// envDuration 接受 "30s" 或按秒计的数字 "30"/"1.5"。
func envDuration(s string) (time.Duration, error) {
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return time.Duration(f * float64(time.Second)), nil
	}
	return time.ParseDuration(s)
}

// Validate 校验并填充默认值。
func (c *Config) Validate() error {
	if c.MaxMonths < 0 {
		return errors.New("MAX_MONTHS must be >= 0")
	}
	if c.Fetch.Attempts < 0 {
		return errors.New("FETCH.attempts must be >= 0")
	}
	for _, g := range c.Games {
		if _, err := game.Parse(g); err != nil {
			return fmt.Errorf("GAMES: %w", err)
		}
	}
	for g, u := range c.GameURLs {
		if _, err := game.Parse(g); err != nil {
			return fmt.Errorf("GAME_URLS: %w", err)
		}
		if strings.TrimSpace(u) == "" {
			return fmt.Errorf("GAME_URLS: empty url for %s", g)
		}
	}
	if len(c.Games) == 0 {
		c.Games = []string{string(game.Lotto649)}
	}
	if c.DataDir == "" {
		c.DataDir = "./data"
	}
	c.Output.Format = strings.ToLower(strings.TrimSpace(c.Output.Format))
	if c.Output.Format == "" {
		c.Output.Format = "csv"
	}
	if !formats[c.Output.Format] {
		return fmt.Errorf("unsupported output format: %s", c.Output.Format)
	}
	if c.Database.Type == "" {
		c.Database.Type = "sqlite"
	}
	if c.Database.Type != "sqlite" {
		return fmt.Errorf("unsupported database type: %s", c.Database.Type)
	}
	if c.Database.DSN == "" {
		c.Database.DSN = filepath.Join(c.DataDir, "lottery.db")
	}
	if c.Fetch.Attempts == 0 {
		c.Fetch.Attempts = 3
	}
	if c.Fetch.Timeout <= 0 {
		c.Fetch.Timeout = 30 * time.Second
	}
	if c.Fetch.BaseDelay <= 0 {
		c.Fetch.BaseDelay = time.Second
	}
	if c.Fetch.MinInterval < 0 {
		c.Fetch.MinInterval = 0
	}
	if c.CacheTTL <= 0 {
		c.CacheTTL = time.Hour
	}
	if c.LogFormat == "" {
		c.LogFormat = "pretty"
	}
	if c.LogLocale == "" {
		c.LogLocale = "zh-CN"
	}
	if c.LogColor == "" {
		c.LogColor = "auto"
	}
	return nil
}

// Variants 返回已解析的游戏列表（去重，保持顺序）。
func (c *Config) Variants() ([]game.Variant, error) {
	return ParseGames(c.Games)
}

// ParseGames 解析游戏名列表，任一未知即报错。
func ParseGames(names []string) ([]game.Variant, error) {
	seen := map[game.Variant]bool{}
	var out []game.Variant
	for _, n := range names {
		v, err := game.Parse(n)
		if err != nil {
			return nil, err
		}
		if !seen[v] {
			seen[v] = true
			out = append(out, v)
		}
	}
	return out, nil
}

// URLFor 返回游戏的起始页：GAME_URLS 覆盖内置地址。
func (c *Config) URLFor(v game.Variant) string {
	for k, u := range c.GameURLs {
		if g, err := game.Parse(k); err == nil && g == v {
			return u
		}
	}
	return v.Spec().URL
}

// OutputPath 返回某游戏的导出文件路径：<前缀>_<游戏><ext>，ext 形如 ".csv"。
func (c *Config) OutputPath(v game.Variant, ext string) string {
	p := c.Output.Path
	if p == "" {
		p = filepath.Join(c.DataDir, "lottery")
	}
	return p + "_" + string(v) + ext
}
