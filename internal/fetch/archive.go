package fetch

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/cespare/xxhash/v2"

	"lotto-crawler/internal/logx"
)

var unsafeChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// Key 将 URL 映射为存档文件名，DebugStore 与 Archive 共用。
func Key(rawURL string) string {
	s := rawURL
	if i := strings.Index(s, "://"); i >= 0 {
		s = s[i+3:]
	}
	s = strings.Trim(unsafeChars.ReplaceAllString(s, "_"), "_")
	if len(s) > 120 {
		s = fmt.Sprintf("%s_%016x", s[:100], xxhash.Sum64String(rawURL))
	}
	return s + ".html"
}

// DebugStore 保存抓取到的原始页面。写入失败只记日志，不影响解析。
type DebugStore struct {
	dir string
}

// NewDebugStore 创建（必要时新建目录）调试存储。
func NewDebugStore(dir string) (*DebugStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create debug dir %s: %w", dir, err)
	}
	return &DebugStore{dir: dir}, nil
}

// Save 写入页面；nil 接收者为空操作。
func (d *DebugStore) Save(rawURL string, body []byte) {
	if d == nil {
		return
	}
	p := filepath.Join(d.dir, Key(rawURL))
	if err := os.WriteFile(p, body, 0o644); err != nil {
		logx.Warnf("保存调试页面失败：%s 错误=%v", p, err)
		return
	}
	logx.Debugf("已保存调试页面：%s", p)
}

// Archive 从目录读取此前保存的页面，文件名规则同 Key。
type Archive struct {
	dir string
}

func NewArchive(dir string) *Archive { return &Archive{dir: dir} }

// Get 读取存档页面；缺失视为不可重试失败。
func (a *Archive) Get(ctx context.Context, rawURL string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p := filepath.Join(a.dir, Key(rawURL))
	b, err := os.ReadFile(p)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, &Error{Kind: KindTerminal, URL: rawURL, Attempts: 1, Err: fmt.Errorf("not archived: %s", p)}
		}
		return nil, &Error{Kind: KindTerminal, URL: rawURL, Attempts: 1, Err: err}
	}
	return b, nil
}

// ReadFile 读取单个已保存的页面（如 --file 指定的当月页面）。
func ReadFile(path string) ([]byte, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read saved document %s: %w", path, err)
	}
	if len(b) == 0 {
		return nil, fmt.Errorf("read saved document %s: empty file", path)
	}
	if !LooksLikeResults(b) {
		logx.Warnf("页面 %s 可能不包含开奖数据", path)
	}
	return b, nil
}

var indicators = []string{
	"winning numbers", "draw", "lotto", "jackpot", "bonus",
	"wclc", "lottery", "numbers", "draw date", "past winning numbers",
}

// LooksLikeResults 粗略判断页面是否为开奖结果页（至少命中 3 个关键词）。仅用于告警。
func LooksLikeResults(body []byte) bool {
	lower := strings.ToLower(string(body))
	n := 0
	for _, ind := range indicators {
		if strings.Contains(lower, ind) {
			n++
		}
	}
	return n >= 3
}
