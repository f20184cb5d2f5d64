// 包 logx 封装 slog：
// - 级别/格式/语言/颜色由配置决定
// - pretty 格式输出到 stderr，stdout 留给命令的表格与导出
// - 通过 Debugf/Infof/Warnf/Errorf 与 With 暴露，调用方不直接依赖 slog
package logx

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"
)

// LevelOff 高于所有级别，用于静默。
const LevelOff slog.Level = 100

// Options 为日志初始化参数。
type Options struct {
	Level  string    // debug|info|warn|error|off
	Format string    // pretty|json|text
	Locale string    // zh-CN|en
	Color  string    // auto|always|never
	Writer io.Writer // 默认 os.Stderr
}

// Setup 构造日志器并设为全局默认。
func Setup(o Options) *slog.Logger {
	w := o.Writer
	if w == nil {
		w = os.Stderr
	}
	lv := ParseLevel(o.Level)
	hopts := &slog.HandlerOptions{Level: lv}
	var h slog.Handler
	switch strings.ToLower(strings.TrimSpace(o.Format)) {
	case "json":
		h = slog.NewJSONHandler(w, hopts)
	case "text":
		h = slog.NewTextHandler(w, hopts)
	default:
		h = NewPrettyHandler(w, lv, o.Locale, o.Color)
	}
	l := slog.New(h)
	slog.SetDefault(l)
	return l
}

// Init 按字符串参数初始化，输出到 stderr。
func Init(level, format, locale, colorMode string) {
	Setup(Options{Level: level, Format: format, Locale: locale, Color: colorMode})
}

// ParseLevel 解析级别名，未知值按 info 处理。
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	case "off", "none", "silent":
		return LevelOff
	default:
		return slog.LevelInfo
	}
}

func Debugf(format string, v ...any) { logf(slog.LevelDebug, format, v...) }
func Infof(format string, v ...any)  { logf(slog.LevelInfo, format, v...) }
func Warnf(format string, v ...any)  { logf(slog.LevelWarn, format, v...) }
func Errorf(format string, v ...any) { logf(slog.LevelError, format, v...) }

// With 返回带固定属性的日志器，如 logx.With("run", id)。
func With(args ...any) *slog.Logger { return slog.Default().With(args...) }

func logf(l slog.Level, format string, v ...any) {
	ctx := context.Background()
	lg := slog.Default()
	if !lg.Enabled(ctx, l) {
		return
	}
	lg.Log(ctx, l, fmt.Sprintf(format, v...))
}

// PrettyHandler 为人读的单行输出：时间 等级 消息 k=v...
type PrettyHandler struct {
	w      io.Writer
	level  slog.Leveler
	labels map[slog.Level]string
	color  bool
	mu     *sync.Mutex
	attrs  []slog.Attr
	prefix string
}

// NewPrettyHandler 创建 pretty Handler；locale 以 zh 开头时使用中文等级标签。
func NewPrettyHandler(w io.Writer, lv slog.Leveler, locale, colorMode string) *PrettyHandler {
	if w == nil {
		w = os.Stderr
	}
	if lv == nil {
		lv = slog.LevelInfo
	}
	return &PrettyHandler{
		w:      w,
		level:  lv,
		labels: labelsFor(locale),
		color:  shouldColor(w, colorMode),
		mu:     &sync.Mutex{},
	}
}

func (h *PrettyHandler) Enabled(_ context.Context, l slog.Level) bool {
	min := h.level.Level()
	return min < LevelOff && l >= min
}

func (h *PrettyHandler) Handle(_ context.Context, r slog.Record) error {
	var buf bytes.Buffer
	ts := r.Time
	if ts.IsZero() {
		ts = time.Now()
	}
	buf.WriteString(ts.Format("2006-01-02 15:04:05"))
	buf.WriteByte(' ')
	lvl := h.label(r.Level)
	if h.color {
		lvl = colorize(lvl, r.Level)
	}
	buf.WriteString(lvl)
	buf.WriteByte(' ')
	buf.WriteString(r.Message)
	for _, a := range h.attrs {
		writeAttr(&buf, "", a)
	}
	r.Attrs(func(a slog.Attr) bool {
		writeAttr(&buf, h.prefix, a)
		return true
	})
	buf.WriteByte('\n')

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := h.w.Write(buf.Bytes())
	return err
}

func (h *PrettyHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	cp := *h
	cp.attrs = make([]slog.Attr, 0, len(h.attrs)+len(attrs))
	cp.attrs = append(cp.attrs, h.attrs...)
	for _, a := range attrs {
		if h.prefix != "" {
			a.Key = h.prefix + a.Key
		}
		cp.attrs = append(cp.attrs, a)
	}
	return &cp
}

func (h *PrettyHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	cp := *h
	cp.prefix = h.prefix + name + "."
	return &cp
}

func (h *PrettyHandler) label(l slog.Level) string {
	if s, ok := h.labels[l]; ok {
		return s
	}
	return fmt.Sprintf("[L%d]", l)
}

// writeAttr 展平分组属性；含空白的值加引号。
func writeAttr(buf *bytes.Buffer, prefix string, a slog.Attr) {
	a.Value = a.Value.Resolve()
	if a.Equal(slog.Attr{}) {
		return
	}
	if a.Value.Kind() == slog.KindGroup {
		p := prefix
		if a.Key != "" {
			p += a.Key + "."
		}
		for _, g := range a.Value.Group() {
			writeAttr(buf, p, g)
		}
		return
	}
	v := a.Value.String()
	if a.Value.Kind() == slog.KindTime {
		v = a.Value.Time().Format(time.RFC3339)
	}
	if v == "" || strings.ContainsAny(v, " \t\n\"=") {
		v = strconv.Quote(v)
	}
	buf.WriteByte(' ')
	buf.WriteString(prefix)
	buf.WriteString(a.Key)
	buf.WriteByte('=')
	buf.WriteString(v)
}

var (
	zhLabels = map[slog.Level]string{
		slog.LevelDebug: "[调试]",
		slog.LevelInfo:  "[信息]",
		slog.LevelWarn:  "[警告]",
		slog.LevelError: "[错误]",
	}
	enLabels = map[slog.Level]string{
		slog.LevelDebug: "[DEBUG]",
		slog.LevelInfo:  "[INFO]",
		slog.LevelWarn:  "[WARN]",
		slog.LevelError: "[ERROR]",
	}
)

func labelsFor(locale string) map[slog.Level]string {
	l := strings.ToLower(strings.TrimSpace(locale))
	if l == "" || strings.HasPrefix(l, "zh") {
		return zhLabels
	}
	return enLabels
}

// shouldColor 遵循 NO_COLOR；auto 时仅对终端着色。
func shouldColor(w io.Writer, mode string) bool {
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	switch strings.ToLower(strings.TrimSpace(mode)) {
	case "always":
		return true
	case "auto", "":
		if f, ok := w.(*os.File); ok {
			if fi, err := f.Stat(); err == nil {
				return fi.Mode()&os.ModeCharDevice != 0
			}
		}
	}
	return false
}

var levelColors = map[slog.Level]string{
	slog.LevelDebug: "90",
	slog.LevelInfo:  "36",
	slog.LevelWarn:  "33",
	slog.LevelError: "31",
}

func colorize(s string, l slog.Level) string {
	code, ok := levelColors[l]
	if !ok {
		code = "0"
	}
	return "\x1b[" + code + "m" + s + "\x1b[0m"
}
