// 包 fetch 负责页面获取：
// - Client：基于 resty 的在线抓取（代理/超时/浏览器请求头/限速/指数退避重试）
// - Archive：离线读取此前保存的页面
// - DebugStore：可选保存原始页面，便于排查选择器问题
package fetch

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"os"
	"time"

	"github.com/go-resty/resty/v2"
	"golang.org/x/time/rate"

	"lotto-crawler/internal/logx"
)

// Source 为页面来源：在线客户端或离线存档。
type Source interface {
	Get(ctx context.Context, url string) ([]byte, error)
}

// Client 为带重试与限速的 HTTP 客户端。
type Client struct {
	http     *resty.Client
	attempts int
	base     time.Duration
	limiter  *rate.Limiter
	debug    *DebugStore
}

// Options 为客户端构造参数。
type Options struct {
	ProxyHTTP   string
	ProxyHTTPS  string
	Timeout     time.Duration
	Attempts    int           // 含首次请求的尝试上限，默认 3
	BaseDelay   time.Duration // 第 i 次重试前等待 BaseDelay·2^(i-1)
	MinInterval time.Duration // 任意两次请求的最小间隔，0 表示不限速
	UserAgent   string
	Debug       *DebugStore
}

const defaultUA = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36"

// New 创建客户端，支持 http/https 代理与基础超时配置。
func New(opts Options) (*Client, error) {
	for _, p := range []string{opts.ProxyHTTP, opts.ProxyHTTPS} {
		if p == "" {
			continue
		}
		if _, err := url.Parse(p); err != nil {
			return nil, fmt.Errorf("parse proxy %s: %w", p, err)
		}
	}
	transport := &http.Transport{
		Proxy: func(req *http.Request) (*url.URL, error) {
			if req.URL.Scheme == "https" && opts.ProxyHTTPS != "" {
				return url.Parse(opts.ProxyHTTPS)
			}
			if req.URL.Scheme == "http" && opts.ProxyHTTP != "" {
				return url.Parse(opts.ProxyHTTP)
			}
			return http.ProxyFromEnvironment(req)
		},
		DialContext:           (&net.Dialer{Timeout: 10 * time.Second}).DialContext,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: 20 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.Attempts <= 0 {
		opts.Attempts = 3
	}
	// 使用常见浏览器 UA；支持环境变量覆盖（LOTTO_UA）
	ua := os.Getenv("LOTTO_UA")
	if ua == "" {
		ua = opts.UserAgent
	}
	if ua == "" {
		ua = defaultUA
	}
	rc := resty.New().
		SetLogger(restyLogger{}).
		SetTransport(transport).
		SetTimeout(opts.Timeout).
		SetHeaders(map[string]string{
			"User-Agent":                ua,
			"Accept":                    "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8",
			"Accept-Language":           "en-CA,en-US;q=0.7,en;q=0.3",
			"Upgrade-Insecure-Requests": "1",
		})
	lim := rate.NewLimiter(rate.Inf, 1)
	if opts.MinInterval > 0 {
		lim = rate.NewLimiter(rate.Every(opts.MinInterval), 1)
	}
	return &Client{http: rc, attempts: opts.Attempts, base: opts.BaseDelay, limiter: lim, debug: opts.Debug}, nil
}

// Get 抓取页面正文。可重试错误按指数退避重试至上限，不可重试错误立即返回 *Error。
func (c *Client) Get(ctx context.Context, rawURL string) ([]byte, error) {
	if err := checkURL(rawURL); err != nil {
		return nil, &Error{Kind: KindTerminal, URL: rawURL, Err: err}
	}
	var last *Error
	for i := 0; i < c.attempts; i++ {
		if i > 0 {
			d := c.base << (i - 1)
			logx.Debugf("第 %d 次重试前等待 %s：%s", i, d, rawURL)
			if err := sleep(ctx, d); err != nil {
				return nil, err
			}
		}
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}
		logx.Debugf("抓取页面：%s（第 %d/%d 次）", rawURL, i+1, c.attempts)
		res, err := c.http.R().SetContext(ctx).Get(rawURL)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			last = &Error{Kind: KindTransient, URL: rawURL, Attempts: i + 1, Err: err}
			logx.Warnf("抓取失败（可重试）：%s 错误=%v", rawURL, err)
			continue
		}
		code := res.StatusCode()
		if code >= 200 && code < 300 {
			body := res.Body()
			c.debug.Save(rawURL, body)
			return body, nil
		}
		e := &Error{URL: rawURL, Status: code, Attempts: i + 1, Err: fmt.Errorf("http status: %s", res.Status())}
		if !retryableStatus(code) {
			e.Kind = KindTerminal
			return nil, e
		}
		e.Kind = KindTransient
		last = e
		logx.Warnf("抓取失败（可重试）：%s 状态=%d", rawURL, code)
	}
	return nil, last
}

// restyLogger 将 resty 内部日志转到 logx，避免直接写 stderr。
type restyLogger struct{}

func (restyLogger) Errorf(format string, v ...any) { logx.Debugf("resty: "+format, v...) }
func (restyLogger) Warnf(format string, v ...any)  { logx.Debugf("resty: "+format, v...) }
func (restyLogger) Debugf(format string, v ...any) { logx.Debugf("resty: "+format, v...) }

// checkURL 拒绝非 http(s) 或缺少主机名的地址。
func checkURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("malformed url: %w", err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("malformed url: %q", raw)
	}
	return nil
}

// sleep 为确定性等待（无抖动），可被 ctx 取消。
func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Outcome 为一次获取的结果：成功带正文，失败带错误与分类。
type Outcome struct {
	URL  string
	Body []byte
	Err  error
}

func (o Outcome) OK() bool { return o.Err == nil }

// Kind 返回失败分类；成功时为 KindNone。
func (o Outcome) Kind() Kind { return KindOf(o.Err) }

// Do 从来源获取页面并包装为 Outcome。
func Do(ctx context.Context, src Source, rawURL string) Outcome {
	body, err := src.Get(ctx, rawURL)
	return Outcome{URL: rawURL, Body: body, Err: err}
}
