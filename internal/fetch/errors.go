package fetch

import (
	"errors"
	"fmt"
)

// Kind 区分可重试与不可重试的抓取失败。
type Kind int

const (
	KindNone      Kind = iota
	KindTransient      // 超时、连接错误、5xx、429
	KindTerminal       // 其余 4xx、非法 URL、存档中不存在的页面
)

func (k Kind) String() string {
	switch k {
	case KindTransient:
		return "transient"
	case KindTerminal:
		return "terminal"
	default:
		return "none"
	}
}

var (
	ErrTransient = errors.New("transient fetch failure")
	ErrTerminal  = errors.New("terminal fetch failure")
)

// Error 为一次抓取（含全部重试）的最终失败。
type Error struct {
	Kind     Kind
	URL      string
	Status   int
	Attempts int
	Err      error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("fetch %s (%s", e.URL, e.Kind)
	if e.Status != 0 {
		msg += fmt.Sprintf(", status %d", e.Status)
	}
	if e.Attempts > 0 {
		msg += fmt.Sprintf(", %d attempts", e.Attempts)
	}
	msg += ")"
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// Is 使 errors.Is(err, ErrTransient/ErrTerminal) 按 Kind 匹配。
func (e *Error) Is(target error) bool {
	switch target {
	case ErrTransient:
		return e.Kind == KindTransient
	case ErrTerminal:
		return e.Kind == KindTerminal
	}
	return false
}

// KindOf 返回错误对应的 Kind；非抓取错误返回 KindNone。
func KindOf(err error) Kind {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Kind
	}
	return KindNone
}

// retryableStatus 判断 HTTP 状态码是否值得重试。
func retryableStatus(code int) bool {
	return code == 429 || code >= 500
}
