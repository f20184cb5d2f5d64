// 包 normalize 是流水线唯一的类型转换点：
// - Numbers：把各种号码容器（切片/数组/嵌套/数字字符串/分隔串）统一为 []int
// - Int：标量号码（附加号）转换
// - Date：开奖日期文本解析
// 其他组件不得自行做类型转换。
package normalize

import (
	"encoding/json"
	"math"
	"reflect"
	"regexp"
	"strconv"
	"strings"
)

// Numbers 将任意号码表示归一为有序整数序列。
// 对所有输入都不会失败：无法识别的形状返回空序列；结果满足幂等性。
func Numbers(v any) []int {
	out := []int{}
	switch t := v.(type) {
	case nil:
		return out
	case []int:
		return append(out, t...)
	case string:
		return splitDelimited(t)
	case []string:
		for _, s := range t {
			if n, ok := Int(s); ok {
				out = append(out, n)
			}
		}
		return out
	case []any:
		for _, e := range t {
			out = appendElem(out, e)
		}
		return out
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return out
	}
	for i := 0; i < rv.Len(); i++ {
		out = appendElem(out, rv.Index(i).Interface())
	}
	return out
}

// appendElem 处理容器中的一个元素：标量直接追加，子序列展开一层（只保留数值叶子）。
func appendElem(out []int, e any) []int {
	if n, ok := Int(e); ok {
		return append(out, n)
	}
	if !isSeq(e) {
		return out
	}
	rv := reflect.ValueOf(e)
	for i := 0; i < rv.Len(); i++ {
		if n, ok := Int(rv.Index(i).Interface()); ok {
			out = append(out, n)
		}
	}
	return out
}

func isSeq(e any) bool {
	if e == nil {
		return false
	}
	if _, ok := e.(string); ok {
		return false
	}
	k := reflect.TypeOf(e).Kind()
	return k == reflect.Slice || k == reflect.Array
}

var (
	delimRe  = regexp.MustCompile(`[\s,;|\[\]()]+`)
	dashedRe = regexp.MustCompile(`^\d+(-\d+)+$`)
)

// splitDelimited 解析存储层常见的分隔串："1,2,3"、"[1, 2, 3]"、"1 2 3"、"1-2-3"。
// "-" 只在数字之间作分隔符，"-3" 与切片中的 "-3" 一样被丢弃。
func splitDelimited(s string) []int {
	out := []int{}
	for _, part := range delimRe.Split(s, -1) {
		if dashedRe.MatchString(part) {
			for _, d := range strings.Split(part, "-") {
				if n, ok := Int(d); ok {
					out = append(out, n)
				}
			}
			continue
		}
		if n, ok := Int(part); ok {
			out = append(out, n)
		}
	}
	return out
}

// Int 将标量转换为整数：整型、零小数的浮点、纯数字字符串、json.Number。
// 布尔值、非数字字符串、带小数的浮点都返回 false。
func Int(v any) (int, bool) {
	switch t := v.(type) {
	case nil, bool:
		return 0, false
	case int:
		return t, true
	case string:
		return digits(t)
	case json.Number:
		if n, err := t.Int64(); err == nil {
			return int(n), true
		}
		if f, err := t.Float64(); err == nil {
			return wholeFloat(f)
		}
		return 0, false
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return int(rv.Int()), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return int(rv.Uint()), true
	case reflect.Float32, reflect.Float64:
		return wholeFloat(rv.Float())
	case reflect.String:
		return digits(rv.String())
	}
	return 0, false
}

func wholeFloat(f float64) (int, bool) {
	if math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) {
		return 0, false
	}
	return int(f), true
}

// digits 仅接受纯数字（允许首尾空白），"7a"/"-3"/"" 均视为非数字。
func digits(s string) (int, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return 0, false
		}
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, false
	}
	return n, true
}
