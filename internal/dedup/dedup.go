// 包 dedup 计算开奖记录指纹并在单次批次内去重（先到先得）。
package dedup

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/cespare/xxhash/v2"

	"lotto-crawler/internal/model"
)

// Fingerprint 基于 (玩法, 日期, 排序后的号码, 附加号) 计算指纹。
// 号码先排序，源页面顺序不同的同一期开奖得到相同指纹；只应对已校验、已归一的记录调用。
func Fingerprint(r model.DrawRecord) string {
	nums := append([]int(nil), r.Numbers...)
	sort.Ints(nums)
	parts := make([]string, len(nums))
	for i, n := range nums {
		parts[i] = strconv.Itoa(n)
	}
	bonus := ""
	if r.Bonus != nil {
		bonus = strconv.Itoa(*r.Bonus)
	}
	key := strings.Join([]string{string(r.Game), r.DateString(), strings.Join(parts, ","), bonus}, "|")
	return fmt.Sprintf("%016x", xxhash.Sum64String(key))
}

// Set 为一次批次的已见指纹集合，不跨批次共享。
type Set struct {
	seen    map[string]struct{}
	dropped int
}

func NewSet() *Set {
	return &Set{seen: make(map[string]struct{})}
}

// Seed 预置已落盘记录的指纹。
func (s *Set) Seed(fps ...string) {
	for _, fp := range fps {
		if fp != "" {
			s.seen[fp] = struct{}{}
		}
	}
}

// IsDuplicate 判断记录是否已出现；首次出现时记入集合并返回 false。
// 指纹为空时先行计算。
func (s *Set) IsDuplicate(r model.DrawRecord) bool {
	fp := r.Fingerprint
	if fp == "" {
		fp = Fingerprint(r)
	}
	if _, ok := s.seen[fp]; ok {
		s.dropped++
		return true
	}
	s.seen[fp] = struct{}{}
	return false
}

// Dropped 返回被丢弃的重复记录数。
func (s *Set) Dropped() int { return s.dropped }

// Len 返回集合大小（含预置指纹）。
func (s *Set) Len() int { return len(s.seen) }
