// 包 validate 按玩法规格校验候选记录：接受则产出 DrawRecord，拒绝则给出具体原因。
// 校验不修改输入，只做分类；号码/日期转换统一调用 normalize。
package validate

import (
	"fmt"

	"lotto-crawler/internal/game"
	"lotto-crawler/internal/model"
	"lotto-crawler/internal/normalize"
)

// Reason 为拒绝原因，用于批次汇总按原因计数。
type Reason string

const (
	ReasonUnknownGame      Reason = "unknown_game"
	ReasonMissingNumbers   Reason = "missing_numbers"
	ReasonNullEntry        Reason = "null_entry"
	ReasonWrongCount       Reason = "wrong_count"
	ReasonOutOfRange       Reason = "out_of_range"
	ReasonDuplicateNumber  Reason = "duplicate_number"
	ReasonUnparseableDate  Reason = "unparseable_date"
	ReasonMissingBonus     Reason = "missing_bonus"
	ReasonUnparseableBonus Reason = "unparseable_bonus"
	ReasonBonusOutOfRange  Reason = "bonus_out_of_range"
	ReasonBonusNotDistinct Reason = "bonus_not_distinct"
	ReasonUnexpectedBonus  Reason = "unexpected_bonus"
)

// Rejection 为一次拒绝，Detail 便于逐行诊断日志。
type Rejection struct {
	Reason Reason
	Detail string
}

func (r *Rejection) Error() string { return fmt.Sprintf("%s: %s", r.Reason, r.Detail) }

func reject(reason Reason, format string, args ...any) *Rejection {
	return &Rejection{Reason: reason, Detail: fmt.Sprintf(format, args...)}
}

// Validate 校验候选记录。号码个数必须精确等于玩法规定值，绝不截断或补齐。
// 返回的记录尚未计算指纹。
func Validate(c model.Candidate, v game.Variant) (model.DrawRecord, *Rejection) {
	if !v.Valid() {
		return model.DrawRecord{}, reject(ReasonUnknownGame, "%q", v)
	}
	spec := v.Spec()

	if len(c.Numbers) == 0 {
		return model.DrawRecord{}, reject(ReasonMissingNumbers, "no number tokens")
	}
	nums := normalize.Numbers(c.Numbers)
	if raw := leafCount(c.Numbers); raw > len(nums) {
		return model.DrawRecord{}, reject(ReasonNullEntry, "%d of %d tokens are not numbers", raw-len(nums), raw)
	}
	if len(nums) != spec.Count {
		return model.DrawRecord{}, reject(ReasonWrongCount, "expected %d numbers, got %d", spec.Count, len(nums))
	}
	seen := make(map[int]bool, len(nums))
	for _, n := range nums {
		if n < 1 || n > spec.Max {
			return model.DrawRecord{}, reject(ReasonOutOfRange, "number %d out of range (1-%d)", n, spec.Max)
		}
		if seen[n] {
			return model.DrawRecord{}, reject(ReasonDuplicateNumber, "number %d repeated", n)
		}
		seen[n] = true
	}

	date, err := normalize.Date(c.DateText)
	if err != nil {
		return model.DrawRecord{}, reject(ReasonUnparseableDate, "%q", c.DateText)
	}

	rec := model.DrawRecord{
		Game:      v,
		DrawDate:  date,
		Numbers:   nums,
		GoldBall:  c.GoldBall,
		SourceURL: c.SourceURL,
	}
	if !spec.HasGoldBall {
		rec.GoldBall = ""
	}

	switch {
	case spec.HasBonus && c.BonusText == "":
		return model.DrawRecord{}, reject(ReasonMissingBonus, "bonus number absent")
	case !spec.HasBonus && c.BonusText != "":
		return model.DrawRecord{}, reject(ReasonUnexpectedBonus, "%q", c.BonusText)
	case spec.HasBonus:
		b, ok := normalize.Int(c.BonusText)
		if !ok {
			return model.DrawRecord{}, reject(ReasonUnparseableBonus, "%q", c.BonusText)
		}
		if b < 1 || b > spec.BonusMax {
			return model.DrawRecord{}, reject(ReasonBonusOutOfRange, "bonus %d out of range (1-%d)", b, spec.BonusMax)
		}
		if spec.BonusDistinct && seen[b] {
			return model.DrawRecord{}, reject(ReasonBonusNotDistinct, "bonus %d repeats a main number", b)
		}
		rec.Bonus = &b
	}
	return rec, nil
}

// leafCount 统计原始 token 中的叶子个数（分组展开一层），用于发现无法转换的空值/杂项。
func leafCount(tokens []any) int {
	n := 0
	for _, t := range tokens {
		if g, ok := t.([]any); ok {
			n += len(g)
			continue
		}
		n++
	}
	return n
}
