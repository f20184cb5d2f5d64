package export

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"lotto-crawler/internal/dedup"
	"lotto-crawler/internal/game"
	"lotto-crawler/internal/model"
	"lotto-crawler/internal/normalize"
)

// Header 为 CSV 列顺序。
var Header = []string{"game_variant", "draw_date", "numbers", "bonus_number", "source_url", "gold_ball", "fingerprint"}

// CSV 以追加方式写入记录；文件为空时先写表头。
type CSV struct {
	Path string
}

func NewCSV(path string) *CSV { return &CSV{Path: path} }

func (c *CSV) Write(_ context.Context, recs []model.DrawRecord) error {
	if err := os.MkdirAll(filepath.Dir(c.Path), 0o755); err != nil {
		return fmt.Errorf("create dir for %s: %w", c.Path, err)
	}
	f, err := os.OpenFile(c.Path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open %s: %w", c.Path, err)
	}
	defer f.Close()
	fi, err := f.Stat()
	if err != nil {
		return fmt.Errorf("stat %s: %w", c.Path, err)
	}
	w := csv.NewWriter(f)
	if fi.Size() == 0 {
		if err := w.Write(Header); err != nil {
			return fmt.Errorf("write header: %w", err)
		}
	}
	for _, r := range recs {
		if err := w.Write(row(r)); err != nil {
			return fmt.Errorf("write row: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("flush %s: %w", c.Path, err)
	}
	return nil
}

// Fingerprints 返回文件中某游戏的指纹；文件不存在时为空。
func (c *CSV) Fingerprints(_ context.Context, v game.Variant) ([]string, error) {
	recs, err := ReadCSV(c.Path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return fingerprints(recs, v), nil
}

func row(r model.DrawRecord) []string {
	nums := make([]string, len(r.Numbers))
	for i, n := range r.Numbers {
		nums[i] = strconv.Itoa(n)
	}
	bonus := ""
	if r.Bonus != nil {
		bonus = strconv.Itoa(*r.Bonus)
	}
	fp := r.Fingerprint
	if fp == "" {
		fp = dedup.Fingerprint(r)
	}
	return []string{string(r.Game), r.DateString(), strings.Join(nums, "-"), bonus, r.SourceURL, r.GoldBall, fp}
}

// ReadCSV 读回 CSV 记录；号码与附加号经 normalize 转换。
func ReadCSV(path string) ([]model.DrawRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	cr := csv.NewReader(f)
	cr.FieldsPerRecord = -1
	rows, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read csv %s: %w", path, err)
	}
	if len(rows) == 0 {
		return nil, nil
	}
	col := map[string]int{}
	for i, h := range rows[0] {
		col[strings.TrimSpace(h)] = i
	}
	get := func(rec []string, name string) string {
		i, ok := col[name]
		if !ok || i >= len(rec) {
			return ""
		}
		return strings.TrimSpace(rec[i])
	}
	out := make([]model.DrawRecord, 0, len(rows)-1)
	for _, rec := range rows[1:] {
		r := model.DrawRecord{
			Game:        game.Variant(get(rec, "game_variant")),
			Numbers:     normalize.Numbers(get(rec, "numbers")),
			SourceURL:   get(rec, "source_url"),
			GoldBall:    get(rec, "gold_ball"),
			Fingerprint: get(rec, "fingerprint"),
		}
		if d := get(rec, "draw_date"); d != "" {
			if t, err := time.Parse(model.DateLayout, d); err == nil {
				r.DrawDate = &t
			}
		}
		if b, ok := normalize.Int(get(rec, "bonus_number")); ok {
			r.Bonus = &b
		}
		if r.Fingerprint == "" {
			r.Fingerprint = dedup.Fingerprint(r)
		}
		out = append(out, r)
	}
	return out, nil
}
