// 包 export 提供文件型输出：CSV（追加写入）与 JSON（{stats, draws} 文档）。
package export

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"time"

	"lotto-crawler/internal/dedup"
	"lotto-crawler/internal/game"
	"lotto-crawler/internal/model"
)

// Sink 接收一个批次的已接受记录。
type Sink interface {
	Write(ctx context.Context, recs []model.DrawRecord) error
}

// Multi 依次写入多个 Sink，遇错即停。
type Multi []Sink

func (m Multi) Write(ctx context.Context, recs []model.DrawRecord) error {
	for _, s := range m {
		if err := s.Write(ctx, recs); err != nil {
			return err
		}
	}
	return nil
}

// JSON 将记录写为带缩进的 JSON 文档；已有文件中的记录会保留，按指纹合并。
type JSON struct {
	Path string
}

func NewJSON(path string) *JSON { return &JSON{Path: path} }

func (j *JSON) Write(ctx context.Context, recs []model.DrawRecord) error {
	old, err := ReadJSON(j.Path)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return WriteJSON(ctx, merge(old.Draws, recs), j.Path)
}

// Fingerprints 返回文档中某游戏的指纹；文件不存在时为空。
func (j *JSON) Fingerprints(_ context.Context, v game.Variant) ([]string, error) {
	doc, err := ReadJSON(j.Path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return fingerprints(doc.Draws, v), nil
}

// WriteJSON 直接将内存中的记录写成 JSON 文件，附带统计。
func WriteJSON(_ context.Context, draws []model.DrawRecord, path string) error {
	if draws == nil {
		draws = []model.DrawRecord{}
	}
	out := model.Export{Stats: statsOf(draws), Draws: draws}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create dir for %s: %w", path, err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()
	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		return fmt.Errorf("encode json to %s: %w", path, err)
	}
	return nil
}

// ReadJSON 读取 WriteJSON 生成的文档。
func ReadJSON(path string) (model.Export, error) {
	var doc model.Export
	b, err := os.ReadFile(path)
	if err != nil {
		return doc, err
	}
	if err := json.Unmarshal(b, &doc); err != nil {
		return doc, fmt.Errorf("decode json %s: %w", path, err)
	}
	return doc, nil
}

// merge 追加 recs 中指纹未出现过的记录，保持原有顺序。
func merge(old, recs []model.DrawRecord) []model.DrawRecord {
	seen := make(map[string]bool, len(old))
	out := make([]model.DrawRecord, 0, len(old)+len(recs))
	for _, r := range append(append([]model.DrawRecord{}, old...), recs...) {
		fp := r.Fingerprint
		if fp == "" {
			fp = dedup.Fingerprint(r)
			r.Fingerprint = fp
		}
		if seen[fp] {
			continue
		}
		seen[fp] = true
		out = append(out, r)
	}
	return out
}

func statsOf(draws []model.DrawRecord) model.Stats {
	st := model.Stats{DrawsTotal: len(draws), PerGame: map[string]int{}, UpdatedAt: time.Now()}
	for _, d := range draws {
		st.PerGame[string(d.Game)]++
	}
	return st
}

func fingerprints(draws []model.DrawRecord, v game.Variant) []string {
	var out []string
	for _, d := range draws {
		if d.Game != v {
			continue
		}
		fp := d.Fingerprint
		if fp == "" {
			fp = dedup.Fingerprint(d)
		}
		out = append(out, fp)
	}
	sort.Strings(out)
	return out
}
