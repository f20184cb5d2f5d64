// 包 store 提供 SQLite 存储：开奖记录（draws）与批次汇总（runs）。
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"lotto-crawler/internal/dedup"
	"lotto-crawler/internal/game"
	"lotto-crawler/internal/model"
	"lotto-crawler/internal/normalize"
)

// SQLite 封装 *sql.DB，基于 modernc.org/sqlite（纯 Go 实现）。
type SQLite struct {
	db *sql.DB
}

// OpenSQLite 打开数据库并执行自动迁移；文件路径的父目录不存在时先创建。
func OpenSQLite(path string) (*SQLite, error) {
	if isFilePath(path) {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("create db dir: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}
	db.SetMaxOpenConns(1)
	s := &SQLite{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

// isFilePath 排除内存库与 file: URI。
func isFilePath(dsn string) bool {
	return dsn != "" && dsn != ":memory:" && !strings.HasPrefix(dsn, "file:")
}

func (s *SQLite) Close() error { return s.db.Close() }

func (s *SQLite) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS draws (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            game TEXT NOT NULL,
            draw_date TEXT NOT NULL DEFAULT '',
            numbers TEXT NOT NULL,
            bonus INTEGER,
            gold_ball TEXT NOT NULL DEFAULT '',
            source_url TEXT NOT NULL DEFAULT '',
            fingerprint TEXT NOT NULL,
            scraped_at TEXT NOT NULL,
            UNIQUE(game, draw_date, fingerprint)
        );`,
		`CREATE INDEX IF NOT EXISTS idx_draws_game_date ON draws(game, draw_date);`,
		`CREATE TABLE IF NOT EXISTS runs (
            run_id TEXT PRIMARY KEY,
            game TEXT NOT NULL,
            accepted INTEGER NOT NULL,
            rejected TEXT NOT NULL,
            duplicates INTEGER NOT NULL,
            fetch_failures INTEGER NOT NULL,
            empty_pages INTEGER NOT NULL,
            months INTEGER NOT NULL,
            cancelled INTEGER NOT NULL,
            started_at TEXT NOT NULL,
            finished_at TEXT NOT NULL
        );`,
	}
	for _, q := range stmts {
		if _, err := s.db.Exec(q); err != nil {
			return fmt.Errorf("exec migrate: %w", err)
		}
	}
	return nil
}

// Reset 清空全部数据表（不删除数据库文件）。
func (s *SQLite) Reset(ctx context.Context) error {
	for _, t := range []string{"draws", "runs"} {
		if _, err := s.db.ExecContext(ctx, `DELETE FROM `+t); err != nil {
			return fmt.Errorf("delete %s: %w", t, err)
		}
	}
	return nil
}

// Write 实现 export.Sink。
func (s *SQLite) Write(ctx context.Context, recs []model.DrawRecord) error {
	_, err := s.SaveDraws(ctx, recs)
	return err
}

// SaveDraws 在单个事务内写入记录，已存在的（同游戏/日期/指纹）忽略。返回新增条数。
func (s *SQLite) SaveDraws(ctx context.Context, recs []model.DrawRecord) (int, error) {
	if len(recs) == 0 {
		return 0, nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()
	stmt, err := tx.PrepareContext(ctx, `INSERT INTO draws(game, draw_date, numbers, bonus, gold_ball, source_url, fingerprint, scraped_at)
        VALUES(?,?,?,?,?,?,?,?)
        ON CONFLICT(game, draw_date, fingerprint) DO NOTHING`)
	if err != nil {
		return 0, fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()
	inserted := 0
	for _, r := range recs {
		fp := r.Fingerprint
		if fp == "" {
			fp = dedup.Fingerprint(r)
		}
		nums, err := json.Marshal(r.Numbers)
		if err != nil {
			return 0, fmt.Errorf("encode numbers: %w", err)
		}
		var bonus sql.NullInt64
		if r.Bonus != nil {
			bonus = sql.NullInt64{Int64: int64(*r.Bonus), Valid: true}
		}
		res, err := stmt.ExecContext(ctx, string(r.Game), r.DateString(), string(nums), bonus,
			r.GoldBall, r.SourceURL, fp, nowOr(r.ScrapedAt).UTC().Format(time.RFC3339))
		if err != nil {
			return 0, fmt.Errorf("insert draw %s %s: %w", r.Game, r.DateString(), err)
		}
		if n, err := res.RowsAffected(); err == nil {
			inserted += int(n)
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}
	return inserted, nil
}

// Fingerprints 返回某游戏已入库记录的指纹，用于批次前预置去重集合。
func (s *SQLite) Fingerprints(ctx context.Context, v game.Variant) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT fingerprint FROM draws WHERE game = ?`, string(v))
	if err != nil {
		return nil, fmt.Errorf("query fingerprints: %w", err)
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var fp string
		if err := rows.Scan(&fp); err != nil {
			return nil, fmt.Errorf("scan fingerprint: %w", err)
		}
		out = append(out, fp)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate fingerprints: %w", err)
	}
	return out, nil
}

// ListDraws 返回某游戏全部记录，按开奖日期升序（无日期排最前）。号码经 normalize 解码。
func (s *SQLite) ListDraws(ctx context.Context, v game.Variant) ([]model.DrawRecord, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT game, draw_date, numbers, bonus, gold_ball, source_url, fingerprint, scraped_at
        FROM draws WHERE game = ? ORDER BY draw_date, id`, string(v))
	if err != nil {
		return nil, fmt.Errorf("query draws: %w", err)
	}
	defer rows.Close()
	var out []model.DrawRecord
	for rows.Next() {
		var (
			r                   model.DrawRecord
			g, date, nums, when string
			bonus               sql.NullInt64
		)
		if err := rows.Scan(&g, &date, &nums, &bonus, &r.GoldBall, &r.SourceURL, &r.Fingerprint, &when); err != nil {
			return nil, fmt.Errorf("scan draws: %w", err)
		}
		r.Game = game.Variant(g)
		r.Numbers = normalize.Numbers(nums)
		if date != "" {
			if t, err := time.Parse(model.DateLayout, date); err == nil {
				r.DrawDate = &t
			}
		}
		if bonus.Valid {
			b := int(bonus.Int64)
			r.Bonus = &b
		}
		if t, err := time.Parse(time.RFC3339, when); err == nil {
			r.ScrapedAt = t
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate draws: %w", err)
	}
	return out, nil
}

// RecordRun 保存批次汇总。
func (s *SQLite) RecordRun(ctx context.Context, sum model.Summary) error {
	rej, err := json.Marshal(sum.Rejected)
	if err != nil {
		return fmt.Errorf("encode rejected: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `INSERT INTO runs(run_id, game, accepted, rejected, duplicates, fetch_failures, empty_pages, months, cancelled, started_at, finished_at)
        VALUES(?,?,?,?,?,?,?,?,?,?,?)
        ON CONFLICT(run_id) DO UPDATE SET accepted=excluded.accepted, rejected=excluded.rejected,
            duplicates=excluded.duplicates, fetch_failures=excluded.fetch_failures, empty_pages=excluded.empty_pages,
            months=excluded.months, cancelled=excluded.cancelled, finished_at=excluded.finished_at`,
		sum.RunID, string(sum.Game), sum.Accepted, string(rej), sum.Duplicates, len(sum.FetchFailures),
		sum.EmptyPages, sum.Months, sum.Cancelled, nowOr(sum.StartedAt).UTC().Format(time.RFC3339),
		nowOr(sum.FinishedAt).UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("record run %s: %w", sum.RunID, err)
	}
	return nil
}

// RunCount 返回某游戏的批次数量。
func (s *SQLite) RunCount(ctx context.Context, v game.Variant) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM runs WHERE game = ?`, string(v)).Scan(&n); err != nil {
		return 0, fmt.Errorf("count runs: %w", err)
	}
	return n, nil
}

// Stats 统计记录总数与各游戏条数。
func (s *SQLite) Stats(ctx context.Context) (model.Stats, error) {
	st := model.Stats{PerGame: map[string]int{}}
	rows, err := s.db.QueryContext(ctx, `SELECT game, COUNT(1) FROM draws GROUP BY game`)
	if err != nil {
		return st, fmt.Errorf("count draws: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var g string
		var n int
		if err := rows.Scan(&g, &n); err != nil {
			return st, fmt.Errorf("scan stats: %w", err)
		}
		st.PerGame[g] = n
		st.DrawsTotal += n
	}
	if err := rows.Err(); err != nil {
		return st, fmt.Errorf("iterate stats: %w", err)
	}
	st.UpdatedAt = time.Now()
	return st, nil
}

func nowOr(t time.Time) time.Time {
	if t.IsZero() {
		return time.Now()
	}
	return t
}
