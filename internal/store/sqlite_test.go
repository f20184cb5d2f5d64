package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	"lotto-crawler/internal/dedup"
	"lotto-crawler/internal/game"
	"lotto-crawler/internal/model"
)

func open(t *testing.T) *SQLite {
	t.Helper()
	s, err := OpenSQLite(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func draw(v game.Variant, date string, nums []int, bonus *int) model.DrawRecord {
	r := model.DrawRecord{Game: v, Numbers: nums, Bonus: bonus, SourceURL: "https://x/" + date,
		ScrapedAt: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}
	if date != "" {
		d, _ := time.Parse(model.DateLayout, date)
		r.DrawDate = &d
	}
	r.Fingerprint = dedup.Fingerprint(r)
	return r
}

func intp(n int) *int { return &n }

func TestSQLite_SaveListAndConflict(t *testing.T) {
	s := open(t)
	ctx := context.Background()
	recs := []model.DrawRecord{
		draw(game.Lotto649, "2024-03-02", []int{3, 11, 19, 27, 35, 44}, intp(8)),
		draw(game.Lotto649, "2024-02-28", []int{1, 2, 3, 4, 5, 6}, intp(7)),
		draw(game.Lotto649, "", []int{7, 8, 9, 10, 11, 12}, intp(13)),
	}
	recs[0].GoldBall = "44890771-01"
	n, err := s.SaveDraws(ctx, recs)
	require.NoError(t, err)
	require.Equal(t, 3, n)

	// 重复写入被忽略
	n, err = s.SaveDraws(ctx, recs[:2])
	require.NoError(t, err)
	require.Equal(t, 0, n)

	got, err := s.ListDraws(ctx, game.Lotto649)
	require.NoError(t, err)
	require.Len(t, got, 3)
	require.Nil(t, got[0].DrawDate)
	require.Equal(t, "2024-02-28", got[1].DateString())
	if diff := cmp.Diff(recs[0], got[2]); diff != "" {
		t.Fatalf("round trip mismatch (-want +got):\n%s", diff)
	}

	fps, err := s.Fingerprints(ctx, game.Lotto649)
	require.NoError(t, err)
	require.ElementsMatch(t, []string{recs[0].Fingerprint, recs[1].Fingerprint, recs[2].Fingerprint}, fps)

	none, err := s.Fingerprints(ctx, game.LottoMax)
	require.NoError(t, err)
	require.Empty(t, none)
}

func TestSQLite_WriteComputesFingerprint(t *testing.T) {
	s := open(t)
	ctx := context.Background()
	r := draw(game.DailyGrand, "2024-01-04", []int{5, 9, 21, 33, 40}, intp(3))
	want := r.Fingerprint
	r.Fingerprint = ""
	require.NoError(t, s.Write(ctx, []model.DrawRecord{r}))
	fps, err := s.Fingerprints(ctx, game.DailyGrand)
	require.NoError(t, err)
	require.Equal(t, []string{want}, fps)
}

func TestSQLite_RunsStatsReset(t *testing.T) {
	s := open(t)
	ctx := context.Background()
	require.NoError(t, s.Write(ctx, []model.DrawRecord{
		draw(game.Lotto649, "2024-03-02", []int{1, 2, 3, 4, 5, 6}, intp(7)),
		draw(game.LottoMax, "2024-03-01", []int{1, 2, 3, 4, 5, 6, 7}, intp(8)),
	}))
	sum := model.Summary{RunID: "r1", Game: game.Lotto649, Accepted: 1, Rejected: map[string]int{"wrong_count": 2},
		FetchFailures: []model.FetchFailure{{URL: "u", Kind: "transient"}}}
	require.NoError(t, s.RecordRun(ctx, sum))
	sum.Accepted = 2
	require.NoError(t, s.RecordRun(ctx, sum))
	n, err := s.RunCount(ctx, game.Lotto649)
	require.NoError(t, err)
	require.Equal(t, 1, n)

	st, err := s.Stats(ctx)
	require.NoError(t, err)
	require.Equal(t, 2, st.DrawsTotal)
	require.Equal(t, map[string]int{"649": 1, "max": 1}, st.PerGame)

	require.NoError(t, s.Reset(ctx))
	st, err = s.Stats(ctx)
	require.NoError(t, err)
	require.Zero(t, st.DrawsTotal)
	n, err = s.RunCount(ctx, game.Lotto649)
	require.NoError(t, err)
	require.Zero(t, n)
}

func TestOpenSQLite_CreatesParentDir(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data", "nested", "lottery.db")
	s, err := OpenSQLite(path)
	require.NoError(t, err)
	defer s.Close()
	n, err := s.SaveDraws(context.Background(), []model.DrawRecord{draw(game.LottoMax, "2024-03-08", []int{1, 2, 3, 4, 5, 6, 7}, intp(8))})
	require.NoError(t, err)
	require.Equal(t, 1, n)
	require.FileExists(t, path)
}
