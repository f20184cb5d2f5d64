package export

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/require"

	"lotto-crawler/internal/dedup"
	"lotto-crawler/internal/game"
	"lotto-crawler/internal/model"
)

func draw(v game.Variant, date string, nums []int, bonus int) model.DrawRecord {
	b := bonus
	r := model.DrawRecord{Game: v, Numbers: nums, Bonus: &b, SourceURL: "https://x/p"}
	if date != "" {
		d, _ := time.Parse(model.DateLayout, date)
		r.DrawDate = &d
	}
	r.Fingerprint = dedup.Fingerprint(r)
	return r
}

func TestCSV_AppendHeaderOnceAndReadBack(t *testing.T) {
	ctx := context.Background()
	p := filepath.Join(t.TempDir(), "out", "lotto.csv")
	sink := NewCSV(p)
	a := draw(game.Lotto649, "2024-03-02", []int{3, 11, 19, 27, 35, 44}, 8)
	a.GoldBall = "44890771-01"
	b := draw(game.Lotto649, "", []int{1, 2, 3, 4, 5, 6}, 7)
	require.NoError(t, sink.Write(ctx, []model.DrawRecord{a}))
	require.NoError(t, sink.Write(ctx, []model.DrawRecord{b}))

	raw, err := os.ReadFile(p)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(raw)), "\n")
	require.Len(t, lines, 3)
	require.Equal(t, strings.Join(Header, ","), lines[0])
	require.Contains(t, lines[1], ",3-11-19-27-35-44,8,")

	got, err := ReadCSV(p)
	require.NoError(t, err)
	opts := cmpopts.IgnoreFields(model.DrawRecord{}, "ScrapedAt")
	if diff := cmp.Diff([]model.DrawRecord{a, b}, got, opts); diff != "" {
		t.Fatalf("csv round trip (-want +got):\n%s", diff)
	}

	fps, err := sink.Fingerprints(ctx, game.Lotto649)
	require.NoError(t, err)
	require.ElementsMatch(t, []string{a.Fingerprint, b.Fingerprint}, fps)
}

func TestCSV_FingerprintsMissingFile(t *testing.T) {
	fps, err := NewCSV(filepath.Join(t.TempDir(), "none.csv")).Fingerprints(context.Background(), game.LottoMax)
	require.NoError(t, err)
	require.Empty(t, fps)
}

func TestReadCSV_ComputesMissingFingerprint(t *testing.T) {
	p := filepath.Join(t.TempDir(), "legacy.csv")
	require.NoError(t, os.WriteFile(p, []byte("game_variant,draw_date,numbers,bonus_number\nmax,2024-01-02,\"[1, 2, 3, 4, 5, 6, 7]\",9\n"), 0o644))
	got, err := ReadCSV(p)
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.Equal(t, []int{1, 2, 3, 4, 5, 6, 7}, got[0].Numbers)
	require.Equal(t, dedup.Fingerprint(got[0]), got[0].Fingerprint)
}

func TestJSON_MergesByFingerprint(t *testing.T) {
	ctx := context.Background()
	p := filepath.Join(t.TempDir(), "lotto.json")
	sink := NewJSON(p)
	a := draw(game.LottoMax, "2024-03-01", []int{1, 2, 3, 4, 5, 6, 7}, 8)
	b := draw(game.DailyGrand, "2024-03-04", []int{5, 9, 21, 33, 40}, 3)
	require.NoError(t, sink.Write(ctx, []model.DrawRecord{a}))
	require.NoError(t, sink.Write(ctx, []model.DrawRecord{a, b}))

	doc, err := ReadJSON(p)
	require.NoError(t, err)
	require.Len(t, doc.Draws, 2)
	require.Equal(t, 2, doc.Stats.DrawsTotal)
	require.Equal(t, map[string]int{"max": 1, "dailygrand": 1}, doc.Stats.PerGame)

	fps, err := sink.Fingerprints(ctx, game.DailyGrand)
	require.NoError(t, err)
	require.Equal(t, []string{b.Fingerprint}, fps)
}

func TestMulti_StopsOnError(t *testing.T) {
	dir := t.TempDir()
	bad := NewCSV(filepath.Join(dir, "blocker", "x.csv"))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "blocker"), []byte("file"), 0o644))
	good := NewJSON(filepath.Join(dir, "ok.json"))
	err := Multi{bad, good}.Write(context.Background(), []model.DrawRecord{draw(game.Lotto649, "2024-01-01", []int{1, 2, 3, 4, 5, 6}, 7)})
	require.Error(t, err)
	_, statErr := os.Stat(filepath.Join(dir, "ok.json"))
	require.True(t, os.IsNotExist(statErr))
}
