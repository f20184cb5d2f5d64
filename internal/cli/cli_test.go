package cli

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"lotto-crawler/internal/export"
	"lotto-crawler/internal/game"
	"lotto-crawler/internal/store"
)

const savedPage = `<html><body><h1>Lotto 6/49 Past Winning Numbers</h1>
<div class="pastWinNumGroup"><div class="pastWinNumDate">Saturday, March 9, 2024</div><ul>
<li class="pastWinNumber">3</li><li class="pastWinNumber">11</li><li class="pastWinNumber">19</li>
<li class="pastWinNumber">27</li><li class="pastWinNumber">35</li><li class="pastWinNumber">44</li>
<li class="pastWinNumberBonus">Bonus 8</li></ul></div>
<div class="pastWinNumGroup"><div class="pastWinNumDate">Wednesday, March 6, 2024</div><ul>
<li class="pastWinNumber">1</li><li class="pastWinNumber">2</li><li class="pastWinNumber">3</li>
<li class="pastWinNumber">4</li><li class="pastWinNumber">5</li><li class="pastWinNumber">6</li>
<li class="pastWinNumberBonus">Bonus 7</li></ul></div>
<a class="pastMonthYearWinners" rel="/winning-numbers/lotto-649-extra.htm?back=1" href="#">February 2024</a>
</body></html>`

func setup(t *testing.T) (dir, cfgPath string) {
	t.Helper()
	os.Unsetenv("LOTTO_DATA_DIR")
	dir = t.TempDir()
	cfgPath = filepath.Join(dir, "settings.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("DATA_DIR: "+dir+"\nLOG_LEVEL: off\n"), 0o644))
	return dir, cfgPath
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	root := NewRoot(&out)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func TestCrawl_SavedDocumentAllSinks(t *testing.T) {
	dir, cfg := setup(t)
	page := filepath.Join(dir, "current.html")
	require.NoError(t, os.WriteFile(page, []byte(savedPage), 0o644))
	archive := filepath.Join(dir, "archive")
	require.NoError(t, os.MkdirAll(archive, 0o755))

	args := []string{"crawl", "--config", cfg, "--rules", "", "--game", "649", "--file", page,
		"--archive", archive, "--format", "all", "--output", filepath.Join(dir, "out", "lotto")}
	out, err := run(t, args...)
	require.NoError(t, err)
	require.Contains(t, out, "Lotto 6/49")
	require.Contains(t, out, "3 1 2 4 5 6")

	recs, err := export.ReadCSV(filepath.Join(dir, "out", "lotto_649.csv"))
	require.NoError(t, err)
	require.Len(t, recs, 2)
	doc, err := export.ReadJSON(filepath.Join(dir, "out", "lotto_649.json"))
	require.NoError(t, err)
	require.Len(t, doc.Draws, 2)

	// 再次运行：已有记录全部按指纹去重
	_, err = run(t, args...)
	require.NoError(t, err)
	recs, err = export.ReadCSV(filepath.Join(dir, "out", "lotto_649.csv"))
	require.NoError(t, err)
	require.Len(t, recs, 2)

	db, err := store.OpenSQLite(filepath.Join(dir, "lottery.db"))
	require.NoError(t, err)
	defer db.Close()
	draws, err := db.ListDraws(context.Background(), game.Lotto649)
	require.NoError(t, err)
	require.Len(t, draws, 2)
	runs, err := db.RunCount(context.Background(), game.Lotto649)
	require.NoError(t, err)
	require.Equal(t, 2, runs)

	out, err = run(t, "summary", "--config", cfg, "--rules", "", "--game", "649")
	require.NoError(t, err)
	require.Contains(t, out, "2024-03-06")
	require.Contains(t, out, "2024-03-09")
}

func TestCrawl_ArgumentErrors(t *testing.T) {
	_, cfg := setup(t)
	_, err := run(t, "crawl", "--config", cfg, "--game", "keno")
	require.ErrorIs(t, err, game.ErrUnknown)

	_, err = run(t, "crawl", "--config", cfg, "--game", "649", "--game", "max", "--url", "http://x/")
	require.ErrorContains(t, err, "exactly one --game")

	_, err = run(t, "crawl", "--config", cfg, "--format", "xml")
	require.ErrorContains(t, err, "unsupported output format")
}

func TestSummary_DefaultsToConfiguredGames(t *testing.T) {
	dir, _ := setup(t)
	cfg := filepath.Join(dir, "max.yaml")
	require.NoError(t, os.WriteFile(cfg, []byte("DATA_DIR: "+dir+"\nLOG_LEVEL: off\nGAMES: [max, dailygrand]\n"), 0o644))
	out, err := run(t, "summary", "--config", cfg, "--rules", "")
	require.NoError(t, err)
	require.Contains(t, out, "Lotto Max")
	require.Contains(t, out, "Daily Grand")
	require.NotContains(t, out, "Lotto 6/49")
}

func TestLinks_PrintsMonthLinks(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(savedPage))
	}))
	defer srv.Close()
	_, cfg := setup(t)
	out, err := run(t, "links", "--config", cfg, "--rules", "", "--url", srv.URL+"/winning-numbers/lotto-649-extra.htm")
	require.NoError(t, err)
	require.Contains(t, out, srv.URL+"/winning-numbers/lotto-649-extra.htm?back=1")
	require.Contains(t, out, "February 2024")
	require.True(t, strings.Contains(strings.ToLower(out), "draws on page"))
}

func TestRejectedText(t *testing.T) {
	require.Equal(t, "0", rejectedText(nil))
	require.Equal(t, "3 (out_of_range=1, wrong_count=2)", rejectedText(map[string]int{"wrong_count": 2, "out_of_range": 1}))
}
