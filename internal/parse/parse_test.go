package parse

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	"lotto-crawler/internal/game"
	"lotto-crawler/internal/rules"
)

const page649 = `<!doctype html><html><body>
<div class="pastWinNumGroup">
  <div class="pastWinNumDate">Saturday, March 2, 2024</div>
  <ul>
    <li class="pastWinNumber">3</li><li class="pastWinNumber">11</li><li class="pastWinNumber">19</li>
    <li class="pastWinNumber">27</li><li class="pastWinNumber">35</li><li class="pastWinNumber">44</li>
    <li class="pastWinNumber pastWinNumberBonus">Bonus 8</li>
  </ul>
  <div class="pastWinNumGPDNumber">Gold Ball 44890771-01</div>
</div>
<div class="pastWinNumGroup">
  <div class="pastWinNumDate">Wednesday, February 28, 2024</div>
  <ul>
    <li class="pastWinNumber">1</li><li class="pastWinNumber">2</li><li class="pastWinNumber">3</li>
    <li class="pastWinNumber">4</li><li class="pastWinNumber">5</li>
    <li class="pastWinNumberBonus">6</li>
  </ul>
</div>
</body></html>`

func TestParse_SiteLayout(t *testing.T) {
	p := New(nil)
	got, err := p.Parse([]byte(page649), game.Lotto649, "https://x/649")
	require.NoError(t, err)
	require.Len(t, got, 2)

	first := got[0]
	require.Equal(t, "Saturday, March 2, 2024", first.DateText)
	if diff := cmp.Diff([]any{"3", "11", "19", "27", "35", "44"}, first.Numbers); diff != "" {
		t.Fatalf("numbers mismatch (-want +got):\n%s", diff)
	}
	require.Equal(t, "8", first.BonusText)
	require.Equal(t, "44890771-01", first.GoldBall)
	require.Equal(t, "https://x/649", first.SourceURL)
	require.Equal(t, game.Lotto649, first.Game)

	// 号码个数不对的块原样交给校验器
	require.Len(t, got[1].Numbers, 5)
	require.Equal(t, 1, got[1].BlockIndex)
}

func TestParse_EmptyPage(t *testing.T) {
	got, err := New(nil).Parse([]byte(`<html><body><p>No draws this month</p></body></html>`), game.LottoMax, "u")
	require.NoError(t, err)
	require.NotNil(t, got)
	require.Empty(t, got)
}

func TestParse_UnclassedListFallback(t *testing.T) {
	html := `<div class="pastWinNum"><div class="pastWinNumDate">Jan 5, 2024</div>
	<ul><li>5</li><li>9</li><li>14</li><li>22</li><li>41</li><li>Grand Number 3</li></ul></div>`
	got, err := New(nil).Parse([]byte(html), game.DailyGrand, "u")
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.Equal(t, []any{"5", "9", "14", "22", "41"}, got[0].Numbers)
	require.Equal(t, "3", got[0].BonusText)
	require.Empty(t, got[0].GoldBall)
}

func TestParse_DelimitedCellAndDateFromText(t *testing.T) {
	html := `<div class="max-result"><p>Draw of Mar 8, 2024</p>
	<span class="number">1 - 7 - 12 - 20 - 33 - 40 - 49</span><span class="bonus">Bonus: 17</span></div>`
	got, err := New(nil).Parse([]byte(html), game.LottoMax, "u")
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.Equal(t, "Mar 8, 2024", got[0].DateText)
	require.Equal(t, []any{"1", "7", "12", "20", "33", "40", "49"}, got[0].Numbers)
	require.Equal(t, "17", got[0].BonusText)
}

func TestParse_NestedGroups(t *testing.T) {
	html := `<table><tr class="draw-row"><td class="date">2024-03-02</td>
	<td class="number"><span>4</span><span>8</span><span>15</span></td>
	<td class="number"><span>16</span><span>23</span><span>42</span></td>
	<td class="bonus">9</td></tr></table>`
	got, err := New(nil).Parse([]byte(html), game.Lotto649, "u")
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.Equal(t, []any{[]any{"4", "8", "15"}, []any{"16", "23", "42"}}, got[0].Numbers)
	require.Equal(t, "2024-03-02", got[0].DateText)
}

func TestParse_CustomRulesTakePrecedence(t *testing.T) {
	r := rules.Default()
	gr := r.Games[game.Western649]
	gr.Layouts = append([]rules.Layout{{Block: "article", Date: "time@datetime", Numbers: "b", Bonus: "i"}}, gr.Layouts...)
	r.Games[game.Western649] = gr
	html := `<article><time datetime="2024-01-03">Jan 3</time><b>1</b><b>2</b><b>3</b><b>4</b><b>5</b><b>6</b><i>7</i></article>`
	got, err := New(r).Parse([]byte(html), game.Western649, "u")
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.Equal(t, "2024-01-03", got[0].DateText)
	require.Equal(t, "7", got[0].BonusText)
}

func TestGetVal_FallbackAndAttr(t *testing.T) {
	doc, err := Load([]byte(`<div class="it" data-href="/x"><a class="nm2" href="/ok">NM</a><span class="nm1">X</span></div>`))
	require.NoError(t, err)
	s := doc.Find(".it")
	require.Equal(t, "X", getVal(s, ".nm0||.nm1||."))
	require.Equal(t, "/ok", getVal(s, "a@href||@data-href"))
	require.Equal(t, "/x", getVal(s, "@data-href"))
	require.Equal(t, "", getVal(s, ".missing||img@src"))
}
