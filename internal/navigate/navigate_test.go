package navigate

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	"lotto-crawler/internal/model"
)

const base = "https://www.wclc.com/winning-numbers/lotto-649-extra.htm"

func TestDiscover_PrimaryConvention(t *testing.T) {
	html := `<div class="pastWinNumMonths">
	<a class="pastMonthYearWinners" rel="/winning-numbers/lotto-649-extra.htm?back=1" href="#">February 2024</a>
	<a class="pastMonthYearWinners" rel="/winning-numbers/lotto-649-extra.htm?back=2" href="#">January 2024</a>
	<a class="pastMonthYearWinners" rel="/winning-numbers/lotto-649-extra.htm?back=1" href="#">dup</a>
	<a href="/other.htm?month=1&year=2020">not used</a></div>`
	got, err := Discover([]byte(html), base)
	require.NoError(t, err)
	want := []model.MonthLink{
		{URL: "https://www.wclc.com/winning-numbers/lotto-649-extra.htm?back=1", Label: "February 2024"},
		{URL: "https://www.wclc.com/winning-numbers/lotto-649-extra.htm?back=2", Label: "January 2024"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("links mismatch (-want +got):\n%s", diff)
	}
}

func TestDiscover_ClassWithoutRelFallsBackToHref(t *testing.T) {
	html := `<a class="pastMonthYearWinners" href="lotto-649-extra.htm?back=3">Dec</a>`
	got, err := Discover([]byte(html), base)
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.Equal(t, "https://www.wclc.com/winning-numbers/lotto-649-extra.htm?back=3", got[0].URL)
}

func TestDiscover_BackMarker(t *testing.T) {
	html := `<a href="/home">Home</a><a rel="nofollow" href="/results?back=4">Older</a>`
	got, err := Discover([]byte(html), base)
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.Equal(t, "https://www.wclc.com/results?back=4", got[0].URL)
	require.Equal(t, "Older", got[0].Label)
}

func TestDiscover_MonthContainer(t *testing.T) {
	html := `<nav class="month-nav"><a href="/r/2024-02.htm">Feb</a><a href="#">top</a></nav><a href="/x">x</a>`
	got, err := Discover([]byte(html), base)
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.Equal(t, "https://www.wclc.com/r/2024-02.htm", got[0].URL)
}

func TestDiscover_LowestPriorityOnly(t *testing.T) {
	html := `<p><a href="/contact">Contact</a><a href="results.htm?month=2&amp;year=2024">Feb 2024</a>
	<a href="https://other.example/r?Year=2023&Month=12">Dec 2023</a></p>`
	got, err := Discover([]byte(html), base)
	require.NoError(t, err)
	require.NotEmpty(t, got)
	require.Equal(t, "https://www.wclc.com/winning-numbers/results.htm?month=2&year=2024", got[0].URL)
	require.Equal(t, "https://other.example/r?Year=2023&Month=12", got[1].URL)
}

func TestDiscover_NoLinks(t *testing.T) {
	got, err := Discover([]byte(`<a href="/about">About</a>`), base)
	require.NoError(t, err)
	require.Empty(t, got)
}

func TestAttrString_Shapes(t *testing.T) {
	cases := []struct {
		in   any
		want string
		ok   bool
	}{
		{"?back=1", "?back=1", true},
		{[]string{"?back=1"}, "?back=1", true},
		{[]string{"?back=1", "nofollow"}, "?back=1", true},
		{[]any{"/a", "/b"}, "/a", true},
		{[]string{}, "", false},
		{"", "", false},
		{nil, "", false},
		{42, "", false},
	}
	for _, c := range cases {
		got, ok := AttrString(c.in)
		require.Equal(t, c.ok, ok, "%#v", c.in)
		require.Equal(t, c.want, got, "%#v", c.in)
	}
}

func TestTarget_RelShapesAndHrefFallback(t *testing.T) {
	require.Equal(t, "/m?back=1", Target("/m?back=1", "/h"))
	require.Equal(t, "/m?back=1", Target([]string{"/m?back=1"}, "/h"))
	require.Equal(t, "/m?back=1", Target([]string{"/m?back=1", "extra"}, "/h"))
	require.Equal(t, "/h", Target(nil, "/h"))
	require.Equal(t, "/h", Target([]string{}, "/h"))
	require.Equal(t, "/h", Target([]string{"nofollow"}, "/h"))
	require.Equal(t, "", Target(nil, "#"))
}
