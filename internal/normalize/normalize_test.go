package normalize

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

func TestNumbers_Shapes(t *testing.T) {
	cases := []struct {
		name string
		in   any
		want []int
	}{
		{"ints", []int{1, 2, 3}, []int{1, 2, 3}},
		{"numeric strings", []string{"1", "2", "3"}, []int{1, 2, 3}},
		{"strings with junk", []string{"4", "x", "", "5"}, []int{4, 5}},
		{"int64 slice", []int64{7, 8}, []int{7, 8}},
		{"float array", [3]float64{1, 2, 3}, []int{1, 2, 3}},
		{"fractional float dropped", []float64{1, 2.5}, []int{1}},
		{"any mixed", []any{1, "2", 3.0, nil, "z", json.Number("4")}, []int{1, 2, 3, 4}},
		{"nested", []any{[]any{"1", "2"}, []int{3}, "4"}, []int{1, 2, 3, 4}},
		{"nested ints", [][]int{{1, 2}, {3}}, []int{1, 2, 3}},
		{"deep nesting dropped", []any{[]any{[]any{1}}, 2}, []int{2}},
		{"stored csv", "1-2-3", []int{1, 2, 3}},
		{"stored list", "[10, 20, 30]", []int{10, 20, 30}},
		{"dashed with spaces", "1-2 3-4", []int{1, 2, 3, 4}},
		{"negative token dropped", "-3", []int{}},
		{"negative in list dropped", "[1, -3, 4]", []int{1, 4}},
		{"trailing dash dropped", "1-2-", []int{}},
		{"nil", nil, []int{}},
		{"empty", []any{}, []int{}},
		{"unknown shape", map[string]int{"a": 1}, []int{}},
		{"bare scalar", 5, []int{}},
		{"bool slice", []bool{true}, []int{}},
	}
	for _, c := range cases {
		got := Numbers(c.in)
		if diff := cmp.Diff(c.want, got); diff != "" {
			t.Fatalf("%s: mismatch (-want +got):\n%s", c.name, diff)
		}
	}
}

func TestNumbers_Idempotent(t *testing.T) {
	inputs := []any{
		[]int{5, 1, 3}, []string{"1", "2"}, []any{[]any{"9"}, 4.0}, "1,2,3", nil, struct{}{}, []uint8{1, 2},
	}
	for _, in := range inputs {
		once := Numbers(in)
		twice := Numbers(once)
		require.Equal(t, once, twice)
		require.NotNil(t, once)
	}
}

func TestNumbers_StringAndIntAgree(t *testing.T) {
	require.Equal(t, Numbers([]int{1, 2, 3}), Numbers([]string{"1", "2", "3"}))
	require.Equal(t, Numbers([]int{1, 2, 3}), Numbers([]int32{1, 2, 3}))
	require.Equal(t, Numbers([]string{"-3"}), Numbers("-3"))
	require.Equal(t, Numbers([]string{"5", "-3"}), Numbers("5,-3"))
}

func TestNumbers_DoesNotAlias(t *testing.T) {
	in := []int{1, 2}
	out := Numbers(in)
	out[0] = 99
	require.Equal(t, 1, in[0])
}

func TestInt(t *testing.T) {
	n, ok := Int(" 12 ")
	require.True(t, ok)
	require.Equal(t, 12, n)
	_, ok = Int("-3")
	require.False(t, ok)
	_, ok = Int(true)
	require.False(t, ok)
	n, ok = Int(float32(8))
	require.True(t, ok)
	require.Equal(t, 8, n)
}

func TestDate(t *testing.T) {
	want := time.Date(2024, 3, 2, 0, 0, 0, 0, time.UTC)
	for _, in := range []string{
		"Mar 2, 2024",
		"Saturday, March 2, 2024",
		"2024-03-02",
		"03/02/2024",
		"March 2nd, 2024",
		"Sat. Mar. 2, 2024 - Draw #1234",
	} {
		got, err := Date(in)
		require.NoError(t, err, in)
		require.NotNil(t, got, in)
		require.True(t, want.Equal(*got), "%s -> %v", in, got)
	}

	got, err := Date("   ")
	require.NoError(t, err)
	require.Nil(t, got)

	_, err = Date("next week")
	require.ErrorIs(t, err, ErrBadDate)
}
