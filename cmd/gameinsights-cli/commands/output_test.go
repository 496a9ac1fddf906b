package commands

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSplitAppidList(t *testing.T) {
	got := splitAppidList("10,20\n30\r\n,, 40 \n")
	require.Equal(t, []string{"10", "20", "30", "40"}, got)
	require.Empty(t, splitAppidList(""))
}

func TestGatherAppids(t *testing.T) {
	path := filepath.Join(t.TempDir(), "appids.txt")
	require.NoError(t, os.WriteFile(path, []byte("20,30\n10"), 0o644))

	got, err := gatherAppids([]string{"10", "20"}, path)
	require.NoError(t, err)
	require.Equal(t, []string{"10", "20", "30"}, got)

	got, err = gatherAppids([]string{"5", "5"}, "")
	require.NoError(t, err)
	require.Equal(t, []string{"5"}, got)

	_, err = gatherAppids(nil, filepath.Join(t.TempDir(), "missing.txt"))
	require.Error(t, err)
}

func TestFormatCell(t *testing.T) {
	for _, tt := range []struct {
		in   any
		want string
	}{
		{nil, ""},
		{"text", "text"},
		{float64(12.5), "12.5"},
		{float64(2358720), "2358720"},
		{-1, "-1"},
		{int64(42), "42"},
		{true, "true"},
		{[]any{"a", "b"}, `["a","b"]`},
		{map[string]any{"k": 1}, `{"k":1}`},
	} {
		require.Equal(t, tt.want, formatCell(tt.in), "input %v", tt.in)
	}
}

func TestIntersectKeepsOrder(t *testing.T) {
	got := intersect([]string{"a", "b", "c", "d"}, []string{"d", "b"})
	require.Equal(t, []string{"b", "d"}, got)
}

func TestProjectRow(t *testing.T) {
	row := map[string]any{"a": 1, "b": 2, "c": 3}
	require.Equal(t, map[string]any{"a": 1, "c": 3}, projectRow(row, []string{"a", "c", "missing"}))
}

func TestUnionColumns(t *testing.T) {
	got := unionColumns([]map[string]any{
		{"b": 1, "a": 2},
		{"c": 3, "a": 4},
	})
	require.Equal(t, []string{"a", "b", "c"}, got)
}

func TestWriteCsv(t *testing.T) {
	var buf bytes.Buffer
	err := writeCsv(&buf, []string{"steam_appid", "name", "tags"}, []map[string]any{
		{"steam_appid": "10", "name": "Mock, Game", "tags": []any{"RPG"}},
		{"steam_appid": "20"},
	})
	require.NoError(t, err)
	require.Equal(t, "steam_appid,name,tags\n10,\"Mock, Game\",\"[\"\"RPG\"\"]\"\n20,,\n", buf.String())
}

func TestWriteJsonIndents(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeJson(&buf, []int{1, 2}))
	require.Equal(t, "[\n  1,\n  2\n]\n", buf.String())
}
