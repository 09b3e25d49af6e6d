package report

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"serprank/checker"
)

func TestWriteXLSX(t *testing.T) {
	var buf bytes.Buffer
	err := WriteXLSX(&buf, []checker.RankResult{
		{Success: true, Keyword: "부천치아교정", Rank: 2, Title: "부천 치아교정 후기", Author: "치과맘", Date: "3일 전", PostedOn: "2024-09-07", Section: "블로그", Exposed: true},
		{Success: false, Keyword: "강남임플란트", Message: "tab rank: blocked by search engine"},
	})
	require.NoError(t, err)

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(sheetName)
	require.NoError(t, err)
	require.Len(t, rows, 3)

	assert.Equal(t, headers, rows[0])
	require.GreaterOrEqual(t, len(rows[1]), 9)
	assert.Equal(t, []string{"부천치아교정", "2", "부천 치아교정 후기", "치과맘", "2024-09-07", "블로그", "O", "", "O"}, rows[1][:9])
	assert.Equal(t, "-", rows[2][1])
	assert.Equal(t, "X", rows[2][8])
	assert.Equal(t, "tab rank: blocked by search engine", rows[2][9])
}
