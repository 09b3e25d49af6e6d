package history

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	"serprank/checker"
)

func TestRecordRecent(t *testing.T) {
	store, err := Open(":memory:")
	require.NoError(t, err)
	defer store.Close()

	ctx := context.Background()
	base := time.Date(2024, 9, 10, 9, 0, 0, 0, time.UTC)

	results := []checker.RankResult{
		{Success: true, Keyword: "부천치아교정", Rank: 3, Title: "부천 치아교정 후기", Author: "치과맘", Date: "3일 전", PostedOn: "2024-09-07", Section: "블로그", Exposed: true},
		{Success: false, Keyword: "부천치아교정", Message: "tab rank: blocked by search engine"},
		{Success: true, Keyword: "강남임플란트", Rank: 1},
	}
	for i, r := range results {
		require.NoError(t, store.Record(ctx, r, base.Add(time.Duration(i)*time.Hour)))
	}

	got, err := store.Recent(ctx, "부천치아교정", 10)
	require.NoError(t, err)
	require.Len(t, got, 2)

	// newest first
	if diff := cmp.Diff(results[1], got[0].RankResult); diff != "" {
		t.Errorf("latest entry mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(results[0], got[1].RankResult); diff != "" {
		t.Errorf("earliest entry mismatch (-want +got):\n%s", diff)
	}
	require.True(t, got[1].CheckedAt.Equal(base))

	got, err = store.Recent(ctx, "부천치아교정", 1)
	require.NoError(t, err)
	require.Len(t, got, 1)

	got, err = store.Recent(ctx, "없는 키워드", 0)
	require.NoError(t, err)
	require.Empty(t, got)
}

func TestOpenFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")
	store, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, store.Record(context.Background(), checker.RankResult{Keyword: "a", Success: true}, time.Now()))
	require.NoError(t, store.Close())

	// reopening keeps the data and tolerates the existing schema
	store, err = Open(path)
	require.NoError(t, err)
	defer store.Close()
	got, err := store.Recent(context.Background(), "a", 5)
	require.NoError(t, err)
	require.Len(t, got, 1)
}
