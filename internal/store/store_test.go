package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thywilljoshua/urdu-link/internal/domain"
)

var fast = Scope{Quality: domain.QualityFast, Model: "m-flash"}

func setupStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestRememberAndLookup(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()
	page := domain.WorkUnit{Kind: domain.RasterImage, Payload: []byte("page-1-jpeg")}

	_, ok, err := s.Lookup(ctx, page, fast)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.Remember(ctx, page, fast, Entry{Original: "Hello", Translated: "سلام"}))

	e, ok, err := s.Lookup(ctx, page, fast)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "Hello", e.Original)
	assert.Equal(t, "سلام", e.Translated)

	_, ok, err = s.Lookup(ctx, page, Scope{Quality: domain.QualityPrecise, Model: "m-pro"})
	require.NoError(t, err)
	assert.False(t, ok, "quality tiers are remembered separately")

	st, err := s.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), st.Entries)
	assert.Equal(t, int64(1), st.TotalHits)
}

func TestLookupMissesAfterModelChange(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()
	page := domain.WorkUnit{Kind: domain.RasterImage, Payload: []byte("page-1-jpeg")}
	require.NoError(t, s.Remember(ctx, page, fast, Entry{Translated: "سلام"}))

	_, ok, err := s.Lookup(ctx, page, Scope{Quality: domain.QualityFast, Model: "m-flash-2"})
	require.NoError(t, err)
	assert.False(t, ok, "answers from another model are not reused")

	_, ok, err = s.Lookup(ctx, page, fast)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestRememberSkipsPlaceholder(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()
	u := domain.WorkUnit{Kind: domain.RawText, Text: "x"}

	require.NoError(t, s.Remember(ctx, u, fast, Entry{Translated: domain.PlaceholderTranslation}))
	_, ok, err := s.Lookup(ctx, u, fast)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestUnitKeyNormalizesText(t *testing.T) {
	composed := domain.WorkUnit{Kind: domain.RawText, Text: "caf\u00e9"}
	decomposed := domain.WorkUnit{Kind: domain.RawText, Text: "cafe\u0301"}
	assert.Equal(t, UnitKey(composed, "m"), UnitKey(decomposed, "m"))

	img := domain.WorkUnit{Kind: domain.RasterImage, Payload: []byte("caf\u00e9")}
	assert.NotEqual(t, UnitKey(composed, "m"), UnitKey(img, "m"), "text and image keys never collide")
	assert.NotEqual(t, UnitKey(composed, "m"), UnitKey(composed, "m2"))
}

func TestClear(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()
	for _, p := range []string{"a", "b", "c"} {
		u := domain.WorkUnit{Kind: domain.RasterImage, Payload: []byte(p)}
		require.NoError(t, s.Remember(ctx, u, fast, Entry{Translated: "ترجمہ " + p}))
	}
	n, err := s.Clear(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)

	st, err := s.Stats(ctx)
	require.NoError(t, err)
	assert.Zero(t, st.Entries)
}

func TestRecordRun(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	require.NoError(t, s.RecordRun(ctx, Run{ID: "r1", Status: "finished", Quality: domain.QualityFast, TotalUnits: 3, Records: 3, StartedAt: base, FinishedAt: base.Add(time.Minute)}))
	require.NoError(t, s.RecordRun(ctx, Run{ID: "r2", Status: "failed", Quality: domain.QualityPrecise, TotalUnits: 5, Records: 2, Warnings: 1, Error: "context canceled", StartedAt: base.Add(time.Hour), FinishedAt: base.Add(time.Hour + time.Minute)}))

	runs, err := s.RecentRuns(ctx, 10)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "r2", runs[0].ID)
	assert.Equal(t, domain.QualityPrecise, runs[0].Quality)
	assert.Equal(t, "context canceled", runs[0].Error)

	st, err := s.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), st.Runs)
	assert.Equal(t, int64(1), st.FailedRuns)
}
