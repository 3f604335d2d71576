package reportlog

import (
	"bufio"
	"compress/gzip"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"market-advisor/internal/types"
)

func sampleReport() *types.Report {
	return &types.Report{
		RequestID:  uuid.New(),
		Symbol:     "SBIN.NS",
		AssetClass: types.AssetEquity,
		Recommendation: types.Recommendation{
			Action:      types.ActionBuy,
			Score:       68.4,
			Confidence:  72,
			TargetPrice: decimal.RequireFromString("842.5"),
			Factors: []types.Factor{{
				Name: "Price trend", Category: types.CategoryTechnical,
				Direction: types.DirectionBullish, Contribution: 9.1,
			}},
			Unavailable: []types.DataUnavailable{{Category: types.CategorySentiment, Reason: "no news"}},
		},
	}
}

func TestAppendWritesDailyJSONLines(t *testing.T) {
	dir := t.TempDir()
	l := New(dir)
	// 20:00 UTC is already the next IST day
	l.now = func() time.Time { return time.Date(2025, 10, 16, 20, 0, 0, 0, time.UTC) }

	require.NoError(t, l.Append(sampleReport()))
	require.NoError(t, l.Append(sampleReport()))

	f, err := os.Open(filepath.Join(dir, "2025-10-17.jsonl"))
	require.NoError(t, err)
	defer f.Close()

	var lines []Entry
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		var e Entry
		require.NoError(t, json.Unmarshal(sc.Bytes(), &e))
		lines = append(lines, e)
	}
	require.Len(t, lines, 2)
	assert.Equal(t, "SBIN.NS", lines[0].Symbol)
	assert.Equal(t, "842.50", lines[0].TargetPrice)
	assert.Equal(t, []string{"sentiment"}, lines[0].Unavailable)
	assert.Equal(t, "2025-10-17 01:30:00", lines[0].Time)
}

func TestAppendScreen(t *testing.T) {
	dir := t.TempDir()
	l := New(dir)
	l.now = func() time.Time { return time.Date(2025, 10, 17, 9, 0, 0, 0, time.UTC) }

	require.NoError(t, l.AppendScreen(&types.ScreenResult{AssetClass: types.AssetFund, Side: types.ScreenBuy}))
	_, err := os.Stat(filepath.Join(dir, "screens", "2025-10-17.jsonl"))
	assert.NoError(t, err)
}

func TestCompressOlder(t *testing.T) {
	dir := t.TempDir()
	l := New(dir)
	require.NoError(t, l.Append(sampleReport()))

	old := filepath.Join(dir, "2025-01-01.jsonl")
	require.NoError(t, os.WriteFile(old, []byte("{}\n"), 0o644))
	past := time.Now().AddDate(0, 0, -40)
	require.NoError(t, os.Chtimes(old, past, past))

	n, err := l.CompressOlder(30)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	_, err = os.Stat(old)
	assert.True(t, os.IsNotExist(err))

	gz, err := os.Open(old + ".gz")
	require.NoError(t, err)
	defer gz.Close()
	zr, err := gzip.NewReader(gz)
	require.NoError(t, err)
	defer zr.Close()

	n, err = New(filepath.Join(dir, "missing")).CompressOlder(30)
	require.NoError(t, err)
	assert.Zero(t, n)
}
