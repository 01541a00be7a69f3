package cli

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeDumpFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "dump.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadDumpFileArray(t *testing.T) {
	path := writeDumpFile(t, `[
		{"pair": "BTC/USD", "reserve_a": "100", "reserve_b": "200"},
		{"pair": "ETH/USD", "reserve_a": "50", "reserve_b": "75"}
	]`)

	entries, err := loadDumpFile(path)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "BTC/USD", entries[0]["pair"])
}

func TestLoadDumpFileWrapper(t *testing.T) {
	path := writeDumpFile(t, `{"pools": [{"pair": "BTC/USD", "reserve_a": "100"}]}`)

	entries, err := loadDumpFile(path)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "BTC/USD", entries[0]["pair"])
}

func TestLoadDumpFileUnrecognized(t *testing.T) {
	path := writeDumpFile(t, `{"not_pools": 1}`)
	_, err := loadDumpFile(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unrecognized dump format")
}

func TestLoadDumpFileMissing(t *testing.T) {
	_, err := loadDumpFile(filepath.Join(t.TempDir(), "absent.json"))
	require.Error(t, err)
}

func TestBuildDumpMapSkipsPairlessEntries(t *testing.T) {
	entries := []map[string]interface{}{
		{"pair": "BTC/USD", "reserve_a": "100"},
		{"reserve_a": "42"},
		{"pair": ""},
	}

	m := buildDumpMap(entries)
	require.Len(t, m, 1)
	assert.Contains(t, m, "BTC/USD")
}

func TestChangedFields(t *testing.T) {
	old := map[string]interface{}{
		"pair":      "BTC/USD",
		"reserve_a": "100",
		"reserve_b": "200",
		"last_seq":  float64(3),
	}
	updated := map[string]interface{}{
		"pair":         "BTC/USD",
		"reserve_a":    "110",
		"reserve_b":    "200",
		"total_shares": "141",
	}

	changed := changedFields(old, updated)
	assert.Equal(t, []string{"last_seq", "reserve_a", "total_shares"}, changed)
}

func TestChangedFieldsNestedShares(t *testing.T) {
	old := map[string]interface{}{
		"pair":   "BTC/USD",
		"shares": map[string]interface{}{"alice": "100"},
	}
	same := map[string]interface{}{
		"pair":   "BTC/USD",
		"shares": map[string]interface{}{"alice": "100"},
	}
	different := map[string]interface{}{
		"pair":   "BTC/USD",
		"shares": map[string]interface{}{"alice": "100", "bob": "50"},
	}

	assert.Empty(t, changedFields(old, same))
	assert.Equal(t, []string{"shares"}, changedFields(old, different))
}

func TestDiffDumps(t *testing.T) {
	map1 := buildDumpMap([]map[string]interface{}{
		{"pair": "BTC/USD", "reserve_a": "100"},
		{"pair": "ETH/USD", "reserve_a": "50"},
		{"pair": "LTC/USD", "reserve_a": "10"},
	})
	map2 := buildDumpMap([]map[string]interface{}{
		{"pair": "BTC/USD", "reserve_a": "100"},
		{"pair": "ETH/USD", "reserve_a": "55"},
		{"pair": "XRP/USD", "reserve_a": "7"},
	})

	added, removed, modified, unchanged := diffDumps(map1, map2)
	assert.Equal(t, []string{"XRP/USD"}, added)
	assert.Equal(t, []string{"LTC/USD"}, removed)
	require.Len(t, modified, 1)
	assert.Equal(t, "ETH/USD", modified[0].Pair)
	assert.Equal(t, []string{"reserve_a"}, modified[0].ChangedFields)
	assert.Equal(t, []string{"BTC/USD"}, unchanged)
}

func TestFilterPair(t *testing.T) {
	m := buildDumpMap([]map[string]interface{}{
		{"pair": "BTC/USD"},
		{"pair": "ETH/USD"},
	})

	filtered := filterPair(m, "BTC/USD")
	require.Len(t, filtered, 1)
	assert.Contains(t, filtered, "BTC/USD")

	assert.Empty(t, filterPair(m, "DOGE/USD"))
}

func TestFormatDumpValue(t *testing.T) {
	assert.Equal(t, "(none)", formatDumpValue(nil))
	assert.Equal(t, "1000000", formatDumpValue(float64(1000000)))
	assert.Equal(t, "17", formatDumpValue(float64(17)))
	assert.Equal(t, "100", formatDumpValue("100"))
	assert.Equal(t, `{"alice":"100"}`, formatDumpValue(map[string]interface{}{"alice": "100"}))
}
