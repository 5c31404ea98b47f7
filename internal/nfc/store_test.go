package nfc

import (
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) (*Store, string) {
	t.Helper()
	dir := t.TempDir()
	s, err := NewStore(dir, log.New(io.Discard, "", 0))
	require.NoError(t, err)
	return s, dir
}

func TestMapLookupUnmap(t *testing.T) {
	s, _ := newTestStore(t)
	s.Map("tag-1", "Water plants")

	got, ok := s.Lookup("tag-1")
	require.True(t, ok)
	assert.Equal(t, "Water plants", got.Title)

	assert.True(t, s.Unmap("tag-1"))
	assert.False(t, s.Unmap("tag-1"))
	_, ok = s.Lookup("tag-1")
	assert.False(t, ok)
}

func TestLegacyStringMappingsUpgrade(t *testing.T) {
	dir := t.TempDir()
	raw := `{"tag-a": "Old style", "tag-b": {"title": "New style", "priority": 2}}`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "nfc_mappings.json"), []byte(raw), 0o644))

	s, err := NewStore(dir, log.New(io.Discard, "", 0))
	require.NoError(t, err)

	got, ok := s.Lookup("tag-a")
	require.True(t, ok)
	assert.Equal(t, "Old style", got.Title)
	assert.NotEmpty(t, got.CreatedAt)

	got, ok = s.Lookup("tag-b")
	require.True(t, ok)
	assert.Equal(t, 2, got.Priority)
}

func TestTagsForTitle(t *testing.T) {
	s, _ := newTestStore(t)
	s.Map("tag-2", "Water Plants")
	s.Map("tag-1", "water plants")
	s.Map("tag-3", "Other")

	assert.Equal(t, []string{"tag-1", "tag-2"}, s.TagsForTitle("WATER PLANTS"))
	assert.Empty(t, s.TagsForTitle("missing"))
}

func TestBulkImportAndClear(t *testing.T) {
	s, _ := newTestStore(t)
	n := s.BulkImport(map[string]string{
		"tag-1": "a",
		"tag-2": "b",
		"":      "skipped",
		"tag-3": "",
	})
	assert.Equal(t, 2, n)

	assert.Equal(t, 2, s.Clear())
	assert.Empty(t, s.All())
}

func TestPingLogCap(t *testing.T) {
	s, _ := newTestStore(t)
	for i := 0; i < maxPings+5; i++ {
		s.LogPing(Ping{TagID: fmt.Sprintf("tag-%d", i), Action: "task_incremented"})
	}

	all := s.RecentPings(0)
	require.Len(t, all, maxPings)
	assert.Equal(t, "tag-5", all[0].TagID, "oldest entries are dropped")
	assert.Equal(t, fmt.Sprintf("tag-%d", maxPings+4), all[len(all)-1].TagID)
}

func TestLogPingStampsDefaults(t *testing.T) {
	s, _ := newTestStore(t)
	s.LogPing(Ping{TagID: "tag-1", Action: "task_incremented"})

	pings := s.RecentPings(1)
	require.Len(t, pings, 1)
	assert.NotEmpty(t, pings[0].Timestamp)
	assert.Equal(t, "unknown", pings[0].Reader)
}

func TestRecentPingsLimit(t *testing.T) {
	s, _ := newTestStore(t)
	for i := 0; i < 10; i++ {
		s.LogPing(Ping{TagID: fmt.Sprintf("tag-%d", i), Action: "x"})
	}
	pings := s.RecentPings(3)
	require.Len(t, pings, 3)
	assert.Equal(t, "tag-7", pings[0].TagID)
	assert.Equal(t, "tag-9", pings[2].TagID)
}

func TestStatsMostUsedTagTieBreak(t *testing.T) {
	s, _ := newTestStore(t)
	s.Map("tag-b", "B task")
	for i := 0; i < 3; i++ {
		s.LogPing(Ping{TagID: "tag-b", Action: "task_incremented"})
		s.LogPing(Ping{TagID: "tag-a", Action: "task_incremented"})
	}

	st := s.Stats()
	assert.Equal(t, 1, st.TotalMappings)
	assert.Equal(t, 6, st.RecentPingCount)
	require.NotNil(t, st.MostUsedTag)
	assert.Equal(t, "tag-a", st.MostUsedTag.TagID, "ties break to the smallest tag id")
	assert.Equal(t, 3, st.MostUsedTag.UsageCount)
	assert.Equal(t, "Unmapped", st.MostUsedTag.MappedTask)
}

func TestStatsEmptyLog(t *testing.T) {
	s, _ := newTestStore(t)
	st := s.Stats()
	assert.Nil(t, st.MostUsedTag)
	assert.Zero(t, st.RecentPingCount)
}

func TestPingExtraFieldsRoundTrip(t *testing.T) {
	raw := `{"tag_id":"t1","action":"task_incremented","reader":"api","timestamp":"x","rssi":-40}`
	var p Ping
	require.NoError(t, json.Unmarshal([]byte(raw), &p))
	assert.Equal(t, float64(-40), p.Extra["rssi"])

	b, err := json.Marshal(p)
	require.NoError(t, err)
	var out map[string]any
	require.NoError(t, json.Unmarshal(b, &out))
	assert.Equal(t, float64(-40), out["rssi"])
	assert.Equal(t, "t1", out["tag_id"])
}

func TestPingsPersistAcrossReload(t *testing.T) {
	s, dir := newTestStore(t)
	s.Map("tag-1", "task")
	s.LogPing(Ping{TagID: "tag-1", Action: "task_incremented", Reader: "test"})

	reloaded, err := NewStore(dir, log.New(io.Discard, "", 0))
	require.NoError(t, err)
	pings := reloaded.RecentPings(0)
	require.Len(t, pings, 1)
	assert.Equal(t, "tag-1", pings[0].TagID)
	_, ok := reloaded.Lookup("tag-1")
	assert.True(t, ok)
}
