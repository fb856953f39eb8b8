package s3blob

import (
	"bytes"
	"context"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/stakerise/internal/domain"
)

type memWriter struct {
	puts map[string][]byte
}

func (m *memWriter) Put(_ context.Context, path string, data io.Reader, _ string) error {
	b, err := io.ReadAll(data)
	if err != nil {
		return err
	}
	m.puts[path] = b
	return nil
}

type memActivity struct {
	entries []domain.ActivityEntry
	logged  []string
	gotOpts domain.ListOpts
}

func (m *memActivity) Log(_ context.Context, _, event string, _ map[string]any) error {
	m.logged = append(m.logged, event)
	return nil
}

func (m *memActivity) List(_ context.Context, _ string, opts domain.ListOpts) ([]domain.ActivityEntry, error) {
	m.gotOpts = opts
	return m.entries, nil
}

func TestArchiveActivity(t *testing.T) {
	day := time.Date(2025, 3, 4, 0, 0, 0, 0, time.UTC)
	w := &memWriter{puts: map[string][]byte{}}
	act := &memActivity{entries: []domain.ActivityEntry{
		{ID: 1, Wallet: "0xabc", Event: "stake.synced", CreatedAt: day.Add(time.Hour)},
		{ID: 2, Event: "sync.run", CreatedAt: day.Add(2 * time.Hour)},
	}}

	n, err := NewActivityArchiver(w, act).ArchiveActivity(context.Background(), day, day.AddDate(0, 0, 1))
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	body, ok := w.puts["archive/activity/2025-03-04.jsonl"]
	require.True(t, ok)
	lines := strings.Split(strings.TrimSpace(string(body)), "\n")
	assert.Len(t, lines, 2)
	assert.True(t, bytes.Contains(body, []byte(`"event":"stake.synced"`)))

	assert.Equal(t, []string{"archive.activity"}, act.logged)
	require.NotNil(t, act.gotOpts.Until)
	assert.True(t, act.gotOpts.Until.Before(day.AddDate(0, 0, 1)))
}

func TestArchiveActivityEmpty(t *testing.T) {
	w := &memWriter{puts: map[string][]byte{}}
	act := &memActivity{}

	n, err := NewActivityArchiver(w, act).ArchiveActivity(context.Background(), time.Now(), time.Now())
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Empty(t, w.puts)
	assert.Empty(t, act.logged)
}
