package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/berfenger/weatherflow2mqtt/internal/core/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestStore(t *testing.T, path string) *Store {
	t.Helper()
	logger, _ := zap.NewDevelopment()
	s, err := NewStore(path, logger)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestCreateAndList(t *testing.T) {

	assert := assert.New(t)
	ctx := context.Background()
	s := newTestStore(t, ":memory:")

	entry, err := s.Create(ctx, "WeatherFlow", domain.SOURCE_USER, domain.EntryData{Host: "0.0.0.0"})
	assert.NoError(err)
	assert.NotEmpty(entry.Id)
	assert.Equal("0.0.0.0", entry.Host)

	_, err = s.Create(ctx, "Garden (10.0.0.2)", domain.SOURCE_IMPORT, domain.EntryData{
		Host:                "10.0.0.2",
		Name:                "Garden",
		MonitoredConditions: []string{"wind_speed"},
		WindUnit:            "kmh",
	})
	assert.NoError(err)

	entries, err := s.List(ctx)
	assert.NoError(err)
	assert.Len(entries, 2)
	assert.Equal(entry.Id, entries[0].Id)
	assert.Equal("Garden", entries[1].Name)
	assert.Equal([]string{"wind_speed"}, entries[1].Data.MonitoredConditions)

	hosts, err := s.Hosts(ctx)
	assert.NoError(err)
	assert.ElementsMatch([]string{"0.0.0.0", "10.0.0.2"}, hosts)
}

func TestDuplicateHost(t *testing.T) {

	assert := assert.New(t)
	ctx := context.Background()
	s := newTestStore(t, ":memory:")

	_, err := s.Create(ctx, "WeatherFlow", domain.SOURCE_USER, domain.EntryData{Host: "0.0.0.0"})
	assert.NoError(err)
	_, err = s.Create(ctx, "WeatherFlow", domain.SOURCE_USER, domain.EntryData{Host: "0.0.0.0"})
	assert.ErrorIs(err, ErrDuplicateHost)
}

func TestListDelete(t *testing.T) {

	assert := assert.New(t)
	ctx := context.Background()
	s := newTestStore(t, ":memory:")

	entry, err := s.Create(ctx, "WeatherFlow", domain.SOURCE_USER, domain.EntryData{Host: "0.0.0.0"})
	require.NoError(t, err)

	entries, err := s.List(ctx)
	assert.NoError(err)
	require.Len(t, entries, 1)
	assert.Equal(entry.Title, entries[0].Title)
	assert.True(entry.CreatedAt.Equal(entries[0].CreatedAt))

	removed, err := s.Delete(ctx, entry.Id)
	assert.NoError(err)
	assert.True(removed)
	removed, err = s.Delete(ctx, entry.Id)
	assert.NoError(err)
	assert.False(removed)

	entries, err = s.List(ctx)
	assert.NoError(err)
	assert.Empty(entries)
}

func TestPersistsAcrossReopen(t *testing.T) {

	assert := assert.New(t)
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "entries.db")

	logger, _ := zap.NewDevelopment()
	s, err := NewStore(path, logger)
	require.NoError(t, err)
	_, err = s.Create(ctx, "WeatherFlow", domain.SOURCE_USER, domain.EntryData{Host: "0.0.0.0"})
	require.NoError(t, err)
	require.NoError(t, s.Close())

	_, err = os.Stat(path)
	assert.NoError(err)

	reopened := newTestStore(t, path)
	entries, err := reopened.List(ctx)
	assert.NoError(err)
	assert.Len(entries, 1)
}
