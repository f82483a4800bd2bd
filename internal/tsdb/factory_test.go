package tsdb

import (
	"testing"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_NoTypeFallsBackToNoop(t *testing.T) {
	store, err := New(Config{}, clockwork.NewRealClock())
	require.NoError(t, err)
	assert.IsType(t, NoopStore{}, store)
}

func TestNew_UnrecognizedTypeFallsBackToNoop(t *testing.T) {
	store, err := New(Config{Type: "cassandra"}, clockwork.NewRealClock())
	require.NoError(t, err)
	assert.IsType(t, NoopStore{}, store)
}

func TestNew_Memory(t *testing.T) {
	store, err := New(Config{Type: "memory"}, clockwork.NewFakeClock())
	require.NoError(t, err)
	assert.IsType(t, &MemoryStore{}, store)
}

func TestNew_InfluxRequiresHostAndDatabase(t *testing.T) {
	_, err := New(Config{Type: "influx", Database: "cats"}, clockwork.NewRealClock())
	assert.ErrorContains(t, err, "host is required")

	_, err = New(Config{Type: "influx", Host: "localhost"}, clockwork.NewRealClock())
	assert.ErrorContains(t, err, "database is required")
}

func TestNew_Influx(t *testing.T) {
	store, err := New(Config{Type: "influx", Host: "localhost", Database: "cats"}, clockwork.NewRealClock())
	require.NoError(t, err)
	defer store.Close()
	assert.IsType(t, &InfluxStore{}, store)
}

func TestNew_InfluxTypeIsCaseInsensitive(t *testing.T) {
	store, err := New(Config{Type: "Influx", Host: "localhost", Database: "cats"}, clockwork.NewRealClock())
	require.NoError(t, err)
	defer store.Close()
	assert.IsType(t, &InfluxStore{}, store)
}
