package log

import (
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/voneiden/gofsuipc/pkg/wire"
)

func writeEvents(t *testing.T, events ...Event) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "events.flog")
	logger, err := NewFileLogger(path)
	require.NoError(t, err)
	for _, e := range events {
		logger.Log(e)
	}
	require.NoError(t, logger.Close())
	return path
}

func readAll(t *testing.T, r *Reader) []Event {
	t.Helper()
	var out []Event
	for {
		e, err := r.Next()
		if err == io.EOF {
			return out
		}
		require.NoError(t, err)
		out = append(out, e)
	}
}

func TestFilteredReader(t *testing.T) {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	path := writeEvents(t,
		Event{Timestamp: base, SessionID: "a", Layer: LayerTransport, Direction: DirectionIn},
		Event{Timestamp: base.Add(time.Second), SessionID: "b", Layer: LayerClient, Direction: DirectionOut,
			Area: &AreaEvent{Records: []RecordSummary{{ID: wire.RecordRead, Offset: 0x0560, Size: 24}}}},
		Event{Timestamp: base.Add(2 * time.Second), SessionID: "a", Layer: LayerClient, Category: CategoryError,
			Error: &ErrorEventData{Message: "timeout"}},
	)

	layer := LayerClient
	errCat := CategoryError
	out := DirectionOut
	start := base.Add(500 * time.Millisecond)
	end := base.Add(1500 * time.Millisecond)
	inLatLon := uint32(0x0568)
	elsewhere := uint32(0x0238)

	tests := []struct {
		name   string
		filter Filter
		want   []string
	}{
		{"all", Filter{}, []string{"a", "b", "a"}},
		{"session", Filter{SessionID: "a"}, []string{"a", "a"}},
		{"layer", Filter{Layer: &layer}, []string{"b", "a"}},
		{"category", Filter{Category: &errCat}, []string{"a"}},
		{"direction", Filter{Direction: &out}, []string{"b"}},
		{"time window", Filter{TimeStart: &start, TimeEnd: &end}, []string{"b"}},
		{"offset inside record", Filter{Offset: &inLatLon}, []string{"b"}},
		{"offset elsewhere", Filter{Offset: &elsewhere}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, err := NewFilteredReader(path, tt.filter)
			require.NoError(t, err)
			defer r.Close()

			var got []string
			for _, e := range readAll(t, r) {
				got = append(got, e.SessionID)
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestReaderTruncatedFile(t *testing.T) {
	path := writeEvents(t,
		Event{Timestamp: time.Now(), SessionID: "whole"},
		Event{Timestamp: time.Now(), SessionID: "cut-off-by-crash"},
	)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, data[:len(data)-3], 0644))

	r, err := NewReader(path)
	require.NoError(t, err)
	defer r.Close()

	events := readAll(t, r)
	require.Len(t, events, 1)
	assert.Equal(t, "whole", events[0].SessionID)
}

func TestReaderMissingFile(t *testing.T) {
	_, err := NewReader(filepath.Join(t.TempDir(), "missing.flog"))
	assert.Error(t, err)
}
