package s3blob

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/alanyoungcy/polycache/internal/codec"
	"github.com/alanyoungcy/polycache/internal/domain"
	"github.com/alanyoungcy/polycache/internal/store/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memWriter struct {
	objects map[string][]byte
	types   map[string]string
	fail    error
}

func newMemWriter() *memWriter {
	return &memWriter{objects: map[string][]byte{}, types: map[string]string{}}
}

func (m *memWriter) Put(_ context.Context, p string, data io.Reader, contentType string) error {
	b, err := io.ReadAll(data)
	if err != nil {
		return err
	}
	m.objects[p] = b
	m.types[p] = contentType
	return nil
}

func (m *memWriter) PutMultipart(_ context.Context, p string, data io.Reader, _ int64) error {
	if m.fail != nil {
		return m.fail
	}
	b, err := io.ReadAll(data)
	if err != nil {
		return err
	}
	m.objects[p] = b
	return nil
}

func fixedExporter(w domain.BlobWriter) *Exporter {
	e := NewExporter(w, slog.New(slog.DiscardHandler))
	e.now = func() time.Time { return time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC) }
	return e
}

func seededSnapshot(t *testing.T) domain.Snapshot {
	t.Helper()
	db, err := sqlite.Open(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	ctx := context.Background()
	tx, err := db.Begin(ctx)
	require.NoError(t, err)
	for _, ev := range []domain.GammaEvent{{ID: 2, Slug: "two"}, {ID: 1, Slug: "one"}} {
		require.NoError(t, tx.Insert(ctx, domain.KeyspaceGammaEvents, domain.EventKey(ev.ID), codec.MarshalGammaEvent(&ev)))
	}
	require.NoError(t, tx.Commit())

	snap, err := db.Snapshot(ctx)
	require.NoError(t, err)
	t.Cleanup(func() { snap.Close() })
	return snap
}

func TestExportKeyspace(t *testing.T) {
	w := newMemWriter()
	p, n, err := fixedExporter(w).ExportKeyspace(context.Background(), seededSnapshot(t), domain.KeyspaceGammaEvents)
	require.NoError(t, err)
	assert.Equal(t, "export/gamma_events/20250301T120000Z.jsonl", p)
	assert.Equal(t, 2, n)

	var keys []string
	sc := bufio.NewScanner(bytes.NewReader(w.objects[p]))
	for sc.Scan() {
		var line struct {
			Key   string `json:"key"`
			Value struct {
				Slug string `json:"slug"`
			} `json:"value"`
		}
		require.NoError(t, json.Unmarshal(sc.Bytes(), &line))
		keys = append(keys, line.Key+"="+line.Value.Slug)
	}
	assert.Equal(t, []string{"1=one", "2=two"}, keys)
}

func TestExportKeyspaceUploadFailure(t *testing.T) {
	w := newMemWriter()
	w.fail = errors.New("bucket gone")
	_, _, err := fixedExporter(w).ExportKeyspace(context.Background(), seededSnapshot(t), domain.KeyspaceGammaEvents)
	assert.ErrorContains(t, err, "bucket gone")
}

func TestUploadReport(t *testing.T) {
	w := newMemWriter()
	report := domain.Report{"EventSlugIsUnique": {Count: 1, Examples: []string{"7"}}}

	p, err := fixedExporter(w).UploadReport(context.Background(), report)
	require.NoError(t, err)
	assert.Equal(t, "reports/20250301T120000Z.json", p)
	assert.Equal(t, contentTypeJSON, w.types[p])

	var got domain.Report
	require.NoError(t, json.Unmarshal(w.objects[p], &got))
	assert.Equal(t, report, got)
}

func TestNormaliseEndpoint(t *testing.T) {
	assert.Equal(t, "https://s3.example.com", normaliseEndpoint("https://s3.example.com", false))
	assert.Equal(t, "http://minio:9000", normaliseEndpoint("minio:9000", false))
	assert.Equal(t, "https://minio:9000", normaliseEndpoint("minio:9000", true))
	assert.Equal(t, "http://localhost:9000", normaliseEndpoint("localhost:9000", false))
	assert.Equal(t, "http://10.0.0.5:9000", normaliseEndpoint("10.0.0.5:9000", false))
}
