package audit

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/json"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/davidahmann/complybus/internal/crypto"
	"github.com/davidahmann/complybus/pkg/types"
)

type stepClock struct {
	now time.Time
}

func (c *stepClock) Now() time.Time {
	t := c.now
	c.now = c.now.Add(time.Minute)
	return t
}

func seededLog(t *testing.T) (*Log, *stepClock) {
	t.Helper()
	clock := &stepClock{now: time.Date(2026, 6, 1, 8, 0, 0, 0, time.UTC)}
	l := newTestLog(WithClock(clock.Now))
	for _, d := range []struct {
		agent      string
		confidence float64
	}{
		{"remediation", 0.9},
		{"monitor", 0.6},
		{"remediation", 0.3},
	} {
		_, err := l.LogDecision(context.Background(), d.agent, "PASS", "", d.confidence, map[string]any{"n": 1}, nil)
		require.NoError(t, err)
	}
	return l, clock
}

func TestExportJSON(t *testing.T) {
	l, _ := seededLog(t)
	x := NewExporter(l)

	raw, err := x.ExportJSON("remediation", 0)
	require.NoError(t, err)

	var records []types.DecisionLogEntry
	require.NoError(t, json.Unmarshal(raw, &records))
	require.Len(t, records, 2)
	assert.Equal(t, 0.3, records[0].Confidence)
	for _, r := range records {
		assert.NoError(t, l.VerifyEntry(r))
	}

	raw, err = x.ExportJSON("", 1)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(raw, &records))
	assert.Len(t, records, 1)

	raw, err = x.ExportJSON("nobody", 0)
	require.NoError(t, err)
	assert.Equal(t, "[]", string(raw))
}

func TestExportSummary(t *testing.T) {
	l, _ := seededLog(t)
	generated := time.Date(2026, 6, 2, 0, 0, 0, 0, time.UTC)
	x := NewExporter(l, WithExportClock(func() time.Time { return generated }))

	s, err := x.ExportSummary("")
	require.NoError(t, err)

	assert.Equal(t, 3, s.TotalDecisions)
	assert.Equal(t, map[string]int{"remediation": 2, "monitor": 1}, s.DecisionsByAgent)
	assert.InDelta(t, 0.6, s.AverageConfidence, 1e-9)
	require.NotNil(t, s.DateRangeStart)
	require.NotNil(t, s.DateRangeEnd)
	assert.Equal(t, time.Date(2026, 6, 1, 8, 0, 0, 0, time.UTC), *s.DateRangeStart)
	assert.Equal(t, time.Date(2026, 6, 1, 8, 2, 0, 0, time.UTC), *s.DateRangeEnd)
	assert.Equal(t, generated, s.GeneratedAt)

	want, err := SummaryHash(s)
	require.NoError(t, err)
	assert.Equal(t, want, s.SummaryHash)

	again, err := x.ExportSummary("")
	require.NoError(t, err)
	assert.Equal(t, s.SummaryHash, again.SummaryHash)

	s.TotalDecisions = 4
	changed, err := SummaryHash(s)
	require.NoError(t, err)
	assert.NotEqual(t, want, changed)
}

func TestExportSummaryEmpty(t *testing.T) {
	x := NewExporter(newTestLog())
	s, err := x.ExportSummary("")
	require.NoError(t, err)

	assert.Zero(t, s.TotalDecisions)
	assert.Zero(t, s.AverageConfidence)
	assert.Nil(t, s.DateRangeStart)
	assert.Nil(t, s.DateRangeEnd)
	assert.True(t, strings.HasPrefix(s.SummaryHash, "sha256:"))
}

func TestExportPDFNotImplemented(t *testing.T) {
	_, err := NewExporter(newTestLog()).ExportPDF("", 0)
	assert.ErrorIs(t, err, ErrPDFExportNotImplemented)
}

func readZip(t *testing.T, data []byte) map[string][]byte {
	t.Helper()
	reader, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	require.NoError(t, err)

	out := map[string][]byte{}
	for _, f := range reader.File {
		rc, err := f.Open()
		require.NoError(t, err)
		body, err := io.ReadAll(rc)
		require.NoError(t, err)
		require.NoError(t, rc.Close())
		out[f.Name] = body
	}
	return out
}

func TestExportBundle(t *testing.T) {
	l, _ := seededLog(t)
	playbook := []byte("playbook_id: default\n")
	x := NewExporter(l, WithPlaybookYAML(playbook))

	data, err := x.ExportBundle("", 0)
	require.NoError(t, err)
	files := readZip(t, data)

	for _, name := range []string{"decisions.json", "summary.json", "playbook.yaml", "manifest.json", "sha256sums.txt"} {
		assert.Contains(t, files, name)
	}
	assert.Equal(t, playbook, files["playbook.yaml"])

	var manifest Manifest
	require.NoError(t, json.Unmarshal(files["manifest.json"], &manifest))
	assert.Equal(t, BundleSchema, manifest.Schema)
	assert.Equal(t, 3, manifest.DecisionCount)
	assert.Len(t, manifest.Files, 3)
	for name, digest := range manifest.Files {
		assert.Equal(t, crypto.DigestWithPrefix(files[name]), digest, name)
	}
	assert.Contains(t, string(files["sha256sums.txt"]), crypto.DigestHex(files["decisions.json"])+"  decisions.json\n")
}

func TestBuildFilesRequiresSummaryHash(t *testing.T) {
	_, err := BuildFiles(BundleInput{})
	assert.ErrorIs(t, err, types.ErrMissingField)
}

func TestWriteZipIsDeterministic(t *testing.T) {
	files := map[string][]byte{
		"b.txt": []byte("bravo"),
		"a.txt": []byte("alpha"),
	}
	var first, second bytes.Buffer
	require.NoError(t, WriteZip(&first, files))
	require.NoError(t, WriteZip(&second, files))
	assert.Equal(t, first.Bytes(), second.Bytes())

	reader, err := zip.NewReader(bytes.NewReader(first.Bytes()), int64(first.Len()))
	require.NoError(t, err)
	require.Len(t, reader.File, 2)
	assert.Equal(t, "a.txt", reader.File[0].Name)
}
