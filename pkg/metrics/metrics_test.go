package metrics

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteTextfile(t *testing.T) {
	HeadlinesExtracted.Add(3)
	RunsTotal.WithLabelValues("succeeded").Inc()

	path := filepath.Join(t.TempDir(), "headlines.prom")
	require.NoError(t, WriteTextfile(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "headlines_extracted_total")
	assert.Contains(t, string(data), `headline_runs_total{status="succeeded"}`)
}
