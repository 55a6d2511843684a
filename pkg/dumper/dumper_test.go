package dumper_test

import (
	"bytes"
	"encoding/json"
	"io/ioutil"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/m-mizutani/logsherpa/pkg/dumper"
	"github.com/m-mizutani/logsherpa/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xitongsys/parquet-go-source/local"
	"github.com/xitongsys/parquet-go/reader"
)

func sampleTable() *models.Table {
	return &models.Table{
		Columns: []string{"client_ip", "time", "status", "bytes_sent"},
		Records: []models.ParsedRecord{
			{
				"client_ip":  "1.2.3.4",
				"time":       time.Date(2020, 10, 10, 13, 55, 36, 0, time.UTC),
				"status":     int64(200),
				"bytes_sent": int64(123),
			},
			{
				"client_ip":  "5.6.7.8",
				"time":       time.Date(2020, 10, 10, 13, 55, 37, 0, time.UTC),
				"status":     int64(404),
				"bytes_sent": nil,
			},
		},
	}
}

func TestWriteJSONLines(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, dumper.WriteJSONLines(sampleTable(), &buf))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Equal(t, 2, len(lines))

	var first map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &first))
	assert.Equal(t, "1.2.3.4", first["client_ip"])
	assert.Equal(t, "2020-10-10T13:55:36Z", first["time"])
	assert.Equal(t, float64(200), first["status"])

	var second map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(lines[1]), &second))
	assert.Nil(t, second["bytes_sent"])
}

func TestToJSONLines(t *testing.T) {
	dir, err := ioutil.TempDir("", "logsherpa-dumper-")
	require.NoError(t, err)
	t.Cleanup(func() { os.RemoveAll(dir) })

	path := filepath.Join(dir, "out.jsonl")
	require.NoError(t, dumper.ToJSONLines(sampleTable(), path))

	raw, err := ioutil.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, 2, len(strings.Split(strings.TrimSpace(string(raw)), "\n")))
}

func TestToParquet(t *testing.T) {
	dir, err := ioutil.TempDir("", "logsherpa-dumper-")
	require.NoError(t, err)
	t.Cleanup(func() { os.RemoveAll(dir) })

	path := filepath.Join(dir, "out.parquet")
	require.NoError(t, dumper.ToParquet(sampleTable(), path))

	fr, err := local.NewLocalFileReader(path)
	require.NoError(t, err)
	defer fr.Close()

	pr, err := reader.NewParquetReader(fr, nil, 1)
	require.NoError(t, err)
	defer pr.ReadStop()

	assert.Equal(t, int64(2), pr.GetNumRows())
}
