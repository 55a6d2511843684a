package parser_test

import (
	"compress/gzip"
	"fmt"
	"io/ioutil"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/m-mizutani/logsherpa/pkg/compiler"
	"github.com/m-mizutani/logsherpa/pkg/models"
	"github.com/m-mizutani/logsherpa/pkg/parser"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTempLog(t *testing.T, lines []string) string {
	t.Helper()
	dir, err := ioutil.TempDir("", "logsherpa-test-")
	require.NoError(t, err)
	t.Cleanup(func() { os.RemoveAll(dir) })

	path := filepath.Join(dir, "access.log")
	require.NoError(t, ioutil.WriteFile(path, []byte(strings.Join(lines, "\n")+"\n"), 0644))
	return path
}

func commonRecipe(t *testing.T) *models.Recipe {
	t.Helper()
	compiled, err := compiler.Compile(`%h %l %u %t "%r" %>s %b`)
	require.NoError(t, err)

	return &models.Recipe{
		LogPattern:  compiled.Pattern,
		PatternType: models.FamilyWebServer,
		Columns:     compiled.Columns,
		ColumnTypes: compiled.ColumnTypes,
		FieldMap:    models.BuildFieldMap(compiled.Columns),
		Timezone:    models.TimezoneFromLog,
	}
}

func TestParseCommonFormat(t *testing.T) {
	path := writeTempLog(t, []string{
		`1.2.3.4 - - [10/Oct/2020:13:55:36 +0000] "GET /x HTTP/1.1" 200 123`,
	})

	result, err := parser.Parse(path, commonRecipe(t), parser.Options{})
	require.NoError(t, err)

	require.Equal(t, 1, len(result.Records))
	record := result.Records[0]
	assert.Equal(t, "1.2.3.4", record["client_ip"])
	assert.Nil(t, record["identity"])
	assert.Nil(t, record["user"])
	assert.Equal(t, "10/Oct/2020:13:55:36 +0000", record["time"])
	assert.Equal(t, "GET /x HTTP/1.1", record["request"])
	assert.Equal(t, "200", record["status"])
	assert.Equal(t, "123", record["bytes_sent"])
	assert.Equal(t, 1, record[models.LineNumColumn])

	assert.Equal(t, 1, result.Stats.TotalLines)
	assert.Equal(t, 1, result.Stats.Success)
	assert.True(t, result.Stats.Consistent())
}

func TestParseStatsAccounting(t *testing.T) {
	path := writeTempLog(t, []string{
		`1.2.3.4 - - [10/Oct/2020:13:55:36 +0000] "GET /x HTTP/1.1" 200 123`,
		``,
		`this line does not match anything`,
		`5.6.7.8 - bob [10/Oct/2020:13:55:37 +0000] "POST /y HTTP/1.1" 302 0`,
	})

	result, err := parser.Parse(path, commonRecipe(t), parser.Options{})
	require.NoError(t, err)

	assert.Equal(t, 4, result.Stats.TotalLines)
	assert.Equal(t, 2, result.Stats.Success)
	assert.Equal(t, 1, result.Stats.Failed)
	assert.Equal(t, 1, result.Stats.Blank)
	assert.True(t, result.Stats.Consistent())

	require.Equal(t, 1, len(result.Failures))
	assert.Equal(t, 3, result.Failures[0].LineNum)
	assert.Equal(t, "this line does not match anything", result.Failures[0].Raw)

	// Line numbers survive on the records too.
	assert.Equal(t, 1, result.Records[0][models.LineNumColumn])
	assert.Equal(t, 4, result.Records[1][models.LineNumColumn])
}

func TestParseAcceptanceCheck(t *testing.T) {
	// A structurally matching line whose required fields are all null is a
	// failure for the web server family.
	recipe := &models.Recipe{
		LogPattern:  `([^ ]*) ([^ ]*)`,
		PatternType: models.FamilyWebServer,
		Columns:     []string{"time", "status"},
	}
	path := writeTempLog(t, []string{`- -`, `- 200`})

	result, err := parser.Parse(path, recipe, parser.Options{})
	require.NoError(t, err)

	assert.Equal(t, 1, result.Stats.Success)
	assert.Equal(t, 1, result.Stats.Failed)
	assert.Equal(t, 1, result.Failures[0].LineNum)
}

func TestParseJSONLines(t *testing.T) {
	path := writeTempLog(t, []string{
		`{"time":"2020-10-10T13:55:36Z","status":200,"path":"/"}`,
		`{"time":"2020-10-10T13:55:37Z","status":404,"path":"/missing"}`,
		`not json at all`,
	})
	recipe := &models.Recipe{
		LogPattern:  "JSON",
		PatternType: models.FamilyJSON,
	}

	result, err := parser.Parse(path, recipe, parser.Options{})
	require.NoError(t, err)

	assert.Equal(t, 2, result.Stats.Success)
	assert.Equal(t, 1, result.Stats.Failed)
	assert.Equal(t, float64(200), result.Records[0]["status"])
	assert.Equal(t, "/missing", result.Records[1]["path"])
}

func TestParseParallelMatchesSequential(t *testing.T) {
	var lines []string
	for i := 0; i < 20000; i++ {
		lines = append(lines, fmt.Sprintf(`{"seq":%d,"status":200}`, i))
	}
	path := writeTempLog(t, lines)
	recipe := &models.Recipe{LogPattern: "JSON", PatternType: models.FamilyJSON}

	seq, err := parser.Parse(path, recipe, parser.Options{Sequential: true})
	require.NoError(t, err)
	par, err := parser.Parse(path, recipe, parser.Options{ChunkSize: 1000})
	require.NoError(t, err)

	assert.Equal(t, seq.Stats, par.Stats)
	require.Equal(t, len(seq.Records), len(par.Records))

	// Chunked results keep file order.
	for _, i := range []int{0, 999, 1000, 10001, 19999} {
		assert.Equal(t, seq.Records[i]["seq"], par.Records[i]["seq"])
		assert.Equal(t, i+1, par.Records[i][models.LineNumColumn])
	}
}

func TestParseGzip(t *testing.T) {
	dir, err := ioutil.TempDir("", "logsherpa-test-")
	require.NoError(t, err)
	t.Cleanup(func() { os.RemoveAll(dir) })

	path := filepath.Join(dir, "access.log.gz")
	fd, err := os.Create(path)
	require.NoError(t, err)
	gz := gzip.NewWriter(fd)
	_, err = gz.Write([]byte(`1.2.3.4 - - [10/Oct/2020:13:55:36 +0000] "GET /x HTTP/1.1" 200 123` + "\n"))
	require.NoError(t, err)
	require.NoError(t, gz.Close())
	require.NoError(t, fd.Close())

	result, err := parser.Parse(path, commonRecipe(t), parser.Options{})
	require.NoError(t, err)
	require.Equal(t, 1, len(result.Records))
	assert.Equal(t, "1.2.3.4", result.Records[0]["client_ip"])
}

func TestParseMissingFile(t *testing.T) {
	_, err := parser.Parse("/no/such/file.log", commonRecipe(t), parser.Options{})
	require.Error(t, err)
	assert.IsType(t, &models.NotFoundError{}, err)
}

func TestLineMatcherNamedGroups(t *testing.T) {
	recipe := &models.Recipe{
		LogPattern:  `(?P<client_ip>[^ ]+) (?P<status>\d+)`,
		PatternType: models.FamilyCustom,
	}

	m, err := parser.NewLineMatcher(recipe)
	require.NoError(t, err)

	record, matched := m.Parse("1.2.3.4 200")
	require.True(t, matched)
	assert.Equal(t, "1.2.3.4", record["client_ip"])
	assert.Equal(t, "200", record["status"])

	_, matched = m.Parse("no match here")
	assert.False(t, matched)
	_, matched = m.Parse("   ")
	assert.False(t, matched)
}

func TestLineMatcherGrok(t *testing.T) {
	recipe := &models.Recipe{
		LogPattern:  "%{COMMONAPACHELOG}",
		PatternType: models.FamilyCustom,
	}

	m, err := parser.NewLineMatcher(recipe)
	require.NoError(t, err)

	record, matched := m.Parse(`1.2.3.4 - frank [10/Oct/2020:13:55:36 +0000] "GET /x HTTP/1.1" 200 123`)
	require.True(t, matched)
	assert.Equal(t, "1.2.3.4", record["clientip"])
	assert.Equal(t, "200", record["response"])
}

func TestLineMatcherInvalidPattern(t *testing.T) {
	recipe := &models.Recipe{
		LogPattern:  `([unclosed`,
		PatternType: models.FamilyCustom,
	}

	_, err := parser.NewLineMatcher(recipe)
	require.Error(t, err)
	assert.IsType(t, &models.InvalidFormatError{}, err)
}

func TestReadLinesLimit(t *testing.T) {
	path := writeTempLog(t, []string{"a", "b", "c", "d"})

	lines, err := parser.ReadLines(path, 2)
	require.NoError(t, err)
	require.Equal(t, 2, len(lines))
	assert.Equal(t, 1, lines[0].Num)
	assert.Equal(t, "b", lines[1].Raw)
}

func TestSampleLinesSkipsBlank(t *testing.T) {
	path := writeTempLog(t, []string{"a", "", "  ", "b"})

	sample, err := parser.SampleLines(path, 100)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, sample)
}
