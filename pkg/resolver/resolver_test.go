package resolver_test

import (
	"io/ioutil"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/m-mizutani/logsherpa/pkg/models"
	"github.com/m-mizutani/logsherpa/pkg/resolver"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const webServerLine = `192.168.0.1 - frank [10/Oct/2020:13:55:36 +0000] "GET /index.html HTTP/1.1" 200 2326`

func writeInput(t *testing.T, lines []string) string {
	t.Helper()
	dir, err := ioutil.TempDir("", "logsherpa-resolver-")
	require.NoError(t, err)
	t.Cleanup(func() { os.RemoveAll(dir) })

	path := filepath.Join(dir, "access.log")
	require.NoError(t, ioutil.WriteFile(path, []byte(strings.Join(lines, "\n")+"\n"), 0644))
	return path
}

func sidecarFiles(t *testing.T, inputFile string) []string {
	t.Helper()
	matches, err := filepath.Glob(filepath.Join(filepath.Dir(inputFile), "logformat_*.json"))
	require.NoError(t, err)
	return matches
}

func TestResolveClassifiesWebServer(t *testing.T) {
	var lines []string
	for i := 0; i < 30; i++ {
		lines = append(lines, webServerLine)
	}
	path := writeInput(t, lines)

	recipe, err := resolver.Resolve(path, resolver.Overrides{})
	require.NoError(t, err)

	assert.Equal(t, models.FamilyWebServer, recipe.PatternType)
	assert.Equal(t, 1.0, recipe.SuccessRate)
	assert.Equal(t, 1.0, recipe.Confidence)
	assert.Equal(t, "time", recipe.FieldMap["timestamp"])
	assert.FileExists(t, recipe.LogFormatFile)
	assert.Equal(t, 1, len(sidecarFiles(t, path)))
}

func TestResolveReusesSidecar(t *testing.T) {
	var lines []string
	for i := 0; i < 10; i++ {
		lines = append(lines, webServerLine)
	}
	path := writeInput(t, lines)

	first, err := resolver.Resolve(path, resolver.Overrides{})
	require.NoError(t, err)

	second, err := resolver.Resolve(path, resolver.Overrides{})
	require.NoError(t, err)

	// The second call reuses the persisted recipe instead of writing a
	// new side-car file.
	assert.Equal(t, first.LogFormatFile, second.LogFormatFile)
	assert.Equal(t, first.LogPattern, second.LogPattern)
	assert.Equal(t, 1, len(sidecarFiles(t, path)))
}

func TestResolveLiteralOverride(t *testing.T) {
	path := writeInput(t, []string{"1.2.3.4 200", "5.6.7.8 404"})

	recipe, err := resolver.Resolve(path, resolver.Overrides{
		LiteralPattern: `(?P<client_ip>[^ ]+) (?P<status>\d+)`,
	})
	require.NoError(t, err)

	assert.Equal(t, models.FamilyCustom, recipe.PatternType)
	assert.Equal(t, []string{"client_ip", "status"}, recipe.Columns)
	assert.Equal(t, "client_ip", recipe.FieldMap["clientIp"])
	assert.Equal(t, "status", recipe.FieldMap["status"])
	assert.Equal(t, 1.0, recipe.SuccessRate)
	assert.Equal(t, 1.0, recipe.Confidence)
}

func TestResolveLiteralOverrideWinsOverSidecar(t *testing.T) {
	path := writeInput(t, []string{"1.2.3.4 200"})

	_, err := resolver.Resolve(path, resolver.Overrides{})
	require.NoError(t, err)

	recipe, err := resolver.Resolve(path, resolver.Overrides{
		LiteralPattern: `(?P<client_ip>[^ ]+) (?P<status>\d+)`,
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"client_ip", "status"}, recipe.Columns)
}

func TestResolveFormatStringOverride(t *testing.T) {
	path := writeInput(t, []string{webServerLine})

	recipe, err := resolver.Resolve(path, resolver.Overrides{
		FormatString: `%h %l %u %t "%r" %>s %b`,
	})
	require.NoError(t, err)

	assert.Equal(t, models.FamilyWebServer, recipe.PatternType)
	assert.Equal(t, []string{
		"client_ip", "identity", "user", "time", "request", "status", "bytes_sent",
	}, recipe.Columns)
	assert.Equal(t, "ms", recipe.ResponseTimeUnit)
	assert.Equal(t, models.TimezoneFromLog, recipe.Timezone)
	assert.Equal(t, 1.0, recipe.SuccessRate)
}

func TestResolveResponseTimeUnit(t *testing.T) {
	path := writeInput(t, []string{`1.2.3.4 - - [10/Oct/2020:13:55:36 +0000] "GET /x HTTP/1.1" 200 123 523`})

	recipe, err := resolver.Resolve(path, resolver.Overrides{
		FormatString: `%h %l %u %t "%r" %>s %b %D`,
	})
	require.NoError(t, err)
	assert.Equal(t, "us", recipe.ResponseTimeUnit)
}

func TestResolveInvalidLiteralPattern(t *testing.T) {
	path := writeInput(t, []string{"whatever"})

	_, err := resolver.Resolve(path, resolver.Overrides{LiteralPattern: `([unclosed`})
	require.Error(t, err)
	assert.IsType(t, &models.InvalidFormatError{}, err)
}

func TestResolveMissingInput(t *testing.T) {
	_, err := resolver.Resolve("/no/such/input.log", resolver.Overrides{})
	require.Error(t, err)
	assert.IsType(t, &models.NotFoundError{}, err)
}

func TestResolveEmptyInput(t *testing.T) {
	path := writeInput(t, []string{"", "   ", ""})

	_, err := resolver.Resolve(path, resolver.Overrides{})
	require.Error(t, err)
}

func TestResolvePartialMatchConfidence(t *testing.T) {
	// 2 of 4 sample lines match the override; success rate and confidence
	// reflect that.
	path := writeInput(t, []string{"1.2.3.4 200", "no match", "5.6.7.8 404", "also bad"})

	recipe, err := resolver.Resolve(path, resolver.Overrides{
		LiteralPattern: `(?P<client_ip>\d+\.\d+\.\d+\.\d+) (?P<status>\d+)`,
	})
	require.NoError(t, err)
	assert.InDelta(t, 0.5, recipe.SuccessRate, 0.0001)
	assert.InDelta(t, 0.5, recipe.Confidence, 0.0001)
}

func TestResolveIgnoresInvalidSidecar(t *testing.T) {
	var lines []string
	for i := 0; i < 5; i++ {
		lines = append(lines, webServerLine)
	}
	path := writeInput(t, lines)

	// A structurally broken side-car must not be reused.
	broken := filepath.Join(filepath.Dir(path), "logformat_200101_000000.json")
	require.NoError(t, ioutil.WriteFile(broken, []byte(`{"logPattern":""}`), 0644))

	recipe, err := resolver.Resolve(path, resolver.Overrides{})
	require.NoError(t, err)
	assert.Equal(t, models.FamilyWebServer, recipe.PatternType)
	assert.NotEqual(t, broken, recipe.LogFormatFile)
}

func TestLoadSidecar(t *testing.T) {
	path := writeInput(t, []string{webServerLine})

	recipe, err := resolver.Resolve(path, resolver.Overrides{})
	require.NoError(t, err)

	loaded, err := resolver.Load(recipe.LogFormatFile)
	require.NoError(t, err)
	assert.Equal(t, recipe.LogPattern, loaded.LogPattern)
	assert.Equal(t, recipe.PatternType, loaded.PatternType)
	assert.Equal(t, recipe.FieldMap, loaded.FieldMap)

	_, err = resolver.Load(filepath.Join(filepath.Dir(path), "logformat_nope.json"))
	assert.IsType(t, &models.NotFoundError{}, err)
}
