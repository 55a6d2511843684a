// Package assembler converts matched records into a typed table: column
// projection, derived request fields, and per-column type coercion.
package assembler

import (
	"sort"
	"strings"

	"github.com/m-mizutani/logsherpa/internal"
	"github.com/m-mizutani/logsherpa/pkg/models"
)

var logger = internal.Logger

// derivedRequestColumns are split out of the web server "request" column.
var derivedRequestColumns = []string{"request_method", "request_url", "request_proto"}

// Assemble materializes parsed records into a table. When requested
// columns are given, projection happens before materialization; this is
// the dominant memory saving for large files.
func Assemble(records []models.ParsedRecord, recipe *models.Recipe, requested []string) *models.Table {
	if len(records) == 0 {
		return &models.Table{}
	}

	splitRequestField := recipe.PatternType == models.FamilyWebServer && hasKey(records[0], "request")

	if len(requested) > 0 {
		records = project(records, recipe, requested, splitRequestField)
		splitRequestField = splitRequestField && hasKey(records[0], "request")
	}

	derived := false
	if splitRequestField {
		deriveRequestColumns(records)
		derived = true

		if len(requested) > 0 && !contains(requested, "request") {
			for _, record := range records {
				delete(record, "request")
			}
		}
	}

	coerceColumns(records, recipe)

	return &models.Table{
		Columns: tableColumns(records, recipe, requested, derived),
		Records: records,
	}
}

// project copies each record down to the requested columns. The web
// server "request" column is retained when any derived field is requested
// so it can be split, then dropped afterwards.
func project(records []models.ParsedRecord, recipe *models.Recipe, requested []string, keepRequest bool) []models.ParsedRecord {
	first := records[0]

	var available []string
	var missing []string
	for _, col := range requested {
		if hasKey(first, col) {
			available = append(available, col)
		} else {
			missing = append(missing, col)
		}
	}

	if keepRequest && anyOf(requested, derivedRequestColumns) {
		if !contains(available, "request") {
			available = append(available, "request")
		}
		missing = without(missing, derivedRequestColumns)
	}

	if len(missing) > 0 {
		logger.WithField("columns", missing).Warn("Requested columns not found in parsed data")
	}
	if len(available) == 0 {
		logger.Warn("No requested columns found in parsed data, loading all columns")
		return records
	}

	projected := make([]models.ParsedRecord, len(records))
	for i, record := range records {
		p := models.ParsedRecord{}
		for _, col := range available {
			p[col] = record[col]
		}
		if v, ok := record[models.LineNumColumn]; ok {
			p[models.LineNumColumn] = v
		}
		projected[i] = p
	}

	return projected
}

// deriveRequestColumns splits the combined request line into method, url
// and protocol, in place.
func deriveRequestColumns(records []models.ParsedRecord) {
	for _, record := range records {
		method, url, proto := splitRequest(record["request"])
		record["request_method"] = method
		record["request_url"] = url
		record["request_proto"] = proto
	}
}

// splitRequest splits on the first two spaces only: 3 tokens give
// method/url/proto, 2 give method/url, 1 gives url only.
func splitRequest(v interface{}) (method, url, proto interface{}) {
	s, ok := v.(string)
	if !ok || models.IsAbsent(s) {
		return nil, nil, nil
	}

	parts := strings.SplitN(strings.TrimSpace(s), " ", 3)
	switch len(parts) {
	case 3:
		return parts[0], parts[1], parts[2]
	case 2:
		return parts[0], parts[1], nil
	case 1:
		return nil, parts[0], nil
	}
	return nil, nil, nil
}

// tableColumns decides the final column order: recipe order first, then
// derived fields, then any remaining record keys sorted. The line number
// metadata key is listed only when explicitly requested.
func tableColumns(records []models.ParsedRecord, recipe *models.Recipe, requested []string, derived bool) []string {
	var columns []string
	seen := map[string]bool{}
	if !contains(requested, models.LineNumColumn) {
		seen[models.LineNumColumn] = true
	}

	appendCol := func(col string) {
		if !seen[col] {
			seen[col] = true
			columns = append(columns, col)
		}
	}

	for _, col := range recipe.Columns {
		if hasKey(records[0], col) {
			appendCol(col)
		}
	}
	if derived {
		for _, col := range derivedRequestColumns {
			appendCol(col)
		}
	}

	restSeen := map[string]bool{}
	var rest []string
	for _, record := range records {
		for col := range record {
			if !seen[col] && !restSeen[col] {
				restSeen[col] = true
				rest = append(rest, col)
			}
		}
	}
	sort.Strings(rest)
	for _, col := range rest {
		appendCol(col)
	}

	return columns
}

func hasKey(record models.ParsedRecord, key string) bool {
	_, ok := record[key]
	return ok
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}

func anyOf(list []string, candidates []string) bool {
	for _, c := range candidates {
		if contains(list, c) {
			return true
		}
	}
	return false
}

func without(list []string, remove []string) []string {
	var out []string
	for _, s := range list {
		if !contains(remove, s) {
			out = append(out, s)
		}
	}
	return out
}
