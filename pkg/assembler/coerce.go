package assembler

import (
	"strconv"
	"strings"
	"time"

	"github.com/m-mizutani/logsherpa/pkg/models"
)

// webServerTimeLayout is the fixed day/month-name/year timestamp of
// common/combined web server logs, offset included.
const webServerTimeLayout = "02/Jan/2006:15:04:05 -0700"

// flexibleTimeLayouts are tried in order for every non web-server family.
var flexibleTimeLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05.000000Z",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	webServerTimeLayout,
}

// coerceColumns applies declared column types in place. Coercion is
// lenient: a value that cannot be converted becomes null, never an error,
// and a bad value never aborts the rest of the column.
func coerceColumns(records []models.ParsedRecord, recipe *models.Recipe) {
	if len(recipe.ColumnTypes) == 0 {
		return
	}

	for col, ctype := range recipe.ColumnTypes {
		if ctype == models.ColumnString {
			continue
		}
		for _, record := range records {
			v, ok := record[col]
			if !ok || v == nil {
				continue
			}
			record[col] = coerceValue(v, ctype, recipe.PatternType)
		}
	}
}

func coerceValue(v interface{}, ctype models.ColumnType, family models.Family) interface{} {
	switch ctype {
	case models.ColumnDatetime:
		return coerceDatetime(v, family)
	case models.ColumnInt:
		return coerceInt(v)
	case models.ColumnFloat:
		return coerceFloat(v)
	}
	return v
}

func coerceDatetime(v interface{}, family models.Family) interface{} {
	s, ok := v.(string)
	if !ok {
		return v
	}
	s = strings.TrimSpace(s)

	if family == models.FamilyWebServer {
		if ts, err := time.Parse(webServerTimeLayout, s); err == nil {
			return ts
		}
		return nil
	}

	for _, layout := range flexibleTimeLayouts {
		if ts, err := time.Parse(layout, s); err == nil {
			return ts
		}
	}
	return nil
}

func coerceInt(v interface{}) interface{} {
	switch n := v.(type) {
	case int:
		return int64(n)
	case int64:
		return n
	case float64:
		return int64(n)
	case string:
		if i, err := strconv.ParseInt(strings.TrimSpace(n), 10, 64); err == nil {
			return i
		}
		if f, err := strconv.ParseFloat(strings.TrimSpace(n), 64); err == nil {
			return int64(f)
		}
	}
	return nil
}

func coerceFloat(v interface{}) interface{} {
	switch n := v.(type) {
	case float64:
		return n
	case int:
		return float64(n)
	case int64:
		return float64(n)
	case string:
		if f, err := strconv.ParseFloat(strings.TrimSpace(n), 64); err == nil {
			return f
		}
	}
	return nil
}
