package api

import (
	"time"

	"github.com/itchyny/gojq"
	"github.com/m-mizutani/logsherpa/pkg/models"
)

// jqValue converts a record cell to a value gojq accepts. Typed cells can
// be time.Time or int64, which gojq rejects.
func jqValue(v interface{}) interface{} {
	switch t := v.(type) {
	case time.Time:
		return t.Format(time.RFC3339)
	case int64:
		return int(t)
	default:
		return v
	}
}

// FilterRecords keeps records for which the query yields any non-null,
// non-false value. A nil query keeps everything.
func FilterRecords(records []models.ParsedRecord, query *gojq.Query) ([]models.ParsedRecord, error) {
	if query == nil {
		return records, nil
	}

	var matched []models.ParsedRecord
	for _, record := range records {
		value := map[string]interface{}{}
		for k, v := range record {
			value[k] = jqValue(v)
		}

		iter := query.Run(value)
		keep := false
		for {
			v, ok := iter.Next()
			if !ok {
				break
			}
			if err, isErr := v.(error); isErr {
				return nil, err
			}
			if v != nil && v != false {
				keep = true
			}
		}

		if keep {
			matched = append(matched, record)
		}
	}

	return matched, nil
}
