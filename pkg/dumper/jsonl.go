package dumper

import (
	"bufio"
	"encoding/json"
	"io"
	"os"
	"time"

	"github.com/m-mizutani/logsherpa/pkg/models"
	"github.com/pkg/errors"
)

// WriteJSONLines writes one JSON object per record. time.Time values
// are rendered as RFC3339 by encoding/json.
func WriteJSONLines(table *models.Table, w io.Writer) error {
	bw := bufio.NewWriter(w)
	enc := json.NewEncoder(bw)

	for _, record := range table.Records {
		row := map[string]interface{}{}
		for _, col := range table.Columns {
			v, ok := record[col]
			if !ok {
				v = nil
			}
			if t, isTime := v.(time.Time); isTime {
				v = t.Format(time.RFC3339)
			}
			row[col] = v
		}
		if err := enc.Encode(row); err != nil {
			return errors.Wrap(err, "Fail to encode a record to JSON")
		}
	}

	return errors.Wrap(bw.Flush(), "Fail to flush JSON lines")
}

// ToJSONLines writes the table to filePath as JSON lines.
func ToJSONLines(table *models.Table, filePath string) error {
	fd, err := os.Create(filePath)
	if err != nil {
		return errors.Wrapf(err, "Fail to create a JSON lines file: %s", filePath)
	}
	defer fd.Close()

	return WriteJSONLines(table, fd)
}
