// Package dumper writes assembled tables to local files. Column sets
// are only known at runtime, so the parquet output uses the CSV writer
// with an all-UTF8 schema instead of a static struct schema.
package dumper

import (
	"fmt"
	"strconv"
	"time"

	"github.com/m-mizutani/logsherpa/internal"
	"github.com/m-mizutani/logsherpa/pkg/models"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/xitongsys/parquet-go-source/local"
	"github.com/xitongsys/parquet-go/parquet"
	"github.com/xitongsys/parquet-go/writer"
)

const parquetConcurrency = 4

// ToParquet writes the table to filePath as a snappy compressed
// parquet file. Null cells stay null.
func ToParquet(table *models.Table, filePath string) error {
	md := make([]string, len(table.Columns))
	for i, col := range table.Columns {
		md[i] = fmt.Sprintf("name=%s, type=UTF8, encoding=PLAIN_DICTIONARY", col)
	}

	fw, err := local.NewLocalFileWriter(filePath)
	if err != nil {
		return errors.Wrapf(err, "Fail to create a parquet file: %s", filePath)
	}
	defer fw.Close()

	pw, err := writer.NewCSVWriter(md, fw, parquetConcurrency)
	if err != nil {
		return errors.Wrap(err, "Fail to create parquet writer")
	}
	pw.CompressionType = parquet.CompressionCodec_SNAPPY

	for _, record := range table.Records {
		row := make([]*string, len(table.Columns))
		for i, col := range table.Columns {
			v, ok := record[col]
			if !ok || v == nil {
				continue
			}
			s := formatCell(v)
			row[i] = &s
		}
		if err := pw.WriteString(row); err != nil {
			return errors.Wrap(err, "Fail to write a parquet row")
		}
	}

	if err := pw.WriteStop(); err != nil {
		return errors.Wrap(err, "Fail to WriteStop for parquet file")
	}

	internal.Logger.WithFields(logrus.Fields{
		"path":    filePath,
		"rows":    table.Len(),
		"columns": len(table.Columns),
	}).Debug("Dumped parquet file")

	return nil
}

func formatCell(v interface{}) string {
	switch t := v.(type) {
	case string:
		return t
	case int64:
		return strconv.FormatInt(t, 10)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case time.Time:
		return t.Format(time.RFC3339)
	default:
		return fmt.Sprintf("%v", t)
	}
}
