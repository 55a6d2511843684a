package parser

import (
	"bufio"
	"compress/gzip"
	"io"
	"os"
	"strings"

	"github.com/m-mizutani/logsherpa/pkg/models"
	"github.com/pkg/errors"
)

const (
	initialScanBuffer = 64 * 1024
	maxScanBuffer     = 4 * 1024 * 1024
)

var gzipMagic = []byte{0x1f, 0x8b}

// ReadLines reads all lines of a plain-text or gzip file, tagging each with
// its 1-based ordinal. maxLines of 0 reads everything. Invalid bytes are
// replaced, never fatal; only file-level I/O problems return an error.
func ReadLines(path string, maxLines int) ([]models.Line, error) {
	fd, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, models.NewNotFoundError(path)
		}
		return nil, errors.Wrapf(err, "Failed to open input file: %s", path)
	}
	defer fd.Close()

	br := bufio.NewReader(fd)

	var reader io.Reader = br
	if head, err := br.Peek(2); err == nil && head[0] == gzipMagic[0] && head[1] == gzipMagic[1] {
		gz, err := gzip.NewReader(br)
		if err != nil {
			return nil, errors.Wrapf(err, "Failed to open gzip stream: %s", path)
		}
		defer gz.Close()
		reader = gz
	}

	scanner := bufio.NewScanner(reader)
	scanner.Buffer(make([]byte, initialScanBuffer), maxScanBuffer)

	var lines []models.Line
	num := 0
	for scanner.Scan() {
		num++
		lines = append(lines, models.Line{
			Num: num,
			Raw: strings.ToValidUTF8(scanner.Text(), "�"),
		})
		if maxLines > 0 && num >= maxLines {
			break
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, errors.Wrapf(err, "Failed to read input file: %s", path)
	}

	return lines, nil
}

// SampleLines returns the non-blank lines among the first n lines of the
// file, trimmed.
func SampleLines(path string, n int) ([]string, error) {
	lines, err := ReadLines(path, n)
	if err != nil {
		return nil, err
	}

	var sample []string
	for _, line := range lines {
		trimmed := strings.TrimSpace(line.Raw)
		if trimmed != "" {
			sample = append(sample, trimmed)
		}
	}

	return sample, nil
}
