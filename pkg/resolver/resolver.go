// Package resolver decides which recipe to use for an input file and
// persists it as a side-car file. Priority: literal pattern override,
// format-string override, existing side-car, fresh classification.
package resolver

import (
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/m-mizutani/logsherpa/internal"
	"github.com/m-mizutani/logsherpa/pkg/classifier"
	"github.com/m-mizutani/logsherpa/pkg/compiler"
	"github.com/m-mizutani/logsherpa/pkg/models"
	"github.com/m-mizutani/logsherpa/pkg/parser"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

const (
	// sampleSize lines are read for classification and stress testing.
	sampleSize = 100
	// stressTestLimit caps how many sample lines the stress test sees.
	stressTestLimit = 50
)

var logger = internal.Logger

// Overrides is the configuration override surface. A non-empty
// LiteralPattern wins over FormatString; either skips classification.
type Overrides struct {
	// LiteralPattern is a named-capture pattern matched as-is.
	LiteralPattern string
	// FormatString is a LogFormat directive string run through the
	// pattern compiler.
	FormatString string
}

// Resolve produces the recipe for an input file and persists it next to
// the input, except when an existing side-car is reused.
func Resolve(inputFile string, ov Overrides) (*models.Recipe, error) {
	if inputFile == "" {
		return nil, models.NewNotFoundError(inputFile)
	}
	if _, err := os.Stat(inputFile); err != nil {
		return nil, models.NewNotFoundError(inputFile)
	}

	sample, err := parser.SampleLines(inputFile, sampleSize)
	if err != nil {
		return nil, err
	}
	if len(sample) == 0 {
		return nil, errors.Errorf("No valid lines found in %s", inputFile)
	}

	var recipe *models.Recipe
	confidence := 1.0

	switch {
	case ov.LiteralPattern != "":
		if recipe, err = buildFromLiteralPattern(ov.LiteralPattern); err != nil {
			return nil, err
		}

	case ov.FormatString != "":
		if recipe, err = buildFromFormatString(ov.FormatString); err != nil {
			return nil, err
		}

	default:
		existing, err := loadLatestSidecar(filepath.Dir(inputFile))
		if err != nil {
			return nil, err
		}
		if existing != nil {
			logger.WithField("file", existing.LogFormatFile).Info("Using existing log format file")
			// The side-car is immutable once written; re-measure for
			// diagnostics only.
			rate, failed := stressTest(existing, sample)
			reportSampleFailures(failed)
			existing.SuccessRate = rate
			return existing, nil
		}

		result := classifier.Classify(sample)
		logger.WithFields(logrus.Fields{
			"family":     result.Family,
			"confidence": result.Confidence,
		}).Info("Classified log format")
		confidence = result.Confidence
		recipe = buildForFamily(result.Family, sample)
	}

	rate, failed := stressTest(recipe, sample)
	reportSampleFailures(failed)

	recipe.SuccessRate = rate
	recipe.Confidence = confidence * rate

	if err := persistSidecar(recipe, inputFile); err != nil {
		return nil, err
	}

	return recipe, nil
}

// buildFromLiteralPattern derives the recipe from a named-capture pattern
// override. Columns follow capture-group order.
func buildFromLiteralPattern(pattern string) (*models.Recipe, error) {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, models.NewInvalidFormatError(models.FamilyCustom, "configured pattern does not compile", err)
	}

	var columns []string
	for _, name := range re.SubexpNames() {
		if name != "" {
			columns = append(columns, name)
		}
	}

	return &models.Recipe{
		LogPattern:       pattern,
		PatternType:      models.FamilyCustom,
		Columns:          columns,
		FieldMap:         models.BuildFieldMap(columns),
		ResponseTimeUnit: "ms",
		Timezone:         models.TimezoneFromLog,
	}, nil
}

// buildFromFormatString runs a LogFormat directive override through the
// pattern compiler and rejects structurally invalid output.
func buildFromFormatString(format string) (*models.Recipe, error) {
	compiled, err := compiler.Compile(format)
	if err != nil {
		return nil, models.NewInvalidFormatError(models.FamilyWebServer, "configured format string does not compile", err)
	}

	if strings.TrimSpace(compiled.Pattern) == "" || len(compiled.Columns) == 0 {
		return nil, models.NewInvalidFormatError(models.FamilyWebServer, "compiler returned invalid output", nil)
	}
	for _, col := range compiled.Columns {
		if col == "" {
			return nil, models.NewInvalidFormatError(models.FamilyWebServer, "compiler returned invalid output", nil)
		}
	}

	unit := "ms"
	for _, col := range compiled.Columns {
		switch col {
		case "response_time_us":
			unit = "us"
		case "response_time_s":
			if unit == "ms" {
				unit = "s"
			}
		}
	}

	return &models.Recipe{
		LogPattern:       compiled.Pattern,
		PatternType:      models.FamilyWebServer,
		Columns:          compiled.Columns,
		ColumnTypes:      compiled.ColumnTypes,
		FieldMap:         models.BuildFieldMap(compiled.Columns),
		ResponseTimeUnit: unit,
		Timezone:         models.TimezoneFromLog,
	}, nil
}

// stressTest matches the recipe against up to 50 sample lines and returns
// the success rate plus the failed lines for diagnostics.
func stressTest(recipe *models.Recipe, sample []string) (float64, []models.FailureEntry) {
	m, err := parser.NewLineMatcher(recipe)
	if err != nil {
		logger.WithError(err).Warn("Recipe pattern is not matchable")
		return 0, nil
	}

	limit := stressTestLimit
	if len(sample) < limit {
		limit = len(sample)
	}

	success := 0
	var failed []models.FailureEntry
	for i, line := range sample[:limit] {
		if m.Matches(line) {
			success++
		} else {
			failed = append(failed, models.FailureEntry{LineNum: i + 1, Raw: line})
		}
	}

	return float64(success) / float64(limit), failed
}

// reportSampleFailures logs a capped sample of the lines the stress test
// could not match.
func reportSampleFailures(failed []models.FailureEntry) {
	if len(failed) == 0 {
		return
	}

	logger.WithField("count", len(failed)).Warn("Sample lines failed during recipe check")
	for i, f := range failed {
		if i >= 10 {
			logger.Warnf("... and %d more failed sample lines", len(failed)-10)
			break
		}
		raw := f.Raw
		if len(raw) > 100 {
			raw = raw[:100] + "..."
		}
		logger.Warnf("Sample Line %d: %s", f.LineNum, raw)
	}
}
