package resolver

import (
	"encoding/json"
	"fmt"
	"io/ioutil"
	"os"
	"path/filepath"
	"time"

	"github.com/m-mizutani/logsherpa/pkg/models"
	"github.com/pkg/errors"
)

const (
	sidecarPattern    = "logformat_*.json"
	sidecarTimeFormat = "060102_150405"
)

// Load reads a recipe side-car file.
func Load(path string) (*models.Recipe, error) {
	raw, err := ioutil.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, models.NewNotFoundError(path)
		}
		return nil, errors.Wrapf(err, "Failed to read log format file: %s", path)
	}

	var recipe models.Recipe
	if err := json.Unmarshal(raw, &recipe); err != nil {
		return nil, errors.Wrapf(err, "Failed to unmarshal log format file: %s", path)
	}

	return &recipe, nil
}

// loadLatestSidecar returns the most recently modified valid side-car in
// the directory, or nil when none is usable.
func loadLatestSidecar(dir string) (*models.Recipe, error) {
	matches, err := filepath.Glob(filepath.Join(dir, sidecarPattern))
	if err != nil {
		return nil, errors.Wrapf(err, "Failed to glob side-car files in %s", dir)
	}
	if len(matches) == 0 {
		return nil, nil
	}

	var latest string
	var latestMod time.Time
	for _, path := range matches {
		info, err := os.Stat(path)
		if err != nil {
			continue
		}
		if latest == "" || info.ModTime().After(latestMod) {
			latest = path
			latestMod = info.ModTime()
		}
	}
	if latest == "" {
		return nil, nil
	}

	recipe, err := Load(latest)
	if err != nil {
		logger.WithError(err).WithField("file", latest).Warn("Ignoring unreadable side-car file")
		return nil, nil
	}

	// A usable side-car needs at least pattern, family and field map.
	if recipe.LogPattern == "" || !recipe.PatternType.IsValid() || recipe.FieldMap == nil {
		logger.WithField("file", latest).Warn("Ignoring structurally invalid side-car file")
		return nil, nil
	}

	abs, err := filepath.Abs(latest)
	if err != nil {
		abs = latest
	}
	recipe.LogFormatFile = abs

	return recipe, nil
}

// persistSidecar writes the recipe next to the input file. Concurrent
// writers for the same input are not synchronized; last writer wins.
func persistSidecar(recipe *models.Recipe, inputFile string) error {
	name := fmt.Sprintf("logformat_%s.json", time.Now().Format(sidecarTimeFormat))
	path := filepath.Join(filepath.Dir(inputFile), name)

	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	recipe.LogFormatFile = abs

	raw, err := json.MarshalIndent(recipe, "", "  ")
	if err != nil {
		return errors.Wrap(err, "Failed to marshal recipe")
	}

	if err := ioutil.WriteFile(path, raw, 0644); err != nil {
		return errors.Wrapf(err, "Failed to write log format file: %s", path)
	}

	logger.WithField("file", abs).Info("Persisted log format file")
	return nil
}
