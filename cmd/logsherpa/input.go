package main

import (
	"os"

	"github.com/m-mizutani/logsherpa/internal"
	"github.com/m-mizutani/logsherpa/pkg/config"
	"github.com/m-mizutani/logsherpa/pkg/models"
	"github.com/m-mizutani/logsherpa/pkg/resolver"
	"github.com/pkg/errors"
)

// fetchInput resolves a CLI input argument to a local file path. s3://
// URIs are downloaded to a temp file; cleanup removes it.
func fetchInput(args arguments, path string) (local string, cleanup func(), err error) {
	cleanup = func() {}

	if !models.IsS3URI(path) {
		return path, cleanup, nil
	}

	obj, err := models.ParseS3URI(path, args.Region)
	if err != nil {
		return "", cleanup, err
	}

	fpath, err := internal.DownloadS3Object(obj)
	if err != nil {
		return "", cleanup, err
	}

	return fpath, func() { os.Remove(fpath) }, nil
}

// loadConfig loads the explicit config file, or searches near the input
// file. The returned overrides merge CLI flags over config values, flags
// winning.
func loadConfig(args arguments, inputFile, logRegex, apacheLogFormat string) (*config.Config, resolver.Overrides, error) {
	var cfg *config.Config
	if args.ConfigPath != "" {
		loaded, err := config.Load(args.ConfigPath)
		if err != nil {
			return nil, resolver.Overrides{}, errors.Wrap(err, "Failed to load config")
		}
		cfg = loaded
	} else {
		cfg, _ = config.LoadNearInput(inputFile)
	}

	ov := resolver.Overrides{
		LiteralPattern: cfg.LogRegex,
		FormatString:   cfg.ApacheLogFormat,
	}
	if logRegex != "" {
		ov.LiteralPattern = logRegex
	}
	if apacheLogFormat != "" {
		ov.FormatString = apacheLogFormat
	}

	return cfg, ov, nil
}
