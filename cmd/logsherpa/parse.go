package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/itchyny/gojq"
	"github.com/m-mizutani/logsherpa/pkg/api"
	"github.com/m-mizutani/logsherpa/pkg/assembler"
	"github.com/m-mizutani/logsherpa/pkg/dumper"
	"github.com/m-mizutani/logsherpa/pkg/parser"
	"github.com/m-mizutani/logsherpa/pkg/resolver"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	cli "github.com/urfave/cli/v2"
)

type parseArguments struct {
	logRegex        string
	apacheLogFormat string
	columns         cli.StringSlice
	query           string
	output          string
	format          string
	sequential      bool
	workers         int
	chunkSize       int
}

func parseCommand(args *arguments) *cli.Command {
	var cmdArgs parseArguments

	return &cli.Command{
		Name:      "parse",
		Usage:     "Parse a log file and write the assembled table",
		ArgsUsage: "<logfile|s3://bucket/key>",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "log-regex",
				Usage:       "Literal named-capture pattern override",
				Destination: &cmdArgs.logRegex,
			},
			&cli.StringFlag{
				Name:        "apache-log-format",
				Usage:       "Apache LogFormat string override",
				Destination: &cmdArgs.apacheLogFormat,
			},
			&cli.StringSliceFlag{
				Name:        "column",
				Aliases:     []string{"C"},
				Usage:       "Column to keep (repeatable)",
				Destination: &cmdArgs.columns,
			},
			&cli.StringFlag{
				Name:        "query",
				Aliases:     []string{"q"},
				Usage:       "jq filter applied to each record",
				Destination: &cmdArgs.query,
			},
			&cli.StringFlag{
				Name:        "output",
				Aliases:     []string{"o"},
				Usage:       "Output file path (default: stdout)",
				Destination: &cmdArgs.output,
			},
			&cli.BoolFlag{
				Name:        "sequential",
				Usage:       "Disable the parse worker pool",
				Destination: &cmdArgs.sequential,
			},
			&cli.IntFlag{
				Name:        "workers",
				Usage:       "Worker pool size (default: CPU count)",
				Destination: &cmdArgs.workers,
			},
			&cli.IntFlag{
				Name:        "chunk-size",
				Usage:       "Lines per worker chunk",
				Destination: &cmdArgs.chunkSize,
			},
			&cli.StringFlag{
				Name:        "format",
				Aliases:     []string{"f"},
				Usage:       "Output format [jsonl|parquet]",
				Value:       "jsonl",
				Destination: &cmdArgs.format,
			},
		},
		Action: func(c *cli.Context) error {
			return parseAction(*args, cmdArgs, c.Args().First())
		},
	}
}

func parseAction(args arguments, cmdArgs parseArguments, input string) error {
	if input == "" {
		return errors.New("Input log file is required")
	}

	fpath, cleanup, err := fetchInput(args, input)
	if err != nil {
		return err
	}
	defer cleanup()

	cfg, ov, err := loadConfig(args, fpath, cmdArgs.logRegex, cmdArgs.apacheLogFormat)
	if err != nil {
		return err
	}

	recipe, err := resolver.Resolve(fpath, ov)
	if err != nil {
		return errors.Wrap(err, "Failed to resolve a recipe")
	}

	opts := cfg.Multiprocessing.ParserOptions()
	if cmdArgs.sequential {
		opts.Sequential = true
	}
	if cmdArgs.workers > 0 {
		opts.Workers = cmdArgs.workers
	}
	if cmdArgs.chunkSize > 0 {
		opts.ChunkSize = cmdArgs.chunkSize
	}

	result, err := parser.Parse(fpath, recipe, opts)
	if err != nil {
		return errors.Wrap(err, "Failed to parse logs")
	}

	table := assembler.Assemble(result.Records, recipe, cmdArgs.columns.Value())

	if cmdArgs.query != "" {
		q, err := gojq.Parse(cmdArgs.query)
		if err != nil {
			return errors.Wrap(err, "Failed to parse jq query")
		}
		filtered, err := api.FilterRecords(table.Records, q)
		if err != nil {
			return errors.Wrap(err, "Failed to apply jq query")
		}
		table.Records = filtered
	}

	logger.WithFields(logrus.Fields{
		"total":   result.Stats.TotalLines,
		"success": result.Stats.Success,
		"failed":  result.Stats.Failed,
		"blank":   result.Stats.Blank,
	}).Info("Parsed log file")

	switch strings.ToLower(cmdArgs.format) {
	case "jsonl":
		if cmdArgs.output == "" {
			return dumper.WriteJSONLines(table, os.Stdout)
		}
		return dumper.ToJSONLines(table, cmdArgs.output)
	case "parquet":
		if cmdArgs.output == "" {
			return errors.New("Parquet output requires --output")
		}
		return dumper.ToParquet(table, cmdArgs.output)
	default:
		return fmt.Errorf("Unsupported output format: %s", cmdArgs.format)
	}
}
