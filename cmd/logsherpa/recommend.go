package main

import (
	"encoding/json"
	"fmt"

	"github.com/k0kubun/pp"
	"github.com/m-mizutani/logsherpa/pkg/resolver"
	"github.com/pkg/errors"
	cli "github.com/urfave/cli/v2"
)

type recommendArguments struct {
	logRegex        string
	apacheLogFormat string
	pretty          bool
}

func recommendCommand(args *arguments) *cli.Command {
	var cmdArgs recommendArguments

	return &cli.Command{
		Name:      "recommend",
		Usage:     "Resolve and print a parse recipe for a log file",
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
			&cli.BoolFlag{
				Name:        "pretty",
				Usage:       "Print the recipe as a Go structure",
				Destination: &cmdArgs.pretty,
			},
		},
		Action: func(c *cli.Context) error {
			return recommendAction(*args, cmdArgs, c.Args().First())
		},
	}
}

func recommendAction(args arguments, cmdArgs recommendArguments, input string) error {
	if input == "" {
		return errors.New("Input log file is required")
	}

	fpath, cleanup, err := fetchInput(args, input)
	if err != nil {
		return err
	}
	defer cleanup()

	_, ov, err := loadConfig(args, fpath, cmdArgs.logRegex, cmdArgs.apacheLogFormat)
	if err != nil {
		return err
	}

	recipe, err := resolver.Resolve(fpath, ov)
	if err != nil {
		return errors.Wrap(err, "Failed to resolve a recipe")
	}

	if cmdArgs.pretty {
		pp.Println(recipe)
		return nil
	}

	raw, err := json.MarshalIndent(recipe, "", "  ")
	if err != nil {
		return errors.Wrap(err, "Failed to marshal a recipe")
	}
	fmt.Println(string(raw))

	return nil
}
