package main

import (
	"os"

	"github.com/m-mizutani/logsherpa/internal"
	"github.com/sirupsen/logrus"

	cli "github.com/urfave/cli/v2"
)

var logger = logrus.New()

type arguments struct {
	LogLevel   string
	Region     string
	ConfigPath string
}

func main() {
	var args arguments

	app := &cli.App{
		Name:  "logsherpa",
		Usage: "Access log recipe resolver and parser",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "log-level",
				Aliases:     []string{"l"},
				Usage:       "Log level [TRACE|DEBUG|INFO|WARN|ERROR]",
				Value:       "INFO",
				EnvVars:     []string{"LOGSHERPA_LOG_LEVEL"},
				Destination: &args.LogLevel,
			},
			&cli.StringFlag{
				Name:        "region",
				Aliases:     []string{"r"},
				Usage:       "AWS region for s3:// inputs",
				EnvVars:     []string{"AWS_REGION"},
				Destination: &args.Region,
			},
			&cli.StringFlag{
				Name:        "config",
				Aliases:     []string{"c"},
				Usage:       "Config file path (default: search near input)",
				Destination: &args.ConfigPath,
			},
		},
		Before: func(c *cli.Context) error {
			internal.SetupLogger(args.LogLevel)
			internal.InitErrorHandler()
			return nil
		},
		Commands: []*cli.Command{
			recommendCommand(&args),
			parseCommand(&args),
			serveCommand(&args),
		},
	}

	if err := app.Run(os.Args); err != nil {
		internal.HandleError(err)
		internal.FlushError()
		logger.WithError(err).Fatal("Abort")
	}
}
